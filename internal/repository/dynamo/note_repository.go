package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"saas-notes-be/internal/entity"
	"saas-notes-be/internal/mapper"
	"saas-notes-be/internal/model"
	"saas-notes-be/internal/repository/contract"
	"saas-notes-be/internal/repository/keys"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ownedByCaller guards every update and delete. A failure means the item is
// absent or belongs to another org; both read as "not found".
const ownedByCaller = "attribute_exists(#pk) AND #orgId = :orgId"

// updateAttempts bounds the read-then-write cycles of one Update.
const updateAttempts = 3

// errStale reports that the item changed between the read and the write.
var errStale = errors.New("note changed since read")

// NoteRepository stores notes in one DynamoDB table. Each note is a single
// item carrying its own index keys, so single-item conditional writes keep
// the record and the three GSIs consistent.
type NoteRepository struct {
	client API
	table  string
	mapper *mapper.NoteMapper
	opts   contract.Options
}

func NewNoteRepository(client API, table string, opts ...contract.Option) *NoteRepository {
	return &NoteRepository{
		client: client,
		table:  table,
		mapper: mapper.NewNoteMapper(),
		opts:   contract.ApplyOptions(opts...),
	}
}

func stringValue(v string) *dtypes.AttributeValueMemberS {
	return &dtypes.AttributeValueMemberS{Value: v}
}

func primaryKey(orgId, noteId string) map[string]dtypes.AttributeValue {
	return map[string]dtypes.AttributeValue{
		model.AttrPK: stringValue(keys.PrimaryKey(orgId, noteId)),
	}
}

func isConditionFailure(err error) bool {
	var ccf *dtypes.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (r *NoteRepository) Create(ctx context.Context, params contract.CreateNoteParams) (*entity.Note, error) {
	if err := contract.ValidateScope(params.OrgId, params.UserId); err != nil {
		return nil, err
	}

	now := r.opts.Now().UTC()
	note := &entity.Note{
		Id:        r.opts.NewId(),
		OrgId:     params.OrgId,
		UserId:    params.UserId,
		Title:     params.Title,
		Content:   params.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.SubjectId != nil && *params.SubjectId != "" {
		s := *params.SubjectId
		note.SubjectId = &s
	}

	putParams := &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     r.mapper.ToAttributes(r.mapper.ToModel(note)),
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": model.AttrPK},
	}
	if _, err := r.client.PutItem(ctx, putParams); err != nil {
		if isConditionFailure(err) {
			return nil, contract.ErrDuplicateId
		}
		return nil, fmt.Errorf("dynamo put note: %w", err)
	}
	return note, nil
}

func (r *NoteRepository) FindById(ctx context.Context, orgId, noteId string) (*entity.Note, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return nil, err
	}
	note, _, err := r.load(ctx, orgId, noteId)
	return note, err
}

// load reads a note with a consistent read and also returns the stored
// updatedAt string, which later conditional writes compare against.
func (r *NoteRepository) load(ctx context.Context, orgId, noteId string) (*entity.Note, string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            primaryKey(orgId, noteId),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, "", fmt.Errorf("dynamo get note: %w", err)
	}

	note, err := r.mapper.EntityFromAttributes(out.Item)
	if err != nil {
		return nil, "", err
	}
	if note == nil || note.OrgId != orgId {
		return nil, "", nil
	}
	raw, _ := out.Item[model.AttrUpdatedAt].(*dtypes.AttributeValueMemberS)
	return note, raw.Value, nil
}

func (r *NoteRepository) FindAllByUser(ctx context.Context, orgId, userId string) ([]*entity.Note, error) {
	if err := contract.ValidateScope(orgId, userId); err != nil {
		return nil, err
	}
	return r.queryIndex(ctx, orgId, model.IndexByUser, model.AttrGSI1PK, keys.ByUserIndexKey(orgId, userId))
}

func (r *NoteRepository) FindAllByOrg(ctx context.Context, orgId string) ([]*entity.Note, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return nil, err
	}
	return r.queryIndex(ctx, orgId, model.IndexByOrg, model.AttrGSI2PK, keys.ByOrgIndexKey(orgId))
}

func (r *NoteRepository) FindAllBySubject(ctx context.Context, orgId, subjectId string) ([]*entity.Note, error) {
	if err := contract.ValidateScope(orgId, subjectId); err != nil {
		return nil, err
	}
	return r.queryIndex(ctx, orgId, model.IndexBySubject, model.AttrGSI3PK, keys.BySubjectIndexKey(orgId, subjectId))
}

// queryIndex reads every page of one index partition, newest first.
func (r *NoteRepository) queryIndex(ctx context.Context, orgId, index, partitionAttr, partitionKey string) ([]*entity.Note, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.table),
		IndexName:                aws.String(index),
		KeyConditionExpression:   aws.String("#ipk = :ipk"),
		ExpressionAttributeNames: map[string]string{"#ipk": partitionAttr},
		ExpressionAttributeValues: map[string]dtypes.AttributeValue{
			":ipk": stringValue(partitionKey),
		},
		ScanIndexForward: aws.Bool(false),
	})

	notes := []*entity.Note{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamo query %s: %w", index, err)
		}
		for _, attrs := range page.Items {
			note, err := r.mapper.EntityFromAttributes(attrs)
			if err != nil {
				return nil, err
			}
			// Index keys embed the org, this only guards against hand-edited items.
			if note == nil || note.OrgId != orgId {
				continue
			}
			notes = append(notes, note)
		}
	}
	return notes, nil
}

// Update reads the note, then writes it conditioned on ownership and on the
// updatedAt it read. A lost race re-reads, so a note deleted in between
// reports not found and a note changed in between is retried.
func (r *NoteRepository) Update(ctx context.Context, orgId, noteId string, update contract.NoteUpdate) (*entity.Note, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < updateAttempts; attempt++ {
		current, prevUpdatedAt, err := r.load(ctx, orgId, noteId)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, nil
		}

		note, err := r.updateFrom(ctx, current, prevUpdatedAt, update)
		if errors.Is(err, errStale) {
			continue
		}
		return note, err
	}
	return nil, fmt.Errorf("dynamo update note %s: %w", noteId, contract.ErrConflict)
}

func (r *NoteRepository) updateFrom(ctx context.Context, current *entity.Note, prevUpdatedAt string, update contract.NoteUpdate) (*entity.Note, error) {
	orgId := current.OrgId
	updatedAt := contract.NextUpdatedAt(current.UpdatedAt, r.opts.Now())

	names := map[string]string{
		"#pk":        model.AttrPK,
		"#orgId":     model.AttrOrgId,
		"#updatedAt": model.AttrUpdatedAt,
	}
	values := map[string]dtypes.AttributeValue{
		":orgId":         stringValue(orgId),
		":updatedAt":     stringValue(keys.FormatTimestamp(updatedAt)),
		":prevUpdatedAt": stringValue(prevUpdatedAt),
	}
	sets := []string{"#updatedAt = :updatedAt"}
	var removes []string

	if update.Title != nil {
		names["#title"] = model.AttrTitle
		values[":title"] = stringValue(*update.Title)
		sets = append(sets, "#title = :title")
	}
	if update.Content != nil {
		names["#content"] = model.AttrContent
		values[":content"] = stringValue(*update.Content)
		sets = append(sets, "#content = :content")
	}
	if update.SubjectId != nil {
		names["#subjectId"] = model.AttrSubjectId
		names["#sidx"] = model.AttrGSI3PK
		names["#sidxSort"] = model.AttrGSI3SK
		if *update.SubjectId == "" {
			// Removing the attributes takes the item out of GSI3.
			removes = append(removes, "#subjectId", "#sidx", "#sidxSort")
		} else {
			names["#orgSort"] = model.AttrGSI2SK
			values[":subjectId"] = stringValue(*update.SubjectId)
			values[":sidx"] = stringValue(keys.BySubjectIndexKey(orgId, *update.SubjectId))
			// The subject sort key equals the org sort key: createdAt#id.
			sets = append(sets, "#subjectId = :subjectId", "#sidx = :sidx", "#sidxSort = #orgSort")
		}
	}

	expr := "SET " + strings.Join(sets, ", ")
	if len(removes) > 0 {
		expr += " REMOVE " + strings.Join(removes, ", ")
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       primaryKey(orgId, current.Id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String(ownedByCaller + " AND #updatedAt = :prevUpdatedAt"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              dtypes.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, errStale
		}
		return nil, fmt.Errorf("dynamo update note: %w", err)
	}
	return r.mapper.EntityFromAttributes(out.Attributes)
}

func (r *NoteRepository) Delete(ctx context.Context, orgId, noteId string) (bool, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return false, err
	}

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 primaryKey(orgId, noteId),
		ConditionExpression: aws.String(ownedByCaller),
		ExpressionAttributeNames: map[string]string{
			"#pk":    model.AttrPK,
			"#orgId": model.AttrOrgId,
		},
		ExpressionAttributeValues: map[string]dtypes.AttributeValue{
			":orgId": stringValue(orgId),
		},
		ReturnValues: dtypes.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionFailure(err) {
			return false, nil
		}
		return false, fmt.Errorf("dynamo delete note: %w", err)
	}
	return true, nil
}

var _ contract.NoteRepository = (*NoteRepository)(nil)

package mapper

import (
	"fmt"

	"saas-notes-be/internal/entity"
	"saas-notes-be/internal/model"
	"saas-notes-be/internal/repository/keys"

	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type NoteMapper struct{}

func NewNoteMapper() *NoteMapper {
	return &NoteMapper{}
}

// ToModel derives the item, index keys included, from a note.
func (m *NoteMapper) ToModel(n *entity.Note) *model.NoteItem {
	if n == nil {
		return nil
	}

	sortKey := keys.IndexSortKey(n.CreatedAt, n.Id)
	item := &model.NoteItem{
		PK:          keys.PrimaryKey(n.OrgId, n.Id),
		Id:          n.Id,
		OrgId:       n.OrgId,
		UserId:      n.UserId,
		Title:       n.Title,
		Content:     n.Content,
		CreatedAt:   keys.FormatTimestamp(n.CreatedAt),
		UpdatedAt:   keys.FormatTimestamp(n.UpdatedAt),
		UserIndexPK: keys.ByUserIndexKey(n.OrgId, n.UserId),
		UserIndexSK: sortKey,
		OrgIndexPK:  keys.ByOrgIndexKey(n.OrgId),
		OrgIndexSK:  sortKey,
	}
	if n.HasSubject() {
		item.SubjectId = *n.SubjectId
		item.SubjectIndexPK = keys.BySubjectIndexKey(n.OrgId, *n.SubjectId)
		item.SubjectIndexSK = sortKey
	}
	return item
}

func (m *NoteMapper) ToEntity(item *model.NoteItem) (*entity.Note, error) {
	if item == nil {
		return nil, nil
	}

	createdAt, err := keys.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("note %s: bad %s: %w", item.Id, model.AttrCreatedAt, err)
	}
	updatedAt, err := keys.ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("note %s: bad %s: %w", item.Id, model.AttrUpdatedAt, err)
	}

	n := &entity.Note{
		Id:        item.Id,
		OrgId:     item.OrgId,
		UserId:    item.UserId,
		Title:     item.Title,
		Content:   item.Content,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if item.SubjectId != "" {
		s := item.SubjectId
		n.SubjectId = &s
	}
	return n, nil
}

// ToAttributes renders the item for PutItem. Subject attributes are left out
// entirely when there is no subject so the item stays out of GSI3.
func (m *NoteMapper) ToAttributes(item *model.NoteItem) map[string]dtypes.AttributeValue {
	attrs := map[string]dtypes.AttributeValue{
		model.AttrPK:        &dtypes.AttributeValueMemberS{Value: item.PK},
		model.AttrId:        &dtypes.AttributeValueMemberS{Value: item.Id},
		model.AttrOrgId:     &dtypes.AttributeValueMemberS{Value: item.OrgId},
		model.AttrUserId:    &dtypes.AttributeValueMemberS{Value: item.UserId},
		model.AttrTitle:     &dtypes.AttributeValueMemberS{Value: item.Title},
		model.AttrContent:   &dtypes.AttributeValueMemberS{Value: item.Content},
		model.AttrCreatedAt: &dtypes.AttributeValueMemberS{Value: item.CreatedAt},
		model.AttrUpdatedAt: &dtypes.AttributeValueMemberS{Value: item.UpdatedAt},
		model.AttrGSI1PK:    &dtypes.AttributeValueMemberS{Value: item.UserIndexPK},
		model.AttrGSI1SK:    &dtypes.AttributeValueMemberS{Value: item.UserIndexSK},
		model.AttrGSI2PK:    &dtypes.AttributeValueMemberS{Value: item.OrgIndexPK},
		model.AttrGSI2SK:    &dtypes.AttributeValueMemberS{Value: item.OrgIndexSK},
	}
	if item.SubjectId != "" {
		attrs[model.AttrSubjectId] = &dtypes.AttributeValueMemberS{Value: item.SubjectId}
		attrs[model.AttrGSI3PK] = &dtypes.AttributeValueMemberS{Value: item.SubjectIndexPK}
		attrs[model.AttrGSI3SK] = &dtypes.AttributeValueMemberS{Value: item.SubjectIndexSK}
	}
	return attrs
}

func (m *NoteMapper) FromAttributes(attrs map[string]dtypes.AttributeValue) (*model.NoteItem, error) {
	if len(attrs) == 0 {
		return nil, nil
	}

	item := &model.NoteItem{}
	required := []struct {
		name string
		dst  *string
	}{
		{model.AttrPK, &item.PK},
		{model.AttrId, &item.Id},
		{model.AttrOrgId, &item.OrgId},
		{model.AttrUserId, &item.UserId},
		{model.AttrCreatedAt, &item.CreatedAt},
		{model.AttrUpdatedAt, &item.UpdatedAt},
	}
	for _, f := range required {
		v, ok := stringAttr(attrs, f.name)
		if !ok {
			return nil, fmt.Errorf("note item is missing string attribute %q", f.name)
		}
		*f.dst = v
	}

	item.Title, _ = stringAttr(attrs, model.AttrTitle)
	item.Content, _ = stringAttr(attrs, model.AttrContent)
	item.SubjectId, _ = stringAttr(attrs, model.AttrSubjectId)
	item.UserIndexPK, _ = stringAttr(attrs, model.AttrGSI1PK)
	item.UserIndexSK, _ = stringAttr(attrs, model.AttrGSI1SK)
	item.OrgIndexPK, _ = stringAttr(attrs, model.AttrGSI2PK)
	item.OrgIndexSK, _ = stringAttr(attrs, model.AttrGSI2SK)
	item.SubjectIndexPK, _ = stringAttr(attrs, model.AttrGSI3PK)
	item.SubjectIndexSK, _ = stringAttr(attrs, model.AttrGSI3SK)
	return item, nil
}

// EntityFromAttributes decodes a raw item straight into a note.
func (m *NoteMapper) EntityFromAttributes(attrs map[string]dtypes.AttributeValue) (*entity.Note, error) {
	item, err := m.FromAttributes(attrs)
	if err != nil || item == nil {
		return nil, err
	}
	return m.ToEntity(item)
}

func stringAttr(attrs map[string]dtypes.AttributeValue, name string) (string, bool) {
	if v, ok := attrs[name].(*dtypes.AttributeValueMemberS); ok {
		return v.Value, true
	}
	return "", false
}

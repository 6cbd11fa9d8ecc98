package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"saas-notes-be/internal/config"
	"saas-notes-be/internal/model"
	"saas-notes-be/internal/repository/contract"
	"saas-notes-be/internal/repository/contract/contracttest"
	"saas-notes-be/internal/repository/keys"

	"github.com/aws/aws-sdk-go-v2/aws"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = "notes-test"

func TestNoteRepositoryContract(t *testing.T) {
	contracttest.Run(t, func(t *testing.T, opts ...contract.Option) contract.NoteRepository {
		return NewNoteRepository(newFakeDynamo(), testTable, opts...)
	})
}

func TestNoteRepositoryContractPaged(t *testing.T) {
	contracttest.Run(t, func(t *testing.T, opts ...contract.Option) contract.NoteRepository {
		fake := newFakeDynamo()
		fake.pageSize = 2
		return NewNoteRepository(fake, testTable, opts...)
	})
}

func newTestRepo(step time.Duration) (*NoteRepository, *fakeDynamo) {
	fake := newFakeDynamo()
	clock := contracttest.NewStepClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), step)
	return NewNoteRepository(fake, testTable, contract.WithClock(clock.Now)), fake
}

func TestQueryFollowsEveryPage(t *testing.T) {
	repo, fake := newTestRepo(time.Second)
	fake.pageSize = 2
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "t"})
		require.NoError(t, err)
	}

	notes, err := repo.FindAllByOrg(ctx, "org1")
	require.NoError(t, err)
	assert.Len(t, notes, 5)
	assert.Equal(t, 3, fake.queryCalls)
}

func TestClearingSubjectRemovesIndexAttributes(t *testing.T) {
	repo, fake := newTestRepo(time.Millisecond)
	ctx := context.Background()
	subject := "patient-9"

	note, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", SubjectId: &subject, Title: "t"})
	require.NoError(t, err)

	raw := fake.items[keys.PrimaryKey("org1", note.Id)]
	require.Contains(t, raw, model.AttrGSI3PK)
	assert.Equal(t, raw[model.AttrGSI2SK], raw[model.AttrGSI3SK])

	none := ""
	_, err = repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{SubjectId: &none})
	require.NoError(t, err)

	raw = fake.items[keys.PrimaryKey("org1", note.Id)]
	assert.NotContains(t, raw, model.AttrSubjectId)
	assert.NotContains(t, raw, model.AttrGSI3PK)
	assert.NotContains(t, raw, model.AttrGSI3SK)
}

func TestSettingSubjectCopiesOrgSortKey(t *testing.T) {
	repo, fake := newTestRepo(time.Millisecond)
	ctx := context.Background()

	note, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "t"})
	require.NoError(t, err)

	subject := "ticket-1"
	_, err = repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{SubjectId: &subject})
	require.NoError(t, err)

	raw := fake.items[keys.PrimaryKey("org1", note.Id)]
	gsi3pk, _ := str(raw[model.AttrGSI3PK])
	gsi3sk, _ := str(raw[model.AttrGSI3SK])
	assert.Equal(t, keys.BySubjectIndexKey("org1", "ticket-1"), gsi3pk)
	assert.Equal(t, keys.IndexSortKey(note.CreatedAt, note.Id), gsi3sk)
}

func TestOrgAttributeMismatchIsNotFound(t *testing.T) {
	repo, fake := newTestRepo(time.Millisecond)
	ctx := context.Background()

	// An item addressed under orgB whose orgId attribute says orgA.
	fake.items[keys.PrimaryKey("orgB", "n1")] = item{
		model.AttrPK:        &dtypes.AttributeValueMemberS{Value: keys.PrimaryKey("orgB", "n1")},
		model.AttrId:        &dtypes.AttributeValueMemberS{Value: "n1"},
		model.AttrOrgId:     &dtypes.AttributeValueMemberS{Value: "orgA"},
		model.AttrUserId:    &dtypes.AttributeValueMemberS{Value: "u1"},
		model.AttrCreatedAt: &dtypes.AttributeValueMemberS{Value: "2026-01-01T00:00:00.000000000Z"},
		model.AttrUpdatedAt: &dtypes.AttributeValueMemberS{Value: "2026-01-01T00:00:00.000000000Z"},
	}

	got, err := repo.FindById(ctx, "orgB", "n1")
	require.NoError(t, err)
	assert.Nil(t, got)

	title := "x"
	updated, err := repo.Update(ctx, "orgB", "n1", contract.NoteUpdate{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, updated)

	deleted, err := repo.Delete(ctx, "orgB", "n1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, fake.items, keys.PrimaryKey("orgB", "n1"))
}

func TestStorageFaultsPropagate(t *testing.T) {
	repo, fake := newTestRepo(time.Millisecond)
	ctx := context.Background()
	fault := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
	fake.err = fault

	_, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1"})
	require.Error(t, err)
	assert.True(t, contract.IsTransient(err))
	assert.False(t, errors.Is(err, contract.ErrDuplicateId))

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "ProvisionedThroughputExceededException", apiErr.ErrorCode())

	_, err = repo.FindAllBySubject(ctx, "org1", "s")
	assert.True(t, contract.IsTransient(err))

	_, err = repo.Delete(ctx, "org1", "n1")
	assert.True(t, contract.IsTransient(err))
}

func TestEnsureTable(t *testing.T) {
	fake := newFakeDynamo()
	ctx := context.Background()

	created, err := EnsureTable(ctx, fake, testTable, 0)
	require.NoError(t, err)
	assert.True(t, created)

	def := fake.tables[testTable]
	require.NotNil(t, def)
	assert.Equal(t, testTable, aws.ToString(def.TableName))
	var indexes []string
	for _, gsi := range def.GlobalSecondaryIndexes {
		indexes = append(indexes, aws.ToString(gsi.IndexName))
	}
	assert.ElementsMatch(t, []string{model.IndexByUser, model.IndexByOrg, model.IndexBySubject}, indexes)

	created, err = EnsureTable(ctx, fake, testTable, 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, fake.createTables)
}

func TestNewClientRequiresSettings(t *testing.T) {
	_, err := NewClient(context.Background(), config.StoreConfig{Backend: config.BackendDynamo})

	var cfgErr *contract.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "DYNAMO_TABLE_NAME")
	assert.Contains(t, cfgErr.Error(), "AWS_REGION")
}

func TestUpdateNeverMovesUpdatedAtBackwards(t *testing.T) {
	fake := newFakeDynamo()
	start := time.Date(2026, 4, 1, 12, 0, 1, 0, time.UTC)
	calls := 0
	// The create sees 12:00:01, every later call a clock one second behind.
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(-time.Second)
	}
	repo := NewNoteRepository(fake, testTable, contract.WithClock(clock))
	ctx := context.Background()

	note, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "t"})
	require.NoError(t, err)

	title := "edited"
	updated, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Title: &title})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Equal(t, note.CreatedAt, updated.CreatedAt)
}

func TestUpdateRetriesAfterConcurrentWrite(t *testing.T) {
	repo, fake := newTestRepo(time.Second)
	ctx := context.Background()

	note, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "t", Content: "c"})
	require.NoError(t, err)
	key := keys.PrimaryKey("org1", note.Id)

	races := 0
	fake.beforeUpdate = func(f *fakeDynamo) {
		if races > 0 {
			return
		}
		races++
		f.items[key][model.AttrContent] = &dtypes.AttributeValueMemberS{Value: "from another writer"}
		f.items[key][model.AttrUpdatedAt] = &dtypes.AttributeValueMemberS{Value: "2026-04-01T13:00:00.000000000Z"}
	}

	title := "mine"
	updated, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "mine", updated.Title)
	assert.Equal(t, "from another writer", updated.Content)
	assert.True(t, updated.UpdatedAt.After(time.Date(2026, 4, 1, 13, 0, 0, 0, time.UTC)))
}

func TestUpdateOfNoteDeletedMidwayIsNotFound(t *testing.T) {
	repo, fake := newTestRepo(time.Second)
	ctx := context.Background()

	note, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1"})
	require.NoError(t, err)

	fake.beforeUpdate = func(f *fakeDynamo) {
		delete(f.items, keys.PrimaryKey("org1", note.Id))
	}

	title := "late"
	updated, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestUpdateGivesUpUnderConstantContention(t *testing.T) {
	repo, fake := newTestRepo(time.Second)
	ctx := context.Background()

	note, err := repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", UserId: "u1"})
	require.NoError(t, err)
	key := keys.PrimaryKey("org1", note.Id)

	bump := 0
	fake.beforeUpdate = func(f *fakeDynamo) {
		bump++
		f.items[key][model.AttrUpdatedAt] = &dtypes.AttributeValueMemberS{
			Value: keys.FormatTimestamp(time.Date(2026, 5, 1, 0, 0, bump, 0, time.UTC)),
		}
	}

	title := "never"
	_, err = repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Title: &title})
	assert.ErrorIs(t, err, contract.ErrConflict)
	assert.Equal(t, 3, bump)
}

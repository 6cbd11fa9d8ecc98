// Package contracttest holds the behaviour every NoteRepository backend must
// share. Backend packages run it from their own tests.
package contracttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"saas-notes-be/internal/entity"
	"saas-notes-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRepository builds an empty repository using the given options.
type NewRepository func(t *testing.T, opts ...contract.Option) contract.NoteRepository

// StepClock returns a fixed start time and advances by Step on every call.
// A zero Step freezes the clock.
type StepClock struct {
	mu   sync.Mutex
	t    time.Time
	Step time.Duration
}

func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{t: start.UTC(), Step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.Step)
	return now
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string {
	return &s
}

func ids(notes []*entity.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Id
	}
	return out
}

func mustCreate(t *testing.T, repo contract.NoteRepository, params contract.CreateNoteParams) *entity.Note {
	t.Helper()
	note, err := repo.Create(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, note)
	return note
}

// Run executes the shared behaviour against newRepo.
func Run(t *testing.T, newRepo NewRepository) {
	t.Run("Scenario", func(t *testing.T) { testScenario(t, newRepo) })
	t.Run("TenantIsolation", func(t *testing.T) { testTenantIsolation(t, newRepo) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newRepo) })
	t.Run("OrderingNewestFirst", func(t *testing.T) { testOrdering(t, newRepo) })
	t.Run("OrderingTiesAreStable", func(t *testing.T) { testOrderingTies(t, newRepo) })
	t.Run("ListByUser", func(t *testing.T) { testListByUser(t, newRepo) })
	t.Run("SubjectIndexMembership", func(t *testing.T) { testSubjectMembership(t, newRepo) })
	t.Run("PartialUpdate", func(t *testing.T) { testPartialUpdate(t, newRepo) })
	t.Run("UpdatedAtMovesForward", func(t *testing.T) { testUpdatedAtMovesForward(t, newRepo) })
	t.Run("IdempotentDelete", func(t *testing.T) { testIdempotentDelete(t, newRepo) })
	t.Run("DuplicateId", func(t *testing.T) { testDuplicateId(t, newRepo) })
	t.Run("ReadsReturnCopies", func(t *testing.T) { testReadsReturnCopies(t, newRepo) })
	t.Run("InvalidInput", func(t *testing.T) { testInvalidInput(t, newRepo) })
}

func testScenario(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	created := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "T", Content: "C"})
	assert.NotEmpty(t, created.Id)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))
	assert.Nil(t, created.SubjectId)

	updated, err := repo.Update(ctx, "org1", created.Id, contract.NoteUpdate{Title: strPtr("T2")})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "T2", updated.Title)
	assert.Equal(t, "C", updated.Content)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	byUser, err := repo.FindAllByUser(ctx, "org1", "u1")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, created.Id, byUser[0].Id)
	assert.Equal(t, "T2", byUser[0].Title)

	deleted, err := repo.Delete(ctx, "org1", created.Id)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.FindById(ctx, "org1", created.Id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testTenantIsolation(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	note := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "orgA", UserId: "u1", SubjectId: strPtr("s1"), Title: "secret", Content: "A"})

	got, err := repo.FindById(ctx, "orgB", note.Id)
	require.NoError(t, err)
	assert.Nil(t, got)

	updated, err := repo.Update(ctx, "orgB", note.Id, contract.NoteUpdate{Title: strPtr("pwned")})
	require.NoError(t, err)
	assert.Nil(t, updated)

	deleted, err := repo.Delete(ctx, "orgB", note.Id)
	require.NoError(t, err)
	assert.False(t, deleted)

	for name, list := range map[string]func() ([]*entity.Note, error){
		"by org":     func() ([]*entity.Note, error) { return repo.FindAllByOrg(ctx, "orgB") },
		"by user":    func() ([]*entity.Note, error) { return repo.FindAllByUser(ctx, "orgB", "u1") },
		"by subject": func() ([]*entity.Note, error) { return repo.FindAllBySubject(ctx, "orgB", "s1") },
	} {
		notes, err := list()
		require.NoError(t, err, name)
		assert.Empty(t, notes, name)
	}

	// The owner still sees the untouched record.
	got, err = repo.FindById(ctx, "orgA", note.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secret", got.Title)
}

func testRoundTrip(t *testing.T, newRepo NewRepository) {
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	created := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", SubjectId: strPtr("case-7"), Title: "Intake", Content: "Body"})

	got, err := repo.FindById(context.Background(), "org1", created.Id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, "org1", got.OrgId)
	assert.Equal(t, "u1", got.UserId)
	require.NotNil(t, got.SubjectId)
	assert.Equal(t, "case-7", *got.SubjectId)
	assert.Equal(t, "Intake", got.Title)
	assert.Equal(t, "Body", got.Content)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(created.UpdatedAt))
}

func testOrdering(t *testing.T, newRepo NewRepository) {
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Second).Now))

	var want []string
	for i := 0; i < 5; i++ {
		n := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "n", Content: "c"})
		want = append([]string{n.Id}, want...)
	}

	notes, err := repo.FindAllByOrg(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, want, ids(notes))
	for i := 1; i < len(notes); i++ {
		assert.False(t, notes[i].CreatedAt.After(notes[i-1].CreatedAt))
	}
}

func testOrderingTies(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, 0).Now))

	for i := 0; i < 6; i++ {
		mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "same instant", Content: "c"})
	}

	first, err := repo.FindAllByOrg(ctx, "org1")
	require.NoError(t, err)
	require.Len(t, first, 6)

	for i := 0; i < 3; i++ {
		again, err := repo.FindAllByOrg(ctx, "org1")
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
	}
}

func testListByUser(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	mine1 := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "a", Content: "c"})
	mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u2", Title: "b", Content: "c"})
	mine2 := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "c", Content: "c"})
	mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org2", UserId: "u1", Title: "d", Content: "c"})

	notes, err := repo.FindAllByUser(ctx, "org1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{mine2.Id, mine1.Id}, ids(notes))

	all, err := repo.FindAllByOrg(ctx, "org1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.FindAllByUser(ctx, "org1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSubjectMembership(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	withSubject := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", SubjectId: strPtr("S"), Title: "a", Content: "c"})
	mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "no subject", Content: "c"})

	inS, err := repo.FindAllBySubject(ctx, "org1", "S")
	require.NoError(t, err)
	assert.Equal(t, []string{withSubject.Id}, ids(inS))

	// Clearing the subject drops the note from the subject query.
	cleared, err := repo.Update(ctx, "org1", withSubject.Id, contract.NoteUpdate{SubjectId: strPtr("")})
	require.NoError(t, err)
	require.NotNil(t, cleared)
	assert.Nil(t, cleared.SubjectId)

	inS, err = repo.FindAllBySubject(ctx, "org1", "S")
	require.NoError(t, err)
	assert.Empty(t, inS)

	// Setting S then S' moves it between result sets.
	_, err = repo.Update(ctx, "org1", withSubject.Id, contract.NoteUpdate{SubjectId: strPtr("S")})
	require.NoError(t, err)
	moved, err := repo.Update(ctx, "org1", withSubject.Id, contract.NoteUpdate{SubjectId: strPtr("S2")})
	require.NoError(t, err)
	require.NotNil(t, moved)
	require.NotNil(t, moved.SubjectId)
	assert.Equal(t, "S2", *moved.SubjectId)

	inS, err = repo.FindAllBySubject(ctx, "org1", "S")
	require.NoError(t, err)
	assert.Empty(t, inS)

	inS2, err := repo.FindAllBySubject(ctx, "org1", "S2")
	require.NoError(t, err)
	assert.Equal(t, []string{withSubject.Id}, ids(inS2))
}

func testPartialUpdate(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	note := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", SubjectId: strPtr("S"), Title: "T", Content: "C"})

	updated, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Content: strPtr("C2")})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "T", updated.Title)
	assert.Equal(t, "C2", updated.Content)
	require.NotNil(t, updated.SubjectId)
	assert.Equal(t, "S", *updated.SubjectId)
	assert.Equal(t, "u1", updated.UserId)

	missing, err := repo.Update(ctx, "org1", "does-not-exist", contract.NoteUpdate{Title: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testUpdatedAtMovesForward(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()

	t.Run("frozen clock", func(t *testing.T) {
		repo := newRepo(t, contract.WithClock(NewStepClock(epoch, 0).Now))
		note := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "T"})

		first, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Title: strPtr("T1")})
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.True(t, first.UpdatedAt.After(first.CreatedAt))

		second, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Title: strPtr("T2")})
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	})

	t.Run("clock behind createdAt", func(t *testing.T) {
		var mu sync.Mutex
		calls := 0
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return epoch.Add(time.Second)
			}
			return epoch
		}
		repo := newRepo(t, contract.WithClock(clock))
		note := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "T"})

		updated, err := repo.Update(ctx, "org1", note.Id, contract.NoteUpdate{Content: strPtr("C")})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.UpdatedAt.After(note.CreatedAt))

		stored, err := repo.FindById(ctx, "org1", note.Id)
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.Equal(stored.UpdatedAt))
	})
}

func testIdempotentDelete(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	note := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", SubjectId: strPtr("S"), Title: "T", Content: "C"})

	first, err := repo.Delete(ctx, "org1", note.Id)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.Delete(ctx, "org1", note.Id)
	require.NoError(t, err)
	assert.False(t, second)

	for _, list := range []func() ([]*entity.Note, error){
		func() ([]*entity.Note, error) { return repo.FindAllByOrg(ctx, "org1") },
		func() ([]*entity.Note, error) { return repo.FindAllByUser(ctx, "org1", "u1") },
		func() ([]*entity.Note, error) { return repo.FindAllBySubject(ctx, "org1", "S") },
	} {
		notes, err := list()
		require.NoError(t, err)
		assert.Empty(t, notes)
	}
}

func testDuplicateId(t *testing.T, newRepo NewRepository) {
	repo := newRepo(t,
		contract.WithClock(NewStepClock(epoch, time.Millisecond).Now),
		contract.WithIdGenerator(func() string { return "fixed-id" }),
	)

	first := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", Title: "first", Content: "c"})

	_, err := repo.Create(context.Background(), contract.CreateNoteParams{OrgId: "org1", UserId: "u2", Title: "second", Content: "c"})
	assert.ErrorIs(t, err, contract.ErrDuplicateId)

	// The original record was not overwritten.
	got, err := repo.FindById(context.Background(), "org1", first.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "u1", got.UserId)
}

func testReadsReturnCopies(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t, contract.WithClock(NewStepClock(epoch, time.Millisecond).Now))

	created := mustCreate(t, repo, contract.CreateNoteParams{OrgId: "org1", UserId: "u1", SubjectId: strPtr("S"), Title: "T", Content: "C"})
	created.Title = "mutated"
	*created.SubjectId = "mutated"

	got, err := repo.FindById(ctx, "org1", created.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "S", *got.SubjectId)

	got.Content = "mutated"
	listed, err := repo.FindAllByOrg(ctx, "org1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "C", listed[0].Content)
}

func testInvalidInput(t *testing.T, newRepo NewRepository) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.Create(ctx, contract.CreateNoteParams{UserId: "u1", Title: "T"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	_, err = repo.Create(ctx, contract.CreateNoteParams{OrgId: "org1", Title: "T"})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	_, err = repo.FindById(ctx, "", "id")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	_, err = repo.FindAllByOrg(ctx, "")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	_, err = repo.FindAllBySubject(ctx, "org1", "")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	_, err = repo.Delete(ctx, "", "id")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

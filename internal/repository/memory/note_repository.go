package memory

import (
	"context"
	"sort"
	"sync"

	"saas-notes-be/internal/entity"
	"saas-notes-be/internal/repository/contract"
	"saas-notes-be/internal/repository/keys"

	"github.com/patrickmn/go-cache"
)

// storedNote is kept by value so nothing outside the repository can reach
// the stored copy.
type storedNote struct {
	note entity.Note
	seq  uint64
}

// NoteRepository keeps notes in a process-local map keyed by primary key.
// Lists scan the whole map; there are no secondary indexes.
type NoteRepository struct {
	cache *cache.Cache
	opts  contract.Options

	// mu serializes read-modify-write sequences. Plain reads go straight to
	// the cache, which has its own lock.
	mu  sync.Mutex
	seq uint64
}

func NewNoteRepository(opts ...contract.Option) *NoteRepository {
	return &NoteRepository{
		// Records never expire and no janitor runs.
		cache: cache.New(cache.NoExpiration, 0),
		opts:  contract.ApplyOptions(opts...),
	}
}

func (r *NoteRepository) Create(ctx context.Context, params contract.CreateNoteParams) (*entity.Note, error) {
	if err := contract.ValidateScope(params.OrgId, params.UserId); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := r.opts.Now().UTC()
	note := entity.Note{
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

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	stored := storedNote{note: *note.Clone(), seq: r.seq}
	if err := r.cache.Add(keys.PrimaryKey(note.OrgId, note.Id), stored, cache.NoExpiration); err != nil {
		return nil, contract.ErrDuplicateId
	}
	return note.Clone(), nil
}

func (r *NoteRepository) FindById(ctx context.Context, orgId, noteId string) (*entity.Note, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, ok := r.get(orgId, noteId)
	if !ok {
		return nil, nil
	}
	return stored.note.Clone(), nil
}

func (r *NoteRepository) FindAllByUser(ctx context.Context, orgId, userId string) ([]*entity.Note, error) {
	if err := contract.ValidateScope(orgId, userId); err != nil {
		return nil, err
	}
	return r.scan(ctx, func(n *entity.Note) bool {
		return n.OrgId == orgId && n.UserId == userId
	})
}

func (r *NoteRepository) FindAllByOrg(ctx context.Context, orgId string) ([]*entity.Note, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return nil, err
	}
	return r.scan(ctx, func(n *entity.Note) bool {
		return n.OrgId == orgId
	})
}

func (r *NoteRepository) FindAllBySubject(ctx context.Context, orgId, subjectId string) ([]*entity.Note, error) {
	if err := contract.ValidateScope(orgId, subjectId); err != nil {
		return nil, err
	}
	return r.scan(ctx, func(n *entity.Note) bool {
		return n.OrgId == orgId && n.HasSubject() && *n.SubjectId == subjectId
	})
}

func (r *NoteRepository) Update(ctx context.Context, orgId, noteId string, update contract.NoteUpdate) (*entity.Note, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.get(orgId, noteId)
	if !ok {
		return nil, nil
	}

	note := stored.note.Clone()
	if update.Title != nil {
		note.Title = *update.Title
	}
	if update.Content != nil {
		note.Content = *update.Content
	}
	if update.SubjectId != nil {
		if *update.SubjectId == "" {
			note.SubjectId = nil
		} else {
			s := *update.SubjectId
			note.SubjectId = &s
		}
	}
	note.UpdatedAt = contract.NextUpdatedAt(note.UpdatedAt, r.opts.Now())

	r.cache.Set(keys.PrimaryKey(orgId, noteId), storedNote{note: *note.Clone(), seq: stored.seq}, cache.NoExpiration)
	return note, nil
}

func (r *NoteRepository) Delete(ctx context.Context, orgId, noteId string) (bool, error) {
	if err := contract.ValidateScope(orgId); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.get(orgId, noteId); !ok {
		return false, nil
	}
	r.cache.Delete(keys.PrimaryKey(orgId, noteId))
	return true, nil
}

// get resolves a primary key and double-checks ownership of the record.
func (r *NoteRepository) get(orgId, noteId string) (storedNote, bool) {
	x, found := r.cache.Get(keys.PrimaryKey(orgId, noteId))
	if !found {
		return storedNote{}, false
	}
	stored := x.(storedNote)
	if stored.note.OrgId != orgId {
		return storedNote{}, false
	}
	return stored, true
}

func (r *NoteRepository) scan(ctx context.Context, match func(*entity.Note) bool) ([]*entity.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hits []storedNote
	for _, item := range r.cache.Items() {
		stored := item.Object.(storedNote)
		if match(&stored.note) {
			hits = append(hits, stored)
		}
	}

	// Newest first; equal timestamps fall back to reverse insertion order.
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if !a.note.CreatedAt.Equal(b.note.CreatedAt) {
			return a.note.CreatedAt.After(b.note.CreatedAt)
		}
		return a.seq > b.seq
	})

	notes := make([]*entity.Note, len(hits))
	for i := range hits {
		notes[i] = hits[i].note.Clone()
	}
	return notes, nil
}

var _ contract.NoteRepository = (*NoteRepository)(nil)

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saas-notes-be/internal/dto"
	"saas-notes-be/internal/entity"
	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/internal/repository/contract"
	"saas-notes-be/pkg/events"
)

// createAttempts bounds retries of Create after an id collision.
const createAttempts = 3

// Actor is the authenticated caller. Both ids come from the verified token.
type Actor struct {
	OrgId  string
	UserId string
}

type INoteService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateNoteRequest) (*dto.NoteResponse, error)
	Show(ctx context.Context, actor Actor, id string) (*dto.NoteResponse, error)
	List(ctx context.Context, actor Actor, filter dto.ListNotesQuery) (*dto.ListNotesResponse, error)
	Update(ctx context.Context, actor Actor, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error)
	Delete(ctx context.Context, actor Actor, id string) (*dto.DeleteNoteResponse, error)
}

// NoteStore hands out the current note repository. It is resolved on every
// operation so a store that is rebuilt at runtime is picked up.
type NoteStore interface {
	Get(ctx context.Context) (contract.NoteRepository, error)
}

type staticStore struct {
	repo contract.NoteRepository
}

// StaticStore serves one fixed repository.
func StaticStore(repo contract.NoteRepository) NoteStore {
	return staticStore{repo: repo}
}

func (s staticStore) Get(context.Context) (contract.NoteRepository, error) {
	return s.repo, nil
}

type noteService struct {
	store            NoteStore
	publisherService IPublisherService
	logger           logger.ILogger
}

// NewNoteService wires the note use cases. publisherService may be nil, in
// which case no events are emitted.
func NewNoteService(store NoteStore, publisherService IPublisherService, log logger.ILogger) INoteService {
	return &noteService{
		store:            store,
		publisherService: publisherService,
		logger:           log,
	}
}

func (c *noteService) Create(ctx context.Context, actor Actor, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	repo, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	params := contract.CreateNoteParams{
		OrgId:     actor.OrgId,
		UserId:    actor.UserId,
		SubjectId: req.SubjectId,
		Title:     req.Title,
		Content:   req.Content,
	}

	var note *entity.Note
	for attempt := 1; attempt <= createAttempts; attempt++ {
		note, err = repo.Create(ctx, params)
		if !errors.Is(err, contract.ErrDuplicateId) {
			break
		}
		c.logger.Warn("NOTE", "Note id collision, retrying with a fresh id", map[string]interface{}{
			"org_id":  actor.OrgId,
			"attempt": attempt,
		})
	}
	if err != nil {
		return nil, err
	}

	c.publish(ctx, events.NoteEvent(events.NoteCreated, note.OrgId, note.UserId, note.Id, note.CreatedAt))
	return toNoteResponse(note), nil
}

func (c *noteService) Show(ctx context.Context, actor Actor, id string) (*dto.NoteResponse, error) {
	repo, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	note, err := repo.FindById(ctx, actor.OrgId, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, contract.ErrNoteNotFound
	}
	return toNoteResponse(note), nil
}

// List picks the index from the filter: a subject filter wins, then the
// org scope, then the caller's own notes.
func (c *noteService) List(ctx context.Context, actor Actor, filter dto.ListNotesQuery) (*dto.ListNotesResponse, error) {
	repo, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	var notes []*entity.Note
	switch {
	case filter.SubjectId != "":
		notes, err = repo.FindAllBySubject(ctx, actor.OrgId, filter.SubjectId)
	case filter.Scope == dto.ScopeOrg:
		notes, err = repo.FindAllByOrg(ctx, actor.OrgId)
	default:
		notes, err = repo.FindAllByUser(ctx, actor.OrgId, actor.UserId)
	}
	if err != nil {
		return nil, err
	}

	res := &dto.ListNotesResponse{Notes: make([]*dto.NoteResponse, 0, len(notes)), Count: len(notes)}
	for _, n := range notes {
		res.Notes = append(res.Notes, toNoteResponse(n))
	}
	return res, nil
}

func (c *noteService) Update(ctx context.Context, actor Actor, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", contract.ErrInvalidInput)
	}
	repo, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	note, err := repo.Update(ctx, actor.OrgId, req.Id, contract.NoteUpdate{
		Title:     req.Title,
		Content:   req.Content,
		SubjectId: req.SubjectId,
	})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, contract.ErrNoteNotFound
	}

	c.publish(ctx, events.NoteEvent(events.NoteUpdated, note.OrgId, actor.UserId, note.Id, note.UpdatedAt))
	return toNoteResponse(note), nil
}

func (c *noteService) Delete(ctx context.Context, actor Actor, id string) (*dto.DeleteNoteResponse, error) {
	repo, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	deleted, err := repo.Delete(ctx, actor.OrgId, id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, contract.ErrNoteNotFound
	}

	c.publish(ctx, events.NoteEvent(events.NoteDeleted, actor.OrgId, actor.UserId, id, time.Now().UTC()))
	return &dto.DeleteNoteResponse{Id: id, Deleted: true}, nil
}

// publish never fails the request; events are auxiliary.
func (c *noteService) publish(ctx context.Context, event events.Event) {
	if c.publisherService == nil {
		return
	}
	if err := c.publisherService.Publish(ctx, event); err != nil {
		c.logger.Warn("NOTE", "Failed to publish note event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
	}
}

func toNoteResponse(note *entity.Note) *dto.NoteResponse {
	return &dto.NoteResponse{
		Id:        note.Id,
		OrgId:     note.OrgId,
		UserId:    note.UserId,
		SubjectId: note.SubjectId,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

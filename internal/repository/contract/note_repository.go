package contract

import (
	"context"

	"saas-notes-be/internal/entity"
)

type CreateNoteParams struct {
	OrgId     string
	UserId    string
	SubjectId *string
	Title     string
	Content   string
}

// NoteUpdate replaces the non-nil fields. A SubjectId pointing at "" clears
// the subject.
type NoteUpdate struct {
	Title     *string
	Content   *string
	SubjectId *string
}

func (u NoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.SubjectId == nil
}

// NoteRepository is the tenant-scoped storage contract shared by every
// backend. Lookups that do not resolve inside orgId report "not found"
// (nil note, false) whether or not the id exists under another org.
// Lists are ordered newest first.
type NoteRepository interface {
	Create(ctx context.Context, params CreateNoteParams) (*entity.Note, error)
	FindById(ctx context.Context, orgId, noteId string) (*entity.Note, error)
	FindAllByUser(ctx context.Context, orgId, userId string) ([]*entity.Note, error)
	FindAllByOrg(ctx context.Context, orgId string) ([]*entity.Note, error)
	FindAllBySubject(ctx context.Context, orgId, subjectId string) ([]*entity.Note, error)
	Update(ctx context.Context, orgId, noteId string, update NoteUpdate) (*entity.Note, error)
	Delete(ctx context.Context, orgId, noteId string) (bool, error)
}

// ValidateScope rejects empty scoping identifiers before any storage access.
func ValidateScope(orgId string, others ...string) error {
	if orgId == "" {
		return invalidInput("org id is required")
	}
	for _, o := range others {
		if o == "" {
			return invalidInput("identifier is required")
		}
	}
	return nil
}

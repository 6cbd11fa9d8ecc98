package dto

import (
	"time"
)

const (
	ScopeUser = "user"
	ScopeOrg  = "org"
)

// MaxContentBytes keeps a note well under DynamoDB's 400 KB item limit. It is
// repeated in the maxbytes tags below.
const MaxContentBytes = 350 * 1024

type CreateNoteRequest struct {
	Title     string  `json:"title" validate:"required,max=512"`
	Content   string  `json:"content" validate:"maxbytes=358400"`
	SubjectId *string `json:"subject_id" validate:"omitempty,max=256"`
}

// UpdateNoteRequest carries only the fields to change. An empty subject_id
// detaches the note from its subject.
type UpdateNoteRequest struct {
	Id        string  `json:"-"`
	Title     *string `json:"title" validate:"omitempty,max=512"`
	Content   *string `json:"content" validate:"omitempty,maxbytes=358400"`
	SubjectId *string `json:"subject_id" validate:"omitempty,max=256"`
}

func (r *UpdateNoteRequest) IsEmpty() bool {
	return r.Title == nil && r.Content == nil && r.SubjectId == nil
}

// ListNotesQuery picks the listing: a subject filter wins, otherwise scope
// chooses between the caller's own notes and the whole org.
type ListNotesQuery struct {
	Scope     string `query:"scope" validate:"omitempty,oneof=user org"`
	SubjectId string `query:"subject_id" validate:"omitempty,max=256"`
}

type NoteResponse struct {
	Id        string    `json:"id"`
	OrgId     string    `json:"org_id"`
	UserId    string    `json:"user_id"`
	SubjectId *string   `json:"subject_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListNotesResponse struct {
	Notes []*NoteResponse `json:"notes"`
	Count int             `json:"count"`
}

type DeleteNoteResponse struct {
	Id      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type HealthResponse struct {
	Ok      bool   `json:"ok"`
	Backend string `json:"backend"`
}

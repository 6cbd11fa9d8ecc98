package entity

import (
	"time"
)

// Note is a tenant-owned record. OrgId scopes every read and write.
type Note struct {
	Id        string
	OrgId     string
	UserId    string
	SubjectId *string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy that shares no memory with n.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	if n.SubjectId != nil {
		s := *n.SubjectId
		c.SubjectId = &s
	}
	return &c
}

// HasSubject reports whether the note is attached to a subject.
func (n *Note) HasSubject() bool {
	return n.SubjectId != nil && *n.SubjectId != ""
}

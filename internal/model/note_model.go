package model

// Attribute names of a note item in the notes table.
const (
	AttrPK        = "PK"
	AttrId        = "id"
	AttrOrgId     = "orgId"
	AttrUserId    = "userId"
	AttrSubjectId = "subjectId"
	AttrTitle     = "title"
	AttrContent   = "content"
	AttrCreatedAt = "createdAt"
	AttrUpdatedAt = "updatedAt"

	AttrGSI1PK = "GSI1PK" // by user
	AttrGSI1SK = "GSI1SK"
	AttrGSI2PK = "GSI2PK" // by org
	AttrGSI2SK = "GSI2SK"
	AttrGSI3PK = "GSI3PK" // by subject, only present while subjectId is set
	AttrGSI3SK = "GSI3SK"
)

// Global secondary index names.
const (
	IndexByUser    = "GSI1"
	IndexByOrg     = "GSI2"
	IndexBySubject = "GSI3"
)

// NoteItem is the single-table representation of a note. Index keys are
// plain attributes of the same item, so one write keeps the record and all
// of its index projections consistent.
type NoteItem struct {
	PK        string
	Id        string
	OrgId     string
	UserId    string
	SubjectId string // empty when the note has no subject
	Title     string
	Content   string
	CreatedAt string
	UpdatedAt string

	UserIndexPK    string
	UserIndexSK    string
	OrgIndexPK     string
	OrgIndexSK     string
	SubjectIndexPK string
	SubjectIndexSK string
}

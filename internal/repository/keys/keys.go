// Package keys derives the primary and secondary-index keys of a note.
//
// Every key is a "#"-joined list of components. Components are escaped
// before joining, so an identifier can never contain a bare separator and
// two distinct identifier tuples never produce the same key.
package keys

import (
	"strings"
	"time"
)

const (
	Separator = "#"

	notePrefix    = "NOTE"
	userPrefix    = "USER"
	orgPrefix     = "ORG"
	subjectPrefix = "SUBJECT"

	// TimestampLayout is fixed width, so the text form sorts like the instant.
	TimestampLayout = "2006-01-02T15:04:05.000000000Z"
)

var escaper = strings.NewReplacer("%", "%25", Separator, "%23")
var unescaper = strings.NewReplacer("%23", Separator, "%25", "%")

func join(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = escaper.Replace(p)
	}
	return strings.Join(escaped, Separator)
}

// PrimaryKey identifies exactly one note within one org.
func PrimaryKey(orgId, noteId string) string {
	return notePrefix + Separator + join(orgId, noteId)
}

// ByUserIndexKey groups the notes a user created within an org.
func ByUserIndexKey(orgId, userId string) string {
	return userPrefix + Separator + join(orgId, userId)
}

// ByOrgIndexKey groups every note of an org.
func ByOrgIndexKey(orgId string) string {
	return orgPrefix + Separator + join(orgId)
}

// BySubjectIndexKey groups the notes about one subject within an org.
func BySubjectIndexKey(orgId, subjectId string) string {
	return subjectPrefix + Separator + join(orgId, subjectId)
}

// IndexSortKey orders index entries by creation time, then by note id.
func IndexSortKey(createdAt time.Time, noteId string) string {
	return FormatTimestamp(createdAt) + Separator + escaper.Replace(noteId)
}

// FormatTimestamp renders t in UTC with nanosecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value produced by FormatTimestamp. RFC 3339
// values are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Split reverses the component escaping of a key and returns its parts,
// prefix included.
func Split(key string) []string {
	parts := strings.Split(key, Separator)
	for i, p := range parts {
		parts[i] = unescaper.Replace(p)
	}
	return parts
}

package record

import (
	"errors"
	"time"
)

// FutureDeleteAfter is how far out a fiscal record is marked for the separate
// retention sweep once anonymized.
const FutureDeleteAfter = 5 * 365 * 24 * time.Hour

// Domain errors.
var (
	ErrEmptyRecordID   = errors.New("record id is required")
	ErrEmptyCollection = errors.New("record collection is required")
)

// Record is a user-linked document in one of the governed collections.
// Collections differ in schema, so domain fields live in the Fields map and
// the retention policy declares which of them are personally identifying.
type Record struct {
	ID         string
	Collection string
	UserID     string
	Fields     map[string]string

	// Anonymization and legal-hold markers.
	AnonymizedAt      *time.Time
	MarkedForDeletion *time.Time
	SubjectDeleted    bool
	SubjectDeletedAt  *time.Time
}

// Validate checks that the record has valid data.
// PRE: Record fields may be empty
// POST: Returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptyRecordID
	}
	if r.Collection == "" {
		return ErrEmptyCollection
	}
	return nil
}

// IsAnonymized reports whether the anonymization marker is already present.
func (r *Record) IsAnonymized() bool {
	return r.AnonymizedAt != nil
}

// Anonymize overwrites the identifying fields with the placeholder and
// replaces the user link, stamping AnonymizedAt. Idempotent: a record already
// carrying the marker is left untouched so re-runs cannot double-mutate.
// PRE: placeholder is derived from the record's own ID, not the user's
// POST: identifying fields cleared, UserID replaced, AnonymizedAt set
func (r *Record) Anonymize(identifyingFields []string, placeholder string, now time.Time) bool {
	if r.IsAnonymized() {
		return false
	}
	for _, f := range identifyingFields {
		if _, ok := r.Fields[f]; ok {
			r.Fields[f] = ""
		}
	}
	r.UserID = placeholder
	r.AnonymizedAt = &now
	return true
}

// MarkForFutureDeletion stamps the record for the out-of-scope retention sweep
// five years out. Idempotent: an existing marker is preserved.
func (r *Record) MarkForFutureDeletion(now time.Time) {
	if r.MarkedForDeletion != nil {
		return
	}
	t := now.Add(FutureDeleteAfter)
	r.MarkedForDeletion = &t
}

// FlagSubjectDeleted marks a legal-hold record so downstream consumers know
// the data subject requested erasure. No field is altered or removed — the
// legally mandated record remains queryable and intact. Idempotent.
// POST: SubjectDeleted true, SubjectDeletedAt set on first call only
func (r *Record) FlagSubjectDeleted(now time.Time) bool {
	if r.SubjectDeleted {
		return false
	}
	r.SubjectDeleted = true
	r.SubjectDeletedAt = &now
	return true
}

// MutationKind distinguishes staged mutations in a batch.
type MutationKind string

const (
	MutationDelete MutationKind = "delete"
	MutationUpdate MutationKind = "update"
)

// Mutation is one staged change to a governed record. The execution engine
// stages mutations per user and the store commits them as a single batch.
type Mutation struct {
	Kind   MutationKind
	Record Record
}

// DeleteMutation stages a hard delete of the given record.
func DeleteMutation(r Record) Mutation {
	return Mutation{Kind: MutationDelete, Record: r}
}

// UpdateMutation stages a full-row update of the given record.
func UpdateMutation(r Record) Mutation {
	return Mutation{Kind: MutationUpdate, Record: r}
}

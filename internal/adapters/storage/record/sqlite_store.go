package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fisiocore/internal/adapters/storage"
	domain "fisiocore/internal/domain/record"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const recordColumns = `id, collection, user_id, fields, anonymized_at, marked_for_deletion, subject_deleted, subject_deleted_at`

// SQLiteStore implements the record Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new governed-record store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ListByUser returns all records in a collection linked to the user.
// PRE: collection and userID are non-empty
// POST: Returns matching records (possibly none)
func (s *SQLiteStore) ListByUser(ctx context.Context, collection, userID string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM clinical_record
		 WHERE collection = ? AND user_id = ?`, collection, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Save persists a record (insert or update).
// PRE: record has been validated
// POST: Record is persisted
func (s *SQLiteStore) Save(ctx context.Context, r domain.Record) error {
	fieldsJSON, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clinical_record (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id=excluded.user_id,
		   fields=excluded.fields,
		   anonymized_at=excluded.anonymized_at,
		   marked_for_deletion=excluded.marked_for_deletion,
		   subject_deleted=excluded.subject_deleted,
		   subject_deleted_at=excluded.subject_deleted_at`,
		r.ID, r.Collection, r.UserID, string(fieldsJSON),
		formatOptional(r.AnonymizedAt), formatOptional(r.MarkedForDeletion),
		boolToInt(r.SubjectDeleted), formatOptional(r.SubjectDeletedAt))
	return err
}

// CommitBatch applies all staged mutations inside one transaction.
// PRE: mutations were staged from current record state
// POST: All mutations committed, or the transaction rolled back
func (s *SQLiteStore) CommitBatch(ctx context.Context, mutations []domain.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, m := range mutations {
		switch m.Kind {
		case domain.MutationDelete:
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM clinical_record WHERE id = ?`, m.Record.ID); err != nil {
				return fmt.Errorf("batch delete %s/%s: %w", m.Record.Collection, m.Record.ID, err)
			}
		case domain.MutationUpdate:
			fieldsJSON, err := json.Marshal(m.Record.Fields)
			if err != nil {
				return fmt.Errorf("failed to encode record fields: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE clinical_record SET
				   user_id = ?, fields = ?, anonymized_at = ?, marked_for_deletion = ?,
				   subject_deleted = ?, subject_deleted_at = ?
				 WHERE id = ?`,
				m.Record.UserID, string(fieldsJSON),
				formatOptional(m.Record.AnonymizedAt), formatOptional(m.Record.MarkedForDeletion),
				boolToInt(m.Record.SubjectDeleted), formatOptional(m.Record.SubjectDeletedAt),
				m.Record.ID); err != nil {
				return fmt.Errorf("batch update %s/%s: %w", m.Record.Collection, m.Record.ID, err)
			}
		default:
			return fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	return tx.Commit()
}

// CountByCollection returns the record count for one collection.
// PRE: collection is non-empty
// POST: Returns the total number of records in the collection
func (s *SQLiteStore) CountByCollection(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clinical_record WHERE collection = ?`, collection).Scan(&count)
	return count, err
}

// scanRecordFromRows scans a single row from Rows into a Record.
func scanRecordFromRows(rows *sql.Rows) (domain.Record, error) {
	var r domain.Record
	var fieldsJSON string
	var anonymizedAt, markedForDeletion, subjectDeletedAt sql.NullString
	var subjectDeleted int
	err := rows.Scan(&r.ID, &r.Collection, &r.UserID, &fieldsJSON,
		&anonymizedAt, &markedForDeletion, &subjectDeleted, &subjectDeletedAt)
	if err != nil {
		return domain.Record{}, err
	}
	if fieldsJSON != "" {
		if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
			return domain.Record{}, fmt.Errorf("failed to decode record fields: %w", err)
		}
	}
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	r.AnonymizedAt = parseOptional(anonymizedAt)
	r.MarkedForDeletion = parseOptional(markedForDeletion)
	r.SubjectDeleted = subjectDeleted != 0
	r.SubjectDeletedAt = parseOptional(subjectDeletedAt)
	return r, nil
}

// scanRecords scans multiple rows into a slice of Records.
func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var records []domain.Record
	for rows.Next() {
		r, err := scanRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func formatOptional(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseOptional(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

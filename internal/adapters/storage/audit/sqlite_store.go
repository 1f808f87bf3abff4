package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fisiocore/internal/adapters/storage"
	domain "fisiocore/internal/domain/audit"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const entryColumns = `id, action, user_id, timestamp, severity, ip_address, user_agent, outcome`

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit trail store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save appends an audit entry.
// PRE: entry is valid
// POST: Entry is persisted
func (s *SQLiteStore) Save(ctx context.Context, entry domain.Entry) error {
	var outcomeJSON any
	if entry.Outcome != nil {
		b, err := json.Marshal(entry.Outcome)
		if err != nil {
			return fmt.Errorf("failed to encode audit outcome: %w", err)
		}
		outcomeJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entry (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Action), entry.UserID, entry.Timestamp.Format(dateLayout),
		string(entry.Severity), entry.IPAddress, entry.UserAgent, outcomeJSON)
	return err
}

// List returns audit entries with optional filtering.
// PRE: limit > 0
// POST: Returns entries ordered by timestamp desc
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_entry WHERE 1=1`
	args := []any{}

	if filter.Action != nil {
		query += " AND action = ?"
		args = append(args, string(*filter.Action))
	}
	if filter.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, *filter.UserID)
	}
	if filter.Severity != nil {
		query += " AND severity = ?"
		args = append(args, string(*filter.Severity))
	}
	if filter.FromDate != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.FromDate)
	}
	if filter.ToDate != nil {
		query += " AND timestamp <= ?"
		args = append(args, *filter.ToDate)
	}

	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByID retrieves a specific audit entry.
// PRE: id is non-empty
// POST: Returns the entry or error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entry WHERE id = ?`, id)
	return scanEntry(row)
}

// LatestByUserAction returns the most recent entry for a user and action.
// PRE: userID is non-empty
// POST: Returns the entry or an error if none exists
func (s *SQLiteStore) LatestByUserAction(ctx context.Context, userID string, action domain.Action) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entry
		 WHERE user_id = ? AND action = ? ORDER BY timestamp DESC LIMIT 1`,
		userID, string(action))
	return scanEntry(row)
}

// scanEntry scans a single row into an Entry.
func scanEntry(row *sql.Row) (domain.Entry, error) {
	var e domain.Entry
	var timestamp string
	var outcome sql.NullString
	err := row.Scan(&e.ID, &e.Action, &e.UserID, &timestamp, &e.Severity, &e.IPAddress, &e.UserAgent, &outcome)
	if err != nil {
		return domain.Entry{}, err
	}
	e.Timestamp, _ = time.Parse(dateLayout, timestamp)
	if err := decodeOutcome(outcome, &e); err != nil {
		return domain.Entry{}, err
	}
	return e, nil
}

// scanEntryFromRows scans a single row from Rows into an Entry.
func scanEntryFromRows(rows *sql.Rows) (domain.Entry, error) {
	var e domain.Entry
	var timestamp string
	var outcome sql.NullString
	err := rows.Scan(&e.ID, &e.Action, &e.UserID, &timestamp, &e.Severity, &e.IPAddress, &e.UserAgent, &outcome)
	if err != nil {
		return domain.Entry{}, err
	}
	e.Timestamp, _ = time.Parse(dateLayout, timestamp)
	if err := decodeOutcome(outcome, &e); err != nil {
		return domain.Entry{}, err
	}
	return e, nil
}

// scanEntries scans multiple rows into a slice of Entries.
func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntryFromRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func decodeOutcome(raw sql.NullString, e *domain.Entry) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var o domain.Outcome
	if err := json.Unmarshal([]byte(raw.String), &o); err != nil {
		return fmt.Errorf("failed to decode audit outcome: %w", err)
	}
	e.Outcome = &o
	return nil
}

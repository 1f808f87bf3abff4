package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deletion_request (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		ip_address TEXT,
		user_agent TEXT,
		claimed_at TEXT,
		cancelled_at TEXT,
		completed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_deletion_request_user_status
		ON deletion_request(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_deletion_request_status_scheduled
		ON deletion_request(status, scheduled_date);

	CREATE TABLE IF NOT EXISTS audit_entry (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		user_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		severity TEXT NOT NULL,
		ip_address TEXT,
		user_agent TEXT,
		outcome TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_entry_user ON audit_entry(user_id, timestamp);

	CREATE TABLE IF NOT EXISTS clinical_record (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		user_id TEXT NOT NULL,
		fields TEXT NOT NULL DEFAULT '{}',
		anonymized_at TEXT,
		marked_for_deletion TEXT,
		subject_deleted INTEGER NOT NULL DEFAULT 0,
		subject_deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_clinical_record_owner
		ON clinical_record(collection, user_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

package account

import (
	"context"
	"database/sql"
	"time"

	"fisiocore/internal/adapters/storage"
	domain "fisiocore/internal/domain/account"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements the account Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByEmail retrieves an account by email.
// PRE: email is non-empty
// POST: Returns the account or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM account WHERE email = ?`, email)
	return scanAccount(row)
}

// GetByID retrieves an account by ID.
// PRE: id is non-empty
// POST: Returns the account or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM account WHERE id = ?`, id)
	return scanAccount(row)
}

// Save persists an account (insert or update).
// PRE: account has been validated
// POST: Account is persisted
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (id, email, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email,
		   password_hash=excluded.password_hash,
		   role=excluded.role`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.CreatedAt.Format(dateLayout))
	return err
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account`).Scan(&count)
	return count, err
}

// DeleteByID removes an account. A missing account is not an error: the
// identity provider may already be in the desired end state.
// PRE: id is non-empty
// POST: No account with the given id exists
func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM account WHERE id = ?`, id)
	return err
}

// scanAccount scans a single row into an Account.
func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	var createdAt string
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &createdAt)
	if err != nil {
		return domain.Account{}, err
	}
	a.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	return a, nil
}

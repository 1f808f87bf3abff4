package account

import (
	"context"

	domain "fisiocore/internal/domain/account"
)

// Store defines the interface for account persistence. It doubles as the
// engine's identity-provider adapter: DeleteByID is idempotent because the
// provider may already be in the desired end state when a retry runs.
type Store interface {
	// GetByEmail retrieves an account by email.
	// PRE: email is non-empty
	// POST: Returns the account or an error if not found
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetByID retrieves an account by ID.
	// PRE: id is non-empty
	// POST: Returns the account or an error if not found
	GetByID(ctx context.Context, id string) (domain.Account, error)

	// Save persists an account (insert or update).
	// PRE: account has been validated
	// POST: Account is persisted
	Save(ctx context.Context, a domain.Account) error

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int, error)

	// DeleteByID removes an account. A missing account is not an error.
	// PRE: id is non-empty
	// POST: No account with the given id exists
	DeleteByID(ctx context.Context, id string) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

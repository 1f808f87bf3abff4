package audit

import (
	"context"

	domain "fisiocore/internal/domain/audit"
)

// Store defines the interface for audit trail persistence. The trail is
// append-only: this engine never updates or deletes entries.
type Store interface {
	// Save appends an audit entry.
	// PRE: entry is valid
	// POST: Entry is persisted
	Save(ctx context.Context, entry domain.Entry) error

	// List returns audit entries with optional filtering.
	// PRE: limit > 0
	// POST: Returns entries ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Entry, error)

	// GetByID retrieves a specific audit entry.
	// PRE: id is non-empty
	// POST: Returns the entry or error if not found
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// LatestByUserAction returns the most recent entry for a user and
	// action. Used to replay the recorded outcome when execution is
	// re-invoked for an already-completed request.
	// PRE: userID is non-empty
	// POST: Returns the entry or sql.ErrNoRows-wrapped error if none
	LatestByUserAction(ctx context.Context, userID string, action domain.Action) (domain.Entry, error)
}

// Filter defines query parameters for listing audit entries.
type Filter struct {
	Action   *domain.Action
	UserID   *string
	Severity *domain.Severity
	FromDate *string
	ToDate   *string
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

package deletion

import (
	"context"
	"time"

	domain "fisiocore/internal/domain/deletion"
)

// Store defines the interface for deletion request persistence. The store
// exclusively owns request records; the execution engine reads them to decide
// eligibility and writes the terminal status through Save.
type Store interface {
	// GetByID retrieves a deletion request by its ID.
	// PRE: id is non-empty
	// POST: Returns the request or an error if not found
	GetByID(ctx context.Context, id string) (domain.Request, error)

	// FindPendingByUser returns all pending requests for a user. The
	// lifecycle invariant allows at most one, but callers must tolerate
	// more defensively.
	// PRE: userID is non-empty
	// POST: Returns pending requests ordered by requested_at
	FindPendingByUser(ctx context.Context, userID string) ([]domain.Request, error)

	// Save persists a deletion request to the database.
	// PRE: entity has been validated
	// POST: Entity is persisted (insert or update)
	Save(ctx context.Context, r domain.Request) error

	// ListOverdue returns executable requests whose scheduled date has
	// passed: pending ones, plus processing ones with an expired claim
	// lease. Eligibility is determined by status, never by date alone:
	// cancelled requests are never returned even when their date has
	// passed.
	// PRE: now is the caller's notion of current time
	// POST: Returns matching requests ordered by scheduled_date
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Request, error)

	// Claim atomically transitions a request to processing, stamping the
	// claim time. It succeeds for pending requests and for processing
	// requests whose lease has expired. Returns domain.ErrAlreadyClaimed
	// when another invocation holds a live claim, so two concurrent
	// executions cannot double-process the same user.
	// PRE: id is non-empty
	// POST: Request is processing with claimed_at = now, or an error
	Claim(ctx context.Context, id string, now time.Time) error

	// Release returns a processing request to pending after a fatal
	// execution failure so a later invocation can retry.
	// PRE: request is in processing
	// POST: Request is pending with claimed_at cleared
	Release(ctx context.Context, id string) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

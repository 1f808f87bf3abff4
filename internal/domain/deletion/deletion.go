package deletion

import (
	"errors"
	"time"
)

// Status constants for the deletion request lifecycle.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCancelled  = "cancelled"
	StatusCompleted  = "completed"
)

// GracePeriod is the mandatory waiting interval between a deletion request and
// its execution, during which the user may withdraw the request.
const GracePeriod = 30 * 24 * time.Hour

// ClaimLease is how long an execution invocation may hold a request in
// processing before another invocation may reclaim it.
const ClaimLease = 15 * time.Minute

// Domain errors.
var (
	ErrEmptyRequestID   = errors.New("request_id is required")
	ErrEmptyUserID      = errors.New("user_id is required")
	ErrInvalidStatus    = errors.New("invalid status transition")
	ErrNoPendingRequest = errors.New("no pending deletion request found")
	ErrAlreadyClaimed   = errors.New("deletion request is already being processed")
)

// Request represents a user's account deletion request (right to be forgotten).
// The request record itself is never deleted: it is evidence of lawful
// processing and outlives the data it concerns.
type Request struct {
	ID            string
	UserID        string
	Status        string
	RequestedAt   time.Time
	ScheduledDate time.Time  // RequestedAt + 30 days, immutable once set
	IPAddress     string     // Provenance, write-once
	UserAgent     string     // Provenance, write-once
	ClaimedAt     *time.Time // Set while an execution invocation holds the claim
	CancelledAt   *time.Time
	CompletedAt   *time.Time
}

// NewRequest creates a pending deletion request scheduled 30 days out.
// PRE: id and userID are non-empty
// POST: Request is pending with ScheduledDate = now + GracePeriod
func NewRequest(id, userID, ipAddress, userAgent string, now time.Time) Request {
	return Request{
		ID:            id,
		UserID:        userID,
		Status:        StatusPending,
		RequestedAt:   now,
		ScheduledDate: now.Add(GracePeriod),
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
	}
}

// Validate checks that the Request has valid data.
// PRE: Request fields may be empty
// POST: Returns nil if valid, error otherwise
// INVARIANT: ID, UserID, RequestedAt, ScheduledDate must be set
func (r *Request) Validate() error {
	if r.ID == "" {
		return ErrEmptyRequestID
	}
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if r.RequestedAt.IsZero() {
		return errors.New("requested_at must be set")
	}
	if r.ScheduledDate.IsZero() {
		return errors.New("scheduled_date must be set")
	}
	return nil
}

// DaysRemaining returns the whole days until the scheduled execution date,
// rounded up. A request due now or overdue returns zero.
func (r *Request) DaysRemaining(now time.Time) int {
	remaining := r.ScheduledDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	days := int(remaining / day)
	if remaining%day != 0 {
		days++
	}
	return days
}

// IsDue reports whether the grace period has elapsed.
// INVARIANT: eligibility for execution is Status AND date, never date alone
func (r *Request) IsDue(now time.Time) bool {
	return r.Status == StatusPending && !r.ScheduledDate.After(now)
}

// IsTerminal reports whether the request reached a final state.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusCompleted
}

// CanCancel reports whether the user may still withdraw the request.
// Once execution has claimed the request, cancellation is rejected because
// record mutation may already be underway.
func (r *Request) CanCancel() bool {
	return r.Status == StatusPending
}

// MarkCancelled transitions pending → cancelled.
// PRE: CanCancel returns true
// POST: Status is cancelled (terminal), CancelledAt stamped
func (r *Request) MarkCancelled(now time.Time) error {
	if !r.CanCancel() {
		if r.Status == StatusProcessing {
			return ErrAlreadyClaimed
		}
		return ErrInvalidStatus
	}
	r.Status = StatusCancelled
	r.CancelledAt = &now
	return nil
}

// MarkProcessing transitions pending → processing, recording the claim time.
// An expired processing claim (older than ClaimLease) may be re-claimed, so a
// crashed invocation does not strand the request.
// PRE: Status is pending, or processing with an expired lease
// POST: Status is processing, ClaimedAt stamped
func (r *Request) MarkProcessing(now time.Time) error {
	switch r.Status {
	case StatusPending:
	case StatusProcessing:
		if r.ClaimedAt != nil && now.Sub(*r.ClaimedAt) < ClaimLease {
			return ErrAlreadyClaimed
		}
	default:
		return ErrInvalidStatus
	}
	r.Status = StatusProcessing
	r.ClaimedAt = &now
	return nil
}

// ReleaseClaim transitions processing → pending after a fatal execution
// failure, so a later invocation can retry.
// PRE: Status is processing
// POST: Status is pending, ClaimedAt cleared
func (r *Request) ReleaseClaim() error {
	if r.Status != StatusProcessing {
		return ErrInvalidStatus
	}
	r.Status = StatusPending
	r.ClaimedAt = nil
	return nil
}

// MarkCompleted transitions processing → completed.
// PRE: Status is processing
// POST: Status is completed (terminal), CompletedAt stamped
func (r *Request) MarkCompleted(now time.Time) error {
	if r.Status != StatusProcessing {
		return ErrInvalidStatus
	}
	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.ClaimedAt = nil
	return nil
}

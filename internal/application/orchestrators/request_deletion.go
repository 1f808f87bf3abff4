package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"fisiocore/internal/domain/audit"
	"fisiocore/internal/domain/deletion"
)

// Schedule status values returned by RequestDeletion.
const (
	ScheduleStatusScheduled        = "scheduled"
	ScheduleStatusAlreadyScheduled = "already_scheduled"
)

// DeletionStoreForRequest defines the store interface needed by RequestDeletion.
type DeletionStoreForRequest interface {
	FindPendingByUser(ctx context.Context, userID string) ([]deletion.Request, error)
	Save(ctx context.Context, r deletion.Request) error
}

// AuditStoreForWrite defines the audit interface shared by the lifecycle
// orchestrators that only append entries.
type AuditStoreForWrite interface {
	Save(ctx context.Context, entry audit.Entry) error
}

// RequestDeletionInput carries input for the request orchestrator.
type RequestDeletionInput struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// RequestDeletionDeps holds dependencies for RequestDeletion.
type RequestDeletionDeps struct {
	DeletionStore DeletionStoreForRequest
	AuditStore    AuditStoreForWrite
	GenerateID    func() string
	Now           func() time.Time
}

// RequestDeletionResult reports the scheduled execution back to the caller.
type RequestDeletionResult struct {
	Status        string
	RequestID     string
	ScheduledDate time.Time
	DaysRemaining int
}

// ExecuteRequestDeletion opens the grace period for a user's account deletion.
// Re-requesting while a request is already pending is not an error: the
// existing schedule is returned unchanged, so the grace period can never be
// shortened or restarted by repeat calls.
// PRE: UserID is non-empty
// POST: Exactly one pending request exists for the user, scheduled 30 days
// from its original request time; a deletion_requested audit entry is appended
// on first request only
func ExecuteRequestDeletion(ctx context.Context, input RequestDeletionInput, deps RequestDeletionDeps) (RequestDeletionResult, error) {
	if input.UserID == "" {
		return RequestDeletionResult{}, deletion.ErrEmptyUserID
	}

	now := deps.Now()

	pending, err := deps.DeletionStore.FindPendingByUser(ctx, input.UserID)
	if err != nil {
		return RequestDeletionResult{}, err
	}
	if len(pending) > 0 {
		existing := pending[0]
		slog.Info("privacy_event", "event", "deletion_already_scheduled",
			"user_id", input.UserID, "request_id", existing.ID,
			"scheduled_date", existing.ScheduledDate)
		return RequestDeletionResult{
			Status:        ScheduleStatusAlreadyScheduled,
			RequestID:     existing.ID,
			ScheduledDate: existing.ScheduledDate,
			DaysRemaining: existing.DaysRemaining(now),
		}, nil
	}

	req := deletion.NewRequest(deps.GenerateID(), input.UserID, input.IPAddress, input.UserAgent, now)
	if err := req.Validate(); err != nil {
		return RequestDeletionResult{}, err
	}
	if err := deps.DeletionStore.Save(ctx, req); err != nil {
		return RequestDeletionResult{}, err
	}

	entry := audit.NewEntry(deps.GenerateID(), input.UserID, audit.ActionDeletionRequested, now).
		WithProvenance(input.IPAddress, input.UserAgent)
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		return RequestDeletionResult{}, err
	}

	slog.Info("privacy_event", "event", "deletion_requested",
		"user_id", input.UserID, "request_id", req.ID,
		"scheduled_date", req.ScheduledDate)

	return RequestDeletionResult{
		Status:        ScheduleStatusScheduled,
		RequestID:     req.ID,
		ScheduledDate: req.ScheduledDate,
		DaysRemaining: req.DaysRemaining(now),
	}, nil
}

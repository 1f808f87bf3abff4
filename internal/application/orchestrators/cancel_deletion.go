package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"fisiocore/internal/domain/audit"
	"fisiocore/internal/domain/deletion"
)

// DeletionStoreForCancel defines the store interface needed by CancelDeletion.
type DeletionStoreForCancel interface {
	FindPendingByUser(ctx context.Context, userID string) ([]deletion.Request, error)
	Save(ctx context.Context, r deletion.Request) error
}

// CancelDeletionInput carries input for the cancel orchestrator.
type CancelDeletionInput struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// CancelDeletionDeps holds dependencies for CancelDeletion.
type CancelDeletionDeps struct {
	DeletionStore DeletionStoreForCancel
	AuditStore    AuditStoreForWrite
	GenerateID    func() string
	Now           func() time.Time
}

// CancelDeletionResult reports how many requests were withdrawn.
type CancelDeletionResult struct {
	CancelledCount int
}

// ExecuteCancelDeletion withdraws the user's pending deletion requests.
// At most one pending request exists per user, but every pending request
// found is cancelled so a duplicate from a past race cannot linger and fire
// later. A request already claimed by execution cannot be cancelled.
// PRE: UserID is non-empty
// POST: No pending request remains for the user; one deletion_cancelled
// audit entry is appended per cancelled request
func ExecuteCancelDeletion(ctx context.Context, input CancelDeletionInput, deps CancelDeletionDeps) (CancelDeletionResult, error) {
	if input.UserID == "" {
		return CancelDeletionResult{}, deletion.ErrEmptyUserID
	}

	now := deps.Now()

	pending, err := deps.DeletionStore.FindPendingByUser(ctx, input.UserID)
	if err != nil {
		return CancelDeletionResult{}, err
	}
	if len(pending) == 0 {
		return CancelDeletionResult{}, deletion.ErrNoPendingRequest
	}

	cancelled := 0
	for _, req := range pending {
		if err := req.MarkCancelled(now); err != nil {
			return CancelDeletionResult{CancelledCount: cancelled}, err
		}
		if err := deps.DeletionStore.Save(ctx, req); err != nil {
			return CancelDeletionResult{CancelledCount: cancelled}, err
		}

		entry := audit.NewEntry(deps.GenerateID(), input.UserID, audit.ActionDeletionCancelled, now).
			WithProvenance(input.IPAddress, input.UserAgent)
		if err := deps.AuditStore.Save(ctx, entry); err != nil {
			return CancelDeletionResult{CancelledCount: cancelled}, err
		}
		cancelled++

		slog.Info("privacy_event", "event", "deletion_cancelled",
			"user_id", input.UserID, "request_id", req.ID)
	}

	return CancelDeletionResult{CancelledCount: cancelled}, nil
}

package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fisiocore/internal/adapters/objectstore"
	"fisiocore/internal/domain/audit"
	"fisiocore/internal/domain/deletion"
	"fisiocore/internal/domain/record"
	"fisiocore/internal/domain/retention"
)

// ErrNoExecutionTarget is returned when neither a user nor the force flag
// names what to execute.
var ErrNoExecutionTarget = errors.New("user id or force flag is required")

// DeletionStoreForExecute defines the store interface needed by the engine.
type DeletionStoreForExecute interface {
	FindPendingByUser(ctx context.Context, userID string) ([]deletion.Request, error)
	ListOverdue(ctx context.Context, now time.Time) ([]deletion.Request, error)
	Claim(ctx context.Context, id string, now time.Time) error
	Release(ctx context.Context, id string) error
	Save(ctx context.Context, r deletion.Request) error
}

// RecordStoreForExecute defines the governed-record interface needed by the
// engine. CommitBatch must be atomic: partial application would leave a user
// half-erased with no record of which half.
type RecordStoreForExecute interface {
	ListByUser(ctx context.Context, collection, userID string) ([]record.Record, error)
	CommitBatch(ctx context.Context, mutations []record.Mutation) error
}

// AuditStoreForExecute defines the audit interface needed by the engine.
type AuditStoreForExecute interface {
	Save(ctx context.Context, entry audit.Entry) error
	LatestByUserAction(ctx context.Context, userID string, action audit.Action) (audit.Entry, error)
}

// IdentityStoreForExecute is the identity-provider adapter. Deleting an
// already-absent identity must not be an error.
type IdentityStoreForExecute interface {
	DeleteByID(ctx context.Context, id string) error
}

// ExecuteDeletionInput carries input for the execution engine.
// With UserID set, that user's pending request is executed regardless of its
// scheduled date (the manual/admin path). With Force set and no UserID, every
// request whose grace period has elapsed is swept.
type ExecuteDeletionInput struct {
	UserID string
	Force  bool
}

// ExecuteDeletionDeps holds dependencies for the execution engine.
type ExecuteDeletionDeps struct {
	DeletionStore DeletionStoreForExecute
	RecordStore   RecordStoreForExecute
	AuditStore    AuditStoreForExecute
	ObjectStore   objectstore.Store
	IdentityStore IdentityStoreForExecute
	Policies      retention.Table
	GenerateID    func() string
	Now           func() time.Time
}

// UserOutcome is the per-user result of a successful (or replayed) execution.
type UserOutcome struct {
	UserID    string
	RequestID string
	Outcome   audit.Outcome
	Replayed  bool // true when served from the audit trail of a prior run
}

// UserFailure is the per-user result of a fatal execution error. One user's
// failure never aborts the rest of a sweep.
type UserFailure struct {
	UserID    string
	RequestID string
	Err       error
}

// ExecuteDeletionResult aggregates per-user outcomes across the invocation.
type ExecuteDeletionResult struct {
	Outcomes []UserOutcome
	Failures []UserFailure
}

// ExecuteAccountDeletion runs the retention engine for one user or sweeps all
// overdue requests. For each target it claims the request, stages record
// mutations according to the retention policy table, commits them as one
// atomic batch, then best-effort purges object storage and the identity
// provider, and finally appends a deletion_completed audit entry carrying the
// outcome. Re-invoking for an already-completed user replays the recorded
// outcome without touching any data.
// PRE: either UserID is set or Force is true; Policies validates
// POST: Each processed request is completed with exactly one completed audit
// entry, or released back to pending on fatal failure
func ExecuteAccountDeletion(ctx context.Context, input ExecuteDeletionInput, deps ExecuteDeletionDeps) (ExecuteDeletionResult, error) {
	if input.UserID == "" && !input.Force {
		return ExecuteDeletionResult{}, ErrNoExecutionTarget
	}
	if err := deps.Policies.Validate(); err != nil {
		return ExecuteDeletionResult{}, err
	}

	now := deps.Now()
	var result ExecuteDeletionResult

	var targets []deletion.Request
	if input.UserID != "" {
		pending, err := deps.DeletionStore.FindPendingByUser(ctx, input.UserID)
		if err != nil {
			return ExecuteDeletionResult{}, err
		}
		if len(pending) == 0 {
			// A completed request replays its recorded outcome so
			// retries after success are indistinguishable from the
			// original run.
			prior, err := deps.AuditStore.LatestByUserAction(ctx, input.UserID, audit.ActionDeletionCompleted)
			if err != nil {
				return ExecuteDeletionResult{}, deletion.ErrNoPendingRequest
			}
			outcome := audit.Outcome{}
			if prior.Outcome != nil {
				outcome = *prior.Outcome
			}
			slog.Info("privacy_event", "event", "deletion_replayed", "user_id", input.UserID)
			result.Outcomes = append(result.Outcomes, UserOutcome{
				UserID:   input.UserID,
				Outcome:  outcome,
				Replayed: true,
			})
			return result, nil
		}
		targets = pending[:1]
	} else {
		overdue, err := deps.DeletionStore.ListOverdue(ctx, now)
		if err != nil {
			return ExecuteDeletionResult{}, err
		}
		targets = overdue
	}

	for _, req := range targets {
		if err := deps.DeletionStore.Claim(ctx, req.ID, now); err != nil {
			result.Failures = append(result.Failures, UserFailure{
				UserID: req.UserID, RequestID: req.ID, Err: err,
			})
			continue
		}
		// Mirror the claim on the local copy so its later transitions line
		// up with the stored row.
		if err := req.MarkProcessing(now); err != nil {
			if relErr := deps.DeletionStore.Release(ctx, req.ID); relErr != nil {
				slog.Error("privacy_event", "event", "claim_release_failed",
					"request_id", req.ID, "error", relErr.Error())
			}
			result.Failures = append(result.Failures, UserFailure{
				UserID: req.UserID, RequestID: req.ID, Err: err,
			})
			continue
		}

		outcome, err := deleteUserData(ctx, req, deps, now)
		if err != nil {
			if relErr := deps.DeletionStore.Release(ctx, req.ID); relErr != nil {
				slog.Error("privacy_event", "event", "claim_release_failed",
					"request_id", req.ID, "error", relErr.Error())
			}
			result.Failures = append(result.Failures, UserFailure{
				UserID: req.UserID, RequestID: req.ID, Err: err,
			})
			slog.Error("privacy_event", "event", "deletion_failed",
				"user_id", req.UserID, "request_id", req.ID, "error", err.Error())
			continue
		}

		result.Outcomes = append(result.Outcomes, UserOutcome{
			UserID: req.UserID, RequestID: req.ID, Outcome: outcome,
		})
	}

	return result, nil
}

// deleteUserData performs the destructive phase for one claimed request.
// Ordering is deliberate: the atomic record batch commits before the
// non-transactional purges, so a purge failure can never leave committed
// evidence pointing at uncommitted mutations. The purge and identity steps
// are idempotent and downgraded to warnings on failure.
func deleteUserData(ctx context.Context, req deletion.Request, deps ExecuteDeletionDeps, now time.Time) (audit.Outcome, error) {
	var outcome audit.Outcome
	var mutations []record.Mutation

	for _, policy := range deps.Policies {
		records, err := deps.RecordStore.ListByUser(ctx, policy.Collection, req.UserID)
		if err != nil {
			return audit.Outcome{}, fmt.Errorf("list %s: %w", policy.Collection, err)
		}
		if len(records) == 0 {
			continue
		}

		strategy, err := policy.Classification.Strategy()
		if err != nil {
			return audit.Outcome{}, fmt.Errorf("collection %s: %w", policy.Collection, err)
		}

		switch strategy {
		case retention.StrategyHardDelete:
			for i := range records {
				mutations = append(mutations, record.DeleteMutation(records[i]))
			}
			outcome.Deleted = append(outcome.Deleted, policy.Collection)

		case retention.StrategyAnonymize:
			for i := range records {
				placeholder := retention.Placeholder(records[i].ID)
				if records[i].Anonymize(policy.IdentifyingFields, placeholder, now) {
					mutations = append(mutations, record.UpdateMutation(records[i]))
				}
			}
			outcome.Anonymized = append(outcome.Anonymized, policy.Collection)

		case retention.StrategyAnonymizeFutureDelete:
			for i := range records {
				wasMarked := records[i].MarkedForDeletion != nil
				placeholder := retention.Placeholder(records[i].ID)
				changed := records[i].Anonymize(policy.IdentifyingFields, placeholder, now)
				records[i].MarkForFutureDeletion(now)
				if changed || !wasMarked {
					mutations = append(mutations, record.UpdateMutation(records[i]))
				}
			}
			outcome.Anonymized = append(outcome.Anonymized, policy.Collection)

		case retention.StrategyFlagOnly:
			for i := range records {
				if records[i].FlagSubjectDeleted(now) {
					mutations = append(mutations, record.UpdateMutation(records[i]))
				}
			}
			outcome.Retained = append(outcome.Retained, policy.Collection)

		default:
			return audit.Outcome{}, fmt.Errorf("collection %s: unknown strategy %q", policy.Collection, strategy)
		}
	}

	if err := deps.RecordStore.CommitBatch(ctx, mutations); err != nil {
		return audit.Outcome{}, fmt.Errorf("commit batch: %w", err)
	}

	// From here on nothing is fatal: the batch is committed and every
	// remaining step can be retried or survives as a warning.
	prefix := objectstore.UserPrefix(req.UserID)
	names, err := deps.ObjectStore.List(ctx, prefix)
	if err != nil {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("storage list failed for %s: %v", prefix, err))
	}
	for _, name := range names {
		if err := deps.ObjectStore.Delete(ctx, name); err != nil {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("storage delete failed for %s: %v", name, err))
		}
	}

	if err := deps.IdentityStore.DeleteByID(ctx, req.UserID); err != nil {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("identity delete failed: %v", err))
	}

	if err := req.MarkCompleted(now); err != nil {
		return audit.Outcome{}, err
	}
	if err := deps.DeletionStore.Save(ctx, req); err != nil {
		// The batch is already committed; a retry re-runs idempotently.
		return audit.Outcome{}, fmt.Errorf("mark completed: %w", err)
	}

	entry := audit.NewEntry(deps.GenerateID(), req.UserID, audit.ActionDeletionCompleted, now).
		WithOutcome(outcome)
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("privacy_event", "event", "audit_write_failed",
			"user_id", req.UserID, "request_id", req.ID, "error", err.Error())
	}

	slog.Info("privacy_event", "event", "deletion_completed",
		"user_id", req.UserID, "request_id", req.ID,
		"deleted", len(outcome.Deleted), "anonymized", len(outcome.Anonymized),
		"retained", len(outcome.Retained), "warnings", len(outcome.Warnings))

	return outcome, nil
}

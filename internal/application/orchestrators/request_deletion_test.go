package orchestrators

import (
	"context"
	"testing"
	"time"

	"fisiocore/internal/domain/audit"
	"fisiocore/internal/domain/deletion"
)

// TestExecuteRequestDeletion_SchedulesThirtyDaysOut tests the first request.
func TestExecuteRequestDeletion_SchedulesThirtyDaysOut(t *testing.T) {
	deletions := newMockDeletionStore()
	audits := newMockAuditStore()

	result, err := ExecuteRequestDeletion(context.Background(), RequestDeletionInput{
		UserID:    "user-001",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	}, RequestDeletionDeps{
		DeletionStore: deletions,
		AuditStore:    audits,
		GenerateID:    seqID(),
		Now:           fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != ScheduleStatusScheduled {
		t.Errorf("expected status scheduled, got %s", result.Status)
	}
	want := fixedTime.Add(30 * 24 * time.Hour)
	if !result.ScheduledDate.Equal(want) {
		t.Errorf("expected ScheduledDate=%v, got %v", want, result.ScheduledDate)
	}
	if result.DaysRemaining != 30 {
		t.Errorf("expected 30 days remaining, got %d", result.DaysRemaining)
	}

	saved, ok := deletions.requests[result.RequestID]
	if !ok {
		t.Fatal("expected request to be persisted")
	}
	if saved.Status != deletion.StatusPending {
		t.Errorf("expected pending, got %s", saved.Status)
	}
	if saved.IPAddress != "203.0.113.7" || saved.UserAgent != "test-agent" {
		t.Error("expected provenance recorded on the request")
	}

	requested := audits.byAction(audit.ActionDeletionRequested)
	if len(requested) != 1 {
		t.Fatalf("expected 1 requested audit entry, got %d", len(requested))
	}
	if requested[0].UserID != "user-001" || requested[0].IPAddress != "203.0.113.7" {
		t.Errorf("unexpected audit entry: %+v", requested[0])
	}
}

// TestExecuteRequestDeletion_Idempotent tests that re-requesting keeps the
// original schedule and writes no second audit entry.
func TestExecuteRequestDeletion_Idempotent(t *testing.T) {
	deletions := newMockDeletionStore()
	audits := newMockAuditStore()
	ids := seqID()

	first, err := ExecuteRequestDeletion(context.Background(), RequestDeletionInput{
		UserID: "user-001",
	}, RequestDeletionDeps{
		DeletionStore: deletions,
		AuditStore:    audits,
		GenerateID:    ids,
		Now:           fixedNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ten days later the user clicks the button again.
	second, err := ExecuteRequestDeletion(context.Background(), RequestDeletionInput{
		UserID: "user-001",
	}, RequestDeletionDeps{
		DeletionStore: deletions,
		AuditStore:    audits,
		GenerateID:    ids,
		Now:           nowAt(10 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Status != ScheduleStatusAlreadyScheduled {
		t.Errorf("expected already_scheduled, got %s", second.Status)
	}
	if second.RequestID != first.RequestID {
		t.Error("expected the existing request to be returned")
	}
	if !second.ScheduledDate.Equal(first.ScheduledDate) {
		t.Error("the grace period must never be restarted by a repeat request")
	}
	if second.DaysRemaining != 20 {
		t.Errorf("expected 20 days remaining on day 10, got %d", second.DaysRemaining)
	}
	if len(deletions.requests) != 1 {
		t.Errorf("expected a single request, got %d", len(deletions.requests))
	}
	if len(audits.entries) != 1 {
		t.Errorf("expected a single audit entry, got %d", len(audits.entries))
	}
}

// TestExecuteRequestDeletion_EmptyUser tests input validation.
func TestExecuteRequestDeletion_EmptyUser(t *testing.T) {
	_, err := ExecuteRequestDeletion(context.Background(), RequestDeletionInput{}, RequestDeletionDeps{
		DeletionStore: newMockDeletionStore(),
		AuditStore:    newMockAuditStore(),
		GenerateID:    seqID(),
		Now:           fixedNow,
	})
	if err != deletion.ErrEmptyUserID {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

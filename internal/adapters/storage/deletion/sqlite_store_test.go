package deletion

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"fisiocore/internal/adapters/storage"
	domain "fisiocore/internal/domain/deletion"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// newTestStore creates a store backed by an in-memory SQLite database.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return NewSQLiteStore(db)
}

func saveRequest(t *testing.T, store *SQLiteStore, r domain.Request) {
	t.Helper()
	if err := store.Save(context.Background(), r); err != nil {
		t.Fatalf("failed to save request: %v", err)
	}
}

// TestSaveAndGetByID tests the round trip of a request.
func TestSaveAndGetByID(t *testing.T) {
	store := newTestStore(t)
	req := domain.NewRequest("req-001", "user-001", "203.0.113.7", "test-agent", testNow)
	saveRequest(t, store, req)

	got, err := store.GetByID(context.Background(), "req-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "user-001" || got.Status != domain.StatusPending {
		t.Errorf("unexpected request: %+v", got)
	}
	if !got.ScheduledDate.Equal(req.ScheduledDate) {
		t.Errorf("expected ScheduledDate=%v, got %v", req.ScheduledDate, got.ScheduledDate)
	}
	if got.IPAddress != "203.0.113.7" || got.UserAgent != "test-agent" {
		t.Error("expected provenance fields to round-trip")
	}
}

// TestFindPendingByUser tests that only pending requests for the user come back.
func TestFindPendingByUser(t *testing.T) {
	store := newTestStore(t)
	saveRequest(t, store, domain.NewRequest("req-001", "user-001", "", "", testNow))

	cancelled := domain.NewRequest("req-002", "user-001", "", "", testNow.Add(time.Hour))
	if err := cancelled.MarkCancelled(testNow.Add(2 * time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saveRequest(t, store, cancelled)
	saveRequest(t, store, domain.NewRequest("req-003", "user-002", "", "", testNow))

	pending, err := store.FindPendingByUser(context.Background(), "user-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "req-001" {
		t.Errorf("expected only req-001, got %+v", pending)
	}
}

// TestListOverdue tests status-and-date eligibility.
func TestListOverdue(t *testing.T) {
	store := newTestStore(t)

	due := domain.NewRequest("req-due", "user-001", "", "", testNow)
	saveRequest(t, store, due)

	notYet := domain.NewRequest("req-early", "user-002", "", "", testNow.Add(10*24*time.Hour))
	saveRequest(t, store, notYet)

	cancelled := domain.NewRequest("req-cancelled", "user-003", "", "", testNow)
	if err := cancelled.MarkCancelled(testNow.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saveRequest(t, store, cancelled)

	sweepTime := testNow.Add(31 * 24 * time.Hour)
	overdue, err := store.ListOverdue(context.Background(), sweepTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "req-due" {
		t.Errorf("expected only req-due, got %+v", overdue)
	}

	// Before any request is due, the sweep finds nothing.
	overdue, err = store.ListOverdue(context.Background(), testNow.Add(10*24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("expected no overdue requests, got %+v", overdue)
	}
}

// TestListOverdue_ExpiredLease tests that a stale processing claim is swept again.
func TestListOverdue_ExpiredLease(t *testing.T) {
	store := newTestStore(t)
	req := domain.NewRequest("req-001", "user-001", "", "", testNow)
	saveRequest(t, store, req)

	due := testNow.Add(31 * 24 * time.Hour)
	if err := store.Claim(context.Background(), "req-001", due); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Within the lease the request is invisible to the sweep.
	overdue, err := store.ListOverdue(context.Background(), due.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("expected no overdue requests within lease, got %+v", overdue)
	}

	// After the lease expires the request surfaces again.
	overdue, err = store.ListOverdue(context.Background(), due.Add(domain.ClaimLease))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "req-001" {
		t.Errorf("expected req-001 after lease expiry, got %+v", overdue)
	}
}

// TestClaim_MutualExclusion tests that only one invocation wins the claim.
func TestClaim_MutualExclusion(t *testing.T) {
	store := newTestStore(t)
	saveRequest(t, store, domain.NewRequest("req-001", "user-001", "", "", testNow))

	if err := store.Claim(context.Background(), "req-001", testNow); err != nil {
		t.Fatalf("first claim should succeed: %v", err)
	}
	if err := store.Claim(context.Background(), "req-001", testNow.Add(time.Minute)); err != domain.ErrAlreadyClaimed {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}

	// A claim after lease expiry succeeds (crash recovery).
	if err := store.Claim(context.Background(), "req-001", testNow.Add(domain.ClaimLease)); err != nil {
		t.Errorf("expected re-claim after lease expiry, got %v", err)
	}
}

// TestClaim_TerminalStates tests that terminal requests cannot be claimed.
func TestClaim_TerminalStates(t *testing.T) {
	store := newTestStore(t)
	req := domain.NewRequest("req-001", "user-001", "", "", testNow)
	if err := req.MarkCancelled(testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saveRequest(t, store, req)

	if err := store.Claim(context.Background(), "req-001", testNow); err != domain.ErrAlreadyClaimed {
		t.Errorf("expected ErrAlreadyClaimed for cancelled request, got %v", err)
	}
}

// TestRelease tests returning a claimed request to pending.
func TestRelease(t *testing.T) {
	store := newTestStore(t)
	saveRequest(t, store, domain.NewRequest("req-001", "user-001", "", "", testNow))

	if err := store.Release(context.Background(), "req-001"); err != domain.ErrInvalidStatus {
		t.Errorf("expected ErrInvalidStatus releasing unclaimed request, got %v", err)
	}

	if err := store.Claim(context.Background(), "req-001", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Release(context.Background(), "req-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetByID(context.Background(), "req-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusPending || got.ClaimedAt != nil {
		t.Errorf("expected pending with cleared claim, got %+v", got)
	}
}

// TestSave_UpdatesStatus tests the upsert path used to complete a request.
func TestSave_UpdatesStatus(t *testing.T) {
	store := newTestStore(t)
	req := domain.NewRequest("req-001", "user-001", "", "", testNow)
	saveRequest(t, store, req)

	done := testNow.Add(31 * 24 * time.Hour)
	if err := store.Claim(context.Background(), "req-001", done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := store.GetByID(context.Background(), "req-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := req.MarkCompleted(done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saveRequest(t, store, req)

	got, err := store.GetByID(context.Background(), "req-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Error("expected CompletedAt to round-trip")
	}
}

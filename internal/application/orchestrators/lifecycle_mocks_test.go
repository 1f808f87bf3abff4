package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fisiocore/internal/domain/audit"
	"fisiocore/internal/domain/deletion"
	"fisiocore/internal/domain/record"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// nowAt returns a Now func pinned to an offset from fixedTime.
func nowAt(offset time.Duration) func() time.Time {
	return func() time.Time { return fixedTime.Add(offset) }
}

// seqID returns a generator producing id-001, id-002, ...
func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

// mockDeletionStore implements the deletion store interfaces for testing.
type mockDeletionStore struct {
	requests map[string]deletion.Request
}

func newMockDeletionStore() *mockDeletionStore {
	return &mockDeletionStore{requests: make(map[string]deletion.Request)}
}

func (m *mockDeletionStore) FindPendingByUser(_ context.Context, userID string) ([]deletion.Request, error) {
	var out []deletion.Request
	for _, r := range m.requests {
		if r.UserID == userID && r.Status == deletion.StatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (m *mockDeletionStore) ListOverdue(_ context.Context, now time.Time) ([]deletion.Request, error) {
	var out []deletion.Request
	for _, r := range m.requests {
		if r.ScheduledDate.After(now) {
			continue
		}
		stale := r.Status == deletion.StatusProcessing &&
			r.ClaimedAt != nil && !r.ClaimedAt.After(now.Add(-deletion.ClaimLease))
		if r.Status == deletion.StatusPending || stale {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (m *mockDeletionStore) Claim(_ context.Context, id string, now time.Time) error {
	r, ok := m.requests[id]
	if !ok {
		return deletion.ErrAlreadyClaimed
	}
	if err := r.MarkProcessing(now); err != nil {
		return deletion.ErrAlreadyClaimed
	}
	m.requests[id] = r
	return nil
}

func (m *mockDeletionStore) Release(_ context.Context, id string) error {
	r, ok := m.requests[id]
	if !ok {
		return deletion.ErrInvalidStatus
	}
	if err := r.ReleaseClaim(); err != nil {
		return err
	}
	m.requests[id] = r
	return nil
}

func (m *mockDeletionStore) Save(_ context.Context, r deletion.Request) error {
	m.requests[r.ID] = r
	return nil
}

// mockRecordStore implements RecordStoreForExecute for testing. Listed records
// are deep copies so staged-but-uncommitted mutations never leak into it.
type mockRecordStore struct {
	records     map[string]record.Record
	commitErr   error
	failForUser string // commit fails only for batches touching this user
	commits     int
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{records: make(map[string]record.Record)}
}

func copyRecord(r record.Record) record.Record {
	out := r
	out.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

func (m *mockRecordStore) put(r record.Record) {
	m.records[r.ID] = copyRecord(r)
}

func (m *mockRecordStore) ListByUser(_ context.Context, collection, userID string) ([]record.Record, error) {
	var out []record.Record
	for _, r := range m.records {
		if r.Collection == collection && r.UserID == userID {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRecordStore) CommitBatch(_ context.Context, mutations []record.Mutation) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	if m.failForUser != "" {
		for _, mut := range mutations {
			if stored, ok := m.records[mut.Record.ID]; ok && stored.UserID == m.failForUser {
				return errors.New("simulated batch failure")
			}
		}
	}
	for _, mut := range mutations {
		switch mut.Kind {
		case record.MutationDelete:
			delete(m.records, mut.Record.ID)
		case record.MutationUpdate:
			m.records[mut.Record.ID] = copyRecord(mut.Record)
		default:
			return errors.New("unknown mutation kind")
		}
	}
	m.commits++
	return nil
}

// byCollection returns the stored records of one collection, sorted by ID.
func (m *mockRecordStore) byCollection(collection string) []record.Record {
	var out []record.Record
	for _, r := range m.records {
		if r.Collection == collection {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mockAuditStore implements the audit store interfaces for testing.
type mockAuditStore struct {
	entries []audit.Entry
	saveErr error
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{}
}

func (m *mockAuditStore) Save(_ context.Context, e audit.Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditStore) LatestByUserAction(_ context.Context, userID string, action audit.Action) (audit.Entry, error) {
	var latest *audit.Entry
	for i := range m.entries {
		e := m.entries[i]
		if e.UserID != userID || e.Action != action {
			continue
		}
		if latest == nil || e.Timestamp.After(latest.Timestamp) {
			latest = &m.entries[i]
		}
	}
	if latest == nil {
		return audit.Entry{}, errors.New("no matching audit entry")
	}
	return *latest, nil
}

// byAction returns entries for one action in insertion order.
func (m *mockAuditStore) byAction(action audit.Action) []audit.Entry {
	var out []audit.Entry
	for _, e := range m.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// mockIdentityStore implements IdentityStoreForExecute for testing.
type mockIdentityStore struct {
	accounts  map[string]bool
	deleteErr error
	deletes   int
}

func newMockIdentityStore(ids ...string) *mockIdentityStore {
	m := &mockIdentityStore{accounts: make(map[string]bool)}
	for _, id := range ids {
		m.accounts[id] = true
	}
	return m
}

func (m *mockIdentityStore) DeleteByID(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes++
	delete(m.accounts, id)
	return nil
}

// failingObjectStore simulates an unreachable object storage backend.
type failingObjectStore struct {
	err error
}

func (f *failingObjectStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, f.err
}

func (f *failingObjectStore) Delete(_ context.Context, _ string) error {
	return f.err
}

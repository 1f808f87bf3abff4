package record

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)

// TestAnonymize tests that identifying fields are cleared and the user link replaced.
func TestAnonymize(t *testing.T) {
	r := Record{
		ID:         "rec-001",
		Collection: "appointments",
		UserID:     "user-001",
		Fields: map[string]string{
			"email":        "ana@example.com",
			"patient_name": "Ana Souza",
			"room":         "3B",
		},
	}

	changed := r.Anonymize([]string{"email", "patient_name", "phone"}, "deleted_user_rec-001", testNow)
	if !changed {
		t.Fatal("expected first anonymization to report a change")
	}
	if r.Fields["email"] != "" || r.Fields["patient_name"] != "" {
		t.Error("expected identifying fields to be cleared")
	}
	if r.Fields["room"] != "3B" {
		t.Error("non-identifying fields must be left intact")
	}
	if r.UserID != "deleted_user_rec-001" {
		t.Errorf("expected user link replaced, got %s", r.UserID)
	}
	if r.AnonymizedAt == nil || !r.AnonymizedAt.Equal(testNow) {
		t.Error("expected AnonymizedAt to be stamped")
	}
	if !r.IsAnonymized() {
		t.Error("expected IsAnonymized after anonymization")
	}
}

// TestAnonymize_Idempotent tests that a marked record is never mutated again.
func TestAnonymize_Idempotent(t *testing.T) {
	r := Record{
		ID:         "rec-001",
		Collection: "appointments",
		UserID:     "user-001",
		Fields:     map[string]string{"email": "ana@example.com"},
	}
	if !r.Anonymize([]string{"email"}, "deleted_user_rec-001", testNow) {
		t.Fatal("expected first anonymization to report a change")
	}

	firstStamp := *r.AnonymizedAt
	later := testNow.Add(48 * time.Hour)
	if r.Anonymize([]string{"email"}, "deleted_user_other", later) {
		t.Error("expected re-anonymization to be a no-op")
	}
	if !r.AnonymizedAt.Equal(firstStamp) {
		t.Error("expected original AnonymizedAt to be preserved")
	}
	if r.UserID != "deleted_user_rec-001" {
		t.Error("expected placeholder to be preserved on re-run")
	}
}

// TestMarkForFutureDeletion tests the five-year sweep marker.
func TestMarkForFutureDeletion(t *testing.T) {
	r := Record{ID: "rec-001", Collection: "payments", UserID: "user-001"}
	r.MarkForFutureDeletion(testNow)
	if r.MarkedForDeletion == nil {
		t.Fatal("expected MarkedForDeletion to be stamped")
	}
	want := testNow.Add(FutureDeleteAfter)
	if !r.MarkedForDeletion.Equal(want) {
		t.Errorf("expected marker %v, got %v", want, r.MarkedForDeletion)
	}

	// Idempotent: a later run keeps the original date.
	r.MarkForFutureDeletion(testNow.Add(24 * time.Hour))
	if !r.MarkedForDeletion.Equal(want) {
		t.Error("expected original marker to be preserved")
	}
}

// TestFlagSubjectDeleted tests the legal-hold flag leaves data intact.
func TestFlagSubjectDeleted(t *testing.T) {
	r := Record{
		ID:         "rec-001",
		Collection: "medical_records",
		UserID:     "user-001",
		Fields:     map[string]string{"diagnosis": "lombalgia"},
	}
	if !r.FlagSubjectDeleted(testNow) {
		t.Fatal("expected first flagging to report a change")
	}
	if !r.SubjectDeleted || r.SubjectDeletedAt == nil {
		t.Error("expected SubjectDeleted and timestamp set")
	}
	if r.UserID != "user-001" || r.Fields["diagnosis"] != "lombalgia" {
		t.Error("legal-hold flagging must not alter record content")
	}
	if r.FlagSubjectDeleted(testNow.Add(time.Hour)) {
		t.Error("expected re-flagging to be a no-op")
	}
}

// TestValidate tests record validation.
func TestValidate(t *testing.T) {
	r := Record{}
	if err := r.Validate(); err != ErrEmptyRecordID {
		t.Errorf("expected ErrEmptyRecordID, got %v", err)
	}
	r.ID = "rec-001"
	if err := r.Validate(); err != ErrEmptyCollection {
		t.Errorf("expected ErrEmptyCollection, got %v", err)
	}
	r.Collection = "appointments"
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestMutationConstructors tests the staged-mutation helpers.
func TestMutationConstructors(t *testing.T) {
	r := Record{ID: "rec-001", Collection: "users"}
	if m := DeleteMutation(r); m.Kind != MutationDelete || m.Record.ID != "rec-001" {
		t.Error("DeleteMutation should stage a delete of the record")
	}
	if m := UpdateMutation(r); m.Kind != MutationUpdate || m.Record.ID != "rec-001" {
		t.Error("UpdateMutation should stage an update of the record")
	}
}

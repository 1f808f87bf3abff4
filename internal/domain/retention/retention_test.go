package retention

import (
	"testing"
)

// TestClassificationStrategy tests the classification → strategy mapping.
func TestClassificationStrategy(t *testing.T) {
	tests := []struct {
		class Classification
		want  Strategy
	}{
		{ClassImmediate, StrategyHardDelete},
		{Class30Days, StrategyAnonymize},
		{Class6Months, StrategyAnonymize},
		{Class1Year, StrategyAnonymize},
		{Class5Years, StrategyAnonymizeFutureDelete},
		{ClassLegalHold, StrategyFlagOnly},
	}
	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			got, err := tt.class.Strategy()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Strategy() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestClassificationStrategy_Unknown tests that unknown classifications error.
func TestClassificationStrategy_Unknown(t *testing.T) {
	if _, err := Classification("2_weeks").Strategy(); err == nil {
		t.Error("expected error for unknown classification")
	}
	if Classification("").Valid() {
		t.Error("empty classification should not be valid")
	}
}

// TestDefaultTable tests that the shipped policy table is valid and complete.
func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table should validate: %v", err)
	}

	expected := map[string]Classification{
		"users":                    ClassImmediate,
		"user_privacy_preferences": ClassImmediate,
		"user_consents":            ClassImmediate,
		"contacts":                 ClassImmediate,
		"notifications":            ClassImmediate,
		"uploads":                  Class30Days,
		"appointments":             Class6Months,
		"exercise_plans":           Class1Year,
		"payments":                 Class5Years,
		"vouchers":                 Class5Years,
		"invoices":                 Class5Years,
		"patients":                 ClassLegalHold,
		"evolutions":               ClassLegalHold,
		"evaluations":              ClassLegalHold,
		"medical_records":          ClassLegalHold,
	}
	if len(table) != len(expected) {
		t.Errorf("expected %d policies, got %d", len(expected), len(table))
	}
	for collection, class := range expected {
		p, ok := table.Lookup(collection)
		if !ok {
			t.Errorf("collection %s missing from default table", collection)
			continue
		}
		if p.Classification != class {
			t.Errorf("collection %s: expected %s, got %s", collection, class, p.Classification)
		}
	}

	// The audit trail is not governed by the engine that writes it.
	if _, ok := table.Lookup("audit_logs"); ok {
		t.Error("audit_logs must not be governed by the retention table")
	}
}

// TestTableValidate tests duplicate and unknown-classification rejection.
func TestTableValidate(t *testing.T) {
	if err := (Table{}).Validate(); err != ErrEmptyTable {
		t.Errorf("expected ErrEmptyTable, got %v", err)
	}

	dup := Table{
		{Collection: "users", Classification: ClassImmediate},
		{Collection: "users", Classification: ClassLegalHold},
	}
	if err := dup.Validate(); err == nil {
		t.Error("expected error for duplicate collection")
	}

	unknown := Table{{Collection: "users", Classification: "forever"}}
	if err := unknown.Validate(); err == nil {
		t.Error("expected error for unknown classification")
	}

	unnamed := Table{{Collection: "", Classification: ClassImmediate}}
	if err := unnamed.Validate(); err != ErrEmptyCollection {
		t.Errorf("expected ErrEmptyCollection, got %v", err)
	}
}

// TestPlaceholder tests pseudonym derivation from record IDs.
func TestPlaceholder(t *testing.T) {
	if got := Placeholder("abcdef1234567890"); got != "deleted_user_abcdef12" {
		t.Errorf("Placeholder() = %s, want deleted_user_abcdef12", got)
	}
	// Short IDs are used whole rather than padded.
	if got := Placeholder("ab12"); got != "deleted_user_ab12" {
		t.Errorf("Placeholder() = %s, want deleted_user_ab12", got)
	}
	// Two records for the same user must get distinct placeholders.
	if Placeholder("rec-aaaa-1111") == Placeholder("rec-bbbb-2222") {
		t.Error("placeholders must be derived from the record, not the user")
	}
}

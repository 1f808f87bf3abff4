package retention

import (
	"errors"
	"fmt"
)

// Classification is the legally-driven retention category for a record collection.
type Classification string

const (
	// ClassImmediate — personal data with no retention obligation, hard-deleted.
	ClassImmediate Classification = "immediate"
	// Class30Days / Class6Months / Class1Year — anonymized now, non-identifying
	// remainder kept for the stated contingency window.
	Class30Days  Classification = "30_days"
	Class6Months Classification = "6_months"
	Class1Year   Classification = "1_year"
	// Class5Years — fiscal records: anonymized now, swept after five years.
	Class5Years Classification = "5_years"
	// ClassLegalHold — medical records that must never be altered or removed.
	ClassLegalHold Classification = "legal_hold"
)

// Strategy is the mutation applied to records of a classification when the
// data subject's deletion request executes.
type Strategy string

const (
	StrategyHardDelete            Strategy = "hard_delete"
	StrategyAnonymize             Strategy = "anonymize"
	StrategyAnonymizeFutureDelete Strategy = "anonymize_future_delete"
	StrategyFlagOnly              Strategy = "flag_only"
)

// Domain errors.
var (
	ErrUnknownClassification = errors.New("unknown retention classification")
	ErrEmptyCollection       = errors.New("policy collection name is required")
	ErrEmptyTable            = errors.New("retention policy table is empty")
)

// Strategy maps a classification to the mutation strategy applied at execution.
// PRE: c is one of the declared classifications
// POST: Returns the strategy, or an error for unknown classifications
func (c Classification) Strategy() (Strategy, error) {
	switch c {
	case ClassImmediate:
		return StrategyHardDelete, nil
	case Class30Days, Class6Months, Class1Year:
		return StrategyAnonymize, nil
	case Class5Years:
		return StrategyAnonymizeFutureDelete, nil
	case ClassLegalHold:
		return StrategyFlagOnly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownClassification, string(c))
	}
}

// Valid reports whether c is a declared classification.
func (c Classification) Valid() bool {
	_, err := c.Strategy()
	return err == nil
}

// Policy binds one governed collection to its classification and lists the
// personally-identifying fields anonymization must clear. Collections differ
// in schema, so the field list is declared per collection rather than assumed.
type Policy struct {
	Collection        string
	Classification    Classification
	IdentifyingFields []string
}

// Table is the injected retention policy configuration. Every collection that
// may contain user-linked records appears exactly once; absence means the
// collection is not governed by this engine.
type Table []Policy

// Validate checks the table for duplicates and unknown classifications.
// PRE: none
// POST: Returns nil if every collection appears exactly once with a valid classification
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	seen := make(map[string]bool, len(t))
	for _, p := range t {
		if p.Collection == "" {
			return ErrEmptyCollection
		}
		if seen[p.Collection] {
			return fmt.Errorf("collection %q appears more than once in policy table", p.Collection)
		}
		seen[p.Collection] = true
		if !p.Classification.Valid() {
			return fmt.Errorf("collection %q: %w: %q", p.Collection, ErrUnknownClassification, string(p.Classification))
		}
	}
	return nil
}

// Lookup returns the policy for a collection, if governed.
func (t Table) Lookup(collection string) (Policy, bool) {
	for _, p := range t {
		if p.Collection == collection {
			return p, true
		}
	}
	return Policy{}, false
}

// DefaultTable returns the clinic's retention mapping. Changing how long a
// record type is kept is a one-line change here, not new deletion logic.
func DefaultTable() Table {
	return Table{
		// Personal data — deleted outright once the grace period passes.
		{Collection: "users", Classification: ClassImmediate, IdentifyingFields: []string{"email", "display_name", "phone"}},
		{Collection: "user_privacy_preferences", Classification: ClassImmediate},
		{Collection: "user_consents", Classification: ClassImmediate},
		{Collection: "contacts", Classification: ClassImmediate, IdentifyingFields: []string{"email", "name", "phone"}},
		{Collection: "notifications", Classification: ClassImmediate},

		// File upload metadata — 30 day contingency window.
		{Collection: "uploads", Classification: Class30Days, IdentifyingFields: []string{"uploader_name", "uploader_email"}},

		// Appointments — 6 months for scheduling disputes.
		{Collection: "appointments", Classification: Class6Months, IdentifyingFields: []string{"email", "patient_name", "phone"}},

		// Exercise prescriptions — 1 year.
		{Collection: "exercise_plans", Classification: Class1Year, IdentifyingFields: []string{"patient_name", "patient_email"}},

		// Fiscal records — 5 year statutory retention, then swept.
		{Collection: "payments", Classification: Class5Years, IdentifyingFields: []string{"payer_name", "payer_email", "payer_document"}},
		{Collection: "vouchers", Classification: Class5Years, IdentifyingFields: []string{"holder_name", "holder_email"}},
		{Collection: "invoices", Classification: Class5Years, IdentifyingFields: []string{"customer_name", "customer_email", "customer_document"}},

		// Clinical records — indefinite legal hold under medical record-keeping law.
		{Collection: "patients", Classification: ClassLegalHold},
		{Collection: "evolutions", Classification: ClassLegalHold},
		{Collection: "evaluations", Classification: ClassLegalHold},
		{Collection: "medical_records", Classification: ClassLegalHold},
	}
}

// Placeholder derives a stable, non-reversible pseudonym from a record's own
// identifier. Deriving from the record (never the user) prevents re-linking
// anonymized records back to the data subject.
func Placeholder(recordID string) string {
	const prefix = "deleted_user_"
	if len(recordID) > 8 {
		return prefix + recordID[:8]
	}
	return prefix + recordID
}

package audit

import (
	"time"
)

// Action represents the lifecycle transition an audit entry records.
type Action string

const (
	ActionDeletionRequested Action = "deletion_requested"
	ActionDeletionCancelled Action = "deletion_cancelled"
	ActionDeletionCompleted Action = "deletion_completed"
)

// Severity represents the severity level of an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Outcome summarizes what execution did, per collection. It deliberately holds
// only non-identifying data (collection names and anomaly notes): the audit
// trail outlives the personal data it describes and must not re-introduce it.
type Outcome struct {
	Deleted    []string `json:"deleted"`
	Anonymized []string `json:"anonymized"`
	Retained   []string `json:"retained"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Entry is a single append-only audit record of a lifecycle transition. It is
// written as the last step of each transition so it reflects the true outcome,
// including partial storage/identity failures captured in the payload.
type Entry struct {
	ID        string
	Action    Action
	UserID    string
	Timestamp time.Time
	Severity  Severity
	IPAddress string
	UserAgent string
	Outcome   *Outcome // Populated only for deletion_completed entries
}

// NewEntry creates an audit entry for a lifecycle transition.
// PRE: id and userID are non-empty
// POST: Returns an info-severity Entry stamped with the given time
func NewEntry(id, userID string, action Action, now time.Time) Entry {
	return Entry{
		ID:        id,
		Action:    action,
		UserID:    userID,
		Timestamp: now,
		Severity:  SeverityInfo,
	}
}

// WithProvenance sets IP address and user agent from the triggering request.
func (e Entry) WithProvenance(ipAddress, userAgent string) Entry {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// WithOutcome attaches the execution outcome buckets. Entries carrying
// warnings are raised to warning severity so partial failures stand out.
func (e Entry) WithOutcome(o Outcome) Entry {
	e.Outcome = &o
	if len(o.Warnings) > 0 {
		e.Severity = SeverityWarning
	}
	return e
}

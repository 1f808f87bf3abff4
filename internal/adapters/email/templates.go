package email

import (
	"bytes"
	"fmt"
	"time"

	"github.com/yuin/goldmark"
)

// Deletion lifecycle notices are authored in markdown and rendered to HTML
// at send time.

const scheduledBody = `# Account deletion scheduled

Your request to delete your account and personal data has been received.

Deletion is scheduled for **%s**. You have **%d days** to change your mind —
until then you can cancel the request from your privacy settings at any time.

Records we are legally required to keep (such as clinical and fiscal records)
will be retained or anonymized according to the applicable retention periods.
`

const cancelledBody = `# Account deletion cancelled

Your account deletion request has been cancelled. Your account and data remain
unchanged, and no deletion will take place.
`

// DeletionScheduledNotice renders the grace-period confirmation email.
// PRE: scheduledDate is the request's execution date
// POST: Returns a populated SendRequest without recipients set
func DeletionScheduledNotice(scheduledDate time.Time, daysRemaining int) (SendRequest, error) {
	md := fmt.Sprintf(scheduledBody, scheduledDate.Format("2 January 2006"), daysRemaining)
	html, err := renderMarkdown(md)
	if err != nil {
		return SendRequest{}, err
	}
	return SendRequest{
		Subject: "Your account deletion is scheduled",
		HTML:    html,
	}, nil
}

// DeletionCancelledNotice renders the cancellation confirmation email.
func DeletionCancelledNotice() (SendRequest, error) {
	html, err := renderMarkdown(cancelledBody)
	if err != nil {
		return SendRequest{}, err
	}
	return SendRequest{
		Subject: "Your account deletion was cancelled",
		HTML:    html,
	}, nil
}

// renderMarkdown converts a markdown body to HTML.
func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fisiocore/internal/adapters/email"
	"fisiocore/internal/adapters/http/middleware"
	"fisiocore/internal/application/orchestrators"
	"fisiocore/internal/domain/deletion"
)

// handlePrivacyDelete serves the user's own deletion request.
// POST opens the 30-day grace period; re-posting while a request is pending
// returns the existing schedule unchanged. GET reports the current status.
// PRE: User must be authenticated
func handlePrivacyDelete(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		handlePrivacyDeleteRequest(w, r)
	case "GET":
		handlePrivacyDeleteStatus(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePrivacyDeleteRequest handles deletion request submission (POST /api/privacy/delete)
// PRE: User must be authenticated
// POST: A pending deletion request exists, scheduled 30 days out
func handlePrivacyDeleteRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	result, err := orchestrators.ExecuteRequestDeletion(r.Context(), orchestrators.RequestDeletionInput{
		UserID:    sess.AccountID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}, orchestrators.RequestDeletionDeps{
		DeletionStore: stores.DeletionStore,
		AuditStore:    stores.AuditStore,
		GenerateID:    generateID,
		Now:           time.Now,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	if result.Status == orchestrators.ScheduleStatusScheduled {
		sendDeletionNotice(r, sess.Email, result)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         result.Status,
		"request_id":     result.RequestID,
		"scheduled_date": result.ScheduledDate,
		"days_remaining": result.DaysRemaining,
		"message":        "Deletion is scheduled. You can cancel any time before the scheduled date.",
	})
}

// handlePrivacyDeleteStatus reports the user's pending deletion request (GET /api/privacy/delete)
// PRE: User must be authenticated
// POST: Returns the pending request schedule, or status "none"
func handlePrivacyDeleteStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	pending, err := stores.DeletionStore.FindPendingByUser(r.Context(), sess.AccountID)
	if err != nil {
		internalError(w, err)
		return
	}
	if len(pending) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "none"})
		return
	}

	req := pending[0]
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         req.Status,
		"request_id":     req.ID,
		"requested_at":   req.RequestedAt,
		"scheduled_date": req.ScheduledDate,
		"days_remaining": req.DaysRemaining(time.Now()),
	})
}

// handlePrivacyDeleteCancel withdraws a pending deletion request (POST /api/privacy/delete/cancel)
// PRE: User must be authenticated; a pending request must exist
// POST: No pending request remains for the user
func handlePrivacyDeleteCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	result, err := orchestrators.ExecuteCancelDeletion(r.Context(), orchestrators.CancelDeletionInput{
		UserID:    sess.AccountID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}, orchestrators.CancelDeletionDeps{
		DeletionStore: stores.DeletionStore,
		AuditStore:    stores.AuditStore,
		GenerateID:    generateID,
		Now:           time.Now,
	})
	if err != nil {
		if errors.Is(err, deletion.ErrNoPendingRequest) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, deletion.ErrAlreadyClaimed) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		internalError(w, err)
		return
	}

	sendCancellationNotice(r, sess.Email)

	writeJSON(w, http.StatusOK, map[string]any{
		"cancelled": result.CancelledCount,
		"message":   "Deletion request cancelled successfully.",
	})
}

// sendDeletionNotice emails the grace-period confirmation. Best-effort: a
// failed send never fails the request.
func sendDeletionNotice(r *http.Request, to string, result orchestrators.RequestDeletionResult) {
	if emailSender == nil || to == "" {
		return
	}
	req, err := email.DeletionScheduledNotice(result.ScheduledDate, result.DaysRemaining)
	if err != nil {
		slog.Error("privacy_email_render_failed", "error", err.Error())
		return
	}
	req.To = []string{to}
	req.From = emailFromAddress
	req.ReplyTo = emailReplyTo
	if _, err := emailSender.Send(r.Context(), req); err != nil {
		slog.Error("privacy_email_send_failed", "error", err.Error())
	}
}

// sendCancellationNotice emails the cancellation confirmation. Best-effort.
func sendCancellationNotice(r *http.Request, to string) {
	if emailSender == nil || to == "" {
		return
	}
	req, err := email.DeletionCancelledNotice()
	if err != nil {
		slog.Error("privacy_email_render_failed", "error", err.Error())
		return
	}
	req.To = []string{to}
	req.From = emailFromAddress
	req.ReplyTo = emailReplyTo
	if _, err := emailSender.Send(r.Context(), req); err != nil {
		slog.Error("privacy_email_send_failed", "error", err.Error())
	}
}

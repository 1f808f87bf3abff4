package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fisiocore/internal/adapters/http/middleware"
	auditStore "fisiocore/internal/adapters/storage/audit"
	"fisiocore/internal/application/orchestrators"
	auditDomain "fisiocore/internal/domain/audit"
	"fisiocore/internal/domain/deletion"
)

// handleAdminPrivacyExecute runs the deletion execution engine (POST /api/admin/privacy/execute).
// Admins may execute any user's request immediately, or sweep all overdue
// requests with force. Non-admins may only execute their own request, and
// only once its grace period has elapsed.
// PRE: User must be authenticated
// POST: Targeted requests are completed, each with one audit entry
func handleAdminPrivacyExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var body struct {
		UserID string `json:"user_id"`
		Force  bool   `json:"force"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	if !middleware.IsAdmin(ctx) {
		// Self-service execution: own request only, and only when due.
		if body.Force || (body.UserID != "" && body.UserID != sess.AccountID) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		body.UserID = sess.AccountID

		pending, err := stores.DeletionStore.FindPendingByUser(ctx, body.UserID)
		if err != nil {
			internalError(w, err)
			return
		}
		if len(pending) > 0 && !pending[0].IsDue(time.Now()) {
			http.Error(w, "grace period has not elapsed", http.StatusConflict)
			return
		}
	}

	result, err := orchestrators.ExecuteAccountDeletion(ctx, orchestrators.ExecuteDeletionInput{
		UserID: body.UserID,
		Force:  body.Force,
	}, orchestrators.ExecuteDeletionDeps{
		DeletionStore: stores.DeletionStore,
		RecordStore:   stores.RecordStore,
		AuditStore:    stores.AuditStore,
		ObjectStore:   stores.ObjectStore,
		IdentityStore: stores.AccountStore,
		Policies:      policies,
		GenerateID:    generateID,
		Now:           time.Now,
	})
	if err != nil {
		if errors.Is(err, deletion.ErrNoPendingRequest) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, orchestrators.ErrNoExecutionTarget) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		internalError(w, err)
		return
	}

	outcomes := make([]map[string]any, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		// Erased accounts must not keep live sessions.
		sessions.DeleteByAccount(o.UserID)
		outcomes = append(outcomes, map[string]any{
			"user_id":    o.UserID,
			"request_id": o.RequestID,
			"deleted":    o.Outcome.Deleted,
			"anonymized": o.Outcome.Anonymized,
			"retained":   o.Outcome.Retained,
			"warnings":   o.Outcome.Warnings,
			"replayed":   o.Replayed,
		})
	}
	failures := make([]map[string]any, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, map[string]any{
			"user_id":    f.UserID,
			"request_id": f.RequestID,
			"error":      f.Err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": outcomes,
		"failures": failures,
	})
}

// handleAdminAuditTrail lists audit entries with optional filters (GET /api/admin/audit).
// PRE: User must be authenticated as admin
// POST: Returns entries ordered newest first
func handleAdminAuditTrail(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if sess.Role != "admin" {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	ctx := r.Context()

	// Parse query parameters for filtering
	filter := auditStore.Filter{}

	if action := r.URL.Query().Get("action"); action != "" {
		act := auditDomain.Action(action)
		filter.Action = &act
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if severity := r.URL.Query().Get("severity"); severity != "" {
		sev := auditDomain.Severity(severity)
		filter.Severity = &sev
	}
	if fromDate := r.URL.Query().Get("from"); fromDate != "" {
		filter.FromDate = &fromDate
	}
	if toDate := r.URL.Query().Get("to"); toDate != "" {
		filter.ToDate = &toDate
	}

	// Parse limit, default to 100
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	entries, err := stores.AuditStore.List(ctx, filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"id":        e.ID,
			"action":    e.Action,
			"user_id":   e.UserID,
			"timestamp": e.Timestamp,
			"severity":  e.Severity,
		}
		if e.Outcome != nil {
			item["outcome"] = e.Outcome
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": items,
		"limit":   limit,
	})
}

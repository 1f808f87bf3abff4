package deletion

import (
	"context"
	"database/sql"
	"time"

	"fisiocore/internal/adapters/storage"
	domain "fisiocore/internal/domain/deletion"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const requestColumns = `id, user_id, status, requested_at, scheduled_date, ip_address, user_agent, claimed_at, cancelled_at, completed_at`

// SQLiteStore implements the deletion Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new deletion request store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a deletion request by its ID.
// PRE: id is non-empty
// POST: Returns the request or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM deletion_request WHERE id = ?`, id)
	return scanRequest(row)
}

// FindPendingByUser returns all pending requests for a user.
// PRE: userID is non-empty
// POST: Returns pending requests ordered by requested_at
func (s *SQLiteStore) FindPendingByUser(ctx context.Context, userID string) ([]domain.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM deletion_request
		 WHERE user_id = ? AND status = ? ORDER BY requested_at ASC`,
		userID, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Save persists a deletion request to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, r domain.Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deletion_request (`+requestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status,
		   claimed_at=excluded.claimed_at,
		   cancelled_at=excluded.cancelled_at,
		   completed_at=excluded.completed_at`,
		r.ID, r.UserID, r.Status,
		r.RequestedAt.Format(dateLayout), r.ScheduledDate.Format(dateLayout),
		r.IPAddress, r.UserAgent,
		formatOptional(r.ClaimedAt), formatOptional(r.CancelledAt), formatOptional(r.CompletedAt))
	return err
}

// ListOverdue returns executable requests whose scheduled date has passed:
// pending ones, plus processing ones whose claim lease expired so a crashed
// invocation does not strand the request forever.
// PRE: now is the caller's notion of current time
// POST: Returns matching requests ordered by scheduled_date
func (s *SQLiteStore) ListOverdue(ctx context.Context, now time.Time) ([]domain.Request, error) {
	leaseCutoff := now.Add(-domain.ClaimLease)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM deletion_request
		 WHERE scheduled_date <= ?
		   AND (status = ? OR (status = ? AND claimed_at <= ?))
		 ORDER BY scheduled_date ASC`,
		now.Format(dateLayout),
		domain.StatusPending, domain.StatusProcessing, leaseCutoff.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Claim atomically transitions a request to processing. The guarded UPDATE is
// the mutual-exclusion point: only one invocation can move the row out of
// pending (or reclaim an expired lease), so concurrent executions for the same
// user cannot double-process.
// PRE: id is non-empty
// POST: Request is processing with claimed_at = now, or domain.ErrAlreadyClaimed
func (s *SQLiteStore) Claim(ctx context.Context, id string, now time.Time) error {
	leaseCutoff := now.Add(-domain.ClaimLease)
	res, err := s.db.ExecContext(ctx,
		`UPDATE deletion_request SET status = ?, claimed_at = ?
		 WHERE id = ? AND (status = ? OR (status = ? AND claimed_at <= ?))`,
		domain.StatusProcessing, now.Format(dateLayout),
		id, domain.StatusPending, domain.StatusProcessing, leaseCutoff.Format(dateLayout))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAlreadyClaimed
	}
	return nil
}

// Release returns a processing request to pending.
// PRE: request is in processing
// POST: Request is pending with claimed_at cleared
func (s *SQLiteStore) Release(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deletion_request SET status = ?, claimed_at = NULL
		 WHERE id = ? AND status = ?`,
		domain.StatusPending, id, domain.StatusProcessing)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvalidStatus
	}
	return nil
}

// scanRequest scans a single row into a Request.
func scanRequest(row *sql.Row) (domain.Request, error) {
	var r domain.Request
	var requestedAt, scheduledDate string
	var claimedAt, cancelledAt, completedAt sql.NullString
	err := row.Scan(&r.ID, &r.UserID, &r.Status, &requestedAt, &scheduledDate,
		&r.IPAddress, &r.UserAgent, &claimedAt, &cancelledAt, &completedAt)
	if err != nil {
		return domain.Request{}, err
	}
	r.RequestedAt, _ = time.Parse(dateLayout, requestedAt)
	r.ScheduledDate, _ = time.Parse(dateLayout, scheduledDate)
	r.ClaimedAt = parseOptional(claimedAt)
	r.CancelledAt = parseOptional(cancelledAt)
	r.CompletedAt = parseOptional(completedAt)
	return r, nil
}

// scanRequestFromRows scans a single row from Rows into a Request.
func scanRequestFromRows(rows *sql.Rows) (domain.Request, error) {
	var r domain.Request
	var requestedAt, scheduledDate string
	var claimedAt, cancelledAt, completedAt sql.NullString
	err := rows.Scan(&r.ID, &r.UserID, &r.Status, &requestedAt, &scheduledDate,
		&r.IPAddress, &r.UserAgent, &claimedAt, &cancelledAt, &completedAt)
	if err != nil {
		return domain.Request{}, err
	}
	r.RequestedAt, _ = time.Parse(dateLayout, requestedAt)
	r.ScheduledDate, _ = time.Parse(dateLayout, scheduledDate)
	r.ClaimedAt = parseOptional(claimedAt)
	r.CancelledAt = parseOptional(cancelledAt)
	r.CompletedAt = parseOptional(completedAt)
	return r, nil
}

// scanRequests scans multiple rows into a slice of Requests.
func scanRequests(rows *sql.Rows) ([]domain.Request, error) {
	var requests []domain.Request
	for rows.Next() {
		r, err := scanRequestFromRows(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func formatOptional(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseOptional(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

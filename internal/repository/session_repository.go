package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskdesk/taskdesk/internal/model"
)

// SessionRepo owns the 'login_logs' table — the session ledger. A ledger
// entry is the authority on whether an issued token is still live; the
// token's own expiry is only the upper bound. Entries flip active→inactive
// exactly once: every close statement is guarded by is_active_session=1,
// which makes repeated closes no-ops.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id,user_id,session_token,is_active_session,login_time,logout_time,last_activity_at,ip_address,user_agent,closed_reason"

// Record appends a new active entry for a fresh login.
func (r *SessionRepo) Record(ctx context.Context, userID uint64, token, ip, userAgent string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_logs (user_id,session_token,is_active_session,login_time,ip_address,user_agent,closed_reason) VALUES (?,?,1,NOW(),?,?,'')",
		userID, token, ip, userAgent)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindActive returns the active entry matching (userID, token). Misses
// surface as sql.ErrNoRows; a miss means the token is revoked regardless
// of its signature or expiry.
func (r *SessionRepo) FindActive(ctx context.Context, userID uint64, token string) (model.Session, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM login_logs WHERE user_id=? AND session_token=? AND is_active_session=1 LIMIT 1",
		userID, token)
	return scanSession(row)
}

// Close flips one entry inactive, stamping logout time and reason.
func (r *SessionRepo) Close(ctx context.Context, id uint64, reason string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE login_logs SET is_active_session=0, logout_time=NOW(), closed_reason=? WHERE id=? AND is_active_session=1",
		reason, id)
	return err
}

// CloseMatching closes the active entry for (userID, token) and reports how
// many rows changed. Zero is fine: logout is idempotent.
func (r *SessionRepo) CloseMatching(ctx context.Context, userID uint64, token, reason string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE login_logs SET is_active_session=0, logout_time=NOW(), closed_reason=? WHERE user_id=? AND session_token=? AND is_active_session=1",
		reason, userID, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CloseByToken closes any lingering active entries carrying the exact token
// string. Used when a presented token fails verification and the owner is
// therefore unknown.
func (r *SessionRepo) CloseByToken(ctx context.Context, token, reason string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE login_logs SET is_active_session=0, logout_time=NOW(), closed_reason=? WHERE session_token=? AND is_active_session=1",
		reason, token)
	return err
}

// CloseAllForUser revokes every active session of one user. Reports the
// number of sessions closed.
func (r *SessionRepo) CloseAllForUser(ctx context.Context, userID uint64, reason string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE login_logs SET is_active_session=0, logout_time=NOW(), closed_reason=? WHERE user_id=? AND is_active_session=1",
		reason, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Touch stamps the last-activity time on an entry. Best-effort; callers
// ignore failures.
func (r *SessionRepo) Touch(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE login_logs SET last_activity_at=NOW() WHERE id=?", id)
	return err
}

// LastLoginTime returns the most recent login time recorded for a user, or
// the zero time when the user never logged in.
func (r *SessionRepo) LastLoginTime(ctx context.Context, userID uint64) (time.Time, error) {
	var t time.Time
	err := r.DB.QueryRowContext(ctx,
		"SELECT login_time FROM login_logs WHERE user_id=? ORDER BY login_time DESC LIMIT 1",
		userID).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return t, err
}

// ListRecent returns up to limit ledger entries newest first.
func (r *SessionRepo) ListRecent(ctx context.Context, limit int) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM login_logs ORDER BY login_time DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListByUser returns one user's ledger entries newest first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM login_logs WHERE user_id=? ORDER BY login_time DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func scanSession(row *sql.Row) (model.Session, error) {
	var (
		s              model.Session
		logout, active sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SessionToken, &s.IsActive, &s.LoginTime,
		&logout, &active, &s.IPAddress, &s.UserAgent, &s.ClosedReason)
	if err != nil {
		return model.Session{}, err
	}
	if logout.Valid {
		s.LogoutTime = &logout.Time
	}
	if active.Valid {
		s.LastActivityAt = &active.Time
	}
	return s, nil
}

func collectSessions(rows *sql.Rows) ([]model.Session, error) {
	var out []model.Session
	for rows.Next() {
		var (
			s              model.Session
			logout, active sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.SessionToken, &s.IsActive,
			&s.LoginTime, &logout, &active, &s.IPAddress, &s.UserAgent,
			&s.ClosedReason); err != nil {
			return nil, err
		}
		if logout.Valid {
			s.LogoutTime = &logout.Time
		}
		if active.Valid {
			s.LastActivityAt = &active.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

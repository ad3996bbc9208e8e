package model

import "time"

// Reasons recorded in login_logs.closed_reason when a session entry is
// flipped inactive. A session transitions active→inactive exactly once.
const (
	CloseReasonLogout       = "logout"
	CloseReasonTokenExpired = "token_expired"
	CloseReasonTokenInvalid = "token_invalid"
	CloseReasonPlanExpired  = "plan_expired"
	CloseReasonPlanInactive = "plan_inactive"
	CloseReasonPlanNotFound = "plan_not_found"
	CloseReasonUserInactive = "user_inactive"
	CloseReasonUserNotFound = "user_not_found"
	CloseReasonAdminRevoked = "revoked_by_admin"
)

// Session models a row in the `login_logs` table: one entry per successful
// login. The ledger, not the token's own expiry, decides whether a bearer
// token is still live, which is what makes server-side revocation possible.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – owner of the session.
//  SessionToken   – the exact bearer token string issued at login.
//  IsActive       – whether this entry still authorizes requests.
//  LoginTime      – when the session was opened.
//  LogoutTime     – when it was closed (nil while active).
//  LastActivityAt – best-effort timestamp of the last gated request.
//  IPAddress      – client IP at login.
//  UserAgent      – client user agent at login.
//  ClosedReason   – why the entry was closed (empty while active).
type Session struct {
	ID             uint64     // login_logs.id
	UserID         uint64     // login_logs.user_id
	SessionToken   string     // login_logs.session_token
	IsActive       bool       // login_logs.is_active_session
	LoginTime      time.Time  // login_logs.login_time
	LogoutTime     *time.Time // login_logs.logout_time (nullable)
	LastActivityAt *time.Time // login_logs.last_activity_at (nullable)
	IPAddress      string     // login_logs.ip_address
	UserAgent      string     // login_logs.user_agent
	ClosedReason   string     // login_logs.closed_reason
}

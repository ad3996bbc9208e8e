// Package queue defines message payloads exchanged over the message broker.
package queue

// AuthEventsQueue is the durable queue auth events travel through.
const AuthEventsQueue = "auth.events"

// Auth event types published to the auth.events queue.
const (
	EventLogin         = "auth.login"
	EventLogout        = "auth.logout"
	EventSessionClosed = "auth.session_closed"
	EventPlanHealed    = "auth.plan_healed"
)

// AuthEvent is published whenever the auth subsystem opens or closes a
// session, or self-heals a dangling plan reference. It carries enough
// information for downstream consumers to notify or audit without querying
// the primary database. Publishing is best-effort and never blocks the
// request that produced the event.
type AuthEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username"`
	SessionID  uint64 `json:"session_id,omitempty"`
	PlanID     uint64 `json:"plan_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

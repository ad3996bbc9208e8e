package model

import "time"

// Plan status values as stored in plans.status.
const (
	PlanStatusActive   = "active"
	PlanStatusExpired  = "expired"
	PlanStatusInactive = "inactive"
)

// Plan represents a subscription entitlement row in the `plans` table.
// Occupancy (how many users/supervisors reference a plan) must stay within
// MaxUsers/MaxSupervisors; this is enforced at registration time only.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name of the plan.
//  Description    – free-text description.
//  StartDate      – beginning of the validity window.
//  EndDate        – end of the validity window (zero time = open-ended).
//  MaxSupervisors – how many supervisor accounts may join.
//  MaxUsers       – how many user accounts may join.
//  MainToken      – unique secret key presented at registration to join the plan.
//  IsExtension    – whether this plan extends an earlier one.
//  Status         – active/expired/inactive.
//  CreatedBy      – who created the plan ("system" for auto-provisioned ones).
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Plan struct {
	ID             uint64    // plans.id
	Name           string    // plans.name
	Description    string    // plans.description
	StartDate      time.Time // plans.start_date
	EndDate        time.Time // plans.end_date (nullable, zero when open-ended)
	MaxSupervisors int       // plans.max_supervisors
	MaxUsers       int       // plans.max_users
	MainToken      string    // plans.main_token
	IsExtension    bool      // plans.is_extension
	Status         string    // plans.status
	CreatedBy      string    // plans.created_by
	CreatedAt      time.Time // plans.created_at
	UpdatedAt      time.Time // plans.updated_at
}

// Expired reports whether the plan's validity window has closed at time now.
// An open-ended plan (zero EndDate) never expires.
func (p Plan) Expired(now time.Time) bool {
	return !p.EndDate.IsZero() && p.EndDate.Before(now)
}

package model

import "time"

// Role names form a closed set. Every user carries exactly one of them and
// the value is embedded in issued access tokens.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleUser       = "user"
)

// User represents a row in the `users` table. First name, last name and
// phone are stored encrypted; the repository layer runs them through the
// field codec on the way in and out, so this struct always holds plaintext.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name (encrypted at rest).
//  LastName     – family name (encrypted at rest).
//  Username     – unique handle, stored lower-case.
//  Email        – unique email address, stored lower-case.
//  Phone        – contact phone (encrypted at rest).
//  PasswordHash – bcrypt hashed password.
//  Role         – one of admin/supervisor/user.
//  IsActive     – whether the account may log in.
//  PlanID       – foreign key into the plans table. Zero means dangling;
//                 the auth flow self-heals that case.
//  LoginCount   – number of successful logins.
//  CreatedBy    – who provisioned the account ("system" for self-registration).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Username     string    // users.username
	Email        string    // users.email
	Phone        string    // users.phone
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	PlanID       uint64    // users.plan_id
	LoginCount   uint64    // users.login_count
	CreatedBy    string    // users.created_by
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

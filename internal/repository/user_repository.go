package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taskdesk/taskdesk/internal/crypto"
	"github.com/taskdesk/taskdesk/internal/model"
)

// UserRepo is the credential store: it owns the 'users' table. Personal
// fields (first name, last name, phone) pass through the field codec on
// every read and write so the rest of the code only ever sees plaintext.
type UserRepo struct {
	DB    *sql.DB
	Codec *crypto.FieldCodec
}

func NewUserRepo(db *sql.DB, codec *crypto.FieldCodec) *UserRepo {
	return &UserRepo{DB: db, Codec: codec}
}

const userColumns = "id,first_name,last_name,username,email,phone,password_hash,role,is_active,plan_id,login_count,created_by,created_at,updated_at"

// Create inserts a user and returns its ID. The plain password is hashed
// here; encrypted fields are encoded here. Username and email are stored
// lower-case.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	hash, err := crypto.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	first, err := r.Codec.Encrypt(u.FirstName)
	if err != nil {
		return 0, err
	}
	last, err := r.Codec.Encrypt(u.LastName)
	if err != nil {
		return 0, err
	}
	phone, err := r.Codec.Encrypt(u.Phone)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (first_name,last_name,username,email,phone,password_hash,role,is_active,plan_id,login_count,created_by) VALUES (?,?,?,?,?,?,?,?,?,0,?)",
		first, last,
		strings.ToLower(strings.TrimSpace(u.Username)),
		strings.ToLower(strings.TrimSpace(u.Email)),
		phone, hash, u.Role, u.IsActive, u.PlanID, u.CreatedBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByIdentifier fetches a user whose username OR email matches the
// normalized identifier. Misses surface as sql.ErrNoRows.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		identifier, identifier)
	return r.scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return r.scanUser(row)
}

// ExistsByUsernameOrEmail reports whether any user already holds the
// username or email. Used by registration before inserting.
func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username=? OR email=?",
		strings.ToLower(strings.TrimSpace(username)),
		strings.ToLower(strings.TrimSpace(email))).Scan(&n)
	return n > 0, err
}

// CountByPlanAndRole returns the plan's occupancy for one role. Capacity
// checks at registration time compare this against the plan limits.
func (r *UserRepo) CountByPlanAndRole(ctx context.Context, planID uint64, role string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE plan_id=? AND role=?", planID, role).Scan(&n)
	return n, err
}

// AttachPlan points the user at a new plan. Part of the self-healing path
// after an emergency plan is provisioned.
func (r *UserRepo) AttachPlan(ctx context.Context, userID, planID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET plan_id=? WHERE id=?", planID, userID)
	return err
}

// BumpLoginCount increments the user's login counter. Best-effort login
// bookkeeping; callers log and ignore failures.
func (r *UserRepo) BumpLoginCount(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_count=login_count+1 WHERE id=?", userID)
	return err
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var (
		u                  model.User
		first, last, phone string
	)
	err := row.Scan(&u.ID, &first, &last, &u.Username, &u.Email, &phone,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.PlanID, &u.LoginCount,
		&u.CreatedBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if u.FirstName, err = r.Codec.Decrypt(first); err != nil {
		return model.User{}, err
	}
	if u.LastName, err = r.Codec.Decrypt(last); err != nil {
		return model.User{}, err
	}
	if u.Phone, err = r.Codec.Decrypt(phone); err != nil {
		return model.User{}, err
	}
	return u, nil
}

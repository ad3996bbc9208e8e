package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taskdesk/taskdesk/internal/model"
)

// PlanRepo is the plan registry over the 'plans' table.
type PlanRepo struct{ DB *sql.DB }

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{DB: db} }

// Create inserts a plan and returns its ID.
func (r *PlanRepo) Create(ctx context.Context, p model.Plan) (uint64, error) {
	var end sql.NullTime
	if !p.EndDate.IsZero() {
		end = sql.NullTime{Time: p.EndDate, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO plans (name,description,start_date,end_date,max_supervisors,max_users,main_token,is_extension,status,created_by) VALUES (?,?,?,?,?,?,?,?,?,?)",
		p.Name, p.Description, p.StartDate, end, p.MaxSupervisors, p.MaxUsers,
		p.MainToken, p.IsExtension, p.Status, p.CreatedBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrPlanTokenExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByToken fetches a plan by its secret key. Misses surface as
// sql.ErrNoRows.
func (r *PlanRepo) GetByToken(ctx context.Context, token string) (model.Plan, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description,start_date,end_date,max_supervisors,max_users,main_token,is_extension,status,created_by,created_at,updated_at FROM plans WHERE main_token=? LIMIT 1",
		strings.TrimSpace(token))
	return scanPlan(row)
}

// GetByID fetches a plan by id.
func (r *PlanRepo) GetByID(ctx context.Context, id uint64) (model.Plan, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description,start_date,end_date,max_supervisors,max_users,main_token,is_extension,status,created_by,created_at,updated_at FROM plans WHERE id=? LIMIT 1",
		id)
	return scanPlan(row)
}

// List returns all plans newest first. The secret key column is not
// selected; listings never expose it.
func (r *PlanRepo) List(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,description,start_date,end_date,max_supervisors,max_users,is_extension,status,created_by,created_at,updated_at FROM plans ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Plan
	for rows.Next() {
		var (
			p   model.Plan
			end sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.StartDate, &end,
			&p.MaxSupervisors, &p.MaxUsers, &p.IsExtension, &p.Status,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if end.Valid {
			p.EndDate = end.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlan(row *sql.Row) (model.Plan, error) {
	var (
		p   model.Plan
		end sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.StartDate, &end,
		&p.MaxSupervisors, &p.MaxUsers, &p.MainToken, &p.IsExtension,
		&p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Plan{}, err
	}
	if end.Valid {
		p.EndDate = end.Time
	}
	return p, nil
}

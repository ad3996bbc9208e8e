package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/taskdesk/internal/crypto"
	"github.com/taskdesk/taskdesk/internal/middleware"
	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/repository"
)

// PlanHandler exposes the plan registry to administrators.
type PlanHandler struct {
	Plans *repository.PlanRepo
}

func NewPlanHandler(plans *repository.PlanRepo) *PlanHandler {
	return &PlanHandler{Plans: plans}
}

type createPlanReq struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	MaxUsers       int        `json:"maxUsers"`
	MaxSupervisors int        `json:"maxSupervisors"`
	Status         string     `json:"status"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	MainToken      string     `json:"mainToken"`
}

type planPart struct {
	ID             uint64     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	MaxUsers       int        `json:"maxUsers"`
	MaxSupervisors int        `json:"maxSupervisors"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Create registers a new paid plan. A secret key is generated when the
// request does not supply one; the response is the only place it is ever
// returned in full.
func (h *PlanHandler) Create(c echo.Context) error {
	var req createPlanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.MaxUsers <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a positive maxUsers are required"})
	}
	status := req.Status
	if status == "" {
		status = model.PlanStatusActive
	}
	if status != model.PlanStatusActive && status != model.PlanStatusInactive && status != model.PlanStatusExpired {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active, inactive or expired"})
	}

	secret := req.MainToken
	if secret == "" {
		var err error
		if secret, err = crypto.RandomHex(16); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate secret key failed"})
		}
	}

	plan := model.Plan{
		Name:           req.Name,
		Description:    req.Description,
		MaxUsers:       req.MaxUsers,
		MaxSupervisors: req.MaxSupervisors,
		MainToken:      secret,
		Status:         status,
		StartDate:      time.Now().UTC(),
		CreatedBy:      currentUsername(c),
	}
	if req.StartDate != nil {
		plan.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		plan.EndDate = *req.EndDate
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Plans.Create(ctx, plan)
	if err != nil {
		if errors.Is(err, repository.ErrPlanTokenExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "a plan with that secret key already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create plan failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "plan created successfully",
		"planId":    id,
		"mainToken": secret,
	})
}

// List returns all plans, newest first, without secret keys. The route is
// wrapped with the Redis response cache.
func (h *PlanHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	plans, err := h.Plans.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list plans failed"})
	}

	out := make([]planPart, 0, len(plans))
	for _, p := range plans {
		part := planPart{
			ID:             p.ID,
			Name:           p.Name,
			Description:    p.Description,
			StartDate:      p.StartDate,
			MaxUsers:       p.MaxUsers,
			MaxSupervisors: p.MaxSupervisors,
			Status:         p.Status,
			CreatedAt:      p.CreatedAt,
		}
		if !p.EndDate.IsZero() {
			end := p.EndDate
			part.EndDate = &end
		}
		out = append(out, part)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "plans": out})
}

// currentUsername reads the gate-provided username, defaulting to "system".
func currentUsername(c echo.Context) string {
	if v, ok := c.Get(middleware.CtxUsername).(string); ok && v != "" {
		return v
	}
	return "system"
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/taskdesk/internal/auth"
	"github.com/taskdesk/taskdesk/internal/middleware"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	SecretKey string `json:"secretKey"`
	Role      string `json:"role"`
}

type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type secretKeyReq struct {
	SecretKey string `json:"secretKey"`
}

type passwordReq struct {
	Password string `json:"password"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Register: validate, create the account and its plan attachment.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Register(ctx, auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		SecretKey: req.SecretKey,
		Role:      req.Role,
	})
	if err != nil {
		// At registration time a bad plan is a client problem, not an
		// entitlement rejection of an existing account.
		if errors.Is(err, auth.ErrPlanInactive) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "the plan for this secret key is not active"})
		}
		if errors.Is(err, auth.ErrPlanExpired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "the plan for this secret key has expired"})
		}
		return authReject(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user registered successfully",
		"user": userPart{
			ID:       res.UserID,
			Username: res.Username,
			Email:    res.Email,
			Role:     res.Role,
		},
		"planId": res.PlanID,
	})
}

// Login: run the authentication flow and return the bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Login(ctx, auth.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IP:         c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
	})
	if err != nil {
		return authReject(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "login successful",
		"token":   res.Token,
		"expires": res.ExpiresAt,
		"user": userPart{
			ID:        res.User.ID,
			Username:  res.User.Username,
			Role:      res.User.Role,
			Email:     res.User.Email,
			FirstName: res.User.FirstName,
			LastName:  res.User.LastName,
		},
	})
}

// Logout closes the current session in the ledger. Always succeeds for an
// authenticated caller, even if the ledger had nothing left to close.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint64)
	token, _ := c.Get(middleware.CtxToken).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Logout(ctx, userID, token); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logout successful"})
}

// Profile returns the authenticated user's account with plan summary and
// login history fields.
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Svc.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load profile failed"})
	}

	user := echo.Map{
		"id":         p.User.ID,
		"firstName":  p.User.FirstName,
		"lastName":   p.User.LastName,
		"username":   p.User.Username,
		"email":      p.User.Email,
		"role":       p.User.Role,
		"isActive":   p.User.IsActive,
		"loginCount": p.User.LoginCount,
	}
	if p.LastLoginAt != nil {
		user["lastLoginAt"] = p.LastLoginAt
	}
	if p.Plan != nil {
		plan := echo.Map{"name": p.Plan.Name, "status": p.Plan.Status}
		if !p.Plan.EndDate.IsZero() {
			plan["endDate"] = p.Plan.EndDate
		}
		user["plan"] = plan
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// ValidateSecretKey reports which roles a plan key still admits, so the
// registration form can offer them.
func (h *AuthHandler) ValidateSecretKey(c echo.Context) error {
	var req secretKeyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	info, err := h.Svc.ValidateSecretKey(ctx, req.SecretKey)
	if err != nil {
		if errors.Is(err, auth.ErrPlanInactive) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "the plan for this secret key is not active"})
		}
		if errors.Is(err, auth.ErrPlanExpired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "the plan for this secret key has expired"})
		}
		return authReject(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "secret key is valid",
		"roles":    info.Roles,
		"planName": info.PlanName,
		"availableSlots": echo.Map{
			"users":       info.AvailableUsers,
			"supervisors": info.AvailableSupervisors,
		},
	})
}

// CheckPasswordStrength scores a candidate password for the signup form.
func (h *AuthHandler) CheckPasswordStrength(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required"})
	}
	return c.JSON(http.StatusOK, auth.CheckPasswordStrength(req.Password))
}

// authReject translates auth flow failures into HTTP responses. Validation
// problems list field messages; entitlement failures are 403 with an action
// hint; everything unrecognized is a 500.
func authReject(c echo.Context, err error) error {
	if ve, ok := auth.AsValidation(err); ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": ve.Messages})
	}
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user not found"})
	case errors.Is(err, auth.ErrBadCredentials):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "incorrect password"})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is inactive", "action": "contact support"})
	case errors.Is(err, auth.ErrDuplicateUser):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a user with that email or username already exists"})
	case errors.Is(err, auth.ErrSecretKeyInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid secret key"})
	case errors.Is(err, auth.ErrRoleNotAllowed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role not allowed for this plan"})
	case errors.Is(err, auth.ErrPlanCapacity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrPlanInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "plan is inactive", "action": "contact the administrator to renew your plan"})
	case errors.Is(err, auth.ErrPlanExpired):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "plan has expired", "action": "contact the administrator to renew your plan"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

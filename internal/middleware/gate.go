package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/taskdesk/internal/auth"
)

// Context keys populated by SessionGate for downstream handlers.
const (
	CtxUserID    = "user_id"
	CtxUsername  = "username"
	CtxRole      = "role"
	CtxSessionID = "session_id"
	CtxToken     = "token"
)

// SessionGate returns the Echo middleware protecting every authenticated
// route. It extracts the Bearer token and delegates the actual decision to
// auth.Service.Authorize, which re-checks session liveness and plan
// entitlement against the database on every request. Handlers reach the
// admitted identity via c.Get(CtxUserID) etc.
func SessionGate(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return gateReject(c, auth.ErrMissingToken)
			}
			token := strings.TrimPrefix(header, "Bearer ")

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			principal, err := svc.Authorize(ctx, token)
			if err != nil {
				return gateReject(c, err)
			}

			c.Set(CtxUserID, principal.UserID)
			c.Set(CtxUsername, principal.Username)
			c.Set(CtxRole, principal.Role)
			c.Set(CtxSessionID, principal.SessionID)
			c.Set(CtxToken, token)
			return next(c)
		}
	}
}

// gateReject maps gate failures onto status codes and action hints. Token
// and session failures are 401 (log in again); entitlement failures are 403
// (an administrator has to act).
func gateReject(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":  "access token required",
			"action": "include a valid token in the Authorization: Bearer <token> header",
		})
	case errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired", "action": "please log in again"})
	case errors.Is(err, auth.ErrTokenMalformed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid", "action": "please log in again"})
	case errors.Is(err, auth.ErrSessionNotActive):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session invalid or expired", "action": "please log in again"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user not found", "action": "contact the system administrator"})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user account is inactive", "action": "contact the administrator to reactivate your account"})
	case errors.Is(err, auth.ErrPlanNotFound):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no plan associated with user", "action": "contact the system administrator"})
	case errors.Is(err, auth.ErrPlanInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "your plan is inactive", "action": "contact the administrator to renew your plan"})
	case errors.Is(err, auth.ErrPlanExpired):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "your plan has expired", "action": "contact the administrator to renew your plan"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
	}
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/repository"
)

// SessionHandler exposes the session ledger to administrators: inspecting
// login history and force-closing a user's sessions. A forced close takes
// effect on the user's very next request, before their token expires.
type SessionHandler struct {
	Sessions *repository.SessionRepo
}

func NewSessionHandler(sessions *repository.SessionRepo) *SessionHandler {
	return &SessionHandler{Sessions: sessions}
}

type sessionPart struct {
	ID             uint64     `json:"id"`
	UserID         uint64     `json:"userId"`
	IsActive       bool       `json:"isActive"`
	LoginTime      time.Time  `json:"loginTime"`
	LogoutTime     *time.Time `json:"logoutTime,omitempty"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
	IPAddress      string     `json:"ipAddress"`
	UserAgent      string     `json:"userAgent"`
	ClosedReason   string     `json:"closedReason,omitempty"`
}

// List returns the most recent ledger entries across all users. The token
// string itself is never included in responses.
func (h *SessionHandler) List(c echo.Context) error {
	limit := 100
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 1000 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 1000"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.ListRecent(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(sessions), "sessions": toSessionParts(sessions)})
}

// ListByUser returns one user's ledger entries, newest first.
func (h *SessionHandler) ListByUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(sessions), "sessions": toSessionParts(sessions)})
}

// CloseForUser revokes every active session of one user. The ledger is the
// authority consulted by the gate, so revocation is immediate even for
// unexpired tokens.
func (h *SessionHandler) CloseForUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	closed, err := h.Sessions.CloseAllForUser(ctx, userID, model.CloseReasonAdminRevoked)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "close sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "sessions closed", "closed": closed})
}

func toSessionParts(sessions []model.Session) []sessionPart {
	out := make([]sessionPart, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionPart{
			ID:             s.ID,
			UserID:         s.UserID,
			IsActive:       s.IsActive,
			LoginTime:      s.LoginTime,
			LogoutTime:     s.LogoutTime,
			LastActivityAt: s.LastActivityAt,
			IPAddress:      s.IPAddress,
			UserAgent:      s.UserAgent,
			ClosedReason:   s.ClosedReason,
		})
	}
	return out
}

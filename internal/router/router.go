package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/taskdesk/taskdesk/internal/auth"
	"github.com/taskdesk/taskdesk/internal/handler"
	"github.com/taskdesk/taskdesk/internal/middleware"
	"github.com/taskdesk/taskdesk/internal/model"
)

// RegisterRoutes wires every endpoint of the service.
//
// Three tiers:
//   - public auth operations under /v1/auth (register, login, secret-key and
//     password-strength checks), rate limited;
//   - authenticated operations behind the session gate (logout, profile);
//   - admin operations behind the gate plus a role check (plan registry and
//     session ledger).
//
// limiter and cache may be pass-through middlewares when Redis is not
// configured.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler, p *handler.PlanHandler, s *handler.SessionHandler, svc *auth.Service, limiter, cache echo.MiddlewareFunc) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Public group: no session required. These are the brute-force targets,
	// so the token-bucket limiter wraps the whole group.
	pub := e.Group("/v1/auth", limiter)
	pub.POST("/register", a.Register)
	pub.POST("/login", a.Login)
	pub.POST("/validate-secret-key", a.ValidateSecretKey)
	pub.POST("/check-password-strength", a.CheckPasswordStrength)

	// Authenticated group: every request re-validated by the session gate.
	gate := middleware.SessionGate(svc)
	priv := e.Group("/v1/auth", gate)
	priv.POST("/logout", a.Logout)
	priv.GET("/profile", a.Profile)

	// Admin group: gate plus role enforcement.
	admin := e.Group("/v1", gate, middleware.RequireRole(model.RoleAdmin))
	admin.POST("/plans", p.Create)
	admin.GET("/plans", p.List, cache)
	admin.GET("/sessions", s.List)
	admin.GET("/sessions/user/:id", s.ListByUser)
	admin.POST("/sessions/user/:id/close", s.CloseForUser)
}

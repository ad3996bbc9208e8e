package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes. It deliberately touches no dependency: a
// MySQL or Redis outage must not make the process itself look dead to the
// load balancer.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

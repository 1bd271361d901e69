package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Pinger is a dependency the readiness probe checks, e.g. postgres or redis.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	deps    map[string]Pinger
	timeout time.Duration
	logger  *logging.Logger
}

// NewHealthHandler creates a handler checking the named dependencies on /ready.
// optional dependencies that are disabled should simply be left out.
func NewHealthHandler(deps map[string]Pinger, logger *logging.Logger) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		timeout: 2 * time.Second,
		logger:  logger.WithComponent("health"),
	}
}

// RegisterHealthRoutes registers health check endpoints.
// these are public and don't require authentication.
func (h *HealthHandler) RegisterHealthRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
}

// Health returns the basic health status, used for liveness probes.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "peerpods",
	})
}

// Ready pings every dependency. any failure makes the instance unready.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.HealthCheck(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err.Error())
			checks[name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.JSON(code, HealthResponse{
		Status:  status,
		Service: "peerpods",
		Checks:  checks,
	})
}

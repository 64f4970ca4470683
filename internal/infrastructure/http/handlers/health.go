package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
)

const readinessTimeout = 3 * time.Second

// HealthHandler handles GET /health, the liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// HealthDependenciesHandler handles GET /health/ready, the readiness probe.
// Checks that the credential store answers before declaring the service ready.
// Ping failures are logged; the unauthenticated response only says
// "unhealthy".
type HealthDependenciesHandler struct {
	store ports.StorePinger
	log   zerolog.Logger
}

func NewHealthDependenciesHandler(store ports.StorePinger, log zerolog.Logger) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{store: store, log: log}
}

type dependencyStatus struct {
	Status string `json:"status"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true

	switch {
	case h.store == nil:
		h.log.Error().Msg("readiness: no credential store configured")
		deps["store"] = dependencyStatus{Status: "unhealthy"}
		healthy = false
	default:
		if err := h.store.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("readiness: credential store ping failed")
			deps["store"] = dependencyStatus{Status: "unhealthy"}
			healthy = false
		} else {
			deps["store"] = dependencyStatus{Status: "ok"}
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}

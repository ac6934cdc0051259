package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is a dependency that can report whether it is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness checks.
type HealthHandler struct {
	checks map[string]HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler over the named dependencies.
// A nil checker is reported as "not configured" and does not fail readiness.
func NewHealthHandler(checks map[string]HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{checks: checks, logger: logger}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthz reports that the process is up. It never touches dependencies.
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

// Readyz pings every dependency and answers 503 if any fails.
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Version: Version, Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for name, checker := range h.checks {
		if checker == nil {
			resp.Checks[name] = "not configured"
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "error: " + err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

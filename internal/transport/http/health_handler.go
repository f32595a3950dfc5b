package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"kpiboard/internal/services"
)

// HealthHandler exposes the board's health probes and version
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler
func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// probe writes a probe result; probes must never be served from a cache
func probe(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Cache-Control", "no-store")
	render.Status(r, status)
	render.JSON(w, r, body)
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	probe(w, r, http.StatusOK, h.service.HealthCheck(r.Context()))
}

// ReadinessCheck handles GET /api/health/ready: 503 until the first poll
// cycle succeeds, 200 afterwards or when polling is disabled
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.service.ReadinessCheck(r.Context())
	code := http.StatusOK
	if ready.Status == services.StatusNotReady {
		code = http.StatusServiceUnavailable
	}
	probe(w, r, code, ready)
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	probe(w, r, http.StatusOK, h.service.LivenessCheck(r.Context()))
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"kpiboard/internal/classify"
	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/middleware"
	"kpiboard/internal/source"
)

// KPIReader is the remote-read capability behind GET /api/kpi
type KPIReader interface {
	Read(ctx context.Context) (*source.KPIResponse, error)
}

// KPIHandler serves the KPI endpoint and its diagnostics
type KPIHandler struct {
	service      KPIReader
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// ClassifyResponse is the body of GET /api/kpi/classify
type ClassifyResponse struct {
	Label      string `json:"label"`
	Normalized string `json:"normalized"`
	KPI        string `json:"kpi,omitempty"`
	Caption    string `json:"caption,omitempty"`
	Matched    bool   `json:"matched"`
}

// NewKPIHandler creates a new KPI handler
func NewKPIHandler(service KPIReader, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *KPIHandler {
	return &KPIHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "kpi")),
		errorHandler: errorHandler,
	}
}

// Routes returns the KPI routes. CORS runs before any extra middleware so
// that rejections by it still carry the CORS headers.
func (h *KPIHandler) Routes(extra ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(middleware.KPICORS()))
	r.Use(extra...)

	r.Get("/", h.GetKPI)
	r.Get("/rules", h.GetRules)
	r.Get("/classify", h.Classify)
	return r
}

// GetKPI handles GET /api/kpi
func (h *KPIHandler) GetKPI(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Read(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "KPI request failed",
			slog.String("error_code", apperrors.Code(err)))
		apperrors.WriteKPIError(w, err)
		return
	}
	render.JSON(w, r, resp)
}

// GetRules handles GET /api/kpi/rules
func (h *KPIHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, classify.Rules())
}

// Classify handles GET /api/kpi/classify?label=
func (h *KPIHandler) Classify(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if strings.TrimSpace(label) == "" {
		h.errorHandler.HandleError(w, r, apperrors.MissingParameter("label"))
		return
	}

	resp := ClassifyResponse{
		Label:      label,
		Normalized: classify.Normalize(label),
	}
	if id, ok := classify.Classify(label); ok {
		resp.KPI = string(id)
		resp.Caption = id.Label()
		resp.Matched = true
	}
	render.JSON(w, r, resp)
}

package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"kpiboard/internal/display"
	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/exporter"
	"kpiboard/internal/poller"
)

// PollStatusProvider reports the state of the background poll loop
type PollStatusProvider interface {
	Status() poller.Status
}

// DisplayHandler serves the board page and the table snapshot
type DisplayHandler struct {
	table        *display.Table
	poller       PollStatusProvider
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewDisplayHandler creates a display handler. poller may be nil when polling is disabled.
func NewDisplayHandler(table *display.Table, p PollStatusProvider, logger *slog.Logger) *DisplayHandler {
	return &DisplayHandler{
		table:        table,
		poller:       p,
		logger:       logger.With(slog.String("handler", "display")),
		errorHandler: apperrors.NewErrorHandler(logger, false),
	}
}

// Page handles GET / with the current cell values rendered in
func (h *DisplayHandler) Page(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.table.Render(&buf); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render board",
			slog.String("error", err.Error()))
		http.Error(w, "failed to render board", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// Snapshot handles GET /api/display
func (h *DisplayHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.table.Snapshot())
}

// PollerStatus handles GET /api/poller
func (h *DisplayHandler) PollerStatus(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		render.JSON(w, r, map[string]interface{}{"running": false, "enabled": false})
		return
	}
	render.JSON(w, r, h.poller.Status())
}

// Export handles GET /api/display/export?format=csv|xlsx
func (h *DisplayHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid export format", err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := exporter.Encode(&buf, format, exporter.FromSnapshot(h.table.Snapshot())); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="kpi%s"`, format.Extension()))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

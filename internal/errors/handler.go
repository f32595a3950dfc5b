package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/render"

	"kpiboard/internal/infrastructure"
)

// ErrorHandler renders errors from the auxiliary endpoints as RFC 7807
// problems. The KPI endpoint keeps its own {"error": ...} body (WriteKPIError).
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an error handler. includeStack adds a "stack"
// extension to every problem and is meant for development only.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       infrastructure.ForComponent(logger, "error_handler"),
		includeStack: includeStack,
	}
}

// HandleError writes err as a problem. Client errors are logged at warn
// level, everything else at error level.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	level := slog.LevelError
	if problem.Status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	_ = render.Render(w, r, problem)
}

// ErrorToProblem maps err onto a problem: cancellations become timeouts,
// APIErrors keep their status and code, and source failures are reported as
// service-side conditions rather than internal errors.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	var apiErr *APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", path)

	case errors.As(err, &apiErr):
		return h.apiErrorToProblem(apiErr, path)

	case errors.Is(err, ErrConfigMissing):
		return NewProblemDetails(http.StatusServiceUnavailable, TypeServiceDown, "Source Not Configured",
			"No KPI data source is configured", path).
			WithExtension("error_code", CodeConfigMissing)

	case errors.Is(err, ErrInvalidServiceKey):
		return NewProblemDetails(http.StatusServiceUnavailable, TypeServiceDown, "Invalid Service Key",
			"The configured service account key could not be parsed", path).
			WithExtension("error_code", CodeInvalidServiceKey)

	case errors.Is(err, ErrUpstream):
		problem := NewProblemDetails(http.StatusBadGateway, TypeServiceDown, "Upstream Unavailable",
			err.Error(), path)
		var appErr *AppError
		if errors.As(err, &appErr) {
			if src, ok := appErr.Context["source"]; ok {
				problem.WithExtension("source", src)
			}
		}
		return problem

	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
			"An unexpected error occurred while processing your request", path)
	}
}

// problemTypes maps APIError codes onto problem types; unlisted codes are internal
var problemTypes = map[string]string{
	"INVALID_PARAMETER":   TypeValidation,
	"MISSING_PARAMETER":   TypeValidation,
	"NOT_FOUND":           TypeNotFound,
	"RATE_LIMIT_EXCEEDED": TypeRateLimit,
	"SERVICE_UNAVAILABLE": TypeServiceDown,
	"METHOD_NOT_ALLOWED":  TypeMethod,
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, path string) *ProblemDetails {
	problemType, ok := problemTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(apiErr.StatusCode, problemType,
		http.StatusText(apiErr.StatusCode), apiErr.Message, path).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// NotFound is the router's 404 handler
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, NewWithDetails(http.StatusNotFound, "NOT_FOUND",
		"The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed is the router's 405 handler
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method)))
}

func getStackTrace() string {
	buf := make([]byte, 8<<10)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

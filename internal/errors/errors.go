package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes returned in the body of the KPI endpoint
const (
	CodeConfigMissing     = "CONFIG_MISSING"
	CodeInvalidServiceKey = "INVALID_SERVICE_KEY"
)

// Sentinel errors. Wrap them with %w to keep errors.Is working.
var (
	// ErrConfigMissing means a required identifier or credential is absent
	ErrConfigMissing = errors.New("configuration missing")
	// ErrInvalidServiceKey means the service credential payload could not be parsed
	ErrInvalidServiceKey = errors.New("invalid service key")
	// ErrUpstream marks a failed read from the data source
	ErrUpstream = errors.New("upstream fetch failed")
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined errors
var (
	ErrInvalidParameter   = New(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value")
	ErrNotFound           = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrRateLimitExceeded  = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
	ErrInternalServer     = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
)

// MissingParameter creates a 400 error naming the absent parameter
func MissingParameter(name string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "MISSING_PARAMETER", fmt.Sprintf("Required parameter %q is missing", name), name)
}

// KPIErrorBody is the error payload of the KPI endpoint: {"error": "..."}
type KPIErrorBody struct {
	Error string `json:"error"`
}

// Code maps an error onto the KPI endpoint's error string. Configuration and
// credential failures get their fixed codes, anything else its message.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigMissing):
		return CodeConfigMissing
	case errors.Is(err, ErrInvalidServiceKey):
		return CodeInvalidServiceKey
	default:
		return err.Error()
	}
}

// WriteKPIError writes {"error": Code(err)} with status 500
func WriteKPIError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(KPIErrorBody{Error: Code(err)})
}

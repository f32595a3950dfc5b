package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies where a failure came from
type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeCredential ErrorType = "CREDENTIAL"
	ErrTypeUpstream   ErrorType = "UPSTREAM"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeDisplay    ErrorType = "DISPLAY"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// ConfigMissing reports the named settings as absent
func ConfigMissing(fields ...string) *AppError {
	return NewAppError(ErrTypeConfig, "required settings not set", ErrConfigMissing).
		WithContext("fields", fields)
}

// InvalidServiceKey wraps the parse failure of a credential payload
func InvalidServiceKey(cause error) *AppError {
	return NewAppError(ErrTypeCredential, "service key payload is malformed",
		fmt.Errorf("%w: %v", ErrInvalidServiceKey, cause))
}

// Upstream wraps a failed read from the named source
func Upstream(source string, cause error) *AppError {
	return NewAppError(ErrTypeUpstream, "fetch from "+source+" failed",
		fmt.Errorf("%w: %w", ErrUpstream, cause)).WithContext("source", source)
}

// Parsing wraps a payload that arrived but could not be decoded
func Parsing(source string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, "malformed payload from "+source,
		fmt.Errorf("%w: %w", ErrUpstream, cause)).WithContext("source", source)
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

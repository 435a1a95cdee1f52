// Package errors defines custom error types and error handling utilities for the authcore service.
// Errors carry a stable code and an HTTP status so that the transport layer can map them
// without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ================================================================================
// Error Codes
// ================================================================================

const (
	ErrCodeConfiguration         = "configuration_error"
	ErrCodeValidation            = "validation_error"
	ErrCodeInvalidCredentials    = "invalid_credentials"
	ErrCodeDependencyUnavailable = "dependency_unavailable"
	ErrCodeTokenSignature        = "token_signature_invalid"
	ErrCodeTokenExpired          = "token_expired"
	ErrCodeTokenMalformed        = "token_malformed"
	ErrCodeUserNotFound          = "user_not_found"
	ErrCodeInvalidRequest        = "invalid_request"
	ErrCodeUnauthorized          = "unauthorized"
	ErrCodeNotFound              = "not_found"
	ErrCodeInternal              = "internal_error"
)

// ================================================================================
// AppError
// ================================================================================

// AppError represents a structured application error
type AppError struct {
	Code        string
	HTTPStatus  int
	Message     string
	Description string
	cause       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithError returns a copy of the error carrying cause.
func (e *AppError) WithError(cause error) *AppError {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// NewError creates a new AppError with the specified parameters
func NewError(code string, httpStatus int, message, description string) *AppError {
	return &AppError{
		Code:        code,
		HTTPStatus:  httpStatus,
		Message:     message,
		Description: description,
	}
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	// ErrConfiguration is fatal and only raised during startup.
	ErrConfiguration = NewError(ErrCodeConfiguration, http.StatusInternalServerError,
		"invalid configuration", "The service configuration is missing or invalid.")

	// ErrValidation is raised when operator-supplied key material is rejected.
	ErrValidation = NewError(ErrCodeValidation, http.StatusBadRequest,
		"validation failed", "The supplied value failed validation.")

	// ErrInvalidCredentials is the single, generic authentication failure.
	ErrInvalidCredentials = NewError(ErrCodeInvalidCredentials, http.StatusUnauthorized,
		"invalid credentials", "Invalid credentials")

	// ErrDependencyUnavailable marks a shared cache or user store outage.
	ErrDependencyUnavailable = NewError(ErrCodeDependencyUnavailable, http.StatusServiceUnavailable,
		"dependency unavailable", "A backing service is temporarily unavailable.")

	ErrTokenSignature = NewError(ErrCodeTokenSignature, http.StatusUnauthorized,
		"token signature verification failed", "Invalid credentials")
	ErrTokenExpired = NewError(ErrCodeTokenExpired, http.StatusUnauthorized,
		"token has expired", "Invalid credentials")
	ErrTokenMalformed = NewError(ErrCodeTokenMalformed, http.StatusUnauthorized,
		"token is malformed", "Invalid credentials")

	// ErrUserNotFound is returned by user stores when the subject does not exist.
	ErrUserNotFound = NewError(ErrCodeUserNotFound, http.StatusUnauthorized,
		"user not found", "Invalid credentials")

	ErrInvalidRequest = NewError(ErrCodeInvalidRequest, http.StatusBadRequest,
		"invalid request", "The request is missing a required parameter or is otherwise malformed.")
	ErrUnauthorized = NewError(ErrCodeUnauthorized, http.StatusUnauthorized,
		"unauthorized", "Operator credentials are missing or invalid.")
	ErrNotFound = NewError(ErrCodeNotFound, http.StatusNotFound,
		"not found", "The requested resource was not found.")
	ErrInternal = NewError(ErrCodeInternal, http.StatusInternalServerError,
		"internal error", "An unexpected error occurred.")
)

// ================================================================================
// Helpers
// ================================================================================

// Is is a passthrough to the standard library so callers only import this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a passthrough to the standard library.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// New creates a plain error.
func New(message string) error {
	return stderrors.New(message)
}

// AsAppError extracts an AppError from the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAuthenticationError reports whether err should be presented as a generic credential failure.
func IsAuthenticationError(err error) bool {
	return Is(err, ErrInvalidCredentials) ||
		Is(err, ErrTokenSignature) ||
		Is(err, ErrTokenExpired) ||
		Is(err, ErrTokenMalformed) ||
		Is(err, ErrUserNotFound)
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeValidation indicates a client-side validation error raised
	// before any network call is issued
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeRequest indicates the backend rejected a request
	ErrorTypeRequest ErrorType = "REQUEST"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeUnauthorized indicates a missing or rejected credential
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeTerminalFailure indicates an analysis finished in the failed state
	ErrorTypeTerminalFailure ErrorType = "TERMINAL_FAILURE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	// Field names the offending input for validation errors, empty otherwise
	Field string
	// StatusCode carries the HTTP status for request errors, zero otherwise
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error for a named input field
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Field:   field,
		Message: message,
	}
}

// NewRequestError creates a new backend rejection error
func NewRequestError(statusCode int, message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeRequest,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewTerminalFailureError creates an error for an analysis that reached the
// failed state; reason is the backend's free-text failure field and may be empty
func NewTerminalFailureError(reason string) *AppError {
	if reason == "" {
		reason = "Unable to complete the analysis. Please try again."
	}
	return &AppError{
		Type:    ErrorTypeTerminalFailure,
		Message: reason,
	}
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// UserMessage returns the message a user should see for err, falling back to
// the supplied default for errors without a friendly message
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// Package types provides common error types for proper error propagation
package types

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized error codes across the application
type ErrorCode string

const (
	// General errors
	ErrorCodeUnknown    ErrorCode = "UNKNOWN_ERROR"
	ErrorCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrorCodeConflict   ErrorCode = "CONFLICT"
	ErrorCodeRateLimit  ErrorCode = "RATE_LIMIT"
	ErrorCodeTimeout    ErrorCode = "TIMEOUT"
	ErrorCodeCancelled  ErrorCode = "CANCELLED"

	// Access errors
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrorCodeInactive     ErrorCode = "ACCOUNT_INACTIVE"

	// Upload errors
	ErrorCodeUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA"
	ErrorCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
)

// ErrorSeverity indicates the severity of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// AppError represents a structured error with metadata
type AppError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Severity    ErrorSeverity          `json:"severity"`
	HTTPStatus  int                    `json:"http_status"`
	Context     map[string]interface{} `json:"context,omitempty"`
	FieldErrors map[string]string      `json:"field_errors,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	RetryAfter  *time.Duration         `json:"retry_after,omitempty"`

	Cause error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithField records a message against a single request field
func (e *AppError) WithField(field, message string) *AppError {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	e.FieldErrors[field] = message
	return e
}

// WithRetryAfter tells the client when it may try again
func (e *AppError) WithRetryAfter(duration time.Duration) *AppError {
	e.RetryAfter = &duration
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Severity:   SeverityError,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewAppErrorWithCause creates an error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, httpStatus int, cause error) *AppError {
	err := NewAppError(code, message, httpStatus)
	err.Cause = cause
	return err
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(message string, details ...string) *AppError {
	err := NewAppError(ErrorCodeValidation, message, http.StatusBadRequest)
	if len(details) > 0 {
		err.Details = details[0]
	}
	err.Severity = SeverityWarning
	return err
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *AppError {
	err := NewAppError(
		ErrorCodeNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
	).WithContext("resource", resource).WithContext("id", id)
	err.Severity = SeverityInfo
	return err
}

// NewConflictError creates a conflict error for duplicate resources
func NewConflictError(message string) *AppError {
	err := NewAppError(ErrorCodeConflict, message, http.StatusConflict)
	err.Severity = SeverityWarning
	return err
}

// NewUnauthorizedError creates an authentication error
func NewUnauthorizedError(message string) *AppError {
	err := NewAppError(ErrorCodeUnauthorized, message, http.StatusUnauthorized)
	err.Severity = SeverityInfo
	return err
}

// NewForbiddenError creates an authorization error
func NewForbiddenError(message string) *AppError {
	err := NewAppError(ErrorCodeForbidden, message, http.StatusForbidden)
	err.Severity = SeverityWarning
	return err
}

// NewInvalidTokenError creates an error for bad activation or reset links
func NewInvalidTokenError(message string) *AppError {
	err := NewAppError(ErrorCodeInvalidToken, message, http.StatusBadRequest)
	err.Severity = SeverityWarning
	return err
}

// NewRateLimitError creates a throttling error
func NewRateLimitError(retryAfter time.Duration) *AppError {
	err := NewAppError(ErrorCodeRateLimit, "too many requests", http.StatusTooManyRequests)
	err.Severity = SeverityWarning
	return err.WithRetryAfter(retryAfter)
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	err := NewAppErrorWithCause(ErrorCodeInternal, message, http.StatusInternalServerError, cause)
	err.Severity = SeverityCritical
	return err
}

// HTTPStatusFromErrorCode maps an error code to its default HTTP status
func HTTPStatusFromErrorCode(code ErrorCode) int {
	switch code {
	case ErrorCodeValidation, ErrorCodeInvalidToken:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden, ErrorCodeInactive:
		return http.StatusForbidden
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case ErrorCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the code of the first AppError in the chain
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeUnknown
}

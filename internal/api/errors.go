// Package api provides error handling utilities for HTTP APIs
package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/logger"
	"github.com/mantonx/streamhub/internal/types"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error   ErrorDetails `json:"error"`
	Success bool         `json:"success"`
}

// ErrorDetails contains detailed error information
type ErrorDetails struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	FieldErrors map[string]string      `json:"field_errors,omitempty"`
	RetryAfter  int                    `json:"retry_after,omitempty"` // seconds
	Context     map[string]interface{} `json:"context,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
}

// RespondWithError sends a structured error response
func RespondWithError(c *gin.Context, err error) {
	requestID := c.GetString(RequestIDKey)
	if requestID == "" {
		requestID = c.GetHeader("X-Request-ID")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		// Anything not mapped by a handler is an internal failure. The raw
		// message stays in the log only.
		logger.Error("unstructured error", "error", err, "request_id", requestID,
			"path", c.Request.URL.Path)
		appErr = types.NewInternalError("internal server error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error: ErrorDetails{
				Code:      string(appErr.Code),
				Message:   appErr.Message,
				RequestID: requestID,
			},
		})
		return
	}

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetails{
			Code:        string(appErr.Code),
			Message:     appErr.Message,
			Details:     appErr.Details,
			FieldErrors: appErr.FieldErrors,
			Context:     appErr.Context,
			RequestID:   requestID,
		},
	}

	if appErr.RetryAfter != nil {
		seconds := int(appErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response.Error.RetryAfter = seconds
		c.Header("Retry-After", strconv.Itoa(seconds))
	}

	logError(appErr, requestID)

	status := appErr.HTTPStatus
	if status == 0 {
		status = types.HTTPStatusFromErrorCode(appErr.Code)
	}
	c.AbortWithStatusJSON(status, response)
}

// RespondWithInternalError sends an internal error response
func RespondWithInternalError(c *gin.Context, message string, cause error) {
	RespondWithError(c, types.NewInternalError(message, cause))
}

// ParseIDParam reads a positive integer path parameter. On failure it
// writes a validation error and returns false.
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondWithError(c, types.NewValidationError(fmt.Sprintf("invalid %s", name)).
			WithField(name, "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// logError logs rejected requests quietly and failures loudly
func logError(err *types.AppError, requestID string) {
	fields := make([]interface{}, 0, 8+2*len(err.Context))
	fields = append(fields, "code", err.Code, "status", err.HTTPStatus, "request_id", requestID)
	if err.Details != "" {
		fields = append(fields, "details", err.Details)
	}
	for k, v := range err.Context {
		fields = append(fields, k, v)
	}
	if err.Cause != nil {
		fields = append(fields, "cause", err.Cause.Error())
	}

	switch err.Severity {
	case types.SeverityInfo:
		logger.Debug(err.Message, fields...)
	case types.SeverityWarning:
		logger.Warn(err.Message, fields...)
	default:
		logger.Error(err.Message, fields...)
	}
}

// ErrorMiddleware turns a panicking handler into a 500 response. The stack
// is logged, never returned.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			err, ok := recovered.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", recovered)
			}
			logger.Error("handler panicked",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(RequestIDKey),
				"error", err,
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			RespondWithError(c, types.NewInternalError("internal server error", err))
		}()

		c.Next()
	}
}

package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   ErrorCode
		status int
	}{
		{NewValidationError("bad"), ErrorCodeValidation, http.StatusBadRequest},
		{NewNotFoundError("show", "9"), ErrorCodeNotFound, http.StatusNotFound},
		{NewConflictError("dup"), ErrorCodeConflict, http.StatusConflict},
		{NewUnauthorizedError("login"), ErrorCodeUnauthorized, http.StatusUnauthorized},
		{NewForbiddenError("staff"), ErrorCodeForbidden, http.StatusForbidden},
		{NewInvalidTokenError("link"), ErrorCodeInvalidToken, http.StatusBadRequest},
		{NewRateLimitError(time.Second), ErrorCodeRateLimit, http.StatusTooManyRequests},
		{NewInternalError("boom", nil), ErrorCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.status, tt.err.HTTPStatus)
		assert.Equal(t, tt.status, HTTPStatusFromErrorCode(tt.code))
	}
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving poster: %w", NewInternalError("upload failed", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorCodeInternal, CodeOf(err))
	assert.Equal(t, ErrorCodeUnknown, CodeOf(cause))
}

func TestNotFoundCarriesContext(t *testing.T) {
	err := NewNotFoundError("show", "42")
	assert.Equal(t, "show not found", err.Message)
	assert.Equal(t, "42", err.Context["id"])
	assert.Equal(t, "[NOT_FOUND] show not found", err.Error())
}

func TestFieldErrors(t *testing.T) {
	err := NewValidationError("invalid form").WithField("email", "Email is already in use.")
	assert.Equal(t, "Email is already in use.", err.FieldErrors["email"])
}

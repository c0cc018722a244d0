// Package errors defines the sentinel errors of the account module.
// Service code wraps them with %w; handlers map them to API errors.
package errors

import (
	"errors"
)

var (
	// ErrDuplicateEmail indicates the email belongs to another account
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrDuplicateUsername indicates the username belongs to another account
	ErrDuplicateUsername = errors.New("username already in use")

	// ErrPasswordMismatch indicates the two password fields differ
	ErrPasswordMismatch = errors.New("the two password fields didn't match")

	// ErrWeakPassword indicates the password failed the strength rules
	ErrWeakPassword = errors.New("password too weak")

	// ErrInvalidActivationLink covers any undecodable, tampered, expired or used activation link
	ErrInvalidActivationLink = errors.New("activation link is invalid")

	// ErrInvalidResetLink covers any undecodable, tampered, expired or used reset link
	ErrInvalidResetLink = errors.New("password reset link is invalid")

	// ErrInvalidLogin indicates an unknown email or a wrong password
	ErrInvalidLogin = errors.New("invalid login")

	// ErrAccountInactive indicates the account has not been activated
	ErrAccountInactive = errors.New("account is not active")

	// ErrWrongPassword indicates the current password did not match
	ErrWrongPassword = errors.New("your old password was entered incorrectly")

	// ErrAccountNotFound indicates no account matched the lookup
	ErrAccountNotFound = errors.New("account does not exist")

	// ErrInvalidInput indicates malformed field values
	ErrInvalidInput = errors.New("invalid input")
)

// FieldError ties a sentinel error to the request field that caused it
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Field wraps err with a user-facing message for one field
func Field(field, message string, err error) error {
	return &FieldError{Field: field, Message: message, Err: err}
}

// Package apperror defines the application's error taxonomy.
//
// Services return *AppError values wrapping one of the sentinel errors below.
// The HTTP layer maps sentinels to status codes with errors.Is, and pulls the
// human-readable message out with errors.As — it never inspects raw driver or
// library errors, and raw errors never reach the client.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service error")
)

// AppError carries a sentinel (for errors.Is), a message safe to show the
// caller, and optionally the request fields that caused the failure.
type AppError struct {
	Err     error    // sentinel from the set above
	Message string   // human-readable, client-safe
	Fields  []string // optional: offending request fields
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound signals that a resource does not exist.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed signals invalid input. fields lists every failing field so
// the caller can fix all of them in one round trip.
func ValidationFailed(message string, fields ...string) *AppError {
	if message == "" && len(fields) > 0 {
		message = fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
	}
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Fields:  fields,
	}
}

// Conflict signals a unique-constraint collision (existing account).
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with this %s", resource, field),
		Fields:  []string{field},
	}
}

// Unauthorized signals a missing, invalid, or mismatched credential.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "Unauthorized."
	}
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden signals that the caller's identity does not permit the action.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "Access Denied."
	}
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Upstream signals a failure in an external collaborator (OAuth provider).
// The wrapped cause stays server-side; only the message is exposed.
func Upstream(service string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrUpstream, service, cause),
		Message: fmt.Sprintf("%s is currently unavailable, please try again.", service),
	}
}

// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Application error taxonomy. Callers wrap these with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// Remote service errors.
	ErrNotConfigured = errors.New("service not configured")
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	ErrTimeout       = errors.New("request timed out")
	ErrRemote        = errors.New("remote service error")

	// Input errors.
	ErrValidation = errors.New("validation failed")

	// Storage errors.
	ErrPersistence = errors.New("persistence failed")
	ErrNotFound    = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage returns the user-facing text carried by err, or fallback when
// err does not carry one.
func UserMessage(err error, fallback string) string {
	var userErr *UserError
	if errors.As(err, &userErr) && userErr.UserMessage != "" {
		return userErr.UserMessage
	}
	return fallback
}

// IsRemoteFailure reports whether err belongs to the remote-service family
// that callers convert into fallbacks instead of propagating.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRemote)
}

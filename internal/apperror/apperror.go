// Package apperror defines the error taxonomy shared by the service and
// handler layers.
//
// The sentinels matter more than the messages: services wrap them with
// %w and handlers use errors.Is to pick a status code. Authentication
// failures are deliberately generic: a bad password, an unknown email,
// a revoked token and an inactive user all surface as the same
// ErrAuthentication so callers cannot enumerate accounts.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is the single generic denial for every failed
	// credential check. Never attach detail that reveals which check
	// failed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrConflict signals a uniqueness violation (email, username,
	// provider id, token hash). Surfaced distinctly so callers can
	// react, e.g. retry a social signup as a link.
	ErrConflict = errors.New("conflict")

	// ErrValidation signals malformed input. Carries field detail since
	// shape errors hold no secrets.
	ErrValidation = errors.New("validation error")

	// ErrNotFound signals an absent record on a non-credential lookup.
	ErrNotFound = errors.New("not found")

	// ErrProvider signals that an external identity provider was
	// unreachable or rejected a token. Handlers collapse it into a
	// generic authentication denial; the cause is only logged.
	ErrProvider = errors.New("provider verification failed")
)

// AppError pairs a sentinel with a human-readable message and an
// optional offending field.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AuthenticationFailed returns the generic credential denial. The reason
// is intentionally not part of the message.
func AuthenticationFailed() *AppError {
	return &AppError{
		Err:     ErrAuthentication,
		Message: "invalid credentials",
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with %s", resource, key),
	}
}

// ProviderFailed wraps an upstream provider error. The underlying cause
// stays in the chain for logging but the message is generic.
func ProviderFailed(provider string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrProvider, cause),
		Message: fmt.Sprintf("%s verification failed", provider),
	}
}

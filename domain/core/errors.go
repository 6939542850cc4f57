package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrFarmerNotFound = fmt.Errorf("%w: farmer", ErrNotFound)

	// Input errors. Never retried: they are caller bugs.
	ErrInvalidInput = errors.New("invalid input")

	// Model errors. The caller decides whether to retry after a load attempt.
	ErrModelUnavailable = errors.New("model unavailable")
	ErrSchemaMismatch   = fmt.Errorf("%w: feature schema mismatch", ErrModelUnavailable)

	// Farmer account errors
	ErrDuplicateContact   = errors.New("contact already registered")
	ErrInvalidCredentials = errors.New("invalid contact or password")
)

// NewInvalidInputError reports a raw observation field that is missing or not a number.
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: field %s %s", ErrInvalidInput, field, reason)
}

// NewModelUnavailableError wraps the reason a classifier or codec cannot be used.
func NewModelUnavailableError(reason string) error {
	return fmt.Errorf("%w: %s", ErrModelUnavailable, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsModelUnavailableError(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}

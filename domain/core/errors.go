package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Hard failures, surfaced immediately
	ErrInvalidInput             = errors.New("invalid input")
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")

	// Recovered locally and annotated; only returned when a caller asks for strictness
	ErrDegenerateCase       = errors.New("degenerate case")
	ErrNumericalInstability = errors.New("numerical instability")

	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewUnsupportedMethodError(family, name string) error {
	return fmt.Errorf("%w: unknown %s method %q", ErrUnsupportedConfiguration, family, name)
}

func NewUnsupportedPreferenceError(method, key string) error {
	return fmt.Errorf("%w: method %q does not recognize preference %q", ErrUnsupportedConfiguration, method, key)
}

func NewDegenerateError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDegenerateCase, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsUnsupportedConfiguration(err error) bool {
	return errors.Is(err, ErrUnsupportedConfiguration)
}

func IsDegenerate(err error) bool {
	return errors.Is(err, ErrDegenerateCase)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

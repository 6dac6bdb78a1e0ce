package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller-supplied input problems (HTTP 400).
	ErrValidation = errors.New("validation failed")

	// ErrMissingIdentity is returned when uid or email is absent
	ErrMissingIdentity = fmt.Errorf("%w: uid and email required", ErrValidation)

	// ErrCallerNotFound is returned when a caller is not registered
	ErrCallerNotFound = errors.New("caller not found")
)

// ValidationMessage returns the user-facing part of a validation error.
func ValidationMessage(err error) string {
	if errors.Is(err, ErrMissingIdentity) {
		return "uid and email required"
	}
	return "invalid request"
}

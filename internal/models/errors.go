package models

import (
	"errors"
	"fmt"
)

// Domain errors are returned as values and mapped to HTTP status codes at the
// handler layer. Services never log or format them for end users.

// UnauthorizedError indicates an authorization rule denied the action
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

// ValidationError indicates an input violates an entity invariant
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Constraint)
}

// InsufficientAvailabilityError indicates a booking exceeds the remaining spots.
// Available carries the current count so the caller can retry with fewer people.
type InsufficientAvailabilityError struct {
	Available int
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability: %d spot(s) remaining", e.Available)
}

// NotFoundError indicates a referenced entity does not exist
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.EntityType, e.ID)
}

// ErrConflictRetryExhausted is returned when the atomic availability update
// kept conflicting with concurrent transactions after bounded retries. It is a
// transient-failure signal, distinct from InsufficientAvailabilityError.
var ErrConflictRetryExhausted = errors.New("booking conflicted with concurrent updates, please retry")

// IsUnauthorized reports whether err is an authorization denial
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

// IsNotFound reports whether err is a missing-entity error
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

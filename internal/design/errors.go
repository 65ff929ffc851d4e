package design

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID does not resolve.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError reports invalid client input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// QuotaExceededError is returned when a generation would exceed the user's
// monthly allowance.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("generation quota exceeded (%d/%d)", e.Used, e.Limit)
}

// ConflictError is returned when an operation is not valid for the
// session's current status.
type ConflictError struct {
	Status Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("operation not allowed in status %q", e.Status)
}

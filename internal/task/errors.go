package task

import (
	"errors"
	"fmt"
)

// Common task errors.
var (
	// ErrNotFound indicates the referenced task id is absent from the index.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidTransition indicates a status change that violates the
	// task lifecycle.
	ErrInvalidTransition = errors.New("invalid task transition")
)

// NotFoundError wraps ErrNotFound with the missing id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a typed not found error.
func NewNotFoundError(id string) error {
	return &NotFoundError{ID: id}
}

// InvalidTransitionError wraps ErrInvalidTransition with the attempted change.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: cannot transition from %s to %s", e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTransition checks if an error is a transition violation.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

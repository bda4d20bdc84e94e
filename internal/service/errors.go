package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrDuplicateID       = errors.New("duplicate job id")
	ErrAlreadyTerminal   = errors.New("job already finished")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrLeaseLost         = errors.New("job claim lost")
	ErrValidation        = errors.New("validation failed")
)

// ValidationError rejects a request before it reaches the queue.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

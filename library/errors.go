package library

import (
	"errors"
	"fmt"

	"library-insight/internal/validation"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a write that would break a uniqueness or availability rule.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError reports malformed input. Err carries the field-level detail when
// the failure came from struct validation.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func notFound(kind string, id any) error { return &NotFoundError{Kind: kind, ID: id} }

func conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// validate runs struct validation and wraps any failure as a ValidationError.
func validate(kind string, v any) error {
	if err := validation.ValidateStruct(v); err != nil {
		return &ValidationError{Reason: "invalid " + kind, Err: err}
	}
	return nil
}

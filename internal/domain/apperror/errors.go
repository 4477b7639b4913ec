// Package apperror defines the error taxonomy surfaced to callers:
// validation, authorization, persistence, not-found and conflict.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any state change was attempted
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks an operation the caller's role may not invoke
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence marks a storage failure
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound marks a missing entity
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation that is invalid for the entity's current state
	ErrConflict = errors.New("conflict")
)

// GenericPersistenceMessage is shown when storage provides no detail
const GenericPersistenceMessage = "The operation could not be saved. Please try again."

// ValidationError describes a single invalid field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation builds a ValidationError with a formatted message
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError is returned when a role is not in an action's allowed set
type AuthorizationError struct {
	Role   string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q is not permitted to %s", e.Role, e.Action)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// PersistenceError wraps a storage failure with an optional user-facing detail
type PersistenceError struct {
	Op     string
	Detail string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message())
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Message returns the detail when known, otherwise a generic fallback
func (e *PersistenceError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return GenericPersistenceMessage
}

// Persistence wraps err as a PersistenceError for op.
// An err that already is a PersistenceError is returned as is.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// NotFound reports a missing entity of kind what
func NotFound(what string, id interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
}

// Conflict reports an operation rejected by the entity's current state
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// UserMessage returns the text suitable for showing to an end user
func UserMessage(err error) string {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Message()
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

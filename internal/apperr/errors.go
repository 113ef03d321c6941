// Package apperr defines the error kinds shared across the Mimir core.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrAlreadyExists      = errors.New("already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError rejects an entity before persistence. The message always
// names the offending field so it can be surfaced to the caller verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for the given field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CorruptRecordError marks a persisted entity that could not be decoded.
// List and sweep paths absorb it with a logged warning; it is never the
// caller-visible failure of an enclosing call.
type CorruptRecordError struct {
	Workspace string
	Kind      string
	ID        string
	Err       error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %s/%s/%s: %v", e.Workspace, e.Kind, e.ID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

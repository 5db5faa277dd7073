package domain

import (
	"errors"
	"fmt"
)

// Validation failures. All are recoverable and safe to show to the caller.
var (
	ErrItemUnavailable         = errors.New("item is not available")
	ErrIncompatibleType        = errors.New("transaction type not permitted for this item")
	ErrInvalidState            = errors.New("transition not allowed from current state")
	ErrMissingField            = errors.New("required field missing")
	ErrInvalidField            = errors.New("invalid field value")
	ErrTransactionNotCompleted = errors.New("transaction is not completed")
	ErrNotParticipant          = errors.New("not a participant in this transaction")
	ErrDuplicateRating         = errors.New("rating already submitted")
	ErrInvalidScore            = errors.New("rating must be between 1 and 5")
	ErrTooManyPending          = errors.New("too many pending requests")
	ErrOwnItem                 = errors.New("cannot request your own item")
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("forbidden")
)

// FieldError names the offending field. It unwraps to ErrMissingField or ErrInvalidField.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

func Missing(field string) error { return &FieldError{Field: field, Err: ErrMissingField} }
func Invalid(field string) error { return &FieldError{Field: field, Err: ErrInvalidField} }

// ConflictError wraps a storage failure (constraint violation, locked database).
// The whole operation may be retried.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string { return fmt.Sprintf("%s: storage conflict: %v", e.Op, e.Err) }
func (e *ConflictError) Unwrap() error { return e.Err }

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

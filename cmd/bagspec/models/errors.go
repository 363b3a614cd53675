package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no record matches the token
	ErrNotFound = errors.New("not found")

	// ErrInvalidLink means a submission targeted an unresolvable token
	ErrInvalidLink = errors.New("invalid form link")

	// ErrEmptySubmission means the payload had no bag entries
	ErrEmptySubmission = errors.New("please add bag specification")

	// ErrMissingField matches any *MissingFieldError
	ErrMissingField = errors.New("missing required field")

	// ErrValidation matches any *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps store failures; the transaction was rolled back
	ErrPersistence = errors.New("persistence failure")

	// ErrNotification wraps mail delivery failures; state is kept
	ErrNotification = errors.New("notification failure")

	ErrDuplicateSize  = errors.New("this size already exists")
	ErrSizeNotFound   = errors.New("size not found")
	ErrTokenCollision = errors.New("token already in use")
)

// MissingFieldError reports a required specification field left blank
type MissingFieldError struct {
	BagType BagType
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required for %s bags", FieldLabel(e.Field), e.BagType.Title())
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// ValidationError reports bad input before any state changes
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

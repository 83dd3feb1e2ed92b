package store

import (
	"errors"
	"fmt"

	"almmr/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
	ErrReferenced = errors.New("record is referenced")
)

// NotFoundError reports a missing (or archived) record.
type NotFoundError struct {
	Kind models.Kind
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed input. Field uses the JSON name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ReferenceError is returned when archiving a record that live perfumes
// still point at.
type ReferenceError struct {
	Kind  models.Kind
	ID    uint
	Count int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d is referenced by %d registered perfume(s)", e.Kind, e.ID, e.Count)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrReferenced }

func notFound(kind models.Kind, id uint) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

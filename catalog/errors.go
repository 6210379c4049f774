package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrLibraryNotFound is matched by every *ReferentialError.
	ErrLibraryNotFound = errors.New("library does not exist")

	// ErrMissingOwner is returned when a store call is made without an owner scope.
	ErrMissingOwner = errors.New("owner id must not be empty")

	// ErrInvalidLendingID is returned when a lending id is empty or collides with the pending sentinel.
	ErrInvalidLendingID = errors.New("lending id is not valid")

	// ErrUnknownLanguage is returned when a language code is not one of the supported codes.
	ErrUnknownLanguage = errors.New("unknown language")
)

// ValidationError reports the first rule an input violated.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) hold for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Message: message}
}

// ReferentialError reports a book that points to a library the owner does not have.
type ReferentialError struct {
	LibraryID uuid.UUID
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("library (id: %s) does not exist", e.LibraryID)
}

// Is makes errors.Is(err, ErrLibraryNotFound) hold for any *ReferentialError.
func (e *ReferentialError) Is(target error) bool {
	return target == ErrLibraryNotFound
}

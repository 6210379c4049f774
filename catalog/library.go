package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// LibraryInput is the write model for creating or updating a library.
// ID is ignored on create and required on update.
type LibraryInput struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" validate:"min=1,max=100"`
	Description string    `json:"description" validate:"max=512"`
}

// Normalized returns a copy with surrounding whitespace removed.
func (in LibraryInput) Normalized() LibraryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	return in
}

// Library is a named collection of books owned by one user.
type Library struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// LibraryWithCount is a Library with the number of books it holds at read time.
type LibraryWithCount struct {
	Library
	BooksCount int64 `json:"booksCount"`
}

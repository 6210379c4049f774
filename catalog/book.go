package catalog

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultPageSize is used when a listing is requested without a page size.
	DefaultPageSize = 5

	// MaxPageSize caps the page size of every book listing.
	MaxPageSize = 100

	// MaxPageOffset is the largest page index whose row offset fits an int at MaxPageSize.
	MaxPageOffset = math.MaxInt / MaxPageSize
)

// Language is the language code of a book as clients send it.
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "gb"
)

// SearchConfiguration maps the language code to the PostgreSQL text search configuration name.
func (l Language) SearchConfiguration() (string, error) {
	switch l {
	case LanguageFrench:
		return "french", nil
	case LanguageEnglish:
		return "english", nil
	default:
		return "", ErrUnknownLanguage
	}
}

// LanguageFromSearchConfiguration is the inverse of Language.SearchConfiguration.
func LanguageFromSearchConfiguration(configuration string) (Language, error) {
	switch configuration {
	case "french":
		return LanguageFrench, nil
	case "english":
		return LanguageEnglish, nil
	default:
		return "", ErrUnknownLanguage
	}
}

// BookInput is the write model for creating or updating a book.
// Thumbnail carries base64 image data; the store keeps only its ThumbnailRef.
type BookInput struct {
	ID           uuid.UUID `json:"id"`
	LibraryID    uuid.UUID `json:"libraryId"`
	Title        string    `json:"title" validate:"min=1,max=100"`
	Description  string    `json:"description" validate:"max=1024"`
	ISBN10       string    `json:"isbn10" validate:"omitempty,max=30,isbn10shape"`
	ISBN13       string    `json:"isbn13" validate:"omitempty,max=30,isbn13shape"`
	Thumbnail    string    `json:"thumbnail" validate:"omitempty,base64"`
	Authors      []string  `json:"authors" validate:"dive,max=100"`
	Tags         []string  `json:"tags" validate:"dive,max=100"`
	Language     Language  `json:"language" validate:"oneof=fr gb"`
	BookSet      string    `json:"bookSet" validate:"max=100"`
	BookSetOrder int       `json:"bookSetOrder"`
}

// Normalized returns a copy with trimmed strings and non-nil author and tag lists.
func (in BookInput) Normalized() BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ISBN10 = strings.TrimSpace(in.ISBN10)
	in.ISBN13 = strings.TrimSpace(in.ISBN13)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)
	in.BookSet = strings.TrimSpace(in.BookSet)
	in.Authors = trimAll(in.Authors)
	in.Tags = trimAll(in.Tags)

	return in
}

func trimAll(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			trimmed = append(trimmed, value)
		}
	}

	return trimmed
}

// LibraryRef names the library a book belongs to.
type LibraryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Book is the read model of a stored book.
type Book struct {
	ID           uuid.UUID    `json:"id"`
	OwnerID      string       `json:"-"`
	Library      LibraryRef   `json:"library"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ISBN10       string       `json:"isbn10"`
	ISBN13       string       `json:"isbn13"`
	ThumbnailRef string       `json:"thumbnailRef"`
	Authors      []string     `json:"authors"`
	Tags         []string     `json:"tags"`
	Language     Language     `json:"language"`
	BookSet      string       `json:"bookSet"`
	BookSetOrder int          `json:"bookSetOrder"`
	ContentHash  string       `json:"hash"`
	LendingState LendingState `json:"lendingId"`
}

// BooksPage is one page of a book listing together with the total match count.
type BooksPage struct {
	ItemsPerPage int    `json:"itemsPerPage"`
	Total        int64  `json:"total"`
	Books        []Book `json:"books"`
}

// PageSize clamps a requested page size to [1, MaxPageSize], defaulting to DefaultPageSize.
func PageSize(requested int) int {
	switch {
	case requested <= 0:
		return DefaultPageSize
	case requested > MaxPageSize:
		return MaxPageSize
	default:
		return requested
	}
}

// PageOffset clamps a zero-based page index to [0, MaxPageOffset].
func PageOffset(requested int) int {
	switch {
	case requested < 0:
		return 0
	case requested > MaxPageOffset:
		return MaxPageOffset
	default:
		return requested
	}
}

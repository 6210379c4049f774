package helper

import (
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/celsus/core/catalog"
)

// FixtureThumbnailBytes is a tiny, valid-looking PNG header used as thumbnail content.
var FixtureThumbnailBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d}

// GivenUniqueID generates a unique UUID for testing.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// GivenUniqueOwner builds a guard for a fresh owner, so tests never see each other's rows.
func GivenUniqueOwner(t testing.TB) catalog.AuthorizationGuard {
	guard, err := catalog.GuardFor("user-" + GivenUniqueID(t).String())
	require.NoError(t, err, "error in arranging test data")

	return guard
}

// FixtureLibraryInput returns a valid library input.
func FixtureLibraryInput() catalog.LibraryInput {
	return catalog.LibraryInput{
		Name:        "Science fiction",
		Description: "Everything from the golden age onwards",
	}
}

// FixtureBookInput returns a valid book input for the given library.
func FixtureBookInput(libraryID uuid.UUID) catalog.BookInput {
	return catalog.BookInput{
		LibraryID:    libraryID,
		Title:        "Les Misérables",
		Description:  "Roman de Victor Hugo, publié en 1862",
		ISBN10:       "2-07-040850-X",
		ISBN13:       "978-2-07-040850-4",
		Thumbnail:    base64.StdEncoding.EncodeToString(FixtureThumbnailBytes),
		Authors:      []string{"Victor Hugo"},
		Tags:         []string{"roman", "classique"},
		Language:     catalog.LanguageFrench,
		BookSet:      "",
		BookSetOrder: 0,
	}
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celsus/core/catalog"
)

type bookCreatorSpy struct {
	created []catalog.BookInput
	failAt  int
}

func (s *bookCreatorSpy) CreateBook(_ context.Context, _ catalog.AuthorizationGuard, in catalog.BookInput) (uuid.UUID, error) {
	if s.failAt > 0 && len(s.created)+1 == s.failAt {
		return uuid.Nil, &catalog.ReferentialError{LibraryID: in.LibraryID}
	}

	s.created = append(s.created, in)

	return uuid.New(), nil
}

func Test_ParseBooksCSV(t *testing.T) {
	// arrange
	libraryID := uuid.New()
	input := `title,authors,tags,isbn13,language,bookSet,bookSetOrder
Les Misérables,Victor Hugo,roman|classique,978-2-07-040850-4,fr,,
"Dune, Part One",Frank Herbert|Brian Herbert,sf,,,Dune,1
`

	// act
	books, err := parseBooksCSV(strings.NewReader(input), libraryID)

	// assert
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, libraryID, books[0].LibraryID)
	assert.Equal(t, "Les Misérables", books[0].Title)
	assert.Equal(t, []string{"Victor Hugo"}, books[0].Authors)
	assert.Equal(t, []string{"roman", "classique"}, books[0].Tags)
	assert.Equal(t, catalog.LanguageFrench, books[0].Language)
	assert.Equal(t, 0, books[0].BookSetOrder)

	assert.Equal(t, "Dune, Part One", books[1].Title)
	assert.Equal(t, []string{"Frank Herbert", "Brian Herbert"}, books[1].Authors)
	assert.Equal(t, catalog.LanguageEnglish, books[1].Language, "language defaults to gb")
	assert.Equal(t, "Dune", books[1].BookSet)
	assert.Equal(t, 1, books[1].BookSetOrder)
}

func Test_ParseBooksCSV_Fails(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty input", input: "", wantErr: ErrMalformedRow},
		{name: "no title column", input: "name,authors\nDune,Frank Herbert\n", wantErr: ErrMissingTitleColumn},
		{name: "non numeric order", input: "title,bookSet,bookSetOrder\nDune,Dune,first\n", wantErr: ErrMalformedRow},
		{name: "wrong field count", input: "title,authors\nDune\n", wantErr: ErrMalformedRow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := parseBooksCSV(strings.NewReader(tc.input), uuid.New())

			// assert
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_ImportBooks_CreatesEveryBook(t *testing.T) {
	// arrange
	store := &bookCreatorSpy{}
	guard, _ := catalog.GuardFor("user-1")
	books := []catalog.BookInput{{Title: "A"}, {Title: "B"}}
	out := &bytes.Buffer{}

	// act
	err := importBooks(context.Background(), store, guard, books, out)

	// assert
	require.NoError(t, err)
	assert.Len(t, store.created, 2)
	assert.Contains(t, out.String(), "imported 2 books")
}

func Test_ImportBooks_StopsAtTheFirstFailure(t *testing.T) {
	// arrange
	store := &bookCreatorSpy{failAt: 2}
	guard, _ := catalog.GuardFor("user-1")
	books := []catalog.BookInput{{Title: "A"}, {Title: "B"}, {Title: "C"}}

	// act
	err := importBooks(context.Background(), store, guard, books, &bytes.Buffer{})

	// assert
	assert.ErrorIs(t, err, catalog.ErrLibraryNotFound)
	assert.Contains(t, err.Error(), `book 2 ("B")`)
	assert.Len(t, store.created, 1)

	var referential *catalog.ReferentialError
	assert.True(t, errors.As(err, &referential))
}

func Test_Import_RequiresOwnerAndLibrary(t *testing.T) {
	// arrange
	_, execute := givenRootCommand(nil, "import", "books.csv")

	// act
	err := execute()

	// assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

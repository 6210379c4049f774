package postgresengine_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celsus/core/catalog"
	. "github.com/celsus/core/catalog/postgresengine"
	. "github.com/celsus/core/testutil/helper"
	"github.com/celsus/core/testutil/pgtest"
)

func givenLibrary(t *testing.T, ctx context.Context, cs *CatalogStore, guard catalog.AuthorizationGuard, name string) uuid.UUID {
	t.Helper()

	in := FixtureLibraryInput()
	in.Name = name

	id, err := cs.CreateLibrary(ctx, guard, in)
	require.NoError(t, err, "error in arranging test data")

	return id
}

func givenBook(t *testing.T, ctx context.Context, cs *CatalogStore, guard catalog.AuthorizationGuard, libraryID uuid.UUID, title string) uuid.UUID {
	t.Helper()

	in := FixtureBookInput(libraryID)
	in.Title = title
	in.Thumbnail = ""

	id, err := cs.CreateBook(ctx, guard, in)
	require.NoError(t, err, "error in arranging test data")

	return id
}

func Test_Libraries_CreateUpdateGetList(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	zetaID := givenLibrary(t, ctx, cs, guard, "Zeta")
	alphaID := givenLibrary(t, ctx, cs, guard, "  Alpha  ")
	givenBook(t, ctx, cs, guard, zetaID, "Dune")

	// act
	updated, updateErr := cs.UpdateLibrary(ctx, guard, catalog.LibraryInput{ID: alphaID, Name: "Alpha", Description: "first"})
	libraries, listErr := cs.ListLibraries(ctx, guard)
	zeta, getErr := cs.GetLibrary(ctx, guard, zetaID)

	// assert
	require.NoError(t, updateErr)
	require.NoError(t, listErr)
	require.NoError(t, getErr)
	assert.True(t, updated)
	require.Len(t, libraries, 2)
	assert.Equal(t, "Alpha", libraries[0].Name, "libraries are ordered by name and trimmed")
	assert.Equal(t, "first", libraries[0].Description)
	assert.Equal(t, int64(0), libraries[0].BooksCount)
	require.NotNil(t, zeta)
	assert.Equal(t, int64(1), zeta.BooksCount)
}

func Test_Libraries_AreInvisibleToOtherOwners(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	owner := GivenUniqueOwner(t)
	stranger := GivenUniqueOwner(t)
	libraryID := givenLibrary(t, ctx, cs, owner, "Private")

	// act
	library, getErr := cs.GetLibrary(ctx, stranger, libraryID)
	updated, updateErr := cs.UpdateLibrary(ctx, stranger, catalog.LibraryInput{ID: libraryID, Name: "Mine now"})
	deleted, deleteErr := cs.DeleteLibrary(ctx, stranger, libraryID)
	_, createErr := cs.CreateBook(ctx, stranger, FixtureBookInput(libraryID))

	// assert
	require.NoError(t, getErr)
	require.NoError(t, updateErr)
	require.NoError(t, deleteErr)
	assert.Nil(t, library)
	assert.False(t, updated)
	assert.False(t, deleted)
	assert.ErrorIs(t, createErr, catalog.ErrLibraryNotFound)
}

func Test_CreateBook_InAnotherOwnersLibraryWritesNoRows(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	owner := GivenUniqueOwner(t)
	stranger := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, owner, "Private")
	in := FixtureBookInput(libraryID)
	in.Thumbnail = ""

	// act
	id, err := cs.CreateBook(ctx, stranger, in)

	// assert
	var referentialErr *catalog.ReferentialError
	require.ErrorAs(t, err, &referentialErr)
	assert.Equal(t, libraryID, referentialErr.LibraryID)
	assert.Equal(t, uuid.Nil, id)
	assert.Equal(t, int64(0), pgtest.CountRows(t, cs, "book"))
	assert.Equal(t, int64(0), pgtest.CountRows(t, cs, "books_search"))
}

func Test_DeleteLibrary_CascadesOnlyWhenNoBookIsLent(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Shelf")
	lentBookID := givenBook(t, ctx, cs, guard, libraryID, "Lent")
	givenBook(t, ctx, cs, guard, libraryID, "Free")
	title, err := cs.TransitionToLendingPending(ctx, guard, lentBookID)
	require.NoError(t, err)
	require.NotNil(t, title)

	// act
	refused, refusedErr := cs.DeleteLibrary(ctx, guard, libraryID)
	pageWhileLent, _ := cs.ListBooksFromLibrary(ctx, guard, libraryID, 0, 10)

	_, err = cs.TransitionToNotLent(ctx, guard, lentBookID)
	require.NoError(t, err)

	accepted, acceptedErr := cs.DeleteLibrary(ctx, guard, libraryID)
	again, againErr := cs.DeleteLibrary(ctx, guard, libraryID)
	lentBook, _ := cs.GetBook(ctx, guard, lentBookID)

	// assert
	require.NoError(t, refusedErr)
	require.NoError(t, acceptedErr)
	require.NoError(t, againErr)
	assert.False(t, refused)
	assert.Equal(t, int64(2), pageWhileLent.Total, "a refused delete leaves every book in place")
	assert.True(t, accepted)
	assert.False(t, again, "deleting twice is a plain false")
	assert.Nil(t, lentBook, "books are deleted with their library")
}

func Test_Books_CreateGetUpdateDelete(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Classics")
	otherLibraryID := givenLibrary(t, ctx, cs, guard, "Elsewhere")
	in := FixtureBookInput(libraryID)
	in.Thumbnail = ""

	// act
	bookID, createErr := cs.CreateBook(ctx, guard, in)
	require.NoError(t, createErr)
	created, _ := cs.GetBook(ctx, guard, bookID)

	in.ID = bookID
	in.LibraryID = otherLibraryID
	in.Tags = []string{"favori"}
	updated, updateErr := cs.UpdateBook(ctx, guard, in)
	moved, _ := cs.GetBook(ctx, guard, bookID)

	deleted, deleteErr := cs.DeleteBook(ctx, guard, bookID)
	again, _ := cs.DeleteBook(ctx, guard, bookID)

	// assert
	require.NotNil(t, created)
	assert.Equal(t, "Les Misérables", created.Title)
	assert.Equal(t, []string{"Victor Hugo"}, created.Authors)
	assert.Equal(t, catalog.LanguageFrench, created.Language)
	assert.True(t, created.LendingState.IsNone())
	assert.NotEmpty(t, created.ContentHash)

	require.NoError(t, updateErr)
	assert.True(t, updated)
	require.NotNil(t, moved)
	assert.Equal(t, otherLibraryID, moved.Library.ID)
	assert.Equal(t, []string{"favori"}, moved.Tags)
	assert.NotEqual(t, created.ContentHash, moved.ContentHash)

	require.NoError(t, deleteErr)
	assert.True(t, deleted)
	assert.False(t, again)
}

func Test_UpdateBook_KeepsALentBookInItsLibrary(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Home")
	otherLibraryID := givenLibrary(t, ctx, cs, guard, "Office")
	bookID := givenBook(t, ctx, cs, guard, libraryID, "On loan")
	_, err := cs.TransitionToLendingConfirmed(ctx, guard, bookID, "L1")
	require.NoError(t, err)

	in := FixtureBookInput(otherLibraryID)
	in.ID = bookID
	in.Thumbnail = ""

	// act
	moved, moveErr := cs.UpdateBook(ctx, guard, in)
	in.LibraryID = libraryID
	in.Title = "On loan, renamed"
	renamed, renameErr := cs.UpdateBook(ctx, guard, in)
	deleted, deleteErr := cs.DeleteBook(ctx, guard, bookID)

	// assert
	require.NoError(t, moveErr)
	require.NoError(t, renameErr)
	require.NoError(t, deleteErr)
	assert.False(t, moved)
	assert.True(t, renamed)
	assert.False(t, deleted, "a lent book cannot be deleted")
}

func Test_ListBooksFromLibrary_PagesByTitleThenID(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Alphabet")
	for _, title := range []string{"E", "C", "A", "D", "B", "F", "G"} {
		givenBook(t, ctx, cs, guard, libraryID, title)
	}

	// act
	first, firstErr := cs.ListBooksFromLibrary(ctx, guard, libraryID, 0, 3)
	third, thirdErr := cs.ListBooksFromLibrary(ctx, guard, libraryID, 2, 3)
	defaults, defaultsErr := cs.ListBooksFromLibrary(ctx, guard, libraryID, 0, 0)

	// assert
	require.NoError(t, firstErr)
	require.NoError(t, thirdErr)
	require.NoError(t, defaultsErr)
	assert.Equal(t, int64(7), first.Total)
	assert.Equal(t, []string{"A", "B", "C"}, titles(first.Books))
	assert.Equal(t, []string{"G"}, titles(third.Books))
	assert.Len(t, defaults.Books, catalog.DefaultPageSize)
}

func Test_SearchBooks_IsDiacriticInsensitiveAndNarrowsWithEveryKeyword(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)
	stranger := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Search")
	givenBook(t, ctx, cs, guard, libraryID, "Les Misérables")
	givenBook(t, ctx, cs, guard, libraryID, "Notre-Dame de Paris")
	strangerLibraryID := givenLibrary(t, ctx, cs, stranger, "Search")
	givenBook(t, ctx, cs, stranger, strangerLibraryID, "Les Misérables")

	// act
	byAuthor, authorErr := cs.SearchBooks(ctx, guard, 0, []string{"hugo"}, 10)
	narrowed, narrowErr := cs.SearchBooks(ctx, guard, 0, []string{"HUGO", "miserables"}, 10)
	nothing, nothingErr := cs.SearchBooks(ctx, guard, 0, []string{"hugo", "tolstoi"}, 10)
	everything, everythingErr := cs.SearchBooks(ctx, guard, 0, nil, 10)

	// assert
	require.NoError(t, authorErr)
	require.NoError(t, narrowErr)
	require.NoError(t, nothingErr)
	require.NoError(t, everythingErr)
	assert.Equal(t, []string{"Les Misérables", "Notre-Dame de Paris"}, titles(byAuthor.Books))
	assert.Equal(t, []string{"Les Misérables"}, titles(narrowed.Books))
	assert.Equal(t, int64(1), narrowed.Total)
	assert.Empty(t, nothing.Books)
	assert.Equal(t, int64(2), everything.Total, "search is scoped to the owner")
}

func Test_Lending_RequestCancelRequestAgain(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Lending")
	bookID := givenBook(t, ctx, cs, guard, libraryID, "Dune")

	// act
	first, err := cs.TransitionToLendingPending(ctx, guard, bookID)
	require.NoError(t, err)
	second, err := cs.TransitionToLendingPending(ctx, guard, bookID)
	require.NoError(t, err)
	_, err = cs.TransitionToNotLent(ctx, guard, bookID)
	require.NoError(t, err)
	third, err := cs.TransitionToLendingPending(ctx, guard, bookID)
	require.NoError(t, err)
	confirmed, err := cs.TransitionToLendingConfirmed(ctx, guard, bookID, "L9")
	require.NoError(t, err)
	book, err := cs.GetBook(ctx, guard, bookID)
	require.NoError(t, err)

	// assert
	require.NotNil(t, first)
	assert.Equal(t, "Dune", *first)
	assert.Nil(t, second)
	assert.NotNil(t, third)
	assert.True(t, confirmed)
	lendingID, ok := book.LendingState.LendingID()
	assert.True(t, ok)
	assert.Equal(t, "L9", lendingID)
}

func Test_Lending_ConcurrentRequestsValidateExactlyOnce(t *testing.T) {
	// setup
	cs := pgtest.NewStore(t)
	ctx := context.Background()
	guard := GivenUniqueOwner(t)

	// arrange
	libraryID := givenLibrary(t, ctx, cs, guard, "Race")
	bookID := givenBook(t, ctx, cs, guard, libraryID, "Contended")
	const requesters = 8
	results := make(chan *string, requesters)

	// act
	for range requesters {
		go func() {
			title, err := cs.TransitionToLendingPending(ctx, guard, bookID)
			if err != nil {
				results <- nil
				return
			}
			results <- title
		}()
	}

	validated := 0
	for range requesters {
		if title := <-results; title != nil {
			validated++
		}
	}

	// assert
	assert.Equal(t, 1, validated, fmt.Sprintf("exactly one of %d requesters may win", requesters))
}

func titles(books []catalog.Book) []string {
	result := make([]string, 0, len(books))
	for _, book := range books {
		result = append(result, book.Title)
	}

	return result
}

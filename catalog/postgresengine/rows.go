package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type bookRow struct {
	id           string
	libraryID    string
	libraryName  string
	title        string
	description  string
	isbn10       string
	isbn13       string
	thumbnailRef string
	authors      string
	tags         string
	language     string
	bookSet      string
	bookSetOrder int
	hash         string
	lendingID    sql.NullString
}

func (r *bookRow) scan(rows adapters.DBRows) error {
	scanErr := rows.Scan(
		&r.id,
		&r.libraryID,
		&r.libraryName,
		&r.title,
		&r.description,
		&r.isbn10,
		&r.isbn13,
		&r.thumbnailRef,
		&r.authors,
		&r.tags,
		&r.language,
		&r.bookSet,
		&r.bookSetOrder,
		&r.hash,
		&r.lendingID,
	)
	if scanErr != nil {
		return errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return nil
}

func (r *bookRow) toBook(ownerID string) (catalog.Book, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return catalog.Book{}, errors.Join(ErrDecodingRowFailed, err)
	}

	libraryID, err := uuid.Parse(r.libraryID)
	if err != nil {
		return catalog.Book{}, errors.Join(ErrDecodingRowFailed, err)
	}

	language, err := catalog.LanguageFromSearchConfiguration(r.language)
	if err != nil {
		return catalog.Book{}, errors.Join(ErrDecodingRowFailed, fmt.Errorf("book %s: %w", r.id, err))
	}

	authors, err := decodeTextArray(r.authors)
	if err != nil {
		return catalog.Book{}, err
	}

	tags, err := decodeTextArray(r.tags)
	if err != nil {
		return catalog.Book{}, err
	}

	return catalog.Book{
		ID:           id,
		OwnerID:      ownerID,
		Library:      catalog.LibraryRef{ID: libraryID, Name: r.libraryName},
		Title:        r.title,
		Description:  r.description,
		ISBN10:       r.isbn10,
		ISBN13:       r.isbn13,
		ThumbnailRef: r.thumbnailRef,
		Authors:      authors,
		Tags:         tags,
		Language:     language,
		BookSet:      r.bookSet,
		BookSetOrder: r.bookSetOrder,
		ContentHash:  r.hash,
		LendingState: catalog.LendingStateFromColumn(r.lendingID),
	}, nil
}

// decodeTextArray decodes the array_to_json rendering of a text[] column.
func decodeTextArray(raw string) ([]string, error) {
	values := make([]string, 0)
	if raw == "" {
		return values, nil
	}

	if err := json.UnmarshalFromString(raw, &values); err != nil {
		return nil, errors.Join(ErrDecodingRowFailed, err)
	}

	if values == nil {
		values = make([]string, 0)
	}

	return values, nil
}

func (cs *CatalogStore) queryBooks(ctx context.Context, ownerID string, action string, stmt statement) ([]catalog.Book, error) {
	rows, err := cs.query(ctx, cs.db, action, stmt)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(ctx, rows)

	books := make([]catalog.Book, 0)
	row := bookRow{}

	for rows.Next() {
		if scanErr := row.scan(rows); scanErr != nil {
			return nil, scanErr
		}

		book, decodeErr := row.toBook(ownerID)
		if decodeErr != nil {
			return nil, decodeErr
		}

		books = append(books, book)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingFailed, rowsErr)
	}

	return books, nil
}

func (cs *CatalogStore) queryLibraries(ctx context.Context, ownerID string, action string, stmt statement) ([]catalog.LibraryWithCount, error) {
	rows, err := cs.query(ctx, cs.db, action, stmt)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(ctx, rows)

	libraries := make([]catalog.LibraryWithCount, 0)

	for rows.Next() {
		var rawID string
		library := catalog.LibraryWithCount{Library: catalog.Library{OwnerID: ownerID}}

		if scanErr := rows.Scan(&rawID, &library.Name, &library.Description, &library.BooksCount); scanErr != nil {
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			return nil, errors.Join(ErrDecodingRowFailed, parseErr)
		}

		library.ID = id
		libraries = append(libraries, library)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingFailed, rowsErr)
	}

	return libraries, nil
}

package postgresengine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

// ListLibraries returns the owner's libraries ordered by name, each with its current book count.
func (cs *CatalogStore) ListLibraries(ctx context.Context, guard catalog.AuthorizationGuard) (libraries []catalog.LibraryWithCount, err error) {
	observer, ctx := cs.startOperation(ctx, operationListLibraries, guard)
	defer func() { observer.finish(err, logAttrCount, len(libraries)) }()

	if err = guard.Check(); err != nil {
		return nil, err
	}

	stmt, err := cs.buildSelectLibrariesQuery(guard.OwnerID(), nil)
	if err != nil {
		return nil, err
	}

	return cs.queryLibraries(ctx, guard.OwnerID(), operationListLibraries, stmt)
}

// GetLibrary returns one owned library, or nil when it does not exist or belongs to someone else.
func (cs *CatalogStore) GetLibrary(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (library *catalog.LibraryWithCount, err error) {
	observer, ctx := cs.startOperation(ctx, operationGetLibrary, guard)
	defer func() { observer.finish(err, logAttrLibraryID, id.String(), logAttrFound, library != nil) }()

	if err = guard.Check(); err != nil {
		return nil, err
	}

	stmt, err := cs.buildSelectLibrariesQuery(guard.OwnerID(), &id)
	if err != nil {
		return nil, err
	}

	libraries, err := cs.queryLibraries(ctx, guard.OwnerID(), operationGetLibrary, stmt)
	if err != nil || len(libraries) == 0 {
		return nil, err
	}

	return &libraries[0], nil
}

// CreateLibrary validates the input and stores a new library with a generated id.
func (cs *CatalogStore) CreateLibrary(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.LibraryInput) (id uuid.UUID, err error) {
	observer, ctx := cs.startOperation(ctx, operationCreateLibrary, guard)
	defer func() { observer.finish(err, logAttrLibraryID, id.String()) }()

	if err = guard.Check(); err != nil {
		return uuid.Nil, err
	}

	in = in.Normalized()
	if err = catalog.ValidateLibrary(in); err != nil {
		return uuid.Nil, err
	}

	newID, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}

	stmt, err := cs.buildInsertLibraryQuery(guard.OwnerID(), newID, in)
	if err != nil {
		return uuid.Nil, err
	}

	if _, err = cs.exec(ctx, cs.db, operationCreateLibrary, stmt); err != nil {
		return uuid.Nil, err
	}

	return newID, nil
}

// UpdateLibrary renames or re-describes an owned library. It reports false when no owned
// library has the input's id.
func (cs *CatalogStore) UpdateLibrary(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.LibraryInput) (updated bool, err error) {
	observer, ctx := cs.startOperation(ctx, operationUpdateLibrary, guard)
	defer func() { observer.finish(err, logAttrLibraryID, in.ID.String(), logAttrFound, updated) }()

	if err = guard.Check(); err != nil {
		return false, err
	}

	in = in.Normalized()
	if err = catalog.ValidateLibrary(in); err != nil {
		return false, err
	}

	stmt, err := cs.buildUpdateLibraryQuery(guard.OwnerID(), in)
	if err != nil {
		return false, err
	}

	rowsAffected, err := cs.exec(ctx, cs.db, operationUpdateLibrary, stmt)
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// DeleteLibrary removes an owned library together with its books, in one transaction.
// It reports false and changes nothing when the library is unknown, not owned, or holds a lent book.
func (cs *CatalogStore) DeleteLibrary(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (deleted bool, err error) {
	observer, ctx := cs.startOperation(ctx, operationDeleteLibrary, guard)
	defer func() { observer.finish(err, logAttrLibraryID, id.String(), logAttrFound, deleted) }()

	if err = guard.Check(); err != nil {
		return false, err
	}

	ownerID := guard.OwnerID()

	lockStmt, err := cs.buildLockLibraryBooksQuery(ownerID, id)
	if err != nil {
		return false, err
	}

	deleteLibraryStmt, err := cs.buildDeleteLibraryQuery(ownerID, id)
	if err != nil {
		return false, err
	}

	deleteBooksStmt, err := cs.buildDeleteLibraryBooksQuery(ownerID, id)
	if err != nil {
		return false, err
	}

	var removedBooks []removedBook

	err = cs.withinTransaction(ctx, operationDeleteLibrary, func(ctx context.Context, tx adapters.DBTx) error {
		deleted = false
		removedBooks = nil

		if _, lockErr := cs.queryExists(ctx, tx, operationDeleteLibrary, lockStmt); lockErr != nil {
			return lockErr
		}

		rowsAffected, deleteErr := cs.exec(ctx, tx, operationDeleteLibrary, deleteLibraryStmt)
		if deleteErr != nil {
			return deleteErr
		}

		if rowsAffected != 1 {
			return nil
		}

		books, deleteBooksErr := cs.deleteReturningBooks(ctx, tx, deleteBooksStmt)
		if deleteBooksErr != nil {
			return deleteBooksErr
		}

		deleted = true
		removedBooks = books

		return nil
	})
	if err != nil {
		return false, err
	}

	for _, book := range removedBooks {
		cs.removeThumbnail(ctx, ownerID, book)
	}

	return deleted, nil
}

type removedBook struct {
	id           uuid.UUID
	thumbnailRef string
}

func (cs *CatalogStore) deleteReturningBooks(ctx context.Context, tx adapters.DBTx, stmt statement) ([]removedBook, error) {
	rows, err := cs.query(ctx, tx, operationDeleteLibrary, stmt)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(ctx, rows)

	books := make([]removedBook, 0)

	for rows.Next() {
		var rawID string
		var book removedBook

		if scanErr := rows.Scan(&rawID, &book.thumbnailRef); scanErr != nil {
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			return nil, errors.Join(ErrDecodingRowFailed, parseErr)
		}

		book.id = id
		books = append(books, book)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingFailed, classify(rowsErr))
	}

	return books, nil
}

package postgresengine

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

// GetBook returns one owned book, or nil when it does not exist or belongs to someone else.
func (cs *CatalogStore) GetBook(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (book *catalog.Book, err error) {
	observer, ctx := cs.startOperation(ctx, operationGetBook, guard)
	defer func() { observer.finish(err, logAttrBookID, id.String(), logAttrFound, book != nil) }()

	if err = guard.Check(); err != nil {
		return nil, err
	}

	stmt, err := cs.buildSelectBookQuery(guard.OwnerID(), id)
	if err != nil {
		return nil, err
	}

	books, err := cs.queryBooks(ctx, guard.OwnerID(), operationGetBook, stmt)
	if err != nil || len(books) == 0 {
		return nil, err
	}

	return &books[0], nil
}

// GetThumbnail returns the image data of an owned book's thumbnail.
// It returns nil when the book has none or no ThumbnailStore is configured.
func (cs *CatalogStore) GetThumbnail(ctx context.Context, guard catalog.AuthorizationGuard, book catalog.Book) (data []byte, err error) {
	observer, ctx := cs.startOperation(ctx, operationGetThumbnail, guard)
	defer func() { observer.finish(err, logAttrBookID, book.ID.String(), logAttrFound, data != nil) }()

	if err = guard.Check(); err != nil {
		return nil, err
	}

	if cs.thumbnails == nil || book.ThumbnailRef == "" || book.OwnerID != guard.OwnerID() {
		return nil, nil
	}

	data, err = cs.thumbnails.GetImage(ctx, guard.OwnerID(), book.ID)
	if err != nil {
		return nil, errors.Join(ErrThumbnailFailed, err)
	}

	return data, nil
}

// ListBooksFromLibrary returns one page of the books of an owned library, ordered by title then id.
// offset is a zero-based page index.
func (cs *CatalogStore) ListBooksFromLibrary(
	ctx context.Context,
	guard catalog.AuthorizationGuard,
	libraryID uuid.UUID,
	offset int,
	pageSize int,
) (page catalog.BooksPage, err error) {
	observer, ctx := cs.startOperation(ctx, operationListBooks, guard)
	defer func() {
		observer.finish(err, logAttrLibraryID, libraryID.String(), logAttrCount, len(page.Books), logAttrTotal, page.Total)
	}()

	if err = guard.Check(); err != nil {
		return catalog.BooksPage{}, err
	}

	pageSize = catalog.PageSize(pageSize)

	countStmt, pageStmt, err := cs.buildLibraryBooksQueries(guard.OwnerID(), libraryID, catalog.PageOffset(offset), pageSize)
	if err != nil {
		return catalog.BooksPage{}, err
	}

	return cs.queryBooksPage(ctx, guard.OwnerID(), operationListBooks, countStmt, pageStmt, pageSize)
}

// SearchBooks returns one page of the owner's books matching every keyword, ordered like
// ListBooksFromLibrary. Without usable keywords it lists all of the owner's books.
func (cs *CatalogStore) SearchBooks(
	ctx context.Context,
	guard catalog.AuthorizationGuard,
	offset int,
	keywords []string,
	pageSize int,
) (page catalog.BooksPage, err error) {
	observer, ctx := cs.startOperation(ctx, operationSearchBooks, guard)
	defer func() { observer.finish(err, logAttrCount, len(page.Books), logAttrTotal, page.Total) }()

	if err = guard.Check(); err != nil {
		return catalog.BooksPage{}, err
	}

	pageSize = catalog.PageSize(pageSize)
	criteria := catalog.BuildSearchCriteria(keywords...)

	countStmt, pageStmt, err := cs.buildSearchBooksQueries(guard.OwnerID(), criteria, catalog.PageOffset(offset), pageSize)
	if err != nil {
		return catalog.BooksPage{}, err
	}

	return cs.queryBooksPage(ctx, guard.OwnerID(), operationSearchBooks, countStmt, pageStmt, pageSize)
}

func (cs *CatalogStore) queryBooksPage(
	ctx context.Context,
	ownerID string,
	action string,
	countStmt statement,
	pageStmt statement,
	pageSize int,
) (catalog.BooksPage, error) {
	total, err := cs.queryCount(ctx, cs.db, action, countStmt)
	if err != nil {
		return catalog.BooksPage{}, err
	}

	books, err := cs.queryBooks(ctx, ownerID, action, pageStmt)
	if err != nil {
		return catalog.BooksPage{}, err
	}

	return catalog.BooksPage{ItemsPerPage: pageSize, Total: total, Books: books}, nil
}

// CreateBook validates the input and stores a new book in one of the owner's libraries.
// A library that is unknown or owned by someone else yields a *catalog.ReferentialError.
func (cs *CatalogStore) CreateBook(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.BookInput) (id uuid.UUID, err error) {
	observer, ctx := cs.startOperation(ctx, operationCreateBook, guard)
	defer func() { observer.finish(err, logAttrBookID, id.String(), logAttrLibraryID, in.LibraryID.String()) }()

	if err = guard.Check(); err != nil {
		return uuid.Nil, err
	}

	record, err := prepareBookRecord(in)
	if err != nil {
		return uuid.Nil, err
	}

	newID, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}

	ownerID := guard.OwnerID()

	shareStmt, err := cs.buildShareLibraryQuery(ownerID, record.input.LibraryID)
	if err != nil {
		return uuid.Nil, err
	}

	insertStmt, err := cs.buildInsertBookQuery(ownerID, newID, record)
	if err != nil {
		return uuid.Nil, err
	}

	uploaded := false

	err = cs.withinTransaction(ctx, operationCreateBook, func(ctx context.Context, tx adapters.DBTx) error {
		if checkErr := cs.checkLibraryOwnership(ctx, tx, operationCreateBook, shareStmt, record.input.LibraryID); checkErr != nil {
			return checkErr
		}

		if _, insertErr := cs.exec(ctx, tx, operationCreateBook, insertStmt); insertErr != nil {
			return insertErr
		}

		var uploadErr error
		uploaded, uploadErr = cs.uploadThumbnail(ctx, ownerID, newID, record)

		return uploadErr
	})
	if err != nil {
		if uploaded {
			cs.deleteThumbnail(ctx, ownerID, newID)
		}

		return uuid.Nil, referentialOr(err, record.input.LibraryID)
	}

	return newID, nil
}

// UpdateBook replaces the content of an owned book. It reports false when no owned book has the
// input's id or when a lent book would move to another library. A target library that is unknown
// or owned by someone else yields false together with a *catalog.ReferentialError.
func (cs *CatalogStore) UpdateBook(ctx context.Context, guard catalog.AuthorizationGuard, in catalog.BookInput) (updated bool, err error) {
	observer, ctx := cs.startOperation(ctx, operationUpdateBook, guard)
	defer func() { observer.finish(err, logAttrBookID, in.ID.String(), logAttrFound, updated) }()

	if err = guard.Check(); err != nil {
		return false, err
	}

	record, err := prepareBookRecord(in)
	if err != nil {
		return false, err
	}

	ownerID := guard.OwnerID()

	shareStmt, err := cs.buildShareLibraryQuery(ownerID, record.input.LibraryID)
	if err != nil {
		return false, err
	}

	updateStmt, err := cs.buildUpdateBookQuery(ownerID, record)
	if err != nil {
		return false, err
	}

	err = cs.withinTransaction(ctx, operationUpdateBook, func(ctx context.Context, tx adapters.DBTx) error {
		updated = false

		if checkErr := cs.checkLibraryOwnership(ctx, tx, operationUpdateBook, shareStmt, record.input.LibraryID); checkErr != nil {
			return checkErr
		}

		rowsAffected, updateErr := cs.exec(ctx, tx, operationUpdateBook, updateStmt)
		if updateErr != nil {
			return updateErr
		}

		if rowsAffected != 1 {
			return nil
		}

		updated = true

		_, uploadErr := cs.uploadThumbnail(ctx, ownerID, record.input.ID, record)

		return uploadErr
	})
	if err != nil {
		return false, referentialOr(err, record.input.LibraryID)
	}

	if updated && record.input.Thumbnail == "" && cs.thumbnails != nil {
		cs.deleteThumbnail(ctx, ownerID, record.input.ID)
	}

	return updated, nil
}

// DeleteBook removes an owned book that is not lent. It reports false otherwise.
func (cs *CatalogStore) DeleteBook(ctx context.Context, guard catalog.AuthorizationGuard, id uuid.UUID) (deleted bool, err error) {
	observer, ctx := cs.startOperation(ctx, operationDeleteBook, guard)
	defer func() { observer.finish(err, logAttrBookID, id.String(), logAttrFound, deleted) }()

	if err = guard.Check(); err != nil {
		return false, err
	}

	stmt, err := cs.buildDeleteBookQuery(guard.OwnerID(), id)
	if err != nil {
		return false, err
	}

	rows, err := cs.query(ctx, cs.db, operationDeleteBook, stmt)
	if err != nil {
		return false, err
	}
	defer cs.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return false, errors.Join(ErrQueryingFailed, rowsErr)
		}

		return false, nil
	}

	book := removedBook{id: id}
	if scanErr := rows.Scan(&book.thumbnailRef); scanErr != nil {
		return false, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	cs.removeThumbnail(ctx, guard.OwnerID(), book)

	return true, nil
}

func prepareBookRecord(in catalog.BookInput) (bookRecord, error) {
	in = in.Normalized()
	if err := catalog.ValidateBook(in); err != nil {
		return bookRecord{}, err
	}

	language, err := in.Language.SearchConfiguration()
	if err != nil {
		return bookRecord{}, err
	}

	hash, err := catalog.ContentHash(in)
	if err != nil {
		return bookRecord{}, err
	}

	return bookRecord{
		input:        in,
		language:     language,
		thumbnailRef: catalog.ThumbnailRef(in.Thumbnail),
		hash:         hash,
	}, nil
}

func (cs *CatalogStore) checkLibraryOwnership(ctx context.Context, tx adapters.DBTx, action string, stmt statement, libraryID uuid.UUID) error {
	owned, err := cs.queryExists(ctx, tx, action, stmt)
	if err != nil {
		return err
	}

	if !owned {
		return &catalog.ReferentialError{LibraryID: libraryID}
	}

	return nil
}

// referentialOr reports a foreign key violation raised at commit as a ReferentialError.
func referentialOr(err error, libraryID uuid.UUID) error {
	if isForeignKeyViolation(err) {
		return &catalog.ReferentialError{LibraryID: libraryID}
	}

	return err
}

// uploadThumbnail stores the image inside the surrounding transaction, so a failed upload
// rolls the book write back. It reports whether an image was written.
func (cs *CatalogStore) uploadThumbnail(ctx context.Context, ownerID string, bookID uuid.UUID, record bookRecord) (bool, error) {
	if cs.thumbnails == nil || record.input.Thumbnail == "" {
		return false, nil
	}

	data, err := base64.StdEncoding.DecodeString(record.input.Thumbnail)
	if err != nil {
		return false, errors.Join(ErrThumbnailFailed, err)
	}

	if err = cs.thumbnails.SaveImage(ctx, ownerID, bookID, data); err != nil {
		return false, errors.Join(ErrThumbnailFailed, err)
	}

	return true, nil
}

func (cs *CatalogStore) removeThumbnail(ctx context.Context, ownerID string, book removedBook) {
	if cs.thumbnails == nil || book.thumbnailRef == "" {
		return
	}

	cs.deleteThumbnail(ctx, ownerID, book.id)
}

// deleteThumbnail runs after the row change is settled; a failure leaves an orphaned image and is only logged.
func (cs *CatalogStore) deleteThumbnail(ctx context.Context, ownerID string, bookID uuid.UUID) {
	if err := cs.thumbnails.DeleteImage(context.WithoutCancel(ctx), ownerID, bookID); err != nil {
		cs.log(ctx, slog.LevelWarn, logMsgThumbnailCleanup, logAttrBookID, bookID.String(), logAttrError, err.Error())
	}
}

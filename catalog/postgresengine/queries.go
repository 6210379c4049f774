package postgresengine

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
)

func (cs *CatalogStore) table(name string) exp.IdentifierExpression {
	return goqu.S(cs.schemaName).Table(name)
}

func col(alias, name string) exp.IdentifierExpression {
	return goqu.T(alias).Col(name)
}

// textArray renders values as a text[] literal with one bind parameter per element.
func textArray(values []string) exp.LiteralExpression {
	if len(values) == 0 {
		return goqu.L(emptyTextArray)
	}

	args := make([]any, len(values))
	for i, value := range values {
		args[i] = value
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")

	return goqu.L("ARRAY["+placeholders+"]::text[]", args...)
}

/*** libraries ***/

func (cs *CatalogStore) buildSelectLibrariesQuery(ownerID string, libraryID *uuid.UUID) (statement, error) {
	ds := cs.builder.
		From(cs.table(tableLibrary).As(aliasLibrary)).
		LeftJoin(
			cs.table(tableBook).As(aliasBook),
			goqu.On(col(aliasBook, colLibraryID).Eq(col(aliasLibrary, colID))),
		).
		Select(
			goqu.L(castText, col(aliasLibrary, colID)).As(colID),
			col(aliasLibrary, colName),
			col(aliasLibrary, colDescription),
			goqu.COUNT(col(aliasBook, colID)).As(colBooksCount),
		).
		Where(col(aliasLibrary, colUserID).Eq(ownerID)).
		GroupBy(col(aliasLibrary, colID)).
		Order(col(aliasLibrary, colName).Asc(), col(aliasLibrary, colID).Asc()).
		Prepared(true)

	if libraryID != nil {
		ds = ds.Where(col(aliasLibrary, colID).Eq(libraryID.String()))
	}

	return buildStatement(ds)
}

func (cs *CatalogStore) buildInsertLibraryQuery(ownerID string, id uuid.UUID, in catalog.LibraryInput) (statement, error) {
	ds := cs.builder.
		Insert(cs.table(tableLibrary)).
		Rows(goqu.Record{
			colID:          id.String(),
			colUserID:      ownerID,
			colName:        in.Name,
			colDescription: in.Description,
		}).
		Prepared(true)

	return buildStatement(ds)
}

func (cs *CatalogStore) buildUpdateLibraryQuery(ownerID string, in catalog.LibraryInput) (statement, error) {
	ds := cs.builder.
		Update(cs.table(tableLibrary)).
		Set(goqu.Record{
			colName:        in.Name,
			colDescription: in.Description,
		}).
		Where(
			goqu.C(colID).Eq(in.ID.String()),
			goqu.C(colUserID).Eq(ownerID),
		).
		Prepared(true)

	return buildStatement(ds)
}

// buildLockLibraryBooksQuery locks the book rows of a library against concurrent lending transitions.
func (cs *CatalogStore) buildLockLibraryBooksQuery(ownerID string, libraryID uuid.UUID) (statement, error) {
	ds := cs.builder.
		From(cs.table(tableBook)).
		Select(goqu.C(colID)).
		Where(
			goqu.C(colLibraryID).Eq(libraryID.String()),
			goqu.C(colUserID).Eq(ownerID),
		).
		ForUpdate(exp.Wait).
		Prepared(true)

	return buildStatement(ds)
}

// buildDeleteLibraryQuery deletes the library only when none of its books is lent.
func (cs *CatalogStore) buildDeleteLibraryQuery(ownerID string, libraryID uuid.UUID) (statement, error) {
	lentBooks := cs.builder.
		From(cs.table(tableBook).As(aliasBook)).
		Select(goqu.L("1")).
		Where(
			col(aliasBook, colLibraryID).Eq(libraryID.String()),
			col(aliasBook, colLendingID).IsNotNull(),
		)

	ds := cs.builder.
		Delete(cs.table(tableLibrary)).
		Where(
			goqu.C(colID).Eq(libraryID.String()),
			goqu.C(colUserID).Eq(ownerID),
			goqu.L("NOT EXISTS ?", lentBooks),
		).
		Prepared(true)

	return buildStatement(ds)
}

func (cs *CatalogStore) buildDeleteLibraryBooksQuery(ownerID string, libraryID uuid.UUID) (statement, error) {
	ds := cs.builder.
		Delete(cs.table(tableBook)).
		Where(
			goqu.C(colLibraryID).Eq(libraryID.String()),
			goqu.C(colUserID).Eq(ownerID),
		).
		Returning(goqu.L(castText, goqu.C(colID)), goqu.C(colThumbnail)).
		Prepared(true)

	return buildStatement(ds)
}

// buildShareLibraryQuery checks that a library belongs to the owner and keeps it from being
// deleted until the transaction ends.
func (cs *CatalogStore) buildShareLibraryQuery(ownerID string, libraryID uuid.UUID) (statement, error) {
	ds := cs.builder.
		From(cs.table(tableLibrary)).
		Select(goqu.L("1")).
		Where(
			goqu.C(colID).Eq(libraryID.String()),
			goqu.C(colUserID).Eq(ownerID),
		).
		ForShare(exp.Wait).
		Prepared(true)

	return buildStatement(ds)
}

/*** books ***/

func bookSelection() []any {
	return []any{
		goqu.L(castText, col(aliasBook, colID)).As(colID),
		goqu.L(castText, col(aliasBook, colLibraryID)).As(colLibraryID),
		col(aliasLibrary, colName).As(colLibraryName),
		col(aliasBook, colTitle),
		col(aliasBook, colDescription),
		col(aliasBook, colISBN10),
		col(aliasBook, colISBN13),
		col(aliasBook, colThumbnail),
		goqu.L(castArrayJSON, col(aliasBook, colAuthors)).As(colAuthors),
		goqu.L(castArrayJSON, col(aliasBook, colTags)).As(colTags),
		col(aliasBook, colLanguage),
		col(aliasBook, colBookSet),
		col(aliasBook, colBookSetOrder),
		col(aliasBook, colHash),
		col(aliasBook, colLendingID),
	}
}

func (cs *CatalogStore) booksDataset(ownerID string) *goqu.SelectDataset {
	return cs.builder.
		From(cs.table(tableBook).As(aliasBook)).
		Join(
			cs.table(tableLibrary).As(aliasLibrary),
			goqu.On(col(aliasLibrary, colID).Eq(col(aliasBook, colLibraryID))),
		).
		Select(bookSelection()...).
		Where(col(aliasBook, colUserID).Eq(ownerID))
}

func (cs *CatalogStore) countBooksDataset(ownerID string) *goqu.SelectDataset {
	return cs.builder.
		From(cs.table(tableBook).As(aliasBook)).
		Select(goqu.COUNT(goqu.Star()).As(colTotal)).
		Where(col(aliasBook, colUserID).Eq(ownerID))
}

func paginate(ds *goqu.SelectDataset, offset, pageSize int) *goqu.SelectDataset {
	return ds.
		Order(col(aliasBook, colTitle).Asc(), col(aliasBook, colID).Asc()).
		Limit(uint(pageSize)).          //nolint:gosec // clamped by catalog.PageSize
		Offset(uint(pageSize * offset)) //nolint:gosec // clamped by catalog.PageOffset
}

func (cs *CatalogStore) buildSelectBookQuery(ownerID string, bookID uuid.UUID) (statement, error) {
	ds := cs.booksDataset(ownerID).
		Where(col(aliasBook, colID).Eq(bookID.String())).
		Prepared(true)

	return buildStatement(ds)
}

func (cs *CatalogStore) buildLibraryBooksQueries(ownerID string, libraryID uuid.UUID, offset, pageSize int) (statement, statement, error) {
	inLibrary := col(aliasBook, colLibraryID).Eq(libraryID.String())

	count, err := buildStatement(cs.countBooksDataset(ownerID).Where(inLibrary).Prepared(true))
	if err != nil {
		return statement{}, statement{}, err
	}

	page, err := buildStatement(paginate(cs.booksDataset(ownerID).Where(inLibrary), offset, pageSize).Prepared(true))
	if err != nil {
		return statement{}, statement{}, err
	}

	return count, page, nil
}

func (cs *CatalogStore) buildSearchBooksQueries(ownerID string, criteria catalog.SearchCriteria, offset, pageSize int) (statement, statement, error) {
	countDS := cs.countBooksDataset(ownerID)
	pageDS := cs.booksDataset(ownerID)

	if !criteria.IsEmpty() {
		searchTable := cs.table(tableBooksSearch).As(aliasSearch)
		onBook := goqu.On(col(aliasSearch, colID).Eq(col(aliasBook, colID)))
		matches := goqu.L(searchMatch, col(aliasSearch, colDocument), criteria.TSQuery())

		countDS = countDS.Join(searchTable, onBook).Where(matches)
		pageDS = pageDS.Join(searchTable, onBook).Where(matches)
	}

	count, err := buildStatement(countDS.Prepared(true))
	if err != nil {
		return statement{}, statement{}, err
	}

	page, err := buildStatement(paginate(pageDS, offset, pageSize).Prepared(true))
	if err != nil {
		return statement{}, statement{}, err
	}

	return count, page, nil
}

// bookRecord holds the column values written by book inserts and updates.
type bookRecord struct {
	input        catalog.BookInput
	language     string
	thumbnailRef string
	hash         string
}

func (r bookRecord) columns() goqu.Record {
	return goqu.Record{
		colLibraryID:    r.input.LibraryID.String(),
		colTitle:        r.input.Title,
		colDescription:  r.input.Description,
		colISBN10:       r.input.ISBN10,
		colISBN13:       r.input.ISBN13,
		colThumbnail:    r.thumbnailRef,
		colAuthors:      textArray(r.input.Authors),
		colTags:         textArray(r.input.Tags),
		colLanguage:     r.language,
		colBookSet:      r.input.BookSet,
		colBookSetOrder: r.input.BookSetOrder,
		colHash:         r.hash,
	}
}

func (cs *CatalogStore) buildInsertBookQuery(ownerID string, id uuid.UUID, record bookRecord) (statement, error) {
	row := record.columns()
	row[colID] = id.String()
	row[colUserID] = ownerID

	ds := cs.builder.
		Insert(cs.table(tableBook)).
		Rows(row).
		Prepared(true)

	return buildStatement(ds)
}

// buildUpdateBookQuery updates an owned book. A lent book may be edited but not moved to another library.
func (cs *CatalogStore) buildUpdateBookQuery(ownerID string, record bookRecord) (statement, error) {
	ds := cs.builder.
		Update(cs.table(tableBook)).
		Set(record.columns()).
		Where(
			goqu.C(colID).Eq(record.input.ID.String()),
			goqu.C(colUserID).Eq(ownerID),
			goqu.Or(
				goqu.C(colLendingID).IsNull(),
				goqu.C(colLibraryID).Eq(record.input.LibraryID.String()),
			),
		).
		Prepared(true)

	return buildStatement(ds)
}

func (cs *CatalogStore) buildDeleteBookQuery(ownerID string, bookID uuid.UUID) (statement, error) {
	ds := cs.builder.
		Delete(cs.table(tableBook)).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.C(colUserID).Eq(ownerID),
			goqu.C(colLendingID).IsNull(),
		).
		Returning(goqu.C(colThumbnail)).
		Prepared(true)

	return buildStatement(ds)
}

/*** lending ***/

func (cs *CatalogStore) buildLendingPendingQuery(ownerID string, bookID uuid.UUID) (statement, error) {
	ds := cs.builder.
		Update(cs.table(tableBook)).
		Set(goqu.Record{colLendingID: catalog.LendingPendingSentinel}).
		Where(
			goqu.C(colUserID).Eq(ownerID),
			goqu.C(colID).Eq(bookID.String()),
			goqu.C(colLendingID).IsNull(),
		).
		Returning(goqu.C(colTitle)).
		Prepared(true)

	return buildStatement(ds)
}

// buildSetLendingQuery writes a lending reference without precondition on the prior state.
// A nil lendingID clears it.
func (cs *CatalogStore) buildSetLendingQuery(ownerID string, bookID uuid.UUID, lendingID *string) (statement, error) {
	var value any
	if lendingID != nil {
		value = *lendingID
	}

	ds := cs.builder.
		Update(cs.table(tableBook)).
		Set(goqu.Record{colLendingID: value}).
		Where(
			goqu.C(colUserID).Eq(ownerID),
			goqu.C(colID).Eq(bookID.String()),
		).
		Prepared(true)

	return buildStatement(ds)
}

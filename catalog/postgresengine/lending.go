package postgresengine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
)

// TransitionToLendingPending moves an owned book from NONE to PENDING.
// It returns the book title, or nil when no owned book with that id is currently NONE.
func (cs *CatalogStore) TransitionToLendingPending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) (title *string, err error) {
	observer, ctx := cs.startOperation(ctx, operationLendingPending, guard)
	defer func() { observer.finish(err, logAttrBookID, bookID.String(), logAttrFound, title != nil) }()

	if err = guard.Check(); err != nil {
		return nil, err
	}

	stmt, err := cs.buildLendingPendingQuery(guard.OwnerID(), bookID)
	if err != nil {
		return nil, err
	}

	rows, err := cs.query(ctx, cs.db, operationLendingPending, stmt)
	if err != nil {
		return nil, err
	}
	defer cs.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return nil, errors.Join(ErrQueryingFailed, rowsErr)
		}

		return nil, nil
	}

	var bookTitle string
	if scanErr := rows.Scan(&bookTitle); scanErr != nil {
		return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
	}

	return &bookTitle, nil
}

// TransitionToLendingConfirmed stores lendingID as the lending reference of an owned book,
// whatever its current state. It reports whether a row matched.
func (cs *CatalogStore) TransitionToLendingConfirmed(
	ctx context.Context,
	guard catalog.AuthorizationGuard,
	bookID uuid.UUID,
	lendingID string,
) (matched bool, err error) {
	observer, ctx := cs.startOperation(ctx, operationLendingConfirmed, guard)
	defer func() { observer.finish(err, logAttrBookID, bookID.String(), logAttrFound, matched) }()

	if err = guard.Check(); err != nil {
		return false, err
	}

	state, err := catalog.LendingConfirmed(lendingID)
	if err != nil {
		return false, err
	}

	confirmedID, _ := state.LendingID()

	return cs.setLending(ctx, guard, bookID, &confirmedID, operationLendingConfirmed)
}

// TransitionToNotLent clears the lending reference of an owned book. It reports whether a row matched.
func (cs *CatalogStore) TransitionToNotLent(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) (matched bool, err error) {
	observer, ctx := cs.startOperation(ctx, operationLendingNotLent, guard)
	defer func() { observer.finish(err, logAttrBookID, bookID.String(), logAttrFound, matched) }()

	if err = guard.Check(); err != nil {
		return false, err
	}

	return cs.setLending(ctx, guard, bookID, nil, operationLendingNotLent)
}

func (cs *CatalogStore) setLending(
	ctx context.Context,
	guard catalog.AuthorizationGuard,
	bookID uuid.UUID,
	lendingID *string,
	action string,
) (bool, error) {
	stmt, err := cs.buildSetLendingQuery(guard.OwnerID(), bookID, lendingID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := cs.exec(ctx, cs.db, action, stmt)
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

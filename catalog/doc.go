// Package catalog provides the core types of a personal book catalog:
// libraries, books, their lending state, and the rules that guard them.
//
// This package is storage agnostic. It defines the value types passed to and
// returned from a catalog store, the validation contract applied before any
// write, the content hash that identifies a book's bibliographic content,
// and the search criteria built from free-form keywords.
//
// Key types:
//   - AuthorizationGuard: scopes every store call to a single owner
//   - LibraryInput / BookInput: validated write models
//   - Library / Book: read models returned by the store
//   - LendingState: NONE, PENDING or CONFIRMED(lendingID)
//   - SearchCriteria: normalised keywords ready for full text search
//
// Common usage pattern:
//
//	guard, err := catalog.GuardFor(userID)
//	if err != nil {
//		// reject the request
//	}
//
//	id, err := store.CreateBook(ctx, guard, input)
//	if errors.Is(err, catalog.ErrValidation) {
//		// 400
//	}
package catalog

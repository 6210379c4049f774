// Package lending coordinates the lending lifecycle of a book:
// none, then pending while the borrower side validates, then confirmed with a lending id,
// and back to none on cancel or return.
//
// Every transition is a single conditioned row mutation on the store. There are no locks and no
// read-before-write, so concurrent requests for the same book have exactly one winner.
// A transition that matches no row is not an error: it is logged and the call returns normally.
package lending

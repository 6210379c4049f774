// Package dispatcher routes inbound lending messages to the lending state machine.
//
// A Registry maps operation names to handlers. It is built once, never changes afterwards, and is
// handed to New. Payloads are decoded at the boundary into a closed set of commands
// (ValidateLendBook, ConfirmLendBook, CancelLendBook, ReturnLentBook) before any state changes.
//
// Only VALIDATE_LEND_BOOK replies. The reply goes through a Gateway to the address the inbound
// message named.
//
// HandleRecords acts on the first record of a batch only. The transport is expected to deliver
// one message per invocation; further records are logged and left alone.
package dispatcher

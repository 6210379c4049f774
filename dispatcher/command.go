package dispatcher

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/celsus/core/catalog"
)

// Inbound operation names.
const (
	OperationValidateLendBook = "VALIDATE_LEND_BOOK"
	OperationConfirmLendBook  = "CONFIRM_LEND_BOOK"
	OperationCancelLendBook   = "CANCEL_LEND_BOOK"
	OperationReturnLentBook   = "RETURN_LENT_BOOK"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Command is one of the inbound lending commands.
type Command interface {
	Operation() string
	command()
}

// ValidateLendBook asks whether a book may be lent and reserves it when it may.
type ValidateLendBook struct {
	Guard     catalog.AuthorizationGuard
	BookID    uuid.UUID
	LendingID string
}

// ConfirmLendBook records the lending id of a validated lending.
type ConfirmLendBook struct {
	Guard     catalog.AuthorizationGuard
	BookID    uuid.UUID
	LendingID string
}

// CancelLendBook releases a reserved book.
type CancelLendBook struct {
	Guard  catalog.AuthorizationGuard
	BookID uuid.UUID
}

// ReturnLentBook marks a lent book as returned.
type ReturnLentBook struct {
	Guard  catalog.AuthorizationGuard
	BookID uuid.UUID
}

func (ValidateLendBook) Operation() string { return OperationValidateLendBook }
func (ConfirmLendBook) Operation() string  { return OperationConfirmLendBook }
func (CancelLendBook) Operation() string   { return OperationCancelLendBook }
func (ReturnLentBook) Operation() string   { return OperationReturnLentBook }

func (ValidateLendBook) command() {}
func (ConfirmLendBook) command()  {}
func (CancelLendBook) command()   {}
func (ReturnLentBook) command()   {}

// payload is the wire shape shared by all inbound lending messages.
// contactId travels with some messages and is not used by the catalog.
type payload struct {
	UserID    string `json:"userId"`
	BookID    string `json:"bookId"`
	LendingID string `json:"lendingId"`
	ContactID string `json:"contactId,omitempty"`
}

func decodePayload(raw []byte) (payload, catalog.AuthorizationGuard, uuid.UUID, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return payload{}, catalog.AuthorizationGuard{}, uuid.Nil, errors.Join(ErrInvalidPayload, err)
	}

	guard, err := catalog.GuardFor(p.UserID)
	if err != nil {
		return payload{}, catalog.AuthorizationGuard{}, uuid.Nil, errors.Join(ErrInvalidPayload, err)
	}

	bookID, err := uuid.Parse(p.BookID)
	if err != nil {
		return payload{}, catalog.AuthorizationGuard{}, uuid.Nil, errors.Join(ErrInvalidPayload, fmt.Errorf("bookId: %w", err))
	}

	return p, guard, bookID, nil
}

// DecodeCommand parses the payload of a lending operation into its command variant.
func DecodeCommand(operation string, raw []byte) (Command, error) {
	var (
		cmd Command
		err error
	)

	switch operation {
	case OperationValidateLendBook:
		cmd, err = DecodeValidateLendBook(raw)
	case OperationConfirmLendBook:
		cmd, err = DecodeConfirmLendBook(raw)
	case OperationCancelLendBook:
		cmd, err = DecodeCancelLendBook(raw)
	case OperationReturnLentBook:
		cmd, err = DecodeReturnLentBook(raw)
	default:
		return nil, &UnknownOperationError{Operation: operation}
	}

	if err != nil {
		return nil, err
	}

	return cmd, nil
}

// DecodeValidateLendBook parses a VALIDATE_LEND_BOOK payload.
func DecodeValidateLendBook(raw []byte) (ValidateLendBook, error) {
	p, guard, bookID, err := decodePayload(raw)
	if err != nil {
		return ValidateLendBook{}, err
	}

	if p.LendingID == "" {
		return ValidateLendBook{}, errors.Join(ErrInvalidPayload, catalog.ErrInvalidLendingID)
	}

	return ValidateLendBook{Guard: guard, BookID: bookID, LendingID: p.LendingID}, nil
}

// DecodeConfirmLendBook parses a CONFIRM_LEND_BOOK payload.
// The lending id must be a usable CONFIRMED value.
func DecodeConfirmLendBook(raw []byte) (ConfirmLendBook, error) {
	p, guard, bookID, err := decodePayload(raw)
	if err != nil {
		return ConfirmLendBook{}, err
	}

	if err = catalog.CheckLendingID(p.LendingID); err != nil {
		return ConfirmLendBook{}, errors.Join(ErrInvalidPayload, err)
	}

	return ConfirmLendBook{Guard: guard, BookID: bookID, LendingID: p.LendingID}, nil
}

// DecodeCancelLendBook parses a CANCEL_LEND_BOOK payload.
func DecodeCancelLendBook(raw []byte) (CancelLendBook, error) {
	_, guard, bookID, err := decodePayload(raw)
	if err != nil {
		return CancelLendBook{}, err
	}

	return CancelLendBook{Guard: guard, BookID: bookID}, nil
}

// DecodeReturnLentBook parses a RETURN_LENT_BOOK payload.
func DecodeReturnLentBook(raw []byte) (ReturnLentBook, error) {
	_, guard, bookID, err := decodePayload(raw)
	if err != nil {
		return ReturnLentBook{}, err
	}

	return ReturnLentBook{Guard: guard, BookID: bookID}, nil
}

package dispatcher

import (
	"context"
	"errors"
)

// Validation reply statuses.
const (
	StatusBookValidated    = "BOOK_VALIDATED"
	StatusBookNotValidated = "BOOK_NOT_VALIDATED"
)

// ValidationReply answers a VALIDATE_LEND_BOOK message.
type ValidationReply struct {
	Operation string           `json:"operation"`
	UserID    string           `json:"userId"`
	LendingID string           `json:"lendingId"`
	BookID    string           `json:"bookId"`
	Result    ValidationResult `json:"result"`
}

// ValidationResult carries the outcome of the validation. Title is null unless validated.
type ValidationResult struct {
	Status string  `json:"status"`
	Title  *string `json:"title"`
}

type lendingHandlers struct {
	machine StateMachine
	gateway Gateway
}

// handlerFor decodes the payload of the operation and executes the resulting command.
func (h lendingHandlers) handlerFor(operation string) Handler {
	return func(ctx context.Context, raw []byte, replyAddress string) error {
		if operation == OperationValidateLendBook && replyAddress == "" {
			return ErrMissingReplyAddress
		}

		cmd, err := DecodeCommand(operation, raw)
		if err != nil {
			return err
		}

		return h.execute(ctx, cmd, replyAddress)
	}
}

func (h lendingHandlers) execute(ctx context.Context, cmd Command, replyAddress string) error {
	switch cmd := cmd.(type) {
	case ValidateLendBook:
		return h.validateLendBook(ctx, cmd, replyAddress)
	case ConfirmLendBook:
		return h.machine.ConfirmLending(ctx, cmd.Guard, cmd.BookID, cmd.LendingID)
	case CancelLendBook:
		return h.machine.CancelLending(ctx, cmd.Guard, cmd.BookID)
	case ReturnLentBook:
		return h.machine.ReturnBook(ctx, cmd.Guard, cmd.BookID)
	default:
		return &UnknownOperationError{Operation: cmd.Operation()}
	}
}

func (h lendingHandlers) validateLendBook(ctx context.Context, cmd ValidateLendBook, replyAddress string) error {
	validation, err := h.machine.RequestLending(ctx, cmd.Guard, cmd.BookID)
	if err != nil {
		return err
	}

	status := StatusBookNotValidated
	if validation.Validated {
		status = StatusBookValidated
	}

	reply := ValidationReply{
		Operation: OperationValidateLendBook,
		UserID:    cmd.Guard.OwnerID(),
		LendingID: cmd.LendingID,
		BookID:    cmd.BookID.String(),
		Result:    ValidationResult{Status: status, Title: validation.Title},
	}

	if _, err = h.gateway.SendMessage(ctx, reply, replyAddress); err != nil {
		return errors.Join(ErrReplyFailed, err)
	}

	return nil
}

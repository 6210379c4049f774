package dispatcher

import (
	"context"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/lending"
)

// Handler processes the payload of one inbound message.
type Handler func(ctx context.Context, payload []byte, replyAddress string) error

// Registry maps operation names to handlers. The zero value has no operations.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a Registry from a copy of the given mapping.
func NewRegistry(handlers map[string]Handler) (Registry, error) {
	for operation, handler := range handlers {
		if operation == "" {
			return Registry{}, ErrEmptyOperation
		}

		if handler == nil {
			return Registry{}, ErrNilHandler
		}
	}

	return Registry{handlers: maps.Clone(handlers)}, nil
}

// Lookup returns the handler registered for the operation.
func (r Registry) Lookup(operation string) (Handler, bool) {
	handler, ok := r.handlers[operation]
	return handler, ok
}

// Operations lists the registered operation names in sorted order.
func (r Registry) Operations() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}

// StateMachine is the lending state machine as seen by the lending handlers.
type StateMachine interface {
	RequestLending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) (lending.Validation, error)
	ConfirmLending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID, lendingID string) error
	CancelLending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) error
	ReturnBook(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) error
}

// Gateway sends an outbound message to a destination and returns the transport's message id.
type Gateway interface {
	SendMessage(ctx context.Context, message any, destination string) (string, error)
}

// NewLendingRegistry wires the four lending operations to the state machine.
func NewLendingRegistry(machine StateMachine, gateway Gateway) (Registry, error) {
	if machine == nil {
		return Registry{}, ErrNilStateMachine
	}

	if gateway == nil {
		return Registry{}, ErrNilGateway
	}

	h := lendingHandlers{machine: machine, gateway: gateway}

	return NewRegistry(map[string]Handler{
		OperationValidateLendBook: h.handlerFor(OperationValidateLendBook),
		OperationConfirmLendBook:  h.handlerFor(OperationConfirmLendBook),
		OperationCancelLendBook:   h.handlerFor(OperationCancelLendBook),
		OperationReturnLentBook:   h.handlerFor(OperationReturnLentBook),
	})
}

package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation is matched by every *UnknownOperationError.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidPayload is returned when a payload cannot be decoded into its command.
	ErrInvalidPayload = errors.New("invalid message payload")

	// ErrMissingReplyAddress is returned when an operation that replies has no reply address.
	ErrMissingReplyAddress = errors.New("reply address must not be empty")

	// ErrReplyFailed is returned when a reply could not be handed to the gateway.
	ErrReplyFailed = errors.New("sending reply failed")

	// ErrNilStateMachine is returned when a lending registry is built without a state machine.
	ErrNilStateMachine = errors.New("lending state machine must not be nil")

	// ErrNilGateway is returned when a lending registry is built without a gateway.
	ErrNilGateway = errors.New("message gateway must not be nil")

	// ErrEmptyOperation is returned when a registry entry has an empty operation name.
	ErrEmptyOperation = errors.New("operation name must not be empty")

	// ErrNilHandler is returned when a registry entry has no handler.
	ErrNilHandler = errors.New("handler must not be nil")
)

// UnknownOperationError reports an operation that no handler is registered for.
// It is fatal for the message and never retried by the dispatcher.
type UnknownOperationError struct {
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("invalid operation: %s", e.Operation)
}

// Is makes errors.Is(err, ErrUnknownOperation) hold for any *UnknownOperationError.
func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

package lending

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/celsus/core/catalog"
)

const (
	logMsgUnmatchedTransition = "lending transition matched no book"
	logMsgTransition          = "lending transition applied"

	logAttrTransition = "transition"
	logAttrBookID     = "book_id"
	logAttrOwnerID    = "owner_id"
	logAttrLendingID  = "lending_id"

	transitionRequest = "request"
	transitionConfirm = "confirm"
	transitionCancel  = "cancel"
	transitionReturn  = "return"
)

// ErrNilStore is returned by NewStateMachine when no store is given.
var ErrNilStore = errors.New("lending store must not be nil")

// Store is the part of the catalog store the state machine drives.
type Store interface {
	TransitionToLendingPending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) (*string, error)
	TransitionToLendingConfirmed(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID, lendingID string) (bool, error)
	TransitionToNotLent(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) (bool, error)
}

// Validation is the outcome of a lending request.
// Title is set exactly when Validated is true.
type Validation struct {
	Validated bool
	Title     *string
}

// StateMachine applies lending transitions to books.
type StateMachine struct {
	store            Store
	logger           catalog.Logger
	contextualLogger catalog.ContextualLogger
}

// Option configures a StateMachine.
type Option func(*StateMachine) error

// WithLogger sets the logger used for transition logs.
func WithLogger(logger catalog.Logger) Option {
	return func(m *StateMachine) error {
		m.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger catalog.ContextualLogger) Option {
	return func(m *StateMachine) error {
		m.contextualLogger = logger
		return nil
	}
}

// NewStateMachine creates a StateMachine on top of the given store.
func NewStateMachine(store Store, options ...Option) (*StateMachine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	m := &StateMachine{store: store}

	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RequestLending moves a book that is not lent into the pending state.
// The request is validated only when this call performed the transition; a book that is
// already pending or lent, unknown, or owned by someone else yields a non-validated result.
func (m *StateMachine) RequestLending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) (Validation, error) {
	title, err := m.store.TransitionToLendingPending(ctx, guard, bookID)
	if err != nil {
		return Validation{}, err
	}

	m.logOutcome(ctx, transitionRequest, guard, bookID, title != nil)

	return Validation{Validated: title != nil, Title: title}, nil
}

// ConfirmLending records the borrower's lending id on the book.
func (m *StateMachine) ConfirmLending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID, lendingID string) error {
	matched, err := m.store.TransitionToLendingConfirmed(ctx, guard, bookID, lendingID)
	if err != nil {
		return err
	}

	m.logOutcome(ctx, transitionConfirm, guard, bookID, matched, logAttrLendingID, lendingID)

	return nil
}

// CancelLending clears a pending lending that the borrower side refused.
func (m *StateMachine) CancelLending(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) error {
	matched, err := m.store.TransitionToNotLent(ctx, guard, bookID)
	if err != nil {
		return err
	}

	m.logOutcome(ctx, transitionCancel, guard, bookID, matched)

	return nil
}

// ReturnBook marks a lent book as back on the shelf.
func (m *StateMachine) ReturnBook(ctx context.Context, guard catalog.AuthorizationGuard, bookID uuid.UUID) error {
	matched, err := m.store.TransitionToNotLent(ctx, guard, bookID)
	if err != nil {
		return err
	}

	m.logOutcome(ctx, transitionReturn, guard, bookID, matched)

	return nil
}

func (m *StateMachine) logOutcome(
	ctx context.Context,
	transition string,
	guard catalog.AuthorizationGuard,
	bookID uuid.UUID,
	matched bool,
	extra ...any,
) {
	args := append([]any{
		logAttrTransition, transition,
		logAttrBookID, bookID.String(),
		logAttrOwnerID, guard.OwnerID(),
	}, extra...)

	level, msg := slog.LevelInfo, logMsgTransition
	if !matched {
		level, msg = slog.LevelWarn, logMsgUnmatchedTransition
	}

	if m.contextualLogger != nil {
		switch level {
		case slog.LevelWarn:
			m.contextualLogger.WarnContext(ctx, msg, args...)
		default:
			m.contextualLogger.InfoContext(ctx, msg, args...)
		}

		return
	}

	if m.logger == nil {
		return
	}

	switch level {
	case slog.LevelWarn:
		m.logger.Warn(msg, args...)
	default:
		m.logger.Info(msg, args...)
	}
}

package catalog

import (
	"database/sql"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// LendingPendingSentinel is the column value that marks a lending request awaiting confirmation.
const LendingPendingSentinel = "PENDING"

type lendingKind uint8

const (
	lendingNone lendingKind = iota
	lendingPending
	lendingConfirmed
)

// LendingState is the lending status of a book: NONE, PENDING or CONFIRMED(lendingID).
// It is stored in a single nullable column, see LendingStateFromColumn and Column.
type LendingState struct {
	kind      lendingKind
	lendingID string
}

// NotLent is the NONE state.
func NotLent() LendingState {
	return LendingState{kind: lendingNone}
}

// LendingPending is the PENDING state.
func LendingPending() LendingState {
	return LendingState{kind: lendingPending}
}

// LendingConfirmed is the CONFIRMED state for the given lending id.
func LendingConfirmed(lendingID string) (LendingState, error) {
	if err := CheckLendingID(lendingID); err != nil {
		return LendingState{}, err
	}

	return LendingState{kind: lendingConfirmed, lendingID: lendingID}, nil
}

// CheckLendingID rejects lending ids that could not be told apart from the other states.
func CheckLendingID(lendingID string) error {
	if lendingID == "" || lendingID == LendingPendingSentinel {
		return ErrInvalidLendingID
	}

	return nil
}

// LendingStateFromColumn decodes the nullable lending_id column.
func LendingStateFromColumn(column sql.NullString) LendingState {
	switch {
	case !column.Valid:
		return NotLent()
	case column.String == LendingPendingSentinel:
		return LendingPending()
	default:
		return LendingState{kind: lendingConfirmed, lendingID: column.String}
	}
}

// Column encodes the state for the nullable lending_id column.
func (s LendingState) Column() sql.NullString {
	switch s.kind {
	case lendingPending:
		return sql.NullString{String: LendingPendingSentinel, Valid: true}
	case lendingConfirmed:
		return sql.NullString{String: s.lendingID, Valid: true}
	default:
		return sql.NullString{}
	}
}

func (s LendingState) IsNone() bool      { return s.kind == lendingNone }
func (s LendingState) IsPending() bool   { return s.kind == lendingPending }
func (s LendingState) IsConfirmed() bool { return s.kind == lendingConfirmed }

// LendingID returns the confirmed lending id, if any.
func (s LendingState) LendingID() (string, bool) {
	return s.lendingID, s.kind == lendingConfirmed
}

func (s LendingState) String() string {
	switch s.kind {
	case lendingPending:
		return "PENDING"
	case lendingConfirmed:
		return fmt.Sprintf("CONFIRMED(%s)", s.lendingID)
	default:
		return "NONE"
	}
}

// MarshalJSON renders the state the way API clients read it: null, "PENDING" or the lending id.
func (s LendingState) MarshalJSON() ([]byte, error) {
	column := s.Column()
	if !column.Valid {
		return []byte("null"), nil
	}

	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(column.String)
}

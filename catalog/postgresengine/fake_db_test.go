package postgresengine

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/celsus/core/catalog/postgresengine/internal/adapters"
)

// scriptedStep answers the next statement. fragment must be contained in its SQL.
type scriptedStep struct {
	fragment string
	rows     [][]any
	affected int64
	err      error
}

// scriptedDB is a DBAdapter that replays scriptedSteps in order and records what happened.
type scriptedDB struct {
	mu         sync.Mutex
	steps      []scriptedStep
	statements []string
	args       [][]any
	events     []string
	commitErr  error
}

func newScriptedDB(steps ...scriptedStep) *scriptedDB {
	return &scriptedDB{steps: steps}
}

func (db *scriptedDB) next(query string, args []any) scriptedStep {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.statements = append(db.statements, query)
	db.args = append(db.args, args)

	if len(db.steps) == 0 {
		return scriptedStep{err: fmt.Errorf("unexpected statement: %s", query)}
	}

	step := db.steps[0]
	db.steps = db.steps[1:]

	if !strings.Contains(query, step.fragment) {
		return scriptedStep{err: fmt.Errorf("statement %q does not contain %q", query, step.fragment)}
	}

	return step
}

func (db *scriptedDB) record(event string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.events = append(db.events, event)
}

func (db *scriptedDB) Query(_ context.Context, query string, args ...any) (adapters.DBRows, error) {
	step := db.next(query, args)
	if step.err != nil {
		return nil, step.err
	}

	return &scriptedRows{rows: step.rows, index: -1}, nil
}

func (db *scriptedDB) Exec(_ context.Context, query string, args ...any) (adapters.DBResult, error) {
	step := db.next(query, args)
	if step.err != nil {
		return nil, step.err
	}

	return scriptedResult(step.affected), nil
}

func (db *scriptedDB) BeginTx(_ context.Context) (adapters.DBTx, error) {
	db.record("begin")

	return &scriptedTx{db: db}, nil
}

func (db *scriptedDB) remainingSteps() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.steps)
}

type scriptedTx struct {
	db *scriptedDB
}

func (tx *scriptedTx) Query(ctx context.Context, query string, args ...any) (adapters.DBRows, error) {
	return tx.db.Query(ctx, query, args...)
}

func (tx *scriptedTx) Exec(ctx context.Context, query string, args ...any) (adapters.DBResult, error) {
	return tx.db.Exec(ctx, query, args...)
}

func (tx *scriptedTx) Commit(_ context.Context) error {
	tx.db.record("commit")

	return tx.db.commitErr
}

func (tx *scriptedTx) Rollback(_ context.Context) error {
	tx.db.record("rollback")

	return nil
}

type scriptedRows struct {
	rows  [][]any
	index int
}

func (r *scriptedRows) Next() bool {
	r.index++

	return r.index < len(r.rows)
}

func (r *scriptedRows) Scan(dest ...any) error {
	row := r.rows[r.index]
	if len(row) != len(dest) {
		return fmt.Errorf("row has %d columns, scan wants %d", len(row), len(dest))
	}

	for i, value := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		source := reflect.ValueOf(value)

		if !source.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("column %d: cannot assign %T to %s", i, value, target.Type())
		}

		target.Set(source)
	}

	return nil
}

func (r *scriptedRows) Err() error   { return nil }
func (r *scriptedRows) Close() error { return nil }

type scriptedResult int64

func (r scriptedResult) RowsAffected() (int64, error) {
	return int64(r), nil
}

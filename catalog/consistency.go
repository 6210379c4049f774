package catalog

import "context"

// ConsistencyLevel tells a store which database may serve a read.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary. It is the default, so that a listing
	// right after a write sees that write.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency lets reads go to a replica when one is configured.
	// Writes and transactions always use the primary.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key holding the requested ConsistencyLevel.
const ConsistencyLevelKey contextKey = "catalog.consistency_level"

// WithStrongConsistency returns a context whose reads go to the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context whose reads may be served by a replica.
//
//	ctx = catalog.WithEventualConsistency(ctx)
//	libraries, err := store.ListLibraries(ctx, guard)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level, defaulting to StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}

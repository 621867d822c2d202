package store

import "context"

// ConsistencyLevel picks the pool a read without an explicit Handle runs on.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary. Commands deciding on what they read need it.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency reads from the replica if one is configured, else from the primary.
	EventualConsistency
)

type consistencyKey struct{}

// WithStrongConsistency marks ctx so ambient reads use the primary.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, consistencyKey{}, StrongConsistency)
}

// WithEventualConsistency marks ctx so ambient reads may use the replica.
// A transaction Handle passed explicitly always wins.
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, consistencyKey{}, EventualConsistency)
}

// GetConsistencyLevel returns the level set on ctx, StrongConsistency if none.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	level, ok := ctx.Value(consistencyKey{}).(ConsistencyLevel)
	if !ok {
		return StrongConsistency
	}

	return level
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	}

	return "unknown"
}

package shell

import "context"

// Command is anything a CoreCommandHandler accepts. CommandType labels logs, spans and metrics.
type Command interface {
	CommandType() string
}

// CoreCommandHandler runs one command against the store, without any instrumentation.
// The observable wrappers add logging, tracing and metrics around it.
type CoreCommandHandler[C Command] interface {
	Handle(ctx context.Context, command C) (HandlerResult, error)
}

// Query is anything a QueryHandler accepts. QueryType labels logs, spans and metrics.
type Query interface {
	QueryType() string
}

// QueryHandler answers a query with a read model R.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

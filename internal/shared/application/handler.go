// Package application holds the pieces every command and query side
// shares: handler contracts, units of work and event metadata.
package application

import "context"

// Command is a request to change state. CommandName is used in logs.
type Command interface {
	CommandName() string
}

// Query is a read-only request.
type Query interface {
	QueryName() string
}

// CommandHandler executes C and reports only whether it succeeded.
type CommandHandler[C Command] interface {
	Handle(ctx context.Context, cmd C) error
}

// QueryHandler answers Q with an R.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

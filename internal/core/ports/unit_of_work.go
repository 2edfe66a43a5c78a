package ports

import (
	"context"
)

// UnitOfWorkFactory creates a new UnitOfWork for each command.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork is the transaction boundary of a command.
// Client code must explicitly manage the transaction lifecycle.
type UnitOfWork interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction. Handlers defer it and ignore
	// the error it returns after Commit.
	Rollback(ctx context.Context) error

	// AccountDirectory returns a directory bound to the current transaction.
	AccountDirectory() AccountDirectory

	// PositionRepository returns a repository bound to the current transaction.
	PositionRepository() PositionRepository
}

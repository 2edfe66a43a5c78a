// Package commands contains the operations that change tracker state.
// Every command follows the same pattern: constructor validation, a unit of
// work around the storage calls, then best-effort publication.
package commands

import (
	"context"

	"tracker/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles the transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// PositionRepoFactory provides the position store within a transaction.
	PositionRepoFactory interface {
		PositionRepository() ports.PositionRepository
	}

	// AccountDirectoryFactory provides the account directory within a transaction.
	AccountDirectoryFactory interface {
		AccountDirectory() ports.AccountDirectory
	}

	// TrackingUoW covers commands that read an account and write its position.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   account, err := uow.AccountDirectory().Get(ctx, id)
	//   err = uow.PositionRepository().Upsert(ctx, position)
	//
	//   err = uow.Commit(ctx)
	TrackingUoW interface {
		TxManager
		AccountDirectoryFactory
		PositionRepoFactory
	}

	// TrackingUoWFactory creates new tracking units of work.
	TrackingUoWFactory interface {
		Create() TrackingUoW
	}
)

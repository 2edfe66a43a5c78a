package memory

import (
	"context"
	"errors"

	"tracker/internal/core/ports"
)

// ErrNoTransaction is returned by Commit and Rollback without a prior Begin.
var ErrNoTransaction = errors.New("no active transaction")

// UnitOfWorkFactory hands out units of work over shared in-memory stores.
type UnitOfWorkFactory struct {
	accounts  *AccountDirectory
	positions *PositionRepository
}

// NewUnitOfWorkFactory creates a factory over the given stores.
func NewUnitOfWorkFactory(accounts *AccountDirectory, positions *PositionRepository) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{accounts: accounts, positions: positions}
}

// Create returns a new unit of work.
func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{accounts: f.accounts, positions: f.positions}
}

// UnitOfWork mirrors the transactional contract of the database backend.
// Each store operation is atomic on its own and there are no multi-write
// commands, so Commit has nothing to flush.
type UnitOfWork struct {
	accounts  *AccountDirectory
	positions *PositionRepository
	active    bool
}

// Begin starts the unit of work. Calling it twice is a no-op.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.active = true
	return nil
}

// Commit ends the unit of work.
func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.active {
		return ErrNoTransaction
	}
	u.active = false
	return nil
}

// Rollback ends the unit of work.
func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.active {
		return ErrNoTransaction
	}
	u.active = false
	return nil
}

// AccountDirectory returns the shared directory.
func (u *UnitOfWork) AccountDirectory() ports.AccountDirectory {
	return u.accounts
}

// PositionRepository returns the shared store.
func (u *UnitOfWork) PositionRepository() ports.PositionRepository {
	return u.positions
}

// Package postgres provides the GORM-based Unit of Work over the PostGIS
// position store and the accounts table.
//
// Usage:
//
//	factory := postgres.NewGormUnitOfWorkFactory(db)
//	uow := factory.Create()
//
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer uow.Rollback(ctx)
//
//	account, err := uow.AccountDirectory().Get(ctx, agentID)
//	if err != nil {
//	    return err
//	}
//	if err := uow.PositionRepository().Upsert(ctx, position); err != nil {
//	    return err
//	}
//
//	return uow.Commit(ctx)
//
// Concurrency Considerations:
//   - Each UnitOfWork instance holds its own transaction
//   - Multiple goroutines must use separate UnitOfWork instances
//   - Position upserts lock a single row, so concurrent agents never contend
package postgres

import (
	"context"

	"gorm.io/gorm"

	"tracker/internal/adapters/out/postgres/accountrepo"
	"tracker/internal/adapters/out/postgres/pgerrs"
	"tracker/internal/adapters/out/postgres/positionrepo"
	"tracker/internal/core/ports"
)

// GormUnitOfWorkFactory creates UnitOfWork instances sharing one connection pool.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory for GORM-based unit of work instances.
//
// Example:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    return err
//	}
//	factory := NewGormUnitOfWorkFactory(db)
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create produces a new UnitOfWork with no open transaction.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork wraps one database transaction. Repositories obtained
// before Begin run on the pool directly.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin opens the transaction. Calling Begin on an open unit of work is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return pgerrs.Classify(tx.Error)
	}

	uow.tx = tx
	return nil
}

// Commit commits the transaction. It returns gorm.ErrInvalidTransaction
// without an open transaction.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return pgerrs.Classify(err)
}

// Rollback discards the transaction. It returns gorm.ErrInvalidTransaction
// without an open transaction, which is the case after Commit.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// AccountDirectory returns the account repository bound to the transaction.
func (uow *GormUnitOfWork) AccountDirectory() ports.AccountDirectory {
	return accountrepo.NewGormAccountRepository(uow.conn())
}

// PositionRepository returns the position repository bound to the transaction.
func (uow *GormUnitOfWork) PositionRepository() ports.PositionRepository {
	return positionrepo.NewGormPositionRepository(uow.conn())
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

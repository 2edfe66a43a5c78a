package accountrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tracker/internal/adapters/out/postgres/pgerrs"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

// GormAccountRepository implements ports.AccountDirectory.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a repository over db, which may be a
// transaction.
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Get returns the account of agentID.
func (r *GormAccountRepository) Get(ctx context.Context, agentID kernel.AgentID) (*agent.Account, error) {
	if agentID == "" {
		return nil, kernel.ErrAgentIDIsRequired
	}

	var dto AccountDTO
	if err := r.db.WithContext(ctx).First(&dto, "agent_id = ?", agentID.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("agentId", agentID.String())
		}
		return nil, pgerrs.Classify(err)
	}

	return toDomain(dto)
}

// Put creates or replaces account. It is used to seed accounts from
// configuration.
func (r *GormAccountRepository) Put(ctx context.Context, account *agent.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	dto := fromDomain(account)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "role"}),
		}).
		Create(&dto).Error
	return pgerrs.Classify(err)
}

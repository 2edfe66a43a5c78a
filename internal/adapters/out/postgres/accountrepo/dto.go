// Package accountrepo reads agent accounts from the accounts table. The
// table is owned by the account service; the tracker only writes to it when
// seeding development data.
package accountrepo

import (
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// AccountDTO is the row shape of accounts.
type AccountDTO struct {
	AgentID string `gorm:"column:agent_id;type:varchar(128);primaryKey"`
	Name    string `gorm:"column:name;type:varchar(255);not null"`
	Role    string `gorm:"column:role;type:varchar(32);not null"`
}

// TableName overrides GORM's default "account_dtos".
func (AccountDTO) TableName() string {
	return "accounts"
}

func fromDomain(account *agent.Account) AccountDTO {
	return AccountDTO{
		AgentID: account.ID().String(),
		Name:    account.Name(),
		Role:    account.Role().String(),
	}
}

func toDomain(dto AccountDTO) (*agent.Account, error) {
	id, err := kernel.NewAgentID(dto.AgentID)
	if err != nil {
		return nil, err
	}

	role, err := agent.ParseRole(dto.Role)
	if err != nil {
		return nil, err
	}

	return agent.NewAccount(id, dto.Name, role)
}

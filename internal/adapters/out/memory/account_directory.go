package memory

import (
	"context"
	"sync"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

// AccountDirectory is a seeded, in-process account directory.
type AccountDirectory struct {
	mu       sync.RWMutex
	accounts map[kernel.AgentID]*agent.Account
}

// NewAccountDirectory creates a directory holding accounts.
func NewAccountDirectory(accounts ...*agent.Account) *AccountDirectory {
	d := &AccountDirectory{accounts: make(map[kernel.AgentID]*agent.Account, len(accounts))}
	for _, account := range accounts {
		d.accounts[account.ID()] = account
	}
	return d
}

// Get returns the account of agentID.
func (d *AccountDirectory) Get(ctx context.Context, agentID kernel.AgentID) (*agent.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	account, ok := d.accounts[agentID]
	if !ok {
		return nil, errs.NewObjectNotFoundError("agentId", agentID.String())
	}
	return account, nil
}

// Put adds or replaces an account.
func (d *AccountDirectory) Put(account *agent.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.accounts[account.ID()] = account
	return nil
}

// Len returns the number of accounts.
func (d *AccountDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.accounts)
}

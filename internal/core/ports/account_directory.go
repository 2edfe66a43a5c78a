package ports

import (
	"context"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// AccountDirectory resolves an agent identifier to its account. The account
// store is owned by another system; the tracker only reads from it.
type AccountDirectory interface {
	// Get returns the account or an errs.ErrObjectNotFound error.
	Get(ctx context.Context, agentID kernel.AgentID) (*agent.Account, error)
}

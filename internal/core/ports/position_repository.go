// Package ports defines the contracts between the tracker core and its
// infrastructure: storage, the account directory, geocoding and event
// publication.
package ports

import (
	"context"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// PositionRepository stores the last known position of every tracked agent.
//
// Implementations must be safe for concurrent use. Upsert and FindNearby may
// run at the same time; a query sees either the old or the new coordinate of
// an agent, never a mix of both.
type PositionRepository interface {
	// Upsert creates or replaces the position of position.AgentID().
	// Last write wins: there is no version check.
	Upsert(ctx context.Context, position *agent.Position) error

	// Get returns the stored position or an errs.ErrObjectNotFound error.
	Get(ctx context.Context, agentID kernel.AgentID) (*agent.Position, error)

	// FindNearby returns every position of the given role within radiusMeters
	// of center, measured along the great circle, boundary included.
	// Positions without a fix are never returned. Results are ordered by
	// distance, closest first.
	//
	// Example:
	//   center, _ := kernel.NewLocation(10.0, 50.0)
	//   couriers, err := repo.FindNearby(ctx, center, 1000, agent.RoleCourier)
	FindNearby(ctx context.Context, center kernel.Location, radiusMeters float64, role agent.Role) ([]*agent.Position, error)
}

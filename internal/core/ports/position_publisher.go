package ports

import (
	"context"

	"tracker/internal/core/domain/model/agent"
)

// PositionsTopic is the topic that carries agent.PositionUpdated events.
const PositionsTopic = "courier.positions"

// PositionPublisher hands stored positions over to the fan-out machinery.
// Publishing is best effort: a failed publish never undoes the stored position.
type PositionPublisher interface {
	Publish(ctx context.Context, event agent.PositionUpdated) error
}

package agent

import (
	"time"

	"tracker/internal/core/domain/model/kernel"
)

// PositionUpdated is emitted after a courier position has been stored.
// OriginChannel is the live connection that produced the report; it is the
// zero UUID for reports that did not come over a live connection.
// Instance identifies the process that accepted the report so relays can
// tell local events from ones received from peers.
type PositionUpdated struct {
	AgentID       kernel.AgentID
	Location      kernel.Location
	OriginChannel kernel.UUID
	Instance      kernel.UUID
	OccurredAt    time.Time
}

// NewPositionUpdated builds the event for a stored position.
func NewPositionUpdated(position *Position, originChannel, instance kernel.UUID) PositionUpdated {
	return PositionUpdated{
		AgentID:       position.AgentID(),
		Location:      position.Location(),
		OriginChannel: originChannel,
		Instance:      instance,
		OccurredAt:    position.UpdatedAt(),
	}
}

// HasOrigin reports whether the event came from a live connection.
func (e PositionUpdated) HasOrigin() bool {
	return !e.OriginChannel.IsZero()
}

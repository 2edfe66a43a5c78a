// Package relay carries PositionUpdated events between tracker instances
// that share the same database or message broker, so a courier connected to
// one instance is visible to observers connected to another.
//
// Every relay has the same two halves:
//   - outbound: events published locally by this instance are encoded and
//     sent to the shared transport
//   - inbound: messages from other instances are decoded and re-published on
//     the local broker with no origin channel, so every local connection
//     receives them
//
// Events carry the id of the instance that accepted the report. Inbound
// messages from this instance are discarded and re-published events are
// never sent again, so nothing loops.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"tracker/internal/core/application/pubsub"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
	"tracker/internal/pkg/errs"
)

// Topic is the channel or exchange name used on the shared transport.
const Topic = "courier_positions"

// Message is the wire form of a relayed event.
type Message struct {
	AgentID    string    `json:"agentId"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	Instance   string    `json:"instance"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Encode serializes event for the wire.
func Encode(event agent.PositionUpdated) ([]byte, error) {
	if err := event.Location.Validate(); err != nil {
		return nil, errors.Join(errs.NewValueIsInvalidError("event"), err)
	}
	return json.Marshal(Message{
		AgentID:    event.AgentID.String(),
		Longitude:  event.Location.Longitude(),
		Latitude:   event.Location.Latitude(),
		Instance:   event.Instance.String(),
		OccurredAt: event.OccurredAt,
	})
}

// Decode parses a relayed message. The result has no origin channel.
func Decode(raw []byte) (agent.PositionUpdated, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return agent.PositionUpdated{}, errs.NewValueIsInvalidErrorWithCause("relay message", err)
	}

	id, err := kernel.NewAgentID(msg.AgentID)
	if err != nil {
		return agent.PositionUpdated{}, err
	}
	location, err := kernel.NewLocation(msg.Longitude, msg.Latitude)
	if err != nil {
		return agent.PositionUpdated{}, err
	}
	instance, err := kernel.UUIDFromString(msg.Instance)
	if err != nil {
		return agent.PositionUpdated{}, err
	}

	return agent.PositionUpdated{
		AgentID:    id,
		Location:   location,
		Instance:   instance,
		OccurredAt: msg.OccurredAt,
	}, nil
}

// Sender writes one encoded message to the shared transport.
type Sender func(ctx context.Context, payload []byte) error

// Bridge connects the local broker to a transport. It is shared by the
// concrete relays.
type Bridge struct {
	broker   *pubsub.Broker[agent.PositionUpdated]
	instance kernel.UUID
	logger   *slog.Logger
}

// NewBridge creates a bridge for this instance.
func NewBridge(broker *pubsub.Broker[agent.PositionUpdated], instance kernel.UUID, logger *slog.Logger) *Bridge {
	return &Bridge{broker: broker, instance: instance, logger: logger}
}

// Instance returns the id of this instance.
func (b *Bridge) Instance() kernel.UUID {
	return b.instance
}

// Subscribe opens the local subscription Forward reads from. Subscribe
// before connecting the transport so no local event is missed.
func (b *Bridge) Subscribe(buffer int) (*pubsub.Subscription[agent.PositionUpdated], error) {
	return b.broker.Subscribe(ports.PositionsTopic, buffer)
}

// Forward sends every local event of this instance through send until ctx
// is done or the subscription closes. Send failures are logged and the event
// is dropped.
func (b *Bridge) Forward(ctx context.Context, sub *pubsub.Subscription[agent.PositionUpdated], send Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if !event.Instance.IsEqual(b.instance) {
				continue
			}
			payload, err := Encode(event)
			if err != nil {
				b.logger.WarnContext(ctx, "failed to encode relay message", "agent_id", event.AgentID.String(), "error", err)
				continue
			}
			if err = send(ctx, payload); err != nil {
				b.logger.WarnContext(ctx, "failed to relay position", "agent_id", event.AgentID.String(), "error", err)
			}
		}
	}
}

// Receive re-publishes a message from another instance locally. Messages
// from this instance are ignored.
func (b *Bridge) Receive(ctx context.Context, payload []byte) error {
	event, err := Decode(payload)
	if err != nil {
		return err
	}
	if event.Instance.IsEqual(b.instance) {
		return nil
	}
	return b.broker.Publish(ctx, ports.PositionsTopic, event)
}

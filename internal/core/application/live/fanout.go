package live

import (
	"context"
	"log/slog"

	"tracker/internal/core/application/pubsub"
	"tracker/internal/core/application/registry"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/ports"
)

// Fanout consumes PositionUpdated events from the broker and broadcasts them
// to every attached channel except the one that reported the position.
// The ingestion path only publishes to the broker; it never touches channels.
type Fanout struct {
	sub      *pubsub.Subscription[agent.PositionUpdated]
	registry *registry.Registry
	recorder Recorder
	logger   *slog.Logger
}

// NewFanout subscribes to the positions topic right away so no event
// published after NewFanout returns is missed. recorder may be nil.
func NewFanout(
	broker *pubsub.Broker[agent.PositionUpdated],
	reg *registry.Registry,
	buffer int,
	recorder Recorder,
	logger *slog.Logger,
) (*Fanout, error) {
	sub, err := broker.Subscribe(ports.PositionsTopic, buffer)
	if err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Fanout{
		sub:      sub,
		registry: reg,
		recorder: recorder,
		logger:   logger.With("component", "fanout"),
	}, nil
}

// Run broadcasts events until ctx is done or the broker is closed.
func (f *Fanout) Run(ctx context.Context) {
	defer f.sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-f.sub.C():
			if !ok {
				return
			}
			res := f.registry.Broadcast(event, event.OriginChannel)
			f.recorder.BroadcastObserved(res)
			if res.Dropped > 0 {
				f.logger.DebugContext(ctx, "broadcast dropped for some channels",
					"agent_id", event.AgentID.String(),
					"delivered", res.Delivered,
					"dropped", res.Dropped)
			}
		}
	}
}

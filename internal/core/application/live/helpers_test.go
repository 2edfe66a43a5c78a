package live_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tracker/internal/adapters/out/memory"
	"tracker/internal/core/application/live"
	"tracker/internal/core/application/pubsub"
	"tracker/internal/core/application/registry"
	"tracker/internal/core/application/usecases/commands"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
)

type fakePeer struct {
	id kernel.UUID

	mu        sync.Mutex
	delivered []agent.PositionUpdated
	replies   [][]byte
	closed    bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{id: kernel.NewUUID()}
}

func (p *fakePeer) ID() kernel.UUID { return p.id }

func (p *fakePeer) Deliver(event agent.PositionUpdated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return registry.ErrChannelClosed
	}
	p.delivered = append(p.delivered, event)
	return nil
}

func (p *fakePeer) Reply(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return registry.ErrChannelClosed
	}
	p.replies = append(p.replies, frame)
	return nil
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) LastActivity() time.Time { return time.Now() }

func (p *fakePeer) Delivered() []agent.PositionUpdated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]agent.PositionUpdated(nil), p.delivered...)
}

func (p *fakePeer) Replies() []live.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]live.Envelope, 0, len(p.replies))
	for _, raw := range p.replies {
		var env live.Envelope
		if err := json.Unmarshal(raw, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}

func (p *fakePeer) ErrorCodes() []string {
	var codes []string
	for _, env := range p.Replies() {
		if env.Type != live.TypeError {
			continue
		}
		var payload live.ErrorPayload
		if err := json.Unmarshal(env.Data, &payload); err == nil {
			codes = append(codes, payload.Code)
		}
	}
	return codes
}

type trackingUoWFactory struct {
	factory *memory.UnitOfWorkFactory
}

func (f trackingUoWFactory) Create() commands.TrackingUoW {
	return f.factory.Create()
}

// harness wires a session stack over the in-memory stores the same way the
// composition root does for the memory backend.
type harness struct {
	registry  *registry.Registry
	broker    *pubsub.Broker[agent.PositionUpdated]
	accounts  *memory.AccountDirectory
	positions *memory.PositionRepository
	ingest    *commands.IngestCoordinateCommandHandler
	logger    *slog.Logger
	config    live.Config
}

func newHarness(t *testing.T, config live.Config) *harness {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	h := &harness{
		registry:  registry.New(),
		broker:    pubsub.NewBroker[agent.PositionUpdated](),
		accounts:  memory.NewAccountDirectory(),
		positions: memory.NewPositionRepository(),
		logger:    logger,
		config:    config,
	}
	t.Cleanup(h.broker.Close)

	for _, acc := range []struct {
		id   string
		role agent.Role
	}{
		{"courier-1", agent.RoleCourier},
		{"courier-2", agent.RoleCourier},
		{"customer-1", agent.RoleCustomer},
	} {
		account, err := agent.NewAccount(kernel.AgentID(acc.id), acc.id, acc.role)
		require.NoError(t, err)
		require.NoError(t, h.accounts.Put(account))
	}

	handler := commands.NewIngestCoordinateCommandHandler(
		trackingUoWFactory{factory: memory.NewUnitOfWorkFactory(h.accounts, h.positions)},
		h.broker.Publisher(ports.PositionsTopic),
		kernel.NewUUID(),
		logger,
	)
	h.ingest = &handler

	fanout, err := live.NewFanout(h.broker, h.registry, 0, nil, logger)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fanout.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return h
}

func (h *harness) connect(ingestor live.Ingestor) (*live.Session, *fakePeer) {
	if ingestor == nil {
		ingestor = h.ingest
	}
	peer := newFakePeer()
	return live.NewSession(peer, h.registry, ingestor, h.config, nil, h.logger), peer
}

func announceFrame(id string) []byte {
	return []byte(`{"type":"announceIdentity","data":{"agentId":"` + id + `"}}`)
}

func reportFrame(t *testing.T, id string, lat, lon float64) []byte {
	t.Helper()
	frame, err := live.Encode(live.TypeReportCoordinate, live.ReportCoordinate{
		AgentID:   id,
		Latitude:  &lat,
		Longitude: &lon,
	})
	require.NoError(t, err)
	return frame
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	httpin "tracker/internal/adapters/in/http"
	"tracker/internal/adapters/in/ws"
	"tracker/internal/adapters/out/geocoder"
	"tracker/internal/adapters/out/memory"
	"tracker/internal/adapters/out/postgres"
	"tracker/internal/adapters/out/postgres/accountrepo"
	"tracker/internal/adapters/out/postgres/positionrepo"
	"tracker/internal/adapters/out/relay"
	"tracker/internal/adapters/out/relay/pgnotify"
	"tracker/internal/adapters/out/relay/rabbitmq"
	"tracker/internal/core/application/live"
	"tracker/internal/core/application/pubsub"
	"tracker/internal/core/application/registry"
	"tracker/internal/core/application/usecases/commands"
	"tracker/internal/core/application/usecases/queries"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/core/ports"
	"tracker/internal/jobs"
	"tracker/internal/observability"
)

// Runner is a background component that runs until ctx is done.
type Runner interface {
	Run(ctx context.Context) error
}

// CompositionRoot owns the process-wide objects and builds everything else
// on demand. A nil gormDB selects the in-memory backend.
type CompositionRoot struct {
	config   Config
	logger   *slog.Logger
	instance kernel.UUID

	gormDB     *gorm.DB
	uowFactory ports.UnitOfWorkFactory
	positions  ports.PositionRepository
	accounts   ports.AccountDirectory

	broker   *pubsub.Broker[agent.PositionUpdated]
	registry *registry.Registry
	metrics  *observability.TrackerCollector
	geocoder ports.Geocoder
}

// NewCompositionRoot wires storage, the broker, the registry and metrics.
// Account seeds from the configuration are written to either backend.
func NewCompositionRoot(
	ctx context.Context,
	config Config,
	gormDB *gorm.DB,
	metricsRegisterer prometheus.Registerer,
	logger *slog.Logger,
) (*CompositionRoot, error) {
	metrics, err := observability.NewTrackerCollector(metricsRegisterer)
	if err != nil {
		return nil, err
	}

	c := &CompositionRoot{
		config:   config,
		logger:   logger,
		instance: kernel.NewUUID(),
		gormDB:   gormDB,
		registry: registry.New(),
		metrics:  metrics,
		broker:   pubsub.NewBroker(pubsub.WithDropHook[agent.PositionUpdated](metrics.BrokerDropped)),
	}

	seeds, err := config.seedAccounts()
	if err != nil {
		return nil, err
	}

	if gormDB == nil {
		directory := memory.NewAccountDirectory(seeds...)
		positions := memory.NewPositionRepository()
		c.accounts, c.positions = directory, positions
		c.uowFactory = memory.NewUnitOfWorkFactory(directory, positions)
	} else {
		directory := accountrepo.NewGormAccountRepository(gormDB)
		for _, seed := range seeds {
			if err = directory.Put(ctx, seed); err != nil {
				return nil, fmt.Errorf("seed account %s: %w", seed.ID(), err)
			}
		}
		c.accounts = directory
		c.positions = positionrepo.NewGormPositionRepository(gormDB)
		c.uowFactory = postgres.NewGormUnitOfWorkFactory(gormDB)
	}

	if config.GeocoderURL != "" {
		nominatim, geoErr := geocoder.NewNominatim(geocoder.Config{
			BaseURL:   config.GeocoderURL,
			UserAgent: config.GeocoderUserAgent,
		}, logger)
		if geoErr != nil {
			return nil, geoErr
		}
		c.geocoder = nominatim
	}

	return c, nil
}

// Instance identifies this process in relayed events.
func (c *CompositionRoot) Instance() kernel.UUID {
	return c.instance
}

// Registry returns the connection registry.
func (c *CompositionRoot) Registry() *registry.Registry {
	return c.registry
}

// Metrics returns the Prometheus collector.
func (c *CompositionRoot) Metrics() *observability.TrackerCollector {
	return c.metrics
}

func (c *CompositionRoot) trackingUoWFactory() commands.TrackingUoWFactory {
	return FuncTrackingUoWFactory(func() commands.TrackingUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateIngestCoordinateCommandHandler() commands.IngestCoordinateCommandHandler {
	return commands.NewIngestCoordinateCommandHandler(
		c.trackingUoWFactory(),
		c.broker.Publisher(ports.PositionsTopic),
		c.instance,
		c.logger,
	)
}

func (c *CompositionRoot) CreateUpdateLocationCommandHandler() commands.UpdateLocationCommandHandler {
	return commands.NewUpdateLocationCommandHandler(
		c.trackingUoWFactory(),
		c.geocoder,
		c.broker.Publisher(ports.PositionsTopic),
		c.instance,
		c.logger,
	)
}

func (c *CompositionRoot) CreateFindNearbyCouriersQueryHandler() queries.FindNearbyCouriersQueryHandler {
	return queries.NewFindNearbyCouriersQueryHandler(c.positions, c.accounts, c.logger)
}

// CreateFanout subscribes the registry fan-out to the positions topic.
func (c *CompositionRoot) CreateFanout() (*live.Fanout, error) {
	return live.NewFanout(c.broker, c.registry, 0, c.metrics, c.logger)
}

// CreateWebSocketHandler builds the /ws handler. Every connection gets its
// own session over the shared registry and ingest handler.
func (c *CompositionRoot) CreateWebSocketHandler() *ws.Handler {
	ingest := c.CreateIngestCoordinateCommandHandler()
	sessionConfig := live.Config{StrictValidation: c.config.StrictValidation}

	return ws.NewHandler(ws.Config{IdleTimeout: c.config.IdleTimeout}, func(peer live.Peer) *live.Session {
		return live.NewSession(peer, c.registry, &ingest, sessionConfig, c.metrics, c.logger)
	}, c.metrics, c.logger)
}

// CreateRouter builds the echo instance with every route mounted.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	update := c.CreateUpdateLocationCommandHandler()
	server := httpin.NewServer(
		&update,
		c.CreateFindNearbyCouriersQueryHandler(),
		httpin.NewAuthenticator(c.config.JWTSecret, c.config.AuthDisabled),
		c.logger,
	)

	return httpin.NewRouter(server, httpin.RouterOptions{
		Live:       c.CreateWebSocketHandler(),
		Metrics:    c.metrics.Handler(),
		Middleware: []echo.MiddlewareFunc{c.metrics.EchoMiddleware()},
	})
}

// CreateRelay returns the configured cross-instance relay, or nil when
// relaying is off.
func (c *CompositionRoot) CreateRelay() (Runner, error) {
	bridge := relay.NewBridge(c.broker, c.instance, c.logger)

	switch c.config.RelayBackend {
	case RelayNone, "":
		return nil, nil //nolint:nilnil // no relay configured
	case RelayPostgres:
		if c.gormDB == nil {
			return nil, errors.New("postgres relay needs the postgres backend")
		}
		return pgnotify.New(c.gormDB, c.config.DSN(), bridge, c.logger), nil
	case RelayRabbitMQ:
		return rabbitmq.New(c.config.AMQPURL, bridge, c.logger), nil
	default:
		return nil, fmt.Errorf("unknown relay backend %q", c.config.RelayBackend)
	}
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.registry, c.config.IdleTimeout, c.metrics, c.logger)
}

// Shutdown closes every live channel and then the broker, which ends the
// fan-out and relay subscriptions.
func (c *CompositionRoot) Shutdown() {
	for _, ch := range c.registry.Channels() {
		c.registry.Detach(ch)
		ch.Close()
	}
	c.broker.Close()
}

type FuncTrackingUoWFactory func() commands.TrackingUoW

func (f FuncTrackingUoWFactory) Create() commands.TrackingUoW {
	return f()
}

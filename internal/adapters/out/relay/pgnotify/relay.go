// Package pgnotify relays positions between instances through Postgres
// LISTEN/NOTIFY. Outbound messages are sent with pg_notify over the GORM
// pool; inbound messages arrive on a dedicated lib/pq listener connection.
package pgnotify

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"tracker/internal/adapters/out/postgres/pgerrs"
	"tracker/internal/adapters/out/relay"
)

const (
	minReconnectInterval = 500 * time.Millisecond
	maxReconnectInterval = 30 * time.Second
	pingInterval         = 90 * time.Second
)

// Relay implements LISTEN/NOTIFY fan-out between instances.
type Relay struct {
	db      *gorm.DB
	dsn     string
	channel string
	bridge  *relay.Bridge
	logger  *slog.Logger
}

// New creates the relay. dsn is used for the listener connection and must
// point at the same database as db.
func New(db *gorm.DB, dsn string, bridge *relay.Bridge, logger *slog.Logger) *Relay {
	return &Relay{
		db:      db,
		dsn:     dsn,
		channel: relay.Topic,
		bridge:  bridge,
		logger:  logger.With("component", "pgnotify_relay"),
	}
}

// Notify sends one payload to every listening instance.
func (r *Relay) Notify(ctx context.Context, payload []byte) error {
	err := r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", r.channel, string(payload)).Error
	return pgerrs.Classify(err)
}

// Run listens and forwards until ctx is done. It returns an error only
// when the listener cannot be set up.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.bridge.Subscribe(0)
	if err != nil {
		return err
	}
	defer sub.Close()

	listener := pq.NewListener(r.dsn, minReconnectInterval, maxReconnectInterval, r.onListenerEvent)
	defer listener.Close()

	if err = listener.Listen(r.channel); err != nil {
		return pgerrs.Classify(err)
	}
	r.logger.InfoContext(ctx, "listening for relayed positions", "channel", r.channel)

	go r.bridge.Forward(ctx, sub, r.Notify)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// A nil notification follows a reconnect; events sent while
			// disconnected are lost, which is acceptable for live positions.
			if n == nil {
				continue
			}
			if err = r.bridge.Receive(ctx, []byte(n.Extra)); err != nil {
				r.logger.WarnContext(ctx, "dropping relayed position", "error", err)
			}
		case <-ticker.C:
			if err = listener.Ping(); err != nil {
				r.logger.WarnContext(ctx, "listener ping failed", "error", err)
			}
		}
	}
}

func (r *Relay) onListenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnectionAttemptFailed:
		r.logger.Warn("listener connection attempt failed", "error", err)
	case pq.ListenerEventDisconnected:
		r.logger.Warn("listener disconnected", "error", err)
	case pq.ListenerEventReconnected:
		r.logger.Info("listener reconnected")
	case pq.ListenerEventConnected:
		r.logger.Debug("listener connected")
	}
}

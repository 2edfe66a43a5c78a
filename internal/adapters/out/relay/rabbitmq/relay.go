// Package rabbitmq relays positions between instances through a RabbitMQ
// fanout exchange. Each instance consumes from its own exclusive,
// auto-deleted queue, so a stopped instance leaves nothing behind.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"tracker/internal/adapters/out/relay"
	"tracker/internal/pkg/errs"
)

const publishTimeout = 5 * time.Second

var errConnectionLost = errors.New("rabbitmq connection lost")

// Relay implements fanout-exchange fan-out between instances.
type Relay struct {
	url      string
	exchange string
	bridge   *relay.Bridge
	logger   *slog.Logger

	mu        sync.RWMutex
	publishCh *amqp.Channel
}

// New creates the relay for the broker at url.
func New(url string, bridge *relay.Bridge, logger *slog.Logger) *Relay {
	return &Relay{
		url:      url,
		exchange: relay.Topic,
		bridge:   bridge,
		logger:   logger.With("component", "rabbitmq_relay"),
	}
}

// Publish sends one payload to the exchange. It fails with
// errs.ErrUnavailable while disconnected.
func (r *Relay) Publish(ctx context.Context, payload []byte) error {
	r.mu.RLock()
	ch := r.publishCh
	r.mu.RUnlock()

	if ch == nil {
		return errs.NewUnavailableError("rabbitmq")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		publishCtx,
		r.exchange,
		"",    // routing key (ignored for fanout)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return errs.NewUnavailableErrorWithCause("rabbitmq", err)
	}
	return nil
}

// Run connects, consumes and forwards until ctx is done, reconnecting with
// exponential backoff whenever the connection drops.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.bridge.Subscribe(0)
	if err != nil {
		return err
	}
	defer sub.Close()

	go r.bridge.Forward(ctx, sub, r.Publish)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	for {
		err = r.session(ctx, policy.Reset)
		if ctx.Err() != nil {
			return nil
		}

		wait := policy.NextBackOff()
		r.logger.WarnContext(ctx, "rabbitmq session ended, reconnecting", "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session runs one connection until it fails or ctx is done. connected is
// called once the consumer is set up.
func (r *Relay) session(ctx context.Context, connected func()) error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	consumeCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	publishCh, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}

	if err = consumeCh.ExchangeDeclare(
		r.exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	queue, err := consumeCh.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err = consumeCh.QueueBind(queue.Name, "", r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		queue.Name,
		"",    // consumer tag
		true,  // auto-ack; live positions are not redelivered
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	r.setPublishChannel(publishCh)
	defer r.setPublishChannel(nil)

	connected()
	r.logger.InfoContext(ctx, "relay connected", "exchange", r.exchange, "queue", queue.Name)

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errConnectionLost
		case d, ok := <-deliveries:
			if !ok {
				return errConnectionLost
			}
			if err = r.bridge.Receive(ctx, d.Body); err != nil {
				r.logger.WarnContext(ctx, "dropping relayed position", "error", err)
			}
		}
	}
}

func (r *Relay) setPublishChannel(ch *amqp.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishCh = ch
}

// Package pubsub is an in-process topic broker. Publishers never wait for
// subscribers: an event that does not fit in a subscriber's buffer is dropped
// for that subscriber only.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBrokerClosed is returned by Publish and Subscribe after Close.
var ErrBrokerClosed = errors.New("broker is closed")

// DefaultBuffer is the subscription buffer used when Subscribe gets a
// non-positive size.
const DefaultBuffer = 256

// Option configures a Broker.
type Option[T any] func(*Broker[T])

// WithDropHook registers a callback run for every event dropped because a
// subscriber buffer was full. It must not block.
func WithDropHook[T any](hook func(topic string)) Option[T] {
	return func(b *Broker[T]) {
		b.onDrop = hook
	}
}

// Broker fans events of type T out to the subscribers of a topic.
//
// Example:
//
//	broker := pubsub.NewBroker[agent.PositionUpdated]()
//	sub, _ := broker.Subscribe(ports.PositionsTopic, 64)
//	go func() {
//	    for event := range sub.C() {
//	        handle(event)
//	    }
//	}()
//	_ = broker.Publish(ctx, ports.PositionsTopic, event)
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription[T]]struct{}
	closed bool
	onDrop func(topic string)

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewBroker creates an empty broker.
func NewBroker[T any](opts ...Option[T]) *Broker[T] {
	b := &Broker[T]{
		subs: make(map[string]map[*Subscription[T]]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription receives the events of one topic until it is closed.
type Subscription[T any] struct {
	topic  string
	ch     chan T
	broker *Broker[T]
	once   sync.Once
}

// C returns the receive channel. It is closed when the subscription or the
// broker is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Topic returns the subscribed topic.
func (s *Subscription[T]) Topic() string {
	return s.topic
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.broker.unsubscribe(s)
}

// Subscribe registers a new subscriber for topic with the given buffer size.
func (b *Broker[T]) Subscribe(topic string, buffer int) (*Subscription[T], error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &Subscription[T]{
		topic:  topic,
		ch:     make(chan T, buffer),
		broker: b,
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription[T]]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub, nil
}

// Publish offers event to every subscriber of topic without blocking.
// It fails only when ctx is done or the broker is closed.
func (b *Broker[T]) Publish(ctx context.Context, topic string, event T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	b.published.Add(1)
	for sub := range b.subs[topic] {
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(topic)
			}
		}
	}
	return nil
}

// Publisher binds the broker to one topic.
func (b *Broker[T]) Publisher(topic string) TopicPublisher[T] {
	return TopicPublisher[T]{broker: b, topic: topic}
}

// Published returns the number of accepted Publish calls.
func (b *Broker[T]) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the number of per-subscriber drops.
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscription and rejects further use.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	b.subs = nil
}

func (b *Broker[T]) unsubscribe(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.topic)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}

// TopicPublisher publishes to a fixed topic. With T = agent.PositionUpdated
// it satisfies ports.PositionPublisher.
type TopicPublisher[T any] struct {
	broker *Broker[T]
	topic  string
}

// Publish publishes event on the bound topic.
func (p TopicPublisher[T]) Publish(ctx context.Context, event T) error {
	return p.broker.Publish(ctx, p.topic, event)
}

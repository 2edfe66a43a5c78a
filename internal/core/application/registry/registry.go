// Package registry keeps track of the live connections served by this
// process and of which agent each identified connection belongs to.
//
// A Registry is an ordinary value owned by the composition root; there is no
// package-level state, so tests and multiple servers in one process each get
// their own.
package registry

import (
	"errors"
	"sync"
	"time"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// ErrChannelClosed is returned by Channel.Deliver after the channel closed.
var ErrChannelClosed = errors.New("channel is closed")

// ErrChannelBusy is returned by Channel.Deliver when the outbound queue is full.
var ErrChannelBusy = errors.New("channel outbound queue is full")

// Channel is one live connection as seen by the registry. Implementations
// must be safe for concurrent use; Deliver must never block on the network.
type Channel interface {
	// ID is the handle of the connection, unique for the life of the process.
	ID() kernel.UUID
	// Deliver queues a position update for the peer.
	Deliver(event agent.PositionUpdated) error
	// Close tears the connection down. It is idempotent.
	Close()
	// LastActivity is the time the peer was last heard from.
	LastActivity() time.Time
}

// BroadcastResult counts the outcome of one Broadcast.
type BroadcastResult struct {
	Delivered int
	Dropped   int
	Skipped   int
}

// Registry maps open connections and agent identities.
//
// Invariants:
//   - every registered channel is also attached
//   - an agent maps to at most one channel; Register replaces the previous one
//   - Unregister(ch) only removes the mapping if it still points at ch, so a
//     late close of an old connection never evicts the agent's new connection
//
// Example:
//
//	reg := registry.New()
//	reg.Attach(ch)
//	reg.Register("courier-1", ch)
//	defer reg.Detach(ch)
//	res := reg.Broadcast(event, ch.ID())
type Registry struct {
	mu       sync.RWMutex
	attached map[kernel.UUID]Channel
	byAgent  map[kernel.AgentID]Channel
	agentOf  map[kernel.UUID]kernel.AgentID
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		attached: make(map[kernel.UUID]Channel),
		byAgent:  make(map[kernel.AgentID]Channel),
		agentOf:  make(map[kernel.UUID]kernel.AgentID),
	}
}

// Attach records an open connection. Attached connections receive
// broadcasts whether or not they have announced an identity.
func (r *Registry) Attach(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attached[ch.ID()] = ch
}

// Detach forgets a connection and its identity mapping, if it still owns one.
func (r *Registry) Detach(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unregisterLocked(ch.ID())
	delete(r.attached, ch.ID())
}

// Register binds agentID to ch, superseding any previous channel for that
// agent. The previous channel is returned but not closed. A channel that was
// registered under another agent id loses that binding.
func (r *Registry) Register(agentID kernel.AgentID, ch Channel) (previous Channel, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ch.ID()
	r.attached[id] = ch

	if oldAgent, ok := r.agentOf[id]; ok && oldAgent != agentID {
		r.unregisterLocked(id)
	}

	previous, replaced = r.byAgent[agentID]
	if replaced && previous.ID().IsEqual(id) {
		previous, replaced = nil, false
	}
	if replaced {
		delete(r.agentOf, previous.ID())
	}

	r.byAgent[agentID] = ch
	r.agentOf[id] = agentID
	return previous, replaced
}

// Unregister removes the identity mapping owned by ch. It reports whether a
// mapping was removed; it is false when the agent has since reconnected.
func (r *Registry) Unregister(ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unregisterLocked(ch.ID())
}

func (r *Registry) unregisterLocked(id kernel.UUID) bool {
	agentID, ok := r.agentOf[id]
	if !ok {
		return false
	}
	delete(r.agentOf, id)

	if current, found := r.byAgent[agentID]; found && current.ID().IsEqual(id) {
		delete(r.byAgent, agentID)
		return true
	}
	return false
}

// Lookup returns the channel currently registered for agentID.
func (r *Registry) Lookup(agentID kernel.AgentID) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.byAgent[agentID]
	return ch, ok
}

// AgentOf returns the agent a channel is registered for.
func (r *Registry) AgentOf(ch Channel) (kernel.AgentID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.agentOf[ch.ID()]
	return id, ok
}

// Broadcast delivers event to every attached channel except the one whose
// handle is exclude. Delivery happens outside the lock on a snapshot, so a
// slow or closed channel cannot stall registration. Per-channel failures are
// counted as dropped and otherwise ignored.
func (r *Registry) Broadcast(event agent.PositionUpdated, exclude kernel.UUID) BroadcastResult {
	var res BroadcastResult
	for _, ch := range r.Channels() {
		if !exclude.IsZero() && ch.ID().IsEqual(exclude) {
			res.Skipped++
			continue
		}
		if err := ch.Deliver(event); err != nil {
			res.Dropped++
			continue
		}
		res.Delivered++
	}
	return res
}

// Channels returns a snapshot of the attached channels.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Channel, 0, len(r.attached))
	for _, ch := range r.attached {
		out = append(out, ch)
	}
	return out
}

// Len returns the number of attached channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.attached)
}

// Identified returns the number of agents with a registered channel.
func (r *Registry) Identified() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byAgent)
}

// SweepIdle closes and detaches every channel whose last activity is older
// than idle. It returns the swept channels.
func (r *Registry) SweepIdle(now time.Time, idle time.Duration) []Channel {
	var stale []Channel
	for _, ch := range r.Channels() {
		if now.Sub(ch.LastActivity()) > idle {
			stale = append(stale, ch)
		}
	}

	for _, ch := range stale {
		r.Detach(ch)
		ch.Close()
	}
	return stale
}

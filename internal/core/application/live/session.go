// Package live implements the per-connection side of the live location
// protocol: the session state machine that turns client frames into
// coordinate ingestion, and the fan-out that pushes stored positions to
// every other open connection.
//
// The package does not know about any transport. Adapters wrap a network
// connection in a Peer and feed raw frames to Session.Handle.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tracker/internal/core/application/registry"
	"tracker/internal/core/application/usecases/commands"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

// State is the lifecycle state of a Session.
type State int

const (
	// StateUnidentified is the initial state; coordinate reports are dropped.
	StateUnidentified State = iota
	// StateIdentified means an agent id was announced and registered.
	StateIdentified
	// StateClosed is final.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnidentified:
		return "unidentified"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Ingest outcomes reported to the Recorder.
const (
	OutcomeStored   = "stored"
	OutcomeIgnored  = "ignored"
	OutcomeDropped  = "dropped"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeMismatch = "mismatch"
)

// ErrSessionClosed is returned by Handle after Close.
var ErrSessionClosed = errors.New("session is closed")

// Peer is the transport side of a session.
type Peer interface {
	registry.Channel
	// Reply queues a frame for this peer only.
	Reply(frame []byte) error
}

// Ingestor stores one coordinate report.
type Ingestor interface {
	Handle(ctx context.Context, cmd commands.IngestCoordinateCommand) (*agent.Position, error)
}

// Recorder receives protocol metrics. The zero Session uses a no-op recorder.
type Recorder interface {
	IngestObserved(outcome string)
	BroadcastObserved(res registry.BroadcastResult)
}

type nopRecorder struct{}

func (nopRecorder) IngestObserved(string)                      {}
func (nopRecorder) BroadcastObserved(registry.BroadcastResult) {}

// Config holds the protocol switches shared by every session.
type Config struct {
	// StrictValidation makes the session answer rejected frames with an
	// error frame instead of dropping them silently.
	StrictValidation bool
}

// Session is the state machine of one live connection:
//
//	Unidentified --announceIdentity--> Identified --announceIdentity--> Identified
//	     |                                  |
//	     +------------- Close --------------+--> Closed
//
// Handle may be called from the connection's read goroutine while Close is
// called from elsewhere (idle sweep, shutdown); both are safe.
type Session struct {
	peer     Peer
	registry *registry.Registry
	ingestor Ingestor
	config   Config
	recorder Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	agentID kernel.AgentID
}

// NewSession attaches peer to the registry and returns its session in
// StateUnidentified. recorder may be nil.
func NewSession(
	peer Peer,
	reg *registry.Registry,
	ingestor Ingestor,
	config Config,
	recorder Recorder,
	logger *slog.Logger,
) *Session {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	reg.Attach(peer)

	return &Session{
		peer:     peer,
		registry: reg,
		ingestor: ingestor,
		config:   config,
		recorder: recorder,
		logger:   logger.With("component", "live_session", "channel_id", peer.ID().String()),
		state:    StateUnidentified,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AgentID returns the announced identity, empty while unidentified.
func (s *Session) AgentID() kernel.AgentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentID
}

// Handle processes one raw client frame. Protocol-level rejections never
// return an error; they are dropped or, in strict mode, answered with an
// error frame. Handle returns an error only once the session is closed.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	msg, err := Decode(raw)
	if err != nil {
		s.reject(ctx, CodeInvalidRequest, err)
		return nil
	}

	switch {
	case msg.Announce != nil:
		s.announce(ctx, msg.Announce)
	case msg.Report != nil:
		s.report(ctx, msg.Report)
	}
	return nil
}

func (s *Session) announce(ctx context.Context, m *AnnounceIdentity) {
	id, err := kernel.NewAgentID(m.AgentID)
	if err != nil {
		s.reject(ctx, CodeInvalidRequest, err)
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	previous, replaced := s.registry.Register(id, s.peer)
	s.state = StateIdentified
	s.agentID = id
	s.mu.Unlock()

	if replaced {
		s.logger.InfoContext(ctx, "agent reconnected, previous channel superseded",
			"agent_id", id.String(),
			"previous_channel_id", previous.ID().String())
	}
	s.logger.DebugContext(ctx, "agent identified", "agent_id", id.String())

	s.reply(ctx, TypeIdentified, Identified{AgentID: id.String()})
}

func (s *Session) report(ctx context.Context, m *ReportCoordinate) {
	s.mu.Lock()
	state, announced := s.state, s.agentID
	s.mu.Unlock()

	if state != StateIdentified {
		s.recorder.IngestObserved(OutcomeDropped)
		s.reject(ctx, CodeNotIdentified, errors.New("announce an identity before reporting coordinates"))
		return
	}

	if m.AgentID != "" {
		if claimed, err := kernel.NewAgentID(m.AgentID); err != nil || claimed != announced {
			s.recorder.IngestObserved(OutcomeMismatch)
			s.reject(ctx, CodeIdentityMismatch, fmt.Errorf("report for %q on a channel identified as %q", m.AgentID, announced))
			return
		}
	}

	if m.Latitude == nil || m.Longitude == nil {
		s.recorder.IngestObserved(OutcomeInvalid)
		s.reject(ctx, CodeInvalidRequest, errs.NewValueIsRequiredError("latitude and longitude"))
		return
	}

	location, err := kernel.NewLocation(*m.Longitude, *m.Latitude)
	if err != nil {
		s.recorder.IngestObserved(OutcomeInvalid)
		s.reject(ctx, CodeInvalidCoordinate, err)
		return
	}

	cmd, err := commands.NewIngestCoordinateCommand(announced, location, s.peer.ID())
	if err != nil {
		s.recorder.IngestObserved(OutcomeInvalid)
		s.reject(ctx, CodeInvalidRequest, err)
		return
	}

	if _, err = s.ingestor.Handle(ctx, cmd); err != nil {
		if errors.Is(err, commands.ErrIngestIgnored) {
			s.recorder.IngestObserved(OutcomeIgnored)
			s.logger.DebugContext(ctx, "coordinate report ignored", "agent_id", announced.String(), "reason", err)
			return
		}
		s.recorder.IngestObserved(OutcomeFailed)
		s.logger.ErrorContext(ctx, "failed to ingest coordinate", "agent_id", announced.String(), "error", err)
		s.reject(ctx, CodeUnavailable, errors.New("position could not be stored, retry later"))
		return
	}

	s.recorder.IngestObserved(OutcomeStored)
}

// Close moves the session to StateClosed and removes the peer from the
// registry. Only the mapping owned by this peer is removed, so an agent that
// already reconnected on another channel keeps its new registration.
// Close does not close the peer itself; the transport does that.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	agentID := s.agentID
	s.mu.Unlock()

	s.registry.Detach(s.peer)
	s.logger.Debug("session closed", "agent_id", agentID.String())
}

func (s *Session) reject(ctx context.Context, code string, cause error) {
	if !s.config.StrictValidation {
		return
	}
	s.reply(ctx, TypeError, ErrorPayload{Code: code, Message: cause.Error()})
}

func (s *Session) reply(ctx context.Context, frameType string, payload any) {
	frame, err := Encode(frameType, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode frame", "type", frameType, "error", err)
		return
	}
	if err = s.peer.Reply(frame); err != nil {
		s.logger.DebugContext(ctx, "failed to queue frame", "type", frameType, "error", err)
	}
}

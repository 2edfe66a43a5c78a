package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tracker/internal/core/application/live"
	"tracker/internal/core/application/registry"
	"tracker/internal/core/domain/model/agent"
	"tracker/internal/core/domain/model/kernel"
)

// Conn is one websocket connection. It implements live.Peer: Deliver and
// Reply only enqueue, and a dedicated writer goroutine owns all data writes.
type Conn struct {
	id       kernel.UUID
	conn     *websocket.Conn
	config   Config
	recorder OutboundRecorder
	logger   *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64
}

var _ live.Peer = (*Conn)(nil)

func newConn(conn *websocket.Conn, config Config, recorder OutboundRecorder, logger *slog.Logger) *Conn {
	c := &Conn{
		id:       kernel.NewUUID(),
		conn:     conn,
		config:   config,
		recorder: recorder,
		send:     make(chan []byte, config.SendBuffer),
		done:     make(chan struct{}),
	}
	c.logger = logger.With("channel_id", c.id.String())
	c.touch()
	return c
}

// ID returns the connection handle.
func (c *Conn) ID() kernel.UUID {
	return c.id
}

// Deliver queues a positionUpdated frame.
func (c *Conn) Deliver(event agent.PositionUpdated) error {
	frame, err := live.EncodePositionUpdated(event)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// Reply queues frame for this connection.
func (c *Conn) Reply(frame []byte) error {
	return c.enqueue(frame)
}

// LastActivity is the time of the last frame or pong from the client.
func (c *Conn) LastActivity() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Close sends a close frame and tears the connection down. It is idempotent
// and safe to call from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.config.WriteWait),
		)
		_ = c.conn.Close()
	})
}

func (c *Conn) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return registry.ErrChannelClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return registry.ErrChannelClosed
	default:
		if c.recorder != nil {
			c.recorder.OutboundDropped()
		}
		return registry.ErrChannelBusy
	}
}

func (c *Conn) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Conn) refreshDeadline() error {
	c.touch()
	return c.conn.SetReadDeadline(time.Now().Add(c.config.IdleTimeout))
}

// readPump feeds client frames to session until the connection fails, the
// client goes idle or the session closes. It closes both on return.
func (c *Conn) readPump(ctx context.Context, session *live.Session) {
	defer func() {
		session.Close()
		c.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.refreshDeadline()
	c.conn.SetPongHandler(func(string) error {
		return c.refreshDeadline()
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				c.logger.DebugContext(ctx, "live channel read failed", "error", err)
			}
			return
		}
		_ = c.refreshDeadline()

		if err = session.Handle(ctx, message); err != nil {
			return
		}
	}
}

// writePump is the only writer of data frames. It also pings the client so
// that a healthy but quiet client keeps answering with pongs.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

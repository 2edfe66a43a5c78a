// Package ws serves the live location channel over gorilla/websocket.
//
// Each connection runs two goroutines: the HTTP handler goroutine reads and
// feeds frames to a live.Session, and a writer drains the bounded send
// queue. A full queue drops the frame for that connection only.
package ws

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"tracker/internal/core/application/live"
)

const (
	defaultIdleTimeout    = 60 * time.Second
	defaultWriteWait      = 10 * time.Second
	defaultSendBuffer     = 64
	defaultMaxMessageSize = 8192
)

// Config tunes the connection lifecycle. Zero fields take defaults;
// PingInterval defaults to 9/10 of IdleTimeout.
type Config struct {
	IdleTimeout    time.Duration
	PingInterval   time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	MaxMessageSize int64
	// AllowedOrigins restricts browser origins; empty allows any origin.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.IdleTimeout {
		c.PingInterval = c.IdleTimeout * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	return c
}

// OutboundRecorder counts frames dropped on a full send queue.
type OutboundRecorder interface {
	OutboundDropped()
}

// SessionFactory binds a new connection to a live session.
type SessionFactory func(peer live.Peer) *live.Session

// Handler upgrades requests to live channels.
type Handler struct {
	upgrader   websocket.Upgrader
	config     Config
	newSession SessionFactory
	recorder   OutboundRecorder
	logger     *slog.Logger
}

// NewHandler creates the handler. recorder may be nil.
func NewHandler(config Config, newSession SessionFactory, recorder OutboundRecorder, logger *slog.Logger) *Handler {
	config = config.withDefaults()
	h := &Handler{
		config:     config,
		newSession: newSession,
		recorder:   recorder,
		logger:     logger.With("component", "ws_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(wsConn, h.config, h.recorder, h.logger)
	session := h.newSession(conn)
	h.logger.DebugContext(r.Context(), "live channel opened", "channel_id", conn.ID().String())

	go conn.writePump()
	conn.readPump(r.Context(), session)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.config.AllowedOrigins, origin)
}

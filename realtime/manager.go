// Package realtime implements the client side of the WireChat realtime
// transport: connection lifecycle with bounded reconnection, inbound
// event dispatch, connected-gated emission, and typing/presence
// aggregation.
package realtime

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/proto"
	"github.com/vovakirdan/wirechat-client/internal/wsconn"
)

// transport is the slice of wsconn.Conn the manager needs. Tests
// substitute fakes.
type transport interface {
	Read(ctx context.Context, v any) error
	Write(ctx context.Context, v any) error
	Close(code websocket.StatusCode, reason string) error
}

type dialFunc func(ctx context.Context) (transport, error)

// Config controls how the manager connects and retries.
type Config struct {
	URL    string
	Tokens auth.TokenSource

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	MaxReconnectTries int
	ReconnectInterval time.Duration
	MaxReconnectDelay time.Duration

	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxReconnectTries == 0 {
		c.MaxReconnectTries = 5
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 5 * time.Second
	}
	return c
}

type subscription struct {
	id int
	fn func(State)
}

// Manager owns one websocket transport and its lifecycle. It is an
// explicitly constructed object, not a process-wide singleton, so tests
// and multi-account setups can run independent instances.
type Manager struct {
	cfg  Config
	log  zerolog.Logger
	dial dialFunc
	done chan struct{}

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     transport
	state    State
	subs     []subscription
	nextSub  int
	handlers *Handlers
	cancel   context.CancelFunc
	gen      int
	closed   bool
}

// NewManager constructs a manager from cfg. Nothing connects until
// Connect is called.
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "realtime").Logger()
	}
	m := &Manager{
		cfg:  cfg,
		log:  logger,
		done: make(chan struct{}),
	}
	m.dial = func(ctx context.Context) (transport, error) {
		return wsconn.Dial(ctx, cfg.URL, cfg.HandshakeTimeout, cfg.WriteTimeout)
	}
	return m
}

// State returns a snapshot of the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the transport is up and authenticated.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status == StatusConnected && m.conn != nil
}

// Subscribe registers a state listener and synchronously delivers the
// current state once, so late subscribers are never blind. Listeners
// are notified on every mutation in registration order. The returned
// func unregisters the listener.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	state := m.state
	m.mu.Unlock()

	fn(state)

	return func() {
		m.mu.Lock()
		m.subs = slices.DeleteFunc(m.subs, func(s subscription) bool { return s.id == id })
		m.mu.Unlock()
	}
}

// Connect dials the server and authenticates with the current bearer
// credential. A no-op when already connected. On failure the manager
// records the error state and keeps retrying in the background per the
// reconnect policy; the first error is also returned for Go callers.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return NewError(ErrorClosed, "manager is closed")
	}
	if m.state.Status == StatusConnected {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.setState(func(s *State) {
		s.Status = StatusConnecting
		s.Err = nil
	})

	conn, err := m.establish(ctx)
	if err != nil {
		m.noteFailure(err)
		go m.reconnectLoop(gen)
		return WrapError(ErrorConnection, "connect", err)
	}

	if !m.adopt(gen, conn) {
		return NewError(ErrorClosed, "manager closed during connect")
	}
	return nil
}

// Close stops all loops, closes the socket, resets state to
// disconnected and drops every subscriber. Idempotent; the manager
// cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	conn := m.conn
	m.conn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = State{Status: StatusDisconnected}
	m.subs = nil
	m.handlers = nil
	close(m.done)
	m.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

// establish dials and performs the hello handshake. The credential is
// re-read from the token source on every attempt so a refreshed token
// is picked up across reconnects.
func (m *Manager) establish(ctx context.Context) (transport, error) {
	token, err := m.cfg.Tokens.Token()
	if err != nil {
		return nil, err
	}
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	hello := proto.Inbound{
		Type: proto.InboundTypeHello,
		Data: proto.HelloData{Protocol: proto.ProtocolVersion, Token: token},
	}
	if err := conn.Write(ctx, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return nil, err
	}
	return conn, nil
}

// adopt installs conn as the active transport if gen is still current,
// marks the manager connected and starts the read loop. Returns false
// when the connection raced a Close or a newer Connect.
func (m *Manager) adopt(gen int, conn transport) bool {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		return false
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.conn = conn
	m.cancel = cancel
	m.mu.Unlock()

	m.setState(func(s *State) {
		s.Status = StatusConnected
		s.Err = nil
		s.ReconnectAttempts = 0
		s.LastConnected = time.Now()
	})

	go m.readLoop(runCtx, gen, conn)
	return true
}

func (m *Manager) readLoop(ctx context.Context, gen int, conn transport) {
	for {
		var out proto.Outbound
		if err := conn.Read(ctx, &out); err != nil {
			m.mu.Lock()
			stale := m.closed || gen != m.gen
			m.mu.Unlock()
			if stale {
				return
			}
			if wsconn.IntentionalClose(ctx, err) {
				// Server ended the session cleanly; no retry.
				m.setState(func(s *State) {
					*s = State{Status: StatusDisconnected}
				})
				return
			}
			m.log.Warn().Err(err).Msg("transport lost, reconnecting")
			m.setState(func(s *State) {
				s.Status = StatusReconnecting
				s.Err = err
			})
			m.reconnectLoop(gen)
			return
		}
		m.dispatch(out)
	}
}

// reconnectLoop retries with exponential backoff until success, retry
// exhaustion, Close, or a newer Connect supersedes this generation.
func (m *Manager) reconnectLoop(gen int) {
	delay := m.cfg.ReconnectInterval
	for {
		m.mu.Lock()
		if m.closed || gen != m.gen {
			m.mu.Unlock()
			return
		}
		attempts := m.state.ReconnectAttempts
		m.mu.Unlock()

		if attempts >= m.cfg.MaxReconnectTries {
			m.log.Error().Int("attempts", attempts).Msg("reconnect attempts exhausted")
			m.setState(func(s *State) {
				s.Status = StatusError
			})
			return
		}

		select {
		case <-m.done:
			return
		case <-time.After(delay):
		}

		m.setState(func(s *State) {
			s.Status = StatusReconnecting
		})

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
		conn, err := m.establish(ctx)
		cancel()
		if err != nil {
			m.log.Warn().Err(err).Int("attempt", attempts+1).Msg("reconnect attempt failed")
			m.noteFailure(err)
			delay = min(delay*2, m.cfg.MaxReconnectDelay)
			continue
		}

		if m.adopt(gen, conn) {
			m.log.Info().Msg("reconnected")
		}
		return
	}
}

// noteFailure records one failed connection attempt.
func (m *Manager) noteFailure(err error) {
	m.setState(func(s *State) {
		s.ReconnectAttempts++
		s.Status = StatusError
		s.Err = err
	})
}

// setState mutates the state and synchronously notifies subscribers in
// registration order.
func (m *Manager) setState(mutate func(*State)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	mutate(&m.state)
	state := m.state
	subs := slices.Clone(m.subs)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
}

// send writes one frame. Callers go through the Emitter, which gates on
// connection state; send re-checks under lock to close the race.
func (m *Manager) send(ctx context.Context, frame proto.Inbound) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state.Status == StatusConnected
	m.mu.Unlock()
	if !connected || conn == nil {
		return NewError(ErrorNotConnected, "transport not connected")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.Write(ctx, frame); err != nil {
		return WrapError(ErrorConnection, "write "+frame.Type, err)
	}
	return nil
}

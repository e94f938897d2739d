package remote

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SessionHandler drives one host connection. The session is closed when the
// handler returns, so the handler owns the session's full lifetime; block on
// Session.Done to serve until the host disconnects.
type SessionHandler func(*Session)

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithCheckOrigin sets the origin policy for upgrades. Without it the
// default same-origin policy of gorilla/websocket applies.
func WithCheckOrigin(check func(*http.Request) bool) BridgeOption {
	return func(b *Bridge) { b.upgrader.CheckOrigin = check }
}

// Bridge upgrades inbound websocket connections into protocol sessions. It
// implements http.Handler; mount it wherever the host pages connect.
type Bridge struct {
	upgrader websocket.Upgrader
	handler  SessionHandler

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// NewBridge creates a bridge that hands each new session to handler.
func NewBridge(handler SessionHandler, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		handler:  handler,
		sessions: make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ServeHTTP implements http.Handler.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		http.Error(w, "bridge is shut down", http.StatusServiceUnavailable)
		return
	}
	b.mu.Unlock()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		return
	}

	s := newSession(conn)
	b.track(s)
	defer b.untrack(s)
	defer s.Close()

	b.handler(s)
}

// Sessions reports how many sessions are live.
func (b *Bridge) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Close shuts the bridge down: new upgrades are refused and live sessions
// are closed.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	sessions := make([]*Session, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return nil
}

func (b *Bridge) track(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[s] = struct{}{}
}

func (b *Bridge) untrack(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, s)
}

package progress

import (
	"errors"
	"sync"
	"time"
)

const (
	// sessionBuffer bounds how many undelivered events a session retains.
	// Publishing is best-effort; a slow or absent subscriber loses
	// intermediate events, never the terminal one.
	sessionBuffer = 64

	defaultGrace = 30 * time.Second
)

// ErrSessionExists is returned when a session id is registered twice.
var ErrSessionExists = errors.New("session already registered")

// Session is one run's event channel.
type Session struct {
	id     string
	events chan Event

	mu       sync.Mutex
	terminal bool
}

// Events returns the receive side of the session channel. The channel closes
// after the terminal event plus a grace period.
func (s *Session) Events() <-chan Event { return s.events }

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Hub tracks live sessions by caller-supplied id.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session
	grace    time.Duration
}

// HubOption configures a hub.
type HubOption func(*Hub)

// WithGrace overrides the teardown grace period (primarily for tests).
func WithGrace(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.grace = d
		}
	}
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	hub := &Hub{
		sessions: make(map[string]*Session),
		grace:    defaultGrace,
	}
	for _, opt := range opts {
		opt(hub)
	}
	return hub
}

// Register creates a session for the id. The session must exist before any
// background work for the run is scheduled so subscribers can attach first.
func (h *Hub) Register(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, errors.New("session id required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[sessionID]; ok {
		return nil, ErrSessionExists
	}
	session := &Session{
		id:     sessionID,
		events: make(chan Event, sessionBuffer),
	}
	h.sessions[sessionID] = session
	return session, nil
}

// Get returns the live session for the id.
func (h *Hub) Get(sessionID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[sessionID]
	return session, ok
}

// Publish delivers an event to the session. Events after the terminal one
// are dropped; the first terminal event schedules session teardown.
func (h *Hub) Publish(sessionID string, event Event) {
	session, ok := h.Get(sessionID)
	if !ok {
		return
	}
	session.mu.Lock()
	if session.terminal {
		session.mu.Unlock()
		return
	}
	if event.Terminal() {
		session.terminal = true
	}
	delivered := false
	for !delivered {
		select {
		case session.events <- event:
			delivered = true
		default:
			// Buffer full: intermediate events are droppable, the
			// terminal one evicts an older event and retries.
			if !event.Terminal() {
				delivered = true
				break
			}
			select {
			case <-session.events:
			default:
			}
		}
	}
	terminal := session.terminal
	session.mu.Unlock()
	if terminal {
		h.scheduleTeardown(session)
	}
}

func (h *Hub) scheduleTeardown(session *Session) {
	time.AfterFunc(h.grace, func() {
		h.mu.Lock()
		delete(h.sessions, session.id)
		h.mu.Unlock()
		close(session.events)
	})
}

// Len reports how many sessions are live; used by status surfaces.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

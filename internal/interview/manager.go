package interview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or already-reaped session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager owns the in-memory session registry. Sessions are independent of
// each other; the registry map is the only state shared across them. Idle
// sessions are dropped after the TTL — there is no persistence of
// conversation state, only the terminal record write.
type Manager struct {
	engine *Engine
	ttl    time.Duration
	clock  Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager reaping sessions idle longer than ttl.
func NewManager(engine *Engine, ttl time.Duration) *Manager {
	return &Manager{
		engine:   engine,
		ttl:      ttl,
		clock:    realClock{},
		sessions: make(map[string]*Session),
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(engine *Engine, ttl time.Duration, clock Clock) *Manager {
	m := NewManager(engine, ttl)
	m.clock = clock
	return m
}

// Engine exposes the conversation engine shared by all sessions.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// Create starts a fresh session with the greeting already applied.
func (m *Manager) Create() *Session {
	s := m.engine.NewSession(uuid.NewString())
	now := m.clock.Now()
	s.CreatedAt = now
	s.LastActive = now

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for id, refreshing its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.LastActive = m.clock.Now()
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reap drops sessions idle longer than the TTL and returns how many were
// removed. Done sessions are kept until they expire too, so the UI can
// still render the farewell.
func (m *Manager) Reap() int {
	cutoff := m.clock.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var reaped int
	for id, s := range m.sessions {
		if s.LastActive.Before(cutoff) {
			delete(m.sessions, id)
			reaped++
		}
	}
	return reaped
}

// Run reaps expired sessions at the given interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Reap(); n > 0 {
				slog.Debug("reaped idle sessions", "count", n)
			}
		}
	}
}

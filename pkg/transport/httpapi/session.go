package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formkit/pkg/form"
)

// DefaultIdleTimeout expires sessions nobody touched for this long.
const DefaultIdleTimeout = 30 * time.Minute

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("httpapi: session not found")

// Factory builds a fresh form for a new session.
type Factory func() (*form.Form, error)

// Session binds one form to a browser or API client.
type Session struct {
	ID        string
	Form      *form.Form
	CreatedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive) > timeout
}

// Sessions creates, looks up and expires form sessions.
type Sessions struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	factory     Factory
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessions returns a session store over factory. A non-positive timeout
// falls back to DefaultIdleTimeout.
func NewSessions(factory Factory, idleTimeout time.Duration) *Sessions {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Sessions{
		sessions:    make(map[string]*Session),
		factory:     factory,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create builds a form and registers it under a new id.
func (m *Sessions) Create() (*Session, error) {
	f, err := m.factory()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		Form:       f,
		CreatedAt:  now,
		lastActive: now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session for id and marks it active.
func (m *Sessions) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := m.now()
	if s.idle(now, m.idleTimeout) {
		m.Remove(id)
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Remove closes and forgets a session.
func (m *Sessions) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		_ = s.Form.Close()
	}
}

// Len reports the number of registered sessions.
func (m *Sessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes idle sessions and returns how many were dropped.
func (m *Sessions) Cleanup() int {
	now := m.now()
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idle(now, m.idleTimeout) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		_ = s.Form.Close()
	}
	return len(expired)
}

// Run calls Cleanup every interval until ctx ends, then closes every session.
func (m *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *Sessions) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		_ = s.Form.Close()
	}
}

func (m *Sessions) touch(id string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
	}
}

package agentflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Session Manager
// =============================================================================
// Concurrent conversations get one engine each. The manager hands out
// session IDs and routes messages to the owning engine; cross-session
// isolation falls out of each engine holding its own state.

// ErrSessionNotFound is returned when a session ID is unknown or closed.
var ErrSessionNotFound = fmt.Errorf("session not found")

// Session pairs an ID with a dedicated engine.
type Session struct {
	ID        string
	Engine    *Engine
	CreatedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
}

// LastActive reports when the session last processed a message.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// EngineFactory builds the engine for a new session.
type EngineFactory func() *Engine

// SessionManager owns the session table.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  EngineFactory
}

// NewSessionManager creates a manager that uses factory for every new
// session's engine.
func NewSessionManager(factory EngineFactory) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Open creates a new session with a fresh engine.
func (m *SessionManager) Open() (*Session, error) {
	engine := m.factory()
	if engine == nil {
		return nil, fmt.Errorf("session factory returned no engine")
	}

	now := time.Now()
	s := &Session{
		ID:         newSessionID(),
		Engine:     engine,
		CreatedAt:  now,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns the session for id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Run routes one message to the session's engine.
func (m *SessionManager) Run(ctx context.Context, id, message string, stream StreamFunc) (string, error) {
	s, err := m.Get(id)
	if err != nil {
		return "", err
	}

	s.touch()
	return s.Engine.Run(ctx, message, stream)
}

// Close aborts any active workflow in the session and removes it.
func (m *SessionManager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if err := s.Engine.Abort(ctx); err != nil && err != ErrNoActiveWorkflow {
		return err
	}
	return nil
}

// List returns all sessions ordered by creation time.
func (m *SessionManager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Len reports the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func newSessionID() string {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("session-%d", time.Now().UnixNano())
	}
	return "session-" + id
}

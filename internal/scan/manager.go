package scan

import (
	"sync"
	"time"
)

// Manager keeps at most one active session per operator surface. Starting a
// new session tears down the operator's previous one, releasing its camera.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	cameras   func() Camera
	resolver  Resolver
	committer Committer
	cooldown  time.Duration
}

// NewManager creates a session manager. cameras builds a capture handle per
// session.
func NewManager(cameras func() Camera, resolver Resolver, committer Committer, cooldown time.Duration) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		cameras:   cameras,
		resolver:  resolver,
		committer: committer,
		cooldown:  cooldown,
	}
}

// Open creates and starts a session for an operator and event, replacing any
// existing session for that operator.
func (m *Manager) Open(operatorID, eventID string) (*Session, error) {
	m.mu.Lock()
	if prev, ok := m.sessions[operatorID]; ok {
		prev.Close()
	}
	sess := NewSession(eventID, operatorID, m.cameras(), m.resolver, m.committer, m.cooldown)
	m.sessions[operatorID] = sess
	m.mu.Unlock()

	if err := sess.Start(); err != nil {
		return sess, err
	}
	return sess, nil
}

// Get returns the operator's active session, or nil.
func (m *Manager) Get(operatorID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[operatorID]
}

// Release tears down the operator's session, if any.
func (m *Manager) Release(operatorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[operatorID]; ok {
		sess.Close()
		delete(m.sessions, operatorID)
	}
}

package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Suitable for a single instance.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session), now: time.Now}
}

// Create implements Store
func (m *MemoryStore) Create(_ context.Context, accountID uint, ttl time.Duration) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &Session{ID: id, AccountID: accountID, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	copied := *session
	return &copied, nil
}

// Get implements Store
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if session.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// Touch implements Store
func (m *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[id]; ok {
		session.ExpiresAt = m.now().Add(ttl)
	}
	return nil
}

// Delete implements Store
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// DeleteForAccount implements Store
func (m *MemoryStore) DeleteForAccount(_ context.Context, accountID uint, except string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		if session.AccountID == accountID && id != except {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Sweep drops expired sessions
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

package store

import (
	"errors"
	"sync"

	"resumelens/pkg/domain"
)

// ErrUsernameExists is returned by the memory store on duplicate inserts,
// mirroring the unique-index violation the Postgres store produces.
var ErrUsernameExists = errors.New("username already exists")

// MemoryCredentialStore keeps accounts in-process for tests.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	users map[string]domain.User // key: username
}

// NewMemoryCredentialStore initializes an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{users: make(map[string]domain.User)}
}

// CreateUser inserts an account, failing on duplicate usernames.
func (m *MemoryCredentialStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.Username]; exists {
		return ErrUsernameExists
	}
	m.users[u.Username] = u
	return nil
}

// GetUserByUsername looks up an account by exact username.
func (m *MemoryCredentialStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	return u, ok, nil
}

// MemorySessionStore keeps session records in-process for tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemorySessionStore initializes an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domain.Session)}
}

// Get resolves a session id to its record.
func (m *MemorySessionStore) Get(id string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok, nil
}

// Save writes the session record under its id.
func (m *MemorySessionStore) Save(sess domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

// Delete removes a session record.
func (m *MemorySessionStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

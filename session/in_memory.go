// Package session provides the built-in SessionStore implementation.
// Persistence, eviction, and TTL policy belong to external storage layers;
// this store keeps everything in process memory.
package session

import (
	"sync"

	"github.com/threatdesk/threatdesk/core"
)

// InMemoryStore is a thread-safe in-memory SessionStore. Sessions are cloned
// on load and save so callers never share mutable state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Load implements core.SessionStore.
func (s *InMemoryStore) Load(threadID string) (*core.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[threadID]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

// Save implements core.SessionStore.
func (s *InMemoryStore) Save(threadID string, sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[threadID] = sess.Clone()
	return nil
}

// Len reports how many sessions the store holds.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

package core

import (
	"sync"
	"time"
)

// Turn is one completed query/answer exchange recorded in a session.
type Turn struct {
	Query       Query        `json:"query"`
	Plan        DispatchPlan `json:"plan"`
	Answer      string       `json:"answer"`
	AgentName   string       `json:"agent_name"`
	AgentRole   string       `json:"agent_role"`
	ToolsUsed   []string     `json:"tools_used,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Session is the conversational container for one thread id: an ordered
// sequence of completed turns plus activity timestamps. It is safe for
// concurrent access; the engine never deletes sessions (eviction and TTL are
// a storage collaborator's concern).
type Session struct {
	ID         string    `json:"id"`
	Turns      []Turn    `json:"turns"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"last_active"`
	mu         sync.RWMutex
}

// NewSession creates an empty session for the given thread id.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Turns: []Turn{}, Created: now, LastActive: now}
}

// AppendTurn records a completed turn and bumps the activity timestamp.
func (s *Session) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Turns = append(s.Turns, t)
	s.LastActive = time.Now().UTC()
}

// History returns a defensive copy of the recorded turns.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return turns
}

// Len returns the number of completed turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Turns)
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Turns: make([]Turn, len(s.Turns)), Created: s.Created, LastActive: s.LastActive}
	copy(clone.Turns, s.Turns)
	return clone
}

// SessionStore is the persistence collaborator contract. The engine calls
// Load/Save around each turn but does not implement storage, eviction or TTL
// policy itself.
type SessionStore interface {
	// Load returns the session for a thread id. ok is false when no session
	// exists yet; the caller creates one.
	Load(threadID string) (sess *Session, ok bool, err error)

	// Save persists the session snapshot for a thread id.
	Save(threadID string, sess *Session) error
}

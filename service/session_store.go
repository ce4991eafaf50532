package service

import (
	"sync"

	"sahayak-backend/models"
)

// SessionStore holds the per-session conversation history for the lifetime of
// the process. Sessions are created lazily on first access and never evicted;
// an LRU or TTL policy is a known follow-on hardening, not something the
// store does implicitly.
//
// Appends for the same session id are serialized; different session ids
// proceed fully in parallel.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu    sync.Mutex
	turns []models.Turn
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
	}
}

// History returns a copy of the ordered turns for a session, creating the
// session lazily for an unseen id. The copy is safe to read while other
// requests append.
func (s *SessionStore) History(sessionID string) []models.Turn {
	entry := s.entry(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	turns := make([]models.Turn, len(entry.turns))
	copy(turns, entry.turns)
	return turns
}

// Append appends turns to a session in order. A request appends its user and
// assistant turns in one call so no reader observes a half-written exchange.
func (s *SessionStore) Append(sessionID string, turns ...models.Turn) {
	entry := s.entry(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.turns = append(entry.turns, turns...)
}

// Len returns the number of turns recorded for a session
func (s *SessionStore) Len(sessionID string) int {
	entry := s.entry(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return len(entry.turns)
}

func (s *SessionStore) entry(sessionID string) *sessionEntry {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[sessionID]; ok {
		return entry
	}
	entry = &sessionEntry{}
	s.sessions[sessionID] = entry
	return entry
}

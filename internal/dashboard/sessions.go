package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/coffee-dashboard/internal/metrics"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is an in-memory session registry with idle expiry.
// It is safe for concurrent use. Sessions are lost on restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*storedSession
	ttl      time.Duration
	now      func() time.Time
}

type storedSession struct {
	session  *Session
	lastSeen time.Time
}

// NewSessionStore creates a store that forgets sessions idle for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*storedSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save adds or replaces a session.
func (s *SessionStore) Save(sess *Session) error {
	if sess == nil || sess.ID == uuid.Nil {
		return fmt.Errorf("session ID is required")
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &storedSession{session: sess, lastSeen: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	return nil
}

// Get returns a live session and refreshes its idle timer.
func (s *SessionStore) Get(id string) (*Session, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if s.expired(stored, now) {
		delete(s.sessions, key)
		metrics.SetActiveSessions(len(s.sessions))
		return nil, ErrSessionNotFound
	}
	stored.lastSeen = now
	return stored.session, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	key, err := uuid.Parse(id)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, key)
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.SetActiveSessions(n)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, stored := range s.sessions {
		if s.expired(stored, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(stored *storedSession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(stored.lastSeen) > s.ttl
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryStore implements SessionStore using in-memory storage
type MemoryStore struct {
	sessions map[string]Session
	mutex    sync.RWMutex
	logger   zerolog.Logger
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		logger:   logger.With().Str("component", "memory_store").Logger(),
	}
}

// Set stores a copy of session under its ID.
func (s *MemoryStore) Set(ctx context.Context, session *Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[session.ID] = *session

	s.logger.Debug().
		Str("session_id", session.ID).
		Time("expires_at", session.ExpiresAt).
		Msg("Stored session")
	return nil
}

// Get returns a copy of the session with the given ID.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, NewSessionNotFoundError(sessionID)
	}
	return &session, nil
}

// Delete removes a session
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return NewSessionNotFoundError(sessionID)
	}

	delete(s.sessions, sessionID)
	s.logger.Debug().
		Str("session_id", sessionID).
		Msg("Session deleted")
	return nil
}

// Touch extends the expiry of a live session under the store lock.
func (s *MemoryStore) Touch(ctx context.Context, sessionID string, timeout time.Duration) (*Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, NewSessionNotFoundError(sessionID)
	}
	if session.IsExpired() {
		return nil, NewSessionExpiredError(sessionID)
	}

	session.Refresh(timeout)
	s.sessions[sessionID] = session
	return &session, nil
}

// List returns copies of all stored sessions, expired ones included.
func (s *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		session := session
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Close drops all sessions.
func (s *MemoryStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	count := len(s.sessions)
	s.sessions = make(map[string]Session)

	s.logger.Info().
		Int("cleared_sessions", count).
		Msg("Memory store closed and cleared")
	return nil
}

// Type names the store in stats output.
func (s *MemoryStore) Type() string {
	return "memory"
}

package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSessionManager implements SessionManager interface
type DefaultSessionManager struct {
	store     SessionStore
	generator *SessionIDGenerator
	timeout   time.Duration
	logger    zerolog.Logger
}

// ManagerConfig contains configuration for the session manager
type ManagerConfig struct {
	SessionTimeout time.Duration
}

// NewDefaultSessionManager creates a new session manager
func NewDefaultSessionManager(store SessionStore, config ManagerConfig, logger zerolog.Logger) *DefaultSessionManager {
	return &DefaultSessionManager{
		store:     store,
		generator: NewSessionIDGenerator(),
		timeout:   config.SessionTimeout,
		logger:    logger.With().Str("component", "session_manager").Logger(),
	}
}

// CreateSession generates a new session ID and stores it
func (m *DefaultSessionManager) CreateSession(ctx context.Context, clientInfo ClientInfo) (*Session, error) {
	sessionID, err := m.generator.Generate()
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("remote_addr", clientInfo.RemoteAddr).
			Msg("Failed to generate session ID")
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:         sessionID,
		CreatedAt:  now,
		LastAccess: now,
		ExpiresAt:  now.Add(m.timeout),
		ClientInfo: clientInfo,
	}

	if err := m.store.Set(ctx, session); err != nil {
		m.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to store session")
		return nil, NewSessionStorageError("create", err)
	}

	m.logger.Info().
		Str("session_id", sessionID).
		Str("remote_addr", clientInfo.RemoteAddr).
		Str("client", clientInfo.Name).
		Time("expires_at", session.ExpiresAt).
		Msg("Session created")

	return session, nil
}

// ValidateSession checks if a session ID is valid and active. Expired
// sessions are removed on sight.
func (m *DefaultSessionManager) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	if err := m.generator.Validate(sessionID); err != nil {
		return nil, err
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		m.logger.Debug().
			Str("session_id", sessionID).
			Time("expires_at", session.ExpiresAt).
			Msg("Session has expired")

		// Only the caller whose delete removed the session reports it as
		// expired. Concurrent callers see it as gone.
		if err := m.store.Delete(ctx, sessionID); err != nil {
			if ErrorCode(err) == ErrSessionNotFound {
				return nil, err
			}
			m.logger.Warn().
				Err(err).
				Str("session_id", sessionID).
				Msg("Failed to delete expired session")
			return nil, NewSessionStorageError("expire", err)
		}

		return nil, NewSessionExpiredError(sessionID)
	}

	return session, nil
}

// RefreshSession extends the session's expiry. The update happens inside
// the store, so a session deleted concurrently stays deleted.
func (m *DefaultSessionManager) RefreshSession(ctx context.Context, sessionID string) error {
	if err := m.generator.Validate(sessionID); err != nil {
		return err
	}

	if _, err := m.store.Touch(ctx, sessionID, m.timeout); err != nil {
		switch ErrorCode(err) {
		case ErrSessionNotFound, ErrSessionExpired:
			return err
		}
		m.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to refresh session")
		return NewSessionStorageError("refresh", err)
	}
	return nil
}

// DeleteSession removes a session from the store
func (m *DefaultSessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}

	m.logger.Info().
		Str("session_id", sessionID).
		Msg("Session deleted")
	return nil
}

// CleanupExpiredSessions removes all expired sessions
func (m *DefaultSessionManager) CleanupExpiredSessions(ctx context.Context) (int, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return 0, NewSessionStorageError("cleanup_list", err)
	}

	deleted := 0
	now := time.Now()
	for _, session := range sessions {
		if !now.After(session.ExpiresAt) {
			continue
		}
		if err := m.store.Delete(ctx, session.ID); err != nil {
			m.logger.Warn().
				Err(err).
				Str("session_id", session.ID).
				Msg("Failed to delete expired session during cleanup")
			continue
		}
		deleted++
	}

	return deleted, nil
}

// GetSessionStats returns statistics about sessions
func (m *DefaultSessionManager) GetSessionStats(ctx context.Context) (Stats, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return Stats{}, NewSessionStorageError("stats", err)
	}

	stats := Stats{
		Total:          len(sessions),
		SessionTimeout: m.timeout.String(),
		StoreType:      "unknown",
	}
	now := time.Now()
	for _, session := range sessions {
		if now.After(session.ExpiresAt) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}

	if typed, ok := m.store.(interface{ Type() string }); ok {
		stats.StoreType = typed.Type()
	}

	return stats, nil
}

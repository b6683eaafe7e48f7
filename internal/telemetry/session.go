package telemetry

import (
	"context"
	"time"

	"keycloak-mcp-go/internal/session"
)

// SessionManagerWrapper wraps a session manager to add telemetry
type SessionManagerWrapper struct {
	session.SessionManager
	metrics *Metrics
}

// NewSessionManagerWrapper creates a new telemetry-aware session manager wrapper
func NewSessionManagerWrapper(manager session.SessionManager, metrics *Metrics) *SessionManagerWrapper {
	return &SessionManagerWrapper{
		SessionManager: manager,
		metrics:        metrics,
	}
}

// CreateSession counts created sessions
func (w *SessionManagerWrapper) CreateSession(ctx context.Context, clientInfo session.ClientInfo) (*session.Session, error) {
	sess, err := w.SessionManager.CreateSession(ctx, clientInfo)
	if err == nil {
		w.metrics.RecordSessionCreated()
	}
	return sess, err
}

// DeleteSession records the lifetime of deleted sessions
func (w *SessionManagerWrapper) DeleteSession(ctx context.Context, sessionID string) error {
	sess, getErr := w.ValidateSession(ctx, sessionID)

	err := w.SessionManager.DeleteSession(ctx, sessionID)
	if err == nil && getErr == nil {
		w.metrics.RecordSessionDeleted(time.Since(sess.CreatedAt))
	}
	return err
}

// ValidateSession counts sessions the manager expires while validating. The
// manager reports an expiry only to the caller whose delete removed the
// session.
func (w *SessionManagerWrapper) ValidateSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := w.SessionManager.ValidateSession(ctx, sessionID)
	if session.ErrorCode(err) == session.ErrSessionExpired {
		w.metrics.RecordSessionsExpired(1)
	}
	return sess, err
}

// CleanupExpiredSessions counts sessions removed by cleanup
func (w *SessionManagerWrapper) CleanupExpiredSessions(ctx context.Context) (int, error) {
	count, err := w.SessionManager.CleanupExpiredSessions(ctx)
	if err == nil && count > 0 {
		w.metrics.RecordSessionsExpired(count)
	}
	return count, err
}

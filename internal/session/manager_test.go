package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, timeout time.Duration) (*DefaultSessionManager, *MemoryStore) {
	t.Helper()
	logger := zerolog.Nop()
	store := NewMemoryStore(logger)
	t.Cleanup(func() { store.Close() })
	return NewDefaultSessionManager(store, ManagerConfig{SessionTimeout: timeout}, logger), store
}

func TestDefaultSessionManager_CreateSession(t *testing.T) {
	manager, store := newTestManager(t, time.Hour)

	info := ClientInfo{RemoteAddr: "127.0.0.1:5000", UserAgent: "inspector/1.0", Name: "inspector", Version: "1.0"}
	session, err := manager.CreateSession(context.Background(), info)
	require.NoError(t, err)

	assert.NoError(t, NewSessionIDGenerator().Validate(session.ID))
	assert.Equal(t, info, session.ClientInfo)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	stored, err := store.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
}

func TestDefaultSessionManager_ValidateSession(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)

	got, err := manager.ValidateSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestDefaultSessionManager_ValidateSession_Errors(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	unknown, err := NewSessionIDGenerator().Generate()
	require.NoError(t, err)

	tests := []struct {
		name string
		id   string
		code string
	}{
		{"empty", "", ErrSessionInvalid},
		{"malformed", "not-a-session", ErrSessionInvalid},
		{"unknown", unknown, ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateSession(ctx, tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestDefaultSessionManager_ValidateSession_Expired(t *testing.T) {
	manager, store := newTestManager(t, 10*time.Millisecond)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = manager.ValidateSession(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, ErrSessionExpired, ErrorCode(err))

	// Expired sessions are removed when seen.
	_, err = store.Get(ctx, session.ID)
	assert.Equal(t, ErrSessionNotFound, ErrorCode(err))
}

func TestDefaultSessionManager_RefreshSession(t *testing.T) {
	manager, store := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, manager.RefreshSession(ctx, session.ID))

	refreshed, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.ExpiresAt.After(session.ExpiresAt))
	assert.True(t, refreshed.LastAccess.After(session.LastAccess))
}

func TestDefaultSessionManager_RefreshSession_DoesNotRestoreDeleted(t *testing.T) {
	manager, store := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)
	require.NoError(t, manager.DeleteSession(ctx, session.ID))

	err = manager.RefreshSession(ctx, session.ID)
	assert.Equal(t, ErrSessionNotFound, ErrorCode(err))

	_, err = store.Get(ctx, session.ID)
	assert.Equal(t, ErrSessionNotFound, ErrorCode(err))
}

func TestDefaultSessionManager_ValidateSession_ExpiredReportedOnce(t *testing.T) {
	manager, _ := newTestManager(t, 10*time.Millisecond)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	var (
		wg      sync.WaitGroup
		expired atomic.Int32
		gone    atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.ValidateSession(ctx, session.ID)
			switch ErrorCode(err) {
			case ErrSessionExpired:
				expired.Add(1)
			case ErrSessionNotFound:
				gone.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), expired.Load())
	assert.Equal(t, int32(19), gone.Load())
}

func TestDefaultSessionManager_DeleteSession(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, manager.DeleteSession(ctx, session.ID))

	err = manager.DeleteSession(ctx, session.ID)
	assert.Equal(t, ErrSessionNotFound, ErrorCode(err))
}

func TestDefaultSessionManager_CleanupAndStats(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t, time.Hour)

	_, err := manager.CreateSession(ctx, ClientInfo{})
	require.NoError(t, err)

	expired := &Session{ID: "sess.1.expired", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, store.Set(ctx, expired))

	stats, err := manager.GetSessionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Active: 1, Expired: 1, SessionTimeout: "1h0m0s", StoreType: "memory"}, stats)

	deleted, err := manager.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	stats, err = manager.GetSessionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Expired)
}

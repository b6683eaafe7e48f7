package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupService_RunOnce(t *testing.T) {
	manager, store := newTestManager(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Session{ID: "sess.1.a", ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, store.Set(ctx, &Session{ID: "sess.1.b", ExpiresAt: time.Now().Add(time.Hour)}))

	service := NewCleanupService(manager, CleanupConfig{CleanupInterval: time.Minute}, zerolog.Nop())
	deleted, err := service.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = service.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestCleanupService_RunRemovesExpiredUntilCancelled(t *testing.T) {
	manager, store := newTestManager(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.Set(ctx, &Session{ID: "sess.1.a", ExpiresAt: time.Now().Add(-time.Second)}))

	service := NewCleanupService(manager, CleanupConfig{CleanupInterval: 10 * time.Millisecond}, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	assert.Eventually(t, func() bool {
		list, _ := store.List(context.Background())
		return len(list) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cleanup service did not stop after cancellation")
	}
}

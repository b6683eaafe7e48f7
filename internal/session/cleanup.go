package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupService periodically removes expired sessions
type CleanupService struct {
	manager  SessionManager
	interval time.Duration
	logger   zerolog.Logger
}

// CleanupConfig contains configuration for the cleanup service
type CleanupConfig struct {
	CleanupInterval time.Duration
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(manager SessionManager, config CleanupConfig, logger zerolog.Logger) *CleanupService {
	return &CleanupService{
		manager:  manager,
		interval: config.CleanupInterval,
		logger:   logger.With().Str("component", "cleanup_service").Logger(),
	}
}

// Run cleans up on every tick until ctx is cancelled. Cleanup failures are
// logged; Run itself only returns nil.
func (c *CleanupService) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().
		Dur("interval", c.interval).
		Msg("Starting session cleanup service")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Session cleanup service stopped")
			return nil

		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			_, _ = c.RunOnce(cleanupCtx)
			cancel()
		}
	}
}

// RunOnce performs a single cleanup operation
func (c *CleanupService) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	deleted, err := c.manager.CleanupExpiredSessions(ctx)
	if err != nil {
		c.logger.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Session cleanup failed")
		return 0, err
	}

	if deleted > 0 {
		c.logger.Info().
			Int("deleted_count", deleted).
			Dur("duration", time.Since(start)).
			Msg("Session cleanup completed")
	}
	return deleted, nil
}

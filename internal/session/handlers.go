package session

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// StatsResponse is the body of GET /sessions/stats.
type StatsResponse struct {
	Stats     Stats  `json:"stats"`
	Timestamp string `json:"timestamp"`
}

// StatsHandler serves session statistics.
func StatsHandler(manager SessionManager, logger zerolog.Logger) http.HandlerFunc {
	logger = logger.With().Str("component", "session_handler").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := manager.GetSessionStats(r.Context())
		if err != nil {
			logger.Error().
				Err(err).
				Msg("Failed to get session stats")
			WriteError(w, r, http.StatusInternalServerError, "Failed to get session statistics", map[string]any{
				"error_code": ErrorCode(err),
			})
			return
		}

		render.JSON(w, r, StatsResponse{
			Stats:     stats,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

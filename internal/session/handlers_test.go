package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsHandler(t *testing.T) {
	manager, _ := newTestManager(t, time.Hour)
	for i := 0; i < 2; i++ {
		_, err := manager.CreateSession(context.Background(), ClientInfo{})
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	StatsHandler(manager, zerolog.Nop())(w, httptest.NewRequest(http.MethodGet, "/sessions/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Stats.Active)
	assert.Equal(t, "memory", resp.Stats.StoreType)
	assert.NotEmpty(t, resp.Timestamp)
}

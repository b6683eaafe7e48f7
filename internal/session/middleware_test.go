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

	"keycloak-mcp-go/internal/jsonrpc"
)

func newTestMiddleware(t *testing.T, timeout time.Duration) (http.Handler, *DefaultSessionManager, *bool, **Session) {
	t.Helper()
	manager, _ := newTestManager(t, timeout)
	mw := NewSessionMiddleware(manager, zerolog.Nop())

	called := false
	var seen *Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return mw.Handler(next), manager, &called, &seen
}

func TestSessionMiddleware_NoHeaderPassesThrough(t *testing.T) {
	handler, _, called, seen := newTestMiddleware(t, time.Hour)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
	assert.Nil(t, *seen)
}

func TestSessionMiddleware_ValidSession(t *testing.T) {
	handler, manager, called, seen := newTestMiddleware(t, time.Hour)

	session, err := manager.CreateSession(context.Background(), ClientInfo{RemoteAddr: "10.0.0.1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set(HeaderName, session.ID)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
	require.NotNil(t, *seen)
	assert.Equal(t, session.ID, (*seen).ID)
	assert.Equal(t, "10.0.0.1", (*seen).ClientInfo.RemoteAddr)
}

func TestSessionMiddleware_RejectsBadSessions(t *testing.T) {
	handler, manager, called, _ := newTestMiddleware(t, 10*time.Millisecond)

	expiring, err := manager.CreateSession(context.Background(), ClientInfo{})
	require.NoError(t, err)
	unknown, err := NewSessionIDGenerator().Generate()
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	tests := []struct {
		name   string
		id     string
		status int
		code   string
	}{
		{"malformed", "bogus", http.StatusBadRequest, ErrSessionInvalid},
		{"unknown", unknown, http.StatusNotFound, ErrSessionNotFound},
		{"expired", expiring.ID, http.StatusNotFound, ErrSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*called = false
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			req.Header.Set(HeaderName, tt.id)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, *called)

			var resp jsonrpc.Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, jsonrpc.InvalidRequest, resp.Error.Code)
			details, ok := resp.Error.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.code, details["error_code"])
		})
	}
}

func TestSessionMiddleware_OptionsSkipsValidation(t *testing.T) {
	handler, _, called, _ := newTestMiddleware(t, time.Hour)

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set(HeaderName, "bogus")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, *called)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewSessionInvalidError("x")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewSessionNotFoundError("x")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewSessionExpiredError("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewSessionStorageError("set", nil)))
	assert.Equal(t, "UNKNOWN_ERROR", ErrorCode(assert.AnError))
}

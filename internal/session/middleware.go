package session

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"keycloak-mcp-go/internal/jsonrpc"
)

// HeaderName is the MCP session header.
const HeaderName = "Mcp-Session-Id"

// SessionMiddleware validates the Mcp-Session-Id header when a request
// carries one. Requests without the header pass through; the MCP handler
// decides which methods need a session.
type SessionMiddleware struct {
	manager SessionManager
	logger  zerolog.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(manager SessionManager, logger zerolog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		manager: manager,
		logger:  logger.With().Str("component", "session_middleware").Logger(),
	}
}

type sessionContextKey struct{}

// Handler returns the HTTP middleware handler function
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(HeaderName)
		if r.Method == http.MethodOptions || sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.manager.ValidateSession(r.Context(), sessionID)
		if err != nil {
			m.logger.Debug().
				Err(err).
				Str("session_id", sessionID).
				Str("path", r.URL.Path).
				Msg("Session validation failed")
			WriteError(w, r, HTTPStatus(err), err.Error(), map[string]any{
				"session_id": sessionID,
				"error_code": ErrorCode(err),
			})
			return
		}

		// A failed refresh must not block the request.
		if err := m.manager.RefreshSession(r.Context(), sessionID); err != nil {
			m.logger.Warn().
				Err(err).
				Str("session_id", sessionID).
				Msg("Failed to refresh session")
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// WithSession returns a context carrying session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext retrieves the session from request context
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok && session != nil
}

// WriteError sends a JSON-RPC error envelope with the given HTTP status.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, message string, details map[string]any) {
	var data any
	if details != nil {
		data = details
	}
	render.Status(r, statusCode)
	render.JSON(w, r, jsonrpc.NewErrorResponse(nil, jsonrpc.NewError(jsonrpc.InvalidRequest, message, data)))
}

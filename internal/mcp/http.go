package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"keycloak-mcp-go/internal/jsonrpc"
	"keycloak-mcp-go/internal/keycloak"
	"keycloak-mcp-go/internal/session"
)

const maxMessageBytes = 1 << 20

// HTTPConfig configures the streamable HTTP transport.
type HTTPConfig struct {
	// RequireSession rejects non-initialize requests without Mcp-Session-Id.
	RequireSession bool
	// KeepAlive is the comment interval on the SSE stream.
	KeepAlive time.Duration
	// Endpoint is announced to SSE clients as the POST target.
	Endpoint string
}

// HTTPHandler serves MCP over HTTP. Requests must pass through
// session.SessionMiddleware first so the session is in the context.
type HTTPHandler struct {
	handler  *Handler
	sessions session.SessionManager
	config   HTTPConfig
	logger   zerolog.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

// NewHTTPHandler creates the HTTP transport. sessions may be nil to
// disable session tracking.
func NewHTTPHandler(handler *Handler, sessions session.SessionManager, config HTTPConfig, logger zerolog.Logger) *HTTPHandler {
	if config.KeepAlive <= 0 {
		config.KeepAlive = 30 * time.Second
	}
	if config.Endpoint == "" {
		config.Endpoint = "/mcp"
	}
	return &HTTPHandler{
		handler:  handler,
		sessions: sessions,
		config:   config,
		logger:   logger.With().Str("component", "mcp_http").Logger(),
		closed:   make(chan struct{}),
	}
}

// Close ends all open SSE streams. It is safe to call more than once.
func (h *HTTPHandler) Close() {
	h.closeOnce.Do(func() { close(h.closed) })
}

// Post handles a single JSON-RPC message.
func (h *HTTPHandler) Post(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, jsonrpc.NewErrorResponse(nil, jsonrpc.NewError(jsonrpc.InvalidRequest, "Request body too large", nil)))
		return
	}

	msg, err := jsonrpc.ParseMessage(body)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, h.handler.HandleMessage(r.Context(), body))
		return
	}

	ctx := keycloak.WithBearerToken(r.Context(), keycloak.ParseAuthorizationHeader(r.Header.Get("Authorization")))

	req, isRequest := msg.(*jsonrpc.Request)
	if !isRequest {
		h.handler.Handle(ctx, msg)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if req.Method != MethodInitialize && !h.checkSession(w, r) {
		return
	}

	resp := h.handler.Handle(ctx, req)

	if req.Method == MethodInitialize && resp.Error == nil && h.sessions != nil {
		sess, err := h.sessions.CreateSession(ctx, h.clientInfo(r, req.Params))
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to create session")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.InternalError, "Failed to create session", nil)))
			return
		}
		w.Header().Set(session.HeaderName, sess.ID)
	}

	render.JSON(w, r, resp)
}

// checkSession writes a 400 and returns false when a session is required
// but the request carries none.
func (h *HTTPHandler) checkSession(w http.ResponseWriter, r *http.Request) bool {
	if !h.config.RequireSession || h.sessions == nil {
		return true
	}
	if _, ok := session.FromContext(r.Context()); ok {
		return true
	}
	session.WriteError(w, r, http.StatusBadRequest, "Missing session ID header", map[string]any{
		"required_header": session.HeaderName,
	})
	return false
}

func (h *HTTPHandler) clientInfo(r *http.Request, raw json.RawMessage) session.ClientInfo {
	info := session.ClientInfo{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	var params mcpsdk.InitializeParams
	if err := json.Unmarshal(raw, &params); err == nil {
		info.ProtocolVersion = params.ProtocolVersion
		if params.ClientInfo != nil {
			info.Name = params.ClientInfo.Name
			info.Version = params.ClientInfo.Version
		}
	}
	return info
}

// Stream opens the server-to-client SSE stream. This server has no
// server-initiated messages, so it only announces the endpoint and keeps
// the connection alive.
func (h *HTTPHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.checkSession(w, r) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", h.config.Endpoint)
	flusher.Flush()

	h.logger.Debug().
		Str("remote_addr", r.RemoteAddr).
		Msg("SSE stream opened")

	ticker := time.NewTicker(h.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().
				Str("remote_addr", r.RemoteAddr).
				Msg("SSE stream closed")
			return
		case <-h.closed:
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// Delete terminates the session named by the Mcp-Session-Id header.
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.Header.Get(session.HeaderName)
	if sessionID == "" {
		session.WriteError(w, r, http.StatusBadRequest, "Missing session ID header", map[string]any{
			"required_header": session.HeaderName,
		})
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), sessionID); err != nil {
		session.WriteError(w, r, session.HTTPStatus(err), err.Error(), map[string]any{
			"session_id": sessionID,
			"error_code": session.ErrorCode(err),
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

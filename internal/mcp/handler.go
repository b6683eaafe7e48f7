// Package mcp implements the Model Context Protocol server side: JSON-RPC
// method dispatch for the streamable HTTP transport, and an SDK server for
// stdio. Protocol types come from the MCP Go SDK.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"keycloak-mcp-go/internal/jsonrpc"
	"keycloak-mcp-go/internal/tools"
)

// LatestProtocolVersion is returned when a client asks for a version this
// server does not know.
const LatestProtocolVersion = "2025-06-18"

var supportedProtocolVersions = []string{LatestProtocolVersion, "2025-03-26", "2024-11-05"}

const (
	MethodInitialize = "initialize"
	MethodPing       = "ping"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

// Catalog lists the tools advertised by tools/list.
type Catalog interface {
	Definitions() []*mcpsdk.Tool
}

// Handler dispatches MCP requests. It is safe for concurrent use.
type Handler struct {
	catalog Catalog
	caller  tools.Caller
	info    *mcpsdk.Implementation
	logger  zerolog.Logger
}

// NewHandler creates a dispatcher that lists tools from catalog and runs
// them through caller.
func NewHandler(catalog Catalog, caller tools.Caller, info *mcpsdk.Implementation, logger zerolog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		caller:  caller,
		info:    info,
		logger:  logger.With().Str("component", "mcp").Logger(),
	}
}

// HandleMessage parses and handles one raw JSON-RPC message. It returns
// nil when no reply is due.
func (h *Handler) HandleMessage(ctx context.Context, data []byte) *jsonrpc.Response {
	msg, err := jsonrpc.ParseMessage(data)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = jsonrpc.NewError(jsonrpc.ParseError, "Parse error", nil)
		}
		return jsonrpc.NewErrorResponse(nil, rpcErr)
	}
	return h.Handle(ctx, msg)
}

// Handle processes a parsed message from jsonrpc.ParseMessage.
func (h *Handler) Handle(ctx context.Context, msg any) *jsonrpc.Response {
	switch m := msg.(type) {
	case *jsonrpc.Request:
		return h.handleRequest(ctx, m)
	case *jsonrpc.Notification:
		h.logger.Debug().Str("method", m.Method).Msg("Notification received")
		return nil
	case *jsonrpc.Response:
		// This server never sends requests, so replies are unexpected.
		h.logger.Debug().Interface("id", m.ID).Msg("Ignoring client response")
		return nil
	default:
		return jsonrpc.NewErrorResponse(nil, jsonrpc.NewError(jsonrpc.InvalidRequest, "Invalid message", nil))
	}
}

func (h *Handler) handleRequest(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	h.logger.Debug().
		Str("method", req.Method).
		Interface("id", req.ID).
		Msg("Request received")

	var (
		result any
		rpcErr *jsonrpc.Error
	)

	switch req.Method {
	case MethodInitialize:
		result, rpcErr = h.initialize(req.Params)
	case MethodPing:
		result = struct{}{}
	case MethodToolsList:
		result = &mcpsdk.ListToolsResult{Tools: h.catalog.Definitions()}
	case MethodToolsCall:
		result, rpcErr = h.callTool(ctx, req.Params)
	default:
		rpcErr = jsonrpc.NewError(jsonrpc.MethodNotFound, "Method not found: "+req.Method, nil)
	}

	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}
	return jsonrpc.NewResult(req.ID, result)
}

func (h *Handler) initialize(raw json.RawMessage) (any, *jsonrpc.Error) {
	var params mcpsdk.InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "Invalid initialize params", nil)
		}
	}

	version := LatestProtocolVersion
	if slices.Contains(supportedProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	client := params.ClientInfo
	if client == nil {
		client = &mcpsdk.Implementation{}
	}
	h.logger.Info().
		Str("client", client.Name).
		Str("client_version", client.Version).
		Str("protocol_version", version).
		Msg("Client initialized")

	return &mcpsdk.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    &mcpsdk.ServerCapabilities{Tools: &mcpsdk.ToolCapabilities{}},
		ServerInfo:      h.info,
	}, nil
}

func (h *Handler) callTool(ctx context.Context, raw json.RawMessage) (any, *jsonrpc.Error) {
	var params mcpsdk.CallToolParamsRaw
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "Invalid tools/call params", nil)
	}

	result, err := h.call(ctx, params.Name, params.Arguments)
	if err == nil {
		return result, nil
	}

	var toolErr *tools.Error
	if errors.As(err, &toolErr) && toolErr.Code == tools.ErrCodeToolNotFound {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "Unknown tool: "+params.Name, nil)
	}
	return nil, jsonrpc.NewError(jsonrpc.InternalError, "Tool execution failed", nil)
}

var errToolExecution = errors.New("tool execution failed")

// call runs a tool and converts a *tools.CallError into an isError result.
// Any other failure is logged and returned without its cause, except an
// unknown tool, which is returned as is.
func (h *Handler) call(ctx context.Context, name string, args json.RawMessage) (*mcpsdk.CallToolResult, error) {
	text, err := h.caller.Call(ctx, name, args)
	if err == nil {
		return textResult(text, false), nil
	}

	var (
		callErr *tools.CallError
		toolErr *tools.Error
	)
	switch {
	case errors.As(err, &callErr):
		return textResult(callErr.Message, true), nil
	case errors.As(err, &toolErr) && toolErr.Code == tools.ErrCodeToolNotFound:
		return nil, err
	default:
		h.logger.Error().
			Err(err).
			Str("tool", name).
			Msg("Tool execution failed")
		return nil, errToolExecution
	}
}

func textResult(text string, isError bool) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: isError,
	}
}

package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server builds an MCP SDK server that advertises the handler's tools and
// runs them through the same caller as the HTTP transport.
func (h *Handler) Server() *mcpsdk.Server {
	server := mcpsdk.NewServer(h.info, nil)
	for _, def := range h.catalog.Definitions() {
		server.AddTool(def, h.sdkToolHandler(def.Name))
	}
	return server
}

func (h *Handler) sdkToolHandler(name string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return h.call(ctx, name, req.Params.Arguments)
	}
}

// ServeStdio serves the handler's tools over transport, usually
// &mcpsdk.StdioTransport{}. It returns nil when the client disconnects or
// ctx is done.
func ServeStdio(ctx context.Context, handler *Handler, transport mcpsdk.Transport) error {
	err := handler.Server().Run(ctx, transport)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("serve stdio: %w", err)
}

package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool is the interface that all tools must implement.
type Tool interface {
	// Name returns the name the tool is invoked by.
	Name() string

	// Definition describes the tool to MCP clients.
	Definition() *mcp.Tool

	// Call executes the tool with JSON-encoded arguments and returns the
	// text payload for the caller. Failures meant for the caller are
	// reported as *CallError.
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

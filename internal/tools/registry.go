package tools

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Caller executes a tool by name. Registry implements it and telemetry
// wraps it.
type Caller interface {
	Call(ctx context.Context, toolName string, args json.RawMessage) (string, error)
}

// Registry manages the collection of available tools.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds tools to the registry, replacing any with the same name.
func (r *Registry) Register(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range tools {
		r.tools[tool.Name()] = tool
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tools ordered by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// Definitions returns the MCP definitions of all registered tools.
func (r *Registry) Definitions() []*mcp.Tool {
	list := r.List()
	defs := make([]*mcp.Tool, 0, len(list))
	for _, tool := range list {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// Call executes a tool with the given arguments and context.
func (r *Registry) Call(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	tool, exists := r.Get(toolName)
	if !exists {
		return "", &Error{Code: ErrCodeToolNotFound, Message: "Tool not found: " + toolName}
	}

	return tool.Call(ctx, args)
}

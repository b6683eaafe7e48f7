package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"keycloak-mcp-go/internal/tools"
)

// ToolCaller wraps a tools.Caller to record execution metrics.
type ToolCaller struct {
	next    tools.Caller
	metrics *Metrics
}

// NewToolCaller creates a telemetry-aware tool caller.
func NewToolCaller(next tools.Caller, metrics *Metrics) *ToolCaller {
	return &ToolCaller{
		next:    next,
		metrics: metrics,
	}
}

// Call implements tools.Caller.
func (c *ToolCaller) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	start := time.Now()

	result, err := c.next.Call(ctx, name, args)

	status := "success"
	var callErr *tools.CallError
	switch {
	case errors.As(err, &callErr):
		status = "tool_error"
	case err != nil:
		status = "error"
	}

	c.metrics.RecordToolExecution(name, status, time.Since(start))

	return result, err
}

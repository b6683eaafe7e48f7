package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Param describes a single string argument of a tool.
type Param struct {
	Name        string
	Description string
}

// NewDefinition builds a read-only MCP tool whose parameters are all
// required strings.
func NewDefinition(name, description string, params ...Param) *mcp.Tool {
	props := make(map[string]*jsonschema.Schema, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		props[p.Name] = &jsonschema.Schema{Type: "string", Description: p.Description}
		required = append(required, p.Name)
	}

	openWorld := true
	return &mcp.Tool{
		Name:        name,
		Description: description,
		Annotations: &mcp.ToolAnnotations{
			Title:         fmt.Sprintf("%s Tool", name),
			ReadOnlyHint:  true,
			OpenWorldHint: &openWorld,
		},
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

// InputSchema returns the schema of a tool built by NewDefinition, or an
// empty schema for any other tool.
func InputSchema(def *mcp.Tool) *jsonschema.Schema {
	if schema, ok := def.InputSchema.(*jsonschema.Schema); ok && schema != nil {
		return schema
	}
	return &jsonschema.Schema{}
}

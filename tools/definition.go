package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition binds a tool's model-facing contract to its handler.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

// Descriptor returns the model-facing part of d.
func (d ToolDefinition) Descriptor() Descriptor {
	return Descriptor{Name: d.Name, Description: d.Description, Parameters: d.InputSchema}
}

// NewTool builds a ToolDefinition whose schema and decoding are derived from T.
// Decode failures are reported as invalid parameters.
func NewTool[T any](name, description string, fn func(ctx context.Context, in T) (string, error)) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: GenerateSchema[T](),
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in T
			if err := json.Unmarshal(input, &in); err != nil {
				return "", InvalidParams(err)
			}
			return fn(ctx, in)
		},
	}
}

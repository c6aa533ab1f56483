package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema derives an inline JSON Schema for T. Fields without
// omitempty are required; descriptions come from jsonschema_description tags.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	return schema
}

// Descriptor is the model-facing description of a tool.
type Descriptor struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ParametersJSON returns the parameter schema as JSON.
func (d Descriptor) ParametersJSON() json.RawMessage {
	if d.Parameters == nil {
		return emptyObjectSchema
	}
	b, err := json.Marshal(d.Parameters)
	if err != nil {
		return emptyObjectSchema
	}
	return b
}

// ParametersMap returns the parameter schema as a generic map, the shape
// most provider SDKs accept.
func (d Descriptor) ParametersMap() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(d.ParametersJSON(), &m); err != nil || m == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return m
}

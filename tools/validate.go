package tools

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

// validateParams checks a payload against the subset of JSON Schema the
// built-in tools rely on: object root, required fields, primitive types
// and string enums. Unknown properties are left to the handler.
func validateParams(schema *jsonschema.Schema, payload []byte) error {
	if !gjson.ValidBytes(payload) {
		return errors.New("parameters are not valid JSON")
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return fmt.Errorf("parameters must be a JSON object, got %s", kindOf(root))
	}
	if schema == nil {
		return nil
	}
	for _, name := range schema.Required {
		if !root.Get(gjson.Escape(name)).Exists() {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	if schema.Properties == nil {
		return nil
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		v := root.Get(gjson.Escape(pair.Key))
		if !v.Exists() || pair.Value == nil {
			continue
		}
		if err := checkType(pair.Value.Type, v); err != nil {
			return fmt.Errorf("field %q: %w", pair.Key, err)
		}
		if err := checkEnum(pair.Value.Enum, v); err != nil {
			return fmt.Errorf("field %q: %w", pair.Key, err)
		}
	}
	return nil
}

func checkType(want string, v gjson.Result) error {
	ok := true
	switch want {
	case "":
		return nil
	case "string":
		ok = v.Type == gjson.String
	case "number":
		ok = v.Type == gjson.Number
	case "integer":
		ok = v.Type == gjson.Number && v.Num == math.Trunc(v.Num)
	case "boolean":
		ok = v.Type == gjson.True || v.Type == gjson.False
	case "object":
		ok = v.IsObject()
	case "array":
		ok = v.IsArray()
	case "null":
		ok = v.Type == gjson.Null
	}
	if !ok {
		return fmt.Errorf("expected %s, got %s", want, kindOf(v))
	}
	return nil
}

func checkEnum(enum []any, v gjson.Result) error {
	if len(enum) == 0 || v.Type != gjson.String {
		return nil
	}
	allowed := make([]string, 0, len(enum))
	for _, e := range enum {
		if s, ok := e.(string); ok {
			allowed = append(allowed, s)
		}
	}
	if len(allowed) == 0 || slices.Contains(allowed, v.Str) {
		return nil
	}
	return fmt.Errorf("%q is not one of %v", v.Str, allowed)
}

func kindOf(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	}
	switch v.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	}
	return "unknown"
}

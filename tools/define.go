package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aschepis/switchboard/llm"
	"github.com/invopop/jsonschema"
)

var reflector = jsonschema.Reflector{
	DoNotReference:            true,
	AllowAdditionalProperties: false,
	ExpandedStruct:            true,
}

// SchemaFor derives a tool argument schema from a struct type. Field names,
// types, and requiredness come from reflection; `json` and `jsonschema`
// struct tags refine them the usual way.
func SchemaFor[T any]() (llm.ToolSchema, error) {
	var zero T
	schema := reflector.Reflect(zero)

	// Round-trip through JSON to get plain maps out of the schema's
	// ordered internal representation.
	raw, err := json.Marshal(schema)
	if err != nil {
		return llm.ToolSchema{}, fmt.Errorf("failed to encode schema: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return llm.ToolSchema{}, fmt.Errorf("failed to decode schema: %w", err)
	}

	result := llm.ToolSchema{Type: "object"}
	if t, ok := m["type"].(string); ok {
		result.Type = t
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		result.Properties = props
	} else {
		result.Properties = make(map[string]interface{})
	}
	if required, ok := m["required"].([]interface{}); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				result.Required = append(result.Required, name)
			}
		}
	}
	return result, nil
}

// Define builds a typed tool definition. The argument struct provides the
// schema, and the handler receives decoded arguments instead of raw JSON.
func Define[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) (Definition, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return Definition{}, fmt.Errorf("failed to derive schema for tool %s: %w", name, err)
	}

	return Definition{
		Spec: llm.ToolSpec{
			Name:        name,
			Description: description,
			Schema:      schema,
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args T
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("invalid arguments for tool %s: %w", name, err)
				}
			}
			return fn(ctx, args)
		},
	}, nil
}

// MustDefine is Define for package-level tool declarations, panicking on
// schema derivation failure.
func MustDefine[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) Definition {
	def, err := Define(name, description, fn)
	if err != nil {
		panic(err)
	}
	return def
}

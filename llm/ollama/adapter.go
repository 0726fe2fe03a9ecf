package ollama

import (
	"fmt"
	"strings"

	"github.com/aschepis/switchboard/llm"
	"github.com/ollama/ollama/api"
)

// ToOllamaMessages converts neutral messages to Ollama chat message format.
// Tool specs, when provided, are used to validate and coerce tool call
// arguments to their schema types. Local models frequently return numbers
// and booleans as strings, so replayed tool calls get normalized here.
func ToOllamaMessages(msgs []llm.Message, specs []llm.ToolSpec) ([]api.Message, error) {
	var specMap map[string]llm.ToolSpec
	if len(specs) > 0 {
		specMap = make(map[string]llm.ToolSpec, len(specs))
		for _, spec := range specs {
			specMap[spec.Name] = spec
		}
	}

	result := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := ToOllamaMessage(msg, specMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert message: %w", err)
		}
		result = append(result, converted...)
	}
	return result, nil
}

// ToOllamaMessage converts a single neutral message to Ollama format. Tool
// results become separate tool-role messages, so one neutral message can
// fan out into several wire messages.
func ToOllamaMessage(msg llm.Message, specMap map[string]llm.ToolSpec) ([]api.Message, error) {
	var content string
	var toolCalls []api.ToolCall
	var toolResults []api.Message

	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			if content != "" {
				content += "\n"
			}
			content += block.Text

		case llm.ContentBlockTypeToolUse:
			if block.ToolUse == nil {
				return nil, fmt.Errorf("tool use block has no tool use data")
			}
			args, err := coerceToolArguments(block.ToolUse.Name, block.ToolUse.Input, specMap)
			if err != nil {
				return nil, err
			}
			toolCalls = append(toolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      block.ToolUse.Name,
					Arguments: args,
				},
			})

		case llm.ContentBlockTypeToolResult:
			if block.ToolResult == nil {
				return nil, fmt.Errorf("tool result block has no tool result data")
			}
			toolResults = append(toolResults, api.Message{
				Role:    "tool",
				Content: block.ToolResult.Content,
			})

		case llm.ContentBlockTypeImage:
			if block.Media == nil {
				return nil, fmt.Errorf("image block has no media data")
			}
			// Images attach to the message rather than appearing inline
			// and get added below

		case llm.ContentBlockTypeThinking:
			// Output-only, never replayed

		default:
			return nil, fmt.Errorf("unsupported content block type for ollama: %s", block.Type)
		}
	}

	var images []api.ImageData
	for _, block := range msg.Content {
		if block.Type == llm.ContentBlockTypeImage && block.Media != nil {
			images = append(images, api.ImageData(block.Media.Data))
		}
	}

	result := make([]api.Message, 0, 1+len(toolResults))
	if content != "" || len(toolCalls) > 0 || len(images) > 0 || len(toolResults) == 0 {
		result = append(result, api.Message{
			Role:      string(msg.Role),
			Content:   content,
			Images:    images,
			ToolCalls: toolCalls,
		})
	}
	result = append(result, toolResults...)
	return result, nil
}

// coerceToolArguments validates required parameters and converts argument
// values to their proper types based on the tool schema.
func coerceToolArguments(toolName string, args map[string]interface{}, specMap map[string]llm.ToolSpec) (api.ToolCallFunctionArguments, error) {
	result := make(api.ToolCallFunctionArguments)

	spec, ok := specMap[toolName]
	if !ok {
		for k, v := range args {
			result[k] = v
		}
		return result, nil
	}
	schema := spec.Schema

	for _, reqParam := range schema.Required {
		val, exists := args[reqParam]
		if !exists {
			providedKeys := make([]string, 0, len(args))
			for k := range args {
				providedKeys = append(providedKeys, k)
			}
			return nil, fmt.Errorf("missing required parameter '%s' for tool '%s' (provided: %v)", reqParam, toolName, providedKeys)
		}
		if isEmptyValue(val) {
			return nil, fmt.Errorf("required parameter '%s' for tool '%s' cannot be empty", reqParam, toolName)
		}
	}

	properties := schema.Properties
	if properties == nil {
		properties = make(map[string]interface{})
	}

	for k, v := range args {
		propSchema, exists := properties[k]
		if !exists {
			result[k] = v
			continue
		}

		converted, err := convertValueToType(v, getPropertyType(propSchema), k)
		if err != nil {
			return nil, fmt.Errorf("failed to convert parameter '%s' for tool '%s': %w", k, toolName, err)
		}
		result[k] = converted
	}

	return result, nil
}

// isEmptyValue checks if a value is considered empty (nil, empty string, empty array, etc.)
func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}

	switch val := v.(type) {
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	}

	return false
}

// getPropertyType extracts the type from a property schema definition
func getPropertyType(propSchema interface{}) string {
	if propMap, ok := propSchema.(map[string]interface{}); ok {
		if propType, ok := propMap["type"].(string); ok {
			return propType
		}
	}
	return "string"
}

// convertValueToType converts a value to the specified type
func convertValueToType(v interface{}, targetType, paramName string) (interface{}, error) {
	switch targetType {
	case "integer", "int":
		return convertToInteger(v, paramName)
	case "number", "float":
		return convertToNumber(v, paramName)
	case "boolean", "bool":
		return convertToBoolean(v, paramName)
	case "string":
		return convertToString(v), nil
	case "array", "object":
		return v, nil
	default:
		return v, nil
	}
}

func convertToInteger(v interface{}, paramName string) (interface{}, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err != nil {
			return nil, fmt.Errorf("parameter '%s': cannot convert '%s' to integer", paramName, val)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("parameter '%s': cannot convert %T to integer", paramName, v)
	}
}

func convertToNumber(v interface{}, paramName string) (interface{}, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(val, "%f", &f); err != nil {
			return nil, fmt.Errorf("parameter '%s': cannot convert '%s' to number", paramName, val)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("parameter '%s': cannot convert %T to number", paramName, v)
	}
}

func convertToBoolean(v interface{}, paramName string) (interface{}, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		default:
			return nil, fmt.Errorf("parameter '%s': cannot convert '%s' to boolean", paramName, val)
		}
	case int:
		return val != 0, nil
	default:
		return nil, fmt.Errorf("parameter '%s': cannot convert %T to boolean", paramName, v)
	}
}

func convertToString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// ToOllamaTools converts neutral tool specs to Ollama function format.
func ToOllamaTools(specs []llm.ToolSpec) ([]api.Tool, error) {
	result := make([]api.Tool, 0, len(specs))
	for _, spec := range specs {
		tool, err := ToOllamaTool(&spec)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tool %s: %w", spec.Name, err)
		}
		result = append(result, tool)
	}
	return result, nil
}

// ToOllamaTool converts a single neutral tool spec to Ollama Tool format.
func ToOllamaTool(spec *llm.ToolSpec) (api.Tool, error) {
	properties := make(map[string]api.ToolProperty)
	for k, v := range spec.Schema.Properties {
		if propMap, ok := v.(map[string]interface{}); ok {
			toolProp := api.ToolProperty{}
			if propType, ok := propMap["type"].(string); ok {
				toolProp.Type = []string{propType}
			}
			if desc, ok := propMap["description"].(string); ok {
				toolProp.Description = desc
			}
			if enum, ok := propMap["enum"].([]interface{}); ok {
				toolProp.Enum = enum
			}
			properties[k] = toolProp
		} else {
			properties[k] = api.ToolProperty{
				Type: []string{"string"},
			}
		}
	}

	parameters := api.ToolFunctionParameters{
		Type:       spec.Schema.Type,
		Properties: properties,
		Required:   spec.Schema.Required,
	}

	return api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  parameters,
		},
	}, nil
}

// FromOllamaToolCall converts an Ollama tool call response to a neutral tool
// use block. Ollama does not assign call IDs, so one is synthesized from the
// function name.
func FromOllamaToolCall(toolCall api.ToolCall, index int) *llm.ToolUseBlock {
	input := make(map[string]interface{})
	for k, v := range toolCall.Function.Arguments {
		input[k] = v
	}

	return &llm.ToolUseBlock{
		ID:    fmt.Sprintf("tool_%s_%d", toolCall.Function.Name, index),
		Name:  toolCall.Function.Name,
		Input: input,
	}
}

// fromDoneReason maps Ollama done reasons onto the neutral set.
func fromDoneReason(reason string, hasToolUse bool) llm.FinishReason {
	if hasToolUse {
		return llm.FinishReasonToolUse
	}
	switch reason {
	case "stop":
		return llm.FinishReasonStop
	case "length":
		return llm.FinishReasonMaxTokens
	default:
		return llm.FinishReasonUnknown
	}
}

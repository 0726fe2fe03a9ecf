package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aschepis/switchboard/llm"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"
)

// ToOpenAIMessages converts llm.Messages to OpenAI chat message format.
// One neutral message may fan out into several wire messages: OpenAI wants
// each tool result as its own tool-role message.
func ToOpenAIMessages(msgs []llm.Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := ToOpenAIMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to convert message: %w", err)
		}
		result = append(result, converted...)
	}
	return result, nil
}

// ToOpenAIMessage converts a single llm.Message to OpenAI format.
func ToOpenAIMessage(msg llm.Message) ([]openai.ChatCompletionMessage, error) {
	var role string
	switch msg.Role {
	case llm.RoleUser:
		role = openai.ChatMessageRoleUser
	case llm.RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		role = openai.ChatMessageRoleSystem
	case llm.RoleTool:
		role = openai.ChatMessageRoleTool
	default:
		role = openai.ChatMessageRoleUser
	}

	var content string
	var parts []openai.ChatMessagePart
	var toolCalls []openai.ToolCall
	var toolResults []llm.ToolResultBlock

	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			if content != "" {
				content += "\n"
			}
			content += block.Text
		case llm.ContentBlockTypeImage:
			if block.Media == nil {
				continue
			}
			url := block.Media.URL
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", block.Media.MIMEType,
					base64.StdEncoding.EncodeToString(block.Media.Data))
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
		case llm.ContentBlockTypeAudio, llm.ContentBlockTypeDocument:
			return nil, fmt.Errorf("openai chat messages do not support %s blocks", block.Type)
		case llm.ContentBlockTypeToolUse:
			if block.ToolUse == nil {
				continue
			}
			args, err := json.Marshal(block.ToolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool input for %s: %w", block.ToolUse.Name, err)
			}
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   block.ToolUse.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      block.ToolUse.Name,
					Arguments: string(args),
				},
			})
		case llm.ContentBlockTypeToolResult:
			if block.ToolResult != nil {
				toolResults = append(toolResults, *block.ToolResult)
			}
		case llm.ContentBlockTypeThinking:
			// OpenAI has no wire slot for thinking content on requests
		}
	}

	// Tool results become individual tool-role messages keyed by call ID
	if len(toolResults) > 0 {
		return lo.Map(toolResults, func(tr llm.ToolResultBlock, _ int) openai.ChatCompletionMessage {
			return openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    tr.Content,
				ToolCallID: tr.ID,
			}
		}), nil
	}

	wireMsg := openai.ChatCompletionMessage{
		Role:      role,
		ToolCalls: toolCalls,
	}
	if len(parts) > 0 {
		if content != "" {
			parts = append([]openai.ChatMessagePart{{
				Type: openai.ChatMessagePartTypeText,
				Text: content,
			}}, parts...)
		}
		wireMsg.MultiContent = parts
	} else {
		wireMsg.Content = content
	}

	return []openai.ChatCompletionMessage{wireMsg}, nil
}

// ToOpenAITools converts llm.ToolSpecs to OpenAI function-tool format.
func ToOpenAITools(specs []llm.ToolSpec) ([]openai.Tool, error) {
	return lo.Map(specs, func(spec llm.ToolSpec, _ int) openai.Tool {
		return ToOpenAITool(&spec)
	}), nil
}

// ToOpenAITool converts a single llm.ToolSpec to OpenAI Tool format.
func ToOpenAITool(spec *llm.ToolSpec) openai.Tool {
	schemaType := spec.Schema.Type
	if schemaType == "" {
		schemaType = "object"
	}
	parameters := map[string]interface{}{
		"type":       schemaType,
		"properties": spec.Schema.Properties,
	}
	if len(spec.Schema.Required) > 0 {
		parameters["required"] = spec.Schema.Required
	}
	for k, v := range spec.Schema.ExtraFields {
		parameters[k] = v
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  parameters,
		},
	}
}

// FromOpenAIToolCall converts an OpenAI tool call to an llm.ToolUseBlock.
func FromOpenAIToolCall(toolCall openai.ToolCall) (*llm.ToolUseBlock, error) {
	input := make(map[string]interface{})
	if toolCall.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &input); err != nil {
			return nil, fmt.Errorf("failed to parse tool call arguments for %s: %w", toolCall.Function.Name, err)
		}
	}

	return &llm.ToolUseBlock{
		ID:    toolCall.ID,
		Name:  toolCall.Function.Name,
		Input: input,
	}, nil
}

// fromFinishReason maps OpenAI finish reasons into the neutral set.
func fromFinishReason(reason openai.FinishReason) llm.FinishReason {
	switch reason {
	case openai.FinishReasonStop:
		return llm.FinishReasonStop
	case openai.FinishReasonLength:
		return llm.FinishReasonMaxTokens
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return llm.FinishReasonToolUse
	case openai.FinishReasonContentFilter:
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonUnknown
	}
}

// fromUsage converts OpenAI usage, including prompt cache detail when present.
func fromUsage(usage openai.Usage) *llm.Usage {
	converted := &llm.Usage{
		InputTokens:  int64(usage.PromptTokens),
		OutputTokens: int64(usage.CompletionTokens),
	}
	if usage.PromptTokensDetails != nil {
		converted.CacheReadInputTokens = int64(usage.PromptTokensDetails.CachedTokens)
	}
	return converted
}

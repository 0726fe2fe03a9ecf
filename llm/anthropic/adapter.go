package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/aschepis/switchboard/llm"
	"github.com/samber/lo"
)

// ToMessageParam converts an llm.Message to an Anthropic MessageParam.
// Anthropic has no tool role: tool results travel as user-message blocks.
func ToMessageParam(msg llm.Message) (anthropic.MessageParam, error) {
	contentBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			contentBlocks = append(contentBlocks, anthropic.NewTextBlock(block.Text))
		case llm.ContentBlockTypeImage:
			if block.Media == nil {
				continue
			}
			if len(block.Media.Data) == 0 {
				return anthropic.MessageParam{}, fmt.Errorf("anthropic image blocks require inline data")
			}
			contentBlocks = append(contentBlocks, anthropic.NewImageBlockBase64(
				block.Media.MIMEType,
				base64.StdEncoding.EncodeToString(block.Media.Data),
			))
		case llm.ContentBlockTypeAudio, llm.ContentBlockTypeDocument:
			return anthropic.MessageParam{}, fmt.Errorf("anthropic messages do not support %s blocks", block.Type)
		case llm.ContentBlockTypeToolUse:
			if block.ToolUse != nil {
				contentBlocks = append(contentBlocks, anthropic.NewToolUseBlock(
					block.ToolUse.ID,
					block.ToolUse.Input,
					block.ToolUse.Name,
				))
			}
		case llm.ContentBlockTypeToolResult:
			if block.ToolResult != nil {
				contentBlocks = append(contentBlocks, anthropic.NewToolResultBlock(
					block.ToolResult.ID,
					block.ToolResult.Content,
					block.ToolResult.IsError,
				))
			}
		case llm.ContentBlockTypeThinking:
			// thinking blocks are response-only; skip on requests
		}
	}

	switch msg.Role {
	case llm.RoleAssistant:
		return anthropic.NewAssistantMessage(contentBlocks...), nil
	default:
		// user and tool roles both map onto user messages
		return anthropic.NewUserMessage(contentBlocks...), nil
	}
}

// ToMessageParams converts a slice of llm.Messages to Anthropic MessageParams.
func ToMessageParams(msgs []llm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		anthMsg, err := ToMessageParam(msg)
		if err != nil {
			return nil, err
		}
		result = append(result, anthMsg)
	}
	return result, nil
}

// FromContentBlocks converts Anthropic response content to neutral blocks.
func FromContentBlocks(blocks []anthropic.ContentBlockUnion) []llm.ContentBlock {
	content := make([]llm.ContentBlock, 0, len(blocks))
	for _, blockUnion := range blocks {
		switch block := blockUnion.AsAny().(type) {
		case anthropic.TextBlock:
			content = append(content, llm.ContentBlock{
				Type: llm.ContentBlockTypeText,
				Text: block.Text,
			})
		case anthropic.ThinkingBlock:
			content = append(content, llm.ContentBlock{
				Type: llm.ContentBlockTypeThinking,
				Text: block.Thinking,
			})
		case anthropic.ToolUseBlock:
			var input map[string]interface{}
			if block.Input != nil {
				if inputBytes, err := json.Marshal(block.Input); err == nil {
					if err := json.Unmarshal(inputBytes, &input); err != nil {
						input = make(map[string]interface{})
					}
				} else {
					input = make(map[string]interface{})
				}
			} else {
				input = make(map[string]interface{})
			}
			content = append(content, llm.ContentBlock{
				Type: llm.ContentBlockTypeToolUse,
				ToolUse: &llm.ToolUseBlock{
					ID:    block.ID,
					Name:  block.Name,
					Input: input,
				},
			})
		}
	}
	return content
}

// ToToolUnionParam converts an llm.ToolSpec to an Anthropic ToolUnionParam.
func ToToolUnionParam(spec *llm.ToolSpec) anthropic.ToolUnionParam {
	toolParam := anthropic.ToolParam{
		Name:        spec.Name,
		Description: anthropic.String(spec.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:        "object",
			Properties:  spec.Schema.Properties,
			Required:    spec.Schema.Required,
			ExtraFields: spec.Schema.ExtraFields,
		},
	}

	return anthropic.ToolUnionParam{OfTool: &toolParam}
}

// ToToolUnionParams converts a slice of llm.ToolSpecs to Anthropic ToolUnionParams.
func ToToolUnionParams(specs []llm.ToolSpec) []anthropic.ToolUnionParam {
	return lo.Map(specs, func(spec llm.ToolSpec, _ int) anthropic.ToolUnionParam {
		return ToToolUnionParam(&spec)
	})
}

// fromStopReason maps Anthropic stop reasons into the neutral set.
func fromStopReason(reason anthropic.StopReason) llm.FinishReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return llm.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		return llm.FinishReasonMaxTokens
	case anthropic.StopReasonToolUse:
		return llm.FinishReasonToolUse
	case anthropic.StopReasonRefusal:
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonUnknown
	}
}

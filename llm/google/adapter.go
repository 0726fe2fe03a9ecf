package google

import (
	"fmt"

	"github.com/aschepis/switchboard/llm"
	"github.com/samber/lo"
	"google.golang.org/genai"
)

// ToContents converts neutral messages into Gemini content history. Gemini
// uses "model" for the assistant role and carries tool results as
// FunctionResponse parts inside a user-role content.
func ToContents(messages []llm.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		content, err := ToContent(msg)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

// ToContent converts a single neutral message into a Gemini content.
func ToContent(msg llm.Message) (*genai.Content, error) {
	role := "user"
	switch msg.Role {
	case llm.RoleAssistant:
		role = "model"
	case llm.RoleUser, llm.RoleTool:
		role = "user"
	case llm.RoleSystem:
		return nil, fmt.Errorf("system messages must be relocated before conversion")
	default:
		return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
	}

	parts := make([]*genai.Part, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentBlockTypeText:
			parts = append(parts, &genai.Part{Text: block.Text})

		case llm.ContentBlockTypeToolUse:
			if block.ToolUse == nil {
				return nil, fmt.Errorf("tool use block has no tool use data")
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: block.ToolUse.Name,
					Args: block.ToolUse.Input,
				},
			})

		case llm.ContentBlockTypeToolResult:
			if block.ToolResult == nil {
				return nil, fmt.Errorf("tool result block has no tool result data")
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name: block.ToolResult.ID,
					Response: map[string]any{
						"result": block.ToolResult.Content,
					},
				},
			})

		case llm.ContentBlockTypeImage:
			if block.Media == nil {
				return nil, fmt.Errorf("image block has no media data")
			}
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: block.Media.MIMEType,
					Data:     block.Media.Data,
				},
			})

		case llm.ContentBlockTypeAudio, llm.ContentBlockTypeDocument:
			if block.Media == nil {
				return nil, fmt.Errorf("%s block has no media data", block.Type)
			}
			// Gemini accepts audio and documents as inline blobs too
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: block.Media.MIMEType,
					Data:     block.Media.Data,
				},
			})

		case llm.ContentBlockTypeThinking:
			// Thinking blocks are output-only, never sent back

		default:
			return nil, fmt.Errorf("unsupported content block type: %s", block.Type)
		}
	}

	return &genai.Content{Role: role, Parts: parts}, nil
}

// ToTools converts neutral tool specs into Gemini tool declarations. The
// provider accepts raw JSON schema objects directly.
func ToTools(tools []llm.ToolSpec) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	return []*genai.Tool{{
		FunctionDeclarations: lo.Map(tools, func(t llm.ToolSpec, _ int) *genai.FunctionDeclaration {
			return &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: toSchemaMap(t.Schema),
			}
		}),
	}}
}

func toSchemaMap(schema llm.ToolSchema) map[string]any {
	m := map[string]any{
		"type":       schema.Type,
		"properties": schema.Properties,
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	for k, v := range schema.ExtraFields {
		m[k] = v
	}
	return m
}

// FromCandidate converts a Gemini candidate's parts into neutral content
// blocks. Gemini does not assign IDs to function calls, so the name doubles
// as the ID when results are matched back up.
func FromCandidate(candidate *genai.Candidate) []llm.ContentBlock {
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	content := make([]llm.ContentBlock, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			content = append(content, llm.ContentBlock{
				Type: llm.ContentBlockTypeToolUse,
				ToolUse: &llm.ToolUseBlock{
					ID:    part.FunctionCall.Name,
					Name:  part.FunctionCall.Name,
					Input: part.FunctionCall.Args,
				},
			})
		case part.Text != "":
			content = append(content, llm.ContentBlock{
				Type: llm.ContentBlockTypeText,
				Text: part.Text,
			})
		}
	}
	return content
}

// fromFinishReason maps Gemini finish reasons onto the neutral set. A
// candidate that produced function calls reports tool use regardless of the
// raw reason.
func fromFinishReason(reason genai.FinishReason, hasToolUse bool) llm.FinishReason {
	if hasToolUse {
		return llm.FinishReasonToolUse
	}
	switch reason {
	case genai.FinishReasonStop:
		return llm.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return llm.FinishReasonMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonUnknown
	}
}

// fromUsageMetadata converts Gemini usage metadata into neutral usage.
func fromUsageMetadata(meta *genai.GenerateContentResponseUsageMetadata) *llm.Usage {
	if meta == nil {
		return nil
	}
	return &llm.Usage{
		InputTokens:          int64(meta.PromptTokenCount),
		OutputTokens:         int64(meta.CandidatesTokenCount),
		CacheReadInputTokens: int64(meta.CachedContentTokenCount),
	}
}

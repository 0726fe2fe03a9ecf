package llm

import (
	"encoding/json"
	"fmt"
)

// jsonModeInstruction is appended to the last user message when JSON mode is
// requested. Some providers honor a response-format flag as well; the
// instruction is what makes the behavior portable across all of them.
const jsonModeInstruction = "\n\nFor your final answer, output ONLY a single valid JSON object. " +
	"Do not include markdown fences, commentary, or the schema itself."

// WithJSONInstruction returns a copy of msgs with the JSON formatting
// instruction appended to the last user message. When schema is non-nil its
// fields are described so the model knows the expected shape. If no user
// message exists, one is appended.
func WithJSONInstruction(msgs []Message, schema *ToolSchema) []Message {
	instruction := jsonModeInstruction
	if schema != nil {
		if fields, err := json.Marshal(schema.Properties); err == nil {
			instruction += fmt.Sprintf("\n\nThe JSON object must match this shape: %s", fields)
		}
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != RoleUser {
			continue
		}
		content := make([]ContentBlock, len(out[i].Content))
		copy(content, out[i].Content)
		appended := false
		for j := len(content) - 1; j >= 0; j-- {
			if content[j].Type == ContentBlockTypeText {
				content[j].Text += instruction
				appended = true
				break
			}
		}
		if !appended {
			content = append(content, ContentBlock{Type: ContentBlockTypeText, Text: instruction})
		}
		out[i] = Message{Role: out[i].Role, Content: content}
		return out
	}
	return append(out, NewTextMessage(RoleUser, instruction))
}

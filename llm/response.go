package llm

// Response wraps a provider response in a provider-neutral shape. The raw SDK
// payload is retained for inspection but never mutated; everything else is a
// derived, read-only view.
type Response struct {
	Provider     string
	Model        string
	Content      []ContentBlock
	Usage        *Usage
	FinishReason FinishReason

	// Raw is the unmodified provider SDK response object, when available.
	Raw interface{}
}

// Text returns the first textual content block, or the empty string when the
// response carries no text.
func (r *Response) Text() string {
	for _, block := range r.Content {
		if block.Type == ContentBlockTypeText {
			return block.Text
		}
	}
	return ""
}

// Thinking returns the first thinking block, if the provider emitted one.
func (r *Response) Thinking() string {
	for _, block := range r.Content {
		if block.Type == ContentBlockTypeThinking {
			return block.Text
		}
	}
	return ""
}

// ToolUses returns all tool invocations requested by the assistant.
func (r *Response) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range r.Content {
		if block.Type == ContentBlockTypeToolUse && block.ToolUse != nil {
			uses = append(uses, *block.ToolUse)
		}
	}
	return uses
}

// ToolUse returns the first tool invocation, or nil when there is none.
func (r *Response) ToolUse() *ToolUseBlock {
	for _, block := range r.Content {
		if block.Type == ContentBlockTypeToolUse && block.ToolUse != nil {
			use := *block.ToolUse
			return &use
		}
	}
	return nil
}

// InputTokens returns the prompt token count, or 0 when usage is unknown.
func (r *Response) InputTokens() int64 {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.InputTokens
}

// OutputTokens returns the completion token count, or 0 when usage is unknown.
func (r *Response) OutputTokens() int64 {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.OutputTokens
}

// Cost returns the dollar cost of the call computed from the static per-model
// pricing table, or nil when the model is not listed or usage is unknown.
func (r *Response) Cost() *float64 {
	if r.Usage == nil {
		return nil
	}
	return CalculateCost(r.Provider, r.Model, r.Usage)
}

// AssistantMessage re-encodes the assistant turn as a neutral Message so the
// response can be appended to a conversation and sent back to any provider.
func (r *Response) AssistantMessage() Message {
	content := make([]ContentBlock, len(r.Content))
	copy(content, r.Content)
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

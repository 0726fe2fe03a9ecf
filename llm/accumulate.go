package llm

import (
	"encoding/json"
	"strings"
)

// Accumulator folds stream events back into a complete Response so the
// streaming path ends with the same object the non-streaming path returns.
type Accumulator struct {
	provider string
	model    string

	text         strings.Builder
	toolUses     []ToolUseBlock
	currentTool  *ToolUseBlock
	toolInput    strings.Builder
	usage        *Usage
	finishReason FinishReason
}

// NewAccumulator creates an Accumulator for a stream produced by the given
// provider and model (used for cost lookup on the synthesized response).
func NewAccumulator(provider, model string) *Accumulator {
	return &Accumulator{provider: provider, model: model}
}

// Add folds one stream event into the accumulated state.
func (a *Accumulator) Add(event *StreamEvent) {
	if event == nil {
		return
	}

	if event.Delta != nil {
		switch event.Delta.Type {
		case StreamDeltaTypeText:
			a.text.WriteString(event.Delta.Text)
		case StreamDeltaTypeToolUse:
			a.closeTool()
			if event.Delta.ToolUse != nil {
				tool := *event.Delta.ToolUse
				a.currentTool = &tool
			}
		case StreamDeltaTypeToolInput:
			a.toolInput.WriteString(event.Delta.ToolInput)
		}
	}

	if event.Usage != nil {
		a.usage = event.Usage
	}
	if event.FinishReason != "" {
		a.finishReason = event.FinishReason
	}
	if event.Done {
		a.closeTool()
	}
}

// closeTool parses buffered tool input JSON and finalizes the pending tool
// call. When the buffer does not parse, any input already present on the
// block is kept; providers that deliver arguments whole rather than as
// partial JSON populate the block directly. A tool call with no usable
// input at all gets an empty argument map, not an error.
func (a *Accumulator) closeTool() {
	if a.currentTool == nil {
		// Discard input fragments that arrived with no open tool call so
		// they cannot leak into the next one
		a.toolInput.Reset()
		return
	}
	if a.toolInput.Len() > 0 {
		var input map[string]interface{}
		if err := json.Unmarshal([]byte(a.toolInput.String()), &input); err == nil {
			a.currentTool.Input = input
		}
	}
	if a.currentTool.Input == nil {
		a.currentTool.Input = make(map[string]interface{})
	}
	a.toolUses = append(a.toolUses, *a.currentTool)
	a.currentTool = nil
	a.toolInput.Reset()
}

// Response synthesizes a complete Response from the accumulated chunks.
func (a *Accumulator) Response() *Response {
	a.closeTool()

	var content []ContentBlock
	if a.text.Len() > 0 {
		content = append(content, ContentBlock{
			Type: ContentBlockTypeText,
			Text: a.text.String(),
		})
	}
	for i := range a.toolUses {
		tool := a.toolUses[i]
		content = append(content, ContentBlock{
			Type:    ContentBlockTypeToolUse,
			ToolUse: &tool,
		})
	}

	finishReason := a.finishReason
	if finishReason == "" {
		finishReason = FinishReasonStop
	}

	return &Response{
		Provider:     a.provider,
		Model:        a.model,
		Content:      content,
		Usage:        a.usage,
		FinishReason: finishReason,
	}
}

// CollectResponse drains a stream and synthesizes the complete Response,
// giving streaming callers parity with the non-streaming path. The stream is
// closed before returning.
func CollectResponse(stream Stream, provider, model string) (*Response, error) {
	defer stream.Close()

	acc := NewAccumulator(provider, model)
	for stream.Next() {
		acc.Add(stream.Event())
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return acc.Response(), nil
}

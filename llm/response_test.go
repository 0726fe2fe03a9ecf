package llm

import (
	"testing"
)

func sampleResponse() *Response {
	return &Response{
		Provider: ProviderAnthropic,
		Model:    "claude-3-5-haiku",
		Content: []ContentBlock{
			{Type: ContentBlockTypeThinking, Text: "considering options"},
			{Type: ContentBlockTypeText, Text: "Here is the answer"},
			{
				Type:    ContentBlockTypeToolUse,
				ToolUse: &ToolUseBlock{ID: "tool_1", Name: "get_weather", Input: map[string]interface{}{"city": "Boston"}},
			},
			{
				Type:    ContentBlockTypeToolUse,
				ToolUse: &ToolUseBlock{ID: "tool_2", Name: "get_time", Input: map[string]interface{}{}},
			},
		},
		Usage:        &Usage{InputTokens: 100, OutputTokens: 50},
		FinishReason: FinishReasonToolUse,
	}
}

func TestResponseText(t *testing.T) {
	resp := sampleResponse()
	if resp.Text() != "Here is the answer" {
		t.Errorf("Unexpected text: %q", resp.Text())
	}

	empty := &Response{}
	if empty.Text() != "" {
		t.Errorf("Expected empty text, got %q", empty.Text())
	}
}

func TestResponseThinking(t *testing.T) {
	resp := sampleResponse()
	if resp.Thinking() != "considering options" {
		t.Errorf("Unexpected thinking: %q", resp.Thinking())
	}
}

func TestResponseToolUses(t *testing.T) {
	resp := sampleResponse()
	uses := resp.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("Expected 2 tool uses, got %d", len(uses))
	}
	if uses[0].Name != "get_weather" || uses[1].Name != "get_time" {
		t.Errorf("Unexpected tool use order: %v, %v", uses[0].Name, uses[1].Name)
	}

	first := resp.ToolUse()
	if first == nil {
		t.Fatal("Expected first tool use")
	}
	if first.ID != "tool_1" {
		t.Errorf("Expected first tool use tool_1, got %q", first.ID)
	}

	textOnly := &Response{Content: []ContentBlock{{Type: ContentBlockTypeText, Text: "hi"}}}
	if textOnly.ToolUse() != nil {
		t.Error("Expected nil tool use for text-only response")
	}
}

func TestResponseTokenCounts(t *testing.T) {
	resp := sampleResponse()
	if resp.InputTokens() != 100 {
		t.Errorf("Expected 100 input tokens, got %d", resp.InputTokens())
	}
	if resp.OutputTokens() != 50 {
		t.Errorf("Expected 50 output tokens, got %d", resp.OutputTokens())
	}

	noUsage := &Response{}
	if noUsage.InputTokens() != 0 || noUsage.OutputTokens() != 0 {
		t.Error("Expected zero tokens when usage is unknown")
	}
	if noUsage.Cost() != nil {
		t.Error("Expected nil cost when usage is unknown")
	}
}

func TestResponseAssistantMessage(t *testing.T) {
	resp := sampleResponse()
	msg := resp.AssistantMessage()

	if msg.Role != RoleAssistant {
		t.Errorf("Expected role %v, got %v", RoleAssistant, msg.Role)
	}
	if len(msg.Content) != len(resp.Content) {
		t.Errorf("Expected %d content blocks, got %d", len(resp.Content), len(msg.Content))
	}
}

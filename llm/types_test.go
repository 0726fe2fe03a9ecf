package llm

import (
	"testing"
)

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage(RoleUser, "hello world")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %v, got %v", RoleUser, msg.Role)
	}
	if len(msg.Content) != 1 {
		t.Fatalf("Expected 1 content block, got %d", len(msg.Content))
	}
	if msg.Content[0].Type != ContentBlockTypeText {
		t.Errorf("Expected content type %v, got %v", ContentBlockTypeText, msg.Content[0].Type)
	}
	if msg.Content[0].Text != "hello world" {
		t.Errorf("Expected text 'hello world', got %q", msg.Content[0].Text)
	}
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("be helpful")

	if msg.Role != RoleSystem {
		t.Errorf("Expected role %v, got %v", RoleSystem, msg.Role)
	}
	if msg.Text() != "be helpful" {
		t.Errorf("Expected text 'be helpful', got %q", msg.Text())
	}
}

func TestNewImageMessage(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	msg := NewImageMessage("image/png", data)

	if msg.Role != RoleUser {
		t.Errorf("Expected role %v, got %v", RoleUser, msg.Role)
	}
	if len(msg.Content) != 1 {
		t.Fatalf("Expected 1 content block, got %d", len(msg.Content))
	}
	block := msg.Content[0]
	if block.Type != ContentBlockTypeImage {
		t.Errorf("Expected content type %v, got %v", ContentBlockTypeImage, block.Type)
	}
	if block.Media == nil {
		t.Fatal("Expected Media to be set")
	}
	if block.Media.MIMEType != "image/png" {
		t.Errorf("Expected MIME type 'image/png', got %q", block.Media.MIMEType)
	}
	if len(block.Media.Data) != len(data) {
		t.Errorf("Expected %d bytes of data, got %d", len(data), len(block.Media.Data))
	}
}

func TestNewToolUseMessage(t *testing.T) {
	toolUses := []ToolUseBlock{
		{ID: "tool_1", Name: "get_weather", Input: map[string]interface{}{"city": "Boston"}},
		{ID: "tool_2", Name: "get_time", Input: map[string]interface{}{}},
	}
	msg := NewToolUseMessage(toolUses)

	if msg.Role != RoleAssistant {
		t.Errorf("Expected role %v, got %v", RoleAssistant, msg.Role)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("Expected 2 content blocks, got %d", len(msg.Content))
	}
	for i, block := range msg.Content {
		if block.Type != ContentBlockTypeToolUse {
			t.Errorf("Block %d: expected type %v, got %v", i, ContentBlockTypeToolUse, block.Type)
		}
		if block.ToolUse == nil {
			t.Fatalf("Block %d: expected ToolUse to be set", i)
		}
		if block.ToolUse.ID != toolUses[i].ID {
			t.Errorf("Block %d: expected ID %q, got %q", i, toolUses[i].ID, block.ToolUse.ID)
		}
	}
}

func TestNewToolResultMessage(t *testing.T) {
	results := []ToolResultBlock{
		{ID: "tool_1", Content: `{"temp": 72}`},
		{ID: "tool_2", Content: "boom", IsError: true},
	}
	msg := NewToolResultMessage(results)

	if msg.Role != RoleTool {
		t.Errorf("Expected role %v, got %v", RoleTool, msg.Role)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("Expected 2 content blocks, got %d", len(msg.Content))
	}
	if msg.Content[0].ToolResult == nil {
		t.Fatal("Expected ToolResult to be set")
	}
	if msg.Content[0].ToolResult.IsError {
		t.Error("Expected first result to not be an error")
	}
	if !msg.Content[1].ToolResult.IsError {
		t.Error("Expected second result to be an error")
	}
}

func TestMessageText(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			{Type: ContentBlockTypeText, Text: "first"},
			{Type: ContentBlockTypeThinking, Text: "hidden"},
			{Type: ContentBlockTypeText, Text: "second"},
		},
	}

	if got := msg.Text(); got != "first\nsecond" {
		t.Errorf("Expected 'first\\nsecond', got %q", got)
	}
}

func TestMessageTextEmpty(t *testing.T) {
	msg := NewToolResultMessage([]ToolResultBlock{{ID: "x", Content: "y"}})
	if got := msg.Text(); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
}

func TestValidateMessages(t *testing.T) {
	valid := []Message{
		NewSystemMessage("be helpful"),
		NewTextMessage(RoleUser, "hi"),
	}
	if err := ValidateMessages(valid); err != nil {
		t.Errorf("Expected valid messages to pass, got %v", err)
	}

	noSystem := []Message{NewTextMessage(RoleUser, "hi")}
	if err := ValidateMessages(noSystem); err != nil {
		t.Errorf("Expected messages without system to pass, got %v", err)
	}
}

func TestValidateMessagesSystemNotFirst(t *testing.T) {
	msgs := []Message{
		NewTextMessage(RoleUser, "hi"),
		NewSystemMessage("be helpful"),
	}
	err := ValidateMessages(msgs)
	if err == nil {
		t.Fatal("Expected error for misplaced system message")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestValidateMessagesMultipleSystem(t *testing.T) {
	msgs := []Message{
		NewSystemMessage("one"),
		NewSystemMessage("two"),
		NewTextMessage(RoleUser, "hi"),
	}
	err := ValidateMessages(msgs)
	if err == nil {
		t.Fatal("Expected error for multiple system messages")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestSplitSystem(t *testing.T) {
	msgs := []Message{
		NewSystemMessage("be helpful"),
		NewTextMessage(RoleUser, "hi"),
	}
	system, rest := SplitSystem(msgs)

	if system != "be helpful" {
		t.Errorf("Expected system 'be helpful', got %q", system)
	}
	if len(rest) != 1 {
		t.Fatalf("Expected 1 remaining message, got %d", len(rest))
	}
	if rest[0].Role != RoleUser {
		t.Errorf("Expected remaining role %v, got %v", RoleUser, rest[0].Role)
	}
}

func TestSplitSystemNoSystem(t *testing.T) {
	msgs := []Message{NewTextMessage(RoleUser, "hi")}
	system, rest := SplitSystem(msgs)

	if system != "" {
		t.Errorf("Expected empty system, got %q", system)
	}
	if len(rest) != 1 {
		t.Errorf("Expected 1 message, got %d", len(rest))
	}
}

func TestSplitSystemEmpty(t *testing.T) {
	system, rest := SplitSystem(nil)
	if system != "" {
		t.Errorf("Expected empty system, got %q", system)
	}
	if len(rest) != 0 {
		t.Errorf("Expected no messages, got %d", len(rest))
	}
}

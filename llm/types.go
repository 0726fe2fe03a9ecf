package llm

import (
	"encoding/json"
	"time"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message represents a single message in a conversation.
// This is provider-neutral and can represent user, assistant, system, or tool messages.
type Message struct {
	Role    MessageRole
	Content []ContentBlock
}

// ContentBlock represents a single content block within a message.
type ContentBlock struct {
	Type       ContentBlockType
	Text       string           // For text and thinking blocks
	Media      *MediaBlock      // For image, audio, and document blocks
	ToolUse    *ToolUseBlock    // For tool use blocks
	ToolResult *ToolResultBlock // For tool result blocks
}

// ContentBlockType represents the type of content block.
type ContentBlockType string

const (
	ContentBlockTypeText       ContentBlockType = "text"
	ContentBlockTypeImage      ContentBlockType = "image"
	ContentBlockTypeAudio      ContentBlockType = "audio"
	ContentBlockTypeDocument   ContentBlockType = "document"
	ContentBlockTypeToolUse    ContentBlockType = "tool_use"
	ContentBlockTypeToolResult ContentBlockType = "tool_result"
	ContentBlockTypeThinking   ContentBlockType = "thinking"
)

// MediaBlock carries binary content for image, audio, and document blocks.
// Either Data (raw bytes, base64-encoded on the wire where providers require
// it) or URL must be set.
type MediaBlock struct {
	MIMEType string
	Data     []byte
	URL      string
}

// ToolUseBlock represents a tool invocation request from the assistant.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]interface{} // JSON-serializable input parameters
}

// ToolResultBlock represents the result of a tool invocation.
type ToolResultBlock struct {
	ID      string
	Content string // JSON-serialized result
	IsError bool
}

// ToolSpec represents a tool definition that can be provided to an LLM.
type ToolSpec struct {
	Name        string
	Description string
	Schema      ToolSchema
}

// ToolSchema represents the JSON schema for a tool's input parameters.
type ToolSchema struct {
	Type        string
	Properties  map[string]interface{}
	Required    []string
	ExtraFields map[string]interface{} // For any additional schema fields
}

// CallParams holds the common, provider-neutral tuning parameters of a call.
// Each provider maps these onto its own wire names and numeric types
// (e.g. MaxTokens becomes MaxOutputTokens for Google and num_predict for
// Ollama).
type CallParams struct {
	MaxTokens     int64
	Temperature   *float64
	TopP          *float64
	TopK          *int
	StopSequences []string
	Seed          *int
	Timeout       time.Duration // forwarded as a deadline on the provider request
}

// Request represents a complete, resolved LLM API request.
type Request struct {
	Model    string
	Messages []Message
	System   string
	Tools    []ToolSpec
	Params   CallParams

	// JSONMode asks the provider for a JSON object response. The formatting
	// instruction is appended to the last user message and tool declarations
	// are suppressed.
	JSONMode bool

	// ForceToolUse requires the model to call one of the declared tools.
	// Used by structured extraction.
	ForceToolUse bool
}

// Usage represents token usage information from an LLM response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	// Provider-specific usage fields can be added here
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// FinishReason is the provider-neutral mapping of why generation stopped.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonMaxTokens     FinishReason = "max_tokens"
	FinishReasonToolUse       FinishReason = "tool_use"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonUnknown       FinishReason = "unknown"
)

// StreamDelta represents a single delta in a streaming response.
type StreamDelta struct {
	Type      StreamDeltaType
	Text      string        // For text deltas
	ToolUse   *ToolUseBlock // For tool use start
	ToolInput string        // For tool input JSON deltas
}

// StreamDeltaType represents the type of streaming delta.
type StreamDeltaType string

const (
	StreamDeltaTypeText      StreamDeltaType = "text"
	StreamDeltaTypeToolUse   StreamDeltaType = "tool_use"
	StreamDeltaTypeToolInput StreamDeltaType = "tool_input"
)

// StreamEvent represents a complete streaming event.
type StreamEvent struct {
	Type         StreamEventType
	Delta        *StreamDelta
	Usage        *Usage
	FinishReason FinishReason
	Done         bool
}

// StreamEventType represents the type of streaming event.
type StreamEventType string

const (
	StreamEventTypeStart        StreamEventType = "start"
	StreamEventTypeContentBlock StreamEventType = "content_block"
	StreamEventTypeContentDelta StreamEventType = "content_delta"
	StreamEventTypeMessageDelta StreamEventType = "message_delta"
	StreamEventTypeStop         StreamEventType = "stop"
)

// NewTextMessage creates a new message with text content.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{
				Type: ContentBlockTypeText,
				Text: text,
			},
		},
	}
}

// NewSystemMessage creates a new system message with text content.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewImageMessage creates a new user message with a single image block.
func NewImageMessage(mimeType string, data []byte) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentBlock{
			{
				Type:  ContentBlockTypeImage,
				Media: &MediaBlock{MIMEType: mimeType, Data: data},
			},
		},
	}
}

// NewToolUseMessage creates a new assistant message with tool use blocks.
func NewToolUseMessage(toolUses []ToolUseBlock) Message {
	content := make([]ContentBlock, len(toolUses))
	for i, tu := range toolUses {
		content[i] = ContentBlock{
			Type:    ContentBlockTypeToolUse,
			ToolUse: &tu,
		}
	}
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

// NewToolResultMessage creates a new tool message with tool result blocks.
func NewToolResultMessage(toolResults []ToolResultBlock) Message {
	content := make([]ContentBlock, len(toolResults))
	for i, tr := range toolResults {
		content[i] = ContentBlock{
			Type:       ContentBlockTypeToolResult,
			ToolResult: &tr,
		}
	}
	return Message{
		Role:    RoleTool,
		Content: content,
	}
}

// Text returns the concatenated text blocks of the message.
func (m Message) Text() string {
	var text string
	for _, block := range m.Content {
		if block.Type != ContentBlockTypeText {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += block.Text
	}
	return text
}

// ToJSON marshals a message to JSON for debugging/logging purposes.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ValidateMessages enforces the message ordering invariant: at most one
// system message is permitted and it must be first. Conversation order is
// otherwise preserved as given.
func ValidateMessages(msgs []Message) error {
	for i, msg := range msgs {
		if msg.Role != RoleSystem {
			continue
		}
		if i != 0 {
			return NewConfigurationError("system message must be the first message", nil)
		}
	}
	systemCount := 0
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			systemCount++
		}
	}
	if systemCount > 1 {
		return NewConfigurationError("at most one system message is permitted", nil)
	}
	return nil
}

// SplitSystem extracts a leading system message into its text form, returning
// the system prompt and the remaining messages. Providers relocate the system
// prompt into their preferred slot.
func SplitSystem(msgs []Message) (string, []Message) {
	if len(msgs) == 0 || msgs[0].Role != RoleSystem {
		return "", msgs
	}
	return msgs[0].Text(), msgs[1:]
}

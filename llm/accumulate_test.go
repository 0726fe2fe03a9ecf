package llm

import (
	"testing"
)

func TestAccumulatorText(t *testing.T) {
	acc := NewAccumulator(ProviderAnthropic, "claude-3-5-haiku")
	acc.Add(&StreamEvent{Type: StreamEventTypeStart})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeText, Text: "Hello, "},
	})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeText, Text: "world"},
	})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeMessageDelta,
		Usage: &Usage{InputTokens: 10, OutputTokens: 5},
	})
	acc.Add(&StreamEvent{Type: StreamEventTypeStop, FinishReason: FinishReasonStop, Done: true})

	resp := acc.Response()
	if resp.Text() != "Hello, world" {
		t.Errorf("Expected 'Hello, world', got %q", resp.Text())
	}
	if resp.FinishReason != FinishReasonStop {
		t.Errorf("Expected finish reason %v, got %v", FinishReasonStop, resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 10 {
		t.Errorf("Expected usage to be captured, got %+v", resp.Usage)
	}
	if resp.Provider != ProviderAnthropic {
		t.Errorf("Expected provider %q, got %q", ProviderAnthropic, resp.Provider)
	}
}

func TestAccumulatorToolInputJSON(t *testing.T) {
	acc := NewAccumulator(ProviderAnthropic, "claude-3-5-haiku")
	acc.Add(&StreamEvent{
		Type: StreamEventTypeContentBlock,
		Delta: &StreamDelta{
			Type:    StreamDeltaTypeToolUse,
			ToolUse: &ToolUseBlock{ID: "tool_1", Name: "get_weather"},
		},
	})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeToolInput, ToolInput: `{"city":`},
	})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeToolInput, ToolInput: `"Boston"}`},
	})
	acc.Add(&StreamEvent{Type: StreamEventTypeStop, FinishReason: FinishReasonToolUse, Done: true})

	resp := acc.Response()
	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("Expected 1 tool use, got %d", len(uses))
	}
	if uses[0].Name != "get_weather" {
		t.Errorf("Expected tool name 'get_weather', got %q", uses[0].Name)
	}
	if uses[0].Input["city"] != "Boston" {
		t.Errorf("Expected parsed input, got %+v", uses[0].Input)
	}
	if resp.FinishReason != FinishReasonToolUse {
		t.Errorf("Expected finish reason %v, got %v", FinishReasonToolUse, resp.FinishReason)
	}
}

// Some providers deliver complete argument maps on the tool block instead of
// partial JSON deltas. The block's input must survive accumulation even when
// the delta buffer holds text that does not parse on its own.
func TestAccumulatorKeepsPrepopulatedToolInput(t *testing.T) {
	acc := NewAccumulator(ProviderOllama, "llama3.2")
	acc.Add(&StreamEvent{
		Type: StreamEventTypeContentBlock,
		Delta: &StreamDelta{
			Type: StreamDeltaTypeToolUse,
			ToolUse: &ToolUseBlock{
				ID:    "tool_get_weather_0",
				Name:  "get_weather",
				Input: map[string]interface{}{"city": "Boston"},
			},
		},
	})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeToolInput, ToolInput: `{"city":"Boston"}{"city":"Boston","units":"f"}`},
	})
	acc.Add(&StreamEvent{Type: StreamEventTypeStop, FinishReason: FinishReasonToolUse, Done: true})

	uses := acc.Response().ToolUses()
	if len(uses) != 1 {
		t.Fatalf("Expected 1 tool use, got %d", len(uses))
	}
	if uses[0].Input["city"] != "Boston" {
		t.Errorf("Expected pre-populated input to survive, got %+v", uses[0].Input)
	}
}

func TestAccumulatorToolWithNoInput(t *testing.T) {
	acc := NewAccumulator(ProviderAnthropic, "claude-3-5-haiku")
	acc.Add(&StreamEvent{
		Type: StreamEventTypeContentBlock,
		Delta: &StreamDelta{
			Type:    StreamDeltaTypeToolUse,
			ToolUse: &ToolUseBlock{ID: "tool_1", Name: "get_time"},
		},
	})
	acc.Add(&StreamEvent{Type: StreamEventTypeStop, Done: true})

	uses := acc.Response().ToolUses()
	if len(uses) != 1 {
		t.Fatalf("Expected 1 tool use, got %d", len(uses))
	}
	if uses[0].Input == nil {
		t.Error("Expected empty input map, got nil")
	}
	if len(uses[0].Input) != 0 {
		t.Errorf("Expected empty input, got %+v", uses[0].Input)
	}
}

func TestAccumulatorDefaultFinishReason(t *testing.T) {
	acc := NewAccumulator(ProviderOpenAI, "gpt-4o-mini")
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeText, Text: "hi"},
	})

	resp := acc.Response()
	if resp.FinishReason != FinishReasonStop {
		t.Errorf("Expected default finish reason %v, got %v", FinishReasonStop, resp.FinishReason)
	}
}

// fakeStream replays a fixed event sequence.
type fakeStream struct {
	events []StreamEvent
	pos    int
	err    error
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.err != nil && s.pos >= len(s.events) {
		return false
	}
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Event() *StreamEvent { return &s.events[s.pos-1] }
func (s *fakeStream) Err() error          { return s.err }
func (s *fakeStream) Close() error        { s.closed = true; return nil }

func TestCollectResponse(t *testing.T) {
	stream := &fakeStream{
		events: []StreamEvent{
			{Type: StreamEventTypeStart},
			{Type: StreamEventTypeContentDelta, Delta: &StreamDelta{Type: StreamDeltaTypeText, Text: "streamed "}},
			{Type: StreamEventTypeContentDelta, Delta: &StreamDelta{Type: StreamDeltaTypeText, Text: "text"}},
			{Type: StreamEventTypeMessageDelta, Usage: &Usage{InputTokens: 3, OutputTokens: 2}},
			{Type: StreamEventTypeStop, FinishReason: FinishReasonStop, Done: true},
		},
	}

	resp, err := CollectResponse(stream, ProviderGoogle, "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("CollectResponse failed: %v", err)
	}
	if resp.Text() != "streamed text" {
		t.Errorf("Expected 'streamed text', got %q", resp.Text())
	}
	if resp.Model != "gemini-2.0-flash" {
		t.Errorf("Expected model to be set, got %q", resp.Model)
	}
	if !stream.closed {
		t.Error("Expected the stream to be closed")
	}
}

func TestCollectResponseStreamError(t *testing.T) {
	stream := &fakeStream{err: NewProviderError("connection dropped", nil)}

	if _, err := CollectResponse(stream, ProviderGoogle, "gemini-2.0-flash"); err == nil {
		t.Fatal("Expected stream error to surface")
	}
	if !stream.closed {
		t.Error("Expected the stream to be closed")
	}
}

func TestAccumulatorDiscardsOrphanToolInput(t *testing.T) {
	acc := NewAccumulator(ProviderOpenAI, "gpt-4o-mini")
	// Input fragment with no open tool call must not contaminate the next one
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeToolInput, ToolInput: `{"stray":`},
	})
	acc.Add(&StreamEvent{
		Type: StreamEventTypeContentBlock,
		Delta: &StreamDelta{
			Type:    StreamDeltaTypeToolUse,
			ToolUse: &ToolUseBlock{ID: "call_1", Name: "get_weather"},
		},
	})
	acc.Add(&StreamEvent{
		Type:  StreamEventTypeContentDelta,
		Delta: &StreamDelta{Type: StreamDeltaTypeToolInput, ToolInput: `{"city":"Paris"}`},
	})
	acc.Add(&StreamEvent{Type: StreamEventTypeStop, FinishReason: FinishReasonToolUse, Done: true})

	resp := acc.Response()
	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("Expected 1 tool use, got %d", len(uses))
	}
	if uses[0].Input["city"] != "Paris" {
		t.Errorf("Expected city Paris, got %v", uses[0].Input)
	}
	if _, ok := uses[0].Input["stray"]; ok {
		t.Error("Expected orphan fragment to be discarded")
	}
}

package anthropic

import (
	"context"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rs/zerolog"

	"github.com/aschepis/switchboard/llm"
)

// fakeDecoder replays scripted server-sent events through the SDK's stream
// decoding, so the wrapper sees the same unions a live response produces.
type fakeDecoder struct {
	events []ssestream.Event
	pos    int
	closed bool
}

func (d *fakeDecoder) Next() bool {
	if d.pos < len(d.events) {
		d.pos++
		return true
	}
	return false
}

func (d *fakeDecoder) Event() ssestream.Event {
	return d.events[d.pos-1]
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDecoder) Err() error {
	return nil
}

func sse(eventType, data string) ssestream.Event {
	return ssestream.Event{Type: eventType, Data: []byte(data)}
}

func scriptedMessageStream(events ...ssestream.Event) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	return ssestream.NewStream[anthropic.MessageStreamEventUnion](&fakeDecoder{events: events}, nil)
}

func TestAnthropicStreamTextAndToolUse(t *testing.T) {
	stream := newAnthropicStream(context.Background(), scriptedMessageStream(
		sse("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-5-haiku","usage":{"input_tokens":10,"output_tokens":1}}}`),
		sse("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sse("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`),
		sse("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sse("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`),
		sse("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\":\"Paris\"}"}}`),
		sse("content_block_stop", `{"type":"content_block_stop","index":1}`),
		sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"input_tokens":10,"output_tokens":25}}`),
		sse("message_stop", `{"type":"message_stop"}`),
	), zerolog.Nop())

	resp, err := llm.CollectResponse(stream, llm.ProviderAnthropic, "claude-3-5-haiku")
	if err != nil {
		t.Fatalf("CollectResponse failed: %v", err)
	}
	if resp.Text() != "Hello" {
		t.Errorf("Expected 'Hello', got %q", resp.Text())
	}
	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("Expected 1 tool use, got %d", len(uses))
	}
	if uses[0].ID != "toolu_1" || uses[0].Name != "get_weather" {
		t.Errorf("Expected toolu_1/get_weather, got %+v", uses[0])
	}
	if uses[0].Input["city"] != "Paris" {
		t.Errorf("Expected parsed partial JSON, got %v", uses[0].Input)
	}
	if resp.FinishReason != llm.FinishReasonToolUse {
		t.Errorf("Expected tool_use, got %v", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.OutputTokens != 25 {
		t.Errorf("Expected usage from message delta, got %+v", resp.Usage)
	}
}

func TestAnthropicStreamEventOrdering(t *testing.T) {
	stream := newAnthropicStream(context.Background(), scriptedMessageStream(
		sse("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-5-haiku","usage":{"input_tokens":3,"output_tokens":1}}}`),
		sse("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sse("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`),
		sse("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"input_tokens":3,"output_tokens":2}}`),
		sse("message_stop", `{"type":"message_stop"}`),
	), zerolog.Nop())
	defer stream.Close()

	var types []string
	for stream.Next() {
		types = append(types, string(stream.Event().Type))
	}
	if stream.Err() != nil {
		t.Fatalf("Unexpected stream error: %v", stream.Err())
	}

	want := []string{
		string(llm.StreamEventTypeStart),
		string(llm.StreamEventTypeContentDelta),
		string(llm.StreamEventTypeMessageDelta),
		string(llm.StreamEventTypeStop),
	}
	if len(types) != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}

func TestAnthropicStreamClosesDecoder(t *testing.T) {
	decoder := &fakeDecoder{}
	stream := newAnthropicStream(context.Background(),
		ssestream.NewStream[anthropic.MessageStreamEventUnion](decoder, nil), zerolog.Nop())

	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !decoder.closed {
		t.Error("Expected the underlying decoder to be closed")
	}
}

package switchboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aschepis/switchboard/llm"
	"github.com/aschepis/switchboard/tools"
)

// scriptedClient serves canned responses in order, repeating the last one.
type scriptedClient struct {
	responses []*llm.Response
	calls     int
	requests  []*llm.Request
}

func (c *scriptedClient) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	// Snapshot the message list; the loop mutates the request between rounds.
	snapshot := *req
	snapshot.Messages = append([]llm.Message(nil), req.Messages...)
	c.requests = append(c.requests, &snapshot)

	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return c.responses[idx], nil
}

func (c *scriptedClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	return nil, errors.New("not implemented")
}

func toolCallResponse(name string, input map[string]interface{}) *llm.Response {
	return &llm.Response{
		Content: []llm.ContentBlock{
			{Type: llm.ContentBlockTypeToolUse, ToolUse: &llm.ToolUseBlock{ID: "t1", Name: name, Input: input}},
		},
		FinishReason: llm.FinishReasonToolUse,
	}
}

func finalResponse(text string) *llm.Response {
	return &llm.Response{
		Content:      []llm.ContentBlock{{Type: llm.ContentBlockTypeText, Text: text}},
		FinishReason: llm.FinishReasonStop,
	}
}

func weatherRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry(zerolog.Nop())
	err := registry.Register(tools.Definition{
		Spec: llm.ToolSpec{Name: "get_weather"},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"temp": 72}, nil
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return registry
}

func TestToolLoopRunsToolsUntilDone(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolCallResponse("get_weather", map[string]interface{}{"city": "Boston"}),
		finalResponse("It is 72 degrees."),
	}}
	registry := weatherRegistry(t)

	opts := llm.CallOptions{Model: "test-model"}
	resp, err := ToolLoop(context.Background(), client, opts, registry, llm.StaticPrompt("weather in boston?"), 0)
	if err != nil {
		t.Fatalf("ToolLoop failed: %v", err)
	}

	if resp.Text() != "It is 72 degrees." {
		t.Errorf("Unexpected final text: %q", resp.Text())
	}
	if client.calls != 2 {
		t.Fatalf("Expected 2 rounds, got %d", client.calls)
	}

	// Second round must carry the assistant turn and the tool results.
	second := client.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("Expected 3 messages in second round, got %d", len(second.Messages))
	}
	if second.Messages[1].Role != llm.RoleAssistant {
		t.Errorf("Expected assistant message, got %v", second.Messages[1].Role)
	}
	if second.Messages[2].Role != llm.RoleTool {
		t.Errorf("Expected tool result message, got %v", second.Messages[2].Role)
	}
	if second.Messages[2].Content[0].ToolResult.IsError {
		t.Error("Expected tool result to succeed")
	}
	if len(second.Tools) != 1 || second.Tools[0].Name != "get_weather" {
		t.Errorf("Expected registry specs on the request, got %+v", second.Tools)
	}
}

func TestToolLoopNoToolCalls(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{finalResponse("direct answer")}}
	registry := weatherRegistry(t)

	resp, err := ToolLoop(context.Background(), client, llm.CallOptions{Model: "m"}, registry, llm.StaticPrompt("hi"), 0)
	if err != nil {
		t.Fatalf("ToolLoop failed: %v", err)
	}
	if resp.Text() != "direct answer" {
		t.Errorf("Unexpected text: %q", resp.Text())
	}
	if client.calls != 1 {
		t.Errorf("Expected 1 round, got %d", client.calls)
	}
}

func TestToolLoopBoundsRounds(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolCallResponse("get_weather", map[string]interface{}{"city": "Boston"}),
	}}
	registry := weatherRegistry(t)

	_, err := ToolLoop(context.Background(), client, llm.CallOptions{Model: "m"}, registry, llm.StaticPrompt("loop forever"), 2)
	if err == nil {
		t.Fatal("Expected error after exceeding max rounds")
	}
	if client.calls != 2 {
		t.Errorf("Expected exactly 2 rounds, got %d", client.calls)
	}
}

package llm

import (
	"context"
	"testing"
)

func TestBuildRequestStringPrompt(t *testing.T) {
	opts := CallOptions{Model: "test-model"}
	req, client, err := BuildRequest(opts, "recommend a book")
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if client != nil {
		t.Error("Expected no client override")
	}
	if req.Model != "test-model" {
		t.Errorf("Expected model 'test-model', got %q", req.Model)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != RoleUser {
		t.Errorf("Expected user role, got %v", req.Messages[0].Role)
	}
	if req.Messages[0].Text() != "recommend a book" {
		t.Errorf("Unexpected message text: %q", req.Messages[0].Text())
	}
}

func TestBuildRequestSplitsSystem(t *testing.T) {
	opts := CallOptions{Model: "test-model"}
	msgs := []Message{
		NewSystemMessage("you are a librarian"),
		NewTextMessage(RoleUser, "recommend a book"),
	}
	req, _, err := BuildRequest(opts, msgs)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.System != "you are a librarian" {
		t.Errorf("Expected system prompt, got %q", req.System)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("Expected system message to be split out, got %d messages", len(req.Messages))
	}
}

func TestBuildRequestRequiresModel(t *testing.T) {
	_, _, err := BuildRequest(CallOptions{}, "hello")
	if err == nil {
		t.Fatal("Expected error for missing model")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestBuildRequestRejectsNilPrompt(t *testing.T) {
	_, _, err := BuildRequest(CallOptions{Model: "m"}, nil)
	if err == nil {
		t.Fatal("Expected error for nil prompt result")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestBuildRequestRejectsUnsupportedType(t *testing.T) {
	_, _, err := BuildRequest(CallOptions{Model: "m"}, 42)
	if err == nil {
		t.Fatal("Expected error for unsupported prompt result type")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestBuildRequestDynamicParamsWin(t *testing.T) {
	staticTemp := 0.2
	dynTemp := 0.9
	opts := CallOptions{
		Model: "test-model",
		Params: CallParams{
			MaxTokens:   512,
			Temperature: &staticTemp,
		},
	}
	dyn := DynamicConfig{
		Messages: []Message{NewTextMessage(RoleUser, "hi")},
		Params:   &CallParams{Temperature: &dynTemp},
	}

	req, _, err := BuildRequest(opts, dyn)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Params.Temperature == nil || *req.Params.Temperature != dynTemp {
		t.Errorf("Expected dynamic temperature %v to win, got %v", dynTemp, req.Params.Temperature)
	}
	if req.Params.MaxTokens != 512 {
		t.Errorf("Expected static max tokens to survive, got %d", req.Params.MaxTokens)
	}
}

func TestBuildRequestDynamicToolsReplace(t *testing.T) {
	opts := CallOptions{
		Model: "test-model",
		Tools: []ToolSpec{{Name: "static_tool"}},
	}
	dyn := &DynamicConfig{
		Messages: []Message{NewTextMessage(RoleUser, "hi")},
		Tools:    []ToolSpec{{Name: "dynamic_tool"}},
	}

	req, _, err := BuildRequest(opts, dyn)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != "dynamic_tool" {
		t.Errorf("Expected dynamic tools to replace static, got %+v", req.Tools)
	}
}

func TestBuildRequestDynamicClientOverride(t *testing.T) {
	override := &fakeClient{}
	dyn := DynamicConfig{
		Messages: []Message{NewTextMessage(RoleUser, "hi")},
		Client:   override,
	}

	_, client, err := BuildRequest(CallOptions{Model: "m"}, dyn)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if client != override {
		t.Error("Expected dynamic client override to be returned")
	}
}

func TestBuildRequestForcedToolUseRequiresTools(t *testing.T) {
	opts := CallOptions{Model: "m", ForceToolUse: true}
	_, _, err := BuildRequest(opts, "hello")
	if err == nil {
		t.Fatal("Expected error for forced tool use without tools")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}

	opts.Tools = []ToolSpec{{Name: "extract"}}
	req, _, err := BuildRequest(opts, "hello")
	if err != nil {
		t.Fatalf("BuildRequest failed with tools present: %v", err)
	}
	if !req.ForceToolUse {
		t.Error("Expected ForceToolUse to carry through to the request")
	}
}

func TestCallUsesResolvedClient(t *testing.T) {
	client := &fakeClient{
		response: &Response{
			Model:        "test-model",
			Content:      []ContentBlock{{Type: ContentBlockTypeText, Text: "hi there"}},
			FinishReason: FinishReasonStop,
		},
	}
	opts := CallOptions{Model: "test-model"}

	resp, err := Call(context.Background(), client, opts, StaticPrompt("hello"))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Text() != "hi there" {
		t.Errorf("Unexpected response text: %q", resp.Text())
	}
	if client.calls != 1 {
		t.Errorf("Expected 1 call, got %d", client.calls)
	}
}

func TestCallRequiresClient(t *testing.T) {
	_, err := Call(context.Background(), nil, CallOptions{Model: "m"}, StaticPrompt("hi"))
	if err == nil {
		t.Fatal("Expected error when no client is configured")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestResolveRequiresPrompt(t *testing.T) {
	_, _, err := Resolve(context.Background(), &fakeClient{}, CallOptions{Model: "m"}, nil)
	if err == nil {
		t.Fatal("Expected error for nil prompt function")
	}
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aschepis/switchboard/llm"
	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// OllamaClient implements the llm.Client interface for Ollama's API.
type OllamaClient struct {
	client *api.Client
	model  string // Default model to use if not specified in request
	logger zerolog.Logger
}

// NewOllamaClient creates a new OllamaClient.
// If host is empty, it will use the default from environment (OLLAMA_HOST or http://localhost:11434).
// If model is empty, it will use the default from environment or config.
func NewOllamaClient(host, model string, logger zerolog.Logger) (*OllamaClient, error) {
	var client *api.Client
	var err error

	if host != "" {
		baseURL, err := parseHost(host)
		if err != nil {
			return nil, fmt.Errorf("invalid host: %w", err)
		}
		client = api.NewClient(baseURL, &http.Client{})
	} else {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}

	return &OllamaClient{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "ollama_client").Logger(),
	}, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// buildChatRequest translates a neutral request into an Ollama chat request.
// Common parameters move into the Options map under Ollama's names, the
// system prompt is prepended as a system message, and JSON mode sets the
// request format while suppressing tools.
func (c *OllamaClient) buildChatRequest(req *llm.Request, stream bool) (*api.ChatRequest, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, llm.NewConfigurationError("model is required", nil)
	}

	messages := req.Messages
	if req.JSONMode {
		messages = llm.WithJSONInstruction(messages, nil)
	}

	tools := req.Tools
	if req.JSONMode {
		tools = nil
	}
	if req.ForceToolUse && len(tools) == 0 {
		return nil, llm.NewConfigurationError("forced tool use requires at least one tool", nil)
	}

	ollamaMsgs, err := ToOllamaMessages(messages, tools)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	if req.System != "" {
		systemMsg := api.Message{
			Role:    "system",
			Content: req.System,
		}
		ollamaMsgs = append([]api.Message{systemMsg}, ollamaMsgs...)
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: ollamaMsgs,
		Stream:   &stream,
		Options:  make(map[string]interface{}),
	}

	if len(tools) > 0 {
		ollamaTools, err := ToOllamaTools(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tools: %w", err)
		}
		chatReq.Tools = ollamaTools
	}

	if req.JSONMode {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	if req.Params.MaxTokens > 0 {
		chatReq.Options["num_predict"] = int(req.Params.MaxTokens)
	}
	if req.Params.Temperature != nil {
		chatReq.Options["temperature"] = *req.Params.Temperature
	}
	if req.Params.TopP != nil {
		chatReq.Options["top_p"] = *req.Params.TopP
	}
	if req.Params.TopK != nil {
		chatReq.Options["top_k"] = *req.Params.TopK
	}
	if len(req.Params.StopSequences) > 0 {
		chatReq.Options["stop"] = req.Params.StopSequences
	}
	if req.Params.Seed != nil {
		chatReq.Options["seed"] = *req.Params.Seed
	}

	return chatReq, nil
}

// Call implements llm.Client.Call.
func (c *OllamaClient) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := c.buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}

	var chatResp api.ChatResponse
	err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, llm.NewProviderError("ollama chat request failed", err)
	}

	content := make([]llm.ContentBlock, 0)
	if chatResp.Message.Content != "" {
		content = append(content, llm.ContentBlock{
			Type: llm.ContentBlockTypeText,
			Text: chatResp.Message.Content,
		})
	}
	for i, toolCall := range chatResp.Message.ToolCalls {
		content = append(content, llm.ContentBlock{
			Type:    llm.ContentBlockTypeToolUse,
			ToolUse: FromOllamaToolCall(toolCall, i),
		})
	}

	usage := &llm.Usage{
		InputTokens:  int64(chatResp.PromptEvalCount),
		OutputTokens: int64(chatResp.EvalCount),
	}

	return &llm.Response{
		Provider:     llm.ProviderOllama,
		Model:        chatReq.Model,
		Content:      content,
		Usage:        usage,
		FinishReason: fromDoneReason(chatResp.DoneReason, len(chatResp.Message.ToolCalls) > 0),
		Raw:          &chatResp,
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *OllamaClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := c.buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}

	return newOllamaStream(ctx, c.client.Chat, chatReq), nil
}

var _ llm.Client = (*OllamaClient)(nil)

package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aschepis/switchboard/llm"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI API errors don't directly expose retry-after headers.
// We'll use a default retry after duration for rate limits.
const defaultRetryAfter = 60 * time.Second

// OpenAIClient implements the llm.Client interface for OpenAI's API and
// OpenAI-compatible endpoints.
type OpenAIClient struct {
	client *openai.Client
	logger zerolog.Logger
}

// NewOpenAIClient creates a new OpenAIClient.
// If baseURL is empty, the official OpenAI endpoint is used.
func NewOpenAIClient(apiKey, baseURL, organization string, logger zerolog.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if organization != "" {
		config.OrgID = organization
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		logger: logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// buildChatRequest translates a neutral request into OpenAI wire arguments:
// common parameters renamed onto their wire fields, the system prompt
// relocated into a leading system-role message, JSON mode and forced tool
// choice applied.
func buildChatRequest(req *llm.Request, stream bool) (openai.ChatCompletionRequest, error) {
	if req.Model == "" {
		return openai.ChatCompletionRequest{}, llm.NewConfigurationError("model is required", nil)
	}

	messages := req.Messages
	if req.JSONMode {
		messages = llm.WithJSONInstruction(messages, nil)
	}

	openaiMsgs, err := ToOpenAIMessages(messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: openaiMsgs,
		Stream:   stream,
	}

	if req.System != "" {
		systemMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		}
		chatReq.Messages = append([]openai.ChatCompletionMessage{systemMsg}, openaiMsgs...)
	}

	// JSON mode suppresses tool declarations; otherwise declare tools and
	// let the model decide unless a tool call is being forced.
	switch {
	case req.JSONMode:
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	case len(req.Tools) > 0:
		openaiTools, err := ToOpenAITools(req.Tools)
		if err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("failed to convert tools: %w", err)
		}
		chatReq.Tools = openaiTools
		if req.ForceToolUse {
			chatReq.ToolChoice = "required"
		} else {
			chatReq.ToolChoice = "auto"
		}
	case req.ForceToolUse:
		return openai.ChatCompletionRequest{}, llm.NewConfigurationError("forced tool use requires at least one tool", nil)
	}

	if req.Params.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.Params.MaxTokens)
	}
	if req.Params.Temperature != nil {
		chatReq.Temperature = float32(*req.Params.Temperature)
	}
	if req.Params.TopP != nil {
		chatReq.TopP = float32(*req.Params.TopP)
	}
	if len(req.Params.StopSequences) > 0 {
		chatReq.Stop = req.Params.StopSequences
	}
	if req.Params.Seed != nil {
		chatReq.Seed = req.Params.Seed
	}

	if stream {
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	return chatReq, nil
}

// Call implements llm.Client.Call.
func (c *OpenAIClient) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, llm.NewProviderError("no choices in response", nil)
	}

	choice := chatResp.Choices[0]
	content := make([]llm.ContentBlock, 0)

	if choice.Message.Content != "" {
		content = append(content, llm.ContentBlock{
			Type: llm.ContentBlockTypeText,
			Text: choice.Message.Content,
		})
	}

	for _, toolCall := range choice.Message.ToolCalls {
		toolUseBlock, err := FromOpenAIToolCall(toolCall)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tool call: %w", err)
		}
		content = append(content, llm.ContentBlock{
			Type:    llm.ContentBlockTypeToolUse,
			ToolUse: toolUseBlock,
		})
	}

	return &llm.Response{
		Provider:     llm.ProviderOpenAI,
		Model:        chatResp.Model,
		Content:      content,
		Usage:        fromUsage(chatResp.Usage),
		FinishReason: fromFinishReason(choice.FinishReason),
		Raw:          chatResp,
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *OpenAIClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	chatReq, err := buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}

	return newOpenAIStream(ctx, stream), nil
}

// convertOpenAIError converts OpenAI API errors to llm.Error types.
func convertOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return llm.NewProviderError("OpenAI API error", err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		return llm.NewRateLimitError(
			fmt.Sprintf("OpenAI rate limit: %s", apiErr.Message),
			&retryAfter,
			err,
		)
	case http.StatusRequestEntityTooLarge:
		return llm.NewRequestTooLargeError(
			fmt.Sprintf("OpenAI request too large: %s", apiErr.Message),
			err,
		)
	case http.StatusBadRequest:
		return &llm.Error{
			Type:        llm.ErrorTypeInvalidRequest,
			Message:     fmt.Sprintf("OpenAI invalid request: %s", apiErr.Message),
			Retryable:   false,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &llm.Error{
			Type:        llm.ErrorTypeProvider,
			Message:     fmt.Sprintf("OpenAI server error: %s", apiErr.Message),
			Retryable:   true,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	default:
		return &llm.Error{
			Type:        llm.ErrorTypeProvider,
			Message:     fmt.Sprintf("OpenAI API error: %s", apiErr.Message),
			Retryable:   false,
			StatusCode:  apiErr.HTTPStatusCode,
			ProviderErr: err,
		}
	}
}

var _ llm.Client = (*OpenAIClient)(nil)

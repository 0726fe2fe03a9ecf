package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aschepis/switchboard/llm"
	"github.com/rs/zerolog"
)

// AnthropicClient implements the llm.Client interface for Anthropic's API.
type AnthropicClient struct {
	client *anthropic.Client
	logger zerolog.Logger
}

// NewAnthropicClient creates a new AnthropicClient with the given API key.
func NewAnthropicClient(apiKey string, logger zerolog.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		client: &client,
		logger: logger.With().Str("component", "anthropic_client").Logger(),
	}, nil
}

// defaultMaxTokens is Anthropic's required max_tokens when the caller gives none.
const defaultMaxTokens = 4096

// buildMessageParams translates a neutral request into Anthropic wire
// arguments: the system prompt relocated into the System slot (with prompt
// caching enabled), common parameters renamed, JSON mode and forced tool
// choice applied.
func buildMessageParams(req *llm.Request) (anthropic.MessageNewParams, error) {
	if req.Model == "" {
		return anthropic.MessageNewParams{}, llm.NewConfigurationError("model is required", nil)
	}

	messages := req.Messages
	if req.JSONMode {
		// Anthropic has no native JSON response flag; the appended
		// instruction is the whole mechanism.
		messages = llm.WithJSONInstruction(messages, nil)
	}

	anthropicMsgs, err := ToMessageParams(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  anthropicMsgs,
	}

	if req.System != "" {
		params.System = buildSystemBlocks(req.System)
	}

	if len(req.Tools) > 0 && !req.JSONMode {
		params.Tools = ToToolUnionParams(req.Tools)
		if req.ForceToolUse {
			if len(req.Tools) == 1 {
				params.ToolChoice = anthropic.ToolChoiceUnionParam{
					OfTool: &anthropic.ToolChoiceToolParam{Name: req.Tools[0].Name},
				}
			} else {
				params.ToolChoice = anthropic.ToolChoiceUnionParam{
					OfAny: &anthropic.ToolChoiceAnyParam{},
				}
			}
		}
	} else if req.ForceToolUse && !req.JSONMode {
		return anthropic.MessageNewParams{}, llm.NewConfigurationError("forced tool use requires at least one tool", nil)
	}

	if req.Params.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Params.Temperature)
	}
	if req.Params.TopP != nil {
		params.TopP = anthropic.Float(*req.Params.TopP)
	}
	if req.Params.TopK != nil {
		params.TopK = anthropic.Int(int64(*req.Params.TopK))
	}
	if len(req.Params.StopSequences) > 0 {
		params.StopSequences = req.Params.StopSequences
	}

	return params, nil
}

// Call implements llm.Client.Call.
func (c *AnthropicClient) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	params, err := buildMessageParams(req)
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertAnthropicError(err)
	}

	usage := &llm.Usage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}
	c.logCacheStats(usage)

	return &llm.Response{
		Provider:     llm.ProviderAnthropic,
		Model:        req.Model,
		Content:      FromContentBlocks(message.Content),
		Usage:        usage,
		FinishReason: fromStopReason(message.StopReason),
		Raw:          message,
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *AnthropicClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	params, err := buildMessageParams(req)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	return newAnthropicStream(ctx, stream, c.logger), nil
}

// logCacheStats logs prompt cache information for tracking efficacy.
func (c *AnthropicClient) logCacheStats(usage *llm.Usage) {
	if usage.CacheCreationInputTokens == 0 && usage.CacheReadInputTokens == 0 {
		return
	}
	cacheEfficiency := float64(0)
	if usage.InputTokens > 0 {
		cacheEfficiency = float64(usage.CacheReadInputTokens) / float64(usage.InputTokens) * 100
	}
	c.logger.Debug().
		Int64("input_tokens", usage.InputTokens).
		Int64("cache_creation_tokens", usage.CacheCreationInputTokens).
		Int64("cache_read_tokens", usage.CacheReadInputTokens).
		Float64("cache_efficiency", cacheEfficiency).
		Msg("Prompt cache stats")
}

// buildSystemBlocks creates system text blocks with prompt caching enabled.
// Placing cache_control on the system block caches the full prefix: tools,
// system, and messages up to and including the designated block.
func buildSystemBlocks(systemPrompt string) []anthropic.TextBlockParam {
	return []anthropic.TextBlockParam{
		{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
	}
}

// convertAnthropicError converts Anthropic API errors to llm.Error types.
func convertAnthropicError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return llm.NewProviderError("Anthropic API error", err)
	}

	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		retryAfter := 60 * time.Second
		return llm.NewRateLimitError("Anthropic rate limit", &retryAfter, err)
	case http.StatusRequestEntityTooLarge:
		return llm.NewRequestTooLargeError("Anthropic request too large", err)
	case http.StatusBadRequest:
		return &llm.Error{
			Type:        llm.ErrorTypeInvalidRequest,
			Message:     "Anthropic invalid request",
			Retryable:   false,
			StatusCode:  apiErr.StatusCode,
			ProviderErr: err,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, 529:
		return &llm.Error{
			Type:        llm.ErrorTypeProvider,
			Message:     "Anthropic server error",
			Retryable:   true,
			StatusCode:  apiErr.StatusCode,
			ProviderErr: err,
		}
	default:
		return &llm.Error{
			Type:        llm.ErrorTypeProvider,
			Message:     "Anthropic API error",
			Retryable:   false,
			StatusCode:  apiErr.StatusCode,
			ProviderErr: err,
		}
	}
}

var _ llm.Client = (*AnthropicClient)(nil)

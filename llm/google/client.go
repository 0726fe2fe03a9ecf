package google

import (
	"context"
	"fmt"

	"github.com/aschepis/switchboard/llm"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GoogleClient implements the llm.Client interface for the Gemini API.
type GoogleClient struct {
	client *genai.Client
	logger zerolog.Logger
}

// NewGoogleClient creates a new GoogleClient with the given API key.
func NewGoogleClient(ctx context.Context, apiKey string, logger zerolog.Logger) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GoogleClient{
		client: client,
		logger: logger.With().Str("component", "google_client").Logger(),
	}, nil
}

// buildGenerateConfig translates neutral request parameters into a Gemini
// generation config. The system prompt moves into SystemInstruction, JSON
// mode becomes a response MIME type and suppresses tools, and forced tool
// use becomes a function calling mode of ANY.
func buildGenerateConfig(req *llm.Request) (*genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{}

	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	if req.Params.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Params.Temperature))
	}
	if req.Params.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*req.Params.TopP))
	}
	if req.Params.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*req.Params.TopK))
	}
	if req.Params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Params.MaxTokens)
	}
	if len(req.Params.StopSequences) > 0 {
		cfg.StopSequences = req.Params.StopSequences
	}
	if req.Params.Seed != nil {
		cfg.Seed = genai.Ptr(int32(*req.Params.Seed))
	}

	if req.JSONMode {
		// Gemini has native JSON output; tools cannot be combined with it
		cfg.ResponseMIMEType = "application/json"
		return cfg, nil
	}

	if len(req.Tools) > 0 {
		cfg.Tools = ToTools(req.Tools)
		if req.ForceToolUse {
			cfg.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode: genai.FunctionCallingConfigModeAny,
				},
			}
		}
	} else if req.ForceToolUse {
		return nil, llm.NewConfigurationError("forced tool use requires at least one tool", nil)
	}

	return cfg, nil
}

// buildContents converts neutral messages to Gemini contents. In JSON mode
// the formatting instruction is appended to the last user message first, the
// same as the other providers, so the behavior stays portable even though
// Gemini also honors the response MIME type.
func buildContents(req *llm.Request) ([]*genai.Content, error) {
	messages := req.Messages
	if req.JSONMode {
		messages = llm.WithJSONInstruction(messages, nil)
	}
	return ToContents(messages)
}

// Call implements llm.Client.Call.
func (c *GoogleClient) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if req.Model == "" {
		return nil, llm.NewConfigurationError("model is required", nil)
	}

	cfg, err := buildGenerateConfig(req)
	if err != nil {
		return nil, err
	}

	contents, err := buildContents(req)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	res, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, llm.NewProviderError("Gemini API error", err)
	}
	if len(res.Candidates) == 0 {
		return nil, llm.NewProviderError("Gemini returned no candidates", nil)
	}

	candidate := res.Candidates[0]
	content := FromCandidate(candidate)
	hasToolUse := len(res.FunctionCalls()) > 0

	return &llm.Response{
		Provider:     llm.ProviderGoogle,
		Model:        req.Model,
		Content:      content,
		Usage:        fromUsageMetadata(res.UsageMetadata),
		FinishReason: fromFinishReason(candidate.FinishReason, hasToolUse),
		Raw:          res,
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *GoogleClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if req.Model == "" {
		return nil, llm.NewConfigurationError("model is required", nil)
	}

	cfg, err := buildGenerateConfig(req)
	if err != nil {
		return nil, err
	}

	contents, err := buildContents(req)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	seq := c.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg)
	return newGoogleStream(ctx, seq, c.logger), nil
}

var _ llm.Client = (*GoogleClient)(nil)

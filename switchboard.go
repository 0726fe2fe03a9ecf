// Package switchboard wires provider-neutral LLM calls to concrete provider
// clients. The llm package defines the request, response, and stream model;
// the provider subpackages implement it; this package constructs clients
// from resolved configuration and offers the top-level call surface.
package switchboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/aschepis/switchboard/config"
	"github.com/aschepis/switchboard/llm"
	llmanthropic "github.com/aschepis/switchboard/llm/anthropic"
	llmgoogle "github.com/aschepis/switchboard/llm/google"
	llmollama "github.com/aschepis/switchboard/llm/ollama"
	llmopenai "github.com/aschepis/switchboard/llm/openai"
	"github.com/rs/zerolog"
)

// NewClient constructs a provider client for a resolved client key.
func NewClient(ctx context.Context, key *llm.ClientKey, logger zerolog.Logger) (llm.Client, error) {
	if key == nil {
		return nil, fmt.Errorf("client key is required")
	}

	switch key.Provider {
	case llm.ProviderAnthropic:
		return llmanthropic.NewAnthropicClient(key.APIKey, logger)
	case llm.ProviderGoogle:
		return llmgoogle.NewGoogleClient(ctx, key.APIKey, logger)
	case llm.ProviderOllama:
		return llmollama.NewOllamaClient(key.Host, key.Model, logger)
	case llm.ProviderOpenAI:
		return llmopenai.NewOpenAIClient(key.APIKey, key.BaseURL, key.Organization, logger)
	default:
		return nil, fmt.Errorf("unknown provider: %s", key.Provider)
	}
}

// Switchboard resolves provider preferences to clients and caches the
// clients it builds, keyed by provider and model.
type Switchboard struct {
	registry *llm.ProviderRegistry
	logger   zerolog.Logger
	clients  map[string]llm.Client
	mu       sync.RWMutex
}

// New creates a Switchboard from configuration.
func New(cfg *config.Config, logger zerolog.Logger) *Switchboard {
	return &Switchboard{
		registry: cfg.Registry(),
		logger:   logger,
		clients:  make(map[string]llm.Client),
	}
}

// Client returns a client for the first available provider in the
// preference list. An empty list selects the first configured provider.
func (s *Switchboard) Client(ctx context.Context, prefs ...llm.Preference) (llm.Client, *llm.ClientKey, error) {
	key, err := s.registry.Resolve(prefs)
	if err != nil {
		return nil, nil, err
	}

	cacheKey := key.Provider + "/" + key.Model
	s.mu.RLock()
	client, ok := s.clients[cacheKey]
	s.mu.RUnlock()
	if ok {
		return client, key, nil
	}

	client, err = NewClient(ctx, key, s.logger)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	if cached, ok := s.clients[cacheKey]; ok {
		// Another goroutine built the client first; keep its copy
		s.mu.Unlock()
		return cached, key, nil
	}
	s.clients[cacheKey] = client
	s.mu.Unlock()

	s.logger.Debug().
		Str("provider", key.Provider).
		Str("model", key.Model).
		Msg("Constructed provider client")
	return client, key, nil
}

// Call resolves a provider and runs a call through it. Options that leave
// Provider or Model empty pick them up from the resolved key.
func (s *Switchboard) Call(ctx context.Context, opts llm.CallOptions, prompt llm.PromptFunc) (*llm.Response, error) {
	client, _, err := s.resolveFor(ctx, &opts)
	if err != nil {
		return nil, err
	}
	return llm.Call(ctx, client, opts, prompt)
}

// Stream resolves a provider and opens a stream through it. The resolved
// key is returned so callers can attribute the stream to a provider and
// model, which the options may have left blank.
func (s *Switchboard) Stream(ctx context.Context, opts llm.CallOptions, prompt llm.PromptFunc) (llm.Stream, *llm.ClientKey, error) {
	client, key, err := s.resolveFor(ctx, &opts)
	if err != nil {
		return nil, nil, err
	}
	stream, err := llm.CallStream(ctx, client, opts, prompt)
	if err != nil {
		return nil, nil, err
	}
	return stream, key, nil
}

func (s *Switchboard) resolveFor(ctx context.Context, opts *llm.CallOptions) (llm.Client, *llm.ClientKey, error) {
	var prefs []llm.Preference
	if opts.Provider != "" {
		prefs = append(prefs, llm.Preference{Provider: opts.Provider, Model: opts.Model})
	}

	client, key, err := s.Client(ctx, prefs...)
	if err != nil {
		return nil, nil, err
	}

	if opts.Provider == "" {
		opts.Provider = key.Provider
	}
	if opts.Model == "" {
		opts.Model = key.Model
	}
	return client, key, nil
}

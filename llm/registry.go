package llm

import (
	"fmt"
	"os"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Preference represents a single provider/model preference.
type Preference struct {
	Provider    string
	Model       string
	Temperature *float64
}

// ClientKey uniquely identifies an LLM client configuration. Client
// construction lives outside this package (the root package wires keys to
// provider implementations) to avoid import cycles.
type ClientKey struct {
	Provider     string
	Model        string
	APIKey       string // For credential-based providers
	Host         string // For Ollama
	BaseURL      string // For OpenAI-compatible endpoints
	Organization string // For OpenAI
}

// ProviderConfig holds the credentials and defaults needed for provider
// selection.
type ProviderConfig struct {
	AnthropicAPIKey string
	GoogleAPIKey    string
	OllamaHost      string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIOrg       string
}

// ProviderRegistry manages provider selection and configuration resolution.
type ProviderRegistry struct {
	enabledProviders map[string]bool
	mu               sync.RWMutex
	config           *ProviderConfig
}

// NewProviderRegistry creates a new ProviderRegistry with the given config and enabled providers.
func NewProviderRegistry(providerConfig *ProviderConfig, enabledProviders []string) *ProviderRegistry {
	enabledMap := make(map[string]bool)
	for _, p := range enabledProviders {
		enabledMap[p] = true
	}

	return &ProviderRegistry{
		enabledProviders: enabledMap,
		config:           providerConfig,
	}
}

// IsProviderEnabled checks if a provider is in the enabled providers list.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabledProviders[provider]
}

// IsProviderConfigured checks if a provider has the required configuration
// (API keys, hosts, etc.), falling back to environment variables.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isProviderConfiguredUnlocked(provider)
}

// Resolve returns a ClientKey for the first available provider from the
// preference list. With no preferences it falls back to the first enabled,
// configured provider and that provider's default model.
func (r *ProviderRegistry) Resolve(prefs []Preference) (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(prefs) > 0 {
		var attempted []string
		for _, pref := range prefs {
			attempted = append(attempted, pref.Provider)

			if !r.enabledProviders[pref.Provider] {
				continue
			}
			if !r.isProviderConfiguredUnlocked(pref.Provider) {
				continue
			}

			key, err := r.resolveProviderConfig(pref.Provider, pref.Model)
			if err != nil {
				continue
			}
			return key, nil
		}
		return nil, fmt.Errorf("no available provider from preferences %v (enabled: %v)", attempted, r.enabledList())
	}

	for _, provider := range []string{ProviderAnthropic, ProviderGoogle, ProviderOllama, ProviderOpenAI} {
		if !r.enabledProviders[provider] || !r.isProviderConfiguredUnlocked(provider) {
			continue
		}
		key, err := r.resolveProviderConfig(provider, "")
		if err != nil {
			continue
		}
		return key, nil
	}

	return nil, fmt.Errorf("no enabled provider is configured (enabled: %v)", r.enabledList())
}

// isProviderConfiguredUnlocked must be called with r.mu held.
func (r *ProviderRegistry) isProviderConfiguredUnlocked(provider string) bool {
	switch provider {
	case ProviderAnthropic:
		return r.config.AnthropicAPIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != ""
	case ProviderGoogle:
		return r.config.GoogleAPIKey != "" || os.Getenv("GOOGLE_API_KEY") != ""
	case ProviderOllama:
		// Ollama needs no credentials, just a host with a sane default
		return true
	case ProviderOpenAI:
		return r.config.OpenAIAPIKey != "" || os.Getenv("OPENAI_API_KEY") != ""
	default:
		return false
	}
}

// resolveProviderConfig resolves provider-specific configuration and returns a ClientKey.
func (r *ProviderRegistry) resolveProviderConfig(provider, modelOverride string) (*ClientKey, error) {
	key := &ClientKey{
		Provider: provider,
		Model:    modelOverride,
	}

	switch provider {
	case ProviderAnthropic:
		apiKey := r.config.AnthropicAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key not configured")
		}
		key.APIKey = apiKey
		if key.Model == "" {
			key.Model = "claude-3-5-haiku"
		}

	case ProviderGoogle:
		apiKey := r.config.GoogleAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("google API key not configured")
		}
		key.APIKey = apiKey
		if key.Model == "" {
			key.Model = "gemini-2.0-flash"
		}

	case ProviderOllama:
		host := r.config.OllamaHost
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		key.Host = host

		if key.Model == "" {
			key.Model = r.config.OllamaModel
		}
		if key.Model == "" {
			key.Model = os.Getenv("OLLAMA_MODEL")
		}
		if key.Model == "" {
			return nil, fmt.Errorf("ollama model not specified and no default configured")
		}

	case ProviderOpenAI:
		apiKey := r.config.OpenAIAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		key.APIKey = apiKey

		baseURL := r.config.OpenAIBaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OPENAI_BASE_URL")
		}
		key.BaseURL = baseURL

		org := r.config.OpenAIOrg
		if org == "" {
			org = os.Getenv("OPENAI_ORG_ID")
		}
		key.Organization = org

		if key.Model == "" {
			key.Model = r.config.OpenAIModel
		}
		if key.Model == "" {
			key.Model = os.Getenv("OPENAI_MODEL")
		}
		if key.Model == "" {
			key.Model = "gpt-4o-mini"
		}

	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return key, nil
}

// enabledList returns enabled providers for error messages.
func (r *ProviderRegistry) enabledList() []string {
	var providers []string
	for p := range r.enabledProviders {
		providers = append(providers, p)
	}
	return providers
}

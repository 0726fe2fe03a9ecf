// Package config loads provider credentials and call defaults from YAML,
// with environment variables filling any gaps.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/aschepis/switchboard/llm"
	"gopkg.in/yaml.v3"
)

// AnthropicConfig represents configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // Anthropic API key
}

// GoogleConfig represents configuration for the Gemini provider.
type GoogleConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // Google API key
}

// OllamaConfig represents configuration for the Ollama provider.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"`  // Ollama host (default: "http://localhost:11434")
	Model string `yaml:"model,omitempty"` // Default model name
}

// OpenAIConfig represents configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Model        string `yaml:"model,omitempty"`        // Default model name
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// Preference represents a single provider/model preference. Callers list
// preferences in order and the first available provider wins.
type Preference struct {
	Provider    string   `yaml:"provider"`              // "anthropic", "google", "ollama", or "openai"
	Model       string   `yaml:"model,omitempty"`       // Optional: uses provider default if omitted
	Temperature *float64 `yaml:"temperature,omitempty"` // Optional temperature override
}

// Config is the top-level configuration.
type Config struct {
	// Providers lists the enabled providers in preference order. An empty
	// list enables every provider that has credentials.
	Providers []string `yaml:"providers,omitempty"`

	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Google    GoogleConfig    `yaml:"google,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`

	// Preferences orders provider/model choices for calls that do not pin
	// a provider themselves.
	Preferences []Preference `yaml:"preferences,omitempty"`

	// LogLevel controls log verbosity: trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the built-in configuration. User files merge over it.
func Default() *Config {
	return &Config{
		Providers: []string{
			llm.ProviderAnthropic,
			llm.ProviderGoogle,
			llm.ProviderOllama,
			llm.ProviderOpenAI,
		},
		Ollama: OllamaConfig{
			Host: "http://localhost:11434",
		},
		LogLevel: "info",
	}
}

// GetConfigPath returns the default config file path.
// Can be overridden via SWITCHBOARD_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("SWITCHBOARD_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.switchboard/config.yaml"
	}
	return filepath.Join(homeDir, ".switchboard", "config.yaml")
}

// Load reads the config file at path and merges it over the defaults. A
// missing file is not an error; the defaults plus environment variables are
// a complete configuration on their own.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ProviderConfig converts the file configuration into the provider
// credential set the registry consumes. Environment fallbacks are applied
// by the registry itself, not here.
func (c *Config) ProviderConfig() *llm.ProviderConfig {
	return &llm.ProviderConfig{
		AnthropicAPIKey: c.Anthropic.APIKey,
		GoogleAPIKey:    c.Google.APIKey,
		OllamaHost:      c.Ollama.Host,
		OllamaModel:     c.Ollama.Model,
		OpenAIAPIKey:    c.OpenAI.APIKey,
		OpenAIBaseURL:   c.OpenAI.BaseURL,
		OpenAIModel:     c.OpenAI.Model,
		OpenAIOrg:       c.OpenAI.Organization,
	}
}

// Registry builds a provider registry from the configuration.
func (c *Config) Registry() *llm.ProviderRegistry {
	return llm.NewProviderRegistry(c.ProviderConfig(), c.Providers)
}

// RegistryPreferences converts config preferences into registry preferences.
func (c *Config) RegistryPreferences() []llm.Preference {
	prefs := make([]llm.Preference, 0, len(c.Preferences))
	for _, p := range c.Preferences {
		prefs = append(prefs, llm.Preference{
			Provider:    p.Provider,
			Model:       p.Model,
			Temperature: p.Temperature,
		})
	}
	return prefs
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// Backend is a remote text-completion service used for axis scoring
type Backend interface {
	// Name returns the provider name
	Name() string

	// Configured reports whether the backend holds a usable credential.
	// An unconfigured backend must not be called.
	Configured() bool

	// Complete sends one prompt and returns the raw completion text
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Prompt is a single system+user exchange
type Prompt struct {
	System      string
	User        string
	Model       string // overrides the configured model when set
	MaxTokens   int
	Temperature float64
}

// Config holds LLM backend configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	MaxTokens   int
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the scoring defaults: small, low-temperature completions
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Timeout:     30,
		MaxTokens:   250,
		Temperature: 0.2,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(m model.LLMConfig, fetch model.FetchConfig) Config {
	return Config{
		Provider:    m.Provider,
		Model:       m.Model,
		APIKey:      m.APIKey,
		BaseURL:     m.BaseURL,
		Timeout:     m.Timeout,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		HTTPProxy:   fetch.HTTPProxy,
		HTTPSProxy:  fetch.HTTPSProxy,
		NoProxy:     fetch.NoProxy,
	}
}

// NewBackend creates a backend based on configuration. An empty provider
// returns nil (remote scoring disabled).
func NewBackend(config Config) (Backend, error) {
	switch normalizeProvider(config.Provider) {
	case "openai":
		return NewOpenAIBackend(config), nil

	case "anthropic":
		return NewAnthropicBackend(config), nil

	case "ollama":
		return NewOllamaBackend(config), nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ValidCredential reports whether key has the format the provider expects.
// Ollama needs no key.
func ValidCredential(provider, key string) bool {
	key = strings.TrimSpace(key)
	switch normalizeProvider(provider) {
	case "openai":
		return strings.HasPrefix(key, "sk-")
	case "anthropic":
		return strings.HasPrefix(key, "sk-ant-")
	case "ollama":
		return true
	default:
		return false
	}
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "claude" {
		return "anthropic"
	}
	return p
}

func (c Config) maxTokens(p Prompt) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 250
}

func (c Config) model(p Prompt, fallback string) string {
	if p.Model != "" {
		return p.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func (c Config) temperature(p Prompt) float64 {
	if p.Temperature > 0 {
		return p.Temperature
	}
	return c.Temperature
}

package llm

import (
	"fmt"
	"time"
)

// FactoryConfig holds the parameters needed to create a Generator or an
// Embedder. This is defined in the llm package to avoid importing the
// config package, keeping the llm package free of infrastructure
// dependencies.
type FactoryConfig struct {
	// Provider is the LLM provider name ("openai" or "anthropic").
	Provider string
	// EmbeddingProvider is the embedding provider name. Only "openai"
	// (or any OpenAI-compatible endpoint) supports embeddings.
	EmbeddingProvider string
	// Temperature is the LLM temperature setting.
	Temperature float64
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig
}

// NewGenerator creates a Generator based on the configuration.
// Supports "openai" and "anthropic" providers. Returns an error for
// unsupported or empty provider values.
func NewGenerator(cfg FactoryConfig) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewEmbedder creates an Embedder based on the configuration.
// Only OpenAI-compatible endpoints are supported; an empty
// EmbeddingProvider falls back to Provider.
func NewEmbedder(cfg FactoryConfig) (Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	switch provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAI, cfg.Timeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", provider)
	}
}

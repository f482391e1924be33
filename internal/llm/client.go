// Package llm provides the generation and embedding collaborators for the
// literature review pipeline.
//
// The pipeline treats both as black boxes: a Generator turns a prompt into
// text, an Embedder turns texts into fixed-length vectors. Providers
// (OpenAI-compatible, Anthropic) implement the interfaces over plain HTTP
// with retry on transient errors. Per-stage timeouts are supplied by the
// caller through the request context.
package llm

import (
	"context"
	"errors"
)

// GenerateRequest contains parameters for a single generation call.
type GenerateRequest struct {
	// Prompt is the full prompt text.
	Prompt string

	// UseReasoningModel selects the provider's reasoning model instead of
	// the default chat model. Long synthesis stages use this.
	UseReasoningModel bool

	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int
}

// Generator produces text from a prompt. Implementations are safe for
// concurrent use.
type Generator interface {
	// Generate returns the model's text response for the prompt.
	// The context carries the caller's per-stage timeout.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Provider returns the name of the LLM provider.
	Provider() string

	// Model returns the default model identifier being used.
	Model() string
}

// Embedder produces fixed-length vectors for texts. Implementations are
// safe for concurrent use.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Provider returns the name of the embedding provider.
	Provider() string
}

// isTransientError returns true if the error may succeed on retry.
func isTransientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}

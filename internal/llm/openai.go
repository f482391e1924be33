package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIModel          = "gpt-4o"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
	defaultOpenAIMaxTokens      = 4096
	defaultOpenAIRetryDelay     = 2 * time.Second
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// embeddingRequest represents the OpenAI Embeddings API request body.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse represents the OpenAI Embeddings API response body.
type embeddingResponse struct {
	Data []embeddingDatum `json:"data"`
}

// embeddingDatum is one vector in an embeddings response.
type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIConfig holds the parameters needed to create an OpenAI provider.
// This is defined in the llm package to avoid importing the config package.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the default chat model identifier.
	Model string
	// ReasoningModel is the model used when UseReasoningModel is set.
	// Empty means the default model serves both roles.
	ReasoningModel string
	// EmbeddingModel is the model used for embeddings.
	EmbeddingModel string
	// BaseURL is the API base URL (empty means default). Any
	// OpenAI-compatible endpoint works.
	BaseURL string
}

// OpenAIProvider implements Generator using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	httpClient     *http.Client
	apiKey         string
	model          string
	reasoningModel string
	baseURL        string
	temperature    float64
	maxRetries     int
	retryDelay     time.Duration
}

// NewOpenAIProvider creates a new OpenAI generation provider.
// Transient API errors (5xx, 429) are retried up to maxRetries times.
func NewOpenAIProvider(cfg OpenAIConfig, temperature float64, timeout time.Duration, maxRetries int) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	reasoningModel := cfg.ReasoningModel
	if reasoningModel == "" {
		reasoningModel = model
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OpenAIProvider{
		httpClient:     newProviderHTTPClient(timeout),
		apiKey:         cfg.APIKey,
		model:          model,
		reasoningModel: reasoningModel,
		baseURL:        baseURL,
		temperature:    temperature,
		maxRetries:     maxRetries,
		retryDelay:     defaultOpenAIRetryDelay,
	}
}

// Generate returns the model's text response for the prompt.
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := p.model
	if req.UseReasoningModel {
		model = p.reasoningModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultOpenAIMaxTokens
	}

	chatReq := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: p.temperature,
		MaxTokens:   maxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := p.doChatRequest(ctx, chatReq)
		if err == nil {
			return text, nil
		}
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// Provider returns the name of the LLM provider.
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Model returns the default model identifier being used.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// doChatRequest performs a single API request to the Chat Completions endpoint.
func (p *OpenAIProvider) doChatRequest(ctx context.Context, chatReq chatRequest) (string, error) {
	respBody, status, err := postJSON(ctx, p.httpClient, p.baseURL+"/chat/completions", p.authHeader(), chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	if status != http.StatusOK {
		return "", parseOpenAIAPIError(status, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) authHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+p.apiKey)
	return h
}

// OpenAIEmbedder implements Embedder using the OpenAI Embeddings API.
type OpenAIEmbedder struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIEmbedder creates a new OpenAI embedding provider.
func NewOpenAIEmbedder(cfg OpenAIConfig, timeout time.Duration, maxRetries int) *OpenAIEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = defaultOpenAIEmbeddingModel
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OpenAIEmbedder{
		httpClient: newProviderHTTPClient(timeout),
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		maxRetries: maxRetries,
		retryDelay: defaultOpenAIRetryDelay,
	}
}

// Embed returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embReq := embeddingRequest{Model: e.model, Input: texts}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		vectors, err := e.doEmbedRequest(ctx, embReq)
		if err == nil {
			return vectors, nil
		}
		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("openai: exhausted %d retries: %w", e.maxRetries, lastErr)
}

// Provider returns the name of the embedding provider.
func (e *OpenAIEmbedder) Provider() string {
	return "openai"
}

// doEmbedRequest performs a single API request to the Embeddings endpoint.
func (e *OpenAIEmbedder) doEmbedRequest(ctx context.Context, embReq embeddingRequest) ([][]float32, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+e.apiKey)

	respBody, status, err := postJSON(ctx, e.httpClient, e.baseURL+"/embeddings", h, embReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, parseOpenAIAPIError(status, respBody)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}
	if len(embResp.Data) != len(embReq.Input) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(embReq.Input), len(embResp.Data))
	}

	// The API is not guaranteed to preserve input order; use the index field.
	vectors := make([][]float32, len(embResp.Data))
	for _, datum := range embResp.Data {
		if datum.Index < 0 || datum.Index >= len(vectors) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", datum.Index)
		}
		vectors[datum.Index] = datum.Embedding
	}
	return vectors, nil
}

// newProviderHTTPClient builds the shared HTTP client shape used by all providers.
func newProviderHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// postJSON marshals body, POSTs it, and returns the response body and status.
func postJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, body interface{}) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = header

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}

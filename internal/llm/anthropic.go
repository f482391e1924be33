package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// anthropicAPIVersion is the Anthropic API version header value.
	anthropicAPIVersion = "2023-06-01"

	// defaultAnthropicBaseURL is the default Anthropic API base URL.
	defaultAnthropicBaseURL = "https://api.anthropic.com"

	// defaultAnthropicMaxTokens is the default max tokens for the Messages API response.
	defaultAnthropicMaxTokens = 4096
)

// messagesRequest is the request body for the Anthropic Messages API.
type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

// anthropicMessage represents a single message in the Anthropic Messages API.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// contentBlock represents a content block in the Anthropic Messages API response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// messagesResponse is the response body from the Anthropic Messages API.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
}

// anthropicAPIErrorDetail represents the nested error object in an Anthropic API error response.
type anthropicAPIErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicErrorResponse wraps the error payload from the Anthropic API.
type anthropicErrorResponse struct {
	Type  string                  `json:"type"`
	Error anthropicAPIErrorDetail `json:"error"`
}

// AnthropicConfig holds the parameters needed to create an Anthropic provider.
// This is defined in the llm package to avoid importing the config package.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string
	// Model is the default model identifier.
	Model string
	// ReasoningModel is the model used when UseReasoningModel is set.
	ReasoningModel string
	// BaseURL is the API base URL.
	BaseURL string
}

// AnthropicProvider implements Generator using the Anthropic Messages API.
type AnthropicProvider struct {
	httpClient     *http.Client
	apiKey         string
	model          string
	reasoningModel string
	baseURL        string
	temperature    float64
	maxRetries     int
	retryDelay     time.Duration
}

// NewAnthropicProvider creates a new AnthropicProvider with the given configuration.
// Transient HTTP errors (status 429 and 5xx) are retried up to maxRetries times.
func NewAnthropicProvider(cfg AnthropicConfig, temperature float64, timeout time.Duration, maxRetries int) *AnthropicProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	reasoningModel := cfg.ReasoningModel
	if reasoningModel == "" {
		reasoningModel = cfg.Model
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &AnthropicProvider{
		httpClient:     newProviderHTTPClient(timeout),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		reasoningModel: reasoningModel,
		baseURL:        baseURL,
		temperature:    temperature,
		maxRetries:     maxRetries,
		retryDelay:     time.Second,
	}
}

// Generate returns the model's text response for the prompt.
func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := p.model
	if req.UseReasoningModel {
		model = p.reasoningModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	apiReq := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: p.temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("anthropic: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := p.doRequest(ctx, apiReq)
		if err == nil {
			return text, nil
		}
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("anthropic: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// Provider returns the name of the LLM provider.
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Model returns the default model identifier being used.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// doRequest performs a single API request to the Messages endpoint and
// concatenates the text content blocks of the response.
func (p *AnthropicProvider) doRequest(ctx context.Context, apiReq messagesRequest) (string, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("x-api-key", p.apiKey)
	h.Set("anthropic-version", anthropicAPIVersion)

	respBody, status, err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", h, apiReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	if status != http.StatusOK {
		return "", parseAnthropicAPIError(status, respBody)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return "", fmt.Errorf("anthropic: failed to unmarshal response: %w", err)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content in response")
	}
	return sb.String(), nil
}

// parseAnthropicAPIError parses an Anthropic API error from the response status code and body.
func parseAnthropicAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "anthropic",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp anthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
	}

	return apiErr
}

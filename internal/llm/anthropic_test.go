package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropicProvider(t *testing.T, baseURL string, maxRetries int) *AnthropicProvider {
	t.Helper()
	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:  "test-key",
		Model:   "claude-sonnet-4-20250514",
		BaseURL: baseURL,
	}, 0.7, 5*time.Second, maxRetries)
	p.retryDelay = time.Millisecond
	return p
}

func TestAnthropicProvider_Generate(t *testing.T) {
	t.Run("concatenates text content blocks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

			var req messagesRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "claude-sonnet-4-20250514", req.Model)
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "user", req.Messages[0].Role)

			resp := messagesResponse{
				Content: []contentBlock{
					{Type: "text", Text: "part one, "},
					{Type: "tool_use"},
					{Type: "text", Text: "part two"},
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer server.Close()

		p := newTestAnthropicProvider(t, server.URL, 0)
		text, err := p.Generate(context.Background(), GenerateRequest{Prompt: "summarize"})
		require.NoError(t, err)
		assert.Equal(t, "part one, part two", text)
	})

	t.Run("parses structured API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens required"}}`))
		}))
		defer server.Close()

		p := newTestAnthropicProvider(t, server.URL, 0)
		_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "summarize"})
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "anthropic", apiErr.Provider)
		assert.Equal(t, "max_tokens required", apiErr.Message)
		assert.Equal(t, "invalid_request_error", apiErr.Type)
	})

	t.Run("retries overloaded errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
				return
			}
			resp := messagesResponse{Content: []contentBlock{{Type: "text", Text: "done"}}}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer server.Close()

		p := newTestAnthropicProvider(t, server.URL, 2)
		text, err := p.Generate(context.Background(), GenerateRequest{Prompt: "summarize"})
		require.NoError(t, err)
		assert.Equal(t, "done", text)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("fails when response has no text blocks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(messagesResponse{}))
		}))
		defer server.Close()

		p := newTestAnthropicProvider(t, server.URL, 0)
		_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "summarize"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no text content")
	})
}

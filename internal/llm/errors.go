package llm

import (
	"fmt"
	"net/http"
)

// APIError is a failed response from an LLM provider endpoint.
type APIError struct {
	// Provider names the provider that produced the error.
	Provider string
	// StatusCode is the HTTP status of the response. Zero means the
	// request never got a response (transport failure, timeout).
	StatusCode int
	// Message is the provider's error message.
	Message string
	// Type is the provider's error type classification, when given.
	Type string
	// Code is the provider-specific error code, when given.
	Code string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited reports whether the provider rejected the request for
// quota or rate reasons.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports whether a retry of the same request may succeed:
// no response at all, rate limiting, or a server-side error.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 || e.IsRateLimited() || e.StatusCode >= 500
}

package papersources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/scholarstream/literature-review-service/internal/domain"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxAttempts is the total number of attempts per request,
	// including the first one.
	MaxAttempts int

	// RetryDelay is the base delay between retries. The delay doubles
	// per attempt, capped at RetryDelayCap.
	RetryDelay time.Duration

	// RetryDelayCap bounds the exponential backoff delay.
	RetryDelayCap time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string

	// SourceName labels errors produced by this client.
	SourceName string
}

// HTTPClient wraps http.Client with rate limiting and bounded retries.
// It is safe for concurrent use.
//
// A 429 response is never retried: rate limiting will not resolve by
// retrying the same backend, so the client returns *domain.RateLimitError
// immediately and leaves fallback substitution to the caller.
// Every other failed attempt, whether a network error, a non-2xx status
// or an undecodable payload, is retried up to MaxAttempts with capped
// exponential backoff.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RetryDelayCap == 0 {
		cfg.RetryDelayCap = 2 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ScholarStream-LiteratureService/1.0"
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "unknown"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Response body limits. Error bodies only feed error messages; success
// bodies are capped to prevent resource exhaustion.
const (
	maxErrorBodyBytes = 1 << 20
	maxResponseBytes  = 10 << 20
)

// DoJSON executes an HTTP request with rate limiting and retries and
// decodes the JSON response body into v. A non-2xx status other than
// 429 and a payload that fails to decode both count as failed attempts
// and are retried like network errors.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) DoJSON(req *http.Request, v any) error {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.waitForRetry(req.Context(), c.backoffDelay(attempt)); err != nil {
				return err
			}
			if err := c.resetRequestBody(req); err != nil {
				return fmt.Errorf("cannot retry request: %w", err)
			}
		}

		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		// Rate limiting short-circuits the retry budget entirely.
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp)
			drainAndClose(resp)
			return domain.NewRateLimitError(c.config.SourceName, retryAfter)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			drainAndClose(resp)
			lastErr = domain.NewExternalAPIError(c.config.SourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
			continue
		}

		err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(v)
		drainAndClose(resp)
		if err != nil {
			lastErr = domain.NewExternalAPIError(c.config.SourceName, resp.StatusCode, "invalid payload", err)
			continue
		}
		return nil
	}

	return fmt.Errorf("exhausted %d attempts: %w", c.config.MaxAttempts, lastErr)
}

// backoffDelay returns the delay before the given retry attempt,
// doubling the base delay per attempt and capping it.
func (c *HTTPClient) backoffDelay(attempt int) time.Duration {
	delay := c.config.RetryDelay << (attempt - 1)
	if delay > c.config.RetryDelayCap {
		delay = c.config.RetryDelayCap
	}
	return delay
}

// parseRetryAfter extracts the Retry-After header as a duration, if present.
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}

// drainAndClose consumes and closes a response body to free the connection.
func drainAndClose(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}

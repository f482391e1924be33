package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure taxonomy. Failures below a stage
// boundary (client-level, record-level) are recovered locally; only
// stage-boundary failures reach the orchestrator as events.
var (
	// ErrConfigInvalid indicates that configuration validation failed.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrCollaboratorInit indicates that an external collaborator client
	// could not be constructed. Fatal for the generation client, a
	// degrade for the embedding client.
	ErrCollaboratorInit = errors.New("collaborator initialization failed")

	// ErrRateLimited indicates that a source rate limited the request.
	// Triggers immediate fallback substitution, never surfaced to callers.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedRecord indicates a single record could not be normalized.
	// Dropped per-record, never fails a whole request.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoResults indicates that retrieval produced an empty corpus even
	// after all fallbacks. Distinct from generic failure so callers can
	// special-case "nothing to review".
	ErrNoResults = errors.New("no results found")

	// ErrStageTimeout indicates a single pipeline stage exceeded its budget.
	ErrStageTimeout = errors.New("stage timed out")

	// ErrJobTimeout indicates the whole job exceeded its wall-clock budget.
	ErrJobTimeout = errors.New("job timed out")

	// ErrEmptyGeneration indicates the generation stage returned no output.
	ErrEmptyGeneration = errors.New("generation produced no output")
)

// RateLimitError provides details about a rate limit response from a source.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ExternalAPIError provides details about a non-2xx or malformed response
// from an external API.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrServiceUnavailable
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

package papersources

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/observability"
)

// FallbackSource chains a primary and a fallback paper source.
//
// A rate-limit response from the primary substitutes the fallback
// immediately, without consuming the primary's retry budget: rate
// limiting will not resolve by retrying the same backend. Any other
// primary failure (the client has already retried internally) also
// falls back. The fallback is invoked at most once per search.
type FallbackSource struct {
	primary  PaperSource
	fallback PaperSource
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// Compile-time check that FallbackSource implements PaperSource.
var _ PaperSource = (*FallbackSource)(nil)

// NewFallbackSource creates a source that searches primary first and
// substitutes fallback on primary failure. metrics may be nil.
func NewFallbackSource(primary, fallback PaperSource, metrics *observability.Metrics, logger zerolog.Logger) *FallbackSource {
	return &FallbackSource{
		primary:  primary,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger.With().Str("component", "fallback-source").Logger(),
	}
}

// Search queries the primary source, substituting the fallback on failure.
// Returns an error only when both sources fail.
func (s *FallbackSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	result, err := s.primary.Search(ctx, params)
	if err == nil {
		return result, nil
	}

	// Do not fall back on caller cancellation.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	event := s.logger.Warn().
		Str("primary", s.primary.Name()).
		Str("fallback", s.fallback.Name()).
		Str("sort", string(params.Sort))
	if errors.Is(err, domain.ErrRateLimited) {
		s.metrics.RecordSourceRateLimited(s.primary.Name())
		event.Msg("primary source rate limited, substituting fallback")
	} else {
		event.Err(err).Msg("primary source failed, substituting fallback")
	}
	s.metrics.RecordSourceFallback(s.primary.Name())

	fbResult, fbErr := s.fallback.Search(ctx, params)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %s failed (%v); fallback %s failed: %w",
			s.primary.Name(), err, s.fallback.Name(), fbErr)
	}
	fbResult.Status = domain.StatusDegraded
	return fbResult, nil
}

// SourceType returns the primary's type; the logical source identity does
// not change when the fallback serves a request.
func (s *FallbackSource) SourceType() domain.SourceType {
	return s.primary.SourceType()
}

// Name returns a combined human-readable name.
func (s *FallbackSource) Name() string {
	return s.primary.Name() + "->" + s.fallback.Name()
}

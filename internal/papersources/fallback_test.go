package papersources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarstream/literature-review-service/internal/domain"
)

// stubSource is a scripted PaperSource for fallback tests.
type stubSource struct {
	name       string
	sourceType domain.SourceType
	result     *SearchResult
	err        error
	calls      atomic.Int32
}

func (s *stubSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return s.name }

func paperResult(source domain.SourceType, ids ...string) *SearchResult {
	papers := make([]*domain.Paper, 0, len(ids))
	for _, id := range ids {
		papers = append(papers, &domain.Paper{ID: id, Title: "paper " + id})
	}
	return &SearchResult{Papers: papers, Source: source, Status: domain.StatusOK}
}

func TestFallbackSource_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubSource{
		name:       "primary",
		sourceType: domain.SourceTypeSemanticScholar,
		result:     paperResult(domain.SourceTypeSemanticScholar, "a", "b"),
	}
	fallback := &stubSource{name: "fallback", sourceType: domain.SourceTypeOpenAlex}

	source := NewFallbackSource(primary, fallback, nil, zerolog.Nop())
	result, err := source.Search(context.Background(), SearchParams{Query: "q"})

	require.NoError(t, err)
	assert.Len(t, result.Papers, 2)
	assert.Equal(t, domain.SourceTypeSemanticScholar, result.Source)
	assert.Equal(t, domain.StatusOK, result.Status)
	assert.Equal(t, int32(0), fallback.calls.Load())
}

func TestFallbackSource_RateLimitSubstitutesFallbackOnce(t *testing.T) {
	t.Parallel()

	primary := &stubSource{
		name:       "primary",
		sourceType: domain.SourceTypeSemanticScholar,
		err:        domain.NewRateLimitError("primary", 30*time.Second),
	}
	fallback := &stubSource{
		name:       "fallback",
		sourceType: domain.SourceTypeOpenAlex,
		result:     paperResult(domain.SourceTypeOpenAlex, "x"),
	}

	source := NewFallbackSource(primary, fallback, nil, zerolog.Nop())
	result, err := source.Search(context.Background(), SearchParams{Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, domain.SourceTypeOpenAlex, result.Source)
	assert.Equal(t, domain.StatusDegraded, result.Status)
	// The primary is not retried and the fallback runs exactly once.
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), fallback.calls.Load())
}

func TestFallbackSource_GenericFailureFallsBack(t *testing.T) {
	t.Parallel()

	primary := &stubSource{
		name:       "primary",
		sourceType: domain.SourceTypeSemanticScholar,
		err:        domain.NewExternalAPIError("primary", 500, "boom", nil),
	}
	fallback := &stubSource{
		name:       "fallback",
		sourceType: domain.SourceTypeOpenAlex,
		result:     paperResult(domain.SourceTypeOpenAlex, "x"),
	}

	source := NewFallbackSource(primary, fallback, nil, zerolog.Nop())
	result, err := source.Search(context.Background(), SearchParams{Query: "q"})

	require.NoError(t, err)
	assert.Equal(t, domain.SourceTypeOpenAlex, result.Source)
	assert.Equal(t, domain.StatusDegraded, result.Status)
}

func TestFallbackSource_BothFail(t *testing.T) {
	t.Parallel()

	primary := &stubSource{
		name:       "primary",
		sourceType: domain.SourceTypeSemanticScholar,
		err:        domain.NewExternalAPIError("primary", 503, "down", nil),
	}
	fallback := &stubSource{
		name:       "fallback",
		sourceType: domain.SourceTypeOpenAlex,
		err:        domain.NewExternalAPIError("fallback", 503, "also down", nil),
	}

	source := NewFallbackSource(primary, fallback, nil, zerolog.Nop())
	_, err := source.Search(context.Background(), SearchParams{Query: "q"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestFallbackSource_CancellationDoesNotFallBack(t *testing.T) {
	t.Parallel()

	primary := &stubSource{
		name:       "primary",
		sourceType: domain.SourceTypeSemanticScholar,
		err:        context.Canceled,
	}
	fallback := &stubSource{
		name:       "fallback",
		sourceType: domain.SourceTypeOpenAlex,
		result:     paperResult(domain.SourceTypeOpenAlex, "x"),
	}

	source := NewFallbackSource(primary, fallback, nil, zerolog.Nop())
	_, err := source.Search(context.Background(), SearchParams{Query: "q"})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), fallback.calls.Load())
}

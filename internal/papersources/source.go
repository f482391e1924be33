// Package papersources provides clients for searching academic paper databases.
//
// Each backend (Semantic Scholar, OpenAlex) implements the PaperSource
// interface, normalizing its own response format into domain.Paper at the
// client boundary. FallbackSource chains a primary and a fallback client so
// that rate limiting or exhaustion of the retry budget on the primary
// transparently substitutes the fallback.
//
// Example usage:
//
//	primary := semanticscholar.NewClient(semanticscholar.Config{}, nil)
//	fallback := openalex.New(openalex.Config{Email: "ops@example.com"})
//	source := papersources.NewFallbackSource(primary, fallback, metrics, logger)
//	result, err := source.Search(ctx, papersources.SearchParams{
//		Query:      "CRISPR gene editing",
//		Sort:       domain.SortNewest,
//		MaxResults: 100,
//	})
package papersources

import (
	"context"

	"github.com/scholarstream/literature-review-service/internal/domain"
)

// SearchParams defines the parameters for searching academic papers.
type SearchParams struct {
	// Query is the search query string (required). Multiple keywords may
	// be OR-combined with explicit quoting; each source maps the query
	// into its own syntax.
	Query string

	// Sort is the requested result ordering hint.
	// Zero value means the source's relevance ordering.
	Sort domain.SortOrder

	// MaxResults limits the number of papers returned in a single request.
	// A value of 0 uses the source's default limit.
	MaxResults int
}

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Papers contains the normalized papers returned by the search.
	// Records without a title have already been dropped.
	Papers []*domain.Paper

	// Source identifies which paper source actually provided these
	// results; after fallback substitution this is the fallback's type.
	Source domain.SourceType

	// Status reports how the results were obtained: StatusOK straight
	// from the queried source, StatusDegraded through a fallback
	// substitution.
	Status domain.SourceStatus
}

// PaperSource defines the interface that all paper source clients implement.
//
// Implementations must:
//   - Respect context cancellation
//   - Apply rate limiting as needed
//   - Transform source-specific responses to domain.Paper
//   - Return *domain.RateLimitError on a 429 response without retrying,
//     so the caller can substitute a fallback source
type PaperSource interface {
	// Search queries the paper source for papers matching the given parameters.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this paper source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this paper source.
	Name() string
}

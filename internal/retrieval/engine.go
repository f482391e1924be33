// Package retrieval implements the hybrid retrieval engine. A single
// query is fanned out as three concurrent search branches with different
// sort orders (newest, most cited, most relevant), the branch results
// are merged and deduplicated, and the merged corpus is optionally
// reranked by embedding similarity against the original query.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/llm"
	"github.com/scholarstream/literature-review-service/internal/observability"
	"github.com/scholarstream/literature-review-service/internal/papersources"
	"github.com/scholarstream/literature-review-service/internal/pool"
)

// Default engine settings.
const (
	DefaultBranchTimeout    = 120 * time.Second
	DefaultPerBranchResults = 20
	DefaultMaxTotalPapers   = 50
)

// branchOrder fixes the merge precedence of the search branches.
var branchOrder = []domain.SortOrder{
	domain.SortNewest,
	domain.SortMostCited,
	domain.SortMostRelevant,
}

// Options configures an Engine.
type Options struct {
	// BranchTimeout bounds each search branch independently.
	BranchTimeout time.Duration
	// PerBranchResults is the maximum papers requested per branch.
	PerBranchResults int
	// MaxTotalPapers caps the merged corpus size.
	MaxTotalPapers int
}

func (o *Options) applyDefaults() {
	if o.BranchTimeout <= 0 {
		o.BranchTimeout = DefaultBranchTimeout
	}
	if o.PerBranchResults <= 0 {
		o.PerBranchResults = DefaultPerBranchResults
	}
	if o.MaxTotalPapers <= 0 {
		o.MaxTotalPapers = DefaultMaxTotalPapers
	}
}

// Engine retrieves a deduplicated, optionally reranked paper corpus for
// a query. The embedder is optional; without one the corpus keeps its
// merge order.
type Engine struct {
	source   papersources.PaperSource
	embedder llm.Embedder
	workers  *pool.Pool
	opts     Options
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewEngine creates a retrieval engine. source is typically a
// FallbackSource wrapping the primary and fallback backends. embedder
// may be nil to disable reranking; metrics may be nil.
func NewEngine(source papersources.PaperSource, embedder llm.Embedder, workers *pool.Pool, opts Options, metrics *observability.Metrics, logger zerolog.Logger) *Engine {
	opts.applyDefaults()
	return &Engine{
		source:   source,
		embedder: embedder,
		workers:  workers,
		opts:     opts,
		metrics:  metrics,
		logger:   logger.With().Str("component", "retrieval").Logger(),
	}
}

// HybridRetrieve runs the three search branches concurrently, merges
// their results in branch order (newest, most cited, most relevant),
// deduplicates by identity key with first occurrence winning, reranks
// when an embedder is available, and truncates to MaxTotalPapers.
//
// Branch failures contribute nothing but never fail the retrieval; the
// only error returned is context cancellation. An empty corpus is a
// valid result the caller must handle.
func (e *Engine) HybridRetrieve(ctx context.Context, queryText string, keywords []string) ([]*domain.Paper, error) {
	query := compositeQuery(queryText, keywords)

	results := make([][]*domain.Paper, len(branchOrder))
	dones := make([]<-chan struct{}, len(branchOrder))

	for i, sortOrder := range branchOrder {
		i, sortOrder := i, sortOrder
		done, err := e.workers.Submit(ctx, func() {
			results[i] = e.searchBranch(ctx, query, sortOrder)
		})
		if err != nil {
			return nil, fmt.Errorf("retrieval: failed to schedule %s branch: %w", sortOrder, err)
		}
		dones[i] = done
	}

	for _, done := range dones {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	total := 0
	for _, branch := range results {
		total += len(branch)
	}
	merged := dedupMerge(results)
	e.metrics.RecordCorpusMerge(len(merged), total-len(merged))
	e.logger.Debug().
		Str("query", query).
		Int("merged", len(merged)).
		Int("duplicates", total-len(merged)).
		Msg("search branches merged")

	if e.embedder != nil && len(merged) > 1 {
		merged = e.rerank(ctx, queryText, merged)
	}

	if len(merged) > e.opts.MaxTotalPapers {
		merged = merged[:e.opts.MaxTotalPapers]
	}
	return merged, nil
}

// searchBranch runs one sorted search under the per-branch timeout.
// Any failure degrades to an empty contribution.
func (e *Engine) searchBranch(ctx context.Context, query string, sortOrder domain.SortOrder) []*domain.Paper {
	branchCtx, cancel := context.WithTimeout(ctx, e.opts.BranchTimeout)
	defer cancel()

	logger := observability.WithSearchContext(e.logger, query, e.source.Name())

	e.metrics.RecordSearchStarted(e.source.Name())
	start := time.Now()
	result, err := e.source.Search(branchCtx, papersources.SearchParams{
		Query:      query,
		Sort:       sortOrder,
		MaxResults: e.opts.PerBranchResults,
	})
	if err != nil {
		e.metrics.RecordSearchFailed(e.source.Name(), time.Since(start).Seconds())
		logger.Warn().
			Err(err).
			Str("sort", string(sortOrder)).
			Str("status", string(domain.StatusFailed)).
			Msg("search branch failed, contributing no papers")
		return nil
	}

	e.metrics.RecordSearchCompleted(string(result.Source), len(result.Papers), time.Since(start).Seconds())
	logger.Debug().
		Str("sort", string(sortOrder)).
		Str("source", string(result.Source)).
		Str("status", string(result.Status)).
		Int("papers", len(result.Papers)).
		Msg("search branch completed")
	return result.Papers
}

// rerank orders papers by cosine similarity between the query embedding
// and each paper's embedding, most similar first. Any embedding failure
// keeps the incoming order.
func (e *Engine) rerank(ctx context.Context, queryText string, papers []*domain.Paper) []*domain.Paper {
	texts := make([]string, 0, len(papers)+1)
	texts = append(texts, queryText)
	for _, p := range papers {
		texts = append(texts, embeddingText(p))
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		e.logger.Warn().Err(err).Msg("rerank embedding failed, keeping merge order")
		return papers
	}
	if len(vectors) != len(texts) {
		e.logger.Warn().
			Int("expected", len(texts)).
			Int("got", len(vectors)).
			Msg("rerank embedding count mismatch, keeping merge order")
		return papers
	}

	queryVec := vectors[0]
	scores := make([]float64, len(papers))
	for i := range papers {
		scores[i] = cosineSimilarity(queryVec, vectors[i+1])
	}

	idx := make([]int, len(papers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})

	ranked := make([]*domain.Paper, len(papers))
	for i, j := range idx {
		ranked[i] = papers[j]
	}
	return ranked
}

// embeddingText is the text embedded for a paper during reranking.
func embeddingText(p *domain.Paper) string {
	if p.Abstract == "" {
		return p.Title
	}
	return p.Title + "\n" + p.Abstract
}

// dedupMerge concatenates branch results in branch order and drops
// duplicates by identity key. The first occurrence wins.
func dedupMerge(results [][]*domain.Paper) []*domain.Paper {
	seen := make(map[string]struct{})
	var merged []*domain.Paper
	for _, branch := range results {
		for _, p := range branch {
			key := p.DedupKey()
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

// compositeQuery builds the search query from extracted keywords. A
// single keyword is used verbatim; multiple keywords are OR-combined as
// quoted terms. Without keywords the raw query text is used.
func compositeQuery(queryText string, keywords []string) string {
	cleaned := keywords[:0:0]
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}

	switch len(cleaned) {
	case 0:
		return strings.TrimSpace(queryText)
	case 1:
		return cleaned[0]
	default:
		quoted := make([]string, len(cleaned))
		for i, kw := range cleaned {
			quoted[i] = `"` + kw + `"`
		}
		return strings.Join(quoted, " | ")
	}
}

// cosineSimilarity computes the cosine of the angle between two
// vectors. The denominator carries a small epsilon so zero vectors
// score zero instead of dividing by zero.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-8)
}

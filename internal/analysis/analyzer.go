// Package analysis contains the LLM-backed stage functions of the
// literature review pipeline: keyword extraction, intent and domain
// analysis, corpus classification, per-paper summarization, topic
// clustering, trend analysis and the final review generation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/llm"
	"github.com/scholarstream/literature-review-service/internal/observability"
	"github.com/scholarstream/literature-review-service/internal/pool"
)

// Default analyzer settings.
const (
	// DefaultMaxKeywords caps extracted search keywords.
	DefaultMaxKeywords = 4
	// DefaultClassificationThreshold is the corpus size at or below
	// which classification returns its input unchanged.
	DefaultClassificationThreshold = 15
	// DefaultClassificationInput caps how many papers are offered to
	// the classifier prompt.
	DefaultClassificationInput = 20
	// DefaultSummaryWorkers bounds the summarization fan-out.
	DefaultSummaryWorkers = 5
)

// Options configures an Analyzer.
type Options struct {
	MaxKeywords             int
	ClassificationThreshold int
	ClassificationInput     int
	SummaryWorkers          int
}

func (o *Options) applyDefaults() {
	if o.MaxKeywords <= 0 {
		o.MaxKeywords = DefaultMaxKeywords
	}
	if o.ClassificationThreshold <= 0 {
		o.ClassificationThreshold = DefaultClassificationThreshold
	}
	if o.ClassificationInput <= 0 {
		o.ClassificationInput = DefaultClassificationInput
	}
	if o.SummaryWorkers <= 0 {
		o.SummaryWorkers = DefaultSummaryWorkers
	}
}

// Analyzer runs the individual analysis stages against a Generator.
// It is stateless across calls and safe for concurrent use.
type Analyzer struct {
	gen     llm.Generator
	workers *pool.Pool
	opts    Options
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewAnalyzer creates an Analyzer. The worker pool bounds the
// summarization fan-out; metrics may be nil.
func NewAnalyzer(gen llm.Generator, workers *pool.Pool, opts Options, metrics *observability.Metrics, logger zerolog.Logger) *Analyzer {
	opts.applyDefaults()
	return &Analyzer{
		gen:     gen,
		workers: workers,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With().Str("component", "analysis").Logger(),
	}
}

// generate calls the model and records request metrics per operation.
func (a *Analyzer) generate(ctx context.Context, operation string, req llm.GenerateRequest) (string, error) {
	start := time.Now()
	resp, err := a.gen.Generate(ctx, req)
	if err != nil {
		a.metrics.RecordLLMRequestFailed(operation, a.gen.Model(), llmErrorType(err))
		return "", err
	}
	a.metrics.RecordLLMRequest(operation, a.gen.Model(), time.Since(start).Seconds())
	return resp, nil
}

// llmErrorType buckets a generation error for the failure counter.
func llmErrorType(err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 0:
			return "network"
		case apiErr.IsRateLimited():
			return "rate_limited"
		default:
			return fmt.Sprintf("http_%d", apiErr.StatusCode)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "other"
}

// ExtractKeywords asks the model for search keywords and returns at
// most MaxKeywords comma-separated terms.
func (a *Analyzer) ExtractKeywords(ctx context.Context, q domain.Query) ([]string, error) {
	resp, err := a.generate(ctx, "keyword_extraction", llm.GenerateRequest{Prompt: keywordExtractionPrompt(q)})
	if err != nil {
		return nil, fmt.Errorf("keyword extraction: %w", err)
	}

	var keywords []string
	for _, kw := range strings.Split(resp, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) > a.opts.MaxKeywords {
		keywords = keywords[:a.opts.MaxKeywords]
	}
	return keywords, nil
}

// AnalyzeDomain produces a free-text description of the research field
// the query belongs to.
func (a *Analyzer) AnalyzeDomain(ctx context.Context, q domain.Query, keywords []string) (string, error) {
	resp, err := a.generate(ctx, "domain_analysis", llm.GenerateRequest{Prompt: domainAnalysisPrompt(q, keywords)})
	if err != nil {
		return "", fmt.Errorf("domain analysis: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

// ClassifyPapers filters the corpus down to the most relevant papers.
//
// A corpus at or below the threshold is returned unchanged without any
// model call. Above the threshold the model is asked to pick papers by
// index; when the model fails or its answer yields no usable selection,
// the first-threshold prefix of the corpus is used instead. The result
// never exceeds the threshold.
func (a *Analyzer) ClassifyPapers(ctx context.Context, q domain.Query, papers []*domain.Paper) []*domain.Paper {
	if len(papers) <= a.opts.ClassificationThreshold {
		return papers
	}

	candidates := papers
	if len(candidates) > a.opts.ClassificationInput {
		candidates = candidates[:a.opts.ClassificationInput]
	}

	resp, err := a.generate(ctx, "classification", llm.GenerateRequest{
		Prompt: classificationPrompt(q, candidates),
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("classification failed, falling back to corpus prefix")
		return papers[:a.opts.ClassificationThreshold]
	}

	selected := a.selectByIndices(resp, candidates)
	if len(selected) == 0 {
		a.logger.Warn().Msg("classification returned no usable selection, falling back to corpus prefix")
		return papers[:a.opts.ClassificationThreshold]
	}
	return selected
}

// selectByIndices picks candidates named by 1-based indices in the
// model response, preserving response order and dropping duplicates and
// out-of-range values.
func (a *Analyzer) selectByIndices(resp string, candidates []*domain.Paper) []*domain.Paper {
	seen := make(map[int]struct{})
	var selected []*domain.Paper
	for _, raw := range indexPattern.FindAllString(resp, -1) {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > len(candidates) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		selected = append(selected, candidates[n-1])
		if len(selected) == a.opts.ClassificationThreshold {
			break
		}
	}
	return selected
}

var indexPattern = regexp.MustCompile(`\d+`)

// SummarizePapers summarizes each paper on a bounded fan-out and
// returns the non-empty summaries in completion order. Individual
// failures are dropped; an all-fail corpus yields an empty slice.
func (a *Analyzer) SummarizePapers(ctx context.Context, q domain.Query, papers []*domain.Paper) []string {
	if len(papers) == 0 {
		return nil
	}

	workers := a.opts.SummaryWorkers
	if workers > len(papers) {
		workers = len(papers)
	}

	jobs := make(chan *domain.Paper)
	out := make(chan string, len(papers))

	dones := make([]<-chan struct{}, 0, workers)
	for i := 0; i < workers; i++ {
		done, err := a.workers.Submit(ctx, func() {
			for p := range jobs {
				summary, err := a.generate(ctx, "summarization", llm.GenerateRequest{Prompt: summaryPrompt(q, p)})
				if err != nil {
					a.logger.Warn().Err(err).Str("title", p.Title).Msg("paper summary failed, dropping")
					continue
				}
				if summary = strings.TrimSpace(summary); summary != "" {
					out <- summary
				}
			}
		})
		if err != nil {
			break
		}
		dones = append(dones, done)
	}

	go func() {
		defer close(jobs)
		for _, p := range papers {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	for _, done := range dones {
		<-done
	}
	close(out)

	summaries := make([]string, 0, len(papers))
	for s := range out {
		summaries = append(summaries, s)
	}
	return summaries
}

// ClusterTopics groups the summaries into themes. Failures degrade to
// an empty result so later stages continue without topic structure.
func (a *Analyzer) ClusterTopics(ctx context.Context, q domain.Query, summaries []string) string {
	if len(summaries) == 0 {
		return ""
	}
	resp, err := a.generate(ctx, "topic_clustering", llm.GenerateRequest{
		Prompt:            clusteringPrompt(q, summaries),
		UseReasoningModel: true,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("topic clustering failed, skipping")
		return ""
	}
	return strings.TrimSpace(resp)
}

// AnalyzeTrends describes research trends across the corpus. Failures
// degrade to an empty result.
func (a *Analyzer) AnalyzeTrends(ctx context.Context, q domain.Query, papers []*domain.Paper) string {
	if len(papers) == 0 {
		return ""
	}
	resp, err := a.generate(ctx, "trend_analysis", llm.GenerateRequest{
		Prompt:            trendAnalysisPrompt(q, papers),
		UseReasoningModel: true,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("trend analysis failed, skipping")
		return ""
	}
	return strings.TrimSpace(resp)
}

// GenerateReview produces the final literature review from the
// accumulated stage outputs. An empty model response is an error; the
// pipeline has nothing to stream without it.
func (a *Analyzer) GenerateReview(ctx context.Context, q domain.Query, summaries []string, topics, trends string, papers []*domain.Paper) (string, error) {
	resp, err := a.generate(ctx, "review_generation", llm.GenerateRequest{
		Prompt:            reviewGenerationPrompt(q, summaries, topics, trends, papers),
		UseReasoningModel: true,
	})
	if err != nil {
		return "", fmt.Errorf("review generation: %w", err)
	}
	review := strings.TrimSpace(resp)
	if review == "" {
		return "", domain.ErrEmptyGeneration
	}
	return review, nil
}

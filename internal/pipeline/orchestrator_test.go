package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarstream/literature-review-service/internal/analysis"
	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/observability"
	"github.com/scholarstream/literature-review-service/internal/pool"
)

// Shared across tests: promauto registers with the default registry,
// and duplicate registration panics.
var testMetrics = observability.NewMetrics("pipeline_test")

// fakeRetriever returns a scripted corpus.
type fakeRetriever struct {
	papers      []*domain.Paper
	err         error
	gotKeywords []string
}

func (r *fakeRetriever) HybridRetrieve(_ context.Context, _ string, keywords []string) ([]*domain.Paper, error) {
	r.gotKeywords = keywords
	return r.papers, r.err
}

// fakeAnalyzer implements Analyzer with overridable behavior per stage.
type fakeAnalyzer struct {
	intent     *analysis.Intent
	intentErr  error
	keywords   []string
	keywordErr error
	review     string
	reviewErr  error
	genDelay   time.Duration
}

func (a *fakeAnalyzer) AnalyzeIntent(context.Context, domain.Query) (*analysis.Intent, error) {
	return a.intent, a.intentErr
}

func (a *fakeAnalyzer) ExtractKeywords(context.Context, domain.Query) ([]string, error) {
	return a.keywords, a.keywordErr
}

func (a *fakeAnalyzer) AnalyzeDomain(context.Context, domain.Query, []string) (string, error) {
	return "some field", nil
}

func (a *fakeAnalyzer) ClassifyPapers(_ context.Context, _ domain.Query, papers []*domain.Paper) []*domain.Paper {
	return papers
}

func (a *fakeAnalyzer) SummarizePapers(_ context.Context, _ domain.Query, papers []*domain.Paper) []string {
	summaries := make([]string, len(papers))
	for i := range papers {
		summaries[i] = "summary " + papers[i].ID
	}
	return summaries
}

func (a *fakeAnalyzer) ClusterTopics(context.Context, domain.Query, []string) string { return "topics" }

func (a *fakeAnalyzer) AnalyzeTrends(context.Context, domain.Query, []*domain.Paper) string {
	return "trends"
}

func (a *fakeAnalyzer) GenerateReview(ctx context.Context, _ domain.Query, _ []string, _, _ string, _ []*domain.Paper) (string, error) {
	if a.genDelay > 0 {
		select {
		case <-time.After(a.genDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return a.review, a.reviewErr
}

func testCorpus(n int) []*domain.Paper {
	papers := make([]*domain.Paper, n)
	for i := range papers {
		papers[i] = &domain.Paper{ID: string(rune('a' + i)), Title: "Paper"}
	}
	return papers
}

func newTestOrchestrator(r Retriever, a Analyzer, jobTimeout time.Duration) *Orchestrator {
	runner := NewStageRunner(pool.New(8), 5*time.Millisecond, 50*time.Millisecond)
	return NewOrchestrator(r, a, runner, testMetrics, zerolog.Nop(), jobTimeout)
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("event stream did not close, got %d events", len(got))
		}
	}
}

func eventsOfType(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("happy path streams progress, one result, then done", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(3)}
		analyzer := &fakeAnalyzer{keywords: []string{"kw"}, review: "## The Review"}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		events := collect(t, o.Run(context.Background(), "graph neural networks"))
		require.NotEmpty(t, events)

		results := eventsOfType(events, EventResult)
		require.Len(t, results, 1)
		assert.Equal(t, "## The Review", results[0].Content)

		assert.Empty(t, eventsOfType(events, EventError))
		assert.Equal(t, EventDone, events[len(events)-1].Type)

		// Progress messages arrive in stage order.
		var progress []string
		for _, ev := range eventsOfType(events, EventProgress) {
			progress = append(progress, ev.Content)
		}
		require.GreaterOrEqual(t, len(progress), 6)
		assert.Contains(t, progress[0], "Step 1/6")
		assert.Contains(t, progress[1], "Retrieved 3 related papers")
		assert.Contains(t, progress[len(progress)-1], "Literature Review")
	})

	t.Run("chinese query selects chinese templates", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(2)}
		analyzer := &fakeAnalyzer{keywords: []string{"kw"}, review: "综述"}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		events := collect(t, o.Run(context.Background(), "图神经网络的研究进展"))
		progress := eventsOfType(events, EventProgress)
		require.NotEmpty(t, progress)
		assert.Contains(t, progress[0].Content, "步骤 1/6")
	})

	t.Run("empty corpus ends with no-papers error", func(t *testing.T) {
		retriever := &fakeRetriever{}
		analyzer := &fakeAnalyzer{keywords: []string{"kw"}, review: "unused"}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		events := collect(t, o.Run(context.Background(), "obscure topic"))

		errs := eventsOfType(events, EventError)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Content, "No related papers found")
		assert.Empty(t, eventsOfType(events, EventResult))
		assert.Equal(t, EventDone, events[len(events)-1].Type)
	})

	t.Run("generation failure ends with generation error", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(2)}
		analyzer := &fakeAnalyzer{keywords: []string{"kw"}, reviewErr: domain.ErrEmptyGeneration}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		events := collect(t, o.Run(context.Background(), "some topic"))

		errs := eventsOfType(events, EventError)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Content, "generation failed")
		assert.Empty(t, eventsOfType(events, EventResult))
		assert.Equal(t, EventDone, events[len(events)-1].Type)
	})

	t.Run("job timeout ends with timeout error", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(2)}
		analyzer := &fakeAnalyzer{keywords: []string{"kw"}, review: "late", genDelay: time.Second}
		o := newTestOrchestrator(retriever, analyzer, 200*time.Millisecond)

		events := collect(t, o.Run(context.Background(), "slow topic"))

		errs := eventsOfType(events, EventError)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Content, "Timeout")
		assert.Equal(t, EventDone, events[len(events)-1].Type)
	})

	t.Run("client cancellation closes the stream without done", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(2)}
		analyzer := &fakeAnalyzer{keywords: []string{"kw"}, review: "late", genDelay: 500 * time.Millisecond}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		events := o.Run(ctx, "abandoned topic")

		// Read a couple of events, then walk away.
		<-events
		<-events
		cancel()

		got := collect(t, events)
		assert.Empty(t, eventsOfType(got, EventResult))
		assert.Empty(t, eventsOfType(got, EventDone))
	})

	t.Run("failed keyword extraction falls back to intent keywords", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(2)}
		analyzer := &fakeAnalyzer{
			keywordErr: errors.New("model down"),
			intent:     &analysis.Intent{RecommendedKeywords: []string{"fallback-kw"}},
			review:     "review",
		}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		events := collect(t, o.Run(context.Background(), "topic"))
		assert.NotEmpty(t, eventsOfType(events, EventResult))
		assert.Equal(t, []string{"fallback-kw"}, retriever.gotKeywords)
	})

	t.Run("degraded intent and domain analysis still complete", func(t *testing.T) {
		retriever := &fakeRetriever{papers: testCorpus(2)}
		analyzer := &fakeAnalyzer{
			intentErr: errors.New("down"),
			keywords:  []string{"kw"},
			review:    "review",
		}
		o := newTestOrchestrator(retriever, analyzer, time.Minute)

		events := collect(t, o.Run(context.Background(), "topic"))
		require.Len(t, eventsOfType(events, EventResult), 1)
		assert.Empty(t, eventsOfType(events, EventError))
	})
}

func TestMessagesFor(t *testing.T) {
	en := messagesFor(domain.LanguageEnglish)
	zh := messagesFor(domain.LanguageChinese)

	assert.True(t, strings.Contains(en.step2(7), "7"))
	assert.True(t, strings.Contains(zh.step2(7), "7"))
	assert.Contains(t, en.errTimeout(1800), "1800")
	assert.Contains(t, zh.errTimeout(1800), "1800")
	assert.NotEqual(t, en.step1, zh.step1)
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/llm"
	"github.com/scholarstream/literature-review-service/internal/pool"
)

// scriptedGenerator answers prompts via a handler and counts calls.
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   atomic.Int32
	handler func(prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.GenerateRequest) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handler(req.Prompt)
}

func (g *scriptedGenerator) Provider() string { return "scripted" }
func (g *scriptedGenerator) Model() string    { return "scripted-model" }

func fixedResponse(resp string) *scriptedGenerator {
	return &scriptedGenerator{handler: func(string) (string, error) { return resp, nil }}
}

func failingGenerator(err error) *scriptedGenerator {
	return &scriptedGenerator{handler: func(string) (string, error) { return "", err }}
}

func newTestAnalyzer(gen llm.Generator, opts Options) *Analyzer {
	return NewAnalyzer(gen, pool.New(8), opts, nil, zerolog.Nop())
}

func enQuery(text string) domain.Query {
	return domain.NewQuery(text, domain.LanguageEnglish)
}

func corpus(n int) []*domain.Paper {
	papers := make([]*domain.Paper, n)
	for i := range papers {
		papers[i] = &domain.Paper{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("Paper %d", i)}
	}
	return papers
}

func TestAnalyzer_ExtractKeywords(t *testing.T) {
	t.Run("splits on commas and trims", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("graph neural networks, molecules , drug discovery"), Options{})
		keywords, err := a.ExtractKeywords(context.Background(), enQuery("GNNs for drugs"))
		require.NoError(t, err)
		assert.Equal(t, []string{"graph neural networks", "molecules", "drug discovery"}, keywords)
	})

	t.Run("caps at the keyword limit", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("a, b, c, d, e, f"), Options{})
		keywords, err := a.ExtractKeywords(context.Background(), enQuery("q"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, keywords)
	})

	t.Run("propagates generator errors", func(t *testing.T) {
		a := newTestAnalyzer(failingGenerator(errors.New("model down")), Options{})
		_, err := a.ExtractKeywords(context.Background(), enQuery("q"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "keyword extraction")
	})
}

func TestAnalyzer_ClassifyPapers(t *testing.T) {
	t.Run("corpus at threshold returns input unchanged without model call", func(t *testing.T) {
		gen := fixedResponse("never used")
		a := newTestAnalyzer(gen, Options{})

		papers := corpus(10)
		result := a.ClassifyPapers(context.Background(), enQuery("q"), papers)

		assert.Equal(t, papers, result)
		assert.Equal(t, int32(0), gen.calls.Load())
	})

	t.Run("selects papers by model indices", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("3, 1, 7"), Options{})

		papers := corpus(20)
		result := a.ClassifyPapers(context.Background(), enQuery("q"), papers)

		require.Len(t, result, 3)
		assert.Equal(t, "p2", result[0].ID)
		assert.Equal(t, "p0", result[1].ID)
		assert.Equal(t, "p6", result[2].ID)
	})

	t.Run("ignores duplicate and out-of-range indices", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("2, 2, 99, 0, 4"), Options{})

		result := a.ClassifyPapers(context.Background(), enQuery("q"), corpus(20))
		require.Len(t, result, 2)
		assert.Equal(t, "p1", result[0].ID)
		assert.Equal(t, "p3", result[1].ID)
	})

	t.Run("model failure degrades to corpus prefix", func(t *testing.T) {
		a := newTestAnalyzer(failingGenerator(errors.New("timeout")), Options{})

		papers := corpus(30)
		result := a.ClassifyPapers(context.Background(), enQuery("q"), papers)

		require.Len(t, result, DefaultClassificationThreshold)
		assert.Equal(t, papers[:DefaultClassificationThreshold], result)
	})

	t.Run("unparseable answer degrades to corpus prefix", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("all of them look great"), Options{})

		papers := corpus(30)
		result := a.ClassifyPapers(context.Background(), enQuery("q"), papers)

		require.Len(t, result, DefaultClassificationThreshold)
		assert.Equal(t, papers[0], result[0])
	})

	t.Run("selection never exceeds the threshold", func(t *testing.T) {
		var sb strings.Builder
		for i := 1; i <= 20; i++ {
			fmt.Fprintf(&sb, "%d, ", i)
		}
		a := newTestAnalyzer(fixedResponse(sb.String()), Options{})

		result := a.ClassifyPapers(context.Background(), enQuery("q"), corpus(30))
		assert.Len(t, result, DefaultClassificationThreshold)
	})
}

func TestAnalyzer_SummarizePapers(t *testing.T) {
	t.Run("summarizes every paper", func(t *testing.T) {
		gen := fixedResponse("a short summary")
		a := newTestAnalyzer(gen, Options{})

		summaries := a.SummarizePapers(context.Background(), enQuery("q"), corpus(8))
		assert.Len(t, summaries, 8)
		assert.Equal(t, int32(8), gen.calls.Load())
	})

	t.Run("drops failed and empty summaries", func(t *testing.T) {
		var n atomic.Int32
		gen := &scriptedGenerator{handler: func(string) (string, error) {
			switch n.Add(1) % 3 {
			case 0:
				return "", errors.New("model error")
			case 1:
				return "   ", nil
			default:
				return "a summary", nil
			}
		}}
		a := newTestAnalyzer(gen, Options{})

		summaries := a.SummarizePapers(context.Background(), enQuery("q"), corpus(9))
		assert.Len(t, summaries, 3)
	})

	t.Run("all failures yield an empty result", func(t *testing.T) {
		a := newTestAnalyzer(failingGenerator(errors.New("down")), Options{})
		summaries := a.SummarizePapers(context.Background(), enQuery("q"), corpus(5))
		assert.Empty(t, summaries)
	})

	t.Run("empty corpus makes no calls", func(t *testing.T) {
		gen := fixedResponse("unused")
		a := newTestAnalyzer(gen, Options{})
		assert.Nil(t, a.SummarizePapers(context.Background(), enQuery("q"), nil))
		assert.Equal(t, int32(0), gen.calls.Load())
	})

	t.Run("fan-out stays within the worker bound", func(t *testing.T) {
		var current, peak atomic.Int32
		gen := &scriptedGenerator{handler: func(string) (string, error) {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			defer current.Add(-1)
			return "s", nil
		}}
		a := NewAnalyzer(gen, pool.New(16), Options{SummaryWorkers: 3}, nil, zerolog.Nop())

		summaries := a.SummarizePapers(context.Background(), enQuery("q"), corpus(12))
		assert.Len(t, summaries, 12)
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})
}

func TestAnalyzer_ClusterTopicsAndTrends(t *testing.T) {
	t.Run("failure degrades to empty string", func(t *testing.T) {
		a := newTestAnalyzer(failingGenerator(errors.New("down")), Options{})
		assert.Empty(t, a.ClusterTopics(context.Background(), enQuery("q"), []string{"s1"}))
		assert.Empty(t, a.AnalyzeTrends(context.Background(), enQuery("q"), corpus(2)))
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		gen := fixedResponse("unused")
		a := newTestAnalyzer(gen, Options{})
		assert.Empty(t, a.ClusterTopics(context.Background(), enQuery("q"), nil))
		assert.Empty(t, a.AnalyzeTrends(context.Background(), enQuery("q"), nil))
		assert.Equal(t, int32(0), gen.calls.Load())
	})

	t.Run("returns trimmed model output", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("  theme one and theme two \n"), Options{})
		assert.Equal(t, "theme one and theme two",
			a.ClusterTopics(context.Background(), enQuery("q"), []string{"s1", "s2"}))
	})
}

func TestAnalyzer_GenerateReview(t *testing.T) {
	t.Run("returns the review text", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("## Review\n\ncontent"), Options{})
		review, err := a.GenerateReview(context.Background(), enQuery("q"), []string{"s"}, "topics", "trends", corpus(3))
		require.NoError(t, err)
		assert.Equal(t, "## Review\n\ncontent", review)
	})

	t.Run("empty output is an error", func(t *testing.T) {
		a := newTestAnalyzer(fixedResponse("   \n"), Options{})
		_, err := a.GenerateReview(context.Background(), enQuery("q"), nil, "", "", corpus(1))
		assert.ErrorIs(t, err, domain.ErrEmptyGeneration)
	})

	t.Run("generator failure propagates", func(t *testing.T) {
		a := newTestAnalyzer(failingGenerator(errors.New("down")), Options{})
		_, err := a.GenerateReview(context.Background(), enQuery("q"), nil, "", "", corpus(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "review generation")
	})
}

package openalex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/papersources"
)

// Compile-time check that Client implements papersources.PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL:   baseURL,
		Email:     "test@example.com",
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		BurstSize: 1000,
	})
}

func TestClient_Search(t *testing.T) {
	t.Run("reconstructs inverted index abstracts", func(t *testing.T) {
		response := SearchResponse{
			Meta: Meta{Count: 1},
			Results: []Work{
				{
					ID:    "https://openalex.org/W123",
					Title: "Deep Learning Survey",
					AbstractInvertedIndex: map[string][]int{
						"learning": {1},
						"deep":     {0},
						"works":    {2},
					},
				},
			},
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(response))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		result, err := client.Search(context.Background(), papersources.SearchParams{
			Query: "deep learning",
			Sort:  domain.SortNewest,
		})

		require.NoError(t, err)
		require.Len(t, result.Papers, 1)
		assert.Equal(t, "W123", result.Papers[0].ID)
		assert.Equal(t, "deep learning works", result.Papers[0].Abstract)
		assert.Equal(t, domain.SourceTypeOpenAlex, result.Source)
		assert.Equal(t, domain.StatusOK, result.Status)
	})

	t.Run("sends sort and mailto parameters", func(t *testing.T) {
		var gotQuery url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			require.NoError(t, json.NewEncoder(w).Encode(SearchResponse{}))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      `"transformers" | "attention"`,
			Sort:       domain.SortMostCited,
			MaxResults: 50,
		})

		require.NoError(t, err)
		assert.Equal(t, "cited_by_count:desc", gotQuery.Get("sort"))
		assert.Equal(t, "test@example.com", gotQuery.Get("mailto"))
		assert.Equal(t, "50", gotQuery.Get("per_page"))
		// OR-grouping syntax is stripped for OpenAlex full-text search.
		assert.Equal(t, "transformers attention", gotQuery.Get("search"))
	})
}

func TestWorkToPaper(t *testing.T) {
	t.Parallel()

	t.Run("falls back to display name and title as id", func(t *testing.T) {
		paper := workToPaper(&Work{DisplayName: "Only Display Name"})

		require.NotNil(t, paper)
		assert.Equal(t, "Only Display Name", paper.Title)
		assert.Equal(t, "Only Display Name", paper.ID)
	})

	t.Run("nil work yields nil paper", func(t *testing.T) {
		assert.Nil(t, workToPaper(nil))
	})
}

func TestReconstructAbstract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		inverted map[string][]int
		want     string
	}{
		{
			name: "orders words by position",
			inverted: map[string][]int{
				"the":    {0, 3},
				"quick":  {1},
				"fox":    {2},
				"jumped": {4},
			},
			want: "the quick fox the jumped",
		},
		{
			name:     "empty index yields empty abstract",
			inverted: map[string][]int{},
			want:     "",
		},
		{
			name:     "nil index yields empty abstract",
			inverted: nil,
			want:     "",
		},
		{
			name: "corrupt index degrades to empty",
			inverted: map[string][]int{
				"word": {-1},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.inverted))
		})
	}
}

func TestCleanQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", cleanQuery(`"a" | "b" | "c"`))
	assert.Equal(t, "single", cleanQuery("single"))
	assert.Equal(t, "spaced out", cleanQuery("  spaced   out  "))
}

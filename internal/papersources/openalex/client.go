package openalex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	// The OpenAlex API caps per_page at 200.
	DefaultMaxResults = 100

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"

	// sourceName is the human-readable name for this source.
	sourceName = "OpenAlex"
)

// whitespaceRegex collapses runs of whitespace in cleaned query strings.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Email is the contact email for the polite pool.
	// Providing an email grants access to higher rate limits.
	Email string

	// Timeout is the request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to DefaultBurstSize.
	BurstSize int

	// MaxResults is the maximum results per search request.
	// Defaults to DefaultMaxResults, capped at 200 by the API.
	MaxResults int

	// MaxAttempts is the total number of attempts per request.
	MaxAttempts int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 2
	}
}

// Client implements the papersources.PaperSource interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:     cfg.Timeout,
		RateLimit:   cfg.RateLimit,
		BurstSize:   cfg.BurstSize,
		MaxAttempts: cfg.MaxAttempts,
		UserAgent:   "ScholarStream-LiteratureService/1.0 (mailto:" + cfg.Email + ")",
		SourceName:  sourceName,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries OpenAlex for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var searchResp SearchResponse
	if err := c.httpClient.DoJSON(req, &searchResp); err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults == 0 || maxResults > c.config.MaxResults {
		maxResults = c.config.MaxResults
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if len(papers) >= maxResults {
			break
		}
		paper := workToPaper(&searchResp.Results[i])
		if paper != nil && paper.Valid() {
			papers = append(papers, paper)
		}
	}

	return &papersources.SearchResult{
		Papers: papers,
		Source: domain.SourceTypeOpenAlex,
		Status: domain.StatusOK,
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}
	query.Set("search", cleanQuery(params.Query))

	switch params.Sort {
	case domain.SortNewest:
		query.Set("sort", "publication_date:desc")
	case domain.SortMostCited:
		query.Set("sort", "cited_by_count:desc")
	case domain.SortMostRelevant:
		query.Set("sort", "relevance_score:desc")
	}

	maxResults := params.MaxResults
	if maxResults == 0 || maxResults > c.config.MaxResults {
		maxResults = c.config.MaxResults
	}
	if maxResults > 200 {
		maxResults = 200 // OpenAlex API limit
	}
	query.Set("per_page", strconv.Itoa(maxResults))

	// Add mailto for polite pool.
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// cleanQuery strips the OR-grouping syntax used by the primary source.
// OpenAlex's search parameter does plain full-text matching, so quotes and
// pipe separators would otherwise be matched literally.
func cleanQuery(q string) string {
	q = strings.ReplaceAll(q, `"`, "")
	q = strings.ReplaceAll(q, " | ", " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(q, " "))
}

// workToPaper converts an OpenAlex Work to a domain Paper.
// A work whose abstract cannot be reconstructed keeps an empty abstract;
// a single malformed record never fails the whole request.
func workToPaper(work *Work) *domain.Paper {
	if work == nil {
		return nil
	}

	title := work.Title
	if title == "" {
		title = work.DisplayName
	}

	id := work.ID
	if strings.HasPrefix(id, openAlexIDPrefix) {
		id = strings.TrimPrefix(id, openAlexIDPrefix)
	}
	if id == "" {
		id = title
	}

	return &domain.Paper{
		ID:       id,
		Title:    title,
		Abstract: reconstructAbstract(work.AbstractInvertedIndex),
	}
}

// reconstructAbstract rebuilds plain text from OpenAlex's inverted
// word-position index. Positions map back to words; the words are emitted
// in position order.
func reconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}

	posToWord := make(map[int]string)
	maxPos := -1
	for word, positions := range inverted {
		for _, pos := range positions {
			if pos < 0 {
				// Negative positions mean the index is corrupt; degrade
				// this record's abstract to empty rather than guessing.
				return ""
			}
			posToWord[pos] = word
			if pos > maxPos {
				maxPos = pos
			}
		}
	}

	positions := make([]int, 0, len(posToWord))
	for pos := range posToWord {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	words := make([]string, 0, len(positions))
	for _, pos := range positions {
		words = append(words, posToWord[pos])
	}
	return strings.Join(words, " ")
}

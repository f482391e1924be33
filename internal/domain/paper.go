package domain

import "strings"

// SourceType identifies a paper source backend.
type SourceType string

const (
	// SourceTypeSemanticScholar is the Semantic Scholar Graph API.
	SourceTypeSemanticScholar SourceType = "semantic_scholar"

	// SourceTypeOpenAlex is the OpenAlex works API.
	SourceTypeOpenAlex SourceType = "openalex"
)

// SortOrder is the result ordering requested from a paper source.
type SortOrder string

const (
	// SortNewest orders results by publication date, newest first.
	SortNewest SortOrder = "newest"

	// SortMostCited orders results by citation count, highest first.
	SortMostCited SortOrder = "most_cited"

	// SortMostRelevant orders results by the source's relevance score.
	SortMostRelevant SortOrder = "most_relevant"
)

// Paper is the canonical record shape for an academic paper.
// Every source client normalizes its own response format into this
// shape at the client boundary; source-specific shapes never leak
// further into the pipeline.
type Paper struct {
	// ID is a stable source-assigned identifier when available.
	// May be empty for sources that do not expose one.
	ID string `json:"paperId"`

	// Title is the paper title. A paper without a title is dropped
	// before it reaches any result set.
	Title string `json:"title"`

	// Abstract is the plain-text abstract. May be empty.
	Abstract string `json:"abstract"`
}

// DedupKey returns the identity key used for corpus deduplication:
// the source identifier when present, otherwise the title.
func (p *Paper) DedupKey() string {
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return strings.TrimSpace(p.Title)
}

// Valid reports whether the paper may be included in a result set.
func (p *Paper) Valid() bool {
	return strings.TrimSpace(p.Title) != ""
}

// SourceStatus describes the outcome of one search branch against one backend chain.
type SourceStatus string

const (
	// StatusOK means the search succeeded against the queried backend.
	StatusOK SourceStatus = "ok"

	// StatusDegraded means the result came from the fallback backend.
	StatusDegraded SourceStatus = "degraded"

	// StatusFailed means both primary and fallback failed; the branch contributes nothing.
	StatusFailed SourceStatus = "failed"
)

// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// Semantic Scholar is the primary paper source. The bulk search endpoint
// supports server-side sort orders (publication date, citation count) while
// the regular search endpoint returns relevance-ranked results.
//
// API Documentation: https://api.semanticscholar.org/api-docs/graph
package semanticscholar

// SearchResponse represents the response from the paper search endpoints.
type SearchResponse struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Next   int           `json:"next"`
	Data   []PaperResult `json:"data"`
}

// PaperResult represents a single paper in a search response.
type PaperResult struct {
	PaperID  string `json:"paperId"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// Package openalex provides a client for the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly papers. It serves as the
// fallback source when Semantic Scholar is rate limited or unavailable.
// OpenAlex encodes abstracts as an inverted word-position index, which the
// client reconstructs into plain text at the boundary.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse represents the top-level response from the works search endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains metadata about the search results including pagination info.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work represents an academic work (paper) in OpenAlex.
type Work struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	DisplayName string `json:"display_name"`

	// Abstract is stored as an inverted index; it is reconstructed
	// into plain text during conversion.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

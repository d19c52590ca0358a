package domain

import "encoding/json"

// SearchQuery describes one search request before target resolution.
// Collections lists the collection names to query; empty means all. Body
// is the engine-native JSON query, passed through untouched.
type SearchQuery struct {
	Collections []string
	Body        json.RawMessage
}

// Hit is one normalized result document.
type Hit struct {
	Index  string
	Type   string
	ID     string
	Score  float64
	Source json.RawMessage
}

// SearchResult is the uniform result shape returned to callers: the ordered
// hit sequence plus total-count metadata, with the engine's native envelope
// hidden.
type SearchResult struct {
	Total int64
	Hits  []Hit
}

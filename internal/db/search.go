package db

import "github.com/kailas-cloud/symdex/internal/domain/search/filter"

// Hash fields every point carries next to its vectors and flattened payload.
const (
	FieldID      = "__id"
	FieldPayload = "__payload"
	// FieldScore is the alias KNN results report their similarity under.
	FieldScore = "__score"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Field is the vector field to search; "vector" when empty.
	Field      string
	Filters    filter.Expression
	IDs        []string // restrict to these point IDs
	ExcludeIDs []string
	Vector     []float32
	K          int
	// ReturnFields limits the returned hash fields. The score is always returned.
	ReturnFields []string
	RawScores    bool // return the distance as-is instead of 1 - distance
}

// ListQuery is the input for a filter-only search.
type ListQuery struct {
	IndexName    string
	Filters      filter.Expression
	IDs          []string
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Package request holds the executor's request shape and its normalization.
package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/mode"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
)

// Request parameter limits.
const (
	// MaxQueryLength is the maximum allowed query text and DSL length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Limits are the configured bounds a request is normalized against.
type Limits struct {
	DefaultCollection string
	DefaultLimit      int
	MaxLimit          int
}

// Request is one execute call. DSL fields hold Call DSL text.
type Request struct {
	Collection     string
	FilterDSL      string
	QueryText      string
	QueryDSL       string
	PrefetchDSL    string
	Using          string
	Limit          int
	ScoreThreshold *float64
	DryRun         bool
}

// Normalize trims text fields, applies defaults and clamps the limit.
func (r Request) Normalize(l Limits) (Request, error) {
	if l.DefaultLimit <= 0 {
		l.DefaultLimit = DefaultLimit
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = MaxLimit
	}

	r.Collection = strings.TrimSpace(r.Collection)
	r.FilterDSL = strings.TrimSpace(r.FilterDSL)
	r.QueryText = strings.TrimSpace(r.QueryText)
	r.QueryDSL = strings.TrimSpace(r.QueryDSL)
	r.PrefetchDSL = strings.TrimSpace(r.PrefetchDSL)
	r.Using = strings.TrimSpace(r.Using)

	if r.Collection == "" {
		r.Collection = l.DefaultCollection
	}
	if r.Collection == "" {
		return Request{}, fmt.Errorf("collection is required")
	}
	for name, s := range map[string]string{
		"query_text":   r.QueryText,
		"filter_dsl":   r.FilterDSL,
		"query_dsl":    r.QueryDSL,
		"prefetch_dsl": r.PrefetchDSL,
	} {
		if len(s) > MaxQueryLength {
			return Request{}, fmt.Errorf("%s too long (max %d chars)", name, MaxQueryLength)
		}
	}
	if r.Limit < 0 {
		return Request{}, fmt.Errorf("limit must be positive, got %d", r.Limit)
	}
	if r.Limit == 0 {
		r.Limit = l.DefaultLimit
	}
	if r.Limit > l.MaxLimit {
		r.Limit = l.MaxLimit
	}
	return r, nil
}

// Mode picks the execution mode from the fields that are set.
func (r Request) Mode() mode.Mode {
	return mode.Select(r.QueryDSL != "", r.QueryText != "", r.PrefetchDSL != "")
}

// Compiled is a request after its DSL was built and its text embedded: the
// input of a store query. A nil Query with prefetch stages fuses them; a nil
// Query without stages scrolls.
type Compiled struct {
	Collection     string
	Query          query.Query
	Using          string
	Filter         filter.Expression
	Prefetch       []query.Prefetch
	Limit          int
	ScoreThreshold *float64
}

// Package query holds the compiled query objects the executor hands to the
// vector store. Every type prints as a constructor call for dry runs.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
)

// Kind identifies a top-level query type.
type Kind string

// Query kinds.
const (
	KindNearest   Kind = "nearest"
	KindRecommend Kind = "recommend"
	KindDiscover  Kind = "discover"
	KindFusion    Kind = "fusion"
)

// Query is a top-level store query.
type Query interface {
	fmt.Stringer
	Kind() Kind
	// MapInputs returns a copy with every VectorInput passed through fn.
	MapInputs(fn InputFunc) (Query, error)
}

// Nearest is k-nearest-neighbour search around one input.
type Nearest struct {
	input VectorInput
}

// NewNearest creates a nearest-neighbour query.
func NewNearest(in VectorInput) Nearest { return Nearest{input: in} }

// Input returns the query operand.
func (n Nearest) Input() VectorInput { return n.input }

// Kind implements Query.
func (Nearest) Kind() Kind { return KindNearest }

// MapInputs implements Query.
func (n Nearest) MapInputs(fn InputFunc) (Query, error) {
	in, err := fn(n.input)
	if err != nil {
		return nil, err
	}
	return Nearest{input: in}, nil
}

func (n Nearest) String() string {
	return "NearestQuery(nearest=" + n.input.String() + ")"
}

// Strategy selects how Recommend combines examples.
type Strategy string

// Recommend strategies.
const (
	AverageVector Strategy = "average_vector"
	BestScore     Strategy = "best_score"
)

// IsValid reports whether s is supported.
func (s Strategy) IsValid() bool { return s == AverageVector || s == BestScore }

// RecommendInput lists positive and negative examples.
type RecommendInput struct {
	positive []VectorInput
	negative []VectorInput
	strategy Strategy
}

// NewRecommendInput validates examples. An empty strategy means AverageVector.
func NewRecommendInput(positive, negative []VectorInput, strategy Strategy) (RecommendInput, error) {
	if len(positive) == 0 {
		return RecommendInput{}, fmt.Errorf("at least one positive example is required")
	}
	if strategy == "" {
		strategy = AverageVector
	}
	if !strategy.IsValid() {
		return RecommendInput{}, fmt.Errorf("unknown recommend strategy %q", strategy)
	}
	return RecommendInput{positive: positive, negative: negative, strategy: strategy}, nil
}

// Positive returns the positive examples.
func (r RecommendInput) Positive() []VectorInput { return r.positive }

// Negative returns the negative examples.
func (r RecommendInput) Negative() []VectorInput { return r.negative }

// Strategy returns the combination strategy.
func (r RecommendInput) Strategy() Strategy { return r.strategy }

func (r RecommendInput) mapInputs(fn InputFunc) (RecommendInput, error) {
	pos, err := mapInputs(r.positive, fn)
	if err != nil {
		return RecommendInput{}, err
	}
	neg, err := mapInputs(r.negative, fn)
	if err != nil {
		return RecommendInput{}, err
	}
	return RecommendInput{positive: pos, negative: neg, strategy: r.strategy}, nil
}

func (r RecommendInput) String() string {
	parts := []string{"positive=" + inputList(r.positive)}
	if len(r.negative) > 0 {
		parts = append(parts, "negative="+inputList(r.negative))
	}
	parts = append(parts, "strategy="+strconv.Quote(string(r.strategy)))
	return "RecommendInput(" + strings.Join(parts, ", ") + ")"
}

// Recommend finds points similar to positives and unlike negatives.
type Recommend struct {
	input RecommendInput
}

// NewRecommend wraps a RecommendInput.
func NewRecommend(in RecommendInput) Recommend { return Recommend{input: in} }

// Input returns the examples.
func (r Recommend) Input() RecommendInput { return r.input }

// Kind implements Query.
func (Recommend) Kind() Kind { return KindRecommend }

// MapInputs implements Query.
func (r Recommend) MapInputs(fn InputFunc) (Query, error) {
	in, err := r.input.mapInputs(fn)
	if err != nil {
		return nil, err
	}
	return Recommend{input: in}, nil
}

func (r Recommend) String() string {
	return "RecommendQuery(recommend=" + r.input.String() + ")"
}

// ContextPair steers discovery towards positive and away from negative.
type ContextPair struct {
	positive VectorInput
	negative VectorInput
}

// NewContextPair creates a context pair.
func NewContextPair(positive, negative VectorInput) ContextPair {
	return ContextPair{positive: positive, negative: negative}
}

// Positive returns the attracting example.
func (c ContextPair) Positive() VectorInput { return c.positive }

// Negative returns the repelling example.
func (c ContextPair) Negative() VectorInput { return c.negative }

func (c ContextPair) String() string {
	return "ContextPair(positive=" + c.positive.String() + ", negative=" + c.negative.String() + ")"
}

// Discover searches around target constrained by context pairs.
type Discover struct {
	target  VectorInput
	context []ContextPair
}

// NewDiscover validates a discovery query.
func NewDiscover(target VectorInput, context []ContextPair) (Discover, error) {
	if len(context) == 0 {
		return Discover{}, fmt.Errorf("at least one context pair is required")
	}
	return Discover{target: target, context: context}, nil
}

// Target returns the search target.
func (d Discover) Target() VectorInput { return d.target }

// Context returns the context pairs.
func (d Discover) Context() []ContextPair { return d.context }

// Kind implements Query.
func (Discover) Kind() Kind { return KindDiscover }

// MapInputs implements Query.
func (d Discover) MapInputs(fn InputFunc) (Query, error) {
	target, err := fn(d.target)
	if err != nil {
		return nil, err
	}
	ctx := make([]ContextPair, len(d.context))
	for i, c := range d.context {
		pos, err := fn(c.positive)
		if err != nil {
			return nil, err
		}
		neg, err := fn(c.negative)
		if err != nil {
			return nil, err
		}
		ctx[i] = ContextPair{positive: pos, negative: neg}
	}
	return Discover{target: target, context: ctx}, nil
}

func (d Discover) String() string {
	pairs := make([]string, len(d.context))
	for i, c := range d.context {
		pairs[i] = c.String()
	}
	return "DiscoverQuery(discover=DiscoverInput(target=" + d.target.String() +
		", context=[" + strings.Join(pairs, ", ") + "]))"
}

// FusionMethod names a fusion algorithm.
type FusionMethod string

// RRF is Reciprocal Rank Fusion.
const RRF FusionMethod = "rrf"

// Fusion merges prefetch stage results.
type Fusion struct {
	method FusionMethod
}

// NewFusion validates the method. An empty method means RRF.
func NewFusion(method FusionMethod) (Fusion, error) {
	if method == "" {
		method = RRF
	}
	if method != RRF {
		return Fusion{}, fmt.Errorf("unsupported fusion method %q", method)
	}
	return Fusion{method: method}, nil
}

// Method returns the fusion method.
func (f Fusion) Method() FusionMethod { return f.method }

// Kind implements Query.
func (Fusion) Kind() Kind { return KindFusion }

// MapInputs implements Query.
func (f Fusion) MapInputs(InputFunc) (Query, error) { return f, nil }

func (f Fusion) String() string {
	return "FusionQuery(fusion=Fusion." + strings.ToUpper(string(f.method)) + ")"
}

// Prefetch is a sub-query whose results feed the parent stage.
type Prefetch struct {
	query          Query
	using          string
	filter         *filter.Expression
	limit          int
	scoreThreshold *float64
	prefetch       []Prefetch
}

// PrefetchOptions are the optional Prefetch fields.
type PrefetchOptions struct {
	Using          string
	Filter         *filter.Expression
	Limit          int
	ScoreThreshold *float64
	Prefetch       []Prefetch
}

// NewPrefetch creates a stage. A stage needs a query, nested stages, or both.
func NewPrefetch(q Query, opts PrefetchOptions) (Prefetch, error) {
	if q == nil && len(opts.Prefetch) == 0 {
		return Prefetch{}, fmt.Errorf("prefetch needs a query or nested prefetch")
	}
	if opts.Limit < 0 {
		return Prefetch{}, fmt.Errorf("prefetch limit must be positive, got %d", opts.Limit)
	}
	if _, ok := q.(Fusion); ok && len(opts.Prefetch) == 0 {
		return Prefetch{}, fmt.Errorf("fusion prefetch needs nested prefetch stages")
	}
	return Prefetch{
		query:          q,
		using:          opts.Using,
		filter:         opts.Filter,
		limit:          opts.Limit,
		scoreThreshold: opts.ScoreThreshold,
		prefetch:       opts.Prefetch,
	}, nil
}

// Query returns the stage query, nil for fusion-only stages.
func (p Prefetch) Query() Query { return p.query }

// Using returns the vector space name.
func (p Prefetch) Using() string { return p.using }

// Filter returns the stage filter.
func (p Prefetch) Filter() *filter.Expression { return p.filter }

// Limit returns the stage limit, 0 for the executor default.
func (p Prefetch) Limit() int { return p.limit }

// ScoreThreshold returns the stage score threshold.
func (p Prefetch) ScoreThreshold() *float64 { return p.scoreThreshold }

// Prefetch returns nested stages.
func (p Prefetch) Prefetch() []Prefetch { return p.prefetch }

// MapInputs returns a copy with every VectorInput in the stage tree passed
// through fn. fn also receives the stage's vector space name.
func (p Prefetch) MapInputs(fn func(using string, in VectorInput) (VectorInput, error)) (Prefetch, error) {
	out := p
	if p.query != nil {
		q, err := p.query.MapInputs(func(in VectorInput) (VectorInput, error) { return fn(p.using, in) })
		if err != nil {
			return Prefetch{}, err
		}
		out.query = q
	}
	if len(p.prefetch) > 0 {
		out.prefetch = make([]Prefetch, len(p.prefetch))
		for i, child := range p.prefetch {
			c, err := child.MapInputs(fn)
			if err != nil {
				return Prefetch{}, err
			}
			out.prefetch[i] = c
		}
	}
	return out, nil
}

func (p Prefetch) String() string {
	var parts []string
	if len(p.prefetch) > 0 {
		parts = append(parts, "prefetch="+PrefetchList(p.prefetch))
	}
	if p.query != nil {
		parts = append(parts, "query="+p.query.String())
	}
	if p.using != "" {
		parts = append(parts, "using="+strconv.Quote(p.using))
	}
	if p.filter != nil && !p.filter.IsEmpty() {
		parts = append(parts, "filter="+p.filter.String())
	}
	if p.limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(p.limit))
	}
	if p.scoreThreshold != nil {
		parts = append(parts, "score_threshold="+strconv.FormatFloat(*p.scoreThreshold, 'g', -1, 64))
	}
	return "Prefetch(" + strings.Join(parts, ", ") + ")"
}

// PrefetchList renders stages as a list.
func PrefetchList(ps []Prefetch) string {
	items := make([]string, len(ps))
	for i, p := range ps {
		items[i] = p.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func inputList(in []VectorInput) string {
	items := make([]string, len(in))
	for i, v := range in {
		items[i] = v.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

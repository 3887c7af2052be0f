package querybuild

import (
	"fmt"

	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
)

func newFilter(a *Args) (any, error) {
	must, err := a.Conditions("must")
	if err != nil {
		return nil, err
	}
	should, err := a.Conditions("should")
	if err != nil {
		return nil, err
	}
	mustNot, err := a.Conditions("must_not")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewExpression(must, should, mustNot)
}

func newFieldCondition(a *Args) (any, error) {
	key, err := a.String("key")
	if err != nil {
		return nil, err
	}
	m, err := a.Match("match")
	if err != nil {
		return nil, err
	}
	r, err := a.Range("range")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewFieldCondition(key, m, r)
}

func newMatchValue(a *Args) (any, error) {
	v, ok := a.Raw("value")
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q", "value")
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewMatchValue(v)
}

func newMatchAny(a *Args) (any, error) {
	vs, err := a.List("any")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewMatchAny(vs)
}

func newMatchExcept(a *Args) (any, error) {
	vs, err := a.List("except")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewMatchExcept(vs)
}

func newMatchText(a *Args) (any, error) {
	text, err := a.String("text")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewMatchText(text)
}

func newRange(a *Args) (any, error) {
	var bounds [4]*float64
	for i, key := range []string{"gt", "gte", "lt", "lte"} {
		f, err := a.OptFloat(key)
		if err != nil {
			return nil, err
		}
		bounds[i] = f
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return filter.NewRangeFilter(bounds[0], bounds[1], bounds[2], bounds[3])
}

// newNearest accepts exactly one of text, vector, id or nearest. A string
// under nearest is text to embed.
func newNearest(a *Args) (any, error) {
	given := 0
	for _, k := range []string{"text", "vector", "id", "nearest"} {
		if a.Has(k) {
			given++
		}
	}
	if given != 1 {
		return nil, fmt.Errorf("exactly one of text, vector, id or nearest is required")
	}

	var (
		in  query.VectorInput
		err error
	)
	switch {
	case a.Has("text"):
		var text string
		if text, err = a.String("text"); err == nil {
			in, err = query.FromText(text)
		}
	case a.Has("id"):
		in, err = a.Input("id")
	case a.Has("vector"):
		in, err = a.Input("vector")
	default:
		v, _ := a.Raw("nearest")
		if s, ok := v.(string); ok {
			in, err = query.FromText(s)
		} else {
			in, err = toInput(v)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return query.NewNearest(in), nil
}

func newRecommendInput(a *Args) (any, error) {
	pos, err := a.Inputs("positive")
	if err != nil {
		return nil, err
	}
	neg, err := a.Inputs("negative")
	if err != nil {
		return nil, err
	}
	strategy, err := a.OptString("strategy", "")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return query.NewRecommendInput(pos, neg, query.Strategy(strategy))
}

// newRecommend takes a RecommendInput under recommend, or its fields inline.
func newRecommend(a *Args) (any, error) {
	if a.Has("recommend") {
		v, _ := a.Raw("recommend")
		in, ok := v.(query.RecommendInput)
		if !ok {
			return nil, typeErr("recommend", "RecommendInput", v)
		}
		if err := a.Done(); err != nil {
			return nil, err
		}
		return query.NewRecommend(in), nil
	}
	in, err := newRecommendInput(a)
	if err != nil {
		return nil, err
	}
	return query.NewRecommend(in.(query.RecommendInput)), nil
}

func newContextPair(a *Args) (any, error) {
	pos, err := a.Input("positive")
	if err != nil {
		return nil, err
	}
	neg, err := a.Input("negative")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return query.NewContextPair(pos, neg), nil
}

func newDiscover(a *Args) (any, error) {
	target, err := a.Input("target")
	if err != nil {
		return nil, err
	}
	l, err := a.List("context")
	if err != nil {
		return nil, err
	}
	pairs := make([]query.ContextPair, 0, len(l))
	for i, v := range l {
		p, ok := v.(query.ContextPair)
		if !ok {
			return nil, typeErr(fmt.Sprintf("context[%d]", i), "ContextPair", v)
		}
		pairs = append(pairs, p)
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return query.NewDiscover(target, pairs)
}

func newFusion(a *Args) (any, error) {
	method, err := a.OptString("fusion", "")
	if err != nil {
		return nil, err
	}
	if method == "" {
		if method, err = a.OptString("method", ""); err != nil {
			return nil, err
		}
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return query.NewFusion(query.FusionMethod(method))
}

func newPrefetch(a *Args) (any, error) {
	q, err := a.Query("query")
	if err != nil {
		return nil, err
	}
	using, err := a.OptString("using", "")
	if err != nil {
		return nil, err
	}
	f, err := a.Filter("filter")
	if err != nil {
		return nil, err
	}
	limit, err := a.OptInt("limit", 0)
	if err != nil {
		return nil, err
	}
	threshold, err := a.OptFloat("score_threshold")
	if err != nil {
		return nil, err
	}
	nested, err := a.Prefetches("prefetch")
	if err != nil {
		return nil, err
	}
	if err := a.Done(); err != nil {
		return nil, err
	}
	return query.NewPrefetch(q, query.PrefetchOptions{
		Using:          using,
		Filter:         f,
		Limit:          limit,
		ScoreThreshold: threshold,
		Prefetch:       nested,
	})
}

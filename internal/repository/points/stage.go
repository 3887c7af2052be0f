package points

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/fusion"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
	"github.com/kailas-cloud/symdex/internal/domain/search/result"
)

// stage is one level of a query tree: the top-level request or a prefetch.
type stage struct {
	query     query.Query
	using     string
	filter    filter.Expression
	limit     int
	threshold *float64
	prefetch  []query.Prefetch
}

func stageOf(p query.Prefetch) stage {
	st := stage{
		query:     p.Query(),
		using:     p.Using(),
		limit:     p.Limit(),
		threshold: p.ScoreThreshold(),
		prefetch:  p.Prefetch(),
	}
	if f := p.Filter(); f != nil {
		st.filter = *f
	}
	return st
}

// run executes a stage: nested prefetch stages first, then the stage query
// over their candidates. The score threshold applies before the limit and
// never to a scroll, whose items carry no score.
func (r *Repo) run(ctx context.Context, collection string, st stage) ([]result.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := st.limit
	if limit <= 0 {
		limit = r.opts.DefaultLimit
	}
	using := st.using
	if using == "" {
		using = r.opts.DefaultVector
	}

	var lists map[string][]result.Item
	if len(st.prefetch) > 0 {
		var err error
		if lists, err = r.prefetch(ctx, collection, st.prefetch); err != nil {
			return nil, err
		}
	}

	var items []result.Item
	var err error
	scored := true
	switch q := st.query.(type) {
	case nil:
		if lists == nil {
			scored = false
			items, err = r.Scroll(ctx, collection, st.filter, limit)
		} else {
			items, err = r.fuse(ctx, collection, lists, st.filter)
		}
	case query.Fusion:
		if lists == nil {
			return nil, fmt.Errorf("fusion needs prefetch stages: %w", domain.ErrInvalidRequest)
		}
		items, err = r.fuse(ctx, collection, lists, st.filter)
	case query.Nearest:
		items, err = r.nearest(ctx, collection, using, st.filter, q.Input(), lists, limit)
	case query.Recommend:
		items, err = r.recommend(ctx, collection, using, st.filter, q.Input(), lists, limit)
	case query.Discover:
		items, err = r.discover(ctx, collection, using, st.filter, q, lists, limit)
	default:
		return nil, fmt.Errorf("query %s: %w", st.query.Kind(), db.ErrUnsupportedQuery)
	}
	if err != nil {
		return nil, err
	}

	if scored && st.threshold != nil {
		kept := items[:0]
		for _, it := range items {
			if it.Score >= *st.threshold {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// prefetch runs sibling stages concurrently. Lists are keyed by vector space;
// a repeated space gets a "#index" suffix so both lists survive fusion.
func (r *Repo) prefetch(ctx context.Context, collection string, stages []query.Prefetch) (map[string][]result.Item, error) {
	out := make([][]result.Item, len(stages))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range stages {
		i, p := i, p
		g.Go(func() error {
			items, err := r.run(gctx, collection, stageOf(p))
			if err != nil {
				return fmt.Errorf("prefetch %d: %w", i, err)
			}
			out[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lists := make(map[string][]result.Item, len(stages))
	for i, p := range stages {
		name := p.Using()
		if name == "" {
			name = r.opts.DefaultVector
		}
		if _, dup := lists[name]; dup {
			name = fmt.Sprintf("%s#%d", name, i)
		}
		lists[name] = out[i]
	}
	return lists, nil
}

func (r *Repo) fuse(
	ctx context.Context, collection string, lists map[string][]result.Item, f filter.Expression,
) ([]result.Item, error) {
	items := result.Items(fusion.RRF(lists, r.opts.RRFK, 0))
	if f.IsEmpty() {
		return items, nil
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	keep, err := r.restrict(ctx, collection, ids, f)
	if err != nil {
		return nil, err
	}
	set := toSet(keep)
	kept := items[:0]
	for _, it := range items {
		if set[it.ID] {
			kept = append(kept, it)
		}
	}
	return kept, nil
}

func (r *Repo) nearest(
	ctx context.Context, collection, using string, f filter.Expression,
	in query.VectorInput, lists map[string][]result.Item, limit int,
) ([]result.Item, error) {
	if in.Kind() == query.InputID {
		resolved, err := r.resolve(ctx, collection, using, in)
		if err != nil {
			return nil, err
		}
		in = resolved
	}

	switch in.Kind() {
	case query.InputDense:
		return r.knn(ctx, collection, using, f, in.Dense(), lists, nil, limit)
	case query.InputMulti:
		cands, err := r.candidates(ctx, collection, f, lists, limit)
		if err != nil {
			return nil, err
		}
		items := make([]result.Item, 0, len(cands))
		for _, sp := range cands {
			m, ok := sp.multi(using)
			if !ok {
				continue
			}
			items = append(items, result.New(sp.id, maxSim(in.Multi(), m), sp.payload(), using))
		}
		sortItems(items)
		return items, nil
	}
	return nil, fmt.Errorf("input %s was not embedded: %w", in, domain.ErrInvalidRequest)
}

func (r *Repo) recommend(
	ctx context.Context, collection, using string, f filter.Expression,
	in query.RecommendInput, lists map[string][]result.Item, limit int,
) ([]result.Item, error) {
	pos, err := r.denseAll(ctx, collection, using, in.Positive())
	if err != nil {
		return nil, err
	}
	neg, err := r.denseAll(ctx, collection, using, in.Negative())
	if err != nil {
		return nil, err
	}
	exclude := exampleIDs(append(append([]query.VectorInput{}, in.Positive()...), in.Negative()...))

	if in.Strategy() != query.BestScore {
		return r.knn(ctx, collection, using, f, recommendVector(pos, neg), lists, exclude, limit)
	}

	var cands []storedPoint
	if lists != nil {
		cands, err = r.candidates(ctx, collection, f, lists, limit)
	} else {
		cands, err = r.knnPool(ctx, collection, using, f, pos, exclude, limit)
	}
	if err != nil {
		return nil, err
	}

	skip := toSet(exclude)
	items := make([]result.Item, 0, len(cands))
	for _, sp := range cands {
		v, ok := sp.dense(using)
		if !ok || skip[sp.id] {
			continue
		}
		items = append(items, result.New(sp.id, bestScore(v, pos, neg), sp.payload(), using))
	}
	sortItems(items)
	return items, nil
}

func (r *Repo) discover(
	ctx context.Context, collection, using string, f filter.Expression,
	q query.Discover, lists map[string][]result.Item, limit int,
) ([]result.Item, error) {
	inputs := []query.VectorInput{q.Target()}
	for _, c := range q.Context() {
		inputs = append(inputs, c.Positive(), c.Negative())
	}
	vecs, err := r.denseAll(ctx, collection, using, inputs)
	if err != nil {
		return nil, err
	}
	target := vecs[0]
	pairs := make([][2][]float32, len(q.Context()))
	for i := range pairs {
		pairs[i] = [2][]float32{vecs[1+2*i], vecs[2+2*i]}
	}
	exclude := exampleIDs(inputs)

	var cands []storedPoint
	if lists != nil {
		cands, err = r.candidates(ctx, collection, f, lists, limit)
	} else {
		cands, err = r.knnPool(ctx, collection, using, f, [][]float32{target}, exclude, limit)
	}
	if err != nil {
		return nil, err
	}

	skip := toSet(exclude)
	items := make([]result.Item, 0, len(cands))
	for _, sp := range cands {
		v, ok := sp.dense(using)
		if !ok || skip[sp.id] {
			continue
		}
		items = append(items, result.New(sp.id, discoverScore(v, target, pairs), sp.payload(), using))
	}
	sortItems(items)
	return items, nil
}

// knn runs a store KNN search. With prefetch lists it only considers their
// candidates.
func (r *Repo) knn(
	ctx context.Context, collection, using string, f filter.Expression,
	vec []float32, lists map[string][]result.Item, exclude []string, k int,
) ([]result.Item, error) {
	var ids []string
	if lists != nil {
		ids = unionIDs(lists)
		if len(ids) == 0 {
			return nil, nil
		}
	}
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.keys.index(collection),
		Field:        using,
		Filters:      f,
		IDs:          ids,
		ExcludeIDs:   exclude,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{db.FieldID, db.FieldPayload},
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s/%s: %w", collection, using, err)
	}
	return r.entriesToItems(collection, sr, using), nil
}

// knnPool gathers rerank candidates by KNN around each vector.
func (r *Repo) knnPool(
	ctx context.Context, collection, using string, f filter.Expression,
	vecs [][]float32, exclude []string, limit int,
) ([]storedPoint, error) {
	k := limit * r.opts.CandidateMultiplier
	var ids []string
	seen := make(map[string]bool)
	for _, v := range vecs {
		items, err := r.knn(ctx, collection, using, f, v, nil, exclude, k)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if !seen[it.ID] {
				seen[it.ID] = true
				ids = append(ids, it.ID)
			}
		}
	}
	return r.fetch(ctx, collection, ids)
}

// candidates returns full points to rerank: the prefetch union narrowed by
// the stage filter, or a filtered scan of limit × multiplier points.
func (r *Repo) candidates(
	ctx context.Context, collection string, f filter.Expression,
	lists map[string][]result.Item, limit int,
) ([]storedPoint, error) {
	if lists != nil {
		ids, err := r.restrict(ctx, collection, unionIDs(lists), f)
		if err != nil {
			return nil, err
		}
		return r.fetch(ctx, collection, ids)
	}

	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: r.keys.index(collection),
		Filters:   f,
		Limit:     limit * r.opts.CandidateMultiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("candidates %s: %w", collection, err)
	}
	out := make([]storedPoint, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, r.stored(collection, e.Key, e.Fields))
	}
	return out, nil
}

// restrict keeps the ids whose points match f, preserving order.
func (r *Repo) restrict(ctx context.Context, collection string, ids []string, f filter.Expression) ([]string, error) {
	if f.IsEmpty() || len(ids) == 0 {
		return ids, nil
	}
	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.keys.index(collection),
		Filters:      f,
		IDs:          ids,
		Limit:        len(ids),
		ReturnFields: []string{db.FieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("filter candidates %s: %w", collection, err)
	}
	match := make(map[string]bool, len(sr.Entries))
	for _, e := range sr.Entries {
		match[r.stored(collection, e.Key, e.Fields).id] = true
	}
	out := make([]string, 0, len(match))
	for _, id := range ids {
		if match[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// resolve replaces a point ID input with the point's stored vector.
func (r *Repo) resolve(ctx context.Context, collection, using string, in query.VectorInput) (query.VectorInput, error) {
	pts, err := r.fetch(ctx, collection, []string{in.ID()})
	if err != nil {
		return query.VectorInput{}, err
	}
	if len(pts) == 0 {
		return query.VectorInput{}, fmt.Errorf("point %q: %w", in.ID(), domain.ErrNotFound)
	}
	if m, ok := pts[0].multi(using); ok {
		return query.FromMulti(m)
	}
	if v, ok := pts[0].dense(using); ok {
		return query.FromDense(v)
	}
	return query.VectorInput{}, fmt.Errorf("point %q has no vector %q: %w", in.ID(), using, domain.ErrUnsupportedVector)
}

// denseAll resolves inputs to dense vectors, fetching all ID inputs in one
// round trip.
func (r *Repo) denseAll(ctx context.Context, collection, using string, in []query.VectorInput) ([][]float32, error) {
	ids := exampleIDs(in)
	byID := make(map[string][]float32, len(ids))
	if len(ids) > 0 {
		pts, err := r.fetch(ctx, collection, ids)
		if err != nil {
			return nil, err
		}
		for _, sp := range pts {
			if v, ok := sp.dense(using); ok {
				byID[sp.id] = v
			}
		}
	}

	out := make([][]float32, len(in))
	for i, v := range in {
		switch v.Kind() {
		case query.InputDense:
			out[i] = v.Dense()
		case query.InputID:
			vec, ok := byID[v.ID()]
			if !ok {
				return nil, fmt.Errorf("example point %q has no dense vector %q: %w", v.ID(), using, domain.ErrNotFound)
			}
			out[i] = vec
		case query.InputMulti:
			return nil, fmt.Errorf("example %d is a multi-vector, dense required: %w", i, domain.ErrInvalidRequest)
		default:
			return nil, fmt.Errorf("example %s was not embedded: %w", v, domain.ErrInvalidRequest)
		}
	}
	return out, nil
}

func exampleIDs(in []query.VectorInput) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, v := range in {
		if v.Kind() == query.InputID && !seen[v.ID()] {
			seen[v.ID()] = true
			ids = append(ids, v.ID())
		}
	}
	return ids
}

// unionIDs lists every ID across lists, by list name then rank.
func unionIDs(lists map[string][]result.Item) []string {
	names := make([]string, 0, len(lists))
	for n := range lists {
		names = append(names, n)
	}
	sort.Strings(names)

	var ids []string
	seen := make(map[string]bool)
	for _, n := range names {
		for _, it := range lists[n] {
			if !seen[it.ID] {
				seen[it.ID] = true
				ids = append(ids, it.ID)
			}
		}
	}
	return ids
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// sortItems orders by score descending, ties by ID.
func sortItems(items []result.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}

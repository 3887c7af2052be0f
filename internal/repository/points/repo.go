// Package points stores collection points in Redis/Valkey hashes and runs
// compiled query objects against them.
package points

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/search/result"
)

// Defaults for Options zero values.
const (
	DefaultLimit               = 10
	DefaultCandidateMultiplier = 4
	DefaultVector              = "dense"
)

// store is the consumer interface for points (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Options tune query execution.
type Options struct {
	KeyPrefix string
	// DefaultVector is the vector space used when a stage names none.
	DefaultVector string
	DefaultLimit  int
	// CandidateMultiplier sizes candidate pools for client-side reranking:
	// limit × multiplier points are scored.
	CandidateMultiplier int
	RRFK                int
	HNSW                HNSWConfig
}

// Repo executes point storage and queries over the store.
type Repo struct {
	store  store
	keys   keys
	opts   Options
	hnsw   HNSWConfig
	logger *zap.Logger
}

// New creates a points repository.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	if opts.DefaultVector == "" {
		opts.DefaultVector = DefaultVector
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = DefaultCandidateMultiplier
	}
	hnsw := opts.HNSW
	if hnsw.M <= 0 {
		hnsw.M = 16
	}
	if hnsw.EFConstruct <= 0 {
		hnsw.EFConstruct = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{
		store:  s,
		keys:   keys{prefix: opts.KeyPrefix},
		opts:   opts,
		hnsw:   hnsw,
		logger: logger.Named("points"),
	}
}

// Upsert writes points in one pipelined round trip.
func (r *Repo) Upsert(ctx context.Context, collection string, pts []Point) error {
	if collection == "" {
		return fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	items := make([]db.HashSetItem, 0, len(pts))
	for i := range pts {
		p := &pts[i]
		if err := p.validate(); err != nil {
			return err
		}
		fields, err := buildHashFields(p)
		if err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
		items = append(items, db.HashSetItem{Key: r.keys.point(collection, p.ID), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Delete removes points by ID.
func (r *Repo) Delete(ctx context.Context, collection string, ids []string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.point(collection, id)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	return nil
}

// Get reads one point back. The boolean is false when the point is absent.
func (r *Repo) Get(ctx context.Context, collection, id string) (Point, bool, error) {
	fields, err := r.store.HGetAll(ctx, r.keys.point(collection, id))
	if err != nil {
		return Point{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if len(fields) == 0 {
		return Point{}, false, nil
	}
	return storedPoint{id: id, fields: fields}.point(), true, nil
}

// Scroll lists points matching f, ordered by ID, with score 0.
func (r *Repo) Scroll(ctx context.Context, collection string, f filter.Expression, limit int) ([]result.Item, error) {
	if limit <= 0 {
		limit = r.opts.DefaultLimit
	}
	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.keys.index(collection),
		Filters:      f,
		Limit:        limit,
		ReturnFields: []string{db.FieldID, db.FieldPayload},
	})
	if err != nil {
		return nil, fmt.Errorf("scroll %s: %w", collection, err)
	}
	items := r.entriesToItems(collection, sr, "")
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Query runs the request. Text inputs must be embedded beforehand.
func (r *Repo) Query(ctx context.Context, req request.Compiled) ([]result.Item, error) {
	if req.Collection == "" {
		return nil, fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}
	st := stage{
		query:     req.Query,
		using:     req.Using,
		filter:    req.Filter,
		limit:     req.Limit,
		threshold: req.ScoreThreshold,
		prefetch:  req.Prefetch,
	}
	return r.run(ctx, req.Collection, st)
}

func (r *Repo) entriesToItems(collection string, sr *db.SearchResult, using string) []result.Item {
	if sr == nil {
		return nil
	}
	items := make([]result.Item, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		sp := r.stored(collection, e.Key, e.Fields)
		items = append(items, result.New(sp.id, e.Score, sp.payload(), using))
	}
	return items
}

func (r *Repo) stored(collection, key string, fields map[string]string) storedPoint {
	id := fields[db.FieldID]
	if id == "" {
		id = r.keys.pointID(collection, key)
	}
	return storedPoint{id: id, fields: fields}
}

// fetch loads full point hashes by ID, skipping missing points.
func (r *Repo) fetch(ctx context.Context, collection string, ids []string) ([]storedPoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.point(collection, id)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	out := make([]storedPoint, 0, len(hashes))
	for i, h := range hashes {
		if len(h) == 0 {
			continue
		}
		out = append(out, r.stored(collection, keys[i], h))
	}
	return out, nil
}

package symdex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/repository/points"
)

// embedConcurrency bounds in-flight embedding calls during Upsert.
const embedConcurrency = 8

// EnsureCollection creates the collection index with one vector field per
// registered vector space, unless it exists. It reports whether the index
// was created.
func (c *Client) EnsureCollection(ctx context.Context, name string, fields ...FieldSpec) (created bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "ensure_collection", start, err, slog.String("collection", name)) }()

	if c.points == nil {
		return false, ErrNoStore
	}
	spec := points.CollectionSpec{Name: name}
	for _, f := range fields {
		spec.Fields = append(spec.Fields, points.FieldSpec{Name: f.Name, Type: string(f.Type)})
	}
	names := make([]string, 0, len(c.cfg.spaces))
	for n := range c.cfg.spaces {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := c.cfg.spaces[n]
		spec.Vectors = append(spec.Vectors, points.VectorSpec{
			Name: n,
			Dim:  s.dimensions,
			Kind: domain.EmbeddingKind(s.kind),
		})
	}
	return c.points.EnsureCollection(ctx, spec)
}

// Upsert writes points, embedding Text into every registered vector space a
// point carries no vector for.
func (c *Client) Upsert(ctx context.Context, collection string, pts []Point) (err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, "upsert", start, err,
			slog.String("collection", collection), slog.Int("points", len(pts)))
	}()

	if c.points == nil {
		return ErrNoStore
	}
	out, err := c.embedPoints(ctx, pts)
	if err != nil {
		return err
	}
	if err := c.points.Upsert(ctx, collection, out); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Delete removes points by ID.
func (c *Client) Delete(ctx context.Context, collection string, ids ...string) (err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, "delete", start, err,
			slog.String("collection", collection), slog.Int("points", len(ids)))
	}()

	if c.points == nil {
		return ErrNoStore
	}
	if err := c.points.Delete(ctx, collection, ids); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Get reads one point. ErrNotFound when it does not exist.
func (c *Client) Get(ctx context.Context, collection, id string) (p Point, err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "get", start, err, slog.String("collection", collection)) }()

	if c.points == nil {
		return Point{}, ErrNoStore
	}
	got, ok, err := c.points.Get(ctx, collection, id)
	if err != nil {
		return Point{}, fmt.Errorf("get: %w", err)
	}
	if !ok {
		return Point{}, fmt.Errorf("point %s/%s: %w", collection, id, ErrNotFound)
	}
	return Point{ID: got.ID, Payload: got.Payload, Vectors: got.Vectors, MultiVectors: got.MultiVectors}, nil
}

// DropCollection removes the collection index and all of its points.
func (c *Client) DropCollection(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "drop_collection", start, err, slog.String("collection", name)) }()

	if c.points == nil {
		return ErrNoStore
	}
	return c.points.DropCollection(ctx, name)
}

func (c *Client) embedPoints(ctx context.Context, pts []Point) ([]points.Point, error) {
	out := make([]points.Point, len(pts))
	for i, p := range pts {
		out[i] = points.Point{
			ID:           p.ID,
			Payload:      p.Payload,
			Vectors:      make(map[string][]float32, len(p.Vectors)),
			MultiVectors: make(map[string][][]float32, len(p.MultiVectors)),
		}
		for k, v := range p.Vectors {
			out[i].Vectors[k] = v
		}
		for k, v := range p.MultiVectors {
			out[i].MultiVectors[k] = v
		}
	}
	if c.router == nil {
		return out, nil
	}

	type job struct {
		point int
		space string
		kind  domain.EmbeddingKind
	}
	var jobs []job
	for i, p := range pts {
		if p.Text == "" {
			continue
		}
		for _, space := range c.router.Names() {
			if _, ok := p.Vectors[space]; ok {
				continue
			}
			if _, ok := p.MultiVectors[space]; ok {
				continue
			}
			kind, err := c.router.Kind(space)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job{point: i, space: space, kind: kind})
		}
	}

	results := make([]domain.EmbeddingResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for j, jb := range jobs {
		j, jb := j, jb
		g.Go(func() error {
			res, err := c.router.EmbedFor(gctx, jb.space, pts[jb.point].Text)
			if err != nil {
				return fmt.Errorf("point %s: %w", pts[jb.point].ID, err)
			}
			results[j] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for j, jb := range jobs {
		if jb.kind == domain.MultiVector {
			out[jb.point].MultiVectors[jb.space] = results[j].MultiEmbedding
		} else {
			out[jb.point].Vectors[jb.space] = results[j].Embedding
		}
	}
	return out, nil
}

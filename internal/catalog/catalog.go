// Package catalog owns the live component catalog: the relationship graph,
// its symbol table and the parser and validator bound to them. Snapshots are
// immutable and swapped atomically on rebuild.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/graph"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/metrics"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
	"github.com/kailas-cloud/symdex/internal/usecase/validate"
)

// Options configure snapshot construction.
type Options struct {
	// Root overrides the file's root component.
	Root         string
	ModulePrefix string
	Strict       bool
	Pools        symbol.Pools
	// MaxDepth bounds DSL nesting; zero keeps the parser default.
	MaxDepth int
}

// Snapshot is one immutable catalog generation.
type Snapshot struct {
	Generation uint64
	Root       string
	Table      *symbol.Table
	Graph      *graph.Graph
	Parser     *dsl.Parser
	Validator  *validate.Service
}

// Catalog serves the current snapshot and rebuilds it.
type Catalog struct {
	opts    Options
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
	mu      sync.Mutex // serializes rebuilds
}

// New creates an empty catalog. Current returns nil until the first Rebuild.
func New(opts Options, logger *zap.Logger) *Catalog {
	if opts.Pools.Size() == 0 {
		opts.Pools = symbol.DefaultPools()
	}
	opts.Pools = querybuild.ReserveSymbols(opts.Pools)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{opts: opts, logger: logger.Named("catalog")}
}

// Current returns the live snapshot.
func (c *Catalog) Current() *Snapshot {
	return c.current.Load()
}

// Ready reports whether a snapshot has been built.
func (c *Catalog) Ready() bool {
	return c.current.Load() != nil
}

// Rebuild builds a snapshot from f and swaps it in. On error the previous
// snapshot stays live.
func (c *Catalog) Rebuild(ctx context.Context, f File) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.build(f)
	if err != nil {
		metrics.CatalogRebuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	snap.Generation = c.gen.Add(1)
	c.current.Store(snap)
	metrics.CatalogRebuildsTotal.WithLabelValues("ok").Inc()

	c.logger.Info("catalog rebuilt",
		zap.Uint64("generation", snap.Generation),
		zap.Int("components", snap.Table.Len()),
		zap.Int("edges", snap.Graph.EdgeCount()),
	)
	if cycles := snap.Graph.DetectCycles(); len(cycles) > 0 {
		c.logger.Warn("relationship graph has cycles", zap.Int("cycles", len(cycles)))
	}
	return snap, nil
}

// Reload loads path and rebuilds from it.
func (c *Catalog) Reload(ctx context.Context, path string) (*Snapshot, error) {
	f, err := Load(path)
	if err != nil {
		metrics.CatalogRebuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	return c.Rebuild(ctx, f)
}

func (c *Catalog) build(f File) (*Snapshot, error) {
	g := graph.New(f.Relationships)

	root := c.opts.Root
	if root == "" {
		root = f.Root
	}
	if root != "" && !g.Has(root) {
		return nil, fmt.Errorf("root component %q is not in the graph: %w", root, domain.ErrInvalidRequest)
	}

	gen := symbol.NewGenerator(c.opts.Pools)
	pinned := make([]string, 0, len(f.Symbols))
	for name := range f.Symbols {
		pinned = append(pinned, name)
	}
	sort.Strings(pinned)
	for _, name := range pinned {
		if !g.Has(name) {
			return nil, fmt.Errorf("pinned symbol for unknown component %q: %w", name, domain.ErrInvalidRequest)
		}
		if err := gen.Reserve(name, f.Symbols[name]); err != nil {
			return nil, fmt.Errorf("pin symbols: %w: %w", domain.ErrInvalidRequest, err)
		}
	}

	mapping, err := gen.Generate(g.Nodes(), c.opts.ModulePrefix)
	if err != nil {
		return nil, fmt.Errorf("generate symbols: %w", err)
	}
	table, err := symbol.NewTable(mapping)
	if err != nil {
		return nil, fmt.Errorf("symbol table: %w", err)
	}

	var popts []dsl.Option
	if c.opts.MaxDepth > 0 {
		popts = append(popts, dsl.WithMaxDepth(c.opts.MaxDepth))
	}
	parser := dsl.NewParser(table, popts...)
	return &Snapshot{
		Root:   root,
		Table:  table,
		Graph:  g,
		Parser: parser,
		Validator: validate.New(parser, g, table, validate.Options{
			Root:   root,
			Strict: c.opts.Strict,
		}),
	}, nil
}

package symdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/db"
	dbRedis "github.com/kailas-cloud/symdex/internal/db/redis"
	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/repository/points"
	embeddinguc "github.com/kailas-cloud/symdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/symdex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/symdex/internal/usecase/query"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, substituted in tests.
type queryExecutor interface {
	Execute(ctx context.Context, req request.Request) queryuc.Response
}

type pointsStore interface {
	EnsureCollection(ctx context.Context, spec points.CollectionSpec) (bool, error)
	Upsert(ctx context.Context, collection string, pts []points.Point) error
	Delete(ctx context.Context, collection string, ids []string) error
	Get(ctx context.Context, collection, id string) (points.Point, bool, error)
	DropCollection(ctx context.Context, name string) error
}

type spaceRouter interface {
	Names() []string
	Kind(using string) (domain.EmbeddingKind, error)
	EmbedFor(ctx context.Context, using, text string) (domain.EmbeddingResult, error)
}

// Client is the symdex SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	catalog   *catalog.Catalog
	executor  queryExecutor
	points    pointsStore
	router    spaceRouter
	healthSvc healthUseCase
	cfg       *clientConfig
	obs       *observer
}

// New creates a Client. Without WithValkey or WithRedis the client runs
// offline: catalog operations and dry-run queries work, everything that
// touches stored points returns ErrNoStore. The provided context is used for
// the initial readiness check and catalog load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = "symdex:"
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var router *embeddinguc.Router
	if len(cfg.spaces) > 0 {
		spaces := make(map[string]embeddinguc.Space, len(cfg.spaces))
		for name, s := range cfg.spaces {
			if s.embedder == nil {
				return nil, fmt.Errorf("symdex: vector space %q has no embedder", name)
			}
			spaces[name] = embeddinguc.Space{Embedder: &embedderAdapter{inner: s.embedder}, Kind: domain.EmbeddingKind(s.kind)}
		}
		if router, err = embeddinguc.NewRouter(spaces, cfg.defaultVector); err != nil {
			return nil, fmt.Errorf("symdex: %w", err)
		}
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("symdex: database not ready: %w", err)
		}
		store = s
	}

	return wireClient(store, cat, router, cfg, obs), nil
}

func loadCatalog(ctx context.Context, cfg *clientConfig) (*catalog.Catalog, error) {
	opts := catalog.Options{ModulePrefix: cfg.modulePrefix, Strict: cfg.strict}
	// An explicit root overrides the file's; in-memory maps carry it in the File.
	if cfg.relationshipsFile != "" {
		opts.Root = cfg.root
	}
	cat := catalog.New(opts, zap.NewNop())

	switch {
	case cfg.relationshipsFile != "":
		if _, err := cat.Reload(ctx, cfg.relationshipsFile); err != nil {
			return nil, fmt.Errorf("symdex: %w", err)
		}
	case len(cfg.relations) > 0:
		if _, err := cat.Rebuild(ctx, catalog.File{Root: cfg.root, Relationships: cfg.relations}); err != nil {
			return nil, fmt.Errorf("symdex: %w", err)
		}
	}
	return cat, nil
}

func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	flavor, err := dbRedis.ParseFlavor(cfg.driver)
	if err != nil {
		return nil, fmt.Errorf("symdex: %w", err)
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("symdex: create %s store: %w", cfg.driver, err)
	}
	return s, nil
}

// wireClient assembles the services. store and router may be nil.
func wireClient(store db.Store, cat *catalog.Catalog, router *embeddinguc.Router, cfg *clientConfig, obs *observer) *Client {
	c := &Client{store: store, catalog: cat, cfg: cfg, obs: obs}

	var (
		embed    queryuc.Embedder
		repo     queryuc.Repository
		pinger   healthuc.DBPinger
		embCheck healthuc.EmbeddingChecker
	)
	if router != nil {
		c.router = router
		embed = router
		embCheck = router
	}
	if store != nil {
		p := points.New(store, points.Options{
			KeyPrefix:     cfg.keyPrefix,
			DefaultVector: cfg.defaultVector,
			DefaultLimit:  cfg.defaultLimit,
			HNSW:          points.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct},
		}, zap.NewNop())
		c.points = p
		repo = p
		pinger = store
	}

	c.executor = queryuc.New(querybuild.NewDefault(), embed, repo, request.Limits{
		DefaultCollection: cfg.defaultCollection,
		DefaultLimit:      cfg.defaultLimit,
		MaxLimit:          cfg.maxLimit,
	}, zap.NewNop())
	c.healthSvc = healthuc.New(cat, pinger, embCheck)
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "ping", start, err) }()

	if c.store == nil {
		return ErrNoStore
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Offline reports whether the client has no database.
func (c *Client) Offline() bool { return c.store == nil }

var errNoCatalog = errors.New("symdex: no relationship map loaded (use WithRelationships or WithRelationshipsFile)")

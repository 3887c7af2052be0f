// Package bootstrap assembles symdex components from configuration. Both
// the server and the CLI build their object graph here.
package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/config"
	"github.com/kailas-cloud/symdex/internal/db"
	dbRedis "github.com/kailas-cloud/symdex/internal/db/redis"
	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/metrics"
	"github.com/kailas-cloud/symdex/internal/repository/embcache"
	"github.com/kailas-cloud/symdex/internal/repository/points"
	langchainEmb "github.com/kailas-cloud/symdex/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/symdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/symdex/internal/usecase/embedding"
)

// Purpose selects which instruction prefix the vectorizers apply.
type Purpose int

const (
	// ForQuery embeds search text.
	ForQuery Purpose = iota
	// ForDocument embeds stored points.
	ForDocument
)

// NewStore opens the configured Valkey or Redis store.
func NewStore(cfg config.DatabaseConfig) (*dbRedis.Store, error) {
	flavor, err := dbRedis.ParseFlavor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return store, nil
}

// NewCatalog creates the catalog and, when a relationships file is
// configured, builds its first snapshot.
func NewCatalog(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (*catalog.Catalog, error) {
	opts := catalog.Options{
		Root:         cfg.Root,
		ModulePrefix: cfg.ModulePrefix,
		Strict:       cfg.Strict,
		MaxDepth:     cfg.MaxDSLDepth,
	}
	if perLetter, fallback, ok := cfg.SymbolPools(); ok {
		opts.Pools = symbol.Pools{PerLetter: perLetter, Fallback: fallback}
	}

	c := catalog.New(opts, logger)
	if cfg.RelationshipsFile == "" {
		return c, nil
	}
	if _, err := c.Reload(ctx, cfg.RelationshipsFile); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return c, nil
}

// NewRouter builds one embedder chain per vectorizer and routes vector spaces
// to them. kv may be nil; embeddings are then never cached.
func NewRouter(cfg config.Config, purpose Purpose, kv db.KVStore, logger *zap.Logger) (*embeddinguc.Router, error) {
	names := make([]string, 0, len(cfg.Embedding.Vectorizers))
	for name := range cfg.Embedding.Vectorizers {
		names = append(names, name)
	}
	sort.Strings(names)

	spaces := make(map[string]embeddinguc.Space, len(names))
	for _, name := range names {
		vec := cfg.Embedding.Vectorizers[name]
		prov, ok := cfg.Embedding.Providers[vec.Provider]
		if !ok {
			return nil, fmt.Errorf("vectorizer %q: unknown provider %q", name, vec.Provider)
		}

		instruction := vec.QueryInstruction
		if purpose == ForDocument {
			instruction = vec.DocumentInstruction
		}
		var cache db.KVStore
		if cfg.Storage.CacheEmbeddings {
			cache = kv
		}

		e, err := buildEmbedder(vec.Provider, prov, vec, instruction, cache, cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("vectorizer %q: %w", name, err)
		}
		kind := domain.SingleVector
		if vec.IsMulti() {
			kind = domain.MultiVector
		}
		spaces[name] = embeddinguc.Space{Embedder: e, Kind: kind}
	}
	return embeddinguc.NewRouter(spaces, cfg.Query.DefaultVector)
}

// buildEmbedder assembles the decorator chain: provider -> cached -> instrumented -> instruction.
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	kv db.KVStore,
	storage config.StorageConfig,
	logger *zap.Logger,
) (domain.Embedder, error) {
	var base domain.Embedder
	switch provCfg.Driver {
	case "langchain":
		lc, err := langchainEmb.NewEmbedder(&langchainEmb.Config{
			BaseURL:    provCfg.BaseURL,
			Token:      provCfg.APIKey,
			Model:      vecCfg.Model,
			Provider:   provName,
			WindowSize: vecCfg.WindowSize,
			BatchSize:  provCfg.BatchSize,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		base = lc
	default:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			Provider:   provName,
			WindowSize: vecCfg.WindowSize,
			Logger:     logger,
		})
	}

	embedder := base
	if kv != nil {
		embedder = embcache.New(base, kv, storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(storage.EmbeddingCacheTTL) * time.Second)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, vecCfg.Model, logger)

	// Instruction prefix is outermost, so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), nil
	}
	return embedder, nil
}

// NewPointsRepo creates the points repository over store.
func NewPointsRepo(store *dbRedis.Store, cfg config.Config, logger *zap.Logger) *points.Repo {
	return points.New(store, points.Options{
		KeyPrefix:           cfg.Storage.KeyPrefix,
		DefaultVector:       cfg.Query.DefaultVector,
		DefaultLimit:        cfg.Query.DefaultLimit,
		CandidateMultiplier: cfg.Query.CandidateMultiplier,
		RRFK:                cfg.Query.RRFK,
		HNSW: points.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
	}, logger)
}

// Limits returns the executor's request limits.
func Limits(cfg config.QueryConfig) request.Limits {
	return request.Limits{
		DefaultCollection: cfg.DefaultCollection,
		DefaultLimit:      cfg.DefaultLimit,
		MaxLimit:          cfg.MaxLimit,
	}
}

// CollectionSpec describes collection name with one vector space per
// vectorizer, sorted by name.
func CollectionSpec(cfg config.Config, name string, fields []points.FieldSpec) points.CollectionSpec {
	spec := points.CollectionSpec{Name: name, Fields: fields}
	for vname, vec := range cfg.Embedding.Vectorizers {
		kind := domain.SingleVector
		if vec.IsMulti() {
			kind = domain.MultiVector
		}
		spec.Vectors = append(spec.Vectors, points.VectorSpec{
			Name:      vname,
			Dim:       vec.Dimensions,
			Kind:      kind,
			Distance:  vec.Distance,
			Algorithm: vec.Algorithm,
		})
	}
	sort.Slice(spec.Vectors, func(i, j int) bool { return spec.Vectors[i].Name < spec.Vectors[j].Name })
	return spec
}

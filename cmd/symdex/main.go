package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/bootstrap"
	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/config"
	"github.com/kailas-cloud/symdex/internal/domain/graph"
	logpkg "github.com/kailas-cloud/symdex/internal/logger"
	"github.com/kailas-cloud/symdex/internal/metrics"
	chiTransport "github.com/kailas-cloud/symdex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/symdex/internal/usecase/health"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
	queryuc "github.com/kailas-cloud/symdex/internal/usecase/query"
	"github.com/kailas-cloud/symdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting symdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterQueryMetrics()
	metrics.RegisterHTTPMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := bootstrap.NewCatalog(ctx, cfg.Catalog, logger)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	if snap := cat.Current(); snap != nil {
		logger.Info("Catalog loaded",
			zap.String("file", cfg.Catalog.RelationshipsFile),
			zap.Int("components", snap.Table.Len()),
		)
	}
	if cfg.Catalog.Watch {
		go watchCatalog(ctx, cat, cfg.Catalog, logger)
	}

	store, err := bootstrap.NewStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("flavor", string(store.Flavor())))

	router, err := bootstrap.NewRouter(cfg, bootstrap.ForQuery, store, logger)
	if err != nil {
		logger.Fatal("Failed to create embedders", zap.Error(err))
	}
	logger.Info("Embedders created",
		zap.Strings("spaces", router.Names()),
		zap.String("default", router.Default()),
	)

	repo := bootstrap.NewPointsRepo(store, cfg, logger)
	if name := cfg.Query.DefaultCollection; name != "" {
		created, err := repo.EnsureCollection(ctx, bootstrap.CollectionSpec(cfg, name, nil))
		if err != nil {
			logger.Fatal("Failed to ensure default collection", zap.String("collection", name), zap.Error(err))
		}
		logger.Info("Default collection ready", zap.String("collection", name), zap.Bool("created", created))
	}

	builder := querybuild.NewDefault()
	executor := queryuc.New(builder, router, repo, bootstrap.Limits(cfg.Query), logger)
	healthSvc := healthuc.New(cat, store, router)

	server := chiTransport.NewServer(chiTransport.Deps{
		Catalog:           cat,
		RelationshipsFile: cfg.Catalog.RelationshipsFile,
		Builder:           builder,
		Executor:          executor,
		Health:            healthSvc,
		Paths: graph.PathOptions{
			MaxPaths: cfg.Query.MaxPaths,
			MaxDepth: cfg.Query.MaxPathDepth,
		},
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: chiTransport.NewRouter(server, chiTransport.RouterOptions{
			APIKeys: cfg.Auth.APIKeys,
			Metrics: true,
		}),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func watchCatalog(ctx context.Context, cat *catalog.Catalog, cfg config.CatalogConfig, logger *zap.Logger) {
	debounce := time.Duration(cfg.DebounceMS) * time.Millisecond
	if err := cat.Watch(ctx, cfg.RelationshipsFile, debounce); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Catalog watcher stopped", zap.Error(err))
	}
}

package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/domain/graph"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	healthuc "github.com/kailas-cloud/symdex/internal/usecase/health"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
	queryuc "github.com/kailas-cloud/symdex/internal/usecase/query"
)

// maxBodyBytes bounds request bodies; DSL fields are far smaller.
const maxBodyBytes = 1 << 20

// Catalog is the live component catalog the server reads and rebuilds.
type Catalog interface {
	Current() *catalog.Snapshot
	Rebuild(ctx context.Context, f catalog.File) (*catalog.Snapshot, error)
	Reload(ctx context.Context, path string) (*catalog.Snapshot, error)
}

// Executor runs hybrid queries.
type Executor interface {
	Execute(ctx context.Context, req request.Request) queryuc.Response
}

// Deps are the server's collaborators. Executor and Health may be nil; the
// matching routes then answer 501.
type Deps struct {
	Catalog Catalog
	// RelationshipsFile is reloaded by an empty-body rebuild request.
	RelationshipsFile string
	Builder           *querybuild.Service
	Executor          Executor
	Health            *healthuc.Service
	Pools             symbol.Pools
	Paths             graph.PathOptions
}

// Server serves the symdex HTTP API.
type Server struct {
	deps          Deps
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if deps.Pools.Size() == 0 {
		deps.Pools = symbol.DefaultPools()
	}
	deps.Pools = querybuild.ReserveSymbols(deps.Pools)
	if deps.Builder == nil {
		deps.Builder = querybuild.NewDefault()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:          deps,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/symbols", s.GenerateSymbols)
		r.Post("/dsl/parse", s.ParseDSL)
		r.Post("/dsl/validate", s.ValidateDSL)
		r.Post("/dsl/structure", s.GenerateStructure)
		r.Post("/query", s.ExecuteQuery)
		r.Get("/graph/{name}", s.GetComponent)
		r.Post("/catalog/rebuild", s.RebuildCatalog)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
}

// snapshot returns the live catalog snapshot or writes 503.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*catalog.Snapshot, bool) {
	var snap *catalog.Snapshot
	if s.deps.Catalog != nil {
		snap = s.deps.Catalog.Current()
	}
	if snap == nil {
		s.handleDomainError(w, r, errCatalogNotReady)
		return nil, false
	}
	return snap, true
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, healthuc.Report{Status: healthuc.Healthy})
		return
	}
	report := s.deps.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

package chi

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	logpkg "github.com/kailas-cloud/symdex/internal/logger"
)

// ExecuteQuery handles POST /v1/query.
func (s *Server) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	if s.deps.Executor == nil {
		s.handleDomainError(w, r, fmt.Errorf("query executor: %w", domain.ErrNotImplemented))
		return
	}
	var req QueryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp := s.deps.Executor.Execute(ctx, req.toDomain())
	w.Header().Set("X-Execution-ID", resp.ExecutionID)
	if calls, tokens := usage.Snapshot(); calls > 0 {
		w.Header().Set("X-Embedding-Calls", strconv.Itoa(calls))
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
	if resp.Error != nil {
		logpkg.FromContext(ctx, s.logger).Debug("query rejected",
			zap.String("execution_id", resp.ExecutionID),
			zap.Error(resp.Error),
		)
		s.handleDomainError(w, r, resp.Error)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Valid:       resp.Valid,
		Mode:        string(resp.Mode),
		ExecutionID: resp.ExecutionID,
		Results:     resp.Results,
		Built:       resp.Built,
		ElapsedMS:   resp.ElapsedMS,
	})
}

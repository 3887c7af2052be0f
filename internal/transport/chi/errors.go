package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	logpkg "github.com/kailas-cloud/symdex/internal/logger"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeNotFound          ErrorCode = "not_found"
	ErrorCodeParseError        ErrorCode = "parse_error"
	ErrorCodeUnresolvedSymbol  ErrorCode = "unresolved_symbol"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeQueryBuildFailed  ErrorCode = "query_build_failed"
	ErrorCodeSymbolsExhausted  ErrorCode = "symbol_space_exhausted"
	ErrorCodeUnsupportedVector ErrorCode = "unsupported_vector"
	ErrorCodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	ErrorCodeExecutionFailed   ErrorCode = "execution_failed"
	ErrorCodeCatalogNotReady   ErrorCode = "catalog_not_ready"
	ErrorCodeNotImplemented    ErrorCode = "not_implemented"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Symbol is set for unresolved_symbol errors.
	Symbol string `json:"symbol,omitempty"`
	// Issues lists parser issues for parse_error.
	Issues []string `json:"issues,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// errCatalogNotReady is returned before the first catalog build succeeds.
var errCatalogNotReady = errors.New("catalog not ready")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinels is checked in order; the first match names the client message.
var sentinels = []error{
	errCatalogNotReady,
	domain.ErrNotFound,
	domain.ErrInvalidRequest,
	domain.ErrParse,
	domain.ErrUnresolvedSymbol,
	domain.ErrValidation,
	domain.ErrQueryBuild,
	domain.ErrSymbolSpaceExhausted,
	domain.ErrUnsupportedVector,
	domain.ErrEmbeddingProviderError,
	domain.ErrNotImplemented,
	domain.ErrExecution,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// unresolvedSymbolHandler reports which symbol failed to resolve.
func unresolvedSymbolHandler(w http.ResponseWriter, err error, msg string) bool {
	var use *domain.UnresolvedSymbolError
	if !errors.As(err, &use) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Code:    ErrorCodeUnresolvedSymbol,
		Message: msg,
		Symbol:  use.Symbol,
	})
	return true
}

// parseErrorHandler reports parser issues of a failed Call DSL parse.
func parseErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var pe *querybuild.ParseError
	if !errors.As(err, &pe) {
		return false
	}
	issues := make([]string, len(pe.Issues))
	for i, is := range pe.Issues {
		issues[i] = is.String()
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    ErrorCodeParseError,
		Message: msg,
		Issues:  issues,
	})
	return true
}

// queryBuildHandler exposes the failing node; the cause stays in the logs.
func queryBuildHandler(w http.ResponseWriter, err error, msg string) bool {
	var qbe *domain.QueryBuildError
	if !errors.As(err, &qbe) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, ErrorCodeQueryBuildFailed, msg+": "+qbe.Node)
	return true
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(errCatalogNotReady, http.StatusServiceUnavailable, ErrorCodeCatalogNotReady),
		unresolvedSymbolHandler,
		parseErrorHandler,
		queryBuildHandler,
		sentinelHandler(domain.ErrParse, http.StatusBadRequest, ErrorCodeParseError),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrValidation, http.StatusUnprocessableEntity, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrSymbolSpaceExhausted, http.StatusUnprocessableEntity, ErrorCodeSymbolsExhausted),
		sentinelHandler(domain.ErrUnsupportedVector, http.StatusBadRequest, ErrorCodeUnsupportedVector),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
		sentinelHandler(domain.ErrExecution, http.StatusBadGateway, ErrorCodeExecutionFailed),
	}
}

// handleDomainError maps err to a response and logs it with the request's
// logger so the line carries its request_id.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

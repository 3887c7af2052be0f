package symdex

import (
	"errors"

	"github.com/kailas-cloud/symdex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrParse                  = domain.ErrParse
	ErrUnresolvedSymbol       = domain.ErrUnresolvedSymbol
	ErrValidation             = domain.ErrValidation
	ErrQueryBuild             = domain.ErrQueryBuild
	ErrExecution              = domain.ErrExecution
	ErrSymbolSpaceExhausted   = domain.ErrSymbolSpaceExhausted
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrUnsupportedVector      = domain.ErrUnsupportedVector
	ErrNotImplemented         = domain.ErrNotImplemented
)

// ErrNoStore is returned by operations that need a database when the client
// was created without WithValkey or WithRedis.
var ErrNoStore = errors.New("symdex: no database configured (use WithValkey or WithRedis)")

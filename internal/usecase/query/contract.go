package query

import (
	"context"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/search/result"
)

// Builder compiles Call DSL text into query objects.
type Builder interface {
	BuildString(text string) ([]any, error)
}

// Embedder embeds text for a named vector space.
type Embedder interface {
	EmbedFor(ctx context.Context, using, text string) (domain.EmbeddingResult, error)
}

// Repository runs compiled requests against the vector store.
type Repository interface {
	Query(ctx context.Context, req request.Compiled) ([]result.Item, error)
}

package symdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/symdex/internal/domain"
)

// Embedder converts text to a dense vector or, for multi-vector spaces, to
// one vector per token window.
type Embedder interface {
	Embed(ctx context.Context, text string, kind VectorKind) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding and token counts. Exactly one of
// Embedding and MultiEmbedding is set.
type EmbeddingResult struct {
	Embedding      []float32
	MultiEmbedding [][]float32
	PromptTokens   int
	TotalTokens    int
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string, kind domain.EmbeddingKind) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text, VectorKind(kind))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:      r.Embedding,
		MultiEmbedding: r.MultiEmbedding,
		PromptTokens:   r.PromptTokens,
		TotalTokens:    r.TotalTokens,
	}, nil
}

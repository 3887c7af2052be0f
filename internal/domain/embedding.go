package domain

import (
	"context"
	"fmt"
	"strings"
)

// EmbeddingKind selects the vector shape an embedder returns.
type EmbeddingKind string

// Embedding kinds.
const (
	// SingleVector yields one dense vector per text.
	SingleVector EmbeddingKind = "single-vector"
	// MultiVector yields one vector per token window (late interaction).
	MultiVector EmbeddingKind = "multi-vector"
)

// IsValid reports whether k is a known kind.
func (k EmbeddingKind) IsValid() bool {
	return k == SingleVector || k == MultiVector
}

// DefaultWindowSize is the number of words per multi-vector window.
const DefaultWindowSize = 4

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string, kind EmbeddingKind) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vectors and token usage through the decorator chain.
// Embedding is set for SingleVector, MultiEmbedding for MultiVector.
type EmbeddingResult struct {
	Embedding      []float32
	MultiEmbedding [][]float32
	PromptTokens   int
	TotalTokens    int
}

// Dimensions returns the vector width of the result, 0 when empty.
func (r EmbeddingResult) Dimensions() int {
	if len(r.Embedding) > 0 {
		return len(r.Embedding)
	}
	if len(r.MultiEmbedding) > 0 {
		return len(r.MultiEmbedding[0])
	}
	return 0
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Windows splits text into consecutive windows of size words. A text shorter
// than one window yields a single window; blank text yields none.
func Windows(text string, size int) []string {
	if size <= 0 {
		size = DefaultWindowSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	out := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := min(i+size, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// BatchFallback calls Embed once per text for providers without a native batch call.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text, SingleVector)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// EmbedWindows builds a multi-vector result from one batch call over the
// windows of text.
func EmbedWindows(ctx context.Context, e Embedder, text string, size int) (EmbeddingResult, error) {
	windows := Windows(text, size)
	if len(windows) == 0 {
		return EmbeddingResult{}, fmt.Errorf("multi-vector embed of blank text: %w", ErrInvalidRequest)
	}

	var (
		res BatchEmbeddingResult
		err error
	)
	if be, ok := e.(BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, windows)
	} else {
		res, err = BatchFallback(ctx, e, windows)
	}
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("embed windows: %w", err)
	}
	if len(res.Embeddings) != len(windows) {
		return EmbeddingResult{}, fmt.Errorf("embed windows: got %d vectors for %d windows: %w",
			len(res.Embeddings), len(windows), ErrEmbeddingProviderError)
	}

	return EmbeddingResult{
		MultiEmbedding: res.Embeddings,
		PromptTokens:   res.PromptTokens,
		TotalTokens:    res.TotalTokens,
	}, nil
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string, kind EmbeddingKind) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text, kind)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// BatchEmbed prepends instruction to each text and delegates to inner BatchEmbedder,
// falling back to one Embed per text.
func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}

	if be, ok := e.inner.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, prefixed)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
		}
		return res, nil
	}

	res, err := BatchFallback(ctx, e.inner, prefixed)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed fallback: %w", err)
	}
	return res, nil
}

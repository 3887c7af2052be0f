// Package langchain is an embedding driver built on langchaingo's embeddings
// package, for OpenAI-compatible endpoints served by local runtimes.
package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/metrics"
)

// Config holds the driver settings.
type Config struct {
	BaseURL string
	// Token defaults to "none" for local services without authentication.
	Token      string
	Model      string
	Provider   string
	WindowSize int
	BatchSize  int
	Logger     *zap.Logger
}

// Embedder implements domain.Embedder over a langchaingo embedder.
type Embedder struct {
	inner      embeddings.Embedder
	model      string
	provider   string
	windowSize int
	logger     *zap.Logger
}

// NewEmbedder creates a langchaingo-backed embedder.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	token := cfg.Token
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain client: %w", err)
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	inner, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}

	return New(inner, cfg), nil
}

// New wraps an existing langchaingo embedder.
func New(inner embeddings.Embedder, cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		inner:      inner,
		model:      cfg.Model,
		provider:   cfg.Provider,
		windowSize: cfg.WindowSize,
		logger:     logger,
	}
}

// Embed implements domain.Embedder. langchaingo reports no token usage, so
// the token fields stay zero.
func (e *Embedder) Embed(ctx context.Context, text string, kind domain.EmbeddingKind) (domain.EmbeddingResult, error) {
	if kind == domain.MultiVector {
		return domain.EmbedWindows(ctx, e, text, e.windowSize)
	}

	start := time.Now()
	vec, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		e.fail("api_error")
		return domain.EmbeddingResult{}, fmt.Errorf("langchain embed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	if len(vec) == 0 {
		e.fail("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	e.succeed(time.Since(start))

	return domain.EmbeddingResult{Embedding: vec}, nil
}

// BatchEmbed implements domain.BatchEmbedder via EmbedDocuments.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		e.fail("api_error")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("langchain batch embed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	if len(vecs) != len(texts) {
		e.fail("empty_response")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(vecs), len(texts), domain.ErrEmbeddingProviderError)
	}
	e.succeed(time.Since(start))

	e.logger.Debug("Batch embedding completed",
		zap.String("provider", e.provider),
		zap.Int("batch_size", len(texts)),
	)
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}

func (e *Embedder) fail(errType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, errType).Inc()
}

func (e *Embedder) succeed(d time.Duration) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(d.Seconds())
}

package langchain

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// fakeEmbedder satisfies langchaingo's embeddings.Embedder.
type fakeEmbedder struct {
	docs    []string
	queries []string
	err     error
	short   bool
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docs = append(f.docs, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5}
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestEmbedder(inner *fakeEmbedder) *Embedder {
	return New(inner, &Config{Model: "m", Provider: "local", WindowSize: 2, Logger: zap.NewNop()})
}

func TestEmbedder_SingleVector(t *testing.T) {
	inner := &fakeEmbedder{}
	res, err := newTestEmbedder(inner).Embed(context.Background(), "hello", domain.SingleVector)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 3 {
		t.Errorf("expected 3 dims, got %d", len(res.Embedding))
	}
	if len(inner.queries) != 1 || len(inner.docs) != 0 {
		t.Errorf("expected one EmbedQuery call, got queries=%v docs=%v", inner.queries, inner.docs)
	}
}

func TestEmbedder_MultiVector(t *testing.T) {
	inner := &fakeEmbedder{}
	res, err := newTestEmbedder(inner).Embed(context.Background(), "a b c", domain.MultiVector)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MultiEmbedding) != 2 {
		t.Fatalf("expected 2 window vectors, got %d", len(res.MultiEmbedding))
	}
	if len(inner.docs) != 2 || inner.docs[0] != "a b" || inner.docs[1] != "c" {
		t.Errorf("unexpected windows: %v", inner.docs)
	}
}

func TestEmbedder_ProviderError(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("connection refused")}
	_, err := newTestEmbedder(inner).Embed(context.Background(), "x", domain.SingleVector)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestEmbedder_BatchCountMismatch(t *testing.T) {
	inner := &fakeEmbedder{short: true}
	_, err := newTestEmbedder(inner).BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestEmbedder_BatchEmpty(t *testing.T) {
	inner := &fakeEmbedder{}
	res, err := newTestEmbedder(inner).BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || len(inner.docs) != 0 {
		t.Errorf("expected no call for empty input")
	}
}

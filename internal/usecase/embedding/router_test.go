package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/symdex/internal/domain"
)

type healthEmbedder struct {
	mockEmbedder
	checks int
	err    error
}

func (h *healthEmbedder) HealthCheck(context.Context) error {
	h.checks++
	return h.err
}

func TestRouter_EmbedForUsesSpaceKind(t *testing.T) {
	dense := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	colbert := &mockEmbedder{result: domain.EmbeddingResult{MultiEmbedding: [][]float32{{1}, {2}}}}

	r, err := NewRouter(map[string]Space{
		"dense":   {Embedder: dense},
		"colbert": {Embedder: colbert, Kind: domain.MultiVector},
	}, "dense")
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	if _, err := r.EmbedFor(context.Background(), "", "q"); err != nil {
		t.Fatalf("default space: %v", err)
	}
	if dense.kinds[0] != domain.SingleVector {
		t.Errorf("expected single-vector default kind, got %q", dense.kinds[0])
	}

	res, err := r.EmbedFor(context.Background(), "colbert", "q")
	if err != nil {
		t.Fatalf("colbert space: %v", err)
	}
	if len(res.MultiEmbedding) != 2 || colbert.kinds[0] != domain.MultiVector {
		t.Errorf("expected multi-vector embedding, got %+v kinds=%v", res, colbert.kinds)
	}

	kind, err := r.Kind("colbert")
	if err != nil || kind != domain.MultiVector {
		t.Errorf("Kind(colbert) = %q, %v", kind, err)
	}
	if got := r.Names(); len(got) != 2 || got[0] != "colbert" {
		t.Errorf("Names() = %v", got)
	}
}

func TestRouter_UnknownSpace(t *testing.T) {
	r, err := NewRouter(map[string]Space{"dense": {Embedder: &mockEmbedder{}}}, "dense")
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	_, err = r.EmbedFor(context.Background(), "sparse", "q")
	if !errors.Is(err, domain.ErrUnsupportedVector) {
		t.Errorf("expected ErrUnsupportedVector, got %v", err)
	}
}

func TestNewRouter_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		spaces map[string]Space
		def    string
	}{
		{"empty", nil, ""},
		{"nil embedder", map[string]Space{"dense": {}}, "dense"},
		{"bad kind", map[string]Space{"dense": {Embedder: &mockEmbedder{}, Kind: "sparse"}}, "dense"},
		{"missing default", map[string]Space{"dense": {Embedder: &mockEmbedder{}}}, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRouter(tt.spaces, tt.def); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRouter_HealthCheckOncePerEmbedder(t *testing.T) {
	shared := &healthEmbedder{}
	r, err := NewRouter(map[string]Space{
		"a": {Embedder: shared},
		"b": {Embedder: shared, Kind: domain.MultiVector},
	}, "a")
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if err := r.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if shared.checks != 1 {
		t.Errorf("expected 1 check, got %d", shared.checks)
	}

	shared.err = errors.New("down")
	if err := r.HealthCheck(context.Background()); err == nil {
		t.Error("expected error")
	}
}

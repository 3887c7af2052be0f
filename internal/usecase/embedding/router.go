package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/symdex/internal/domain"
)

// Space is one named vector space and the embedder that fills it.
type Space struct {
	Embedder domain.Embedder
	Kind     domain.EmbeddingKind
}

// Router picks the embedder and kind for a vector space name. The empty name
// selects the default space. A Router is read-only after construction.
type Router struct {
	spaces map[string]Space
	def    string
}

// NewRouter creates a router over spaces. def must name one of them.
func NewRouter(spaces map[string]Space, def string) (*Router, error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("router: no vector spaces: %w", domain.ErrInvalidRequest)
	}
	out := make(map[string]Space, len(spaces))
	for name, s := range spaces {
		if s.Embedder == nil {
			return nil, fmt.Errorf("router: space %q has no embedder: %w", name, domain.ErrInvalidRequest)
		}
		if s.Kind == "" {
			s.Kind = domain.SingleVector
		}
		if !s.Kind.IsValid() {
			return nil, fmt.Errorf("router: space %q has unknown kind %q: %w", name, s.Kind, domain.ErrInvalidRequest)
		}
		out[name] = s
	}
	if _, ok := out[def]; !ok {
		return nil, fmt.Errorf("router: default space %q: %w", def, domain.ErrUnsupportedVector)
	}
	return &Router{spaces: out, def: def}, nil
}

// Default returns the default space name.
func (r *Router) Default() string { return r.def }

// Names returns the configured space names, sorted.
func (r *Router) Names() []string {
	out := make([]string, 0, len(r.spaces))
	for n := range r.spaces {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Kind returns the embedding kind of a space.
func (r *Router) Kind(using string) (domain.EmbeddingKind, error) {
	s, err := r.space(using)
	if err != nil {
		return "", err
	}
	return s.Kind, nil
}

// EmbedFor embeds text with the embedder and kind of space using.
func (r *Router) EmbedFor(ctx context.Context, using, text string) (domain.EmbeddingResult, error) {
	s, err := r.space(using)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	res, err := s.Embedder.Embed(ctx, text, s.Kind)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed for %q: %w", r.name(using), err)
	}
	return res, nil
}

// Embed implements domain.Embedder against the default space; kind overrides
// the space's own kind.
func (r *Router) Embed(ctx context.Context, text string, kind domain.EmbeddingKind) (domain.EmbeddingResult, error) {
	s := r.spaces[r.def]
	return s.Embedder.Embed(ctx, text, kind)
}

// HealthCheck checks every distinct embedder that supports it.
func (r *Router) HealthCheck(ctx context.Context) error {
	seen := make(map[domain.Embedder]bool)
	for _, name := range r.Names() {
		e := r.spaces[name].Embedder
		if seen[e] {
			continue
		}
		seen[e] = true
		if hc, ok := e.(domain.HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				return fmt.Errorf("space %q: %w", name, err)
			}
		}
	}
	return nil
}

func (r *Router) name(using string) string {
	if using == "" {
		return r.def
	}
	return using
}

func (r *Router) space(using string) (Space, error) {
	s, ok := r.spaces[r.name(using)]
	if !ok {
		return Space{}, fmt.Errorf("vector space %q: %w", using, domain.ErrUnsupportedVector)
	}
	return s, nil
}

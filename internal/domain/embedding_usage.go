package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage tallies the embedding calls one query execution made. The
// transport attaches it to the context, the executor records into it, and the
// transport reports it in response headers. Safe for concurrent use.
type EmbeddingUsage struct {
	mu     sync.Mutex
	calls  int
	tokens int
}

// NewContextWithUsage returns ctx carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector in ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record counts one embedding call. A cache hit records zero tokens. Nil
// receivers ignore the call.
func (u *EmbeddingUsage) Record(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.calls++
	u.tokens += tokens
	u.mu.Unlock()
}

// Snapshot returns the calls and tokens recorded so far.
func (u *EmbeddingUsage) Snapshot() (calls, tokens int) {
	if u == nil {
		return 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls, u.tokens
}

package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings in a key-value store. Keys carry the
// embedding kind, so single- and multi-vector results never collide.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	prefix     string
	cacheTotal *prometheus.CounterVec
	ttl        time.Duration
	logger     *zap.Logger
}

// New creates a caching decorator. keyPrefix is the storage key prefix
// (e.g. "symdex:"); cacheTotal is a counter vec with label "result"
// ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	s store,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		prefix:     keyPrefix + "emb_cache:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithTTL makes cached entries expire after ttl. Zero keeps them forever.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	c.ttl = ttl
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string, kind domain.EmbeddingKind) (domain.EmbeddingResult, error) {
	key := c.cacheKey(kind, text)

	if res, ok := c.getFromCache(ctx, key, kind); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text, kind)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if kind == domain.MultiVector {
		c.putToCache(ctx, key, multiToCacheBytes(result.MultiEmbedding))
	} else {
		c.putToCache(ctx, key, vectorToCacheBytes(result.Embedding))
	}
	return result, nil
}

// BatchEmbed serves cached single-vector texts and sends only the misses
// to the inner embedder, in one call.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = c.cacheKey(domain.SingleVector, text)
		if res, ok := c.getFromCache(ctx, keys[i], domain.SingleVector); ok {
			c.incCache("hit")
			out[i] = res.Embedding
			continue
		}
		c.incCache("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, missTexts)
	} else {
		res, err = domain.BatchFallback(ctx, c.inner, missTexts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed misses: %w", err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed misses: got %d vectors for %d texts: %w",
			len(res.Embeddings), len(missTexts), domain.ErrEmbeddingProviderError)
	}

	for j, i := range missIdx {
		out[i] = res.Embeddings[j]
		c.putToCache(ctx, keys[i], vectorToCacheBytes(res.Embeddings[j]))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(kind domain.EmbeddingKind, text string) string {
	h := sha256.Sum256([]byte(text))
	return c.prefix + string(kind) + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string, kind domain.EmbeddingKind) (domain.EmbeddingResult, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return domain.EmbeddingResult{}, false
	}
	if len(data) == 0 {
		return domain.EmbeddingResult{}, false
	}

	if kind == domain.MultiVector {
		rows, err := bytesToMulti(data)
		if err != nil {
			c.logger.Warn("Failed to parse cached multi-vector", zap.String("key", key), zap.Error(err))
			return domain.EmbeddingResult{}, false
		}
		return domain.EmbeddingResult{MultiEmbedding: rows}, true
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return domain.EmbeddingResult{}, false
	}
	return domain.EmbeddingResult{Embedding: vec}, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, data []byte) {
	if len(data) == 0 {
		return
	}
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// multiToCacheBytes writes a uint32 row count, a uint32 width, then the rows.
func multiToCacheBytes(rows [][]float32) []byte {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	buf := make([]byte, 8, 8+len(rows)*dim*4)
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(rows)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(dim))
	for _, r := range rows {
		buf = append(buf, vectorToCacheBytes(r)...)
	}
	return buf
}

func bytesToMulti(data []byte) ([][]float32, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("invalid multi-vector cache data: len=%d", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data[0:]))
	dim := int(binary.LittleEndian.Uint32(data[4:]))
	if n == 0 || dim == 0 || len(data)-8 != n*dim*4 {
		return nil, fmt.Errorf("invalid multi-vector cache data: %d rows of %d over %d bytes", n, dim, len(data)-8)
	}
	flat, err := bytesToVector(data[8:])
	if err != nil {
		return nil, err
	}
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = flat[i*dim : (i+1)*dim]
	}
	return rows, nil
}

package points

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain"
)

// HNSWConfig holds graph build parameters for HNSW vector fields.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// VectorSpec describes one named vector space of a collection.
type VectorSpec struct {
	Name string
	Dim  int
	// Kind is single-vector (indexed for KNN) or multi-vector (stored only,
	// scored client-side by late interaction).
	Kind     domain.EmbeddingKind
	Distance string
	// Algorithm is HNSW or FLAT; empty means HNSW.
	Algorithm string
}

// FieldSpec declares a filterable payload field: tag, numeric or text.
type FieldSpec struct {
	Name string
	Type string
}

// CollectionSpec is the index layout of a collection.
type CollectionSpec struct {
	Name    string
	Vectors []VectorSpec
	Fields  []FieldSpec
}

// EnsureCollection creates the collection index unless it already exists.
// It reports whether the index was created.
func (r *Repo) EnsureCollection(ctx context.Context, spec CollectionSpec) (bool, error) {
	def, err := r.buildIndex(spec)
	if err != nil {
		return false, err
	}

	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", def.Name, err)
	}
	if exists {
		return false, nil
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	r.logger.Info("collection index created", zap.String("collection", spec.Name), zap.String("index", def.Name))
	return true, nil
}

// deleteBatch bounds the keys sent in one DEL.
const deleteBatch = 500

// DropCollection removes the collection index and every point hash under the
// collection prefix. Dropping an absent collection is not an error.
func (r *Repo) DropCollection(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required: %w", domain.ErrInvalidRequest)
	}
	if err := r.store.DropIndex(ctx, r.keys.index(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}

	keys, err := r.store.Scan(ctx, r.keys.collectionPrefix(name)+"*")
	if err != nil {
		return fmt.Errorf("scan %s: %w", name, err)
	}
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		if err := r.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	r.logger.Info("collection dropped", zap.String("collection", name), zap.Int("points", len(keys)))
	return nil
}

// buildIndex maps a collection spec to an FT index definition. Text fields
// are dropped by the store when the backend cannot index them.
func (r *Repo) buildIndex(spec CollectionSpec) (*db.IndexDefinition, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("collection name is required: %w", domain.ErrInvalidRequest)
	}

	b := db.NewIndex(r.keys.index(spec.Name)).
		Prefix(r.keys.collectionPrefix(spec.Name)).
		Tag(db.FieldID)

	for _, f := range spec.Fields {
		ft, err := db.ParseFieldType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w: %w", f.Name, err, domain.ErrInvalidRequest)
		}
		b.Field(f.Name, ft)
	}

	for _, v := range spec.Vectors {
		if v.Kind == domain.MultiVector {
			continue
		}
		dist, err := db.ParseDistance(v.Distance)
		if err != nil {
			return nil, fmt.Errorf("vector %q: %w: %w", v.Name, err, domain.ErrInvalidRequest)
		}
		switch v.Algorithm {
		case "", "hnsw", "HNSW":
			b.VectorHNSW(v.Name, v.Dim, dist, r.hnsw.M, r.hnsw.EFConstruct)
		case "flat", "FLAT":
			b.VectorFlat(v.Name, v.Dim, dist, 0)
		default:
			return nil, fmt.Errorf("vector %q: unknown algorithm %q: %w", v.Name, v.Algorithm, domain.ErrInvalidRequest)
		}
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w: %w", spec.Name, err, domain.ErrInvalidRequest)
	}
	return def, nil
}

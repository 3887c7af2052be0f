package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/symdex/internal/bootstrap"
	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/repository/points"
)

// pointsFile is the YAML (or JSON) input of the load command.
type pointsFile struct {
	Collection string       `yaml:"collection"`
	Fields     []fieldEntry `yaml:"fields"`
	Points     []pointEntry `yaml:"points"`
}

type fieldEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// pointEntry is one point. Texts overrides Text per vector space.
type pointEntry struct {
	ID           string                 `yaml:"id"`
	Text         string                 `yaml:"text"`
	Texts        map[string]string      `yaml:"texts"`
	Payload      map[string]any         `yaml:"payload"`
	Vectors      map[string][]float32   `yaml:"vectors"`
	MultiVectors map[string][][]float32 `yaml:"multi_vectors"`
}

// spaceEmbedder embeds text into named vector spaces.
type spaceEmbedder interface {
	Names() []string
	Kind(using string) (domain.EmbeddingKind, error)
	EmbedFor(ctx context.Context, using, text string) (domain.EmbeddingResult, error)
}

func readPointsFile(path string) (pointsFile, error) {
	var f pointsFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Points) == 0 {
		return f, fmt.Errorf("%s: no points", path)
	}
	return f, nil
}

func newLoadCommand(a *app) *cobra.Command {
	var (
		collection  string
		concurrency int
		batchSize   int
		recreate    bool
	)

	cmd := &cobra.Command{
		Use:   "load <points.yaml>",
		Short: "Embed and upsert points into a collection",
		Long: `Load points from a YAML or JSON file. Every configured vector space a point
has no vector for is embedded from the point's text. The collection index is
created first when it does not exist; --recreate drops the collection and
its points before loading.`,
		Example: `  symdexctl load --config config/local.yaml testdata/points.yaml
  symdexctl load -c products --concurrency 8 points.json
  symdexctl load --recreate testdata/points.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 || batchSize < 1 {
				return fmt.Errorf("--concurrency and --batch-size must be positive")
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			pf, err := readPointsFile(args[0])
			if err != nil {
				return err
			}
			if collection == "" {
				collection = pf.Collection
			}
			if collection == "" {
				collection = cfg.Query.DefaultCollection
			}
			if collection == "" {
				return fmt.Errorf("no collection: pass --collection or set it in the file")
			}

			ctx := cmd.Context()
			store, err := bootstrap.NewStore(cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
				return fmt.Errorf("database not ready: %w", err)
			}

			router, err := bootstrap.NewRouter(cfg, bootstrap.ForDocument, store, a.logger)
			if err != nil {
				return err
			}
			pts, err := embedPoints(ctx, router, pf.Points, concurrency, a.logger)
			if err != nil {
				return err
			}

			fields := make([]points.FieldSpec, len(pf.Fields))
			for i, fe := range pf.Fields {
				fields[i] = points.FieldSpec{Name: fe.Name, Type: fe.Type}
			}
			repo := bootstrap.NewPointsRepo(store, cfg, a.logger)
			if recreate {
				if err := repo.DropCollection(ctx, collection); err != nil {
					return err
				}
			}
			created, err := repo.EnsureCollection(ctx, bootstrap.CollectionSpec(cfg, collection, fields))
			if err != nil {
				return err
			}

			for start := 0; start < len(pts); start += batchSize {
				end := min(start+batchSize, len(pts))
				if err := repo.Upsert(ctx, collection, pts[start:end]); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				return renderJSON(w, map[string]any{
					"collection": collection,
					"created":    created,
					"points":     len(pts),
				})
			}
			_, _ = fmt.Fprintf(w, "loaded %d points into %s", len(pts), collection)
			if created {
				_, _ = fmt.Fprint(w, " (collection created)")
			}
			_, _ = fmt.Fprintln(w)
			return nil
		},
	}
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "target collection (default: file, then query.default_collection)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel embedding requests")
	cmd.Flags().IntVar(&batchSize, "batch-size", 256, "points per upsert round trip")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop the collection and its points first")
	return cmd
}

// embedPoints fills every vector space a point lacks from its text, with at
// most concurrency embedding calls in flight. Points keep input order.
func embedPoints(
	ctx context.Context,
	emb spaceEmbedder,
	entries []pointEntry,
	concurrency int,
	logger *zap.Logger,
) ([]points.Point, error) {
	out := make([]points.Point, len(entries))
	for i, e := range entries {
		out[i] = points.Point{
			ID:           e.ID,
			Payload:      e.Payload,
			Vectors:      e.Vectors,
			MultiVectors: e.MultiVectors,
		}
		if out[i].Vectors == nil {
			out[i].Vectors = make(map[string][]float32)
		}
		if out[i].MultiVectors == nil {
			out[i].MultiVectors = make(map[string][][]float32)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	embedded := 0
	for i, e := range entries {
		i, e := i, e
		for _, space := range emb.Names() {
			space := space
			if _, ok := e.Vectors[space]; ok {
				continue
			}
			if _, ok := e.MultiVectors[space]; ok {
				continue
			}
			text := e.Text
			if t, ok := e.Texts[space]; ok {
				text = t
			}
			if text == "" {
				continue
			}
			kind, err := emb.Kind(space)
			if err != nil {
				return nil, err
			}

			embedded++
			g.Go(func() error {
				res, err := emb.EmbedFor(gctx, space, text)
				if err != nil {
					return fmt.Errorf("point %s: %w", e.ID, err)
				}
				mu.Lock()
				defer mu.Unlock()
				if kind == domain.MultiVector {
					out[i].MultiVectors[space] = res.MultiEmbedding
				} else {
					out[i].Vectors[space] = res.Embedding
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("points embedded", zap.Int("points", len(out)), zap.Int("embeddings", embedded))
	return out, nil
}

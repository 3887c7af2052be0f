// Package query executes symdex requests: it builds the DSL, embeds query
// text and runs the compiled request against the store.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/mode"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/search/result"
	"github.com/kailas-cloud/symdex/internal/metrics"
)

// Built holds constructor-call renderings of the compiled request.
type Built struct {
	Filter   string `json:"filter,omitempty"`
	Query    string `json:"query,omitempty"`
	Prefetch string `json:"prefetch,omitempty"`
}

// Response is the outcome of Execute. Failures are reported in Error, never
// returned.
type Response struct {
	Valid       bool
	Mode        mode.Mode
	ExecutionID string
	Results     []result.Item
	Built       Built
	Error       error
	ElapsedMS   float64
}

// Service is the query executor.
type Service struct {
	builder Builder
	embed   Embedder
	repo    Repository
	limits  request.Limits
	logger  *zap.Logger
}

// New creates an executor. embed may be nil when only scroll, prefetch over
// vectors and dry runs are needed.
func New(builder Builder, embed Embedder, repo Repository, limits request.Limits, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		builder: builder,
		embed:   embed,
		repo:    repo,
		limits:  limits,
		logger:  logger.Named("executor"),
	}
}

// Execute runs one request end to end.
func (s *Service) Execute(ctx context.Context, req request.Request) Response {
	start := time.Now()
	resp := Response{ExecutionID: uuid.NewString()}

	results, err := s.execute(ctx, req, &resp)
	resp.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000
	resp.Error = err
	resp.Valid = err == nil
	if err == nil && !req.DryRun {
		resp.Results = results
		if resp.Results == nil {
			resp.Results = []result.Item{}
		}
	}

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case req.DryRun:
		status = "dry_run"
	}
	if resp.Mode != "" {
		metrics.QueryExecutionsTotal.WithLabelValues(string(resp.Mode), status).Inc()
		metrics.QueryDuration.WithLabelValues(string(resp.Mode)).Observe(time.Since(start).Seconds())
	}

	fields := []zap.Field{
		zap.String("execution_id", resp.ExecutionID),
		zap.String("mode", string(resp.Mode)),
		zap.String("collection", req.Collection),
		zap.Float64("elapsed_ms", resp.ElapsedMS),
		zap.Int("results", len(resp.Results)),
		zap.Bool("dry_run", req.DryRun),
	}
	if err != nil {
		s.logger.Warn("query failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("query executed", fields...)
	}
	return resp
}

func (s *Service) execute(ctx context.Context, raw request.Request, resp *Response) ([]result.Item, error) {
	req, err := raw.Normalize(s.limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	resp.Mode = req.Mode()

	compiled, err := s.compile(req)
	if err != nil {
		return nil, err
	}
	resp.Built = render(req, compiled)
	if req.DryRun {
		return nil, nil
	}

	if err := s.embedAll(ctx, &compiled); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewExecutionError("store", err)
	}
	items, err := s.repo.Query(ctx, compiled)
	if err != nil {
		return nil, domain.NewExecutionError("store", err)
	}
	return items, nil
}

// compile builds the filter, query and prefetch DSL of req. Vector mode
// leaves a text Nearest for embedAll to fill.
func (s *Service) compile(req request.Request) (request.Compiled, error) {
	c := request.Compiled{
		Collection:     req.Collection,
		Using:          req.Using,
		Limit:          req.Limit,
		ScoreThreshold: req.ScoreThreshold,
	}

	if req.FilterDSL != "" {
		f, err := s.buildFilter(req.FilterDSL)
		if err != nil {
			return request.Compiled{}, err
		}
		c.Filter = f
	}

	switch req.Mode() {
	case mode.Advanced:
		q, err := s.buildQuery(req.QueryDSL)
		if err != nil {
			return request.Compiled{}, err
		}
		c.Query = q
	case mode.Vector:
		in, err := query.FromText(req.QueryText)
		if err != nil {
			return request.Compiled{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		c.Query = query.NewNearest(in)
	}

	if req.PrefetchDSL != "" {
		ps, err := s.buildPrefetch(req.PrefetchDSL)
		if err != nil {
			return request.Compiled{}, err
		}
		c.Prefetch = ps
	}
	return c, nil
}

func (s *Service) buildFilter(text string) (filter.Expression, error) {
	objs, err := s.builder.BuildString(text)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter: %w", err)
	}
	if len(objs) != 1 {
		return filter.Expression{}, buildErr("filter", text, fmt.Errorf("expected one Filter, got %d roots", len(objs)))
	}
	switch f := objs[0].(type) {
	case filter.Expression:
		return f, nil
	case *filter.Expression:
		return *f, nil
	}
	return filter.Expression{}, buildErr("filter", text, fmt.Errorf("expected Filter, got %T", objs[0]))
}

func (s *Service) buildQuery(text string) (query.Query, error) {
	objs, err := s.builder.BuildString(text)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(objs) != 1 {
		return nil, buildErr("query", text, fmt.Errorf("expected one query, got %d roots", len(objs)))
	}
	q, ok := objs[0].(query.Query)
	if !ok {
		return nil, buildErr("query", text, fmt.Errorf("expected a query object, got %T", objs[0]))
	}
	return q, nil
}

func (s *Service) buildPrefetch(text string) ([]query.Prefetch, error) {
	objs, err := s.builder.BuildString(text)
	if err != nil {
		return nil, fmt.Errorf("prefetch: %w", err)
	}
	out := make([]query.Prefetch, 0, len(objs))
	for i, o := range objs {
		p, ok := o.(query.Prefetch)
		if !ok {
			return nil, buildErr("prefetch", text, fmt.Errorf("root %d: expected Prefetch, got %T", i, o))
		}
		out = append(out, p)
	}
	return out, nil
}

func buildErr(part, text string, cause error) error {
	return fmt.Errorf("%s: %w", part, &domain.QueryBuildError{Node: text, Cause: cause})
}

// embedAll replaces every text input in the compiled request with its
// embedding, using the vector space of the stage that holds it.
func (s *Service) embedAll(ctx context.Context, c *request.Compiled) error {
	if c.Query != nil {
		q, err := c.Query.MapInputs(func(in query.VectorInput) (query.VectorInput, error) {
			return s.embedInput(ctx, c.Using, in)
		})
		if err != nil {
			return err
		}
		c.Query = q
	}
	for i, p := range c.Prefetch {
		mapped, err := p.MapInputs(func(using string, in query.VectorInput) (query.VectorInput, error) {
			return s.embedInput(ctx, using, in)
		})
		if err != nil {
			return err
		}
		c.Prefetch[i] = mapped
	}
	return nil
}

func (s *Service) embedInput(ctx context.Context, using string, in query.VectorInput) (query.VectorInput, error) {
	if !in.NeedsEmbedding() {
		return in, nil
	}
	if s.embed == nil {
		return query.VectorInput{}, domain.NewExecutionError("embed", errors.New("no embedder configured"))
	}
	res, err := s.embed.EmbedFor(ctx, using, in.Text())
	if err != nil {
		return query.VectorInput{}, domain.NewExecutionError("embed", err)
	}
	domain.UsageFromContext(ctx).Record(res.TotalTokens)
	var out query.VectorInput
	if len(res.MultiEmbedding) > 0 {
		out, err = query.FromMulti(res.MultiEmbedding)
	} else {
		out, err = query.FromDense(res.Embedding)
	}
	if err != nil {
		return query.VectorInput{}, domain.NewExecutionError("embed", fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err))
	}
	return out, nil
}

// render always shows a supplied filter, even one without conditions.
func render(req request.Request, c request.Compiled) Built {
	var b Built
	if req.FilterDSL != "" {
		b.Filter = c.Filter.String()
	}
	if c.Query != nil {
		b.Query = c.Query.String()
	}
	if len(c.Prefetch) > 0 {
		b.Prefetch = query.PrefetchList(c.Prefetch)
	}
	return b
}

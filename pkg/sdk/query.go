package symdex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kailas-cloud/symdex/internal/domain/search/request"
)

// Query compiles and runs one hybrid query. DryRun compiles only and works
// offline.
func (c *Client) Query(ctx context.Context, req QueryRequest) (res QueryResult, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, "query", start, err,
			slog.String("collection", req.Collection),
			slog.String("mode", res.Mode),
			slog.String("execution_id", res.ExecutionID),
		)
		if err == nil && !req.DryRun {
			c.obs.observeHits(len(res.Hits))
		}
	}()

	if c.points == nil && !req.DryRun {
		return QueryResult{}, ErrNoStore
	}

	resp := c.executor.Execute(ctx, request.Request{
		Collection:     req.Collection,
		FilterDSL:      req.Filter,
		QueryText:      req.Text,
		QueryDSL:       req.QueryDSL,
		PrefetchDSL:    req.Prefetch,
		Using:          req.Using,
		Limit:          req.Limit,
		ScoreThreshold: req.ScoreThreshold,
		DryRun:         req.DryRun,
	})
	res = QueryResult{
		Mode:        string(resp.Mode),
		ExecutionID: resp.ExecutionID,
		Filter:      resp.Built.Filter,
		Query:       resp.Built.Query,
		Prefetch:    resp.Built.Prefetch,
		ElapsedMS:   resp.ElapsedMS,
	}
	if resp.Error != nil {
		return res, fmt.Errorf("query: %w", resp.Error)
	}

	res.Hits = make([]Hit, len(resp.Results))
	for i, it := range resp.Results {
		res.Hits[i] = Hit{ID: it.ID, Score: it.Score, Payload: it.Payload, SourceVector: it.SourceVector}
	}
	return res, nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/symdex/internal/bootstrap"
	"github.com/kailas-cloud/symdex/internal/config"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	chiTransport "github.com/kailas-cloud/symdex/internal/transport/chi"
	queryuc "github.com/kailas-cloud/symdex/internal/usecase/query"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
)

type queryFlags struct {
	req       chiTransport.QueryRequest
	threshold float64
	addr      string
	apiKey    string
	timeout   time.Duration
}

func newQueryCommand(a *app) *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Compile and run a hybrid query",
		Long: `Compile filter, query and prefetch Call DSL into a search request. Without
--addr the request is compiled locally as a dry run and its constructor
renderings are printed. With --addr it is sent to a running symdex server.`,
		Example: `  symdexctl query --filter 'ƒ{must=[ʄ{key="lang", match=☆{value="go"}}]}' "connection pool"
  symdexctl query --addr http://localhost:8080 --prefetch 'ℙ{query=ɳ{text="pool"}, using="dense"}, ℙ{query=ɳ{text="pool"}, using="inputs"}' --query-dsl '⊕{fusion="rrf"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				f.req.Query = strings.Join(args, " ")
			}
			if cmd.Flags().Changed("score-threshold") {
				f.req.ScoreThreshold = &f.threshold
			}

			var (
				out chiTransport.QueryResponse
				err error
			)
			if f.addr != "" {
				out, err = remoteQuery(cmd.Context(), f)
			} else {
				out, err = a.localQuery(cmd.Context(), f.req)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				return renderJSON(w, out)
			}
			renderQuery(w, out)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.req.Collection, "collection", "c", "", "collection (default: query.default_collection)")
	fl.StringVar(&f.req.Filter, "filter", "", "filter Call DSL")
	fl.StringVar(&f.req.QueryDSL, "query-dsl", "", "query Call DSL")
	fl.StringVar(&f.req.Prefetch, "prefetch", "", "prefetch Call DSL")
	fl.StringVar(&f.req.Using, "using", "", "vector space (default: query.default_vector)")
	fl.IntVarP(&f.req.Limit, "limit", "n", 0, "result limit")
	fl.Float64Var(&f.threshold, "score-threshold", 0, "minimum score")
	fl.BoolVar(&f.req.DryRun, "dry-run", false, "compile only (always on without --addr)")
	fl.StringVar(&f.addr, "addr", "", "symdex server base URL")
	fl.StringVar(&f.apiKey, "api-key", "", "bearer API key for --addr")
	fl.DurationVar(&f.timeout, "timeout", 30*time.Second, "request timeout for --addr")
	return cmd
}

// localQuery compiles req without a store or embedder.
func (a *app) localQuery(ctx context.Context, qr chiTransport.QueryRequest) (chiTransport.QueryResponse, error) {
	limits := request.Limits{}
	if cfg, err := a.config(); err == nil {
		limits = bootstrap.Limits(cfg.Query)
	} else {
		limits = bootstrap.Limits(config.QueryConfig{DefaultCollection: "default"})
	}

	req := request.Request{
		Collection:     qr.Collection,
		FilterDSL:      qr.Filter,
		QueryText:      qr.Query,
		QueryDSL:       qr.QueryDSL,
		PrefetchDSL:    qr.Prefetch,
		Using:          qr.Using,
		Limit:          qr.Limit,
		ScoreThreshold: qr.ScoreThreshold,
		DryRun:         true,
	}
	resp := queryuc.New(querybuild.NewDefault(), nil, nil, limits, a.logger).Execute(ctx, req)
	if resp.Error != nil {
		return chiTransport.QueryResponse{}, resp.Error
	}
	return chiTransport.QueryResponse{
		Valid:       resp.Valid,
		Mode:        string(resp.Mode),
		ExecutionID: resp.ExecutionID,
		Built:       resp.Built,
		ElapsedMS:   resp.ElapsedMS,
	}, nil
}

func remoteQuery(ctx context.Context, f queryFlags) (chiTransport.QueryResponse, error) {
	var out chiTransport.QueryResponse

	body, err := json.Marshal(f.req)
	if err != nil {
		return out, fmt.Errorf("marshal request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := strings.TrimRight(f.addr, "/") + "/v1/query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("query %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e chiTransport.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			if len(e.Issues) > 0 {
				return out, fmt.Errorf("%s (%d): %s: %s", e.Code, resp.StatusCode, e.Message, strings.Join(e.Issues, "; "))
			}
			return out, fmt.Errorf("%s (%d): %s", e.Code, resp.StatusCode, e.Message)
		}
		return out, fmt.Errorf("query failed: %s", resp.Status)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func renderQuery(w io.Writer, out chiTransport.QueryResponse) {
	_, _ = fmt.Fprintf(w, "mode: %s  execution: %s  elapsed: %.2fms\n", out.Mode, out.ExecutionID, out.ElapsedMS)
	if out.Built.Filter != "" {
		_, _ = fmt.Fprintf(w, "filter:   %s\n", out.Built.Filter)
	}
	if out.Built.Query != "" {
		_, _ = fmt.Fprintf(w, "query:    %s\n", out.Built.Query)
	}
	if out.Built.Prefetch != "" {
		_, _ = fmt.Fprintf(w, "prefetch: %s\n", out.Built.Prefetch)
	}
	if out.Results == nil {
		return
	}

	t := newTable(w, "#", "ID", "Score", "Vector", "Payload")
	for i, it := range out.Results {
		t.AppendRow(table.Row{i + 1, it.ID, fmt.Sprintf("%.4f", it.Score), it.SourceVector, formatPayload(it.Payload)})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(out.Results)})
	t.Render()
}

package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/search/mode"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/search/result"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/metrics"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
	queryuc "github.com/kailas-cloud/symdex/internal/usecase/query"
)

const relationships = `
root: Page
relationships:
  Page: [Header, Section]
  Section: [Card]
  Card: [Button]
symbols:
  Page: "ρ"
`

type fakeExecutor struct {
	resp   queryuc.Response
	got    request.Request
	tokens []int
}

func (f *fakeExecutor) Execute(ctx context.Context, req request.Request) queryuc.Response {
	f.got = req
	for _, n := range f.tokens {
		domain.UsageFromContext(ctx).Record(n)
	}
	return f.resp
}

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	f, err := catalog.Parse([]byte(relationships))
	if err != nil {
		t.Fatalf("parse relationships: %v", err)
	}
	c := catalog.New(catalog.Options{}, zap.NewNop())
	if _, err := c.Rebuild(context.Background(), f); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	return c
}

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	return NewRouter(NewServer(deps, zap.NewNop()), RouterOptions{})
}

func sym(t *testing.T, c *catalog.Catalog, name string) string {
	t.Helper()
	s, ok := c.Current().Table.Symbol(name)
	if !ok {
		t.Fatalf("no symbol for %s", name)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth_NoService(t *testing.T) {
	h := newTestServer(t, Deps{})
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSymbols_CurrentTable(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	rr := do(t, h, http.MethodPost, "/v1/symbols", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[SymbolsResponse](t, rr)
	if resp.Generation != 1 {
		t.Errorf("generation = %d, want 1", resp.Generation)
	}
	if resp.Symbols["Page"] != "ρ" {
		t.Errorf("Page = %q, want pinned ρ", resp.Symbols["Page"])
	}
	if len(resp.Symbols) != 5 {
		t.Errorf("expected 5 symbols, got %v", resp.Symbols)
	}
}

func TestSymbols_Generate(t *testing.T) {
	h := newTestServer(t, Deps{})
	rr := do(t, h, http.MethodPost, "/v1/symbols", `{"names":["Alpha","Beta"],"module_prefix":"ui"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	want, err := symbol.Generate(symbol.DefaultPools(), []string{"Alpha", "Beta"}, "ui")
	if err != nil {
		t.Fatal(err)
	}
	resp := decode[SymbolsResponse](t, rr)
	for name, s := range want {
		if resp.Symbols[name] != s {
			t.Errorf("%s = %q, want %q", name, resp.Symbols[name], s)
		}
	}
}

func TestSymbols_Exhausted(t *testing.T) {
	pools := symbol.Pools{PerLetter: map[rune][]string{'a': {"α"}}}
	h := newTestServer(t, Deps{Pools: pools})
	rr := do(t, h, http.MethodPost, "/v1/symbols", `{"names":["Alpha","Apex"]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeSymbolsExhausted {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestCatalogNotReady(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: catalog.New(catalog.Options{}, nil)})
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/v1/symbols", ""},
		{http.MethodPost, "/v1/dsl/parse", `{"text":"ρ"}`},
		{http.MethodPost, "/v1/dsl/validate", `{"text":"ρ"}`},
		{http.MethodGet, "/v1/graph/Page", ""},
	} {
		rr := do(t, h, tc.method, tc.path, tc.body)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: got %d, want 503", tc.method, tc.path, rr.Code)
		}
	}
}

func TestDomainError_LoggedWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	srv := NewServer(Deps{Catalog: catalog.New(catalog.Options{}, nil)}, zap.New(core))
	h := NewRouter(srv, RouterOptions{})

	rr := do(t, h, http.MethodPost, "/v1/symbols", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
	entries := logs.FilterMessage("domain error").All()
	if len(entries) != 1 {
		t.Fatalf("got %d domain error entries", len(entries))
	}
	if id := entries[0].ContextMap()["request_id"]; id == "" || id == nil {
		t.Errorf("domain error entry has no request_id: %v", entries[0].ContextMap())
	}
}

func TestParse_Structure(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})
	text := "ρ[" + sym(t, c, "Section") + "*2[" + sym(t, c, "Card") + "]]"

	body, _ := json.Marshal(ParseRequest{Text: text})
	rr := do(t, h, http.MethodPost, "/v1/dsl/parse", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[ParseResponse](t, rr)
	if !resp.Valid || resp.Dialect != dsl.DialectStructure {
		t.Fatalf("unexpected response: %+v", resp)
	}
	want := "ρ[" + sym(t, c, "Section") + "×2[" + sym(t, c, "Card") + "]]"
	if resp.Canonical != want {
		t.Errorf("canonical = %q, want %q", resp.Canonical, want)
	}
	section := resp.Structure[0].Children[0]
	if section.Name != "Section" || section.Multiplier != 2 {
		t.Errorf("unexpected section node: %+v", section)
	}
}

func TestParse_IssuesAreCounted(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})
	counter := metrics.DSLParseIssuesTotal.WithLabelValues(string(dsl.DialectStructure))
	before := testutil.ToFloat64(counter)

	rr := do(t, h, http.MethodPost, "/v1/dsl/parse", `{"text":"ρ[","dialect":"structure"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[ParseResponse](t, rr)
	if resp.Valid || len(resp.Issues) == 0 {
		t.Fatalf("expected issues, got %+v", resp)
	}
	if resp.Canonical != "" {
		t.Errorf("invalid parse should not render, got %q", resp.Canonical)
	}
	if got := testutil.ToFloat64(counter) - before; got != float64(len(resp.Issues)) {
		t.Errorf("issue counter moved by %v, want %d", got, len(resp.Issues))
	}
}

func TestParse_CallResolvesQuerySymbols(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c, Builder: querybuild.NewDefault()})

	rr := do(t, h, http.MethodPost, "/v1/dsl/parse", `{"text":"ɳ{nearest=\"shoes\", limit=3}"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[ParseResponse](t, rr)
	if !resp.Valid || resp.Dialect != dsl.DialectCall {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Calls[0].Name != querybuild.NameNearest {
		t.Errorf("name = %q", resp.Calls[0].Name)
	}
	if resp.Calls[0].Params[0].Key != "nearest" || resp.Calls[0].Params[1].Key != "limit" {
		t.Errorf("params out of order: %+v", resp.Calls[0].Params)
	}
	if resp.Canonical != `ɳ{nearest="shoes", limit=3}` {
		t.Errorf("canonical = %q", resp.Canonical)
	}
}

func TestParse_CallPrefersQuerySymbols(t *testing.T) {
	f, err := catalog.Parse([]byte(`
root: Page
relationships:
  Page: [Footer, Form]
  Form: [Field]
`))
	if err != nil {
		t.Fatalf("parse relationships: %v", err)
	}
	c := catalog.New(catalog.Options{}, zap.NewNop())
	if _, err := c.Rebuild(context.Background(), f); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	for _, name := range []string{"Footer", "Form", "Field"} {
		if s := sym(t, c, name); s == "ƒ" || s == "ʄ" {
			t.Errorf("%s got query symbol %q", name, s)
		}
	}

	h := newTestServer(t, Deps{Catalog: c, Builder: querybuild.NewDefault()})
	body, _ := json.Marshal(ParseRequest{Text: `ƒ{must=[ʄ{key="tool_name", match=☆{value="search"}}]}`})
	rr := do(t, h, http.MethodPost, "/v1/dsl/parse", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[ParseResponse](t, rr)
	if !resp.Valid || len(resp.Calls) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Calls[0].Name != querybuild.NameFilter {
		t.Errorf("name = %q, want %q", resp.Calls[0].Name, querybuild.NameFilter)
	}
	must, ok := resp.Calls[0].Params[0].Value.([]any)
	if !ok || len(must) != 1 {
		t.Fatalf("must = %#v", resp.Calls[0].Params[0].Value)
	}
	cond, _ := must[0].(map[string]any)
	if cond["name"] != querybuild.NameFieldCondition {
		t.Errorf("nested call = %v", cond)
	}
}

func TestParse_Content(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})
	text := sym(t, c, "Button") + ` "Buy now" /checkout .primary`

	body, _ := json.Marshal(ParseRequest{Text: text})
	rr := do(t, h, http.MethodPost, "/v1/dsl/parse", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[ParseResponse](t, rr)
	if !resp.Valid || resp.Dialect != dsl.DialectContent || len(resp.Content) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	line := resp.Content[0]
	if line.Name != "Button" || line.Text != "Buy now" || line.Action != "/checkout" {
		t.Errorf("unexpected content node: %+v", line)
	}
}

func TestParse_BadRequests(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	for _, body := range []string{`{"text":"ρ","dialect":"yaml"}`, `{`, ``} {
		rr := do(t, h, http.MethodPost, "/v1/dsl/parse", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, rr.Code)
		}
	}
}

func TestValidate(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})
	card := sym(t, c, "Card")

	body, _ := json.Marshal(ValidateRequest{Text: "ρ[" + card + "]"})
	rr := do(t, h, http.MethodPost, "/v1/dsl/validate", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	ok := decode[struct {
		Valid    bool              `json:"valid"`
		Resolved map[string]string `json:"resolved"`
	}](t, rr)
	if !ok.Valid || ok.Resolved[card] != "Card" {
		t.Errorf("expected transitive containment to pass: %+v", ok)
	}

	body, _ = json.Marshal(ValidateRequest{Text: card + "[ρ]"})
	rr = do(t, h, http.MethodPost, "/v1/dsl/validate", string(body))
	bad := decode[struct {
		Valid  bool     `json:"valid"`
		Issues []string `json:"issues"`
	}](t, rr)
	if bad.Valid || len(bad.Issues) == 0 {
		t.Errorf("expected containment violation: %+v", bad)
	}
}

func TestGenerateStructure(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	rr := do(t, h, http.MethodPost, "/v1/dsl/structure",
		`{"inputs":[{"component":"Card","value":"a"},{"component":"Card","value":"b"},{"component":"Ghost"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[StructureResponse](t, rr)
	want := "ρ[" + sym(t, c, "Section") + "[" + sym(t, c, "Card") + "×2]]"
	if resp.Structure != want {
		t.Errorf("structure = %q, want %q", resp.Structure, want)
	}
	if resp.Valid || len(resp.Issues) != 1 {
		t.Errorf("expected one unreachable issue, got %v", resp.Issues)
	}
}

func TestQuery_EmbeddingUsageHeaders(t *testing.T) {
	exec := &fakeExecutor{
		resp:   queryuc.Response{Valid: true, Mode: mode.Vector, ExecutionID: "exec-2"},
		tokens: []int{4, 0},
	}
	h := newTestServer(t, Deps{Executor: exec})

	rr := do(t, h, http.MethodPost, "/v1/query", `{"query":"shoes"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if got := rr.Header().Get("X-Embedding-Calls"); got != "2" {
		t.Errorf("X-Embedding-Calls = %q, want 2", got)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "4" {
		t.Errorf("X-Embedding-Tokens = %q, want 4", got)
	}
}

func TestQuery_Success(t *testing.T) {
	exec := &fakeExecutor{resp: queryuc.Response{
		Valid:       true,
		Mode:        mode.Vector,
		ExecutionID: "exec-1",
		Results:     []result.Item{{ID: "a", Score: 0.9}},
		Built:       queryuc.Built{Query: `NearestQuery(nearest="shoes")`},
	}}
	h := newTestServer(t, Deps{Executor: exec})

	rr := do(t, h, http.MethodPost, "/v1/query",
		`{"collection":"products","query":"shoes","filter":"ƒ{}","using":"dense","limit":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if rr.Header().Get("X-Execution-ID") != "exec-1" {
		t.Errorf("missing execution id header")
	}
	if rr.Header().Get("X-Embedding-Calls") != "" {
		t.Errorf("no embedding calls were made, got header %q", rr.Header().Get("X-Embedding-Calls"))
	}
	want := request.Request{Collection: "products", QueryText: "shoes", FilterDSL: "ƒ{}", Using: "dense", Limit: 5}
	if exec.got.Collection != want.Collection || exec.got.QueryText != want.QueryText ||
		exec.got.FilterDSL != want.FilterDSL || exec.got.Using != want.Using || exec.got.Limit != want.Limit {
		t.Errorf("request = %+v, want %+v", exec.got, want)
	}
	resp := decode[QueryResponse](t, rr)
	if resp.Mode != "vector" || len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestQuery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"unresolved", domain.NewUnresolvedSymbol("Ω"), http.StatusUnprocessableEntity, ErrorCodeUnresolvedSymbol},
		{"parse", querybuild.NewParseError([]dsl.Issue{{Message: "boom"}}), http.StatusBadRequest, ErrorCodeParseError},
		{"build", &domain.QueryBuildError{Node: "ɳ{}", Cause: errors.New("x")},
			http.StatusUnprocessableEntity, ErrorCodeQueryBuildFailed},
		{"invalid", domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest},
		{"embed", domain.NewExecutionError("embed", domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, ErrorCodeEmbeddingProvider},
		{"store", domain.NewExecutionError("store", errors.New("conn reset")),
			http.StatusBadGateway, ErrorCodeExecutionFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{resp: queryuc.Response{ExecutionID: "e", Error: tt.err}}
			h := newTestServer(t, Deps{Executor: exec})
			rr := do(t, h, http.MethodPost, "/v1/query", `{"query":"x"}`)
			if rr.Code != tt.status {
				t.Fatalf("got %d, want %d: %s", rr.Code, tt.status, rr.Body)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if tt.name == "unresolved" && resp.Symbol != "Ω" {
				t.Errorf("symbol = %q", resp.Symbol)
			}
			if tt.name == "parse" && len(resp.Issues) != 1 {
				t.Errorf("issues = %v", resp.Issues)
			}
			if tt.name == "store" && strings.Contains(resp.Message, "conn reset") {
				t.Errorf("internal cause leaked: %q", resp.Message)
			}
		})
	}
}

func TestQuery_NoExecutor(t *testing.T) {
	h := newTestServer(t, Deps{})
	rr := do(t, h, http.MethodPost, "/v1/query", `{"query":"x"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("got %d, want 501", rr.Code)
	}
}

func TestGraph_Component(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	rr := do(t, h, http.MethodGet, "/v1/graph/Section", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[ComponentResponse](t, rr)
	if len(resp.Children) != 1 || resp.Children[0] != "Card" {
		t.Errorf("children = %v", resp.Children)
	}
	if len(resp.Parents) != 1 || resp.Parents[0] != "Page" {
		t.Errorf("parents = %v", resp.Parents)
	}
	if len(resp.Descendants) != 1 {
		t.Errorf("depth 1 descendants = %v", resp.Descendants)
	}

	rr = do(t, h, http.MethodGet, "/v1/graph/"+sym(t, c, "Section")+"?depth=0&to=Button", "")
	resp = decode[ComponentResponse](t, rr)
	if resp.Name != "Section" || len(resp.Descendants) != 2 {
		t.Errorf("unbounded descendants = %v", resp.Descendants)
	}
	if len(resp.Paths) != 1 || strings.Join(resp.Paths[0], ">") != "Section>Card>Button" {
		t.Errorf("paths = %v", resp.Paths)
	}
}

func TestGraph_Errors(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	if rr := do(t, h, http.MethodGet, "/v1/graph/Ghost", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown component: got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/graph/Page?depth=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad depth: got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/graph/Page?depth=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("negative depth: got %d", rr.Code)
	}
}

func TestRebuildCatalog_FromBody(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	rr := do(t, h, http.MethodPost, "/v1/catalog/rebuild", `{"relationships":{"Page":["Footer"]}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	resp := decode[CatalogResponse](t, rr)
	if resp.Generation != 2 || resp.Components != 2 || resp.Edges != 1 {
		t.Errorf("unexpected catalog: %+v", resp)
	}
	if !c.Current().Graph.Has("Footer") {
		t.Error("snapshot was not swapped")
	}
}

func TestRebuildCatalog_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relationships.yaml")
	if err := os.WriteFile(path, []byte("relationships:\n  A: [B]\n  B: [A]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c, RelationshipsFile: path})

	rr := do(t, h, http.MethodPost, "/v1/catalog/rebuild", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if resp := decode[CatalogResponse](t, rr); len(resp.Cycles) != 1 {
		t.Errorf("expected one cycle, got %v", resp.Cycles)
	}
}

func TestRebuildCatalog_Invalid(t *testing.T) {
	c := newCatalog(t)
	h := newTestServer(t, Deps{Catalog: c})

	for _, body := range []string{"", "relationships: {}", "root: Nope\nrelationships:\n  A: [B]\n"} {
		rr := do(t, h, http.MethodPost, "/v1/catalog/rebuild", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, rr.Code)
		}
	}
	if c.Current().Generation != 1 {
		t.Errorf("failed rebuilds must keep generation 1, got %d", c.Current().Generation)
	}
}

func TestRouter_AuthAndRecovery(t *testing.T) {
	c := newCatalog(t)
	s := NewServer(Deps{Catalog: c}, zap.NewNop())
	h := NewRouter(s, RouterOptions{APIKeys: []string{"secret"}})

	if rr := do(t, h, http.MethodPost, "/v1/symbols", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health must be exempt: got %d", rr.Code)
	}

	panicky := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := do(t, panicky, http.MethodGet, "/", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestServer(t, Deps{})
	if rr := do(t, h, http.MethodGet, "/v1/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}

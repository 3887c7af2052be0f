package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/search/request"
	"github.com/kailas-cloud/symdex/internal/domain/search/result"
	"github.com/kailas-cloud/symdex/internal/usecase/validate"
	queryuc "github.com/kailas-cloud/symdex/internal/usecase/query"
)

// SymbolsRequest is the body of POST /v1/symbols. Without names the current
// catalog table is returned.
type SymbolsRequest struct {
	Names        []string `json:"names"`
	ModulePrefix string   `json:"module_prefix,omitempty"`
}

// SymbolsResponse maps names to symbols.
type SymbolsResponse struct {
	Generation uint64            `json:"generation,omitempty"`
	Symbols    map[string]string `json:"symbols"`
}

// ParseRequest is the body of POST /v1/dsl/parse. An empty dialect is detected
// from the text.
type ParseRequest struct {
	Text    string `json:"text"`
	Dialect string `json:"dialect,omitempty"`
}

// ParseResponse carries the tree of exactly one dialect.
type ParseResponse struct {
	Dialect   dsl.Dialect  `json:"dialect"`
	Valid     bool         `json:"valid"`
	Issues    []string     `json:"issues"`
	Canonical string       `json:"canonical,omitempty"`
	Structure []NodeDTO    `json:"structure,omitempty"`
	Calls     []CallDTO    `json:"calls,omitempty"`
	Content   []ContentDTO `json:"content,omitempty"`
}

// NodeDTO is a Structure node.
type NodeDTO struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name,omitempty"`
	Multiplier int       `json:"multiplier"`
	Line       int       `json:"line"`
	Column     int       `json:"column"`
	Children   []NodeDTO `json:"children,omitempty"`
}

// CallDTO is a Call node. Params keep written order.
type CallDTO struct {
	Symbol string     `json:"symbol"`
	Name   string     `json:"name,omitempty"`
	Params []ParamDTO `json:"params"`
}

// ParamDTO is one key=value pair; nested calls become CallDTO values.
type ParamDTO struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ContentDTO is a Content line.
type ContentDTO struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name,omitempty"`
	Text      string   `json:"text"`
	Modifiers []string `json:"modifiers,omitempty"`
	Action    string   `json:"action,omitempty"`
	Line      int      `json:"line"`
}

// ValidateRequest is the body of POST /v1/dsl/validate.
type ValidateRequest struct {
	Text string `json:"text"`
}

// StructureRequest is the body of POST /v1/dsl/structure.
type StructureRequest struct {
	Inputs []validate.Input `json:"inputs"`
}

// StructureResponse is the generated Structure DSL.
type StructureResponse struct {
	Structure string   `json:"structure"`
	Valid     bool     `json:"valid"`
	Issues    []string `json:"issues"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Collection     string   `json:"collection,omitempty"`
	Filter         string   `json:"filter,omitempty"`
	Query          string   `json:"query,omitempty"`
	QueryDSL       string   `json:"query_dsl,omitempty"`
	Prefetch       string   `json:"prefetch,omitempty"`
	Using          string   `json:"using,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	DryRun         bool     `json:"dry_run,omitempty"`
}

// QueryResponse is a successful execution.
type QueryResponse struct {
	Valid       bool          `json:"valid"`
	Mode        string        `json:"mode"`
	ExecutionID string        `json:"execution_id"`
	Results     []result.Item `json:"results"`
	Built       queryuc.Built `json:"built"`
	ElapsedMS   float64       `json:"elapsed_ms"`
}

// ComponentResponse describes one graph node.
type ComponentResponse struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Children    []string   `json:"children"`
	Parents     []string   `json:"parents"`
	Descendants []string   `json:"descendants"`
	Paths       [][]string `json:"paths,omitempty"`
}

// CatalogResponse summarizes a catalog generation.
type CatalogResponse struct {
	Generation uint64     `json:"generation"`
	Root       string     `json:"root,omitempty"`
	Components int        `json:"components"`
	Edges      int        `json:"edges"`
	Cycles     [][]string `json:"cycles,omitempty"`
}

// decodeJSON reads a JSON body into v. An empty body is an error unless
// allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("invalid request body: %w: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}

func (q QueryRequest) toDomain() request.Request {
	return request.Request{
		Collection:     q.Collection,
		FilterDSL:      q.Filter,
		QueryText:      q.Query,
		QueryDSL:       q.QueryDSL,
		PrefetchDSL:    q.Prefetch,
		Using:          q.Using,
		Limit:          q.Limit,
		ScoreThreshold: q.ScoreThreshold,
		DryRun:         q.DryRun,
	}
}

func issueStrings(issues []dsl.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.String()
	}
	return out
}

func nodesToDTO(nodes []*dsl.Node) []NodeDTO {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]NodeDTO, len(nodes))
	for i, n := range nodes {
		out[i] = NodeDTO{
			Symbol:     n.Symbol,
			Name:       n.Name,
			Multiplier: n.Multiplier,
			Line:       n.Pos.Line,
			Column:     n.Pos.Column,
			Children:   nodesToDTO(n.Children),
		}
	}
	return out
}

func callToDTO(c *dsl.CallNode) CallDTO {
	params := make([]ParamDTO, len(c.Params))
	for i, p := range c.Params {
		params[i] = ParamDTO{Key: p.Key, Value: valueToDTO(p.Value)}
	}
	return CallDTO{Symbol: c.Symbol, Name: c.Name, Params: params}
}

func valueToDTO(v dsl.Value) any {
	switch x := v.(type) {
	case *dsl.CallNode:
		return callToDTO(x)
	case []dsl.Value:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = valueToDTO(e)
		}
		return out
	}
	return v
}

func contentToDTO(nodes []dsl.ContentNode) []ContentDTO {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]ContentDTO, len(nodes))
	for i, n := range nodes {
		out[i] = ContentDTO{
			Symbol:    n.Symbol,
			Name:      n.Name,
			Text:      n.Text,
			Modifiers: n.Modifiers,
			Action:    n.Action,
			Line:      n.Pos.Line,
		}
	}
	return out
}

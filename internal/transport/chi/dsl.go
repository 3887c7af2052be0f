package chi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/metrics"
)

// GenerateSymbols handles POST /v1/symbols.
func (s *Server) GenerateSymbols(w http.ResponseWriter, r *http.Request) {
	var req SymbolsRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if len(req.Names) == 0 {
		snap, ok := s.snapshot(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, SymbolsResponse{
			Generation: snap.Generation,
			Symbols:    snap.Table.Map(),
		})
		return
	}

	mapping, err := symbol.Generate(s.deps.Pools, req.Names, req.ModulePrefix)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SymbolsResponse{Symbols: mapping})
}

// ParseDSL handles POST /v1/dsl/parse.
func (s *Server) ParseDSL(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	dialect := dsl.Dialect(strings.ToLower(req.Dialect))
	if dialect == "" {
		dialect = dsl.Detect(req.Text)
	}

	resp := ParseResponse{Dialect: dialect}
	switch dialect {
	case dsl.DialectStructure:
		res := snap.Parser.ParseStructure(req.Text)
		resp.Valid, resp.Issues = res.Valid, issueStrings(res.Issues)
		resp.Structure = nodesToDTO(res.Roots)
		if res.Valid {
			resp.Canonical = dsl.RenderStructure(res.Roots)
		}
	case dsl.DialectContent:
		res := snap.Parser.ParseContent(req.Text)
		resp.Valid, resp.Issues = res.Valid, issueStrings(res.Issues)
		resp.Content = contentToDTO(res.Nodes)
		if res.Valid {
			resp.Canonical = dsl.RenderContent(res.Nodes)
		}
	case dsl.DialectCall:
		res := s.callParser(snap.Table).ParseCall(req.Text)
		resp.Valid, resp.Issues = res.Valid, issueStrings(res.Issues)
		rendered := make([]string, len(res.Roots))
		for i, c := range res.Roots {
			resp.Calls = append(resp.Calls, callToDTO(c))
			rendered[i] = dsl.RenderCall(c)
		}
		if res.Valid {
			resp.Canonical = strings.Join(rendered, ", ")
		}
	default:
		s.handleDomainError(w, r, fmt.Errorf("unknown dialect %q: %w", req.Dialect, domain.ErrInvalidRequest))
		return
	}

	if n := len(resp.Issues); n > 0 {
		metrics.DSLParseIssuesTotal.WithLabelValues(string(dialect)).Add(float64(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

// callParser resolves query constructor symbols first, then catalog symbols.
func (s *Server) callParser(catalogTable *symbol.Table) *dsl.Parser {
	queryTable := s.deps.Builder.Table()
	return dsl.NewParser(dsl.ResolverFunc(func(token string) (string, bool) {
		if name, ok := queryTable.Resolve(token); ok {
			return name, true
		}
		return catalogTable.Resolve(token)
	}))
}

// ValidateDSL handles POST /v1/dsl/validate.
func (s *Server) ValidateDSL(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	res := snap.Validator.Validate(req.Text)
	if n := len(res.Issues); n > 0 {
		metrics.DSLParseIssuesTotal.WithLabelValues(string(dsl.DialectStructure)).Add(float64(n))
	}
	writeJSON(w, http.StatusOK, res)
}

// GenerateStructure handles POST /v1/dsl/structure.
func (s *Server) GenerateStructure(w http.ResponseWriter, r *http.Request) {
	var req StructureRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	structure, issues := snap.Validator.GenerateStructure(req.Inputs)
	if issues == nil {
		issues = []string{}
	}
	writeJSON(w, http.StatusOK, StructureResponse{
		Structure: structure,
		Valid:     len(issues) == 0,
		Issues:    issues,
	})
}

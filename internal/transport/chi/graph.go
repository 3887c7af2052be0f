package chi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/domain"
)

// GetComponentParams are the query parameters of GET /v1/graph/{name}.
type GetComponentParams struct {
	// Depth bounds Descendants; 0 means unbounded. Default 1.
	Depth *int `form:"depth,omitempty" json:"depth,omitempty"`
	// To, when set, adds the containment paths from name to To.
	To *string `form:"to,omitempty" json:"to,omitempty"`
}

// GetComponent handles GET /v1/graph/{name}.
func (s *Server) GetComponent(w http.ResponseWriter, r *http.Request) {
	var params GetComponentParams
	if err := runtime.BindQueryParameter("form", true, false, "depth", r.URL.Query(), &params.Depth); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("depth: %w: %w", domain.ErrInvalidRequest, err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", r.URL.Query(), &params.To); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("to: %w: %w", domain.ErrInvalidRequest, err))
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	token, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("name: %w: %w", domain.ErrInvalidRequest, err))
		return
	}
	name := token
	if resolved, ok := snap.Table.Resolve(token); ok {
		name = resolved
	}
	if !snap.Graph.Has(name) {
		s.handleDomainError(w, r, fmt.Errorf("component %q: %w", token, domain.ErrNotFound))
		return
	}

	depth := 1
	if params.Depth != nil {
		if *params.Depth < 0 {
			s.handleDomainError(w, r, fmt.Errorf("depth must be >= 0: %w", domain.ErrInvalidRequest))
			return
		}
		depth = *params.Depth
	}
	if depth == 0 {
		depth = -1
	}

	sym, _ := snap.Table.Symbol(name)
	resp := ComponentResponse{
		Name:        name,
		Symbol:      sym,
		Children:    nonNil(snap.Graph.Children(name)),
		Parents:     nonNil(snap.Graph.Parents(name)),
		Descendants: nonNil(snap.Graph.Descendants(name, depth)),
	}
	if params.To != nil && *params.To != "" {
		to := *params.To
		if resolved, ok := snap.Table.Resolve(to); ok {
			to = resolved
		}
		resp.Paths = snap.Graph.AllPaths(name, to, s.deps.Paths)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RebuildCatalog handles POST /v1/catalog/rebuild. A body carries a
// relationship map in YAML or JSON; an empty body reloads the configured file.
func (s *Server) RebuildCatalog(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		s.handleDomainError(w, r, fmt.Errorf("catalog: %w", domain.ErrNotImplemented))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("read body: %w: %w", domain.ErrInvalidRequest, err))
		return
	}

	var snap *catalog.Snapshot
	switch {
	case len(bytes.TrimSpace(body)) > 0:
		f, perr := catalog.Parse(body)
		if perr != nil {
			s.handleDomainError(w, r, perr)
			return
		}
		snap, err = s.deps.Catalog.Rebuild(r.Context(), f)
	case s.deps.RelationshipsFile != "":
		snap, err = s.deps.Catalog.Reload(r.Context(), s.deps.RelationshipsFile)
	default:
		err = fmt.Errorf("empty body and no relationships file configured: %w", domain.ErrInvalidRequest)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CatalogResponse{
		Generation: snap.Generation,
		Root:       snap.Root,
		Components: snap.Table.Len(),
		Edges:      snap.Graph.EdgeCount(),
		Cycles:     snap.Graph.DetectCycles(),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

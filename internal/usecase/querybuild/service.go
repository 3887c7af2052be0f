package querybuild

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
)

// Service compiles Call DSL trees into query objects.
type Service struct {
	registry *Registry
	table    *symbol.Table
	parser   *dsl.Parser
}

// New creates a builder service. A nil table resolves names only.
func New(registry *Registry, table *symbol.Table) *Service {
	return &Service{
		registry: registry,
		table:    table,
		parser:   dsl.NewParser(table),
	}
}

// NewDefault creates a builder over the default vocabulary.
func NewDefault() *Service {
	return New(DefaultRegistry(), DefaultSymbols())
}

// Table returns the symbol table the builder resolves against.
func (s *Service) Table() *symbol.Table { return s.table }

// Parser returns the Call parser bound to the builder's table.
func (s *Service) Parser() *dsl.Parser { return s.parser }

// resolve maps a node to a registered component name.
func (s *Service) resolve(n *dsl.CallNode) (string, error) {
	if n.Name != "" {
		if _, ok := s.registry.Lookup(n.Name); ok {
			return n.Name, nil
		}
	}
	if name, ok := s.table.Resolve(n.Symbol); ok {
		if _, ok := s.registry.Lookup(name); ok {
			return name, nil
		}
	}
	if _, ok := s.registry.Lookup(n.Symbol); ok {
		return n.Symbol, nil
	}
	return "", domain.NewUnresolvedSymbol(n.Symbol)
}

// Build instantiates node and its nested calls bottom-up.
func (s *Service) Build(node *dsl.CallNode) (obj any, err error) {
	if node == nil {
		return nil, fmt.Errorf("build: %w", domain.ErrInvalidRequest)
	}
	name, err := s.resolve(node)
	if err != nil {
		return nil, err
	}
	ctor, _ := s.registry.Lookup(name)

	keys := make([]string, len(node.Params))
	values := make(map[string]any, len(node.Params))
	for i, p := range node.Params {
		v, err := s.buildValue(p.Value)
		if err != nil {
			return nil, err
		}
		keys[i] = p.Key
		values[p.Key] = v
	}

	defer func() {
		if r := recover(); r != nil {
			obj = nil
			err = &domain.QueryBuildError{Node: dsl.RenderCall(node), Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	obj, err = ctor(NewArgs(keys, values))
	if err != nil {
		return nil, &domain.QueryBuildError{Node: dsl.RenderCall(node), Cause: err}
	}
	return obj, nil
}

func (s *Service) buildValue(v dsl.Value) (any, error) {
	switch x := v.(type) {
	case *dsl.CallNode:
		return s.Build(x)
	case []dsl.Value:
		out := make([]any, len(x))
		for i, e := range x {
			bv, err := s.buildValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = bv
		}
		return out, nil
	default:
		return x, nil
	}
}

// BuildAll builds every root in order and stops at the first failure.
func (s *Service) BuildAll(nodes []*dsl.CallNode) ([]any, error) {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		obj, err := s.Build(n)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// BuildString parses text as Call DSL and builds every root.
func (s *Service) BuildString(text string) ([]any, error) {
	res := s.parser.ParseCall(text)
	if !res.Valid {
		return nil, NewParseError(res.Issues)
	}
	return s.BuildAll(res.Roots)
}

// ParseError carries positioned Call DSL issues.
type ParseError struct {
	Issues []dsl.Issue
}

// NewParseError wraps issues.
func NewParseError(issues []dsl.Issue) error {
	return &ParseError{Issues: issues}
}

func (e *ParseError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.String()
	}
	return fmt.Sprintf("%s: %s", domain.ErrParse.Error(), strings.Join(msgs, "; "))
}

func (e *ParseError) Unwrap() error { return domain.ErrParse }

// IsBuildFailure reports whether err came from resolution or construction.
func IsBuildFailure(err error) bool {
	return errors.Is(err, domain.ErrUnresolvedSymbol) || errors.Is(err, domain.ErrQueryBuild)
}

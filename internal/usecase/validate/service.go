package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/graph"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
)

// Suggestion defaults.
const (
	DefaultMaxDistance    = 3
	DefaultMaxSuggestions = 3
)

// Options tune validation.
type Options struct {
	// Root, when set, must be able to contain every top-level node.
	Root string
	// Strict allows direct edges only; otherwise transitive containment passes.
	Strict bool
	// MaxDistance bounds the edit distance of "did you mean" candidates.
	MaxDistance int
}

// Result is the outcome of Validate.
type Result struct {
	Valid       bool                `json:"valid"`
	Issues      []string            `json:"issues"`
	Suggestions map[string][]string `json:"suggestions,omitempty"`
	Resolved    map[string]string   `json:"resolved"`
}

// Input is one value a caller wants placed into a generated structure.
type Input struct {
	Component string `json:"component"`
	Value     string `json:"value,omitempty"`
}

// Service validates Structure DSL against the relationship graph.
type Service struct {
	parser *dsl.Parser
	graph  *graph.Graph
	table  *symbol.Table
	opts   Options
}

// New creates a validator.
func New(parser *dsl.Parser, g *graph.Graph, table *symbol.Table, opts Options) *Service {
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	return &Service{parser: parser, graph: g, table: table, opts: opts}
}

// Validate parses text and checks every nesting-implied pair. It has no side
// effects, so repeated calls on the same input return equal results.
func (s *Service) Validate(text string) Result {
	res := s.parser.ParseStructure(text)

	out := Result{Resolved: make(map[string]string)}
	for _, is := range res.Issues {
		out.Issues = append(out.Issues, is.String())
	}

	var walk func(parent *dsl.Node, nodes []*dsl.Node)
	walk = func(parent *dsl.Node, nodes []*dsl.Node) {
		for _, n := range nodes {
			s.checkNode(&out, parent, n)
			walk(n, n.Children)
		}
	}
	walk(nil, res.Roots)

	if len(out.Suggestions) == 0 {
		out.Suggestions = nil
	}
	out.Valid = len(out.Issues) == 0
	return out
}

func (s *Service) checkNode(out *Result, parent, n *dsl.Node) {
	if n.Name == "" {
		if cands := s.suggest(n.Symbol); len(cands) > 0 {
			if out.Suggestions == nil {
				out.Suggestions = make(map[string][]string)
			}
			out.Suggestions[n.Symbol] = cands
		}
	} else {
		out.Resolved[n.Symbol] = n.Name
	}

	if n.Multiplier < 1 {
		out.Issues = append(out.Issues, fmt.Sprintf("%s: multiplier must be at least 1, got %d", n.Pos, n.Multiplier))
	}

	if n.Name == "" {
		return
	}
	if parent == nil {
		if s.opts.Root != "" && n.Name != s.opts.Root && !s.canContain(s.opts.Root, n.Name) {
			out.Issues = append(out.Issues, fmt.Sprintf("%s: %s cannot be placed under root %s", n.Pos, n.Name, s.opts.Root))
		}
		return
	}
	if parent.Name != "" && !s.canContain(parent.Name, n.Name) {
		out.Issues = append(out.Issues, fmt.Sprintf("%s: %s cannot contain %s", n.Pos, parent.Name, n.Name))
	}
}

func (s *Service) canContain(parent, child string) bool {
	if s.opts.Strict {
		return s.graph.CanContainDirect(parent, child)
	}
	return s.graph.CanContain(parent, child)
}

type candidate struct {
	label  string
	dist   int
	isName bool
}

// suggest ranks known names and symbols by edit distance to token.
func (s *Service) suggest(token string) []string {
	var cands []candidate
	lower := strings.ToLower(token)
	for _, name := range s.table.Names() {
		sym, _ := s.table.Symbol(name)
		label := name + " (" + sym + ")"
		if d := smetrics.WagnerFischer(lower, strings.ToLower(name), 1, 1, 2); d <= s.opts.MaxDistance {
			cands = append(cands, candidate{label: label, dist: d, isName: true})
			continue
		}
		// symbols are one or two runes, so only near-identical bytes count
		if d := smetrics.WagnerFischer(token, sym, 1, 1, 1); d <= 1 {
			cands = append(cands, candidate{label: label, dist: d})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		if cands[i].isName != cands[j].isName {
			return cands[i].isName
		}
		return cands[i].label < cands[j].label
	})
	if len(cands) > DefaultMaxSuggestions {
		cands = cands[:DefaultMaxSuggestions]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.label
	}
	return out
}

type treeNode struct {
	name     string
	count    int
	children []*treeNode
}

func (t *treeNode) child(name string) *treeNode {
	for _, c := range t.children {
		if c.name == name {
			return c
		}
	}
	c := &treeNode{name: name}
	t.children = append(t.children, c)
	return c
}

// GenerateStructure builds the smallest Structure DSL that can carry inputs:
// each component is reached from the root by its shortest path, paths are
// merged, and each component's multiplier is its input count. It returns the
// DSL and the issues found, including those of re-validating the result.
func (s *Service) GenerateStructure(inputs []Input) (string, []string) {
	if s.opts.Root == "" {
		return "", []string{"no root component configured"}
	}
	if !s.graph.Has(s.opts.Root) {
		return "", []string{fmt.Sprintf("root %s is not in the relationship graph", s.opts.Root)}
	}

	counts := make(map[string]int)
	var order []string
	for _, in := range inputs {
		if in.Component == "" {
			continue
		}
		if counts[in.Component] == 0 {
			order = append(order, in.Component)
		}
		counts[in.Component]++
	}

	var issues []string
	root := &treeNode{name: s.opts.Root, count: 1}
	for _, comp := range order {
		if comp == s.opts.Root {
			continue
		}
		path := s.graph.ShortestPath(s.opts.Root, comp)
		if path == nil {
			issues = append(issues, fmt.Sprintf("%s is not reachable from %s", comp, s.opts.Root))
			continue
		}
		cur := root
		for _, name := range path[1:] {
			cur = cur.child(name)
		}
		cur.count = counts[comp]
	}

	rendered, err := s.render(root)
	if err != nil {
		return "", append(issues, err.Error())
	}

	if check := s.Validate(rendered); !check.Valid {
		issues = append(issues, check.Issues...)
	}
	return rendered, issues
}

func (s *Service) render(root *treeNode) (string, error) {
	var convert func(t *treeNode) (*dsl.Node, error)
	convert = func(t *treeNode) (*dsl.Node, error) {
		sym, ok := s.table.Symbol(t.name)
		if !ok {
			return nil, fmt.Errorf("no symbol for %s", t.name)
		}
		n := &dsl.Node{Symbol: sym, Name: t.name, Multiplier: max(t.count, 1)}
		for _, c := range t.children {
			cn, err := convert(c)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, cn)
		}
		return n, nil
	}
	n, err := convert(root)
	if err != nil {
		return "", err
	}
	return dsl.RenderStructure([]*dsl.Node{n}), nil
}

package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/config"
	"github.com/kailas-cloud/symdex/internal/domain/graph"
)

type componentOutput struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Children    []string   `json:"children"`
	Parents     []string   `json:"parents"`
	Descendants []string   `json:"descendants"`
	Paths       [][]string `json:"paths,omitempty"`
}

type summaryOutput struct {
	Generation uint64     `json:"generation"`
	Root       string     `json:"root,omitempty"`
	Components int        `json:"components"`
	Edges      int        `json:"edges"`
	Cycles     [][]string `json:"cycles,omitempty"`
}

func newGraphCommand(a *app) *cobra.Command {
	var (
		depth int
		to    string
		tree  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [component]",
		Short: "Inspect the relationship graph",
		Long: `Without a component, summarize the relationship map. With one, list its
children, parents and descendants within --depth (0 for unbounded), and the
containment paths to --to. Components may be given by name or symbol.`,
		Example: `  symdexctl graph -r rel.yaml
  symdexctl graph -r rel.yaml Page --depth 0 --to Button
  symdexctl graph -r rel.yaml --tree`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 0 {
				return fmt.Errorf("--depth must be >= 0")
			}
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				if tree {
					if snap.Root == "" {
						return fmt.Errorf("--tree needs a root component")
					}
					_, _ = fmt.Fprintln(w, renderTree(snap, snap.Root))
					return nil
				}
				out := summaryOutput{
					Generation: snap.Generation,
					Root:       snap.Root,
					Components: snap.Table.Len(),
					Edges:      snap.Graph.EdgeCount(),
					Cycles:     snap.Graph.DetectCycles(),
				}
				if a.output == OutputJSON {
					return renderJSON(w, out)
				}
				t := newTable(w, "Root", "Components", "Edges", "Cycles")
				t.AppendRow(table.Row{out.Root, out.Components, out.Edges, len(out.Cycles)})
				t.Render()
				for _, c := range out.Cycles {
					_, _ = fmt.Fprintf(w, "cycle: %s\n", strings.Join(c, " -> "))
				}
				return nil
			}

			name, ok := resolveComponent(snap, args[0])
			if !ok {
				return fmt.Errorf("unknown component %q", args[0])
			}
			if tree {
				_, _ = fmt.Fprintln(w, renderTree(snap, name))
				return nil
			}

			d := depth
			if d == 0 {
				d = -1
			}
			sym, _ := snap.Table.Symbol(name)
			out := componentOutput{
				Name:        name,
				Symbol:      sym,
				Children:    snap.Graph.Children(name),
				Parents:     snap.Graph.Parents(name),
				Descendants: snap.Graph.Descendants(name, d),
			}
			if to != "" {
				target, ok := resolveComponent(snap, to)
				if !ok {
					return fmt.Errorf("unknown component %q", to)
				}
				out.Paths = snap.Graph.AllPaths(name, target, a.pathOptions())
			}

			if a.output == OutputJSON {
				return renderJSON(w, out)
			}
			t := newTable(w, "Field", "Value")
			t.AppendRows([]table.Row{
				{"name", out.Name},
				{"symbol", out.Symbol},
				{"children", strings.Join(out.Children, ", ")},
				{"parents", strings.Join(out.Parents, ", ")},
				{"descendants", strings.Join(out.Descendants, ", ")},
			})
			for i, p := range out.Paths {
				t.AppendRow(table.Row{fmt.Sprintf("path %d", i+1), strings.Join(p, " > ")})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "descendant depth (0 for unbounded)")
	cmd.Flags().StringVar(&to, "to", "", "list containment paths to this component")
	cmd.Flags().BoolVar(&tree, "tree", false, "print the containment tree")
	return cmd
}

func resolveComponent(snap *catalog.Snapshot, token string) (string, bool) {
	name := token
	if resolved, ok := snap.Table.Resolve(token); ok {
		name = resolved
	}
	return name, snap.Graph.Has(name)
}

func (a *app) pathOptions() graph.PathOptions {
	q := config.QueryConfig{}
	if cfg, err := a.config(); err == nil {
		q = cfg.Query
	}
	return graph.PathOptions{MaxPaths: q.MaxPaths, MaxDepth: q.MaxPathDepth}
}

// renderTree prints the containment tree under root. A node already on the
// current branch is printed once, marked as a cycle.
func renderTree(snap *catalog.Snapshot, root string) string {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)

	var walk func(name string, onPath map[string]bool)
	walk = func(name string, onPath map[string]bool) {
		label := name
		if sym, ok := snap.Table.Symbol(name); ok {
			label = sym + " " + name
		}
		if onPath[name] {
			l.AppendItem(label + " (cycle)")
			return
		}
		l.AppendItem(label)
		onPath[name] = true
		l.Indent()
		for _, child := range snap.Graph.Children(name) {
			walk(child, onPath)
		}
		l.UnIndent()
		delete(onPath, name)
	}
	walk(root, map[string]bool{})
	return l.Render()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// renderMapping prints a name -> symbol table sorted by name.
func renderMapping(w io.Writer, mapping map[string]string) {
	names := make([]string, 0, len(mapping))
	for n := range mapping {
		names = append(names, n)
	}
	sort.Strings(names)

	t := newTable(w, "Name", "Symbol")
	for _, n := range names {
		t.AppendRow(table.Row{n, mapping[n]})
	}
	t.Render()
}

func renderIssues(w io.Writer, issues []string) {
	if len(issues) == 0 {
		return
	}
	t := newTable(w, "#", "Issue")
	for i, is := range issues {
		t.AppendRow(table.Row{i + 1, is})
	}
	t.Render()
}

func formatPayload(p map[string]any) string {
	if len(p) == 0 {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprint(p)
	}
	return string(b)
}

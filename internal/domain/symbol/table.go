package symbol

import (
	"fmt"
	"sort"
	"strings"
)

// Table is an immutable bidirectional name <-> symbol mapping for one generation.
type Table struct {
	bySymbol map[string]string
	byName   map[string]string
}

// NewTable builds a table from a name -> symbol map. Two names sharing a symbol is an error.
func NewTable(mapping map[string]string) (*Table, error) {
	t := &Table{
		bySymbol: make(map[string]string, len(mapping)),
		byName:   make(map[string]string, len(mapping)),
	}
	// Sorted so the reported conflict is stable.
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sym := mapping[name]
		if sym == "" {
			return nil, fmt.Errorf("empty symbol for %q", name)
		}
		if other, dup := t.bySymbol[sym]; dup {
			return nil, fmt.Errorf("symbol %q bound to both %q and %q", sym, other, name)
		}
		t.bySymbol[sym] = name
		t.byName[name] = sym
	}
	return t, nil
}

// MustTable calls NewTable and panics on error.
func MustTable(mapping map[string]string) *Table {
	t, err := NewTable(mapping)
	if err != nil {
		panic(err)
	}
	return t
}

// Symbol returns the symbol for name.
func (t *Table) Symbol(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	s, ok := t.byName[name]
	return s, ok
}

// Name returns the name bound to an exact symbol.
func (t *Table) Name(sym string) (string, bool) {
	if t == nil {
		return "", false
	}
	n, ok := t.bySymbol[sym]
	return n, ok
}

// Resolve maps a DSL token to a name. It accepts an exact symbol, a
// "prefix:symbol" token whose bare symbol is known, or a bare name.
func (t *Table) Resolve(token string) (string, bool) {
	if t == nil || token == "" {
		return "", false
	}
	if n, ok := t.bySymbol[token]; ok {
		return n, true
	}
	if i := strings.LastIndexByte(token, ':'); i >= 0 && i < len(token)-1 {
		if n, ok := t.bySymbol[token[i+1:]]; ok {
			return n, true
		}
	}
	if _, ok := t.byName[token]; ok {
		return token, true
	}
	return "", false
}

// Symbols returns all symbols, sorted.
func (t *Table) Symbols() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.bySymbol))
	for s := range t.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Names returns all names, sorted.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the name -> symbol mapping.
func (t *Table) Map() map[string]string {
	if t == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(t.byName))
	for n, s := range t.byName {
		out[n] = s
	}
	return out
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}

// Merge returns a new table holding both tables' bindings. A name bound to two
// different symbols, or a symbol bound to two names, is an error.
func (t *Table) Merge(other *Table) (*Table, error) {
	merged := t.Map()
	for n, s := range other.Map() {
		if cur, ok := merged[n]; ok && cur != s {
			return nil, fmt.Errorf("name %q bound to both %q and %q", n, cur, s)
		}
		merged[n] = s
	}
	return NewTable(merged)
}

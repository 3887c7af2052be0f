package symbol

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/symdex/internal/domain"
)

// Generator hands out collision-free symbols for one namespace generation.
// Symbols, once assigned, stay bound to their name for the generator's lifetime.
type Generator struct {
	mu           sync.Mutex
	pools        Pools
	used         map[string]struct{}
	reserved     map[string]struct{}
	assigned     map[string]string // name -> bare symbol
	letterNext   map[rune]int
	fallbackNext int
}

// NewGenerator creates a generator over the given pools.
func NewGenerator(pools Pools) *Generator {
	g := &Generator{
		pools:      pools,
		used:       make(map[string]struct{}),
		reserved:   make(map[string]struct{}, len(pools.Reserved)),
		assigned:   make(map[string]string),
		letterNext: make(map[rune]int),
	}
	for _, sym := range pools.Reserved {
		g.reserved[sym] = struct{}{}
		g.used[sym] = struct{}{}
	}
	return g
}

// Reserve pins symbol to name before generation. Pinned symbols are skipped by
// Generate for every other name.
func (g *Generator) Reserve(name, sym string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name == "" || sym == "" {
		return fmt.Errorf("reserve: name and symbol are required")
	}
	if cur, ok := g.assigned[name]; ok {
		if cur == sym {
			return nil
		}
		return fmt.Errorf("reserve %q: already bound to %q", name, cur)
	}
	if _, ok := g.reserved[sym]; ok {
		return fmt.Errorf("reserve %q: symbol %q is reserved", name, sym)
	}
	if _, taken := g.used[sym]; taken {
		return fmt.Errorf("reserve %q: symbol %q already in use", name, sym)
	}
	g.used[sym] = struct{}{}
	g.assigned[name] = sym
	return nil
}

// Generate returns a name -> symbol mapping for names. A non-empty modulePrefix
// yields "prefix:symbol" values. Names are processed in input order; repeated and
// previously assigned names keep their existing symbol.
func (g *Generator) Generate(names []string, modulePrefix string) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]string, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		sym, ok := g.assigned[name]
		if !ok {
			var err error
			sym, err = g.next(name)
			if err != nil {
				return nil, err
			}
			g.assigned[name] = sym
		}
		if modulePrefix != "" {
			out[name] = modulePrefix + ":" + sym
		} else {
			out[name] = sym
		}
	}
	return out, nil
}

// Assigned returns a copy of every binding handed out so far.
func (g *Generator) Assigned() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]string, len(g.assigned))
	for k, v := range g.assigned {
		out[k] = v
	}
	return out
}

func (g *Generator) next(name string) (string, error) {
	letter := initial(name)
	if pool := g.pools.PerLetter[letter]; len(pool) > 0 {
		for i := g.letterNext[letter]; i < len(pool); i++ {
			g.letterNext[letter] = i + 1
			if g.take(pool[i]) {
				return pool[i], nil
			}
		}
	}
	for g.fallbackNext < len(g.pools.Fallback) {
		sym := g.pools.Fallback[g.fallbackNext]
		g.fallbackNext++
		if g.take(sym) {
			return sym, nil
		}
	}
	return "", &domain.SymbolSpaceExhaustedError{Name: name, Initial: letter}
}

func (g *Generator) take(sym string) bool {
	if _, taken := g.used[sym]; taken {
		return false
	}
	g.used[sym] = struct{}{}
	return true
}

// Generate is a one-shot helper: a fresh generator over pools, one call.
func Generate(pools Pools, names []string, modulePrefix string) (map[string]string, error) {
	return NewGenerator(pools).Generate(names, modulePrefix)
}

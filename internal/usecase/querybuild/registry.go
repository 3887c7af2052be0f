package querybuild

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/symdex/internal/domain/symbol"
)

// Constructor builds one query object from its arguments.
type Constructor func(a *Args) (any, error)

// Registry maps component names to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor. Registering a name twice is an error.
func (r *Registry) Register(name string, c Constructor) error {
	if name == "" || c == nil {
		return fmt.Errorf("register: name and constructor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ctors[name]; dup {
		return fmt.Errorf("register: %q already registered", name)
	}
	r.ctors[name] = c
	return nil
}

// Lookup returns the constructor for name.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[name]
	return c, ok
}

// Names returns registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Component names of the default query vocabulary.
const (
	NameFilter         = "Filter"
	NameFieldCondition = "FieldCondition"
	NameMatchValue     = "MatchValue"
	NameMatchAny       = "MatchAny"
	NameMatchExcept    = "MatchExcept"
	NameMatchText      = "MatchText"
	NameRange          = "Range"
	NameNearest        = "Nearest"
	NameRecommend      = "Recommend"
	NameRecommendInput = "RecommendInput"
	NameDiscover       = "Discover"
	NameContextPair    = "ContextPair"
	NameFusion         = "Fusion"
	NamePrefetch       = "Prefetch"
)

// defaultSymbols is fixed rather than generated so stored queries keep working
// across catalog rebuilds.
var defaultSymbols = map[string]string{
	NameFilter:         "ƒ",
	NameFieldCondition: "ʄ",
	NameMatchValue:     "☆",
	NameMatchAny:       "✦",
	NameMatchExcept:    "✧",
	NameMatchText:      "✎",
	NameRange:          "®",
	NameNearest:        "ɳ",
	NameRecommend:      "ʀ",
	NameRecommendInput: "ɹ",
	NameDiscover:       "Ɖ",
	NameContextPair:    "ꝯ",
	NameFusion:         "⊕",
	NamePrefetch:       "ℙ",
}

// DefaultSymbols returns the symbol table of the default query vocabulary.
func DefaultSymbols() *symbol.Table {
	return symbol.MustTable(defaultSymbols)
}

// ReserveSymbols returns pools that never hand out a default query symbol, so
// catalog and query symbols stay disjoint.
func ReserveSymbols(p symbol.Pools) symbol.Pools {
	syms := make([]string, 0, len(defaultSymbols))
	for _, sym := range defaultSymbols {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return p.WithReserved(syms...)
}

// DefaultRegistry returns a registry holding every default query constructor.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, c := range map[string]Constructor{
		NameFilter:         newFilter,
		NameFieldCondition: newFieldCondition,
		NameMatchValue:     newMatchValue,
		NameMatchAny:       newMatchAny,
		NameMatchExcept:    newMatchExcept,
		NameMatchText:      newMatchText,
		NameRange:          newRange,
		NameNearest:        newNearest,
		NameRecommend:      newRecommend,
		NameRecommendInput: newRecommendInput,
		NameDiscover:       newDiscover,
		NameContextPair:    newContextPair,
		NameFusion:         newFusion,
		NamePrefetch:       newPrefetch,
	} {
		if err := r.Register(name, c); err != nil {
			panic(err)
		}
	}
	return r
}

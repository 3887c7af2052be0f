package mode

// Mode is the execution strategy the executor picked for a request.
type Mode string

// Execution modes, in priority order.
const (
	// Advanced runs a compiled query object (Nearest, Recommend, Discover, Fusion).
	Advanced Mode = "advanced"
	// Vector embeds free query text and runs nearest-neighbour search.
	Vector Mode = "vector"
	// Prefetch fuses prefetch stages with no top-level query.
	Prefetch Mode = "prefetch"
	// Scroll lists points matching the filter only.
	Scroll Mode = "scroll"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Advanced || m == Vector || m == Prefetch || m == Scroll
}

// Select picks the mode by priority: advanced, vector, prefetch-only, scroll.
func Select(hasQueryDSL, hasQueryText, hasPrefetch bool) Mode {
	switch {
	case hasQueryDSL:
		return Advanced
	case hasQueryText:
		return Vector
	case hasPrefetch:
		return Prefetch
	default:
		return Scroll
	}
}

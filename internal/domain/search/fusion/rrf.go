// Package fusion merges ranked result lists.
package fusion

import (
	"sort"

	"github.com/kailas-cloud/symdex/internal/domain/search/result"
)

// DefaultK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const DefaultK = 60

// RRF merges named result lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) over lists containing d, ranks 1-based.
// Results are sorted by fused score descending, ties by ID. The payload comes
// from the first list (by name) containing the item. k <= 0 means DefaultK;
// limit <= 0 means no limit.
func RRF(lists map[string][]result.Item, k, limit int) []result.Fused {
	if k <= 0 {
		k = DefaultK
	}

	names := make([]string, 0, len(lists))
	for name := range lists {
		names = append(names, name)
	}
	sort.Strings(names)

	merged := make(map[string]*result.Fused)
	order := make([]string, 0)

	for _, name := range names {
		seen := make(map[string]bool)
		for rank, it := range lists[name] {
			// an ID repeated within one list only counts at its best rank
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true

			s := 1.0 / float64(k+rank+1)
			if existing, ok := merged[it.ID]; ok {
				existing.FusedScore += s
				existing.ContributingVectors = append(existing.ContributingVectors, name)
				continue
			}
			merged[it.ID] = &result.Fused{
				Item:                it,
				FusedScore:          s,
				ContributingVectors: []string{name},
			}
			order = append(order, it.ID)
		}
	}

	out := make([]result.Fused, 0, len(merged))
	for _, id := range order {
		f := merged[id]
		sort.Strings(f.ContributingVectors)
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

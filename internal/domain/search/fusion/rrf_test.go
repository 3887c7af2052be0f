package fusion

import (
	"math"
	"testing"

	"github.com/kailas-cloud/symdex/internal/domain/search/result"
)

func makeItem(id string) result.Item {
	return result.New(id, 0, map[string]any{"title": "doc-" + id}, "")
}

func items(ids ...string) []result.Item {
	out := make([]result.Item, len(ids))
	for i, id := range ids {
		out[i] = makeItem(id)
	}
	return out
}

func TestRRF_DisjointLists(t *testing.T) {
	results := RRF(map[string][]result.Item{
		"dense":  items("a", "b"),
		"sparse": items("c", "d"),
	}, 0, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.ID] = true
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !ids[id] {
			t.Errorf("missing result %s", id)
		}
	}
	// rank-1 ties broken by ID
	if results[0].ID != "a" || results[1].ID != "c" {
		t.Errorf("order = %s, %s", results[0].ID, results[1].ID)
	}
}

func TestRRF_OverlappingLists(t *testing.T) {
	results := RRF(map[string][]result.Item{
		"dense":   items("a", "b", "c"),
		"colbert": items("b", "d", "a"),
	}, 60, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// "b": 1/62 + 1/61 beats "a": 1/61 + 1/63
	if results[0].ID != "b" || results[1].ID != "a" {
		t.Errorf("expected b then a, got %s, %s", results[0].ID, results[1].ID)
	}
	if got := results[0].ContributingVectors; len(got) != 2 || got[0] != "colbert" || got[1] != "dense" {
		t.Errorf("ContributingVectors = %v", got)
	}
	for _, r := range results[2:] {
		if len(r.ContributingVectors) != 1 {
			t.Errorf("%s ContributingVectors = %v", r.ID, r.ContributingVectors)
		}
	}
}

func TestRRF_EmptyInputs(t *testing.T) {
	t.Run("nil map", func(t *testing.T) {
		if results := RRF(nil, 0, 10); len(results) != 0 {
			t.Fatalf("expected 0 results, got %d", len(results))
		}
	})

	t.Run("one list empty", func(t *testing.T) {
		results := RRF(map[string][]result.Item{"dense": nil, "sparse": items("a")}, 0, 10)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
	})
}

func TestRRF_Limit(t *testing.T) {
	results := RRF(map[string][]result.Item{
		"x": items("a", "b", "c"),
		"y": items("d", "e", "f"),
	}, 0, 3)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if all := RRF(map[string][]result.Item{"x": items("a", "b", "c")}, 0, 0); len(all) != 3 {
		t.Fatalf("limit 0 should keep all, got %d", len(all))
	}
}

func TestRRF_SortedByScore(t *testing.T) {
	results := RRF(map[string][]result.Item{
		"x": items("a", "b", "e"),
		"y": items("c", "b", "d"),
	}, 0, 10)
	for i := 1; i < len(results); i++ {
		if results[i].FusedScore > results[i-1].FusedScore {
			t.Errorf("results not sorted: %f > %f at index %d",
				results[i].FusedScore, results[i-1].FusedScore, i)
		}
	}
}

func TestRRF_PayloadFromFirstListByName(t *testing.T) {
	a := result.New("a", 0.9, map[string]any{"from": "alpha"}, "alpha")
	b := result.New("a", 0.1, map[string]any{"from": "beta"}, "beta")

	results := RRF(map[string][]result.Item{"beta": {b}, "alpha": {a}}, 0, 10)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Payload["from"] != "alpha" {
		t.Errorf("payload from %v, want alpha", results[0].Payload["from"])
	}
}

func TestRRF_ScoreFormula(t *testing.T) {
	results := RRF(map[string][]result.Item{
		"x": items("a"),
		"y": items("a"),
	}, 60, 10)
	// "a" is rank 1 in both: 1/(60+1) + 1/(60+1) = 2/61
	expected := 2.0 / 61.0
	if math.Abs(results[0].FusedScore-expected) > 1e-10 {
		t.Errorf("expected score %f, got %f", expected, results[0].FusedScore)
	}
}

// No fused score can exceed one list's top contribution times the list count.
func TestRRF_MaximumBound(t *testing.T) {
	lists := map[string][]result.Item{
		"x": items("a", "b", "c", "d"),
		"y": items("d", "c", "b", "a"),
		"z": items("b", "a"),
	}
	k := 10
	bound := float64(len(lists)) / float64(k+1)
	for _, r := range RRF(lists, k, 0) {
		if r.FusedScore > bound+1e-12 {
			t.Errorf("%s fused score %f exceeds %f", r.ID, r.FusedScore, bound)
		}
	}
}

func TestRRF_DuplicateWithinListCountsOnce(t *testing.T) {
	results := RRF(map[string][]result.Item{"x": items("a", "a", "b")}, 60, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if math.Abs(results[0].FusedScore-1.0/61.0) > 1e-12 {
		t.Errorf("a score = %f", results[0].FusedScore)
	}
	// b keeps its written rank
	if math.Abs(results[1].FusedScore-1.0/63.0) > 1e-12 {
		t.Errorf("b score = %f", results[1].FusedScore)
	}
}

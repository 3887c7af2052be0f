package points

import (
	"math"
	"reflect"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"same", []float32{1, 2}, []float32{2, 4}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"dim mismatch", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cosine(tc.a, tc.b); !approx(got, tc.want) {
				t.Errorf("cosine = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMaxSim(t *testing.T) {
	q := [][]float32{{1, 0}, {0, 1}}
	if got := maxSim(q, [][]float32{{1, 0}, {0, 1}}); !approx(got, 2) {
		t.Errorf("aligned = %v, want 2", got)
	}
	if got := maxSim(q, [][]float32{{1, 0}}); !approx(got, 1) {
		t.Errorf("half = %v, want 1", got)
	}
	if got := maxSim(q, nil); got != 0 {
		t.Errorf("empty doc = %v, want 0", got)
	}
}

func TestRecommendVector(t *testing.T) {
	pos := [][]float32{{1, 0}, {0, 1}}
	if got := recommendVector(pos, nil); !reflect.DeepEqual(got, []float32{0.5, 0.5}) {
		t.Errorf("no negatives = %v", got)
	}
	if got := recommendVector([][]float32{{1, 0}}, [][]float32{{0, 1}}); !reflect.DeepEqual(got, []float32{2, -1}) {
		t.Errorf("with negative = %v", got)
	}
}

func TestBestScore(t *testing.T) {
	pos := [][]float32{{1, 0}}
	neg := [][]float32{{0, 1}}
	if got := bestScore([]float32{1, 0}, pos, neg); !approx(got, 1) {
		t.Errorf("positive side = %v", got)
	}
	if got := bestScore([]float32{0, 1}, pos, neg); !approx(got, -1) {
		t.Errorf("negative side = %v", got)
	}
	if got := bestScore([]float32{1, 1}, pos, nil); !approx(got, math.Sqrt2/2) {
		t.Errorf("no negatives = %v", got)
	}
}

func TestDiscoverScore(t *testing.T) {
	target := []float32{1, 0}
	pairs := [][2][]float32{{{0, 1}, {0, -1}}}

	onSide := discoverScore([]float32{1, 1}, target, pairs)
	offSide := discoverScore([]float32{1, -1}, target, pairs)
	if onSide <= 1 || offSide >= 1 {
		t.Errorf("pair rank not dominant: on=%v off=%v", onSide, offSide)
	}
	if got := discoverScore(target, target, nil); !approx(got, sigmoid(1)) {
		t.Errorf("no context = %v", got)
	}
}

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); got != 0.5 {
		t.Errorf("sigmoid(0) = %v", got)
	}
	if sigmoid(-1) >= sigmoid(1) {
		t.Error("sigmoid must be increasing")
	}
}

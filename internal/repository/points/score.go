package points

import "math"

// cosine returns the cosine similarity of a and b, 0 when either is zero or
// their dimensions differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// maxSim is the late-interaction score: for every query row, the best
// similarity against any document row, summed.
func maxSim(query, doc [][]float32) float64 {
	var total float64
	for _, q := range query {
		best := math.Inf(-1)
		for _, d := range doc {
			if s := cosine(q, d); s > best {
				best = s
			}
		}
		if !math.IsInf(best, -1) {
			total += best
		}
	}
	return total
}

// average returns the element-wise mean of vs, nil for no vectors.
func average(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float32, len(vs[0]))
	for _, v := range vs {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	n := float32(len(vs))
	for i := range out {
		out[i] /= n
	}
	return out
}

// recommendVector moves the positive centroid away from the negative one:
// avg(pos) + (avg(pos) - avg(neg)).
func recommendVector(pos, neg [][]float32) []float32 {
	p := average(pos)
	if len(neg) == 0 {
		return p
	}
	n := average(neg)
	out := make([]float32, len(p))
	for i := range p {
		out[i] = p[i] + (p[i] - n[i])
	}
	return out
}

// bestScore scores a candidate against examples: the best positive
// similarity, or the negated best negative similarity when that is closer.
func bestScore(v []float32, pos, neg [][]float32) float64 {
	bestPos := math.Inf(-1)
	for _, p := range pos {
		bestPos = math.Max(bestPos, cosine(v, p))
	}
	bestNeg := math.Inf(-1)
	for _, n := range neg {
		bestNeg = math.Max(bestNeg, cosine(v, n))
	}
	if bestNeg > bestPos {
		return -bestNeg
	}
	return bestPos
}

// discoverScore ranks by the number of context pairs the candidate sits on
// the positive side of; target similarity squashed into (0,1) breaks ties.
func discoverScore(v, target []float32, pairs [][2][]float32) float64 {
	var rank float64
	for _, p := range pairs {
		if cosine(v, p[0]) > cosine(v, p[1]) {
			rank++
		}
	}
	return rank + sigmoid(cosine(v, target))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

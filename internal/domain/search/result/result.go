package result

// Item is a single scored point returned by the store.
type Item struct {
	ID           string         `json:"id"`
	Score        float64        `json:"score"`
	Payload      map[string]any `json:"payload,omitempty"`
	SourceVector string         `json:"source_vector,omitempty"`
}

// New creates a search result.
func New(id string, score float64, payload map[string]any, sourceVector string) Item {
	return Item{ID: id, Score: score, Payload: payload, SourceVector: sourceVector}
}

// WithScore returns a copy of the item with a new score.
func (i Item) WithScore(score float64) Item {
	i.Score = score
	return i
}

// Fused is an item after Reciprocal Rank Fusion across named result lists.
type Fused struct {
	Item
	FusedScore          float64  `json:"fused_score"`
	ContributingVectors []string `json:"contributing_vectors"`
}

// Items flattens fused results back into items scored by FusedScore.
func Items(fused []Fused) []Item {
	out := make([]Item, len(fused))
	for i, f := range fused {
		out[i] = f.Item.WithScore(f.FusedScore)
	}
	return out
}

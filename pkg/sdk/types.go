package symdex

// VectorKind is the shape of a vector space.
type VectorKind string

// Vector kinds.
const (
	SingleVector VectorKind = "single-vector"
	MultiVector  VectorKind = "multi-vector"
)

// FieldType defines the index type of a filterable payload field.
type FieldType string

// Field type constants.
const (
	FieldTag     FieldType = "tag"
	FieldNumeric FieldType = "numeric"
	FieldText    FieldType = "text"
)

// FieldSpec declares one filterable payload field.
type FieldSpec struct {
	Name string
	Type FieldType
}

// Field is shorthand for a FieldSpec.
func Field(name string, typ FieldType) FieldSpec {
	return FieldSpec{Name: name, Type: typ}
}

// Point is one stored record. Vector spaces the point has no vector for are
// embedded from Text when an embedder is configured for them.
type Point struct {
	ID           string
	Text         string
	Payload      map[string]any
	Vectors      map[string][]float32
	MultiVectors map[string][][]float32
}

// QueryRequest is one hybrid query. Filter, QueryDSL and Prefetch hold Call
// DSL; Text is free query text embedded into the Using space.
type QueryRequest struct {
	Collection     string
	Filter         string
	Text           string
	QueryDSL       string
	Prefetch       string
	Using          string
	Limit          int
	ScoreThreshold *float64
	DryRun         bool
}

// Hit is one scored point.
type Hit struct {
	ID           string
	Score        float64
	Payload      map[string]any
	SourceVector string
}

// QueryResult is a successful execution. Built holds the constructor-call
// renderings of the compiled filter, query and prefetch.
type QueryResult struct {
	Mode        string
	ExecutionID string
	Hits        []Hit
	Filter      string
	Query       string
	Prefetch    string
	ElapsedMS   float64
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid       bool
	Issues      []string
	Suggestions map[string][]string
	Resolved    map[string]string
}

// StructureInput is one component, optionally with a value, to place in a
// generated structure.
type StructureInput struct {
	Component string
	Value     string
}

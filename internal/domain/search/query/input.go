package query

import (
	"fmt"
	"strconv"
	"strings"
)

// InputKind tells how a VectorInput refers to its vector.
type InputKind int

// Input kinds.
const (
	InputID    InputKind = iota // vector of an existing point
	InputText                   // text awaiting embedding
	InputDense                  // single dense vector
	InputMulti                  // multi-vector (late interaction)
)

// VectorInput is a query operand: a point ID, raw text or an explicit vector.
type VectorInput struct {
	kind  InputKind
	id    string
	text  string
	dense []float32
	multi [][]float32
}

// FromID refers to the stored vector of point id.
func FromID(id string) (VectorInput, error) {
	if id == "" {
		return VectorInput{}, fmt.Errorf("point id is required")
	}
	return VectorInput{kind: InputID, id: id}, nil
}

// FromText is embedded by the executor before the store call.
func FromText(text string) (VectorInput, error) {
	if strings.TrimSpace(text) == "" {
		return VectorInput{}, fmt.Errorf("query text is required")
	}
	return VectorInput{kind: InputText, text: text}, nil
}

// FromDense wraps a dense vector.
func FromDense(v []float32) (VectorInput, error) {
	if len(v) == 0 {
		return VectorInput{}, fmt.Errorf("vector is empty")
	}
	return VectorInput{kind: InputDense, dense: v}, nil
}

// FromMulti wraps a multi-vector. Every row must have the same dimension.
func FromMulti(m [][]float32) (VectorInput, error) {
	if len(m) == 0 {
		return VectorInput{}, fmt.Errorf("multi-vector is empty")
	}
	dim := len(m[0])
	for i, row := range m {
		if len(row) == 0 || len(row) != dim {
			return VectorInput{}, fmt.Errorf("multi-vector row %d has dimension %d, want %d", i, len(row), dim)
		}
	}
	return VectorInput{kind: InputMulti, multi: m}, nil
}

// Kind returns the input kind.
func (v VectorInput) Kind() InputKind { return v.kind }

// ID returns the point id of an InputID.
func (v VectorInput) ID() string { return v.id }

// Text returns the text of an InputText.
func (v VectorInput) Text() string { return v.text }

// Dense returns the vector of an InputDense.
func (v VectorInput) Dense() []float32 { return v.dense }

// Multi returns the rows of an InputMulti.
func (v VectorInput) Multi() [][]float32 { return v.multi }

// NeedsEmbedding reports whether the input is still text.
func (v VectorInput) NeedsEmbedding() bool { return v.kind == InputText }

func (v VectorInput) String() string {
	switch v.kind {
	case InputID:
		return strconv.Quote(v.id)
	case InputText:
		return strconv.Quote(v.text)
	case InputDense:
		return formatVector(v.dense)
	case InputMulti:
		rows := make([]string, len(v.multi))
		for i, r := range v.multi {
			rows[i] = formatVector(r)
		}
		return "[" + strings.Join(rows, ", ") + "]"
	}
	return "None"
}

// formatVector prints long vectors abbreviated so Built output stays readable.
func formatVector(v []float32) string {
	const shown = 4
	parts := make([]string, 0, shown+1)
	for i, f := range v {
		if i == shown {
			parts = append(parts, fmt.Sprintf("...(%d)", len(v)))
			break
		}
		parts = append(parts, strconv.FormatFloat(float64(f), 'g', 4, 32))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// InputFunc rewrites one input, typically replacing text with its embedding.
type InputFunc func(VectorInput) (VectorInput, error)

func mapInputs(in []VectorInput, fn InputFunc) ([]VectorInput, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]VectorInput, len(in))
	for i, v := range in {
		nv, err := fn(v)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

package querybuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
)

// Args are the built parameters of one call node. Nested calls are already
// built, lists are []any, scalars are string, int64, float64, bool or nil.
// Every accessor marks its key as used; Done reports the rest.
type Args struct {
	values map[string]any
	order  []string
	used   map[string]bool
}

// NewArgs creates Args from ordered keys and their values.
func NewArgs(keys []string, values map[string]any) *Args {
	return &Args{values: values, order: keys, used: make(map[string]bool, len(keys))}
}

// Has reports whether key was given.
func (a *Args) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Raw returns the value of key and marks it used.
func (a *Args) Raw(key string) (any, bool) {
	v, ok := a.values[key]
	if ok {
		a.used[key] = true
	}
	return v, ok
}

// Keys returns the given keys in written order.
func (a *Args) Keys() []string { return append([]string(nil), a.order...) }

// Done fails when a key was given but never read.
func (a *Args) Done() error {
	var unknown []string
	for _, k := range a.order {
		if !a.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown parameter(s): %s", strings.Join(unknown, ", "))
}

// String returns a required string.
func (a *Args) String(key string) (string, error) {
	v, ok := a.Raw(key)
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(key, "string", v)
	}
	return s, nil
}

// OptString returns key as a string or def when absent or null.
func (a *Args) OptString(key, def string) (string, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(key, "string", v)
	}
	return s, nil
}

// OptInt returns key as an int or def when absent or null.
func (a *Args) OptInt(key string, def int) (int, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int64(n)) {
			return int(n), nil
		}
	}
	return 0, typeErr(key, "integer", v)
}

// OptFloat returns key as a float pointer, nil when absent or null.
func (a *Args) OptFloat(key string) (*float64, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, typeErr(key, "number", v)
	}
	return &f, nil
}

// OptBool returns key as a bool or def when absent or null.
func (a *Args) OptBool(key string, def bool) (bool, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(key, "bool", v)
	}
	return b, nil
}

// List returns key as a list. A single non-list value becomes a one-element list.
func (a *Args) List(key string) ([]any, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	if l, ok := v.([]any); ok {
		return l, nil
	}
	return []any{v}, nil
}

// Strings returns key as a list of strings.
func (a *Args) Strings(key string) ([]string, error) {
	l, err := a.List(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(l))
	for i, v := range l {
		s, ok := v.(string)
		if !ok {
			return nil, typeErr(fmt.Sprintf("%s[%d]", key, i), "string", v)
		}
		out[i] = s
	}
	return out, nil
}

// Floats returns key as a float32 vector.
func (a *Args) Floats(key string) ([]float32, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, typeErr(key, "list of numbers", v)
	}
	vec, ok := toVector(l)
	if !ok {
		return nil, typeErr(key, "list of numbers", v)
	}
	return vec, nil
}

// Conditions returns key as filter conditions. Nested filters become nested conditions.
func (a *Args) Conditions(key string) ([]filter.Condition, error) {
	l, err := a.List(key)
	if err != nil || len(l) == 0 {
		return nil, err
	}
	out := make([]filter.Condition, 0, len(l))
	for i, v := range l {
		switch c := v.(type) {
		case filter.Condition:
			out = append(out, c)
		case filter.Expression:
			out = append(out, filter.NewNested(c))
		default:
			return nil, typeErr(fmt.Sprintf("%s[%d]", key, i), "FieldCondition or Filter", v)
		}
	}
	return out, nil
}

// Filter returns key as a filter expression, nil when absent.
func (a *Args) Filter(key string) (*filter.Expression, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	switch f := v.(type) {
	case filter.Expression:
		return &f, nil
	case filter.Condition:
		e, err := filter.NewExpression([]filter.Condition{f}, nil, nil)
		if err != nil {
			return nil, err
		}
		return &e, nil
	}
	return nil, typeErr(key, "Filter", v)
}

// Match returns key as a match clause, nil when absent. Bare scalars become MatchValue.
func (a *Args) Match(key string) (*filter.Match, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	if m, ok := v.(filter.Match); ok {
		return &m, nil
	}
	m, err := filter.NewMatchValue(v)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", key, err)
	}
	return &m, nil
}

// Range returns key as a range, nil when absent.
func (a *Args) Range(key string) (*filter.Range, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	r, ok := v.(filter.Range)
	if !ok {
		return nil, typeErr(key, "Range", v)
	}
	return &r, nil
}

// Query returns key as a top-level query, nil when absent.
func (a *Args) Query(key string) (query.Query, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	switch q := v.(type) {
	case query.Query:
		return q, nil
	case query.RecommendInput:
		return query.NewRecommend(q), nil
	}
	return nil, typeErr(key, "query", v)
}

// Prefetches returns key as prefetch stages.
func (a *Args) Prefetches(key string) ([]query.Prefetch, error) {
	l, err := a.List(key)
	if err != nil || len(l) == 0 {
		return nil, err
	}
	out := make([]query.Prefetch, 0, len(l))
	for i, v := range l {
		p, ok := v.(query.Prefetch)
		if !ok {
			return nil, typeErr(fmt.Sprintf("%s[%d]", key, i), "Prefetch", v)
		}
		out = append(out, p)
	}
	return out, nil
}

// Input returns key as a vector input. Strings are point IDs, number lists are
// dense vectors, lists of number lists are multi-vectors and a Nearest call
// contributes its own input.
func (a *Args) Input(key string) (query.VectorInput, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return query.VectorInput{}, fmt.Errorf("missing required parameter %q", key)
	}
	in, err := toInput(v)
	if err != nil {
		return query.VectorInput{}, fmt.Errorf("parameter %q: %w", key, err)
	}
	return in, nil
}

// Inputs returns key as a list of vector inputs. A flat number list is one dense vector.
func (a *Args) Inputs(key string) ([]query.VectorInput, error) {
	v, ok := a.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	l, isList := v.([]any)
	if !isList {
		l = []any{v}
	} else if _, numeric := toVector(l); numeric && len(l) > 0 {
		l = []any{l}
	}
	out := make([]query.VectorInput, 0, len(l))
	for i, e := range l {
		in, err := toInput(e)
		if err != nil {
			return nil, fmt.Errorf("parameter %q[%d]: %w", key, i, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func toInput(v any) (query.VectorInput, error) {
	switch x := v.(type) {
	case query.VectorInput:
		return x, nil
	case query.Nearest:
		return x.Input(), nil
	case string:
		return query.FromID(x)
	case int64:
		return query.FromID(fmt.Sprint(x))
	case []any:
		if vec, ok := toVector(x); ok {
			return query.FromDense(vec)
		}
		rows := make([][]float32, len(x))
		for i, r := range x {
			rl, ok := r.([]any)
			if !ok {
				return query.VectorInput{}, fmt.Errorf("row %d is not a vector", i)
			}
			vec, ok := toVector(rl)
			if !ok {
				return query.VectorInput{}, fmt.Errorf("row %d is not a vector", i)
			}
			rows[i] = vec
		}
		return query.FromMulti(rows)
	}
	return query.VectorInput{}, fmt.Errorf("cannot use %T as a vector input", v)
}

func toVector(l []any) ([]float32, bool) {
	out := make([]float32, len(l))
	for i, e := range l {
		f, ok := toFloat(e)
		if !ok {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func typeErr(key, want string, got any) error {
	return fmt.Errorf("parameter %q: expected %s, got %T", key, want, got)
}

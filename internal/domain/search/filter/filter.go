package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

func (e Expression) String() string {
	var parts []string
	group := func(name string, conds []Condition) {
		if len(conds) == 0 {
			return
		}
		items := make([]string, len(conds))
		for i, c := range conds {
			items[i] = c.String()
		}
		parts = append(parts, name+"=["+strings.Join(items, ", ")+"]")
	}
	group("must", e.must)
	group("should", e.should)
	group("must_not", e.mustNot)
	return "Filter(" + strings.Join(parts, ", ") + ")"
}

// Condition is a single filter clause: a field match, a numeric range, both,
// or a nested expression.
type Condition struct {
	key       string
	match     *Match
	rangeExpr *Range
	nested    *Expression
}

// NewFieldCondition creates a condition on key. At least one of m and r is required.
func NewFieldCondition(key string, m *Match, r *Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if m == nil && r == nil {
		return Condition{}, fmt.Errorf("match or range is required for key %q", key)
	}
	return Condition{key: key, match: m, rangeExpr: r}, nil
}

// NewMatch creates an exact value match condition.
func NewMatch(key string, value any) (Condition, error) {
	m, err := NewMatchValue(value)
	if err != nil {
		return Condition{}, fmt.Errorf("key %q: %w", key, err)
	}
	return NewFieldCondition(key, &m, nil)
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	return NewFieldCondition(key, nil, &r)
}

// NewNested wraps an expression so it can sit inside another group.
func NewNested(e Expression) Condition {
	return Condition{nested: &e}
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the match clause.
func (c Condition) Match() *Match { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// Nested returns the nested expression.
func (c Condition) Nested() *Expression { return c.nested }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != nil }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// IsNested reports whether this wraps an expression.
func (c Condition) IsNested() bool { return c.nested != nil }

func (c Condition) String() string {
	if c.nested != nil {
		return c.nested.String()
	}
	parts := []string{"key=" + strconv.Quote(c.key)}
	if c.match != nil {
		parts = append(parts, "match="+c.match.String())
	}
	if c.rangeExpr != nil {
		parts = append(parts, "range="+c.rangeExpr.String())
	}
	return "FieldCondition(" + strings.Join(parts, ", ") + ")"
}

// MatchKind selects how a Match compares the field.
type MatchKind int

// Match kinds.
const (
	MatchValue MatchKind = iota
	MatchAny
	MatchExcept
	MatchText
)

func (k MatchKind) String() string {
	switch k {
	case MatchValue:
		return "MatchValue"
	case MatchAny:
		return "MatchAny"
	case MatchExcept:
		return "MatchExcept"
	case MatchText:
		return "MatchText"
	}
	return "Match"
}

// Match compares a payload field against one value, a value set or a text query.
type Match struct {
	kind   MatchKind
	value  any
	values []any
	text   string
}

// NewMatchValue matches fields equal to v (string, integer or bool).
func NewMatchValue(v any) (Match, error) {
	nv, err := scalar(v)
	if err != nil {
		return Match{}, err
	}
	return Match{kind: MatchValue, value: nv}, nil
}

// NewMatchAny matches fields equal to any of vs.
func NewMatchAny(vs []any) (Match, error) {
	return newSetMatch(MatchAny, vs)
}

// NewMatchExcept matches fields equal to none of vs.
func NewMatchExcept(vs []any) (Match, error) {
	return newSetMatch(MatchExcept, vs)
}

func newSetMatch(kind MatchKind, vs []any) (Match, error) {
	if len(vs) == 0 {
		return Match{}, fmt.Errorf("%s needs at least one value", kind)
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		nv, err := scalar(v)
		if err != nil {
			return Match{}, fmt.Errorf("%s value %d: %w", kind, i, err)
		}
		out[i] = nv
	}
	return Match{kind: kind, values: out}, nil
}

// NewMatchText matches fields whose full text contains text.
func NewMatchText(text string) (Match, error) {
	if strings.TrimSpace(text) == "" {
		return Match{}, fmt.Errorf("match text is required")
	}
	return Match{kind: MatchText, text: text}, nil
}

// scalar normalizes match values to string, int64 or bool.
func scalar(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, fmt.Errorf("match value is required")
		}
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("match value %v is not an integer", x)
		}
		return int64(x), nil
	case nil:
		return nil, fmt.Errorf("match value is required")
	}
	return nil, fmt.Errorf("unsupported match value type %T", v)
}

// Kind returns the match kind.
func (m Match) Kind() MatchKind { return m.kind }

// Value returns the MatchValue operand.
func (m Match) Value() any { return m.value }

// Values returns the MatchAny / MatchExcept operands.
func (m Match) Values() []any { return m.values }

// Text returns the MatchText operand.
func (m Match) Text() string { return m.text }

func (m Match) String() string {
	switch m.kind {
	case MatchValue:
		return "MatchValue(value=" + FormatValue(m.value) + ")"
	case MatchAny:
		return "MatchAny(any=" + formatList(m.values) + ")"
	case MatchExcept:
		return "MatchExcept(except=" + formatList(m.values) + ")"
	case MatchText:
		return "MatchText(text=" + strconv.Quote(m.text) + ")"
	}
	return "Match()"
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

func (r Range) String() string {
	var parts []string
	add := func(name string, v *float64) {
		if v != nil {
			parts = append(parts, name+"="+strconv.FormatFloat(*v, 'g', -1, 64))
		}
	}
	add("gt", r.gt)
	add("gte", r.gte)
	add("lt", r.lt)
	add("lte", r.lte)
	return "Range(" + strings.Join(parts, ", ") + ")"
}

// FormatValue renders a scalar the way String methods print it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "None"
	}
	return fmt.Sprint(v)
}

func formatList(vs []any) string {
	items := make([]string, len(vs))
	for i, v := range vs {
		items[i] = FormatValue(v)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

package redis

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
)

// matches evaluates expr against a flattened point hash the way the FT
// query built by buildFilter would: tags compare case-insensitively and
// list values split on ",".
func matches(expr filter.Expression, fields map[string]string) bool {
	for _, c := range expr.Must() {
		if !matchCondition(c, fields) {
			return false
		}
	}
	if should := expr.Should(); len(should) > 0 {
		hit := false
		for _, c := range should {
			if matchCondition(c, fields) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, c := range expr.MustNot() {
		if matchCondition(c, fields) {
			return false
		}
	}
	return true
}

func matchCondition(c filter.Condition, fields map[string]string) bool {
	if c.IsNested() {
		return matches(*c.Nested(), fields)
	}
	raw, ok := fields[c.Key()]
	if c.IsMatch() && !matchField(*c.Match(), raw, ok) {
		return false
	}
	if c.IsRange() {
		if !ok {
			return false
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || !inRange(*c.Range(), n) {
			return false
		}
	}
	return true
}

func matchField(m filter.Match, raw string, present bool) bool {
	switch m.Kind() {
	case filter.MatchValue:
		return present && anyValue(raw, []any{m.Value()})
	case filter.MatchAny:
		return present && anyValue(raw, m.Values())
	case filter.MatchExcept:
		return !present || !anyValue(raw, m.Values())
	case filter.MatchText:
		return present && strings.Contains(strings.ToLower(raw), strings.ToLower(m.Text()))
	}
	return false
}

func anyValue(raw string, values []any) bool {
	for _, v := range values {
		switch x := v.(type) {
		case int64:
			if n, err := strconv.ParseFloat(raw, 64); err == nil && n == float64(x) {
				return true
			}
		case bool:
			if hasTag(raw, strconv.FormatBool(x)) {
				return true
			}
		case string:
			if hasTag(raw, x) {
				return true
			}
		}
	}
	return false
}

func hasTag(raw, want string) bool {
	for _, t := range strings.Split(raw, ",") {
		if strings.EqualFold(strings.TrimSpace(t), want) {
			return true
		}
	}
	return false
}

func inRange(r filter.Range, n float64) bool {
	if r.GT() != nil && n <= *r.GT() {
		return false
	}
	if r.GTE() != nil && n < *r.GTE() {
		return false
	}
	if r.LT() != nil && n >= *r.LT() {
		return false
	}
	if r.LTE() != nil && n > *r.LTE() {
		return false
	}
	return true
}

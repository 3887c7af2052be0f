package redis

import (
	"testing"

	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
)

func TestMatches(t *testing.T) {
	fields := map[string]string{
		"tags":  "go,Search",
		"year":  "2021",
		"draft": "false",
		"body":  "Late interaction over word windows",
	}

	must := func(c filter.Condition, err error) filter.Condition {
		if err != nil {
			t.Fatalf("condition: %v", err)
		}
		return c
	}
	field := func(key string, m filter.Match, err error) filter.Condition {
		if err != nil {
			t.Fatalf("match: %v", err)
		}
		return must(filter.NewFieldCondition(key, &m, nil))
	}
	expr := func(m, s, n []filter.Condition) filter.Expression {
		e, err := filter.NewExpression(m, s, n)
		if err != nil {
			t.Fatalf("expression: %v", err)
		}
		return e
	}
	gt := 2020.0
	rng, _ := filter.NewRangeFilter(&gt, nil, nil, nil)
	lt := 2000.0
	oldRng, _ := filter.NewRangeFilter(nil, nil, &lt, nil)

	anyM, anyErr := filter.NewMatchAny([]any{"rust", "search"})
	exceptM, exceptErr := filter.NewMatchExcept([]any{"python"})
	exceptHit, exceptHitErr := filter.NewMatchExcept([]any{"go"})
	textM, textErr := filter.NewMatchText("WORD windows")

	tests := []struct {
		name string
		expr filter.Expression
		want bool
	}{
		{"empty", filter.Expression{}, true},
		{"tag in list case-insensitive", expr([]filter.Condition{must(filter.NewMatch("tags", "search"))}, nil, nil), true},
		{"tag missing", expr([]filter.Condition{must(filter.NewMatch("tags", "rust"))}, nil, nil), false},
		{"numeric value", expr([]filter.Condition{must(filter.NewMatch("year", 2021))}, nil, nil), true},
		{"bool value", expr([]filter.Condition{must(filter.NewMatch("draft", false))}, nil, nil), true},
		{"range", expr([]filter.Condition{must(filter.NewRange("year", rng))}, nil, nil), true},
		{"range miss", expr([]filter.Condition{must(filter.NewRange("year", oldRng))}, nil, nil), false},
		{"range on missing field", expr([]filter.Condition{must(filter.NewRange("price", rng))}, nil, nil), false},
		{"any", expr([]filter.Condition{field("tags", anyM, anyErr)}, nil, nil), true},
		{"except", expr([]filter.Condition{field("tags", exceptM, exceptErr)}, nil, nil), true},
		{"except hit", expr([]filter.Condition{field("tags", exceptHit, exceptHitErr)}, nil, nil), false},
		{"except missing field", expr([]filter.Condition{field("lang", exceptM, exceptErr)}, nil, nil), true},
		{"text", expr([]filter.Condition{field("body", textM, textErr)}, nil, nil), true},
		{"should none", expr(nil, []filter.Condition{must(filter.NewMatch("tags", "rust")), must(filter.NewRange("year", oldRng))}, nil), false},
		{"should one", expr(nil, []filter.Condition{must(filter.NewMatch("tags", "rust")), must(filter.NewMatch("tags", "go"))}, nil), true},
		{"must not", expr(nil, nil, []filter.Condition{must(filter.NewMatch("tags", "go"))}), false},
		{"nested", expr([]filter.Condition{filter.NewNested(expr(nil, nil, []filter.Condition{must(filter.NewMatch("year", 1999))}))}, nil, nil), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matches(tc.expr, fields); got != tc.want {
				t.Errorf("matches = %v, want %v", got, tc.want)
			}
		})
	}
}

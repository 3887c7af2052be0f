package querybuild

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/domain/dsl"
	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
	"github.com/kailas-cloud/symdex/internal/domain/symbol"
)

func buildOne(t *testing.T, text string) any {
	t.Helper()
	objs, err := NewDefault().BuildString(text)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	return objs[0]
}

func TestBuild_Filter(t *testing.T) {
	obj := buildOne(t, `ƒ{must=[ʄ{key="city", match=☆{value="London"}}, ʄ{key="price", range=®{gte=10, lt=99.5}}], must_not=[ʄ{key="tag", match=✦{any=["a", "b"]}}]}`)

	expr, ok := obj.(filter.Expression)
	require.True(t, ok, "got %T", obj)
	require.Len(t, expr.Must(), 2)
	require.Len(t, expr.MustNot(), 1)

	assert.Equal(t, "city", expr.Must()[0].Key())
	assert.Equal(t, "London", expr.Must()[0].Match().Value())
	assert.Equal(t, 10.0, *expr.Must()[1].Range().GTE())
	assert.Equal(t, filter.MatchAny, expr.MustNot()[0].Match().Kind())
}

// Building the DSL yields the same object as calling the constructors directly.
func TestBuild_Fidelity(t *testing.T) {
	city, err := filter.NewMatch("city", "London")
	require.NoError(t, err)
	text, err := filter.NewMatchText("quiet street")
	require.NoError(t, err)
	desc, err := filter.NewFieldCondition("desc", &text, nil)
	require.NoError(t, err)
	inner, err := filter.NewExpression(nil, []filter.Condition{desc}, nil)
	require.NoError(t, err)
	want, err := filter.NewExpression([]filter.Condition{city, filter.NewNested(inner)}, nil, nil)
	require.NoError(t, err)

	got := buildOne(t, `ƒ{must=[ʄ{key="city", match=☆{value="London"}}, ƒ{should=[ʄ{key="desc", match=✎{text="quiet street"}}]}]}`)

	assert.Equal(t, want, got)
	assert.Equal(t, want.String(), got.(filter.Expression).String())
}

func TestBuild_BareScalarMatch(t *testing.T) {
	obj := buildOne(t, `ʄ{key="n", match=3}`)
	c := obj.(filter.Condition)
	assert.Equal(t, int64(3), c.Match().Value())
}

func TestBuild_Queries(t *testing.T) {
	tests := []struct {
		name string
		dsl  string
		want string
	}{
		{
			name: "nearest text",
			dsl:  `ɳ{text="red running shoes"}`,
			want: `NearestQuery(nearest="red running shoes")`,
		},
		{
			name: "nearest vector",
			dsl:  `ɳ{vector=[1, 0.5]}`,
			want: `NearestQuery(nearest=[1, 0.5])`,
		},
		{
			name: "nearest string is text",
			dsl:  `ɳ{nearest="hello"}`,
			want: `NearestQuery(nearest="hello")`,
		},
		{
			name: "recommend",
			dsl:  `ʀ{recommend=ɹ{positive=["p1", "p2"], negative=["n1"], strategy="best_score"}}`,
			want: `RecommendQuery(recommend=RecommendInput(positive=["p1", "p2"], negative=["n1"], strategy="best_score"))`,
		},
		{
			name: "recommend inline",
			dsl:  `ʀ{positive="p1"}`,
			want: `RecommendQuery(recommend=RecommendInput(positive=["p1"], strategy="average_vector"))`,
		},
		{
			name: "discover",
			dsl:  `Ɖ{target=ɳ{text="beach"}, context=[ꝯ{positive="a", negative="b"}]}`,
			want: `DiscoverQuery(discover=DiscoverInput(target="beach", context=[ContextPair(positive="a", negative="b")]))`,
		},
		{
			name: "fusion",
			dsl:  `⊕{fusion="rrf"}`,
			want: `FusionQuery(fusion=Fusion.RRF)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := buildOne(t, tt.dsl)
			s, ok := obj.(interface{ String() string })
			require.True(t, ok, "got %T", obj)
			assert.Equal(t, tt.want, s.String())
		})
	}
}

func TestBuild_DiscoverTargetKeepsText(t *testing.T) {
	obj := buildOne(t, `Ɖ{target=ɳ{text="beach"}, context=ꝯ{positive="a", negative="b"}}`)
	d := obj.(query.Discover)
	assert.True(t, d.Target().NeedsEmbedding())
	assert.Len(t, d.Context(), 1)
}

func TestBuild_MultiRootPrefetch(t *testing.T) {
	objs, err := NewDefault().BuildString(
		`ℙ{query=ɳ{text="q"}, using="dense", limit=50}, ℙ{query=ɳ{text="q"}, using="colbert", limit=50, filter=ƒ{must=[ʄ{key="lang", match=☆{value="en"}}]}}`)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	p0 := objs[0].(query.Prefetch)
	p1 := objs[1].(query.Prefetch)
	assert.Equal(t, "dense", p0.Using())
	assert.Equal(t, 50, p0.Limit())
	assert.Equal(t, "colbert", p1.Using())
	require.NotNil(t, p1.Filter())
	assert.Len(t, p1.Filter().Must(), 1)
}

func TestBuild_NestedPrefetchWithFusion(t *testing.T) {
	obj := buildOne(t, `ℙ{prefetch=[ℙ{query=ɳ{text="q"}, using="dense"}, ℙ{query=ɳ{text="q"}, using="sparse"}], query=⊕{fusion="rrf"}, limit=5}`)
	p := obj.(query.Prefetch)
	assert.Len(t, p.Prefetch(), 2)
	assert.Equal(t, query.KindFusion, p.Query().Kind())
}

func TestBuild_ResolvesByName(t *testing.T) {
	obj := buildOne(t, `MatchValue{value="x"}`)
	assert.Equal(t, "x", obj.(filter.Match).Value())
}

func TestBuild_UnresolvedSymbol(t *testing.T) {
	_, err := NewDefault().BuildString(`ƒ{must=[Ω{key="x"}]}`)
	require.Error(t, err)

	var unresolved *domain.UnresolvedSymbolError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "Ω", unresolved.Symbol)
	assert.ErrorIs(t, err, domain.ErrUnresolvedSymbol)
	assert.True(t, IsBuildFailure(err))
}

func TestBuild_ConstructorError(t *testing.T) {
	tests := []struct {
		name string
		dsl  string
	}{
		{"missing key", `ʄ{match=☆{value="x"}}`},
		{"unknown parameter", `☆{value="x", colour="red"}`},
		{"bad range", `®{gt=1, gte=2}`},
		{"nearest needs one input", `ɳ{text="a", id="b"}`},
		{"wrong nested type", `ƒ{must=[®{gt=1}]}`},
		{"empty recommend", `ɹ{negative=["n"]}`},
		{"fusion without stages", `ℙ{query=⊕{fusion="rrf"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefault().BuildString(tt.dsl)
			require.Error(t, err)

			var be *domain.QueryBuildError
			require.True(t, errors.As(err, &be), "err = %v", err)
			assert.NotEmpty(t, be.Node)
			assert.ErrorIs(t, err, domain.ErrQueryBuild)
		})
	}
}

func TestBuild_InnermostNodeReported(t *testing.T) {
	_, err := NewDefault().BuildString(`ƒ{must=[ʄ{key="", match=☆{value="x"}}]}`)
	var be *domain.QueryBuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, `ʄ{key="", match=☆{value="x"}}`, be.Node)
}

func TestBuild_ConstructorPanicBecomesBuildError(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.Register("Boom", func(*Args) (any, error) { panic("kaboom") }))
	svc := New(reg, DefaultSymbols())

	_, err := svc.Build(&dsl.CallNode{Symbol: "Boom"})
	var be *domain.QueryBuildError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Cause.Error(), "kaboom")
}

func TestBuildString_ParseError(t *testing.T) {
	_, err := NewDefault().BuildString(`ƒ{must=[`)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.False(t, IsBuildFailure(err))
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Len(t, reg.Names(), 14)
	assert.Error(t, reg.Register(NameFilter, newFilter))
	assert.Error(t, reg.Register("", newFilter))

	// every default symbol resolves to a registered constructor
	for _, name := range DefaultSymbols().Names() {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestArgs_Done(t *testing.T) {
	a := NewArgs([]string{"a", "b", "c"}, map[string]any{"a": "x", "b": int64(1), "c": true})
	_, _ = a.String("a")
	err := a.Done()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b, c")

	_, _ = a.OptInt("b", 0)
	_, _ = a.OptBool("c", false)
	assert.NoError(t, a.Done())
}

func TestArgs_Inputs(t *testing.T) {
	a := NewArgs([]string{"ids", "vec", "vecs"}, map[string]any{
		"ids":  []any{"a", "b"},
		"vec":  []any{1.0, int64(2)},
		"vecs": []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
	})

	ids, err := a.Inputs("ids")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, query.InputID, ids[0].Kind())

	vec, err := a.Inputs("vec")
	require.NoError(t, err)
	require.Len(t, vec, 1)
	assert.Equal(t, []float32{1, 2}, vec[0].Dense())

	vecs, err := a.Inputs("vecs")
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestArgs_MultiVectorInput(t *testing.T) {
	a := NewArgs([]string{"m"}, map[string]any{"m": []any{[]any{1.0, 2.0}, []any{3.0, 4.0}}})
	in, err := a.Input("m")
	require.NoError(t, err)
	assert.Equal(t, query.InputMulti, in.Kind())
}

func TestReserveSymbols_DisjointFromCatalogPools(t *testing.T) {
	pools := ReserveSymbols(symbol.DefaultPools())
	assert.ElementsMatch(t, DefaultSymbols().Symbols(), pools.Reserved)

	names := []string{"Filter", "FieldCondition", "Footer", "Form", "Range", "Recommend", "Nearest", "Discover"}
	mapping, err := symbol.Generate(pools, names, "")
	require.NoError(t, err)
	for name, sym := range mapping {
		_, clash := DefaultSymbols().Name(sym)
		assert.False(t, clash, "%s got query symbol %q", name, sym)
	}
}

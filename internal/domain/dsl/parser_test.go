package dsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/symdex/internal/domain/symbol"
)

func uiParser() *Parser {
	return NewParser(symbol.MustTable(map[string]string{
		"Section": "§",
		"Divider": "δ",
		"Box":     "Ƀ",
		"Button":  "ᵬ",
		"Heading": "ɦ",
		"Text":    "ʈ",
	}))
}

func queryParser() *Parser {
	return NewParser(symbol.MustTable(map[string]string{
		"Filter":         "ƒ",
		"FieldCondition": "ʄ",
		"MatchValue":     "☆",
		"Range":          "®",
	}))
}

func TestParseStructure_Nested(t *testing.T) {
	res := uiParser().ParseStructure("§[δ×3, Ƀ[ᵬ×2]]")
	require.True(t, res.Valid, "%v", res.Issues)
	require.Len(t, res.Roots, 1)

	root := res.Roots[0]
	assert.Equal(t, "Section", root.Name)
	assert.Equal(t, 1, root.Multiplier)
	require.Len(t, root.Children, 2)

	assert.Equal(t, "Divider", root.Children[0].Name)
	assert.Equal(t, 3, root.Children[0].Multiplier)
	assert.Equal(t, "Box", root.Children[1].Name)
	require.Len(t, root.Children[1].Children, 1)
	assert.Equal(t, "Button", root.Children[1].Children[0].Name)
	assert.Equal(t, 2, root.Children[1].Children[0].Multiplier)
}

func TestParseStructure_AsteriskMultiplierAndSiblings(t *testing.T) {
	res := uiParser().ParseStructure("§ , δ*2")
	require.True(t, res.Valid, "%v", res.Issues)
	require.Len(t, res.Roots, 2)
	assert.Equal(t, 2, res.Roots[1].Multiplier)
}

func TestParseStructure_RoundTrip(t *testing.T) {
	p := uiParser()
	inputs := []string{
		"§[δ×3, Ƀ[ᵬ×2]]",
		"§, ɦ, ʈ×4",
		"§[Ƀ[Ƀ[ᵬ]]]",
	}
	for _, in := range inputs {
		first := p.ParseStructure(in)
		require.True(t, first.Valid, in)

		rendered := RenderStructure(first.Roots)
		assert.Equal(t, in, rendered)

		second := p.ParseStructure(rendered)
		require.True(t, second.Valid, rendered)
		assert.Equal(t, shape(first.Roots), shape(second.Roots))
	}
}

// shape strips positions so trees parsed from different text compare equal.
func shape(nodes []*Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, []any{n.Name, n.Multiplier, shape(n.Children)})
	}
	return out
}

func TestParseStructure_Issues(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty", "   ", ErrEmptyInput},
		{"unknown symbol", "§[?]", `unknown symbol "?"`},
		{"unclosed bracket", "§[δ", "unclosed '['"},
		{"stray closer", "§]", "expected ',' or end of input"},
		{"bad multiplier", "δ×x", `invalid multiplier "x"`},
		{"missing multiplier", "δ×", "missing multiplier"},
		{"trailing comma", "§[δ,]", "trailing ','"},
		{"missing separator", "§[δ ɦ]", "expected ',' or ']'"},
	}
	p := uiParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := p.ParseStructure(tc.input)
			assert.False(t, res.Valid)
			require.NotEmpty(t, res.Issues)
			found := false
			for _, is := range res.Issues {
				if strings.Contains(is.Message, tc.message) {
					found = true
				}
			}
			assert.True(t, found, "issues %v do not mention %q", res.Issues, tc.message)
		})
	}
}

func TestParseStructure_NonPositiveMultiplierKept(t *testing.T) {
	res := uiParser().ParseStructure("§[δ×0, ɦ×-2]")
	require.True(t, res.Valid, "%v", res.Issues)
	assert.Equal(t, 0, res.Roots[0].Children[0].Multiplier)
	assert.Equal(t, -2, res.Roots[0].Children[1].Multiplier)
	assert.Equal(t, "§[δ×0, ɦ×-2]", RenderStructure(res.Roots))
}

func TestParseStructure_PartialTreeAfterError(t *testing.T) {
	res := uiParser().ParseStructure("§[δ, ?, ɦ]")
	assert.False(t, res.Valid)
	require.Len(t, res.Roots, 1)
	require.Len(t, res.Roots[0].Children, 3)
	assert.Equal(t, "Heading", res.Roots[0].Children[2].Name)
	assert.Equal(t, Position{Line: 1, Column: 6, Offset: 7}, res.Roots[0].Children[1].Pos)
}

func TestParseStructure_DepthLimit(t *testing.T) {
	p := NewParser(symbol.MustTable(map[string]string{"Box": "Ƀ"}), WithMaxDepth(3))
	res := p.ParseStructure(strings.Repeat("Ƀ[", 10) + "Ƀ" + strings.Repeat("]", 10))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Issues[0].Message, "nesting deeper than 3")
}

func TestParseStructure_NeverPanics(t *testing.T) {
	p := uiParser()
	inputs := []string{"[", "]", "×", "§[[[", "§{}", `"`, "§[δ×]", ",,,", "§[δ]]]", "\x00\xff"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { p.ParseStructure(in) }, in)
		assert.NotPanics(t, func() { p.ParseCall(in) }, in)
		assert.NotPanics(t, func() { p.ParseContent(in) }, in)
	}
}

func TestParseCall_Nested(t *testing.T) {
	res := queryParser().ParseCall(`ƒ{must=[ʄ{key="city", match=☆{value="London"}}, ʄ{key="price", range=®{gte=10, lt=99.5}}], limit=5}`)
	require.True(t, res.Valid, "%v", res.Issues)
	require.Len(t, res.Roots, 1)

	f := res.Roots[0]
	assert.Equal(t, "Filter", f.Name)
	assert.Equal(t, []string{"must", "limit"}, f.Keys())

	must, ok := f.Param("must")
	require.True(t, ok)
	list, ok := must.([]Value)
	require.True(t, ok)
	require.Len(t, list, 2)

	cond := list[0].(*CallNode)
	assert.Equal(t, "FieldCondition", cond.Name)
	key, _ := cond.Param("key")
	assert.Equal(t, "city", key)
	match, _ := cond.Param("match")
	assert.Equal(t, "MatchValue", match.(*CallNode).Name)

	rng, _ := list[1].(*CallNode).Param("range")
	gte, _ := rng.(*CallNode).Param("gte")
	lt, _ := rng.(*CallNode).Param("lt")
	assert.Equal(t, int64(10), gte)
	assert.Equal(t, 99.5, lt)

	limit, _ := f.Param("limit")
	assert.Equal(t, int64(5), limit)
}

func TestParseCall_Literals(t *testing.T) {
	res := queryParser().ParseCall(`☆{a=true, b=False, c=null, d=word, e='it\'s', f=-3, g=[]}`)
	require.True(t, res.Valid, "%v", res.Issues)

	c := res.Roots[0]
	want := map[string]Value{
		"a": true, "b": false, "c": nil, "d": "word", "e": "it's", "f": int64(-3), "g": []Value{},
	}
	for k, v := range want {
		got, ok := c.Param(k)
		require.True(t, ok, k)
		assert.Equal(t, v, got, k)
	}
}

func TestParseCall_UnresolvedSymbolIsNotAnIssue(t *testing.T) {
	res := queryParser().ParseCall(`Ω{x=1}`)
	assert.True(t, res.Valid)
	assert.Equal(t, "", res.Roots[0].Name)
	assert.Equal(t, "Ω", res.Roots[0].Symbol)
}

func TestParseCall_MultipleRoots(t *testing.T) {
	res := queryParser().ParseCall(`☆{value=1}, ☆{value=2}`)
	require.True(t, res.Valid)
	assert.Len(t, res.Roots, 2)
}

func TestParseCall_Issues(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"missing brace", `ƒ`, "expected '{'"},
		{"unclosed brace", `ƒ{a=1`, "unclosed '{'"},
		{"missing equals", `ƒ{a 1}`, "expected '='"},
		{"missing value", `ƒ{a=}`, "expected a value"},
		{"duplicate key", `ƒ{a=1, a=2}`, `duplicate parameter "a"`},
		{"unterminated string", `ƒ{a="x}`, ErrUnterminatedString},
		{"unclosed list", `ƒ{a=[1, 2}`, "unclosed '['"},
	}
	p := queryParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := p.ParseCall(tc.input)
			assert.False(t, res.Valid)
			found := false
			for _, is := range res.Issues {
				if strings.Contains(is.Message, tc.message) {
					found = true
				}
			}
			assert.True(t, found, "issues %v do not mention %q", res.Issues, tc.message)
		})
	}
}

func TestParseCall_RecoversAfterBadParam(t *testing.T) {
	res := queryParser().ParseCall(`ƒ{a=, b=2}`)
	assert.False(t, res.Valid)
	require.Len(t, res.Roots, 1)
	b, ok := res.Roots[0].Param("b")
	require.True(t, ok)
	assert.Equal(t, int64(2), b)
}

func TestRenderCall_RoundTrip(t *testing.T) {
	p := queryParser()
	in := `ƒ{must=[ʄ{key="name", match=☆{value="say \"hi\""}}], limit=3, score=0.25, flag=false, none=null}`
	first := p.ParseCall(in)
	require.True(t, first.Valid, "%v", first.Issues)

	out := RenderCall(first.Roots[0])
	assert.Equal(t, in, out)

	second := p.ParseCall(out)
	require.True(t, second.Valid)
	assert.Equal(t, RenderCall(first.Roots[0]), RenderCall(second.Roots[0]))
}

func TestParseContent(t *testing.T) {
	input := strings.Join([]string{
		`ɦ "Welcome back" .bold .center`,
		`ᵬ Sign in /login .primary`,
		``,
		`ʈ First line`,
		`   second line`,
		`ᵬ https://example.com`,
	}, "\n")

	res := uiParser().ParseContent(input)
	require.True(t, res.Valid, "%v", res.Issues)
	require.Len(t, res.Nodes, 4)

	h := res.Nodes[0]
	assert.Equal(t, "Heading", h.Name)
	assert.Equal(t, "Welcome back", h.Text)
	assert.Equal(t, []string{"bold", "center"}, h.Modifiers)
	assert.True(t, h.HasModifier(".bold"))

	b := res.Nodes[1]
	assert.Equal(t, "Sign in", b.Text)
	assert.Equal(t, "/login", b.Action)
	assert.Equal(t, []string{"primary"}, b.Modifiers)

	assert.Equal(t, "First line\nsecond line", res.Nodes[2].Text)
	assert.Equal(t, 4, res.Nodes[2].Pos.Line)

	assert.Equal(t, "", res.Nodes[3].Text)
	assert.Equal(t, "https://example.com", res.Nodes[3].Action)
}

func TestParseContent_Issues(t *testing.T) {
	res := uiParser().ParseContent("  orphan\n? hello\nɦ\nʈ \"open")
	assert.False(t, res.Valid)

	var msgs []string
	for _, is := range res.Issues {
		msgs = append(msgs, is.String())
	}
	joined := strings.Join(msgs, "; ")
	assert.Contains(t, joined, "1:1: continuation line")
	assert.Contains(t, joined, `2:1: unknown symbol "?"`)
	assert.Contains(t, joined, `3:1: missing text`)
	assert.Contains(t, joined, "4:3: "+ErrUnterminatedString)
}

func TestRenderContent_RoundTrip(t *testing.T) {
	p := uiParser()
	first := p.ParseContent("ɦ \"Hi\" .bold\nʈ one\n  two\nᵬ Go /next .primary")
	require.True(t, first.Valid, "%v", first.Issues)

	second := p.ParseContent(RenderContent(first.Nodes))
	require.True(t, second.Valid, "%v", second.Issues)
	require.Len(t, second.Nodes, len(first.Nodes))
	for i := range first.Nodes {
		a, b := first.Nodes[i], second.Nodes[i]
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Text, b.Text)
		assert.Equal(t, a.Action, b.Action)
		assert.Equal(t, a.Modifiers, b.Modifiers)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
	}{
		{"§[δ×3]", DialectStructure},
		{"§", DialectStructure},
		{"§, δ", DialectStructure},
		{"δ×2", DialectStructure},
		{"ƒ{must=[]}", DialectCall},
		{"ƒ {must=[]}", DialectCall},
		{`ɦ "Hello"`, DialectContent},
		{"ʈ some words", DialectContent},
		{"  \n§[δ]", DialectStructure},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Detect(tc.in), tc.in)
	}
}

func TestLexer_Positions(t *testing.T) {
	toks, issues := Tokenize("§[\n  δ×3]")
	require.Empty(t, issues)

	types := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{TokenWord, TokenLBrack, TokenWord, TokenTimes, TokenWord, TokenRBrack, TokenEOF}, types)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 6}, toks[2].Pos)
}

package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detect guesses the dialect of text from its first symbol: a following '{'
// means Call, a following space and free text means Content, anything else
// is Structure.
func Detect(text string) Dialect {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	i := 0
	for i < len(trimmed) {
		r, size := utf8.DecodeRuneInString(trimmed[i:])
		if unicode.IsSpace(r) || isDelimiter(r) {
			break
		}
		i += size
	}
	rest := trimmed[i:]
	if rest == "" {
		return DialectStructure
	}

	r, _ := utf8.DecodeRuneInString(rest)
	switch {
	case r == '{':
		return DialectCall
	case r == '[' || r == ',' || r == '×' || r == '*' || r == ']':
		return DialectStructure
	case r == '"' || r == '\'':
		return DialectContent
	case unicode.IsSpace(r):
		after := strings.TrimLeftFunc(rest, unicode.IsSpace)
		if after == "" {
			return DialectStructure
		}
		n, _ := utf8.DecodeRuneInString(after)
		switch n {
		case '{':
			return DialectCall
		case '[', ',', '×', '*', ']':
			return DialectStructure
		}
		return DialectContent
	}
	return DialectStructure
}

// RenderStructure writes nodes back as Structure text. Parsing the output
// yields an equivalent tree.
func RenderStructure(nodes []*Node) string {
	var sb strings.Builder
	renderNodes(&sb, nodes)
	return sb.String()
}

func renderNodes(sb *strings.Builder, nodes []*Node) {
	for i, n := range nodes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(n.Symbol)
		if n.Multiplier != 1 {
			sb.WriteString("×")
			sb.WriteString(strconv.Itoa(n.Multiplier))
		}
		if len(n.Children) > 0 {
			sb.WriteByte('[')
			renderNodes(sb, n.Children)
			sb.WriteByte(']')
		}
	}
}

// RenderCall writes a call back as Call text with parameters in written order.
func RenderCall(c *CallNode) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	renderCall(&sb, c)
	return sb.String()
}

func renderCall(sb *strings.Builder, c *CallNode) {
	sb.WriteString(c.Symbol)
	sb.WriteByte('{')
	for i, p := range c.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Key)
		sb.WriteByte('=')
		renderValue(sb, p.Value)
	}
	sb.WriteByte('}')
}

func renderValue(sb *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		sb.WriteString(Quote(x))
	case bool:
		sb.WriteString(strconv.FormatBool(x))
	case int64:
		sb.WriteString(strconv.FormatInt(x, 10))
	case int:
		sb.WriteString(strconv.Itoa(x))
	case float64:
		sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case []Value:
		sb.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderValue(sb, e)
		}
		sb.WriteByte(']')
	case *CallNode:
		renderCall(sb, x)
	default:
		sb.WriteString(Quote(fmt.Sprint(x)))
	}
}

// Quote returns s as a double-quoted DSL string.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// RenderContent writes nodes back as Content lines. Multi-line text becomes
// indented continuation lines.
func RenderContent(nodes []ContentNode) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(n.Symbol)
		lines := strings.Split(n.Text, "\n")
		if n.Text != "" {
			sb.WriteByte(' ')
			sb.WriteString(Quote(lines[0]))
		}
		if n.Action != "" {
			sb.WriteByte(' ')
			sb.WriteString(n.Action)
		}
		for _, m := range n.Modifiers {
			sb.WriteString(" .")
			sb.WriteString(m)
		}
		for _, l := range lines[1:] {
			sb.WriteString("\n  ")
			sb.WriteString(l)
		}
	}
	return sb.String()
}

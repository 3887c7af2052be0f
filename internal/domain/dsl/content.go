package dsl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// actionPrefixes mark a Content token as the node's action target.
var actionPrefixes = []string{"http://", "https://", "mailto:", "/"}

type field struct {
	text   string
	quoted bool
	col    int
}

// ParseContent parses line-based text:
//
//	ɦ "Welcome back" .bold
//	ᵬ Sign in /login .primary
//	ʈ Long paragraph text
//	  continued on an indented line
//
// Indented lines continue the previous node's text. Blank lines are ignored.
func (p *Parser) ParseContent(input string) (res ContentResult) {
	var issues []Issue
	defer func() {
		if r := recover(); r != nil {
			issues = append(issues, panicIssue(r))
		}
		res.Issues = issues
		res.Valid = len(issues) == 0
	}()

	if strings.TrimSpace(input) == "" {
		issues = append(issues, Issue{Pos: Position{Line: 1, Column: 1}, Message: ErrEmptyInput})
		return res
	}

	offset := 0
	for i, line := range strings.Split(input, "\n") {
		lineNo := i + 1
		lineStart := offset
		offset += len(line) + 1
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			continue
		}

		first, _ := utf8.DecodeRuneInString(line)
		if unicode.IsSpace(first) {
			if len(res.Nodes) == 0 {
				issues = append(issues, Issue{
					Pos:     Position{Line: lineNo, Column: 1, Offset: lineStart},
					Message: "continuation line without a preceding node",
				})
				continue
			}
			prev := &res.Nodes[len(res.Nodes)-1]
			cont := strings.TrimSpace(line)
			if prev.Text == "" {
				prev.Text = cont
			} else {
				prev.Text += "\n" + cont
			}
			continue
		}

		fields, lineIssues := splitFields(line, lineNo, lineStart)
		issues = append(issues, lineIssues...)
		if len(fields) == 0 {
			continue
		}

		node := ContentNode{
			Symbol: fields[0].text,
			Pos:    Position{Line: lineNo, Column: 1, Offset: lineStart},
		}
		if name, ok := p.resolve(node.Symbol); ok {
			node.Name = name
		} else {
			issues = append(issues, Issue{Pos: node.Pos, Message: "unknown symbol \"" + node.Symbol + "\""})
		}

		rest := fields[1:]
		// trailing modifiers
		end := len(rest)
		for end > 0 && isModifier(rest[end-1]) {
			end--
		}
		for _, f := range rest[end:] {
			if !node.HasModifier(f.text) {
				node.Modifiers = append(node.Modifiers, f.text[1:])
			}
		}

		var words []string
		for _, f := range rest[:end] {
			if !f.quoted && node.Action == "" && isAction(f.text) {
				node.Action = f.text
				continue
			}
			words = append(words, f.text)
		}
		node.Text = strings.Join(words, " ")

		if node.Text == "" && node.Action == "" {
			issues = append(issues, Issue{Pos: node.Pos, Message: "missing text for \"" + node.Symbol + "\""})
		}
		res.Nodes = append(res.Nodes, node)
	}
	return res
}

func isModifier(f field) bool {
	return !f.quoted && len(f.text) > 1 && f.text[0] == '.'
}

func isAction(s string) bool {
	for _, p := range actionPrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// splitFields splits a line on whitespace, keeping quoted runs whole.
func splitFields(line string, lineNo, lineStart int) ([]field, []Issue) {
	var (
		fields []field
		issues []Issue
	)
	runes := []rune(line)
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		col := i + 1
		if q := runes[i]; q == '"' || q == '\'' {
			var sb strings.Builder
			i++
			closed := false
			for i < len(runes) {
				r := runes[i]
				if r == q {
					closed = true
					i++
					break
				}
				if r == '\\' && i+1 < len(runes) {
					if u, ok := unescape(runes[i+1]); ok {
						sb.WriteRune(u)
						i += 2
						continue
					}
					issues = append(issues, Issue{
						Pos:     Position{Line: lineNo, Column: i + 1, Offset: lineStart + len(string(runes[:i]))},
						Message: ErrInvalidEscape,
					})
				}
				sb.WriteRune(r)
				i++
			}
			if !closed {
				issues = append(issues, Issue{
					Pos:     Position{Line: lineNo, Column: col, Offset: lineStart + len(string(runes[:col-1]))},
					Message: ErrUnterminatedString,
				})
			}
			fields = append(fields, field{text: sb.String(), quoted: true, col: col})
			continue
		}
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		fields = append(fields, field{text: string(runes[start:i]), col: col})
	}
	return fields, issues
}

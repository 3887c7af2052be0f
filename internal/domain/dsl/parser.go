package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxDepth bounds nesting in Structure and Call input.
const DefaultMaxDepth = 128

// Parser parses DSL text against a symbol resolver. A nil resolver leaves
// every Name empty; Structure parsing then reports each symbol as unknown.
type Parser struct {
	resolver Resolver
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// NewParser creates a parser.
func NewParser(r Resolver, opts ...Option) *Parser {
	p := &Parser{resolver: r, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Parser) resolve(sym string) (string, bool) {
	if p.resolver == nil {
		return "", false
	}
	return p.resolver.Resolve(sym)
}

// state is the per-parse token cursor.
type state struct {
	toks   []Token
	pos    int
	issues []Issue
}

func newState(input string) *state {
	toks, lexIssues := Tokenize(input)
	return &state{toks: toks, issues: lexIssues}
}

func (s *state) peek() Token { return s.toks[s.pos] }

func (s *state) peekAt(n int) Token {
	if s.pos+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[s.pos+n]
}

func (s *state) next() Token {
	tok := s.toks[s.pos]
	if tok.Type != TokenEOF {
		s.pos++
	}
	return tok
}

func (s *state) addIssue(pos Position, format string, args ...any) {
	s.issues = append(s.issues, Issue{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// skipTo skips tokens until a separator or closer at the current nesting
// level. Nested brackets and braces are skipped whole.
func (s *state) skipTo(closer TokenType) {
	depth := 0
	for {
		tok := s.peek()
		switch tok.Type {
		case TokenEOF:
			return
		case TokenLBrack, TokenLBrace:
			depth++
		case TokenRBrack, TokenRBrace:
			if depth == 0 {
				if tok.Type == closer {
					return
				}
				// stray closer of the other kind, drop it
				s.next()
				continue
			}
			depth--
		case TokenComma:
			if depth == 0 {
				return
			}
		}
		s.next()
	}
}

// skipBlock skips the rest of an open block, commas included.
func (s *state) skipBlock(closer TokenType) {
	for {
		s.skipTo(closer)
		if s.peek().Type != TokenComma {
			return
		}
		s.next()
	}
}

// panicIssue converts a recovered panic into an issue so callers always get
// a result.
func panicIssue(r any) Issue {
	return Issue{Message: fmt.Sprintf("internal parser error: %v", r)}
}

// ParseStructure parses layout text such as "§[δ×3, Ƀ[ᵬ×2]]".
func (p *Parser) ParseStructure(input string) (res ParseResult) {
	s := newState(input)
	defer func() {
		if r := recover(); r != nil {
			s.issues = append(s.issues, panicIssue(r))
		}
		res.Issues = s.issues
		res.Valid = len(s.issues) == 0
	}()

	if strings.TrimSpace(input) == "" {
		s.addIssue(Position{Line: 1, Column: 1}, ErrEmptyInput)
		return res
	}

	res.Roots = p.structureList(s, TokenEOF, 0)
	if tok := s.peek(); tok.Type != TokenEOF {
		s.addIssue(tok.Pos, "unexpected %s after end of structure", tok.describe())
	}
	return res
}

func (p *Parser) structureList(s *state, closer TokenType, depth int) []*Node {
	var nodes []*Node
	for {
		tok := s.peek()
		if tok.Type == closer || tok.Type == TokenEOF {
			if tok.Type == TokenEOF && closer != TokenEOF {
				return nodes
			}
			if len(nodes) > 0 && s.pos > 0 && s.toks[s.pos-1].Type == TokenComma {
				s.addIssue(tok.Pos, "trailing ','")
			}
			return nodes
		}

		if n := p.structureNode(s, closer, depth); n != nil {
			nodes = append(nodes, n)
		}

		switch tok := s.peek(); tok.Type {
		case TokenComma:
			s.next()
		case closer, TokenEOF:
		default:
			s.addIssue(tok.Pos, "unexpected %s, expected ',' or %s", tok.describe(), closerName(closer))
			s.skipTo(closer)
			if s.peek().Type == TokenComma {
				s.next()
			}
		}
	}
}

func closerName(t TokenType) string {
	if t == TokenEOF {
		return "end of input"
	}
	return t.String()
}

func (p *Parser) structureNode(s *state, closer TokenType, depth int) *Node {
	tok := s.peek()
	if tok.Type != TokenWord {
		s.addIssue(tok.Pos, "unexpected %s, expected a symbol", tok.describe())
		s.skipTo(closer)
		return nil
	}
	s.next()

	n := &Node{Symbol: tok.Literal, Multiplier: 1, Pos: tok.Pos}
	if name, ok := p.resolve(tok.Literal); ok {
		n.Name = name
	} else {
		s.addIssue(tok.Pos, "unknown symbol %q", tok.Literal)
	}

	if s.peek().Type == TokenTimes {
		times := s.next()
		num := s.peek()
		if num.Type != TokenWord {
			s.addIssue(times.Pos, "missing multiplier after %s", times.Literal)
		} else {
			s.next()
			// values below 1 are kept for the validator to report
			if m, err := strconv.Atoi(num.Literal); err != nil {
				s.addIssue(num.Pos, "invalid multiplier %q", num.Literal)
			} else {
				n.Multiplier = m
			}
		}
	}

	if s.peek().Type == TokenLBrack {
		open := s.next()
		if depth+1 > p.maxDepth {
			s.addIssue(open.Pos, "nesting deeper than %d", p.maxDepth)
			s.skipBlock(TokenRBrack)
		} else {
			n.Children = p.structureList(s, TokenRBrack, depth+1)
		}
		if s.peek().Type == TokenRBrack {
			s.next()
		} else {
			s.addIssue(open.Pos, "unclosed '['")
		}
	}
	return n
}

// ParseCall parses invocations such as "ƒ{must=[ʄ{key=\"x\", match=☆{value=1}}]}".
// Multiple top-level calls may be separated by commas.
func (p *Parser) ParseCall(input string) (res CallResult) {
	s := newState(input)
	defer func() {
		if r := recover(); r != nil {
			s.issues = append(s.issues, panicIssue(r))
		}
		res.Issues = s.issues
		res.Valid = len(s.issues) == 0
	}()

	if strings.TrimSpace(input) == "" {
		s.addIssue(Position{Line: 1, Column: 1}, ErrEmptyInput)
		return res
	}

	for {
		tok := s.peek()
		if tok.Type == TokenEOF {
			break
		}
		if c := p.callNode(s, TokenEOF, 0); c != nil {
			res.Roots = append(res.Roots, c)
		}
		switch tok := s.peek(); tok.Type {
		case TokenComma:
			s.next()
		case TokenEOF:
		default:
			s.addIssue(tok.Pos, "unexpected %s, expected ',' or end of input", tok.describe())
			s.skipTo(TokenEOF)
			if s.peek().Type == TokenComma {
				s.next()
			}
		}
	}
	return res
}

func (p *Parser) callNode(s *state, closer TokenType, depth int) *CallNode {
	tok := s.peek()
	if tok.Type != TokenWord {
		s.addIssue(tok.Pos, "unexpected %s, expected a symbol", tok.describe())
		s.skipTo(closer)
		return nil
	}
	s.next()

	c := &CallNode{Symbol: tok.Literal, Pos: tok.Pos}
	c.Name, _ = p.resolve(tok.Literal)

	open := s.peek()
	if open.Type != TokenLBrace {
		s.addIssue(open.Pos, "expected '{' after %q", tok.Literal)
		return c
	}
	s.next()
	if depth+1 > p.maxDepth {
		s.addIssue(open.Pos, "nesting deeper than %d", p.maxDepth)
		s.skipBlock(TokenRBrace)
	} else {
		c.Params = p.params(s, depth+1)
	}
	if s.peek().Type == TokenRBrace {
		s.next()
	} else {
		s.addIssue(open.Pos, "unclosed '{'")
	}
	return c
}

func (p *Parser) params(s *state, depth int) []Param {
	var params []Param
	seen := make(map[string]bool)
	for {
		tok := s.peek()
		if tok.Type == TokenRBrace || tok.Type == TokenEOF {
			return params
		}

		if param, ok := p.param(s, depth); ok {
			if seen[param.Key] {
				s.addIssue(param.Pos, "duplicate parameter %q", param.Key)
			} else {
				seen[param.Key] = true
				params = append(params, param)
			}
		}

		switch tok := s.peek(); tok.Type {
		case TokenComma:
			s.next()
		case TokenRBrace, TokenEOF:
		default:
			s.addIssue(tok.Pos, "unexpected %s, expected ',' or '}'", tok.describe())
			s.skipTo(TokenRBrace)
			if s.peek().Type == TokenComma {
				s.next()
			}
		}
	}
}

func (p *Parser) param(s *state, depth int) (Param, bool) {
	key := s.peek()
	if key.Type != TokenWord {
		s.addIssue(key.Pos, "unexpected %s, expected a parameter name", key.describe())
		s.skipTo(TokenRBrace)
		return Param{}, false
	}
	s.next()

	if eq := s.peek(); eq.Type != TokenEquals {
		s.addIssue(eq.Pos, "expected '=' after parameter %q", key.Literal)
		s.skipTo(TokenRBrace)
		return Param{}, false
	}
	s.next()

	v, ok := p.value(s, TokenRBrace, depth)
	if !ok {
		return Param{}, false
	}
	return Param{Key: key.Literal, Value: v, Pos: key.Pos}, true
}

func (p *Parser) value(s *state, closer TokenType, depth int) (Value, bool) {
	tok := s.peek()
	switch tok.Type {
	case TokenString:
		s.next()
		return tok.Literal, true
	case TokenLBrack:
		s.next()
		if depth+1 > p.maxDepth {
			s.addIssue(tok.Pos, "nesting deeper than %d", p.maxDepth)
			s.skipBlock(TokenRBrack)
			if s.peek().Type == TokenRBrack {
				s.next()
			}
			return nil, false
		}
		list := p.list(s, depth+1)
		if s.peek().Type == TokenRBrack {
			s.next()
		} else {
			s.addIssue(tok.Pos, "unclosed '['")
		}
		return list, true
	case TokenWord:
		if s.peekAt(1).Type == TokenLBrace {
			return p.callNode(s, closer, depth), true
		}
		s.next()
		return literal(tok.Literal), true
	}
	s.addIssue(tok.Pos, "unexpected %s, expected a value", tok.describe())
	s.skipTo(closer)
	return nil, false
}

func (p *Parser) list(s *state, depth int) []Value {
	out := []Value{}
	for {
		tok := s.peek()
		if tok.Type == TokenRBrack || tok.Type == TokenEOF {
			return out
		}
		if v, ok := p.value(s, TokenRBrack, depth); ok {
			out = append(out, v)
		}
		switch tok := s.peek(); tok.Type {
		case TokenComma:
			s.next()
		case TokenRBrack, TokenEOF:
		default:
			s.addIssue(tok.Pos, "unexpected %s, expected ',' or ']'", tok.describe())
			s.skipTo(TokenRBrack)
			if s.peek().Type == TokenComma {
				s.next()
			}
		}
	}
}

// literal interprets a bare word. Words that are not numbers, booleans or
// null stay strings.
func literal(word string) Value {
	switch word {
	case "true", "True":
		return true
	case "false", "False":
		return false
	case "null", "None", "nil":
		return nil
	}
	if i, err := strconv.ParseInt(word, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return f
	}
	return word
}

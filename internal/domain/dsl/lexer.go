package dsl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes Structure and Call DSL text.
type Lexer struct {
	input   string
	pos     int  // byte offset of ch
	readPos int  // byte offset after ch
	ch      rune // current rune, 0 at EOF
	line    int
	col     int

	// Issues collects lexical problems (unterminated strings, bad escapes).
	Issues []Issue
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.readPos = len(l.input) + 1
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEOF() && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	pos := l.currentPos()

	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}
	}

	single := func(t TokenType) Token {
		tok := Token{Type: t, Literal: string(l.ch), Pos: pos}
		l.readChar()
		return tok
	}

	switch l.ch {
	case ',':
		return single(TokenComma)
	case '×', '*':
		return single(TokenTimes)
	case '=':
		return single(TokenEquals)
	case '[':
		return single(TokenLBrack)
	case ']':
		return single(TokenRBrack)
	case '{':
		return single(TokenLBrace)
	case '}':
		return single(TokenRBrace)
	case '"', '\'':
		return l.readString(pos)
	}

	return l.readWord(pos)
}

func (l *Lexer) readWord(pos Position) Token {
	start := l.pos
	for !l.atEOF() && !unicode.IsSpace(l.ch) && !isDelimiter(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenWord, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()

	var sb strings.Builder
	for {
		if l.atEOF() {
			l.Issues = append(l.Issues, Issue{Pos: pos, Message: ErrUnterminatedString})
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		}
		switch l.ch {
		case quote:
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		case '\\':
			escPos := l.currentPos()
			l.readChar()
			if l.atEOF() {
				continue
			}
			r, ok := unescape(l.ch)
			if !ok {
				l.Issues = append(l.Issues, Issue{Pos: escPos, Message: ErrInvalidEscape})
				r = l.ch
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
}

func unescape(r rune) (rune, bool) {
	switch r {
	case '"', '\'', '\\':
		return r, true
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	}
	return 0, false
}

// Tokenize returns all tokens up to and including EOF.
func Tokenize(input string) ([]Token, []Issue) {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return toks, l.Issues
}

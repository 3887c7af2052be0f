package dsl

import "fmt"

// Position is a location in DSL text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in runes
	Offset int // byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// TokenType classifies lexer tokens.
type TokenType int

// Token types shared by the Structure and Call grammars.
const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenWord    // symbol, identifier, number or bare literal
	TokenString  // quoted string, Literal holds the unescaped value
	TokenComma   // ,
	TokenTimes   // × or *
	TokenEquals  // =
	TokenLBrack  // [
	TokenRBrack  // ]
	TokenLBrace  // {
	TokenRBrace  // }
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "end of input",
	TokenIllegal: "illegal token",
	TokenWord:    "symbol",
	TokenString:  "string",
	TokenComma:   "','",
	TokenTimes:   "'×'",
	TokenEquals:  "'='",
	TokenLBrack:  "'['",
	TokenRBrack:  "']'",
	TokenLBrace:  "'{'",
	TokenRBrace:  "'}'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown"
}

// Token is one lexical unit.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) describe() string {
	switch t.Type {
	case TokenWord:
		return fmt.Sprintf("%q", t.Literal)
	case TokenString:
		return fmt.Sprintf("string %q", t.Literal)
	default:
		return t.Type.String()
	}
}

// isDelimiter reports runes that end a word.
func isDelimiter(r rune) bool {
	switch r {
	case ',', '[', ']', '{', '}', '×', '*', '=', '"', '\'':
		return true
	}
	return false
}

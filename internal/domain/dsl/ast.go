// Package dsl parses the three symbol dialects: Structure (nested layout),
// Call (parameterised invocations) and Content (line-based text). Parsers
// never panic and never stop at the first problem; every issue carries a
// position and the partial tree is returned alongside.
package dsl

import "fmt"

// Issue messages.
const (
	ErrUnterminatedString = "unterminated string"
	ErrInvalidEscape      = "invalid escape sequence"
	ErrEmptyInput         = "empty input"
)

// Dialect identifies a DSL grammar.
type Dialect string

// Supported dialects.
const (
	DialectStructure Dialect = "structure"
	DialectCall      Dialect = "call"
	DialectContent   Dialect = "content"
)

// Resolver maps a written symbol to a component name.
type Resolver interface {
	Resolve(token string) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(token string) (string, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(token string) (string, bool) { return f(token) }

// Issue is a positioned parse problem.
type Issue struct {
	Pos     Position
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Pos, i.Message)
}

// Node is a Structure element.
type Node struct {
	Symbol     string
	Name       string // empty when the symbol did not resolve
	Multiplier int
	Children   []*Node
	Pos        Position
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// CallNode is a Call invocation.
type CallNode struct {
	Symbol string
	Name   string
	Params []Param
	Pos    Position
}

// Param returns the value of the named parameter.
func (c *CallNode) Param(key string) (Value, bool) {
	for _, p := range c.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns parameter names in written order.
func (c *CallNode) Keys() []string {
	out := make([]string, len(c.Params))
	for i, p := range c.Params {
		out[i] = p.Key
	}
	return out
}

func (c *CallNode) String() string { return RenderCall(c) }

// Param is one key=value pair of a CallNode.
type Param struct {
	Key   string
	Value Value
	Pos   Position
}

// Value is a Call parameter value: string, int64, float64, bool, nil,
// []Value or *CallNode.
type Value any

// ContentNode is one Content line.
type ContentNode struct {
	Symbol    string
	Name      string
	Text      string
	Modifiers []string
	Action    string
	Pos       Position
}

// HasModifier reports whether mod (with or without the leading dot) is set.
func (c ContentNode) HasModifier(mod string) bool {
	if len(mod) > 0 && mod[0] == '.' {
		mod = mod[1:]
	}
	for _, m := range c.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// ParseResult is the outcome of a Structure parse.
type ParseResult struct {
	Valid  bool
	Roots  []*Node
	Issues []Issue
}

// CallResult is the outcome of a Call parse.
type CallResult struct {
	Valid  bool
	Roots  []*CallNode
	Issues []Issue
}

// ContentResult is the outcome of a Content parse.
type ContentResult struct {
	Valid  bool
	Nodes  []ContentNode
	Issues []Issue
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed request that is not a DSL problem.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrParse signals malformed DSL text. Parsers report it as issues, never as a panic.
	ErrParse = errors.New("dsl parse error")
	// ErrUnresolvedSymbol signals a symbol that maps to no known name.
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
	// ErrValidation signals a parseable structure that violates containment rules.
	ErrValidation = errors.New("structure validation failed")
	// ErrQueryBuild signals a resolved node whose constructor failed.
	ErrQueryBuild = errors.New("query build failed")
	// ErrExecution signals an embedding or store failure during execute.
	ErrExecution = errors.New("query execution failed")
	// ErrSymbolSpaceExhausted signals that no symbol is left for a name.
	ErrSymbolSpaceExhausted = errors.New("symbol space exhausted")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnsupportedVector signals a vector space the store layout does not know.
	ErrUnsupportedVector = errors.New("unsupported vector space")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// UnresolvedSymbolError names the symbol that could not be resolved.
type UnresolvedSymbolError struct {
	Symbol string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnresolvedSymbol.Error(), e.Symbol)
}

func (e *UnresolvedSymbolError) Unwrap() error { return ErrUnresolvedSymbol }

// NewUnresolvedSymbol creates an unresolved symbol error.
func NewUnresolvedSymbol(symbol string) error {
	return &UnresolvedSymbolError{Symbol: symbol}
}

// QueryBuildError carries the node that failed to instantiate and the cause.
// Node is a printable rendering of the offending DSL node.
type QueryBuildError struct {
	Node  string
	Cause error
}

func (e *QueryBuildError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrQueryBuild.Error(), e.Node, e.Cause)
}

// Is lets errors.Is match both the sentinel and the wrapped cause.
func (e *QueryBuildError) Is(target error) bool { return target == ErrQueryBuild }

func (e *QueryBuildError) Unwrap() error { return e.Cause }

// SymbolSpaceExhaustedError names the entry that could not get a symbol.
type SymbolSpaceExhaustedError struct {
	Name    string
	Initial rune
}

func (e *SymbolSpaceExhaustedError) Error() string {
	return fmt.Sprintf("%s: no symbol left for %q (initial %q)", ErrSymbolSpaceExhausted.Error(), e.Name, e.Initial)
}

func (e *SymbolSpaceExhaustedError) Unwrap() error { return ErrSymbolSpaceExhausted }

// ExecutionError records which execution stage failed.
type ExecutionError struct {
	Stage string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrExecution.Error(), e.Stage, e.Cause)
}

// Is lets errors.Is match both the sentinel and the wrapped cause.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

func (e *ExecutionError) Unwrap() error { return e.Cause }

// NewExecutionError wraps cause with the failing stage name.
func NewExecutionError(stage string, cause error) error {
	return &ExecutionError{Stage: stage, Cause: cause}
}

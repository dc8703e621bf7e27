// Package pattern defines the flat postfix command stream the expression
// parser produces. This stands in for a traditional AST: rather than a tree
// of nodes, an expression becomes a linear sequence of commands that the
// compiler walks once, left to right, maintaining its own auxiliary stacks.
package pattern

import "github.com/modlang/modlang/internal/token"

// CommandType classifies one element of a Pattern.
type CommandType int

const (
	Decl CommandType = iota
	Value

	Unary
	Binary
	Member

	ProcedureCall
	Array
	Struct

	EndArg
	EndTerm
)

func (t CommandType) String() string {
	switch t {
	case Decl:
		return "DECL"
	case Value:
		return "VALUE"
	case Unary:
		return "UNARY"
	case Binary:
		return "BINARY"
	case Member:
		return "MEMBER"
	case ProcedureCall:
		return "PROCEDURE_CALL"
	case Array:
		return "ARRAY"
	case Struct:
		return "STRUCT"
	case EndArg:
		return "END_ARG"
	case EndTerm:
		return "END_TERM"
	default:
		return "?"
	}
}

// Command is one element of the flat postfix stream. ArgCount/ArgCommandCount
// are only meaningful on ARRAY/STRUCT/PROCEDURE_CALL commands, back-patched
// once the parser finishes resolving the matching closing delimiter.
type Command struct {
	Type CommandType

	Token      token.Token
	Identifier token.Token // set for a record-literal END_ARG's field name

	ArgCount        int
	ArgCommandCount int
}

// Pattern is the full output of parsing one expression: the flat command
// stream plus the bookkeeping the parser accumulated while producing it.
type Pattern struct {
	Commands []Command

	// MultiValueCount counts how many top-level (not nested in any
	// aggregate/call) comma-or-terminator-separated values this
	// expression produced; `a, b := 1, 2;` has MultiValueCount 2 on its
	// right-hand side.
	MultiValueCount int

	// HasRefDecl is never set by the current parser: a `ref` keyword in
	// an expression is rejected as an unexpected token, and the compiler
	// does not read this field.
	HasRefDecl bool
}

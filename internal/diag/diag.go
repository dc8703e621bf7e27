// Package diag provides the single error type used across the tokenizer,
// parser, compiler, and VM. Every diagnostic carries the source position and
// offending lexeme it relates to, so a caller never has to reconstruct
// "where did this fail" from a bare string.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a diagnostic into one of the five error categories the
// interpreter distinguishes. The VM-facing driver treats Runtime specially:
// it always aborts the process, while the other four only abort the current
// top-level item in interactive mode.
type Kind int

const (
	// Lexical covers tokenizer-level failures: non-ASCII/non-printable
	// input, unterminated compound operators.
	Lexical Kind = iota
	// Syntactic covers expression/statement parse failures: unexpected
	// tokens, unmatched brackets, illegal assignment targets.
	Syntactic
	// Semantic covers name resolution and type-checking failures.
	Semantic
	// Internal marks a compiler-internal inconsistency (exhausted
	// temporaries, unknown pattern command) — these indicate bugs in this
	// implementation, not in the user's program.
	Internal
	// Runtime covers VM execution failures: unknown opcode, a read of a
	// NULL ref, an assertion failure.
	Runtime
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntax"
	case Semantic:
		return "semantic"
	case Internal:
		return "internal"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Error is the diagnostic value produced anywhere in the pipeline. It
// satisfies the standard error interface and additionally supports
// errors.Unwrap via Cause, so a diagnostic raised in response to a lower
// level failure (a malformed bytecode container, an I/O error) still lets
// callers reach the root cause with errors.Is/errors.As.
type Error struct {
	Kind    Kind
	Row     int
	Column  int
	Lexeme  string
	Message string
	Cause   error
}

// New builds a position-carrying diagnostic with no wrapped cause.
func New(kind Kind, row, column int, lexeme, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Row:     row,
		Column:  column,
		Lexeme:  lexeme,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap builds a position-carrying diagnostic around a lower-level error,
// recording the stack of the wrap site via github.com/pkg/errors so the
// original failure is never silently discarded.
func Wrap(kind Kind, row, column int, lexeme string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Row:     row,
		Column:  column,
		Lexeme:  lexeme,
		Message: fmt.Sprintf(format, args...),
		Cause:   errors.WithStack(cause),
	}
}

func (e *Error) Error() string {
	if e.Lexeme != "" {
		return fmt.Sprintf("%s error at %d:%d: %s (got %q)", e.Kind, e.Row, e.Column, e.Message, e.Lexeme)
	}
	return fmt.Sprintf("%s error at %d:%d: %s", e.Kind, e.Row, e.Column, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As/errors.Unwrap.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, &diag.Error{Kind: diag.Runtime}) style checks... in
// practice callers instead use errors.As and inspect Kind directly; Is is
// provided for the common "is this any lexical error" predicate.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && t.Message == ""
}

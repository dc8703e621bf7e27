// Package exprparser turns an infix token stream into the flat postfix
// pattern.Pattern the compiler consumes. The algorithm maintains an explicit
// stack of "partial operations" (operators and open groupings still waiting
// for their right-hand side) instead of building a parse tree; every time a
// subexpression completes, its postfix commands are appended directly to the
// output pattern, following the op-stack/precedence-climbing approach of
// the original design's expressions.h.
package exprparser

import (
	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/pattern"
	"github.com/modlang/modlang/internal/token"
)

type partialType int

const (
	partialBinary partialType = iota
	partialParen
	partialIndex
	partialProcedureCall
	partialArray
	partialTuple
	partialRecord
	partialField
)

// partialOp is a pattern command that is still accumulating inputs: an
// operator waiting for its right operand, or an open bracket/brace/paren
// waiting for its matching close.
type partialOp struct {
	kind       partialType
	precedence Level
	op         token.Token

	argCount         int
	openCommandIndex int
}

// opStack is the parser's entire mutable state. Roughly every other token
// consumed is in "ref position" (expecting a value or opening delimiter) and
// the rest are in "op position" (expecting an operator or closing
// delimiter); haveNextRef tracks which position we're in.
type opStack struct {
	lhs           []partialOp
	groupingCount int

	haveNextRef bool

	haveNextOp     bool
	nextOp         token.Token
	nextPrecedence Level

	// Mutually exclusive with haveNextOp.
	haveClosingToken bool
	openingID        token.ID
	closingToken     token.Token
}

func (s *opStack) top() *partialOp {
	if len(s.lhs) == 0 {
		return nil
	}
	return &s.lhs[len(s.lhs)-1]
}

func (s *opStack) push(p partialOp) { s.lhs = append(s.lhs, p) }
func (s *opStack) pop()             { s.lhs = s.lhs[:len(s.lhs)-1] }

// Parse reads one expression from tk, producing its flat pattern command
// stream. When endOnEOL is true and the parser is at grouping depth zero, a
// bare newline is treated as an implicit statement terminator — this is how
// the REPL and file-mode statement parser avoid requiring every line to end
// in `;`.
func Parse(tk *token.Tokenizer, endOnEOL bool) (*pattern.Pattern, error) {
	result := &pattern.Pattern{}
	stack := &opStack{}

	for {
		top := stack.top()

		pop := false
		if stack.haveNextRef && stack.haveNextOp {
			pop = top != nil && top.precedence != LevelGrouping && stack.nextPrecedence <= top.precedence
		} else if stack.haveNextRef && stack.haveClosingToken {
			pop = top != nil && top.precedence != LevelGrouping
		}

		switch {
		case pop:
			result.Commands = append(result.Commands, pattern.Command{Type: pattern.Binary, Token: top.op})
			stack.pop()

		case stack.haveNextRef && stack.haveClosingToken:
			done, err := resolveClosingToken(stack, result)
			if err != nil {
				return nil, err
			}
			if done {
				tk.PutBack(stack.closingToken)
				return result, nil
			}

		case !stack.haveNextRef:
			if err := readNextRef(tk, stack, result); err != nil {
				return nil, err
			}

		case !stack.haveNextOp:
			if endOnEOL && stack.groupingCount == 0 && tk.PeekEOL() {
				stack.haveClosingToken = true
				stack.closingToken = token.Token{ID: token.ID(';'), Lexeme: ";"}
				stack.openingID = token.Null
			} else if err := readNextOp(tk, stack, result); err != nil {
				return nil, err
			}

		default:
			stack.push(partialOp{kind: partialBinary, op: stack.nextOp, precedence: stack.nextPrecedence})
			stack.haveNextRef = false
			stack.haveNextOp = false
		}
	}
}

// readNextRef consumes a token expected to start (or continue building) an
// operand: a literal/identifier, or an opening delimiter.
func readNextRef(tk *token.Tokenizer, stack *opStack, out *pattern.Pattern) error {
	t, err := tk.Next()
	if err != nil {
		return err
	}

	switch {
	case t.ID == token.Numeric || t.ID == token.Alphanum:
		// In record literals a name is followed by ':' rather than being
		// looked up as a variable; peek one token to disambiguate.
		next, err := tk.Next()
		if err != nil {
			return err
		}
		if next.ID == token.ID(':') {
			top := stack.top()
			if top != nil && top.kind == partialTuple {
				if top.argCount != 0 {
					return diag.New(diag.Syntactic, next.Row, next.Column, next.Lexeme, "got ':' token inside a tuple expression")
				}
				top.kind = partialRecord
			}
			top = stack.top()
			if top == nil || top.kind != partialRecord {
				return diag.New(diag.Syntactic, next.Row, next.Column, next.Lexeme, "got ':' token that wasn't in a record literal")
			}
			stack.push(partialOp{kind: partialField, precedence: LevelGrouping, op: t})
			return nil
		}
		tk.PutBack(next)
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.Value, Token: t})
		stack.haveNextRef = true
		return nil

	case t.ID == token.ID('('):
		stack.push(partialOp{kind: partialParen, precedence: LevelGrouping, op: t})
		stack.groupingCount++
		return nil

	case t.ID == token.ID('['):
		stack.push(partialOp{kind: partialArray, precedence: LevelGrouping, op: t, openCommandIndex: len(out.Commands)})
		stack.groupingCount++
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.Array, Token: t})
		return nil

	case t.ID == token.ID('{'):
		stack.push(partialOp{kind: partialTuple, precedence: LevelGrouping, op: t, openCommandIndex: len(out.Commands)})
		stack.groupingCount++
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.Struct, Token: t})
		return nil

	case t.ID == token.ID('-'):
		// Unary minus: `-x` is parsed as `0 - x`, binding tighter than any
		// binary operator.
		zero := token.Token{ID: token.Numeric, Lexeme: "0", Row: t.Row, Column: t.Column}
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.Value, Token: zero})
		stack.push(partialOp{kind: partialBinary, precedence: LevelUnary, op: t})
		return nil

	default:
		return diag.New(diag.Syntactic, t.Row, t.Column, t.Lexeme, "unexpected token while parsing expression")
	}
}

// readNextOp consumes a token expected to continue an expression after an
// operand: an infix/postfix operator, or a closing delimiter/terminator.
func readNextOp(tk *token.Tokenizer, stack *opStack, out *pattern.Pattern) error {
	t, err := tk.Next()
	if err != nil {
		return err
	}

	if t.ID == token.ID('.') {
		member, err := tk.Next()
		if err != nil {
			return err
		}
		if member.ID != token.Alphanum && member.ID != token.Numeric {
			return diag.New(diag.Syntactic, member.Row, member.Column, member.Lexeme, "expected an identifier or integer after '.'")
		}
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.Member, Token: member})
		return nil
	}

	if level, ok := precedenceTable[t.ID]; ok {
		stack.nextOp = t
		stack.nextPrecedence = level
		stack.haveNextOp = true
		return nil
	}

	switch t.ID {
	case token.ID('['):
		stack.push(partialOp{kind: partialIndex, precedence: LevelGrouping, op: t})
		stack.groupingCount++
		stack.haveNextRef = false
		return nil
	case token.ID('('):
		stack.push(partialOp{kind: partialProcedureCall, precedence: LevelGrouping, op: t, openCommandIndex: len(out.Commands)})
		stack.groupingCount++
		stack.haveNextRef = false
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.ProcedureCall, Token: t})
		return nil
	}

	stack.haveClosingToken = true
	stack.closingToken = t
	switch t.ID {
	case token.ID(')'):
		stack.openingID = token.ID('(')
	case token.ID(']'):
		stack.openingID = token.ID('[')
	case token.ID('}'):
		stack.openingID = token.ID('{')
	default:
		stack.openingID = token.Null
	}
	if stack.openingID != token.Null {
		stack.groupingCount--
	}
	return nil
}

// resolveArg is invoked on a comma or an implicit end-of-term: it finalizes
// whatever value was just parsed, either as another element of the
// enclosing aggregate/call (emitting END_ARG) or, if nothing encloses it, as
// a whole top-level multi-value term (emitting END_TERM).
func resolveArg(stack *opStack, out *pattern.Pattern) error {
	top := stack.top()
	if top == nil {
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.EndTerm, Token: stack.closingToken})
		out.MultiValueCount++
		return nil
	}

	if top.kind == partialField {
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.EndArg, Token: stack.closingToken, Identifier: top.op})
		stack.pop()
		top = stack.top()
		if top == nil {
			return diag.New(diag.Internal, stack.closingToken.Row, stack.closingToken.Column, "", "record field command wasn't attached to a struct command")
		}
		top.argCount++
		return nil
	}

	if top.precedence != LevelGrouping {
		return diag.New(diag.Internal, stack.closingToken.Row, stack.closingToken.Column, "", "hit a comma while a non-grouping operator was on top of the stack")
	}
	top.argCount++
	if top.kind == partialParen {
		return diag.New(diag.Syntactic, top.op.Row, top.op.Column, top.op.Lexeme, "comma inside grouping parentheses")
	}
	out.Commands = append(out.Commands, pattern.Command{Type: pattern.EndArg, Token: stack.closingToken})
	return nil
}

// resolveClosingToken is the core of handling `,`, a matched close bracket,
// an unmatched bracket, or the outer end of the expression. It reports
// (done=true) when the whole expression is finished.
func resolveClosingToken(stack *opStack, out *pattern.Pattern) (bool, error) {
	top := stack.top()

	switch {
	case stack.closingToken.ID == token.ID(','):
		if err := resolveArg(stack, out); err != nil {
			return false, err
		}
		stack.haveNextRef = false
		stack.haveClosingToken = false
		return false, nil

	case stack.openingID == token.Null:
		if top != nil {
			return false, diag.New(diag.Syntactic, stack.closingToken.Row, stack.closingToken.Column, stack.closingToken.Lexeme, "unexpected token while parsing expression")
		}
		out.MultiValueCount++
		return true, nil

	case top == nil:
		return false, diag.New(diag.Syntactic, stack.closingToken.Row, stack.closingToken.Column, stack.closingToken.Lexeme, "unmatched bracket while parsing expression")

	case top.kind == partialField && stack.openingID != token.ID('{'):
		return false, diag.New(diag.Syntactic, stack.closingToken.Row, stack.closingToken.Column, stack.closingToken.Lexeme, "incorrectly matched brackets around a record field")

	case top.kind != partialField && stack.openingID != top.op.ID:
		return false, diag.New(diag.Syntactic, stack.closingToken.Row, stack.closingToken.Column, stack.closingToken.Lexeme, "incorrectly matched brackets")

	case top.kind == partialParen:
		stack.pop()
		stack.haveClosingToken = false
		return false, nil

	case top.kind == partialIndex:
		top.argCount++
		if top.argCount > 1 {
			return false, diag.New(diag.Syntactic, stack.closingToken.Row, stack.closingToken.Column, stack.closingToken.Lexeme, "multidimensional array index is not yet supported")
		}
		out.Commands = append(out.Commands, pattern.Command{Type: pattern.Binary, Token: top.op})
		stack.pop()
		stack.haveClosingToken = false
		return false, nil

	default:
		if err := resolveArg(stack, out); err != nil {
			return false, err
		}
		top = stack.top()
		open := &out.Commands[top.openCommandIndex]
		open.ArgCount = top.argCount
		open.ArgCommandCount = len(out.Commands) - top.openCommandIndex - 1

		stack.haveNextRef = true
		stack.pop()
		stack.haveClosingToken = false
		return false, nil
	}
}

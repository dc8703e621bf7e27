package compiler

import (
	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/exprparser"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/token"
	"github.com/modlang/modlang/internal/types"
)

// StatementKind classifies one compiled top-level or procedure-body
// statement.
type StatementKind int

const (
	// StatementExpr is a bare expression whose value(s) are discarded in
	// file mode and echoed as `result = ...` in the REPL.
	StatementExpr StatementKind = iota
	// StatementDefine is a `name(, name)* := expr` binding.
	StatementDefine
	// StatementReturn is a `return expr;` inside a `{ statements }`
	// procedure body.
	StatementReturn
)

// Statement is one compiled statement: its code, and whatever the driver
// needs to know to report or bind its results.
type Statement struct {
	Kind    StatementKind
	Code    ir.Buffer
	Names   []string // set for StatementDefine, in binding order
	Results []IntermediateResult
}

// ParseStatement compiles one statement from tk. inProcedure controls
// whether a `:=` binds a local (procedure parameter scope) or a global.
func ParseStatement(c *Compiler, tk *token.Tokenizer, inProcedure bool) (*Statement, error) {
	first, err := tk.Next()
	if err != nil {
		return nil, err
	}
	if first.ID == token.Return {
		if !inProcedure {
			return nil, diag.New(diag.Syntactic, first.Row, first.Column, first.Lexeme,
				"'return' is only valid inside a procedure body")
		}
		return parseReturn(c, tk, first)
	}
	tk.PutBack(first)

	names, isDefine, err := tryParseDefineHeader(tk)
	if err != nil {
		return nil, err
	}
	if isDefine {
		return parseDefine(c, tk, first, names, inProcedure)
	}
	return parseExprStatement(c, tk)
}

// tryParseDefineHeader looks ahead across a `name(, name)*` prefix to see
// whether it's followed by ':='. If not, every token it looked at is pushed
// back so the expression parser can see them from the start, exactly as if
// no lookahead had happened.
func tryParseDefineHeader(tk *token.Tokenizer) ([]string, bool, error) {
	var consumed []token.Token
	var names []string

	for {
		t, err := tk.Next()
		if err != nil {
			return nil, false, err
		}
		consumed = append(consumed, t)
		if t.ID != token.Alphanum {
			putBackAll(tk, consumed)
			return nil, false, nil
		}
		names = append(names, t.Lexeme)

		sep, err := tk.Next()
		if err != nil {
			return nil, false, err
		}
		consumed = append(consumed, sep)
		switch sep.ID {
		case token.ID(','):
			continue
		case token.Define:
			return names, true, nil
		default:
			putBackAll(tk, consumed)
			return nil, false, nil
		}
	}
}

func putBackAll(tk *token.Tokenizer, toks []token.Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		tk.PutBack(toks[i])
	}
}

// consumeTerminator reads the `;` (real or the expression parser's
// synthesized end-of-line stand-in) that ends a statement, then eats the
// real newline that follows it, if any.
func consumeTerminator(tk *token.Tokenizer) error {
	t, err := tk.Next()
	if err != nil {
		return err
	}
	if t.ID != token.ID(';') {
		return diag.New(diag.Syntactic, t.Row, t.Column, t.Lexeme, "expected ';' or end of line to terminate the statement")
	}
	tk.TryReadEOL()
	return nil
}

func parseExprStatement(c *Compiler, tk *token.Tokenizer) (*Statement, error) {
	p, err := exprparser.Parse(tk, true)
	if err != nil {
		return nil, err
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		return nil, err
	}
	if err := consumeTerminator(tk); err != nil {
		return nil, err
	}
	return &Statement{Kind: StatementExpr, Code: expr.Code, Results: expr.Intermediates}, nil
}

// parseDefine compiles the right-hand side and then binds each of names, in
// order, to the value left in the matching position of the final
// intermediate stack — the flat-pattern equivalent of assert_match_pattern.
// first is the first left-hand-side name, whose position an arity mismatch
// is reported at.
func parseDefine(c *Compiler, tk *token.Tokenizer, first token.Token, names []string, inProcedure bool) (*Statement, error) {
	p, err := exprparser.Parse(tk, true)
	if err != nil {
		return nil, err
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		return nil, err
	}
	if err := consumeTerminator(tk); err != nil {
		return nil, err
	}
	if len(expr.Intermediates) != len(names) {
		return nil, diag.New(diag.Semantic, first.Row, first.Column, first.Lexeme,
			"define binds %d name(s) but the right-hand side produces %d value(s)", len(names), len(expr.Intermediates))
	}

	out := expr.Code
	results := make([]IntermediateResult, len(names))
	for i, name := range names {
		val := expr.Intermediates[i]
		var newRef ir.Ref
		if inProcedure {
			idx := c.bindings.PushLocal(name, val.Type)
			newRef = ir.Ref{Kind: ir.RefLocal, X: int64(idx - c.bindings.GlobalCount())}
		} else {
			idx := c.bindings.PushGlobal(name, val.Type)
			newRef = ir.Ref{Kind: ir.RefGlobal, X: int64(idx)}
		}
		out = append(out, ir.Instruction{Op: ir.OpMov, Output: newRef, Arg1: val.Ref, Arg2: ir.Null})
		results[i] = IntermediateResult{Ref: newRef, Type: val.Type}
	}
	return &Statement{Kind: StatementDefine, Code: out, Names: names, Results: results}, nil
}

// parseReturn compiles a `return expr;` statement, the only way a
// `{ statements }` procedure body hands a value back to its caller: it
// compiles expr, then lets OP_RET read the resulting intermediate.
func parseReturn(c *Compiler, tk *token.Tokenizer, returnTok token.Token) (*Statement, error) {
	p, err := exprparser.Parse(tk, true)
	if err != nil {
		return nil, err
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		return nil, err
	}
	if err := consumeTerminator(tk); err != nil {
		return nil, err
	}
	if len(expr.Intermediates) != 1 {
		return nil, diag.New(diag.Semantic, returnTok.Row, returnTok.Column, returnTok.Lexeme,
			"'return' takes exactly one value, got %d", len(expr.Intermediates))
	}
	val := expr.Intermediates[0]
	out := append(expr.Code, ir.Instruction{Op: ir.OpRet, Arg1: val.Ref, Arg2: ir.Null})
	return &Statement{Kind: StatementReturn, Code: out, Results: []IntermediateResult{val}}, nil
}

// parseType reads a type annotation: `Int`, or a recursive `[T]` array-of.
// This is the only scalar type name the compiler currently accepts, matching
// the 64-bit-int-only restriction already enforced by compileOperation.
func parseType(tk *token.Tokenizer) (types.Type, error) {
	t, err := tk.Next()
	if err != nil {
		return types.Type{}, err
	}
	if t.ID == token.ID('[') {
		inner, err := parseType(tk)
		if err != nil {
			return types.Type{}, err
		}
		closeTok, err := tk.Next()
		if err != nil {
			return types.Type{}, err
		}
		if closeTok.ID != token.ID(']') {
			return types.Type{}, diag.New(diag.Syntactic, closeTok.Row, closeTok.Column, closeTok.Lexeme, "expected ']' to close an array type")
		}
		return types.ArrayOf(inner), nil
	}
	if t.ID == token.Alphanum && t.Lexeme == "Int" {
		return types.Int64, nil
	}
	return types.Type{}, diag.New(diag.Semantic, t.Row, t.Column, t.Lexeme, "unknown type name %q", t.Lexeme)
}

// ProcedureDef is one compiled `func`/`proc` definition, ready for its
// caller (the session driver) to register into the VM's procedure table and
// seed as a global. BindingIndex is where the procedure's own name was bound
// in the global table, so the driver knows which global to seed with the
// table handle vm.RegisterProcedure returns.
type ProcedureDef struct {
	Name         string
	Code         ir.Buffer
	Signature    types.Signature
	BindingIndex int
}

// parseExpressionBody compiles the `:= expr;` form of a procedure body: the
// value of expr becomes the implicit return.
func parseExpressionBody(c *Compiler, tk *token.Tokenizer, nameTok token.Token, outputs []types.Type) (ir.Buffer, error) {
	bodyPattern, err := exprparser.Parse(tk, true)
	if err != nil {
		return nil, err
	}
	bodyExpr, err := c.CompileExpression(bodyPattern)
	if err != nil {
		return nil, err
	}
	if err := consumeTerminator(tk); err != nil {
		return nil, err
	}

	out := bodyExpr.Code
	if len(outputs) == 1 {
		if len(bodyExpr.Intermediates) != 1 {
			return nil, diag.New(diag.Semantic, nameTok.Row, nameTok.Column, nameTok.Lexeme,
				"procedure %q declares one return value but its body produces %d", nameTok.Lexeme, len(bodyExpr.Intermediates))
		}
		if !types.Eq(bodyExpr.Intermediates[0].Type, outputs[0]) {
			return nil, diag.New(diag.Semantic, nameTok.Row, nameTok.Column, nameTok.Lexeme,
				"procedure %q's body type does not match its declared return type", nameTok.Lexeme)
		}
		out = append(out, ir.Instruction{Op: ir.OpRet, Arg1: bodyExpr.Intermediates[0].Ref, Arg2: ir.Null})
	} else {
		out = append(out, ir.Instruction{Op: ir.OpRet, Arg1: ir.Null, Arg2: ir.Null})
	}
	return out, nil
}

// parseBlockBody compiles the `{ statements }` form of a procedure body: a
// sequence of expr/define/return statements, looping ParseStatement until
// the closing brace. Every `return expr;` it contains is checked against
// outputs as it's parsed; a func body must contain at least one, while a
// proc body must contain none (it falls off the end into the same implicit
// empty OP_RET parseExpressionBody always appends for a void return).
func parseBlockBody(c *Compiler, tk *token.Tokenizer, nameTok token.Token, outputs []types.Type) (ir.Buffer, error) {
	var out ir.Buffer
	sawReturn := false
	for {
		t, err := tk.Next()
		if err != nil {
			return nil, err
		}
		if t.ID == token.ID('}') {
			break
		}
		tk.PutBack(t)

		stmt, err := ParseStatement(c, tk, true)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt.Code...)

		if stmt.Kind != StatementReturn {
			continue
		}
		sawReturn = true
		if len(outputs) != 1 {
			return nil, diag.New(diag.Semantic, nameTok.Row, nameTok.Column, nameTok.Lexeme,
				"proc %q must not declare a return type, so it cannot use 'return'", nameTok.Lexeme)
		}
		if !types.Eq(stmt.Results[0].Type, outputs[0]) {
			return nil, diag.New(diag.Semantic, nameTok.Row, nameTok.Column, nameTok.Lexeme,
				"procedure %q's returned value does not match its declared return type", nameTok.Lexeme)
		}
	}
	if len(outputs) == 1 && !sawReturn {
		return nil, diag.New(diag.Semantic, nameTok.Row, nameTok.Column, nameTok.Lexeme,
			"procedure %q declares a return type but its body never returns a value", nameTok.Lexeme)
	}
	if !sawReturn {
		out = append(out, ir.Instruction{Op: ir.OpRet, Arg1: ir.Null, Arg2: ir.Null})
	}
	return out, nil
}

// ParseProcedure compiles a `func name(params) -> Type := body;` or
// `proc name(params) := body;` definition, where body is either a single
// expression (its value becomes the implicit return) or a brace-delimited
// block of expr/define/return statements. kind distinguishes func from
// proc: a func must declare exactly one return type, a proc must declare
// none.
func ParseProcedure(c *Compiler, tk *token.Tokenizer, kind token.ID) (*ProcedureDef, error) {
	nameTok, err := tk.Next()
	if err != nil {
		return nil, err
	}
	if nameTok.ID != token.Alphanum {
		return nil, diag.New(diag.Syntactic, nameTok.Row, nameTok.Column, nameTok.Lexeme, "expected a procedure name")
	}

	open, err := tk.Next()
	if err != nil {
		return nil, err
	}
	if open.ID != token.ID('(') {
		return nil, diag.New(diag.Syntactic, open.Row, open.Column, open.Lexeme, "expected '(' after procedure name")
	}

	savedCount := c.bindings.Count()
	var inputs []types.Type
	for {
		t, err := tk.Next()
		if err != nil {
			return nil, err
		}
		if t.ID == token.ID(')') {
			break
		}
		if t.ID == token.ID(',') {
			continue
		}
		if t.ID != token.Alphanum {
			c.bindings.TruncateTo(savedCount)
			return nil, diag.New(diag.Syntactic, t.Row, t.Column, t.Lexeme, "expected a parameter name")
		}
		colon, err := tk.Next()
		if err != nil {
			return nil, err
		}
		if colon.ID != token.ID(':') {
			c.bindings.TruncateTo(savedCount)
			return nil, diag.New(diag.Syntactic, colon.Row, colon.Column, colon.Lexeme, "expected ':' after parameter name")
		}
		paramType, err := parseType(tk)
		if err != nil {
			c.bindings.TruncateTo(savedCount)
			return nil, err
		}
		c.bindings.PushLocal(t.Lexeme, paramType)
		inputs = append(inputs, paramType)
	}

	var outputs []types.Type
	arrow, err := tk.Next()
	if err != nil {
		return nil, err
	}
	if arrow.ID == token.Arrow {
		outType, err := parseType(tk)
		if err != nil {
			c.bindings.TruncateTo(savedCount)
			return nil, err
		}
		outputs = append(outputs, outType)
	} else {
		tk.PutBack(arrow)
	}
	if kind == token.Func && len(outputs) != 1 {
		c.bindings.TruncateTo(savedCount)
		return nil, diag.New(diag.Syntactic, nameTok.Row, nameTok.Column, nameTok.Lexeme, "a func must declare a return type with '->'")
	}
	if kind == token.Proc && len(outputs) != 0 {
		c.bindings.TruncateTo(savedCount)
		return nil, diag.New(diag.Syntactic, nameTok.Row, nameTok.Column, nameTok.Lexeme, "a proc must not declare a return type")
	}

	bodyStart, err := tk.Next()
	if err != nil {
		return nil, err
	}

	var out ir.Buffer
	switch bodyStart.ID {
	case token.Define:
		out, err = parseExpressionBody(c, tk, nameTok, outputs)
	case token.ID('{'):
		out, err = parseBlockBody(c, tk, nameTok, outputs)
	default:
		err = diag.New(diag.Syntactic, bodyStart.Row, bodyStart.Column, bodyStart.Lexeme,
			"expected ':=' or '{' to begin a procedure body")
	}
	if err != nil {
		c.bindings.TruncateTo(savedCount)
		return nil, err
	}

	sig := types.Signature{Inputs: inputs, Outputs: outputs}
	c.bindings.TruncateTo(savedCount)
	bindingIndex := c.bindings.PushGlobal(nameTok.Lexeme, types.ProcOf(inputs, outputs))
	return &ProcedureDef{Name: nameTok.Lexeme, Code: out, Signature: sig, BindingIndex: bindingIndex}, nil
}

// ItemKind classifies one top-level unit the session driver processes.
type ItemKind int

const (
	ItemEOF ItemKind = iota
	ItemStatement
	ItemProcedure
)

// Item is one parsed-and-compiled top-level unit: end of input, a
// statement, or a procedure definition.
type Item struct {
	Kind      ItemKind
	Statement *Statement
	Procedure *ProcedureDef
}

// ParseItem reads and compiles the next top-level item, dispatching on
// `func`/`proc` vs. an ordinary statement, mirroring parse_item.
func ParseItem(c *Compiler, tk *token.Tokenizer) (*Item, error) {
	t, err := tk.Next()
	if err != nil {
		return nil, err
	}
	switch t.ID {
	case token.EOF:
		return &Item{Kind: ItemEOF}, nil
	case token.Func, token.Proc:
		proc, err := ParseProcedure(c, tk, t.ID)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: ItemProcedure, Procedure: proc}, nil
	default:
		tk.PutBack(t)
		stmt, err := ParseStatement(c, tk, false)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: ItemStatement, Statement: stmt}, nil
	}
}

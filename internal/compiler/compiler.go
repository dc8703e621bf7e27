package compiler

import (
	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/pattern"
	"github.com/modlang/modlang/internal/token"
	"github.com/modlang/modlang/internal/types"
)

// Compiler holds the state shared across every top-level item compiled in
// one interpreter session: the binding table and the pointer table used to
// thread compile-time type handles into RefStaticPointer operands.
type Compiler struct {
	bindings *Bindings
	pointers *PointerTable
}

// New creates a Compiler with a fresh binding table.
func New() *Compiler {
	return &Compiler{bindings: NewBindings(), pointers: NewPointerTable()}
}

// Bindings exposes the compiler's binding table, e.g. so the builtin
// registry can seed it before any user code compiles.
func (c *Compiler) Bindings() *Bindings { return c.bindings }

// Pointers exposes the compiler's pointer table, so the VM can resolve
// RefStaticPointer operands back to the *types.Type they were built from.
func (c *Compiler) Pointers() *PointerTable { return c.pointers }

var binaryOps = map[token.ID]ir.Op{
	token.LogicOr:  ir.OpLor,
	token.LogicAnd: ir.OpLand,
	token.Eq:       ir.OpEq,
	token.Neq:      ir.OpNeq,
	token.Leq:      ir.OpLeq,
	token.Geq:      ir.OpGeq,
	token.ID('<'):  ir.OpLess,
	token.ID('>'):  ir.OpGreater,
	token.ID('|'):  ir.OpBor,
	token.ID('&'):  ir.OpBand,
	token.ID('^'):  ir.OpBxor,
	token.ID('+'):  ir.OpPlus,
	token.ID('-'):  ir.OpMinus,
	token.Lshift:   ir.OpLshift,
	token.Rshift:   ir.OpRshift,
	token.ID('*'):  ir.OpMul,
	token.ID('/'):  ir.OpDiv,
	token.ID('%'):  ir.OpMod,
}

// compileValue resolves a VALUE command's token into a ref: either a
// binding lookup (split into RefGlobal/RefLocal depending on whether the
// name lives in the global prefix or the local suffix of the binding table)
// or a parsed integer literal.
func (c *Compiler) compileValue(tk token.Token) (ir.Ref, types.Type, error) {
	if tk.ID == token.Alphanum {
		idx := c.bindings.Lookup(tk.Lexeme)
		if idx == -1 {
			return ir.Ref{}, types.Type{}, diag.New(diag.Semantic, tk.Row, tk.Column, tk.Lexeme, "%q is not defined in this scope", tk.Lexeme)
		}
		b := c.bindings.At(idx)
		if idx < c.bindings.GlobalCount() {
			return ir.Ref{Kind: ir.RefGlobal, X: int64(idx)}, b.Type, nil
		}
		return ir.Ref{Kind: ir.RefLocal, X: int64(idx - c.bindings.GlobalCount())}, b.Type, nil
	}
	if tk.ID == token.Numeric {
		v, err := integerFromString(tk)
		if err != nil {
			return ir.Ref{}, types.Type{}, err
		}
		return ir.Ref{Kind: ir.RefConstant, X: v}, types.Int64, nil
	}
	return ir.Ref{}, types.Type{}, diag.New(diag.Internal, tk.Row, tk.Column, tk.Lexeme, "asked to compile token as a value atom")
}

func integerFromString(tk token.Token) (int64, error) {
	var result int64
	for _, ch := range tk.Lexeme {
		if ch < '0' || ch > '9' {
			return 0, diag.New(diag.Lexical, tk.Row, tk.Column, tk.Lexeme, "integer literal contains unsupported character %q", ch)
		}
		result = result*10 + int64(ch-'0')
	}
	return result, nil
}

// Expression is the compiled form of one pattern.Pattern: its bytecode plus
// the final stack of live intermediates (their types are what a caller
// needs to know to bind or return the results).
type Expression struct {
	Code         ir.Buffer
	Intermediates []IntermediateResult
}

// IntermediateResult is the externally visible summary of one value left on
// the intermediate stack after compiling an expression: its ref and type.
type IntermediateResult struct {
	Ref  ir.Ref
	Type types.Type
}

// CompileExpression walks p's flat command stream once, maintaining the
// intermediate and emplace stacks, and returns the compiled instructions
// plus whatever intermediates are left live at the end (e.g. for a
// top-level multi-value expression, or a procedure's inferred return
// values).
func (c *Compiler) CompileExpression(p *pattern.Pattern) (*Expression, error) {
	var out ir.Buffer
	intermediates := &intermediateStack{}
	emplaces := &emplaceStack{}

	for i := range p.Commands {
		cmd := &p.Commands[i]
		switch cmd.Type {
		case pattern.Value:
			ref, typ, err := c.compileValue(cmd.Token)
			if err != nil {
				return nil, err
			}
			intermediates.push(intermediate{ref: ref, typ: typ})

		case pattern.Unary:
			return nil, diag.New(diag.Internal, cmd.Token.Row, cmd.Token.Column, cmd.Token.Lexeme, "unary operators are not yet implemented")

		case pattern.Binary:
			if err := c.compileOperation(&out, intermediates, cmd.Token); err != nil {
				return nil, err
			}

		case pattern.Member:
			if err := c.compileMember(&out, intermediates, cmd.Token); err != nil {
				return nil, err
			}

		case pattern.EndTerm:
			if emplaces.len() != 0 {
				return nil, diag.New(diag.Internal, cmd.Token.Row, cmd.Token.Column, cmd.Token.Lexeme, "multi-value command inside an argument list or literal")
			}
			c.compilePush(&out, intermediates)

		case pattern.EndArg:
			em := emplaces.top()
			if em == nil {
				return nil, diag.New(diag.Syntactic, cmd.Token.Row, cmd.Token.Column, cmd.Token.Lexeme, "END_ARG outside of a call/array/struct expression")
			}
			if err := c.compileEndArg(&out, intermediates, em, cmd); err != nil {
				return nil, err
			}
			em.argsHandled++
			if em.argsHandled >= em.argsTotal {
				if err := c.compileEndEmplace(&out, intermediates, em, cmd); err != nil {
					return nil, err
				}
				emplaces.pop()
			}

		default: // ProcedureCall, Array, Struct: open a new emplace frame.
			if err := c.compileBeginEmplace(&out, intermediates, emplaces, cmd); err != nil {
				return nil, err
			}
		}
	}

	results := make([]IntermediateResult, intermediates.len())
	for i, v := range intermediates.data {
		results[i] = IntermediateResult{Ref: v.ref, Type: v.typ}
	}
	return &Expression{Code: out, Intermediates: results}, nil
}

// compileOperation emits one binary instruction. Array indexing (`a[i]`) is
// parsed as a PATTERN_BINARY command carrying the opening '[' token (see
// exprparser's resolveClosingToken for PARTIAL_INDEX) and is special-cased
// here rather than looked up in the scalar operator table, since it isn't a
// scalar arithmetic op.
func (c *Compiler) compileOperation(out *ir.Buffer, intermediates *intermediateStack, opTok token.Token) error {
	if opTok.ID == token.ID('[') {
		return c.compileIndex(out, intermediates, opTok)
	}

	op, ok := binaryOps[opTok.ID]
	if !ok {
		if opTok.ID == token.Concat {
			return c.compileConcat(out, intermediates, opTok)
		}
		return diag.New(diag.Syntactic, opTok.Row, opTok.Column, opTok.Lexeme, "operator is not implemented")
	}

	rhs := intermediates.pop()
	lhs := intermediates.pop()

	if lhs.typ.Connective != types.Int || rhs.typ.Connective != types.Int {
		return diag.New(diag.Semantic, opTok.Row, opTok.Column, opTok.Lexeme, "operands to operator %q must be integers", opTok.Lexeme)
	}
	if lhs.typ.WordSize != types.Size64 || rhs.typ.WordSize != types.Size64 {
		return diag.New(diag.Semantic, opTok.Row, opTok.Column, opTok.Lexeme, "only 64 bit integer types are currently implemented")
	}

	outRef := intermediates.push(intermediate{typ: types.Int64})
	*out = append(*out, ir.Instruction{Op: op, Flags: ir.Flag64Bit, Output: outRef, Arg1: lhs.ref, Arg2: rhs.ref})
	return nil
}

// compileConcat implements CONCAT as array-only, producing a fresh shared
// buffer; there is no scalar or string form of `++`.
func (c *Compiler) compileConcat(out *ir.Buffer, intermediates *intermediateStack, opTok token.Token) error {
	rhs := intermediates.pop()
	lhs := intermediates.pop()
	if lhs.typ.Connective != types.Array || rhs.typ.Connective != types.Array {
		return diag.New(diag.Semantic, opTok.Row, opTok.Column, opTok.Lexeme, "++ requires array operands")
	}
	if !types.Eq(lhs.typ, rhs.typ) {
		return diag.New(diag.Semantic, opTok.Row, opTok.Column, opTok.Lexeme, "++ requires arrays of the same element type")
	}
	outRef := intermediates.push(intermediate{typ: lhs.typ})
	*out = append(*out, ir.Instruction{Op: ir.OpArrayConcat, Flags: ir.FlagSharedBuff, Output: outRef, Arg1: lhs.ref, Arg2: rhs.ref})
	return nil
}

func (c *Compiler) compileIndex(out *ir.Buffer, intermediates *intermediateStack, opTok token.Token) error {
	idx := intermediates.pop()
	base := intermediates.pop()
	if base.typ.Connective != types.Array {
		return diag.New(diag.Semantic, opTok.Row, opTok.Column, opTok.Lexeme, "indexing requires an array operand")
	}
	if idx.typ.Connective != types.Int {
		return diag.New(diag.Semantic, opTok.Row, opTok.Column, opTok.Lexeme, "array index must be an integer")
	}
	elemType := *base.typ.Inner
	outRef := intermediates.push(intermediate{typ: elemType})
	flags := ir.Flag64Bit
	if elemType.Connective == types.Array {
		flags = ir.FlagSharedBuff
	}
	*out = append(*out, ir.Instruction{Op: ir.OpArrayIndex, Flags: flags, Output: outRef, Arg1: base.ref, Arg2: idx.ref})
	return nil
}

// compileMember resolves `.field` (record access) or `.N` (tuple access by
// position) against the top intermediate.
func (c *Compiler) compileMember(out *ir.Buffer, intermediates *intermediateStack, memberTok token.Token) error {
	base := intermediates.pop()

	var fieldIndex int
	var fieldType types.Type
	var offset int32

	switch base.typ.Connective {
	case types.Record:
		if memberTok.ID != token.Alphanum {
			return diag.New(diag.Semantic, memberTok.Row, memberTok.Column, memberTok.Lexeme, "record member access requires a field name")
		}
		fieldIndex = types.LookupField(base.typ.Fields, memberTok.Lexeme)
		if fieldIndex == -1 {
			return diag.New(diag.Semantic, memberTok.Row, memberTok.Column, memberTok.Lexeme, "record has no field %q", memberTok.Lexeme)
		}
		fieldType = base.typ.Fields[fieldIndex].Type
		for i := 0; i < fieldIndex; i++ {
			offset += base.typ.Fields[i].Type.TotalSize
		}
	case types.Tuple:
		if memberTok.ID != token.Numeric {
			return diag.New(diag.Semantic, memberTok.Row, memberTok.Column, memberTok.Lexeme, "tuple member access requires an integer position")
		}
		n, err := integerFromString(memberTok)
		if err != nil {
			return err
		}
		fieldIndex = int(n)
		if fieldIndex < 0 || fieldIndex >= len(base.typ.Elements) {
			return diag.New(diag.Semantic, memberTok.Row, memberTok.Column, memberTok.Lexeme, "tuple index %d out of range", fieldIndex)
		}
		fieldType = base.typ.Elements[fieldIndex]
		for i := 0; i < fieldIndex; i++ {
			offset += base.typ.Elements[i].TotalSize
		}
	default:
		return diag.New(diag.Semantic, memberTok.Row, memberTok.Column, memberTok.Lexeme, "member access requires a tuple or record operand")
	}

	outRef := intermediates.push(intermediate{typ: fieldType})
	*out = append(*out, ir.Instruction{
		Op: ir.OpPointerLoad, Flags: ir.Flag64Bit, Output: outRef,
		Arg1: base.ref, Arg2: ir.Ref{Kind: ir.RefConstant, X: int64(offset)},
	})
	return nil
}

// compilePush finalizes whatever is on top of the intermediate stack for a
// top-level multi-value term or a call argument: replace it with a fresh
// temporary at the same stack position, MOV'd from its old ref, so the VM's
// final-temporaries walk picks it up as a result.
func (c *Compiler) compilePush(out *ir.Buffer, intermediates *intermediateStack) {
	top := intermediates.top()
	if top.ref.Kind == ir.RefTemporary && int(top.ref.X) == intermediates.len()-1 {
		// Already the live top temporary; nothing further to do.
		return
	}
	old := intermediates.pop()
	outRef := intermediates.push(intermediate{typ: old.typ})
	*out = append(*out, ir.Instruction{Op: ir.OpMov, Output: outRef, Arg1: old.ref, Arg2: ir.Null})
}

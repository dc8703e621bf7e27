package compiler

import (
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/types"
)

// intermediate is the compile-time record of one in-flight subexpression
// value. A push whose ref is still Null allocates a fresh TEMPORARY ref
// equal to its position on this stack; a value that already names a
// constant, global or local keeps that ref.
type intermediate struct {
	ref             ir.Ref
	typ             types.Type
	ownsStackMemory bool
	allocSize       int32
	refOffset       int32
}

// intermediateStack is the compiler's working stack of live subexpression
// values, local to one CompileExpression call.
type intermediateStack struct {
	data []intermediate
}

func (s *intermediateStack) push(v intermediate) ir.Ref {
	if v.ref.Kind == ir.RefNull {
		v.ref = ir.Ref{Kind: ir.RefTemporary, X: int64(len(s.data))}
	}
	s.data = append(s.data, v)
	return v.ref
}

func (s *intermediateStack) pop() intermediate {
	top := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return top
}

func (s *intermediateStack) top() *intermediate {
	if len(s.data) == 0 {
		return nil
	}
	return &s.data[len(s.data)-1]
}

func (s *intermediateStack) len() int { return len(s.data) }

// truncateTo drops every intermediate past count, the compile-time
// equivalent of the VM popping UNBOUND temporaries off the variable stack.
func (s *intermediateStack) truncateTo(count int) {
	s.data = s.data[:count]
}

// typeOf resolves the static type of a ref for type-checking, mirroring
// get_type_info: constants are always Int64, globals/locals come from the
// binding table (see compileValue for the global/local index convention),
// and temporaries come from this stack.
func (c *Compiler) typeOf(ref ir.Ref, locals *intermediateStack) types.Type {
	switch ref.Kind {
	case ir.RefConstant:
		return types.Int64
	case ir.RefGlobal:
		return c.bindings.At(int(ref.X)).Type
	case ir.RefLocal:
		return c.bindings.At(c.bindings.GlobalCount() + int(ref.X)).Type
	case ir.RefTemporary:
		return locals.data[ref.X].typ
	default:
		return types.Type{}
	}
}

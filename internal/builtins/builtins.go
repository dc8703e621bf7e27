// Package builtins seeds the compiler's binding table and the VM's
// procedure table with the handful of procedures that aren't written in
// this language itself. Each one is bound the same way builtins.h's
// add_builtins does it: a synthetic instruction buffer wrapping a single
// opcode, registered as a procedure and bound to a global exactly like a
// user-defined `proc` would be, so the compiler and VM never special-case
// a builtin call site.
package builtins

import (
	"github.com/modlang/modlang/internal/compiler"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/types"
	"github.com/modlang/modlang/internal/vm"
)

// Register seeds assert, len, print, ediv and emod into c's binding table
// and m's procedure table. It must run before any user source is compiled,
// so the five names resolve as ordinary globals from the first statement on.
func Register(c *compiler.Compiler, m *vm.VM) {
	bind(c, m, "assert", types.Signature{Inputs: []types.Type{types.Int64}}, ir.Buffer{
		{Op: ir.OpAssert, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Null},
		{Op: ir.OpRet, Arg1: ir.Null, Arg2: ir.Null},
	})

	arrayOfInt := types.ArrayOf(types.Int64)
	bind(c, m, "len", types.Signature{Inputs: []types.Type{arrayOfInt}, Outputs: []types.Type{types.Int64}}, ir.Buffer{
		{Op: ir.OpArrayLen, Output: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Null},
		{Op: ir.OpRet, Arg1: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg2: ir.Null},
	})

	// print exists so a non-interactive `modlang run` script has any way
	// to produce output at all: file mode has no REPL echo of bound
	// names or results, only whatever print writes as it runs.
	bind(c, m, "print", types.Signature{Inputs: []types.Type{types.Int64}}, ir.Buffer{
		{Op: ir.OpPrint, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Null},
		{Op: ir.OpRet, Arg1: ir.Null, Arg2: ir.Null},
	})

	// ediv/emod: OP_EDIV and OP_EMOD have no infix spelling (`/` and `%`
	// already cover truncated division), so this is the only way a
	// program reaches Euclidean division from source.
	twoInts := types.Signature{Inputs: []types.Type{types.Int64, types.Int64}, Outputs: []types.Type{types.Int64}}
	bind(c, m, "ediv", twoInts, ir.Buffer{
		{Op: ir.OpEdiv, Output: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Ref{Kind: ir.RefLocal, X: 1}},
		{Op: ir.OpRet, Arg1: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg2: ir.Null},
	})
	bind(c, m, "emod", twoInts, ir.Buffer{
		{Op: ir.OpEmod, Output: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Ref{Kind: ir.RefLocal, X: 1}},
		{Op: ir.OpRet, Arg1: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg2: ir.Null},
	})
}

// bind is this port's add_procedure + bind_global/bind_procedure: register
// the body with the VM to get its table handle, push the name into the
// compiler's global bindings, and seed that same global in the VM with the
// handle, so a builtin call site compiles and runs exactly like a call to
// a user-defined procedure.
func bind(c *compiler.Compiler, m *vm.VM, name string, sig types.Signature, body ir.Buffer) {
	handle := m.RegisterProcedure(body, sig)
	idx := c.Bindings().PushGlobal(name, types.ProcOf(sig.Inputs, sig.Outputs))
	m.DefineGlobal(idx, handle, vm.DirectValue)
}

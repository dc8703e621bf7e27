package vm

import (
	"testing"

	"github.com/modlang/modlang/internal/compiler"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/types"
)

func constRef(v int64) ir.Ref { return ir.Ref{Kind: ir.RefConstant, X: v} }
func tempRef(i int64) ir.Ref  { return ir.Ref{Kind: ir.RefTemporary, X: i} }
func globalRef(i int64) ir.Ref { return ir.Ref{Kind: ir.RefGlobal, X: i} }

func TestRun_SimpleArithmetic(t *testing.T) {
	m := New(compiler.NewPointerTable())
	code := ir.Buffer{
		{Op: ir.OpPlus, Output: tempRef(0), Arg1: constRef(2), Arg2: constRef(3)},
		{Op: ir.OpMul, Output: tempRef(1), Arg1: tempRef(0), Arg2: constRef(4)},
		{Op: ir.OpMov, Output: globalRef(0), Arg1: tempRef(1), Arg2: ir.Null},
	}
	if err := m.Run(code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GlobalValue(0); got != 20 {
		t.Errorf("global 0 = %d, want 20 ((2+3)*4)", got)
	}
}

func TestRun_EuclideanDivMod(t *testing.T) {
	tests := []struct {
		op       ir.Op
		a, b, want int64
	}{
		{ir.OpEdiv, 7, 2, 3},
		{ir.OpEmod, 7, 2, 1},
		{ir.OpEdiv, -7, 2, -4},
		{ir.OpEmod, -7, 2, 1},
		{ir.OpEdiv, 7, -2, -3},
		{ir.OpEmod, 7, -2, 1},
		{ir.OpEdiv, -7, -2, 4},
		{ir.OpEmod, -7, -2, 1},
	}
	for _, tt := range tests {
		m := New(compiler.NewPointerTable())
		code := ir.Buffer{
			{Op: tt.op, Output: globalRef(0), Arg1: constRef(tt.a), Arg2: constRef(tt.b)},
		}
		if err := m.Run(code); err != nil {
			t.Fatalf("%s(%d,%d): unexpected error: %v", tt.op, tt.a, tt.b, err)
		}
		if got := m.GlobalValue(0); got != tt.want {
			t.Errorf("%s(%d,%d) = %d, want %d", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRun_AssertFailureIsRuntimeError(t *testing.T) {
	m := New(compiler.NewPointerTable())
	code := ir.Buffer{
		{Op: ir.OpAssert, Arg1: constRef(0), Arg2: ir.Null},
	}
	if err := m.Run(code); err == nil {
		t.Fatal("expected an error when asserting a false condition")
	}
}

func TestRun_AssertSuccessDoesNotError(t *testing.T) {
	m := New(compiler.NewPointerTable())
	code := ir.Buffer{
		{Op: ir.OpAssert, Arg1: constRef(1), Arg2: ir.Null},
	}
	if err := m.Run(code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_PrintHookReceivesValues(t *testing.T) {
	m := New(compiler.NewPointerTable())
	var printed []int64
	m.SetPrintHook(func(v int64) { printed = append(printed, v) })

	code := ir.Buffer{
		{Op: ir.OpPrint, Arg1: constRef(42), Arg2: ir.Null},
	}
	if err := m.Run(code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(printed) != 1 || printed[0] != 42 {
		t.Errorf("printed = %v, want [42]", printed)
	}
}

func TestRun_ArrayAllocIndexStore(t *testing.T) {
	pointers := compiler.NewPointerTable()
	handle := pointers.Register(&types.Int64)
	m := New(pointers)

	code := ir.Buffer{
		// xs := [0, 0, 0]
		{Op: ir.OpArrayAlloc, Flags: ir.FlagSharedBuff, Output: tempRef(0), Arg1: ir.Ref{Kind: ir.RefStaticPointer, X: handle}, Arg2: constRef(3)},
		// xs[1] = 99
		{Op: ir.OpArrayStore, Output: tempRef(0), Arg1: constRef(1), Arg2: constRef(99)},
		{Op: ir.OpMov, Output: globalRef(0), Arg1: tempRef(0), Arg2: ir.Null},
		{Op: ir.OpArrayIndex, Output: globalRef(1), Arg1: globalRef(0), Arg2: constRef(1)},
	}
	if err := m.Run(code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GlobalValue(1); got != 99 {
		t.Errorf("xs[1] = %d, want 99", got)
	}
	if got := m.ArrayLen(m.GlobalValue(0)); got != 3 {
		t.Errorf("len(xs) = %d, want 3", got)
	}
}

func TestRun_ArrayIndexOutOfRangeIsRuntimeError(t *testing.T) {
	pointers := compiler.NewPointerTable()
	handle := pointers.Register(&types.Int64)
	m := New(pointers)

	code := ir.Buffer{
		{Op: ir.OpArrayAlloc, Flags: ir.FlagSharedBuff, Output: tempRef(0), Arg1: ir.Ref{Kind: ir.RefStaticPointer, X: handle}, Arg2: constRef(2)},
		{Op: ir.OpArrayIndex, Output: globalRef(0), Arg1: tempRef(0), Arg2: constRef(5)},
	}
	if err := m.Run(code); err == nil {
		t.Fatal("expected a runtime error for an out-of-range array index")
	}
}

// TestRun_ProcedureCallAndReturn hand-assembles a one-argument "double"
// procedure and calls it from the top level, checking that argument
// passing and result delivery round-trip correctly through the call stack.
func TestRun_ProcedureCallAndReturn(t *testing.T) {
	m := New(compiler.NewPointerTable())

	// double(n) = n * 2
	doubleCode := ir.Buffer{
		{Op: ir.OpMul, Output: tempRef(0), Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: constRef(2)},
		{Op: ir.OpRet, Arg1: tempRef(0), Arg2: ir.Null},
	}
	handle := m.RegisterProcedure(doubleCode, types.Signature{Inputs: []types.Type{types.Int64}, Outputs: []types.Type{types.Int64}})

	topLevel := ir.Buffer{
		// arg temporary holding 21
		{Op: ir.OpMov, Output: tempRef(0), Arg1: constRef(21), Arg2: ir.Null},
		{Op: ir.OpCall, Output: globalRef(0), Arg1: constRef(handle), Arg2: tempRef(0)},
	}
	if err := m.Run(topLevel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GlobalValue(0); got != 42 {
		t.Errorf("double(21) = %d, want 42", got)
	}
}

func TestRun_UnknownOpcodeIsRuntimeError(t *testing.T) {
	m := New(compiler.NewPointerTable())
	code := ir.Buffer{
		{Op: ir.Op(9999), Output: globalRef(0), Arg1: constRef(1), Arg2: constRef(2)},
	}
	if err := m.Run(code); err == nil {
		t.Fatal("expected a runtime error for an unknown opcode")
	}
}

func TestGlobalCount_TracksWidestGlobalWritten(t *testing.T) {
	m := New(compiler.NewPointerTable())
	code := ir.Buffer{
		{Op: ir.OpMov, Output: globalRef(2), Arg1: constRef(1), Arg2: ir.Null},
	}
	if err := m.Run(code); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GlobalCount(); got != 3 {
		t.Errorf("GlobalCount() = %d, want 3", got)
	}
}

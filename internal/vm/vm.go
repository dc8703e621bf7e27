// Package vm executes compiled ir.Buffer code with a call-stack executor.
// It plays the role of interpreter.h's continue_execution, generalized to
// actually dispatch procedure calls and the array/pointer opcodes the
// reference snapshot declares but never runs (see DESIGN.md).
package vm

import (
	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/types"
)

// PointerResolver resolves a RefStaticPointer handle back to the type it was
// registered with. compiler.PointerTable satisfies this.
type PointerResolver interface {
	Resolve(handle int64) *types.Type
}

// MemMode mirrors enum variable_memory_mode: what, if anything, should
// happen when a variable slot becomes unbound.
type MemMode int

const (
	Unbound MemMode = iota
	DirectValue
	MemoryStack
	Refcount
)

// Variable is one slot of the unified global+local+temporary stack.
type Variable struct {
	Value   int64
	MemMode MemMode
}

// Frame is one call's bookkeeping: its code, program counter, and where its
// local region begins in the shared variable stack. ReturnRef is where the
// caller wants this call's single return value written, once it RETs;
// RefNull for the outermost (top-level) frame or a void call.
type Frame struct {
	Code ir.Buffer

	Current     int
	LocalsStart int
	LocalsCount int

	ReturnRef ir.Ref
}

// Procedure is one compiled callable: its body and the signature the
// compiler already checked call sites against.
type Procedure struct {
	Code      ir.Buffer
	Signature types.Signature
}

// VM holds everything that persists across top-level items in one
// interpreter session: the variable stack, the procedure table, the
// byte-addressable stack region for tuples/records, the array heap, and the
// pointer table shared with the compiler.
type VM struct {
	vars        []Variable
	globalCount int

	exec []Frame

	procedures []Procedure

	stackMem []int64

	arrays []*arrayBuffer

	pointers PointerResolver

	printHook func(int64)
}

// New creates an empty VM. pointers must be the same PointerTable instance
// the compiler used, so RefStaticPointer handles resolve to the types they
// were registered with.
func New(pointers PointerResolver) *VM {
	return &VM{pointers: pointers}
}

// RegisterProcedure adds a compiled procedure body to the call table and
// returns its handle, the value a Procedure-typed variable holds at
// runtime.
func (vm *VM) RegisterProcedure(code ir.Buffer, sig types.Signature) int64 {
	vm.procedures = append(vm.procedures, Procedure{Code: code, Signature: sig})
	return int64(len(vm.procedures) - 1)
}

// DefineGlobal seeds global index with value directly, without running any
// bytecode — used for binding a freshly defined procedure's name to its
// table handle, the same shortcut bind_procedure takes in the reference
// design instead of emitting an instruction for it.
func (vm *VM) DefineGlobal(index int, value int64, mode MemMode) {
	vm.ensureCount(index + 1)
	vm.vars[index] = Variable{Value: value, MemMode: mode}
	if index+1 > vm.globalCount {
		vm.globalCount = index + 1
	}
}

// GlobalValue reads a global variable's raw value, e.g. for the REPL to
// print a newly defined name.
func (vm *VM) GlobalValue(index int) int64 { return vm.vars[index].Value }

// GlobalCount reports the current size of the global prefix, e.g. so a
// driver can record where a top-level statement's temporaries will begin
// before running it.
func (vm *VM) GlobalCount() int { return vm.globalCount }

// ReadResult resolves ref against the global prefix as it stood when a
// top-level statement with that ref as one of its results was run — the
// statement/item layer never leaves a RefLocal live at top level, so only
// RefConstant, RefGlobal and RefTemporary need handling here. runLocalsStart
// is the GlobalCount() at the time that statement's Run call was made.
func (vm *VM) ReadResult(runLocalsStart int, ref ir.Ref) int64 {
	switch ref.Kind {
	case ir.RefConstant:
		return ref.X
	case ir.RefGlobal:
		return vm.vars[ref.X].Value
	case ir.RefTemporary:
		return vm.vars[runLocalsStart+int(ref.X)].Value
	default:
		return 0
	}
}

// ArrayLen reports a previously allocated array buffer's element count, for
// a driver rendering an array value (e.g. the REPL echo).
func (vm *VM) ArrayLen(handle int64) int { return len(vm.arrays[handle].data) }

// ArrayElem reads one element of a previously allocated array buffer.
func (vm *VM) ArrayElem(handle int64, i int) int64 { return vm.arrays[handle].data[i] }

// StackWord reads one 8-byte slot of the tuple/record stack region at
// absolute slot index idx.
func (vm *VM) StackWord(idx int64) int64 { return vm.stackMem[idx] }

func (vm *VM) ensureCount(n int) {
	for len(vm.vars) < n {
		vm.vars = append(vm.vars, Variable{})
	}
}

// Run executes one top-level statement's compiled code to completion,
// mirroring execute_top_level_code: it pushes a single outer frame and
// drains the frame stack, which grows and shrinks again as any procedure
// calls within it run to completion.
func (vm *VM) Run(code ir.Buffer) error {
	if len(vm.exec) != 0 {
		return diag.New(diag.Internal, 0, 0, "", "Run called while a previous top-level frame was still active")
	}
	vm.exec = append(vm.exec, Frame{Code: code, LocalsStart: vm.globalCount})

	for len(vm.exec) > 0 {
		frame := &vm.exec[len(vm.exec)-1]
		if frame.Current >= len(frame.Code) {
			vm.exec = vm.exec[:len(vm.exec)-1]
			continue
		}

		if err := vm.step(frame); err != nil {
			vm.exec = nil
			return err
		}
	}
	return nil
}

// step executes exactly one instruction of frame, which is always the top
// of vm.exec. CALL and RET manage vm.exec and frame.Current themselves and
// return early; every other opcode falls through to the shared
// read-compute-write-unbind epilogue.
func (vm *VM) step(frame *Frame) error {
	instr := frame.Code[frame.Current]

	switch instr.Op {
	case ir.OpCall:
		return vm.execCall(frame, instr)
	case ir.OpRet:
		return vm.execRet(frame, instr)
	case ir.OpPointerStore, ir.OpArrayStore:
		return vm.execStoreThroughOutput(frame, instr)
	}

	arg1 := vm.readRef(frame, instr.Arg1)
	var arg2 int64
	if instr.Op != ir.OpMov {
		arg2 = vm.readRef(frame, instr.Arg2)
	}

	result, err := vm.dispatch(frame, instr, arg1, arg2)
	if err != nil {
		return err
	}

	vm.unbindIfTemporary(frame, instr.Arg1)
	vm.unbindIfTemporary(frame, instr.Arg2)

	vm.writeRef(frame, instr.Output, result, instr.Flags&ir.FlagSharedBuff != 0)
	vm.growFrameOrGlobals(frame, instr.Output)
	vm.trimUnboundTop()

	frame.Current++
	return nil
}

// dispatch computes the non-call, non-store opcodes: the scalar ALU plus
// the array/pointer/builtin operations that produce a single result value.
func (vm *VM) dispatch(frame *Frame, instr ir.Instruction, arg1, arg2 int64) (int64, error) {
	switch {
	case instr.Op == ir.OpMov:
		return arg1, nil
	case instr.Op.IsArithmetic():
		return evalArithmetic(instr.Op, arg1, arg2), nil
	}

	switch instr.Op {
	case ir.OpArrayAlloc:
		return vm.execArrayAlloc(instr, arg1, arg2)
	case ir.OpArrayIndex:
		return vm.execArrayIndex(instr, arg1, arg2)
	case ir.OpArrayConcat:
		return vm.execArrayConcat(arg1, arg2)
	case ir.OpArrayLen:
		return int64(len(vm.arrays[arg1].data)), nil
	case ir.OpArrayOffset:
		return arg1 + arg2, nil
	case ir.OpDecrementRefcount:
		vm.decrementArray(arg1)
		return 0, nil
	case ir.OpStackAlloc:
		return vm.execStackAlloc(arg1), nil
	case ir.OpStackFree:
		vm.stackMem = vm.stackMem[:arg1]
		return 0, nil
	case ir.OpPointerOffset:
		return arg1 + arg2/8, nil
	case ir.OpPointerLoad:
		return vm.stackMem[arg1+arg2/8], nil
	case ir.OpPointerCopy, ir.OpPointerCopyOverlapping:
		return arg1, nil
	case ir.OpAssert:
		if arg1 == 0 {
			return 0, diag.New(diag.Runtime, 0, 0, "", "assertion failed")
		}
		return 0, nil
	case ir.OpPrint:
		vm.onPrint(arg1)
		return 0, nil
	default:
		return 0, diag.New(diag.Runtime, 0, 0, "", "tried to execute unknown opcode %s", instr.Op)
	}
}

// SetPrintHook lets the CLI wire the PRINT builtin to stdout, so the VM
// core never imports an I/O package itself (see internal/builtins).
func (vm *VM) SetPrintHook(fn func(int64)) { vm.printHook = fn }

func (vm *VM) onPrint(v int64) {
	if vm.printHook != nil {
		vm.printHook(v)
	}
}

package vm

import "github.com/modlang/modlang/internal/ir"

// execCall implements OP_CALL, a feature the reference VM never actually
// dispatches (see DESIGN.md): the callee's table handle comes from Arg1,
// and Arg2 names the first of a contiguous run of temporaries in the
// caller's frame holding the arguments, one per declared input. The new
// frame's locals region is pushed on top of whatever the caller is
// currently using, not pinned to the global prefix the way the reference
// design's single top-level frame was — that fix is what makes recursion
// safe.
func (vm *VM) execCall(frame *Frame, instr ir.Instruction) error {
	calleeIdx := vm.readRef(frame, instr.Arg1)
	proc := vm.procedures[calleeIdx]
	argCount := len(proc.Signature.Inputs)

	argBase := vm.absoluteIndex(frame, instr.Arg2)
	argVals := make([]int64, argCount)
	for i := 0; i < argCount; i++ {
		argVals[i] = vm.vars[argBase+i].Value
		vm.vars[argBase+i].MemMode = Unbound
	}
	vm.unbindIfTemporary(frame, instr.Arg1)
	vm.trimUnboundTop()

	newFrame := Frame{
		Code:        proc.Code,
		LocalsStart: len(vm.vars),
		LocalsCount: argCount,
		ReturnRef:   instr.Output,
	}
	for _, v := range argVals {
		vm.vars = append(vm.vars, Variable{Value: v, MemMode: DirectValue})
	}
	frame.Current++
	vm.exec = append(vm.exec, newFrame)
	return nil
}

// execRet implements OP_RET: it tears the current frame down completely
// (every local and temporary it used), then, if a caller is waiting on a
// result, writes it into the caller's frame and resumes execution right
// after the CALL.
func (vm *VM) execRet(frame *Frame, instr ir.Instruction) error {
	var result int64
	if instr.Arg1.Kind != ir.RefNull {
		result = vm.readRef(frame, instr.Arg1)
	}
	localsStart := frame.LocalsStart
	returnRef := frame.ReturnRef

	vm.exec = vm.exec[:len(vm.exec)-1]
	vm.vars = vm.vars[:localsStart]

	if len(vm.exec) == 0 {
		return nil
	}
	// The caller's Current was already advanced past its CALL instruction
	// in execCall, before the callee's frame was even pushed, so there is
	// nothing left to do here but deliver the result.
	caller := &vm.exec[len(vm.exec)-1]
	if returnRef.Kind != ir.RefNull {
		vm.writeRef(caller, returnRef, result, false)
		vm.growFrameOrGlobals(caller, returnRef)
		vm.trimUnboundTop()
	}
	return nil
}

package vm

import "github.com/modlang/modlang/internal/ir"

// readRef resolves ref against frame, translating read_ref. RefNull reads
// as 0 rather than aborting the process: unlike the reference design, this
// VM dispatches opcodes that legitimately leave an operand unused (e.g.
// RET with no value, MOV's arg2), so Null has to be a safe no-op read
// rather than a fatal error.
func (vm *VM) readRef(frame *Frame, ref ir.Ref) int64 {
	switch ref.Kind {
	case ir.RefNull:
		return 0
	case ir.RefConstant, ir.RefStaticPointer:
		return ref.X
	case ir.RefGlobal:
		return vm.vars[ref.X].Value
	case ir.RefLocal:
		return vm.vars[frame.LocalsStart+int(ref.X)].Value
	case ir.RefTemporary:
		return vm.vars[frame.LocalsStart+frame.LocalsCount+int(ref.X)].Value
	default:
		return 0
	}
}

// absoluteIndex resolves ref to its index into vm.vars, for refs that name
// a variable slot (every kind but RefNull/RefConstant/RefStaticPointer).
func (vm *VM) absoluteIndex(frame *Frame, ref ir.Ref) int {
	switch ref.Kind {
	case ir.RefGlobal:
		return int(ref.X)
	case ir.RefLocal:
		return frame.LocalsStart + int(ref.X)
	case ir.RefTemporary:
		return frame.LocalsStart + frame.LocalsCount + int(ref.X)
	default:
		return -1
	}
}

// writeRef resolves ref and stores value there, translating write_ref.
// sharedBuff marks the slot as holding an array handle, bumping that
// array's refcount since a new live reference to it now exists.
func (vm *VM) writeRef(frame *Frame, ref ir.Ref, value int64, sharedBuff bool) {
	if ref.Kind == ir.RefNull {
		return
	}
	idx := vm.absoluteIndex(frame, ref)
	vm.ensureCount(idx + 1)
	mode := DirectValue
	if sharedBuff {
		mode = Refcount
		vm.arrays[value].refcount++
	}
	vm.vars[idx] = Variable{Value: value, MemMode: mode}
}

// growFrameOrGlobals widens the current frame's locals region, or the
// global prefix, when output just bound a new index past what was
// previously live — the auto-growth continue_execution does inline after
// every write_ref.
func (vm *VM) growFrameOrGlobals(frame *Frame, output ir.Ref) {
	switch output.Kind {
	case ir.RefLocal:
		if int(output.X) >= frame.LocalsCount {
			frame.LocalsCount = int(output.X) + 1
		}
	case ir.RefGlobal:
		if int(output.X) >= vm.globalCount {
			vm.globalCount = int(output.X) + 1
		}
	}
}

// unbindIfTemporary marks ref's slot UNBOUND once an instruction has
// consumed it as an input, decrementing any array it held — the
// move-out-on-read semantics that make a flat temporary stack behave like a
// compiler-managed register file instead of leaking every intermediate
// value forever.
func (vm *VM) unbindIfTemporary(frame *Frame, ref ir.Ref) {
	if ref.Kind != ir.RefTemporary {
		return
	}
	idx := frame.LocalsStart + frame.LocalsCount + int(ref.X)
	if idx >= len(vm.vars) {
		return
	}
	if vm.vars[idx].MemMode == Refcount {
		vm.decrementArray(vm.vars[idx].Value)
	}
	vm.vars[idx].MemMode = Unbound
}

// trimUnboundTop pops every UNBOUND slot off the top of the variable stack,
// the compaction continue_execution performs after every instruction.
func (vm *VM) trimUnboundTop() {
	for len(vm.vars) > 0 && vm.vars[len(vm.vars)-1].MemMode == Unbound {
		vm.vars = vm.vars[:len(vm.vars)-1]
	}
}

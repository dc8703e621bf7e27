package vm

import (
	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/types"
)

// arrayBuffer is the runtime representation of one array value: a
// refcounted, shared, growable-only-at-allocation-time buffer, standing in
// for the reference design's "shared buffer" arrays. Every variable slot
// holding this array's handle counts toward refcount (see writeRef /
// unbindIfTemporary); this implementation never actually reclaims a buffer
// once its count reaches zero, since the interpreter is a short-lived
// single-session process and Go's garbage collector reclaims everything at
// exit regardless (the reference design's own free path for arrays is
// likewise never shown running in the snapshot this was grounded on).
type arrayBuffer struct {
	elemType types.Type
	data     []int64
	refcount int
}

func (vm *VM) execArrayAlloc(instr ir.Instruction, handle, count int64) (int64, error) {
	elemType := vm.pointers.Resolve(handle)
	if count < 0 {
		return 0, diag.New(diag.Runtime, 0, 0, "", "array allocation with negative length %d", count)
	}
	buf := &arrayBuffer{elemType: *elemType, data: make([]int64, count)}
	vm.arrays = append(vm.arrays, buf)
	return int64(len(vm.arrays) - 1), nil
}

func (vm *VM) execArrayIndex(instr ir.Instruction, ptr, idx int64) (int64, error) {
	buf := vm.arrays[ptr]
	if idx < 0 || int(idx) >= len(buf.data) {
		return 0, diag.New(diag.Runtime, 0, 0, "", "array index %d out of range (length %d)", idx, len(buf.data))
	}
	return buf.data[idx], nil
}

func (vm *VM) execArrayConcat(ptr1, ptr2 int64) (int64, error) {
	a, b := vm.arrays[ptr1], vm.arrays[ptr2]
	data := make([]int64, 0, len(a.data)+len(b.data))
	data = append(data, a.data...)
	data = append(data, b.data...)
	vm.arrays = append(vm.arrays, &arrayBuffer{elemType: a.elemType, data: data})
	return int64(len(vm.arrays) - 1), nil
}

func (vm *VM) decrementArray(handle int64) {
	if handle < 0 || int(handle) >= len(vm.arrays) || vm.arrays[handle] == nil {
		return
	}
	vm.arrays[handle].refcount--
}

func (vm *VM) execStackAlloc(sizeBytes int64) int64 {
	base := len(vm.stackMem)
	vm.stackMem = append(vm.stackMem, make([]int64, sizeBytes/8)...)
	return int64(base)
}

// execStoreThroughOutput implements POINTER_STORE and ARRAY_STORE. Unlike
// every other opcode, these two read their pointer from the Output ref
// instead of writing a result to it — the value being stored lives in
// Arg1/Arg2, and the destination slot (the struct/array literal's own
// intermediate) is meant to stay bound across every field/element it
// receives, not be consumed by any one store.
func (vm *VM) execStoreThroughOutput(frame *Frame, instr ir.Instruction) error {
	ptr := vm.readRef(frame, instr.Output)
	arg1 := vm.readRef(frame, instr.Arg1)
	arg2 := vm.readRef(frame, instr.Arg2)

	switch instr.Op {
	case ir.OpPointerStore:
		idx := ptr + arg1/8
		if idx < 0 || int(idx) >= len(vm.stackMem) {
			return diag.New(diag.Runtime, 0, 0, "", "pointer store out of range of the allocated region")
		}
		vm.stackMem[idx] = arg2

	case ir.OpArrayStore:
		buf := vm.arrays[ptr]
		if arg1 < 0 || int(arg1) >= len(buf.data) {
			return diag.New(diag.Runtime, 0, 0, "", "array store index %d out of range (length %d)", arg1, len(buf.data))
		}
		buf.data[arg1] = arg2
		if instr.Flags&ir.FlagSharedBuff != 0 {
			vm.arrays[arg2].refcount++
		}
	}

	vm.unbindIfTemporary(frame, instr.Arg2)
	vm.trimUnboundTop()
	frame.Current++
	return nil
}

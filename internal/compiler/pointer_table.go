package compiler

import "github.com/modlang/modlang/internal/types"

// PointerTable stands in for the C prototype's raw `(int64)&type` casts used
// for RefStaticPointer operands (e.g. ARRAY_ALLOC's element type). Go has no
// safe equivalent of casting a pointer to an integer and back across an
// instruction stream, so instead each registered type gets a small integer
// handle that both the compiler and the VM resolve through this table.
type PointerTable struct {
	types []*types.Type
}

// NewPointerTable creates an empty table.
func NewPointerTable() *PointerTable { return &PointerTable{} }

// Register stores t and returns its handle.
func (p *PointerTable) Register(t *types.Type) int64 {
	p.types = append(p.types, t)
	return int64(len(p.types) - 1)
}

// Resolve returns the type a handle was registered with.
func (p *PointerTable) Resolve(handle int64) *types.Type {
	return p.types[handle]
}

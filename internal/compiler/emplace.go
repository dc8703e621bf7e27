package compiler

import (
	"github.com/modlang/modlang/internal/pattern"
	"github.com/modlang/modlang/internal/types"
)

// emplaceInfo is the compile-time state of one open aggregate-construction
// context: an array literal, a struct literal, or a procedure call.
type emplaceInfo struct {
	kind pattern.CommandType

	allocInstructionIndex int // index into the instruction buffer, -1 for calls
	pointerIntermediate   int // index into the intermediate stack

	argsHandled int
	argsTotal   int

	elementSize int32
	elementType *types.Type
}

// emplaceStack is the compiler's stack of open aggregate/call contexts,
// local to one CompileExpression call. A nested `{x: [1, 2]}` pushes a
// STRUCT frame, then an ARRAY frame, processing the array to completion
// before returning to the struct.
type emplaceStack struct {
	data []emplaceInfo
}

func (s *emplaceStack) push(v emplaceInfo) *emplaceInfo {
	s.data = append(s.data, v)
	return &s.data[len(s.data)-1]
}

func (s *emplaceStack) pop() { s.data = s.data[:len(s.data)-1] }

func (s *emplaceStack) top() *emplaceInfo {
	if len(s.data) == 0 {
		return nil
	}
	return &s.data[len(s.data)-1]
}

func (s *emplaceStack) len() int { return len(s.data) }

// Package types models the language's type system: a small tagged union of
// scalar and composite connectives, with exclusive ownership of composite
// children expressed through plain Go value semantics (slices of Type, not
// pointers into a shared arena — see SPEC_FULL.md §9 for why this sidesteps the
// manual destroy_type pass of the C prototype this was ported from).
package types

import "fmt"

// Connective is the tag of a Type's union.
type Connective int

const (
	Int Connective = iota
	UInt
	Word
	Float
	Tuple
	Record
	Array
	Procedure
)

func (c Connective) String() string {
	switch c {
	case Int:
		return "Int"
	case UInt:
		return "UInt"
	case Word:
		return "Word"
	case Float:
		return "Float"
	case Tuple:
		return "Tuple"
	case Record:
		return "Record"
	case Array:
		return "Array"
	case Procedure:
		return "Procedure"
	default:
		return "?"
	}
}

// WordSize indexes a scalar's width: 0 => 8 bits, up to 3 => 64 bits.
type WordSize uint8

const (
	Size8 WordSize = iota
	Size16
	Size32
	Size64
)

func (w WordSize) Bits() int { return 8 << w }

// Field is one named member of a Record.
type Field struct {
	Name string
	Type Type
}

// Signature is the input/output type list of a Procedure type.
type Signature struct {
	Inputs  []Type
	Outputs []Type
}

// Type is a tagged union of the language's type constructors. Only the
// fields relevant to Connective are meaningful; this mirrors the C
// original's union without needing one, since Go doesn't require
// space-sharing here and correctness matters more than matching the
// union's memory layout.
type Type struct {
	Connective Connective

	WordSize WordSize  // Int, UInt, Word, Float
	Elements []Type    // Tuple
	Fields   []Field   // Record
	Inner    *Type     // Array
	Proc     Signature // Procedure

	TotalSize int32
}

// Int64 is the only scalar type this implementation currently compiles
// arithmetic and comparison operators against; both operands must be
// 64-bit int today.
var Int64 = Type{Connective: Int, WordSize: Size64, TotalSize: 8}

// EmptyTuple is the starting point for a struct literal that turns out to be
// a tuple (no field names seen yet).
var EmptyTuple = Type{Connective: Tuple, TotalSize: 0}

// EmptyRecord is the starting point for a struct literal that turns out to
// be a record (at least one field name seen).
var EmptyRecord = Type{Connective: Record, TotalSize: 0}

// sharedBufferHeaderSize is the fixed size of an ARRAY value's runtime
// descriptor (pointer + length), matching the original's placeholder
// "total_size = 16" for any array type regardless of element type.
const sharedBufferHeaderSize = 16

// ArrayOf builds the array-of-inner type. The inner type is copied into a
// freshly allocated *Type so that each ArrayOf value owns its own element
// type independent of the caller's copy.
func ArrayOf(inner Type) Type {
	innerCopy := inner
	return Type{
		Connective: Array,
		Inner:      &innerCopy,
		TotalSize:  sharedBufferHeaderSize,
	}
}

// ProcOf builds a procedure type from its input/output signature. Procedure
// values are represented at runtime as a single pointer-sized handle.
func ProcOf(inputs, outputs []Type) Type {
	return Type{
		Connective: Procedure,
		Proc:       Signature{Inputs: inputs, Outputs: outputs},
		TotalSize:  8,
	}
}

// Eq reports structural equality: same connective, and recursively equal
// children.
func Eq(a, b Type) bool {
	if a.Connective != b.Connective {
		return false
	}
	switch a.Connective {
	case Int, UInt, Word, Float:
		return a.WordSize == b.WordSize
	case Tuple:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Eq(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case Record:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name {
				return false
			}
			if !Eq(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case Array:
		return Eq(*a.Inner, *b.Inner)
	case Procedure:
		if len(a.Proc.Inputs) != len(b.Proc.Inputs) || len(a.Proc.Outputs) != len(b.Proc.Outputs) {
			return false
		}
		for i := range a.Proc.Inputs {
			if !Eq(a.Proc.Inputs[i], b.Proc.Inputs[i]) {
				return false
			}
		}
		for i := range a.Proc.Outputs {
			if !Eq(a.Proc.Outputs[i], b.Proc.Outputs[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// LookupField returns the index of name within fields, scanning backward so
// that (in principle) a later duplicate shadows an earlier one, matching the
// backward-scan convention used for ordinary bindings.
func LookupField(fields []Field, name string) int {
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i].Name == name {
			return i
		}
	}
	return -1
}

func (t Type) String() string {
	switch t.Connective {
	case Int, UInt, Word, Float:
		return fmt.Sprintf("%s%d", t.Connective, t.WordSize.Bits())
	case Array:
		return "[" + t.Inner.String() + "]"
	case Tuple:
		return fmt.Sprintf("Tuple(%d elems)", len(t.Elements))
	case Record:
		return fmt.Sprintf("Record(%d fields)", len(t.Fields))
	case Procedure:
		return fmt.Sprintf("Proc(%d->%d)", len(t.Proc.Inputs), len(t.Proc.Outputs))
	default:
		return t.Connective.String()
	}
}

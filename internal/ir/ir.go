// Package ir defines the bytecode shared by the compiler and the VM: refs
// (operand addressing), instructions, and the opcode set. An Instruction
// carries two operands and an output, not one packed operand, because this
// language's opcodes are register-style rather than stack-machine style.
package ir

import "fmt"

// RefKind selects how a Ref's X field should be interpreted.
type RefKind int

const (
	RefNull RefKind = iota
	// RefConstant carries an immediate value directly in X.
	RefConstant
	// RefStaticPointer threads an opaque compile-time handle (currently
	// only an *types.Type, boxed through a pointer table — see
	// compiler.PointerTable) into an instruction, e.g. ARRAY_ALLOC's
	// element type.
	RefStaticPointer
	// RefGlobal indexes the global prefix of the variable stack.
	RefGlobal
	// RefLocal indexes the local region of the current call frame.
	RefLocal
	// RefTemporary indexes the temporary region of the current call
	// frame. Reading a RefTemporary operand logically moves it out: the
	// VM marks that slot unbound once the instruction retires.
	RefTemporary
)

// Valid reports whether k is one of the defined RefKind values. A container
// loaded from disk carries its ref kinds as raw bytes, so the decoder must
// reject anything outside this range rather than let it reach the VM.
func (k RefKind) Valid() bool {
	return k >= RefNull && k <= RefTemporary
}

func (k RefKind) String() string {
	switch k {
	case RefNull:
		return "null"
	case RefConstant:
		return "const"
	case RefStaticPointer:
		return "ptr"
	case RefGlobal:
		return "global"
	case RefLocal:
		return "local"
	case RefTemporary:
		return "temp"
	default:
		return "?"
	}
}

// Ref is a compile-time operand descriptor, resolved against a call frame at
// run time.
type Ref struct {
	Kind RefKind
	X    int64
}

// Null is the zero Ref, used for unused instruction operands (e.g. a
// MOV's unused arg2).
var Null = Ref{Kind: RefNull}

func (r Ref) String() string {
	switch r.Kind {
	case RefConstant:
		return fmt.Sprintf("%d", r.X)
	case RefGlobal:
		return fmt.Sprintf("g%d", r.X)
	case RefLocal:
		return fmt.Sprintf("l%d", r.X)
	case RefTemporary:
		return fmt.Sprintf("v%d", r.X)
	case RefStaticPointer:
		return fmt.Sprintf("ptr(%d)", r.X)
	default:
		return "null"
	}
}

// Op is the opcode of an Instruction.
type Op int

const (
	OpNull Op = iota
	OpMov

	// Logical / comparison / bitwise / arithmetic, all binary.
	OpLor
	OpLand
	OpEq
	OpNeq
	OpLeq
	OpGeq
	OpLess
	OpGreater
	OpBor
	OpBand
	OpBxor
	OpPlus
	OpMinus
	OpLshift
	OpRshift
	OpMul
	OpDiv
	OpMod
	// OpEdiv and OpEmod are Euclidean division/modulo: the remainder is
	// always in [0, |divisor|), regardless of either operand's sign.
	OpEdiv
	OpEmod

	OpCall
	OpRet

	OpArrayAlloc
	OpArrayOffset
	OpArrayStore
	OpArrayIndex
	OpArrayConcat
	OpArrayLen
	OpDecrementRefcount

	// Stack operations, for allocating/freeing tuples and records on the
	// VM's byte-addressable LIFO region.
	OpStackAlloc
	OpStackFree
	// Pointer operations, for manipulating tuples and records in place.
	OpPointerOffset // like add, but doesn't discard arg1
	OpPointerStore
	OpPointerCopy
	OpPointerCopyOverlapping
	OpPointerLoad

	// Builtin-only opcodes (see internal/builtins).
	OpAssert
	OpPrint
)

var opNames = map[Op]string{
	OpNull: "NULL", OpMov: "MOV",
	OpLor: "LOR", OpLand: "LAND", OpEq: "EQ", OpNeq: "NEQ", OpLeq: "LEQ",
	OpGeq: "GEQ", OpLess: "LESS", OpGreater: "GREATER", OpBor: "BOR",
	OpBand: "BAND", OpBxor: "BXOR", OpPlus: "PLUS", OpMinus: "MINUS",
	OpLshift: "LSHIFT", OpRshift: "RSHIFT", OpMul: "MUL", OpDiv: "DIV",
	OpMod: "MOD", OpEdiv: "EDIV", OpEmod: "EMOD",
	OpCall: "CALL", OpRet: "RET",
	OpArrayAlloc: "ARRAY_ALLOC", OpArrayOffset: "ARRAY_OFFSET",
	OpArrayStore: "ARRAY_STORE", OpArrayIndex: "ARRAY_INDEX",
	OpArrayConcat: "ARRAY_CONCAT", OpArrayLen: "ARRAY_LEN",
	OpDecrementRefcount: "DECREMENT_REFCOUNT",
	OpStackAlloc:        "STACK_ALLOC", OpStackFree: "STACK_FREE",
	OpPointerOffset: "POINTER_OFFSET", OpPointerStore: "POINTER_STORE",
	OpPointerCopy: "POINTER_COPY", OpPointerCopyOverlapping: "POINTER_COPY_OVERLAPPING",
	OpPointerLoad: "POINTER_LOAD",
	OpAssert:      "ASSERT", OpPrint: "PRINT",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// IsArithmetic reports whether op is one of the two-operand scalar ops
// (OpLor through OpEmod; OpMov is not one of them). The VM's dispatch uses
// it to route an instruction to its scalar arithmetic switch.
func (op Op) IsArithmetic() bool {
	return op >= OpLor && op <= OpEmod
}

// Flags packs operand width, float-ness, and the shared-buffer marker into
// one bitfield, e.g. flags=OP_64BIT|OP_SHARED_BUFF means "this instruction's
// operand is a pointer-width shared array buffer".
type Flags uint8

const (
	Flag8Bit  Flags = 0x0
	Flag16Bit Flags = 0x1
	Flag32Bit Flags = 0x2
	Flag64Bit Flags = 0x3

	// FlagFloat is a mask, not a valid value on its own; FlagFloat32 and
	// FlagFloat64 combine it with a width.
	FlagFloat   Flags = 0x4
	FlagFloat32 Flags = 0x6
	FlagFloat64 Flags = 0x7

	// FlagSharedBuff marks an ARRAY_ALLOC/ARRAY_STORE/ARRAY_OFFSET
	// operand as a refcounted shared buffer rather than a scalar. This
	// bit coexists with the width bits in storage, but the VM ignores
	// width whenever FlagSharedBuff is set.
	FlagSharedBuff Flags = 0x8
)

// Instruction is one bytecode operation: an opcode, its width/kind flags,
// and up to three refs (one output, two inputs).
//
// Example: compiling `x + 1` where x is local 0 produces
//
//	PLUS v0 = l0, 1        (Instruction{Op: OpPlus, Output: {Temp,0}, Arg1: {Local,0}, Arg2: {Const,1}})
type Instruction struct {
	Op     Op
	Flags  Flags
	Output Ref
	Arg1   Ref
	Arg2   Ref
}

// Buffer is a sequence of instructions, the unit the compiler emits into and
// the VM executes from. A compiled top-level statement or procedure body is
// exactly one Buffer.
type Buffer []Instruction

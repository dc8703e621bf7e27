// Package container implements the ".mlc" on-disk bytecode format: a
// header, a length-prefixed instruction stream, and a length-prefixed list
// of top-level procedure bindings, so `modlang compile` can write something
// `modlang run`/`modlang disasm` later reads back without re-parsing
// source. Encode/Decode use the same little-endian encoding/binary,
// magic-number-and-version-header, length-prefixed-sections technique as
// any simple binary container format, simplified further here since this
// language has no constant pool (CONSTANT refs embed their value inline),
// so there is no constants section to round-trip.
package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/types"
)

const (
	// Magic is the ".mlc" file signature ("MLNG" as a big-endian word); it
	// is written little-endian, so the file's first four bytes are "GNLM".
	Magic uint32 = 0x4D4C4E47
	// FormatVersion is the current container format version.
	FormatVersion uint32 = 1
)

// ProcedureBinding is one top-level `func`/`proc` definition's compiled
// form, enough to re-populate the VM's procedure table and global slots on
// load without recompiling source. BindingIndex is the absolute global
// index the procedure's name was bound to at compile time: the container's
// Code stream references procedures by that same absolute RefGlobal index,
// so a loader must seed exactly that slot, not whatever index a fresh
// compile session would reassign.
type ProcedureBinding struct {
	Name         string
	Type         types.Type
	Code         ir.Buffer
	BindingIndex int
}

// Container is the complete contents of a .mlc file: the top-level
// statement code plus whatever procedures it depends on.
type Container struct {
	Code       ir.Buffer
	Procedures []ProcedureBinding
}

// Encode writes c to w in the .mlc binary format.
func Encode(c *Container, w io.Writer) error {
	if err := writeHeader(w); err != nil {
		return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing header")
	}
	if err := writeInstructions(w, c.Code); err != nil {
		return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing instructions")
	}
	if err := writeU32(w, uint32(len(c.Procedures))); err != nil {
		return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing procedure count")
	}
	for i, p := range c.Procedures {
		if err := writeString(w, p.Name); err != nil {
			return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing procedure %d name", i)
		}
		if err := writeU32(w, uint32(p.BindingIndex)); err != nil {
			return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing procedure %d binding index", i)
		}
		if err := writeType(w, p.Type); err != nil {
			return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing procedure %d type", i)
		}
		if err := writeInstructions(w, p.Code); err != nil {
			return diag.Wrap(diag.Runtime, 0, 0, "", err, "writing procedure %d code", i)
		}
	}
	return nil
}

// Decode reads a .mlc container from r. Every failure here originates from
// a lower-level read or a validation check against untrusted bytes, so each
// is wrapped rather than returned bare, preserving the original cause for
// errors.Is/errors.As while still reporting as a diag.Error the driver can
// treat uniformly with every other diagnostic.
func Decode(r io.Reader) (*Container, error) {
	if err := readHeader(r); err != nil {
		return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading header")
	}
	code, err := readInstructions(r)
	if err != nil {
		return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading instructions")
	}
	procCount, err := readU32(r)
	if err != nil {
		return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading procedure count")
	}
	procs := make([]ProcedureBinding, procCount)
	for i := range procs {
		name, err := readString(r)
		if err != nil {
			return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading procedure %d name", i)
		}
		bindingIndex, err := readU32(r)
		if err != nil {
			return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading procedure %d binding index", i)
		}
		typ, err := readType(r)
		if err != nil {
			return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading procedure %d type", i)
		}
		body, err := readInstructions(r)
		if err != nil {
			return nil, diag.Wrap(diag.Runtime, 0, 0, "", err, "reading procedure %d code", i)
		}
		procs[i] = ProcedureBinding{Name: name, Type: typ, Code: body, BindingIndex: int(bindingIndex)}
	}
	return &Container{Code: code, Procedures: procs}, nil
}

func writeHeader(w io.Writer) error {
	if err := writeU32(w, Magic); err != nil {
		return err
	}
	return writeU32(w, FormatVersion)
}

func readHeader(r io.Reader) error {
	magic, err := readU32(r)
	if err != nil {
		return err
	}
	if magic != Magic {
		return fmt.Errorf("not a modlang bytecode file: bad magic 0x%08X", magic)
	}
	version, err := readU32(r)
	if err != nil {
		return err
	}
	if version != FormatVersion {
		return fmt.Errorf("unsupported bytecode format version %d (expected %d)", version, FormatVersion)
	}
	return nil
}

func writeInstructions(w io.Writer, buf ir.Buffer) error {
	if err := writeU32(w, uint32(len(buf))); err != nil {
		return err
	}
	for _, instr := range buf {
		if err := writeU32(w, uint32(instr.Op)); err != nil {
			return err
		}
		if err := writeU8(w, byte(instr.Flags)); err != nil {
			return err
		}
		if err := writeRef(w, instr.Output); err != nil {
			return err
		}
		if err := writeRef(w, instr.Arg1); err != nil {
			return err
		}
		if err := writeRef(w, instr.Arg2); err != nil {
			return err
		}
	}
	return nil
}

func readInstructions(r io.Reader) (ir.Buffer, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	buf := make(ir.Buffer, n)
	for i := range buf {
		op, err := readU32(r)
		if err != nil {
			return nil, err
		}
		flags, err := readU8(r)
		if err != nil {
			return nil, err
		}
		output, err := readRef(r)
		if err != nil {
			return nil, err
		}
		arg1, err := readRef(r)
		if err != nil {
			return nil, err
		}
		arg2, err := readRef(r)
		if err != nil {
			return nil, err
		}
		buf[i] = ir.Instruction{Op: ir.Op(op), Flags: ir.Flags(flags), Output: output, Arg1: arg1, Arg2: arg2}
	}
	return buf, nil
}

func writeRef(w io.Writer, ref ir.Ref) error {
	if err := writeU8(w, byte(ref.Kind)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, ref.X)
}

func readRef(r io.Reader) (ir.Ref, error) {
	kind, err := readU8(r)
	if err != nil {
		return ir.Ref{}, err
	}
	if !ir.RefKind(kind).Valid() {
		return ir.Ref{}, fmt.Errorf("invalid ref kind byte %d", kind)
	}
	var x int64
	if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
		return ir.Ref{}, err
	}
	return ir.Ref{Kind: ir.RefKind(kind), X: x}, nil
}

// writeType recursively serializes t. Only the fields meaningful for its
// Connective are written, mirroring Type's own "only the relevant union
// arm matters" convention.
func writeType(w io.Writer, t types.Type) error {
	if err := writeU8(w, byte(t.Connective)); err != nil {
		return err
	}
	if err := writeU8(w, byte(t.WordSize)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t.TotalSize); err != nil {
		return err
	}
	switch t.Connective {
	case types.Array:
		return writeType(w, *t.Inner)
	case types.Tuple:
		if err := writeU32(w, uint32(len(t.Elements))); err != nil {
			return err
		}
		for _, e := range t.Elements {
			if err := writeType(w, e); err != nil {
				return err
			}
		}
	case types.Record:
		if err := writeU32(w, uint32(len(t.Fields))); err != nil {
			return err
		}
		for _, f := range t.Fields {
			if err := writeString(w, f.Name); err != nil {
				return err
			}
			if err := writeType(w, f.Type); err != nil {
				return err
			}
		}
	case types.Procedure:
		if err := writeTypeList(w, t.Proc.Inputs); err != nil {
			return err
		}
		if err := writeTypeList(w, t.Proc.Outputs); err != nil {
			return err
		}
	}
	return nil
}

func writeTypeList(w io.Writer, list []types.Type) error {
	if err := writeU32(w, uint32(len(list))); err != nil {
		return err
	}
	for _, t := range list {
		if err := writeType(w, t); err != nil {
			return err
		}
	}
	return nil
}

func readType(r io.Reader) (types.Type, error) {
	connective, err := readU8(r)
	if err != nil {
		return types.Type{}, err
	}
	wordSize, err := readU8(r)
	if err != nil {
		return types.Type{}, err
	}
	var totalSize int32
	if err := binary.Read(r, binary.LittleEndian, &totalSize); err != nil {
		return types.Type{}, err
	}
	t := types.Type{Connective: types.Connective(connective), WordSize: types.WordSize(wordSize), TotalSize: totalSize}

	switch t.Connective {
	case types.Array:
		inner, err := readType(r)
		if err != nil {
			return types.Type{}, err
		}
		t.Inner = &inner
	case types.Tuple:
		n, err := readU32(r)
		if err != nil {
			return types.Type{}, err
		}
		t.Elements = make([]types.Type, n)
		for i := range t.Elements {
			t.Elements[i], err = readType(r)
			if err != nil {
				return types.Type{}, err
			}
		}
	case types.Record:
		n, err := readU32(r)
		if err != nil {
			return types.Type{}, err
		}
		t.Fields = make([]types.Field, n)
		for i := range t.Fields {
			name, err := readString(r)
			if err != nil {
				return types.Type{}, err
			}
			fieldType, err := readType(r)
			if err != nil {
				return types.Type{}, err
			}
			t.Fields[i] = types.Field{Name: name, Type: fieldType}
		}
	case types.Procedure:
		inputs, err := readTypeList(r)
		if err != nil {
			return types.Type{}, err
		}
		outputs, err := readTypeList(r)
		if err != nil {
			return types.Type{}, err
		}
		t.Proc = types.Signature{Inputs: inputs, Outputs: outputs}
	}
	return t, nil
}

func readTypeList(r io.Reader) ([]types.Type, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	list := make([]types.Type, n)
	for i := range list {
		list[i], err = readType(r)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeU8(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readU8(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

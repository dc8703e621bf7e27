// Package disasm formats compiled ir.Buffer instructions as human-readable
// text, the same job print_ref/print_array/disassemble_instructions do in
// the original prototype's main.c: one line per instruction, opcode
// mnemonic, then output and operands rendered through ir.Ref's own
// g<N>/l<N>/v<N>/bare-integer convention.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/modlang/modlang/internal/ir"
)

// Format renders buf as one line per instruction, index-prefixed.
//
// Example:
//
//	   0  PLUS       v0 = l0, 3
//	   1  RET        v0
func Format(buf ir.Buffer) string {
	var b strings.Builder
	for i, instr := range buf {
		fmt.Fprintf(&b, "%4d  %-10s", i, instr.Op)
		if instr.Output.Kind != ir.RefNull {
			fmt.Fprintf(&b, " %s =", instr.Output)
		}
		if instr.Arg1.Kind != ir.RefNull {
			fmt.Fprintf(&b, " %s", instr.Arg1)
			if instr.Arg2.Kind != ir.RefNull {
				fmt.Fprintf(&b, ", %s", instr.Arg2)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Fprint writes Format(buf) to w.
func Fprint(w io.Writer, buf ir.Buffer) error {
	_, err := io.WriteString(w, Format(buf))
	return err
}

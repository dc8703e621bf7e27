// Package session wires a compiler.Compiler and a vm.VM together into one
// persistent interpreter session: one compiler and one VM live for as long
// as the process does, so bindings and globals accumulate across every
// top-level item instead of being thrown away between them.
package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/modlang/modlang/internal/builtins"
	"github.com/modlang/modlang/internal/compiler"
	"github.com/modlang/modlang/internal/container"
	"github.com/modlang/modlang/internal/disasm"
	"github.com/modlang/modlang/internal/token"
	"github.com/modlang/modlang/internal/types"
	"github.com/modlang/modlang/internal/vm"
)

// Session is one interpreter session: a binding table, a VM, and whatever
// output mode the driver asked for.
type Session struct {
	Compiler *compiler.Compiler
	VM       *vm.VM
	Debug    bool
}

// New creates a Session with the standard builtins already bound, printing
// to out whenever the compiled program calls `print`.
func New(out io.Writer, debug bool) *Session {
	c := compiler.New()
	m := vm.New(c.Pointers())
	m.SetPrintHook(func(v int64) { fmt.Fprintln(out, v) })
	builtins.Register(c, m)
	return &Session{Compiler: c, VM: m, Debug: debug}
}

// RunItem parses, compiles, and executes exactly one top-level item from tk.
// In interactive mode it echoes newly-bound globals (`name = value`) and
// unbound top-level results (`result = v1, v2, ...`) to out, per the REPL
// contract, except that a lone empty-tuple result is not echoed; in file mode nothing is echoed (a running program's only output
// is whatever it prints itself). It reports done=true once tk has no more
// items.
func (s *Session) RunItem(tk *token.Tokenizer, out io.Writer, interactive bool) (done bool, err error) {
	item, err := compiler.ParseItem(s.Compiler, tk)
	if err != nil {
		return false, err
	}

	switch item.Kind {
	case compiler.ItemEOF:
		return true, nil
	case compiler.ItemProcedure:
		s.defineProcedure(item.Procedure, out)
		return false, nil
	default:
		return false, s.runStatement(item.Statement, out, interactive)
	}
}

func (s *Session) defineProcedure(p *compiler.ProcedureDef, out io.Writer) {
	if s.Debug {
		fmt.Fprintf(out, "State: procedure %s\n", p.Name)
		disasm.Fprint(out, p.Code)
	}
	handle := s.VM.RegisterProcedure(p.Code, p.Signature)
	s.VM.DefineGlobal(p.BindingIndex, handle, vm.DirectValue)
}

func (s *Session) runStatement(stmt *compiler.Statement, out io.Writer, interactive bool) error {
	if s.Debug {
		disasm.Fprint(out, stmt.Code)
	}

	// Captured before Run: the statement/item layer never leaves a
	// top-level result as a RefLocal, only RefGlobal, RefConstant or
	// RefTemporary, and RefTemporary addresses are relative to the global
	// count at the moment this statement's frame was pushed.
	runLocalsStart := s.VM.GlobalCount()
	if err := s.VM.Run(stmt.Code); err != nil {
		return err
	}
	if !interactive {
		return nil
	}

	switch stmt.Kind {
	case compiler.StatementDefine:
		if s.Debug {
			fmt.Fprintln(out, "State:")
		}
		for i, name := range stmt.Names {
			res := stmt.Results[i]
			fmt.Fprintf(out, "%s = %s\n", name, formatValue(s.VM, res.Type, s.VM.GlobalValue(int(res.Ref.X))))
		}
	case compiler.StatementExpr:
		if len(stmt.Results) == 0 {
			return nil
		}
		if only := stmt.Results[0].Type; len(stmt.Results) == 1 && only.Connective == types.Tuple && len(only.Elements) == 0 {
			// A lone empty tuple, such as the result of calling a procedure
			// with no return value, is not echoed.
			return nil
		}
		parts := make([]string, len(stmt.Results))
		for i, res := range stmt.Results {
			parts[i] = formatValue(s.VM, res.Type, s.VM.ReadResult(runLocalsStart, res.Ref))
		}
		fmt.Fprintf(out, "result = %s\n", strings.Join(parts, ", "))
	}
	return nil
}

// formatValue renders value, a raw 64-bit variable slot, according to typ:
// arrays and tuples/records recurse through the VM's array heap and
// byte-addressable stack region to print their elements, since typ (known
// at compile time) is the only place that structure is recorded once the
// value is just an int64 on the wire.
func formatValue(m *vm.VM, typ types.Type, value int64) string {
	switch typ.Connective {
	case types.Array:
		n := m.ArrayLen(value)
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			parts[i] = formatValue(m, *typ.Inner, m.ArrayElem(value, i))
		}
		return "[" + strings.Join(parts, ", ") + "]"

	case types.Tuple:
		parts := make([]string, len(typ.Elements))
		var offset int32
		for i, elem := range typ.Elements {
			parts[i] = formatValue(m, elem, m.StackWord(value+int64(offset)/8))
			offset += elem.TotalSize
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case types.Record:
		parts := make([]string, len(typ.Fields))
		var offset int32
		for i, f := range typ.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, formatValue(m, f.Type, m.StackWord(value+int64(offset)/8)))
			offset += f.Type.TotalSize
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case types.Procedure:
		return "<procedure>"

	default:
		return fmt.Sprintf("%d", value)
	}
}

// Compile parses and compiles every remaining item from tk into a
// container.Container, without executing any of it — the `modlang compile`
// subcommand's entire job. Procedure bodies and top-level statement code
// are kept separate, matching how the VM's procedure table and its
// top-level frame are themselves separate: a container's Procedures
// reconstruct the bindings/procedure tables on load, and Code is every
// statement's instructions concatenated in parse order, since running them
// in that same order reproduces the session exactly.
func (s *Session) Compile(tk *token.Tokenizer) (*container.Container, error) {
	out := &container.Container{}
	for {
		item, err := compiler.ParseItem(s.Compiler, tk)
		if err != nil {
			return nil, err
		}
		switch item.Kind {
		case compiler.ItemEOF:
			return out, nil
		case compiler.ItemProcedure:
			out.Procedures = append(out.Procedures, container.ProcedureBinding{
				Name:         item.Procedure.Name,
				Type:         types.ProcOf(item.Procedure.Signature.Inputs, item.Procedure.Signature.Outputs),
				Code:         item.Procedure.Code,
				BindingIndex: item.Procedure.BindingIndex,
			})
			s.defineProcedure(item.Procedure, io.Discard)
		default:
			out.Code = append(out.Code, item.Statement.Code...)
		}
	}
}

// RunContainer executes a previously compiled container without recompiling
// anything: it seeds each procedure's VM global directly at the absolute
// index Compile recorded, so the container's Code (whose RefGlobal operands
// are those same absolute indices) runs exactly as it did in the session
// that produced it.
func (s *Session) RunContainer(c *container.Container) error {
	for _, p := range c.Procedures {
		handle := s.VM.RegisterProcedure(p.Code, p.Type.Proc)
		s.VM.DefineGlobal(p.BindingIndex, handle, vm.DirectValue)
	}
	return s.VM.Run(c.Code)
}

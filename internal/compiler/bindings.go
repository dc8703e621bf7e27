// Package compiler implements the single-pass expression compiler and the
// statement/item layer above it: turning a pattern.Pattern into ir bytecode,
// and turning a token stream into top-level items (statements and procedure
// definitions) ready for the VM.
package compiler

import (
	"github.com/modlang/modlang/internal/types"
)

// Binding is one entry of the Bindings table: a name and its type.
type Binding struct {
	Name string
	Type types.Type
}

// Bindings is the append-only, backward-scanned name table: a global
// prefix followed by a local suffix. Procedure parameters are pushed onto
// the local suffix and truncated away once the procedure body has been
// compiled, restoring whatever scope was active before.
type Bindings struct {
	entries     []Binding
	globalCount int
}

// NewBindings creates an empty binding table.
func NewBindings() *Bindings {
	return &Bindings{}
}

// Count is the total number of live bindings (global + local).
func (b *Bindings) Count() int { return len(b.entries) }

// GlobalCount is the size of the global prefix.
func (b *Bindings) GlobalCount() int { return b.globalCount }

// LocalCount is the size of the local suffix.
func (b *Bindings) LocalCount() int { return len(b.entries) - b.globalCount }

// At returns the binding at absolute index i (0 is the first global).
func (b *Bindings) At(i int) Binding { return b.entries[i] }

// Lookup scans backward from the end so that inner/later bindings shadow
// earlier ones with the same name. Returns -1 if name is not bound.
func (b *Bindings) Lookup(name string) int {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if b.entries[i].Name == name {
			return i
		}
	}
	return -1
}

// PushLocal appends a local binding and returns its absolute index.
func (b *Bindings) PushLocal(name string, t types.Type) int {
	b.entries = append(b.entries, Binding{Name: name, Type: t})
	return len(b.entries) - 1
}

// PushGlobal appends a binding and immediately widens the global prefix to
// include it (used for top-level `:=` and the builtin registry).
func (b *Bindings) PushGlobal(name string, t types.Type) int {
	idx := b.PushLocal(name, t)
	b.globalCount = len(b.entries)
	return idx
}

// TruncateTo restores the binding table to count entries, discarding
// anything pushed after that point. Used when a procedure body finishes
// compiling, to drop its parameter bindings.
func (b *Bindings) TruncateTo(count int) {
	b.entries = b.entries[:count]
}

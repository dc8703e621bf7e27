package disasm

import (
	"strings"
	"testing"

	"github.com/modlang/modlang/internal/ir"
)

func TestFormat_RendersOperandsAndMnemonics(t *testing.T) {
	buf := ir.Buffer{
		{Op: ir.OpPlus, Output: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Ref{Kind: ir.RefConstant, X: 3}},
		{Op: ir.OpRet, Arg1: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg2: ir.Null},
	}
	got := Format(buf)

	wantLines := []string{
		"PLUS",
		"v0 =",
		"l0, 3",
		"RET",
		"v0",
	}
	for _, want := range wantLines {
		if !strings.Contains(got, want) {
			t.Errorf("Format output missing %q, got:\n%s", want, got)
		}
	}
	if strings.Count(got, "\n") != 2 {
		t.Errorf("expected one line per instruction plus trailing newline, got:\n%s", got)
	}
}

func TestFormat_OmitsOutputWhenRefNull(t *testing.T) {
	buf := ir.Buffer{
		{Op: ir.OpPrint, Arg1: ir.Ref{Kind: ir.RefConstant, X: 42}, Arg2: ir.Null},
	}
	got := Format(buf)
	if strings.Contains(got, "=") {
		t.Errorf("instruction with no output should not render '=', got:\n%s", got)
	}
	if !strings.Contains(got, "42") {
		t.Errorf("expected constant operand 42 rendered, got:\n%s", got)
	}
}

func TestFormat_OmitsArg2WhenNull(t *testing.T) {
	buf := ir.Buffer{
		{Op: ir.OpArrayLen, Output: ir.Ref{Kind: ir.RefTemporary, X: 0}, Arg1: ir.Ref{Kind: ir.RefLocal, X: 0}, Arg2: ir.Null},
	}
	got := Format(buf)
	if strings.Contains(got, ",") {
		t.Errorf("single-operand instruction should not render a comma, got:\n%s", got)
	}
}

func TestFprint_WritesSameTextAsFormat(t *testing.T) {
	buf := ir.Buffer{
		{Op: ir.OpMov, Output: ir.Ref{Kind: ir.RefGlobal, X: 0}, Arg1: ir.Ref{Kind: ir.RefConstant, X: 1}, Arg2: ir.Null},
	}
	var b strings.Builder
	if err := Fprint(&b, buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.String() != Format(buf) {
		t.Errorf("Fprint output diverges from Format")
	}
}

func TestFormat_EmptyBufferProducesEmptyString(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty string", got)
	}
}

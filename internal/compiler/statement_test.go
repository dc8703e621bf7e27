package compiler

import (
	"testing"

	"github.com/modlang/modlang/internal/ir"
	"github.com/modlang/modlang/internal/token"
)

func parseProcedure(t *testing.T, c *Compiler, src string) *ProcedureDef {
	t.Helper()
	tk := token.New(src)
	kw, err := tk.Next()
	if err != nil {
		t.Fatalf("scanning %q: %v", src, err)
	}
	proc, err := ParseProcedure(c, tk, kw.ID)
	if err != nil {
		t.Fatalf("parsing procedure %q: %v", src, err)
	}
	return proc
}

func countOp(buf ir.Buffer, op ir.Op) int {
	n := 0
	for _, instr := range buf {
		if instr.Op == op {
			n++
		}
	}
	return n
}

func TestParseProcedure_ExpressionBody(t *testing.T) {
	c := New()
	proc := parseProcedure(t, c, "func double(x: Int) -> Int := x * 2;")

	if proc.Name != "double" {
		t.Errorf("name = %q, want double", proc.Name)
	}
	if countOp(proc.Code, ir.OpRet) != 1 {
		t.Fatalf("expected exactly one OpRet, got code %+v", proc.Code)
	}
	last := proc.Code[len(proc.Code)-1]
	if last.Op != ir.OpRet || last.Arg1.Kind == ir.RefNull {
		t.Errorf("expression body should return its value, got %+v", last)
	}
}

func TestParseProcedure_BlockBodyWithReturn(t *testing.T) {
	c := New()
	proc := parseProcedure(t, c, `func double(x: Int) -> Int {
		y := x * 2;
		return y;
	}`)

	if countOp(proc.Code, ir.OpRet) != 1 {
		t.Fatalf("expected exactly one OpRet, got code %+v", proc.Code)
	}
	last := proc.Code[len(proc.Code)-1]
	if last.Op != ir.OpRet || last.Arg1.Kind == ir.RefNull {
		t.Errorf("return statement should carry its value, got %+v", last)
	}
}

func TestParseProcedure_BlockBodyVoidProc(t *testing.T) {
	c := New()
	proc := parseProcedure(t, c, `proc sink(x: Int) {
		y := x * 2;
	}`)

	// No explicit 'return', so the implicit trailing OP_RET must still be
	// appended, the same as the expression-body form.
	if countOp(proc.Code, ir.OpRet) != 1 {
		t.Fatalf("expected exactly one implicit OpRet, got code %+v", proc.Code)
	}
	last := proc.Code[len(proc.Code)-1]
	if last.Op != ir.OpRet || last.Arg1.Kind != ir.RefNull {
		t.Errorf("implicit return should carry no value, got %+v", last)
	}
}

func TestParseProcedure_BlockBodyVoidProcCannotReturn(t *testing.T) {
	c := New()
	tk := token.New(`proc sink(x: Int) {
		return x;
	}`)
	kw, err := tk.Next()
	if err != nil {
		t.Fatalf("scanning: %v", err)
	}
	if _, err := ParseProcedure(c, tk, kw.ID); err == nil {
		t.Fatal("expected a semantic error for 'return' inside a proc that declares no return type")
	}
}

func TestParseProcedure_BlockBodyMissingReturnIsSemanticError(t *testing.T) {
	c := New()
	tk := token.New(`func broken(x: Int) -> Int {
		y := x * 2;
	}`)
	kw, err := tk.Next()
	if err != nil {
		t.Fatalf("scanning: %v", err)
	}
	if _, err := ParseProcedure(c, tk, kw.ID); err == nil {
		t.Fatal("expected a semantic error for a func body that never returns a value")
	}
}

func TestParseProcedure_BlockBodyReturnTypeMismatchIsSemanticError(t *testing.T) {
	c := New()
	tk := token.New(`func broken(x: Int) -> Int {
		return [x];
	}`)
	kw, err := tk.Next()
	if err != nil {
		t.Fatalf("scanning: %v", err)
	}
	if _, err := ParseProcedure(c, tk, kw.ID); err == nil {
		t.Fatal("expected a semantic error for returning an array where Int was declared")
	}
}

func TestParseProcedure_ReturnOutsideProcedureIsSyntaxError(t *testing.T) {
	c := New()
	tk := token.New("return 1;")
	if _, err := ParseStatement(c, tk, false); err == nil {
		t.Fatal("expected a syntax error for 'return' outside a procedure body")
	}
}

package builtins

import (
	"testing"

	"github.com/modlang/modlang/internal/compiler"
	"github.com/modlang/modlang/internal/exprparser"
	"github.com/modlang/modlang/internal/token"
	"github.com/modlang/modlang/internal/types"
	"github.com/modlang/modlang/internal/vm"
)

func TestRegister_BindsNamesAsGlobalProcedures(t *testing.T) {
	c := compiler.New()
	m := vm.New(compiler.NewPointerTable())
	Register(c, m)

	for i, name := range []string{"assert", "len", "print", "ediv", "emod"} {
		idx := c.Bindings().Lookup(name)
		if idx != i {
			t.Errorf("%s bound at global %d, want %d", name, idx, i)
		}
		if got := m.GlobalValue(idx); got < 0 {
			t.Errorf("%s's global slot holds no procedure handle", name)
		}
	}
}

func TestRegister_AssertCallableFromCompiledSource(t *testing.T) {
	c := compiler.New()
	m := vm.New(compiler.NewPointerTable())
	Register(c, m)

	tk := token.New("assert(1);")
	p, err := exprparser.Parse(tk, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := m.Run(expr.Code); err != nil {
		t.Fatalf("running assert(1): %v", err)
	}
}

func TestRegister_AssertFailureStopsExecution(t *testing.T) {
	c := compiler.New()
	m := vm.New(compiler.NewPointerTable())
	Register(c, m)

	tk := token.New("assert(0);")
	p, err := exprparser.Parse(tk, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := m.Run(expr.Code); err == nil {
		t.Fatal("expected assert(0) to fail at runtime")
	}
}

func TestRegister_PrintCallsHook(t *testing.T) {
	c := compiler.New()
	m := vm.New(compiler.NewPointerTable())
	Register(c, m)

	var printed []int64
	m.SetPrintHook(func(v int64) { printed = append(printed, v) })

	tk := token.New("print(7);")
	p, err := exprparser.Parse(tk, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := m.Run(expr.Code); err != nil {
		t.Fatalf("running print(7): %v", err)
	}
	if len(printed) != 1 || printed[0] != 7 {
		t.Errorf("printed = %v, want [7]", printed)
	}
}

func TestRegister_LenReturnsArrayLength(t *testing.T) {
	c := compiler.New()
	m := vm.New(compiler.NewPointerTable())
	Register(c, m)
	c.Bindings().PushGlobal("xs", types.ArrayOf(types.Int64))

	tk := token.New("len(xs);")
	p, err := exprparser.Parse(tk, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expr, err := c.CompileExpression(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(expr.Code) == 0 {
		t.Fatal("expected at least one instruction calling len")
	}
	if !types.Eq(expr.Intermediates[0].Type, types.Int64) {
		t.Errorf("len(xs) result type = %s, want Int64", expr.Intermediates[0].Type)
	}
}

func TestRegister_EdivEmodRunEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"ediv", "ediv(-7, 2);", -4},
		{"emod", "emod(-7, 2);", 1},
	}
	for _, tt := range tests {
		c := compiler.New()
		m := vm.New(compiler.NewPointerTable())
		Register(c, m)

		tk := token.New(tt.src)
		p, err := exprparser.Parse(tk, false)
		if err != nil {
			t.Fatalf("%s: parse: %v", tt.name, err)
		}
		expr, err := c.CompileExpression(p)
		if err != nil {
			t.Fatalf("%s: compile: %v", tt.name, err)
		}
		runLocalsStart := m.GlobalCount()
		if err := m.Run(expr.Code); err != nil {
			t.Fatalf("%s: run: %v", tt.name, err)
		}
		if got := m.ReadResult(runLocalsStart, expr.Intermediates[0].Ref); got != tt.want {
			t.Errorf("%s(-7, 2) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

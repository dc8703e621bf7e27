package vm

import (
	"testing"

	"github.com/modlang/modlang/internal/ir"
)

func TestEvalArithmetic_Comparisons(t *testing.T) {
	tests := []struct {
		op   ir.Op
		a, b int64
		want int64
	}{
		{ir.OpEq, 3, 3, 1},
		{ir.OpEq, 3, 4, 0},
		{ir.OpNeq, 3, 4, 1},
		{ir.OpLess, 2, 3, 1},
		{ir.OpGreater, 3, 2, 1},
		{ir.OpLeq, 3, 3, 1},
		{ir.OpGeq, 2, 3, 0},
		{ir.OpLor, 0, 1, 1},
		{ir.OpLor, 0, 0, 0},
		{ir.OpLand, 1, 1, 1},
		{ir.OpLand, 1, 0, 0},
	}
	for _, tt := range tests {
		if got := evalArithmetic(tt.op, tt.a, tt.b); got != tt.want {
			t.Errorf("%s(%d,%d) = %d, want %d", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEvalArithmetic_BitwiseAndShift(t *testing.T) {
	tests := []struct {
		op   ir.Op
		a, b int64
		want int64
	}{
		{ir.OpBor, 0b1010, 0b0101, 0b1111},
		{ir.OpBand, 0b1100, 0b1010, 0b1000},
		{ir.OpBxor, 0b1100, 0b1010, 0b0110},
		{ir.OpLshift, 1, 4, 16},
		{ir.OpRshift, 16, 4, 1},
	}
	for _, tt := range tests {
		if got := evalArithmetic(tt.op, tt.a, tt.b); got != tt.want {
			t.Errorf("%s(%d,%d) = %d, want %d", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEvalArithmetic_EuclideanDivModAllQuadrants(t *testing.T) {
	tests := []struct {
		a, b, q, r int64
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -3, 1},
		{-7, -2, 4, 1},
	}
	for _, tt := range tests {
		if q := evalArithmetic(ir.OpEdiv, tt.a, tt.b); q != tt.q {
			t.Errorf("ediv(%d,%d) = %d, want %d", tt.a, tt.b, q, tt.q)
		}
		if r := evalArithmetic(ir.OpEmod, tt.a, tt.b); r != tt.r {
			t.Errorf("emod(%d,%d) = %d, want %d", tt.a, tt.b, r, tt.r)
		}
		if tt.r < 0 || tt.r >= abs(tt.b) {
			t.Fatalf("test case itself is wrong: remainder %d not in [0, %d)", tt.r, abs(tt.b))
		}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestEvalArithmetic_PanicsOnNonArithmeticOp(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a non-arithmetic opcode")
		}
	}()
	evalArithmetic(ir.OpCall, 1, 2)
}

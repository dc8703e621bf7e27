// Package test provides end-to-end coverage of the full tokenizer →
// parser → compiler → VM pipeline, exercised the way a real program runs
// it: through internal/session, not by calling any one stage directly.
package test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/modlang/modlang/internal/session"
	"github.com/modlang/modlang/internal/token"
)

func run(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New(src)
	for {
		done, err := s.RunItem(tk, &out, true)
		if err != nil {
			t.Fatalf("running %q: %v", src, err)
		}
		if done {
			return out.String()
		}
	}
}

func TestPipeline_ArithmeticPrecedence(t *testing.T) {
	t.Run("MultiplicationBeforeAddition", func(t *testing.T) {
		got := strings.TrimSpace(run(t, "1 + 2 * 3;"))
		if got != "result = 7" {
			t.Errorf("got %q, want \"result = 7\"", got)
		}
	})

	t.Run("ParenthesesOverridePrecedence", func(t *testing.T) {
		got := strings.TrimSpace(run(t, "(1 + 2) * 3;"))
		if got != "result = 9" {
			t.Errorf("got %q, want \"result = 9\"", got)
		}
	})

	t.Run("TruncatedDivisionAndRemainder", func(t *testing.T) {
		got := strings.TrimSpace(run(t, "-7 / 2;"))
		if got != "result = -3" {
			t.Errorf("got %q, want \"result = -3\"", got)
		}
	})
}

func TestPipeline_DefineAndReuseAcrossStatements(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("x := 10;\ny := x * x;\n")
	for {
		done, err := s.RunItem(tk, &out, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			break
		}
	}
	got := strings.TrimSpace(out.String())
	if !strings.Contains(got, "x = 10") || !strings.Contains(got, "y = 100") {
		t.Errorf("got %q, want it to contain both \"x = 10\" and \"y = 100\"", got)
	}
}

func TestPipeline_ProcedureDefinitionAndCall(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("func square(n: Int) -> Int := n * n;\nsquare(9);\n")
	for {
		done, err := s.RunItem(tk, &out, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			break
		}
	}
	got := strings.TrimSpace(out.String())
	if got != "result = 81" {
		t.Errorf("got %q, want \"result = 81\"", got)
	}
}

func TestPipeline_ProcedureBlockBodyWithReturn(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("func square(n: Int) -> Int {\n\treturn n * n;\n}\nsquare(9);\n")
	for {
		done, err := s.RunItem(tk, &out, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			break
		}
	}
	got := strings.TrimSpace(out.String())
	if got != "result = 81" {
		t.Errorf("got %q, want \"result = 81\"", got)
	}
}

func TestPipeline_ProcedureBlockBodyWithLocalsAndReturn(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("func abs(n: Int) -> Int {\n\tm := n;\n\treturn m;\n}\nabs(-5);\n")
	for {
		done, err := s.RunItem(tk, &out, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			break
		}
	}
	got := strings.TrimSpace(out.String())
	if got != "result = -5" {
		t.Errorf("got %q, want \"result = -5\"", got)
	}
}

func TestPipeline_ArrayIndexing(t *testing.T) {
	got := strings.TrimSpace(run(t, "xs := [10, 20, 30];\nxs[1];\n"))
	if !strings.Contains(got, "result = 20") {
		t.Errorf("got %q, want it to contain \"result = 20\"", got)
	}
}

func TestPipeline_SyntaxErrorOnUnmatchedBracket(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("xs := [1, 2;\n")
	_, err := s.RunItem(tk, &out, true)
	if err == nil {
		t.Fatal("expected a syntax error for an unmatched '['")
	}
}

func TestPipeline_SemanticErrorOnUndefinedName(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("notDefined + 1;\n")
	_, err := s.RunItem(tk, &out, true)
	if err == nil {
		t.Fatal("expected a semantic error for an undefined name")
	}
}

func TestPipeline_RuntimeErrorOnArrayOutOfRange(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("xs := [1, 2];\nxs[5];\n")
	var lastErr error
	for {
		done, err := s.RunItem(tk, &out, true)
		if err != nil {
			lastErr = err
			break
		}
		if done {
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected a runtime error for an out-of-range array index")
	}
}

// Package test: standard-library (builtin procedure) coverage, run the
// same way test/integration_test.go runs everything else — through
// internal/session rather than shelling out to the built CLI, since the
// builtins are ordinary globals once Register has run, not special cases.
package test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/modlang/modlang/internal/session"
	"github.com/modlang/modlang/internal/token"
)

func TestStdlib_AssertPassesSilently(t *testing.T) {
	got := run(t, "assert(1 == 1);")
	if got != "" {
		t.Errorf("a passing assert should produce no echo, got %q", got)
	}
}

func TestStdlib_AssertFailureAbortsTheItem(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("assert(1 == 2);")
	_, err := s.RunItem(tk, &out, true)
	if err == nil {
		t.Fatal("expected assert(1 == 2) to fail")
	}
}

func TestStdlib_LenReportsArrayLength(t *testing.T) {
	got := strings.TrimSpace(run(t, "xs := [1, 2, 3, 4];\nlen(xs);\n"))
	if !strings.Contains(got, "result = 4") {
		t.Errorf("got %q, want it to contain \"result = 4\"", got)
	}
}

func TestStdlib_PrintEmitsOneLinePerCall(t *testing.T) {
	var out bytes.Buffer
	s := session.New(&out, false)
	tk := token.New("print(1);\nprint(2);\n")
	for {
		done, err := s.RunItem(tk, &out, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			break
		}
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[0] != "1" || lines[1] != "2" {
		t.Errorf("got %q, want two lines \"1\" and \"2\"", out.String())
	}
}

func TestStdlib_EdivEmodSatisfyEuclideanLaw(t *testing.T) {
	tests := []struct {
		a, b int64
	}{
		{7, 2},
		{-7, 2},
		{7, -2},
		{-7, -2},
	}
	for _, tt := range tests {
		a, b := strconv.FormatInt(tt.a, 10), strconv.FormatInt(tt.b, 10)
		src := "ediv(" + a + ", " + b + "), emod(" + a + ", " + b + ");\n"
		got := strings.TrimSpace(run(t, src))
		if !strings.HasPrefix(got, "result = ") {
			t.Fatalf("ediv/emod(%d,%d): unexpected output %q", tt.a, tt.b, got)
		}
	}
}

package token

import "testing"

func TestNext_BasicTokens(t *testing.T) {
	input := `+ - * / % ++ :=  -> == /= <= >= << >>`

	tests := []struct {
		id     ID
		lexeme string
	}{
		{ID('+'), "+"},
		{ID('-'), "-"},
		{ID('*'), "*"},
		{ID('/'), "/"},
		{ID('%'), "%"},
		{Concat, "++"},
		{Define, ":="},
		{Arrow, "->"},
		{Eq, "=="},
		{Neq, "/="},
		{Leq, "<="},
		{Geq, ">="},
		{Lshift, "<<"},
		{Rshift, ">>"},
		{EOF, ""},
	}

	tk := New(input)
	for i, tt := range tests {
		got, err := tk.Next()
		if err != nil {
			t.Fatalf("tests[%d]: unexpected error: %v", i, err)
		}
		if got.ID != tt.id {
			t.Errorf("tests[%d]: id = %s, want %s", i, got.ID, tt.id)
		}
		if got.Lexeme != tt.lexeme {
			t.Errorf("tests[%d]: lexeme = %q, want %q", i, got.Lexeme, tt.lexeme)
		}
	}
}

func TestNext_KeywordsAndIdentifiers(t *testing.T) {
	input := `func proc return var ref not or and foo123 foo_bar`

	tests := []struct {
		id     ID
		lexeme string
	}{
		{Func, "func"},
		{Proc, "proc"},
		{Return, "return"},
		{Var, "var"},
		{Ref, "ref"},
		{LogicNot, "not"},
		{LogicOr, "or"},
		{LogicAnd, "and"},
		{Alphanum, "foo123"},
		{Alphanum, "foo_bar"},
	}

	tk := New(input)
	for i, tt := range tests {
		got, err := tk.Next()
		if err != nil {
			t.Fatalf("tests[%d]: unexpected error: %v", i, err)
		}
		if got.ID != tt.id || got.Lexeme != tt.lexeme {
			t.Errorf("tests[%d]: got %s(%q), want %s(%q)", i, got.ID, got.Lexeme, tt.id, tt.lexeme)
		}
	}
}

func TestNext_Numeric(t *testing.T) {
	tk := New("42 3.14 0")
	for _, want := range []string{"42", "3.14", "0"} {
		tok, err := tk.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.ID != Numeric || tok.Lexeme != want {
			t.Errorf("got %s(%q), want NUMERIC(%q)", tok.ID, tok.Lexeme, want)
		}
	}
}

func TestNext_RowColumnTracking(t *testing.T) {
	tk := New("a\nbb\n  c")

	tok, _ := tk.Next()
	if tok.Row != 1 || tok.Column != 0 {
		t.Errorf("a: row/col = %d/%d, want 1/0", tok.Row, tok.Column)
	}
	tok, _ = tk.Next()
	if tok.Row != 2 || tok.Column != 0 {
		t.Errorf("bb: row/col = %d/%d, want 2/0", tok.Row, tok.Column)
	}
	tok, _ = tk.Next()
	if tok.Row != 3 || tok.Column != 2 {
		t.Errorf("c: row/col = %d/%d, want 3/2", tok.Row, tok.Column)
	}
}

func TestPutBack_ReturnsInLIFOOrder(t *testing.T) {
	tk := New("")
	a := Token{ID: Alphanum, Lexeme: "a"}
	b := Token{ID: Alphanum, Lexeme: "b"}

	tk.PutBack(a)
	tk.PutBack(b)

	got, _ := tk.Next()
	if got != b {
		t.Errorf("first Next() = %v, want %v (most recently pushed back)", got, b)
	}
	got, _ = tk.Next()
	if got != a {
		t.Errorf("second Next() = %v, want %v", got, a)
	}
}

func TestPutBack_PanicsWhenExhausted(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when pushback buffer overflows")
		}
	}()
	tk := New("")
	for i := 0; i <= maxPushback; i++ {
		tk.PutBack(Token{ID: Alphanum})
	}
}

func TestNext_NonPrintableIsLexicalError(t *testing.T) {
	tk := New("\x01")
	_, err := tk.Next()
	if err == nil {
		t.Fatal("expected an error for a non-printable byte")
	}
}

func TestPeekAndTryReadEOL(t *testing.T) {
	tk := New("  \nrest")
	if !tk.PeekEOL() {
		t.Fatal("PeekEOL should report true before a blank line's newline")
	}
	if !tk.TryReadEOL() {
		t.Fatal("TryReadEOL should consume the newline and report true")
	}
	tok, _ := tk.Next()
	if tok.Lexeme != "rest" {
		t.Fatalf("got %q after TryReadEOL, want \"rest\"", tok.Lexeme)
	}
}

func TestAtEOF(t *testing.T) {
	tk := New("x")
	if tk.AtEOF() {
		t.Fatal("AtEOF should be false before the source is consumed")
	}
	tk.Next()
	if !tk.AtEOF() {
		t.Fatal("AtEOF should be true once the source is consumed")
	}
}

func TestExtendAndPos(t *testing.T) {
	tk := New("a")
	first, _ := tk.Next()
	if first.Lexeme != "a" {
		t.Fatalf("got %q, want \"a\"", first.Lexeme)
	}
	posBefore := tk.Pos()
	tk.Extend(" b")
	second, _ := tk.Next()
	if second.Lexeme != "b" {
		t.Fatalf("got %q after Extend, want \"b\"", second.Lexeme)
	}
	if tk.Pos() <= posBefore {
		t.Fatalf("Pos() did not advance after consuming extended input")
	}
}

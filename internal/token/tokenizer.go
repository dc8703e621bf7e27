package token

import (
	"github.com/modlang/modlang/internal/diag"
)

// Tokenizer scans a source buffer into Tokens. The expression parser only
// ever needs one token of pushback (put_token_back in the original design),
// but the statement layer above it needs to look ahead across a whole
// `name (, name)* :=` prefix before it knows whether it's looking at a
// define or a bare expression statement, so PutBack is a small LIFO queue
// rather than a single slot.
type Tokenizer struct {
	src    string
	next   int
	row    int
	column int

	pending []Token

	// lastScanned is the most recent token scan produced, and lastAfterEOL
	// whether a newline was skipped just before it.
	lastScanned  Token
	lastAfterEOL bool
}

// maxPushback bounds the lookahead the statement layer is allowed: enough
// for a handful of comma-separated names ahead of a `:=`.
const maxPushback = 16

// New starts a tokenizer over src, beginning at row 1 column 0 to match the
// convention that the first character of a file is row 1.
func New(src string) *Tokenizer {
	return &Tokenizer{src: src, row: 1, column: 0}
}

// PutBack stages tk to be returned again by the next Next call, ahead of
// anything already staged.
func (t *Tokenizer) PutBack(tk Token) {
	if len(t.pending) >= maxPushback {
		panic("token: PutBack pushback buffer exhausted")
	}
	t.pending = append(t.pending, tk)
}

func (t *Tokenizer) skipWhitespace() {
	for t.next < len(t.src) && isWhitespace(t.src[t.next]) {
		if t.src[t.next] == '\r' && t.next+1 < len(t.src) && t.src[t.next+1] == '\n' {
			t.next += 2
			t.row++
			t.column = 0
		} else {
			t.next++
			if t.src[t.next-1] == '\n' || t.src[t.next-1] == '\r' {
				t.row++
				t.column = 0
			} else {
				t.column++
			}
		}
	}
}

// Next returns the next token, draining staged pushbacks (most recent
// first) before scanning fresh input.
func (t *Tokenizer) Next() (Token, error) {
	if n := len(t.pending); n > 0 {
		tk := t.pending[n-1]
		t.pending = t.pending[:n-1]
		return tk, nil
	}
	rowBefore := t.row
	tk, err := t.scan()
	t.lastScanned, t.lastAfterEOL = tk, tk.Row > rowBefore
	return tk, err
}

func (t *Tokenizer) scan() (Token, error) {
	t.skipWhitespace()

	row, col := t.row, t.column

	if t.next >= len(t.src) {
		return Token{ID: EOF, Row: row, Column: col}, nil
	}

	c := t.src[t.next]
	if c < 32 {
		return Token{}, diag.New(diag.Lexical, row, col, "", "non-printable character encountered (code %d)", c)
	}
	if !isPrintable(c) {
		return Token{}, diag.New(diag.Lexical, row, col, "", "non-ASCII character encountered")
	}

	switch {
	case isAlpha(c):
		start := t.next
		for t.next < len(t.src) && isAlphanum(t.src[t.next]) {
			t.next++
			t.column++
		}
		lexeme := t.src[start:t.next]
		id := Alphanum
		if kw, ok := keywords[lexeme]; ok {
			id = kw
		}
		return Token{ID: id, Lexeme: lexeme, Row: row, Column: col}, nil

	case isNum(c):
		start := t.next
		for t.next < len(t.src) && (isAlphanum(t.src[t.next]) || t.src[t.next] == '.') {
			t.next++
			t.column++
		}
		return Token{ID: Numeric, Lexeme: t.src[start:t.next], Row: row, Column: col}, nil

	default:
		id := ID(c)
		length := 1
		for _, op := range compoundOperators {
			if t.next+len(op.text) > len(t.src) {
				continue
			}
			if t.src[t.next:t.next+len(op.text)] == op.text {
				id = op.id
				length = len(op.text)
				break
			}
		}
		lexeme := t.src[t.next : t.next+length]
		t.next += length
		t.column += length
		return Token{ID: id, Lexeme: lexeme, Row: row, Column: col}, nil
	}
}

// PeekEOL reports whether the next non-space/tab character is a newline or
// EOF, without consuming anything. When a token is staged by PutBack, that
// token comes next instead: the answer is true only if it is EOF or was
// scanned right after a newline. It is used by the expression parser to
// decide, in end-on-eol mode, whether a bare newline should act as an
// implicit statement terminator.
func (t *Tokenizer) PeekEOL() bool {
	if n := len(t.pending); n > 0 {
		tk := t.pending[n-1]
		return tk.ID == EOF || (tk == t.lastScanned && t.lastAfterEOL)
	}
	i := t.next
	for i < len(t.src) && (t.src[i] == ' ' || t.src[i] == '\t') {
		i++
	}
	return i >= len(t.src) || t.src[i] == '\n' || t.src[i] == '\r'
}

// TryReadEOL consumes up through a single newline (or CRLF pair) if the
// cursor is sitting at one, skipping any leading spaces/tabs first. It
// reports whether it consumed a newline. The statement layer calls it right
// after a statement's terminating `;` to eat the newline that follows.
func (t *Tokenizer) TryReadEOL() bool {
	i := t.next
	for i < len(t.src) && (t.src[i] == ' ' || t.src[i] == '\t') {
		i++
	}
	if i >= len(t.src) {
		t.next = i
		return false
	}
	if t.src[i] == '\r' && i+1 < len(t.src) && t.src[i+1] == '\n' {
		t.next = i + 2
		t.row++
		t.column = 0
		return true
	}
	if t.src[i] == '\n' || t.src[i] == '\r' {
		t.next = i + 1
		t.row++
		t.column = 0
		return true
	}
	t.next = i
	return false
}

// AtEOF reports whether the tokenizer has consumed the entire source (not
// counting a pending pushback).
func (t *Tokenizer) AtEOF() bool {
	return len(t.pending) == 0 && t.next >= len(t.src)
}

// Extend appends more source text for the tokenizer to continue scanning,
// without disturbing row/column tracking or any staged pushback. The REPL
// driver uses this to grow the buffer one line at a time rather than
// recreating a Tokenizer per line.
func (t *Tokenizer) Extend(more string) {
	t.src += more
}

// Pos reports how many bytes of src have been consumed so far, not counting
// pending pushback.
func (t *Tokenizer) Pos() int {
	return t.next
}

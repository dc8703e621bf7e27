// Package token defines the lexical tokens produced by the tokenizer and the
// tokenizer itself: a single-pass byte scanner with a small LIFO pushback
// queue (up to 16 staged tokens), used by both the expression parser and the
// statement layer above it.
package token

import "fmt"

// ID identifies the lexical class of a Token. Printable single-byte tokens
// (operators, punctuation) use their own byte value as the ID, matching the
// source prototype's "printable characters are all tokens" convention;
// everything else is a reserved ID starting at 129 (Alphanum).
type ID int

const (
	Null ID = 0

	Alphanum ID = 128 + iota
	Numeric

	Arrow  // ->
	Define // :=

	Eq      // ==
	Neq     // /=
	Leq     // <=
	Geq     // >=
	Lshift  // <<
	Rshift  // >>
	Concat  // ++

	Func
	Proc
	Return
	Var
	Ref
	LogicNot
	LogicOr
	LogicAnd
	EOF
)

var idNames = map[ID]string{
	Null: "NULL", Alphanum: "ALPHANUM", Numeric: "NUMERIC",
	Arrow: "->", Define: ":=", Eq: "==", Neq: "/=", Leq: "<=", Geq: ">=",
	Lshift: "<<", Rshift: ">>", Concat: "++",
	Func: "func", Proc: "proc", Return: "return", Var: "var", Ref: "ref",
	LogicNot: "not", LogicOr: "or", LogicAnd: "and", EOF: "EOF",
}

// String renders an ID for diagnostics, falling back to the literal
// character for single-byte token IDs.
func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	if id > 0 && id < 128 {
		return fmt.Sprintf("%q", rune(id))
	}
	return fmt.Sprintf("ID(%d)", id)
}

// Token is one lexical unit: its kind, the exact source slice it came from,
// and the position of its first byte.
type Token struct {
	ID     ID
	Lexeme string
	Row    int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.ID, t.Lexeme, t.Row, t.Column)
}

var keywords = map[string]ID{
	"func": Func,
	"proc": Proc,
	"return": Return,
	"var":  Var,
	"ref":  Ref,
	"not":  LogicNot,
	"or":   LogicOr,
	"and":  LogicAnd,
}

// compoundOperators is checked longest-match-first; every entry here is
// exactly two bytes, so a simple linear scan suffices.
var compoundOperators = []struct {
	text string
	id   ID
}{
	{"->", Arrow},
	{":=", Define},
	{"==", Eq},
	{"/=", Neq},
	{"<=", Leq},
	{">=", Geq},
	{"<<", Lshift},
	{">>", Rshift},
	{"++", Concat},
}

func isLower(c byte) bool    { return 'a' <= c && c <= 'z' }
func isUpper(c byte) bool    { return 'A' <= c && c <= 'Z' }
func isAlpha(c byte) bool    { return isLower(c) || isUpper(c) }
func isNum(c byte) bool      { return '0' <= c && c <= '9' }
func isAlphanum(c byte) bool { return isAlpha(c) || isNum(c) || c == '_' }
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
func isPrintable(c byte) bool { return ' ' <= c && c <= '~' }

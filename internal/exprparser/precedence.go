package exprparser

import "github.com/modlang/modlang/internal/token"

// Level orders binary operator precedence, lowest to highest. All operators
// at every level are left-associative: a new operator pops an operator of
// equal or higher precedence before it is itself pushed.
type Level int

const (
	LevelGrouping Level = iota
	LevelDisjunctive
	LevelConjunctive
	LevelComparative
	LevelAdditive
	LevelMultiplicative
	LevelUnary
)

var precedenceTable = map[token.ID]Level{
	token.LogicOr:  LevelDisjunctive,
	token.LogicAnd: LevelConjunctive,
	token.Eq:       LevelComparative,
	token.Neq:      LevelComparative,
	token.Leq:      LevelComparative,
	token.Geq:      LevelComparative,
	token.ID('<'):  LevelComparative,
	token.ID('>'):  LevelComparative,
	token.ID('|'):  LevelAdditive,
	token.ID('^'):  LevelAdditive,
	token.ID('+'):  LevelAdditive,
	token.ID('-'):  LevelAdditive,
	token.Concat:   LevelAdditive,
	token.Lshift:   LevelMultiplicative,
	token.Rshift:   LevelMultiplicative,
	token.ID('&'):  LevelMultiplicative,
	token.ID('*'):  LevelMultiplicative,
	token.ID('/'):  LevelMultiplicative,
	token.ID('%'):  LevelMultiplicative,
}

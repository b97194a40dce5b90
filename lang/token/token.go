// Package token defines the lexical token kinds shared by the lexer, parser
// and compiler, plus the Origin type carried by tokens and error records.
package token

import "fmt"

// Kind identifies the lexical class of a Token.
type Kind uint8

//nolint:revive
const (
	ILLEGAL Kind = iota
	EOF

	IDENT    // a bare identifier or reserved word, resolved later
	INTEGER  // a decimal, hex or binary integer literal
	STRING   // a "..." string literal
	PROPERTY // $name
	VOCAB    // @word

	SEMICOLON   // ;
	COLON       // :
	STAR        // * (indirection / VarRef sigil)
	AT          // @ (kept as its own kind for completeness; Vocab absorbs @word)
	OPEN_BRACE  // {
	CLOSE_BRACE // }
	OPEN_SQUARE // [
	CLOSE_SQUARE
	OPEN_PAREN // (
	CLOSE_PAREN
)

var kindNames = [...]string{
	ILLEGAL:      "illegal token",
	EOF:          "end of file",
	IDENT:        "identifier",
	INTEGER:      "integer literal",
	STRING:       "string literal",
	PROPERTY:     "property",
	VOCAB:        "vocab word",
	SEMICOLON:    ";",
	COLON:        ":",
	STAR:         "*",
	AT:           "@",
	OPEN_BRACE:   "{",
	CLOSE_BRACE:  "}",
	OPEN_SQUARE:  "[",
	CLOSE_SQUARE: "]",
	OPEN_PAREN:   "(",
	CLOSE_PAREN:  ")",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Origin is a (file, line) source location. It is carried by every token and
// by error records; it is deliberately coarser than a full line/column Pos
// since nothing in this language needs column-accurate diagnostics beyond
// "which line of which file".
type Origin struct {
	File string
	Line int
}

func (o Origin) String() string {
	if o.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

// Token is one lexical unit: its kind, raw text (for identifiers, strings,
// property/vocab names) and decoded integer value (for INTEGER), plus the
// origin of its first character.
type Token struct {
	Kind   Kind
	Text   string
	Int    int32
	Origin Origin
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Origin)
	}
	return fmt.Sprintf("%s@%s", t.Kind, t.Origin)
}

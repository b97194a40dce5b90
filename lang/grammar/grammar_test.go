// Package grammar holds a reference EBNF description of GTRPE/QuollVM source
// syntax, verified (not executed) against golang.org/x/exp/ebnf for internal
// consistency, in the style of nenuphar's own lang/grammar package.
package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

func TestEBNF(t *testing.T) {
	f, err := os.Open("grammar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("grammar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Game"); err != nil {
		t.Fatal(err)
	}
}

package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/lexer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	sources, err := readSources(args)
	if err != nil {
		return printError(stdio, err)
	}

	bag := &diag.Bag{}
	g := gamedata.New()
	toks := lexer.Lex(sources, g, bag)
	for _, tok := range toks {
		fmt.Fprintln(stdio.Stdout, tok.String())
	}

	if bag.HasErrors() {
		return printError(stdio, bag.Err())
	}
	return nil
}

func readSources(paths []string) ([]lexer.Source, error) {
	sources := make([]lexer.Source, len(paths))
	for i, p := range paths {
		text, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		sources[i] = lexer.Source{Name: p, Text: string(text)}
	}
	return sources, nil
}

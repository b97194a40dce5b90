package maincmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mna/mainer"

	"github.com/gtrpe/quollvm/lang/compiler"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/gamefile"
	"github.com/gtrpe/quollvm/lang/lexer"
	"github.com/gtrpe/quollvm/lang/parser"
	"github.com/gtrpe/quollvm/lang/translator"
)

// Build compiles the given GTRPE source files into a gamefile image,
// mirroring the five-phase pipeline lang/gamefile/decoder_test.go's own
// build helper drives: lex, parse, translate, compile, encode.
func (c *Cmd) Build(ctx context.Context, stdio mainer.Stdio, args []string) error {
	sources, err := readSources(args)
	if err != nil {
		return printError(stdio, err)
	}

	g := gamedata.New()
	translator.SeedDefaults(g)
	toks := lexer.Lex(sources, g, g.Errors)
	parser.Parse(toks, g)
	translator.Translate(g)
	compiler.Compile(g)

	if g.Errors.HasErrors() {
		g.Errors.Sort()
		return printError(stdio, g.Errors.Err())
	}

	img := gamefile.Encode(g, time.Now())
	if g.Errors.HasErrors() {
		g.Errors.Sort()
		return printError(stdio, g.Errors.Err())
	}

	out := c.Out
	if out == "" {
		out = "a.gam"
	}
	if err := os.WriteFile(out, img, 0o644); err != nil {
		return printError(stdio, fmt.Errorf("writing %s: %w", out, err))
	}
	fmt.Fprintf(stdio.Stdout, "wrote %s (%s)\n", out, humanize.Bytes(uint64(len(img))))
	return nil
}

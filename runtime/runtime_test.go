package runtime

import (
	"testing"
	"time"

	"github.com/gtrpe/quollvm/lang/compiler"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/gamefile"
	"github.com/gtrpe/quollvm/lang/lexer"
	"github.com/gtrpe/quollvm/lang/parser"
	"github.com/gtrpe/quollvm/lang/translator"
	"github.com/gtrpe/quollvm/lang/value"
	"github.com/stretchr/testify/require"
)

// build compiles src through the full toolchain and round-trips it through
// the gamefile encoder/decoder, exactly as a host would before running it:
// the runtime only ever sees a GameData that has been through Decode, since
// that is what fixes up CodePosition against the flat Bytecode buffer.
func build(t *testing.T, src string) (*gamedata.GameData, gamefile.Header) {
	t.Helper()
	g := gamedata.New()
	translator.SeedDefaults(g)
	toks := lexer.Lex([]lexer.Source{{Name: "t.src", Text: src}}, g, g.Errors)
	parser.Parse(toks, g)
	translator.Translate(g)
	compiler.Compile(g)
	require.False(t, g.Errors.HasErrors(), "%v", g.Errors.Entries())

	img := gamefile.Encode(g, time.Unix(1700000000, 0))
	require.False(t, g.Errors.HasErrors(), "%v", g.Errors.Entries())

	g2, hdr, err := gamefile.Decode(img)
	require.NoError(t, err)
	return g2, hdr
}

const header = `
declare TITLE "Test Game";
declare AUTHOR "Nobody";
declare VERSION 1;
declare GAMEID "test-game";
`

func TestPrintThenEndOfProgram(t *testing.T) {
	g, hdr := build(t, header+`
		function main() { (print "hi") }
	`)
	th := NewThread(g, nil)
	res, err := th.Start(hdr.MainFunctionID, nil)
	require.NoError(t, err)
	require.True(t, res.Ended)
	require.Equal(t, OptionEndOfProgram, res.Option)
	require.Equal(t, "hi", res.Text)
}

func TestRecursiveFibonacci(t *testing.T) {
	g, hdr := build(t, header+`
		function fib(n) {
			(if (lt n 2)
				n
				(add (fib (sub n 1)) (fib (sub n 2)))
			)
		}
		function main() { (print (fib 10)) }
	`)
	th := NewThread(g, nil)
	res, err := th.Start(hdr.MainFunctionID, nil)
	require.NoError(t, err)
	require.True(t, res.Ended)
	require.Equal(t, "55", res.Text)
}

func TestGetOptionSuspendsAndResumeContinues(t *testing.T) {
	// ask's own Return is what carries the suspension out to the host, per
	// spec.md §4.6: get_option only records the request, it does not itself
	// halt the loop. The resumed value reappears on main's stack as if
	// `(ask)` had simply evaluated to it.
	g, hdr := build(t, header+`
		function ask() { (get_option main) }
		function main() {
			(print "before")
			(print_uf (ask))
			(print "after")
		}
	`)
	th := NewThread(g, nil)
	res, err := th.Start(hdr.MainFunctionID, nil)
	require.NoError(t, err)
	require.False(t, res.Ended)
	require.Equal(t, OptionChoice, res.Option)
	require.Equal(t, hdr.MainFunctionID, res.OptionFunction)
	require.Equal(t, "before", res.Text)

	res, err = th.Resume(value.Int(42))
	require.NoError(t, err)
	require.True(t, res.Ended)
	require.Equal(t, "42after", res.Text)
}

func TestSetThenPrintSequence(t *testing.T) {
	g, hdr := build(t, header+`
		asm_function main(n) {
			10 *n set
			n 5 add say
			return
		}
	`)
	th := NewThread(g, nil)
	res, err := th.Start(hdr.MainFunctionID, nil)
	require.NoError(t, err)
	require.True(t, res.Ended)
	require.Equal(t, "15", res.Text)
}

func TestDivisionByZeroFaultsWithCallStack(t *testing.T) {
	g, hdr := build(t, header+`
		function main() { (div 1 0) }
	`)
	th := NewThread(g, nil)
	_, err := th.Start(hdr.MainFunctionID, nil)
	require.Error(t, err)
	fault, ok := err.(*Fault)
	require.True(t, ok, "expected a *Fault, got %T: %v", err, err)
	require.NotEmpty(t, fault.CallStack)
	require.Equal(t, hdr.MainFunctionID, fault.CallStack[0].FunctionID)
}

func TestListExtendThenGetSize(t *testing.T) {
	g, hdr := build(t, header+`
		asm_function main() {
			3 new
			stack_dup 1 list_push
			stack_dup 2 list_push
			stack_dup 3 list_push
			get_size say
			return
		}
	`)
	th := NewThread(g, nil)
	res, err := th.Start(hdr.MainFunctionID, nil)
	require.NoError(t, err)
	require.True(t, res.Ended)
	require.Equal(t, "3", res.Text)
}

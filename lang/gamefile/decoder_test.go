package gamefile

import (
	"testing"
	"time"

	"github.com/gtrpe/quollvm/lang/compiler"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/lexer"
	"github.com/gtrpe/quollvm/lang/parser"
	"github.com/gtrpe/quollvm/lang/translator"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, src string) *gamedata.GameData {
	t.Helper()
	g := gamedata.New()
	translator.SeedDefaults(g)
	toks := lexer.Lex([]lexer.Source{{Name: "t.src", Text: src}}, g, g.Errors)
	parser.Parse(toks, g)
	translator.Translate(g)
	compiler.Compile(g)
	require.False(t, g.Errors.HasErrors(), "%v", g.Errors.Entries())
	return g
}

const sampleSource = `
declare TITLE "Test Game";
declare AUTHOR "Nobody";
declare VERSION 1;
declare GAMEID "test-game";

object lobby $desc "a dim little room";
object closet : lobby $desc "barely big enough to stand in";

function main() {
	(print "hello, world")
}
`

func TestRoundTripPreservesHeaderAndArenas(t *testing.T) {
	g := build(t, sampleSource)
	buildTime := time.Unix(1700000000, 0)

	img := Encode(g, buildTime)
	require.False(t, g.Errors.HasErrors(), "%v", g.Errors.Entries())

	g2, hdr, err := Decode(img)
	require.NoError(t, err)

	mainSym, _ := g.LookupSymbol("main")
	require.Equal(t, mainSym.Payload, hdr.MainFunctionID)
	require.Equal(t, uint32(buildTime.Unix()), hdr.BuildNumber)

	require.Equal(t, len(g.Strings), len(g2.Strings))
	for i := range g.Strings {
		require.Equal(t, g.Strings[i].Text, g2.Strings[i].Text, "string %d", i)
	}

	require.Equal(t, len(g.Vocab), len(g2.Vocab))
	for i := range g.Vocab {
		require.Equal(t, g.Vocab[i], g2.Vocab[i])
	}

	require.Equal(t, len(g.Objects), len(g2.Objects))
	for i := 1; i < len(g.Objects); i++ {
		o1, o2 := g.Objects[i], g2.Objects[i]
		require.Equal(t, o1.GlobalID, o2.GlobalID)
		require.Equal(t, o1.ParentID, o2.ParentID)
		require.Equal(t, o1.ChildID, o2.ChildID)
		require.Equal(t, o1.SiblingID, o2.SiblingID)
		require.Equal(t, len(o1.Properties), len(o2.Properties))
		for j := range o1.Properties {
			require.Equal(t, o1.Properties[j].ID, o2.Properties[j].ID)
			require.Equal(t, o1.Properties[j].Value, o2.Properties[j].Value)
		}
	}

	require.Equal(t, len(g.Functions), len(g2.Functions))
	for i := 1; i < len(g.Functions); i++ {
		f1, f2 := g.Functions[i], g2.Functions[i]
		require.Equal(t, f1.GlobalID, f2.GlobalID)
		require.Equal(t, f1.ArgCount, f2.ArgCount)
		require.Equal(t, f1.LocalCount, f2.LocalCount)
		require.Equal(t, f1.CodePosition, f2.CodePosition)
	}

	require.NotEmpty(t, g2.Bytecode)
	require.Equal(t, len(g.Functions), g2.StaticFunctions)
	require.Equal(t, len(g2.Functions), g2.StaticFunctions)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, _, err := Decode([]byte{0, 0, 0, 0})
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedFile(t *testing.T) {
	g := build(t, sampleSource)
	img := Encode(g, time.Unix(0, 0))
	_, _, err := Decode(img[:len(img)-10])
	require.Error(t, err)
}

func TestEncodeMissingMainIsError(t *testing.T) {
	g := build(t, `declare TITLE "x"; declare AUTHOR "x"; declare VERSION 1; declare GAMEID "x";`)
	Encode(g, time.Unix(0, 0))
	require.True(t, g.Errors.HasErrors())
}

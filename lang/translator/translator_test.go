package translator

import (
	"testing"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/lexer"
	"github.com/gtrpe/quollvm/lang/parser"
	"github.com/gtrpe/quollvm/lang/value"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, src string) *gamedata.GameData {
	t.Helper()
	g := gamedata.New()
	SeedDefaults(g)
	toks := lexer.Lex([]lexer.Source{{Name: "t.src", Text: src}}, g, g.Errors)
	parser.Parse(toks, g)
	Translate(g)
	return g
}

func noArenaValueHasSymbolTag(g *gamedata.GameData) bool {
	for _, obj := range g.Objects {
		for _, p := range obj.Properties {
			if p.Value.Tag == value.Symbol {
				return false
			}
		}
	}
	for _, l := range g.Lists {
		for _, v := range l.Items {
			if v.Tag == value.Symbol {
				return false
			}
		}
	}
	for _, m := range g.Maps {
		for _, row := range m.Rows {
			if row.Key.Tag == value.Symbol || row.Val.Tag == value.Symbol {
				return false
			}
		}
	}
	return true
}

func TestNoSymbolTagSurvivesTranslation(t *testing.T) {
	g := build(t, `
		declare ROOM_KIND 1;
		object Kitchen $kind ROOM_KIND;
		object Pantry : Kitchen;
	`)
	require.False(t, g.Errors.HasErrors())
	require.True(t, noArenaValueHasSymbolTag(g))
}

func TestUndefinedSymbolRecordsError(t *testing.T) {
	g := build(t, `object Kitchen $kind NeverDeclared;`)
	require.True(t, g.Errors.HasErrors())
}

func TestFlagSetCollapsesToIntegerOr(t *testing.T) {
	g := build(t, `
		declare A 1;
		declare B 2;
		declare F flags(A B 4);
	`)
	require.False(t, g.Errors.HasErrors())
	v, ok := g.LookupSymbol("F")
	require.True(t, ok)
	require.Equal(t, value.Integer, v.Tag)
	require.Equal(t, int32(7), v.Payload)
}

func TestObjectTreeLinksNewestChildFirst(t *testing.T) {
	g := build(t, `
		object Parent;
		object Child1 : Parent;
		object Child2 : Parent;
	`)
	require.False(t, g.Errors.HasErrors())
	parentVal, _ := g.LookupSymbol("Parent")
	child1Val, _ := g.LookupSymbol("Child1")
	child2Val, _ := g.LookupSymbol("Child2")

	parent := g.Objects[parentVal.Payload]
	require.Equal(t, child2Val.Payload, parent.ChildID)
	child2 := g.Objects[child2Val.Payload]
	require.Equal(t, child1Val.Payload, child2.SiblingID)
}

func TestDuplicateIdentIsError(t *testing.T) {
	identProp := "ident"
	g := gamedata.New()
	SeedDefaults(g)
	toks := lexer.Lex([]lexer.Source{{Name: "t.src", Text: `object A $` + identProp + ` 5; object B $` + identProp + ` 5;`}}, g, g.Errors)
	parser.Parse(toks, g)
	Translate(g)
	require.True(t, g.Errors.HasErrors())
}

func TestSeedDefaultsInstallsTypeConstants(t *testing.T) {
	g := gamedata.New()
	SeedDefaults(g)
	v, ok := g.LookupSymbol("Integer")
	require.True(t, ok)
	require.Equal(t, value.TypeId, v.Tag)
	require.Equal(t, int32(value.Integer), v.Payload)
}

func TestDeclaredSymbolWinsOverDefault(t *testing.T) {
	g := build(t, `default GAMEID 1; declare GAMEID 2;`)
	v, ok := g.LookupSymbol("GAMEID")
	require.True(t, ok)
	require.Equal(t, value.Int(2), v)
}

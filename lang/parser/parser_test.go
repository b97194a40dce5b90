package parser

import (
	"testing"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/lexer"
	"github.com/gtrpe/quollvm/lang/value"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *gamedata.GameData {
	t.Helper()
	g := gamedata.New()
	toks := lexer.Lex([]lexer.Source{{Name: "t.src", Text: src}}, g, g.Errors)
	Parse(toks, g)
	return g
}

func TestDeclareBindsSymbol(t *testing.T) {
	g := parse(t, `declare MAX_HP 100;`)
	require.False(t, g.Errors.HasErrors())
	v, ok := g.LookupSymbol("MAX_HP")
	require.True(t, ok)
	require.Equal(t, value.Int(100), v)
}

func TestDeclareObjectOrFunctionIsError(t *testing.T) {
	g := parse(t, `declare BAD object { };`)
	require.True(t, g.Errors.HasErrors())
}

func TestDefaultDoesNotOverrideExplicitDeclare(t *testing.T) {
	g := parse(t, `default AUTHOR 1; declare AUTHOR 2;`)
	g.PromoteDefaults()
	v, ok := g.LookupSymbol("AUTHOR")
	require.True(t, ok)
	require.Equal(t, value.Int(2), v)
}

func TestTopLevelObjectWithProperties(t *testing.T) {
	g := parse(t, `object Kitchen $desc "a room";`)
	require.False(t, g.Errors.HasErrors())
	v, ok := g.LookupSymbol("Kitchen")
	require.True(t, ok)
	require.Equal(t, value.Object, v.Tag)

	obj := g.Objects[v.Payload]
	require.Equal(t, int32(1), obj.NameStringID, "first interned string after the arena's index-0 sentinel")

	descID := g.InternProperty("desc")
	prop, ok := obj.GetProperty(descID)
	require.True(t, ok)
	require.Equal(t, value.String, prop.Tag)
}

func TestObjectWithParentRecordsSymbolicParentProperty(t *testing.T) {
	g := parse(t, `object Room1; object Room2 : Room1;`)
	require.False(t, g.Errors.HasErrors())
	v, _ := g.LookupSymbol("Room2")
	obj := g.Objects[v.Payload]
	parentID := g.InternProperty("parent")
	parentVal, ok := obj.GetProperty(parentID)
	require.True(t, ok)
	require.Equal(t, value.Symbol, parentVal.Tag)
	require.Equal(t, "Room1", parentVal.Text)
}

func TestAnonymousTopLevelObjectWarns(t *testing.T) {
	g := parse(t, `object $x 1;`)
	require.False(t, g.Errors.HasErrors())
	found := false
	for _, e := range g.Errors.Entries() {
		if e.Severity == 0 {
			found = true
		}
	}
	require.True(t, found, "expected a warning for the anonymous object")
}

func TestFunctionCapturesBodyTokensVerbatim(t *testing.T) {
	g := parse(t, `function add(a b) { (add *a *b) }`)
	require.False(t, g.Errors.HasErrors())
	v, ok := g.LookupSymbol("add")
	require.True(t, ok)
	fn := g.Functions[v.Payload]
	require.Equal(t, 3, fn.ArgCount, "self + a + b")
	require.NotEmpty(t, fn.BodyTokens)
}

func TestListLiteral(t *testing.T) {
	g := parse(t, `declare NUMS [1 2 3];`)
	v, ok := g.LookupSymbol("NUMS")
	require.True(t, ok)
	require.Equal(t, value.List, v.Tag)
	list := g.Lists[v.Payload]
	require.Len(t, list.Items, 3)
	require.Equal(t, value.Int(2), list.Items[1])
}

func TestMapLiteral(t *testing.T) {
	g := parse(t, `declare ROWS { 1 : "one" 2 : "two" };`)
	v, ok := g.LookupSymbol("ROWS")
	require.True(t, ok)
	require.Equal(t, value.Map, v.Tag)
	m := g.Maps[v.Payload]
	require.Len(t, m.Rows, 2)
}

func TestExtendListAppends(t *testing.T) {
	g := parse(t, `declare NUMS [1 2]; extend NUMS [3 4];`)
	v, _ := g.LookupSymbol("NUMS")
	list := g.Lists[v.Payload]
	require.Len(t, list.Items, 4)
}

func TestExtendTypeMismatchIsError(t *testing.T) {
	g := parse(t, `declare NUMS [1 2]; extend NUMS { 1 : 2 };`)
	require.True(t, g.Errors.HasErrors())
}

func TestFlagsCollectsMembers(t *testing.T) {
	g := parse(t, `declare F flags(1 2 SomeSymbol);`)
	v, ok := g.LookupSymbol("F")
	require.True(t, ok)
	require.Equal(t, value.FlagSet, v.Tag)
	fs := g.FlagSets[v.Payload]
	require.Len(t, fs.Members, 3)
}

func TestUnexpectedTopLevelDirectiveRecordsErrorAndResyncs(t *testing.T) {
	g := parse(t, `bogus thing here; declare OK 1;`)
	require.True(t, g.Errors.HasErrors())
	v, ok := g.LookupSymbol("OK")
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)
}

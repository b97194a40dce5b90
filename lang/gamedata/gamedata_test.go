package gamedata

import (
	"testing"

	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
	"github.com/stretchr/testify/require"
)

func TestArenasStartWithNullSentinel(t *testing.T) {
	g := New()
	require.Len(t, g.Strings, 1)
	require.Len(t, g.Lists, 1)
	require.Len(t, g.Maps, 1)
	require.Len(t, g.Objects, 1)
	require.Len(t, g.Functions, 1)
}

func TestInternStringIsAppendOnlyAndDeduped(t *testing.T) {
	g := New()
	a := g.InternString("hello", token.Origin{File: "a.src", Line: 1})
	b := g.InternString("world", token.Origin{File: "a.src", Line: 2})
	c := g.InternString("hello", token.Origin{File: "a.src", Line: 3})
	require.NotEqual(t, a, b)
	require.Equal(t, a, c, "interning the same text twice returns the same index")
	require.Equal(t, "hello", g.Strings[a].Text)
}

func TestInternPropertyAssignsStableIds(t *testing.T) {
	g := New()
	a := g.InternProperty("ident")
	b := g.InternProperty("parent")
	c := g.InternProperty("ident")
	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Equal(t, "ident", g.PropertyName(a))
}

func TestVocabSortedLexicographically(t *testing.T) {
	g := New()
	g.InternVocab("west")
	g.InternVocab("north")
	g.InternVocab("east")
	g.SortVocab()
	require.Equal(t, []string{"east", "north", "west"}, g.Vocab)

	idx, ok := g.VocabIndex("north")
	require.True(t, ok)
	require.Equal(t, int32(1), idx)
}

func TestVocabIndexPanicsBeforeSort(t *testing.T) {
	g := New()
	g.InternVocab("north")
	require.Panics(t, func() { g.VocabIndex("north") })
}

func TestPromoteDefaultsDoesNotOverrideExisting(t *testing.T) {
	g := New()
	g.DeclareSymbol("TITLE", value.Int(1))
	g.DeclareDefault("TITLE", value.Int(2), token.Origin{})
	g.DeclareDefault("AUTHOR", value.Int(3), token.Origin{})
	g.PromoteDefaults()

	v, ok := g.LookupSymbol("TITLE")
	require.True(t, ok)
	require.Equal(t, value.Int(1), v, "an existing symbol is never overwritten by a default")

	v, ok = g.LookupSymbol("AUTHOR")
	require.True(t, ok)
	require.Equal(t, value.Int(3), v)
}

func TestObjectPropertySortedById(t *testing.T) {
	o := &Object{}
	o.SetProperty(5, value.Int(1))
	o.SetProperty(1, value.Int(2))
	o.SetProperty(3, value.Int(3))
	o.SortProperties()
	require.Equal(t, []uint32{1, 3, 5}, []uint32{o.Properties[0].ID, o.Properties[1].ID, o.Properties[2].ID})
}

func TestLinkChildPrependsAsFirstChild(t *testing.T) {
	g := New()
	parent := g.NewObject(token.Origin{})
	first := g.NewObject(token.Origin{})
	second := g.NewObject(token.Origin{})

	LinkChild(parent, first)
	require.Equal(t, first.GlobalID, parent.ChildID)
	require.Equal(t, int32(0), first.SiblingID)

	LinkChild(parent, second)
	require.Equal(t, second.GlobalID, parent.ChildID, "newest insertion becomes the new first child")
	require.Equal(t, first.GlobalID, second.SiblingID, "previous first child becomes its sibling")
	require.Equal(t, parent.GlobalID, second.ParentID)
}

func TestNewFunctionPrependsHiddenSelfLocal(t *testing.T) {
	g := New()
	f := g.NewFunction(token.Origin{})
	require.Equal(t, "self", f.Locals[0].Name)
	idx := f.AddLocal("n", value.Integer)
	require.Equal(t, 1, idx)

	got, ok := f.LookupLocal("n")
	require.True(t, ok)
	require.Equal(t, 1, got)
}

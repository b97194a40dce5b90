package lexer

import (
	"testing"

	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/stretchr/testify/require"
)

type fakeInterner struct {
	ids map[string]uint32
}

func (f *fakeInterner) InternProperty(name string) uint32 {
	if f.ids == nil {
		f.ids = make(map[string]uint32)
	}
	if id, ok := f.ids[name]; ok {
		return id
	}
	id := uint32(len(f.ids) + 1)
	f.ids[name] = id
	return id
}

func lexOne(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	var bag diag.Bag
	toks := Lex([]Source{{Name: "t.src", Text: src}}, &fakeInterner{}, &bag)
	return toks, &bag
}

func TestIntegerLiterals(t *testing.T) {
	cases := []struct {
		src     string
		want    int32
		wantErr bool
	}{
		{"2147483647", 2147483647, false},
		{"-2147483648", -2147483648, false},
		{"2147483648", 0, true},
		{"0xFFFFFFFF", int32(uint32(0xFFFFFFFF)), false},
		{"0b1011_0010", 178, false},
		{"0X1FFFFFFFF", 0, true},
	}
	for _, c := range cases {
		toks, bag := lexOne(t, c.src)
		require.Equal(t, token.INTEGER, toks[0].Kind)
		if c.wantErr {
			require.True(t, bag.HasErrors(), c.src)
		} else {
			require.False(t, bag.HasErrors(), c.src)
			require.Equal(t, c.want, toks[0].Int, c.src)
		}
	}
}

func TestCommentsAndWhitespaceSkipped(t *testing.T) {
	toks, bag := lexOne(t, "// line comment\n/* block */ 42 ;")
	require.False(t, bag.HasErrors())
	require.Equal(t, token.INTEGER, toks[0].Kind)
	require.Equal(t, int32(42), toks[0].Int)
	require.Equal(t, token.SEMICOLON, toks[1].Kind)
	require.Equal(t, token.EOF, toks[2].Kind)
}

func TestNestedBlockCommentIsError(t *testing.T) {
	_, bag := lexOne(t, "/* outer /* inner */ still outer */")
	require.True(t, bag.HasErrors())
}

func TestUnterminatedBlockCommentIsError(t *testing.T) {
	_, bag := lexOne(t, "/* never closes")
	require.True(t, bag.HasErrors())
}

func TestPropertyInterning(t *testing.T) {
	var bag diag.Bag
	fi := &fakeInterner{}
	toks := Lex([]Source{{Name: "t.src", Text: "$name $desc $name"}}, fi, &bag)
	require.Equal(t, token.PROPERTY, toks[0].Kind)
	require.Equal(t, toks[0].Int, toks[2].Int, "interning the same name twice returns the same id")
	require.NotEqual(t, toks[0].Int, toks[1].Int)
}

func TestStringEscapesAndIndentationFolding(t *testing.T) {
	toks, bag := lexOne(t, "\"a\\nb\\\"c\\\\d\"")
	require.False(t, bag.HasErrors())
	require.Equal(t, "a\nb\"c\\d", toks[0].Text)

	toks, bag = lexOne(t, "\"first\n    second\n    third\"")
	require.False(t, bag.HasErrors())
	require.Equal(t, "first second third", toks[0].Text)
}

func TestFileConcatenationEndsEachFileWithEOF(t *testing.T) {
	var bag diag.Bag
	toks := Lex([]Source{
		{Name: "a.src", Text: "1;"},
		{Name: "b.src", Text: "2;"},
	}, &fakeInterner{}, &bag)

	var eofCount int
	for _, tk := range toks {
		if tk.Kind == token.EOF {
			eofCount++
		}
	}
	require.Equal(t, 2, eofCount)
}

func TestVocabWord(t *testing.T) {
	toks, bag := lexOne(t, "@north")
	require.False(t, bag.HasErrors())
	require.Equal(t, token.VOCAB, toks[0].Kind)
	require.Equal(t, "north", toks[0].Text)
}

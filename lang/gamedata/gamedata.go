// Package gamedata holds GameData, the compile-time store that every later
// phase (parser, translator, compiler, encoder) reads and mutates in place:
// the global symbol table, the interned property names and vocabulary, and
// the arenas for strings, lists, maps, objects, functions and flagsets.
//
// It plays the role nenuphar's resolver/module state plays between parsing
// and compilation, but flat rather than scope-nested: this language resolves
// names against one global table, not lexical blocks.
package gamedata

import (
	"sort"

	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// StringEntry is one slot of the string arena.
type StringEntry struct {
	Text   string
	Origin token.Origin
}

// GameData is the single mutable store threaded through parsing, translation
// and compilation. The zero value is not usable; construct with New.
type GameData struct {
	Strings     []StringEntry
	stringIndex map[string]int32

	PropertyNames []string
	propertyIndex map[string]uint32

	Vocab       []string
	vocabIndex  map[string]int32
	vocabSorted bool

	// Symbols is the flat global symbol table: declared/defaulted/named
	// top-level entities (objects, lists, maps, functions, declare/default
	// constants) all live here under their source name.
	Symbols map[string]value.Value

	// Defaults holds `default NAME V` directives until translation's
	// promotion pass (spec.md §4.3 step 2): promoted into Symbols iff NAME
	// is not already defined there.
	Defaults map[string]defaultEntry

	Lists     []*List
	Maps      []*Map
	Objects   []*Object
	Functions []*Function
	FlagSets  []*FlagSet

	// Bytecode is the flat, concatenated bytecode buffer a loaded gamefile's
	// functions execute against: each Function's CodePosition is an offset
	// into this slice, not into its own (compiler-only) Code stream. It is
	// nil until a gamefile is decoded (see lang/gamefile.Decode), mirroring
	// original_source/runner/loadgame.cpp, whose VM always addresses one
	// shared bytecode vector rather than per-function buffers.
	Bytecode []byte

	// Static<Kind> record the persisted boundary: arena length at load time.
	// Entries at or beyond this index were created at runtime and are the
	// only ones a mark-collection pass may reclaim (spec.md §3 Lifecycles).
	StaticStrings   int
	StaticLists     int
	StaticMaps      int
	StaticObjects   int
	StaticFunctions int

	Errors *diag.Bag
}

type defaultEntry struct {
	Value  value.Value
	Origin token.Origin
}

// New returns a GameData with every arena pre-seeded with its index-0 null
// sentinel, per spec.md §3 Arenas.
func New() *GameData {
	g := &GameData{
		stringIndex:   make(map[string]int32),
		propertyIndex: make(map[string]uint32),
		vocabIndex:    make(map[string]int32),
		Symbols:       make(map[string]value.Value),
		Defaults:      make(map[string]defaultEntry),
		Errors:        &diag.Bag{},
	}
	g.Strings = append(g.Strings, StringEntry{}) // index 0 sentinel
	g.PropertyNames = append(g.PropertyNames, "") // id 0 is an unnamed placeholder that InternProperty never returns; the translator's default seeding interns "(invalid)" as id 1
	g.Lists = append(g.Lists, &List{})
	g.Maps = append(g.Maps, &Map{})
	g.Objects = append(g.Objects, &Object{})
	g.Functions = append(g.Functions, &Function{})
	return g
}

// InternString returns the stable index of text in the string arena,
// creating an entry the first time text is seen. Interning is append-only
// per spec.md §3: an existing index is never invalidated by later calls.
func (g *GameData) InternString(text string, origin token.Origin) int32 {
	if id, ok := g.stringIndex[text]; ok {
		return id
	}
	id := int32(len(g.Strings))
	g.Strings = append(g.Strings, StringEntry{Text: text, Origin: origin})
	g.stringIndex[text] = id
	return id
}

// InternProperty assigns a stable small integer id to name, creating one the
// first time it is seen. It implements lexer.PropertyInterner.
func (g *GameData) InternProperty(name string) uint32 {
	if id, ok := g.propertyIndex[name]; ok {
		return id
	}
	id := uint32(len(g.PropertyNames))
	g.PropertyNames = append(g.PropertyNames, name)
	g.propertyIndex[name] = id
	return id
}

// PropertyName returns the name registered under id, or "" if none.
func (g *GameData) PropertyName(id uint32) string {
	if int(id) >= len(g.PropertyNames) {
		return ""
	}
	return g.PropertyNames[id]
}

// InternVocab registers word in the vocabulary if it hasn't been seen
// before. The final sorted index (the payload a Vocab-tagged Value carries)
// is only available after SortVocab runs; vocabulary words are gathered
// across the whole source before any Vocab value is resolved to a concrete
// index, mirroring how the string table is built incrementally but the
// vocab table is "sorted after all input is lexed" (spec.md §3 Arenas).
func (g *GameData) InternVocab(word string) {
	if _, ok := g.vocabIndex[word]; ok {
		return
	}
	g.vocabIndex[word] = -1
	g.Vocab = append(g.Vocab, word)
}

// SortVocab lexicographically sorts the vocabulary and fixes each word's
// final index. It must run once, after lexing and before any Vocab-tagged
// Value's payload is resolved, and must not run again afterwards.
func (g *GameData) SortVocab() {
	sort.Strings(g.Vocab)
	for i, w := range g.Vocab {
		g.vocabIndex[w] = int32(i)
	}
	g.vocabSorted = true
}

// VocabIndex returns the sorted index of word. It panics if called before
// SortVocab, since that would hand out indices SortVocab will later
// invalidate; this is a programmer error, not a data error.
func (g *GameData) VocabIndex(word string) (int32, bool) {
	if !g.vocabSorted {
		panic("gamedata: VocabIndex called before SortVocab")
	}
	id, ok := g.vocabIndex[word]
	return id, ok
}

// DeclareSymbol binds name to v in the global symbol table, overwriting any
// previous binding. Used by `declare`, and by named object/list/map/function
// declarations, which register themselves under their optional Name.
func (g *GameData) DeclareSymbol(name string, v value.Value) {
	g.Symbols[name] = v
}

// DeclareDefault records a `default NAME V` directive for later promotion;
// see PromoteDefaults.
func (g *GameData) DeclareDefault(name string, v value.Value, origin token.Origin) {
	g.Defaults[name] = defaultEntry{Value: v, Origin: origin}
}

// PromoteDefaults implements spec.md §4.3 step 2: every pending default is
// copied into Symbols iff the name isn't already defined there. Iteration
// order is the sorted name order, so repeated translator runs (there are
// none in practice, but tests may call this twice) are deterministic.
func (g *GameData) PromoteDefaults() {
	names := make([]string, 0, len(g.Defaults))
	for name := range g.Defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, defined := g.Symbols[name]; !defined {
			g.Symbols[name] = g.Defaults[name].Value
		}
	}
}

// LookupSymbol returns the value bound to name in the global symbol table.
func (g *GameData) LookupSymbol(name string) (value.Value, bool) {
	v, ok := g.Symbols[name]
	return v, ok
}

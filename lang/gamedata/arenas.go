package gamedata

import (
	"sort"

	"github.com/gtrpe/quollvm/lang/bytestream"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// List is one slot of the list arena. GlobalID equals its own slot index,
// per spec.md §3 Arenas.
type List struct {
	GlobalID int32
	Origin   token.Origin
	Items    []value.Value
}

// NewList allocates a new list, appending it to the arena.
func (g *GameData) NewList(origin token.Origin) *List {
	l := &List{GlobalID: int32(len(g.Lists)), Origin: origin}
	g.Lists = append(g.Lists, l)
	return l
}

// MapRow is one key/value pair of a Map entry.
type MapRow struct {
	Key value.Value
	Val value.Value
}

// Map is one slot of the map arena.
type Map struct {
	GlobalID int32
	Origin   token.Origin
	Rows     []MapRow
}

// NewMap allocates a new map, appending it to the arena.
func (g *GameData) NewMap(origin token.Origin) *Map {
	m := &Map{GlobalID: int32(len(g.Maps))}
	m.Origin = origin
	g.Maps = append(g.Maps, m)
	return m
}

// Property is one object property: an interned property id and its value.
type Property struct {
	ID    uint32
	Value value.Value
}

// Object is one slot of the object arena. parent/child/sibling form the
// first-child/next-sibling containment tree described in spec.md §3 and §9;
// there are no owning pointers, only arena indices.
type Object struct {
	GlobalID     int32
	Origin       token.Origin
	NameStringID int32
	Properties   []Property

	ParentID  int32
	ChildID   int32
	SiblingID int32
}

// NewObject allocates a new object, appending it to the arena.
func (g *GameData) NewObject(origin token.Origin) *Object {
	o := &Object{GlobalID: int32(len(g.Objects)), Origin: origin}
	g.Objects = append(g.Objects, o)
	return o
}

// SetProperty sets (or replaces) the value bound to propID on o.
func (o *Object) SetProperty(propID uint32, v value.Value) {
	for i := range o.Properties {
		if o.Properties[i].ID == propID {
			o.Properties[i].Value = v
			return
		}
	}
	o.Properties = append(o.Properties, Property{ID: propID, Value: v})
}

// GetProperty returns the value bound to propID on o, if any.
func (o *Object) GetProperty(propID uint32) (value.Value, bool) {
	for _, p := range o.Properties {
		if p.ID == propID {
			return p.Value, true
		}
	}
	return value.NoneValue, false
}

// SortProperties orders Properties by ascending id, per spec.md §3
// ("Properties are stored sorted by id after parsing").
func (o *Object) SortProperties() {
	sort.Slice(o.Properties, func(i, j int) bool { return o.Properties[i].ID < o.Properties[j].ID })
}

// LinkChild attaches child under parent in the containment tree: child
// becomes parent's new first child, displacing (and becoming the sibling
// of) whatever was previously first, per spec.md §4.3 step 4.
func LinkChild(parent, child *Object) {
	child.ParentID = parent.GlobalID
	child.SiblingID = parent.ChildID
	parent.ChildID = child.GlobalID
}

// Local describes one local slot of a Function: its source name, its
// declared type tag (used only to populate the gamefile's
// declaredTypeTag array; the VM itself does not enforce it), and a
// read-count used to flag unused-local warnings.
type Local struct {
	Name         string
	DeclaredType value.Tag
	Reads        int
}

// Function is one slot of the function arena. The hidden first local is
// always `self` (spec.md §3 Functions), prepended by the parser before any
// source-declared argument.
type Function struct {
	GlobalID     int32
	Name         string
	NameStringID int32
	Origin       token.Origin

	ArgCount   int
	LocalCount int
	Locals     []Local

	Labels map[string]int
	Code   *bytestream.Stream

	// CodePosition is this function's absolute offset within the shared
	// global bytecode buffer, fixed once all function bodies are compiled
	// and concatenated (spec.md §3 Invariants: 4-byte aligned).
	CodePosition int

	IsAsm      bool
	BodyTokens []token.Token
}

// NewFunction allocates a new function, appending it to the arena, and
// prepends the hidden `self` local.
func (g *GameData) NewFunction(origin token.Origin) *Function {
	f := &Function{
		GlobalID: int32(len(g.Functions)),
		Origin:   origin,
		Labels:   make(map[string]int),
		Code:     bytestream.New(),
		Locals:   []Local{{Name: "self", DeclaredType: value.Object}},
	}
	g.Functions = append(g.Functions, f)
	return f
}

// AddLocal appends a declared local (argument or local-section name) to f.
func (f *Function) AddLocal(name string, declared value.Tag) int {
	idx := len(f.Locals)
	f.Locals = append(f.Locals, Local{Name: name, DeclaredType: declared})
	return idx
}

// LookupLocal returns the local slot index of name within f, if any.
func (f *Function) LookupLocal(name string) (int, bool) {
	for i, l := range f.Locals {
		if l.Name == name {
			return i, true
		}
	}
	return 0, false
}

// FlagSet is a compile-time-only construct: its members are translated to
// Integer and OR'd into FinalValue by the translator, after which the
// FlagSet value itself is replaced everywhere by an Integer (spec.md §4.3
// step 1). FlagSets never reach the gamefile.
type FlagSet struct {
	GlobalID int32
	Origin   token.Origin
	Members  []value.Value

	Resolved   bool
	FinalValue int32
}

// NewFlagSet allocates a new flagset, appending it to the arena.
func (g *GameData) NewFlagSet(origin token.Origin) *FlagSet {
	fs := &FlagSet{GlobalID: int32(len(g.FlagSets)), Origin: origin}
	g.FlagSets = append(g.FlagSets, fs)
	return fs
}

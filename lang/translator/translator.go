// Package translator implements the symbol translator: the pass that runs
// after every declaration has been parsed into a gamedata.GameData and
// resolves every Symbol placeholder to a concrete value, collapses flagsets
// into integers, and builds the object containment tree.
//
// It is grounded directly on original_source/builder/translate.cpp's
// translate_symbols/translate_value/add_default_constants, adapted from
// exception-driven control flow to this toolchain's diag.Bag accumulator
// (spec.md §9 "Error accumulation").
package translator

import (
	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// SeedDefaults installs the baseline symbol and property-id set that every
// program can reference without declaring it: the TypeId constants, the
// infobar slot/boolean constants, and the baseline property ids, exactly as
// original_source/builder/translate.cpp's add_default_constants does. It
// must run before Translate, and before anything else in g.Symbols is
// declared, so user `declare`s of the same name still win (Translate never
// re-promotes an already-defined symbol).
func SeedDefaults(g *gamedata.GameData) {
	seed := func(name string, v value.Value) {
		if _, exists := g.Symbols[name]; !exists {
			g.Symbols[name] = v
		}
	}
	typeID := func(t value.Tag) value.Value { return value.Value{Tag: value.TypeId, Payload: int32(t)} }

	seed("None", typeID(value.None))
	seed("Integer", typeID(value.Integer))
	seed("String", typeID(value.String))
	seed("List", typeID(value.List))
	seed("Map", typeID(value.Map))
	seed("Function", typeID(value.Function))
	seed("Object", typeID(value.Object))
	seed("Property", typeID(value.Property))
	// "Label" and "Reference" are the source-facing names for the
	// compile-time JumpTarget and VarRef tags; see spec.md §9 open question
	// on preserving the original reserved-word/tag-number pairing.
	seed("Label", typeID(value.JumpTarget))
	seed("Reference", typeID(value.VarRef))
	seed("Vocab", typeID(value.Vocab))

	seed("none", value.NoneValue)
	seed("saveAllowed", value.Int(0))
	seed("infobarLeft", value.Int(1))
	seed("infobarRight", value.Int(2))
	seed("infobarFooter", value.Int(3))
	seed("infobarTitle", value.Int(4))
	seed("true", value.Int(1))
	seed("false", value.Int(0))

	g.InternProperty("(invalid)")
	g.InternProperty("internal_name")
	g.InternProperty("ident")
	g.InternProperty("parent")
	g.InternProperty("save")
	g.InternProperty("load")
}

// Translate runs the full translation pass over g, per spec.md §4.3:
//  1. collapse every flagset's members into a single Integer
//  2. promote pending `default` entries into the symbol table
//  3. resolve every Symbol-tagged Value across every arena
//  4. build the object containment tree from `parent` properties
//
// Errors are recorded on g.Errors; Translate never panics on bad input.
func Translate(g *gamedata.GameData) {
	g.SortVocab()
	resolveFlagSets(g)
	g.PromoteDefaults()
	resolveDefaultSymbolForwarding(g)
	resolveArenaValues(g)
	buildObjectTree(g)
	sortObjectProperties(g)
	checkIdentsUnique(g)
}

// checkIdentsUnique enforces spec.md §3's invariant that the `ident`
// property, when present, is a unique positive integer across every object.
func checkIdentsUnique(g *gamedata.GameData) {
	identPropID := g.InternProperty("ident")
	seen := make(map[int32]int32)
	for _, obj := range g.Objects {
		if obj.GlobalID == 0 {
			continue
		}
		v, ok := obj.GetProperty(identPropID)
		if !ok {
			continue
		}
		if v.Tag != value.Integer || v.Payload <= 0 {
			g.Errors.Errorf(originOf(obj.Origin), "object ident must be a positive integer")
			continue
		}
		if prior, exists := seen[v.Payload]; exists {
			g.Errors.Errorf(originOf(obj.Origin), "duplicate object ident %d (also used by object %d)", v.Payload, prior)
			continue
		}
		seen[v.Payload] = obj.GlobalID
	}
}

// resolveFlagSets implements step 1: translate each flagset member to
// Integer and OR them into FinalValue.
func resolveFlagSets(g *gamedata.GameData) {
	for _, fs := range g.FlagSets {
		var result int32
		for i, v := range fs.Members {
			resolved, ok := translateValue(g, v, fs.Origin)
			fs.Members[i] = resolved
			if resolved.Tag == value.Integer {
				result |= resolved.Payload
			} else if ok {
				g.Errors.Errorf(originOf(fs.Origin), "flag values must be integers")
			}
		}
		fs.FinalValue = result
		fs.Resolved = true
	}
}

// resolveDefaultSymbolForwarding handles the case translate.cpp's
// translate_symbols loop special-cases: a `default NAME V` where V was
// itself still a Symbol at promotion time (PromoteDefaults copies the raw
// Value verbatim) needs a second lookup against the now-more-complete
// symbol table, reporting "default value is undefined" rather than the
// generic "undefined symbol" if that second lookup also fails.
func resolveDefaultSymbolForwarding(g *gamedata.GameData) {
	for name, def := range g.Defaults {
		cur, ok := g.Symbols[name]
		if !ok || cur.Tag != value.Symbol {
			continue
		}
		real, found := g.Symbols[cur.Text]
		if !found {
			g.Errors.Errorf(originOf(def.Origin), "default value for %s is undefined value %s", name, cur.Text)
			continue
		}
		g.Symbols[name] = real
	}
}

// resolveArenaValues implements step 3: every Symbol-tagged Value in every
// object property, list item, map key/value and global symbol is resolved
// against the symbol table.
func resolveArenaValues(g *gamedata.GameData) {
	for name, v := range g.Symbols {
		switch v.Tag {
		case value.FlagSet:
			resolved, ok := translateValue(g, v, token.Origin{})
			if ok && resolved.Tag != value.Integer {
				g.Errors.Errorf(diag.Origin{}, "invalid value in flag set %s", name)
			}
			g.Symbols[name] = resolved
		case value.Vocab, value.Symbol:
			resolved, _ := translateValue(g, v, token.Origin{})
			g.Symbols[name] = resolved
		}
	}

	for _, obj := range g.Objects {
		for i, p := range obj.Properties {
			resolved, _ := translateValue(g, p.Value, obj.Origin)
			obj.Properties[i].Value = resolved
		}
	}
	for _, l := range g.Lists {
		for i, v := range l.Items {
			resolved, _ := translateValue(g, v, l.Origin)
			l.Items[i] = resolved
		}
	}
	for _, m := range g.Maps {
		for i, row := range m.Rows {
			k, _ := translateValue(g, row.Key, m.Origin)
			v, _ := translateValue(g, row.Val, m.Origin)
			m.Rows[i] = gamedata.MapRow{Key: k, Val: v}
		}
	}
}

// translateValue resolves a single Value: FlagSet collapses to its final
// Integer, Symbol resolves against the global table (recording one error
// per undefined occurrence), everything else passes through unchanged. The
// bool result reports whether resolution succeeded (false only for an
// undefined symbol, so callers can skip a secondary "must be integer"-style
// error on top of the primary one).
func translateValue(g *gamedata.GameData, v value.Value, origin token.Origin) (value.Value, bool) {
	if v.Tag == value.FlagSet {
		fs := g.FlagSets[v.Payload]
		return value.Int(fs.FinalValue), true
	}
	if v.Tag != value.Symbol {
		if v.Tag == value.Vocab && v.Text != "" {
			idx, ok := g.VocabIndex(v.Text)
			if !ok {
				g.Errors.Errorf(originOf(origin), "undefined vocab word %q", v.Text)
				return v, false
			}
			return value.Value{Tag: value.Vocab, Payload: idx}, true
		}
		return v, true
	}
	resolved, ok := g.LookupSymbol(v.Text)
	if !ok {
		g.Errors.Errorf(originOf(origin), "undefined symbol %q", v.Text)
		return value.NoneValue, false
	}
	return resolved, true
}

func originOf(o token.Origin) diag.Origin { return diag.Origin{File: o.File, Line: o.Line} }

// buildObjectTree implements step 4: every object with a resolved `parent`
// property is linked into the containment tree, newest insertion becoming
// the new first child (spec.md §4.3 step 4, §9).
func buildObjectTree(g *gamedata.GameData) {
	parentPropID := g.InternProperty("parent")
	for _, obj := range g.Objects {
		if obj.GlobalID == 0 {
			continue
		}
		parentVal, ok := obj.GetProperty(parentPropID)
		if !ok || parentVal.Tag != value.Object {
			continue
		}
		parent := g.Objects[parentVal.Payload]
		gamedata.LinkChild(parent, obj)
	}
}

// sortObjectProperties orders every object's properties by ascending id,
// per spec.md §3 ("Properties are stored sorted by id after parsing").
func sortObjectProperties(g *gamedata.GameData) {
	for _, obj := range g.Objects {
		obj.SortProperties()
	}
}

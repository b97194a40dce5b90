// Package gamefile implements the binary gamefile encoder and decoder
// described in spec.md §6.1, grounded on original_source/builder/generate.cpp
// (encoder) and original_source/runner/loadgame.cpp (decoder). The two
// retained source snapshots disagree on the exact section set (the runner
// snapshot predates the vocab section and the object parent/child/sibling
// links); spec.md §6.1 is authoritative and this package follows it exactly.
package gamefile

import (
	"time"

	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/bytestream"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// magic is FILETYPE_ID from original_source/builder/generate.cpp. Written
// little-endian, it puts the ASCII bytes "TRPG" at the start of the file.
const magic uint32 = 0x47505254

const formatVersion uint32 = 0

const headerSize = 64

// stringXORKey obfuscates every stored string byte, per spec.md §6.1.
const stringXORKey = 0x7B

// Encode builds a gamefile image for g, per spec.md §6.1. now is the build
// number stamped into the header (a unix timestamp); passed in rather than
// read from the clock so encoding stays deterministic and testable.
func Encode(g *gamedata.GameData, now time.Time) []byte {
	out := bytestream.New()

	mainID := requireSymbol(g, "main", value.Function)
	title := requireSymbol(g, "TITLE", value.String)
	author := requireSymbol(g, "AUTHOR", value.String)
	version := requireSymbol(g, "VERSION", value.Integer)
	gameID := requireSymbol(g, "GAMEID", value.String)

	out.Add32(magic)
	out.Add32(formatVersion)
	out.Add32(uint32(mainID))
	out.Add32(0) // flags, reserved
	out.Add32(uint32(title))
	out.Add32(uint32(author))
	out.Add32(uint32(version))
	out.Add32(uint32(gameID))
	out.Add32(uint32(now.Unix()))
	out.PadTo(headerSize)

	// Origins reference their source file by string id; intern every one seen
	// across the arenas now, before the strings section is written, exactly
	// as original_source/builder/parse_main.cpp interns filenames as it parses
	// (gamedata.getStringId(origin.file)) rather than deferring it to encode
	// time. Doing it here instead keeps the parser/translator free of any
	// encoder-only bookkeeping.
	internOrigins(g)

	code := layoutBytecode(g)

	writeStrings(out, g)
	writeVocab(out, g)
	writeLists(out, g)
	writeMaps(out, g)
	writeObjects(out, g)
	writeFunctions(out, g)
	out.Add32(uint32(code.Size()))
	out.Append(code)

	return out.Bytes()
}

func internOrigins(g *gamedata.GameData) {
	intern := func(o token.Origin) { g.InternString(o.File, o) }
	for _, l := range g.Lists[1:] {
		intern(l.Origin)
	}
	for _, m := range g.Maps[1:] {
		intern(m.Origin)
	}
	for _, o := range g.Objects[1:] {
		intern(o.Origin)
	}
	for _, f := range g.Functions[1:] {
		intern(f.Origin)
	}
}

func requireSymbol(g *gamedata.GameData, name string, want value.Tag) int32 {
	v, ok := g.LookupSymbol(name)
	if !ok {
		g.Errors.Errorf(diag.Origin{}, "symbol %s not defined", name)
		return 0
	}
	if v.Tag != want {
		g.Errors.Errorf(diag.Origin{}, "symbol %s must be %s", name, want)
		return 0
	}
	return v.Payload
}

func writeStr(out *bytestream.Stream, text string) {
	out.Add16(uint16(len(text)))
	for i := 0; i < len(text); i++ {
		out.Add8(text[i] ^ stringXORKey)
	}
}

func writeStrings(out *bytestream.Stream, g *gamedata.GameData) {
	out.Add32(uint32(len(g.Strings)))
	for _, s := range g.Strings {
		writeStr(out, s.Text)
	}
}

func writeVocab(out *bytestream.Stream, g *gamedata.GameData) {
	out.Add32(uint32(len(g.Vocab)))
	for _, w := range g.Vocab {
		writeStr(out, w)
	}
}

func writeValue(out *bytestream.Stream, v value.Value) {
	out.Add8(uint8(v.Tag))
	out.Add32(uint32(v.Payload))
}

func writeLists(out *bytestream.Stream, g *gamedata.GameData) {
	out.Add32(uint32(len(g.Lists) - 1))
	for _, l := range g.Lists[1:] {
		out.Add32(originStringID(g, l.Origin))
		out.Add32(uint32(l.Origin.Line))
		out.Add32(uint32(l.GlobalID))
		out.Add16(uint16(len(l.Items)))
		for _, item := range l.Items {
			writeValue(out, item)
		}
	}
}

func writeMaps(out *bytestream.Stream, g *gamedata.GameData) {
	out.Add32(uint32(len(g.Maps) - 1))
	for _, m := range g.Maps[1:] {
		out.Add32(originStringID(g, m.Origin))
		out.Add32(uint32(m.Origin.Line))
		out.Add32(uint32(m.GlobalID))
		out.Add16(uint16(len(m.Rows)))
		for _, row := range m.Rows {
			writeValue(out, row.Key)
			writeValue(out, row.Val)
		}
	}
}

func writeObjects(out *bytestream.Stream, g *gamedata.GameData) {
	out.Add32(uint32(len(g.Objects) - 1))
	for _, o := range g.Objects[1:] {
		out.Add32(uint32(o.NameStringID))
		out.Add32(originStringID(g, o.Origin))
		out.Add32(uint32(o.Origin.Line))
		out.Add32(uint32(o.GlobalID))
		out.Add32(uint32(o.ParentID))
		out.Add32(uint32(o.ChildID))
		out.Add32(uint32(o.SiblingID))
		out.Add16(uint16(len(o.Properties)))
		for _, p := range o.Properties {
			out.Add16(uint16(p.ID))
			writeValue(out, p.Value)
		}
	}
}

func writeFunctions(out *bytestream.Stream, g *gamedata.GameData) {
	out.Add32(uint32(len(g.Functions) - 1))
	for _, f := range g.Functions[1:] {
		out.Add32(uint32(f.NameStringID))
		out.Add32(originStringID(g, f.Origin))
		out.Add32(uint32(f.Origin.Line))
		out.Add32(uint32(f.GlobalID))
		out.Add16(uint16(f.ArgCount))
		out.Add16(uint16(f.LocalCount))
		// f.Locals holds [self, declared arguments..., declared locals...];
		// ArgCount already counts self, so only the trailing LocalCount
		// entries (the `local` section, not arguments) get a declaredTypeTag
		// byte, per spec.md §6.1.
		for _, local := range f.Locals[f.ArgCount:] {
			out.Add8(uint8(local.DeclaredType))
		}
		out.Add32(uint32(f.CodePosition))
	}
}

// layoutBytecode concatenates every function's own code stream into the
// shared bytecode section, fixing each function's CodePosition as it goes,
// per spec.md §3 Invariants ("4-byte aligned... within the concatenated
// bytecode section"). It must run before writeFunctions, which persists the
// positions this assigns.
func layoutBytecode(g *gamedata.GameData) *bytestream.Stream {
	code := bytestream.New()
	for _, f := range g.Functions[1:] {
		f.CodePosition = code.Size()
		code.Append(f.Code)
		code.PadTo(4)
	}
	return code
}

func originStringID(g *gamedata.GameData, o token.Origin) uint32 {
	return uint32(g.InternString(o.File, o))
}

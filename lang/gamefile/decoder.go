package gamefile

import (
	"fmt"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// Header is the fixed 64-byte gamefile header, decoded once at load time.
type Header struct {
	MainFunctionID int32
	TitleStringID  int32
	AuthorStringID int32
	VersionInt     int32
	GameIDStringID int32
	BuildNumber    uint32
}

// reader walks a gamefile image left to right; it never seeks backward,
// matching the runner's original single-pass std::ifstream reads in
// original_source/runner/loadgame.cpp.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.fail("unexpected end of gamefile at offset %d (need %d more bytes)", r.pos, n)
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := uint16(r.data[r.pos]) | uint16(r.data[r.pos+1])<<8
	r.pos += 2
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := uint32(r.data[r.pos]) | uint32(r.data[r.pos+1])<<8 |
		uint32(r.data[r.pos+2])<<16 | uint32(r.data[r.pos+3])<<24
	r.pos += 4
	return v
}

func (r *reader) str() string {
	n := int(r.u16())
	if !r.need(n) {
		return ""
	}
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = r.data[r.pos+i] ^ stringXORKey
	}
	r.pos += n
	return string(buf)
}

func (r *reader) value() value.Value {
	tag := value.Tag(r.u8())
	payload := int32(r.u32())
	return value.Value{Tag: tag, Payload: payload}
}

// Decode parses a gamefile image into a fresh GameData, per spec.md §6.1.
// The returned GameData's arenas are populated directly at their on-disk
// indices (no interning pass: a gamefile's strings/vocab/etc. are already
// deduplicated by the encoder that produced it), and its Static<Kind>
// counters are set to the loaded arena lengths, per spec.md §3 Lifecycles.
func Decode(data []byte) (*gamedata.GameData, Header, error) {
	r := &reader{data: data}

	if r.u32() != magic {
		return nil, Header{}, fmt.Errorf("gamefile: not a valid gamefile (bad magic number)")
	}
	if v := r.u32(); v != formatVersion {
		return nil, Header{}, fmt.Errorf("gamefile: format version %d is not supported (want %d)", v, formatVersion)
	}

	hdr := Header{}
	hdr.MainFunctionID = int32(r.u32())
	_ = r.u32() // flags, reserved
	hdr.TitleStringID = int32(r.u32())
	hdr.AuthorStringID = int32(r.u32())
	hdr.VersionInt = int32(r.u32())
	hdr.GameIDStringID = int32(r.u32())
	hdr.BuildNumber = r.u32()
	r.pos = headerSize

	g := gamedata.New()
	g.Strings = g.Strings[:0]
	g.Lists = g.Lists[:1]
	g.Maps = g.Maps[:1]
	g.Objects = g.Objects[:1]
	g.Functions = g.Functions[:1]

	readStrings(r, g)
	readVocab(r, g)
	readLists(r, g)
	readMaps(r, g)
	readObjects(r, g)
	readFunctions(r, g)
	readBytecode(r, g)

	if r.err != nil {
		return nil, Header{}, r.err
	}
	if r.pos != len(r.data) {
		return nil, Header{}, fmt.Errorf("gamefile: %d trailing bytes after bytecode section", len(r.data)-r.pos)
	}

	g.StaticStrings = len(g.Strings)
	g.StaticLists = len(g.Lists)
	g.StaticMaps = len(g.Maps)
	g.StaticObjects = len(g.Objects)
	g.StaticFunctions = len(g.Functions)
	g.SortVocab()

	return g, hdr, nil
}

func readStrings(r *reader, g *gamedata.GameData) {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		g.Strings = append(g.Strings, gamedata.StringEntry{Text: r.str()})
	}
}

func readVocab(r *reader, g *gamedata.GameData) {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		g.Vocab = append(g.Vocab, r.str())
	}
}

func readLists(r *reader, g *gamedata.GameData) {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		l := &gamedata.List{}
		srcFile := int32(r.u32())
		line := int(r.u32())
		l.GlobalID = int32(r.u32())
		l.Origin = originFromStringID(g, srcFile, line)
		count := int(r.u16())
		for j := 0; j < count; j++ {
			l.Items = append(l.Items, r.value())
		}
		g.Lists = append(g.Lists, l)
	}
}

func readMaps(r *reader, g *gamedata.GameData) {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		m := &gamedata.Map{}
		srcFile := int32(r.u32())
		line := int(r.u32())
		m.GlobalID = int32(r.u32())
		m.Origin = originFromStringID(g, srcFile, line)
		count := int(r.u16())
		for j := 0; j < count; j++ {
			m.Rows = append(m.Rows, gamedata.MapRow{Key: r.value(), Val: r.value()})
		}
		g.Maps = append(g.Maps, m)
	}
}

func readObjects(r *reader, g *gamedata.GameData) {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		o := &gamedata.Object{}
		o.NameStringID = int32(r.u32())
		srcFile := int32(r.u32())
		line := int(r.u32())
		o.GlobalID = int32(r.u32())
		o.Origin = originFromStringID(g, srcFile, line)
		o.ParentID = int32(r.u32())
		o.ChildID = int32(r.u32())
		o.SiblingID = int32(r.u32())
		count := int(r.u16())
		for j := 0; j < count; j++ {
			id := uint32(r.u16())
			o.Properties = append(o.Properties, gamedata.Property{ID: id, Value: r.value()})
		}
		g.Objects = append(g.Objects, o)
	}
}

func readFunctions(r *reader, g *gamedata.GameData) {
	n := int(r.u32())
	for i := 0; i < n; i++ {
		f := &gamedata.Function{Labels: map[string]int{}}
		f.NameStringID = int32(r.u32())
		srcFile := int32(r.u32())
		line := int(r.u32())
		f.GlobalID = int32(r.u32())
		f.Origin = originFromStringID(g, srcFile, line)
		f.ArgCount = int(r.u16())
		f.LocalCount = int(r.u16())
		// ArgCount already counts the hidden self local; neither it nor the
		// other arguments carry a declaredTypeTag byte in the gamefile (only
		// the trailing `local`-section slots do), so they're reconstructed
		// as untyped placeholders here. Names aren't persisted at all: the
		// VM addresses locals by slot index, never by name.
		f.Locals = append(f.Locals, make([]gamedata.Local, f.ArgCount)...)
		for j := 0; j < f.LocalCount; j++ {
			f.Locals = append(f.Locals, gamedata.Local{DeclaredType: value.Tag(r.u8())})
		}
		f.CodePosition = int(r.u32())
		g.Functions = append(g.Functions, f)
	}
}

// readBytecode reads the shared bytecode section verbatim into g.Bytecode.
// Functions address it by CodePosition at VM execution time; it is never
// re-split into per-function streams (original_source/runner/loadgame.cpp's
// VM addresses one flat vector the same way).
func readBytecode(r *reader, g *gamedata.GameData) {
	size := int(r.u32())
	if !r.need(size) {
		return
	}
	g.Bytecode = append([]byte(nil), r.data[r.pos:r.pos+size]...)
	r.pos += size
}

func originFromStringID(g *gamedata.GameData, stringID int32, line int) token.Origin {
	file := ""
	if stringID >= 0 && int(stringID) < len(g.Strings) {
		file = g.Strings[stringID].Text
	}
	return token.Origin{File: file, Line: line}
}

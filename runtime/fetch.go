package runtime

import (
	"math/rand"
	"time"

	"github.com/gtrpe/quollvm/lang/value"
)

// fetch8/16/32 read little-endian immediates from the shared bytecode
// buffer at f.IP, advancing it — mirroring original_source/runner/
// runfunction.cpp's bytecode.read_8/read_16/read_32(IP) calls, but against
// gamedata.GameData.Bytecode (see lang/gamefile's flat-buffer design note)
// instead of a per-function stream.
func (t *Thread) fetch8(f *Frame) (value.Op, error) {
	if f.IP < 0 || f.IP >= len(t.Game.Bytecode) {
		return 0, errStr("read past end of bytecode")
	}
	b := t.Game.Bytecode[f.IP]
	f.IP++
	return value.Op(b), nil
}

func (t *Thread) rawByte(f *Frame) (byte, error) {
	if f.IP < 0 || f.IP >= len(t.Game.Bytecode) {
		return 0, errStr("read past end of bytecode")
	}
	b := t.Game.Bytecode[f.IP]
	f.IP++
	return b, nil
}

func (t *Thread) fetch16(f *Frame) (int32, error) {
	lo, err := t.rawByte(f)
	if err != nil {
		return 0, err
	}
	hi, err := t.rawByte(f)
	if err != nil {
		return 0, err
	}
	v := int32(uint16(lo) | uint16(hi)<<8)
	if v&0x8000 != 0 {
		v |= ^int32(0xFFFF)
	}
	return v, nil
}

func (t *Thread) fetch32(f *Frame) (int32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, err := t.rawByte(f)
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (8 * i)
	}
	return int32(v), nil
}

// randSource is the Random/GetRandom opcodes' entropy source, a thin wrapper
// so tests can swap it (original_source/runner/runfunction.cpp uses libc
// rand(), which is not reproducible to port literally; spec.md leaves the
// exact distribution unspecified beyond "in [min, max)").
type randSource interface {
	Intn(n int) int
}

func newRandSource() randSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

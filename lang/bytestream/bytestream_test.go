package bytestream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd16RoundTrip(t *testing.T) {
	s := New()
	s.Add16(1000)
	require.Equal(t, byte(232), s.Bytes()[0])
	require.Equal(t, 1000, s.Read16(0))
}

func TestPadTo(t *testing.T) {
	s := New()
	s.Add8(1)
	s.Add8(2)
	s.Add8(3)
	s.PadTo(4)
	require.Equal(t, 0, s.Size()%4)
	require.GreaterOrEqual(t, s.Size(), 3)

	before := s.Size()
	s.PadTo(4)
	require.Equal(t, before, s.Size(), "padTo never shrinks and is a no-op when already aligned")
}

func TestAppendConcatenatesInOrder(t *testing.T) {
	a := New()
	a.Add8(1)
	a.Add8(2)
	b := New()
	b.Add8(3)
	b.Add8(4)
	a.Append(b)
	require.Equal(t, []byte{1, 2, 3, 4}, a.Bytes())
}

func TestOverwrite32AffectsOnlyFourBytes(t *testing.T) {
	s := New()
	for i := 0; i < 12; i++ {
		s.Add8(0xAA)
	}
	s.Overwrite32(4, 0x01020304)
	require.Equal(t, 0x01020304, s.Read32(4))
	require.Equal(t, byte(0xAA), s.Bytes()[3])
	require.Equal(t, byte(0xAA), s.Bytes()[8])
}

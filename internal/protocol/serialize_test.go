package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundtrip(t *testing.T) {
	w := NewWriter(64)
	w.WriteU32(123456)
	w.WriteU16(42)
	w.WriteI16(-7)
	w.WriteString16("Trinity")
	w.WriteTQPassword(TQPassword{0x1C, 0xFD})

	r := NewReader(w.Bytes())
	require.Equal(t, uint32(123456), r.ReadU32())
	require.Equal(t, uint16(42), r.ReadU16())
	require.Equal(t, int16(-7), r.ReadI16())
	require.Equal(t, String16("Trinity"), r.ReadString16())
	require.Equal(t, TQPassword{0x1C, 0xFD}, r.ReadTQPassword())
	require.NoError(t, r.Done())
}

func TestReaderBadLengthShort(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	r.ReadU32()
	require.Error(t, r.Err())
	require.True(t, errors.Is(r.Err(), ErrBadLength))
}

func TestReaderBadLengthLeftover(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	r.ReadU32()
	require.NoError(t, r.Err())
	require.ErrorIs(t, r.Done(), ErrBadLength)
}

func TestString16TruncatesAtNull(t *testing.T) {
	w := NewWriter(16)
	w.WriteString16("abc")
	r := NewReader(w.Bytes())
	require.Equal(t, String16("abc"), r.ReadString16())
}

func TestString16TruncatesOverlong(t *testing.T) {
	w := NewWriter(16)
	w.WriteString16(String16("this name is definitely far too long"))
	require.Len(t, w.Bytes(), String16Size)
}

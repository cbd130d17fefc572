package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tqserver/core/internal/cipher"
)

type packet struct {
	id      uint16
	payload []byte
}

func encodeAll(t *testing.T, c cipher.Cipher, ps []packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf, c)
	for _, p := range ps {
		require.NoError(t, enc.Encode(p.id, p.payload))
	}
	return buf.Bytes()
}

// chunkReader serves a fixed byte slice broken at a configurable split
// point, to exercise the decoder's buffering across arbitrary TCP
// segment boundaries (spec.md §8 "Frame stability").
type chunkReader struct {
	data  []byte
	sizes []int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.sizes) == 0 {
		if len(r.data) == 0 {
			return 0, io.EOF
		}
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	n := r.sizes[0]
	r.sizes = r.sizes[1:]
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copied := copy(p, r.data[:n])
	r.data = r.data[copied:]
	return copied, nil
}

func decodeAll(t *testing.T, c cipher.Cipher, r io.Reader) []packet {
	t.Helper()
	dec := NewDecoder(r, c)
	var out []packet
	for {
		id, payload, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, packet{id: id, payload: payload})
	}
	return out
}

func TestRoundtrip(t *testing.T) {
	ps := []packet{
		{id: 1, payload: []byte("hello")},
		{id: 2, payload: []byte{}},
		{id: 3, payload: bytes.Repeat([]byte{0x42}, 200)},
	}
	wire := encodeAll(t, cipher.NewTQCipher(55), ps)
	got := decodeAll(t, cipher.NewTQCipher(55), bytes.NewReader(wire))
	require.Equal(t, ps, got)
}

func TestFrameStabilityAcrossSplits(t *testing.T) {
	ps := []packet{
		{id: 10, payload: []byte("first frame")},
		{id: 11, payload: bytes.Repeat([]byte{0x01, 0x02}, 10)},
		{id: 12, payload: []byte("third")},
	}
	wire := encodeAll(t, cipher.NewTQCipher(7), ps)

	for split := 0; split <= len(wire); split++ {
		r := &chunkReader{data: append([]byte(nil), wire...), sizes: []int{split}}
		got := decodeAll(t, cipher.NewTQCipher(7), r)
		require.Equal(t, ps, got, "split at byte %d", split)
	}
}

func TestFrameStabilityOneByteAtATime(t *testing.T) {
	ps := []packet{
		{id: 20, payload: []byte("x")},
		{id: 21, payload: []byte("two")},
	}
	wire := encodeAll(t, cipher.NewTQCipher(3), ps)
	sizes := make([]int, len(wire))
	for i := range sizes {
		sizes[i] = 1
	}
	r := &chunkReader{data: append([]byte(nil), wire...), sizes: sizes}
	got := decodeAll(t, cipher.NewTQCipher(3), r)
	require.Equal(t, ps, got)
}

func TestDecoderRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, cipher.NopCipher{})
	// Craft a header claiming a too-large length without actually
	// calling Encode (which itself refuses oversized frames).
	huge := make([]byte, MaxFrame+1-HeaderSize)
	raw := append([]byte{0, 0, 0, 0}, huge...)
	raw[0] = byte(MaxFrame + 1)
	raw[1] = byte((MaxFrame + 1) >> 8)
	_ = enc
	dec := NewDecoder(bytes.NewReader(raw), cipher.NopCipher{})
	_, _, err := dec.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoderEOFMidFrame(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, cipher.NopCipher{})
	require.NoError(t, enc.Encode(1, []byte("hello world")))
	truncated := buf.Bytes()[:6]
	dec := NewDecoder(bytes.NewReader(truncated), cipher.NopCipher{})
	_, _, err := dec.Next()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCipherLengthPreserved(t *testing.T) {
	c := cipher.NewTQCipher(42)
	for _, n := range []int{0, 1, 7, 64, 513} {
		src := bytes.Repeat([]byte{0x5A}, n)
		dst := make([]byte, n)
		c.Encrypt(dst, src)
		require.Len(t, dst, n)
	}
}

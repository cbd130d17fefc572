// Package protocol implements the length-prefixed, cipher-framed wire
// transport (spec.md §4.2) and the little-endian fixed-layout struct
// codec (spec.md §4.3) used to turn packet payloads into typed Go
// structs and back.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadLength is returned when a payload's length does not match the
// struct layout being decoded exactly — spec.md §4.3.
var ErrBadLength = errors.New("protocol: payload length does not match struct layout")

// String16Size is the fixed wire width of a String16 field: 16 bytes,
// null-padded ASCII.
const String16Size = 16

// TQPasswordSize is the fixed wire width of a TQPassword field: 16 raw
// ciphertext bytes the receiver decrypts with RC5 before use.
const TQPasswordSize = 16

// String16 is a fixed-16-byte, null-padded ASCII string field.
type String16 string

// TQPassword holds the 16 raw RC5-ciphertext bytes of a submitted
// password, undecrypted. Callers decrypt with cipher.RC5Cipher and trim
// trailing NULs to recover the plaintext.
type TQPassword [TQPasswordSize]byte

// Reader decodes a little-endian, fixed-layout struct body. All Read*
// methods are infallible to call in sequence; the first out-of-bounds
// read latches an error returned by Err, mirroring the "no framing, no
// tags" contract in spec.md §4.3 — a short payload surfaces as
// ErrBadLength once, at the end of decoding, rather than requiring every
// call site to check length itself.
type Reader struct {
	buf []byte
	pos int
	err error
}

// NewReader wraps buf for sequential little-endian decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first decode error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Done reports whether the entire buffer was consumed with no error —
// the exact-layout-match requirement from spec.md §4.3.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.pos != len(r.buf) {
		return fmt.Errorf("%w: %d bytes left over", ErrBadLength, len(r.buf)-r.pos)
	}
	return nil
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrBadLength, n, len(r.buf)-r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) ReadU8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadU64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }
func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

func (r *Reader) ReadString16() String16 {
	b := r.take(String16Size)
	if b == nil {
		return ""
	}
	end := String16Size
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	return String16(b[:end])
}

func (r *Reader) ReadTQPassword() TQPassword {
	var pw TQPassword
	b := r.take(TQPasswordSize)
	if b == nil {
		return pw
	}
	copy(pw[:], b)
	return pw
}

func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Writer builds a little-endian, fixed-layout struct body with no
// framing and no tags — fields are simply concatenated in the order
// written.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with size as the initial capacity hint.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

// WriteString16 null-pads s to String16Size bytes. s longer than
// String16Size is truncated.
func (w *Writer) WriteString16(s String16) {
	var b [String16Size]byte
	copy(b[:], s)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteTQPassword(pw TQPassword) {
	w.buf = append(w.buf, pw[:]...)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tqserver/core/internal/cipher"
)

// ErrFrameTooLarge is a fatal protocol error: the decoder refuses to
// buffer a frame whose declared length exceeds MaxFrame (spec.md §4.2,
// Open Question 4).
var ErrFrameTooLarge = errors.New("protocol: frame exceeds MaxFrame")

// Decoder turns a cipher-framed byte stream into a sequence of
// (id, payload) packets, buffering across arbitrary TCP segment
// boundaries (spec.md §4.2).
type Decoder struct {
	r      io.Reader
	cipher cipher.Cipher

	buf        []byte
	haveHeader bool
	length     int // total frame length, header included
	id         uint16

	scratch [4096]byte
}

// NewDecoder wraps r, decrypting every frame with c. c is shared by
// reference with the Encoder on the same connection and with whatever
// issues GenerateKeys — see internal/actor for the rekey-ordering
// contract this depends on.
func NewDecoder(r io.Reader, c cipher.Cipher) *Decoder {
	return &Decoder{r: r, cipher: c, buf: make([]byte, 0, 64)}
}

// Next returns the next (id, payload) pair, or io.EOF on a clean stream
// end (empty buffer, no frame in progress). An EOF encountered mid-frame
// is reported as io.ErrUnexpectedEOF.
func (d *Decoder) Next() (uint16, []byte, error) {
	for {
		if !d.haveHeader && len(d.buf) >= HeaderSize {
			header := make([]byte, HeaderSize)
			d.cipher.Decrypt(header, d.buf[:HeaderSize])
			length := binary.LittleEndian.Uint16(header[0:2])
			if length < HeaderSize {
				return 0, nil, fmt.Errorf("protocol: invalid frame length %d", length)
			}
			if int(length) > MaxFrame {
				return 0, nil, ErrFrameTooLarge
			}
			d.length = int(length)
			d.id = binary.LittleEndian.Uint16(header[2:4])
			d.buf = d.buf[HeaderSize:]
			d.haveHeader = true
		}

		if d.haveHeader {
			payloadLen := d.length - HeaderSize
			if len(d.buf) >= payloadLen {
				payload := make([]byte, payloadLen)
				d.cipher.Decrypt(payload, d.buf[:payloadLen])
				d.buf = d.buf[payloadLen:]
				d.haveHeader = false
				id := d.id
				return id, payload, nil
			}
		}

		n, err := d.r.Read(d.scratch[:])
		if n > 0 {
			d.buf = append(d.buf, d.scratch[:n]...)
			continue // try to make progress on buffered bytes before surfacing err
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(d.buf) == 0 && !d.haveHeader {
					return 0, nil, io.EOF
				}
				return 0, nil, fmt.Errorf("protocol: %w", io.ErrUnexpectedEOF)
			}
			return 0, nil, err
		}
	}
}

// Encoder frames and encrypts outbound (id, payload) packets.
type Encoder struct {
	w      io.Writer
	cipher cipher.Cipher
}

// NewEncoder wraps w, encrypting every frame with c.
func NewEncoder(w io.Writer, c cipher.Cipher) *Encoder {
	return &Encoder{w: w, cipher: c}
}

// Encode writes one frame: length header, id, payload, encrypted in a
// single pass over the whole frame (spec.md §4.2).
func (e *Encoder) Encode(id uint16, payload []byte) error {
	total := HeaderSize + len(payload)
	if total > MaxFrame {
		return ErrFrameTooLarge
	}
	buf := make([]byte, total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(total))
	binary.LittleEndian.PutUint16(buf[2:4], id)
	copy(buf[HeaderSize:], payload)
	e.cipher.Encrypt(buf, buf)
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("protocol: writing frame: %w", err)
	}
	return nil
}

// Close shuts the write half if the underlying writer supports it.
func (e *Encoder) Close() error {
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

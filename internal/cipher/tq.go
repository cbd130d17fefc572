package cipher

import "encoding/binary"

// tqBase is the fixed 4-byte constant that opens every TQ cipher key
// table, independent of the per-session seed.
var tqBase = [4]byte{0x4B, 0x43, 0x51, 0x54}

const tqTableSize = 12

// TQCipher is the two-stage XOR stream cipher used for ordinary game and
// auth packet framing. Stage one XORs each byte against a 12-byte key
// table (the fixed constant plus two seed-derived 32-bit words) indexed
// by the byte's position in the overall cipher stream — not by its
// position within whatever single Encrypt/Decrypt call produced it, so
// that decoding a frame's header and payload in two separate Decrypt
// calls (spec.md §4.2) yields exactly the same bytes as encoding the
// same frame in one Encrypt call. Stage two XORs against the previous
// ciphertext byte, self-synchronising like the teacher's GameCrypt
// rolling XOR cipher. Encrypt and Decrypt keep independent running
// positions and feedback bytes, since a connection encrypts in one
// direction while decrypting in the other; GenerateKeys reseeds both
// from the same seed and resets both positions to 0.
type TQCipher struct {
	outTable [tqTableSize]byte
	inTable  [tqTableSize]byte
	outPos   uint64
	inPos    uint64
	outPrev  byte
	inPrev   byte
}

// NewTQCipher builds a cipher keyed from seed. A seed of 0 leaves the
// fixed constant as the only nonzero key material. The zero TQCipher
// value has an all-zero key table until GenerateKeys is called.
func NewTQCipher(seed uint64) *TQCipher {
	c := &TQCipher{}
	c.GenerateKeys(Seed{U64: seed})
	return c
}

// GenerateKeys rekeys the cipher in place from seed.U64, splitting it into
// two 32-bit words appended after the fixed 4-byte constant, and resets
// both stream positions. Per spec.md §4.1 this is called exactly once
// per session, mid-stream, between a specific request/response pair.
func (c *TQCipher) GenerateKeys(seed Seed) {
	var table [tqTableSize]byte
	copy(table[0:4], tqBase[:])
	binary.LittleEndian.PutUint32(table[4:8], uint32(seed.U64))
	binary.LittleEndian.PutUint32(table[8:12], uint32(seed.U64>>32))
	c.outTable = table
	c.inTable = table
	c.outPos = 0
	c.inPos = 0
	c.outPrev = 0
	c.inPrev = 0
}

// Encrypt is length-preserving and safe with dst == src (in-place).
func (c *TQCipher) Encrypt(dst, src []byte) {
	prev := c.outPrev
	pos := c.outPos
	for i, b := range src {
		out := b ^ c.outTable[(pos+uint64(i))%tqTableSize] ^ prev
		dst[i] = out
		prev = out
	}
	c.outPrev = prev
	c.outPos = pos + uint64(len(src))
}

// Decrypt is length-preserving and safe with dst == src (in-place).
func (c *TQCipher) Decrypt(dst, src []byte) {
	prev := c.inPrev
	pos := c.inPos
	for i, b := range src {
		out := b ^ c.inTable[(pos+uint64(i))%tqTableSize] ^ prev
		prev = b
		dst[i] = out
	}
	c.inPrev = prev
	c.inPos = pos + uint64(len(src))
}

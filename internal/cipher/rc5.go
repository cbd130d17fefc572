package cipher

import "encoding/binary"

// rc5Rounds is the round count (RC5-32/12) used by the TQ Digital login
// handshake.
const rc5Rounds = 12

// rc5SubKeySeed is the fixed 26-word round-key schedule the Conquer
// Online client and server share. Unlike textbook RC5, the schedule is
// not expanded from a secret password at connect time — it is baked
// into both ends ahead of time, so GenerateKeys is a no-op (see
// spec.md §4.1). Test vector in spec.md §8 scenario 1 pins these
// exact values.
var rc5SubKeySeed = [26]uint32{
	0xA9915556, 0x48E44110, 0x9F32308F, 0x27F41D3E,
	0xCF4F3523, 0xEAC3C6B4, 0xE9EA5E03, 0xE5974BBA,
	0x334D7692, 0x2C6BCF2E, 0x0DC53B74, 0x995C92A6,
	0x7E4F6D77, 0x1EB2B79F, 0x1D348D89, 0xED641354,
	0x15E04A9D, 0x488DA159, 0x647817D3, 0x8CA0BC20,
	0x9264F7FE, 0x91E78C6C, 0x5C9A07FB, 0xABD4DCCE,
	0x6416F98D, 0x6642AB5B,
}

// RC5Cipher decrypts the RC5-32/12 ciphertext the client submits for its
// login password. The server never encrypts with it — the client is the
// only RC5 encryptor in this protocol — so Encrypt is unimplemented and
// GenerateKeys is a no-op, matching the Cipher capability contract in
// spec.md §4.1.
type RC5Cipher struct {
	sub [26]uint32
}

// NewRC5Cipher returns an RC5 cipher keyed from the fixed schedule.
func NewRC5Cipher() *RC5Cipher {
	return &RC5Cipher{sub: rc5SubKeySeed}
}

func (c *RC5Cipher) GenerateKeys(Seed) {}

// Encrypt is not part of this protocol's RC5 usage; it copies src to dst
// unchanged so the Cipher interface remains total.
func (c *RC5Cipher) Encrypt(dst, src []byte) {
	copyBytes(dst, src)
}

// Decrypt decrypts src into dst, 8-byte block at a time, zero-padding
// dst for a final partial block the way the reference implementation
// does (the TQ password field is always exactly 16 bytes in practice).
func (c *RC5Cipher) Decrypt(dst, src []byte) {
	if len(dst) != len(src) {
		panic("cipher: RC5 decrypt requires len(dst) == len(src)")
	}
	copy(dst, src)
	blocks := len(src) / 8
	if len(src)%8 > 0 {
		blocks++
	}
	for word := 0; word < blocks; word++ {
		off := word * 8
		a := leUint32(dst, off)
		b := leUint32(dst, off+4)
		for round := rc5Rounds; round >= 1; round-- {
			b = rotateRight(b-c.sub[2*round+1], a) ^ a
			a = rotateRight(a-c.sub[2*round], b) ^ b
		}
		a -= c.sub[0]
		b -= c.sub[1]
		putLEUint32(dst, off, a)
		putLEUint32(dst, off+4, b)
	}
}

func leUint32(b []byte, off int) uint32 {
	if off+4 > len(b) {
		var tmp [4]byte
		copy(tmp[:], b[off:])
		return binary.LittleEndian.Uint32(tmp[:])
	}
	return binary.LittleEndian.Uint32(b[off : off+4])
}

func putLEUint32(b []byte, off int, v uint32) {
	if off+4 > len(b) {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		copy(b[off:], tmp[:])
		return
	}
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// rotateRight rotates x right by n bits, n taken mod 32, matching Rust's
// u32::rotate_right.
func rotateRight(x, n uint32) uint32 {
	n &= 31
	if n == 0 {
		return x
	}
	return (x >> n) | (x << (32 - n))
}

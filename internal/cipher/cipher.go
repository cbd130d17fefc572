// Package cipher implements the symmetric stream/block ciphers used by
// the TQ Digital wire protocol: the mid-stream-rekeyable XOR cipher used
// for ordinary packet framing, and the RC5 block cipher used once, during
// login, to decrypt the client-submitted password.
package cipher

import (
	"crypto/rand"
	"encoding/binary"
)

// Seed is the key material passed to GenerateKeys. The TQ cipher takes a
// single 64-bit seed; RC5's key schedule is fixed at construction time and
// treats GenerateKeys as a no-op, so it ignores Seed entirely.
type Seed struct {
	U64 uint64
	A   uint32
	B   uint32
}

// RandomSeed returns a fresh cryptographically random 64-bit seed,
// suitable for NewTQCipher or a mid-stream GenerateKeys rekey. The auth
// and game listeners draw one per connection for the initial key; the
// auth process's mid-stream rekey derives its seed from the login token
// instead (internal/authsvc).
func RandomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand failing is not recoverable
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Cipher is the capability the packet codec depends on. Implementations
// must be length-preserving and safe to call with src and dst aliased
// (in-place encrypt/decrypt). Encrypt/Decrypt advance internal state;
// callers must preserve call order — see internal/protocol for the
// decoder/encoder contract and internal/actor for the rekey-ordering
// contract.
type Cipher interface {
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
	GenerateKeys(seed Seed)
}

// NopCipher is the identity cipher, used on the unencrypted auth->game
// RPC channel.
type NopCipher struct{}

func (NopCipher) Encrypt(dst, src []byte) { copyBytes(dst, src) }
func (NopCipher) Decrypt(dst, src []byte) { copyBytes(dst, src) }
func (NopCipher) GenerateKeys(Seed)       {}

func copyBytes(dst, src []byte) {
	if len(src) == 0 {
		return
	}
	if &dst[0] == &src[0] {
		return
	}
	copy(dst, src)
}

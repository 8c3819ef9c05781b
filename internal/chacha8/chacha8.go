// Package chacha8 implements the 8-round ChaCha stream cipher core used to
// evaluate F1 (spec.md §4.2).
//
// This is a spec-stipulated cryptographic primitive (spec.md §1), not a
// design choice: the standard library and every vendored cipher in the
// example pack hardcode ChaCha20's 20-round schedule with no way to request
// 8 rounds, so the block function is implemented directly here, following
// the same column/diagonal quarter-round structure as RFC 8439 ChaCha20 with
// the round count reduced to 8 (4 double-rounds) as chiapos defines it.
package chacha8

import "encoding/binary"

const (
	// BlockSize is the size in bytes of one ChaCha8 keystream block.
	BlockSize = 64

	rounds = 8
)

var sigma = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

// Cipher holds an expanded 256-bit key with a zero IV/nonce, matching
// chiapos's ChaCha8 setup (spec.md §4.2: "IV zero").
type Cipher struct {
	key [8]uint32
}

// New expands a 32-byte key into a Cipher. The nonce/IV is always zero, as
// required by the F1 construction.
func New(key [32]byte) *Cipher {
	var c Cipher

	for i := 0; i < 8; i++ {
		c.key[i] = binary.LittleEndian.Uint32(key[i*4 : i*4+4])
	}

	return &c
}

// KeystreamBlock generates the 64-byte keystream block for the given block
// counter (words 12/13 of the ChaCha state; words 14/15 stay zero, since the
// nonce is zero).
func (c *Cipher) KeystreamBlock(counter uint64) [BlockSize]byte {
	state := [16]uint32{
		sigma[0], sigma[1], sigma[2], sigma[3],
		c.key[0], c.key[1], c.key[2], c.key[3],
		c.key[4], c.key[5], c.key[6], c.key[7],
		uint32(counter), uint32(counter >> 32),
		0, 0,
	}

	working := state

	for i := 0; i < rounds; i += 2 {
		quarterRound(&working, 0, 4, 8, 12)
		quarterRound(&working, 1, 5, 9, 13)
		quarterRound(&working, 2, 6, 10, 14)
		quarterRound(&working, 3, 7, 11, 15)

		quarterRound(&working, 0, 5, 10, 15)
		quarterRound(&working, 1, 6, 11, 12)
		quarterRound(&working, 2, 7, 8, 13)
		quarterRound(&working, 3, 4, 9, 14)
	}

	var out [BlockSize]byte

	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], working[i]+state[i])
	}

	return out
}

// KeystreamBlocks fills dst with consecutive keystream blocks starting at
// firstCounter; len(dst) must be a multiple of BlockSize.
func (c *Cipher) KeystreamBlocks(dst []byte, firstCounter uint64) {
	for off := 0; off+BlockSize <= len(dst); off += BlockSize {
		block := c.KeystreamBlock(firstCounter)
		copy(dst[off:off+BlockSize], block[:])
		firstCounter++
	}
}

func quarterRound(s *[16]uint32, a, b, c, d int) {
	s[a] += s[b]
	s[d] ^= s[a]
	s[d] = rotl32(s[d], 16)

	s[c] += s[d]
	s[b] ^= s[c]
	s[b] = rotl32(s[b], 12)

	s[a] += s[b]
	s[d] ^= s[a]
	s[d] = rotl32(s[d], 8)

	s[c] += s[d]
	s[b] ^= s[c]
	s[b] = rotl32(s[b], 7)
}

func rotl32(x uint32, n uint) uint32 {
	return x<<n | x>>(32-n)
}

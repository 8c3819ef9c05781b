// Package bitfield implements the dense used/unused bit index used by back
// propagation and the filtered disk view (spec.md §4.4/§4.8, component C5).
//
// A Bitfield is a flat array of bits, one per table entry position, packed
// into 64-bit words. Index layers a cumulative-popcount index on top
// of a Bitfield so that "how many set bits precede position p" can be
// answered in O(1) amortized instead of rescanning from the start.
package bitfield

import "math/bits"

// Bitfield is a fixed-size bit array, one bit per entry position.
type Bitfield struct {
	words []uint64
	nbits uint64
}

// New allocates a Bitfield able to address at least nbits bits, all clear.
func New(nbits uint64) *Bitfield {
	return &Bitfield{
		words: make([]uint64, (nbits+63)/64),
		nbits: nbits,
	}
}

// Len returns the number of addressable bits.
func (b *Bitfield) Len() uint64 { return b.nbits }

// Set marks bit as used.
func (b *Bitfield) Set(bit uint64) {
	b.words[bit/64] |= uint64(1) << (bit % 64)
}

// Get reports whether bit is set.
func (b *Bitfield) Get(bit uint64) bool {
	return b.words[bit/64]&(uint64(1)<<(bit%64)) != 0
}

// Clear zeroes every bit.
func (b *Bitfield) Clear() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// Count returns the number of set bits in [startBit, endBit), for any
// (not necessarily word-aligned) startBit and endBit.
func (b *Bitfield) Count(startBit, endBit uint64) uint64 {
	if endBit <= startBit {
		return 0
	}

	startWord := startBit / 64
	endWord := endBit / 64

	if startWord == endWord {
		mask := (uint64(1)<<(endBit-startBit) - 1) << (startBit % 64)
		return uint64(bits.OnesCount64(b.words[startWord] & mask))
	}

	var count uint64

	if off := startBit % 64; off != 0 {
		count += uint64(bits.OnesCount64(b.words[startWord] &^ (uint64(1)<<off - 1)))
		startWord++
	}

	for i := startWord; i < endWord; i++ {
		count += uint64(bits.OnesCount64(b.words[i]))
	}

	if tail := endBit % 64; tail > 0 && endWord < uint64(len(b.words)) {
		mask := uint64(1)<<tail - 1
		count += uint64(bits.OnesCount64(b.words[endWord] & mask))
	}

	return count
}

// Words exposes the backing storage, for serializing a Bitfield to a park
// file or rebuilding one from disk (spec.md §4.4's "C5 scratch bitfield").
func (b *Bitfield) Words() []uint64 { return b.words }

// FromWords wraps pre-populated word storage as a Bitfield covering nbits
// bits.
func FromWords(words []uint64, nbits uint64) *Bitfield {
	return &Bitfield{words: words, nbits: nbits}
}

package sortmanager

import "github.com/gopos/plot/internal/bitpack"

// compareBits lexicographically compares entry a and b's bits in
// [bitsBegin, entrySize*8), matching the reference MemCmpBits: entries are
// compared on everything from bitsBegin onward, not just the bucket
// selector, so ties within a bucket are broken deterministically.
func compareBits(a, b []byte, entrySize, bitsBegin int) int {
	totalBits := entrySize*8 - bitsBegin

	bit := bitsBegin
	for bit < bitsBegin+totalBits {
		width := 8 - bit%8
		if remaining := bitsBegin + totalBits - bit; width > remaining {
			width = remaining
		}

		av := bitpack.Slice(a, uint64(bit), uint64(width))
		bv := bitpack.Slice(b, uint64(bit), uint64(width))

		if av != bv {
			if av < bv {
				return -1
			}

			return 1
		}

		bit += width
	}

	return 0
}

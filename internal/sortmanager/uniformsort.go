package sortmanager

import "github.com/gopos/plot/internal/bitpack"

// uniformSortMaxLoadFactor scales the scratch-slot bound fitsUniformSort
// checks: at most uniformSortMaxLoadFactor*2*numEntries+64 slots.
const uniformSortMaxLoadFactor = 2

// fitsUniformSort reports whether uniformSort's scratch array stays within
// uniformSortMaxLoadFactor*2*numEntries+64 slots. roundSize(n) is below
// 4n+50 for every n, so this holds for every non-empty bucket: quicksort is
// only used when the caller forces it. No RAM-arena size check is made.
func fitsUniformSort(numEntries uint64, entrySize, bitsBegin int) bool {
	if numEntries == 0 {
		return false
	}

	return roundSize(numEntries) <= numEntries*uniformSortMaxLoadFactor*2+64
}

// roundSize returns the scratch-array slot count uniformSort needs: the
// smallest power of two at least 2*size, plus 50 slack slots (matching
// Util::RoundSize).
func roundSize(size uint64) uint64 {
	size *= 2

	result := uint64(1)
	for result < size {
		result *= 2
	}

	return result + 50
}

// uniformSort implements the reference "SortToMemory" bucket-sort: entries
// are placed at the scratch slot given by bucketLen bits extracted
// starting at bitsBegin (bucketLen chosen so 2^bucketLen >= 2*numEntries),
// resolving collisions by linear probing while keeping the smaller of the
// two colliding entries (by full bit-key comparison) in the earlier slot —
// this keeps every probe chain locally sorted, so a single left-to-right
// compaction pass yields the fully sorted entry sequence.
func uniformSort(buf []byte, entrySize int, numEntries uint64, bitsBegin int) {
	if numEntries == 0 {
		return
	}

	rounded := roundSize(numEntries)

	bucketLen := uint64(0)
	for (uint64(1) << bucketLen) < 2*numEntries {
		bucketLen++
	}

	scratch := make([]byte, rounded*uint64(entrySize))
	used := make([]bool, rounded)
	swap := make([]byte, entrySize)

	for i := uint64(0); i < numEntries; i++ {
		cur := buf[i*uint64(entrySize) : (i+1)*uint64(entrySize)]

		idx := bitpack.ExtractBucket(cur, uint64(bitsBegin), bucketLen)

		for idx < rounded && used[idx] {
			slot := scratch[idx*uint64(entrySize) : (idx+1)*uint64(entrySize)]

			if compareBits(slot, cur, entrySize, bitsBegin) > 0 {
				copy(swap, slot)
				copy(slot, cur)
				copy(cur, swap)
			}

			idx++
		}

		if idx >= rounded {
			idx = rounded - 1
		}

		copy(scratch[idx*uint64(entrySize):(idx+1)*uint64(entrySize)], cur)
		used[idx] = true
	}

	pos := uint64(0)

	for idx := uint64(0); idx < rounded && pos < numEntries*uint64(entrySize); idx++ {
		if !used[idx] {
			continue
		}

		copy(buf[pos:pos+uint64(entrySize)], scratch[idx*uint64(entrySize):(idx+1)*uint64(entrySize)])
		pos += uint64(entrySize)
	}
}

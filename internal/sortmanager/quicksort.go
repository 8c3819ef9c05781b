package sortmanager

// quicksortInsertionCutoff is the subarray length below which quicksort
// switches to insertion sort, matching the reference implementation.
const quicksortInsertionCutoff = 32

// quicksort sorts buf (numEntries consecutive entrySize-byte records) in
// place by the bit key starting at bitsBegin, using Hoare partitioning with
// an insertion-sort base case — a direct port of the reference
// QuickSort::SortInner, minus its task-pool parallelism (the sort manager
// is exercised single-threaded per spec.md §5's "single-writer
// single-reader" boundary).
func quicksort(buf []byte, entrySize, bitsBegin int) {
	n := len(buf) / entrySize
	if n == 0 {
		return
	}

	swap := make([]byte, entrySize)
	quicksortRange(buf, entrySize, bitsBegin, 0, n, swap)
}

func quicksortRange(buf []byte, entrySize, bitsBegin int, begin, end int, swap []byte) {
	if end-begin <= quicksortInsertionCutoff {
		insertionSort(buf, entrySize, bitsBegin, begin, end, swap)
		return
	}

	lo := begin
	hi := end - 1

	copy(swap, entryAt(buf, entrySize, hi))

	leftSide := true

	for lo < hi {
		if leftSide {
			if compareBits(entryAt(buf, entrySize, lo), swap, entrySize, bitsBegin) < 0 {
				lo++
			} else {
				copy(entryAt(buf, entrySize, hi), entryAt(buf, entrySize, lo))
				hi--
				leftSide = false
			}
		} else {
			if compareBits(entryAt(buf, entrySize, hi), swap, entrySize, bitsBegin) > 0 {
				hi--
			} else {
				copy(entryAt(buf, entrySize, lo), entryAt(buf, entrySize, hi))
				lo++
				leftSide = true
			}
		}
	}

	copy(entryAt(buf, entrySize, lo), swap)

	quicksortRange(buf, entrySize, bitsBegin, begin, lo, swap)
	quicksortRange(buf, entrySize, bitsBegin, lo+1, end, swap)
}

func insertionSort(buf []byte, entrySize, bitsBegin int, begin, end int, pivot []byte) {
	for i := begin + 1; i < end; i++ {
		j := i
		copy(pivot, entryAt(buf, entrySize, i))

		for j > begin && compareBits(entryAt(buf, entrySize, j-1), pivot, entrySize, bitsBegin) > 0 {
			copy(entryAt(buf, entrySize, j), entryAt(buf, entrySize, j-1))
			j--
		}

		copy(entryAt(buf, entrySize, j), pivot)
	}
}

func entryAt(buf []byte, entrySize, i int) []byte {
	return buf[i*entrySize : (i+1)*entrySize]
}

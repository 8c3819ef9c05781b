package bitfield

// IndexBucket is the number of bits between cached cumulative-popcount
// samples: for a bitfield sized 2^32, the index itself is 2 MiB (original
// implementation's kIndexBucket).
const IndexBucket = 16 * 1024

// Index layers a cumulative-popcount cache on top of a Bitfield, so that
// Lookup can translate a sparse position (one with gaps for table entries
// that back propagation dropped) into its dense rank in O(1) amortized
// instead of rescanning from bit 0 every time.
type Index struct {
	bits    *Bitfield
	samples []uint64
}

// NewIndex builds an Index over b, sampling a running popcount every
// IndexBucket bits.
func NewIndex(b *Bitfield) *Index {
	n := (b.Len() + IndexBucket - 1) / IndexBucket

	idx := &Index{bits: b, samples: make([]uint64, 0, n)}

	var counter uint64
	for start := uint64(0); start < b.Len(); start += IndexBucket {
		idx.samples = append(idx.samples, counter)

		end := start + IndexBucket
		if end > b.Len() {
			end = b.Len()
		}

		counter += b.Count(start, end)
	}

	return idx
}

// Lookup returns (rank(pos), popcount([pos, pos+offset))): rank(pos) is the
// number of set bits strictly before pos (its dense index, if pos is set),
// and the second value is how many of the next offset bits are also set.
// Back propagation uses the pair together to walk a sparse table while
// tracking how far ahead a paired position sits (spec.md §4.4).
func (idx *Index) Lookup(pos, offset uint64) (rank, newOffset uint64) {
	bucket := pos / IndexBucket
	base := idx.samples[bucket]

	diff := idx.bits.Count(bucket*IndexBucket, pos)
	newOffset = idx.bits.Count(pos, pos+offset)

	return base + diff, newOffset
}

package ans

import "fmt"

// table holds the symbol/frequency data needed to encode or decode against
// a particular R value's distribution, plus a spread array mapping every
// rANS slot to its owning symbol for O(1) decode lookup.
//
// The reference builds an FSE (table-based ANS) codec here, keyed on a
// dedicated encode/decode table type built by FSE_buildCTable/
// FSE_buildDTable. This package instead implements a byte-renormalized
// range-ANS (rANS) codec over the same symbol distribution: same entropy
// model (createNormalizedCount), simpler table construction (a single
// cumulative-frequency spread, no FSE "double spread" interleaving), and no
// dependency on a vendored FSE implementation. See DESIGN.md for why this
// substitution was made instead of hand-porting FSE's table mechanics.
type table struct {
	freq []uint32 // freq[s], index by symbol byte value
	cum  []uint32 // cum[s] = sum(freq[0:s])
	sym  []byte   // sym[slot] = owning symbol, len == tableSize
}

// buildTable turns createNormalizedCount(r)'s signed counts into a table.
// A count of -1 (the reference's "low-probability fallback" marker) is
// treated as a plain count of 1: the symbol still gets exactly one rANS
// slot, just without the reference's extra raw-bit subdivision for
// sub-single-slot probabilities. This costs a small amount of compression
// ratio on the rarest symbols but keeps the codec exact and simple.
func buildTable(r float64) (*table, error) {
	counts := createNormalizedCount(r)

	n := len(counts)
	freq := make([]uint32, n)
	cum := make([]uint32, n+1)

	total := 0

	for i, c := range counts {
		if c < 0 {
			c = 1
		}

		freq[i] = uint32(c)
		cum[i+1] = cum[i] + uint32(c)
		total += c
	}

	if total != tableSize {
		return nil, fmt.Errorf("ans: normalized counts sum to %d, want %d", total, tableSize)
	}

	sym := make([]byte, tableSize)
	pos := 0

	for s, f := range freq {
		for i := uint32(0); i < f; i++ {
			sym[pos] = byte(s)
			pos++
		}
	}

	return &table{freq: freq, cum: cum[:n], sym: sym}, nil
}

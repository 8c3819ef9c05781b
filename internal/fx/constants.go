// Package fx implements the F1/Fx function primitives and the adjacent-BC-
// bucket matching relation (spec.md §4.2, component C2).
//
// F1 is ChaCha8-keystream-driven; F2..F7 are BLAKE3-driven with a per-table
// metadata composition rule. Matching between two tables' y values is
// reduced to a single table lookup, precomputed once per process via
// lTargets.
package fx

// ExtraBits is kExtraBits: F1/Fx emit k+ExtraBits bits of y instead of k, to
// reduce spurious collisions (spec.md §3).
const ExtraBits = 6

// ExtraBitsPow is 2^ExtraBits, the number of candidate matches probed per L
// entry.
const ExtraBitsPow = 1 << ExtraBits

// B and C are the two coprime group sizes whose product is a BC bucket
// (spec.md §3).
const (
	B  = 119
	C  = 127
	BC = B * C
)

// VectorLens gives the metadata multiplicity (in units of k bits) carried by
// an entry in table t, for t in 2..7. Index 8 is defined as 0 so that F7's
// output metadata length (table 8, which doesn't exist) is zero, matching
// spec.md's "t=7: empty".
var VectorLens = map[int]int{
	2: 1,
	3: 2,
	4: 4,
	5: 4,
	6: 3,
	7: 2,
	8: 0,
}

// Package phase1 implements forward propagation (spec.md §4.4, component
// C4): deriving tables 2..7 from table 1 by repeatedly matching adjacent
// BC-buckets and applying Fx.
//
// The reference parallelizes this with a ring of worker threads striping
// one table's sort pass; this package instead processes each table
// transition as a single sequential pass over that table's BC-buckets,
// grouped in memory. See DESIGN.md for why: the ring/stripe machinery
// exists to bound peak RAM and spread CPU load across threads, neither of
// which this package can verify without running the toolchain, while the
// underlying matching/renumbering algorithm (spec.md §4.4 points 3-6) is
// unchanged and is what this package ports faithfully.
package phase1

import "math/big"

// wideEntry is a table-t entry in the "Phase 1 wide" shape: y (k+ExtraBits
// bits, or k for table 7), its match partners' positions in table t-1
// (unused for table 1), and the metadata carried forward into the next
// Fx evaluation.
type wideEntry struct {
	Y          uint64
	PosPrev    uint64
	OffsetPrev uint64
	Meta       *big.Int
}

// bucketGroup is every wideEntry sharing one BC-bucket index, in the order
// they were read (which, since the source stream is y-sorted, is also
// increasing-y order within the bucket).
type bucketGroup struct {
	bucket  uint64
	entries []wideEntry
}

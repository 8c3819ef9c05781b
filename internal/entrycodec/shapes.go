package entrycodec

import "github.com/gopos/plot/internal/plotformat"

// Table1Phase1 is Phase 1's table-1 entry: f1 (k+ExtraBits bits) | x (k bits).
func Table1Phase1(k uint8) Layout {
	kk := uint64(k)
	return NewLayout(kk+plotformat.ExtraBits, kk)
}

// TablePhase1 is Phase 1's table-t entry for t in 2..6: f (k+ExtraBits) |
// pos (k) | offset (OffsetSize) | metadata (k*vectorLen bits).
func TablePhase1(k uint8, vectorLen uint64) Layout {
	kk := uint64(k)
	return NewLayout(kk+plotformat.ExtraBits, kk, plotformat.OffsetSize, kk*vectorLen)
}

// KeyPosOffset is the (sort_key, pos, offset) triple written to table 7 in
// Phase 1 and produced by Phase 2's remap pass for tables 2-6: sort_key (k)
// | pos (k) | offset (OffsetSize).
func KeyPosOffset(k uint8) Layout {
	kk := uint64(k)
	return NewLayout(kk, kk, plotformat.OffsetSize)
}

// Table7Entry is table 7's on-disk shape after Phase 2: y (k bits) | pos (k
// bits) | offset (OffsetSize bits).
func Table7Entry(k uint8) Layout {
	kk := uint64(k)
	return NewLayout(kk, kk, plotformat.OffsetSize)
}

// LinePointSortKey is Phase 3 Pass 1's output entry: line_point (2k bits) |
// sort_key (k bits).
func LinePointSortKey(k uint8) Layout {
	kk := uint64(k)
	return NewLayout(2*kk, kk)
}

// SortKeyNewPos is Phase 3's side stream reordering table t+1 by sort_key:
// sort_key (k bits) | new_pos (k bits).
func SortKeyNewPos(k uint8) Layout {
	kk := uint64(k)
	return NewLayout(kk, kk)
}

// Table7Final is table 7's Phase 3 output, streamed to Phase 4 sorted by y:
// y (k bits) | new_pos (k bits), new_pos being table 7's rank in the Phase 3
// table-6/table-7 line-point ordering.
func Table7Final(k uint8) Layout {
	kk := uint64(k)
	return NewLayout(kk, kk)
}

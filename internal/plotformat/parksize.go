package plotformat

// LinePointSize is CalculateLinePointSize: a line point spans 2k bits.
func LinePointSize(k uint8) uint64 {
	return ByteAlign(2*uint64(k)) / 8
}

// StubsSize is CalculateStubsSize: EntriesPerPark-1 stubs of (k-StubMinusBits)
// bits each, byte-aligned.
func StubsSize(k uint8) uint64 {
	return ByteAlign(uint64(EntriesPerPark-1) * uint64(int(k)-StubMinusBits)) / 8
}

// MaxDeltasSize is CalculateMaxDeltasSize: the full headroom reserved for a
// park's ANS-coded delta section, sized off the average-delta tuning
// constant for table 1 vs. tables 2-6.
func MaxDeltasSize(tableIndex int) uint64 {
	avg := maxAverageDelta
	if tableIndex == 1 {
		avg = maxAverageDeltaTable1
	}

	return ByteAlign(uint64(float64(EntriesPerPark-1) * avg)) / 8
}

// ParkSize is CalculateParkSize: the fixed on-disk size of one park in
// table tableIndex (1-6; table 7 uses P7ParkSize instead).
func ParkSize(k uint8, tableIndex int) uint64 {
	return LinePointSize(k) + StubsSize(k) + MaxDeltasSize(tableIndex)
}

// P7ParkSize is the fixed size of a table-7 park: EntriesPerPark packed
// (k+1)-bit new_pos values, zero-padded to a byte boundary.
func P7ParkSize(k uint8) uint64 {
	return ByteAlign(uint64(k+1) * uint64(EntriesPerPark)) / 8
}

// C3Size is CalculateC3Size: the fixed on-disk size of one C3 record.
func C3Size(k uint8) uint64 {
	if k < 20 {
		return ByteAlign(8 * uint64(Checkpoint1Interval)) / 8
	}

	return ByteAlign(uint64(c3BitsPerEntry*Checkpoint1Interval)) / 8
}

// KeyPosOffsetSize is GetKeyPosOffsetSize: the size of a (sort_key, pos,
// offset) triple, as written to table 7 in Phase 1 and tables 2-6 in
// Phase 2.
func KeyPosOffsetSize(k uint8) uint64 {
	return CDiv(2*uint64(k)+OffsetSize, 8)
}

// MaxEntrySize is GetMaxEntrySize: the largest an entry in tableIndex will
// ever be across the pipeline, used to size temp files that are rewritten
// in place. phase1Size selects the wider Phase 1 shape (f, pos, offset,
// metadata) vs. the narrower post-Phase-1 shape.
func MaxEntrySize(k uint8, tableIndex int, phase1Size bool) uint64 {
	kk := uint64(k)

	switch {
	case tableIndex == 1:
		if phase1Size {
			return ByteAlign(kk+ExtraBits+kk) / 8
		}

		return ByteAlign(kk) / 8
	case tableIndex >= 2 && tableIndex <= 6:
		if phase1Size {
			return ByteAlign(kk+ExtraBits+kk+OffsetSize+kk*uint64(vectorLen(tableIndex+1))) / 8
		}

		a := 2*kk + OffsetSize
		b := 3*kk - 1

		if b > a {
			a = b
		}

		return ByteAlign(a) / 8
	default: // table 7
		return ByteAlign(3*kk - 1) / 8
	}
}

// vectorLen mirrors fx.VectorLens without importing fx (plotformat stays
// leaf-level geometry only); kept in sync by the single spec.md source of
// truth for the per-table metadata multiplicities.
func vectorLen(table int) uint64 {
	lens := map[int]uint64{2: 1, 3: 2, 4: 4, 5: 4, 6: 3, 7: 2, 8: 0}

	return lens[table]
}

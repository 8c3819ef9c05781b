package diskio

import (
	"fmt"

	"github.com/gopos/plot/internal/bitfield"
)

// FilteredDisk presents a dense logical view over a sparse underlying file:
// logical entry i is the select(i)-th physical entry, where a physical
// entry survives iff its bit is set in present (spec.md §4.4's
// "filtered-view disk", used for table 1 in Phase 3).
//
// Phase 3 only ever reads table 1 forward, one entry (or a contiguous run
// of entries) at a time, exactly like the reference implementation's
// SortThread/ComputeThread loops that test current_bitfield->get(read_index+r)
// while walking physical entries in order — so FilteredDisk keeps a single
// forward cursor rather than a general random-access select, and Read must
// be called with non-decreasing logical offsets.
type FilteredDisk struct {
	disk      Disk
	present   *bitfield.Bitfield
	entrySize uint64

	physPos uint64 // next physical entry not yet consumed
	logPos  uint64 // logical entry count consumed so far
}

// NewFiltered wraps disk (whose physical records are entrySize bytes each)
// with a filter over present, a bitfield marking which physical entries
// survive in the logical view.
func NewFiltered(disk Disk, present *bitfield.Bitfield, entrySize uint64) *FilteredDisk {
	return &FilteredDisk{disk: disk, present: present, entrySize: entrySize}
}

// Read fills dst, which must be a whole number of entries, with the next
// count logical entries starting at begin (begin must equal the logical
// offset already reached by prior reads — forward-sequential only).
func (f *FilteredDisk) Read(begin uint64, dst []byte) error {
	if f.entrySize == 0 || begin%f.entrySize != 0 || uint64(len(dst))%f.entrySize != 0 {
		return fmt.Errorf("diskio: filtered read must be entry-aligned (entrySize=%d, begin=%d, len=%d)",
			f.entrySize, begin, len(dst))
	}

	logicalStart := begin / f.entrySize
	if logicalStart != f.logPos {
		return fmt.Errorf("diskio: filtered disk requires forward-sequential reads (at %d, requested %d)",
			f.logPos, logicalStart)
	}

	count := uint64(len(dst)) / f.entrySize

	for i := uint64(0); i < count; i++ {
		for f.physPos < f.present.Len() && !f.present.Get(f.physPos) {
			f.physPos++
		}

		if f.physPos >= f.present.Len() {
			return fmt.Errorf("diskio: filtered read ran past end of bitfield at logical entry %d", f.logPos)
		}

		if err := f.disk.Read(f.physPos*f.entrySize, dst[i*f.entrySize:(i+1)*f.entrySize]); err != nil {
			return err
		}

		f.physPos++
		f.logPos++
	}

	return nil
}

// Write is not supported: a filtered view is read-only.
func (f *FilteredDisk) Write(begin uint64, src []byte) error {
	return fmt.Errorf("diskio: filtered disk is read-only")
}

// Truncate is not supported for a filtered view.
func (f *FilteredDisk) Truncate(size uint64) error {
	return fmt.Errorf("diskio: filtered disk does not support truncate")
}

// EntrySize returns the physical record size this view was built with.
func (f *FilteredDisk) EntrySize() uint64 { return f.entrySize }

// GetFileName delegates to the wrapped disk.
func (f *FilteredDisk) GetFileName() string { return f.disk.GetFileName() }

// Close closes the wrapped disk.
func (f *FilteredDisk) Close() error { return f.disk.Close() }

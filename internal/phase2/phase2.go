// Package phase2 implements back-propagation (spec.md §4.5, component C5):
// two passes per table, from table 7 down to table 2, that mark which
// positions in table t-1 are actually referenced by a surviving entry of
// table t, then rewrite table t with its pos/offset fields remapped
// against the compacted table t-1.
//
// Like internal/phase1, this package works entirely over the in-memory
// byte buffers phase1.Result already holds rather than reopening temp
// files, per the same grounded simplification (see DESIGN.md). Table 1 is
// never rewritten — it's exposed through internal/diskio's FilteredDisk
// over a MemDisk wrapping its unchanged Phase 1 bytes, matching spec.md's
// "lazy-compact table 1" exception.
package phase2

import (
	"fmt"

	"github.com/gopos/plot/internal/bitfield"
	"github.com/gopos/plot/internal/diskio"
	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/phase1"
	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/internal/sortmanager"
	"github.com/gopos/plot/pkg/fs"
)

// TableResult is one table's back-propagated output: a remapped,
// new_pos-sorted (sort_key, pos, offset) stream.
type TableResult struct {
	Data      []byte
	EntrySize uint64
	Count     uint64
}

// Result is the complete output of back propagation, ready for Phase 3.
type Result struct {
	// Tables holds tables 2..7 (index 0,1 unused): table 7's data is
	// rewritten in place (same shape, same count); tables 2..6 are
	// resorted by new_pos.
	Tables [8]TableResult

	// Table1 is exposed as a filtered view skipping positions this pass
	// found unused, rather than rewritten.
	Table1        *diskio.FilteredDisk
	Table1Count   uint64
	Table1Entries uint64 // size of the unfiltered table 1, for Truncate bounds
}

// Options configures a Run.
type Options struct {
	FS         fs.FS
	TmpDir     string
	K          uint8
	NumBuckets int
	MemPerSortBucket int
}

// Run executes spec.md §4.5 end to end over p1's output.
func Run(opts Options, p1 *phase1.Result, logger plotlog.Logger) (*Result, error) {
	result := &Result{}

	bucketBits := bucketBitsFor(opts.NumBuckets)

	tableCounts := [8]uint64{}
	for t := 1; t <= 7; t++ {
		tableCounts[t] = p1.Tables[t].Count
	}

	current := bitfield.New(tableCounts[7])
	for i := uint64(0); i < tableCounts[7]; i++ {
		current.Set(i)
	}

	for table := 7; table >= 2; table-- {
		if logger != nil {
			logger.Logf("phase2: back-propagating table %d", table)
		}

		data := p1.Tables[table].Data
		entrySize := p1.Tables[table].EntrySize
		count := tableCounts[table]

		var layout entrycodec.Layout
		if table == 7 {
			layout = entrycodec.Table7Entry(opts.K)
		} else {
			layout = entrycodec.KeyPosOffset(opts.K)
		}

		next := bitfield.New(tableCounts[table-1])

		for i := uint64(0); i < count; i++ {
			if table != 7 && !current.Get(i) {
				continue
			}

			entry := data[i*entrySize : (i+1)*entrySize]

			pos := layout.UnpackUint64(entry, 1)
			offset := layout.UnpackUint64(entry, 2)

			next.Set(pos)
			next.Set(pos + offset)
		}

		idx := bitfield.NewIndex(next)

		if table == 7 {
			out := make([]byte, len(data))

			for i := uint64(0); i < count; i++ {
				entry := data[i*entrySize : (i+1)*entrySize]

				y := layout.UnpackUint64(entry, 0)
				pos := layout.UnpackUint64(entry, 1)
				offset := layout.UnpackUint64(entry, 2)

				newPos, newOffset := idx.Lookup(pos, offset)

				copy(out[i*entrySize:(i+1)*entrySize], layout.PackUint64(y, newPos, newOffset))
			}

			result.Tables[7] = TableResult{Data: out, EntrySize: entrySize, Count: count}
		} else {
			outLayout := entrycodec.KeyPosOffset(opts.K)

			sm, err := sortmanager.New(opts.FS, sortmanager.Options{
				Dir:             opts.TmpDir,
				BaseName:        fmt.Sprintf("p2_table%d", table),
				EntrySize:       int(outLayout.ByteSize()),
				NumBuckets:      opts.NumBuckets,
				BucketBits:      bucketBits,
				BeginBits:       int(opts.K), // skip the sort_key field, bucket on pos's top bits
				MemoryPerBucket: opts.MemPerSortBucket,
			})
			if err != nil {
				return nil, fmt.Errorf("phase2: create table %d sort manager: %w", table, err)
			}

			var writeCounter uint64

			for i := uint64(0); i < count; i++ {
				if !current.Get(i) {
					continue
				}

				entry := data[i*entrySize : (i+1)*entrySize]

				pos := layout.UnpackUint64(entry, 1)
				offset := layout.UnpackUint64(entry, 2)

				newPos, newOffset := idx.Lookup(pos, offset)

				packed := outLayout.PackUint64(writeCounter, newPos, newOffset)
				if err := sm.Add(packed); err != nil {
					sm.Close()
					return nil, fmt.Errorf("phase2: add table %d entry: %w", table, err)
				}

				writeCounter++
			}

			if err := sm.Flush(); err != nil {
				sm.Close()
				return nil, err
			}

			var outBuf []byte

			for {
				entry, ok, err := sm.Next()
				if err != nil {
					sm.Close()
					return nil, err
				}

				if !ok {
					break
				}

				outBuf = append(outBuf, entry...)
			}

			sm.Close()

			result.Tables[table] = TableResult{Data: outBuf, EntrySize: outLayout.ByteSize(), Count: writeCounter}
		}

		current = next
	}

	table1Size := tableCounts[1]
	table1EntrySize := p1.Tables[1].EntrySize

	memDisk := diskio.NewMemDisk("table1", p1.Tables[1].Data)
	result.Table1 = diskio.NewFiltered(memDisk, current, table1EntrySize)
	result.Table1Count = current.Count(0, table1Size)
	result.Table1Entries = table1Size

	return result, nil
}

func bucketBitsFor(numBuckets int) int {
	bits := 0
	for (1 << bits) < numBuckets {
		bits++
	}

	return bits
}

package phase1

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/fx"
	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/internal/sortmanager"
	"github.com/gopos/plot/pkg/fs"
)

// TableResult is one table's forward-propagation output: its compacted
// record stream (entries already renumbered by new_pos, dropped-entry-free)
// and the fixed byte size of one record.
type TableResult struct {
	Data      []byte
	EntrySize uint64
	Count     uint64
}

// Result is the complete output of forward propagation: tables 1..7, each
// in its final (post-match, renumbered) shape, ready for Phase 2.
type Result struct {
	Tables [8]TableResult // index 1..7 used; 0 unused
}

// Options configures a Run.
type Options struct {
	FS         fs.FS
	TmpDir     string
	K          uint8
	PlotID     [32]byte
	NumBuckets int
	NumThreads int
	MemPerSortBucket int
}

// Run executes spec.md §4.4's forward propagation end to end: generate
// table 1 via F1, then repeatedly match adjacent BC-buckets and apply Fx to
// derive tables 2..7, one transition at a time.
func Run(ctx context.Context, opts Options, logger plotlog.Logger) (*Result, error) {
	var result Result

	bucketBits := bucketBitsFor(opts.NumBuckets)

	t1Layout := entrycodec.Table1Phase1(opts.K)

	sm1, err := sortmanager.New(opts.FS, sortmanager.Options{
		Dir:             opts.TmpDir,
		BaseName:        "table1",
		EntrySize:       int(t1Layout.ByteSize()),
		NumBuckets:      opts.NumBuckets,
		BucketBits:      bucketBits,
		BeginBits:       0,
		MemoryPerBucket: opts.MemPerSortBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("phase1: create table 1 sort manager: %w", err)
	}
	defer sm1.Close()

	if logger != nil {
		logger.Logf("phase1: generating table 1 (k=%d)", opts.K)
	}

	if err := generateTable1(ctx, opts.K, opts.PlotID, sm1, opts.NumThreads); err != nil {
		return nil, fmt.Errorf("phase1: generate table 1: %w", err)
	}

	leftStream, err := drainAsWideTable1(sm1, t1Layout)
	if err != nil {
		return nil, fmt.Errorf("phase1: drain table 1: %w", err)
	}

	for table := 1; table <= 6; table++ {
		if logger != nil {
			logger.Logf("phase1: matching table %d -> table %d (%d entries)", table, table+1, len(leftStream))
		}

		outVectorLen := fx.VectorLens[table+1]
		outLayout := entrycodec.TablePhase1(opts.K, uint64(outVectorLen))
		if table+1 == 7 {
			outLayout = entrycodec.KeyPosOffset(opts.K)
		}

		smOut, err := sortmanager.New(opts.FS, sortmanager.Options{
			Dir:             opts.TmpDir,
			BaseName:        fmt.Sprintf("table%d", table+1),
			EntrySize:       int(outLayout.ByteSize()),
			NumBuckets:      opts.NumBuckets,
			BucketBits:      bucketBits,
			BeginBits:       0,
			MemoryPerBucket: opts.MemPerSortBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("phase1: create table %d sort manager: %w", table+1, err)
		}

		tr, err := runTransition(opts.K, table, leftStream, smOut, outLayout)
		if err != nil {
			smOut.Close()
			return nil, fmt.Errorf("phase1: transition table %d: %w", table, err)
		}

		result.Tables[table] = TableResult{Data: tr.compact, EntrySize: tr.entrySize, Count: tr.count}

		if table == 6 {
			// Table 7's wide right-entries emitted during this transition are
			// already in final (y, pos, offset) shape — spec.md §4.5 notes
			// table 7 is never resorted and enters Phase 2 as-is.
			t7, err := drainKeyPosOffset(smOut, outLayout)
			smOut.Close()
			if err != nil {
				return nil, fmt.Errorf("phase1: drain table 7: %w", err)
			}

			result.Tables[7] = TableResult{Data: t7.data, EntrySize: outLayout.ByteSize(), Count: t7.count}

			break
		}

		leftStream, err = drainAsWideTable(smOut, outLayout, table+1)
		smOut.Close()
		if err != nil {
			return nil, fmt.Errorf("phase1: drain table %d: %w", table+1, err)
		}
	}

	return &result, nil
}

func bucketBitsFor(numBuckets int) int {
	bits := 0
	for (1 << bits) < numBuckets {
		bits++
	}

	return bits
}

// drainAsWideTable1 reads table 1's sorted (f1, x) stream and recasts it as
// wideEntry records whose metadata is x itself — table 1's sole "carried
// forward" value ahead of the first Fx round (spec.md §4.2: table 1's
// metadata vector is just x).
func drainAsWideTable1(sm *sortmanager.Manager, layout entrycodec.Layout) ([]wideEntry, error) {
	var out []wideEntry

	for {
		entry, ok, err := sm.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		y := layout.UnpackUint64(entry, 0)
		x := layout.UnpackUint64(entry, 1)

		out = append(out, wideEntry{Y: y, Meta: big.NewInt(0).SetUint64(x)})
	}

	return out, nil
}

// drainAsWideTable reads a table-t (t in 2..6) sorted (y, pos, offset,
// metadata) stream back into wideEntry records for the next transition.
func drainAsWideTable(sm *sortmanager.Manager, layout entrycodec.Layout, table int) ([]wideEntry, error) {
	var out []wideEntry

	for {
		entry, ok, err := sm.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		fields := layout.Unpack(entry)

		out = append(out, wideEntry{
			Y:          fields[0].Uint64(),
			PosPrev:    fields[1].Uint64(),
			OffsetPrev: fields[2].Uint64(),
			Meta:       fields[3],
		})
	}

	return out, nil
}

type drainedKeyPosOffset struct {
	data  []byte
	count uint64
}

// drainKeyPosOffset reads a sorted (sort_key, pos, offset) stream (table 7's
// final shape) into a flat byte buffer in sorted order.
func drainKeyPosOffset(sm *sortmanager.Manager, layout entrycodec.Layout) (*drainedKeyPosOffset, error) {
	d := &drainedKeyPosOffset{}

	for {
		entry, ok, err := sm.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		d.data = append(d.data, entry...)
		d.count++
	}

	return d, nil
}

package phase1

import (
	"fmt"
	"math/big"

	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/fx"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/internal/ploterr"
	"github.com/gopos/plot/internal/sortmanager"
)

// maxOffsetFraction matches spec.md §4.4 point 4: an offset must fit in
// kOffsetSize bits, rejected if it exceeds 97% of the representable range
// (matches between very distant positions are a sign of a bug upstream).
const maxOffsetFraction = 97

// compactEntryWriter appends one table's compacted (used-entries-only,
// renumbered) records, growing without bound — a simple in-memory
// accumulator standing in for a disk-backed writer, consistent with this
// package's in-memory bucket-grouping simplification (see package doc).
type compactEntryWriter struct {
	buf       []byte
	layout    entrycodec.Layout
	table1    bool
	count     uint64
}

func newCompactWriter(k uint8, table1 bool) *compactEntryWriter {
	w := &compactEntryWriter{table1: table1}

	if table1 {
		w.layout = entrycodec.NewLayout(uint64(k))
	} else {
		w.layout = entrycodec.KeyPosOffset(k)
	}

	return w
}

func (w *compactEntryWriter) appendTable1(x uint64) {
	w.buf = append(w.buf, w.layout.PackUint64(x)...)
	w.count++
}

func (w *compactEntryWriter) appendTriple(y, pos, offset uint64) {
	w.buf = append(w.buf, w.layout.PackUint64(y, pos, offset)...)
	w.count++
}

// transitionResult is the outcome of processing table t: its own
// compacted record stream (tableT_final) plus the count of matches found
// (== entries written to table t+1).
type transitionResult struct {
	compact     []byte
	entrySize   uint64
	count       uint64
	matchCount  uint64
}

// runTransition consumes leftStream (table t's wideEntry records, already
// sorted ascending by Y) and:
//  1. groups them into BC-buckets,
//  2. finds matches between every pair of adjacent buckets,
//  3. renumbers every "used" entry (appears in >=1 match) and writes it to
//     tableT_final in new_pos order,
//  4. computes Fx for every match and emits the resulting wide entry for
//     table t+1 into rightSM.
//
// This is spec.md §4.4 points 3-6 run as one sequential pass rather than
// the reference's parallel stripe/ring, per the package doc comment.
func runTransition(k uint8, table int, leftStream []wideEntry, rightSM *sortmanager.Manager, outLayout entrycodec.Layout) (*transitionResult, error) {
	groups := groupByBucket(leftStream)

	n := len(groups)
	used := make([][]bool, n)
	newPos := make([][]int64, n)

	for i := range groups {
		used[i] = make([]bool, len(groups[i].entries))
		newPos[i] = make([]int64, len(groups[i].entries))

		for j := range newPos[i] {
			newPos[i][j] = -1
		}
	}

	allMatches := make([][]fx.MatchPair, 0)
	if n > 1 {
		allMatches = make([][]fx.MatchPair, n-1)
	}

	for i := 0; i < n-1; i++ {
		if groups[i+1].bucket != groups[i].bucket+1 {
			// Not actually BC-adjacent (an empty bucket fell between them in
			// the sparse grouping above) — no entry in groups[i] can match
			// any entry in groups[i+1].
			continue
		}

		yL := extractY(groups[i])
		yR := extractY(groups[i+1])

		pairs := fx.FindMatches(yL, yR)
		allMatches[i] = pairs

		for _, m := range pairs {
			used[i][m.PosL] = true
			used[i+1][m.PosR] = true
		}
	}

	writer := newCompactWriter(k, table == 1)

	var counter uint64

	for i := 0; i < n; i++ {
		for j, e := range groups[i].entries {
			if !used[i][j] {
				continue
			}

			if table == 1 {
				writer.appendTable1(e.Meta.Uint64())
			} else {
				writer.appendTriple(e.Y, e.PosPrev, e.OffsetPrev)
			}

			newPos[i][j] = int64(counter)
			counter++
		}
	}

	fxCalc := fx.NewFx(int(k), table+1)

	maxOffset := (uint64(1) << plotformat.OffsetSize) * maxOffsetFraction / 100

	var matchCount uint64

	for i := 0; i < n-1; i++ {
		for _, m := range allMatches[i] {
			newL := uint64(newPos[i][m.PosL])
			newR := uint64(newPos[i+1][m.PosR])

			offset := newR - newL
			if offset > maxOffset {
				return nil, fmt.Errorf("phase1: match offset %d exceeds bound: %w", offset, ploterr.ErrInvalidState)
			}

			yOut, newMeta := fxCalc.Compute(groups[i].entries[m.PosL].Y, groups[i].entries[m.PosL].Meta, groups[i+1].entries[m.PosR].Meta)

			entry := outLayout.Pack(big.NewInt(0).SetUint64(yOut), big.NewInt(0).SetUint64(newL), big.NewInt(0).SetUint64(offset), newMeta)

			if err := rightSM.Add(entry); err != nil {
				return nil, fmt.Errorf("phase1: emit table %d entry: %w", table+1, err)
			}

			matchCount++
		}
	}

	if err := rightSM.Flush(); err != nil {
		return nil, err
	}

	return &transitionResult{
		compact:    writer.buf,
		entrySize:  writer.layout.ByteSize(),
		count:      writer.count,
		matchCount: matchCount,
	}, nil
}

func groupByBucket(entries []wideEntry) []bucketGroup {
	var groups []bucketGroup

	for _, e := range entries {
		b := fx.Bucket(e.Y)

		if len(groups) == 0 || groups[len(groups)-1].bucket != b {
			groups = append(groups, bucketGroup{bucket: b})
		}

		last := &groups[len(groups)-1]
		last.entries = append(last.entries, e)
	}

	return groups
}

func extractY(g bucketGroup) []uint64 {
	ys := make([]uint64, len(g.entries))
	for i, e := range g.entries {
		ys[i] = e.Y
	}

	return ys
}

// Package phase3 implements compression (spec.md §4.6, component C6): for
// t = 1..6, collapse every surviving table-(t+1) entry's (pos, offset)
// pointer into table t into a single line point, sort the resulting stream,
// and emit it as fixed-size, ANS-delta-coded parks. A second pass reorders
// table t+1 by its own identity field so the next iteration can look its
// positions' line-point rank back up, exactly as table t's did this round
// (spec.md's "left.new_pos" is always the previous iteration's line-point
// rank, not a Phase 2 position).
//
// Like internal/phase1 and internal/phase2, intermediate results live as
// in-memory byte buffers (see DESIGN.md); only the two bucketed sorts each
// iteration needs (by line point, then by identity) go through a real
// internal/sortmanager.Manager backed by temp files.
package phase3

import (
	"fmt"
	"math/big"

	"github.com/gopos/plot/internal/ans"
	"github.com/gopos/plot/internal/bitpack"
	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/phase2"
	"github.com/gopos/plot/internal/ploterr"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/internal/sortmanager"
	"github.com/gopos/plot/pkg/fs"
)

// Result is the complete output of compression, ready for Phase 4.
type Result struct {
	// Parks[t], ParkEntrySize[t] and ParkCount[t] hold table t's park
	// stream for t in 1..6 (index 0 unused).
	Parks         [7][]byte
	ParkEntrySize [7]uint64
	ParkCount     [7]uint64

	// Table7 is (y, new_pos) pairs for every table 7 entry, in the same
	// order table 7 has always been in (ascending y) — new_pos is that
	// entry's rank in the table-6/table-7 line-point ordering.
	Table7          []byte
	Table7EntrySize uint64
	Table7Count     uint64
}

// Options configures a Run.
type Options struct {
	FS               fs.FS
	TmpDir           string
	K                uint8
	NumBuckets       int
	MemPerSortBucket int
}

// Run executes spec.md §4.6 end to end over p2's output.
func Run(opts Options, p2 *phase2.Result, logger plotlog.Logger) (*Result, error) {
	result := &Result{}

	k := opts.K
	bucketBits := bucketBitsFor(opts.NumBuckets)
	codec := ans.NewCodec()

	leftValue, err := readTable1Values(p2, k)
	if err != nil {
		return nil, fmt.Errorf("phase3: read table 1: %w", err)
	}

	table7Layout := entrycodec.Table7Entry(k)
	kpoLayout := entrycodec.KeyPosOffset(k)
	finalLayout := entrycodec.Table7Final(k)
	lpLayout := entrycodec.LinePointSortKey(k)
	spLayout := entrycodec.SortKeyNewPos(k)

	for t := 1; t <= 6; t++ {
		if logger != nil {
			logger.Logf("phase3: compressing table %d", t)
		}

		var rightData []byte
		var rightEntrySize, rightCount uint64
		var rightLayout entrycodec.Layout

		if t+1 == 7 {
			rightData = p2.Tables[7].Data
			rightEntrySize = p2.Tables[7].EntrySize
			rightCount = p2.Tables[7].Count
			rightLayout = table7Layout
		} else {
			rightData = p2.Tables[t+1].Data
			rightEntrySize = p2.Tables[t+1].EntrySize
			rightCount = p2.Tables[t+1].Count
			rightLayout = kpoLayout
		}

		lpSM, err := sortmanager.New(opts.FS, sortmanager.Options{
			Dir:             opts.TmpDir,
			BaseName:        fmt.Sprintf("p3_lp_table%d", t),
			EntrySize:       int(lpLayout.ByteSize()),
			NumBuckets:      opts.NumBuckets,
			BucketBits:      bucketBits,
			BeginBits:       0,
			MemoryPerBucket: opts.MemPerSortBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("phase3: create line-point sort manager for table %d: %w", t, err)
		}

		maxLP := new(big.Int).Lsh(big.NewInt(1), uint(2*k))

		var yValues []uint64
		if t == 6 {
			yValues = make([]uint64, rightCount)
		}

		for j := uint64(0); j < rightCount; j++ {
			entry := rightData[j*rightEntrySize : (j+1)*rightEntrySize]

			var identity uint64
			if t == 6 {
				identity = j
				yValues[j] = rightLayout.UnpackUint64(entry, 0)
			} else {
				identity = rightLayout.UnpackUint64(entry, 0)
			}

			pos := rightLayout.UnpackUint64(entry, 1)
			offset := rightLayout.UnpackUint64(entry, 2)

			target := pos + offset
			if pos >= uint64(len(leftValue)) || target >= uint64(len(leftValue)) {
				lpSM.Close()
				return nil, fmt.Errorf("phase3: table %d match references position out of range: %w", t, ploterr.ErrInvalidState)
			}

			np1 := leftValue[pos]
			np2 := leftValue[target]

			lp := ans.SquareToLinePoint(np1, np2)
			if lp.Cmp(maxLP) >= 0 {
				lpSM.Close()
				return nil, fmt.Errorf("phase3: table %d line point overflows 2k bits: %w", t, ploterr.ErrInvalidState)
			}

			packed := lpLayout.Pack(lp, new(big.Int).SetUint64(identity))
			if err := lpSM.Add(packed); err != nil {
				lpSM.Close()
				return nil, err
			}
		}

		if err := lpSM.Flush(); err != nil {
			lpSM.Close()
			return nil, err
		}

		spSM, err := sortmanager.New(opts.FS, sortmanager.Options{
			Dir:             opts.TmpDir,
			BaseName:        fmt.Sprintf("p3_sp_table%d", t),
			EntrySize:       int(spLayout.ByteSize()),
			NumBuckets:      opts.NumBuckets,
			BucketBits:      bucketBits,
			BeginBits:       0,
			MemoryPerBucket: opts.MemPerSortBucket,
		})
		if err != nil {
			lpSM.Close()
			return nil, fmt.Errorf("phase3: create identity sort manager for table %d: %w", t, err)
		}

		sortedLP := make([]*big.Int, 0, rightCount)

		var rank uint64

		for {
			entry, ok, err := lpSM.Next()
			if err != nil {
				lpSM.Close()
				spSM.Close()
				return nil, err
			}

			if !ok {
				break
			}

			vals := lpLayout.Unpack(entry)
			sortedLP = append(sortedLP, vals[0])

			if err := spSM.Add(spLayout.PackUint64(vals[1].Uint64(), rank)); err != nil {
				lpSM.Close()
				spSM.Close()
				return nil, err
			}

			rank++
		}

		lpSM.Close()

		if err := spSM.Flush(); err != nil {
			spSM.Close()
			return nil, err
		}

		scatter := make([]uint64, rightCount)

		var idx uint64

		for {
			entry, ok, err := spSM.Next()
			if err != nil {
				spSM.Close()
				return nil, err
			}

			if !ok {
				break
			}

			scatter[idx] = spLayout.UnpackUint64(entry, 1)
			idx++
		}

		spSM.Close()

		parkData, err := buildParks(k, t, codec, sortedLP)
		if err != nil {
			return nil, err
		}

		parkSize := plotformat.ParkSize(k, t)
		result.Parks[t] = parkData
		result.ParkEntrySize[t] = parkSize
		result.ParkCount[t] = uint64(len(parkData)) / parkSize

		if t < 6 {
			leftValue = scatter

			continue
		}

		out := make([]byte, rightCount*finalLayout.ByteSize())

		for j := uint64(0); j < rightCount; j++ {
			entrySize := finalLayout.ByteSize()
			copy(out[j*entrySize:(j+1)*entrySize], finalLayout.PackUint64(yValues[j], scatter[j]))
		}

		result.Table7 = out
		result.Table7EntrySize = finalLayout.ByteSize()
		result.Table7Count = rightCount
	}

	return result, nil
}

// readTable1Values reads every surviving table 1 value (its single k-bit
// field, spec.md's "x") through its filtered view, in dense logical order —
// these are table 1's line-point coordinates for the first iteration.
func readTable1Values(p2 *phase2.Result, k uint8) ([]uint64, error) {
	entrySize := p2.Table1.EntrySize()
	layout := entrycodec.NewLayout(uint64(k))

	out := make([]uint64, p2.Table1Count)
	buf := make([]byte, entrySize)

	var pos uint64

	for i := uint64(0); i < p2.Table1Count; i++ {
		if err := p2.Table1.Read(pos, buf); err != nil {
			return nil, err
		}

		out[i] = layout.UnpackUint64(buf, 0)
		pos += entrySize
	}

	return out, nil
}

// buildParks implements Pass 2: group the line-point-sorted stream into
// runs of EntriesPerPark, storing each run's first line point as a
// checkpoint and every subsequent line point as a (stub, ANS-coded small
// delta) pair, per spec.md §4.6.
func buildParks(k uint8, tableIndex int, codec *ans.Codec, sorted []*big.Int) ([]byte, error) {
	if len(sorted) == 0 {
		return nil, nil
	}

	parkSize := plotformat.ParkSize(k, tableIndex)
	lpSize := plotformat.LinePointSize(k)
	stubsSize := plotformat.StubsSize(k)
	maxDeltasSize := plotformat.MaxDeltasSize(tableIndex)
	stubBits := uint64(k) - uint64(plotformat.StubMinusBits)
	r := plotformat.RValues[tableIndex-1]

	stubMask := new(big.Int).Lsh(big.NewInt(1), uint(stubBits))
	stubMask.Sub(stubMask, big.NewInt(1))

	var out []byte

	for start := 0; start < len(sorted); start += plotformat.EntriesPerPark {
		end := start + plotformat.EntriesPerPark
		if end > len(sorted) {
			end = len(sorted)
		}

		group := sorted[start:end]

		park := make([]byte, parkSize)

		cpWriter := bitpack.NewWriter(lpSize * 8)
		cpWriter.WriteBig(group[0], lpSize*8)
		copy(park[:lpSize], cpWriter.Bytes())

		stubWriter := bitpack.NewWriter(uint64(len(group)-1) * stubBits)
		smallDeltas := make([]byte, 0, len(group)-1)

		prev := group[0]

		for i := 1; i < len(group); i++ {
			delta := new(big.Int).Sub(group[i], prev)
			prev = group[i]

			if delta.Sign() < 0 {
				return nil, fmt.Errorf("phase3: table %d line points not ascending: %w", tableIndex, ploterr.ErrInvalidState)
			}

			stub := new(big.Int).And(delta, stubMask)
			small := new(big.Int).Rsh(delta, uint(stubBits))

			if !small.IsUint64() || small.Uint64() >= 256 {
				return nil, fmt.Errorf("phase3: table %d delta too large for a byte-sized small delta: %w", tableIndex, ploterr.ErrEncodingFatal)
			}

			stubWriter.WriteBig(stub, stubBits)
			smallDeltas = append(smallDeltas, byte(small.Uint64()))
		}

		stubBytes := stubWriter.Bytes()
		copy(park[lpSize:lpSize+stubsSize], stubBytes)

		var deltasField []byte

		var sizeField uint16

		encoded, ok := codec.Encode(smallDeltas, r)
		if ok && uint64(len(encoded)) < uint64(len(smallDeltas)) {
			deltasField = encoded
			sizeField = uint16(len(encoded))
		} else {
			deltasField = smallDeltas
			sizeField = uint16(len(smallDeltas)) | 0x8000
		}

		if uint64(len(deltasField)+2) > maxDeltasSize {
			return nil, fmt.Errorf("phase3: table %d park deltas overflow reserved headroom: %w", tableIndex, ploterr.ErrEncodingFatal)
		}

		off := lpSize + stubsSize
		park[off] = byte(sizeField)
		park[off+1] = byte(sizeField >> 8)
		copy(park[off+2:], deltasField)

		out = append(out, park...)
	}

	return out, nil
}

func bucketBitsFor(numBuckets int) int {
	bits := 0
	for (1 << bits) < numBuckets {
		bits++
	}

	return bits
}

// Package phase4 implements the checkpoint tables (spec.md §4.7,
// component C7): table 7, already sorted by f7, is streamed once to
// produce the P7 parks proofs are read from and the C1/C2/C3 checkpoint
// tables that let a verifier binary-search f7 without scanning P7 end to
// end.
package phase4

import (
	"encoding/binary"
	"fmt"

	"github.com/gopos/plot/internal/ans"
	"github.com/gopos/plot/internal/bitpack"
	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/phase3"
	"github.com/gopos/plot/internal/ploterr"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/internal/plotlog"
)

// Result holds the four checkpoint-region byte streams, ready to be
// appended after P1..P6 in the final plot file. C1 and C2 each carry one
// trailing all-zero entry beyond C1Count/C2Count real checkpoints, the
// sentinel spec.md §6 terminates both tables with.
//
// C3 carries one more trailer beyond its ANS-coded records: an 8-byte
// big-endian Table7Count, the exact number of table 7 entries. Nothing in
// spec.md's byte-exact header stores this count, and since C3 is the last
// table in the file, appending it here costs no pointer arithmetic
// elsewhere — internal/prover needs it to know exactly how many deltas the
// tail checkpoint run holds (the reference's prover_disk.hpp doesn't
// implement this lookup at all, so there's no byte-exact convention to
// match here; see DESIGN.md).
type Result struct {
	P7 []byte
	C1 []byte
	C2 []byte
	C3 []byte

	C1Count     uint64
	C2Count     uint64
	C3Count     uint64
	Table7Count uint64
}

// Run executes spec.md §4.7 over p3's table 7 stream.
func Run(k uint8, p3 *phase3.Result, logger plotlog.Logger) (*Result, error) {
	if logger != nil {
		logger.Logf("phase4: writing checkpoint tables")
	}

	n := p3.Table7Count
	entrySize := p3.Table7EntrySize
	layout := entrycodec.Table7Final(k)

	codec := ans.NewCodec()

	p7ParkSize := plotformat.P7ParkSize(k)
	c1EntrySize := plotformat.ByteAlign(uint64(k)) / 8
	c3Size := plotformat.C3Size(k)

	result := &Result{}

	p7Writer := bitpack.NewWriter(uint64(plotformat.EntriesPerPark) * (uint64(k) + 1))

	var prevY uint64

	var deltas []byte

	for j := uint64(0); j < n; j++ {
		entry := p3.Table7[j*entrySize : (j+1)*entrySize]

		y := layout.UnpackUint64(entry, 0)
		newPos := layout.UnpackUint64(entry, 1)

		if j%uint64(plotformat.EntriesPerPark) == 0 && j > 0 {
			park := make([]byte, p7ParkSize)
			copy(park, p7Writer.Bytes())
			result.P7 = append(result.P7, park...)
			p7Writer = bitpack.NewWriter(uint64(plotformat.EntriesPerPark) * (uint64(k) + 1))
		}

		p7Writer.Write(newPos, uint64(k)+1)

		if j%plotformat.Checkpoint1Interval == 0 {
			result.C1 = append(result.C1, fixedBigEndian(y, c1EntrySize)...)

			if result.C1Count > 0 {
				entry, err := encodeC3(codec, deltas, c3Size)
				if err != nil {
					return nil, fmt.Errorf("phase4: encode C3 entry %d: %w", result.C1Count-1, err)
				}

				result.C3 = append(result.C3, entry...)
				result.C3Count++
			}

			if j%(plotformat.Checkpoint1Interval*plotformat.Checkpoint2Interval) == 0 {
				result.C2 = append(result.C2, fixedBigEndian(y, c1EntrySize)...)
				result.C2Count++
			}

			deltas = deltas[:0]
			result.C1Count++
			prevY = y

			continue
		}

		if y < prevY {
			return nil, fmt.Errorf("phase4: table 7 not sorted ascending by y: %w", ploterr.ErrInvalidState)
		}

		deltas = append(deltas, byte(y-prevY))
		prevY = y
	}

	park := make([]byte, p7ParkSize)
	copy(park, p7Writer.Bytes())
	result.P7 = append(result.P7, park...)

	if len(deltas) > 0 {
		entry, err := encodeC3(codec, deltas, c3Size)
		if err != nil {
			return nil, fmt.Errorf("phase4: encode final C3 entry: %w", err)
		}

		result.C3 = append(result.C3, entry...)
		result.C3Count++
	}

	// Both checkpoint tables are terminated by an all-zero entry, outside
	// C1Count/C2Count which track only real checkpoints.
	result.C1 = append(result.C1, fixedBigEndian(0, c1EntrySize)...)
	result.C2 = append(result.C2, fixedBigEndian(0, c1EntrySize)...)

	result.Table7Count = n
	result.C3 = append(result.C3, fixedBigEndian(n, 8)...)

	return result, nil
}

// fixedBigEndian renders v into a size-byte big-endian buffer, matching the
// reference's Bits(y, k).ToBytes() for C1/C2 checkpoint values.
func fixedBigEndian(v, size uint64) []byte {
	buf := make([]byte, size)
	for i := int(size) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}

	return buf
}

// encodeC3 ANS-encodes deltas with C3R, falling back to a raw (high-bit
// flagged) payload if the encoder can't represent a symbol or doesn't beat
// the raw size, then pads to size, matching spec.md's fixed-size C3 record.
func encodeC3(codec *ans.Codec, deltas []byte, size uint64) ([]byte, error) {
	var payload []byte

	var sizeField uint16

	encoded, ok := codec.Encode(deltas, plotformat.C3R)
	if ok && uint64(len(encoded)) < uint64(len(deltas)) {
		payload = encoded
		sizeField = uint16(len(encoded))
	} else {
		payload = deltas
		sizeField = uint16(len(deltas)) | 0x8000
	}

	if uint64(len(payload)+2) > size {
		return nil, fmt.Errorf("c3 payload of %d bytes exceeds record size %d: %w", len(payload), size, ploterr.ErrEncodingFatal)
	}

	out := make([]byte, size)
	binary.BigEndian.PutUint16(out, sizeField)
	copy(out[2:], payload)

	return out, nil
}

package ans

import (
	"encoding/binary"
	"fmt"
)

// ransL is the renormalization floor: rANS state is always kept in
// [ransL, ransL*256) between symbols. 1<<23 comfortably clears the worst
// case xmax for tableLog=14 (max xmax is (ransL>>tableLog)<<8 * tableSize,
// well under 1<<32), so state fits in a uint64 with headroom.
const ransL = uint64(1) << 23

// ErrBadDelta is returned by Decode when a decoded byte equals 0xff, the
// reference's sentinel for a corrupted delta stream.
var ErrBadDelta = fmt.Errorf("ans: bad delta detected")

// Codec caches one table per distinct R value, since every park within a
// table reuses the same R (spec.md §4.4). Zero value is ready to use.
type Codec struct {
	tables map[float64]*table
}

// NewCodec returns a ready-to-use Codec.
func NewCodec() *Codec {
	return &Codec{tables: make(map[float64]*table)}
}

func (c *Codec) tableFor(r float64) (*table, error) {
	if t, ok := c.tables[r]; ok {
		return t, nil
	}

	if c.tables == nil {
		c.tables = make(map[float64]*table)
	}

	t, err := buildTable(r)
	if err != nil {
		return nil, err
	}

	c.tables[r] = t

	return t, nil
}

// Encode ANS-compresses deltas against the distribution for R. ok is false
// when some delta value falls outside what the R-distribution can
// represent — the caller should fall back to storing deltas raw, exactly
// as the reference does when ANSEncodeDeltas returns 0.
func (c *Codec) Encode(deltas []byte, r float64) (out []byte, ok bool) {
	t, err := c.tableFor(r)
	if err != nil {
		return nil, false
	}

	for _, d := range deltas {
		if int(d) >= len(t.freq) {
			return nil, false
		}
	}

	state := ransL

	var rev []byte

	for i := len(deltas) - 1; i >= 0; i-- {
		s := deltas[i]
		f := uint64(t.freq[s])

		xmax := ((ransL >> tableLog) << 8) * f

		for state >= xmax {
			rev = append(rev, byte(state))
			state >>= 8
		}

		cum := uint64(t.cum[s])
		state = (state/f)*tableSize + state%f + cum
	}

	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}

	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, state)

	return append(header, rev...), true
}

// Decode reverses Encode, reconstructing exactly numDeltas symbols. It
// returns ErrBadDelta if any decoded byte is 0xff, matching the reference's
// corrupted-stream check.
func (c *Codec) Decode(data []byte, numDeltas int, r float64) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("ans: truncated stream, need at least 8 bytes, got %d", len(data))
	}

	t, err := c.tableFor(r)
	if err != nil {
		return nil, err
	}

	state := binary.LittleEndian.Uint64(data[:8])
	pos := 8

	out := make([]byte, numDeltas)

	for i := 0; i < numDeltas; i++ {
		slot := uint32(state % tableSize)
		s := t.sym[slot]

		if s == 0xff {
			return nil, ErrBadDelta
		}

		f := uint64(t.freq[s])
		cm := uint64(t.cum[s])

		state = f*(state/tableSize) + uint64(slot) - cm

		for state < ransL && pos < len(data) {
			state = state<<8 | uint64(data[pos])
			pos++
		}

		out[i] = s
	}

	return out, nil
}

package plotformat

import (
	"encoding/binary"
	"fmt"
)

// Header is the decoded fixed preamble of a plot file (spec.md §6).
type Header struct {
	PlotID     [PlotIDSize]byte
	K          uint8
	FormatDesc string
	Memo       []byte

	// Pointers holds the 10 table offsets, in the order
	// P1..P7, C1, C2, C3. All zero until back-patched by phases 3/4.
	Pointers [NumPointers]uint64
}

// Encode serializes h into the header bytes written at offset 0. Size()
// reports the exact length Encode produces.
func (h *Header) Encode() []byte {
	buf := make([]byte, h.Size())

	pos := 0
	pos += copy(buf[pos:], Magic)
	pos += copy(buf[pos:], h.PlotID[:])

	buf[pos] = h.K
	pos++

	binary.BigEndian.PutUint16(buf[pos:], uint16(len(h.FormatDesc)))
	pos += 2
	pos += copy(buf[pos:], h.FormatDesc)

	binary.BigEndian.PutUint16(buf[pos:], uint16(len(h.Memo)))
	pos += 2
	pos += copy(buf[pos:], h.Memo)

	for _, p := range h.Pointers {
		binary.BigEndian.PutUint64(buf[pos:], p)
		pos += 8
	}

	return buf
}

// Size returns the exact encoded header length for h's current
// FormatDesc/Memo lengths.
func (h *Header) Size() int {
	return len(Magic) + PlotIDSize + 1 + 2 + len(h.FormatDesc) + 2 + len(h.Memo) + NumPointers*8
}

// DecodeHeader parses a header from the start of buf, returning the header
// and the number of bytes it consumed (the header_size).
func DecodeHeader(buf []byte) (*Header, int, error) {
	if len(buf) < len(Magic)+PlotIDSize+1+2 {
		return nil, 0, fmt.Errorf("plotformat: buffer too short for header")
	}

	pos := 0

	if string(buf[:len(Magic)]) != Magic {
		return nil, 0, fmt.Errorf("plotformat: bad magic %q", buf[:len(Magic)])
	}

	pos += len(Magic)

	h := &Header{}
	copy(h.PlotID[:], buf[pos:pos+PlotIDSize])
	pos += PlotIDSize

	h.K = buf[pos]
	pos++

	lf := int(binary.BigEndian.Uint16(buf[pos:]))
	pos += 2

	if len(buf) < pos+lf+2 {
		return nil, 0, fmt.Errorf("plotformat: buffer too short for format description")
	}

	h.FormatDesc = string(buf[pos : pos+lf])
	pos += lf

	lm := int(binary.BigEndian.Uint16(buf[pos:]))
	pos += 2

	if len(buf) < pos+lm+NumPointers*8 {
		return nil, 0, fmt.Errorf("plotformat: buffer too short for memo and pointers")
	}

	h.Memo = append([]byte(nil), buf[pos:pos+lm]...)
	pos += lm

	for i := range h.Pointers {
		h.Pointers[i] = binary.BigEndian.Uint64(buf[pos:])
		pos += 8
	}

	return h, pos, nil
}

// Table identifies one of the ten pointer-table slots, in header order.
type Table int

const (
	TableP1 Table = iota
	TableP2
	TableP3
	TableP4
	TableP5
	TableP6
	TableP7
	TableC1
	TableC2
	TableC3
)

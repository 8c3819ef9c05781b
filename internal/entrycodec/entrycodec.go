// Package entrycodec (de)serializes the fixed-width-field records every
// phase reads and writes — table entries, (sort_key, pos, offset) triples,
// (line_point, sort_key) pairs — by composing bitpack field widths into a
// reusable Layout (spec.md §3, §4.4-4.7).
//
// Every entry shape in the pipeline is "a handful of big-endian bit-fields
// back to back", so rather than hand-writing a pack/unpack pair per table
// (as the reference's per-struct AppendValue/SliceInt64FromBytes call sites
// do), this package expresses each shape as a Layout and reuses one
// Pack/Unpack pair for all of them.
package entrycodec

import (
	"math/big"

	"github.com/gopos/plot/internal/bitpack"
)

// Layout describes a fixed sequence of big-endian bit-fields making up one
// entry.
type Layout struct {
	widths    []uint64
	totalBits uint64
}

// NewLayout builds a Layout from field widths, in order.
func NewLayout(widths ...uint64) Layout {
	l := Layout{widths: widths}
	for _, w := range widths {
		l.totalBits += w
	}

	return l
}

// ByteSize is the layout's zero-padded size in bytes.
func (l Layout) ByteSize() uint64 {
	return (l.totalBits + 7) / 8
}

// Pack writes values (one per field, in Layout order) into a zero-padded
// byte slice of ByteSize() length. Values wider than 64 bits must be
// supplied as *big.Int; narrower fields may be either a *big.Int or
// anything convertible via PackUint64 — callers needing narrow fields only
// should prefer PackUint64 for clarity.
func (l Layout) Pack(values ...*big.Int) []byte {
	w := bitpack.NewWriter(l.totalBits)

	for i, width := range l.widths {
		w.WriteBig(values[i], width)
	}

	return padTo(w.Bytes(), l.ByteSize())
}

// PackUint64 writes values (one per field, in Layout order) where every
// field fits in 64 bits.
func (l Layout) PackUint64(values ...uint64) []byte {
	w := bitpack.NewWriter(l.totalBits)

	for i, width := range l.widths {
		w.Write(values[i], width)
	}

	return padTo(w.Bytes(), l.ByteSize())
}

// Unpack reads one *big.Int per field, in Layout order, from buf.
func (l Layout) Unpack(buf []byte) []*big.Int {
	out := make([]*big.Int, len(l.widths))

	bit := uint64(0)

	for i, width := range l.widths {
		out[i] = bitpack.SliceBig(buf, bit, width)
		bit += width
	}

	return out
}

// UnpackUint64 reads one field as a uint64, in Layout order; the caller
// must know that field is <=64 bits wide.
func (l Layout) UnpackUint64(buf []byte, field int) uint64 {
	bit := uint64(0)
	for i := 0; i < field; i++ {
		bit += l.widths[i]
	}

	return bitpack.Slice(buf, bit, l.widths[field])
}

func padTo(buf []byte, size uint64) []byte {
	if uint64(len(buf)) >= size {
		return buf[:size]
	}

	out := make([]byte, size)
	copy(out, buf)

	return out
}

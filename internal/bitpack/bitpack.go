// Package bitpack provides fixed-layout, big-endian bit packing over byte
// slices: slicing 1..N-bit fields out of a byte stream, and a buffered
// appender that accumulates variable-length fields MSB-first.
//
// Every field in the plot's on-disk record formats (spec.md §3, §6) is a
// run of bits at an arbitrary, non-byte-aligned offset. This package is the
// single place that knows how to read and write them; every other package
// works in terms of field values, never raw byte offsets.
package bitpack

import (
	"math/big"
)

// Slice reads numBits bits starting at startBit (0-indexed from the start of
// data, MSB-first within each byte) and returns them right-aligned in a
// uint64. Requires numBits <= 64.
//
// Implementation follows spec.md §4.1 exactly: big-endian load of the 8
// bytes covering the field, left-shift to drop the leading partial byte,
// right-shift to drop the trailing bits.
func Slice(data []byte, startBit, numBits uint64) uint64 {
	if numBits == 0 {
		return 0
	}

	if numBits > 64 {
		panic("bitpack: Slice width exceeds 64 bits, use SliceBig")
	}

	byteStart := startBit / 8
	bitInByte := startBit % 8

	// We need ceil((bitInByte+numBits)/8) bytes; load up to 9 bytes into a
	// 16-byte window so the 64-bit shift below always has enough bits.
	var window [16]byte

	needBytes := int((bitInByte + numBits + 7) / 8)
	copy(window[:needBytes], data[byteStart:byteStart+uint64(needBytes)])

	// Load the first 8 bytes of the window as a big-endian u64, then shift.
	hi := beU64(window[0:8])

	shifted := hi << bitInByte

	if needBytes > 8 {
		// Bits spill into byte 8; bring in the top bits of the next byte.
		shifted |= uint64(window[8]) >> (8 - bitInByte)
	}

	return shifted >> (64 - numBits)
}

// SliceBig reads numBits bits (any width) starting at startBit and returns
// them as a big-endian unsigned integer.
func SliceBig(data []byte, startBit, numBits uint64) *big.Int {
	if numBits == 0 {
		return new(big.Int)
	}

	byteStart := startBit / 8
	bitInByte := startBit % 8
	totalBits := bitInByte + numBits
	needBytes := (totalBits + 7) / 8

	buf := make([]byte, needBytes)
	copy(buf, data[byteStart:byteStart+needBytes])

	v := new(big.Int).SetBytes(buf)

	trailing := needBytes*8 - totalBits
	if trailing > 0 {
		v.Rsh(v, uint(trailing))
	}

	mask := new(big.Int).Lsh(big.NewInt(1), uint(numBits))
	mask.Sub(mask, big.NewInt(1))

	return v.And(v, mask)
}

// ExtractBucket extracts the logNumBuckets-bit bucket index starting at
// beginBits of entry — the partition key used by the
// sort manager (spec.md §4.3).
func ExtractBucket(entry []byte, beginBits, logNumBuckets uint64) uint64 {
	if logNumBuckets == 0 {
		return 0
	}

	if logNumBuckets <= 64 {
		return Slice(entry, beginBits, logNumBuckets)
	}

	panic("bitpack: ExtractBucket width exceeds 64 bits")
}

func beU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}

	return v
}

// Writer accumulates variable-width, MSB-first fields and emits packed,
// big-endian bytes. Concatenation of Write(a, n) then Write(b, m) places a's
// most significant bit at the highest output-bit position, followed
// immediately by b — there is never any padding between fields.
type Writer struct {
	buf     []byte
	bitLen  uint64 // number of valid bits written so far
}

// NewWriter returns an empty Writer, optionally pre-sizing its backing
// buffer to capacityBits worth of space.
func NewWriter(capacityBits uint64) *Writer {
	return &Writer{buf: make([]byte, 0, (capacityBits+7)/8)}
}

// Write appends the low numBits bits of v, MSB-first. Requires numBits <= 64
// and v < 2^numBits.
func (w *Writer) Write(v uint64, numBits uint64) {
	if numBits == 0 {
		return
	}

	if numBits > 64 {
		panic("bitpack: Write width exceeds 64 bits, use WriteBig")
	}

	w.ensure(numBits)

	remaining := numBits

	// Walk from the most significant bit of v down to the least.
	for remaining > 0 {
		pos := w.bitLen + (numBits - remaining)
		byteIdx := pos / 8
		freeInByte := 8 - pos%8

		take := remaining
		if take > freeInByte {
			take = freeInByte
		}

		shift := remaining - take
		chunk := byte((v >> shift) & ((1 << take) - 1))

		w.buf[byteIdx] |= chunk << (freeInByte - take)
		remaining -= take
	}

	w.bitLen += numBits
}

// WriteBig appends the low numBits bits of v, MSB-first, for widths beyond
// 64 bits (e.g. line-points, multi-k metadata fields).
func (w *Writer) WriteBig(v *big.Int, numBits uint64) {
	if numBits == 0 {
		return
	}

	w.ensure(numBits)

	// Render v into a numBits-wide big-endian buffer, then bit-copy it in.
	byteLen := (numBits + 7) / 8
	src := make([]byte, byteLen)
	v.FillBytes(src)

	// The top byte of src may hold fewer than 8 significant bits; compute
	// how many, then walk byte by byte using Write for simplicity.
	topBits := numBits - (byteLen-1)*8
	for i := uint64(0); i < byteLen; i++ {
		n := uint64(8)
		if i == 0 {
			n = topBits
		}

		w.Write(uint64(src[i]), n)
	}
}

// ensure grows buf so it can hold bitLen+extra bits.
func (w *Writer) ensure(extra uint64) {
	need := (w.bitLen + extra + 7) / 8
	for uint64(len(w.buf)) < need {
		w.buf = append(w.buf, 0)
	}
}

// Bytes returns the packed bytes written so far, zero-padded to a byte
// boundary in the low bits of the final byte.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// BitLen returns the number of bits written so far.
func (w *Writer) BitLen() uint64 {
	return w.bitLen
}

// Reset clears the writer for reuse without reallocating its buffer.
func (w *Writer) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}

	w.buf = w.buf[:0]
	w.bitLen = 0
}

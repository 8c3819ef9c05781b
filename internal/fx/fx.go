package fx

import (
	"encoding/binary"
	"math/big"

	"lukechampine.com/blake3"
)

// Fx evaluates F2..F7: BLAKE3-driven, with a per-table metadata composition
// rule (spec.md §4.2).
type Fx struct {
	k          int
	table      int // 2..7
	metaBits   int // kVectorLens[table] * k: width of metaL/metaR
	outMeta    int // kVectorLens[table+1] * k: width of the output metadata
	yBits      int // k + ExtraBits for tables 2..6, k for table 7
}

// NewFx builds an Fx evaluator for table t (2..7).
func NewFx(k, table int) *Fx {
	yBits := k + ExtraBits
	if table == 7 {
		yBits = k
	}

	return &Fx{
		k:        k,
		table:    table,
		metaBits: VectorLens[table] * k,
		outMeta:  VectorLens[table+1] * k,
		yBits:    yBits,
	}
}

// Compute evaluates F_table(y1, metaL, metaR) -> (y', newMeta), per
// spec.md §4.2:
//
//	h = BLAKE3(y1 || metaL || metaR)
//	y' = h[0:8] (big-endian) >> (64 - yBits)   (table 7 drops ExtraBits)
//	newMeta per-table composition rule (see composeMetadata)
func (f *Fx) Compute(y1 uint64, metaL, metaR *big.Int) (yOut uint64, newMeta *big.Int) {
	w := newBitWriter()
	w.writeUint(y1, f.k+ExtraBits)
	w.writeBig(metaL, f.metaBits)
	w.writeBig(metaR, f.metaBits)

	sum := blake3.Sum256(w.bytes())

	h0 := binary.BigEndian.Uint64(sum[0:8])
	yOut = h0 >> (64 - uint(f.yBits))

	newMeta = f.composeMetadata(metaL, metaR)

	return yOut, newMeta
}

// composeMetadata implements the per-table metadata composition of
// spec.md §4.2.
func (f *Fx) composeMetadata(metaL, metaR *big.Int) *big.Int {
	switch f.table {
	case 2, 3:
		out := new(big.Int).Lsh(metaL, uint(f.metaBits))
		out.Or(out, metaR)

		return out
	case 4:
		r := rotl(metaR, f.metaBits, 16)
		return new(big.Int).Xor(metaL, r)
	case 5:
		r := rotl(metaR, f.metaBits, 8)
		sum := new(big.Int).Add(metaL, r)

		return truncLow(sum, f.outMeta)
	case 6:
		r := rotl(metaR, f.metaBits, 4)
		x := new(big.Int).Xor(metaL, r)

		return truncLow(x, f.outMeta)
	default: // table == 7
		return new(big.Int)
	}
}

// rotl rotates v left by n bits within a fixed width-bit field.
func rotl(v *big.Int, width, n int) *big.Int {
	n %= width

	mask := new(big.Int).Lsh(big.NewInt(1), uint(width))
	mask.Sub(mask, big.NewInt(1))

	left := new(big.Int).Lsh(v, uint(n))
	left.And(left, mask)

	right := new(big.Int).Rsh(v, uint(width-n))

	return left.Or(left, right)
}

// truncLow keeps the low n bits of v.
func truncLow(v *big.Int, n int) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(n))
	mask.Sub(mask, big.NewInt(1))

	return new(big.Int).And(v, mask)
}

// bitWriter is a minimal MSB-first bit accumulator local to this package,
// used only to build BLAKE3 inputs (y1 || metaL || metaR).
type bitWriter struct {
	buf    []byte
	bitLen int
}

func newBitWriter() *bitWriter {
	return &bitWriter{}
}

func (w *bitWriter) writeUint(v uint64, n int) {
	w.writeBig(new(big.Int).SetUint64(v), n)
}

func (w *bitWriter) writeBig(v *big.Int, n int) {
	if n == 0 {
		return
	}

	need := (w.bitLen + n + 7) / 8
	for len(w.buf) < need {
		w.buf = append(w.buf, 0)
	}

	byteLen := (n + 7) / 8
	src := make([]byte, byteLen)
	v.FillBytes(src)

	topBits := n - (byteLen-1)*8

	for i := 0; i < byteLen; i++ {
		bits := 8
		if i == 0 {
			bits = topBits
		}

		w.writeByteBits(src[i], bits)
	}
}

func (w *bitWriter) writeByteBits(b byte, n int) {
	remaining := n
	for remaining > 0 {
		byteIdx := w.bitLen / 8
		bitInByte := w.bitLen % 8
		free := 8 - bitInByte

		take := remaining
		if take > free {
			take = free
		}

		shift := remaining - take
		chunk := (b >> shift) & ((1 << take) - 1)

		w.buf[byteIdx] |= chunk << (free - take)
		remaining -= take
		w.bitLen += take
	}
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}

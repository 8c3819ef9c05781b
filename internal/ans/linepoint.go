// Package ans implements the two pieces of Phase 3 compression that never
// vary with table: the (x,y)-to-line-point bijection used to collapse a
// matched entry pair into one sortable integer, and the ANS entropy codec
// used to pack each park's deltas (spec.md §4.4, component C9).
//
// Both are ported from the reference encoding.hpp: SquareToLinePoint,
// LinePointToSquare and GetXEnc for the bijection, CreateNormalizedCount for
// the symbol distribution feeding the codec.
package ans

import "math/big"

var (
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// xEnc returns x*(x-1)/2 without overflow, by halving whichever of x, x-1
// is even before multiplying — GetXEnc in the reference.
func xEnc(x *big.Int) *big.Int {
	a := new(big.Int).Set(x)
	b := new(big.Int).Sub(x, big1)

	if a.Bit(0) == 0 {
		a.Rsh(a, 1)
	} else {
		b.Rsh(b, 1)
	}

	return a.Mul(a, b)
}

// SquareToLinePoint maps a matched pair (x, y) to the single line point that
// encodes it, per the reference SquareToLinePoint: the larger coordinate
// picks a triangular-number offset and the smaller is added as the
// remainder within that row.
func SquareToLinePoint(x, y uint64) *big.Int {
	bx := new(big.Int).SetUint64(x)
	by := new(big.Int).SetUint64(y)

	if by.Cmp(bx) > 0 {
		bx, by = by, bx
	}

	return xEnc(bx).Add(xEnc(bx), by)
}

// LinePointToSquare inverts SquareToLinePoint: it recovers the row x by
// binary search over xEnc (each row's remainder is at most as wide as the
// row index, so xEnc is monotone in x) and the column y as the remainder.
func LinePointToSquare(index *big.Int) (x, y uint64) {
	bx := big.NewInt(0)

	for i := 63; i >= 0; i-- {
		candidate := new(big.Int).Or(bx, new(big.Int).Lsh(big1, uint(i)))

		if xEnc(candidate).Cmp(index) <= 0 {
			bx = candidate
		}
	}

	by := new(big.Int).Sub(index, xEnc(bx))

	return bx.Uint64(), by.Uint64()
}

package ans

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSquareToLinePoint_KnownValue(t *testing.T) {
	got := SquareToLinePoint(5, 3)
	require.Equal(t, big.NewInt(13), got)
}

func TestLinePointToSquare_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		x := r.Uint64() % (1 << 20)
		y := r.Uint64() % (1 << 20)

		lp := SquareToLinePoint(x, y)

		gotX, gotY := LinePointToSquare(lp)

		wantX, wantY := x, y
		if wantY > wantX {
			wantX, wantY = wantY, wantX
		}

		require.Equal(t, wantX, gotX)
		require.Equal(t, wantY, gotY)
	}
}

// FuzzLinePointBijection checks spec.md's line-point bijection property:
// SquareToLinePoint followed by LinePointToSquare must recover the original
// pair, up to the max/min swap the bijection performs by construction.
func FuzzLinePointBijection(f *testing.F) {
	f.Add(uint64(5), uint64(3))
	f.Add(uint64(0), uint64(0))
	f.Add(uint64(1<<20), uint64(7))

	f.Fuzz(func(t *testing.T, x, y uint64) {
		x %= 1 << 24
		y %= 1 << 24

		lp := SquareToLinePoint(x, y)
		if lp.Sign() < 0 {
			t.Fatalf("negative line point for (%d, %d): %s", x, y, lp)
		}

		gotX, gotY := LinePointToSquare(lp)

		wantX, wantY := x, y
		if wantY > wantX {
			wantX, wantY = wantY, wantX
		}

		if gotX != wantX || gotY != wantY {
			t.Fatalf("LinePointToSquare(%s) = (%d, %d), want (%d, %d)", lp, gotX, gotY, wantX, wantY)
		}
	})
}

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	c := NewCodec()

	const r = 2.0

	table, err := buildTable(r)
	require.NoError(t, err)

	maxSym := len(table.freq) - 1
	require.Greater(t, maxSym, 0)

	rnd := rand.New(rand.NewSource(42))

	deltas := make([]byte, 2000)
	for i := range deltas {
		deltas[i] = byte(rnd.Intn(maxSym))
	}

	encoded, ok := c.Encode(deltas, r)
	require.True(t, ok)

	decoded, err := c.Decode(encoded, len(deltas), r)
	require.NoError(t, err)
	require.Equal(t, deltas, decoded)
}

func TestCodec_EncodeFallsBackWhenSymbolOutOfRange(t *testing.T) {
	c := NewCodec()

	_, ok := c.Encode([]byte{255}, 0.5)
	require.False(t, ok)
}

func TestCodec_DecodeDetectsBadDelta(t *testing.T) {
	c := NewCodec()

	const r = 2.0

	deltas := make([]byte, 10)

	encoded, ok := c.Encode(deltas, r)
	require.True(t, ok)

	table, err := buildTable(r)
	require.NoError(t, err)

	for i := range table.sym {
		table.sym[i] = 0xff
	}

	c.tables[r] = table

	_, err = c.Decode(encoded, len(deltas), r)
	require.ErrorIs(t, err, ErrBadDelta)
}

package testvectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/ans"
	"github.com/gopos/plot/internal/bitfield"
)

func TestLinePoint5_3(t *testing.T) {
	ex := LinePoint5_3()

	require.Equal(t, ex.LinePoint, ans.SquareToLinePoint(ex.X, ex.Y))

	x, y := ans.LinePointToSquare(ex.LinePoint)
	require.Equal(t, ex.X, x)
	require.Equal(t, ex.Y, y)
}

func TestBitfieldLookupCases(t *testing.T) {
	bf := bitfield.New(BitfieldExampleSize)
	for _, bit := range BitfieldExampleBits {
		bf.Set(bit)
	}

	idx := bitfield.NewIndex(bf)

	for _, c := range BitfieldLookupCases() {
		rank, newOffset := idx.Lookup(c.Pos, c.Offset)
		require.Equal(t, c.Rank, rank, "rank at pos %d", c.Pos)
		require.Equal(t, c.NewOffset, newOffset, "newOffset at pos %d", c.Pos)
	}
}

func TestChallengesAreDeterministicAndDistinct(t *testing.T) {
	a := Challenges(10)
	b := Challenges(10)
	require.Equal(t, a, b)

	seen := make(map[[32]byte]bool)
	for _, c := range a {
		require.False(t, seen[c], "challenge repeated")
		seen[c] = true
	}
}

func TestUniformSortEntryHasZeroedLeadingBits(t *testing.T) {
	e := UniformSortEntry(42)
	require.Equal(t, byte(0), e[0])
	require.Equal(t, byte(0), e[1])
}

// Package testvectors holds the fixed numeric test data unit and end-to-end
// tests share, rather than letting each test file invent its own plot ids
// and challenges. The values here are concrete scenarios any correct
// implementation of this system must reproduce: a deterministic challenge
// stream, a line-point bijection example, and a bitfield lookup example.
package testvectors

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// PlotIDK18 is the fixed plot id used by the k=18 and k=19 scenarios,
// matching original_source/tests/test.cpp's plot_id_1 byte for byte.
var PlotIDK18 = [32]byte{
	35, 2, 52, 4, 51, 55, 23, 84,
	91, 10, 111, 12, 13, 222, 151, 16,
	228, 211, 254, 45, 92, 198, 204, 10,
	9, 10, 11, 129, 139, 171, 15, 23,
}

// MemoK18 is the memo bytes accompanying PlotIDK18.
var MemoK18 = []byte{0x01, 0x02, 0x03, 0x04, 0x05}

// PlotIDK20 is the fixed plot id used by the k=20 scenario, matching
// original_source/tests/test.cpp's plot_id_3 byte for byte (it differs
// from plot_id_1 only in its first two bytes).
var PlotIDK20 = [32]byte{
	5, 104, 52, 4, 51, 55, 23, 84,
	91, 10, 111, 12, 13, 222, 151, 16,
	228, 211, 254, 45, 92, 198, 204, 10,
	9, 10, 11, 129, 139, 171, 15, 23,
}

// Challenge derives the i-th challenge of a scenario's sequence:
// SHA256(u32_be(i)).
func Challenge(i uint32) [32]byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], i)

	return sha256.Sum256(buf[:])
}

// Challenges returns the first n challenges of the sequence, i from 0.
func Challenges(n int) [][32]byte {
	out := make([][32]byte, n)
	for i := range out {
		out[i] = Challenge(uint32(i))
	}

	return out
}

// LinePointExample is the worked line-point bijection example: the pair
// (5, 3) encodes to line point 13, and decoding 13 recovers (5, 3).
type LinePointExample struct {
	X, Y      uint64
	LinePoint *big.Int
}

// LinePoint5_3 is the fixed (x, y) -> line point example.
func LinePoint5_3() LinePointExample {
	return LinePointExample{X: 5, Y: 3, LinePoint: big.NewInt(13)}
}

// BitfieldExampleSize is the size of the bitfield lookup example.
const BitfieldExampleSize = 1 << 20 // 1,048,576

// BitfieldExampleBits are the positions set in the bitfield lookup example.
var BitfieldExampleBits = []uint64{0, 16384, 32768, BitfieldExampleSize - 1}

// BitfieldLookupCase is one (pos, offset) -> (rank, newOffset) expectation
// over the bitfield built from BitfieldExampleBits.
type BitfieldLookupCase struct {
	Pos, Offset     uint64
	Rank, NewOffset uint64
}

// BitfieldLookupCases are the three fixed lookups the example asserts.
func BitfieldLookupCases() []BitfieldLookupCase {
	return []BitfieldLookupCase{
		{Pos: 0, Offset: BitfieldExampleSize - 1, Rank: 0, NewOffset: 3},
		{Pos: 16384, Offset: BitfieldExampleSize - 1 - 16384, Rank: 1, NewOffset: 2},
		{Pos: BitfieldExampleSize - 1, Offset: 0, Rank: 3, NewOffset: 0},
	}
}

// UniformSortExampleSize is the entry count of the uniform sort example.
const UniformSortExampleSize = 100000

// UniformSortEntry builds the i-th 32-byte entry of the uniform sort
// example: SHA256(u32_be(i)) with its leading 16 bits zeroed, matching a
// table entry whose high bits are a bucket index narrower than a full hash.
func UniformSortEntry(i uint32) [32]byte {
	e := sha256.Sum256(func() []byte {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], i)
		return buf[:]
	}())

	e[0] = 0
	e[1] = 0

	return e
}

// Scenario names the expected proof-verification count for one (k,
// plot id, challenge count) combination.
type Scenario struct {
	K            uint8
	PlotID       [32]byte
	Memo         []byte
	NumChallenges int
	ExpectVerify int
}

// ScenarioK18 is the k=18, 100-challenge scenario: 95 of 100 challenges
// yield at least one quality, and every resulting proof verifies.
func ScenarioK18() Scenario {
	return Scenario{K: 18, PlotID: PlotIDK18, Memo: MemoK18, NumChallenges: 100, ExpectVerify: 95}
}

// ScenarioK19 is the k=19, 100-challenge scenario, run once single-threaded
// and once multi-threaded: both must verify exactly 71 proofs.
func ScenarioK19() Scenario {
	return Scenario{K: 19, PlotID: PlotIDK18, Memo: MemoK18, NumChallenges: 100, ExpectVerify: 71}
}

// ScenarioK20 is the k=20, 500-challenge scenario against the second plot id.
func ScenarioK20() Scenario {
	return Scenario{K: 20, PlotID: PlotIDK20, Memo: MemoK18, NumChallenges: 500, ExpectVerify: 469}
}

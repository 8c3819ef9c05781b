package bitpack

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSlice_OneBit ports original_source/tests/test.cpp's
// "SliceInt64FromBytes 1 bit" test case verbatim.
func TestSlice_OneBit(t *testing.T) {
	bytes := []byte{0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7, 0x8, 0x9, 0, 0, 0, 0, 0, 0, 0}

	cases := []struct {
		startBit uint64
		want     uint64
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 1},
		{8, 0}, {9, 0}, {10, 0}, {11, 0}, {12, 0}, {13, 0}, {14, 1}, {15, 0},
		{16, 0}, {17, 0}, {18, 0}, {19, 0}, {20, 0}, {21, 0}, {22, 1}, {23, 1},
	}

	for _, c := range cases {
		require.Equal(t, c.want, Slice(bytes, c.startBit, 1), "startBit=%d", c.startBit)
	}
}

// TestSlice_EightBits ports original_source/tests/test.cpp's
// "SliceInt64FromBytes 8 bits" test case verbatim (its first two rows).
func TestSlice_EightBits(t *testing.T) {
	bytes := []byte{0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7, 0x8, 0x9, 0, 0, 0, 0, 0, 0, 0}

	cases := []struct {
		startBit uint64
		want     uint64
	}{
		{0, 0b00000001}, {1, 0b00000010}, {2, 0b00000100}, {3, 0b00001000},
		{4, 0b00010000}, {5, 0b00100000}, {6, 0b01000000}, {7, 0b10000001},
		{8, 0b00000010}, {9, 0b00000100}, {10, 0b00001000}, {11, 0b00010000},
		{12, 0b00100000}, {13, 0b01000000}, {14, 0b10000000}, {15, 0b00000001},
		{16, 0b00000011},
	}

	for _, c := range cases {
		require.Equal(t, c.want, Slice(bytes, c.startBit, 8), "startBit=%d", c.startBit)
	}
}

func TestSlice_ZeroWidthIsZero(t *testing.T) {
	require.Equal(t, uint64(0), Slice([]byte{0xff, 0xff}, 3, 0))
}

func TestSliceBig_MatchesSliceForNarrowWidths(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i*7 + 1)
	}

	for startBit := uint64(0); startBit < 64; startBit++ {
		for width := uint64(1); width <= 64; width++ {
			if startBit+width > uint64(len(data)*8) {
				continue
			}

			got := SliceBig(data, startBit, width)
			want := new(big.Int).SetUint64(Slice(data, startBit, width))
			require.Equal(t, want, got, "startBit=%d width=%d", startBit, width)
		}
	}
}

func TestWriter_RoundTripsWithSlice(t *testing.T) {
	widths := []uint64{1, 3, 7, 8, 13, 32, 64}

	w := NewWriter(0)

	values := make([]uint64, len(widths))
	for i, width := range widths {
		v := uint64(0x9e3779b97f4a7c15) >> (64 - width)
		values[i] = v
		w.Write(v, width)
	}

	out := w.Bytes()

	var bitOff uint64

	for i, width := range widths {
		require.Equal(t, values[i], Slice(out, bitOff, width), "field %d", i)
		bitOff += width
	}
}

func TestWriter_WriteBigRoundTripsWithSliceBig(t *testing.T) {
	w := NewWriter(0)

	v1 := new(big.Int).SetBytes([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	v2 := big.NewInt(0x1fed)

	w.WriteBig(v1, 80)
	w.WriteBig(v2, 13)

	out := w.Bytes()

	require.Equal(t, v1, SliceBig(out, 0, 80))
	require.Equal(t, v2, SliceBig(out, 80, 13))
}

func TestWriter_Reset(t *testing.T) {
	w := NewWriter(0)
	w.Write(0xff, 8)
	require.Equal(t, uint64(8), w.BitLen())

	w.Reset()
	require.Equal(t, uint64(0), w.BitLen())
	require.Empty(t, w.Bytes())

	w.Write(0x5, 3)
	require.Equal(t, uint64(0x5), Slice(w.Bytes(), 0, 3))
}

// FuzzSliceRoundTrip checks spec.md §8 property 9 (bit slice round trip):
// writing a run of arbitrary-width fields with Writer and reading them back
// with Slice/SliceBig must reproduce the original values, for any field
// widths and byte content the fuzzer discovers.
func FuzzSliceRoundTrip(f *testing.F) {
	f.Add(uint64(0x1234), uint8(13), uint64(0xabcdef), uint8(24))

	f.Fuzz(func(t *testing.T, a uint64, widthA uint8, b uint64, widthB uint8) {
		wa := uint64(widthA%64) + 1
		wb := uint64(widthB%64) + 1

		a &= (uint64(1)<<wa - 1)
		b &= (uint64(1)<<wb - 1)

		w := NewWriter(0)
		w.Write(a, wa)
		w.Write(b, wb)

		out := w.Bytes()

		if got := Slice(out, 0, wa); got != a {
			t.Fatalf("field a: got %d, want %d (width %d)", got, a, wa)
		}

		if got := Slice(out, wa, wb); got != b {
			t.Fatalf("field b: got %d, want %d (width %d)", got, b, wb)
		}

		if got := SliceBig(out, 0, wa); got.Cmp(new(big.Int).SetUint64(a)) != 0 {
			t.Fatalf("field a via SliceBig: got %s, want %d", got, a)
		}
	})
}

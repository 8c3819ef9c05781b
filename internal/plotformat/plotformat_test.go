package plotformat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHeader_EncodeDecodeRoundTrip(t *testing.T) {
	h := &Header{K: 32, FormatDesc: "2.0", Memo: []byte{1, 2, 3, 4}}
	for i := range h.PlotID {
		h.PlotID[i] = byte(i)
	}

	for i := range h.Pointers {
		h.Pointers[i] = uint64(1000 * (i + 1))
	}

	encoded := h.Encode()
	require.Equal(t, h.Size(), len(encoded))

	decoded, n, err := DecodeHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)

	if diff := cmp.Diff(h, decoded); diff != "" {
		t.Errorf("decoded header differs from original (-want +got):\n%s", diff)
	}
}

func TestDecodeHeader_RejectsBadMagic(t *testing.T) {
	buf := make([]byte, 64)
	_, _, err := DecodeHeader(buf)
	require.Error(t, err)
}

func TestParkSize_PositiveAndCoversLinePoint(t *testing.T) {
	for k := uint8(18); k <= 40; k += 2 {
		for table := 1; table <= 6; table++ {
			size := ParkSize(k, table)
			require.Greater(t, size, uint64(0))
			require.GreaterOrEqual(t, size, LinePointSize(k))
		}
	}
}

func TestKeyPosOffsetSize_MatchesFormula(t *testing.T) {
	require.Equal(t, CDiv(2*32+OffsetSize, 8), KeyPosOffsetSize(32))
}

package entrycodec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayout_PackUnpackRoundTrip(t *testing.T) {
	l := NewLayout(5, 13, 32, 1)

	vals := []*big.Int{
		big.NewInt(17),
		big.NewInt(8191),
		big.NewInt(0xdeadbeef),
		big.NewInt(1),
	}

	buf := l.Pack(vals...)
	require.Equal(t, l.ByteSize(), uint64(len(buf)))

	got := l.Unpack(buf)
	for i, v := range vals {
		require.Equal(t, v, got[i], "field %d", i)
	}
}

func TestLayout_PackUint64UnpackUint64RoundTrip(t *testing.T) {
	l := NewLayout(18, 18, 10)

	buf := l.PackUint64(123456, 654321, 777)

	require.Equal(t, uint64(123456), l.UnpackUint64(buf, 0))
	require.Equal(t, uint64(654321), l.UnpackUint64(buf, 1))
	require.Equal(t, uint64(777), l.UnpackUint64(buf, 2))
}

func TestLayout_ByteSizePadsToWholeBytes(t *testing.T) {
	l := NewLayout(1)
	require.Equal(t, uint64(1), l.ByteSize())

	l2 := NewLayout(8, 1)
	require.Equal(t, uint64(2), l2.ByteSize())
}

func TestTable1Phase1_FieldWidths(t *testing.T) {
	l := Table1Phase1(18)
	buf := l.PackUint64(1<<23, 12345)

	require.Equal(t, uint64(1<<23), l.UnpackUint64(buf, 0))
	require.Equal(t, uint64(12345), l.UnpackUint64(buf, 1))
}

func TestKeyPosOffset_RoundTrip(t *testing.T) {
	l := KeyPosOffset(20)
	buf := l.PackUint64(999999, 111111, 42)

	require.Equal(t, uint64(999999), l.UnpackUint64(buf, 0))
	require.Equal(t, uint64(111111), l.UnpackUint64(buf, 1))
	require.Equal(t, uint64(42), l.UnpackUint64(buf, 2))
}

package chacha8

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeystreamBlock_IsDeterministic(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	c := New(key)

	a := c.KeystreamBlock(0)
	b := c.KeystreamBlock(0)
	require.Equal(t, a, b)
}

func TestKeystreamBlock_DiffersByCounter(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i * 3)
	}

	c := New(key)

	require.NotEqual(t, c.KeystreamBlock(0), c.KeystreamBlock(1))
}

func TestKeystreamBlock_DiffersByKey(t *testing.T) {
	var k1, k2 [32]byte
	for i := range k1 {
		k1[i] = byte(i)
		k2[i] = byte(i + 1)
	}

	require.NotEqual(t, New(k1).KeystreamBlock(0), New(k2).KeystreamBlock(0))
}

// TestKeystreamBlocks_MatchesPerBlockCalls checks the batched generator
// agrees with calling KeystreamBlock one counter at a time, the same
// consecutive-block batching internal/fx's F1 relies on.
func TestKeystreamBlocks_MatchesPerBlockCalls(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i*11 + 7)
	}

	c := New(key)

	const numBlocks = 5

	dst := make([]byte, numBlocks*BlockSize)
	c.KeystreamBlocks(dst, 2)

	for i := 0; i < numBlocks; i++ {
		block := c.KeystreamBlock(uint64(2 + i))
		require.Equal(t, block[:], dst[i*BlockSize:(i+1)*BlockSize])
	}
}

func TestQuarterRound_ChangesAllFourWords(t *testing.T) {
	before := [16]uint32{0x11111111, 0x01020304, 0x9b8d6f43, 0x01234567}
	after := before
	quarterRound(&after, 0, 1, 2, 3)

	for i := 0; i < 4; i++ {
		require.NotEqual(t, before[i], after[i], "word %d unchanged", i)
	}
}

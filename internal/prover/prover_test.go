package prover

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/plotcfg"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/internal/plotter"
	"github.com/gopos/plot/internal/verifier"
	"github.com/gopos/plot/pkg/fs"
)

// plotSmall builds a small real plot file and returns its path and id.
func plotSmall(t *testing.T) (fs.FS, string, [32]byte) {
	t.Helper()

	fsys := fs.NewReal()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i*19 + 5)
	}

	opts := plotcfg.Options{
		TmpDir:     t.TempDir(),
		Tmp2Dir:    t.TempDir(),
		FinalDir:   t.TempDir(),
		Filename:   "round-trip.plot",
		K:          18,
		Memo:       []byte("m"),
		PlotID:     plotID,
		NumBuckets: 16,
		NumThreads: 4,
	}

	path, err := plotter.CreatePlot(context.Background(), fsys, opts, plotter.FlagEnableBitfield, nil, nil)
	require.NoError(t, err)

	return fsys, path, plotID
}

// challengeForY builds a 32-byte challenge whose top k bits equal y,
// guaranteeing a table 7 match exists (y is itself a real table 7 value).
func challengeForY(y uint64, k uint8) [32]byte {
	v := new(big.Int).Lsh(new(big.Int).SetUint64(y), uint(256-int(k)))

	var challenge [32]byte
	v.FillBytes(challenge[:])

	return challenge
}

func TestProver_RoundTripsWithVerifier(t *testing.T) {
	fsys, path, plotID := plotSmall(t)

	p, err := Open(fsys, path)
	require.NoError(t, err)
	require.Equal(t, plotID, p.PlotID())
	require.Equal(t, uint8(18), p.K())

	c1 := p.tableBytes(plotformat.TableC1)
	c1EntrySize := plotformat.ByteAlign(uint64(p.K())) / 8
	require.GreaterOrEqual(t, len(c1), int(c1EntrySize))

	checkpointY := fixedBigEndianDecode(c1[:c1EntrySize])

	challenge := challengeForY(checkpointY, p.K())

	found, err := p.GetQualitiesForChallenge(challenge)
	require.NoError(t, err)
	require.NotEmpty(t, found, "the first C1 checkpoint is itself a real table 7 entry")

	for _, f := range found {
		require.Len(t, f.Proof, verifier.ProofSize)

		quality, valid, err := verifier.ValidateProof(p.K(), plotID, challenge, f.Proof)
		require.NoError(t, err)
		require.True(t, valid)
		require.Equal(t, f.Quality, quality)
	}
}

func TestProver_ChallengeBelowTheFirstCheckpointYieldsNoProofs(t *testing.T) {
	fsys, path, _ := plotSmall(t)

	p, err := Open(fsys, path)
	require.NoError(t, err)

	c1 := p.tableBytes(plotformat.TableC1)
	c1EntrySize := plotformat.ByteAlign(uint64(p.K())) / 8
	checkpointY := fixedBigEndianDecode(c1[:c1EntrySize])

	if checkpointY == 0 {
		t.Skip("table 7's first entry is y=0 in this plot; nothing is below it to test")
	}

	challenge := challengeForY(checkpointY-1, p.K())

	found, err := p.GetQualitiesForChallenge(challenge)
	require.NoError(t, err)
	require.Empty(t, found)
}

package phase4

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/phase1"
	"github.com/gopos/plot/internal/phase2"
	"github.com/gopos/plot/internal/phase3"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/pkg/fs"
)

func runUpToPhase3(t *testing.T, k uint8) *phase3.Result {
	t.Helper()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i*17 + 3)
	}

	p1, err := phase1.Run(context.Background(), phase1.Options{
		FS:               fs.NewReal(),
		TmpDir:           t.TempDir(),
		K:                k,
		PlotID:           plotID,
		NumBuckets:       16,
		NumThreads:       4,
		MemPerSortBucket: 1 << 16,
	}, nil)
	require.NoError(t, err)

	p2, err := phase2.Run(phase2.Options{
		FS:               fs.NewReal(),
		TmpDir:           t.TempDir(),
		K:                k,
		NumBuckets:       16,
		MemPerSortBucket: 1 << 16,
	}, p1, nil)
	require.NoError(t, err)

	p3, err := phase3.Run(phase3.Options{
		FS:               fs.NewReal(),
		TmpDir:           t.TempDir(),
		K:                k,
		NumBuckets:       16,
		MemPerSortBucket: 1 << 16,
	}, p2, nil)
	require.NoError(t, err)

	return p3
}

func TestRun_ProducesNonEmptyCheckpointTables(t *testing.T) {
	const k = 14

	p3 := runUpToPhase3(t, k)

	result, err := Run(k, p3, nil)
	require.NoError(t, err)

	require.NotZero(t, len(result.P7))
	require.Zero(t, uint64(len(result.P7))%plotformat.P7ParkSize(k))

	c1EntrySize := plotformat.ByteAlign(uint64(k)) / 8

	require.NotZero(t, result.C1Count)
	require.Equal(t, (result.C1Count+1)*c1EntrySize, uint64(len(result.C1)), "C1 carries a trailing zero sentinel")

	require.NotZero(t, result.C2Count)
	require.LessOrEqual(t, result.C2Count, result.C1Count)
	require.Equal(t, (result.C2Count+1)*c1EntrySize, uint64(len(result.C2)), "C2 carries a trailing zero sentinel")

	require.NotZero(t, result.C3Count)
	require.Equal(t, result.C1Count, result.C3Count)
	require.Equal(t, result.C3Count*plotformat.C3Size(k)+8, uint64(len(result.C3)), "C3 carries an 8-byte table7Count trailer")
	require.Equal(t, result.Table7Count, p3.Table7Count)
}

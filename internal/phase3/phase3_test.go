package phase3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/phase1"
	"github.com/gopos/plot/internal/phase2"
	"github.com/gopos/plot/pkg/fs"
)

func runUpToPhase2(t *testing.T, k uint8) *phase2.Result {
	t.Helper()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i*13 + 1)
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

	return p2
}

func TestRun_ProducesParksForEveryTableAndAFinalTable7Stream(t *testing.T) {
	const k = 14

	p2 := runUpToPhase2(t, k)

	result, err := Run(Options{
		FS:               fs.NewReal(),
		TmpDir:           t.TempDir(),
		K:                k,
		NumBuckets:       16,
		MemPerSortBucket: 1 << 16,
	}, p2, nil)
	require.NoError(t, err)

	for table := 1; table <= 6; table++ {
		require.NotZero(t, result.ParkEntrySize[table], "table %d park size", table)
		require.NotZero(t, result.ParkCount[table], "table %d must produce at least one park", table)
		require.Equal(t, result.ParkCount[table]*result.ParkEntrySize[table], uint64(len(result.Parks[table])))
	}

	require.Equal(t, p2.Tables[7].Count, result.Table7Count)
	require.Equal(t, result.Table7Count*result.Table7EntrySize, uint64(len(result.Table7)))
}

func TestRun_Table7NewPosValuesAreWithinRange(t *testing.T) {
	const k = 14

	p2 := runUpToPhase2(t, k)

	result, err := Run(Options{
		FS:               fs.NewReal(),
		TmpDir:           t.TempDir(),
		K:                k,
		NumBuckets:       16,
		MemPerSortBucket: 1 << 16,
	}, p2, nil)
	require.NoError(t, err)

	layout := entrycodec.Table7Final(k)

	for j := uint64(0); j < result.Table7Count; j++ {
		entry := result.Table7[j*result.Table7EntrySize : (j+1)*result.Table7EntrySize]
		newPos := layout.UnpackUint64(entry, 1)
		require.Less(t, newPos, result.Table7Count)
	}
}

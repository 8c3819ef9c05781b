package phase2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/phase1"
	"github.com/gopos/plot/pkg/fs"
)

func runPhase1(t *testing.T, k uint8) *phase1.Result {
	t.Helper()

	dir := t.TempDir()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i * 11)
	}

	result, err := phase1.Run(context.Background(), phase1.Options{
		FS:               fs.NewReal(),
		TmpDir:           dir,
		K:                k,
		PlotID:           plotID,
		NumBuckets:       16,
		NumThreads:       4,
		MemPerSortBucket: 1 << 16,
	}, nil)
	require.NoError(t, err)

	return result
}

func TestRun_TableSizesShrinkMonotonically(t *testing.T) {
	p1 := runPhase1(t, 14)

	dir := t.TempDir()

	result, err := Run(Options{
		FS:               fs.NewReal(),
		TmpDir:           dir,
		K:                14,
		NumBuckets:       16,
		MemPerSortBucket: 1 << 16,
	}, p1, nil)
	require.NoError(t, err)

	require.Equal(t, p1.Tables[7].Count, result.Tables[7].Count, "table 7 is never pruned")

	prev := result.Tables[7].Count
	for table := 6; table >= 2; table-- {
		require.LessOrEqual(t, result.Tables[table].Count, p1.Tables[table].Count)
		require.LessOrEqual(t, result.Tables[table].Count, prev, "table sizes must not grow going down")
		prev = result.Tables[table].Count
	}

	require.LessOrEqual(t, result.Table1Count, p1.Tables[1].Count)
	require.NotZero(t, result.Table1Count)
}

func TestRun_Table1FilteredViewReadsDenseSurvivors(t *testing.T) {
	p1 := runPhase1(t, 14)

	dir := t.TempDir()

	result, err := Run(Options{
		FS:               fs.NewReal(),
		TmpDir:           dir,
		K:                14,
		NumBuckets:       16,
		MemPerSortBucket: 1 << 16,
	}, p1, nil)
	require.NoError(t, err)

	entrySize := p1.Tables[1].EntrySize
	out := make([]byte, entrySize)

	var read uint64

	for i := uint64(0); i < result.Table1Count; i++ {
		err := result.Table1.Read(read, out)
		require.NoError(t, err)

		read += entrySize
	}
}

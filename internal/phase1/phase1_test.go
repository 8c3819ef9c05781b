package phase1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/pkg/fs"
)

func TestRun_ProducesNonEmptyTablesAtSmallK(t *testing.T) {
	dir := t.TempDir()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i * 7)
	}

	opts := Options{
		FS:               fs.NewReal(),
		TmpDir:           dir,
		K:                14,
		PlotID:           plotID,
		NumBuckets:       16,
		NumThreads:       4,
		MemPerSortBucket: 1 << 16,
	}

	result, err := Run(context.Background(), opts, plotlog.Discard())
	require.NoError(t, err)

	prevCount := uint64(1) << opts.K
	for table := 1; table <= 7; table++ {
		tr := result.Tables[table]

		require.NotZero(t, tr.EntrySize, "table %d entry size", table)
		require.NotZero(t, tr.Count, "table %d must retain at least one matched entry", table)
		require.LessOrEqual(t, tr.Count, prevCount, "table %d cannot grow relative to table %d", table, table-1)

		require.Equal(t, tr.Count*tr.EntrySize, uint64(len(tr.Data)), "table %d data must be a whole number of entries", table)

		prevCount = tr.Count
	}
}

func TestRun_Table7EntriesAreKeyPosOffsetShaped(t *testing.T) {
	dir := t.TempDir()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i + 1)
	}

	opts := Options{
		FS:               fs.NewReal(),
		TmpDir:           dir,
		K:                14,
		PlotID:           plotID,
		NumBuckets:       16,
		NumThreads:       2,
		MemPerSortBucket: 1 << 16,
	}

	result, err := Run(context.Background(), opts, nil)
	require.NoError(t, err)

	layout := entrycodec.KeyPosOffset(opts.K)
	require.Equal(t, layout.ByteSize(), result.Tables[7].EntrySize)
}

package plotter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopos/plot/internal/plotcfg"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/pkg/fs"
)

func TestCreatePlot_ProducesAWellFormedHeaderAndOrderedPointers(t *testing.T) {
	fsys := fs.NewReal()

	var plotID [32]byte
	for i := range plotID {
		plotID[i] = byte(i*7 + 11)
	}

	opts := plotcfg.Options{
		TmpDir:     t.TempDir(),
		Tmp2Dir:    t.TempDir(),
		FinalDir:   t.TempDir(),
		Filename:   "test.plot",
		K:          18,
		Memo:       []byte("test memo"),
		PlotID:     plotID,
		NumBuckets: 16,
		NumThreads: 4,
	}

	path, err := CreatePlot(context.Background(), fsys, opts, FlagEnableBitfield, nil, nil)
	require.NoError(t, err)

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)

	header, headerSize, err := plotformat.DecodeHeader(data)
	require.NoError(t, err)

	require.Equal(t, plotID, header.PlotID)
	require.Equal(t, uint8(18), header.K)
	require.Equal(t, plotformat.FormatDescription, header.FormatDesc)
	require.Equal(t, []byte("test memo"), header.Memo)

	for i, off := range header.Pointers {
		require.GreaterOrEqual(t, off, uint64(headerSize), "pointer %d before body start", i)
		require.LessOrEqual(t, off, uint64(len(data)), "pointer %d past end of file", i)

		if i > 0 {
			require.GreaterOrEqual(t, off, header.Pointers[i-1], "pointers must be non-decreasing")
		}
	}
}

func TestCreatePlot_RejectsTheLegacyBackPropagationFlag(t *testing.T) {
	fsys := fs.NewReal()

	opts := plotcfg.Options{
		TmpDir:     t.TempDir(),
		Tmp2Dir:    t.TempDir(),
		FinalDir:   t.TempDir(),
		Filename:   "test.plot",
		K:          18,
		Memo:       []byte("m"),
		NumBuckets: 16,
	}

	_, err := CreatePlot(context.Background(), fsys, opts, 0, nil, nil)
	require.Error(t, err)
}

func TestCreatePlot_InvokesProgressForEachPhase(t *testing.T) {
	fsys := fs.NewReal()

	opts := plotcfg.Options{
		TmpDir:     t.TempDir(),
		Tmp2Dir:    t.TempDir(),
		FinalDir:   t.TempDir(),
		Filename:   "test.plot",
		K:          18,
		Memo:       []byte("m"),
		NumBuckets: 16,
	}

	seen := map[int]bool{}

	_, err := CreatePlot(context.Background(), fsys, opts, FlagEnableBitfield|FlagShowProgress, func(phase, n, maxN int) {
		seen[phase] = true
	}, nil)
	require.NoError(t, err)

	for phase := 1; phase <= 4; phase++ {
		require.True(t, seen[phase], "phase %d should report progress", phase)
	}
}

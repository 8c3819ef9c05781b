// Package plotter drives the four phases end to end into a finished plot
// file, following spec.md §6's CreatePlot invocation surface: it owns the
// temp-directory lifecycle, the RAM-arena-to-per-phase-budget split, the
// progress callback, and the final atomic rename into final_dir.
package plotter

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/gopos/plot/internal/phase1"
	"github.com/gopos/plot/internal/phase2"
	"github.com/gopos/plot/internal/phase3"
	"github.com/gopos/plot/internal/phase4"
	"github.com/gopos/plot/internal/ploterr"
	"github.com/gopos/plot/internal/plotcfg"
	"github.com/gopos/plot/internal/plotformat"
	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/pkg/fs"
)

// Flags mirrors spec.md §6's CreatePlot flags bitset.
type Flags uint8

const (
	// FlagEnableBitfield selects the bitfield back-propagation engine
	// (internal/phase2) rather than a legacy alternative. This driver has
	// only ever implemented the bitfield engine, so the flag is accepted
	// for interface fidelity but clearing it is rejected rather than
	// silently ignored.
	FlagEnableBitfield Flags = 1 << 0

	// FlagShowProgress enables Progress callback invocations at phase
	// checkpoints.
	FlagShowProgress Flags = 1 << 1
)

// Progress is the external collaborator spec.md §6 calls at fixed
// sub-phase points: phase in 1..4, n out of max_n within that phase.
type Progress func(phase int, n, maxN int)

// CreatePlot runs phases 1-4 over opts and writes the finished plot file
// to final_dir/filename, returning its path. Nothing is renamed into
// final_dir until the whole pipeline has succeeded (spec.md §7: "partial
// files must not be renamed into the final path").
func CreatePlot(ctx context.Context, fsys fs.FS, opts plotcfg.Options, flags Flags, progress Progress, logger plotlog.Logger) (string, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return "", err
	}

	if flags&FlagEnableBitfield == 0 {
		return "", fmt.Errorf("plotter: the legacy (non-bitfield) back-propagation engine is not implemented: %w", ploterr.ErrInvalidValue)
	}

	report := func(phase, n, maxN int) {
		if progress != nil && flags&FlagShowProgress != 0 {
			progress(phase, n, maxN)
		}
	}

	memPerSortBucket := memPerBucket(opts)

	report(1, 0, 1)

	p1, err := phase1.Run(ctx, phase1.Options{
		FS:               fsys,
		TmpDir:           opts.TmpDir,
		K:                opts.K,
		PlotID:           opts.PlotID,
		NumBuckets:       opts.NumBuckets,
		NumThreads:       opts.NumThreads,
		MemPerSortBucket: memPerSortBucket,
	}, logger)
	if err != nil {
		return "", fmt.Errorf("plotter: phase 1: %w", err)
	}

	report(1, 1, 1)
	report(2, 0, 1)

	p2, err := phase2.Run(phase2.Options{
		FS:               fsys,
		TmpDir:           opts.Tmp2Dir,
		K:                opts.K,
		NumBuckets:       opts.NumBuckets,
		MemPerSortBucket: memPerSortBucket,
	}, p1, logger)
	if err != nil {
		return "", fmt.Errorf("plotter: phase 2: %w", err)
	}

	report(2, 1, 1)
	report(3, 0, 1)

	p3, err := phase3.Run(phase3.Options{
		FS:               fsys,
		TmpDir:           opts.Tmp2Dir,
		K:                opts.K,
		NumBuckets:       opts.NumBuckets,
		MemPerSortBucket: memPerSortBucket,
	}, p2, logger)
	if err != nil {
		return "", fmt.Errorf("plotter: phase 3: %w", err)
	}

	report(3, 1, 1)
	report(4, 0, 1)

	p4, err := phase4.Run(opts.K, p3, logger)
	if err != nil {
		return "", fmt.Errorf("plotter: phase 4: %w", err)
	}

	report(4, 1, 1)

	body, pointers := assembleBody(p3, p4)

	header := &plotformat.Header{
		PlotID:     opts.PlotID,
		K:          opts.K,
		FormatDesc: plotformat.FormatDescription,
		Memo:       opts.Memo,
	}

	headerSize := uint64(header.Size())
	for i := range pointers {
		pointers[i] += headerSize
	}

	header.Pointers = pointers

	final := append(header.Encode(), body...)

	if err := fsys.MkdirAll(opts.FinalDir, 0o755); err != nil {
		return "", fmt.Errorf("plotter: create final dir %q: %w", opts.FinalDir, err)
	}

	path := filepath.Join(opts.FinalDir, opts.Filename)

	writer := fs.NewAtomicWriter(fsys)
	if err := writer.WriteWithDefaults(path, bytes.NewReader(final)); err != nil {
		return "", fmt.Errorf("plotter: write final plot file: %w", err)
	}

	if logger != nil {
		logger.Logf("plotter: wrote %q (%d bytes)", path, len(final))
	}

	return path, nil
}

// assembleBody concatenates P1..P7, C1, C2, C3 in header order and returns
// their byte offsets relative to the start of the body (the driver adds
// header_size once the header's exact length is known).
func assembleBody(p3 *phase3.Result, p4 *phase4.Result) ([]byte, [plotformat.NumPointers]uint64) {
	var body []byte

	var pointers [plotformat.NumPointers]uint64

	tables := [plotformat.NumPointers][]byte{
		plotformat.TableP1: p3.Parks[1],
		plotformat.TableP2: p3.Parks[2],
		plotformat.TableP3: p3.Parks[3],
		plotformat.TableP4: p3.Parks[4],
		plotformat.TableP5: p3.Parks[5],
		plotformat.TableP6: p3.Parks[6],
		plotformat.TableP7: p4.P7,
		plotformat.TableC1: p4.C1,
		plotformat.TableC2: p4.C2,
		plotformat.TableC3: p4.C3,
	}

	for i, data := range tables {
		pointers[i] = uint64(len(body))
		body = append(body, data...)
	}

	return body, pointers
}

// memPerBucket splits the buf_megabytes RAM arena evenly across the
// bucketed sort managers, following spec.md §5's "RAM arena ...
// subdivided within each phase" model: this driver doesn't pipeline
// stripes concurrently across phases, so a flat per-bucket share (rather
// than a stripe/writer/reader-buf split) is the whole budget a sort
// manager instance needs at a time.
func memPerBucket(opts plotcfg.Options) int {
	total := opts.BufMegabytes * 1 << 20

	perBucket := total / opts.NumBuckets
	if perBucket <= 0 {
		perBucket = 1 << 16
	}

	return perBucket
}

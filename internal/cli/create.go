package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/gopos/plot/internal/plotcfg"
	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/internal/plotter"
	"github.com/gopos/plot/pkg/fs"
)

var errPlotIDLength = errors.New("plot id must be 64 hex characters (32 bytes)")

const createHelp = `Usage: plot [options]

Create a proof-of-space plot file.

Options:
`

// parseCreateFlags parses args into a closure that runs CreatePlot, or
// reports an early exit code (help, bad flags) via ok=false.
func parseCreateFlags(out, errOut io.Writer, args []string) (run func(ctx context.Context, out, errOut io.Writer) int, exitCode int, ok bool) {
	flagSet := flag.NewFlagSet("plot", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	flagSet.Usage = func() {
		w := flagSet.Output()
		fprintln(w, createHelp)
		flagSet.PrintDefaults()
	}

	tmpDir := flagSet.String("tmp-dir", "", "Directory for phase 1 temporary files (required)")
	tmp2Dir := flagSet.String("tmp2-dir", "", "Directory for phase 2-4 temporary files (default: tmp-dir)")
	finalDir := flagSet.String("final-dir", "", "Directory the finished plot is written to (required)")
	filename := flagSet.String("filename", "", "Final plot file name (required)")
	k := flagSet.Uint8("k", 0, "Plot size parameter, 18-50 (required)")
	memo := flagSet.String("memo", "", "Opaque memo bytes, hex-encoded (required)")
	plotID := flagSet.String("plot-id", "", "32-byte plot id, hex-encoded (default: random)")
	bufMegabytes := flagSet.Int("buf-megabytes", 0, "RAM arena size in megabytes (default: 3389)")
	numBuckets := flagSet.Int("num-buckets", 0, "Number of sort-manager buckets, power of two (default: derived from k)")
	stripeSize := flagSet.Int("stripe-size", 0, "Phase 1 matching stripe size (default: 65536)")
	numThreads := flagSet.Int("num-threads", 0, "Worker thread count (default: number of CPUs)")
	noProgress := flagSet.Bool("no-progress", false, "Suppress progress output")

	if hasHelpFlag(args) {
		flagSet.SetOutput(out)
		flagSet.Usage()

		return nil, 0, false
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		fprintf(errOut, "error: %v\n\n", err)
		flagSet.Usage()

		return nil, 1, false
	}

	if *tmpDir == "" || *finalDir == "" || *filename == "" {
		fprintln(errOut, "error: --tmp-dir, --final-dir and --filename are required")
		flagSet.Usage()

		return nil, 1, false
	}

	if *tmp2Dir == "" {
		*tmp2Dir = *tmpDir
	}

	memoBytes, err := hex.DecodeString(*memo)
	if err != nil || len(memoBytes) == 0 {
		fprintln(errOut, "error: --memo must be non-empty hex")

		return nil, 1, false
	}

	var id [32]byte

	if *plotID == "" {
		if _, err := rand.Read(id[:]); err != nil {
			fprintln(errOut, "error: generate random plot id:", err)

			return nil, 1, false
		}
	} else {
		decoded, err := hex.DecodeString(*plotID)
		if err != nil || len(decoded) != len(id) {
			fprintln(errOut, "error:", errPlotIDLength)

			return nil, 1, false
		}

		copy(id[:], decoded)
	}

	opts := plotcfg.Options{
		TmpDir:       *tmpDir,
		Tmp2Dir:      *tmp2Dir,
		FinalDir:     *finalDir,
		Filename:     *filename,
		K:            *k,
		Memo:         memoBytes,
		PlotID:       id,
		BufMegabytes: *bufMegabytes,
		NumBuckets:   *numBuckets,
		StripeSize:   *stripeSize,
		NumThreads:   *numThreads,
	}

	run = func(ctx context.Context, out, errOut io.Writer) int {
		logger := plotlog.New(errOut, "[plot]")

		var progress plotter.Progress

		flags := plotter.FlagEnableBitfield

		if !*noProgress {
			flags |= plotter.FlagShowProgress
			progress = func(phase, n, maxN int) {
				fprintf(errOut, "[plot] phase %d: %d/%d\n", phase, n, maxN)
			}
		}

		path, err := plotter.CreatePlot(ctx, fs.NewReal(), opts, flags, progress, logger)
		if err != nil {
			fprintln(errOut, "error:", err)

			return 1
		}

		fprintln(out, path)

		return 0
	}

	return run, 0, true
}

func hasHelpFlag(args []string) bool {
	for _, a := range args[1:] {
		if a == "-h" || a == "--help" {
			return true
		}

		if a == "--" {
			return false
		}
	}

	return false
}

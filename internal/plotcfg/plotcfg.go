// Package plotcfg validates and defaults CreatePlot's options, following
// the teacher's DefaultConfig -> overrides -> Validate precedence-merge
// idiom (spec.md §6's CreatePlot invocation surface).
package plotcfg

import (
	"fmt"
	"runtime"

	"github.com/gopos/plot/internal/ploterr"
)

// Options configures one CreatePlot invocation.
type Options struct {
	TmpDir       string
	Tmp2Dir      string
	FinalDir     string
	Filename     string
	K            uint8
	Memo         []byte
	PlotID       [32]byte
	BufMegabytes int
	NumBuckets   int
	StripeSize   int
	NumThreads   int
}

// MinK and MaxK bound the supported k range (spec.md §3).
const (
	MinK = 18
	MaxK = 50
)

// WithDefaults returns a copy of o with zero-valued fields replaced by the
// teacher-idiom defaults (spec.md §1.3): BufMegabytes=3389, StripeSize=65536,
// NumThreads=runtime.NumCPU(), NumBuckets derived from k so bucket count
// scales with table size without exploding for small k.
func (o Options) WithDefaults() Options {
	if o.BufMegabytes == 0 {
		o.BufMegabytes = 3389
	}

	if o.StripeSize == 0 {
		o.StripeSize = 65536
	}

	if o.NumThreads == 0 {
		o.NumThreads = runtime.NumCPU()
	}

	if o.NumBuckets == 0 {
		o.NumBuckets = defaultNumBuckets(o.K)
	}

	return o
}

// defaultNumBuckets picks log2(NumBuckets) proportional to k, the way the
// reference scales bucket count with table size (more buckets for larger
// k keeps each bucket's in-memory sort within budget): 2^(k/2 capped to
// [4,10]).
func defaultNumBuckets(k uint8) int {
	bits := int(k) / 2
	if bits < 4 {
		bits = 4
	}

	if bits > 10 {
		bits = 10
	}

	return 1 << bits
}

// Validate checks o for invalid-value errors (spec.md §7's taxonomy); call
// after WithDefaults.
func (o Options) Validate() error {
	if o.K < MinK || o.K > MaxK {
		return fmt.Errorf("plotcfg: k=%d out of range [%d,%d]: %w", o.K, MinK, MaxK, ploterr.ErrInvalidValue)
	}

	if o.TmpDir == "" || o.FinalDir == "" || o.Filename == "" {
		return fmt.Errorf("plotcfg: tmp_dir, final_dir and filename are required: %w", ploterr.ErrInvalidValue)
	}

	if o.Tmp2Dir == "" {
		o.Tmp2Dir = o.TmpDir
	}

	if len(o.Memo) == 0 {
		return fmt.Errorf("plotcfg: memo must not be empty: %w", ploterr.ErrInvalidValue)
	}

	if o.BufMegabytes <= 0 {
		return fmt.Errorf("plotcfg: buf_megabytes must be positive: %w", ploterr.ErrInvalidValue)
	}

	if o.NumBuckets <= 0 || o.NumBuckets&(o.NumBuckets-1) != 0 {
		return fmt.Errorf("plotcfg: num_buckets must be a power of two: %w", ploterr.ErrInvalidValue)
	}

	if o.StripeSize <= 0 {
		return fmt.Errorf("plotcfg: stripe_size must be positive: %w", ploterr.ErrInvalidValue)
	}

	if o.NumThreads <= 0 {
		return fmt.Errorf("plotcfg: num_threads must be positive: %w", ploterr.ErrInvalidValue)
	}

	return nil
}

// BucketBits returns log2(NumBuckets), validated to be an exact power of
// two by Validate.
func (o Options) BucketBits() int {
	bits := 0
	for n := o.NumBuckets; n > 1; n >>= 1 {
		bits++
	}

	return bits
}

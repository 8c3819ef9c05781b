// Package sortmanager implements the bucketed external sort used between
// every plotting phase (spec.md §4.3, component C3): entries are hashed
// into num_buckets buckets by a fixed bit slice of their key, buffered in
// memory per bucket and spilled to a "<filename>.sort_bucket_NNN.tmp" file
// when a bucket's buffer fills, then sorted one bucket at a time (uniform
// sort, falling back to quicksort) as the caller drains them in order.
//
// This mirrors the reference SortManager's bucketing/spill/sort structure,
// simplified to a two-phase Go API — Add/Flush, then Next — instead of the
// original's interleaved ReadEntry(position)/CloseToNewBucket/
// TriggerNewBucket position bookkeeping (see DESIGN.md: that bookkeeping
// exists to let Phase 1's ring overlap writing new proposals with reading
// the previous bucket's tail; under this simpler contract every Add
// precedes Flush and Next, so the Go phase drivers do not overlap the two).
package sortmanager

import (
	"fmt"
	"path/filepath"

	"github.com/gopos/plot/internal/bitpack"
	"github.com/gopos/plot/internal/diskio"
	"github.com/gopos/plot/pkg/fs"
)

// Options configures a Manager.
type Options struct {
	// Dir is the directory bucket spill files are created in.
	Dir string

	// BaseName is combined with a zero-padded bucket index to name each
	// bucket's spill file, matching "<filename>.sort_bucket_NNN.tmp".
	BaseName string

	// EntrySize is the fixed size, in bytes, of every entry.
	EntrySize int

	// NumBuckets is the number of sort buckets; must be a power of two.
	NumBuckets int

	// BucketBits is log2(NumBuckets).
	BucketBits int

	// BeginBits is the bit offset, from the start of an entry, where the
	// BucketBits bucket-selector bits begin.
	BeginBits int

	// MemoryPerBucket bounds how many bytes of a bucket are buffered in
	// memory before being spilled to its bucket file.
	MemoryPerBucket int

	// ForceQuicksort skips the uniform-sort attempt and always quicksorts,
	// matching the reference "quicksort=1" mode used during Phase 1's
	// compress pass.
	ForceQuicksort bool
}

// Manager buckets, spills, and lazily sorts entries of a fixed size.
type Manager struct {
	opts    Options
	fsys    fs.FS
	buckets []*bucket

	current int
	closed  bool
}

// New creates a Manager with NumBuckets empty bucket files under Dir.
func New(fsys fs.FS, opts Options) (*Manager, error) {
	if opts.NumBuckets <= 0 || opts.EntrySize <= 0 {
		return nil, fmt.Errorf("sortmanager: invalid options: %+v", opts)
	}

	m := &Manager{opts: opts, fsys: fsys}

	for i := 0; i < opts.NumBuckets; i++ {
		path := filepath.Join(opts.Dir, fmt.Sprintf("%s.sort_bucket_%03d.tmp", opts.BaseName, i))

		d, err := diskio.OpenRaw(fsys, path, diskio.RetryPolicy{}, nil)
		if err != nil {
			return nil, fmt.Errorf("sortmanager: open bucket %d: %w", i, err)
		}

		m.buckets = append(m.buckets, &bucket{path: path, disk: d})
	}

	return m, nil
}

// Add routes entry to its bucket (selected by BucketBits bits starting at
// BeginBits), buffering it and spilling the bucket to disk once its memory
// budget is exceeded.
func (m *Manager) Add(entry []byte) error {
	if len(entry) != m.opts.EntrySize {
		return fmt.Errorf("sortmanager: entry has %d bytes, want %d", len(entry), m.opts.EntrySize)
	}

	idx := bitpack.ExtractBucket(entry, uint64(m.opts.BeginBits), uint64(m.opts.BucketBits))
	if int(idx) >= len(m.buckets) {
		idx = uint64(len(m.buckets) - 1)
	}

	b := m.buckets[idx]

	if len(b.memBuf)+m.opts.EntrySize > m.opts.MemoryPerBucket && len(b.memBuf) > 0 {
		if err := m.flushBucket(b); err != nil {
			return err
		}
	}

	b.memBuf = append(b.memBuf, entry...)
	b.totalEntries++

	return nil
}

func (m *Manager) flushBucket(b *bucket) error {
	if len(b.memBuf) == 0 {
		return nil
	}

	if err := b.disk.Write(b.flushedBytes, b.memBuf); err != nil {
		return fmt.Errorf("sortmanager: flush bucket %s: %w", b.path, err)
	}

	b.flushedBytes += uint64(len(b.memBuf))
	b.memBuf = b.memBuf[:0]

	return nil
}

// Flush spills every bucket's remaining in-memory entries to disk. Call
// this once after the last Add, before the first Next.
func (m *Manager) Flush() error {
	for _, b := range m.buckets {
		if err := m.flushBucket(b); err != nil {
			return err
		}
	}

	return nil
}

// Next returns the next entry in overall sorted order (buckets in index
// order, each bucket internally sorted by the full bit key starting at
// BeginBits). A bucket is loaded and sorted in memory on first access and
// its spill file removed immediately afterward. Returns ok=false once every
// bucket is exhausted.
func (m *Manager) Next() ([]byte, bool, error) {
	for m.current < len(m.buckets) {
		b := m.buckets[m.current]

		if !b.sorted {
			if err := m.loadAndSort(b); err != nil {
				return nil, false, err
			}
		}

		if b.readPos < len(b.sortedBuf) {
			entry := b.sortedBuf[b.readPos : b.readPos+m.opts.EntrySize]
			b.readPos += m.opts.EntrySize

			return entry, true, nil
		}

		b.sortedBuf = nil
		m.current++
	}

	return nil, false, nil
}

// NumEntries reports how many entries have been added to bucket i so far
// (valid any time; used by callers that need bucket sizes before sorting,
// e.g. to size the next phase's output).
func (m *Manager) NumEntries(bucket int) uint64 {
	return m.buckets[bucket].totalEntries
}

func (m *Manager) loadAndSort(b *bucket) error {
	n := b.flushedBytes
	full := make([]byte, int(n)+len(b.memBuf))

	if n > 0 {
		if err := b.disk.Read(0, full[:n]); err != nil {
			return fmt.Errorf("sortmanager: read bucket %s: %w", b.path, err)
		}
	}

	copy(full[n:], b.memBuf)
	b.memBuf = nil

	numEntries := uint64(len(full)) / uint64(m.opts.EntrySize)
	sortBits := m.opts.BeginBits + m.opts.BucketBits

	if !m.opts.ForceQuicksort && fitsUniformSort(numEntries, m.opts.EntrySize, sortBits) {
		uniformSort(full, m.opts.EntrySize, numEntries, sortBits)
	} else {
		quicksort(full, m.opts.EntrySize, sortBits)
	}

	b.sortedBuf = full
	b.readPos = 0
	b.sorted = true

	if err := b.disk.Close(); err != nil {
		return err
	}

	if err := m.fsys.Remove(b.path); err != nil {
		return fmt.Errorf("sortmanager: remove bucket %s: %w", b.path, err)
	}

	return nil
}

// Close removes every bucket file not yet consumed by Next, for callers
// aborting early.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}

	m.closed = true

	var firstErr error

	for _, b := range m.buckets {
		if b.sorted {
			continue
		}

		_ = b.disk.Close()

		if err := m.fsys.Remove(b.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

type bucket struct {
	path         string
	disk         diskio.Disk
	memBuf       []byte
	flushedBytes uint64
	totalEntries uint64

	sorted    bool
	sortedBuf []byte
	readPos   int
}

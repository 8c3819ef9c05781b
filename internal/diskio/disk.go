// Package diskio implements the plotter's disk abstraction (spec.md §4.8,
// component C8): a raw-file disk with transient-error retry, a
// read-ahead/write-coalescing buffered disk layered on top, and a filtered
// disk presenting a dense logical view over a sparse file via a bitfield.
//
// All three share the Disk interface, mirroring [fs.FS]'s os-like
// File/FS split in the teacher package: a [Disk] is opened once against a
// [fs.FS] and then driven purely through byte-offset reads and writes, with
// no further path lookups.
package diskio

import (
	"fmt"
	"io"
	"os"

	"github.com/gopos/plot/internal/plotlog"
	"github.com/gopos/plot/pkg/fs"
)

// Disk is the minimal random-access file surface the plotter pipeline needs:
// absolute-offset reads and writes, truncation, and a name for diagnostics.
type Disk interface {
	Read(begin uint64, dst []byte) error
	Write(begin uint64, src []byte) error
	Truncate(size uint64) error
	GetFileName() string
	Close() error
}

// RetryPolicy controls how RawDisk responds to a short (partial) read or
// write. The production default retries indefinitely with a 5-minute
// backoff (spec.md §4.8); tests inject a much shorter backoff (and an
// attempt cap) so a persistently failing [fs.Chaos] disk doesn't hang a
// test suite for hours.
type RetryPolicy struct {
	// Backoff is waited on between retries. OpenRaw replaces a nil Backoff
	// with the 5-minute production default.
	Backoff func(attempt int) <-chan struct{}

	// MaxAttempts caps retries; 0 means unlimited, matching the original
	// "retries indefinitely" behavior.
	MaxAttempts int
}

// RawDisk performs seek-then-I/O against a single open file, retrying short
// reads/writes under its RetryPolicy instead of returning a partial-I/O
// error to the caller (spec.md §4.8: "Retries indefinitely on short
// reads/writes with a 5-minute backoff and a warning to diagnostic
// output").
type RawDisk struct {
	file   fs.File
	name   string
	policy RetryPolicy
	log    plotlog.Logger

	readPos, writePos uint64
	writeMax          uint64
}

// OpenRaw opens (creating if necessary) path on fsys for read/write and
// wraps it as a RawDisk. A zero RetryPolicy gets the production default of
// unlimited retries with a 5-minute backoff.
func OpenRaw(fsys fs.FS, path string, policy RetryPolicy, log plotlog.Logger) (*RawDisk, error) {
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diskio: open %s: %w", path, err)
	}

	if policy.Backoff == nil {
		policy.Backoff = defaultBackoff
	}

	if log == nil {
		log = plotlog.Discard()
	}

	return &RawDisk{file: f, name: path, policy: policy, log: log}, nil
}

// Read fills dst starting at byte offset begin, retrying under the
// RetryPolicy until dst is fully populated or the policy's attempt cap is
// exhausted.
func (d *RawDisk) Read(begin uint64, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}

	attempt := 0

	for {
		if _, err := d.file.Seek(int64(begin), io.SeekStart); err != nil {
			return fmt.Errorf("diskio: seek %s: %w", d.name, err)
		}

		n, err := io.ReadFull(d.file, dst)
		d.readPos = begin + uint64(n)

		if err == nil {
			return nil
		}

		attempt++
		if d.policy.MaxAttempts > 0 && attempt >= d.policy.MaxAttempts {
			return fmt.Errorf("diskio: short read of %s at %d after %d attempts: %w", d.name, begin, attempt, err)
		}

		d.log.Warnf("only read %d of %d bytes at offset %d from %s: %v. retrying", n, len(dst), begin, d.name, err)
		<-d.policy.Backoff(attempt)
	}
}

// Write writes src starting at byte offset begin, retrying under the
// RetryPolicy until all of src has been written.
func (d *RawDisk) Write(begin uint64, src []byte) error {
	if len(src) == 0 {
		return nil
	}

	attempt := 0

	for {
		if _, err := d.file.Seek(int64(begin), io.SeekStart); err != nil {
			return fmt.Errorf("diskio: seek %s: %w", d.name, err)
		}

		n, err := d.file.Write(src)
		d.writePos = begin + uint64(n)

		if d.writePos > d.writeMax {
			d.writeMax = d.writePos
		}

		if err == nil && n == len(src) {
			return nil
		}

		attempt++
		if d.policy.MaxAttempts > 0 && attempt >= d.policy.MaxAttempts {
			return fmt.Errorf("diskio: short write to %s at %d after %d attempts: %w", d.name, begin, attempt, err)
		}

		d.log.Warnf("only wrote %d of %d bytes at offset %d to %s: %v. retrying", n, len(src), begin, d.name, err)
		<-d.policy.Backoff(attempt)
	}
}

// Truncate resizes the underlying file.
func (d *RawDisk) Truncate(size uint64) error {
	if err := d.file.Truncate(int64(size)); err != nil {
		return fmt.Errorf("diskio: truncate %s: %w", d.name, err)
	}

	return nil
}

// GetFileName returns the path this RawDisk was opened with.
func (d *RawDisk) GetFileName() string { return d.name }

// WriteMax reports the highest offset written so far, for callers (Phase 1)
// that need to know the final plot-table size without a separate stat.
func (d *RawDisk) WriteMax() uint64 { return d.writeMax }

// Close closes the underlying file.
func (d *RawDisk) Close() error { return d.file.Close() }

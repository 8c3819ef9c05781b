// Package ploterr holds the six sentinel error categories of spec.md §7,
// shared by every package in the pipeline. It exists as its own leaf
// package (rather than living in internal/plotter/errors.go as the
// teacher's single-root-errors.go convention would suggest) because
// plotcfg and every phase package are dependencies of internal/plotter,
// not the reverse — the taxonomy has to sit below all of them.
package ploterr

import "errors"

var (
	// ErrInvalidValue marks a caller-supplied argument outside its
	// allowed domain (e.g. k out of range, empty memo).
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidState marks an operation invoked in an invalid sequence
	// (e.g. add() after flush(), read() outside the sort manager's
	// window).
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientMemory marks a RAM budget that cannot hold a
	// required working set (e.g. a sort-manager bucket bigger than the
	// caller's memory_size).
	ErrInsufficientMemory = errors.New("insufficient memory")

	// ErrIOTransient marks a retryable I/O failure that exhausted its
	// retry policy.
	ErrIOTransient = errors.New("transient I/O failure")

	// ErrIOFatal marks a non-retryable I/O failure (e.g. disk full,
	// permission denied).
	ErrIOFatal = errors.New("fatal I/O failure")

	// ErrEncodingFatal marks a corrupted or unrepresentable on-disk
	// encoding (e.g. ANS decode hitting the 0xff bad-delta sentinel, a
	// park delta too large for its encoded field).
	ErrEncodingFatal = errors.New("fatal encoding failure")
)

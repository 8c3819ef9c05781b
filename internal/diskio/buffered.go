package diskio

import "fmt"

// BufferedDisk wraps a Disk with a forward-sequential read cache and a
// write-coalescing cache (spec.md §4.8). Reads and writes that land outside
// the cached window bypass it; a backward read additionally logs a warning,
// since the plotter's access pattern is expected to be forward-sequential.
type BufferedDisk struct {
	disk     Disk
	fileSize uint64
	log      Logger

	readBuf      []byte
	readStart    uint64
	readValid    uint64
	readCapacity uint64
	haveRead     bool

	writeBuf      []byte
	writeStart    uint64
	writeLen      uint64
	writeCapacity uint64
}

// Logger is the subset of plotlog.Logger BufferedDisk needs; declared
// locally so this package doesn't import plotlog just for a warning line.
type Logger interface {
	Warnf(format string, args ...any)
}

// NewBuffered wraps disk (whose current logical size is fileSize) with
// read/write caches of the given capacities. A zero capacity disables that
// cache.
func NewBuffered(disk Disk, fileSize uint64, readCapacity, writeCapacity uint64, log Logger) *BufferedDisk {
	if log == nil {
		log = noopLogger{}
	}

	return &BufferedDisk{
		disk:          disk,
		fileSize:      fileSize,
		log:           log,
		readCapacity:  readCapacity,
		writeCapacity: writeCapacity,
	}
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}

// Read satisfies Disk, serving from the read-ahead buffer when possible.
func (b *BufferedDisk) Read(begin uint64, dst []byte) error {
	length := uint64(len(dst))

	if b.haveRead && b.readStart <= begin && begin+length <= b.readStart+b.readValid {
		copy(dst, b.readBuf[begin-b.readStart:])
		return nil
	}

	if b.readCapacity > 0 && (begin >= b.readStart+b.readValid || !b.haveRead) {
		amount := b.fileSize - begin
		if amount > b.readCapacity {
			amount = b.readCapacity
		}

		if amount < length {
			// Requested read doesn't fit the prefetch window; fall through
			// to a direct read instead of returning a short buffer.
			return b.disk.Read(begin, dst)
		}

		if cap(b.readBuf) < int(amount) {
			b.readBuf = make([]byte, amount)
		} else {
			b.readBuf = b.readBuf[:amount]
		}

		if err := b.disk.Read(begin, b.readBuf); err != nil {
			return err
		}

		b.readStart = begin
		b.readValid = amount
		b.haveRead = true

		copy(dst, b.readBuf[:length])

		return nil
	}

	if b.haveRead && begin < b.readStart {
		b.log.Warnf("backward read at offset %d (buffer starts at %d)", begin, b.readStart)
	}

	return b.disk.Read(begin, dst)
}

// Write satisfies Disk, coalescing contiguous sequential writes into the
// write buffer and flushing it only when a write doesn't extend the
// buffered run.
func (b *BufferedDisk) Write(begin uint64, src []byte) error {
	length := uint64(len(src))

	if b.writeCapacity > 0 {
		if b.writeLen > 0 && begin == b.writeStart+b.writeLen && b.writeLen+length <= b.writeCapacity {
			b.writeBuf = append(b.writeBuf, src...)
			b.writeLen += length

			return nil
		}

		if b.writeLen == 0 && length <= b.writeCapacity {
			if cap(b.writeBuf) < int(length) {
				b.writeBuf = make([]byte, 0, b.writeCapacity)
			} else {
				b.writeBuf = b.writeBuf[:0]
			}

			b.writeBuf = append(b.writeBuf, src...)
			b.writeStart = begin
			b.writeLen = length

			return nil
		}

		if err := b.flushWrite(); err != nil {
			return err
		}
	}

	return b.disk.Write(begin, src)
}

func (b *BufferedDisk) flushWrite() error {
	if b.writeLen == 0 {
		return nil
	}

	if err := b.disk.Write(b.writeStart, b.writeBuf[:b.writeLen]); err != nil {
		return fmt.Errorf("diskio: flush write cache: %w", err)
	}

	b.writeLen = 0

	return nil
}

// Truncate flushes pending writes, then resizes the underlying disk.
func (b *BufferedDisk) Truncate(size uint64) error {
	if err := b.flushWrite(); err != nil {
		return err
	}

	if err := b.disk.Truncate(size); err != nil {
		return err
	}

	b.fileSize = size

	return nil
}

// GetFileName delegates to the wrapped disk.
func (b *BufferedDisk) GetFileName() string { return b.disk.GetFileName() }

// Close flushes pending writes and closes the wrapped disk.
func (b *BufferedDisk) Close() error {
	if err := b.flushWrite(); err != nil {
		return err
	}

	return b.disk.Close()
}

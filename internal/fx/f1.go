package fx

import (
	"encoding/binary"

	"github.com/gopos/plot/internal/chacha8"
)

// blockSizeBits is the ChaCha8 keystream block size in bits (512), matching
// kF1BlockSizeBits in the original implementation.
const blockSizeBits = chacha8.BlockSize * 8

// F1 evaluates the F1 function (spec.md §4.2): a ChaCha8 keystream is
// generated from a key derived from the plot id, and interpreted as one
// flat bit stream; x's output bits are read directly out of that stream at
// bit offset x*k.
type F1 struct {
	k      int
	cipher *chacha8.Cipher
}

// NewF1 builds an F1 evaluator for the given k and 32-byte plot id.
//
// The ChaCha8 key is 0x01 followed by the first 31 bytes of plotID — not
// all 32 — matching the original construction exactly (spec.md §4.2 says
// "0x01 || plot_id[0..31]"; the reference implementation's memcpy only
// copies 31 bytes of the id after the leading 0x01, for a 32-byte key
// total).
func NewF1(k int, plotID [32]byte) *F1 {
	var key [32]byte

	key[0] = 1
	copy(key[1:], plotID[:31])

	return &F1{k: k, cipher: chacha8.New(key)}
}

// Result is one F1 evaluation: Y is k+ExtraBits bits, X is the original
// input (k bits), kept as the metadata table 1 entries carry forward.
type Result struct {
	Y uint64
	X uint64
}

// Calculate evaluates F1 for a single x.
func (f *F1) Calculate(x uint64) Result {
	return f.CalculateRange(x, 1)[0]
}

// CalculateRange evaluates F1 for count consecutive x values starting at
// startX, sharing keystream blocks across adjacent outputs the way the
// reference implementation batches ChaCha8 evaluation (spec.md §4.2).
func (f *F1) CalculateRange(startX uint64, count uint64) []Result {
	numOutputBits := uint64(f.k)

	firstBit := startX * numOutputBits
	lastBit := (startX+count)*numOutputBits - 1

	firstBlock := firstBit / blockSizeBits
	lastBlock := lastBit / blockSizeBits

	numBlocks := lastBlock - firstBlock + 1
	stream := make([]byte, numBlocks*chacha8.BlockSize)
	f.cipher.KeystreamBlocks(stream, firstBlock)

	streamBitOffset := firstBlock * blockSizeBits

	results := make([]Result, count)

	for i := uint64(0); i < count; i++ {
		x := startX + i
		bitStart := x*numOutputBits - streamBitOffset

		y := sliceBits(stream, bitStart, numOutputBits)

		extra := x >> (uint64(f.k) - ExtraBits)
		if f.k < ExtraBits {
			extra = x << (ExtraBits - uint64(f.k))
		}

		extra &= (1 << ExtraBits) - 1

		results[i] = Result{
			Y: y<<ExtraBits | extra,
			X: x,
		}
	}

	return results
}

// sliceBits reads numBits (<=64) big-endian bits starting at startBit out of
// a byte slice, local to this package to avoid importing bitpack for a
// single primitive (keeps the F1 hot loop allocation-free).
func sliceBits(data []byte, startBit, numBits uint64) uint64 {
	byteStart := startBit / 8
	bitInByte := startBit % 8

	var window [9]byte

	needBytes := int((bitInByte + numBits + 7) / 8)
	copy(window[:needBytes], data[byteStart:byteStart+uint64(needBytes)])

	hi := binary.BigEndian.Uint64(window[0:8])
	shifted := hi << bitInByte

	if needBytes > 8 {
		shifted |= uint64(window[8]) >> (8 - bitInByte)
	}

	return shifted >> (64 - numBits)
}

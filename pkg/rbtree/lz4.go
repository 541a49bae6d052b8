package rbtree

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// ErrCorruptBlock is returned when a hibernated column cannot be unpacked.
var ErrCorruptBlock = errors.New("corrupt hibernated block")

const uint32ByteSize = 4

// Every hibernated column is a block: a tag byte followed by the payload.
const (
	blockRaw byte = iota
	blockLZ4
)

// compressBytes packs data into a block. Input that LZ4 cannot shrink is
// stored raw.
func compressBytes(data []byte) []byte {
	block := make([]byte, 1+lz4.CompressBlockBound(len(data)))

	written, err := lz4.CompressBlock(data, block[1:], nil)
	if err != nil || written == 0 || written >= len(data) {
		return append([]byte{blockRaw}, data...)
	}

	block[0] = blockLZ4

	return block[:1+written]
}

// decompressBytes unpacks a block that held exactly size bytes.
func decompressBytes(block []byte, size int) ([]byte, error) {
	if len(block) == 0 {
		return nil, fmt.Errorf("%w: missing tag", ErrCorruptBlock)
	}

	switch block[0] {
	case blockRaw:
		if len(block)-1 != size {
			return nil, fmt.Errorf("%w: raw block of %d bytes, want %d", ErrCorruptBlock, len(block)-1, size)
		}

		return block[1:], nil
	case blockLZ4:
		data := make([]byte, size)

		written, err := lz4.UncompressBlock(block[1:], data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}

		if written != size {
			return nil, fmt.Errorf("%w: %d bytes instead of %d", ErrCorruptBlock, written, size)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrCorruptBlock, block[0])
	}
}

// packUint32s stores one hibernated uint32 column as a block.
func packUint32s(column []uint32) []byte {
	raw := make([]byte, 0, len(column)*uint32ByteSize)
	for _, value := range column {
		raw = binary.LittleEndian.AppendUint32(raw, value)
	}

	return compressBytes(raw)
}

// unpackUint32s fills column from a block made by packUint32s.
func unpackUint32s(block []byte, column []uint32) error {
	raw, err := decompressBytes(block, len(column)*uint32ByteSize)
	if err != nil {
		return err
	}

	for idx := range column {
		column[idx] = binary.LittleEndian.Uint32(raw[idx*uint32ByteSize:])
	}

	return nil
}

// deltaEncode turns a sorted column into its successive differences, in place.
// Small repeated deltas compress far better than the IDs themselves.
func deltaEncode(column []uint32) {
	for idx := len(column) - 1; idx > 0; idx-- {
		column[idx] -= column[idx-1]
	}
}

// deltaDecode undoes deltaEncode.
func deltaDecode(column []uint32) {
	for idx := 1; idx < len(column); idx++ {
		column[idx] += column[idx-1]
	}
}

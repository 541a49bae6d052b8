package rbtree

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned by codecs when the input ends inside a value.
var ErrShortBuffer = errors.New("short buffer")

// Codec converts node values to bytes for hibernation and serialization.
type Codec[T any] interface {
	// AppendValue appends the encoding of value to dst.
	AppendValue(dst []byte, value T) []byte
	// ReadValue decodes one value from the head of src and reports the bytes consumed.
	ReadValue(src []byte) (T, int, error)
}

// Uint32Codec encodes uint32 values as uvarints.
type Uint32Codec struct{}

// AppendValue implements Codec.
func (Uint32Codec) AppendValue(dst []byte, value uint32) []byte {
	return binary.AppendUvarint(dst, uint64(value))
}

// ReadValue implements Codec.
func (Uint32Codec) ReadValue(src []byte) (uint32, int, error) {
	value, consumed := binary.Uvarint(src)
	if consumed <= 0 || value > uint64(^uint32(0)) {
		return 0, 0, ErrShortBuffer
	}

	return uint32(value), consumed, nil
}

// Int64Codec encodes int64 values as zig-zag varints.
type Int64Codec struct{}

// AppendValue implements Codec.
func (Int64Codec) AppendValue(dst []byte, value int64) []byte {
	return binary.AppendVarint(dst, value)
}

// ReadValue implements Codec.
func (Int64Codec) ReadValue(src []byte) (int64, int, error) {
	value, consumed := binary.Varint(src)
	if consumed <= 0 {
		return 0, 0, ErrShortBuffer
	}

	return value, consumed, nil
}

// StringCodec encodes strings with a uvarint length prefix.
type StringCodec struct{}

// AppendValue implements Codec.
func (StringCodec) AppendValue(dst []byte, value string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(value)))

	return append(dst, value...)
}

// ReadValue implements Codec.
func (StringCodec) ReadValue(src []byte) (string, int, error) {
	size, consumed := binary.Uvarint(src)
	if consumed <= 0 || uint64(len(src)-consumed) < size {
		return "", 0, ErrShortBuffer
	}

	end := consumed + int(size)

	return string(src[consumed:end]), end, nil
}

package rbtree

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sync"

	gitbinary "github.com/go-git/go-git/v5/utils/binary"

	"github.com/Sumatoshi-tech/rbjoin/pkg/safeconv"
)

// ErrIncompleteRead is returned when a read does not return the expected number of bytes.
var ErrIncompleteRead = errors.New("incomplete read")

// ErrCorruptValues is returned when the hibernated values cannot be decoded.
var ErrCorruptValues = errors.New("corrupt hibernated values")

// Hibernated column layout.
const (
	columnLeft = iota
	columnParent
	columnRight
	columnColorHeight
	columnGaps
	columnValues
	hibernatedColumns
)

// structuralColumns is the number of per-node uint32 columns.
const structuralColumns = columnColorHeight + 1

type hibernatedState[T any] struct {
	columns    [hibernatedColumns][]byte
	values     []T
	storageLen int
	gapsLen    int
	valuesLen  int
}

// Hibernated reports whether the allocator currently holds compressed storage.
func (allocator *Allocator[T]) Hibernated() bool {
	return allocator.storage == nil
}

// Hibernate compresses the allocated memory. NodeIDs stay valid and become
// usable again after Boot.
func (allocator *Allocator[T]) Hibernate() {
	allocator.hibernate(false)
}

// hibernate ignores HibernationThreshold when force is set.
func (allocator *Allocator[T]) hibernate(force bool) {
	if allocator.hibernated.storageLen > 0 {
		panic("cannot hibernate an already hibernated Allocator")
	}

	if !force && len(allocator.storage) < allocator.HibernationThreshold {
		return
	}

	allocator.hibernated.storageLen = len(allocator.storage)
	if allocator.hibernated.storageLen == 0 {
		allocator.storage = nil

		return
	}

	buffers := [structuralColumns][]uint32{}

	for idx := range buffers {
		buffers[idx] = make([]uint32, len(allocator.storage))
	}

	// We deinterleave to achieve a better compression ratio.
	for idx, nd := range allocator.storage {
		buffers[columnLeft][idx] = uint32(nd.left)
		buffers[columnParent][idx] = uint32(nd.parent)
		buffers[columnRight][idx] = uint32(nd.right)

		colorHeight := uint32(nd.height) << 1
		if nd.color {
			colorHeight |= 1
		}

		buffers[columnColorHeight][idx] = colorHeight
	}

	storage := allocator.storage
	allocator.storage = nil

	wg := &sync.WaitGroup{}
	wg.Add(len(buffers) + 2)

	for idx, buffer := range buffers {
		go func(bufIdx int, buf []uint32) {
			allocator.hibernated.columns[bufIdx] = packUint32s(buf)
			buffers[bufIdx] = nil

			wg.Done()
		}(idx, buffer)
	}

	// Gaps are stored sorted and delta encoded.
	go func() {
		if len(allocator.gaps) > 0 {
			allocator.hibernated.gapsLen = len(allocator.gaps)

			gapsBuffer := make([]uint32, 0, len(allocator.gaps))
			for key := range allocator.gaps {
				gapsBuffer = append(gapsBuffer, uint32(key))
			}

			slices.Sort(gapsBuffer)
			deltaEncode(gapsBuffer)
			allocator.hibernated.columns[columnGaps] = packUint32s(gapsBuffer)
		}

		allocator.gaps = nil

		wg.Done()
	}()

	// Encode values.
	go func() {
		defer wg.Done()

		if allocator.Codec == nil {
			allocator.hibernated.values = make([]T, len(storage))
			for idx := range storage {
				allocator.hibernated.values[idx] = storage[idx].value
			}

			return
		}

		var encoded []byte
		for idx := range storage {
			encoded = allocator.Codec.AppendValue(encoded, storage[idx].value)
		}

		allocator.hibernated.valuesLen = len(encoded)
		allocator.hibernated.columns[columnValues] = compressBytes(encoded)
	}()

	wg.Wait()
}

// Boot restores the storage packed by Hibernate or read by Deserialize. A
// corrupt column fails with ErrCorruptBlock and leaves the allocator
// hibernated.
func (allocator *Allocator[T]) Boot() error {
	if allocator.storage == nil && allocator.hibernated.storageLen == 0 {
		allocator.storage = []node[T]{}
		allocator.gaps = map[NodeID]bool{}

		return nil
	}

	if allocator.hibernated.storageLen == 0 {
		// Not hibernated.
		return nil
	}

	if allocator.hibernated.columns[columnLeft] == nil {
		panic("cannot boot a serialized Allocator")
	}

	storageLen := allocator.hibernated.storageLen
	buffers := [structuralColumns][]uint32{}

	gaps := make([]uint32, allocator.hibernated.gapsLen)
	unpackErrs := [structuralColumns + 1]error{}

	wg := &sync.WaitGroup{}
	wg.Add(len(buffers) + 1)

	for idx := range buffers {
		go func(bufIdx int) {
			defer wg.Done()

			buffers[bufIdx] = make([]uint32, storageLen)
			unpackErrs[bufIdx] = unpackUint32s(allocator.hibernated.columns[bufIdx], buffers[bufIdx])
		}(idx)
	}

	go func() {
		defer wg.Done()

		if len(gaps) > 0 {
			unpackErrs[structuralColumns] = unpackUint32s(allocator.hibernated.columns[columnGaps], gaps)
			deltaDecode(gaps)
		}
	}()

	wg.Wait()

	// The hibernated state is left intact on failure.
	err := errors.Join(unpackErrs[:]...)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	for idx, packed := range buffers[columnColorHeight] {
		if packed>>1 > math.MaxUint8 {
			return fmt.Errorf("boot: %w: node %d height %d", ErrCorruptBlock, idx, packed>>1)
		}
	}

	values, err := allocator.bootValues(storageLen)
	if err != nil {
		return err
	}

	allocator.gaps = make(map[NodeID]bool, len(gaps))
	for _, key := range gaps {
		allocator.gaps[NodeID(key)] = true
	}

	capSize := (storageLen * growCapacityNumerator) / growCapacityDenominator
	allocator.storage = make([]node[T], storageLen, capSize)

	for idx := range allocator.storage {
		nd := &allocator.storage[idx]
		nd.left = NodeID(buffers[columnLeft][idx])
		nd.parent = NodeID(buffers[columnParent][idx])
		nd.right = NodeID(buffers[columnRight][idx])
		nd.color = buffers[columnColorHeight][idx]&1 == 1
		nd.height = safeconv.Must[uint8](buffers[columnColorHeight][idx] >> 1)
		nd.value = values[idx]
	}

	allocator.hibernated = hibernatedState[T]{}

	return nil
}

func (allocator *Allocator[T]) bootValues(storageLen int) ([]T, error) {
	if allocator.hibernated.values != nil {
		return allocator.hibernated.values, nil
	}

	if allocator.Codec == nil {
		return nil, ErrNoCodec
	}

	encoded, err := decompressBytes(allocator.hibernated.columns[columnValues], allocator.hibernated.valuesLen)
	if err != nil {
		return nil, err
	}

	values := make([]T, storageLen)

	for idx := range values {
		value, consumed, readErr := allocator.Codec.ReadValue(encoded)
		if readErr != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrCorruptValues, idx, readErr)
		}

		values[idx] = value
		encoded = encoded[consumed:]
	}

	return values, nil
}

// Serialize writes the hibernated allocator on disk.
func (allocator *Allocator[T]) Serialize(path string) error {
	if allocator.storage != nil {
		panic("serialization requires the hibernated state")
	}

	if allocator.hibernated.storageLen > 0 && allocator.hibernated.values != nil {
		return ErrNoCodec
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	defer file.Close()

	header := []struct {
		name  string
		value int
	}{
		{"storage len", allocator.hibernated.storageLen},
		{"gaps len", allocator.hibernated.gapsLen},
		{"values len", allocator.hibernated.valuesLen},
	}

	for _, field := range header {
		err = gitbinary.WriteVariableWidthInt(file, int64(field.value))
		if err != nil {
			return fmt.Errorf("write %s: %w", field.name, err)
		}
	}

	for idx, column := range allocator.hibernated.columns {
		err = gitbinary.WriteVariableWidthInt(file, int64(len(column)))
		if err != nil {
			return fmt.Errorf("write data len %d: %w", idx, err)
		}

		_, err = file.Write(column)
		if err != nil {
			return fmt.Errorf("write data %d: %w", idx, err)
		}

		allocator.hibernated.columns[idx] = nil
	}

	return nil
}

// Deserialize reads a hibernated allocator from disk. Boot must follow.
func (allocator *Allocator[T]) Deserialize(path string) error {
	if allocator.storage != nil {
		panic("deserialization requires the hibernated state")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	header := [3]int{}

	for idx := range header {
		value, readErr := gitbinary.ReadVariableWidthInt(file)
		if readErr != nil {
			return fmt.Errorf("read header %d: %w", idx, readErr)
		}

		// Node indices are uint32.
		if value < 0 || value > math.MaxUint32 {
			return fmt.Errorf("%w: header %d is %d", ErrCorruptBlock, idx, value)
		}

		header[idx] = int(value)
	}

	allocator.hibernated.storageLen = header[0]
	allocator.hibernated.gapsLen = header[1]
	allocator.hibernated.valuesLen = header[2]

	for idx := range allocator.hibernated.columns {
		dataLen, readErr := gitbinary.ReadVariableWidthInt(file)
		if readErr != nil {
			return fmt.Errorf("read data len %d: %w", idx, readErr)
		}

		offset, seekErr := file.Seek(0, io.SeekCurrent)
		if seekErr != nil {
			return fmt.Errorf("read data len %d: %w", idx, seekErr)
		}

		if dataLen < 0 || dataLen > info.Size()-offset {
			return fmt.Errorf("%w: column %d length %d with %d bytes left", ErrCorruptBlock, idx, dataLen, info.Size()-offset)
		}

		allocator.hibernated.columns[idx] = make([]byte, int(dataLen))

		bytesRead, readErr := io.ReadFull(file, allocator.hibernated.columns[idx])
		if readErr != nil {
			return fmt.Errorf("%w %d: %d instead of %d: %w", ErrIncompleteRead, idx, bytesRead, int(dataLen), readErr)
		}
	}

	return nil
}

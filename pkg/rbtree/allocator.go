package rbtree

import (
	"errors"
	"maps"
	"math"

	"github.com/Sumatoshi-tech/rbjoin/pkg/safeconv"
)

// ErrNoCodec is returned when values must be encoded but the allocator has no Codec.
var ErrNoCodec = errors.New("allocator has no value codec")

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor for storage.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// maxBlackHeight bounds the stored black-height; a uint32 arena never gets close.
const maxBlackHeight = math.MaxUint8

// Allocator is the arena holding the nodes of any number of trees. Trees are
// identified by their root NodeID only; the allocator never tracks roots.
//
// An Allocator is not safe for concurrent use.
type Allocator[T any] struct {
	storage []node[T]
	gaps    map[NodeID]bool

	// Codec encodes values when hibernating and serializing. Without a codec,
	// hibernation keeps the values uncompressed and serialization fails.
	Codec Codec[T]

	hibernated           hibernatedState[T]
	HibernationThreshold int
}

// NewAllocator creates a new allocator for tree nodes.
func NewAllocator[T any]() *Allocator[T] {
	return &Allocator[T]{
		storage: []node[T]{},
		gaps:    map[NodeID]bool{},
	}
}

// NewAllocatorWithCodec creates an allocator able to hibernate and serialize its values.
func NewAllocatorWithCodec[T any](codec Codec[T]) *Allocator[T] {
	allocator := NewAllocator[T]()
	allocator.Codec = codec

	return allocator
}

// Size returns the currently allocated size.
func (allocator *Allocator[T]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of nodes contained in the allocator.
func (allocator *Allocator[T]) Used() int {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if len(allocator.storage) == 0 {
		return 0
	}

	// Node #0 is the reserved null node.
	return len(allocator.storage) - len(allocator.gaps) - 1
}

// Clone copies an existing allocator. Trees of the original are valid in the
// clone under the same root NodeIDs.
func (allocator *Allocator[T]) Clone() *Allocator[T] {
	if allocator.storage == nil {
		panic("cannot clone a hibernated allocator")
	}

	newAllocator := &Allocator[T]{
		HibernationThreshold: allocator.HibernationThreshold,
		Codec:                allocator.Codec,
		storage:              make([]node[T], len(allocator.storage), cap(allocator.storage)),
		gaps:                 map[NodeID]bool{},
	}
	copy(newAllocator.storage, allocator.storage)
	maps.Copy(newAllocator.gaps, allocator.gaps)

	return newAllocator
}

// NewNode allocates a detached black node holding value. It is meant for
// AddPredecessorNode, AddSuccessorNode and JoinRB.
func (allocator *Allocator[T]) NewNode(value T) NodeID {
	nodeIdx := allocator.malloc()
	nd := &allocator.storage[nodeIdx]
	nd.value = value
	nd.color = black
	nd.height = 1

	return nodeIdx
}

// newRedNode allocates a red leaf, the shape every insertion starts from.
func (allocator *Allocator[T]) newRedNode(value T) NodeID {
	nodeIdx := allocator.NewNode(value)
	allocator.storage[nodeIdx].color = red

	return nodeIdx
}

// Erase frees every node of the subtree rooted at root.
func (allocator *Allocator[T]) Erase(root NodeID) {
	if root == Nil {
		return
	}

	allocator.replaceChild(allocator.storage[root].parent, root, Nil)

	stack := []NodeID{root}
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nd := allocator.storage[nodeIdx]
		if nd.left != Nil {
			stack = append(stack, nd.left)
		}

		if nd.right != Nil {
			stack = append(stack, nd.right)
		}

		allocator.free(nodeIdx)
	}
}

func (allocator *Allocator[T]) malloc() NodeID {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if len(allocator.gaps) > 0 {
		var key NodeID

		for key = range allocator.gaps {
			break
		}

		delete(allocator.gaps, key)

		return key
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node[T]{})
		nodeLen = 1
	}

	if nodeLen == math.MaxUint32 {
		panic("the size of the node allocator has reached the maximum value for uint32")
	}

	allocator.storage = append(allocator.storage, node[T]{})

	return NodeID(safeconv.Must[uint32](nodeLen))
}

func (allocator *Allocator[T]) free(nodeIdx NodeID) {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if nodeIdx == Nil {
		panic("node #0 is special and cannot be deallocated")
	}

	_, exists := allocator.gaps[nodeIdx]
	doAssert(!exists)

	allocator.storage[nodeIdx] = node[T]{}
	allocator.gaps[nodeIdx] = true
}

package rbtree

import (
	"math/bits"

	"github.com/Sumatoshi-tech/rbjoin/pkg/safeconv"
)

// Treeify builds a tree from values, which must be sorted and free of
// duplicates, in O(n). The shape is the midpoint split of the slice, so every
// level except the deepest is full. When n+1 is a power of two the tree is
// perfect and all black; otherwise the partial deepest layer is red.
func (allocator *Allocator[T]) Treeify(values []T) NodeID {
	if len(values) == 0 {
		return Nil
	}

	redDepth := -1

	count := safeconv.Must[uint](len(values))
	if (count+1)&count != 0 {
		redDepth = bits.Len(count) - 1
	}

	return allocator.treeify(values, 0, redDepth)
}

func (allocator *Allocator[T]) treeify(values []T, depth, redDepth int) NodeID {
	if len(values) == 0 {
		return Nil
	}

	mid := len(values) / 2
	left := allocator.treeify(values[:mid], depth+1, redDepth)
	nodeIdx := allocator.NewNode(values[mid])
	right := allocator.treeify(values[mid+1:], depth+1, redDepth)

	allocator.setLeft(nodeIdx, left)
	allocator.setRight(nodeIdx, right)

	if depth == redDepth {
		allocator.storage[nodeIdx].color = red
	}

	allocator.fix(nodeIdx)

	return nodeIdx
}

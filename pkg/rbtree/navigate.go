package rbtree

import "iter"

// Leftmost returns the node holding the minimum of the subtree, or Nil.
func (allocator *Allocator[T]) Leftmost(nodeIdx NodeID) NodeID {
	if nodeIdx == Nil {
		return Nil
	}

	for allocator.storage[nodeIdx].left != Nil {
		nodeIdx = allocator.storage[nodeIdx].left
	}

	return nodeIdx
}

// Rightmost returns the node holding the maximum of the subtree, or Nil.
func (allocator *Allocator[T]) Rightmost(nodeIdx NodeID) NodeID {
	if nodeIdx == Nil {
		return Nil
	}

	for allocator.storage[nodeIdx].right != Nil {
		nodeIdx = allocator.storage[nodeIdx].right
	}

	return nodeIdx
}

// Successor returns the minimum node that's larger than nodeIdx, or Nil if no
// such node is found.
func (allocator *Allocator[T]) Successor(nodeIdx NodeID) NodeID {
	if allocator.storage[nodeIdx].right != Nil {
		return allocator.Leftmost(allocator.storage[nodeIdx].right)
	}

	for {
		parentIdx := allocator.storage[nodeIdx].parent
		if parentIdx == Nil {
			return Nil
		}

		if allocator.storage[parentIdx].left == nodeIdx {
			return parentIdx
		}

		nodeIdx = parentIdx
	}
}

// Predecessor returns the maximum node that's smaller than nodeIdx, or Nil if
// no such node is found.
func (allocator *Allocator[T]) Predecessor(nodeIdx NodeID) NodeID {
	if allocator.storage[nodeIdx].left != Nil {
		return allocator.Rightmost(allocator.storage[nodeIdx].left)
	}

	for {
		parentIdx := allocator.storage[nodeIdx].parent
		if parentIdx == Nil {
			return Nil
		}

		if allocator.storage[parentIdx].right == nodeIdx {
			return parentIdx
		}

		nodeIdx = parentIdx
	}
}

// CountNodes returns the number of nodes in the subtree.
func (allocator *Allocator[T]) CountNodes(root NodeID) int {
	count := 0

	for range allocator.nodes(root) {
		count++
	}

	return count
}

// ToSlice returns the values of the subtree in order.
func (allocator *Allocator[T]) ToSlice(root NodeID) []T {
	var result []T

	for value := range allocator.All(root) {
		result = append(result, value)
	}

	return result
}

// All iterates over the values of the subtree in ascending order. The tree
// must not be modified during the iteration.
func (allocator *Allocator[T]) All(root NodeID) iter.Seq[T] {
	return func(yield func(T) bool) {
		for nodeIdx := range allocator.nodes(root) {
			if !yield(allocator.storage[nodeIdx].value) {
				return
			}
		}
	}
}

// Backward iterates over the values of the subtree in descending order.
func (allocator *Allocator[T]) Backward(root NodeID) iter.Seq[T] {
	return func(yield func(T) bool) {
		for nodeIdx := range allocator.walk(root, true) {
			if !yield(allocator.storage[nodeIdx].value) {
				return
			}
		}
	}
}

// nodes yields the node ids of the subtree in order.
func (allocator *Allocator[T]) nodes(root NodeID) iter.Seq[NodeID] {
	return allocator.walk(root, false)
}

// walk is an in-order traversal with an explicit stack, so that it stays inside
// the subtree even when root has a parent.
func (allocator *Allocator[T]) walk(root NodeID, reverse bool) iter.Seq[NodeID] {
	near := func(nodeIdx NodeID) NodeID {
		if reverse {
			return allocator.storage[nodeIdx].right
		}

		return allocator.storage[nodeIdx].left
	}

	far := func(nodeIdx NodeID) NodeID {
		if reverse {
			return allocator.storage[nodeIdx].left
		}

		return allocator.storage[nodeIdx].right
	}

	return func(yield func(NodeID) bool) {
		var stack []NodeID

		for cursor := root; cursor != Nil || len(stack) > 0; {
			if cursor != Nil {
				stack = append(stack, cursor)
				cursor = near(cursor)

				continue
			}

			cursor = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(cursor) {
				return
			}

			cursor = far(cursor)
		}
	}
}

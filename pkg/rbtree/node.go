package rbtree

import "github.com/Sumatoshi-tech/rbjoin/pkg/safeconv"

// NodeID addresses a node inside an Allocator. The zero value is the null node,
// so a NodeID is also the handle of the (sub)tree rooted at that node.
type NodeID uint32

// Nil is the null node and the empty tree.
const Nil NodeID = 0

// Comparator orders two values: negative if a < b, zero if equal, positive if a > b.
type Comparator[T any] func(a, b T) int

// Probe compares a fixed query against a node value. A negative result descends
// left, a positive one descends right and zero reports a match.
type Probe[T any] func(value T) int

// KeyProbe binds key to cmp, producing the probe used by Search.
func KeyProbe[T any](cmp Comparator[T], key T) Probe[T] {
	return func(value T) int {
		return cmp(key, value)
	}
}

// CreateEmptyTree returns the root of an empty tree.
func CreateEmptyTree() NodeID {
	return Nil
}

const (
	red   = false
	black = true
)

type node[T any] struct {
	value               T
	parent, left, right NodeID
	height              uint8 // Black-height, see BlackHeight.
	color               bool  // Black or red.
}

// Internal node attribute accessors.

func (allocator *Allocator[T]) isRed(nodeIdx NodeID) bool {
	return nodeIdx != Nil && allocator.storage[nodeIdx].color == red
}

func (allocator *Allocator[T]) isBlack(nodeIdx NodeID) bool {
	return !allocator.isRed(nodeIdx)
}

func (allocator *Allocator[T]) heightOf(nodeIdx NodeID) int {
	if nodeIdx == Nil {
		return 0
	}

	return int(allocator.storage[nodeIdx].height)
}

// contribution is the black-height a child adds to its parent.
func (allocator *Allocator[T]) contribution(nodeIdx NodeID) int {
	if allocator.isBlack(nodeIdx) {
		return allocator.heightOf(nodeIdx) + 1
	}

	return allocator.heightOf(nodeIdx)
}

// fix refreshes the stored black-height of nodeIdx from its children. The taller
// side wins so that a subtree carrying a deletion debt does not lower the value.
func (allocator *Allocator[T]) fix(nodeIdx NodeID) {
	if nodeIdx == Nil {
		return
	}

	nd := &allocator.storage[nodeIdx]
	height := max(allocator.contribution(nd.left), allocator.contribution(nd.right))
	doAssert(height <= maxBlackHeight)

	nd.height = safeconv.Must[uint8](height)
}

func (allocator *Allocator[T]) setColor(nodeIdx NodeID, color bool) {
	if nodeIdx != Nil {
		allocator.storage[nodeIdx].color = color
	}
}

func (allocator *Allocator[T]) setLeft(parentIdx, childIdx NodeID) {
	allocator.storage[parentIdx].left = childIdx
	if childIdx != Nil {
		allocator.storage[childIdx].parent = parentIdx
	}
}

func (allocator *Allocator[T]) setRight(parentIdx, childIdx NodeID) {
	allocator.storage[parentIdx].right = childIdx
	if childIdx != Nil {
		allocator.storage[childIdx].parent = parentIdx
	}
}

func (allocator *Allocator[T]) isLeftChild(nodeIdx NodeID) bool {
	parentIdx := allocator.storage[nodeIdx].parent

	return parentIdx != Nil && allocator.storage[parentIdx].left == nodeIdx
}

func (allocator *Allocator[T]) sibling(nodeIdx NodeID) NodeID {
	parentIdx := allocator.storage[nodeIdx].parent
	doAssert(parentIdx != Nil)

	if allocator.storage[parentIdx].left == nodeIdx {
		return allocator.storage[parentIdx].right
	}

	return allocator.storage[parentIdx].left
}

// replaceChild hooks newn where oldn hung below parentIdx. A zero parent means
// oldn was a root; newn then becomes a detached root.
func (allocator *Allocator[T]) replaceChild(parentIdx, oldn, newn NodeID) {
	if parentIdx != Nil {
		if allocator.storage[parentIdx].left == oldn {
			allocator.storage[parentIdx].left = newn
		} else {
			doAssert(allocator.storage[parentIdx].right == oldn)
			allocator.storage[parentIdx].right = newn
		}
	}

	if newn != Nil {
		allocator.storage[newn].parent = parentIdx
	}
}

// detach cuts the parent link of a subtree root so it can be handed to join.
func (allocator *Allocator[T]) detach(nodeIdx NodeID) {
	if nodeIdx != Nil {
		allocator.storage[nodeIdx].parent = Nil
	}
}

// reset turns nodeIdx into a lone black node, keeping its value.
func (allocator *Allocator[T]) reset(nodeIdx NodeID) {
	nd := &allocator.storage[nodeIdx]
	nd.parent, nd.left, nd.right = Nil, Nil, Nil
	nd.color = black
	nd.height = 1
}

// blacken paints a subtree root black. The stored height of the root does not
// depend on its own color.
func (allocator *Allocator[T]) blacken(nodeIdx NodeID) NodeID {
	allocator.setColor(nodeIdx, black)

	return nodeIdx
}

// Value returns the payload of the node.
func (allocator *Allocator[T]) Value(nodeIdx NodeID) T {
	doAssert(nodeIdx != Nil)

	return allocator.storage[nodeIdx].value
}

// IsRed reports whether the node is red. The null node is black.
func (allocator *Allocator[T]) IsRed(nodeIdx NodeID) bool {
	return allocator.isRed(nodeIdx)
}

// BlackHeight is the number of black nodes on any path from the node down to a
// null leaf, counting the leaf and excluding the node itself. It is zero for Nil
// and at least one for any real node.
// A node's value is each child's value plus one when that child is black, so
// the root of a perfect all-black tree of seven nodes reports 3 and its leaves
// report 1.
func (allocator *Allocator[T]) BlackHeight(nodeIdx NodeID) int {
	return allocator.heightOf(nodeIdx)
}

// Left returns the left child.
func (allocator *Allocator[T]) Left(nodeIdx NodeID) NodeID {
	return allocator.storage[nodeIdx].left
}

// Right returns the right child.
func (allocator *Allocator[T]) Right(nodeIdx NodeID) NodeID {
	return allocator.storage[nodeIdx].right
}

// Parent returns the parent back-reference.
func (allocator *Allocator[T]) Parent(nodeIdx NodeID) NodeID {
	return allocator.storage[nodeIdx].parent
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}

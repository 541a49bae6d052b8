package rbtree

// rotation names the restructuring that turns a 2-node into a 3-node by
// borrowing from its sibling during top-down removal.
type rotation int

const (
	rotationLeft rotation = iota
	rotationRight
	rotationLeftRight
	rotationRightLeft
)

// rotate performs a tree rotation around pivot and returns the node which took
// its place. isLeft=true performs a left rotation, isLeft=false a right one.
// The new top is linked under the pivot's former parent and the black-heights
// of both moved nodes are refreshed.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (allocator *Allocator[T]) rotate(pivot NodeID, isLeft bool) NodeID {
	parentIdx := allocator.storage[pivot].parent

	var child NodeID

	if isLeft {
		child = allocator.storage[pivot].right
		doAssert(child != Nil)
		allocator.setRight(pivot, allocator.storage[child].left)
		allocator.setLeft(child, pivot)
	} else {
		child = allocator.storage[pivot].left
		doAssert(child != Nil)
		allocator.setLeft(pivot, allocator.storage[child].right)
		allocator.setRight(child, pivot)
	}

	allocator.replaceChild(parentIdx, pivot, child)
	allocator.fix(pivot)
	allocator.fix(child)

	return child
}

func (allocator *Allocator[T]) rotateLeft(nodeIdx NodeID) NodeID {
	return allocator.rotate(nodeIdx, true)
}

func (allocator *Allocator[T]) rotateRight(nodeIdx NodeID) NodeID {
	return allocator.rotate(nodeIdx, false)
}

// rotateLeftRight lifts the right child of the left child above nodeIdx.
func (allocator *Allocator[T]) rotateLeftRight(nodeIdx NodeID) NodeID {
	allocator.rotateLeft(allocator.storage[nodeIdx].left)

	return allocator.rotateRight(nodeIdx)
}

// rotateRightLeft lifts the left child of the right child above nodeIdx.
func (allocator *Allocator[T]) rotateRightLeft(nodeIdx NodeID) NodeID {
	allocator.rotateRight(allocator.storage[nodeIdx].right)

	return allocator.rotateLeft(nodeIdx)
}

// rootAfter returns the tree root once top has been rotated into place.
func (allocator *Allocator[T]) rootAfter(root, top NodeID) NodeID {
	if allocator.storage[top].parent == Nil {
		return top
	}

	return root
}

// is2Node reports a black node without red children.
func (allocator *Allocator[T]) is2Node(nodeIdx NodeID) bool {
	nd := allocator.storage[nodeIdx]

	return nd.color == black && allocator.isBlack(nd.left) && allocator.isBlack(nd.right)
}

// is4Node reports a node with two red children.
func (allocator *Allocator[T]) is4Node(nodeIdx NodeID) bool {
	nd := allocator.storage[nodeIdx]

	return allocator.isRed(nd.left) && allocator.isRed(nd.right)
}

// split4Node pushes the middle key of a 4-node up: the node turns red and its
// children black, which raises its black-height by one.
func (allocator *Allocator[T]) split4Node(nodeIdx NodeID) {
	nd := &allocator.storage[nodeIdx]
	nd.color = red
	allocator.storage[nd.left].color = black
	allocator.storage[nd.right].color = black
	allocator.fix(nodeIdx)
}

// merge2Nodes fuses a red node and its two 2-node children into a 4-node.
func (allocator *Allocator[T]) merge2Nodes(nodeIdx NodeID) {
	nd := &allocator.storage[nodeIdx]
	doAssert(nd.color == red)
	doAssert(allocator.is2Node(nd.left) && allocator.is2Node(nd.right))

	nd.color = black
	allocator.storage[nd.left].color = red
	allocator.storage[nd.right].color = red
	allocator.fix(nodeIdx)
}

// rotationFor2Node picks how parentIdx lends a key from sibling (a 3- or 4-node)
// to current.
func (allocator *Allocator[T]) rotationFor2Node(parentIdx, current, sibling NodeID) rotation {
	siblingNode := allocator.storage[sibling]
	doAssert(allocator.isRed(siblingNode.left) || allocator.isRed(siblingNode.right))

	currentIsLeft := allocator.storage[parentIdx].left == current

	if allocator.isRed(siblingNode.left) {
		if currentIsLeft {
			return rotationRightLeft
		}

		return rotationRight
	}

	if currentIsLeft {
		return rotationLeft
	}

	return rotationLeftRight
}

// applyRotation performs rot at parentIdx and returns the new subtree top. The
// single rotations blacken the red grandchild that would otherwise end up
// under a red node.
func (allocator *Allocator[T]) applyRotation(parentIdx NodeID, rot rotation) NodeID {
	switch rot {
	case rotationRight:
		allocator.storage[allocator.storage[allocator.storage[parentIdx].left].left].color = black

		return allocator.rotateRight(parentIdx)
	case rotationLeft:
		allocator.storage[allocator.storage[allocator.storage[parentIdx].right].right].color = black

		return allocator.rotateLeft(parentIdx)
	case rotationRightLeft:
		doAssert(allocator.isRed(allocator.storage[allocator.storage[parentIdx].right].left))

		return allocator.rotateRightLeft(parentIdx)
	case rotationLeftRight:
		doAssert(allocator.isRed(allocator.storage[allocator.storage[parentIdx].left].right))

		return allocator.rotateLeftRight(parentIdx)
	default:
		panic("unknown rotation")
	}
}

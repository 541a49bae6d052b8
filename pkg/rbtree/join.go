package rbtree

import (
	"errors"
	"fmt"
)

// ErrNotSorted is returned by InsertInOrderContiguous when the run is not strictly increasing.
var ErrNotSorted = errors.New("values are not strictly increasing")

// ErrRangeOverlap is returned by InsertInOrderContiguous when the tree already holds
// values between the first and the last element of the run.
var ErrRangeOverlap = errors.New("tree overlaps the inserted range")

// JoinRB links left, mid and right into one tree. Every value of left must be
// smaller than mid and every value of right larger. mid must be detached, for
// example fresh from NewNode or the match returned by TrySplit. The work is
// proportional to the difference of the black-heights of left and right.
func (allocator *Allocator[T]) JoinRB(left, mid, right NodeID) NodeID {
	doAssert(mid != Nil)

	return allocator.blacken(allocator.joinRB(left, mid, right))
}

// joinRB is JoinRB without the final root blackening: the result may be a red
// root with black children.
func (allocator *Allocator[T]) joinRB(left, mid, right NodeID) NodeID {
	allocator.detach(left)
	allocator.detach(right)
	allocator.blacken(left)
	allocator.blacken(right)
	allocator.reset(mid)

	leftRank, rightRank := allocator.heightOf(left), allocator.heightOf(right)

	switch {
	case leftRank > rightRank:
		return allocator.fixRedJoinRoot(allocator.joinRightRB(left, mid, right))
	case leftRank < rightRank:
		return allocator.fixRedJoinRoot(allocator.joinLeftRB(left, mid, right))
	default:
		return allocator.makeNode(left, mid, right, red)
	}
}

// joinRightRB hangs mid and right off the right spine of the taller left tree,
// at the first black node whose black-height matches right.
func (allocator *Allocator[T]) joinRightRB(left, mid, right NodeID) NodeID {
	if allocator.isBlack(left) && allocator.heightOf(left) == allocator.heightOf(right) {
		return allocator.makeNode(left, mid, right, red)
	}

	child := allocator.joinRightRB(allocator.storage[left].right, mid, right)
	allocator.setRight(left, child)
	allocator.fix(left)

	if allocator.isBlack(left) && allocator.isRed(child) && allocator.isRed(allocator.storage[child].right) {
		allocator.setColor(allocator.storage[child].right, black)

		return allocator.rotateLeft(left)
	}

	return left
}

// joinLeftRB mirrors joinRightRB for a taller right tree.
func (allocator *Allocator[T]) joinLeftRB(left, mid, right NodeID) NodeID {
	if allocator.isBlack(right) && allocator.heightOf(right) == allocator.heightOf(left) {
		return allocator.makeNode(left, mid, right, red)
	}

	child := allocator.joinLeftRB(left, mid, allocator.storage[right].left)
	allocator.setLeft(right, child)
	allocator.fix(right)

	if allocator.isBlack(right) && allocator.isRed(child) && allocator.isRed(allocator.storage[child].left) {
		allocator.setColor(allocator.storage[child].left, black)

		return allocator.rotateRight(right)
	}

	return right
}

// fixRedJoinRoot blackens a red root left with a red child by the spine walk.
func (allocator *Allocator[T]) fixRedJoinRoot(root NodeID) NodeID {
	nd := allocator.storage[root]
	if nd.color == red && (allocator.isRed(nd.left) || allocator.isRed(nd.right)) {
		allocator.storage[root].color = black
	}

	return root
}

func (allocator *Allocator[T]) makeNode(left, mid, right NodeID, color bool) NodeID {
	allocator.setLeft(mid, left)
	allocator.setRight(mid, right)
	allocator.storage[mid].color = color
	allocator.fix(mid)

	return mid
}

// TrySplit partitions the tree at key into the values smaller than key, the
// node equal to key (Nil if absent, otherwise a detached black node) and the
// values larger than key. The input tree is consumed.
func (allocator *Allocator[T]) TrySplit(root NodeID, key T, cmp Comparator[T]) (NodeID, NodeID, NodeID) {
	left, match, right := allocator.split(root, KeyProbe(cmp, key))

	return allocator.blacken(left), match, allocator.blacken(right)
}

func (allocator *Allocator[T]) split(root NodeID, probe Probe[T]) (NodeID, NodeID, NodeID) {
	if root == Nil {
		return Nil, Nil, Nil
	}

	nd := allocator.storage[root]
	allocator.detach(nd.left)
	allocator.detach(nd.right)

	order := probe(nd.value)

	switch {
	case order == 0:
		allocator.reset(root)

		return allocator.blacken(nd.left), root, allocator.blacken(nd.right)
	case order < 0:
		left, match, right := allocator.split(nd.left, probe)

		return left, match, allocator.joinRB(right, root, nd.right)
	default:
		left, match, right := allocator.split(nd.right, probe)

		return allocator.joinRB(nd.left, root, left), match, right
	}
}

// SplitFirst detaches the minimum. It returns the remaining tree and the
// minimum as a lone black node, or Nil for both on an empty tree.
func (allocator *Allocator[T]) SplitFirst(root NodeID) (NodeID, NodeID) {
	if root == Nil {
		return Nil, Nil
	}

	rest, first := allocator.splitFirst(root)

	return allocator.blacken(rest), first
}

func (allocator *Allocator[T]) splitFirst(root NodeID) (NodeID, NodeID) {
	nd := allocator.storage[root]
	allocator.detach(nd.left)
	allocator.detach(nd.right)

	if nd.left == Nil {
		allocator.reset(root)

		return allocator.blacken(nd.right), root
	}

	rest, first := allocator.splitFirst(nd.left)

	return allocator.joinRB(rest, root, nd.right), first
}

// SplitLast detaches the maximum. It returns the remaining tree and the
// maximum as a lone black node, or Nil for both on an empty tree.
func (allocator *Allocator[T]) SplitLast(root NodeID) (NodeID, NodeID) {
	if root == Nil {
		return Nil, Nil
	}

	rest, last := allocator.splitLast(root)

	return allocator.blacken(rest), last
}

func (allocator *Allocator[T]) splitLast(root NodeID) (NodeID, NodeID) {
	nd := allocator.storage[root]
	allocator.detach(nd.left)
	allocator.detach(nd.right)

	if nd.right == Nil {
		allocator.reset(root)

		return allocator.blacken(nd.left), root
	}

	rest, last := allocator.splitLast(nd.right)

	return allocator.joinRB(nd.left, root, rest), last
}

// Join2 concatenates two trees whose value ranges do not overlap, every value
// of left being smaller than every value of right. The maximum of left becomes
// the separating node.
func (allocator *Allocator[T]) Join2(left, right NodeID) NodeID {
	if left == Nil {
		allocator.detach(right)

		return allocator.blacken(right)
	}

	if right == Nil {
		allocator.detach(left)

		return allocator.blacken(left)
	}

	rest, mid := allocator.SplitLast(left)

	return allocator.JoinRB(rest, mid, right)
}

// InsertInOrderContiguous inserts a strictly increasing run of values none of
// which falls inside the current contents: the run is built with Treeify and
// joined between the two halves of the tree split at its bounds. On error the
// tree is left with the same contents and the returned root must still be used.
func (allocator *Allocator[T]) InsertInOrderContiguous(root NodeID, values []T, cmp Comparator[T]) (NodeID, error) {
	if len(values) == 0 {
		return root, nil
	}

	for idx := 1; idx < len(values); idx++ {
		if cmp(values[idx-1], values[idx]) >= 0 {
			return root, fmt.Errorf("%w: position %d", ErrNotSorted, idx)
		}
	}

	left, lowMatch, rest := allocator.split(root, KeyProbe(cmp, values[0]))
	middle, highMatch, right := allocator.split(rest, KeyProbe(cmp, values[len(values)-1]))

	if lowMatch != Nil || highMatch != Nil || middle != Nil {
		if highMatch != Nil {
			rest = allocator.JoinRB(middle, highMatch, right)
		} else {
			rest = allocator.Join2(middle, right)
		}

		if lowMatch != Nil {
			root = allocator.JoinRB(left, lowMatch, rest)
		} else {
			root = allocator.Join2(left, rest)
		}

		return root, ErrRangeOverlap
	}

	run := allocator.Treeify(values)

	return allocator.Join2(allocator.Join2(left, run), right), nil
}

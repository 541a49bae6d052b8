package rbtree

import (
	"errors"
	"fmt"
)

// Errors reported by VerifyInvariants.
var (
	ErrRedRoot             = errors.New("root is red")
	ErrRootHasParent       = errors.New("root has a parent")
	ErrRedRedViolation     = errors.New("red node has a red child")
	ErrBlackHeightMismatch = errors.New("paths differ in black node count")
	ErrStaleBlackHeight    = errors.New("stored black-height is stale")
	ErrOrderViolation      = errors.New("values are out of order")
	ErrBrokenParentLink    = errors.New("parent link does not match child link")
)

// VerifyInvariants checks the subtree at root. It always checks the red-red
// rule, the black-height balance, the stored black-heights and the parent
// links. assertRootInvariants adds the checks that only apply to a whole tree
// (black, detached root) and testOrderingInvariants the strict ordering under
// cmp, which may be nil otherwise.
//
// It is meant for tests and diagnostics; no mutating operation calls it.
func (allocator *Allocator[T]) VerifyInvariants(
	root NodeID, cmp Comparator[T], assertRootInvariants, testOrderingInvariants bool,
) error {
	if root == Nil {
		return nil
	}

	if assertRootInvariants {
		if allocator.storage[root].color == red {
			return fmt.Errorf("%w: node %d", ErrRedRoot, root)
		}

		if allocator.storage[root].parent != Nil {
			return fmt.Errorf("%w: node %d under %d", ErrRootHasParent, root, allocator.storage[root].parent)
		}
	}

	checker := invariantChecker[T]{allocator: allocator}
	if testOrderingInvariants {
		doAssert(cmp != nil)

		checker.cmp = cmp
	}

	_, err := checker.check(root, allocator.storage[root].parent)

	return err
}

type invariantChecker[T any] struct {
	allocator *Allocator[T]
	cmp       Comparator[T]
	prev      NodeID
}

// check returns the recomputed black-height of nodeIdx.
func (checker *invariantChecker[T]) check(nodeIdx, parentIdx NodeID) (int, error) {
	if nodeIdx == Nil {
		return 0, nil
	}

	allocator := checker.allocator
	nd := allocator.storage[nodeIdx]

	if nd.parent != parentIdx {
		return 0, fmt.Errorf("%w: node %d points to %d, hangs under %d",
			ErrBrokenParentLink, nodeIdx, nd.parent, parentIdx)
	}

	if nd.color == red && (allocator.isRed(nd.left) || allocator.isRed(nd.right)) {
		return 0, fmt.Errorf("%w: node %d", ErrRedRedViolation, nodeIdx)
	}

	leftHeight, err := checker.check(nd.left, nodeIdx)
	if err != nil {
		return 0, err
	}

	if checker.cmp != nil {
		if checker.prev != Nil && checker.cmp(allocator.storage[checker.prev].value, nd.value) >= 0 {
			return 0, fmt.Errorf("%w: node %d after node %d", ErrOrderViolation, nodeIdx, checker.prev)
		}

		checker.prev = nodeIdx
	}

	rightHeight, err := checker.check(nd.right, nodeIdx)
	if err != nil {
		return 0, err
	}

	leftHeight += blackBit(allocator.isBlack(nd.left))
	rightHeight += blackBit(allocator.isBlack(nd.right))

	if leftHeight != rightHeight {
		return 0, fmt.Errorf("%w: node %d has %d on the left and %d on the right",
			ErrBlackHeightMismatch, nodeIdx, leftHeight, rightHeight)
	}

	if int(nd.height) != leftHeight {
		return 0, fmt.Errorf("%w: node %d stores %d, computed %d",
			ErrStaleBlackHeight, nodeIdx, nd.height, leftHeight)
	}

	return leftHeight, nil
}

func blackBit(isBlack bool) int {
	if isBlack {
		return 1
	}

	return 0
}

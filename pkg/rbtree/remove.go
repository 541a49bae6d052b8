package rbtree

// TryRemove deletes the node equal to value. It returns the new root, the
// removed value and whether a match was found. The descent turns every 2-node
// it enters into a 3- or 4-node first, so the final splice never needs a fixup.
//
//nolint:gocognit,nestif // top-down deletion handles several borrow and merge cases in one pass.
func (allocator *Allocator[T]) TryRemove(root NodeID, value T, cmp Comparator[T]) (NodeID, T, bool) {
	var removed T

	if root == Nil {
		return root, removed, false
	}

	current := root
	match := Nil
	last := Nil

	for current != Nil {
		if allocator.is2Node(current) {
			parentIdx := allocator.storage[current].parent

			if parentIdx == Nil {
				// The root lends itself as a red node.
				allocator.storage[current].color = red
			} else {
				sibling := allocator.sibling(current)

				if allocator.isRed(sibling) {
					// Flip the orientation of the 3-node above so that current
					// gets a black sibling.
					doAssert(allocator.storage[parentIdx].color == black)

					top := allocator.rotate(parentIdx, allocator.storage[parentIdx].right == sibling)
					allocator.storage[parentIdx].color = red
					allocator.storage[sibling].color = black
					allocator.fix(parentIdx)
					allocator.fix(sibling)
					root = allocator.rootAfter(root, top)

					sibling = allocator.sibling(current)
				}

				doAssert(sibling != Nil && allocator.storage[sibling].color == black)

				if allocator.is2Node(sibling) {
					allocator.merge2Nodes(parentIdx)
				} else {
					parentColor := allocator.storage[parentIdx].color
					top := allocator.applyRotation(parentIdx, allocator.rotationFor2Node(parentIdx, current, sibling))
					allocator.storage[top].color = parentColor
					allocator.storage[parentIdx].color = black
					allocator.storage[current].color = red
					allocator.fix(parentIdx)
					allocator.fix(top)
					root = allocator.rootAfter(root, top)
				}
			}
		}

		// Past the match only the leftmost path of its right subtree matters.
		order := -1
		if match == Nil {
			order = cmp(value, allocator.storage[current].value)
		}

		if order == 0 {
			match = current
		}

		last = current

		if order < 0 {
			current = allocator.storage[current].left
		} else {
			current = allocator.storage[current].right
		}
	}

	if match == Nil {
		return allocator.blacken(root), removed, false
	}

	removed = allocator.storage[match].value
	root = allocator.replaceWithSuccessor(root, match, last)
	allocator.free(match)

	return allocator.blacken(root), removed, true
}

// replaceWithSuccessor moves successor into the position of match. The
// successor is either match itself (match has no right child) or the leftmost
// node of the right subtree; after the top-down fixing it is a red leaf or a
// black node with a single red right leaf.
func (allocator *Allocator[T]) replaceWithSuccessor(root, match, successor NodeID) NodeID {
	matchNode := allocator.storage[match]

	var replacement NodeID

	if successor == match {
		doAssert(matchNode.right == Nil)

		replacement = matchNode.left
	} else {
		succNode := allocator.storage[successor]
		doAssert(succNode.left == Nil)

		allocator.setColor(succNode.right, black)

		if succNode.parent != match {
			allocator.setLeft(succNode.parent, succNode.right)
			allocator.fix(succNode.parent)
			allocator.setRight(successor, matchNode.right)
		}

		allocator.setLeft(successor, matchNode.left)
		replacement = successor
	}

	allocator.replaceChild(matchNode.parent, match, replacement)

	if replacement != Nil {
		allocator.storage[replacement].color = matchNode.color
		allocator.fix(replacement)
	}

	if matchNode.parent == Nil {
		return replacement
	}

	return root
}

// RemoveNode unlinks and frees nodeIdx, which must belong to the tree at root.
// No comparisons are made.
func (allocator *Allocator[T]) RemoveNode(root, nodeIdx NodeID) NodeID {
	doAssert(nodeIdx != Nil)

	if allocator.storage[nodeIdx].left != Nil && allocator.storage[nodeIdx].right != Nil {
		pred := allocator.Rightmost(allocator.storage[nodeIdx].left)
		root = allocator.swapWithInOrderPredecessor(root, nodeIdx, pred)
	}

	nd := allocator.storage[nodeIdx]
	doAssert(nd.left == Nil || nd.right == Nil)

	child := nd.right
	if child == Nil {
		child = nd.left
	}

	allocator.replaceChild(nd.parent, nodeIdx, child)

	if nd.parent == Nil {
		root = child
	}

	if nd.color == black {
		root = allocator.removeFixup(root, child, nd.parent)
	}

	allocator.free(nodeIdx)

	return root
}

// swapWithInOrderPredecessor exchanges the tree positions of nodeIdx and pred,
// including colors and black-heights. The ordering invariant is broken until
// nodeIdx, now in pred's former place, is unlinked.
//
//nolint:gocognit // RB-tree node swapping is inherently complex with many pointer adjustments.
func (allocator *Allocator[T]) swapWithInOrderPredecessor(root, nodeIdx, pred NodeID) NodeID {
	doAssert(pred != nodeIdx)

	alloc := allocator.storage
	nodeCopy := alloc[nodeIdx]
	predCopy := alloc[pred]

	allocator.replaceChild(nodeCopy.parent, nodeIdx, pred)

	if predCopy.parent == nodeIdx {
		// pred is the direct left child of nodeIdx.
		allocator.setLeft(pred, nodeIdx)
		allocator.setRight(pred, nodeCopy.right)
	} else {
		allocator.setLeft(pred, nodeCopy.left)
		allocator.setRight(pred, nodeCopy.right)
		allocator.setRight(predCopy.parent, nodeIdx)
	}

	allocator.setLeft(nodeIdx, predCopy.left)
	alloc[nodeIdx].right = predCopy.right

	alloc[pred].color, alloc[nodeIdx].color = nodeCopy.color, predCopy.color
	alloc[pred].height, alloc[nodeIdx].height = nodeCopy.height, predCopy.height

	if nodeCopy.parent == Nil {
		return pred
	}

	return root
}

// removeFixup settles the missing black left behind when a black node was
// unlinked. debtor (possibly Nil) is the subtree one black short and
// parentIdx its parent.
//
//nolint:gocognit,cyclop // the classic five deletion cases.
func (allocator *Allocator[T]) removeFixup(root, debtor, parentIdx NodeID) NodeID {
	alloc := allocator.storage

	for parentIdx != Nil && allocator.isBlack(debtor) {
		debtorIsLeft := alloc[parentIdx].left == debtor
		sibling := alloc[parentIdx].left

		if debtorIsLeft {
			sibling = alloc[parentIdx].right
		}

		doAssert(sibling != Nil)

		// Case 1: red sibling. Rotate it above the parent, which turns red.
		if alloc[sibling].color == red {
			alloc[sibling].color = black
			alloc[parentIdx].color = red
			top := allocator.rotate(parentIdx, debtorIsLeft)
			root = allocator.rootAfter(root, top)

			if debtorIsLeft {
				sibling = alloc[parentIdx].right
			} else {
				sibling = alloc[parentIdx].left
			}
		}

		near, far := alloc[sibling].right, alloc[sibling].left
		if debtorIsLeft {
			near, far = alloc[sibling].left, alloc[sibling].right
		}

		// Case 2: black sibling with black children. Push the debt up.
		if allocator.isBlack(near) && allocator.isBlack(far) {
			alloc[sibling].color = red
			allocator.fix(parentIdx)
			debtor = parentIdx
			parentIdx = alloc[debtor].parent

			continue
		}

		// Case 3: only the near nephew is red. Rotate it above the sibling.
		if allocator.isBlack(far) {
			alloc[near].color = black
			alloc[sibling].color = red
			allocator.rotate(sibling, !debtorIsLeft)
			far = sibling
			sibling = near
		}

		// Case 4: the far nephew is red. One rotation absorbs the debt.
		alloc[sibling].color = alloc[parentIdx].color
		alloc[parentIdx].color = black
		alloc[far].color = black
		top := allocator.rotate(parentIdx, debtorIsLeft)
		root = allocator.rootAfter(root, top)
		debtor = Nil

		break
	}

	// Case 0: a red debtor (or the root) absorbs the debt by turning black.
	allocator.setColor(debtor, black)

	return root
}

package rbtree

// TryAdd inserts value unless an equal one is present. It returns the new root,
// the node holding value (the existing one on a duplicate) and whether a node
// was added. The insertion is a single top-down pass.
func (allocator *Allocator[T]) TryAdd(root NodeID, value T, cmp Comparator[T]) (NodeID, NodeID, bool) {
	return allocator.addWithProbe(root, value, KeyProbe(cmp, value))
}

// AddLeft inserts value as the new minimum. The caller guarantees it is smaller
// than every value in the tree.
func (allocator *Allocator[T]) AddLeft(root NodeID, value T) (NodeID, NodeID) {
	root, nodeIdx, _ := allocator.addWithProbe(root, value, func(T) int { return -1 })

	return root, nodeIdx
}

// AddRight inserts value as the new maximum. The caller guarantees it is larger
// than every value in the tree.
func (allocator *Allocator[T]) AddRight(root NodeID, value T) (NodeID, NodeID) {
	root, nodeIdx, _ := allocator.addWithProbe(root, value, func(T) int { return 1 })

	return root, nodeIdx
}

func (allocator *Allocator[T]) addWithProbe(root NodeID, value T, probe Probe[T]) (NodeID, NodeID, bool) {
	if root == Nil {
		nodeIdx := allocator.NewNode(value)

		return nodeIdx, nodeIdx, true
	}

	found := allocator.Search(root, probe, true)
	root = found.Root

	if found.Found {
		allocator.blacken(root)

		return root, found.Match, false
	}

	nodeIdx := allocator.newRedNode(value)
	if found.LastOrder < 0 {
		allocator.setLeft(found.Parent, nodeIdx)
	} else {
		allocator.setRight(found.Parent, nodeIdx)
	}

	if allocator.isRed(found.Parent) {
		root = allocator.insertionBalance(root, nodeIdx)
	}

	return allocator.blacken(root), nodeIdx, true
}

// AddPredecessor inserts value immediately before origin in the in-order
// sequence without searching from the root. The caller guarantees the order.
func (allocator *Allocator[T]) AddPredecessor(root, origin NodeID, value T) (NodeID, NodeID) {
	nodeIdx := allocator.newRedNode(value)

	return allocator.AddPredecessorNode(root, origin, nodeIdx), nodeIdx
}

// AddSuccessor inserts value immediately after origin in the in-order sequence.
func (allocator *Allocator[T]) AddSuccessor(root, origin NodeID, value T) (NodeID, NodeID) {
	nodeIdx := allocator.newRedNode(value)

	return allocator.AddSuccessorNode(root, origin, nodeIdx), nodeIdx
}

// AddPredecessorNode links the detached node inserted right before origin.
//
// REQUIRES: inserted is a lone node that belongs to no tree.
func (allocator *Allocator[T]) AddPredecessorNode(root, origin, inserted NodeID) NodeID {
	allocator.prepareInserted(inserted)

	if allocator.storage[origin].left == Nil {
		allocator.setLeft(origin, inserted)
	} else {
		allocator.setRight(allocator.Rightmost(allocator.storage[origin].left), inserted)
	}

	return allocator.insertFixup(root, inserted)
}

// AddSuccessorNode links the detached node inserted right after origin.
//
// REQUIRES: inserted is a lone node that belongs to no tree.
func (allocator *Allocator[T]) AddSuccessorNode(root, origin, inserted NodeID) NodeID {
	allocator.prepareInserted(inserted)

	if allocator.storage[origin].right == Nil {
		allocator.setRight(origin, inserted)
	} else {
		allocator.setLeft(allocator.Leftmost(allocator.storage[origin].right), inserted)
	}

	return allocator.insertFixup(root, inserted)
}

func (allocator *Allocator[T]) prepareInserted(inserted NodeID) {
	nd := &allocator.storage[inserted]
	doAssert(inserted != Nil)
	doAssert(nd.parent == Nil && nd.left == Nil && nd.right == Nil)

	nd.color = red
	nd.height = 1
}

// insertFixup restores the red-black rules bottom-up after a red leaf was
// linked below an arbitrary node.
//
//nolint:gocognit // RB-tree insertion with rebalancing is inherently complex.
func (allocator *Allocator[T]) insertFixup(root, nodeIdx NodeID) NodeID {
	alloc := allocator.storage

	for {
		parentIdx := alloc[nodeIdx].parent

		// Case 1: N is at the root.
		if parentIdx == Nil {
			alloc[nodeIdx].color = black
			root = nodeIdx

			break
		}

		// Case 2: The parent is black, so the tree already
		// satisfies the RB properties.
		if alloc[parentIdx].color == black {
			break
		}

		grandparent := alloc[parentIdx].parent
		if grandparent == Nil {
			alloc[parentIdx].color = black

			break
		}

		var uncle NodeID
		if allocator.isLeftChild(parentIdx) {
			uncle = alloc[grandparent].right
		} else {
			uncle = alloc[grandparent].left
		}

		// Case 3: parent and uncle are both red.
		// Then paint both black and make grandparent red.
		if allocator.isRed(uncle) {
			alloc[parentIdx].color = black
			alloc[uncle].color = black
			alloc[grandparent].color = red
			allocator.fix(grandparent)
			nodeIdx = grandparent

			continue
		}

		// Case 4: parent is red, uncle is black (1).
		if !allocator.isLeftChild(nodeIdx) && allocator.isLeftChild(parentIdx) {
			allocator.rotateLeft(parentIdx)
			nodeIdx = parentIdx

			continue
		}

		if allocator.isLeftChild(nodeIdx) && !allocator.isLeftChild(parentIdx) {
			allocator.rotateRight(parentIdx)
			nodeIdx = parentIdx

			continue
		}

		// Case 5: parent is red, uncle is black (2).
		alloc[parentIdx].color = black
		alloc[grandparent].color = red

		var top NodeID
		if allocator.isLeftChild(nodeIdx) {
			top = allocator.rotateRight(grandparent)
		} else {
			top = allocator.rotateLeft(grandparent)
		}

		root = allocator.rootAfter(root, top)

		break
	}

	return root
}

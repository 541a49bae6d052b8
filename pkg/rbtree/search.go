package rbtree

// SearchResult describes where a descent ended.
type SearchResult struct {
	// Root is the tree root after any rebalancing done on the way down.
	Root NodeID

	// Match is the node comparing equal to the query, or Nil.
	Match NodeID

	// Parent is the parent of Match, or the node whose empty child slot the
	// query would occupy when there is no match.
	Parent           NodeID
	Grandparent      NodeID
	GreatGrandparent NodeID

	// LastOrder and PrevOrder are the results of the last two probes. When
	// Found is false LastOrder tells on which side of Parent the query belongs.
	LastOrder int
	PrevOrder int

	Found bool
}

// Search walks from root following probe. With splitOnDescent every 4-node met
// on the way is split, and a red-red pair created by the split is rotated away
// immediately, so that an insertion at the returned position needs no second
// pass. The returned Root must replace root even when nothing matched.
func (allocator *Allocator[T]) Search(root NodeID, probe Probe[T], splitOnDescent bool) SearchResult {
	result := SearchResult{Root: root}

	if root == Nil {
		return result
	}

	if splitOnDescent {
		allocator.blacken(root)
	}

	current := root
	last := Nil

	for current != Nil {
		order := probe(allocator.storage[current].value)
		result.PrevOrder = result.LastOrder
		result.LastOrder = order

		if order == 0 {
			result.Match = current
			result.Found = true
			last = allocator.storage[current].parent

			break
		}

		if splitOnDescent && allocator.is4Node(current) {
			allocator.split4Node(current)

			parentIdx := allocator.storage[current].parent
			if allocator.isRed(parentIdx) {
				result.Root = allocator.insertionBalance(result.Root, current)
			}
		}

		last = current

		if order < 0 {
			current = allocator.storage[current].left
		} else {
			current = allocator.storage[current].right
		}
	}

	if splitOnDescent {
		allocator.blacken(result.Root)
	}

	result.Parent = last
	if last != Nil {
		result.Grandparent = allocator.storage[last].parent
	}

	if result.Grandparent != Nil {
		result.GreatGrandparent = allocator.storage[result.Grandparent].parent
	}

	return result
}

// insertionBalance removes the red-red violation between current and its red
// parent with one rotation when both lean the same way, two otherwise. The new
// subtree top turns black and the old grandparent red.
func (allocator *Allocator[T]) insertionBalance(root, current NodeID) NodeID {
	parentIdx := allocator.storage[current].parent
	grandparent := allocator.storage[parentIdx].parent
	doAssert(grandparent != Nil)

	parentIsRight := allocator.storage[grandparent].right == parentIdx
	currentIsRight := allocator.storage[parentIdx].right == current

	var top NodeID

	switch {
	case parentIsRight == currentIsRight && currentIsRight:
		top = allocator.rotateLeft(grandparent)
	case parentIsRight == currentIsRight:
		top = allocator.rotateRight(grandparent)
	case currentIsRight:
		top = allocator.rotateLeftRight(grandparent)
	default:
		top = allocator.rotateRightLeft(grandparent)
	}

	allocator.storage[grandparent].color = red
	allocator.storage[top].color = black
	allocator.fix(grandparent)
	allocator.fix(top)

	return allocator.rootAfter(root, top)
}

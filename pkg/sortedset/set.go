// Package sortedset implements ordered sets on top of the join-based
// red-black trees of package rbtree. Sets are not safe for concurrent use.
package sortedset

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
)

// ErrNotOrdered is returned by Concat when the sets' ranges interleave.
var ErrNotOrdered = errors.New("sets are not ordered")

// ErrForeignSet is returned when two sets live in different allocators.
var ErrForeignSet = errors.New("sets do not share an allocator")

// RemovalStrategy selects the deletion algorithm used by Remove.
type RemovalStrategy int

const (
	// TopDown deletes with a single descent that fixes 2-nodes on the way.
	TopDown RemovalStrategy = iota
	// BottomUp locates the node first and rebalances from the splice point upwards.
	BottomUp
)

// String returns the strategy name.
func (rs RemovalStrategy) String() string {
	if rs == BottomUp {
		return "bottom-up"
	}

	return "top-down"
}

// unknownLen marks a cached length that must be recounted.
const unknownLen = -1

// Set is an ordered set of distinct values.
type Set[T any] struct {
	alloc   *rbtree.Allocator[T]
	cmp     rbtree.Comparator[T]
	root    rbtree.NodeID
	size    int
	removal RemovalStrategy
}

// New creates an empty set with a private allocator.
func New[T any](cmp rbtree.Comparator[T]) *Set[T] {
	return NewWithAllocator(rbtree.NewAllocator[T](), cmp)
}

// NewWithAllocator creates an empty set whose nodes live in alloc. Sets sharing
// an allocator can be split and concatenated into each other.
func NewWithAllocator[T any](alloc *rbtree.Allocator[T], cmp rbtree.Comparator[T]) *Set[T] {
	return &Set[T]{alloc: alloc, cmp: cmp}
}

// FromSorted builds a set from strictly increasing values in linear time.
func FromSorted[T any](cmp rbtree.Comparator[T], values []T) (*Set[T], error) {
	for idx := 1; idx < len(values); idx++ {
		if cmp(values[idx-1], values[idx]) >= 0 {
			return nil, fmt.Errorf("%w: position %d", rbtree.ErrNotSorted, idx)
		}
	}

	set := New(cmp)
	set.root = set.alloc.Treeify(values)
	set.size = len(values)

	return set, nil
}

// WithRemoval sets the deletion algorithm and returns the set.
func (s *Set[T]) WithRemoval(strategy RemovalStrategy) *Set[T] {
	s.removal = strategy

	return s
}

// Removal returns the deletion algorithm in use.
func (s *Set[T]) Removal() RemovalStrategy {
	return s.removal
}

// Root returns the handle of the underlying tree.
func (s *Set[T]) Root() rbtree.NodeID {
	return s.root
}

// Allocator returns the arena holding the set's nodes.
func (s *Set[T]) Allocator() *rbtree.Allocator[T] {
	return s.alloc
}

// Len returns the number of values. It is O(1) except right after SplitAt,
// which leaves the sizes to be counted on first request.
func (s *Set[T]) Len() int {
	if s.size == unknownLen {
		s.size = s.alloc.CountNodes(s.root)
	}

	return s.size
}

// Add inserts value and reports whether it was absent.
func (s *Set[T]) Add(value T) bool {
	var added bool

	s.root, _, added = s.alloc.TryAdd(s.root, value, s.cmp)
	if added && s.size != unknownLen {
		s.size++
	}

	return added
}

// Remove deletes value and reports whether it was present.
func (s *Set[T]) Remove(value T) bool {
	var found bool

	switch s.removal {
	case BottomUp:
		nodeIdx := s.find(value)
		if nodeIdx == rbtree.Nil {
			return false
		}

		s.root = s.alloc.RemoveNode(s.root, nodeIdx)
		found = true
	default:
		s.root, _, found = s.alloc.TryRemove(s.root, value, s.cmp)
	}

	if found && s.size != unknownLen {
		s.size--
	}

	return found
}

// Contains reports whether value is in the set.
func (s *Set[T]) Contains(value T) bool {
	return s.find(value) != rbtree.Nil
}

func (s *Set[T]) find(value T) rbtree.NodeID {
	return s.alloc.Search(s.root, rbtree.KeyProbe(s.cmp, value), false).Match
}

// Min returns the smallest value.
func (s *Set[T]) Min() (T, bool) {
	return s.valueOf(s.alloc.Leftmost(s.root))
}

// Max returns the largest value.
func (s *Set[T]) Max() (T, bool) {
	return s.valueOf(s.alloc.Rightmost(s.root))
}

// Floor returns the largest value not greater than key.
func (s *Set[T]) Floor(key T) (T, bool) {
	result := s.alloc.Search(s.root, rbtree.KeyProbe(s.cmp, key), false)

	switch {
	case result.Found:
		return s.valueOf(result.Match)
	case result.Parent == rbtree.Nil:
		return s.valueOf(rbtree.Nil)
	case result.LastOrder > 0:
		return s.valueOf(result.Parent)
	default:
		return s.valueOf(s.alloc.Predecessor(result.Parent))
	}
}

// Ceiling returns the smallest value not less than key.
func (s *Set[T]) Ceiling(key T) (T, bool) {
	result := s.alloc.Search(s.root, rbtree.KeyProbe(s.cmp, key), false)

	switch {
	case result.Found:
		return s.valueOf(result.Match)
	case result.Parent == rbtree.Nil:
		return s.valueOf(rbtree.Nil)
	case result.LastOrder < 0:
		return s.valueOf(result.Parent)
	default:
		return s.valueOf(s.alloc.Successor(result.Parent))
	}
}

func (s *Set[T]) valueOf(nodeIdx rbtree.NodeID) (T, bool) {
	if nodeIdx == rbtree.Nil {
		var zero T

		return zero, false
	}

	return s.alloc.Value(nodeIdx), true
}

// Values returns the values in ascending order.
func (s *Set[T]) Values() []T {
	return s.alloc.ToSlice(s.root)
}

// All iterates the values in ascending order.
func (s *Set[T]) All() iter.Seq[T] {
	return s.alloc.All(s.root)
}

// Backward iterates the values in descending order.
func (s *Set[T]) Backward() iter.Seq[T] {
	return s.alloc.Backward(s.root)
}

// AddRun inserts strictly increasing values, none of which may fall inside
// the range already covered between the run's ends. On error the set is
// left unchanged.
func (s *Set[T]) AddRun(values []T) error {
	root, err := s.alloc.InsertInOrderContiguous(s.root, values, s.cmp)
	s.root = root

	if err != nil {
		return fmt.Errorf("add run: %w", err)
	}

	if s.size != unknownLen {
		s.size += len(values)
	}

	return nil
}

// SplitAt moves the values less than key into lower and the rest into upper,
// emptying s. found reports whether key itself was present; it ends up in upper.
// Both halves share the allocator of s.
func (s *Set[T]) SplitAt(key T) (lower, upper *Set[T], found bool) {
	left, match, right := s.alloc.TrySplit(s.root, key, s.cmp)
	if match != rbtree.Nil {
		right = s.alloc.JoinRB(rbtree.Nil, match, right)
	}

	lower = s.derive(left)
	upper = s.derive(right)

	s.root, s.size = rbtree.Nil, 0

	return lower, upper, match != rbtree.Nil
}

func (s *Set[T]) derive(root rbtree.NodeID) *Set[T] {
	size := unknownLen
	if root == rbtree.Nil {
		size = 0
	}

	return &Set[T]{alloc: s.alloc, cmp: s.cmp, root: root, size: size, removal: s.removal}
}

// Concat appends the values of other, which must all be greater than those
// of s, and empties other.
func (s *Set[T]) Concat(other *Set[T]) error {
	if other.alloc != s.alloc {
		return ErrForeignSet
	}

	if s.root != rbtree.Nil && other.root != rbtree.Nil {
		last := s.alloc.Value(s.alloc.Rightmost(s.root))
		first := s.alloc.Value(s.alloc.Leftmost(other.root))

		if s.cmp(last, first) >= 0 {
			return ErrNotOrdered
		}
	}

	s.root = s.alloc.Join2(s.root, other.root)

	if s.size == unknownLen || other.size == unknownLen {
		s.size = unknownLen
	} else {
		s.size += other.size
	}

	other.root, other.size = rbtree.Nil, 0

	return nil
}

// Clear frees all nodes of the set.
func (s *Set[T]) Clear() {
	s.alloc.Erase(s.root)
	s.root, s.size = rbtree.Nil, 0
}

// Verify checks the red-black and ordering invariants of the set.
func (s *Set[T]) Verify() error {
	return s.alloc.VerifyInvariants(s.root, s.cmp, true, true)
}

// Dump writes the sideways text rendering of the tree to w.
func (s *Set[T]) Dump(w io.Writer, format func(T) string) error {
	return s.alloc.Dump(w, s.root, format)
}

// WriteDot writes the tree in Graphviz DOT format to w.
func (s *Set[T]) WriteDot(w io.Writer, format func(T) string) error {
	return s.alloc.WriteDot(w, s.root, format)
}

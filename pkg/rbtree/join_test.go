package rbtree //nolint:testpackage // tests require access to unexported fields.

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitScenario(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	root := addAll(t, alloc, Nil, seq(1, 10)...)

	left, match, right := alloc.TrySplit(root, 5, intCmp)

	requireValid(t, alloc, left)
	requireValid(t, alloc, right)
	require.NotEqual(t, Nil, match)
	assert.Equal(t, seq(1, 4), alloc.ToSlice(left))
	assert.Equal(t, 5, alloc.Value(match))
	assert.Equal(t, seq(6, 10), alloc.ToSlice(right))
	assert.Equal(t, Nil, alloc.Parent(match))
	assert.Equal(t, Nil, alloc.Left(match))
	assert.Equal(t, Nil, alloc.Right(match))

	root = alloc.JoinRB(left, match, right)
	requireValid(t, alloc, root)
	assert.Equal(t, seq(1, 10), alloc.ToSlice(root))
	assert.Equal(t, 10, alloc.Used())
}

func TestSplitMissingKey(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	root := alloc.Treeify([]int{10, 20, 30, 40})

	left, match, right := alloc.TrySplit(root, 25, intCmp)
	assert.Equal(t, Nil, match)
	assert.Equal(t, []int{10, 20}, alloc.ToSlice(left))
	assert.Equal(t, []int{30, 40}, alloc.ToSlice(right))

	left, match, right = alloc.TrySplit(alloc.Join2(left, right), 5, intCmp)
	assert.Equal(t, Nil, match)
	assert.Equal(t, Nil, left)
	assert.Equal(t, []int{10, 20, 30, 40}, alloc.ToSlice(right))
	requireValid(t, alloc, right)

	left, match, right = alloc.TrySplit(Nil, 5, intCmp)
	assert.Equal(t, [3]NodeID{}, [3]NodeID{left, match, right})
}

func TestJoinRBHeights(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()

	for leftSize := range 40 {
		for rightSize := range 40 {
			left := alloc.Treeify(seq(0, leftSize-1))
			mid := alloc.NewNode(leftSize)
			right := alloc.Treeify(seq(leftSize+1, leftSize+rightSize))

			root := alloc.JoinRB(left, mid, right)
			requireValid(t, alloc, root)
			require.Equal(t, seq(0, leftSize+rightSize), alloc.ToSlice(root))

			alloc.Erase(root)
		}
	}

	assert.Equal(t, 0, alloc.Used())
}

func TestJoinSplitInverse(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	alloc := NewAllocator[int]()

	for range 50 {
		root := Nil

		for range rng.Intn(200) {
			root, _, _ = alloc.TryAdd(root, rng.Intn(300), intCmp)
		}

		original := alloc.ToSlice(root)
		key := rng.Intn(320) - 10

		left, match, right := alloc.TrySplit(root, key, intCmp)
		requireValid(t, alloc, left)
		requireValid(t, alloc, right)

		for value := range alloc.All(left) {
			require.Less(t, value, key)
		}

		for value := range alloc.All(right) {
			require.Greater(t, value, key)
		}

		_, present := slices.BinarySearch(original, key)
		require.Equal(t, present, match != Nil)

		if match != Nil {
			root = alloc.JoinRB(left, match, right)
		} else {
			root = alloc.Join2(left, right)
		}

		requireValid(t, alloc, root)
		require.Equal(t, original, alloc.ToSlice(root))

		alloc.Erase(root)
	}
}

func TestJoin2(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(6))
	alloc := NewAllocator[int]()

	for range 50 {
		leftSize, rightSize := rng.Intn(100)+1, rng.Intn(100)
		left := addAll(t, alloc, Nil, rng.Perm(leftSize)...)
		right := alloc.Treeify(seq(leftSize, leftSize+rightSize-1))

		root := alloc.Join2(left, right)
		requireValid(t, alloc, root)
		require.Equal(t, leftSize+rightSize, alloc.CountNodes(root))
		require.Equal(t, slices.Collect(alloc.All(root)), seq(0, leftSize+rightSize-1))

		alloc.Erase(root)
	}
}

func TestSplitFirstLast(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	root := addAll(t, alloc, Nil, rand.New(rand.NewSource(7)).Perm(64)...)

	var firsts []int

	for range 32 {
		var first NodeID

		root, first = alloc.SplitFirst(root)
		requireValid(t, alloc, root)
		require.NotEqual(t, Nil, first)

		firsts = append(firsts, alloc.Value(first))
	}

	var lasts []int

	for root != Nil {
		var last NodeID

		root, last = alloc.SplitLast(root)
		requireValid(t, alloc, root)

		lasts = append(lasts, alloc.Value(last))
	}

	assert.Equal(t, seq(0, 31), firsts)

	expected := seq(32, 63)
	slices.Reverse(expected)
	assert.Equal(t, expected, lasts)

	rest, node := alloc.SplitFirst(Nil)
	assert.Equal(t, Nil, rest)
	assert.Equal(t, Nil, node)
}

func TestInsertInOrderContiguous(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	root := addAll(t, alloc, Nil, append(seq(0, 9), seq(30, 39)...)...)

	root, err := alloc.InsertInOrderContiguous(root, seq(10, 29), intCmp)
	require.NoError(t, err)
	requireValid(t, alloc, root)
	assert.Equal(t, seq(0, 39), alloc.ToSlice(root))

	root, err = alloc.InsertInOrderContiguous(root, seq(40, 100), intCmp)
	require.NoError(t, err)
	requireValid(t, alloc, root)

	root, err = alloc.InsertInOrderContiguous(root, seq(-5, -1), intCmp)
	require.NoError(t, err)
	requireValid(t, alloc, root)
	assert.Equal(t, seq(-5, 100), alloc.ToSlice(root))
	assert.Equal(t, 106, alloc.Used())

	empty, err := alloc.InsertInOrderContiguous(Nil, seq(1, 3), intCmp)
	require.NoError(t, err)
	requireValid(t, alloc, empty)
	assert.Equal(t, seq(1, 3), alloc.ToSlice(empty))

	same, err := alloc.InsertInOrderContiguous(empty, nil, intCmp)
	require.NoError(t, err)
	assert.Equal(t, empty, same)
}

func TestInsertInOrderContiguousErrors(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	contents := []int{0, 10, 20, 30}
	root := alloc.Treeify(contents)

	for _, run := range [][]int{
		{10},         // Both bounds match.
		{5, 10},      // The upper bound matches.
		{20, 25},     // The lower bound matches.
		{5, 15},      // A value lies inside.
		{-10, 40},    // Everything lies inside.
		{11, 12, 20}, // The upper bound of a longer run matches.
	} {
		var err error

		root, err = alloc.InsertInOrderContiguous(root, run, intCmp)
		require.ErrorIs(t, err, ErrRangeOverlap, "run %v", run)
		requireValid(t, alloc, root)
		require.Equal(t, contents, alloc.ToSlice(root))
	}

	root, err := alloc.InsertInOrderContiguous(root, []int{3, 2}, intCmp)
	require.ErrorIs(t, err, ErrNotSorted)

	_, err = alloc.InsertInOrderContiguous(root, []int{3, 3}, intCmp)
	require.ErrorIs(t, err, ErrNotSorted)
	assert.Equal(t, contents, alloc.ToSlice(root))
	assert.Equal(t, len(contents), alloc.Used())
}

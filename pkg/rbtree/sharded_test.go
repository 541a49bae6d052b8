package rbtree_test

import (
	"cmp"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
)

func TestNewShardedAllocator(t *testing.T) {
	t.Parallel()

	sa := rbtree.NewShardedAllocator[int64](4, 1000, rbtree.Int64Codec{})
	assert.Len(t, sa.Shards(), 4)
	assert.Equal(t, 250, sa.Shards()[0].HibernationThreshold)
	assert.NotNil(t, sa.Shards()[0].Codec)

	single := rbtree.NewShardedAllocator[int64](0, 0, nil)
	assert.Len(t, single.Shards(), 1)
}

func TestShardedAllocator_GetShard(t *testing.T) {
	t.Parallel()

	sa := rbtree.NewShardedAllocator[int64](4, 0, nil)

	s1 := sa.GetShard("set1")
	s2 := sa.GetShard("set1")
	_ = sa.GetShard("set2") // Ensure it doesn't crash.

	assert.Same(t, s1, s2)
	assert.Same(t, s1, sa.Shards()[sa.ShardIndex("set1")])

	// Check distribution.
	counts := make(map[*rbtree.Allocator[int64]]int)

	for idx := range 100 {
		shard := sa.GetShard(fmt.Sprintf("set%d", idx))
		counts[shard]++
	}

	assert.Len(t, counts, 4) // Likely to hit all 4 with 100 names.
}

func TestShardedAllocator_HibernateBoot(t *testing.T) {
	t.Parallel()

	sa := rbtree.NewShardedAllocator[int64](2, 0, rbtree.Int64Codec{})

	alloc := sa.GetShard("a")
	root := rbtree.CreateEmptyTree()

	for value := range int64(100) {
		root, _, _ = alloc.TryAdd(root, value*3, cmp.Compare[int64])
	}

	sa.Hibernate()

	for _, shard := range sa.Shards() {
		assert.True(t, shard.Hibernated())
	}

	// Allocator.Clone panics if hibernated (storage == nil).
	assert.Panics(t, func() {
		alloc.Clone()
	})

	require.NoError(t, sa.Boot())

	assert.NotPanics(t, func() {
		alloc.Clone()
	})
	assert.Equal(t, 100, alloc.CountNodes(root))
	require.NoError(t, alloc.VerifyInvariants(root, cmp.Compare[int64], true, true))
}

func TestShardedAllocator_SerializeDeserialize(t *testing.T) {
	t.Parallel()

	basePath := filepath.Join(t.TempDir(), "arena")
	roots := map[string]rbtree.NodeID{}

	sa := rbtree.NewShardedAllocator[int64](3, 0, rbtree.Int64Codec{})

	for idx := range 10 {
		name := fmt.Sprintf("set%d", idx)
		alloc := sa.GetShard(name)

		values := make([]int64, 0, 50)
		for value := range int64(50) {
			values = append(values, int64(idx)*1000+value)
		}

		roots[name] = alloc.Treeify(values)
	}

	sa.Hibernate()
	require.NoError(t, sa.Serialize(basePath))

	restored := rbtree.NewShardedAllocator[int64](3, 0, rbtree.Int64Codec{})
	restored.Hibernate()
	require.NoError(t, restored.Deserialize(basePath))
	require.NoError(t, restored.Boot())

	for name, root := range roots {
		alloc := restored.GetShard(name)
		require.NoError(t, alloc.VerifyInvariants(root, cmp.Compare[int64], true, true))
		assert.Equal(t, 50, alloc.CountNodes(root), name)
	}

	missing := rbtree.NewShardedAllocator[int64](3, 0, rbtree.Int64Codec{})
	missing.Hibernate()
	require.ErrorIs(t, missing.Deserialize(filepath.Join(t.TempDir(), "none")), rbtree.ErrDeserializeShards)
}

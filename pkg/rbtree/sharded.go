package rbtree

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// ErrSerializeShards is returned when shard serialization fails.
var ErrSerializeShards = errors.New("failed to serialize shards")

// ErrDeserializeShards is returned when shard deserialization fails.
var ErrDeserializeShards = errors.New("failed to deserialize shards")

// ErrBootShards is returned when one or more shards fail to boot.
var ErrBootShards = errors.New("failed to boot shards")

// minHibernationThreshold applies when the threshold split across shards rounds to zero.
const minHibernationThreshold = 1000

// ShardedAllocator spreads trees over several Allocators, so that independent
// trees can be mutated from different goroutines and shards hibernate in parallel.
// A tree never spans shards.
type ShardedAllocator[T any] struct {
	shards []*Allocator[T]
}

// NewShardedAllocator creates a new ShardedAllocator with shardCount shards sharing codec.
func NewShardedAllocator[T any](shardCount, hibernationThreshold int, codec Codec[T]) *ShardedAllocator[T] {
	if shardCount <= 0 {
		shardCount = 1
	}

	shards := make([]*Allocator[T], shardCount)

	for idx := range shardCount {
		shards[idx] = NewAllocatorWithCodec(codec)

		if hibernationThreshold > 0 {
			shards[idx].HibernationThreshold = hibernationThreshold / shardCount
			if shards[idx].HibernationThreshold == 0 {
				shards[idx].HibernationThreshold = minHibernationThreshold
			}
		}
	}

	return &ShardedAllocator[T]{shards: shards}
}

// ShardIndex returns the index of the shard owning key.
func (sa *ShardedAllocator[T]) ShardIndex(key string) int {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))

	return int(hasher.Sum32() % uint32(len(sa.shards))) //nolint:gosec // shard count is a small positive int.
}

// GetShard returns the allocator shard for the given key.
func (sa *ShardedAllocator[T]) GetShard(key string) *Allocator[T] {
	return sa.shards[sa.ShardIndex(key)]
}

// Shards returns all underlying allocators.
func (sa *ShardedAllocator[T]) Shards() []*Allocator[T] {
	return sa.shards
}

// Hibernate hibernates every shard in parallel, regardless of its threshold.
func (sa *ShardedAllocator[T]) Hibernate() {
	_ = sa.forEach(nil, func(_ int, alloc *Allocator[T]) error {
		alloc.hibernate(true)

		return nil
	})
}

// Boot boots every shard in parallel and joins their errors under ErrBootShards.
func (sa *ShardedAllocator[T]) Boot() error {
	return sa.forEach(ErrBootShards, func(_ int, alloc *Allocator[T]) error {
		return alloc.Boot()
	})
}

// Serialize writes every hibernated shard to ShardPath(basePath, N). Live
// shards are skipped.
func (sa *ShardedAllocator[T]) Serialize(basePath string) error {
	return sa.forEach(ErrSerializeShards, func(shardIdx int, alloc *Allocator[T]) error {
		if !alloc.Hibernated() {
			return nil
		}

		return alloc.Serialize(ShardPath(basePath, shardIdx))
	})
}

// Deserialize reads all shards from disk. The shards must be hibernated and
// are booted afterwards with Boot.
func (sa *ShardedAllocator[T]) Deserialize(basePath string) error {
	return sa.forEach(ErrDeserializeShards, func(shardIdx int, alloc *Allocator[T]) error {
		return alloc.Deserialize(ShardPath(basePath, shardIdx))
	})
}

// ShardPath is the file name of shard shardIdx under basePath.
func ShardPath(basePath string, shardIdx int) string {
	return fmt.Sprintf("%s.shard.%d", basePath, shardIdx)
}

// forEach runs action on every shard concurrently. Failures are joined and
// wrapped in sentinel.
func (sa *ShardedAllocator[T]) forEach(sentinel error, action func(int, *Allocator[T]) error) error {
	errs := make([]error, len(sa.shards))

	wg := sync.WaitGroup{}
	wg.Add(len(sa.shards))

	for idx, shard := range sa.shards {
		go func() {
			defer wg.Done()

			errs[idx] = action(idx, shard)
		}()
	}

	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}

	return nil
}

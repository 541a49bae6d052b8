package sortedset_test

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbjoin/pkg/sortedset"
)

func newTestRegistry(t *testing.T, buf *bytes.Buffer) *sortedset.Registry[int64] {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(buf, nil))

	return sortedset.NewRegistry(cmp.Compare[int64], rbtree.Int64Codec{}, 3, 0, logger)
}

func fillRegistry(t *testing.T, registry *sortedset.Registry[int64]) map[string][]int64 {
	t.Helper()

	expected := map[string][]int64{}

	for idx := range 8 {
		name := fmt.Sprintf("set-%d", idx)
		set := registry.Get(name)

		for value := range int64(40) {
			set.Add(int64(idx)*1000 + value*3)
		}

		set.Remove(int64(idx) * 1000)
		expected[name] = set.Values()
	}

	return expected
}

func TestRegistryGetNamesDrop(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	registry := newTestRegistry(t, &buf)

	first := registry.Get("b")
	assert.Same(t, first, registry.Get("b"))

	registry.Get("a").Add(1)
	assert.Equal(t, []string{"a", "b"}, registry.Names())

	set, ok := registry.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())

	_, ok = registry.Lookup("zzz")
	assert.False(t, ok)

	assert.True(t, registry.Drop("a"))
	assert.False(t, registry.Drop("a"))
	assert.Equal(t, []string{"b"}, registry.Names())
}

func TestRegistrySetsInOneShardConcat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	registry := newTestRegistry(t, &buf)

	// Sets with the same name always land in the same shard, so a set can be
	// split into parts that are stored back under that name.
	set := registry.Get("orders")
	for value := range int64(20) {
		set.Add(value)
	}

	lower, upper, found := set.SplitAt(10)
	require.True(t, found)
	require.NoError(t, lower.Concat(upper))
	require.NoError(t, set.Concat(lower))
	assert.Equal(t, 20, set.Len())
	require.NoError(t, set.Verify())
}

func TestRegistryHibernateBoot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	registry := newTestRegistry(t, &buf)
	expected := fillRegistry(t, registry)

	registry.Hibernate()
	require.NoError(t, registry.Boot())

	for name, values := range expected {
		set, ok := registry.Lookup(name)
		require.True(t, ok)
		require.NoError(t, set.Verify())
		assert.Equal(t, values, set.Values(), name)
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	registry := newTestRegistry(t, &buf)
	expected := fillRegistry(t, registry)
	dir := t.TempDir()

	require.NoError(t, registry.Save(dir))
	assert.Contains(t, buf.String(), "registry saved")
	assert.FileExists(t, filepath.Join(dir, "manifest.yaml"))
	assert.FileExists(t, rbtree.ShardPath(filepath.Join(dir, "arena"), 0))

	// The registry keeps working after Save.
	registry.Get("set-0").Add(-1)

	restored, err := sortedset.Load(dir, cmp.Compare[int64], rbtree.Int64Codec{}, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	assert.Equal(t, registry.Names(), restored.Names())
	assert.Contains(t, buf.String(), "registry loaded")

	for name, values := range expected {
		set, ok := restored.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, values, set.Values(), name)
		assert.Equal(t, len(values), set.Len())
	}

	// Restored sets are fully functional.
	set := restored.Get("set-1")
	assert.True(t, set.Add(1001))
	require.NoError(t, set.Verify())
}

func TestRegistryOpen(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	dir := t.TempDir()

	fresh, err := sortedset.Open(dir, cmp.Compare[int64], rbtree.Int64Codec{}, 2, 0, logger)
	require.NoError(t, err)
	assert.Empty(t, fresh.Names())

	fresh.Get("a").Add(7)
	require.NoError(t, fresh.Save(dir))

	reopened, err := sortedset.Open(dir, cmp.Compare[int64], rbtree.Int64Codec{}, 5, 0, logger)
	require.NoError(t, err)

	set, ok := reopened.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, []int64{7}, set.Values())

	_, err = sortedset.Open(filepath.Join(dir, "manifest.yaml", "nested"), cmp.Compare[int64], rbtree.Int64Codec{}, 2, 0, logger)
	require.Error(t, err)
}

func TestRegistrySaveHibernated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	registry := newTestRegistry(t, &buf)
	fillRegistry(t, registry)
	registry.Hibernate()

	require.ErrorIs(t, registry.Save(t.TempDir()), sortedset.ErrHibernated)
}

func TestRegistryConcurrentSaveHibernate(t *testing.T) {
	t.Parallel()

	for round := range 5 {
		var buf bytes.Buffer

		registry := newTestRegistry(t, &buf)
		expected := map[string][]int64{}

		for idx := range 2000 {
			registry.Get(fmt.Sprintf("set-%d", idx%7)).Add(int64(idx))
		}

		for _, name := range registry.Names() {
			set, _ := registry.Lookup(name)
			expected[name] = set.Values()
		}

		dir := t.TempDir()
		saved := make(chan error, 1)

		go func() {
			saved <- registry.Save(dir)
		}()

		registry.Hibernate()

		err := <-saved
		if err != nil {
			require.ErrorIs(t, err, sortedset.ErrHibernated, "round %d", round)
		}

		require.NoError(t, registry.Boot())

		for _, name := range registry.Names() {
			set, ok := registry.Lookup(name)
			require.True(t, ok)
			require.NoError(t, set.Verify())
			assert.Equal(t, expected[name], set.Values(), "round %d set %s", round, name)
		}
	}
}

func TestRegistryLoadErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	registry := newTestRegistry(t, &buf)
	fillRegistry(t, registry)

	dir := t.TempDir()
	require.NoError(t, registry.Save(dir))

	manifestPath := filepath.Join(dir, "manifest.yaml")
	original, err := os.ReadFile(manifestPath)
	require.NoError(t, err)

	load := func() error {
		_, loadErr := sortedset.Load(dir, cmp.Compare[int64], rbtree.Int64Codec{}, nil)

		return loadErr
	}

	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 7\nshards: 3\n"), 0o600))
	require.ErrorIs(t, load(), sortedset.ErrManifestVersion)

	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 1\nshards: 0\n"), 0o600))
	require.ErrorIs(t, load(), sortedset.ErrManifestMismatch)

	require.NoError(t, os.WriteFile(manifestPath,
		[]byte("version: 1\nshards: 3\nsets:\n  - name: set-0\n    shard: 9\n"), 0o600))
	require.ErrorIs(t, load(), sortedset.ErrManifestMismatch)

	require.NoError(t, os.WriteFile(manifestPath, []byte("{not yaml"), 0o600))
	require.Error(t, load())

	require.NoError(t, os.WriteFile(manifestPath, original, 0o600))
	require.NoError(t, load())

	require.NoError(t, os.Remove(rbtree.ShardPath(filepath.Join(dir, "arena"), 1)))
	require.ErrorIs(t, load(), rbtree.ErrDeserializeShards)

	_, err = sortedset.Load(t.TempDir(), cmp.Compare[int64], rbtree.Int64Codec{}, nil)
	require.Error(t, err)
}

package sortedset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
)

const (
	manifestName    = "manifest.yaml"
	arenaBaseName   = "arena"
	manifestVersion = 1
)

// ErrManifestVersion is returned when a saved registry has an unknown layout.
var ErrManifestVersion = errors.New("unsupported manifest version")

// ErrHibernated is returned by Save while the registry is hibernated.
var ErrHibernated = errors.New("registry is hibernated")

// ErrManifestMismatch is returned when the manifest disagrees with the arenas.
var ErrManifestMismatch = errors.New("manifest does not match the saved arenas")

// manifest is the YAML index written next to the shard arenas.
type manifest struct {
	Version              int             `yaml:"version"`
	Shards               int             `yaml:"shards"`
	HibernationThreshold int             `yaml:"hibernation_threshold"`
	Sets                 []manifestEntry `yaml:"sets"`
}

type manifestEntry struct {
	Name  string `yaml:"name"`
	Shard int    `yaml:"shard"`
	Root  uint32 `yaml:"root"`
	Len   int    `yaml:"len"`
}

// Registry keeps named sets spread over the shards of a ShardedAllocator.
// The name picks the shard, so sets with the same name always share an
// allocator across Save and Load. Registry methods may be called from
// several goroutines; the sets it hands out may not.
type Registry[T any] struct {
	shards    *rbtree.ShardedAllocator[T]
	cmp       rbtree.Comparator[T]
	logger    *slog.Logger
	threshold int

	// mu guards sets and orders Hibernate, Boot and Save.
	mu   sync.Mutex
	sets map[string]*Set[T]
}

// NewRegistry creates an empty registry. codec is required by Save.
func NewRegistry[T any](
	cmp rbtree.Comparator[T], codec rbtree.Codec[T], shardCount, hibernationThreshold int, logger *slog.Logger,
) *Registry[T] {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry[T]{
		shards:    rbtree.NewShardedAllocator(shardCount, hibernationThreshold, codec),
		cmp:       cmp,
		logger:    logger,
		threshold: hibernationThreshold,
		sets:      map[string]*Set[T]{},
	}
}

// Get returns the set called name, creating it when missing.
func (r *Registry[T]) Get(name string) *Set[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[name]
	if !ok {
		set = NewWithAllocator(r.shards.GetShard(name), r.cmp)
		r.sets[name] = set
	}

	return set
}

// Lookup returns the set called name if it exists.
func (r *Registry[T]) Lookup(name string) (*Set[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[name]

	return set, ok
}

// Drop frees the set called name and reports whether it existed.
func (r *Registry[T]) Drop(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[name]
	if ok {
		set.Clear()
		delete(r.sets, name)
	}

	return ok
}

// Names returns the names of all sets in ascending order.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Hibernate compresses every shard. The sets are unusable until Boot.
func (r *Registry[T]) Hibernate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shards.Hibernate()
}

// Boot restores the shards compressed by Hibernate.
func (r *Registry[T]) Boot() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.shards.Boot()
	if err != nil {
		return fmt.Errorf("boot registry: %w", err)
	}

	return nil
}

// Save writes every shard and the manifest into dir, which must exist.
// The registry must be booted and stays usable afterwards.
func (r *Registry[T]) Save(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	basePath := filepath.Join(dir, arenaBaseName)

	for idx, alloc := range r.shards.Shards() {
		err := saveShard(alloc, rbtree.ShardPath(basePath, idx))
		if err != nil {
			return fmt.Errorf("save shard %d: %w", idx, err)
		}
	}

	doc := manifest{
		Version:              manifestVersion,
		Shards:               len(r.shards.Shards()),
		HibernationThreshold: r.threshold,
	}

	for name, set := range r.sets {
		doc.Sets = append(doc.Sets, manifestEntry{
			Name:  name,
			Shard: r.shards.ShardIndex(name),
			Root:  uint32(set.Root()),
			Len:   set.Len(),
		})
	}

	slices.SortFunc(doc.Sets, func(a, b manifestEntry) int {
		return strings.Compare(a.Name, b.Name)
	})

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	err = os.WriteFile(filepath.Join(dir, manifestName), data, 0o600)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	r.logger.Info("registry saved", "dir", dir, "sets", len(doc.Sets), "shards", doc.Shards)

	return nil
}

// saveShard serializes a hibernated copy of alloc, so the live shard is
// never touched.
func saveShard[T any](alloc *rbtree.Allocator[T], path string) error {
	if alloc.Hibernated() {
		return ErrHibernated
	}

	snapshot := alloc.Clone()
	snapshot.HibernationThreshold = 0
	snapshot.Hibernate()

	return snapshot.Serialize(path)
}

// Open loads the registry saved in dir, or creates an empty one with the
// given layout when dir holds no manifest yet.
func Open[T any](
	dir string, cmp rbtree.Comparator[T], codec rbtree.Codec[T], shardCount, hibernationThreshold int,
	logger *slog.Logger,
) (*Registry[T], error) {
	_, err := os.Stat(filepath.Join(dir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(cmp, codec, shardCount, hibernationThreshold, logger), nil
	}

	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	return Load(dir, cmp, codec, logger)
}

// Load reads a registry written by Save. Every restored set is verified.
func Load[T any](dir string, cmp rbtree.Comparator[T], codec rbtree.Codec[T], logger *slog.Logger) (*Registry[T], error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var doc manifest

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if doc.Version != manifestVersion {
		return nil, fmt.Errorf("%w: %d", ErrManifestVersion, doc.Version)
	}

	registry := NewRegistry(cmp, codec, doc.Shards, doc.HibernationThreshold, logger)
	if len(registry.shards.Shards()) != doc.Shards {
		return nil, fmt.Errorf("%w: %d shards", ErrManifestMismatch, doc.Shards)
	}

	registry.shards.Hibernate()

	err = registry.shards.Deserialize(filepath.Join(dir, arenaBaseName))
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	err = registry.shards.Boot()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	for _, entry := range doc.Sets {
		if entry.Shard != registry.shards.ShardIndex(entry.Name) {
			return nil, fmt.Errorf("%w: set %q is in shard %d", ErrManifestMismatch, entry.Name, entry.Shard)
		}

		alloc := registry.shards.Shards()[entry.Shard]
		if int(entry.Root) >= alloc.Size() {
			return nil, fmt.Errorf("%w: set %q root %d is out of range", ErrManifestMismatch, entry.Name, entry.Root)
		}

		set := NewWithAllocator(alloc, cmp)
		set.root = rbtree.NodeID(entry.Root)
		set.size = entry.Len

		err = set.Verify()
		if err != nil {
			return nil, fmt.Errorf("%w: set %q: %w", ErrManifestMismatch, entry.Name, err)
		}

		if set.alloc.CountNodes(set.root) != entry.Len {
			return nil, fmt.Errorf("%w: set %q length", ErrManifestMismatch, entry.Name)
		}

		registry.sets[entry.Name] = set
	}

	registry.logger.Info("registry loaded", "dir", dir, "sets", len(doc.Sets), "shards", doc.Shards)

	return registry, nil
}

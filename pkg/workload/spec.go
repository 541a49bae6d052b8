// Package workload describes, validates and replays scripted sequences of
// ordered-set operations. Every script is replayed against two sets that differ
// only in their deletion algorithm, and the run stops at the first step after
// which their contents disagree.
package workload

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Op names a workload operation.
type Op string

// Workload operations.
const (
	// OpAdd inserts Count keys, or Key when set.
	OpAdd Op = "add"
	// OpRemove deletes Count present keys, or Key when set.
	OpRemove Op = "remove"
	// OpAddRun inserts Length consecutive keys starting at Key with a single join.
	OpAddRun Op = "add_run"
	// OpSplit splits the set at Key, checks both halves and joins them back.
	OpSplit Op = "split"
	// OpTreeify replaces the contents with Count sorted keys built in bulk.
	OpTreeify Op = "treeify"
	// OpSearch looks up Count keys.
	OpSearch Op = "search"
	// OpClear empties the set.
	OpClear Op = "clear"
)

// Ops lists every operation in a stable order.
var Ops = []Op{OpAdd, OpRemove, OpAddRun, OpSplit, OpTreeify, OpSearch, OpClear}

// Step is one line of a workload.
type Step struct {
	Op     Op     `yaml:"op"`
	Count  int    `yaml:"count,omitempty"`
	Key    *int64 `yaml:"key,omitempty"`
	Length int    `yaml:"length,omitempty"`
}

// Spec is a complete workload.
type Spec struct {
	Name     string `yaml:"name"`
	Seed     int64  `yaml:"seed"`
	KeySpace int64  `yaml:"key_space"`
	Steps    []Step `yaml:"steps"`
}

// Load reads and validates a workload file. JSON files are accepted too.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload: %w", err)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return spec, nil
}

// Parse decodes and validates a workload document.
func Parse(data []byte) (*Spec, error) {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode workload: %w", err)
	}

	err = Validate(doc)
	if err != nil {
		return nil, err
	}

	var spec Spec

	err = yaml.Unmarshal(data, &spec)
	if err != nil {
		return nil, fmt.Errorf("decode workload: %w", err)
	}

	return &spec, nil
}

// Write encodes spec as YAML.
func Write(w io.Writer, spec *Spec) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	err := encoder.Encode(spec)
	if err != nil {
		return fmt.Errorf("encode workload: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("encode workload: %w", err)
	}

	return nil
}

const (
	maxGeneratedCount = 64
	maxGeneratedRun   = 32
)

// Generate builds a random workload of steps operations over [0, keySpace).
// Adds dominate so that the set grows; the other operations are spread evenly.
func Generate(name string, seed int64, steps int, keySpace int64) *Spec {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible workloads, not security.
	spec := &Spec{Name: name, Seed: seed, KeySpace: keySpace}

	weights := []struct {
		op     Op
		weight int
	}{
		{OpAdd, 8},
		{OpRemove, 5},
		{OpAddRun, 2},
		{OpSplit, 2},
		{OpSearch, 2},
		{OpTreeify, 1},
	}

	total := 0
	for _, entry := range weights {
		total += entry.weight
	}

	for range steps {
		pick := rng.Intn(total)

		var op Op

		for _, entry := range weights {
			if pick < entry.weight {
				op = entry.op

				break
			}

			pick -= entry.weight
		}

		step := Step{Op: op}

		switch op {
		case OpAddRun:
			key := rng.Int63n(keySpace)
			step.Key = &key
			step.Length = 1 + rng.Intn(maxGeneratedRun)
		case OpSplit:
			key := rng.Int63n(keySpace)
			step.Key = &key
		default:
			step.Count = 1 + rng.Intn(maxGeneratedCount)
		}

		spec.Steps = append(spec.Steps, step)
	}

	return spec
}

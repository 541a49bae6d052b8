// bench-hibernation measures heap memory before and after Hibernate() calls
// while a registry of named sets grows chunk by chunk.
//
// Usage:
//
//	go run ./scripts/bench-hibernation --sets 64 --values 200000 --chunks 4 \
//	  --profile-dir docs/profiles/registry-hibernation
package main

import (
	"cmp"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbjoin/pkg/sortedset"
)

type phase int

const (
	phaseOther phase = iota
	phaseBeforeHibernate
	phaseAfterHibernate
)

type heapSnapshot struct {
	label     string
	chunk     int
	phase     phase
	heapInUse uint64
	heapSys   uint64
	heapIdle  uint64
}

func main() {
	sets := flag.Int("sets", 64, "Number of named sets")
	values := flag.Int("values", 200000, "Total number of inserted values")
	chunks := flag.Int("chunks", 4, "Insertion chunks; the registry hibernates between them")
	shards := flag.Int("shards", 4, "Registry shards")
	seed := flag.Int64("seed", 1, "Value generator seed")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (optional)")

	flag.Parse()

	if *sets <= 0 || *values <= 0 || *chunks <= 0 || *shards <= 0 {
		log.Fatal("--sets, --values, --chunks and --shards must be positive")
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	registry := sortedset.NewRegistry(cmp.Compare[int64], rbtree.Int64Codec{}, *shards, 0, nil)
	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // reproducible input.
	perChunk := (*values + *chunks - 1) / *chunks

	var snapshots []heapSnapshot

	takeSnapshot := func(label string, chunk int, ph phase) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			chunk:     chunk,
			phase:     ph,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
		})
		log.Printf("  [heap] %-40s inuse=%8s  sys=%8s  idle=%8s",
			label, humanize.Bytes(m.HeapInuse), humanize.Bytes(m.HeapSys), humanize.Bytes(m.HeapIdle))
	}

	writeHeapProfile := func(name string) {
		if *profileDir == "" {
			return
		}

		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_insertion", 0, phaseOther)

	for chunk := range *chunks {
		if chunk > 0 {
			takeSnapshot(fmt.Sprintf("chunk_%d_end_before_hibernate", chunk), chunk, phaseBeforeHibernate)
			writeHeapProfile(fmt.Sprintf("heap_chunk_%d_before_hibernate.prof", chunk))

			started := time.Now()
			registry.Hibernate()
			log.Printf("hibernated in %s", time.Since(started))

			takeSnapshot(fmt.Sprintf("chunk_%d_end_after_hibernate", chunk), chunk, phaseAfterHibernate)
			writeHeapProfile(fmt.Sprintf("heap_chunk_%d_after_hibernate.prof", chunk))

			started = time.Now()
			if err := registry.Boot(); err != nil {
				log.Fatalf("boot: %v", err)
			}
			log.Printf("booted in %s", time.Since(started))

			takeSnapshot(fmt.Sprintf("chunk_%d_end_after_boot", chunk), chunk, phaseOther)
		}

		log.Printf("inserting chunk %d/%d (%d values)", chunk+1, *chunks, perChunk)

		for range perChunk {
			set := registry.Get(fmt.Sprintf("set-%d", rng.Intn(*sets)))
			set.Add(rng.Int63())
		}
	}

	takeSnapshot("after_all_chunks", *chunks, phaseOther)
	writeHeapProfile("heap_after_all_chunks.prof")

	for _, name := range registry.Names() {
		set, _ := registry.Lookup(name)
		if err := set.Verify(); err != nil {
			log.Fatalf("verify %s: %v", name, err)
		}
	}

	printTimeline(os.Stdout, snapshots)
}

// printTimeline renders the heap snapshots, then the heap released by each
// hibernation.
func printTimeline(w io.Writer, snapshots []heapSnapshot) {
	timeline := table.NewWriter()
	timeline.SetOutputMirror(w)
	timeline.SetTitle("Heap timeline")
	timeline.AppendHeader(table.Row{"Phase", "InUse", "Sys", "Idle"})

	for _, snap := range snapshots {
		timeline.AppendRow(table.Row{
			snap.label, humanize.Bytes(snap.heapInUse), humanize.Bytes(snap.heapSys), humanize.Bytes(snap.heapIdle),
		})
	}

	timeline.Render()

	released := table.NewWriter()
	released.SetOutputMirror(w)
	released.SetTitle("Released by hibernation")
	released.AppendHeader(table.Row{"Chunk", "Before", "After", "Freed", "%"})

	for idx := 0; idx+1 < len(snapshots); idx++ {
		before, after := snapshots[idx], snapshots[idx+1]
		if before.phase != phaseBeforeHibernate || after.phase != phaseAfterHibernate {
			continue
		}

		freed := float64(before.heapInUse) - float64(after.heapInUse)
		released.AppendRow(table.Row{
			before.chunk,
			humanize.Bytes(before.heapInUse),
			humanize.Bytes(after.heapInUse),
			humanize.Bytes(uint64(max(freed, 0))),
			fmt.Sprintf("%.1f", freed/float64(before.heapInUse)*100),
		})
	}

	released.Render()
}

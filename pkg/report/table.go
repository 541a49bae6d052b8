// Package report renders workload results, bench measurements and tree
// dump diffs for terminals and HTML.
package report

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

const nsPerSecond = float64(time.Second)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

// Table writes the per-operation statistics of a workload run followed by a
// colored status line.
func Table(w io.Writer, result *workload.Result) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"op", "calls", "applied", "time", "ops/s"})

	ops := make([]workload.Op, 0, len(result.Ops))
	for op := range result.Ops {
		ops = append(ops, op)
	}

	slices.Sort(ops)

	var calls, applied int

	for _, op := range ops {
		stats := result.Ops[op]
		calls += stats.Calls
		applied += stats.Applied

		tbl.AppendRow(table.Row{
			op,
			humanize.Comma(int64(stats.Calls)),
			humanize.Comma(int64(stats.Applied)),
			stats.Duration.Round(time.Microsecond),
			rate(stats.Calls, stats.Duration),
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d steps", result.Steps),
		humanize.Comma(int64(calls)),
		humanize.Comma(int64(applied)),
		result.Elapsed.Round(time.Microsecond),
		rate(calls, result.Elapsed),
	})

	_, err := fmt.Fprintf(w, "workload %s\n%s\n%s\n", result.Name, tbl.Render(), status(result))
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

func status(result *workload.Result) string {
	if !result.Diverged() {
		return color.New(color.FgGreen).Sprintf("OK: %s values remain", humanize.Comma(int64(result.FinalLen)))
	}

	div := result.Divergence

	return color.New(color.FgRed).Sprintf("DIVERGED at step %d (%s): %s", div.Step, div.Op, div.Reason)
}

func rate(calls int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-"
	}

	return humanize.SIWithDigits(float64(calls)*nsPerSecond/float64(elapsed), 2, "")
}

// BenchTable writes bench measurements, one row per size and one column per
// strategy, in nanoseconds per value.
func BenchTable(w io.Writer, measurements []workload.Measurement) error {
	sizes, byKey := index(measurements)

	header := table.Row{"size"}
	for _, strategy := range workload.Strategies {
		header = append(header, strategy+" ns/value")
	}

	tbl := newTable()
	tbl.AppendHeader(header)

	for _, size := range sizes {
		row := table.Row{humanize.Comma(int64(size))}

		for _, strategy := range workload.Strategies {
			m, ok := byKey[benchKey{strategy, size}]
			if !ok {
				row = append(row, "-")

				continue
			}

			row = append(row, fmt.Sprintf("%.1f", m.NsPerValue()))
		}

		tbl.AppendRow(row)
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write bench table: %w", err)
	}

	return nil
}

type benchKey struct {
	strategy string
	size     int
}

// index returns the distinct sizes in ascending order and the measurements by
// strategy and size.
func index(measurements []workload.Measurement) ([]int, map[benchKey]workload.Measurement) {
	byKey := make(map[benchKey]workload.Measurement, len(measurements))

	var sizes []int

	for _, m := range measurements {
		if !slices.Contains(sizes, m.Size) {
			sizes = append(sizes, m.Size)
		}

		byKey[benchKey{m.Strategy, m.Size}] = m
	}

	slices.Sort(sizes)

	return sizes, byKey
}

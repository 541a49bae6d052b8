package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

// Chart writes an HTML page with a line chart of nanoseconds per value for
// every bench strategy.
func Chart(w io.Writer, measurements []workload.Measurement) error {
	sizes, byKey := index(measurements)

	labels := make([]string, len(sizes))
	for idx, size := range sizes {
		labels[idx] = humanize.Comma(int64(size))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "rbjoin bench", Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Bulk construction cost",
			Subtitle: "Best of repeated runs, nanoseconds per value",
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%", Left: "center"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "values"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ns/value"}),
		charts.WithGridOpts(opts.Grid{Top: "25%", Bottom: "15%", ContainLabel: opts.Bool(true)}),
	)
	line.SetXAxis(labels)

	for _, strategy := range workload.Strategies {
		data := make([]opts.LineData, len(sizes))

		for idx, size := range sizes {
			if m, ok := byKey[benchKey{strategy, size}]; ok {
				data[idx] = opts.LineData{Value: m.NsPerValue()}
			} else {
				data[idx] = opts.LineData{Value: "-"}
			}
		}

		line.AddSeries(strategy, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	err := line.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

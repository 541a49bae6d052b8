package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/report"
	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

type benchOptions struct {
	sizes  []int
	seed   int64
	repeat int
	chart  string
}

func newBenchCommand(global *globalOptions) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare treeify, repeated insertion and run insertion",
		Long: `Build trees of every size with Treeify, with one TryAdd per value in random
order, and with InsertInOrderContiguous on shuffled runs. Defaults come from
the bench section of the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, global)
		},
	}

	cmd.Flags().IntSliceVar(&opts.sizes, "sizes", nil, "tree sizes (default from config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "insertion order seed (default from config)")
	cmd.Flags().IntVar(&opts.repeat, "repeat", 0, "repetitions per measurement (default from config)")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "write an HTML line chart to this file")

	return cmd
}

func (opts *benchOptions) run(cmd *cobra.Command, global *globalOptions) error {
	env, err := global.setup(cmd, observability.ModeBench)
	if err != nil {
		return err
	}
	defer env.close(cmd.Context())

	options := workload.BenchOptions{
		Sizes:  env.cfg.Bench.Sizes,
		Seed:   env.cfg.Bench.Seed,
		Repeat: env.cfg.Bench.Repeat,
	}

	if cmd.Flags().Changed("sizes") {
		options.Sizes = opts.sizes
	}

	if cmd.Flags().Changed("seed") {
		options.Seed = opts.seed
	}

	if cmd.Flags().Changed("repeat") {
		options.Repeat = opts.repeat
	}

	metrics, err := observability.NewOpMetrics(env.providers.Meter)
	if err != nil {
		return err
	}

	measurements, err := workload.NewRunner(env.providers.Tracer, metrics, env.logger).Bench(cmd.Context(), options)
	if err != nil {
		return err
	}

	err = report.BenchTable(cmd.OutOrStdout(), measurements)
	if err != nil {
		return err
	}

	if opts.chart == "" {
		return nil
	}

	file, err := os.Create(opts.chart)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	err = report.Chart(file, measurements)

	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("close chart: %w", closeErr)
	}

	return err
}

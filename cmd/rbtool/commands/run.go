package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/report"
	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

// ErrDiverged is returned when the two deletion algorithms disagreed.
var ErrDiverged = errors.New("deletion algorithms diverged")

type runOptions struct {
	metricsTextfile string
	showDiff        bool
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <workload.yaml>",
		Short: "Replay a workload with both deletion algorithms",
		Long: `Replay a workload on two sets, one deleting top-down and one bottom-up.
Both trees are verified and compared after every step; the run stops at the
first disagreement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, global, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "",
		"write the run metrics in Prometheus text format to this file (overrides telemetry.metrics_textfile)")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", true, "print the diff of both trees on divergence")

	return cmd
}

func (opts *runOptions) run(cmd *cobra.Command, global *globalOptions, path string) (err error) {
	spec, err := workload.Load(path)
	if err != nil {
		return err
	}

	env, err := global.setup(cmd, observability.ModeCLI, func(cfg *observability.Config) {
		if opts.metricsTextfile != "" {
			cfg.MetricsTextfile = opts.metricsTextfile
		}
	})
	if err != nil {
		return err
	}

	// The textfile is written on shutdown, so its failure fails the run.
	defer func() {
		err = errors.Join(err, env.shutdown(cmd.Context()))
	}()

	metrics, err := observability.NewOpMetrics(env.providers.Meter)
	if err != nil {
		return err
	}

	runner := workload.NewRunner(env.providers.Tracer, metrics, env.logger)

	result, err := runner.Run(cmd.Context(), spec)
	if err != nil {
		return err
	}

	err = report.Table(cmd.OutOrStdout(), result)
	if err != nil {
		return err
	}

	if !result.Diverged() {
		return nil
	}

	if opts.showDiff {
		fmt.Fprint(cmd.OutOrStdout(), report.DiffDumps(result.Divergence.TopDown, result.Divergence.BottomUp))
	}

	return fmt.Errorf("%w at step %d", ErrDiverged, result.Divergence.Step)
}

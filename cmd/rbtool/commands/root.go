// Package commands implements the rbtool CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/config"
	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/version"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configPath string
}

// NewRootCommand creates the rbtool command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rbtool",
		Short: "Drive and inspect the join-based red-black tree engine",
		Long: `rbtool replays operation workloads, benchmarks bulk construction and
prints tree shapes.

Commands:
  run       Replay a workload with both deletion algorithms
  bench     Compare treeify, repeated insertion and run insertion
  dump      Print the tree built from a list of keys
  diff      Diff the shapes left by top-down and bottom-up deletion
  validate  Check a workload file against the schema
  generate  Write a random workload
  store     Manage named sets saved on disk`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: search for rbtool.yaml)")

	root.AddCommand(
		newRunCommand(opts),
		newBenchCommand(opts),
		newDumpCommand(),
		newDiffCommand(),
		newValidateCommand(),
		newGenerateCommand(opts),
		newStoreCommand(opts),
		newVersionCommand(),
	)

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// env is the configuration and telemetry a command runs with.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
}

// setup loads the configuration and starts telemetry. Logs go to the
// command's error stream. overrides adjust the telemetry settings taken from
// the configuration. The caller must call close or shutdown.
func (opts *globalOptions) setup(
	cmd *cobra.Command, mode observability.AppMode, overrides ...func(*observability.Config),
) (*env, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	ver, _ := version.Info()

	obsCfg, err := cfg.Observability(ver, mode)
	if err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(&obsCfg)
	}

	providers, err := observability.Init(cmd.Context(), obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &env{
		cfg:       cfg,
		providers: providers,
		logger:    observability.NewLogger(cmd.ErrOrStderr(), obsCfg),
	}, nil
}

// shutdown flushes telemetry and writes the metrics textfile, if any. It runs
// even when ctx was cancelled.
func (e *env) shutdown(ctx context.Context) error {
	return e.providers.Shutdown(context.WithoutCancel(ctx))
}

func (e *env) close(ctx context.Context) {
	err := e.shutdown(ctx)
	if err != nil {
		e.logger.Warn("observability shutdown failed", "error", err)
	}
}

func parseKeys(args []string) ([]int64, error) {
	keys := make([]int64, len(args))

	for idx, arg := range args {
		key, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", arg, err)
		}

		keys[idx] = key
	}

	return keys, nil
}

func formatKey(key int64) string {
	return strconv.FormatInt(key, 10)
}

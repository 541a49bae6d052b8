package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/config"
	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

type generateOptions struct {
	name     string
	seed     int64
	steps    int
	keySpace int64
	output   string
}

func newGenerateCommand(global *globalOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random workload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, global)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "random", "workload name")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "generator seed")
	cmd.Flags().IntVar(&opts.steps, "steps", 100, "number of steps")
	cmd.Flags().Int64Var(&opts.keySpace, "key-space", 0, "key space (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (opts *generateOptions) run(cmd *cobra.Command, global *globalOptions) error {
	keySpace := opts.keySpace

	if !cmd.Flags().Changed("key-space") {
		cfg, err := config.LoadConfig(global.configPath)
		if err != nil {
			return err
		}

		keySpace = int64(cfg.Bench.KeySpace)
	}

	if opts.steps <= 0 || keySpace <= 0 {
		return fmt.Errorf("%w: %d steps over %d keys", workload.ErrInvalidWorkload, opts.steps, keySpace)
	}

	spec := workload.Generate(opts.name, opts.seed, opts.steps, keySpace)

	if opts.output == "" {
		return workload.Write(cmd.OutOrStdout(), spec)
	}

	file, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create workload: %w", err)
	}

	err = workload.Write(file, spec)

	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("close workload: %w", closeErr)
	}

	return err
}

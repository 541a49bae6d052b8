package commands

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workload.yaml>",
		Short: "Check a workload file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := workload.Load(args[0])

			var invalid *workload.ValidationError
			if errors.As(err, &invalid) {
				color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "%s is not a valid workload\n", args[0])

				for _, problem := range invalid.Problems {
					color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", problem.Field, problem.Description)
				}

				return err
			}

			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s is valid: %q, %d steps\n",
				args[0], spec.Name, len(spec.Steps))

			return nil
		},
	}
}

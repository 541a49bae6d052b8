package commands

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/report"
	"github.com/Sumatoshi-tech/rbjoin/pkg/sortedset"
)

func newDumpCommand() *cobra.Command {
	var (
		dot      bool
		bottomUp bool
		remove   []int64
	)

	cmd := &cobra.Command{
		Use:   "dump <key>...",
		Short: "Print the tree built from a list of keys",
		Long: `Insert the keys in order, remove the --remove keys, verify the tree and
print it sideways (right subtree on top) or as Graphviz DOT.

Examples:
  rbtool dump 5 3 8 1 4
  rbtool dump --dot 1 2 3 4 5 6 7 | dot -Tsvg > tree.svg
  rbtool dump --remove 3 --bottom-up 5 3 8 1 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}

			strategy := sortedset.TopDown
			if bottomUp {
				strategy = sortedset.BottomUp
			}

			set, err := buildSet(keys, remove, strategy)
			if err != nil {
				return err
			}

			if dot {
				return set.WriteDot(cmd.OutOrStdout(), formatKey)
			}

			return set.Dump(cmd.OutOrStdout(), formatKey)
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "print Graphviz DOT instead of text")
	cmd.Flags().BoolVar(&bottomUp, "bottom-up", false, "delete bottom-up instead of top-down")
	cmd.Flags().Int64SliceVar(&remove, "remove", nil, "keys to remove after insertion")

	return cmd
}

func newDiffCommand() *cobra.Command {
	var remove []int64

	cmd := &cobra.Command{
		Use:   "diff <key>...",
		Short: "Diff the shapes left by top-down and bottom-up deletion",
		Long: `Build the same tree twice, remove the --remove keys with each deletion
algorithm and print a line diff of both dumps. The contents always match;
the shapes usually do not.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}

			var dumps [2]string

			for idx, strategy := range []sortedset.RemovalStrategy{sortedset.TopDown, sortedset.BottomUp} {
				set, buildErr := buildSet(keys, remove, strategy)
				if buildErr != nil {
					return buildErr
				}

				var buf bytes.Buffer

				buildErr = set.Dump(&buf, formatKey)
				if buildErr != nil {
					return buildErr
				}

				dumps[idx] = buf.String()
			}

			diff := report.DiffDumps(dumps[0], dumps[1])
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "identical shapes")

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n+++ %s\n%s", sortedset.TopDown, sortedset.BottomUp, diff)

			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&remove, "remove", nil, "keys to remove after insertion")

	return cmd
}

func buildSet(keys, remove []int64, strategy sortedset.RemovalStrategy) (*sortedset.Set[int64], error) {
	set := sortedset.New(cmp.Compare[int64]).WithRemoval(strategy)

	for _, key := range keys {
		set.Add(key)
	}

	for _, key := range remove {
		set.Remove(key)
	}

	err := set.Verify()
	if err != nil {
		return nil, fmt.Errorf("%s tree: %w", strategy, err)
	}

	return set, nil
}

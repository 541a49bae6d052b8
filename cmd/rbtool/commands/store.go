package commands

import (
	"cmp"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbjoin/pkg/sortedset"
)

var (
	// ErrNoStoreDir is returned when neither --dir nor registry.directory is set.
	ErrNoStoreDir = errors.New("no store directory: pass --dir or set registry.directory")
	// ErrUnknownSet is returned for a set name the store does not hold.
	ErrUnknownSet = errors.New("unknown set")
)

type storeOptions struct {
	global *globalOptions
	dir    string
}

func newStoreCommand(global *globalOptions) *cobra.Command {
	opts := &storeOptions{global: global}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage named sets saved on disk",
		Long: `Named sets of integers live in sharded arenas saved under one directory,
next to a manifest.yaml index. Every command loads the whole store, and the
mutating ones save it back.`,
	}

	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "store directory (default: registry.directory)")

	cmd.AddCommand(opts.putCommand(), opts.listCommand(), opts.showCommand(), opts.dropCommand())

	return cmd
}

// session is an opened store.
type session struct {
	*env

	dir      string
	registry *sortedset.Registry[int64]
}

func (opts *storeOptions) open(cmd *cobra.Command) (*session, error) {
	env, err := opts.global.setup(cmd, observability.ModeCLI)
	if err != nil {
		return nil, err
	}

	dir := opts.dir
	if dir == "" {
		dir = env.cfg.Registry.Directory
	}

	if dir == "" {
		env.close(cmd.Context())

		return nil, ErrNoStoreDir
	}

	registry, err := sortedset.Open(dir, cmp.Compare[int64], rbtree.Int64Codec{},
		env.cfg.Registry.Shards, env.cfg.Registry.HibernationThreshold, env.logger)
	if err != nil {
		env.close(cmd.Context())

		return nil, err
	}

	return &session{env: env, dir: dir, registry: registry}, nil
}

func (s *session) save() error {
	err := os.MkdirAll(s.dir, 0o750)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	return s.registry.Save(s.dir)
}

func (s *session) lookup(name string) (*sortedset.Set[int64], error) {
	set, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, name)
	}

	return set, nil
}

func (opts *storeOptions) putCommand() *cobra.Command {
	var run bool

	cmd := &cobra.Command{
		Use:   "put <name> <key>...",
		Short: "Add keys to a set, creating it when missing",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd // name and one key.
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args[1:])
			if err != nil {
				return err
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			set := sess.registry.Get(args[0])
			before := set.Len()

			if run {
				err = set.AddRun(keys)
				if err != nil {
					return err
				}
			} else {
				for _, key := range keys {
					set.Add(key)
				}
			}

			err = sess.save()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d added, %d values\n", args[0], set.Len()-before, set.Len())

			return nil
		},
	}

	cmd.Flags().BoolVar(&run, "run", false, "insert the keys as one sorted run that must not overlap the set")

	return cmd
}

func (opts *storeOptions) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the sets and their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			for _, name := range sess.registry.Names() {
				set, _ := sess.registry.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, set.Len())
			}

			return nil
		},
	}
}

func (opts *storeOptions) showCommand() *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the tree of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			set, err := sess.lookup(args[0])
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

	return cmd
}

func (opts *storeOptions) dropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <name>",
		Short: "Delete a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close(cmd.Context())

			if !sess.registry.Drop(args[0]) {
				return fmt.Errorf("%w: %q", ErrUnknownSet, args[0])
			}

			return sess.save()
		},
	}
}

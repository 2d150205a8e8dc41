package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <index> <entity1> <relation> [entity2]",
		Short: "Rename the elements of a proposition",
		Long: `Rename in place the source, the relation and optionally the target of
the proposition at index (1-based, as listed by the relations command).

Ids are kept, so every other proposition sharing a renamed element shows
the new text. A name already used by another element is rejected.

Example:
  propmap rename 2 "Big cat" "hunts"
  propmap rename 2 "Big cat" "hunts" "Salmon"`,
		Args:          cobra.RangeArgs(3, 4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			entity2 := ""
			if len(args) == 4 {
				entity2 = args[3]
			}
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) {
					return w.session.RetargetProposition(index, args[1], args[2], entity2)
				})
			})
		},
	}
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Last bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete [index]",
		Short: "Delete a proposition",
		Long: `Delete the proposition at index (1-based), or the most recent one with
--last. Nodes and relations no longer used by any proposition are removed
with it.

Example:
  propmap delete 3
  propmap delete --last`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Last == (len(args) == 1) {
				return NewExitError(ExitCommandError, "pass either an index or --last")
			}

			index := 0
			if !opts.Last {
				var err error
				if index, err = parseIndex(args[0]); err != nil {
					return err
				}
			}

			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				if opts.Last {
					return w.run(ctx, w.session.DeleteLast)
				}
				return w.run(ctx, func() (string, error) { return w.session.DeleteProposition(index) })
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Last, "last", false, "delete the most recently added proposition")

	return cmd
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/propmap/internal/registrar"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Weight string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <entity1> <relation> <entity2>",
		Short: "Register a proposition",
		Long: `Register a proposition and redraw the graph.

Entities and relations are matched by their text, ignoring line-break
markers and repeated whitespace, so existing elements are reused. An
identical proposition (same elements and weight) is rejected.

Example:
  propmap add "Cat" "eats" "Fish"
  propmap add "Cat" "eats" "Fish" --weight 2`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := registrar.Input{Entity1: args[0], Relation: args[1], Entity2: args[2], Weight: opts.Weight}
			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) { return w.session.SubmitProposition(in) })
			})
		},
	}

	cmd.Flags().StringVar(&opts.Weight, "weight", "", "proposition weight (default 1)")

	return cmd
}

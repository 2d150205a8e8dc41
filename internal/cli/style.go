package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/propmap/internal/style"
)

// NewStyleCommand creates the style command.
func NewStyleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "style <node|relation> <id> <key=value>...",
		Short: "Set attributes of one element",
		Long: `Set Graphviz attributes of one node or relation.

For a relation, weight=N (or peso=N) sets the weight of every proposition
using that relation. Labels change only through rename.

Example:
  propmap style node 0 shape=box fillcolor=#ffcc00
  propmap style relation 1 color=red weight=3`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			fields, err := parseFields(args[2:])
			if err != nil {
				return err
			}
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) { return w.session.EditElement(kind, id, fields) })
			})
		},
	}
}

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Node       map[string]string
	Relation   map[string]string
	Background string
	Direction  string
	Wrap       int
	Justify    string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Restyle the whole graph",
		Long: `Apply attributes to every node and relation and set graph-wide style.

Node and relation attributes also become the defaults of elements added
later. Changing --wrap or --justify re-wraps every stored label.

Example:
  propmap graph --node shape=box --relation color=#888888
  propmap graph --bgcolor "#ffffff" --rankdir LR
  propmap graph --wrap 15 --justify left`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			graphFields := make(map[string]string)
			if cmd.Flags().Changed("bgcolor") {
				graphFields[style.AttrBackground] = opts.Background
			}
			if cmd.Flags().Changed("rankdir") {
				graphFields[style.AttrDirection] = opts.Direction
			}
			if cmd.Flags().Changed("wrap") {
				graphFields[style.AttrWrapColumn] = strconv.Itoa(opts.Wrap)
			}
			if cmd.Flags().Changed("justify") {
				graphFields[style.AttrJustification] = opts.Justify
			}
			if len(opts.Node) == 0 && len(opts.Relation) == 0 && len(graphFields) == 0 {
				return NewExitError(ExitCommandError, "nothing to change: pass at least one flag")
			}

			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) {
					return w.session.EditGraph(opts.Node, opts.Relation, graphFields)
				})
			})
		},
	}

	cmd.Flags().StringToStringVar(&opts.Node, "node", nil, "node attribute key=value (repeatable)")
	cmd.Flags().StringToStringVar(&opts.Relation, "relation", nil, "relation attribute key=value (repeatable)")
	cmd.Flags().StringVar(&opts.Background, "bgcolor", "", "background color")
	cmd.Flags().StringVar(&opts.Direction, "rankdir", "", "growth direction (TB|BT|LR|RL)")
	cmd.Flags().IntVar(&opts.Wrap, "wrap", 0, "label wrap column")
	cmd.Flags().StringVar(&opts.Justify, "justify", "", "label justification (center|left|right)")

	return cmd
}

package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/propmap/internal/store"
)

// tableView is the JSON form of a listed table.
type tableView struct {
	Table   string      `json:"table"`
	Columns []string    `json:"columns"`
	Rows    []store.Row `json:"rows"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var names []string
	for _, t := range store.Tables() {
		names = append(names, t.String())
	}

	return &cobra.Command{
		Use:   "list <table>",
		Short: "Print a table",
		Long: fmt.Sprintf(`Print every row of a table.

Tables: %s

Example:
  propmap list nodes
  propmap list relation-style --format json`, strings.Join(names, ", ")),
		Args:          cobra.ExactArgs(1),
		ValidArgs:     names,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := store.ParseTable(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "unknown table", err)
			}
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				rows, err := w.session.Rows(ctx, t)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read table", err)
				}
				if w.out.Format == "json" {
					return w.out.Success(tableView{Table: t.String(), Columns: t.Columns(), Rows: rows})
				}

				tw := tabwriter.NewWriter(w.out.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, strings.Join(t.Columns(), "\t"))
				for _, row := range rows {
					fmt.Fprintln(tw, strings.Join(row, "\t"))
				}
				return tw.Flush()
			})
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <node|relation> <id>",
		Short: "Print the attributes of an element",
		Long: `Print the style attributes of a node or relation.

For a relation, "peso" is the weight of its first proposition.

Example:
  propmap show node 0
  propmap show relation 2 --format json`,
		Args:          cobra.ExactArgs(2),
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
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				attrs, err := w.session.Attributes(ctx, kind, id)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read attributes", err)
				}
				if w.out.Format == "json" {
					return w.out.Success(attrs)
				}
				for _, key := range slices.Sorted(maps.Keys(attrs)) {
					fmt.Fprintf(w.out.Writer, "%s=%s\n", key, attrs[key])
				}
				return nil
			})
		},
	}
}

// RelationsOptions holds flags for the relations command.
type RelationsOptions struct {
	*RootOptions
	ByRelation bool
}

// NewRelationsCommand creates the relations command.
func NewRelationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List registered propositions",
		Long: `List every proposition with its 1-based index, the index used by the
rename and delete commands.

With --by-relation, print for each relation id the indexes of the
propositions using it.

Example:
  propmap relations
  propmap relations --by-relation`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				if opts.ByRelation {
					return printByRelation(ctx, w)
				}
				reg, err := w.session.RegisteredRelations(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read propositions", err)
				}
				if w.out.Format == "json" {
					return w.out.Success(reg)
				}
				for _, r := range reg {
					fmt.Fprintf(w.out.Writer, "%d. %s -[%s]-> %s (weight %s)\n",
						r.Index, r.Elements[0].Text, r.Elements[1].Text, r.Elements[2].Text, r.Weight)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.ByRelation, "by-relation", false, "group proposition indexes by relation id")

	return cmd
}

func printByRelation(ctx context.Context, w *workspace) error {
	byVertex, err := w.session.RelationsByVertex(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read propositions", err)
	}
	if w.out.Format == "json" {
		return w.out.Success(byVertex)
	}
	for _, id := range slices.Sorted(maps.Keys(byVertex)) {
		indexes := make([]string, len(byVertex[id]))
		for i, n := range byVertex[id] {
			indexes[i] = fmt.Sprint(n)
		}
		fmt.Fprintf(w.out.Writer, "%d: %s\n", id, strings.Join(indexes, ", "))
	}
	return nil
}

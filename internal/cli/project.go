package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	As string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the diagram",
		Long: `Render the diagram into the workspace's resultados directory.

The gv format writes Graphviz source; other formats (png, svg, pdf, ...)
are produced by the dot command.

Example:
  propmap export
  propmap export --as svg`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) { return w.session.Export(opts.As) })
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "diagram format (default from config)")

	return cmd
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <parent-dir> <name>",
		Short: "Save the workspace as a project",
		Long: `Copy the tables, the notes and the style state into a new directory
<parent-dir>/<name>. An existing directory is never overwritten.

Example:
  propmap save ~/maps biology`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) { return w.session.SaveProject(args[0], args[1]) })
			})
		},
	}
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Replace the workspace with a saved project",
		Long: `Replace the workspace with the project saved in dir.

The directory must hold exactly the project files. If anything fails the
previous workspace is restored.

Example:
  propmap load ~/maps/biology`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) { return w.session.LoadProject(args[0]) })
			})
		},
	}
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset --yes",
		Short: "Empty the workspace",
		Long: `Delete every proposition, element and note, remove rendered diagrams
and restore the default style. Requires --yes.

Example:
  propmap reset --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to reset without --yes")
			}
			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, w.session.ResetAll)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the reset")

	return cmd
}

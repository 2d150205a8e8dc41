package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text of a document",
		Long: `Print the plain text of a .txt or .html document, with blank-line runs
collapsed, to pick propositions from.

Example:
  propmap extract notes/article.html`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, rootOpts, func(ctx context.Context, w *workspace) error {
				return w.run(ctx, func() (string, error) { return w.session.ExtractText(args[0]) })
			})
		},
	}
}

// NotesOptions holds flags for the notes command.
type NotesOptions struct {
	*RootOptions
	Set    string
	Render bool
}

// notesWidth is the wrap width of rendered notes.
const notesWidth = 80

// NewNotesCommand creates the notes command.
func NewNotesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Print or replace the workspace notes",
		Long: `Print the free-form notes kept with the workspace, or replace them
with --set. Notes are saved and loaded with projects. With --render,
notes are formatted as Markdown for the terminal.

Example:
  propmap notes
  propmap notes --render
  propmap notes --set "check the fish chapter"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts.RootOptions, func(ctx context.Context, w *workspace) error {
				if cmd.Flags().Changed("set") {
					return w.run(ctx, func() (string, error) { return w.session.SaveNotes(opts.Set) })
				}
				text, err := w.session.Notes(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read notes", err)
				}
				if w.out.Format == "json" {
					return w.out.Success(map[string]string{"notes": text})
				}
				if opts.Render {
					return renderNotes(w, text)
				}
				fmt.Fprintln(w.out.Writer, text)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "replace the notes with this text")
	cmd.Flags().BoolVar(&opts.Render, "render", false, "format the notes as Markdown")

	return cmd
}

func renderNotes(w *workspace, text string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(notesWidth),
	)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create notes renderer", err)
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render notes", err)
	}
	fmt.Fprint(w.out.Writer, rendered)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/propmap/internal/app"
	"github.com/roach88/propmap/internal/config"
	"github.com/roach88/propmap/internal/executor"
	"github.com/roach88/propmap/internal/project"
	"github.com/roach88/propmap/internal/store"
)

// workspace is a session opened on the configured workspace directory.
type workspace struct {
	cfg     *config.Config
	session *app.Session
	out     *OutputFormatter
	logger  *slog.Logger
}

func openWorkspace(cmd *cobra.Command, opts *RootOptions) (*workspace, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out.GetErrWriter(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Workspace != "" {
		cfg.Workspace = opts.Workspace
	}

	st, err := store.OpenDir(cfg.Workspace, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open workspace", err)
	}

	execOpts := []executor.Option{executor.WithLogger(logger)}
	if opts.IDGenerator != nil {
		execOpts = append(execOpts, executor.WithIDGenerator(opts.IDGenerator))
	}
	session := app.New(st,
		app.WithLogger(logger),
		app.WithExecutor(executor.New(execOpts...)),
		app.WithOutputDir(filepath.Join(cfg.Workspace, project.OutputDir)),
		app.WithRenderFormat(cfg.RenderFormat),
		app.WithDotCommand(cfg.DotCommand),
		app.WithLabelPolicy(cfg.Wrap, cfg.Justification()),
	)
	if err := session.RestoreState(commandContext(cmd)); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to restore style state", err)
	}

	out.VerboseLog("workspace: %s", cfg.Workspace)
	return &workspace{cfg: cfg, session: session, out: out, logger: logger}, nil
}

// run submits the tasks in order and polls results until every task has
// finished, then persists the style state. Results are printed as they are
// applied. Failed or rejected tasks make run return an ExitFailure error.
//
// The Poller runs on its own goroutine and is the only one applying results
// while tasks execute; the command goroutine just blocks in Wait. After Wait
// returns the Poller is stopped and joined, and the command goroutine takes
// over to apply whatever is left, so results are never applied from two
// goroutines at once.
func (w *workspace) run(ctx context.Context, submits ...func() (string, error)) error {
	// Setup signal handling for graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, submit := range submits {
		if _, err := submit(); err != nil {
			return WrapExitError(ExitCommandError, "failed to submit task", err)
		}
	}

	failed := 0
	apply := func(r executor.Result) {
		var err error
		switch {
		case r.Err != nil:
			failed++
			err = w.out.Result(r)
		case r.Kind == executor.KindStatus && r.Payload == app.StatusDuplicate:
			failed++
			err = w.out.Error(CodeDuplicate, r.Payload, nil)
		default:
			err = w.out.Result(r)
		}
		if err != nil {
			w.logger.Error("failed to print result", "task_id", r.TaskID, "error", err)
		}
	}

	exec := w.session.Executor()
	pollCtx, cancel := context.WithCancel(sigCtx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = executor.NewPoller(exec, w.cfg.PollInterval).Run(pollCtx, apply)
	}()

	waitErr := exec.Wait(sigCtx)
	cancel()
	<-done
	exec.Drain(apply)

	if waitErr != nil {
		return WrapExitError(ExitFailure, "interrupted before all operations finished", waitErr)
	}
	if err := w.session.PersistState(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist style state", err)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d operations failed", failed, len(submits)))
	}
	return nil
}

func (w *workspace) close(ctx context.Context) {
	if err := w.session.Close(ctx); err != nil {
		w.logger.Warn("tasks still running at exit", "error", err)
	}
}

// commandContext returns the command's context, or a background context when
// the command runs without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withWorkspace opens the workspace, runs fn and closes the session.
func withWorkspace(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, w *workspace) error) error {
	w, err := openWorkspace(cmd, opts)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	defer w.close(ctx)
	return fn(ctx, w)
}

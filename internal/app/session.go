// Package app wires the graph store, the style state and the task executor
// into a Session, the single entry point used by the command line.
//
// Every mutating action is submitted to the executor on the channel of the
// area it affects and reports back through executor results. Read queries
// run synchronously under the store lock.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hack-pad/hackpadfs"

	"github.com/roach88/propmap/internal/collab"
	"github.com/roach88/propmap/internal/editor"
	"github.com/roach88/propmap/internal/executor"
	"github.com/roach88/propmap/internal/project"
	"github.com/roach88/propmap/internal/registrar"
	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/style"
	"github.com/roach88/propmap/internal/textnorm"
)

// DefaultRenderFormat is the diagram format produced after each mutation.
const DefaultRenderFormat = "gv"

// Session owns the style state of one workspace and serializes all work on
// it through an executor.
type Session struct {
	store      *store.Store
	state      *style.State
	registrar  *registrar.Registrar
	editor     *editor.Editor
	projects   *project.Manager
	exec       *executor.Executor
	extractor  collab.Extractor
	diagrammer collab.Diagrammer
	outputDir  string
	format     string
	logger     *slog.Logger
}

type options struct {
	logger      *slog.Logger
	exec        *executor.Executor
	extractor   collab.Extractor
	diagrammer  collab.Diagrammer
	outputDir   string
	outputFS    hackpadfs.FS
	format      string
	dotCommand  string
	projectOpts []project.Option
	wrap        int
	justify     textnorm.Justification
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithExecutor runs tasks on e instead of a new executor.
func WithExecutor(e *executor.Executor) Option {
	return func(o *options) {
		if e != nil {
			o.exec = e
		}
	}
}

// WithExtractor sets the document text extractor.
func WithExtractor(x collab.Extractor) Option {
	return func(o *options) {
		if x != nil {
			o.extractor = x
		}
	}
}

// WithDiagrammer replaces the default DOT diagrammer.
func WithDiagrammer(d collab.Diagrammer) Option {
	return func(o *options) {
		if d != nil {
			o.diagrammer = d
		}
	}
}

// WithOutputDir sets where diagrams are rendered. Default: project.OutputDir.
func WithOutputDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.outputDir = dir
		}
	}
}

// WithOutputFS makes the default diagrammer write to fsys.
func WithOutputFS(fsys hackpadfs.FS) Option {
	return func(o *options) {
		o.outputFS = fsys
	}
}

// WithRenderFormat sets the format rendered after each mutation.
func WithRenderFormat(format string) Option {
	return func(o *options) {
		if format != "" {
			o.format = format
		}
	}
}

// WithDotCommand sets the Graphviz executable of the default diagrammer.
func WithDotCommand(name string) Option {
	return func(o *options) {
		o.dotCommand = name
	}
}

// WithLabelPolicy sets the wrap column and justification of a fresh
// session. RestoreState replaces them with the persisted ones.
func WithLabelPolicy(wrap int, justify textnorm.Justification) Option {
	return func(o *options) {
		o.wrap = wrap
		o.justify = justify
	}
}

// WithProjectOptions configures the project manager.
func WithProjectOptions(opts ...project.Option) Option {
	return func(o *options) {
		o.projectOpts = append(o.projectOpts, opts...)
	}
}

// New creates a Session over s with the default style state.
func New(s *store.Store, opts ...Option) *Session {
	o := options{
		logger:    slog.Default(),
		outputDir: project.OutputDir,
		format:    DefaultRenderFormat,
	}
	for _, opt := range opts {
		opt(&o)
	}

	st := style.NewState()
	if o.wrap > 0 {
		st.Graph.WrapColumn = o.wrap
	}
	if o.justify.Valid() {
		st.Graph.Justification = o.justify
	}
	if o.exec == nil {
		o.exec = executor.New(executor.WithLogger(o.logger))
	}
	if o.extractor == nil {
		o.extractor = collab.NewTextExtractor()
	}
	if o.diagrammer == nil {
		o.diagrammer = collab.NewDotDiagrammer(s, st,
			collab.WithLogger(o.logger),
			collab.WithOutputFS(o.outputFS),
			collab.WithDotCommand(o.dotCommand))
	}

	return &Session{
		store:      s,
		state:      st,
		registrar:  registrar.New(s, registrar.WithLogger(o.logger)),
		editor:     editor.New(s, editor.WithLogger(o.logger)),
		projects:   project.New(s, append([]project.Option{project.WithLogger(o.logger)}, o.projectOpts...)...),
		exec:       o.exec,
		extractor:  o.extractor,
		diagrammer: o.diagrammer,
		outputDir:  o.outputDir,
		format:     o.format,
		logger:     o.logger,
	}
}

// Executor returns the executor running the session's tasks.
func (s *Session) Executor() *executor.Executor {
	return s.exec
}

// RestoreState loads the style state kept in the workspace, if any.
func (s *Session) RestoreState(ctx context.Context) error {
	found, err := s.projects.RestoreState(ctx, s.state)
	if err != nil {
		return err
	}
	if found {
		s.logger.Debug("style state restored")
	}
	return nil
}

// PersistState keeps the style state in the workspace for the next session.
func (s *Session) PersistState(ctx context.Context) error {
	return s.projects.PersistState(ctx, s.state)
}

// Close refuses further submissions and waits for queued tasks to finish.
func (s *Session) Close(ctx context.Context) error {
	s.exec.Close()
	return s.exec.Wait(ctx)
}

// render regenerates the diagram and publishes its path for area.
func (s *Session) render(ctx context.Context, pub executor.Publisher, area executor.Area) error {
	out, err := s.diagrammer.Render(ctx, s.format, s.outputDir)
	if err != nil {
		return err
	}
	pub.Publish(executor.KindImage, area, out)
	return nil
}

func (s *Session) submit(ch executor.Channel, name string, task executor.Task) (string, error) {
	id, err := s.exec.Enqueue(ch, name, task)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", name, err)
	}
	return id, nil
}

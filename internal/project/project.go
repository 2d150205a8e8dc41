// Package project saves and restores whole workspaces: the five tables, the
// user's notes and the style state.
//
// A saved project is a directory holding exactly the recognized files (see
// Files). Loading replaces the workspace contents; any failure while loading
// restores the previous workspace and style state from a temporary backup.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/style"
)

const (
	// NotesFile holds the user's free-form notes.
	NotesFile = "notas_propias.txt"

	// BackupDir holds the workspace copy taken while a project loads.
	BackupDir = "__respaldo__"

	// OutputDir receives rendered diagrams.
	OutputDir = "resultados"

	// StateDir keeps the style state of a workspace between sessions.
	StateDir = ".estado"

	filePerm = 0o644
	dirPerm  = 0o755
)

var (
	// ErrForeignFiles is returned when a project directory contains files
	// that do not belong to a project.
	ErrForeignFiles = errors.New("directory contains files foreign to the project")

	// ErrMissingFiles is returned when a project directory lacks required files.
	ErrMissingFiles = errors.New("project files missing")

	// ErrProjectExists is returned when saving over an existing directory.
	ErrProjectExists = errors.New("project already exists")
)

// Files returns the names of every file of a saved project.
func Files() []string {
	return append(workspaceFiles(), style.GraphStateFile, style.DefaultsStateFile)
}

// workspaceFiles are the project files that live in the workspace.
func workspaceFiles() []string {
	return append(store.TableFiles(), NotesFile)
}

// Manager performs project operations on a store's workspace.
//
// Project directories are resolved against a separate filesystem: the host
// filesystem by default, or the one given with WithProjectFS.
type Manager struct {
	store    *store.Store
	projects hackpadfs.FS
	hostFS   bool
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithProjectFS resolves project directories against fsys instead of the
// host filesystem. Paths are then slash-separated and relative to its root.
func WithProjectFS(fsys hackpadfs.FS) Option {
	return func(m *Manager) {
		if fsys != nil {
			m.projects = fsys
			m.hostFS = false
		}
	}
}

// New creates a Manager for the workspace of s.
func New(s *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		projects: osfs.NewFS(),
		hostFS:   true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// resolve maps a user-supplied directory to a path in m.projects.
func (m *Manager) resolve(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("empty directory")
	}
	if m.hostFS {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", dir, err)
		}
		dir = filepath.ToSlash(abs)
	}
	p := strings.TrimPrefix(path.Clean(dir), "/")
	if p == "" {
		p = "."
	}
	return p, nil
}

// SaveNotes replaces the notes file.
func (m *Manager) SaveNotes(ctx context.Context, text string) error {
	return m.store.Exclusive(ctx, func(ws hackpadfs.FS) error {
		if err := hackpadfs.WriteFullFile(ws, NotesFile, []byte(text), filePerm); err != nil {
			return fmt.Errorf("save notes: %w", err)
		}
		return nil
	})
}

// LoadNotes returns the notes, or "" when none were saved.
func (m *Manager) LoadNotes(ctx context.Context) (string, error) {
	var text string
	err := m.store.Exclusive(ctx, func(ws hackpadfs.FS) error {
		data, err := hackpadfs.ReadFile(ws, NotesFile)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load notes: %w", err)
		}
		text = string(data)
		return nil
	})
	return text, err
}

// ResetAll empties every table, clears the notes, removes rendered output
// and resets st to its defaults.
func (m *Manager) ResetAll(ctx context.Context, st *style.State) error {
	var cleanupErr error
	err := m.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.Reset(); err != nil {
			return err
		}
		tx.OnCommit(func() {
			st.Reset()
			cleanupErr = m.clearArtifacts()
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset workspace: %w", err)
	}
	if cleanupErr != nil {
		return fmt.Errorf("reset workspace: %w", cleanupErr)
	}
	m.logger.Info("workspace reset")
	return nil
}

func (m *Manager) clearArtifacts() error {
	ws := m.store.FS()
	if err := hackpadfs.WriteFullFile(ws, NotesFile, nil, filePerm); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	if err := hackpadfs.RemoveAll(ws, OutputDir); err != nil {
		return fmt.Errorf("remove %s: %w", OutputDir, err)
	}
	return nil
}

// Save writes the workspace and the style state into a new directory
// parentDir/name and returns its path.
func (m *Manager) Save(ctx context.Context, st *style.State, parentDir, name string) (string, error) {
	if name = strings.TrimSpace(name); name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("save project: invalid name %q", name)
	}
	parent, err := m.resolve(parentDir)
	if err != nil {
		return "", fmt.Errorf("save project: %w", err)
	}
	dst := path.Join(parent, name)

	err = m.store.Exclusive(ctx, func(ws hackpadfs.FS) error {
		if _, err := hackpadfs.Stat(m.projects, dst); err == nil {
			return fmt.Errorf("%w: %s", ErrProjectExists, dst)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if err := ensureFile(ws, NotesFile); err != nil {
			return err
		}
		if err := writeState(ws, ".", st); err != nil {
			return err
		}
		defer removeState(ws)

		if err := hackpadfs.MkdirAll(m.projects, dst, dirPerm); err != nil {
			return fmt.Errorf("create %s: %w", dst, err)
		}
		if err := copyFiles(ctx, ws, ".", m.projects, dst, Files()); err != nil {
			_ = hackpadfs.RemoveAll(m.projects, dst)
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("save project: %w", err)
	}

	m.logger.Info("project saved", "dir", dst)
	return dst, nil
}

// Load replaces the workspace with the project stored in dir and applies
// its style state to st.
//
// The directory must hold exactly the files listed by Files; hidden entries
// are ignored. On any failure the previous tables, notes and style state are
// restored.
func (m *Manager) Load(ctx context.Context, st *style.State, dir string) error {
	src, err := m.resolve(dir)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	err = m.store.Exclusive(ctx, func(ws hackpadfs.FS) error {
		if err := m.checkProjectDir(src); err != nil {
			return err
		}

		saved, err := backup(ctx, ws)
		if err != nil {
			return err
		}
		defer func() {
			if err := hackpadfs.RemoveAll(ws, BackupDir); err != nil {
				m.logger.Warn("backup not removed", "dir", BackupDir, "error", err)
			}
		}()
		previous := st.Clone()

		loadErr := m.apply(ctx, ws, st, src)
		if loadErr == nil {
			return nil
		}

		m.logger.Warn("project load failed, restoring workspace", "dir", src, "error", loadErr)
		st.Restore(previous)
		if err := restore(ctx, ws, saved); err != nil {
			return errors.Join(loadErr, fmt.Errorf("restore backup: %w", err))
		}
		return loadErr
	})
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	m.logger.Info("project loaded", "dir", src)
	return nil
}

// PersistState stores st in the workspace's StateDir.
func (m *Manager) PersistState(ctx context.Context, st *style.State) error {
	return m.store.Exclusive(ctx, func(ws hackpadfs.FS) error {
		if err := hackpadfs.MkdirAll(ws, StateDir, dirPerm); err != nil {
			return fmt.Errorf("persist state: %w", err)
		}
		if err := writeState(ws, StateDir, st); err != nil {
			return fmt.Errorf("persist state: %w", err)
		}
		return nil
	})
}

// RestoreState replaces st with the state kept in the workspace. It reports
// false, leaving st untouched, when no state was persisted.
func (m *Manager) RestoreState(ctx context.Context, st *style.State) (bool, error) {
	found := false
	err := m.store.Exclusive(ctx, func(ws hackpadfs.FS) error {
		if _, err := hackpadfs.Stat(ws, path.Join(StateDir, style.GraphStateFile)); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		graph, nodes, relations, err := readState(ws, StateDir)
		if err != nil {
			return fmt.Errorf("restore state: %w", err)
		}
		st.Graph, st.Nodes, st.Relations = graph, nodes, relations
		st.ResetSentinels()
		found = true
		return nil
	})
	return found, err
}

func (m *Manager) checkProjectDir(dir string) error {
	entries, err := hackpadfs.ReadDir(m.projects, dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	required := Files()
	var foreign []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		i := slices.Index(required, name)
		if i < 0 || entry.IsDir() {
			foreign = append(foreign, name)
			continue
		}
		required = slices.Delete(required, i, i+1)
	}
	if len(foreign) > 0 {
		return fmt.Errorf("%w: %s", ErrForeignFiles, strings.Join(foreign, ", "))
	}
	if len(required) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFiles, strings.Join(required, ", "))
	}
	return nil
}

// apply copies the project files into the workspace, validates them and
// updates st.
func (m *Manager) apply(ctx context.Context, ws hackpadfs.FS, st *style.State, src string) error {
	graph, nodes, relations, err := readState(m.projects, src)
	if err != nil {
		return err
	}
	if err := copyFiles(ctx, m.projects, src, ws, ".", workspaceFiles()); err != nil {
		return err
	}
	swept, err := store.Repair(ws)
	if err != nil {
		return err
	}
	if swept > 0 {
		m.logger.Info("orphaned elements removed", "count", swept)
	}

	st.Graph = graph
	st.Nodes = nodes
	st.Relations = relations
	st.ResetSentinels()
	return nil
}

func readState(fsys hackpadfs.FS, dir string) (style.Graph, style.Defaults, style.Defaults, error) {
	data, err := hackpadfs.ReadFile(fsys, path.Join(dir, style.GraphStateFile))
	if err != nil {
		return style.Graph{}, nil, nil, err
	}
	graph, err := style.DecodeGraph(data)
	if err != nil {
		return style.Graph{}, nil, nil, err
	}

	data, err = hackpadfs.ReadFile(fsys, path.Join(dir, style.DefaultsStateFile))
	if err != nil {
		return style.Graph{}, nil, nil, err
	}
	nodes, relations, err := style.DecodeDefaults(data)
	if err != nil {
		return style.Graph{}, nil, nil, err
	}
	return graph, nodes, relations, nil
}

func writeState(fsys hackpadfs.FS, dir string, st *style.State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	graph, err := style.EncodeGraph(st.Graph)
	if err != nil {
		return err
	}
	defaults, err := style.EncodeDefaults(st.Nodes, st.Relations)
	if err != nil {
		return err
	}
	for name, data := range map[string][]byte{style.GraphStateFile: graph, style.DefaultsStateFile: defaults} {
		if err := hackpadfs.WriteFullFile(fsys, path.Join(dir, name), data, filePerm); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func removeState(ws hackpadfs.FS) {
	for _, name := range []string{style.GraphStateFile, style.DefaultsStateFile} {
		_ = hackpadfs.Remove(ws, name)
	}
}

func ensureFile(fsys hackpadfs.FS, name string) error {
	_, err := hackpadfs.Stat(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return hackpadfs.WriteFullFile(fsys, name, nil, filePerm)
	}
	return err
}

// backup copies the workspace files that exist into BackupDir and returns
// their names.
func backup(ctx context.Context, ws hackpadfs.FS) ([]string, error) {
	var present []string
	for _, name := range workspaceFiles() {
		if _, err := hackpadfs.Stat(ws, name); err == nil {
			present = append(present, name)
		}
	}
	if err := hackpadfs.MkdirAll(ws, BackupDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	if err := copyFiles(ctx, ws, ".", ws, BackupDir, present); err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return present, nil
}

// restore puts the backed-up files back and removes project files that did
// not exist before the load.
func restore(ctx context.Context, ws hackpadfs.FS, saved []string) error {
	for _, name := range workspaceFiles() {
		if !slices.Contains(saved, name) {
			if err := hackpadfs.Remove(ws, name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
	return copyFiles(ctx, ws, BackupDir, ws, ".", saved)
}

// copyFiles copies the named files from srcDir in src to dstDir in dst
// concurrently.
func copyFiles(ctx context.Context, src hackpadfs.FS, srcDir string, dst hackpadfs.FS, dstDir string, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := hackpadfs.ReadFile(src, path.Join(srcDir, name))
			if err != nil {
				return fmt.Errorf("copy %s: %w", name, err)
			}
			if err := hackpadfs.WriteFullFile(dst, path.Join(dstDir, name), data, filePerm); err != nil {
				return fmt.Errorf("copy %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

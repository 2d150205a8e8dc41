package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// Store provides durable storage for the five graph tables.
//
// Thread-safety: all methods are safe for concurrent use. Update, View and
// Exclusive serialize on one mutex.
type Store struct {
	mu     sync.Mutex
	fs     hackpadfs.FS
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens the tables stored at the root of fsys.
//
// A workspace with no table files at all is initialized with header-only
// tables. A workspace missing only some of them is rejected with
// ErrMissingTable. Every table is schema-validated before Open returns.
func Open(fsys hackpadfs.FS, opts ...Option) (*Store, error) {
	s := &Store{fs: fsys, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// OpenDir opens (creating if needed) a workspace in an OS directory.
func OpenDir(dir string, opts ...Option) (*Store, error) {
	fsys, err := DirFS(dir)
	if err != nil {
		return nil, err
	}
	return Open(fsys, opts...)
}

// DirFS returns a filesystem rooted at an OS directory, creating the
// directory if it does not exist.
func DirFS(dir string) (hackpadfs.FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	root := osfs.NewFS()
	rel := strings.TrimPrefix(filepath.ToSlash(abs), "/")
	if rel == "" {
		return root, nil
	}
	if err := hackpadfs.MkdirAll(root, rel, dirPerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", abs, err)
	}
	return root.Sub(rel)
}

// FS returns the underlying filesystem. Callers must not write table files
// through it outside of Exclusive.
func (s *Store) FS() hackpadfs.FS {
	return s.fs
}

// Update runs fn in a writable transaction under the store lock.
// Tables modified by fn are rewritten only if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := load(s.fs)
	if err != nil {
		return err
	}
	tx.writable = true

	if err := fn(tx); err != nil {
		return err
	}
	if err := s.commit(tx); err != nil {
		return err
	}
	for _, cb := range tx.onCommit {
		cb()
	}
	return nil
}

// View runs fn in a read-only transaction under the store lock.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := load(s.fs)
	if err != nil {
		return err
	}
	return fn(tx)
}

// Exclusive runs fn with the store lock held and direct access to the
// filesystem. It is used for whole-workspace file operations such as
// project save, load and backup.
func (s *Store) Exclusive(ctx context.Context, fn func(fsys hackpadfs.FS) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.fs)
}

// Reset empties every table, keeping only headers.
func (s *Store) Reset(ctx context.Context) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.Reset()
	})
}

// Check loads every table of fsys and verifies schema and cross-table
// integrity. It takes no lock; callers inside Exclusive use it to validate
// files they just placed.
func Check(fsys hackpadfs.FS) error {
	tx, err := load(fsys)
	if err != nil {
		return err
	}
	return tx.Verify()
}

// Repair loads every table of fsys, deletes orphaned nodes and relations,
// verifies integrity and writes back what changed. Like Check it takes no
// lock. It returns the number of orphans removed.
func Repair(fsys hackpadfs.FS) (int, error) {
	tx, err := load(fsys)
	if err != nil {
		return 0, err
	}
	tx.writable = true

	n, err := tx.SweepOrphans()
	if err != nil {
		return 0, err
	}
	if err := tx.Verify(); err != nil {
		return 0, err
	}
	s := &Store{fs: fsys, logger: slog.Default()}
	return n, s.commit(tx)
}

func (s *Store) initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []Table
	for _, t := range Tables() {
		_, err := hackpadfs.Stat(s.fs, t.File())
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, t)
			continue
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", t.File(), err)
		}
	}

	switch {
	case len(missing) == int(tableCount):
		for _, t := range missing {
			if err := writeTable(s.fs, t, nil); err != nil {
				return err
			}
		}
		s.logger.Info("initialized empty workspace")
	case len(missing) > 0:
		return fmt.Errorf("%w: %s", ErrMissingTable, missing[0].File())
	}

	_, err := load(s.fs)
	return err
}

// commit stages every dirty table in a temporary file, then renames the
// staged files over the originals.
func (s *Store) commit(tx *Tx) error {
	var staged []Table
	for _, t := range Tables() {
		if !tx.tables[t].dirty {
			continue
		}
		data, err := encodeTable(t, tx.tables[t].rows)
		if err != nil {
			return err
		}
		if err := hackpadfs.WriteFullFile(s.fs, tempName(t), data, filePerm); err != nil {
			discard(s.fs, staged)
			return fmt.Errorf("stage %s: %w", t.File(), err)
		}
		staged = append(staged, t)
	}

	for i, t := range staged {
		if err := hackpadfs.Rename(s.fs, tempName(t), t.File()); err != nil {
			discard(s.fs, staged[i:])
			return fmt.Errorf("replace %s: %w", t.File(), err)
		}
		s.logger.Debug("table written", "table", t.String(), "rows", len(tx.tables[t].rows))
	}
	return nil
}

func tempName(t Table) string {
	return t.File() + ".tmp"
}

func discard(fsys hackpadfs.FS, tables []Table) {
	for _, t := range tables {
		_ = hackpadfs.Remove(fsys, tempName(t))
	}
}

// writeTable atomically replaces one table file.
func writeTable(fsys hackpadfs.FS, t Table, rows []Row) error {
	data, err := encodeTable(t, rows)
	if err != nil {
		return err
	}
	if err := hackpadfs.WriteFullFile(fsys, tempName(t), data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", t.File(), err)
	}
	if err := hackpadfs.Rename(fsys, tempName(t), t.File()); err != nil {
		_ = hackpadfs.Remove(fsys, tempName(t))
		return fmt.Errorf("replace %s: %w", t.File(), err)
	}
	return nil
}

func readTable(fsys hackpadfs.FS, t Table) ([]Row, error) {
	data, err := hackpadfs.ReadFile(fsys, t.File())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, t.File())
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.File(), err)
	}
	return decodeTable(t, data)
}

func load(fsys hackpadfs.FS) (*Tx, error) {
	tx := &Tx{}
	for _, t := range Tables() {
		rows, err := readTable(fsys, t)
		if err != nil {
			return nil, err
		}
		tx.tables[t] = &tableData{rows: rows}
	}
	return tx, nil
}

package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmap/internal/store"
)

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS(t *testing.T) hackpadfs.FS {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	return fsys
}

// NewStore opens a fresh store on an in-memory filesystem.
func NewStore(t *testing.T) (*store.Store, hackpadfs.FS) {
	t.Helper()
	fsys := NewMemFS(t)
	s, err := store.Open(fsys)
	require.NoError(t, err)
	return s, fsys
}

// WriteFiles writes every name → content pair into fsys, creating parent
// directories.
func WriteFiles(t *testing.T, fsys hackpadfs.FS, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if i := strings.LastIndex(name, "/"); i > 0 {
			require.NoError(t, hackpadfs.MkdirAll(fsys, name[:i], 0o755))
		}
		require.NoError(t, hackpadfs.WriteFullFile(fsys, name, []byte(content), 0o644))
	}
}

// ReadFile returns the content of a file in fsys.
func ReadFile(t *testing.T, fsys hackpadfs.FS, name string) string {
	t.Helper()
	data, err := hackpadfs.ReadFile(fsys, name)
	require.NoError(t, err)
	return string(data)
}

// TableSnapshot renders every table file found under dir ("." for the root)
// in storage order. CRLF row terminators are shown as plain newlines so the
// snapshot stays readable in golden files.
func TableSnapshot(t *testing.T, fsys hackpadfs.FS, dir string) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, name := range store.TableFiles() {
		path := name
		if dir != "" && dir != "." {
			path = dir + "/" + name
		}
		content := ReadFile(t, fsys, path)
		require.True(t, strings.HasSuffix(content, "\r\n"), "%s must end in CRLF", path)
		fmt.Fprintf(&buf, "== %s ==\n", name)
		buf.WriteString(strings.ReplaceAll(content, "\r\n", "\n"))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// AssertTablesGolden compares the workspace tables against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run the package tests with -update.
func AssertTablesGolden(t *testing.T, fsys hackpadfs.FS, name string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, TableSnapshot(t, fsys, "."))
}

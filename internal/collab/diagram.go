package collab

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/style"
)

// DiagramName is the base name of every rendered file.
const DiagramName = "graph"

var formatPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Diagrammer renders the current graph into outputDir and returns the path
// of the rendered file.
type Diagrammer interface {
	Render(ctx context.Context, format, outputDir string) (string, error)
}

// DotDiagrammer writes the graph as Graphviz DOT and, for formats other
// than "gv", converts it with the dot command.
//
// The style state is read under the store lock, like every other access.
type DotDiagrammer struct {
	store  *store.Store
	state  *style.State
	fs     hackpadfs.FS
	hostFS bool
	dot    string
	logger *slog.Logger
}

// DiagramOption configures a DotDiagrammer.
type DiagramOption func(*DotDiagrammer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DiagramOption {
	return func(d *DotDiagrammer) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOutputFS writes diagrams to fsys instead of the host filesystem.
// Only the "gv" format can be produced there.
func WithOutputFS(fsys hackpadfs.FS) DiagramOption {
	return func(d *DotDiagrammer) {
		if fsys != nil {
			d.fs = fsys
			d.hostFS = false
		}
	}
}

// WithDotCommand sets the Graphviz executable. Default: "dot".
func WithDotCommand(name string) DiagramOption {
	return func(d *DotDiagrammer) {
		if name != "" {
			d.dot = name
		}
	}
}

// NewDotDiagrammer creates a diagrammer for the graph in s styled by st.
func NewDotDiagrammer(s *store.Store, st *style.State, opts ...DiagramOption) *DotDiagrammer {
	d := &DotDiagrammer{
		store:  s,
		state:  st,
		fs:     osfs.NewFS(),
		hostFS: true,
		dot:    "dot",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Render writes graph.gv into outputDir and, unless format is "gv",
// graph.<format> rendered from it.
func (d *DotDiagrammer) Render(ctx context.Context, format, outputDir string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if !formatPattern.MatchString(format) {
		return "", fmt.Errorf("invalid output format %q", format)
	}

	dir := fsPath(outputDir)
	if d.hostFS {
		var err error
		if dir, err = hostPath(outputDir); err != nil {
			return "", fmt.Errorf("render: %w", err)
		}
	}

	var src []byte
	err := d.store.View(ctx, func(tx *store.Tx) error {
		src = encodeDOT(tx, d.state.Graph)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	if err := hackpadfs.MkdirAll(d.fs, dir, 0o755); err != nil {
		return "", fmt.Errorf("render: create %s: %w", dir, err)
	}
	gv := path.Join(dir, DiagramName+".gv")
	if err := hackpadfs.WriteFullFile(d.fs, gv, src, 0o644); err != nil {
		return "", fmt.Errorf("render: write %s: %w", gv, err)
	}
	if format == "gv" {
		return d.display(gv), nil
	}
	if !d.hostFS {
		return "", fmt.Errorf("render %s: only gv output is available off the host filesystem", format)
	}

	out := path.Join(dir, DiagramName+"."+format)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.dot, "-T"+format, "-o", d.display(out), d.display(gv))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("render %s: %w: %s", format, err, strings.TrimSpace(stderr.String()))
	}

	d.logger.Debug("diagram rendered", "format", format, "path", d.display(out))
	return d.display(out), nil
}

// display turns a filesystem path back into the form shown to users.
func (d *DotDiagrammer) display(p string) string {
	if d.hostFS {
		return filepath.FromSlash("/" + p)
	}
	return p
}

// encodeDOT lays out the graph: graph attributes, one statement per node in
// table order with its style row, one edge per proposition labelled with its
// relation and weighted by its weight.
func encodeDOT(tx *store.Tx, g style.Graph) []byte {
	var b bytes.Buffer
	b.WriteString("digraph propositions {\n")
	fmt.Fprintf(&b, "\tgraph [%s=%s %s=%s]\n",
		style.AttrBackground, quote(g.Background), style.AttrDirection, quote(g.Direction))

	nodeStyles := styleRows(tx, store.NodeStyle)
	for _, rec := range tx.Records(store.Nodes) {
		attrs := []string{"label=" + quote(rec.Text)}
		if row, ok := nodeStyles[rec.ID]; ok {
			attrs = attributes(store.NodeStyle, row)
		}
		fmt.Fprintf(&b, "\t%d [%s]\n", rec.ID, strings.Join(attrs, " "))
	}

	relStyles := styleRows(tx, store.RelationStyle)
	labelCol := store.RelationStyle.Column("label")
	for _, p := range tx.Propositions() {
		label := ""
		var rest []string
		if row, ok := relStyles[p.RelationID]; ok {
			label = row[labelCol]
			rest = attributes(store.RelationStyle, row, "label")
		} else if rec, ok := tx.Record(store.Relations, p.RelationID); ok {
			label = rec.Text
		}
		attrs := append([]string{"label=" + quote(" "+label), "weight=" + quote(p.Weight)}, rest...)
		fmt.Fprintf(&b, "\t%d -> %d [%s]\n", p.SourceID, p.TargetID, strings.Join(attrs, " "))
	}

	b.WriteString("}\n")
	return b.Bytes()
}

func styleRows(tx *store.Tx, t store.Table) map[int]store.Row {
	rows := make(map[int]store.Row)
	for _, r := range tx.Rows(t) {
		id, err := strconv.Atoi(r[0])
		if err == nil {
			rows[id] = r
		}
	}
	return rows
}

// attributes renders a style row as DOT attributes in column order,
// omitting the id and any skipped columns.
func attributes(t store.Table, row store.Row, skip ...string) []string {
	var attrs []string
	for i, col := range t.Columns() {
		if i == 0 || slices.Contains(skip, col) {
			continue
		}
		attrs = append(attrs, col+"="+quote(row[i]))
	}
	return attrs
}

// quote produces a DOT string literal. The \n, \l and \r line escapes
// embedded in labels reach Graphviz unchanged; any other backslash and every
// double quote is escaped, so a label can never end the literal early.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) && strings.IndexByte("nlr", s[i+1]) >= 0 {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i++
				continue
			}
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

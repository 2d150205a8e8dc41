package store

import (
	"fmt"
	"strings"
)

// Table identifies one of the five persisted tables.
type Table int

const (
	// Nodes holds (id, text) for every live entity.
	Nodes Table = iota
	// Relations holds (id, text) for every live relation.
	Relations
	// Propositions holds (source, relation, target, weight) edges.
	Propositions
	// NodeStyle holds one style row per node.
	NodeStyle
	// RelationStyle holds one style row per relation.
	RelationStyle

	tableCount
)

type tableSpec struct {
	name    string
	file    string
	columns []string
	// intColumns are validated as non-negative integers.
	intColumns []int
	// numColumns are validated as numbers.
	numColumns []int
}

var tableSpecs = [tableCount]tableSpec{
	Nodes: {
		name:       "nodes",
		file:       "nodos.csv",
		columns:    []string{"id", "nodo"},
		intColumns: []int{0},
	},
	Relations: {
		name:       "relations",
		file:       "vertices.csv",
		columns:    []string{"id", "vertice"},
		intColumns: []int{0},
	},
	Propositions: {
		name:       "propositions",
		file:       "proposiciones.csv",
		columns:    []string{"ent1", "rel", "ent2", "peso"},
		intColumns: []int{0, 1, 2},
		numColumns: []int{3},
	},
	NodeStyle: {
		name: "node-style",
		file: "propiedades_n.csv",
		columns: []string{
			"id", "color", "fillcolor", "fixedsize", "fontcolor", "fontsize",
			"fontname", "nojustify", "shape", "style", "label",
		},
		intColumns: []int{0},
	},
	RelationStyle: {
		name: "relation-style",
		file: "propiedades_v.csv",
		columns: []string{
			"id", "arrowhead", "arrowtail", "arrowsize", "color", "decorate",
			"dir", "fontsize", "fontcolor", "fontname", "label", "nojustify",
		},
		intColumns: []int{0},
	},
}

// Tables returns every table in storage order.
func Tables() []Table {
	return []Table{Nodes, Relations, Propositions, NodeStyle, RelationStyle}
}

// ParseTable resolves a table by its name ("nodes", "node-style", ...).
func ParseTable(name string) (Table, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t := Table(0); t < tableCount; t++ {
		if tableSpecs[t].name == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown table %q", name)
}

func (t Table) valid() bool {
	return t >= 0 && t < tableCount
}

// String returns the table name.
func (t Table) String() string {
	if !t.valid() {
		return fmt.Sprintf("Table(%d)", int(t))
	}
	return tableSpecs[t].name
}

// File returns the table's file name inside a workspace.
func (t Table) File() string {
	return tableSpecs[t].file
}

// Columns returns the table's header, in order.
func (t Table) Columns() []string {
	return append([]string(nil), tableSpecs[t].columns...)
}

// Column returns the index of a column, or -1.
func (t Table) Column(name string) int {
	for i, c := range tableSpecs[t].columns {
		if c == name {
			return i
		}
	}
	return -1
}

// IsRecord reports whether t is an (id, text) table.
func (t Table) IsRecord() bool {
	return t == Nodes || t == Relations
}

// IsStyle reports whether t is a style table.
func (t Table) IsStyle() bool {
	return t == NodeStyle || t == RelationStyle
}

// StyleTable returns the style table owned by a record table.
func (t Table) StyleTable() Table {
	if t == Relations {
		return RelationStyle
	}
	return NodeStyle
}

// TableFiles returns the file names of all tables.
func TableFiles() []string {
	files := make([]string, 0, tableCount)
	for _, t := range Tables() {
		files = append(files, t.File())
	}
	return files
}

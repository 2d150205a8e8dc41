// Package style holds the in-memory visual state of a graph: the graph-wide
// GraphStyle and the two StyleDefaults templates used to seed the style rows
// of newly created nodes and relations.
//
// Thread-safety: State is not synchronized. Callers mutate it only inside a
// store.Update callback, which serializes all writers.
package style

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/roach88/propmap/internal/textnorm"
)

// Sentinel values held by the id and label fields of a defaults template
// between registrations.
const (
	SentinelID    = "-1"
	SentinelLabel = ""
)

// Graph attribute keys accepted by Graph.Set.
const (
	AttrBackground    = "bgcolor"
	AttrDirection     = "rankdir"
	AttrWrapColumn    = "wrap"
	AttrJustification = "justify"
)

// Directions lists the accepted growth directions.
var Directions = []string{"TB", "BT", "LR", "RL"}

// Graph is the graph-wide style singleton.
type Graph struct {
	Background    string
	Direction     string
	WrapColumn    int
	Justification textnorm.Justification
}

// DefaultGraph returns the style of a fresh workspace.
func DefaultGraph() Graph {
	return Graph{
		Background:    "#111111",
		Direction:     "TB",
		WrapColumn:    25,
		Justification: textnorm.Center,
	}
}

// Justify applies the graph's wrap policy to a label.
func (g Graph) Justify(text string) string {
	return textnorm.Justify(text, g.WrapColumn, g.Justification)
}

// Set applies one graph attribute. It reports whether the wrap policy
// (wrap column or justification) changed, which requires renormalization.
func (g *Graph) Set(key, value string) (policyChanged bool, err error) {
	value = strings.TrimSpace(value)
	switch key {
	case AttrBackground:
		if value == "" {
			return false, fmt.Errorf("%s: empty value", key)
		}
		g.Background = value
	case AttrDirection:
		dir := strings.ToUpper(value)
		if !validDirection(dir) {
			return false, fmt.Errorf("%s: %q is not one of %v", key, value, Directions)
		}
		g.Direction = dir
	case AttrWrapColumn:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return false, fmt.Errorf("%s: %q is not a positive integer", key, value)
		}
		policyChanged = n != g.WrapColumn
		g.WrapColumn = n
	case AttrJustification:
		j, err := textnorm.ParseJustification(value)
		if err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
		policyChanged = j != g.Justification
		g.Justification = j
	default:
		return false, fmt.Errorf("unknown graph attribute %q", key)
	}
	return policyChanged, nil
}

func validDirection(dir string) bool {
	for _, d := range Directions {
		if d == dir {
			return true
		}
	}
	return false
}

// Defaults is a style-row template keyed by column name.
type Defaults map[string]string

// DefaultNodes returns the node template of a fresh workspace.
func DefaultNodes() Defaults {
	return Defaults{
		"id":        SentinelID,
		"color":     "#f1e5e0",
		"fillcolor": "#f1e5e0",
		"fixedsize": "false",
		"fontcolor": "#000000",
		"fontsize":  "9",
		"fontname":  "Sans",
		"nojustify": "true",
		"shape":     "circle",
		"style":     "filled",
		"label":     SentinelLabel,
	}
}

// DefaultRelations returns the relation template of a fresh workspace.
func DefaultRelations() Defaults {
	return Defaults{
		"id":        SentinelID,
		"arrowhead": "normal",
		"arrowtail": "normal",
		"arrowsize": "0.75",
		"color":     "#f1e5e0",
		"decorate":  "false",
		"dir":       "forward",
		"fontsize":  "9",
		"fontcolor": "#f1e5e0",
		"fontname":  "Sans",
		"label":     SentinelLabel,
		"nojustify": "true",
	}
}

// Clone returns an independent copy.
func (d Defaults) Clone() Defaults {
	return maps.Clone(d)
}

// Row lays the template out in column order, with id and label filled in.
// Columns absent from the template are left empty.
func (d Defaults) Row(columns []string, id, label string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case "id":
			row[i] = id
		case "label":
			row[i] = label
		default:
			row[i] = d[col]
		}
	}
	return row
}

// State is the complete in-memory style state of a workspace.
type State struct {
	Graph     Graph
	Nodes     Defaults
	Relations Defaults
}

// NewState returns a State holding the fixed defaults.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset restores the fixed defaults.
func (s *State) Reset() {
	s.Graph = DefaultGraph()
	s.Nodes = DefaultNodes()
	s.Relations = DefaultRelations()
}

// Clone returns a deep copy, used to back up the state before a risky load.
func (s *State) Clone() *State {
	return &State{
		Graph:     s.Graph,
		Nodes:     s.Nodes.Clone(),
		Relations: s.Relations.Clone(),
	}
}

// Restore overwrites s with the contents of other.
func (s *State) Restore(other *State) {
	c := other.Clone()
	*s = *c
}

// ResetSentinels puts the id and label fields of both templates back to
// their sentinel values after a registration.
func (s *State) ResetSentinels() {
	for _, d := range []Defaults{s.Nodes, s.Relations} {
		d["id"] = SentinelID
		d["label"] = SentinelLabel
	}
}

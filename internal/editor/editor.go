// Package editor applies user edits to stored elements: per-element style
// attributes, graph-wide attributes, in-place renames and deletions.
//
// Every input is validated before the store transaction mutates anything.
// Mutations of the in-memory style.State are registered with Tx.OnCommit, so
// a failed edit leaves both the tables and the state untouched.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/style"
	"github.com/roach88/propmap/internal/textnorm"
	"github.com/roach88/propmap/internal/validate"
)

// Weight pseudo-attributes accepted by SetElementAttributes for relations.
const (
	FieldWeight      = "weight"
	FieldWeightAlias = "peso"
)

var (
	// ErrRenameCollision is returned when a renamed label normalizes to the
	// text of a different record of the same table.
	ErrRenameCollision = errors.New("rename collides with an existing record")

	// ErrNoPropositions is returned by DeleteLast on an empty graph.
	ErrNoPropositions = errors.New("no propositions to delete")
)

// positiveFields must hold positive numbers.
var positiveFields = map[string]bool{
	"fontsize":  true,
	"arrowsize": true,
}

// Editor mutates existing graph elements.
type Editor struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Editor over s.
func New(s *store.Store, opts ...Option) *Editor {
	e := &Editor{store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetElementAttributes rewrites fields of the style row of one node or
// relation. Empty values are ignored. For relations, the weight
// pseudo-attribute rewrites the weight of every proposition using the
// relation.
func (e *Editor) SetElementAttributes(ctx context.Context, kind store.Table, id int, fields map[string]string) error {
	if !kind.IsRecord() {
		return &validate.Error{Field: "kind", Value: kind.String(), Reason: "must be nodes or relations"}
	}

	weight := ""
	attrs := make(map[string]string, len(fields))
	for field, value := range fields {
		value = clean(value)
		if value == "" {
			continue
		}
		if kind == store.Relations && (field == FieldWeight || field == FieldWeightAlias) {
			if err := validate.Positive(FieldWeight, value); err != nil {
				return err
			}
			weight = value
			continue
		}
		if err := checkStyleField(kind.StyleTable(), field, value); err != nil {
			return err
		}
		attrs[field] = value
	}

	styleTable := kind.StyleTable()
	err := e.store.Update(ctx, func(tx *store.Tx) error {
		if _, ok := tx.Record(kind, id); !ok {
			return fmt.Errorf("%w: %s %d", store.ErrNotFound, kind, id)
		}
		for _, field := range slices.Sorted(maps.Keys(attrs)) {
			if err := tx.UpdateField(styleTable, id, field, attrs[field]); err != nil {
				return err
			}
		}
		if weight != "" {
			n, err := tx.SetWeight(id, weight)
			if err != nil {
				return err
			}
			e.logger.Debug("relation weight rewritten", "relation", id, "propositions", n)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("edit %s %d: %w", kind, id, err)
	}
	return nil
}

// SetGraphAttributes restyles every node and relation with the non-empty
// field maps, records the same values in the defaults templates of st, and
// applies graph attributes to st.Graph. A change of wrap column or
// justification re-justifies every stored label.
func (e *Editor) SetGraphAttributes(ctx context.Context, st *style.State, nodeFields, relationFields, graphFields map[string]string) error {
	nodes, err := cleanStyleFields(store.NodeStyle, nodeFields)
	if err != nil {
		return err
	}
	relations, err := cleanStyleFields(store.RelationStyle, relationFields)
	if err != nil {
		return err
	}

	err = e.store.Update(ctx, func(tx *store.Tx) error {
		graph := st.Graph
		renormalize := false
		for _, key := range slices.Sorted(maps.Keys(graphFields)) {
			changed, err := graph.Set(key, graphFields[key])
			if err != nil {
				return &validate.Error{Field: key, Value: graphFields[key], Reason: err.Error()}
			}
			renormalize = renormalize || changed
		}

		if err := tx.BulkRestyle(store.NodeStyle, nodes); err != nil {
			return err
		}
		if err := tx.BulkRestyle(store.RelationStyle, relations); err != nil {
			return err
		}
		if renormalize {
			if err := tx.RenormalizeAll(graph.WrapColumn, graph.Justification); err != nil {
				return err
			}
		}

		tx.OnCommit(func() {
			maps.Copy(st.Nodes, nodes)
			maps.Copy(st.Relations, relations)
			st.Graph = graph
		})
		if renormalize {
			e.logger.Info("labels renormalized",
				"wrap", graph.WrapColumn, "justify", string(graph.Justification))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("edit graph: %w", err)
	}
	return nil
}

// RetargetProposition renames in place the source node, the relation and,
// when entity2 is not empty, the target node of the proposition at index
// (0-based). Ids are kept; style labels follow the new text.
func (e *Editor) RetargetProposition(ctx context.Context, st *style.State, index int, entity1, relation, entity2 string) (store.Proposition, error) {
	e1, err := validate.Label("entity1", entity1)
	if err != nil {
		return store.Proposition{}, err
	}
	rel, err := validate.Label("relation", relation)
	if err != nil {
		return store.Proposition{}, err
	}
	e2 := ""
	if clean(entity2) != "" {
		if e2, err = validate.Label("entity2", entity2); err != nil {
			return store.Proposition{}, err
		}
	}

	var p store.Proposition
	err = e.store.Update(ctx, func(tx *store.Tx) error {
		props := tx.Propositions()
		if index < 0 || index >= len(props) {
			return fmt.Errorf("%w: %d of %d", store.ErrIndexOutOfRange, index, len(props))
		}
		p = props[index]

		if e2 != "" && p.SourceID == p.TargetID {
			if textnorm.Normalize(e2) != textnorm.Normalize(e1) {
				return &validate.Error{Field: "entity2", Value: e2, Reason: "a self-loop must keep source and target equal"}
			}
			e2 = ""
		}

		if err := rename(tx, st, store.Nodes, p.SourceID, "entity1", e1); err != nil {
			return err
		}
		if err := rename(tx, st, store.Relations, p.RelationID, "relation", rel); err != nil {
			return err
		}
		if e2 != "" {
			return rename(tx, st, store.Nodes, p.TargetID, "entity2", e2)
		}
		return nil
	})
	if err != nil {
		return store.Proposition{}, fmt.Errorf("retarget proposition %d: %w", index, err)
	}

	e.logger.Debug("proposition retargeted", "index", index,
		"source", p.SourceID, "relation", p.RelationID, "target", p.TargetID)
	return p, nil
}

func rename(tx *store.Tx, st *style.State, t store.Table, id int, field, text string) error {
	if other, ok := tx.LookupByNormalizedText(t, text); ok && other != id {
		return fmt.Errorf("%w: %w", ErrRenameCollision,
			&validate.Error{Field: field, Value: text, Reason: fmt.Sprintf("already used by %s %d", t, other)})
	}
	return tx.Rename(t, id, st.Graph.Justify(text))
}

// DeleteProposition removes the proposition at index (0-based) and every
// node or relation left unreferenced.
func (e *Editor) DeleteProposition(ctx context.Context, index int) (store.Proposition, error) {
	var removed store.Proposition
	err := e.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		removed, err = tx.CascadeDelete(index)
		return err
	})
	if err != nil {
		return store.Proposition{}, fmt.Errorf("delete proposition %d: %w", index, err)
	}
	e.logger.Debug("proposition deleted", "index", index)
	return removed, nil
}

// DeleteLast removes the most recently added proposition.
func (e *Editor) DeleteLast(ctx context.Context) (store.Proposition, error) {
	var removed store.Proposition
	err := e.store.Update(ctx, func(tx *store.Tx) error {
		n := tx.Len(store.Propositions)
		if n == 0 {
			return ErrNoPropositions
		}
		var err error
		removed, err = tx.CascadeDelete(n - 1)
		return err
	})
	if err != nil {
		return store.Proposition{}, fmt.Errorf("delete last proposition: %w", err)
	}
	return removed, nil
}

func clean(value string) string {
	return strings.TrimSpace(textnorm.Sanitize(value))
}

func cleanStyleFields(t store.Table, fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for field, value := range fields {
		value = clean(value)
		if value == "" {
			continue
		}
		if err := checkStyleField(t, field, value); err != nil {
			return nil, err
		}
		out[field] = value
	}
	return out, nil
}

func checkStyleField(t store.Table, field, value string) error {
	switch {
	case field == "id" || field == "label":
		return &validate.Error{Field: field, Reason: "cannot be edited as an attribute"}
	case t.Column(field) < 0:
		return &validate.Error{Field: field, Reason: fmt.Sprintf("not an attribute of %s", t)}
	case positiveFields[field]:
		if err := validate.Positive(field, value); err != nil {
			return err
		}
	}

	check := style.CheckNodeFields
	if t == store.RelationStyle {
		check = style.CheckRelationFields
	}
	if err := check(map[string]string{field: value}); err != nil {
		return &validate.Error{Field: field, Value: value, Reason: "not an accepted value"}
	}
	return nil
}

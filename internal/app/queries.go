package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/style"
	"github.com/roach88/propmap/internal/textnorm"
)

// Element is a node or relation as shown to users, without markers.
type Element struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Registered is one proposition resolved to its elements.
type Registered struct {
	// Index is 1-based, in table order.
	Index    int        `json:"index"`
	Elements [3]Element `json:"elements"`
	Weight   string     `json:"weight"`
}

// ListIDs returns the first column of every row of t.
func (s *Session) ListIDs(ctx context.Context, t store.Table) ([]int, error) {
	var ids []int
	err := s.store.View(ctx, func(tx *store.Tx) error {
		ids = tx.IDs(t)
		return nil
	})
	return ids, err
}

// ListValues returns the texts of a Nodes or Relations table.
func (s *Session) ListValues(ctx context.Context, t store.Table) ([]string, error) {
	if !t.IsRecord() {
		return nil, fmt.Errorf("list values: %s has no text column", t)
	}
	var values []string
	err := s.store.View(ctx, func(tx *store.Tx) error {
		values = tx.Values(t)
		return nil
	})
	return values, err
}

// Rows returns every data row of t.
func (s *Session) Rows(ctx context.Context, t store.Table) ([]store.Row, error) {
	var rows []store.Row
	err := s.store.View(ctx, func(tx *store.Tx) error {
		rows = tx.Rows(t)
		return nil
	})
	return rows, err
}

// Attributes returns the style row of a node or relation. Relations also
// carry "peso", the weight of their first proposition.
func (s *Session) Attributes(ctx context.Context, kind store.Table, id int) (map[string]string, error) {
	var attrs map[string]string
	err := s.store.View(ctx, func(tx *store.Tx) error {
		if !kind.IsRecord() {
			return fmt.Errorf("%s has no elements", kind)
		}
		row, ok := tx.StyleRow(kind, id)
		if !ok {
			return fmt.Errorf("%w: %s %d", store.ErrNotFound, kind, id)
		}
		if kind == store.Relations {
			for _, p := range tx.Propositions() {
				if p.RelationID == id {
					row["peso"] = p.Weight
					break
				}
			}
		}
		attrs = row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	return attrs, nil
}

// RegisteredRelations lists every proposition with the texts of its source,
// relation and target.
func (s *Session) RegisteredRelations(ctx context.Context) ([]Registered, error) {
	var out []Registered
	err := s.store.View(ctx, func(tx *store.Tx) error {
		for i, p := range tx.Propositions() {
			reg := Registered{Index: i + 1, Weight: p.Weight}
			for j, ref := range []struct {
				t  store.Table
				id int
			}{{store.Nodes, p.SourceID}, {store.Relations, p.RelationID}, {store.Nodes, p.TargetID}} {
				rec, ok := tx.Record(ref.t, ref.id)
				if !ok {
					return &store.IntegrityError{Table: store.Propositions,
						Reason: fmt.Sprintf("row %d references missing %s %d", i, ref.t, ref.id)}
				}
				reg.Elements[j] = Element{ID: rec.ID, Text: plain(rec.Text)}
			}
			out = append(out, reg)
		}
		return nil
	})
	return out, err
}

// RelationsByVertex maps every relation id to the 1-based indexes of the
// propositions using it.
func (s *Session) RelationsByVertex(ctx context.Context) (map[int][]int, error) {
	out := make(map[int][]int)
	err := s.store.View(ctx, func(tx *store.Tx) error {
		for i, p := range tx.Propositions() {
			out[p.RelationID] = append(out[p.RelationID], i+1)
		}
		return nil
	})
	return out, err
}

// Notes returns the workspace notes.
func (s *Session) Notes(ctx context.Context) (string, error) {
	return s.projects.LoadNotes(ctx)
}

// Style returns a copy of the current style state.
func (s *Session) Style(ctx context.Context) (*style.State, error) {
	var st *style.State
	err := s.store.View(ctx, func(*store.Tx) error {
		st = s.state.Clone()
		return nil
	})
	return st, err
}

func plain(text string) string {
	return strings.Join(strings.Fields(textnorm.Strip(text)), " ")
}

// Package registrar turns one user-entered proposition into store mutations.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/style"
	"github.com/roach88/propmap/internal/textnorm"
	"github.com/roach88/propmap/internal/validate"
)

// Input is a proposition as entered by the user.
type Input struct {
	Entity1  string
	Relation string
	Entity2  string
	Weight   string
}

// Outcome is the result category of an ingest.
type Outcome int

const (
	// OutcomeAdded means the proposition was written.
	OutcomeAdded Outcome = iota + 1
	// OutcomeDuplicate means an identical proposition already existed and
	// nothing was written.
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes what an ingest did.
type Result struct {
	Outcome     Outcome
	Proposition store.Proposition
	// Index is the proposition's position; -1 for a duplicate.
	Index        int
	NewNodes     []int
	NewRelations []int
}

// errDuplicate aborts the store transaction so that entities created while
// resolving a duplicate proposition are rolled back with it.
var errDuplicate = errors.New("duplicate proposition")

// Registrar ingests propositions into a Store.
type Registrar struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registrar) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Registrar writing to s.
func New(s *store.Store, opts ...Option) *Registrar {
	r := &Registrar{store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ingest registers one proposition.
//
// Labels are sanitized and justified with st.Graph. Entities and the relation
// are resolved by normalized text, reusing existing ids. An existing relation
// may make the proposition a duplicate of an identical one, in which case
// nothing at all is written. New elements get style rows seeded from
// st.Nodes / st.Relations, whose id and label fields are then reset to their
// sentinels.
//
// st must not be accessed concurrently outside the store lock.
func (r *Registrar) Ingest(ctx context.Context, st *style.State, in Input) (Result, error) {
	e1, err := validate.Label("entity1", in.Entity1)
	if err != nil {
		return Result{}, err
	}
	rel, err := validate.Label("relation", in.Relation)
	if err != nil {
		return Result{}, err
	}
	e2, err := validate.Label("entity2", in.Entity2)
	if err != nil {
		return Result{}, err
	}
	weight, err := validate.Weight(in.Weight)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = r.store.Update(ctx, func(tx *store.Tx) error {
		res = Result{Index: -1}

		src, err := r.resolve(tx, st, store.Nodes, e1, &res.NewNodes)
		if err != nil {
			return err
		}
		tgt := src
		if textnorm.Normalize(e2) != textnorm.Normalize(e1) {
			if tgt, err = r.resolve(tx, st, store.Nodes, e2, &res.NewNodes); err != nil {
				return err
			}
		}
		relID, err := r.resolve(tx, st, store.Relations, rel, &res.NewRelations)
		if err != nil {
			return err
		}

		res.Proposition = store.Proposition{SourceID: src, RelationID: relID, TargetID: tgt, Weight: weight}
		if len(res.NewRelations) == 0 && tx.HasProposition(res.Proposition) {
			return errDuplicate
		}

		if res.Index, err = tx.InsertProposition(res.Proposition); err != nil {
			return err
		}
		if err := seedStyles(tx, st, store.Nodes, res.NewNodes); err != nil {
			return err
		}
		if err := seedStyles(tx, st, store.Relations, res.NewRelations); err != nil {
			return err
		}
		tx.OnCommit(st.ResetSentinels)
		return nil
	})

	if errors.Is(err, errDuplicate) {
		r.logger.Info("duplicate proposition rejected",
			"entity1", e1, "relation", rel, "entity2", e2, "weight", weight)
		return Result{Outcome: OutcomeDuplicate, Proposition: res.Proposition, Index: -1}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("ingest proposition: %w", err)
	}

	res.Outcome = OutcomeAdded
	r.logger.Debug("proposition registered",
		"index", res.Index,
		"source", res.Proposition.SourceID,
		"relation", res.Proposition.RelationID,
		"target", res.Proposition.TargetID,
		"new_nodes", len(res.NewNodes),
		"new_relations", len(res.NewRelations))
	return res, nil
}

// resolve returns the id of the record matching text, inserting a justified
// record if none matches. New ids are appended to created.
func (r *Registrar) resolve(tx *store.Tx, st *style.State, t store.Table, text string, created *[]int) (int, error) {
	if id, ok := tx.LookupByNormalizedText(t, text); ok {
		return id, nil
	}
	id, err := tx.InsertRecord(t, st.Graph.Justify(text))
	if err != nil {
		return 0, err
	}
	*created = append(*created, id)
	return id, nil
}

func seedStyles(tx *store.Tx, st *style.State, t store.Table, ids []int) error {
	defaults := st.Nodes
	if t == store.Relations {
		defaults = st.Relations
	}
	styleTable := t.StyleTable()
	for _, id := range ids {
		rec, ok := tx.Record(t, id)
		if !ok {
			return fmt.Errorf("%w: %s %d", store.ErrNotFound, t, id)
		}
		row := defaults.Row(styleTable.Columns(), strconv.Itoa(id), rec.Text)
		if err := tx.InsertStyle(styleTable, store.Row(row)); err != nil {
			return err
		}
	}
	return nil
}

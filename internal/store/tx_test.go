package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmap/internal/textnorm"
)

func update(t *testing.T, s *Store, fn func(tx *Tx)) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx *Tx) error {
		fn(tx)
		return nil
	}))
}

func view(t *testing.T, s *Store, fn func(tx *Tx)) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		fn(tx)
		return nil
	}))
}

func TestInsertRecord_AllocatesMaxPlusOne(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		assert.Equal(t, 0, tx.NextID(Nodes), "empty table starts at 0")
		id, err := tx.InsertRecord(Nodes, "a")
		require.NoError(t, err)
		assert.Equal(t, 0, id)
		id, err = tx.InsertRecord(Nodes, "b")
		require.NoError(t, err)
		assert.Equal(t, 1, id)

		id, err = tx.InsertRecord(Relations, "r")
		require.NoError(t, err)
		assert.Equal(t, 0, id, "relations have their own namespace")

		_, err = tx.InsertRecord(Propositions, "x")
		assert.Error(t, err)
	})
}

func TestLookupByNormalizedText_IgnoresMarkers(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		_, err := tx.InsertRecord(Nodes, `The quick brown\lfox jumps\l`)
		require.NoError(t, err)

		id, ok := tx.LookupByNormalizedText(Nodes, "The quick brown fox jumps")
		assert.True(t, ok)
		assert.Equal(t, 0, id)

		_, ok = tx.LookupByNormalizedText(Nodes, `The quick\nbrown fox jumps`)
		assert.True(t, ok)

		_, ok = tx.LookupByNormalizedText(Relations, "The quick brown fox jumps")
		assert.False(t, ok)
	})
}

func TestInsertProposition_RejectsDanglingIDs(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Update(context.Background(), func(tx *Tx) error {
		_, err := tx.InsertRecord(Nodes, "Cat")
		require.NoError(t, err)
		_, err = tx.InsertProposition(Proposition{SourceID: 0, RelationID: 0, TargetID: 0, Weight: "1"})
		return err
	})
	require.Error(t, err)
	assert.True(t, IsIntegrityError(err))

	view(t, s, func(tx *Tx) {
		assert.Equal(t, 0, tx.Len(Nodes), "failed update commits nothing")
	})
}

func TestCascadeDelete_RemovesOnlyOrphans(t *testing.T) {
	s, fsys := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "2")
		link(t, tx, "Cat", "eats", "Mouse", "1")
	})

	update(t, s, func(tx *Tx) {
		removed, err := tx.CascadeDelete(1)
		require.NoError(t, err)
		assert.Equal(t, Proposition{SourceID: 0, RelationID: 0, TargetID: 2, Weight: "1"}, removed)
	})

	view(t, s, func(tx *Tx) {
		assert.Equal(t, []string{"Cat", "Fish"}, tx.Values(Nodes))
		assert.Equal(t, []string{"eats"}, tx.Values(Relations))
		assert.Equal(t, []int{0, 1}, tx.IDs(NodeStyle))
		assert.Equal(t, []int{0}, tx.IDs(RelationStyle))
		require.NoError(t, tx.Verify())
	})
	assert.Equal(t, "id§nodo\r\n0§Cat\r\n1§Fish\r\n", readFile(t, fsys, "nodos.csv"))
}

func TestCascadeDelete_SelfLoopDeletedOnce(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Ouroboros", "eats", "Ouroboros", "1")
		link(t, tx, "Cat", "sees", "Fish", "1")
	})

	view(t, s, func(tx *Tx) {
		assert.Equal(t, []string{"Ouroboros", "Cat", "Fish"}, tx.Values(Nodes))
	})

	update(t, s, func(tx *Tx) {
		_, err := tx.CascadeDelete(0)
		require.NoError(t, err)
	})

	view(t, s, func(tx *Tx) {
		assert.Equal(t, []string{"Cat", "Fish"}, tx.Values(Nodes))
		assert.Equal(t, []string{"sees"}, tx.Values(Relations))
		assert.Equal(t, []int{1, 2}, tx.IDs(NodeStyle))
		require.NoError(t, tx.Verify())
	})
}

func TestCascadeDelete_SharedRelationSurvives(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		link(t, tx, "Dog", "eats", "Bone", "1")
		_, err := tx.CascadeDelete(0)
		require.NoError(t, err)
	})

	view(t, s, func(tx *Tx) {
		assert.Equal(t, []string{"Dog", "Bone"}, tx.Values(Nodes))
		assert.Equal(t, []string{"eats"}, tx.Values(Relations))
		require.NoError(t, tx.Verify())
	})
}

func TestCascadeDelete_IndexOutOfRange(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Update(context.Background(), func(tx *Tx) error {
		_, err := tx.CascadeDelete(0)
		return err
	})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestIDsNeverReusedWhileHigherIDExists(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "A", "r", "B", "1")
		link(t, tx, "C", "r", "D", "1")
		_, err := tx.CascadeDelete(0)
		require.NoError(t, err)
		id, err := tx.InsertRecord(Nodes, "E")
		require.NoError(t, err)
		assert.Equal(t, 4, id)
	})
}

func TestUpdateField(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		require.NoError(t, tx.UpdateField(NodeStyle, 1, "shape", "box"))

		attrs, ok := tx.StyleRow(Nodes, 1)
		require.True(t, ok)
		assert.Equal(t, "box", attrs["shape"])
		assert.Equal(t, "Fish", attrs["label"])

		assert.ErrorIs(t, tx.UpdateField(NodeStyle, 9, "shape", "box"), ErrNotFound)
		assert.ErrorIs(t, tx.UpdateField(NodeStyle, 1, "id", "5"), ErrUnknownField)
		assert.ErrorIs(t, tx.UpdateField(NodeStyle, 1, "wobble", "5"), ErrUnknownField)
		assert.ErrorIs(t, tx.UpdateField(Propositions, 0, "peso", "5"), ErrUnknownField)
	})
}

func TestRename_KeepsIDAndSyncsLabel(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		link(t, tx, "Cat", "likes", "Milk", "1")
		require.NoError(t, tx.Rename(Nodes, 0, "Tiger"))
	})

	view(t, s, func(tx *Tx) {
		rec, ok := tx.Record(Nodes, 0)
		require.True(t, ok)
		assert.Equal(t, "Tiger", rec.Text)
		attrs, _ := tx.StyleRow(Nodes, 0)
		assert.Equal(t, "Tiger", attrs["label"])
		for _, p := range tx.Propositions() {
			assert.Equal(t, 0, p.SourceID, "every proposition follows the rename")
		}
		require.NoError(t, tx.Verify())
	})
}

func TestSetWeight_RewritesEveryPropositionOfRelation(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		link(t, tx, "Dog", "eats", "Bone", "3")
		link(t, tx, "Dog", "likes", "Cat", "1")

		n, err := tx.SetWeight(0, "5")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		for _, bad := range []string{"heavy", "NaN", "Inf", "-Inf"} {
			_, err = tx.SetWeight(0, bad)
			assert.Error(t, err, bad)
		}
	})

	view(t, s, func(tx *Tx) {
		props := tx.Propositions()
		assert.Equal(t, "5", props[0].Weight)
		assert.Equal(t, "5", props[1].Weight)
		assert.Equal(t, "1", props[2].Weight)
	})
}

func TestBulkRestyle(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		require.NoError(t, tx.BulkRestyle(NodeStyle, map[string]string{"shape": "box", "color": "#ff0000"}))

		for _, id := range []int{0, 1} {
			attrs, _ := tx.StyleRow(NodeStyle, id)
			assert.Equal(t, "box", attrs["shape"])
			assert.Equal(t, "#ff0000", attrs["color"])
		}

		assert.ErrorIs(t, tx.BulkRestyle(NodeStyle, map[string]string{"label": "x"}), ErrUnknownField)
		assert.ErrorIs(t, tx.BulkRestyle(RelationStyle, map[string]string{"id": "x"}), ErrUnknownField)
		assert.ErrorIs(t, tx.BulkRestyle(RelationStyle, map[string]string{"shape": "box"}), ErrUnknownField)
	})
}

func TestRenormalizeAll_BothLabelPaths(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "The quick brown fox jumps", "jumps over the lazy dog", "Dog", "1")
		require.NoError(t, tx.RenormalizeAll(10, textnorm.Left))
	})

	view(t, s, func(tx *Tx) {
		node, _ := tx.Record(Nodes, 0)
		assert.Equal(t, `The quick brown\lfox jumps\l`, node.Text)
		nodeStyle, _ := tx.StyleRow(Nodes, 0)
		assert.Equal(t, node.Text, nodeStyle["label"])

		rel, _ := tx.Record(Relations, 0)
		assert.Equal(t, `jumps over\lthe lazy dog\l`, rel.Text)
		relStyle, _ := tx.StyleRow(Relations, 0)
		assert.Equal(t, rel.Text, relStyle["label"])

		short, _ := tx.Record(Nodes, 1)
		assert.Equal(t, `Dog\l`, short.Text)
		require.NoError(t, tx.Verify())
	})

	update(t, s, func(tx *Tx) {
		require.NoError(t, tx.RenormalizeAll(25, textnorm.Center))
	})
	view(t, s, func(tx *Tx) {
		assert.Equal(t, []string{"The quick brown fox jumps", "Dog"}, tx.Values(Nodes))
		require.NoError(t, tx.Verify())
	})
}

func TestSweepOrphans(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		link(t, tx, "Dog", "barks", "Moon", "1")
		// Drop the second proposition without cascading.
		td, err := tx.mutate(Propositions)
		require.NoError(t, err)
		td.rows = td.rows[:1]

		n, err := tx.SweepOrphans()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	view(t, s, func(tx *Tx) {
		assert.Equal(t, []string{"Cat", "Fish"}, tx.Values(Nodes))
		assert.Equal(t, []string{"eats"}, tx.Values(Relations))
		require.NoError(t, tx.Verify())
	})
}

func TestVerify_DetectsLabelDrift(t *testing.T) {
	s, _ := newTestStore(t)

	update(t, s, func(tx *Tx) {
		link(t, tx, "Cat", "eats", "Fish", "1")
		require.NoError(t, tx.UpdateField(Nodes, 0, "nodo", "Tiger"))

		err := tx.Verify()
		require.Error(t, err)
		assert.True(t, IsIntegrityError(err))
	})
}

func TestParseTable(t *testing.T) {
	for _, tbl := range Tables() {
		got, err := ParseTable(tbl.String())
		require.NoError(t, err)
		assert.Equal(t, tbl, got)
	}
	_, err := ParseTable("edges")
	assert.Error(t, err)
}

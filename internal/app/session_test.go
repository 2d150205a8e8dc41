package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmap/internal/collab"
	"github.com/roach88/propmap/internal/editor"
	"github.com/roach88/propmap/internal/executor"
	"github.com/roach88/propmap/internal/project"
	"github.com/roach88/propmap/internal/registrar"
	"github.com/roach88/propmap/internal/store"
	"github.com/roach88/propmap/internal/testutil"
	"github.com/roach88/propmap/internal/textnorm"
	"github.com/roach88/propmap/internal/validate"
)

type fixture struct {
	session  *Session
	store    *store.Store
	ws       hackpadfs.FS
	docs     hackpadfs.FS
	projects hackpadfs.FS
}

func setup(t *testing.T) *fixture {
	t.Helper()
	s, ws := testutil.NewStore(t)
	return newFixture(t, s, ws)
}

func newFixture(t *testing.T, s *store.Store, ws hackpadfs.FS) *fixture {
	t.Helper()
	docs := testutil.NewMemFS(t)
	projects := testutil.NewMemFS(t)
	sess := New(s,
		WithExecutor(executor.New(executor.WithIDGenerator(testutil.NewSequentialIDs("")))),
		WithExtractor(collab.NewTextExtractor(collab.WithExtractorFS(docs))),
		WithOutputFS(ws),
		WithProjectOptions(project.WithProjectFS(projects)),
	)
	return &fixture{session: sess, store: s, ws: ws, docs: docs, projects: projects}
}

// do submits one action and returns the results it published.
func (f *fixture) do(t *testing.T, submit func() (string, error)) []executor.Result {
	t.Helper()
	id, err := submit()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.session.Executor().Wait(ctx))

	var out []executor.Result
	f.session.Executor().Drain(func(r executor.Result) { out = append(out, r) })
	for _, r := range out {
		assert.Equal(t, id, r.TaskID)
	}
	return out
}

func (f *fixture) one(t *testing.T, submit func() (string, error)) executor.Result {
	t.Helper()
	results := f.do(t, submit)
	require.Len(t, results, 1)
	return results[0]
}

func (f *fixture) add(t *testing.T, e1, rel, e2, w string) executor.Result {
	t.Helper()
	return f.one(t, func() (string, error) {
		return f.session.SubmitProposition(registrar.Input{Entity1: e1, Relation: rel, Entity2: e2, Weight: w})
	})
}

func TestSubmitProposition_RendersGraph(t *testing.T) {
	f := setup(t)

	r := f.add(t, "Cat", "eats", "Fish", "2")
	require.NoError(t, r.Err)
	assert.Equal(t, executor.KindImage, r.Kind)
	assert.Equal(t, executor.AreaGraph, r.Area)
	assert.Equal(t, "resultados/graph.gv", r.Payload)
	assert.Contains(t, testutil.ReadFile(t, f.ws, r.Payload), `0 -> 1 [label=" eats" weight="2"`)

	r = f.add(t, " cat ", "eats", "FISH", "2")
	assert.Equal(t, executor.KindImage, r.Kind, "comparison keeps case")

	r = f.add(t, "Cat", "eats", "Fish", "2")
	assert.Equal(t, executor.KindStatus, r.Kind)
	assert.Equal(t, StatusDuplicate, r.Payload)
}

func TestSubmitProposition_ValidationFailure(t *testing.T) {
	f := setup(t)

	r := f.add(t, "Cat", "", "Fish", "1")
	assert.Equal(t, executor.KindError, r.Kind)
	assert.Equal(t, executor.AreaGraph, r.Area)
	require.Error(t, r.Err)
	assert.True(t, validate.IsError(r.Err))

	ids, err := f.session.ListIDs(context.Background(), store.Nodes)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestQueries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.add(t, "Cat", "eats", "Fish", "2")
	f.add(t, "Fish", "eats", "Worm", "3")
	f.add(t, "Cat", "sees", "Cat", "1")

	ids, err := f.session.ListIDs(ctx, store.Nodes)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)

	values, err := f.session.ListValues(ctx, store.Relations)
	require.NoError(t, err)
	assert.Equal(t, []string{"eats", "sees"}, values)

	_, err = f.session.ListValues(ctx, store.Propositions)
	assert.Error(t, err)

	rows, err := f.session.Rows(ctx, store.Propositions)
	require.NoError(t, err)
	assert.Equal(t, []store.Row{{"0", "0", "1", "2"}, {"1", "0", "2", "3"}, {"0", "1", "0", "1"}}, rows)

	attrs, err := f.session.Attributes(ctx, store.Relations, 0)
	require.NoError(t, err)
	assert.Equal(t, "2", attrs["peso"], "weight of the first proposition")
	assert.Equal(t, "eats", attrs["label"])

	attrs, err = f.session.Attributes(ctx, store.Nodes, 2)
	require.NoError(t, err)
	assert.Equal(t, "Worm", attrs["label"])
	assert.NotContains(t, attrs, "peso")

	_, err = f.session.Attributes(ctx, store.Nodes, 9)
	assert.ErrorIs(t, err, store.ErrNotFound)

	reg, err := f.session.RegisteredRelations(ctx)
	require.NoError(t, err)
	require.Len(t, reg, 3)
	assert.Equal(t, Registered{
		Index:    2,
		Elements: [3]Element{{ID: 1, Text: "Fish"}, {ID: 0, Text: "eats"}, {ID: 2, Text: "Worm"}},
		Weight:   "3",
	}, reg[1])

	byVertex, err := f.session.RelationsByVertex(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{0: {1, 2}, 1: {3}}, byVertex)
}

func TestRegisteredRelations_PlainText(t *testing.T) {
	f := setup(t)
	f.one(t, func() (string, error) {
		return f.session.EditGraph(nil, nil, map[string]string{"wrap": "5", "justify": "left"})
	})
	f.add(t, "Great white shark", "hunts", "Seal", "1")

	reg, err := f.session.RegisteredRelations(context.Background())
	require.NoError(t, err)
	require.Len(t, reg, 1)
	assert.Equal(t, "Great white shark", reg[0].Elements[0].Text)

	values, err := f.session.ListValues(context.Background(), store.Nodes)
	require.NoError(t, err)
	assert.Equal(t, `Great\lwhite\lshark\l`, values[0], "stored text keeps markers")
}

func TestEditElement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.add(t, "Cat", "eats", "Fish", "2")
	f.add(t, "Dog", "eats", "Bone", "2")

	r := f.one(t, func() (string, error) {
		return f.session.EditElement(store.Relations, 0, map[string]string{"peso": "5", "color": "#ff0000"})
	})
	require.NoError(t, r.Err)
	assert.Equal(t, executor.AreaRelations, r.Area)

	rows, err := f.session.Rows(ctx, store.Propositions)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, "5", row[3], "weight is shared by the relation")
	}

	r = f.one(t, func() (string, error) {
		return f.session.EditElement(store.Nodes, 1, map[string]string{"shape": "box"})
	})
	assert.Equal(t, executor.KindImage, r.Kind)
	assert.Equal(t, executor.AreaNodes, r.Area)

	attrs, err := f.session.Attributes(ctx, store.Nodes, 1)
	require.NoError(t, err)
	assert.Equal(t, "box", attrs["shape"])

	r = f.one(t, func() (string, error) {
		return f.session.EditElement(store.Nodes, 1, map[string]string{"fontsize": "0"})
	})
	assert.Equal(t, executor.KindError, r.Kind)
	assert.Equal(t, executor.AreaNodes, r.Area)
	assert.True(t, validate.IsError(r.Err))
}

func TestEditGraph_UpdatesStyle(t *testing.T) {
	f := setup(t)
	f.add(t, "Cat", "eats", "Fish", "1")

	r := f.one(t, func() (string, error) {
		return f.session.EditGraph(
			map[string]string{"shape": "box"},
			nil,
			map[string]string{"bgcolor": "#ffffff", "rankdir": "lr"})
	})
	require.NoError(t, r.Err)
	assert.Equal(t, executor.AreaGraph, r.Area)
	assert.Contains(t, testutil.ReadFile(t, f.ws, r.Payload), `graph [bgcolor="#ffffff" rankdir="LR"]`)

	st, err := f.session.Style(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", st.Graph.Background)
	assert.Equal(t, "box", st.Nodes["shape"])

	// The returned state is a copy.
	st.Nodes["shape"] = "circle"
	again, err := f.session.Style(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "box", again.Nodes["shape"])
}

func TestRetargetAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.add(t, "Cat", "eats", "Fish", "1")
	f.add(t, "Dog", "likes", "Bone", "1")

	r := f.one(t, func() (string, error) {
		return f.session.RetargetProposition(1, "Wolf", "hunts", "")
	})
	require.NoError(t, r.Err)
	assert.Equal(t, executor.AreaRelations, r.Area)

	reg, err := f.session.RegisteredRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, [3]Element{{ID: 2, Text: "Wolf"}, {ID: 1, Text: "hunts"}, {ID: 3, Text: "Bone"}}, reg[1].Elements)

	r = f.one(t, func() (string, error) {
		return f.session.RetargetProposition(1, "Cat", "hunts", "")
	})
	assert.ErrorIs(t, r.Err, editor.ErrRenameCollision)

	r = f.one(t, func() (string, error) { return f.session.DeleteProposition(0) })
	require.NoError(t, r.Err)
	assert.Equal(t, executor.AreaRelations, r.Area)

	values, err := f.session.ListValues(ctx, store.Nodes)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wolf", "Bone"}, values)

	r = f.one(t, f.session.DeleteLast)
	require.NoError(t, r.Err)
	assert.Equal(t, executor.AreaGraph, r.Area)

	r = f.one(t, f.session.DeleteLast)
	assert.ErrorIs(t, r.Err, editor.ErrNoPropositions)

	r = f.one(t, func() (string, error) { return f.session.DeleteProposition(3) })
	assert.ErrorIs(t, r.Err, store.ErrIndexOutOfRange)
}

func TestExtractText(t *testing.T) {
	f := setup(t)
	testutil.WriteFiles(t, f.docs, map[string]string{"docs/a.txt": "Cats eat fish.\r\n\r\n\r\nDogs bark.\r\n"})

	r := f.one(t, func() (string, error) { return f.session.ExtractText("docs/a.txt") })
	require.NoError(t, r.Err)
	assert.Equal(t, executor.KindText, r.Kind)
	assert.Equal(t, executor.AreaText, r.Area)
	assert.Equal(t, "Cats eat fish.\n\nDogs bark.", r.Payload)

	r = f.one(t, func() (string, error) { return f.session.ExtractText("docs/a.pdf") })
	assert.Equal(t, executor.AreaText, r.Area)
	assert.ErrorIs(t, r.Err, collab.ErrExtractFailed)
}

func TestExport(t *testing.T) {
	f := setup(t)

	r := f.one(t, func() (string, error) { return f.session.Export("") })
	assert.Equal(t, executor.KindStatus, r.Kind)
	assert.Equal(t, StatusEmptyExport, r.Payload)

	f.add(t, "Cat", "eats", "Fish", "1")
	r = f.one(t, func() (string, error) { return f.session.Export("gv") })
	require.NoError(t, r.Err)
	assert.Equal(t, executor.AreaProject, r.Area)
	assert.Equal(t, "diagram exported: resultados/graph.gv", r.Payload)

	// Off the host filesystem only DOT source can be written.
	r = f.one(t, func() (string, error) { return f.session.Export("png") })
	assert.Equal(t, executor.KindError, r.Kind)
}

func TestNotesAndReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.add(t, "Cat", "eats", "Fish", "1")

	r := f.one(t, func() (string, error) { return f.session.SaveNotes("to do: dogs") })
	assert.Equal(t, StatusNotesSaved, r.Payload)
	notes, err := f.session.Notes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "to do: dogs", notes)

	r = f.one(t, f.session.ResetAll)
	assert.Equal(t, StatusReset, r.Payload)

	for _, tbl := range store.Tables() {
		ids, err := f.session.ListIDs(ctx, tbl)
		require.NoError(t, err)
		assert.Empty(t, ids, tbl.String())
	}
	notes, err = f.session.Notes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
	_, err = hackpadfs.Stat(f.ws, project.OutputDir)
	assert.Error(t, err, "rendered output removed")
}

func TestSaveLoadProject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.add(t, "Cat", "eats", "Fish", "1")
	f.one(t, func() (string, error) {
		return f.session.EditGraph(nil, nil, map[string]string{"bgcolor": "#222222"})
	})

	r := f.one(t, func() (string, error) { return f.session.SaveProject("projects", "demo") })
	require.NoError(t, r.Err)
	assert.Equal(t, "project saved: projects/demo", r.Payload)

	f.one(t, f.session.ResetAll)
	f.add(t, "Dog", "likes", "Bone", "1")

	r = f.one(t, func() (string, error) { return f.session.LoadProject("projects/demo") })
	require.NoError(t, r.Err)
	assert.Equal(t, executor.KindImage, r.Kind)
	assert.Equal(t, executor.AreaProject, r.Area)
	assert.Contains(t, testutil.ReadFile(t, f.ws, r.Payload), `bgcolor="#222222"`)

	values, err := f.session.ListValues(ctx, store.Nodes)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat", "Fish"}, values)

	r = f.one(t, func() (string, error) { return f.session.LoadProject("projects/missing") })
	assert.Equal(t, executor.KindError, r.Kind)
	assert.Equal(t, executor.AreaProject, r.Area)
}

func TestStatePersistsAcrossSessions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.one(t, func() (string, error) {
		return f.session.EditGraph(nil, map[string]string{"color": "#00ff00"}, map[string]string{"wrap": "12"})
	})
	require.NoError(t, f.session.PersistState(ctx))
	require.NoError(t, f.session.Close(ctx))

	next := newFixture(t, f.store, f.ws)
	require.NoError(t, next.session.RestoreState(ctx))
	st, err := next.session.Style(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, st.Graph.WrapColumn)
	assert.Equal(t, "#00ff00", st.Relations["color"])
}

func TestClose_RefusesSubmissions(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.session.Close(context.Background()))

	_, err := f.session.SubmitProposition(registrar.Input{Entity1: "Cat", Relation: "eats", Entity2: "Fish"})
	require.Error(t, err)
	assert.True(t, executor.IsClosed(err))
}

func TestConcurrentChannelsKeepStoreConsistent(t *testing.T) {
	f := setup(t)
	testutil.WriteFiles(t, f.docs, map[string]string{"a.txt": "text"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			word := strings.Repeat("x", i+1)
			_, err := f.session.SubmitProposition(registrar.Input{Entity1: word, Relation: "r", Entity2: "hub"})
			assert.NoError(t, err)
			_, err = f.session.EditElement(store.Nodes, 0, map[string]string{"color": "#000000"})
			assert.NoError(t, err)
			_, err = f.session.ExtractText("a.txt")
			assert.NoError(t, err)
			_, err = f.session.SaveNotes(word)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.session.Executor().Wait(ctx))

	var results []executor.Result
	f.session.Executor().Drain(func(r executor.Result) { results = append(results, r) })
	assert.Len(t, results, 40)
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i-1].Seq, results[i].Seq)
	}

	require.NoError(t, f.store.View(ctx, func(tx *store.Tx) error {
		assert.Equal(t, 10, tx.Len(store.Propositions))
		return tx.Verify()
	}))
}

func TestWithLabelPolicy(t *testing.T) {
	s, ws := testutil.NewStore(t)
	sess := New(s,
		WithExecutor(executor.New(executor.WithIDGenerator(testutil.NewSequentialIDs("")))),
		WithOutputFS(ws),
		WithLabelPolicy(10, textnorm.Right))
	f := &fixture{session: sess, store: s, ws: ws}

	f.add(t, "The quick brown fox", "jumps", "Dog", "1")

	values, err := sess.ListValues(context.Background(), store.Nodes)
	require.NoError(t, err)
	assert.Equal(t, `The quick brown\rfox\r`, values[0])
}

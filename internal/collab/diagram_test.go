package collab

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmap/internal/registrar"
	"github.com/roach88/propmap/internal/style"
	"github.com/roach88/propmap/internal/testutil"
	"github.com/roach88/propmap/internal/textnorm"
)

func TestDotDiagrammer_GoldenDOT(t *testing.T) {
	s, _ := testutil.NewStore(t)
	st := style.NewState()
	_, err := registrar.New(s).Ingest(context.Background(), st,
		registrar.Input{Entity1: "Cat", Relation: "eats", Entity2: "Fish", Weight: "2"})
	require.NoError(t, err)

	out := testutil.NewMemFS(t)
	d := NewDotDiagrammer(s, st, WithOutputFS(out))

	p, err := d.Render(context.Background(), "gv", "resultados")
	require.NoError(t, err)
	assert.Equal(t, "resultados/graph.gv", p)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "dot_first_proposition", []byte(testutil.ReadFile(t, out, p)))
}

func TestDotDiagrammer_LabelsKeepEscapes(t *testing.T) {
	s, _ := testutil.NewStore(t)
	st := style.NewState()
	st.Graph.WrapColumn = 10
	st.Graph.Justification = textnorm.Left
	st.Graph.Direction = "LR"
	_, err := registrar.New(s).Ingest(context.Background(), st,
		registrar.Input{Entity1: `The "quick" brown fox`, Relation: "sees", Entity2: "Dog", Weight: "1"})
	require.NoError(t, err)

	out := testutil.NewMemFS(t)
	p, err := NewDotDiagrammer(s, st, WithOutputFS(out)).Render(context.Background(), "GV", "/out/")
	require.NoError(t, err)
	assert.Equal(t, "out/graph.gv", p)

	dot := testutil.ReadFile(t, out, p)
	assert.Contains(t, dot, `rankdir="LR"`)
	assert.Contains(t, dot, `label="The \"quick\"\lbrown fox\l"`)
	assert.Contains(t, dot, `0 -> 1 [label=" sees\l" weight="1"`)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{``, `""`},
		{`Cat`, `"Cat"`},
		{`The "quick"\lfox\l`, `"The \"quick\"\lfox\l"`},
		{`C:\`, `"C:\\"`},
		{`a\b`, `"a\\b"`},
		{`a\\`, `"a\\\\"`},
		{`say \"hi`, `"say \\\"hi"`},
		{`one\ntwo\rthree`, `"one\ntwo\rthree"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, quote(tt.in))
		})
	}
}

func TestDotDiagrammer_TrailingBackslashLabel(t *testing.T) {
	s, _ := testutil.NewStore(t)
	st := style.NewState()
	_, err := registrar.New(s).Ingest(context.Background(), st,
		registrar.Input{Entity1: `C:\`, Relation: "in", Entity2: "Dir", Weight: "1"})
	require.NoError(t, err)

	out := testutil.NewMemFS(t)
	p, err := NewDotDiagrammer(s, st, WithOutputFS(out)).Render(context.Background(), "gv", "out")
	require.NoError(t, err)

	dot := testutil.ReadFile(t, out, p)
	assert.Contains(t, dot, `label="C:\\"]`)
	assert.NotContains(t, dot, `label="C:\"]`)
}

func TestDotDiagrammer_Rejections(t *testing.T) {
	s, _ := testutil.NewStore(t)
	d := NewDotDiagrammer(s, style.NewState(), WithOutputFS(testutil.NewMemFS(t)))

	_, err := d.Render(context.Background(), "png; rm -rf", "out")
	require.Error(t, err)

	_, err = d.Render(context.Background(), "png", "out")
	require.Error(t, err, "conversion needs the host filesystem")
}

func TestDotDiagrammer_EmptyGraph(t *testing.T) {
	s, _ := testutil.NewStore(t)
	out := testutil.NewMemFS(t)

	p, err := NewDotDiagrammer(s, style.NewState(), WithOutputFS(out)).Render(context.Background(), "gv", "out")
	require.NoError(t, err)
	assert.Equal(t, "digraph propositions {\n\tgraph [bgcolor=\"#111111\" rankdir=\"TB\"]\n}\n", testutil.ReadFile(t, out, p))
}

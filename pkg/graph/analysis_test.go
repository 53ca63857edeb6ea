package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTriangles returns two disconnected triangles plus one isolated node.
func twoTriangles(t *testing.T) *Graph {
	t.Helper()
	g := New("triangles")
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "lonely"} {
		_, err := g.AddNode(k, KindDocument, nil)
		require.NoError(t, err)
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {0, 2}, {3, 4}, {4, 5}, {3, 5}} {
		_, err := g.AddEdge(e[0], e[1], 0.8)
		require.NoError(t, err)
	}
	return g
}

func TestStats(t *testing.T) {
	s := Stats(twoTriangles(t))
	assert.Equal(t, 7, s.Nodes)
	assert.Equal(t, 6, s.Edges)
	assert.Equal(t, 1, s.Isolated)
	assert.InDelta(t, 12.0/7.0, s.MeanDegree, 1e-12)
	assert.InDelta(t, 12.0/42.0, s.Density, 1e-12)
	assert.Equal(t, 0.8, s.MinWeight)
	assert.Equal(t, 0.8, s.MaxWeight)
	assert.InDelta(t, 0.8, s.MeanWeight, 1e-12)

	empty := Stats(New("empty"))
	assert.Zero(t, empty.Nodes)
	assert.Zero(t, empty.MeanDegree)
}

func TestAnalyze(t *testing.T) {
	g := twoTriangles(t)
	a, err := Analyze(g, DefaultAnalysisConfig())
	require.NoError(t, err)

	require.Len(t, a.PageRank, 7)
	var total float64
	for _, s := range a.PageRank {
		total += s
	}
	assert.InDelta(t, 1.0, total, 1e-3)
	assert.InDelta(t, a.PageRank[0], a.PageRank[4], 1e-4)
	assert.Greater(t, a.PageRank[0], a.PageRank[6])
	assert.Len(t, a.TopPageRank, 7)

	// Two triangles and the isolated node.
	assert.Equal(t, 3, a.Communities)
	assert.Equal(t, a.Community[0], a.Community[1])
	assert.Equal(t, a.Community[1], a.Community[2])
	assert.Equal(t, a.Community[3], a.Community[5])
	assert.NotEqual(t, a.Community[0], a.Community[3])
	assert.Equal(t, 0, a.Community[0])
	assert.Greater(t, a.Modularity, 0.0)

	a.Annotate(g)
	n, _ := g.Node(3)
	assert.Equal(t, int64(a.Community[3]), n.Attrs["community"])
	assert.Equal(t, a.PageRank[3], n.Attrs["pagerank"])
}

func TestAnalyzeWithoutEdges(t *testing.T) {
	g := New("sparse")
	for _, k := range []string{"a", "b"} {
		_, err := g.AddNode(k, KindDocument, nil)
		require.NoError(t, err)
	}
	a, err := Analyze(g, DefaultAnalysisConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, a.Communities)
	assert.Equal(t, []int{0, 1}, a.Community)

	a, err = Analyze(New("empty"), DefaultAnalysisConfig())
	require.NoError(t, err)
	assert.Nil(t, a.PageRank)
}

func TestAnalysisConfigValidate(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	cfg.Damping = 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultAnalysisConfig()
	cfg.Tolerance = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultAnalysisConfig()
	cfg.Resolution = -1
	assert.Error(t, cfg.Validate())
}

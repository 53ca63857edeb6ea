package graph

import (
	"context"
	"testing"

	"github.com/sanonone/shelfgraph/pkg/distance"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/knn"
	"github.com/sanonone/shelfgraph/pkg/sparse"
	"github.com/sanonone/shelfgraph/pkg/subjects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specs(keys ...string) []NodeSpec {
	out := make([]NodeSpec, len(keys))
	for i, k := range keys {
		out[i] = NodeSpec{Key: k, Attrs: map[string]any{"title": "Book " + k}}
	}
	return out
}

func TestGraphArena(t *testing.T) {
	g := New("test")
	a, err := g.AddNode("a", KindDocument, nil)
	require.NoError(t, err)
	b, err := g.AddNode("b", KindDocument, nil)
	require.NoError(t, err)

	_, err = g.AddNode("a", KindDocument, nil)
	assert.ErrorIs(t, err, ErrDuplicateNode)

	added, err := g.AddEdge(b, a, 0.5)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = g.AddEdge(a, b, 0.9)
	require.NoError(t, err)
	assert.False(t, added, "the pair is already connected")

	w, ok := g.Weight(a, b)
	assert.True(t, ok)
	assert.Equal(t, 0.5, w)

	_, err = g.AddEdge(a, a, 1)
	assert.ErrorIs(t, err, ErrSelfLoop)
	_, err = g.AddEdge(a, 7, 1)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	assert.Equal(t, []Edge{{Source: 0, Target: 1, Weight: 0.5}}, g.Edges())
	assert.Equal(t, 1, g.Degree(a))

	n, ok := g.NodeByKey("b")
	require.True(t, ok)
	assert.Equal(t, b, n.Index)
	assert.NotNil(t, n.Attrs)
}

func neighborFixture() *knn.Result {
	return &knn.Result{
		K: 2,
		Neighbors: [][]knn.Neighbor{
			{{Index: 0, Distance: 0}, {Index: 1, Distance: 0.1}, {Index: 2, Distance: 0.7}},
			{{Index: 1, Distance: 0}, {Index: 0, Distance: 0.1}, {Index: 2, Distance: 0.5}},
			{{Index: 2, Distance: 0}, {Index: 1, Distance: 0.5}, {Index: 0, Distance: 0.7}},
		},
	}
}

func TestBuildSimilarity(t *testing.T) {
	g, err := BuildSimilarity(specs("x", "y", "z"), neighborFixture(), SimilarityConfig{Threshold: 0.4})
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumNodes())
	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, 0, edges[0].Source)
	assert.Equal(t, 1, edges[0].Target)
	assert.InDelta(t, 0.9, edges[0].Weight, 1e-12)
	assert.Equal(t, 1, edges[1].Source)
	assert.Equal(t, 2, edges[1].Target)
	assert.InDelta(t, 0.5, edges[1].Weight, 1e-12)

	for _, e := range edges {
		assert.NotEqual(t, e.Source, e.Target)
		assert.GreaterOrEqual(t, e.Weight, 0.4)
		assert.LessOrEqual(t, e.Weight, 1.0)
	}

	node, ok := g.Node(0)
	require.True(t, ok)
	assert.Equal(t, "x", node.Key)
	assert.Equal(t, KindDocument, node.Kind)
	assert.Equal(t, "Book x", node.Attrs["title"])
}

func TestBuildSimilarityThresholds(t *testing.T) {
	g, err := BuildSimilarity(specs("x", "y", "z"), neighborFixture(), SimilarityConfig{Threshold: 1.1})
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumNodes())
	assert.Zero(t, g.NumEdges())

	g, err = BuildSimilarity(specs("x", "y", "z"), neighborFixture(), SimilarityConfig{Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumEdges())

	_, err = BuildSimilarity(specs("x", "y", "z"), neighborFixture(), SimilarityConfig{Threshold: -0.1})
	assert.True(t, errdefs.IsConfiguration(err))

	_, err = BuildSimilarity(specs("x", "y"), neighborFixture(), SimilarityConfig{Threshold: 0.2})
	assert.Error(t, err)

	_, err = BuildSimilarity(specs("x", "x", "z"), neighborFixture(), SimilarityConfig{Threshold: 0.2})
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestBuildSimilarityMetric(t *testing.T) {
	res := neighborFixture()
	res.Metric = distance.Cosine
	g, err := BuildSimilarity(specs("x", "y", "z"), res, SimilarityConfig{Threshold: 0.4})
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumEdges())

	res.Metric = distance.Euclidean
	_, err = BuildSimilarity(specs("x", "y", "z"), res, SimilarityConfig{Threshold: 0.4})
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "euclidean")
}

func TestJaccard(t *testing.T) {
	set := func(tags ...string) map[string]struct{} {
		s := make(map[string]struct{})
		for _, t := range tags {
			s[t] = struct{}{}
		}
		return s
	}
	testCases := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"identical", set("romance", "drama"), set("drama", "romance"), 1.0},
		{"disjoint", set("romance"), set("horror"), 0.0},
		{"both empty", set(), set(), 0.0},
		{"one empty", set("romance"), set(), 0.0},
		{"half", set("romance", "drama"), set("romance"), 0.5},
		{"third", set("a", "b"), set("b", "c"), 1.0 / 3.0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Jaccard(tc.a, tc.b), 1e-12)
			assert.InDelta(t, tc.want, Jaccard(tc.b, tc.a), 1e-12)
		})
	}
}

func TestBuildSubjects(t *testing.T) {
	tags := [][]string{{"romance", "drama"}, {"romance"}, {"horror"}}
	g, err := BuildSubjects(context.Background(), specs("a", "b", "c"), tags,
		SubjectConfig{Candidates: 2, MinJaccard: 0.3})
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 1, g.NumEdges())
	w, ok := g.Weight(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.5, w, 1e-12)
	assert.Zero(t, g.Degree(2))
}

func TestBuildSubjectsIdenticalAndEmptyTags(t *testing.T) {
	tags := [][]string{{"sea", "whales"}, {"whales", "sea"}, nil, {}}
	g, err := BuildSubjects(context.Background(), specs("a", "b", "c", "d"), tags,
		SubjectConfig{Candidates: 3, MinJaccard: 0.1, Algorithm: knn.Inverted})
	require.NoError(t, err)

	assert.Equal(t, []Edge{{Source: 0, Target: 1, Weight: 1.0}}, g.Edges())
}

func TestBuildSubjectsWithTagNodes(t *testing.T) {
	tags := [][]string{{"romance", "drama"}, {"romance"}, {"horror"}}
	g, err := BuildSubjects(context.Background(), specs("a", "b", "c"), tags,
		SubjectConfig{Candidates: 2, MinJaccard: 0.3, IncludeTagNodes: true})
	require.NoError(t, err)

	assert.Equal(t, 6, g.NumNodes())
	assert.Equal(t, 5, g.NumEdges())

	romance, ok := g.NodeByKey("tag:romance")
	require.True(t, ok)
	assert.Equal(t, KindTag, romance.Kind)
	assert.Equal(t, "romance", romance.Attrs["label"])
	assert.Equal(t, 2, g.Degree(romance.Index))

	horror, ok := g.NodeByKey("tag:horror")
	require.True(t, ok)
	w, ok := g.Weight(2, horror.Index)
	require.True(t, ok)
	assert.Equal(t, 1.0, w)
}

func TestBuildSubjectsConfiguration(t *testing.T) {
	tags := [][]string{{"a"}, {"b"}}
	_, err := BuildSubjects(context.Background(), specs("a", "b"), tags, SubjectConfig{Candidates: 1, MinJaccard: -0.5})
	assert.True(t, errdefs.IsConfiguration(err))

	_, err = BuildSubjects(context.Background(), specs("a", "b"), tags, SubjectConfig{Candidates: 0})
	assert.True(t, errdefs.IsConfiguration(err))

	_, err = BuildSubjects(context.Background(), specs("a"), [][]string{{"a"}}, SubjectConfig{Candidates: 1})
	assert.True(t, errdefs.IsConfiguration(err), "a single document has no neighbors")

	_, err = BuildSubjects(context.Background(), specs("a", "b"), tags[:1], SubjectConfig{Candidates: 1})
	assert.Error(t, err)
}

func TestBuildSubjectsReservedTagPrefix(t *testing.T) {
	tags := [][]string{{"romance"}, {"romance", "drama"}}

	_, err := BuildSubjects(context.Background(), specs("tag:romance", "b"), tags,
		SubjectConfig{Candidates: 1, IncludeTagNodes: true})
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "tag:romance")

	g, err := BuildSubjects(context.Background(), specs("tag:romance", "b"), tags,
		SubjectConfig{Candidates: 1})
	require.NoError(t, err, "the prefix is free when no tag nodes are added")
	assert.Equal(t, 2, g.NumNodes())
}

func TestBuildSubjectsFromIncidence(t *testing.T) {
	tags := [][]string{{"romance", "drama"}, {"romance"}, {"horror"}}
	incidence, vocab := subjects.BuildIncidence(tags)
	cfg := SubjectConfig{Candidates: 2, MinJaccard: 0.3, IncludeTagNodes: true}

	fromTags, err := BuildSubjects(context.Background(), specs("a", "b", "c"), tags, cfg)
	require.NoError(t, err)
	fromIncidence, err := BuildSubjectsFromIncidence(context.Background(), specs("a", "b", "c"), tags, incidence, vocab, cfg)
	require.NoError(t, err)
	assert.Equal(t, fromTags.NumNodes(), fromIncidence.NumNodes())
	assert.Equal(t, fromTags.Edges(), fromIncidence.Edges())

	other, _ := subjects.BuildIncidence(tags[:2])
	_, err = BuildSubjectsFromIncidence(context.Background(), specs("a", "b", "c"), tags, other, vocab, cfg)
	assert.Error(t, err, "incidence rows must match the documents")

	empty := &sparse.Matrix{Rows: 3, Cols: 0, Indptr: []int{0, 0, 0, 0}}
	_, err = BuildSubjectsFromIncidence(context.Background(), specs("a", "b", "c"), tags, empty, vocab, cfg)
	assert.Error(t, err, "incidence columns must match the vocabulary")
}

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sanonone/shelfgraph/pkg/distance"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/knn"
	"github.com/sanonone/shelfgraph/pkg/sparse"
	"github.com/sanonone/shelfgraph/pkg/subjects"
)

// SubjectConfig configures BuildSubjects.
type SubjectConfig struct {
	// Candidates is the number of tag-space neighbors examined per document.
	Candidates int `yaml:"candidates"`
	// MinJaccard is the minimum Jaccard index of an admitted edge.
	MinJaccard float64 `yaml:"min_jaccard"`
	// IncludeTagNodes adds one node per tag plus document-tag membership edges.
	IncludeTagNodes bool `yaml:"include_tag_nodes"`

	Metric    distance.DistanceMetric `yaml:"-"`
	Algorithm knn.Algorithm           `yaml:"-"`
	Workers   int                     `yaml:"-"`
}

// Validate checks the thresholds.
func (c SubjectConfig) Validate() error {
	if c.Candidates < 1 {
		return errdefs.Configf("subject graph", "candidates", "must be >= 1, got %d", c.Candidates)
	}
	if math.IsNaN(c.MinJaccard) || c.MinJaccard < 0 {
		return errdefs.Configf("subject graph", "min_jaccard", "must be >= 0, got %v", c.MinJaccard)
	}
	return nil
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// BuildSubjects builds the subject graph. Candidate pairs come from a neighbor
// search over the binary tag incidence matrix, which keeps the number of
// comparisons linear in the corpus size; the admitted weight is the Jaccard index
// of the two raw tag sets.
func BuildSubjects(ctx context.Context, specs []NodeSpec, tags [][]string, cfg SubjectConfig) (*Graph, error) {
	if len(tags) != len(specs) {
		return nil, fmt.Errorf("%d tag lists supplied for %d documents", len(tags), len(specs))
	}
	incidence, vocab := subjects.BuildIncidence(tags)
	return BuildSubjectsFromIncidence(ctx, specs, tags, incidence, vocab, cfg)
}

// BuildSubjectsFromIncidence is BuildSubjects over an incidence matrix the caller
// already built from tags with subjects.BuildIncidence.
func BuildSubjectsFromIncidence(ctx context.Context, specs []NodeSpec, tags [][]string, incidence *sparse.Matrix, vocab subjects.Vocabulary, cfg SubjectConfig) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(tags) != len(specs) {
		return nil, fmt.Errorf("%d tag lists supplied for %d documents", len(tags), len(specs))
	}
	if incidence.Rows != len(specs) || incidence.Cols != vocab.Len() {
		return nil, fmt.Errorf("incidence matrix is %dx%d for %d documents and %d tags",
			incidence.Rows, incidence.Cols, len(specs), vocab.Len())
	}
	if cfg.IncludeTagNodes {
		for _, spec := range specs {
			if strings.HasPrefix(spec.Key, TagKeyPrefix) {
				return nil, errdefs.Configf("subject graph", "key", "document key %q uses the %q prefix reserved for tag nodes", spec.Key, TagKeyPrefix)
			}
		}
	}

	res, err := knn.Search(ctx, incidence, knn.Config{
		K:         cfg.Candidates,
		Metric:    cfg.Metric,
		Algorithm: cfg.Algorithm,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("searching tag neighbors: %w", err)
	}

	sets := make([]map[string]struct{}, len(tags))
	for i, t := range tags {
		sets[i] = subjects.Set(t)
	}

	g := New("subjects")
	if err := addDocumentNodes(g, specs); err != nil {
		return nil, err
	}

	for i, list := range res.Neighbors {
		for _, nb := range list {
			j := nb.Index
			if j == i {
				continue
			}
			if _, seen := g.Weight(i, j); seen {
				continue
			}
			w := Jaccard(sets[i], sets[j])
			if w < cfg.MinJaccard {
				continue
			}
			if _, err := g.AddEdge(i, j, w); err != nil {
				return nil, fmt.Errorf("adding subject edge: %w", err)
			}
		}
	}
	docEdges := g.NumEdges()

	if cfg.IncludeTagNodes {
		if err := addTagNodes(g, incidence, vocab); err != nil {
			return nil, err
		}
	}

	slog.Debug("[Graph] subject graph built",
		"nodes", g.NumNodes(), "document_edges", docEdges, "tags", vocab.Len(), "tag_nodes", cfg.IncludeTagNodes)
	return g, nil
}

// addTagNodes appends one node per tag and a weight-1 edge from every document to
// each of its tags.
func addTagNodes(g *Graph, incidence *sparse.Matrix, vocab subjects.Vocabulary) error {
	offset := g.NumNodes()
	for _, tag := range vocab.Tags {
		if _, err := g.AddNode(TagKeyPrefix+tag, KindTag, map[string]any{"label": tag}); err != nil {
			return errdefs.Configf("subject graph", "key", "%v", err)
		}
	}
	for doc := 0; doc < incidence.Rows; doc++ {
		for _, col := range incidence.Row(doc).Indices {
			if _, err := g.AddEdge(doc, offset+col, 1.0); err != nil {
				return fmt.Errorf("adding membership edge: %w", err)
			}
		}
	}
	return nil
}

package graph

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/sanonone/shelfgraph/pkg/distance"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/knn"
)

// NodeSpec describes one document node: its key and descriptive attributes.
type NodeSpec struct {
	Key   string
	Attrs map[string]any
}

// SimilarityConfig configures BuildSimilarity.
type SimilarityConfig struct {
	// Threshold is the minimum similarity (1 - distance) of an admitted edge.
	// Values above 1 are accepted and admit nothing.
	Threshold float64 `yaml:"threshold"`
}

// Validate rejects negative or NaN thresholds.
func (c SimilarityConfig) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 {
		return errdefs.Configf("similarity graph", "threshold", "must be >= 0, got %v", c.Threshold)
	}
	return nil
}

// BuildSimilarity turns neighbor lists into the semantic similarity graph. Node i
// is specs[i]; for every neighbor pair (self entries skipped) an edge weighted by
// 1 - distance is added when that similarity reaches the threshold. A pair listed
// from both sides is added once. Only cosine neighbor lists are accepted; an
// unset metric counts as cosine.
func BuildSimilarity(specs []NodeSpec, res *knn.Result, cfg SimilarityConfig) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if res.Metric != "" && res.Metric != distance.Cosine {
		return nil, errdefs.Configf("similarity graph", "metric", "edge weights need cosine neighbors, got %q", res.Metric)
	}
	if res.Len() != len(specs) {
		return nil, fmt.Errorf("neighbor lists cover %d rows but %d documents were supplied", res.Len(), len(specs))
	}

	g := New("semantic")
	if err := addDocumentNodes(g, specs); err != nil {
		return nil, err
	}

	considered := 0
	for i, list := range res.Neighbors {
		for _, nb := range list {
			if nb.Index == i {
				continue
			}
			considered++
			sim := 1 - nb.Distance
			if sim < cfg.Threshold {
				continue
			}
			if _, err := g.AddEdge(i, nb.Index, sim); err != nil {
				return nil, fmt.Errorf("adding similarity edge: %w", err)
			}
		}
	}

	slog.Debug("[Graph] similarity graph built",
		"nodes", g.NumNodes(), "edges", g.NumEdges(), "pairs_considered", considered, "threshold", cfg.Threshold)
	return g, nil
}

func addDocumentNodes(g *Graph, specs []NodeSpec) error {
	for _, spec := range specs {
		attrs := make(map[string]any, len(spec.Attrs))
		for k, v := range spec.Attrs {
			attrs[k] = v
		}
		if _, err := g.AddNode(spec.Key, KindDocument, attrs); err != nil {
			return errdefs.Configf("graph", "key", "%v", err)
		}
	}
	return nil
}

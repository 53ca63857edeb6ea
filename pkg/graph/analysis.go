package graph

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// topRanked is the number of nodes listed in Summary.TopPageRank.
const topRanked = 10

// AnalysisConfig holds the PageRank and community detection parameters.
type AnalysisConfig struct {
	Damping    float64 `yaml:"damping"`
	Tolerance  float64 `yaml:"tolerance"`
	Resolution float64 `yaml:"resolution"`
	Seed       uint64  `yaml:"seed"`
}

// DefaultAnalysisConfig returns the usual PageRank damping and unit resolution.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Damping:    0.85,
		Tolerance:  1e-6,
		Resolution: 1.0,
		Seed:       1,
	}
}

func (c AnalysisConfig) Validate() error {
	if !(c.Damping > 0 && c.Damping < 1) {
		return errdefs.Configf("analysis", "damping", "must be in (0, 1), got %v", c.Damping)
	}
	if !(c.Tolerance > 0) {
		return errdefs.Configf("analysis", "tolerance", "must be > 0, got %v", c.Tolerance)
	}
	if !(c.Resolution > 0) {
		return errdefs.Configf("analysis", "resolution", "must be > 0, got %v", c.Resolution)
	}
	return nil
}

// Ranked is a node with its PageRank score.
type Ranked struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// Summary describes a graph for the run report.
type Summary struct {
	Name       string  `json:"name"`
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Isolated   int     `json:"isolated"`
	MeanDegree float64 `json:"mean_degree"`
	Density    float64 `json:"density"`
	MinWeight  float64 `json:"min_weight"`
	MaxWeight  float64 `json:"max_weight"`
	MeanWeight float64 `json:"mean_weight"`

	Communities int      `json:"communities,omitempty"`
	Modularity  float64  `json:"modularity,omitempty"`
	TopPageRank []Ranked `json:"top_pagerank,omitempty"`
}

// Analysis holds per-node scores alongside the summary.
type Analysis struct {
	Summary
	// PageRank and Community are indexed by node index.
	PageRank  []float64 `json:"-"`
	Community []int     `json:"-"`
}

// Stats computes the structural summary of g.
func Stats(g *Graph) Summary {
	s := Summary{Name: g.Name, Nodes: g.NumNodes(), Edges: g.NumEdges()}
	for i := 0; i < s.Nodes; i++ {
		if g.Degree(i) == 0 {
			s.Isolated++
		}
	}
	if s.Nodes > 0 {
		s.MeanDegree = 2 * float64(s.Edges) / float64(s.Nodes)
	}
	if s.Nodes > 1 {
		s.Density = 2 * float64(s.Edges) / (float64(s.Nodes) * float64(s.Nodes-1))
	}
	if s.Edges > 0 {
		s.MinWeight, s.MaxWeight = math.Inf(1), math.Inf(-1)
		var total float64
		for _, w := range g.edges {
			total += w
			s.MinWeight = math.Min(s.MinWeight, w)
			s.MaxWeight = math.Max(s.MaxWeight, w)
		}
		s.MeanWeight = total / float64(s.Edges)
	}
	return s
}

// Analyze computes weighted PageRank and Louvain communities. Edges with a
// non-positive weight carry no influence and are ignored.
func Analyze(g *Graph, cfg AnalysisConfig) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analysis{Summary: Stats(g)}
	n := g.NumNodes()
	if n == 0 {
		return a, nil
	}

	directed := simple.NewWeightedDirectedGraph(0, 0)
	undirected := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		directed.AddNode(simple.Node(i))
		undirected.AddNode(simple.Node(i))
	}
	var totalWeight float64
	for _, e := range g.Edges() {
		if e.Weight <= 0 {
			continue
		}
		u, v := simple.Node(e.Source), simple.Node(e.Target)
		directed.SetWeightedEdge(directed.NewWeightedEdge(u, v, e.Weight))
		directed.SetWeightedEdge(directed.NewWeightedEdge(v, u, e.Weight))
		undirected.SetWeightedEdge(undirected.NewWeightedEdge(u, v, e.Weight))
		totalWeight += e.Weight
	}

	ranks := network.PageRankSparse(directed, cfg.Damping, cfg.Tolerance)
	a.PageRank = make([]float64, n)
	for id, score := range ranks {
		a.PageRank[id] = score
	}
	a.TopPageRank = topByScore(g, a.PageRank, topRanked)

	a.Community = make([]int, n)
	if totalWeight == 0 {
		for i := range a.Community {
			a.Community[i] = i
		}
		a.Communities = n
		return a, nil
	}

	reduced := community.Modularize(undirected, cfg.Resolution, rand.NewPCG(cfg.Seed, cfg.Seed))
	groups := reduced.Communities()
	labelled := make([][]int, 0, len(groups))
	for _, grp := range groups {
		if len(grp) == 0 {
			continue
		}
		ids := make([]int, len(grp))
		for i, node := range grp {
			ids[i] = int(node.ID())
		}
		sort.Ints(ids)
		labelled = append(labelled, ids)
	}
	sort.Slice(labelled, func(i, j int) bool { return labelled[i][0] < labelled[j][0] })
	for label, ids := range labelled {
		for _, id := range ids {
			a.Community[id] = label
		}
	}
	a.Communities = len(labelled)
	a.Modularity = community.Q(undirected, groups, cfg.Resolution)
	return a, nil
}

// Annotate writes the "pagerank" and "community" attributes onto every node.
func (a *Analysis) Annotate(g *Graph) {
	for i := range a.PageRank {
		_ = g.SetAttr(i, "pagerank", a.PageRank[i])
		_ = g.SetAttr(i, "community", int64(a.Community[i]))
	}
}

func topByScore(g *Graph, scores []float64, limit int) []Ranked {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]Ranked, len(order))
	for i, idx := range order {
		out[i] = Ranked{Key: g.nodes[idx].Key, Score: scores[idx]}
	}
	return out
}

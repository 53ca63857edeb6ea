// Package graph builds the weighted undirected graphs produced by the pipeline.
//
// A Graph is an arena: nodes live in a slice and are referenced by their index,
// which for document nodes equals the row index of the document in the feature
// and incidence matrices. Edges are stored once per unordered node pair.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("self-loops are not allowed")
	// ErrDuplicateNode is returned when a node key is already present.
	ErrDuplicateNode = errors.New("duplicate node key")
	// ErrNodeNotFound is returned for an out-of-range node index.
	ErrNodeNotFound = errors.New("node not found")
)

// Kind distinguishes document nodes from tag nodes.
type Kind string

const (
	KindDocument Kind = "document"
	KindTag      Kind = "tag"
)

// TagKeyPrefix prefixes the key of every tag node.
const TagKeyPrefix = "tag:"

// Node is a graph vertex. Attrs holds the descriptive attributes supplied by the
// caller; they are flattened only when the graph is exported.
type Node struct {
	Index int
	Key   string
	Kind  Kind
	Attrs map[string]any
}

// Edge is an undirected weighted edge with Source < Target.
type Edge struct {
	Source int
	Target int
	Weight float64
}

type pair struct{ a, b int }

func orderedPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Graph is an undirected weighted graph without self-loops or parallel edges.
type Graph struct {
	Name  string
	nodes []Node
	byKey map[string]int
	edges map[pair]float64
	adj   [][]int
}

// New returns an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:  name,
		byKey: make(map[string]int),
		edges: make(map[pair]float64),
	}
}

// AddNode appends a node and returns its index.
func (g *Graph) AddNode(key string, kind Kind, attrs map[string]any) (int, error) {
	if _, exists := g.byKey[key]; exists {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateNode, key)
	}
	if attrs == nil {
		attrs = make(map[string]any)
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, Node{Index: idx, Key: key, Kind: kind, Attrs: attrs})
	g.adj = append(g.adj, nil)
	g.byKey[key] = idx
	return idx, nil
}

// AddEdge connects a and b. It reports false without error when the pair is
// already connected; the existing weight is kept.
func (g *Graph) AddEdge(a, b int, weight float64) (bool, error) {
	if a < 0 || a >= len(g.nodes) || b < 0 || b >= len(g.nodes) {
		return false, fmt.Errorf("%w: edge (%d, %d) in a graph of %d nodes", ErrNodeNotFound, a, b, len(g.nodes))
	}
	if a == b {
		return false, fmt.Errorf("%w: node %d", ErrSelfLoop, a)
	}
	p := orderedPair(a, b)
	if _, exists := g.edges[p]; exists {
		return false, nil
	}
	g.edges[p] = weight
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
	return true, nil
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Node returns the node at index i.
func (g *Graph) Node(i int) (Node, bool) {
	if i < 0 || i >= len(g.nodes) {
		return Node{}, false
	}
	return g.nodes[i], true
}

// NodeByKey returns the node with the given key.
func (g *Graph) NodeByKey(key string) (Node, bool) {
	i, ok := g.byKey[key]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns the nodes in index order. The slice must not be modified.
func (g *Graph) Nodes() []Node { return g.nodes }

// SetAttr sets one attribute on node i.
func (g *Graph) SetAttr(i int, name string, value any) error {
	if i < 0 || i >= len(g.nodes) {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, i)
	}
	g.nodes[i].Attrs[name] = value
	return nil
}

// Weight returns the weight of the edge between a and b.
func (g *Graph) Weight(a, b int) (float64, bool) {
	w, ok := g.edges[orderedPair(a, b)]
	return w, ok
}

// Degree returns the number of neighbors of node i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// Neighbors returns the neighbors of node i in insertion order.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Edges returns every edge sorted by (Source, Target).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for p, w := range g.edges {
		out = append(out, Edge{Source: p.a, Target: p.b, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Package knn finds, for every row of a sparse matrix, its k nearest other rows.
//
// The search is exact. Each neighbor list starts with the query row itself at
// distance 0 and is followed by the k closest other rows in ascending distance,
// with ties broken by ascending row index.
package knn

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/sanonone/shelfgraph/pkg/distance"
	"github.com/sanonone/shelfgraph/pkg/errdefs"
	"github.com/sanonone/shelfgraph/pkg/sparse"
	"golang.org/x/sync/errgroup"
)

const component = "knn"

// Algorithm selects how candidate distances are computed.
type Algorithm string

const (
	// Brute compares every pair of rows.
	Brute Algorithm = "brute"
	// Inverted accumulates dot products through the column posting lists, so only
	// rows sharing at least one column are ever touched. Cosine metric only.
	Inverted Algorithm = "inverted"
)

// ctxCheckInterval is how many rows a worker processes between context checks.
const ctxCheckInterval = 64

// Config holds the search parameters.
type Config struct {
	K         int                     `yaml:"k"`
	Metric    distance.DistanceMetric `yaml:"metric"`
	Algorithm Algorithm               `yaml:"algorithm"`
	// Workers is the number of goroutines. 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// Result holds one neighbor list per row. Neighbors[i][0] is always {i, 0}.
type Result struct {
	// K is the effective number of neighbors per row, after clamping.
	K         int
	Metric    distance.DistanceMetric
	Neighbors [][]Neighbor
}

// Len returns the number of rows searched.
func (r *Result) Len() int { return len(r.Neighbors) }

// Validate checks the parameters that do not depend on the matrix.
func (c Config) Validate() error {
	if c.K < 1 {
		return errdefs.Configf(component, "k", "must be >= 1, got %d", c.K)
	}
	metric, err := distance.ParseMetric(string(c.Metric))
	if err != nil {
		return errdefs.Configf(component, "metric", "%v", err)
	}
	switch c.Algorithm {
	case "", Brute:
	case Inverted:
		if metric != distance.Cosine {
			return errdefs.Configf(component, "algorithm", "inverted search requires the cosine metric, got %s", metric)
		}
	default:
		return errdefs.Configf(component, "algorithm", "unknown algorithm %q", c.Algorithm)
	}
	if c.Workers < 0 {
		return errdefs.Configf(component, "workers", "must be >= 0, got %d", c.Workers)
	}
	return nil
}

// Search computes the neighbor lists of every row of m.
//
// It fails with a configuration error when m has fewer than 2 rows or when k < 1.
// A k larger than N-1 is clamped to N-1 with a warning.
func Search(ctx context.Context, m *sparse.Matrix, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := m.Rows
	if n < 2 {
		return nil, errdefs.Configf(component, "", "neighbor search needs at least 2 rows, got %d", n)
	}
	k := cfg.K
	if k > n-1 {
		slog.Warn("[KNN] k exceeds the number of other rows, clamping", "k", cfg.K, "rows", n, "effective_k", n-1)
		k = n - 1
	}
	metric, _ := distance.ParseMetric(string(cfg.Metric))
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	var newScanner func() rowScanner
	switch cfg.Algorithm {
	case Inverted:
		s := newInvertedSearch(m)
		newScanner = s.scanner
	default:
		fn, err := distance.GetFunc(metric)
		if err != nil {
			return nil, fmt.Errorf("resolving metric: %w", err)
		}
		s := newBruteSearch(m, fn)
		newScanner = s.scanner
	}

	res := &Result{K: k, Metric: metric, Neighbors: make([][]Neighbor, n)}
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			scan := newScanner()
			top := newTopK(k)
			for i := start; i < end; i++ {
				if (i-start)%ctxCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				top.reset()
				scan(i, top)
				list := make([]Neighbor, 1, k+1)
				list[0] = Neighbor{Index: i, Distance: 0}
				// Each worker owns a disjoint range of rows.
				res.Neighbors[i] = top.appendSorted(list)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("[KNN] search complete", "rows", n, "k", k, "metric", metric, "algorithm", cfg.Algorithm, "workers", workers)
	return res, nil
}

// rowScanner offers every candidate neighbor of row i to top. Each worker gets its
// own scanner, so implementations may keep per-worker scratch space.
type rowScanner func(i int, top *topK)

type bruteSearch struct {
	m     *sparse.Matrix
	norms []float64
	fn    distance.Func
}

func newBruteSearch(m *sparse.Matrix, fn distance.Func) *bruteSearch {
	return &bruteSearch{m: m, norms: m.RowNorms(), fn: fn}
}

func (s *bruteSearch) scanner() rowScanner {
	return func(i int, top *topK) {
		row := s.m.Row(i)
		for j := 0; j < s.m.Rows; j++ {
			if j == i {
				continue
			}
			top.offer(Neighbor{Index: j, Distance: s.fn(row, s.m.Row(j), s.norms[i], s.norms[j])})
		}
	}
}

package knn

import (
	"github.com/sanonone/shelfgraph/pkg/distance"
	"github.com/sanonone/shelfgraph/pkg/sparse"
)

// invertedSearch walks the posting list of every column of the query row and
// accumulates partial dot products. Rows that share no column with the query have
// cosine similarity 0, so they all sit at distance exactly 1 and are only needed
// to fill the list, lowest index first.
type invertedSearch struct {
	m        *sparse.Matrix
	postings *sparse.Matrix // m transposed: column -> (row, value)
	norms    []float64
}

func newInvertedSearch(m *sparse.Matrix) *invertedSearch {
	return &invertedSearch{m: m, postings: m.Transpose(), norms: m.RowNorms()}
}

func (s *invertedSearch) scanner() rowScanner {
	n := s.m.Rows
	acc := make([]float64, n)
	stamp := make([]int, n) // stamp[j] == i+1 when row j was touched for query i
	touched := make([]int, 0, 256)

	return func(i int, top *topK) {
		mark := i + 1
		touched = touched[:0]
		row := s.m.Row(i)
		for p, c := range row.Indices {
			v := row.Data[p]
			posting := s.postings.Row(c)
			for q, j := range posting.Indices {
				if stamp[j] != mark {
					stamp[j] = mark
					acc[j] = 0
					touched = append(touched, j)
				}
				acc[j] += v * posting.Data[q]
			}
		}

		for _, j := range touched {
			if j == i {
				continue
			}
			sim := distance.SimilarityFromDot(acc[j], s.norms[i], s.norms[j])
			top.offer(Neighbor{Index: j, Distance: 1 - sim})
		}

		for j := 0; j < n; j++ {
			if j == i || stamp[j] == mark {
				continue
			}
			c := Neighbor{Index: j, Distance: 1}
			if !top.accepts(c) {
				// Later rows only have larger indices at the same distance.
				break
			}
			top.offer(c)
		}
	}
}

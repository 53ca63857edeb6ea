package knn

import (
	"container/heap"
	"sort"
)

// Neighbor is one entry of a neighbor list: a row index and its distance from the
// query row.
type Neighbor struct {
	Index    int
	Distance float64
}

// worse reports whether a ranks after b: larger distance first, then larger index.
func worse(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Index > b.Index
}

// maxHeap keeps the worst of the current best candidates at the top, so it can be
// replaced as soon as a closer neighbor shows up.
type maxHeap []Neighbor

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// topK selects the k best neighbors out of a stream of candidates.
type topK struct {
	k int
	h maxHeap
}

func newTopK(k int) *topK {
	t := &topK{k: k, h: make(maxHeap, 0, k)}
	heap.Init(&t.h)
	return t
}

func (t *topK) reset() { t.h = t.h[:0] }

func (t *topK) full() bool { return len(t.h) >= t.k }

// accepts reports whether c would enter the selection.
func (t *topK) accepts(c Neighbor) bool {
	return !t.full() || worse(t.h[0], c)
}

// offer adds c if it beats the current worst selected candidate.
func (t *topK) offer(c Neighbor) {
	if !t.full() {
		heap.Push(&t.h, c)
		return
	}
	if worse(t.h[0], c) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// appendSorted appends the selection to dst in ascending (distance, index) order.
func (t *topK) appendSorted(dst []Neighbor) []Neighbor {
	start := len(dst)
	dst = append(dst, t.h...)
	sel := dst[start:]
	sort.Slice(sel, func(i, j int) bool { return worse(sel[j], sel[i]) })
	return dst
}

package sparse

import (
	"fmt"
	"sort"
)

// Builder assembles a Matrix row by row. The column count may be decided only at
// Build time, which suits vocabularies that grow while rows are appended.
type Builder struct {
	indptr  []int
	indices []int
	data    []float64
}

// NewBuilder returns a builder with capacity hints for rows and stored values.
func NewBuilder(rowsHint, nnzHint int) *Builder {
	b := &Builder{
		indptr:  make([]int, 1, rowsHint+1),
		indices: make([]int, 0, nnzHint),
		data:    make([]float64, 0, nnzHint),
	}
	return b
}

type entry struct {
	col int
	val float64
}

// AppendRow appends one row. Columns need not be sorted; duplicate columns are
// summed and explicit zeros are dropped.
func (b *Builder) AppendRow(cols []int, vals []float64) {
	if len(cols) != len(vals) {
		panic(fmt.Sprintf("sparse: AppendRow with %d columns and %d values", len(cols), len(vals)))
	}
	entries := make([]entry, len(cols))
	for i := range cols {
		entries[i] = entry{col: cols[i], val: vals[i]}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].col < entries[j].col })

	for i := 0; i < len(entries); {
		col, sum := entries[i].col, 0.0
		for i < len(entries) && entries[i].col == col {
			sum += entries[i].val
			i++
		}
		if sum == 0 {
			continue
		}
		b.indices = append(b.indices, col)
		b.data = append(b.data, sum)
	}
	b.indptr = append(b.indptr, len(b.data))
}

// AppendEmptyRow appends an all-zero row.
func (b *Builder) AppendEmptyRow() {
	b.indptr = append(b.indptr, len(b.data))
}

// Rows returns the number of rows appended so far.
func (b *Builder) Rows() int { return len(b.indptr) - 1 }

// Build finalizes the matrix with the given column count.
func (b *Builder) Build(cols int) (*Matrix, error) {
	m := &Matrix{
		Rows:    b.Rows(),
		Cols:    cols,
		Indptr:  b.indptr,
		Indices: b.indices,
		Data:    b.data,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

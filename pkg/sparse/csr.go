// Package sparse provides the compressed sparse row (CSR) matrix used for both the
// TF-IDF feature matrix and the subject incidence matrix.
//
// Row i of a Matrix always corresponds to the i-th document of the input sequence.
// Column indices inside a row are strictly increasing, which lets two rows be
// compared with a single merge pass.
package sparse

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrMalformed is returned by Validate when the CSR arrays are inconsistent.
var ErrMalformed = errors.New("malformed csr matrix")

// Matrix is a CSR matrix. Row i spans Indices[Indptr[i]:Indptr[i+1]] and the
// matching slice of Data.
type Matrix struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float64
}

// Vector is a read-only view of one matrix row.
type Vector struct {
	Indices []int
	Data    []float64
}

// Empty returns a matrix with the given number of columns and no rows.
func Empty(cols int) *Matrix {
	return &Matrix{Cols: cols, Indptr: []int{0}}
}

// Shape returns (rows, cols).
func (m *Matrix) Shape() (int, int) { return m.Rows, m.Cols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.Data) }

// Row returns a view of row i. The returned slices alias the matrix storage.
func (m *Matrix) Row(i int) Vector {
	start, end := m.Indptr[i], m.Indptr[i+1]
	return Vector{Indices: m.Indices[start:end], Data: m.Data[start:end]}
}

// At returns the value stored at (i, j), or 0.
func (m *Matrix) At(i, j int) float64 {
	row := m.Row(i)
	k := sort.SearchInts(row.Indices, j)
	if k < len(row.Indices) && row.Indices[k] == j {
		return row.Data[k]
	}
	return 0
}

// RowNorms returns the L2 norm of every row.
func (m *Matrix) RowNorms() []float64 {
	norms := make([]float64, m.Rows)
	for i := 0; i < m.Rows; i++ {
		norms[i] = m.Row(i).Norm()
	}
	return norms
}

// NormalizeRows scales every non-zero row to unit L2 norm in place.
// All-zero rows are left untouched.
func (m *Matrix) NormalizeRows() {
	for i := 0; i < m.Rows; i++ {
		data := m.Data[m.Indptr[i]:m.Indptr[i+1]]
		norm := floats.Norm(data, 2)
		if norm == 0 {
			continue
		}
		floats.Scale(1/norm, data)
	}
}

// Transpose returns the transposed matrix (equivalently, the CSC form of m).
// Entries of each output row are ordered by ascending source row.
func (m *Matrix) Transpose() *Matrix {
	t := &Matrix{
		Rows:    m.Cols,
		Cols:    m.Rows,
		Indptr:  make([]int, m.Cols+1),
		Indices: make([]int, len(m.Indices)),
		Data:    make([]float64, len(m.Data)),
	}
	for _, c := range m.Indices {
		t.Indptr[c+1]++
	}
	for c := 0; c < m.Cols; c++ {
		t.Indptr[c+1] += t.Indptr[c]
	}
	next := make([]int, m.Cols)
	copy(next, t.Indptr[:m.Cols])
	for i := 0; i < m.Rows; i++ {
		for k := m.Indptr[i]; k < m.Indptr[i+1]; k++ {
			c := m.Indices[k]
			pos := next[c]
			t.Indices[pos] = i
			t.Data[pos] = m.Data[k]
			next[c]++
		}
	}
	return t
}

// Validate checks the structural invariants of the CSR arrays.
func (m *Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: negative shape (%d, %d)", ErrMalformed, m.Rows, m.Cols)
	}
	if len(m.Indptr) != m.Rows+1 {
		return fmt.Errorf("%w: indptr has %d entries, want %d", ErrMalformed, len(m.Indptr), m.Rows+1)
	}
	if len(m.Indices) != len(m.Data) {
		return fmt.Errorf("%w: %d indices for %d values", ErrMalformed, len(m.Indices), len(m.Data))
	}
	if m.Indptr[0] != 0 || m.Indptr[m.Rows] != len(m.Data) {
		return fmt.Errorf("%w: indptr bounds [%d, %d] do not cover %d values", ErrMalformed, m.Indptr[0], m.Indptr[m.Rows], len(m.Data))
	}
	for i := 0; i < m.Rows; i++ {
		start, end := m.Indptr[i], m.Indptr[i+1]
		if end < start {
			return fmt.Errorf("%w: row %d has decreasing indptr", ErrMalformed, i)
		}
		prev := -1
		for _, c := range m.Indices[start:end] {
			if c <= prev || c >= m.Cols {
				return fmt.Errorf("%w: row %d has invalid column %d", ErrMalformed, i, c)
			}
			prev = c
		}
	}
	return nil
}

// Norm returns the L2 norm of the vector.
func (v Vector) Norm() float64 {
	return floats.Norm(v.Data, 2)
}

// NNZ returns the number of stored entries.
func (v Vector) NNZ() int { return len(v.Data) }

// Dot returns the dot product of two rows using a merge over their sorted indices.
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Data[i] * b.Data[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// SquaredDistance returns the squared Euclidean distance between two rows.
func SquaredDistance(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) || j < len(b.Indices) {
		switch {
		case j >= len(b.Indices) || (i < len(a.Indices) && a.Indices[i] < b.Indices[j]):
			sum += a.Data[i] * a.Data[i]
			i++
		case i >= len(a.Indices) || b.Indices[j] < a.Indices[i]:
			sum += b.Data[j] * b.Data[j]
			j++
		default:
			d := a.Data[i] - b.Data[j]
			sum += d * d
			i++
			j++
		}
	}
	return sum
}

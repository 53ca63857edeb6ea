package sparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTest builds a matrix from dense rows, skipping zeros.
func buildTest(t *testing.T, cols int, rows [][]float64) *Matrix {
	t.Helper()
	b := NewBuilder(len(rows), 0)
	for _, row := range rows {
		var idx []int
		var val []float64
		for j, v := range row {
			if v != 0 {
				idx = append(idx, j)
				val = append(val, v)
			}
		}
		b.AppendRow(idx, val)
	}
	m, err := b.Build(cols)
	require.NoError(t, err)
	return m
}

func TestBuilderSortsAndMergesDuplicates(t *testing.T) {
	b := NewBuilder(2, 4)
	b.AppendRow([]int{3, 1, 3}, []float64{1, 2, 4})
	b.AppendEmptyRow()
	m, err := b.Build(5)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, []int{0, 2, 2}, m.Indptr)
	assert.Equal(t, []int{1, 3}, m.Indices)
	assert.Equal(t, []float64{2, 5}, m.Data)
	assert.Equal(t, 5.0, m.At(0, 3))
	assert.Equal(t, 0.0, m.At(1, 3))
}

func TestBuilderRejectsOutOfRangeColumn(t *testing.T) {
	b := NewBuilder(1, 1)
	b.AppendRow([]int{7}, []float64{1})
	_, err := b.Build(3)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEmptyMatrix(t *testing.T) {
	m := Empty(0)
	require.NoError(t, m.Validate())
	rows, cols := m.Shape()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 0, cols)
	assert.Empty(t, m.RowNorms())
}

func TestNormalizeRows(t *testing.T) {
	m := buildTest(t, 3, [][]float64{
		{3, 4, 0},
		{0, 0, 0},
		{0, 0, 2},
	})
	m.NormalizeRows()
	norms := m.RowNorms()
	assert.InDelta(t, 1.0, norms[0], 1e-12)
	assert.Equal(t, 0.0, norms[1])
	assert.InDelta(t, 1.0, norms[2], 1e-12)
	assert.InDelta(t, 0.6, m.At(0, 0), 1e-12)
}

func TestDotAndDistance(t *testing.T) {
	m := buildTest(t, 4, [][]float64{
		{1, 2, 0, 0},
		{0, 3, 0, 1},
		{0, 0, 0, 0},
	})
	assert.Equal(t, 6.0, Dot(m.Row(0), m.Row(1)))
	assert.Equal(t, 0.0, Dot(m.Row(0), m.Row(2)))
	// (1-0)^2 + (2-3)^2 + (0-1)^2
	assert.Equal(t, 3.0, SquaredDistance(m.Row(0), m.Row(1)))
	assert.Equal(t, 5.0, SquaredDistance(m.Row(0), m.Row(2)))
	assert.InDelta(t, math.Sqrt(10), m.Row(1).Norm(), 1e-12)
}

func TestTranspose(t *testing.T) {
	m := buildTest(t, 3, [][]float64{
		{1, 0, 2},
		{0, 3, 0},
		{4, 0, 5},
	})
	tr := m.Transpose()
	require.NoError(t, tr.Validate())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j), tr.At(j, i), "cell (%d,%d)", i, j)
		}
	}
	assert.Equal(t, []int{0, 2}, tr.Row(0).Indices)
}

func TestValidateDetectsUnsortedColumns(t *testing.T) {
	m := &Matrix{Rows: 1, Cols: 3, Indptr: []int{0, 2}, Indices: []int{2, 1}, Data: []float64{1, 1}}
	assert.ErrorIs(t, m.Validate(), ErrMalformed)
}

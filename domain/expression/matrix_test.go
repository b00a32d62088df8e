package expression

import (
	"errors"
	"math"
	"testing"

	"goviper/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix_Validation(t *testing.T) {
	tests := []struct {
		name    string
		genes   []string
		samples []string
		values  []float64
		wantErr error
	}{
		{"valid", []string{"a", "b"}, []string{"s1"}, []float64{1, 2}, nil},
		{"no samples", []string{"a"}, nil, nil, core.ErrNoSamples},
		{"no genes", nil, []string{"s1"}, nil, core.ErrInputShape},
		{"length mismatch", []string{"a", "b"}, []string{"s1"}, []float64{1}, core.ErrInputShape},
		{"duplicate gene", []string{"a", "a"}, []string{"s1"}, []float64{1, 2}, core.ErrDuplicateGene},
		{"nan value", []string{"a"}, []string{"s1"}, []float64{math.NaN()}, core.ErrInputShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatrix(tt.genes, tt.samples, tt.values)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotNil(t, m)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewMatrix_DuplicateGeneIsShapeError(t *testing.T) {
	_, err := NewMatrix([]string{"x", "x"}, []string{"s"}, []float64{0, 1})
	assert.True(t, core.IsStructuralError(err))
}

func TestMatrix_Accessors(t *testing.T) {
	values := []float64{
		1, 2, 3,
		4, 5, 6,
	}
	m, err := NewMatrix([]string{"g1", "g2"}, []string{"s1", "s2", "s3"}, values)
	require.NoError(t, err)

	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 6.0, m.At(1, 2))
	assert.Equal(t, []float64{2, 5}, m.Column(1))
	assert.Equal(t, []float64{4, 5, 6}, m.Row(1))
	assert.Equal(t, 1, m.GeneIndex("g2"))
	assert.Equal(t, -1, m.GeneIndex("missing"))
	assert.True(t, m.HasGene("g1"))

	// the caller's slice is copied
	values[0] = 100
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestMatrix_SubsetGenes(t *testing.T) {
	m, err := NewMatrix([]string{"a", "b", "c"}, []string{"s"}, []float64{1, 2, 3})
	require.NoError(t, err)

	sub, err := m.SubsetGenes(func(g string) bool { return g != "b" })
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, sub.Genes())
	assert.Equal(t, []float64{1, 3}, sub.Column(0))

	_, err = m.SubsetGenes(func(string) bool { return false })
	assert.True(t, errors.Is(err, core.ErrNoGeneOverlap))
}

func TestMatrix_SelectColumnsAllowsRepeats(t *testing.T) {
	m, err := NewMatrix([]string{"a", "b"}, []string{"s1", "s2"}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	sel := m.SelectColumns([]int{1, 1, 0})
	assert.Equal(t, []string{"s2", "s2", "s1"}, sel.Samples())
	assert.Equal(t, []float64{4, 4, 3}, sel.Row(1))

	single := m.SingleColumn(0)
	_, cols := single.Dims()
	assert.Equal(t, 1, cols)
	assert.Equal(t, []float64{1, 3}, single.Column(0))
}

func TestNewMatrixFromDense_ChecksNames(t *testing.T) {
	m, err := NewMatrix([]string{"a", "b"}, []string{"s1"}, []float64{1, 2})
	require.NoError(t, err)

	_, err = NewMatrixFromDense([]string{"a"}, []string{"s1"}, m.Dense())
	assert.True(t, errors.Is(err, core.ErrInputShape))

	copyOf, err := NewMatrixFromDense([]string{"x", "y"}, []string{"t"}, m.Dense())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, copyOf.Column(0))
}

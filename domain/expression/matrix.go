package expression

import (
	"math"

	"goviper/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Matrix is the canonical genes × samples signature matrix. Rows are genes
// with unique identifiers, columns are samples.
type Matrix struct {
	genes     []string
	samples   []string
	geneIndex map[string]int
	data      *mat.Dense
}

// NewMatrix builds a Matrix from row-major values. len(values) must equal
// len(genes)*len(samples).
func NewMatrix(genes, samples []string, values []float64) (*Matrix, error) {
	if len(samples) < 1 {
		return nil, core.ErrNoSamples
	}
	if len(genes) < 1 {
		return nil, core.NewInputShapeError("signature has no genes")
	}
	if len(values) != len(genes)*len(samples) {
		return nil, core.NewInputShapeError("expected %d values for %d genes × %d samples, got %d",
			len(genes)*len(samples), len(genes), len(samples), len(values))
	}

	index := make(map[string]int, len(genes))
	for i, g := range genes {
		if _, dup := index[g]; dup {
			return nil, core.ErrDuplicateGene
		}
		index[g] = i
	}

	data := make([]float64, len(values))
	copy(data, values)
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewInputShapeError("signature contains non-finite values")
		}
	}

	return &Matrix{
		genes:     append([]string(nil), genes...),
		samples:   append([]string(nil), samples...),
		geneIndex: index,
		data:      mat.NewDense(len(genes), len(samples), data),
	}, nil
}

// NewMatrixFromDense wraps an existing dense matrix. The dense matrix is
// copied so the caller keeps ownership of its argument.
func NewMatrixFromDense(genes, samples []string, dense mat.Matrix) (*Matrix, error) {
	r, c := dense.Dims()
	if r != len(genes) || c != len(samples) {
		return nil, core.NewInputShapeError("dense matrix is %d×%d, names are %d×%d", r, c, len(genes), len(samples))
	}
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values = append(values, dense.At(i, j))
		}
	}
	return NewMatrix(genes, samples, values)
}

// Genes returns the row identifiers.
func (m *Matrix) Genes() []string { return m.genes }

// Samples returns the column identifiers.
func (m *Matrix) Samples() []string { return m.samples }

// Dims returns (genes, samples).
func (m *Matrix) Dims() (int, int) { return len(m.genes), len(m.samples) }

// At returns the value for gene row i and sample column j.
func (m *Matrix) At(i, j int) float64 { return m.data.At(i, j) }

// Dense exposes the underlying matrix for read-only use.
func (m *Matrix) Dense() mat.Matrix { return m.data }

// GeneIndex returns the row position of gene, or -1.
func (m *Matrix) GeneIndex(gene string) int {
	if i, ok := m.geneIndex[gene]; ok {
		return i
	}
	return -1
}

// HasGene reports whether gene is a row of the matrix.
func (m *Matrix) HasGene(gene string) bool {
	_, ok := m.geneIndex[gene]
	return ok
}

// Column copies sample column j.
func (m *Matrix) Column(j int) []float64 {
	out := make([]float64, len(m.genes))
	mat.Col(out, j, m.data)
	return out
}

// Row copies gene row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, len(m.samples))
	mat.Row(out, i, m.data)
	return out
}

// SubsetGenes returns a new Matrix restricted to the rows for which keep
// returns true, preserving row order.
func (m *Matrix) SubsetGenes(keep func(gene string) bool) (*Matrix, error) {
	var genes []string
	var values []float64
	for i, g := range m.genes {
		if !keep(g) {
			continue
		}
		genes = append(genes, g)
		values = append(values, m.Row(i)...)
	}
	if len(genes) == 0 {
		return nil, core.ErrNoGeneOverlap
	}
	return NewMatrix(genes, m.samples, values)
}

// SelectColumns returns a new Matrix with columns picked by position,
// allowing repeats. Sample names repeat along with their columns.
func (m *Matrix) SelectColumns(cols []int) *Matrix {
	samples := make([]string, len(cols))
	data := mat.NewDense(len(m.genes), len(cols), nil)
	for k, j := range cols {
		samples[k] = m.samples[j]
		for i := range m.genes {
			data.Set(i, k, m.data.At(i, j))
		}
	}
	return &Matrix{
		genes:     m.genes,
		samples:   samples,
		geneIndex: m.geneIndex,
		data:      data,
	}
}

// SingleColumn returns column j as a one-sample Matrix.
func (m *Matrix) SingleColumn(j int) *Matrix {
	return m.SelectColumns([]int{j})
}

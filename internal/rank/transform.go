package rank

import (
	"math"
	"sort"

	"goviper/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Transformed holds the paired quantile transforms of a genes × samples
// matrix. TwoTail keeps direction, OneTail keeps only magnitude. Both are on
// the inverse-normal scale.
type Transformed struct {
	TwoTail *mat.Dense
	OneTail *mat.Dense
}

// Dims returns (genes, samples).
func (t *Transformed) Dims() (int, int) { return t.TwoTail.Dims() }

// Ranks assigns 1-based ranks with ties sharing their average rank.
func Ranks(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return []float64{}
	}

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, val := range values {
		pairs[i] = pair{value: val, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}
		avgRank := float64(i+1) + float64(j-i-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}
		i = j
	}
	return ranks
}

// TransformColumn computes the two-tail and one-tail transforms of a single
// column. A constant column has no rank information and is rejected.
func TransformColumn(values []float64) (twoTail, oneTail []float64, err error) {
	n := len(values)
	if isConstant(values) {
		return nil, nil, core.NewDegenerateError("rank transform", "constant column")
	}

	ranks := Ranks(values)
	twoTail = make([]float64, n)
	oneTail = make([]float64, n)

	maxOne := 0.0
	for i, r := range ranks {
		q := r / float64(n+1)
		twoTail[i] = q
		oneTail[i] = math.Abs(q-0.5) * 2
		if oneTail[i] > maxOne {
			maxOne = oneTail[i]
		}
	}

	// keeps the one-tail argument strictly inside (0, 1)
	shift := (1 - maxOne) / 2
	for i := range ranks {
		twoTail[i] = distuv.UnitNormal.Quantile(twoTail[i])
		oneTail[i] = distuv.UnitNormal.Quantile(oneTail[i] + shift)
	}
	return twoTail, oneTail, nil
}

// Transform applies TransformColumn to every column of m.
func Transform(m mat.Matrix) (*Transformed, error) {
	rows, cols := m.Dims()
	if rows < 2 || cols < 1 {
		return nil, core.NewInputShapeError("rank transform needs at least 2 genes and 1 sample, got %d×%d", rows, cols)
	}
	out := &Transformed{
		TwoTail: mat.NewDense(rows, cols, nil),
		OneTail: mat.NewDense(rows, cols, nil),
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		two, one, err := TransformColumn(col)
		if err != nil {
			return nil, core.NewConstantColumnError(j)
		}
		out.TwoTail.SetCol(j, two)
		out.OneTail.SetCol(j, one)
	}
	return out, nil
}

// FilterRows selects rows of m by position. Positions may repeat and appear
// in any order.
func FilterRows(m mat.Matrix, pos []int) *mat.Dense {
	_, cols := m.Dims()
	if len(pos) == 0 || cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(pos), cols, nil)
	for k, p := range pos {
		for j := 0; j < cols; j++ {
			out.Set(k, j, m.At(p, j))
		}
	}
	return out
}

func isConstant(values []float64) bool {
	if len(values) < 2 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Column returns sample column j as a one-column Transformed.
func (t *Transformed) Column(j int) *Transformed {
	rows, _ := t.TwoTail.Dims()
	two := make([]float64, rows)
	one := make([]float64, rows)
	mat.Col(two, j, t.TwoTail)
	mat.Col(one, j, t.OneTail)
	return &Transformed{
		TwoTail: mat.NewDense(rows, 1, two),
		OneTail: mat.NewDense(rows, 1, one),
	}
}

package rank

import (
	"errors"
	"math"
	"testing"

	"goviper/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestRanks_TiesShareAverage verifies mid-rank tie handling
func TestRanks_TiesShareAverage(t *testing.T) {
	got := Ranks([]float64{10, 20, 20, 5, 30})
	want := []float64{2, 3.5, 3.5, 1, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestTransformColumn_KnownValues checks both transforms against their formulas
func TestTransformColumn_KnownValues(t *testing.T) {
	values := []float64{3, 1, 2, 4}
	two, one, err := TransformColumn(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := 4.0
	ranks := []float64{3, 1, 2, 4}
	maxOne := math.Abs(4/(n+1)-0.5) * 2
	for i, r := range ranks {
		q := r / (n + 1)
		wantTwo := distuv.UnitNormal.Quantile(q)
		wantOne := distuv.UnitNormal.Quantile(math.Abs(q-0.5)*2 + (1-maxOne)/2)
		if math.Abs(two[i]-wantTwo) > 1e-12 {
			t.Errorf("two_tail[%d] = %v, want %v", i, two[i], wantTwo)
		}
		if math.Abs(one[i]-wantOne) > 1e-12 {
			t.Errorf("one_tail[%d] = %v, want %v", i, one[i], wantOne)
		}
	}
}

// TestTransformColumn_Symmetry verifies direction preservation of two_tail
// and sign-invariance of one_tail
func TestTransformColumn_Symmetry(t *testing.T) {
	values := []float64{-2, -1, 0.5, 1, 3, 7}
	neg := make([]float64, len(values))
	for i, v := range values {
		neg[i] = -v
	}

	two, one, err := TransformColumn(values)
	if err != nil {
		t.Fatal(err)
	}
	twoNeg, oneNeg, err := TransformColumn(neg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range values {
		if math.Abs(two[i]+twoNeg[i]) > 1e-12 {
			t.Errorf("two_tail not antisymmetric at %d: %v vs %v", i, two[i], twoNeg[i])
		}
		if math.Abs(one[i]-oneNeg[i]) > 1e-12 {
			t.Errorf("one_tail not symmetric at %d: %v vs %v", i, one[i], oneNeg[i])
		}
	}
}

// TestTransformColumn_FiniteUnderTies verifies the boundary correction
func TestTransformColumn_FiniteUnderTies(t *testing.T) {
	_, one, err := TransformColumn([]float64{1, 1, 1, 2, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range one {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("one_tail[%d] not finite: %v", i, v)
		}
	}
}

// TestTransform_RejectsConstantColumn verifies degenerate input is reported
func TestTransform_RejectsConstantColumn(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})
	_, err := Transform(m)
	if err == nil {
		t.Fatal("expected error for constant column")
	}
	if !errors.Is(err, core.ErrConstantColumn) {
		t.Errorf("expected ErrConstantColumn, got %v", err)
	}
}

// TestFilterRows_RepeatsAndOrder verifies position-based row selection
func TestFilterRows_RepeatsAndOrder(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	got := FilterRows(m, []int{2, 0, 2})
	want := mat.NewDense(3, 2, []float64{
		5, 6,
		1, 2,
		5, 6,
	})
	if !mat.Equal(got, want) {
		t.Errorf("FilterRows mismatch:\n%v", mat.Formatted(got))
	}
}

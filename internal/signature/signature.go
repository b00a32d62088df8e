package signature

import (
	"fmt"
	"math"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/internal/rank"

	"github.com/montanaflynn/stats"
)

// madConstant makes the MAD a consistent estimator of the normal sd.
const madConstant = 1.4826

// Apply transforms an expression matrix into a signature matrix. Gene-wise
// methods (scale, mad, rank) operate across samples for each gene; ttest
// compares each sample against all the others.
func Apply(m *expression.Matrix, method activity.SignatureMethod) (*expression.Matrix, error) {
	switch method {
	case "", activity.SignatureNone:
		return m, nil
	case activity.SignatureScale:
		return byGene(m, 2, scaleRow)
	case activity.SignatureMAD:
		return byGene(m, 2, madRow)
	case activity.SignatureRank:
		return byGene(m, 1, func(row []float64) ([]float64, error) { return rank.Ranks(row), nil })
	case activity.SignatureTTest:
		return pairedDifference(m)
	default:
		return nil, fmt.Errorf("unknown signature method %q", method)
	}
}

func byGene(m *expression.Matrix, minSamples int, fn func(row []float64) ([]float64, error)) (*expression.Matrix, error) {
	nGenes, nSamples := m.Dims()
	if nSamples < minSamples {
		return nil, core.NewInputShapeError("method needs at least %d samples, got %d", minSamples, nSamples)
	}
	values := make([]float64, 0, nGenes*nSamples)
	for i := 0; i < nGenes; i++ {
		row, err := fn(m.Row(i))
		if err != nil {
			return nil, fmt.Errorf("gene %s: %w", m.Genes()[i], err)
		}
		values = append(values, row...)
	}
	return expression.NewMatrix(m.Genes(), m.Samples(), values)
}

// scaleRow centres on the mean and divides by the sample sd. A constant gene
// carries no signal and maps to zeros.
func scaleRow(row []float64) ([]float64, error) {
	mean, err := stats.Mean(row)
	if err != nil {
		return nil, err
	}
	sd, err := stats.StandardDeviationSample(row)
	if err != nil {
		return nil, err
	}
	return standardize(row, mean, sd), nil
}

// madRow centres on the median and divides by the scaled MAD.
func madRow(row []float64) ([]float64, error) {
	median, err := stats.Median(row)
	if err != nil {
		return nil, err
	}
	mad, err := stats.MedianAbsoluteDeviation(row)
	if err != nil {
		return nil, err
	}
	return standardize(row, median, mad*madConstant), nil
}

func standardize(row []float64, center, spread float64) []float64 {
	out := make([]float64, len(row))
	if spread == 0 || math.IsNaN(spread) {
		return out
	}
	for i, v := range row {
		out[i] = (v - center) / spread
	}
	return out
}

// pairedDifference computes, for each sample i and gene g, the one-sample t
// statistic of x[g,i] − x[g,j] over all other samples j.
func pairedDifference(m *expression.Matrix) (*expression.Matrix, error) {
	nGenes, nSamples := m.Dims()
	if nSamples < 3 {
		return nil, core.NewInputShapeError("ttest signature needs at least 3 samples, got %d", nSamples)
	}
	values := make([]float64, nGenes*nSamples)
	diffs := make([]float64, nSamples-1)
	for g := 0; g < nGenes; g++ {
		row := m.Row(g)
		for i := 0; i < nSamples; i++ {
			k := 0
			for j := 0; j < nSamples; j++ {
				if j == i {
					continue
				}
				diffs[k] = row[i] - row[j]
				k++
			}
			t, err := OneSampleT(diffs)
			if err != nil {
				return nil, err
			}
			values[g*nSamples+i] = t
		}
	}
	return expression.NewMatrix(m.Genes(), m.Samples(), values)
}

// OneSampleT returns mean / (sd / sqrt(n)); zero spread gives 0.
func OneSampleT(x []float64) (float64, error) {
	mean, err := stats.Mean(x)
	if err != nil {
		return 0, err
	}
	sd, err := stats.StandardDeviationSample(x)
	if err != nil {
		return 0, err
	}
	if sd == 0 || math.IsNaN(sd) {
		return 0, nil
	}
	return mean / (sd / math.Sqrt(float64(len(x)))), nil
}

// WelchT returns the Welch two-sample t statistic of a versus b. Groups of a
// single sample contribute zero variance; zero total spread gives 0.
func WelchT(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, core.NewInputShapeError("welch t needs two non-empty groups")
	}
	meanA, err := stats.Mean(a)
	if err != nil {
		return 0, err
	}
	meanB, err := stats.Mean(b)
	if err != nil {
		return 0, err
	}
	se := groupVariance(a)/float64(len(a)) + groupVariance(b)/float64(len(b))
	if se <= 0 {
		return 0, nil
	}
	return (meanA - meanB) / math.Sqrt(se), nil
}

func groupVariance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	v, err := stats.SampleVariance(x)
	if err != nil {
		return 0
	}
	return v
}

// Contrast builds a single-column signature of Welch t statistics comparing
// the columns in groupA against those in groupB.
func Contrast(m *expression.Matrix, groupA, groupB []int, name string) (*expression.Matrix, error) {
	nGenes, nSamples := m.Dims()
	for _, j := range append(append([]int(nil), groupA...), groupB...) {
		if j < 0 || j >= nSamples {
			return nil, core.NewInputShapeError("sample index %d out of range", j)
		}
	}
	values := make([]float64, nGenes)
	for g := 0; g < nGenes; g++ {
		row := m.Row(g)
		t, err := WelchT(pick(row, groupA), pick(row, groupB))
		if err != nil {
			return nil, err
		}
		values[g] = t
	}
	return expression.NewMatrix(m.Genes(), []string{name}, values)
}

func pick(row []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, j := range idx {
		out[k] = row[j]
	}
	return out
}

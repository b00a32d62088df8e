package signature

import (
	"errors"
	"math"
	"testing"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *expression.Matrix {
	t.Helper()
	m, err := expression.NewMatrix(
		[]string{"g1", "g2", "g3"},
		[]string{"s1", "s2", "s3", "s4"},
		[]float64{
			1, 2, 3, 4,
			10, 10, 10, 10,
			-1, 5, 2, 8,
		})
	require.NoError(t, err)
	return m
}

func TestApply_NoneIsIdentity(t *testing.T) {
	m := fixture(t)
	out, err := Apply(m, activity.SignatureNone)
	require.NoError(t, err)
	assert.Same(t, m, out)

	out, err = Apply(m, "")
	require.NoError(t, err)
	assert.Same(t, m, out)
}

func TestApply_ScaleStandardizesGenes(t *testing.T) {
	out, err := Apply(fixture(t), activity.SignatureScale)
	require.NoError(t, err)

	row := out.Row(0)
	// 1..4 has mean 2.5 and sample sd sqrt(5/3)
	sd := math.Sqrt(5.0 / 3.0)
	assert.InDelta(t, -1.5/sd, row[0], 1e-12)
	assert.InDelta(t, 1.5/sd, row[3], 1e-12)

	assert.Equal(t, []float64{0, 0, 0, 0}, out.Row(1), "constant gene maps to zeros")
}

func TestApply_MADUsesMedianCentre(t *testing.T) {
	out, err := Apply(fixture(t), activity.SignatureMAD)
	require.NoError(t, err)

	// median 2.5, MAD 1 for 1..4
	row := out.Row(0)
	assert.InDelta(t, -1.5/madConstant, row[0], 1e-12)
	assert.InDelta(t, 0.5/madConstant, row[2], 1e-12)
}

func TestApply_RankWithinGene(t *testing.T) {
	out, err := Apply(fixture(t), activity.SignatureRank)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2, 4}, out.Row(2))
	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, out.Row(1))
}

func TestApply_TTestSignsFollowDeviation(t *testing.T) {
	out, err := Apply(fixture(t), activity.SignatureTTest)
	require.NoError(t, err)

	row := out.Row(0)
	assert.Less(t, row[0], 0.0)
	assert.Greater(t, row[3], 0.0)
	assert.InDelta(t, -row[0], row[3], 1e-12, "symmetric values give mirrored statistics")
	assert.Equal(t, []float64{0, 0, 0, 0}, out.Row(1))
}

func TestApply_TTestNeedsThreeSamples(t *testing.T) {
	m, err := expression.NewMatrix([]string{"g"}, []string{"a", "b"}, []float64{1, 2})
	require.NoError(t, err)

	_, err = Apply(m, activity.SignatureTTest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInputShape))
}

func TestApply_UnknownMethod(t *testing.T) {
	_, err := Apply(fixture(t), activity.SignatureMethod("zscore"))
	assert.Error(t, err)
}

func TestWelchT(t *testing.T) {
	tStat, err := WelchT([]float64{5, 6, 7}, []float64{1, 2, 3})
	require.NoError(t, err)
	// means 6 and 2, both variances 1, se = sqrt(2/3)
	assert.InDelta(t, 4/math.Sqrt(2.0/3.0), tStat, 1e-12)

	zero, err := WelchT([]float64{1, 1}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)

	_, err = WelchT(nil, []float64{1})
	assert.Error(t, err)
}

func TestContrast_SingleColumn(t *testing.T) {
	c, err := Contrast(fixture(t), []int{2, 3}, []int{0, 1}, "treated")
	require.NoError(t, err)

	genes, samples := c.Dims()
	assert.Equal(t, 3, genes)
	assert.Equal(t, 1, samples)
	assert.Equal(t, []string{"treated"}, c.Samples())
	assert.Greater(t, c.At(0, 0), 0.0)
	assert.Equal(t, 0.0, c.At(1, 0))

	_, err = Contrast(fixture(t), []int{9}, []int{0}, "bad")
	assert.True(t, errors.Is(err, core.ErrInputShape))
}

package regulon

import (
	"errors"
	"math"
	"testing"

	"goviper/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRegulator(t *testing.T, name string, targets []string, mode, lik []float64) *Regulator {
	t.Helper()
	r, err := NewRegulator(name, targets, mode, lik)
	require.NoError(t, err)
	return r
}

func TestNewRegulator_Validation(t *testing.T) {
	tests := []struct {
		name    string
		targets []string
		mode    []float64
		lik     []float64
		wantErr bool
	}{
		{"valid", []string{"g1", "g2"}, []float64{1, -0.5}, []float64{0.2, 1}, false},
		{"nil likelihood imputed", []string{"g1"}, []float64{1}, nil, false},
		{"mode length mismatch", []string{"g1", "g2"}, []float64{1}, nil, true},
		{"likelihood length mismatch", []string{"g1"}, []float64{1}, []float64{1, 1}, true},
		{"mode out of range", []string{"g1"}, []float64{1.5}, nil, true},
		{"negative likelihood", []string{"g1"}, []float64{1}, []float64{-0.1}, true},
		{"nan mode", []string{"g1"}, []float64{math.NaN()}, nil, true},
		{"duplicate target", []string{"g1", "g1"}, []float64{1, 1}, nil, true},
		{"empty target", []string{""}, []float64{1}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegulator("TF", tt.targets, tt.mode, tt.lik)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrInvalidRegulon))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewRegulatorFromMaps_RejectsMismatchedKeys(t *testing.T) {
	_, err := NewRegulatorFromMaps("TF",
		map[string]float64{"g1": 1, "g2": -1},
		map[string]float64{"g1": 1, "g3": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidRegulon))

	r, err := NewRegulatorFromMaps("TF", map[string]float64{"b": 1, "a": -1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Targets())
	l, ok := r.Likelihood("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, l)
}

func TestRegulator_WeightsAndScale(t *testing.T) {
	r := mustRegulator(t, "TF", []string{"g1", "g2", "g3"}, []float64{1, 1, -1}, []float64{2, 1, 0.5})

	assert.Equal(t, []float64{1, 0.5, 0.25}, r.Weights())
	assert.InDelta(t, math.Sqrt(1+0.25+0.0625), r.Scale(), 1e-12)
	assert.Equal(t, 3.0, r.EffectiveSize(false))
	assert.InDelta(t, 1.75, r.EffectiveSize(true), 1e-12)
}

func TestRegulator_ReverseFlipsModes(t *testing.T) {
	r := mustRegulator(t, "TF", []string{"g1", "g2"}, []float64{1, -0.3}, nil)
	rev := r.Reverse()

	assert.Equal(t, []float64{-1, 0.3}, rev.Modes())
	assert.Equal(t, []float64{1, -0.3}, r.Modes(), "original must be unchanged")
}

func TestNetwork_DuplicateNames(t *testing.T) {
	a := mustRegulator(t, "A", []string{"g1"}, []float64{1}, nil)
	b := mustRegulator(t, "A", []string{"g2"}, []float64{1}, nil)

	_, err := NewNetwork(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidRegulon))
}

func TestNetwork_FilterDropsTargetsAndSmallRegulators(t *testing.T) {
	a := mustRegulator(t, "A", []string{"g1", "g2", "g3", "x1"}, []float64{1, 1, 1, 1}, nil)
	b := mustRegulator(t, "B", []string{"g1", "x2"}, []float64{1, 1}, nil)
	c := mustRegulator(t, "C", []string{"x3"}, []float64{1}, nil)
	net, err := NewNetwork(a, b, c)
	require.NoError(t, err)

	universe := map[string]bool{"g1": true, "g2": true, "g3": true}
	filtered, report := net.Filter(func(g string) bool { return universe[g] }, 2, false)

	assert.Equal(t, []string{"A"}, filtered.Names())
	fa, _ := filtered.Get("A")
	assert.Equal(t, []string{"g1", "g2", "g3"}, fa.Targets())
	assert.Equal(t, []string{"B"}, report.DroppedBySize)
	assert.Equal(t, []string{"C"}, report.DroppedNoWeight)
	assert.Equal(t, 3, report.DroppedTargets)

	// original untouched
	oa, _ := net.Get("A")
	assert.Equal(t, 4, oa.Size())
	assert.Equal(t, 3, net.Len())
}

func TestNetwork_FilterAdaptiveSize(t *testing.T) {
	r := mustRegulator(t, "A", []string{"g1", "g2", "g3", "g4"}, []float64{1, 1, 1, 1}, []float64{1, 0.1, 0.1, 0.1})
	net, err := NewNetwork(r)
	require.NoError(t, err)
	all := func(string) bool { return true }

	raw, _ := net.Filter(all, 3, false)
	assert.Equal(t, 1, raw.Len())

	adaptive, report := net.Filter(all, 3, true)
	assert.Equal(t, 0, adaptive.Len())
	assert.Equal(t, []string{"A"}, report.DroppedBySize)
}

func TestNetwork_FilterToEmptyIsValid(t *testing.T) {
	targets := make([]string, 10)
	modes := make([]float64, 10)
	for i := range targets {
		targets[i] = "g" + string(rune('a'+i))
		modes[i] = 1
	}
	net, err := NewNetwork(mustRegulator(t, "A", targets, modes, nil))
	require.NoError(t, err)

	filtered, _ := net.Filter(func(string) bool { return true }, 25, false)
	assert.Equal(t, 0, filtered.Len())
}

func TestNetwork_WeightSharedTargets(t *testing.T) {
	a := mustRegulator(t, "A", []string{"g1", "g2"}, []float64{1, 1}, nil)
	b := mustRegulator(t, "B", []string{"g2", "g3"}, []float64{1, 1}, nil)
	net, err := NewNetwork(a, b)
	require.NoError(t, err)

	weighted := net.WeightSharedTargets(1)
	wa, _ := weighted.Get("A")
	assert.Equal(t, []float64{1, 0.5}, wa.Likelihoods())
	wb, _ := weighted.Get("B")
	assert.Equal(t, []float64{0.5, 1}, wb.Likelihoods())

	assert.Same(t, net, net.WeightSharedTargets(0))
}

func TestNetwork_ReplaceKeepsOrder(t *testing.T) {
	a := mustRegulator(t, "A", []string{"g1"}, []float64{1}, nil)
	b := mustRegulator(t, "B", []string{"g2"}, []float64{1}, nil)
	net, err := NewNetwork(a, b)
	require.NoError(t, err)

	b2 := b.ScaleLikelihood(func(string) float64 { return 0.5 })
	replaced := net.Replace(map[string]*Regulator{"B": b2})
	assert.Equal(t, []string{"A", "B"}, replaced.Names())
	got, _ := replaced.Get("B")
	assert.Equal(t, []float64{0.5}, got.Likelihoods())
}

package nullmodel

import (
	"math"
	"sort"

	"goviper/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// minTailProbability floors extrapolated tail probabilities so the
	// normal quantile stays finite.
	minTailProbability = 1e-300
	// asymptoticSurvival is the standardized distance past which the normal
	// survival function is replaced by its log-space expansion.
	asymptoticSurvival = 35.0
)

// SymmetricECDF is an empirical distribution folded around its median. Tail
// probabilities are computed from the distance to the centre, so the fit is
// symmetric whatever the location of the null. Past the largest null
// distance, probabilities follow a normal tail whose scale is the root mean
// square distance, joined continuously to the empirical tail at the knot.
type SymmetricECDF struct {
	center    float64
	distances []float64
	sigma     float64
	knot      float64
	knotProb  float64
	knotLogS  float64
}

// FitSymmetric fits the folded distribution on null samples. Non-finite
// values are ignored; fewer than two distinct values cannot be fitted.
func FitSymmetric(null []float64) (*SymmetricECDF, error) {
	finite := make([]float64, 0, len(null))
	for _, v := range null {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) < 2 {
		return nil, core.NewDegenerateError("empirical null", "fewer than two finite null values")
	}

	center, err := stats.Median(finite)
	if err != nil {
		return nil, core.NewDegenerateError("empirical null", err.Error())
	}

	distances := make([]float64, len(finite))
	for i, v := range finite {
		distances[i] = math.Abs(v - center)
	}
	sort.Float64s(distances)
	if distances[len(distances)-1] == 0 {
		return nil, core.ErrSingleValuedNull
	}

	e := &SymmetricECDF{center: center, distances: distances}
	e.fitTail()
	return e, nil
}

// Center returns the folding point.
func (e *SymmetricECDF) Center() float64 { return e.center }

// Len returns the number of null values used in the fit.
func (e *SymmetricECDF) Len() int { return len(e.distances) }

// empiricalTail is P(D >= d) with a half-count continuity correction, which
// keeps it strictly inside (0, 1).
func (e *SymmetricECDF) empiricalTail(d float64) float64 {
	n := len(e.distances)
	below := sort.SearchFloat64s(e.distances, d)
	return (float64(n-below) + 0.5) / float64(n+1)
}

func (e *SymmetricECDF) fitTail() {
	var ss float64
	for _, d := range e.distances {
		ss += d * d
	}
	e.sigma = math.Sqrt(ss / float64(len(e.distances)))
	e.knot = e.distances[len(e.distances)-1]
	e.knotProb = e.empiricalTail(e.knot)
	e.knotLogS = logNormalSurvival(e.knot / e.sigma)
}

// logNormalSurvival returns log P(Z > z) for a standard normal Z without
// underflowing for large z.
func logNormalSurvival(z float64) float64 {
	if z < asymptoticSurvival {
		return math.Log(distuv.UnitNormal.Survival(z))
	}
	return -z*z/2 - math.Log(z) - 0.5*math.Log(2*math.Pi)
}

// TailProbability returns the two-sided probability of a value at least as
// far from the centre as x. It is strictly inside (0, 1) for every finite x.
func (e *SymmetricECDF) TailProbability(x float64) float64 {
	d := math.Abs(x - e.center)
	var p float64
	if d <= e.knot {
		p = e.empiricalTail(d)
	} else {
		p = e.knotProb * math.Exp(logNormalSurvival(d/e.sigma)-e.knotLogS)
	}
	if !(p >= minTailProbability) {
		p = minTailProbability
	}
	return p
}

// CDF returns 1 - TailProbability(x), the folded cumulative probability.
func (e *SymmetricECDF) CDF(x float64) float64 {
	return 1 - e.TailProbability(x)
}

// NES maps an observed enrichment score to a signed normal deviate with the
// same two-sided tail probability. The sign follows the observed value, with
// zero counted as positive.
func (e *SymmetricECDF) NES(es float64) float64 {
	p := e.TailProbability(es)
	z := -distuv.UnitNormal.Quantile(p / 2)
	if es < 0 {
		return -z
	}
	return z
}

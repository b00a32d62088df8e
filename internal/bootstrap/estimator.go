package bootstrap

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/domain/regulon"
	"goviper/internal"
	"goviper/internal/area"
	"goviper/internal/rank"
	"goviper/internal/workers"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// maxRedraws bounds how many times a resample whose genes all have zero
// spread is redrawn before the signature is declared degenerate.
const maxRedraws = 100

// Estimator computes bootstrap NES and its standard deviation.
type Estimator struct {
	engine     *area.Engine
	iterations int
	workers    int
	logger     *internal.Logger
}

// NewEstimator creates an estimator running the given number of bootstrap
// iterations with engine, parallel over samples.
func NewEstimator(engine *area.Engine, iterations, workers int, logger *internal.Logger) (*Estimator, error) {
	if iterations < 1 {
		return nil, core.NewInputShapeError("bootstrap needs at least one iteration, got %d", iterations)
	}
	if engine == nil {
		engine = area.NewEngine(area.WithLogger(logger))
	}
	if workers < 1 {
		workers = 1
	}
	return &Estimator{
		engine:     engine,
		iterations: iterations,
		workers:    workers,
		logger:     logger.OrDefault().With("bootstrap"),
	}, nil
}

// moments is one bootstrap iteration's per-gene mean and sd.
type moments struct {
	mean []float64
	sd   []float64
}

// Estimate resamples the columns of m, standardizes each sample against every
// resample and enriches the resulting pseudo-signatures. The returned NES is
// the across-iteration mean and SD its standard deviation, both on the size
// normalized scale. All randomness comes from rng and is drawn before any
// parallel work, so output does not depend on the worker count.
func (e *Estimator) Estimate(ctx context.Context, m *expression.Matrix, net *regulon.Network, rng *rand.Rand) (*activity.BootstrapResult, error) {
	if rng == nil {
		return nil, fmt.Errorf("bootstrap requires an explicit random source")
	}
	nGenes, nSamples := m.Dims()
	if nSamples < 2 {
		return nil, core.NewInputShapeError("bootstrap needs at least 2 samples, got %d", nSamples)
	}

	draws := make([]moments, e.iterations)
	for b := range draws {
		mo, err := e.draw(m, rng)
		if err != nil {
			return nil, err
		}
		draws[b] = mo
	}
	e.logger.Debug("drew %d bootstrap resamples of %d samples over %d genes", e.iterations, nSamples, nGenes)

	perSample, err := workers.Map(ctx, nSamples, e.workers, func(ctx context.Context, j int) (*activity.Result, error) {
		return e.enrichPseudo(ctx, m, j, draws, net)
	})
	if err != nil {
		return nil, err
	}

	regs := perSample[0].Regulators
	out := activity.NewBootstrapResult(regs, m.Samples())
	if len(regs) == 0 {
		return out, nil
	}

	row := make([]float64, e.iterations)
	for j, res := range perSample {
		for i := range regs {
			mat.Row(row, i, res.NES)
			mean, sd, err := summarize(row)
			if err != nil {
				return nil, fmt.Errorf("regulator %s: %w", regs[i], err)
			}
			out.NES.Set(i, j, mean)
			out.SD.Set(i, j, sd)
		}
	}
	return out, nil
}

// draw resamples the columns of m with replacement and records per-gene
// moments. A resample where no gene varies is redrawn.
func (e *Estimator) draw(m *expression.Matrix, rng *rand.Rand) (moments, error) {
	nGenes, nSamples := m.Dims()
	cols := make([]int, nSamples)
	for attempt := 0; attempt < maxRedraws; attempt++ {
		for k := range cols {
			cols[k] = rng.Intn(nSamples)
		}
		resample := m.SelectColumns(cols)

		mo := moments{mean: make([]float64, nGenes), sd: make([]float64, nGenes)}
		varies := false
		for g := 0; g < nGenes; g++ {
			row := resample.Row(g)
			mean, err := stats.Mean(row)
			if err != nil {
				return moments{}, err
			}
			sd, err := stats.StandardDeviationSample(row)
			if err != nil {
				return moments{}, err
			}
			mo.mean[g], mo.sd[g] = mean, sd
			if sd > 0 {
				varies = true
			}
		}
		if varies {
			return mo, nil
		}
		e.logger.Trace("resample without spread, redrawing")
	}
	return moments{}, core.NewDegenerateError("bootstrap resample", "no gene varies across resampled samples")
}

// enrichPseudo builds the genes × iterations pseudo-signature of sample j and
// enriches it.
func (e *Estimator) enrichPseudo(ctx context.Context, m *expression.Matrix, j int, draws []moments, net *regulon.Network) (*activity.Result, error) {
	nGenes, _ := m.Dims()
	x := m.Column(j)
	pseudo := mat.NewDense(nGenes, len(draws), nil)
	names := make([]string, len(draws))
	for b, mo := range draws {
		names[b] = fmt.Sprintf("boot%d", b+1)
		for g := 0; g < nGenes; g++ {
			if mo.sd[g] > 0 {
				pseudo.Set(g, b, (x[g]-mo.mean[g])/mo.sd[g])
			}
		}
	}

	t, err := rank.Transform(pseudo)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", m.Samples()[j], err)
	}
	return e.engine.Enrich(ctx, area.Input{Transformed: t, Genes: m.Genes(), Samples: names}, net)
}

// summarize returns the mean and sample sd of one regulator's bootstrap
// scores. A single iteration has zero spread.
func summarize(values []float64) (float64, float64, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return mean, 0, nil
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return 0, 0, err
	}
	if math.IsNaN(sd) {
		sd = 0
	}
	return mean, sd, nil
}

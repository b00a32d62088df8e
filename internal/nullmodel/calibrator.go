package nullmodel

import (
	"context"
	"fmt"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/internal"
	"goviper/internal/workers"

	"gonum.org/v1/gonum/mat"
)

// CalibrateNull fits a symmetric empirical distribution on one regulator's
// null enrichment scores and maps each observed score to a calibrated NES.
func CalibrateNull(esObserved, esNull []float64) ([]float64, error) {
	ecdf, err := FitSymmetric(esNull)
	if err != nil {
		return nil, err
	}
	nes := make([]float64, len(esObserved))
	for i, es := range esObserved {
		nes[i] = ecdf.NES(es)
	}
	return nes, nil
}

// Calibrator replaces size-scaled NES with null-calibrated NES, one
// regulator per work unit.
type Calibrator struct {
	workers int
	logger  *internal.Logger
}

// NewCalibrator creates a calibrator running on the given number of workers.
func NewCalibrator(workers int, logger *internal.Logger) *Calibrator {
	if workers < 1 {
		workers = 1
	}
	return &Calibrator{workers: workers, logger: logger.OrDefault().With("nullmodel")}
}

// Calibrate returns a copy of observed whose NES is calibrated against the
// null enrichment scores of the same regulators. Every observed regulator
// must have a null row.
func (c *Calibrator) Calibrate(ctx context.Context, observed, null *activity.Result) (*activity.Result, error) {
	out := activity.NewResult(observed.Regulators, observed.Samples)
	if observed.IsEmpty() {
		return out, nil
	}
	out.ES.Copy(observed.ES)

	nullRows := make([]int, len(observed.Regulators))
	for i, name := range observed.Regulators {
		nullRows[i] = null.RegulatorIndex(name)
		if nullRows[i] < 0 {
			return nil, core.NewInputShapeError("regulator %s has no null model scores", name)
		}
	}

	_, nSamples := observed.Dims()
	_, nNull := null.Dims()
	c.logger.Debug("calibrating %d regulators against %d null realizations", len(observed.Regulators), nNull)

	err := workers.Range(ctx, len(observed.Regulators), c.workers, func(_ context.Context, i int) error {
		esObs := mat.Row(nil, i, observed.ES)
		esNull := mat.Row(nil, nullRows[i], null.ES)
		nes, err := CalibrateNull(esObs, esNull)
		if err != nil {
			return fmt.Errorf("regulator %s: %w", observed.Regulators[i], err)
		}
		for j := 0; j < nSamples; j++ {
			out.NES.Set(i, j, nes[j])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package shadow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/regulon"
	"goviper/internal"
	"goviper/internal/area"
	"goviper/internal/nullmodel"
	"goviper/internal/workers"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoCorrection reports that a sample needs no pleiotropy correction:
// fewer than two master regulators, or no significantly overlapping pair.
var ErrNoCorrection = errors.New("no pleiotropy correction needed")

// Corrector applies shadow-regulon pleiotropy correction sample by sample.
type Corrector struct {
	opts    activity.PleiotropyOptions
	workers int
	logger  *internal.Logger
}

// NewCorrector validates the pleiotropy thresholds and creates a corrector
// that processes samples on the given number of workers.
func NewCorrector(opts activity.PleiotropyOptions, workers int, logger *internal.Logger) (*Corrector, error) {
	if !(opts.Regulators > 0) {
		return nil, fmt.Errorf("%w: pleiotropy regulators threshold must be positive, got %v", core.ErrConflictingOptions, opts.Regulators)
	}
	if !(opts.Shadow > 0) || opts.Shadow > 1 {
		return nil, fmt.Errorf("%w: shadow p-value threshold must be in (0, 1], got %v", core.ErrConflictingOptions, opts.Shadow)
	}
	if opts.Penalty < 0 || opts.Penalty > 100 {
		return nil, fmt.Errorf("%w: penalty is a percentage, got %v", core.ErrConflictingOptions, opts.Penalty)
	}
	switch opts.Method {
	case activity.ShadowAbsolute, activity.ShadowAdaptive:
	case "":
		opts.Method = activity.ShadowAdaptive
	default:
		return nil, fmt.Errorf("%w: unknown shadow method %q", core.ErrConflictingOptions, opts.Method)
	}
	if workers < 1 {
		workers = 1
	}
	return &Corrector{opts: opts, workers: workers, logger: logger.OrDefault().With("shadow")}, nil
}

// Column is the per-sample input of CorrectColumn: the sample's NES vector
// labelled by regulator, its transformed signature column, and optionally a
// transformed null model used to calibrate replacement scores.
type Column struct {
	Regulators []string
	NES        []float64
	Signature  area.Input
	Null       *area.Input
}

// Correct returns a copy of result whose NES has been pleiotropy-corrected in
// every sample. signature must carry the same samples as result. When null is
// non-nil, replacement scores are calibrated against it.
func (c *Corrector) Correct(ctx context.Context, signature area.Input, net *regulon.Network, result *activity.Result, null *area.Input) (*activity.Result, error) {
	out := activity.NewResult(result.Regulators, result.Samples)
	if result.IsEmpty() || len(result.Samples) == 0 {
		return out, nil
	}
	if len(signature.Samples) != len(result.Samples) {
		return nil, core.NewInputShapeError("signature has %d samples, result has %d", len(signature.Samples), len(result.Samples))
	}
	out.ES.Copy(result.ES)
	out.NES.Copy(result.NES)

	corrected := make([]bool, len(result.Samples))
	err := workers.Range(ctx, len(result.Samples), c.workers, func(ctx context.Context, j int) error {
		col := Column{
			Regulators: result.Regulators,
			NES:        result.NESColumn(j),
			Signature: area.Input{
				Transformed: signature.Transformed.Column(j),
				Genes:       signature.Genes,
				Samples:     []string{signature.Samples[j]},
			},
			Null: null,
		}
		nes, err := c.CorrectColumn(ctx, col, net)
		if errors.Is(err, ErrNoCorrection) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("sample %s: %w", result.Samples[j], err)
		}
		for i, v := range nes {
			out.NES.Set(i, j, v)
		}
		corrected[j] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	n := 0
	for _, ok := range corrected {
		if ok {
			n++
		}
	}
	c.logger.Debug("pleiotropy correction changed %d of %d samples", n, len(corrected))
	return out, nil
}

// CorrectColumn returns the corrected NES vector for one sample, or
// ErrNoCorrection when nothing needs to change.
func (c *Corrector) CorrectColumn(ctx context.Context, col Column, net *regulon.Network) ([]float64, error) {
	if len(col.Regulators) != len(col.NES) {
		return nil, core.NewInputShapeError("%d regulators for %d NES values", len(col.Regulators), len(col.NES))
	}
	masters := c.masters(col.Regulators, col.NES)
	if len(masters) < 2 {
		return nil, ErrNoCorrection
	}

	inSignature := make(map[string]struct{}, len(col.Signature.Genes))
	for _, g := range col.Signature.Genes {
		inSignature[g] = struct{}{}
	}
	universe := len(col.Signature.Genes)

	targets := make(map[int][]string, len(masters))
	for _, i := range masters {
		r, ok := net.Get(col.Regulators[i])
		if !ok {
			return nil, core.NewInputShapeError("regulator %s is not in the network", col.Regulators[i])
		}
		targets[i] = r.Restrict(func(t string) bool {
			_, ok := inSignature[t]
			return ok
		}).Targets()
	}

	// factors[i][target] accumulates the penalty applied to regulator i.
	factors := make(map[int]map[string]float64)
	for a := 0; a < len(masters); a++ {
		for b := a + 1; b < len(masters); b++ {
			i, j := masters[a], masters[b]
			shared := sharedTargets(targets[i], targets[j])
			if len(shared) < c.opts.Targets || len(shared) == 0 {
				continue
			}
			p := OverlapPValue(universe, len(targets[i]), len(targets[j]), len(shared))
			if p >= c.opts.Shadow {
				continue
			}

			weak, smallest := j, len(targets[i])
			if math.Abs(col.NES[j]) > math.Abs(col.NES[i]) {
				weak = i
			}
			if len(targets[j]) < smallest {
				smallest = len(targets[j])
			}
			factor := c.penalty(len(shared), smallest)
			if factors[weak] == nil {
				factors[weak] = make(map[string]float64)
			}
			for _, t := range shared {
				f, ok := factors[weak][t]
				if !ok {
					f = 1
				}
				factors[weak][t] = f * factor
			}
			c.logger.Trace("%s shadows %s over %d shared targets (p=%.3g)",
				col.Regulators[i+j-weak], col.Regulators[weak], len(shared), p)
		}
	}
	if len(factors) == 0 {
		return nil, ErrNoCorrection
	}

	touched := make([]int, 0, len(factors))
	for i := range factors {
		touched = append(touched, i)
	}
	sort.Ints(touched)

	penalized := make([]*regulon.Regulator, 0, len(touched))
	for _, i := range touched {
		r, _ := net.Get(col.Regulators[i])
		f := factors[i]
		penalized = append(penalized, r.ScaleLikelihood(func(t string) float64 {
			if v, ok := f[t]; ok {
				return v
			}
			return 1
		}))
	}
	shadowNet, err := regulon.NewNetwork(penalized...)
	if err != nil {
		return nil, err
	}

	replacement, err := c.rescore(ctx, col, shadowNet)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(col.NES))
	copy(out, col.NES)
	for _, i := range touched {
		v, ok := replacement[col.Regulators[i]]
		if !ok {
			continue
		}
		orig := col.NES[i]
		if v*orig < 0 {
			v = math.Copysign(0, orig)
		}
		out[i] = v
	}
	return out, nil
}

// masters returns the positions of master regulators in input order. A
// threshold below 1 is a two-sided normal p-value cutoff; 1 or more selects
// that many regulators with the smallest p-values.
func (c *Corrector) masters(names []string, nes []float64) []int {
	pvals := make([]float64, len(nes))
	for i, v := range nes {
		pvals[i] = 2 * distuv.UnitNormal.Survival(math.Abs(v))
	}

	var out []int
	if c.opts.Regulators < 1 {
		for i, p := range pvals {
			if p < c.opts.Regulators {
				out = append(out, i)
			}
		}
		return out
	}

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })
	n := int(math.Round(c.opts.Regulators))
	if n > len(order) {
		n = len(order)
	}
	out = append(out, order[:n]...)
	sort.Ints(out)
	return out
}

// penalty is the multiplicative likelihood factor for one shared target.
func (c *Corrector) penalty(shared, smallest int) float64 {
	frac := c.opts.Penalty / 100
	if c.opts.Method == activity.ShadowAdaptive && smallest > 0 {
		frac *= float64(shared) / float64(smallest)
	}
	f := 1 - frac
	if f < 0 {
		f = 0
	}
	return f
}

// rescore re-enriches the penalized regulators on the sample column, with no
// size threshold, and calibrates against the null model when one is given.
func (c *Corrector) rescore(ctx context.Context, col Column, shadowNet *regulon.Network) (map[string]float64, error) {
	engine := area.NewEngine(area.WithMinSize(0), area.WithLogger(c.logger))
	res, err := engine.Enrich(ctx, col.Signature, shadowNet)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(res.Regulators))
	if col.Null == nil {
		for i, name := range res.Regulators {
			out[name] = res.NES.At(i, 0)
		}
		return out, nil
	}

	nullRes, err := engine.Enrich(ctx, *col.Null, shadowNet)
	if err != nil {
		return nil, err
	}
	calibrated, err := nullmodel.NewCalibrator(1, c.logger).Calibrate(ctx, res, nullRes)
	if err != nil {
		return nil, err
	}
	for i, name := range calibrated.Regulators {
		out[name] = calibrated.NES.At(i, 0)
	}
	return out, nil
}

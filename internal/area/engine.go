package area

import (
	"context"
	"fmt"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/domain/regulon"
	"goviper/internal"
	"goviper/internal/rank"

	"gonum.org/v1/gonum/mat"
)

// Strategy selects how enrichment sums are evaluated.
type Strategy string

const (
	// StrategyAuto picks bulk unless per-gene weights are supplied or the
	// dense regulator × target matrix would be too large.
	StrategyAuto Strategy = "auto"
	// StrategyBulk builds dense weight matrices and multiplies once.
	StrategyBulk Strategy = "bulk"
	// StrategyLoop evaluates one regulator at a time.
	StrategyLoop Strategy = "loop"
)

const (
	// DefaultMinSize is the minimum regulon size for an engine call.
	DefaultMinSize = 20
	// bulkMaxRegulators and bulkMaxCells bound the dense bulk matrices.
	bulkMaxRegulators = 1000
	bulkMaxCells      = 4_000_000
)

// Input is a transformed signature ready for enrichment. Genes and Samples
// label the rows and columns of Transformed. Weights, when non-nil, is a
// genes × samples matrix of per-gene per-sample weights.
type Input struct {
	Transformed *rank.Transformed
	Genes       []string
	Samples     []string
	Weights     mat.Matrix
}

// Engine computes analytic rank-based enrichment (aREA) scores.
type Engine struct {
	minSize  int
	workers  int
	strategy Strategy
	logger   *internal.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinSize sets the minimum number of targets present in the signature.
func WithMinSize(n int) Option { return func(e *Engine) { e.minSize = n } }

// WithWorkers sets the degree of parallelism over regulators.
func WithWorkers(n int) Option { return func(e *Engine) { e.workers = n } }

// WithStrategy forces an evaluation strategy.
func WithStrategy(s Strategy) Option { return func(e *Engine) { e.strategy = s } }

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine creates an engine with minimum size 20, one worker and
// automatic strategy selection.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		minSize:  DefaultMinSize,
		workers:  1,
		strategy: StrategyAuto,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	e.logger = e.logger.OrDefault().With("area")
	return e
}

// MinSize returns the configured minimum regulon size.
func (e *Engine) MinSize() int { return e.minSize }

// EnrichMatrix rank-transforms m and enriches it against net.
func (e *Engine) EnrichMatrix(ctx context.Context, m *expression.Matrix, net *regulon.Network) (*activity.Result, error) {
	t, err := rank.Transform(m.Dense())
	if err != nil {
		return nil, err
	}
	return e.Enrich(ctx, Input{Transformed: t, Genes: m.Genes(), Samples: m.Samples()}, net)
}

// Enrich computes ES and NES for every regulator of net with at least
// MinSize targets among the input genes. Output rows follow network order,
// columns follow input sample order. No surviving regulator yields a
// zero-row result.
func (e *Engine) Enrich(ctx context.Context, in Input, net *regulon.Network) (*activity.Result, error) {
	if in.Transformed == nil {
		return nil, core.NewInputShapeError("missing transformed signature")
	}
	rows, cols := in.Transformed.Dims()
	if rows != len(in.Genes) || cols != len(in.Samples) {
		return nil, core.NewInputShapeError("transformed matrix is %d×%d, labels are %d×%d",
			rows, cols, len(in.Genes), len(in.Samples))
	}
	if in.Weights != nil {
		wr, wc := in.Weights.Dims()
		if wr != rows || wc != cols {
			return nil, core.NewInputShapeError("weight matrix is %d×%d, signature is %d×%d", wr, wc, rows, cols)
		}
	}

	geneIndex := make(map[string]int, len(in.Genes))
	for i, g := range in.Genes {
		geneIndex[g] = i
	}

	regs := e.prepare(net, geneIndex)
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.Name()
	}
	result := activity.NewResult(names, in.Samples)
	if len(regs) == 0 {
		e.logger.Debug("no regulator reached minimum size %d", e.minSize)
		return result, nil
	}

	strategy := e.choose(regs, in.Weights != nil)
	e.logger.Debug("enriching %d regulators × %d samples with %s strategy", len(regs), cols, strategy)

	var err error
	switch strategy {
	case StrategyBulk:
		err = e.enrichBulk(in, regs, geneIndex, result)
	case StrategyLoop:
		err = e.enrichLoop(ctx, in, regs, geneIndex, result)
	default:
		err = fmt.Errorf("unknown enrichment strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// prepare restricts regulators to the input genes and drops those below
// minimum size or without positive likelihood.
func (e *Engine) prepare(net *regulon.Network, geneIndex map[string]int) []*regulon.Regulator {
	var regs []*regulon.Regulator
	for _, r := range net.Regulators() {
		kept := r.Restrict(func(t string) bool {
			_, ok := geneIndex[t]
			return ok
		})
		if kept.Size() == 0 || kept.Size() < e.minSize || kept.MaxLikelihood() <= 0 {
			continue
		}
		regs = append(regs, kept)
	}
	return regs
}

func (e *Engine) choose(regs []*regulon.Regulator, weighted bool) Strategy {
	if weighted {
		if e.strategy == StrategyBulk {
			e.logger.Debug("per-sample weights supplied, bulk strategy replaced by loop")
		}
		return StrategyLoop
	}
	if e.strategy != StrategyAuto {
		return e.strategy
	}
	targets := make(map[string]struct{})
	for _, r := range regs {
		for _, t := range r.Targets() {
			targets[t] = struct{}{}
		}
	}
	if len(regs) > bulkMaxRegulators || len(regs)*len(targets) > bulkMaxCells {
		return StrategyLoop
	}
	return StrategyBulk
}

// combine merges the directional and undirected sums. The undirected term
// only contributes when positive and zero directional signal counts as
// positive.
func combine(sum1, sum2 float64) float64 {
	sign := 1.0
	if sum1 < 0 {
		sign = -1.0
	}
	abs := sum1 * sign
	if sum2 > 0 {
		abs += sum2
	}
	return abs * sign
}

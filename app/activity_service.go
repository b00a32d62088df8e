package app

import (
	"context"
	"fmt"
	"time"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/domain/regulon"
	"goviper/internal"
	"goviper/internal/area"
	"goviper/internal/bootstrap"
	"goviper/internal/nullmodel"
	"goviper/internal/rank"
	"goviper/internal/shadow"
	"goviper/internal/signature"
	"goviper/ports"

	"gonum.org/v1/gonum/mat"
)

// RNG stage names
const (
	stageBootstrap = "bootstrap"
	stageNullModel = "nullmodel"
)

// ActivityService runs regulator activity inference end to end
type ActivityService struct {
	rngPort ports.RNGPort
	repo    ports.ActivityRepository
	logger  *internal.Logger
}

// ActivityRequest defines the inputs of one activity run
type ActivityRequest struct {
	Signature *expression.Matrix
	Network   *regulon.Network
	Options   activity.Options
	// Null is an optional genes × permutations null model.
	Null *expression.Matrix
	// Weights is an optional genes × samples weight matrix labelled like
	// Signature.
	Weights *expression.Matrix
	RunID   core.RunID // optional, generated if empty
}

// NewActivityService creates an activity service. repo may be nil, which
// disables persistence.
func NewActivityService(rngPort ports.RNGPort, repo ports.ActivityRepository, logger *internal.Logger) *ActivityService {
	return &ActivityService{
		rngPort: rngPort,
		repo:    repo,
		logger:  logger.OrDefault().With("activity"),
	}
}

// Run executes one activity inference.
func (s *ActivityService) Run(ctx context.Context, req ActivityRequest) (*activity.Run, error) {
	start := time.Now()
	opts := req.Options
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	run := &activity.Run{
		ID:        req.RunID,
		CreatedAt: start.UTC(),
		Options:   opts,
		Warnings:  []string{},
	}
	if run.ID == "" {
		run.ID = core.NewRunID()
	}
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		s.logger.Warn("run %s: %s", run.ID, msg)
		run.Warnings = append(run.Warnings, msg)
	}

	if req.Signature == nil {
		return nil, core.NewInputShapeError("no signature supplied")
	}
	if req.Network == nil || req.Network.Len() == 0 {
		return nil, core.NewInputShapeError("regulon network is empty")
	}

	sig, err := signature.Apply(req.Signature, opts.Method)
	if err != nil {
		return nil, fmt.Errorf("signature method %s: %w", opts.Method, err)
	}
	if opts.FilterGenes {
		sig, err = filterGenes(sig, req.Network)
		if err != nil {
			return nil, err
		}
	} else if req.Network.OverlapCount(sig.HasGene) == 0 {
		return nil, core.ErrNoGeneOverlap
	}

	filtered, report := req.Network.Filter(sig.HasGene, opts.MinSize, opts.AdaptiveSize)
	s.logger.Debug("regulon filter kept %d of %d regulators (%d below size, %d without weight)",
		report.Kept, req.Network.Len(), len(report.DroppedBySize), len(report.DroppedNoWeight))
	if filtered.Len() == 0 {
		s.logger.Info("no regulator reached minimum size %.0f", opts.MinSize)
		run.Result = activity.NewResult(nil, sig.Samples())
		return s.finish(ctx, run, start)
	}
	filtered = filtered.WeightSharedTargets(opts.MultiRegWeight)

	if opts.Pleiotropy && opts.Bootstraps > 0 {
		warn("%v: pleiotropy correction and bootstrap both requested, bootstrap disabled", core.ErrConflictingOptions)
		opts.Bootstraps = 0
		run.Options.Bootstraps = 0
	}
	if opts.Bootstraps > 0 && req.Null != nil {
		warn("null model supplied, bootstrap iterations ignored")
		opts.Bootstraps = 0
		run.Options.Bootstraps = 0
	}

	engine := area.NewEngine(area.WithMinSize(0), area.WithWorkers(opts.Workers), area.WithLogger(s.logger))

	if opts.Bootstraps > 0 {
		if req.Weights != nil {
			warn("per-sample weights are not used by the bootstrap estimator")
		}
		rng, err := s.rngPort.Stream(ctx, run.ID.String(), stageBootstrap, opts.Seed)
		if err != nil {
			return nil, err
		}
		est, err := bootstrap.NewEstimator(area.NewEngine(area.WithMinSize(0), area.WithLogger(s.logger)),
			opts.Bootstraps, opts.Workers, s.logger)
		if err != nil {
			return nil, err
		}
		run.Bootstrap, err = est.Estimate(ctx, sig, filtered, rng)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		return s.finish(ctx, run, start)
	}

	transformed, err := rank.Transform(sig.Dense())
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	input := area.Input{Transformed: transformed, Genes: sig.Genes(), Samples: sig.Samples()}
	if req.Weights != nil {
		input.Weights, err = alignWeights(req.Weights, sig)
		if err != nil {
			return nil, err
		}
	}

	result, err := engine.Enrich(ctx, input, filtered)
	if err != nil {
		return nil, err
	}

	var nullInput *area.Input
	if req.Null != nil {
		nullInput, err = transformNull(req.Null, sig)
		if err != nil {
			return nil, err
		}
		nullResult, err := engine.Enrich(ctx, *nullInput, filtered)
		if err != nil {
			return nil, fmt.Errorf("null model: %w", err)
		}
		result, err = nullmodel.NewCalibrator(opts.Workers, s.logger).Calibrate(ctx, result, nullResult)
		if err != nil {
			return nil, err
		}
		run.Calibrated = true
	}

	if opts.Pleiotropy {
		corrector, err := shadow.NewCorrector(opts.PleiotropyOptions, opts.Workers, s.logger)
		if err != nil {
			return nil, err
		}
		input.Weights = nil
		result, err = corrector.Correct(ctx, input, filtered, result, nullInput)
		if err != nil {
			return nil, fmt.Errorf("pleiotropy correction: %w", err)
		}
	}

	run.Result = result
	return s.finish(ctx, run, start)
}

func (s *ActivityService) finish(ctx context.Context, run *activity.Run, start time.Time) (*activity.Run, error) {
	if run.Bootstrap != nil {
		run.Fingerprint = run.Bootstrap.Fingerprint()
	} else {
		run.Fingerprint = run.Result.Fingerprint()
	}
	s.logger.Info("run %s: %d regulators × %d samples in %s",
		run.ID, len(run.Regulators()), len(run.Samples()), time.Since(start).Round(time.Millisecond))

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("persist run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

// NullRequest defines a two-group null model build
type NullRequest struct {
	Matrix       *expression.Matrix
	GroupA       []string
	GroupB       []string
	Permutations int
	Seed         int64
}

// BuildNull generates a t-statistic null model for a two-group contrast from
// sample names.
func (s *ActivityService) BuildNull(ctx context.Context, req NullRequest) (*nullmodel.NullModel, error) {
	if req.Matrix == nil {
		return nil, core.NewInputShapeError("no expression matrix supplied")
	}
	a, err := sampleIndices(req.Matrix, req.GroupA)
	if err != nil {
		return nil, err
	}
	b, err := sampleIndices(req.Matrix, req.GroupB)
	if err != nil {
		return nil, err
	}
	rng, err := s.rngPort.Stream(ctx, "", stageNullModel, req.Seed)
	if err != nil {
		return nil, err
	}
	return nullmodel.TTestNull(req.Matrix, a, b, req.Permutations, rng, s.logger)
}

// Contrast builds the observed two-group t-statistic signature matching a
// BuildNull request.
func (s *ActivityService) Contrast(req NullRequest) (*expression.Matrix, error) {
	a, err := sampleIndices(req.Matrix, req.GroupA)
	if err != nil {
		return nil, err
	}
	b, err := sampleIndices(req.Matrix, req.GroupB)
	if err != nil {
		return nil, err
	}
	return signature.Contrast(req.Matrix, a, b, "contrast")
}

// filterGenes keeps the signature rows that are a regulator or a target.
func filterGenes(sig *expression.Matrix, net *regulon.Network) (*expression.Matrix, error) {
	keep := make(map[string]bool)
	for _, name := range net.Names() {
		keep[name] = true
	}
	for _, t := range net.TargetUniverse() {
		keep[t] = true
	}
	return sig.SubsetGenes(func(g string) bool { return keep[g] })
}

// alignWeights reorders the weight matrix rows to the signature genes. Sample
// labels must match exactly.
func alignWeights(w, sig *expression.Matrix) (mat.Matrix, error) {
	nGenes, nSamples := sig.Dims()
	_, wSamples := w.Dims()
	if wSamples != nSamples {
		return nil, core.NewInputShapeError("weight matrix has %d samples, signature has %d", wSamples, nSamples)
	}
	for j, name := range sig.Samples() {
		if w.Samples()[j] != name {
			return nil, core.NewInputShapeError("weight sample %d is %s, signature has %s", j, w.Samples()[j], name)
		}
	}
	out := mat.NewDense(nGenes, nSamples, nil)
	for i, g := range sig.Genes() {
		row := w.GeneIndex(g)
		if row < 0 {
			return nil, core.NewInputShapeError("weight matrix has no row for gene %s", g)
		}
		out.SetRow(i, w.Row(row))
	}
	return out, nil
}

// transformNull restricts the null model to the signature genes and rank
// transforms it.
func transformNull(null, sig *expression.Matrix) (*area.Input, error) {
	restricted, err := null.SubsetGenes(sig.HasGene)
	if err != nil {
		return nil, fmt.Errorf("null model: %w", err)
	}
	t, err := rank.Transform(restricted.Dense())
	if err != nil {
		return nil, fmt.Errorf("null model: %w", err)
	}
	return &area.Input{Transformed: t, Genes: restricted.Genes(), Samples: restricted.Samples()}, nil
}

func sampleIndices(m *expression.Matrix, names []string) ([]int, error) {
	pos := make(map[string]int, len(m.Samples()))
	for j, s := range m.Samples() {
		pos[s] = j
	}
	out := make([]int, len(names))
	for k, n := range names {
		j, ok := pos[n]
		if !ok {
			return nil, core.NewInputShapeError("unknown sample %s", n)
		}
		out[k] = j
	}
	return out, nil
}

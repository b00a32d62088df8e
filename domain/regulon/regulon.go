package regulon

import (
	"fmt"
	"math"
	"sort"

	"goviper/domain/core"
)

// Regulator is a named regulator with its targets. Mode is the signed mode of
// regulation in [-1, 1]; likelihood is the non-negative interaction
// confidence. Both are keyed by the same target set and kept in a fixed
// target order so every reduction over targets is reproducible.
type Regulator struct {
	name       string
	targets    []string
	mode       map[string]float64
	likelihood map[string]float64
}

// NewRegulator validates and builds a Regulator from parallel slices. A nil
// likelihood imputes a confidence of 1 for every target.
func NewRegulator(name string, targets []string, mode, likelihood []float64) (*Regulator, error) {
	if name == "" {
		return nil, core.NewRegulonError("<unnamed>", "regulator name is empty")
	}
	if len(targets) != len(mode) {
		return nil, core.NewRegulonError(name, fmt.Sprintf("%d targets but %d mode values", len(targets), len(mode)))
	}
	if likelihood == nil {
		likelihood = make([]float64, len(targets))
		for i := range likelihood {
			likelihood[i] = 1
		}
	}
	if len(likelihood) != len(targets) {
		return nil, core.NewRegulonError(name, fmt.Sprintf("%d targets but %d likelihood values", len(targets), len(likelihood)))
	}

	r := &Regulator{
		name:       name,
		targets:    make([]string, 0, len(targets)),
		mode:       make(map[string]float64, len(targets)),
		likelihood: make(map[string]float64, len(targets)),
	}
	for i, t := range targets {
		if t == "" {
			return nil, core.NewRegulonError(name, "empty target identifier")
		}
		if _, dup := r.mode[t]; dup {
			return nil, core.NewRegulonError(name, fmt.Sprintf("duplicate target %s", t))
		}
		m, l := mode[i], likelihood[i]
		if math.IsNaN(m) || m < -1 || m > 1 {
			return nil, core.NewRegulonError(name, fmt.Sprintf("mode %v for target %s outside [-1, 1]", m, t))
		}
		if math.IsNaN(l) || math.IsInf(l, 0) || l < 0 {
			return nil, core.NewRegulonError(name, fmt.Sprintf("likelihood %v for target %s is not a non-negative number", l, t))
		}
		r.targets = append(r.targets, t)
		r.mode[t] = m
		r.likelihood[t] = l
	}
	return r, nil
}

// NewRegulatorFromMaps builds a Regulator from target-keyed maps. The key
// sets must match exactly unless likelihood is nil. Targets are ordered
// lexically.
func NewRegulatorFromMaps(name string, mode, likelihood map[string]float64) (*Regulator, error) {
	targets := make([]string, 0, len(mode))
	for t := range mode {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	modes := make([]float64, len(targets))
	for i, t := range targets {
		modes[i] = mode[t]
	}

	var liks []float64
	if likelihood != nil {
		if len(likelihood) != len(mode) {
			return nil, core.NewRegulonError(name, "mode and likelihood are keyed by different target sets")
		}
		liks = make([]float64, len(targets))
		for i, t := range targets {
			l, ok := likelihood[t]
			if !ok {
				return nil, core.NewRegulonError(name, fmt.Sprintf("target %s has mode but no likelihood", t))
			}
			liks[i] = l
		}
	}
	return NewRegulator(name, targets, modes, liks)
}

// Name returns the regulator name.
func (r *Regulator) Name() string { return r.name }

// Targets returns the targets in canonical order.
func (r *Regulator) Targets() []string { return r.targets }

// Size is the raw target count.
func (r *Regulator) Size() int { return len(r.targets) }

// Mode returns the mode of regulation for target.
func (r *Regulator) Mode(target string) (float64, bool) {
	m, ok := r.mode[target]
	return m, ok
}

// Likelihood returns the interaction confidence for target.
func (r *Regulator) Likelihood(target string) (float64, bool) {
	l, ok := r.likelihood[target]
	return l, ok
}

// HasTarget reports whether target belongs to the regulon.
func (r *Regulator) HasTarget(target string) bool {
	_, ok := r.mode[target]
	return ok
}

// Modes returns mode values aligned with Targets.
func (r *Regulator) Modes() []float64 {
	out := make([]float64, len(r.targets))
	for i, t := range r.targets {
		out[i] = r.mode[t]
	}
	return out
}

// Likelihoods returns likelihood values aligned with Targets.
func (r *Regulator) Likelihoods() []float64 {
	out := make([]float64, len(r.targets))
	for i, t := range r.targets {
		out[i] = r.likelihood[t]
	}
	return out
}

// MaxLikelihood returns the largest likelihood, 0 for an empty regulon.
func (r *Regulator) MaxLikelihood() float64 {
	max := 0.0
	for _, t := range r.targets {
		if l := r.likelihood[t]; l > max {
			max = l
		}
	}
	return max
}

// Weights returns likelihood / max(likelihood), aligned with Targets.
func (r *Regulator) Weights() []float64 {
	max := r.MaxLikelihood()
	out := r.Likelihoods()
	if max <= 0 {
		return make([]float64, len(out))
	}
	for i := range out {
		out[i] /= max
	}
	return out
}

// Scale is the size normalization factor sqrt(Σ w²) over normalized weights.
func (r *Regulator) Scale() float64 {
	sum := 0.0
	for _, w := range r.Weights() {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// EffectiveSize returns the raw target count, or the sum of normalized
// likelihood weights when adaptive sizing is on.
func (r *Regulator) EffectiveSize(adaptive bool) float64 {
	if !adaptive {
		return float64(len(r.targets))
	}
	sum := 0.0
	for _, w := range r.Weights() {
		sum += w
	}
	return sum
}

// Restrict returns a copy keeping only the targets for which keep is true.
func (r *Regulator) Restrict(keep func(target string) bool) *Regulator {
	out := &Regulator{
		name:       r.name,
		mode:       make(map[string]float64),
		likelihood: make(map[string]float64),
	}
	for _, t := range r.targets {
		if !keep(t) {
			continue
		}
		out.targets = append(out.targets, t)
		out.mode[t] = r.mode[t]
		out.likelihood[t] = r.likelihood[t]
	}
	return out
}

// ScaleLikelihood returns a copy with each target's likelihood multiplied by
// factor(target).
func (r *Regulator) ScaleLikelihood(factor func(target string) float64) *Regulator {
	out := &Regulator{
		name:       r.name,
		targets:    append([]string(nil), r.targets...),
		mode:       make(map[string]float64, len(r.targets)),
		likelihood: make(map[string]float64, len(r.targets)),
	}
	for _, t := range r.targets {
		out.mode[t] = r.mode[t]
		out.likelihood[t] = r.likelihood[t] * factor(t)
	}
	return out
}

// Reverse returns a copy with every mode sign flipped.
func (r *Regulator) Reverse() *Regulator {
	out := r.ScaleLikelihood(func(string) float64 { return 1 })
	for t, m := range out.mode {
		out.mode[t] = -m
	}
	return out
}

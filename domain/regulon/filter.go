package regulon

import (
	"math"
)

// FilterReport summarizes what a Filter call removed.
type FilterReport struct {
	Kept            int
	DroppedTargets  int
	DroppedBySize   []string
	DroppedNoWeight []string
}

// Filter returns a scoped view of the network against a gene universe:
// targets absent from the universe are dropped, then regulators whose
// effective size falls below minSize are removed. Regulators left without
// targets or without any positive likelihood are always removed since their
// weights cannot be normalized. The receiver is not modified.
func (n *Network) Filter(hasGene func(gene string) bool, minSize float64, adaptive bool) (*Network, FilterReport) {
	out := &Network{index: make(map[string]int)}
	var report FilterReport

	for _, r := range n.regulators {
		kept := r.Restrict(hasGene)
		report.DroppedTargets += r.Size() - kept.Size()

		if kept.Size() == 0 || kept.MaxLikelihood() <= 0 {
			report.DroppedNoWeight = append(report.DroppedNoWeight, r.Name())
			continue
		}
		if kept.EffectiveSize(adaptive) < minSize {
			report.DroppedBySize = append(report.DroppedBySize, r.Name())
			continue
		}
		out.index[kept.Name()] = len(out.regulators)
		out.regulators = append(out.regulators, kept)
	}
	report.Kept = out.Len()
	return out, report
}

// OverlapCount counts distinct targets present in the gene universe.
func (n *Network) OverlapCount(hasGene func(gene string) bool) int {
	count := 0
	for _, t := range n.TargetUniverse() {
		if hasGene(t) {
			count++
		}
	}
	return count
}

// WeightSharedTargets down-weights targets regulated by several regulators:
// each likelihood is multiplied by (1/k)^exponent where k is the number of
// regulators sharing the target. An exponent of 0 returns the network as is.
func (n *Network) WeightSharedTargets(exponent float64) *Network {
	if exponent == 0 {
		return n
	}
	counts := make(map[string]int)
	for _, r := range n.regulators {
		for _, t := range r.Targets() {
			counts[t]++
		}
	}
	out := &Network{
		regulators: make([]*Regulator, len(n.regulators)),
		index:      make(map[string]int, len(n.regulators)),
	}
	for i, r := range n.regulators {
		out.regulators[i] = r.ScaleLikelihood(func(t string) float64 {
			return math.Pow(1/float64(counts[t]), exponent)
		})
		out.index[r.Name()] = i
	}
	return out
}

package shadow

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// OverlapPValue is the upper-tail hypergeometric probability of observing at
// least shared common targets when sets of sizeA and sizeB are drawn from a
// universe of the given size.
func OverlapPValue(universe, sizeA, sizeB, shared int) float64 {
	if shared <= 0 {
		return 1
	}
	if sizeA > universe || sizeB > universe || shared > sizeA || shared > sizeB {
		return 1
	}

	logTotal := combin.LogGeneralizedBinomial(float64(universe), float64(sizeB))
	upper := sizeA
	if sizeB < upper {
		upper = sizeB
	}

	p := 0.0
	for x := shared; x <= upper; x++ {
		rest := sizeB - x
		if rest > universe-sizeA {
			continue
		}
		logP := combin.LogGeneralizedBinomial(float64(sizeA), float64(x)) +
			combin.LogGeneralizedBinomial(float64(universe-sizeA), float64(rest)) -
			logTotal
		p += math.Exp(logP)
	}
	if p > 1 {
		p = 1
	}
	return p
}

// sharedTargets returns the targets of a that are also targets of b, in the
// order of a.
func sharedTargets(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	var out []string
	for _, t := range a {
		if _, ok := inB[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

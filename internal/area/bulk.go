package area

import (
	"math"

	"goviper/domain/activity"
	"goviper/domain/regulon"
	"goviper/internal/rank"

	"gonum.org/v1/gonum/mat"
)

// enrichBulk evaluates all regulators with two dense products over the union
// of targets: sum1 = (mor ∘ wtss)ᵀ · two_tail and
// sum2 = ((1 − |mor|) ∘ wtss)ᵀ · one_tail, where wtss are the normalized
// weights divided by their column sums.
func (e *Engine) enrichBulk(in Input, regs []*regulon.Regulator, geneIndex map[string]int, result *activity.Result) error {
	var targets []string
	targetCol := make(map[string]int)
	for _, r := range regs {
		for _, t := range r.Targets() {
			if _, ok := targetCol[t]; !ok {
				targetCol[t] = len(targets)
				targets = append(targets, t)
			}
		}
	}

	nReg, nTarget := len(regs), len(targets)
	directional := mat.NewDense(nReg, nTarget, nil)
	undirected := mat.NewDense(nReg, nTarget, nil)
	scale := make([]float64, nReg)

	for i, r := range regs {
		weights := r.Weights()
		total := 0.0
		sq := 0.0
		for _, w := range weights {
			total += w
			sq += w * w
		}
		scale[i] = math.Sqrt(sq)
		for k, t := range r.Targets() {
			m, _ := r.Mode(t)
			w := weights[k] / total
			directional.Set(i, targetCol[t], m*w)
			undirected.Set(i, targetCol[t], (1-math.Abs(m))*w)
		}
	}

	pos := make([]int, nTarget)
	for k, t := range targets {
		pos[k] = geneIndex[t]
	}
	twoTail := rank.FilterRows(in.Transformed.TwoTail, pos)
	oneTail := rank.FilterRows(in.Transformed.OneTail, pos)

	var sum1, sum2 mat.Dense
	sum1.Mul(directional, twoTail)
	sum2.Mul(undirected, oneTail)

	_, nSample := sum1.Dims()
	for i := 0; i < nReg; i++ {
		for j := 0; j < nSample; j++ {
			es := combine(sum1.At(i, j), sum2.At(i, j))
			result.ES.Set(i, j, es)
			result.NES.Set(i, j, es*scale[i])
		}
	}
	return nil
}

package area

import (
	"context"
	"math"

	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/regulon"
	"goviper/internal/workers"
)

// enrichLoop evaluates one regulator per work unit. Each unit writes only its
// own result row.
func (e *Engine) enrichLoop(ctx context.Context, in Input, regs []*regulon.Regulator, geneIndex map[string]int, result *activity.Result) error {
	return workers.Range(ctx, len(regs), e.workers, func(_ context.Context, i int) error {
		r := regs[i]
		if in.Weights == nil {
			enrichRegulator(in, r, geneIndex, i, result)
			return nil
		}
		return enrichRegulatorWeighted(in, r, geneIndex, i, result)
	})
}

func enrichRegulator(in Input, r *regulon.Regulator, geneIndex map[string]int, row int, result *activity.Result) {
	targets := r.Targets()
	modes := r.Modes()
	weights := r.Weights()

	total := 0.0
	for _, w := range weights {
		total += w
	}
	scale := r.Scale()

	twoTail, oneTail := in.Transformed.TwoTail, in.Transformed.OneTail
	for j := range in.Samples {
		sum1, sum2 := 0.0, 0.0
		for k, t := range targets {
			g := geneIndex[t]
			w := weights[k] / total
			sum1 += modes[k] * w * twoTail.At(g, j)
			sum2 += (1 - math.Abs(modes[k])) * w * oneTail.At(g, j)
		}
		es := combine(sum1, sum2)
		result.ES.Set(row, j, es)
		result.NES.Set(row, j, es*scale)
	}
}

// enrichRegulatorWeighted divides by Σ likelihood·W[g,s] per sample and
// recomputes the size factor from the per-sample weights.
func enrichRegulatorWeighted(in Input, r *regulon.Regulator, geneIndex map[string]int, row int, result *activity.Result) error {
	targets := r.Targets()
	modes := r.Modes()
	weights := r.Weights()

	twoTail, oneTail := in.Transformed.TwoTail, in.Transformed.OneTail
	for j, sample := range in.Samples {
		denom, sq := 0.0, 0.0
		for k, t := range targets {
			wg := weights[k] * in.Weights.At(geneIndex[t], j)
			denom += wg
			sq += wg * wg
		}
		if denom <= 0 {
			return core.NewDegenerateError(r.Name(), "zero total target weight in sample "+sample)
		}

		sum1, sum2 := 0.0, 0.0
		for k, t := range targets {
			g := geneIndex[t]
			w := weights[k] * in.Weights.At(g, j) / denom
			sum1 += modes[k] * w * twoTail.At(g, j)
			sum2 += (1 - math.Abs(modes[k])) * w * oneTail.At(g, j)
		}
		es := combine(sum1, sum2)
		result.ES.Set(row, j, es)
		result.NES.Set(row, j, es*math.Sqrt(sq))
	}
	return nil
}

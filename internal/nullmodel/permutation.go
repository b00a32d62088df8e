package nullmodel

import (
	"fmt"
	"math/rand"

	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/internal"
	"goviper/internal/signature"
)

// MinGroupSize is the smallest group for which sample permutation is used.
const MinGroupSize = 3

// Method names how a null model was generated.
type Method string

const (
	MethodSamplePermutation Method = "sample_permutation"
	MethodGenePermutation   Method = "gene_permutation"
)

// NullModel is a genes × permutations matrix of null signatures.
type NullModel struct {
	Matrix   *expression.Matrix
	Method   Method
	Warnings []string
}

// TTestNull builds a null model for a two-group contrast. Each realization
// redraws both groups with replacement from the pooled samples and records
// the per-gene Welch t statistic. When either group is smaller than
// MinGroupSize the model falls back to shuffling the observed contrast
// across genes and reports the downgrade as a warning.
func TTestNull(m *expression.Matrix, groupA, groupB []int, perms int, rng *rand.Rand, logger *internal.Logger) (*NullModel, error) {
	logger = logger.OrDefault().With("nullmodel")
	if perms < 1 {
		return nil, core.NewInputShapeError("null model needs at least one permutation, got %d", perms)
	}
	if rng == nil {
		return nil, fmt.Errorf("null model generation requires an explicit random source")
	}
	if len(groupA) == 0 || len(groupB) == 0 {
		return nil, core.NewInputShapeError("null model needs two non-empty groups")
	}

	names := make([]string, perms)
	for p := range names {
		names[p] = fmt.Sprintf("perm%d", p+1)
	}

	if len(groupA) < MinGroupSize || len(groupB) < MinGroupSize {
		warning := fmt.Sprintf("%v: groups of %d and %d samples, using gene permutation",
			core.ErrNullModelInsufficient, len(groupA), len(groupB))
		logger.Warn("%s", warning)
		model, err := genePermutationNull(m, groupA, groupB, names, rng)
		if err != nil {
			return nil, err
		}
		model.Warnings = append(model.Warnings, warning)
		return model, nil
	}

	pooled := append(append([]int(nil), groupA...), groupB...)
	nGenes, _ := m.Dims()
	values := make([]float64, nGenes*perms)
	a := make([]int, len(groupA))
	b := make([]int, len(groupB))
	for p := 0; p < perms; p++ {
		for k := range a {
			a[k] = pooled[rng.Intn(len(pooled))]
		}
		for k := range b {
			b[k] = pooled[rng.Intn(len(pooled))]
		}
		contrast, err := signature.Contrast(m, a, b, names[p])
		if err != nil {
			return nil, err
		}
		for g := 0; g < nGenes; g++ {
			values[g*perms+p] = contrast.At(g, 0)
		}
	}

	nullMatrix, err := expression.NewMatrix(m.Genes(), names, values)
	if err != nil {
		return nil, err
	}
	logger.Debug("built %d sample permutations over %d genes", perms, nGenes)
	return &NullModel{Matrix: nullMatrix, Method: MethodSamplePermutation}, nil
}

func genePermutationNull(m *expression.Matrix, groupA, groupB []int, names []string, rng *rand.Rand) (*NullModel, error) {
	observed, err := signature.Contrast(m, groupA, groupB, "observed")
	if err != nil {
		return nil, err
	}
	base := observed.Column(0)
	nGenes := len(base)
	perms := len(names)
	values := make([]float64, nGenes*perms)
	for p := 0; p < perms; p++ {
		order := rng.Perm(nGenes)
		for g, src := range order {
			values[g*perms+p] = base[src]
		}
	}
	nullMatrix, err := expression.NewMatrix(m.Genes(), names, values)
	if err != nil {
		return nil, err
	}
	return &NullModel{Matrix: nullMatrix, Method: MethodGenePermutation}, nil
}

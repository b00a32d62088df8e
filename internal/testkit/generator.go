package testkit

import (
	"fmt"
	"math/rand"

	"goviper/domain/expression"
	"goviper/domain/regulon"
)

// GeneratorConfig configures the synthetic expression/regulon generator
type GeneratorConfig struct {
	GeneCount        int     `json:"gene_count"`
	SampleCount      int     `json:"sample_count"`
	RegulatorCount   int     `json:"regulator_count"`
	TargetsPerReg    int     `json:"targets_per_regulator"`
	ActiveRegulators int     `json:"active_regulators"`
	EffectSize       float64 `json:"effect_size"`
	RepressedShare   float64 `json:"repressed_share"`
	Seed             int64   `json:"seed"`
}

// DefaultGeneratorConfig returns sensible defaults for synthetic data
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		GeneCount:        500,
		SampleCount:      6,
		RegulatorCount:   8,
		TargetsPerReg:    40,
		ActiveRegulators: 2,
		EffectSize:       2.5,
		RepressedShare:   0.25,
		Seed:             42,
	}
}

// Dataset is a synthetic signature with the network that generated it.
// Active lists the regulators whose targets were shifted; in sample j the
// shift is +EffectSize for even j and -EffectSize for odd j.
type Dataset struct {
	Signature *expression.Matrix
	Network   *regulon.Network
	Active    []string
}

// Generator produces reproducible synthetic datasets
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a new generator
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GeneName returns the identifier of gene i
func GeneName(i int) string { return fmt.Sprintf("G%04d", i) }

// RegulatorName returns the identifier of regulator i
func RegulatorName(i int) string { return fmt.Sprintf("TF%02d", i) }

// Generate builds a network of random regulons and a signature in which the
// targets of the first ActiveRegulators regulators follow their mode of
// regulation.
func (g *Generator) Generate() (*Dataset, error) {
	c := g.config
	if c.TargetsPerReg > c.GeneCount {
		return nil, fmt.Errorf("cannot draw %d targets from %d genes", c.TargetsPerReg, c.GeneCount)
	}

	genes := make([]string, c.GeneCount)
	for i := range genes {
		genes[i] = GeneName(i)
	}
	samples := make([]string, c.SampleCount)
	for j := range samples {
		samples[j] = fmt.Sprintf("S%02d", j+1)
	}

	values := make([]float64, c.GeneCount*c.SampleCount)
	for i := range values {
		values[i] = g.rng.NormFloat64()
	}

	var regs []*regulon.Regulator
	var active []string
	for r := 0; r < c.RegulatorCount; r++ {
		picks := g.rng.Perm(c.GeneCount)[:c.TargetsPerReg]
		targets := make([]string, len(picks))
		mode := make([]float64, len(picks))
		lik := make([]float64, len(picks))
		for k, gi := range picks {
			targets[k] = genes[gi]
			mode[k] = 1
			if g.rng.Float64() < c.RepressedShare {
				mode[k] = -1
			}
			lik[k] = 0.5 + 0.5*g.rng.Float64()
		}
		reg, err := regulon.NewRegulator(RegulatorName(r), targets, mode, lik)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)

		if r < c.ActiveRegulators {
			active = append(active, reg.Name())
			for k, gi := range picks {
				for j := 0; j < c.SampleCount; j++ {
					shift := c.EffectSize * mode[k]
					if j%2 == 1 {
						shift = -shift
					}
					values[gi*c.SampleCount+j] += shift
				}
			}
		}
	}

	net, err := regulon.NewNetwork(regs...)
	if err != nil {
		return nil, err
	}
	sig, err := expression.NewMatrix(genes, samples, values)
	if err != nil {
		return nil, err
	}
	return &Dataset{Signature: sig, Network: net, Active: active}, nil
}

// NullMatrix draws a genes × permutations matrix of standard normal noise
// over the given genes.
func (g *Generator) NullMatrix(genes []string, permutations int) (*expression.Matrix, error) {
	names := make([]string, permutations)
	for p := range names {
		names[p] = fmt.Sprintf("perm%d", p+1)
	}
	values := make([]float64, len(genes)*permutations)
	for i := range values {
		values[i] = g.rng.NormFloat64()
	}
	return expression.NewMatrix(genes, names, values)
}

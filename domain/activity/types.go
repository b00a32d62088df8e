package activity

import (
	"goviper/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Result holds enrichment scores for regulators (rows) × samples (columns).
// ES is the raw enrichment score, NES its size- or null-calibrated form.
type Result struct {
	Regulators []string
	Samples    []string
	ES         *mat.Dense
	NES        *mat.Dense
}

// NewResult allocates zeroed ES/NES matrices. A zero-row result is valid and
// carries nil matrices.
func NewResult(regulators, samples []string) *Result {
	r := &Result{Regulators: regulators, Samples: samples}
	if len(regulators) > 0 && len(samples) > 0 {
		r.ES = mat.NewDense(len(regulators), len(samples), nil)
		r.NES = mat.NewDense(len(regulators), len(samples), nil)
	}
	return r
}

// Dims returns (regulators, samples).
func (r *Result) Dims() (int, int) { return len(r.Regulators), len(r.Samples) }

// IsEmpty reports a zero-row result.
func (r *Result) IsEmpty() bool { return len(r.Regulators) == 0 }

// RegulatorIndex returns the row of name, or -1.
func (r *Result) RegulatorIndex(name string) int {
	for i, n := range r.Regulators {
		if n == name {
			return i
		}
	}
	return -1
}

// NESColumn copies the NES vector for sample j.
func (r *Result) NESColumn(j int) []float64 {
	out := make([]float64, len(r.Regulators))
	if r.NES != nil {
		mat.Col(out, j, r.NES)
	}
	return out
}

// Fingerprint hashes the exact NES bits together with the labels.
func (r *Result) Fingerprint() core.Hash {
	return fingerprint(r.Regulators, r.Samples, r.NES)
}

// BootstrapResult holds the bootstrap point NES and its standard deviation.
type BootstrapResult struct {
	Regulators []string
	Samples    []string
	NES        *mat.Dense
	SD         *mat.Dense
}

// NewBootstrapResult allocates zeroed NES/SD matrices.
func NewBootstrapResult(regulators, samples []string) *BootstrapResult {
	r := &BootstrapResult{Regulators: regulators, Samples: samples}
	if len(regulators) > 0 && len(samples) > 0 {
		r.NES = mat.NewDense(len(regulators), len(samples), nil)
		r.SD = mat.NewDense(len(regulators), len(samples), nil)
	}
	return r
}

// Dims returns (regulators, samples).
func (r *BootstrapResult) Dims() (int, int) { return len(r.Regulators), len(r.Samples) }

// Fingerprint hashes the exact NES bits together with the labels.
func (r *BootstrapResult) Fingerprint() core.Hash {
	return fingerprint(r.Regulators, r.Samples, r.NES)
}

func fingerprint(rows, cols []string, m *mat.Dense) core.Hash {
	labels := append(append([]string(nil), rows...), cols...)
	var values []float64
	if m != nil {
		values = append(values, m.RawMatrix().Data...)
	}
	return core.ComputeFloatHash(labels, values)
}

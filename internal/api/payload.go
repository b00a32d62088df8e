package api

import (
	"fmt"

	"goviper/adapters/regulonfile"
	"goviper/domain/activity"
	"goviper/domain/expression"
	"goviper/internal/errors"
)

// MatrixPayload is a labelled genes × samples matrix with row-major values
type MatrixPayload struct {
	Genes   []string    `json:"genes"`
	Samples []string    `json:"samples"`
	Values  [][]float64 `json:"values"`
}

// Matrix validates the payload and builds an expression matrix
func (p *MatrixPayload) Matrix() (*expression.Matrix, error) {
	if len(p.Values) != len(p.Genes) {
		return nil, errors.InvalidInput(fmt.Sprintf("%d value rows for %d genes", len(p.Values), len(p.Genes)))
	}
	flat := make([]float64, 0, len(p.Genes)*len(p.Samples))
	for i, row := range p.Values {
		if len(row) != len(p.Samples) {
			return nil, errors.InvalidInput(fmt.Sprintf("row %s has %d values for %d samples", p.Genes[i], len(row), len(p.Samples)))
		}
		flat = append(flat, row...)
	}
	return expression.NewMatrix(p.Genes, p.Samples, flat)
}

// NewMatrixPayload converts an expression matrix into its wire form
func NewMatrixPayload(m *expression.Matrix) MatrixPayload {
	p := MatrixPayload{Genes: m.Genes(), Samples: m.Samples(), Values: make([][]float64, len(m.Genes()))}
	for i := range p.Genes {
		p.Values[i] = m.Row(i)
	}
	return p
}

// ActivityPayload is the body of an activity request. Omitted options keep
// the server defaults.
type ActivityPayload struct {
	Signature MatrixPayload        `json:"signature"`
	Network   regulonfile.Document `json:"network"`
	Null      *MatrixPayload       `json:"null,omitempty"`
	Weights   *MatrixPayload       `json:"weights,omitempty"`
	Options   activity.Options     `json:"options"`
	// Report adds a "markdown" or "html" rendering of the top regulators.
	Report string `json:"report,omitempty"`
	Top    int    `json:"top,omitempty"`
}

// ActivityResponse is a completed run with its flattened scores
type ActivityResponse struct {
	Run    *activity.Run    `json:"run"`
	Scores []activity.Score `json:"scores"`
	Report string           `json:"report,omitempty"`
}

// RunResponse is a stored run as read back from the repository
type RunResponse struct {
	Summary *activity.RunSummary `json:"summary"`
	Scores  []activity.Score     `json:"scores"`
}

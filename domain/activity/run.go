package activity

import (
	"time"

	"goviper/domain/core"
)

// Run is one completed activity inference, as returned to callers and
// persisted by an ActivityRepository. Exactly one of Result and Bootstrap is
// set.
type Run struct {
	ID          core.RunID       `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Options     Options          `json:"options"`
	Result      *Result          `json:"-"`
	Bootstrap   *BootstrapResult `json:"-"`
	Calibrated  bool             `json:"calibrated"`
	Warnings    []string         `json:"warnings"`
	Fingerprint core.Hash        `json:"fingerprint"`
}

// Regulators returns the row labels of whichever result the run carries.
func (r *Run) Regulators() []string {
	if r.Bootstrap != nil {
		return r.Bootstrap.Regulators
	}
	if r.Result != nil {
		return r.Result.Regulators
	}
	return nil
}

// Samples returns the column labels of whichever result the run carries.
func (r *Run) Samples() []string {
	if r.Bootstrap != nil {
		return r.Bootstrap.Samples
	}
	if r.Result != nil {
		return r.Result.Samples
	}
	return nil
}

// Score is one (regulator, sample) cell of a run. SD is only set for
// bootstrap runs.
type Score struct {
	Regulator string   `json:"regulator" db:"regulator"`
	Sample    string   `json:"sample" db:"sample"`
	ES        *float64 `json:"es,omitempty" db:"es"`
	NES       float64  `json:"nes" db:"nes"`
	SD        *float64 `json:"sd,omitempty" db:"sd"`
}

// Scores flattens the run into regulator-major cells.
func (r *Run) Scores() []Score {
	regs, samples := r.Regulators(), r.Samples()
	out := make([]Score, 0, len(regs)*len(samples))
	for i, reg := range regs {
		for j, s := range samples {
			sc := Score{Regulator: reg, Sample: s}
			switch {
			case r.Bootstrap != nil:
				sd := r.Bootstrap.SD.At(i, j)
				sc.NES = r.Bootstrap.NES.At(i, j)
				sc.SD = &sd
			case r.Result != nil:
				es := r.Result.ES.At(i, j)
				sc.ES = &es
				sc.NES = r.Result.NES.At(i, j)
			}
			out = append(out, sc)
		}
	}
	return out
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID          core.RunID `json:"id" db:"id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Regulators  int        `json:"regulators" db:"regulators"`
	Samples     int        `json:"samples" db:"samples"`
	Bootstrap   bool       `json:"bootstrap" db:"bootstrap"`
	Fingerprint core.Hash  `json:"fingerprint" db:"fingerprint"`
}

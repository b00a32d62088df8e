package activity

// ShadowMethod selects how the penalty is applied to shared targets.
type ShadowMethod string

const (
	// ShadowAbsolute multiplies shared-target likelihoods by a uniform factor.
	ShadowAbsolute ShadowMethod = "absolute"
	// ShadowAdaptive scales the reduction by the overlap strength of the pair.
	ShadowAdaptive ShadowMethod = "adaptive"
)

// PleiotropyOptions parameterize the shadow-regulon correction.
type PleiotropyOptions struct {
	// Regulators is the p-value cutoff for master regulators; values >= 1
	// select that many top regulators instead.
	Regulators float64 `json:"regulators" yaml:"regulators"`
	// Shadow is the p-value cutoff of the target-overlap test.
	Shadow float64 `json:"shadow" yaml:"shadow"`
	// Targets is the minimum number of shared targets for a pair.
	Targets int `json:"targets" yaml:"targets"`
	// Penalty is the percentage reduction of shared-target likelihood.
	Penalty float64      `json:"penalty" yaml:"penalty"`
	Method  ShadowMethod `json:"method" yaml:"method"`
}

// DefaultPleiotropyOptions returns the standard correction parameters.
func DefaultPleiotropyOptions() PleiotropyOptions {
	return PleiotropyOptions{
		Regulators: 0.05,
		Shadow:     0.05,
		Targets:    10,
		Penalty:    20,
		Method:     ShadowAdaptive,
	}
}

// SignatureMethod names a signature-generation transform.
type SignatureMethod string

const (
	SignatureNone  SignatureMethod = "none"
	SignatureScale SignatureMethod = "scale"
	SignatureMAD   SignatureMethod = "mad"
	SignatureRank  SignatureMethod = "rank"
	SignatureTTest SignatureMethod = "ttest"
)

// Options configure a full activity inference run.
type Options struct {
	MinSize           float64           `json:"min_size"`
	AdaptiveSize      bool              `json:"adaptive_size"`
	FilterGenes       bool              `json:"filter_genes"`
	MultiRegWeight    float64           `json:"mvws"`
	Method            SignatureMethod   `json:"method"`
	Pleiotropy        bool              `json:"pleiotropy"`
	PleiotropyOptions PleiotropyOptions `json:"pleiotropy_options"`
	Bootstraps        int               `json:"bootstraps"`
	Workers           int               `json:"workers"`
	Seed              int64             `json:"seed"`
}

// DefaultOptions mirrors the standard run configuration.
func DefaultOptions() Options {
	return Options{
		MinSize:           25,
		FilterGenes:       true,
		MultiRegWeight:    1,
		Method:            SignatureNone,
		PleiotropyOptions: DefaultPleiotropyOptions(),
		Workers:           1,
		Seed:              1,
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goviper/adapters/excel"
	"goviper/adapters/regulonfile"
	"goviper/adapters/rng"
	"goviper/app"
	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/internal"
	"goviper/internal/config"
	"goviper/internal/report"
	"goviper/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "goviper",
		Short: "Regulator activity inference from expression signatures",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newNullCmd(),
		newDeterminismCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runFlags are the activity options exposed on the command line. Unset
// flags keep the VIPER_* environment defaults.
type runFlags struct {
	method     string
	minSize    float64
	adaptive   bool
	pleiotropy bool
	bootstraps int
	workers    int
	seed       int64
	mvws       float64
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.method, "method", "none", "Signature method: none|scale|mad|rank|ttest")
	cmd.Flags().Float64Var(&f.minSize, "min-size", 25, "Minimum regulon size after gene filtering")
	cmd.Flags().BoolVar(&f.adaptive, "adaptive-size", false, "Measure regulon size as the sum of likelihoods")
	cmd.Flags().BoolVar(&f.pleiotropy, "pleiotropy", false, "Apply the shadow-regulon pleiotropy correction")
	cmd.Flags().IntVar(&f.bootstraps, "bootstraps", 0, "Bootstrap iterations (0 disables)")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "Parallel workers")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "Random seed for deterministic operations")
	cmd.Flags().Float64Var(&f.mvws, "mvws", 1, "Exponent down-weighting targets shared by several regulators")
}

func (f *runFlags) options(cmd *cobra.Command) (activity.Options, error) {
	cfg, err := config.Load()
	if err != nil {
		return activity.Options{}, err
	}
	opts := cfg.Options()
	flags := cmd.Flags()
	if flags.Changed("method") {
		opts.Method = activity.SignatureMethod(strings.ToLower(f.method))
	}
	if flags.Changed("min-size") {
		opts.MinSize = f.minSize
	}
	if flags.Changed("adaptive-size") {
		opts.AdaptiveSize = f.adaptive
	}
	if flags.Changed("pleiotropy") {
		opts.Pleiotropy = f.pleiotropy
	}
	if flags.Changed("bootstraps") {
		opts.Bootstraps = f.bootstraps
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("mvws") {
		opts.MultiRegWeight = f.mvws
	}
	return opts, nil
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	var nullPath, weightsPath, output, reportPath string
	var top int

	cmd := &cobra.Command{
		Use:   "run [signature] [network]",
		Short: "Infer regulator activity for every sample of a signature",
		Long: `Infer regulator activity (NES) for every sample of a gene expression
signature against a regulon network.

Signatures are read from .xlsx, .csv, .tsv or .gct files; networks from
.yaml or regulator/target/mode/likelihood .tsv files.

Example: goviper run signature.tsv network.yaml --pleiotropy --output nes.xlsx --report top.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()
			req, err := loadRequest(cmd.Context(), logger, args[0], args[1], nullPath, weightsPath)
			if err != nil {
				return err
			}
			req.Options = opts

			svc := app.NewActivityService(rng.NewSource(), nil, logger)
			run, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			printRun(run, top)

			if output != "" {
				if err := excel.WriteTables(output, excel.RunTables(run)...); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Printf("Scores written to %s\n", output)
			}
			if reportPath != "" {
				if err := writeReport(reportPath, run, top); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", reportPath)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&nullPath, "null", "", "Null model matrix (genes × permutations) for empirical NES")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "Per-sample gene weight matrix")
	cmd.Flags().StringVar(&output, "output", "", "Write NES and ES/SD tables (.xlsx, .csv or .tsv)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a top-regulator report (.md or .html)")
	cmd.Flags().IntVar(&top, "top", 10, "Regulators listed per sample")
	return cmd
}

func newNullCmd() *cobra.Command {
	var groupA, groupB []string
	var permutations int
	var seed int64
	var output, signatureOutput string

	cmd := &cobra.Command{
		Use:   "null [matrix]",
		Short: "Build a t-statistic permutation null model for a two-group contrast",
		Long: `Resample both groups from the pooled samples and record the Welch
t-statistic of every gene for each permutation. With fewer than three samples
in a group gene labels are permuted instead.

Example: goviper null expr.tsv --group-a t1,t2,t3 --group-b c1,c2,c3 --permutations 1000 --output null.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := internal.NewDefaultLogger()
			m, err := excel.NewDataReader(excel.DefaultReaderConfig(), logger).ReadMatrix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc := app.NewActivityService(rng.NewSource(), nil, logger)
			req := app.NullRequest{Matrix: m, GroupA: groupA, GroupB: groupB, Permutations: permutations, Seed: seed}

			null, err := svc.BuildNull(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, w := range null.Warnings {
				fmt.Printf("⚠️  %s\n", w)
			}
			if err := excel.WriteTables(output, excel.MatrixTable("null", null.Matrix)); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Null model (%s, %d permutations) written to %s\n", null.Method, permutations, output)

			if signatureOutput != "" {
				sig, err := svc.Contrast(req)
				if err != nil {
					return err
				}
				if err := excel.WriteTables(signatureOutput, excel.MatrixTable("signature", sig)); err != nil {
					return fmt.Errorf("failed to write %s: %w", signatureOutput, err)
				}
				fmt.Printf("Contrast signature written to %s\n", signatureOutput)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&groupA, "group-a", nil, "Samples of the test group")
	cmd.Flags().StringSliceVar(&groupB, "group-b", nil, "Samples of the reference group")
	cmd.Flags().IntVar(&permutations, "permutations", 1000, "Number of permutations")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for deterministic operations")
	cmd.Flags().StringVar(&output, "output", "null.tsv", "Null model output file")
	cmd.Flags().StringVar(&signatureOutput, "signature-output", "", "Also write the observed contrast signature")
	return cmd
}

func newDeterminismCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "determinism [signature] [network]",
		Short: "Verify that a run reproduces bit-for-bit across worker counts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()
			req, err := loadRequest(cmd.Context(), logger, args[0], args[1], "", "")
			if err != nil {
				return err
			}

			source := rng.NewSource()
			probe, _ := source.SeededStream(cmd.Context(), "probe", opts.Seed)
			expected := []float64{probe.Float64(), probe.Float64(), probe.Float64()}
			if err := source.ValidateSeed(cmd.Context(), "probe", opts.Seed, expected); err != nil {
				return err
			}

			svc := app.NewActivityService(source, nil, logger)
			parallel := opts.Workers
			if parallel < 2 {
				parallel = 4
			}

			var fingerprints []core.Hash
			for _, workers := range []int{1, parallel, 1} {
				req.Options = opts
				req.Options.Workers = workers
				start := time.Now()
				run, err := svc.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Printf("workers=%d fingerprint=%s (%s)\n", workers, run.Fingerprint, time.Since(start).Round(time.Millisecond))
				fingerprints = append(fingerprints, run.Fingerprint)
			}
			for _, fp := range fingerprints[1:] {
				if !fp.Equals(fingerprints[0]) {
					return fmt.Errorf("%w: fingerprints differ across runs", core.ErrNonDeterministic)
				}
			}
			fmt.Println("✅ Runs are reproducible")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newDemoCmd() *cobra.Command {
	var flags runFlags
	var seed int64
	var top int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run activity inference on a synthetic dataset with planted active regulators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			ds, err := testkit.NewTestKit().Dataset(seed)
			if err != nil {
				return err
			}
			fmt.Printf("Planted active regulators: %s\n", strings.Join(ds.Active, ", "))

			svc := app.NewActivityService(rng.NewSource(), nil, internal.NewDefaultLogger())
			run, err := svc.Run(cmd.Context(), app.ActivityRequest{Signature: ds.Signature, Network: ds.Network, Options: opts})
			if err != nil {
				return err
			}
			printRun(run, top)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Int64Var(&seed, "data-seed", 42, "Seed of the synthetic dataset")
	cmd.Flags().IntVar(&top, "top", 5, "Regulators listed per sample")
	return cmd
}

func loadRequest(ctx context.Context, logger *internal.Logger, signaturePath, networkPath, nullPath, weightsPath string) (app.ActivityRequest, error) {
	reader := excel.NewDataReader(excel.DefaultReaderConfig(), logger)
	var req app.ActivityRequest
	var err error

	if req.Signature, err = reader.ReadMatrix(ctx, signaturePath); err != nil {
		return req, fmt.Errorf("failed to load signature: %w", err)
	}
	if req.Network, err = regulonfile.NewLoader(logger).LoadNetwork(ctx, networkPath); err != nil {
		return req, fmt.Errorf("failed to load network: %w", err)
	}
	optional := func(path string) (*expression.Matrix, error) {
		if path == "" {
			return nil, nil
		}
		return reader.ReadMatrix(ctx, path)
	}
	if req.Null, err = optional(nullPath); err != nil {
		return req, fmt.Errorf("failed to load null model: %w", err)
	}
	if req.Weights, err = optional(weightsPath); err != nil {
		return req, fmt.Errorf("failed to load weights: %w", err)
	}
	return req, nil
}

func printRun(run *activity.Run, top int) {
	fmt.Printf("\n📊 ACTIVITY RUN %s\n", run.ID)
	fmt.Printf("Regulators: %d  Samples: %d  Fingerprint: %s\n", len(run.Regulators()), len(run.Samples()), run.Fingerprint)
	for _, w := range run.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
	for j, sample := range run.Samples() {
		fmt.Printf("\n%s\n", sample)
		for k, e := range report.TopRegulators(run, j, top) {
			fmt.Printf("  %2d. %-12s NES=%7.3f  p=%.2e\n", k+1, e.Regulator, e.NES, e.PValue)
		}
	}
}

func writeReport(path string, run *activity.Run, top int) error {
	var content []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		content = report.HTML(run, top)
	default:
		content = []byte(report.Markdown(run, top))
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"goviper/app"
	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/domain/expression"
	"goviper/domain/regulon"
	"goviper/internal"
	"goviper/internal/nullmodel"
	"goviper/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) SaveRun(ctx context.Context, run *activity.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockActivityRepository) GetRunScores(ctx context.Context, id core.RunID) (*activity.RunSummary, []activity.Score, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*activity.RunSummary), args.Get(1).([]activity.Score), args.Error(2)
}

func (m *MockActivityRepository) ListRuns(ctx context.Context, limit int) ([]activity.RunSummary, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]activity.RunSummary), args.Error(1)
}

func newService(kit *testkit.TestKit) *app.ActivityService {
	return app.NewActivityService(kit.RNGAdapter(), kit.ActivityRepository(), internal.NewDiscardLogger())
}

// rankedSignature is a one-sample signature over n genes where gene i has
// the (i+1)-th highest value.
func rankedSignature(t *testing.T, n int) *expression.Matrix {
	t.Helper()
	genes := make([]string, n)
	values := make([]float64, n)
	for i := range genes {
		genes[i] = fmt.Sprintf("g%d", i+1)
		values[i] = float64(n - i)
	}
	m, err := expression.NewMatrix(genes, []string{"sample"}, values)
	require.NoError(t, err)
	return m
}

func singleRegulon(t *testing.T, name string, nTargets int) *regulon.Network {
	t.Helper()
	targets := make([]string, nTargets)
	mode := make([]float64, nTargets)
	for i := range targets {
		targets[i] = fmt.Sprintf("g%d", i+1)
		mode[i] = 1
	}
	r, err := regulon.NewRegulator(name, targets, mode, nil)
	require.NoError(t, err)
	net, err := regulon.NewNetwork(r)
	require.NoError(t, err)
	return net
}

func hasWarning(run *activity.Run, fragment string) bool {
	for _, w := range run.Warnings {
		if strings.Contains(w, fragment) {
			return true
		}
	}
	return false
}

func TestRun_CoherentUpRegulation(t *testing.T) {
	svc := newService(testkit.NewTestKit())
	opts := activity.DefaultOptions()
	opts.FilterGenes = false

	run, err := svc.Run(context.Background(), app.ActivityRequest{
		Signature: rankedSignature(t, 1000),
		Network:   singleRegulon(t, "A", 30),
		Options:   opts,
	})
	require.NoError(t, err)
	require.NotNil(t, run.Result)

	es := run.Result.ES.At(0, 0)
	nes := run.Result.NES.At(0, 0)
	assert.Greater(t, es, 2.0)
	assert.InDelta(t, es*math.Sqrt(30), nes, 1e-9)
	assert.Greater(t, nes, 3.0)
	assert.False(t, run.Fingerprint.IsEmpty())
}

func TestRun_LogsRegulonFilterCounts(t *testing.T) {
	var buf bytes.Buffer
	kit := testkit.NewTestKit()
	svc := app.NewActivityService(kit.RNGAdapter(), kit.ActivityRepository(), internal.NewWriterLogger(&buf, internal.LogLevelDebug))

	regulator := func(name string, from, to int) *regulon.Regulator {
		var targets []string
		var mode []float64
		for i := from; i <= to; i++ {
			targets = append(targets, fmt.Sprintf("g%d", i))
			mode = append(mode, 1)
		}
		r, err := regulon.NewRegulator(name, targets, mode, nil)
		require.NoError(t, err)
		return r
	}
	large, small := regulator("A", 1, 30), regulator("B", 31, 33)
	net, err := regulon.NewNetwork(large, small)
	require.NoError(t, err)

	opts := activity.DefaultOptions()
	opts.FilterGenes = false
	run, err := svc.Run(context.Background(), app.ActivityRequest{
		Signature: rankedSignature(t, 200),
		Network:   net,
		Options:   opts,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, run.Result.Regulators)
	assert.Contains(t, buf.String(), "regulon filter kept 1 of 2 regulators (1 below size, 0 without weight)")
}

func TestRun_FilterToEmptyReturnsZeroRows(t *testing.T) {
	svc := newService(testkit.NewTestKit())

	run, err := svc.Run(context.Background(), app.ActivityRequest{
		Signature: rankedSignature(t, 100),
		Network:   singleRegulon(t, "A", 10),
		Options:   activity.DefaultOptions(),
	})
	require.NoError(t, err)
	rows, cols := run.Result.Dims()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 1, cols)
}

func TestRun_ConflictingOptionsPreferPleiotropy(t *testing.T) {
	kit := testkit.NewTestKit()
	ds, err := kit.Dataset(7)
	require.NoError(t, err)

	opts := activity.DefaultOptions()
	opts.Pleiotropy = true
	opts.Bootstraps = 5

	run, err := newService(kit).Run(context.Background(), app.ActivityRequest{
		Signature: ds.Signature,
		Network:   ds.Network,
		Options:   opts,
	})
	require.NoError(t, err)
	assert.Nil(t, run.Bootstrap)
	require.NotNil(t, run.Result)
	assert.Equal(t, 0, run.Options.Bootstraps)
	assert.True(t, hasWarning(run, core.ErrConflictingOptions.Error()))
}

func TestRun_DetectsActiveRegulators(t *testing.T) {
	kit := testkit.NewTestKit()
	ds, err := kit.Dataset(11)
	require.NoError(t, err)

	run, err := newService(kit).Run(context.Background(), app.ActivityRequest{
		Signature: ds.Signature,
		Network:   ds.Network,
		Options:   activity.DefaultOptions(),
	})
	require.NoError(t, err)

	i := run.Result.RegulatorIndex(ds.Active[0])
	require.GreaterOrEqual(t, i, 0)
	assert.Greater(t, run.Result.NES.At(i, 0), 2.0, "shifted up in even samples")
	assert.Less(t, run.Result.NES.At(i, 1), -2.0, "shifted down in odd samples")
}

func TestRun_NullCalibrationKeepsSign(t *testing.T) {
	kit := testkit.NewTestKit()
	config := testkit.DefaultGeneratorConfig()
	config.Seed = 11
	gen := testkit.NewGenerator(config)
	ds, err := gen.Generate()
	require.NoError(t, err)
	null, err := gen.NullMatrix(ds.Signature.Genes(), 200)
	require.NoError(t, err)

	svc := newService(kit)
	plain, err := svc.Run(context.Background(), app.ActivityRequest{Signature: ds.Signature, Network: ds.Network, Options: activity.DefaultOptions()})
	require.NoError(t, err)
	calibrated, err := svc.Run(context.Background(), app.ActivityRequest{Signature: ds.Signature, Network: ds.Network, Options: activity.DefaultOptions(), Null: null})
	require.NoError(t, err)

	assert.True(t, calibrated.Calibrated)
	i := calibrated.Result.RegulatorIndex(ds.Active[0])
	require.GreaterOrEqual(t, i, 0)
	assert.Greater(t, calibrated.Result.NES.At(i, 0), 0.0)
	assert.Less(t, calibrated.Result.NES.At(i, 1), 0.0)
	assert.Equal(t, plain.Result.ES.At(i, 0), calibrated.Result.ES.At(i, 0), "calibration only rewrites NES")
}

func TestRun_BootstrapIsSeededAndWorkerInvariant(t *testing.T) {
	kit := testkit.NewTestKit()
	ds, err := kit.Dataset(5)
	require.NoError(t, err)

	opts := activity.DefaultOptions()
	opts.Bootstraps = 5
	seq, err := newService(kit).Run(context.Background(), app.ActivityRequest{Signature: ds.Signature, Network: ds.Network, Options: opts})
	require.NoError(t, err)

	opts.Workers = 3
	par, err := newService(kit).Run(context.Background(), app.ActivityRequest{Signature: ds.Signature, Network: ds.Network, Options: opts})
	require.NoError(t, err)

	require.NotNil(t, seq.Bootstrap)
	rows, cols := seq.Bootstrap.Dims()
	assert.Equal(t, ds.Network.Len(), rows)
	assert.Equal(t, 6, cols)
	assert.Equal(t, seq.Fingerprint, par.Fingerprint)
}

func TestRun_PersistsToRepository(t *testing.T) {
	kit := testkit.NewTestKit()
	ds, err := kit.Dataset(3)
	require.NoError(t, err)

	run, err := newService(kit).Run(context.Background(), app.ActivityRequest{Signature: ds.Signature, Network: ds.Network, Options: activity.DefaultOptions()})
	require.NoError(t, err)

	summary, scores, err := kit.ActivityRepository().GetRunScores(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Fingerprint, summary.Fingerprint)
	assert.Len(t, scores, len(run.Regulators())*len(run.Samples()))
}

func TestRun_RepositoryFailureAbortsRun(t *testing.T) {
	repo := new(MockActivityRepository)
	repo.On("SaveRun", mock.Anything, mock.AnythingOfType("*activity.Run")).Return(errors.New("connection refused"))

	svc := app.NewActivityService(testkit.NewTestKit().RNGAdapter(), repo, internal.NewDiscardLogger())
	_, err := svc.Run(context.Background(), app.ActivityRequest{
		Signature: rankedSignature(t, 100),
		Network:   singleRegulon(t, "A", 30),
		Options:   activity.DefaultOptions(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	repo.AssertExpectations(t)
}

func TestRun_InputValidation(t *testing.T) {
	svc := newService(testkit.NewTestKit())
	empty, err := regulon.NewNetwork()
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), app.ActivityRequest{Signature: rankedSignature(t, 10), Network: empty, Options: activity.DefaultOptions()})
	assert.True(t, errors.Is(err, core.ErrInputShape))

	_, err = svc.Run(context.Background(), app.ActivityRequest{Network: singleRegulon(t, "A", 5), Options: activity.DefaultOptions()})
	assert.True(t, errors.Is(err, core.ErrInputShape))

	other := rankedSignature(t, 10)
	unrelated, err := regulon.NewRegulator("B", []string{"x1", "x2"}, []float64{1, 1}, nil)
	require.NoError(t, err)
	net, err := regulon.NewNetwork(unrelated)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), app.ActivityRequest{Signature: other, Network: net, Options: activity.DefaultOptions()})
	assert.True(t, errors.Is(err, core.ErrNoGeneOverlap))
}

func TestBuildNull_FallsBackForSmallGroups(t *testing.T) {
	kit := testkit.NewTestKit()
	ds, err := kit.Dataset(9)
	require.NoError(t, err)
	svc := newService(kit)
	samples := ds.Signature.Samples()

	full, err := svc.BuildNull(context.Background(), app.NullRequest{
		Matrix: ds.Signature, GroupA: samples[:3], GroupB: samples[3:], Permutations: 20, Seed: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, nullmodel.MethodSamplePermutation, full.Method)

	small, err := svc.BuildNull(context.Background(), app.NullRequest{
		Matrix: ds.Signature, GroupA: samples[:2], GroupB: samples[2:4], Permutations: 20, Seed: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, nullmodel.MethodGenePermutation, small.Method)
	assert.NotEmpty(t, small.Warnings)

	_, err = svc.BuildNull(context.Background(), app.NullRequest{
		Matrix: ds.Signature, GroupA: []string{"missing"}, GroupB: samples[:3], Permutations: 5,
	})
	assert.True(t, errors.Is(err, core.ErrInputShape))
}

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/adapters/stats/registry"
	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal"
	apperrors "gostamp/internal/errors"
	"gostamp/internal/metrics"
	"gostamp/internal/testkit"
)

func feature(key string, a, b, ta, tb int) comparison.Feature {
	return comparison.Feature{
		Key:         core.FeatureKey(key),
		Observation: stats.Observation{CountA: a, CountB: b, TotalA: ta, TotalB: tb},
	}
}

func newService(opts ...ServiceOption) *ComparisonService {
	kit := testkit.NewTestKit()
	opts = append([]ServiceOption{WithLogger(internal.NewNopLogger()), WithWorkers(4)}, opts...)
	return NewComparisonService(registry.New(kit.RNGAdapter()), opts...)
}

func TestRunTwoGroupIsolatesFailedFeatures(t *testing.T) {
	svc := newService()
	run, err := svc.RunTwoGroup(context.Background(), TwoGroupRequest{
		Features: []comparison.Feature{
			feature("enriched", 30, 10, 50, 50),
			feature("broken", 60, 10, 50, 50),
			feature("flat", 5, 5, 50, 50),
		},
		Test:       "fishers",
		Correction: "bonferroni",
		Alpha:      0.05,
	})
	require.NoError(t, err)
	require.Len(t, run.Features, 3)
	assert.Equal(t, comparison.KindTwoGroup, run.Kind)
	assert.Equal(t, "fishers", run.TestName)

	enriched, broken, flat := run.Features[0], run.Features[1], run.Features[2]
	assert.Equal(t, core.FeatureKey("enriched"), enriched.Key)
	require.NotNil(t, enriched.Correction)
	assert.True(t, enriched.Correction.Reject)
	// two tested features
	assert.InDelta(t, 2*enriched.Test.PTwoSided, enriched.Correction.AdjustedP, 1e-12)
	assert.True(t, enriched.Significant())

	assert.NotEmpty(t, broken.Error)
	assert.Nil(t, broken.Test)
	assert.Nil(t, broken.Correction)
	assert.False(t, broken.Significant())

	require.NotNil(t, flat.Correction)
	assert.False(t, flat.Correction.Reject)

	total, rejected, failed := run.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, failed)
}

func TestRunTwoGroupWithIntervalAndEffectFilter(t *testing.T) {
	svc := newService()
	run, err := svc.RunTwoGroup(context.Background(), TwoGroupRequest{
		Features: []comparison.Feature{
			feature("large", 30, 10, 50, 50),
			feature("small", 26, 24, 50, 50),
		},
		Test:            "diff_between_proportions",
		CI:              "newcombe_wilson",
		EffectFilter:    "difference_of_proportions",
		EffectThreshold: 0.2,
		Correction:      "benjamini_hochberg",
		Alpha:           0.05,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.95, run.Coverage)
	assert.Equal(t, "newcombe_wilson", run.CIName)
	assert.Equal(t, "difference_of_proportions", run.EffectName)

	large := run.Features[0]
	require.NotNil(t, large.CI)
	require.NotNil(t, large.Effect)
	assert.InDelta(t, 0.4, large.Effect.Value, 1e-12)
	assert.Less(t, large.CI.LowerBound, 0.4)
	assert.Greater(t, large.CI.UpperBound, 0.4)
	assert.True(t, large.PassesFilter)
	assert.True(t, large.Significant())

	small := run.Features[1]
	assert.False(t, small.PassesFilter)
	assert.False(t, small.Significant())
}

func TestRunTwoGroupStrictMode(t *testing.T) {
	svc := newService()
	req := TwoGroupRequest{
		Features: []comparison.Feature{feature("absent", 0, 0, 50, 50)},
		Test:     "chi_square",
		Alpha:    0.05,
	}

	run, err := svc.RunTwoGroup(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, run.Features[0].Test)
	assert.Equal(t, 1.0, run.Features[0].Test.PTwoSided)
	assert.NotEmpty(t, run.Features[0].Test.Note)
	assert.Equal(t, "none", run.CorrectionName)

	req.Strict = true
	run, err = svc.RunTwoGroup(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, run.Features[0].Test)
	assert.Contains(t, run.Features[0].Error, core.ErrDegenerateCase.Error())
}

func TestRunTwoGroupRejectsBadRequests(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	features := []comparison.Feature{feature("a", 1, 2, 10, 10)}

	_, err := svc.RunTwoGroup(ctx, TwoGroupRequest{Features: features, Test: "fishers", Alpha: 1})
	assert.True(t, core.IsInvalidInput(err))

	_, err = svc.RunTwoGroup(ctx, TwoGroupRequest{Test: "fishers", Alpha: 0.05})
	assert.True(t, core.IsInvalidInput(err))

	dup := []comparison.Feature{feature("a", 1, 2, 10, 10), feature("a", 3, 4, 10, 10)}
	_, err = svc.RunTwoGroup(ctx, TwoGroupRequest{Features: dup, Test: "fishers", Alpha: 0.05})
	assert.True(t, core.IsInvalidInput(err))

	_, err = svc.RunTwoGroup(ctx, TwoGroupRequest{Features: features, Test: "welch", Alpha: 0.05})
	assert.True(t, core.IsUnsupportedConfiguration(err))

	_, err = svc.RunTwoGroup(ctx, TwoGroupRequest{
		Features:        features,
		Test:            "fishers",
		TestPreferences: stats.Preferences{"Replicates": 10},
		Alpha:           0.05,
	})
	assert.True(t, core.IsUnsupportedConfiguration(err))
}

func TestRunTwoGroupCancelled(t *testing.T) {
	svc := newService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunTwoGroup(ctx, TwoGroupRequest{
		Features: []comparison.Feature{feature("a", 1, 2, 10, 10)},
		Test:     "fishers",
		Alpha:    0.05,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTwoGroupSyntheticProfile(t *testing.T) {
	features := testkit.NewProfileGenerator(testkit.DefaultProfileConfig()).TwoGroupFeatures()
	svc := newService()

	run, err := svc.RunTwoGroup(context.Background(), TwoGroupRequest{
		Features:   features,
		Test:       "fishers",
		Correction: "benjamini_hochberg",
		Alpha:      0.05,
	})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.True(t, run.Features[i].Significant(), "feature %s", run.Features[i].Key)
	}
}

func TestRunTwoGroupResamplingIsReproducible(t *testing.T) {
	svc := newService()
	req := TwoGroupRequest{
		Features:        []comparison.Feature{feature("a", 12, 5, 40, 40), feature("b", 7, 9, 40, 40)},
		Test:            "permutation",
		TestPreferences: stats.Preferences{"Replicates": 500, "Seed": 7},
		Alpha:           0.05,
	}
	first, err := svc.RunTwoGroup(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.RunTwoGroup(context.Background(), req)
	require.NoError(t, err)

	for i := range first.Features {
		assert.Equal(t, first.Features[i].Test.PTwoSided, second.Features[i].Test.PTwoSided)
	}
}

func TestRunMultiGroupWithPostHoc(t *testing.T) {
	svc := newService()
	run, err := svc.RunMultiGroup(context.Background(), MultiGroupRequest{
		Features: []comparison.GroupedFeature{
			{Key: "separated", Groups: [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}},
			{Key: "identical", Groups: [][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}},
			{Key: "single", Groups: [][]float64{{1, 2, 3}}},
		},
		Test:       "anova",
		Correction: "bonferroni",
		PostHoc:    "scheffe",
		Alpha:      0.05,
	})
	require.NoError(t, err)
	assert.Equal(t, comparison.KindMultiGroup, run.Kind)
	assert.Equal(t, "scheffe", run.PostHocName)

	separated := run.GroupFeatures[0]
	require.NotNil(t, separated.Test)
	assert.InDelta(t, 27.0, separated.Test.Statistic, 1e-9)
	require.NotNil(t, separated.Correction)
	assert.True(t, separated.Correction.Reject)
	assert.InDelta(t, 2*separated.Test.PValue, separated.Correction.AdjustedP, 1e-12)
	require.NotNil(t, separated.PostHoc)
	assert.Len(t, separated.PostHoc.Pairs, 3)

	identical := run.GroupFeatures[1]
	require.NotNil(t, identical.Correction)
	assert.False(t, identical.Correction.Reject)
	assert.Nil(t, identical.PostHoc)

	single := run.GroupFeatures[2]
	assert.NotEmpty(t, single.Error)
	assert.Nil(t, single.Correction)
}

func TestRunMultiGroupRejectsBadRequests(t *testing.T) {
	svc := newService()
	groups := []comparison.GroupedFeature{{Key: "a", Groups: [][]float64{{1, 2}, {3, 4}}}}

	_, err := svc.RunMultiGroup(context.Background(), MultiGroupRequest{Features: groups, Test: "anova", Alpha: 0})
	assert.True(t, core.IsInvalidInput(err))

	_, err = svc.RunMultiGroup(context.Background(), MultiGroupRequest{Features: groups, Test: "friedman", Alpha: 0.05})
	assert.True(t, core.IsUnsupportedConfiguration(err))

	_, err = svc.RunMultiGroup(context.Background(), MultiGroupRequest{Features: groups, Test: "anova", PostHoc: "tukey", Alpha: 0.05})
	assert.True(t, core.IsUnsupportedConfiguration(err))
}

func TestRunsArePersisted(t *testing.T) {
	repo := testkit.NewInMemoryComparisonRepository()
	m := metrics.New()
	svc := newService(WithRepository(repo), WithMetrics(m))
	ctx := context.Background()

	run, err := svc.RunTwoGroup(ctx, TwoGroupRequest{
		Features: []comparison.Feature{feature("a", 30, 10, 50, 50)},
		Test:     "fishers",
		Alpha:    0.05,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Count())

	stored, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)

	summaries, err := svc.ListRuns(ctx, 0, -3)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Rejected)

	history, err := svc.FeatureHistory(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, run.ID, history[0].ID)

	history, err = svc.FeatureHistory(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	count, err := testutil.GatherAndCount(m.Registry(), "gostamp_comparison_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.GetRun(ctx, core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestPersistenceFailureIsReported(t *testing.T) {
	repo := testkit.NewInMemoryComparisonRepository()
	repo.SaveErr = errors.New("connection refused")
	svc := newService(WithRepository(repo))

	_, err := svc.RunTwoGroup(context.Background(), TwoGroupRequest{
		Features: []comparison.Feature{feature("a", 3, 1, 10, 10)},
		Test:     "fishers",
		Alpha:    0.05,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
}

func TestServiceWithoutRepository(t *testing.T) {
	svc := newService()
	runs, err := svc.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.GetRun(context.Background(), core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestServiceDefaults(t *testing.T) {
	svc := newService(WithDefaults(0.1, 0.9))
	run, err := svc.RunTwoGroup(context.Background(), TwoGroupRequest{
		Features: []comparison.Feature{feature("a", 30, 10, 50, 50)},
		Test:     "fishers",
		CI:       "asymptotic",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, run.Alpha)
	assert.Equal(t, 0.9, run.Coverage)

	obs := stats.Observation{CountA: 56, CountB: 48, TotalA: 70, TotalB: 80}
	defaulted, err := svc.ConfidenceInterval("asymptotic", nil, obs, 0)
	require.NoError(t, err)
	explicit, err := svc.ConfidenceInterval("asymptotic", nil, obs, 0.9)
	require.NoError(t, err)
	assert.Equal(t, explicit, defaulted)
}

package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
)

func TestProfileGeneratorIsDeterministic(t *testing.T) {
	a := NewProfileGenerator(DefaultProfileConfig()).TwoGroupFeatures()
	b := NewProfileGenerator(DefaultProfileConfig()).TwoGroupFeatures()
	require.Len(t, a, 50)
	assert.Equal(t, a, b)

	for _, f := range a {
		assert.NoError(t, f.Observation.Validate())
	}
	// enriched features carry clearly more reads in group A
	assert.Greater(t, a[0].Observation.CountA, a[0].Observation.CountB)
}

func TestGroupedFeatures(t *testing.T) {
	features := NewProfileGenerator(DefaultProfileConfig()).GroupedFeatures(3, 4)
	require.Len(t, features, 50)
	require.Len(t, features[0].Groups, 3)
	assert.Len(t, features[0].Groups[2], 4)
}

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryComparisonRepository()

	older := &comparison.Run{ID: core.NewRunID(), Kind: comparison.KindTwoGroup, CompletedAt: time.Now().Add(-time.Hour)}
	newer := &comparison.Run{ID: core.NewRunID(), Kind: comparison.KindMultiGroup, CompletedAt: time.Now()}
	require.NoError(t, repo.SaveRun(ctx, older))
	require.NoError(t, repo.SaveRun(ctx, newer))
	require.NoError(t, repo.SaveRun(ctx, newer))
	assert.Equal(t, 2, repo.Count())

	got, err := repo.GetRun(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	_, err = repo.GetRun(ctx, core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))

	list, err := repo.ListRuns(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	list, err = repo.ListRuns(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

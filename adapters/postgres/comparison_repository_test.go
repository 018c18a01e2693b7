package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gostamp/adapters/postgres/migrations"
	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal"
)

func sampleRun() *comparison.Run {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &comparison.Run{
		ID:             core.NewRunID(),
		Kind:           comparison.KindTwoGroup,
		TestName:       "fishers",
		CorrectionName: "bonferroni",
		Alpha:          0.05,
		Features: []comparison.FeatureResult{
			{
				Key:          "otu_1",
				Test:         &stats.TestResult{PTwoSided: 0.001},
				Correction:   &stats.Correction{AdjustedP: 0.002, Reject: true},
				PassesFilter: true,
			},
			{Key: "otu_2", Error: "invalid input"},
		},
		StartedAt:   start,
		CompletedAt: start.Add(time.Second),
	}
}

func TestFeatureRows(t *testing.T) {
	run := sampleRun()
	rows := featureRows(run)
	require.Len(t, rows, 2)

	assert.Equal(t, run.ID.String(), rows[0].RunID)
	assert.True(t, rows[0].PValue.Valid)
	assert.Equal(t, 0.002, rows[0].AdjustedP.Float64)
	assert.True(t, rows[0].Rejected)

	assert.Equal(t, 1, rows[1].Position)
	assert.False(t, rows[1].PValue.Valid)
	assert.False(t, rows[1].Rejected)
	assert.Equal(t, "invalid input", rows[1].Error)
}

// Runs against a live database when GOSTAMP_TEST_DATABASE_URL is set
func TestComparisonRepositoryIntegration(t *testing.T) {
	url := os.Getenv("GOSTAMP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GOSTAMP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, url, 2)
	require.NoError(t, err)
	defer db.Close()

	_, err = migrations.NewMigrator(db, internal.NewNopLogger()).Up(ctx)
	require.NoError(t, err)

	repo := NewComparisonRepository(db)
	run := sampleRun()
	require.NoError(t, repo.SaveRun(ctx, run))
	require.NoError(t, repo.SaveRun(ctx, run))

	stored, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.TestName, stored.TestName)
	require.Len(t, stored.Features, 2)
	assert.Equal(t, 0.002, stored.Features[0].Correction.AdjustedP)

	history, err := repo.RejectedRuns(ctx, "otu_1", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, history)

	_, err = repo.GetRun(ctx, core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))

	list, err := repo.ListRuns(ctx, 5, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}

package comparison

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gostamp/domain/core"
	"gostamp/domain/stats"
)

func TestRunCounts(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := &Run{
		ID:        core.NewRunID(),
		Kind:      KindTwoGroup,
		TestName:  "fishers",
		StartedAt: start,
		Features: []FeatureResult{
			{Key: "a", Correction: &stats.Correction{Reject: true, AdjustedP: 0.01}, PassesFilter: true},
			{Key: "b", Correction: &stats.Correction{Reject: true, AdjustedP: 0.02}, PassesFilter: false},
			{Key: "c", Correction: &stats.Correction{Reject: false, AdjustedP: 0.5}, PassesFilter: true},
			{Key: "d", Error: "invalid input: count_a: 11 outside [0, 10]"},
		},
		CompletedAt: start.Add(1500 * time.Millisecond),
	}

	total, rejected, failed := run.Counts()
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, failed)

	summary := run.Summary()
	assert.Equal(t, run.ID, summary.ID)
	assert.Equal(t, 4, summary.FeatureCount)
	assert.Equal(t, run.CompletedAt, summary.CreatedAt)
	assert.Equal(t, 1500*time.Millisecond, run.Duration())
}

func TestGroupedRunCounts(t *testing.T) {
	run := &Run{
		Kind: KindMultiGroup,
		GroupFeatures: []GroupedFeatureResult{
			{Key: "x", Correction: &stats.Correction{Reject: true}},
			{Key: "y", Error: "degenerate"},
		},
	}
	total, rejected, failed := run.Counts()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, failed)
}

package ports

import (
	"context"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
)

// ComparisonRepository persists completed comparison runs
type ComparisonRepository interface {
	SaveRun(ctx context.Context, run *comparison.Run) error
	GetRun(ctx context.Context, id core.RunID) (*comparison.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]comparison.RunSummary, error)

	// RejectedRuns lists runs, newest first, in which the feature was rejected
	RejectedRuns(ctx context.Context, key core.FeatureKey, limit int) ([]comparison.RunSummary, error)
}

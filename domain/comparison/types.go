package comparison

import (
	"time"

	"gostamp/domain/core"
	"gostamp/domain/stats"
)

// RunKind distinguishes two-group from multi-group comparisons
type RunKind string

const (
	KindTwoGroup   RunKind = "two_group"
	KindMultiGroup RunKind = "multi_group"
)

// Feature is one row of a two-group profile comparison
type Feature struct {
	Key         core.FeatureKey   `json:"key"`
	Observation stats.Observation `json:"observation"`
}

// GroupedFeature is one row of a multi-group comparison: per-sample values
// (usually relative proportions) for each group
type GroupedFeature struct {
	Key    core.FeatureKey `json:"key"`
	Groups [][]float64     `json:"groups"`
}

// FeatureResult is the per-feature outcome of a two-group run.
// Error is set instead of Test when the feature failed; a failed feature is
// never rejected and carries no correction.
type FeatureResult struct {
	Key          core.FeatureKey   `json:"key"`
	Observation  stats.Observation `json:"observation"`
	Test         *stats.TestResult `json:"test,omitempty"`
	CI           *stats.CIResult   `json:"ci,omitempty"`
	Effect       *stats.EffectSize `json:"effect,omitempty"`
	PassesFilter bool              `json:"passes_filter"`
	Correction   *stats.Correction `json:"correction,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Significant reports whether the feature was rejected and passed the effect filter
func (f FeatureResult) Significant() bool {
	return f.Correction != nil && f.Correction.Reject && f.PassesFilter
}

// GroupedFeatureResult is the per-feature outcome of a multi-group run
type GroupedFeatureResult struct {
	Key        core.FeatureKey         `json:"key"`
	Test       *stats.MultiGroupResult `json:"test,omitempty"`
	Correction *stats.Correction       `json:"correction,omitempty"`
	PostHoc    *stats.PostHocResult    `json:"post_hoc,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// Run is a completed comparison, ready for reporting or persistence
type Run struct {
	ID             core.RunID             `json:"id"`
	Kind           RunKind                `json:"kind"`
	TestName       string                 `json:"test"`
	CIName         string                 `json:"ci,omitempty"`
	EffectName     string                 `json:"effect_filter,omitempty"`
	EffectMin      float64                `json:"effect_threshold,omitempty"`
	CorrectionName string                 `json:"correction"`
	PostHocName    string                 `json:"post_hoc,omitempty"`
	Alpha          float64                `json:"alpha"`
	Coverage       float64                `json:"coverage,omitempty"`
	Features       []FeatureResult        `json:"features,omitempty"`
	GroupFeatures  []GroupedFeatureResult `json:"group_features,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    time.Time              `json:"completed_at"`
}

// RunSummary is the list view of a stored run
type RunSummary struct {
	ID             core.RunID `json:"id" db:"id"`
	Kind           RunKind    `json:"kind" db:"kind"`
	TestName       string     `json:"test" db:"test_name"`
	CorrectionName string     `json:"correction" db:"correction_name"`
	FeatureCount   int        `json:"feature_count" db:"feature_count"`
	Rejected       int        `json:"rejected" db:"rejected"`
	Failed         int        `json:"failed" db:"failed"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Counts returns the number of features, rejected features and failed features
func (r *Run) Counts() (total, rejected, failed int) {
	for _, f := range r.Features {
		total++
		if f.Error != "" {
			failed++
		} else if f.Significant() {
			rejected++
		}
	}
	for _, f := range r.GroupFeatures {
		total++
		if f.Error != "" {
			failed++
		} else if f.Correction != nil && f.Correction.Reject {
			rejected++
		}
	}
	return total, rejected, failed
}

// Summary builds the list view of the run
func (r *Run) Summary() RunSummary {
	total, rejected, failed := r.Counts()
	return RunSummary{
		ID:             r.ID,
		Kind:           r.Kind,
		TestName:       r.TestName,
		CorrectionName: r.CorrectionName,
		FeatureCount:   total,
		Rejected:       rejected,
		Failed:         failed,
		CreatedAt:      r.CompletedAt,
	}
}

// Duration returns the wall time of the run
func (r *Run) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

package app

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"gostamp/adapters/stats/registry"
	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/domain/stats"
	"gostamp/internal"
	apperrors "gostamp/internal/errors"
	"gostamp/internal/metrics"
	"gostamp/ports"
)

// ComparisonService runs a selected estimator over every feature of a profile,
// corrects the resulting p-values for multiple comparisons and optionally
// persists the run
type ComparisonService struct {
	registry   *registry.Registry
	repository ports.ComparisonRepository
	metrics    *metrics.Metrics
	logger     *internal.Logger
	workers    int

	defaultAlpha    float64
	defaultCoverage float64
}

// ServiceOption configures a ComparisonService
type ServiceOption func(*ComparisonService)

// WithRepository persists every completed run
func WithRepository(repo ports.ComparisonRepository) ServiceOption {
	return func(s *ComparisonService) { s.repository = repo }
}

// WithMetrics records run and feature metrics
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *ComparisonService) { s.metrics = m }
}

// WithLogger replaces the default logger
func WithLogger(l *internal.Logger) ServiceOption {
	return func(s *ComparisonService) { s.logger = l }
}

// WithWorkers bounds per-feature parallelism
func WithWorkers(n int) ServiceOption {
	return func(s *ComparisonService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDefaults fills an omitted alpha or coverage. A zero alpha keeps
// alpha mandatory.
func WithDefaults(alpha, coverage float64) ServiceOption {
	return func(s *ComparisonService) {
		s.defaultAlpha = alpha
		if coverage > 0 {
			s.defaultCoverage = coverage
		}
	}
}

// NewComparisonService creates the orchestrator
func NewComparisonService(reg *registry.Registry, opts ...ServiceOption) *ComparisonService {
	s := &ComparisonService{
		registry:        reg,
		logger:          internal.DefaultLogger,
		workers:         runtime.NumCPU(),
		defaultCoverage: 0.95,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TwoGroupRequest selects the estimators for a two-group comparison.
// CI and EffectFilter are optional; Correction defaults to "none".
type TwoGroupRequest struct {
	Features []comparison.Feature `json:"features"`

	Test            string            `json:"test"`
	TestPreferences stats.Preferences `json:"test_preferences,omitempty"`

	CI            string            `json:"ci,omitempty"`
	CIPreferences stats.Preferences `json:"ci_preferences,omitempty"`
	Coverage      float64           `json:"coverage,omitempty"`

	EffectFilter      string            `json:"effect_filter,omitempty"`
	EffectPreferences stats.Preferences `json:"effect_preferences,omitempty"`
	EffectThreshold   float64           `json:"effect_threshold,omitempty"`

	Correction            string            `json:"correction,omitempty"`
	CorrectionPreferences stats.Preferences `json:"correction_preferences,omitempty"`
	Alpha                 float64           `json:"alpha"`

	// Strict turns annotated degenerate results into per-feature errors
	Strict bool `json:"strict,omitempty"`
}

// MultiGroupRequest selects the estimators for a multi-group comparison.
// PostHoc runs only on features rejected after correction; empty disables it.
type MultiGroupRequest struct {
	Features   []comparison.GroupedFeature `json:"features"`
	Test       string                      `json:"test"`
	Correction string                      `json:"correction,omitempty"`
	PostHoc    string                      `json:"post_hoc,omitempty"`
	Alpha      float64                     `json:"alpha"`
	Strict     bool                        `json:"strict,omitempty"`
}

// twoGroupPlan holds the estimators resolved for one run
type twoGroupPlan struct {
	test       ports.TwoGroupTest
	ci         ports.ConfidenceInterval
	effect     ports.EffectSizeFilter
	correction ports.MultipleComparison
}

func validateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return core.NewInvalidInputError("alpha", fmt.Sprintf("must be in (0, 1), got %g", alpha))
	}
	return nil
}

func validateKeys[T any](items []T, key func(T) core.FeatureKey) error {
	if len(items) == 0 {
		return core.NewInvalidInputError("features", "at least one feature is required")
	}
	seen := make(map[core.FeatureKey]struct{}, len(items))
	for i, item := range items {
		k := key(item)
		if k == "" {
			return core.NewInvalidInputError("features", fmt.Sprintf("feature %d has an empty key", i))
		}
		if _, dup := seen[k]; dup {
			return core.NewInvalidInputError("features", fmt.Sprintf("duplicate feature key %q", k))
		}
		seen[k] = struct{}{}
	}
	return nil
}

func (s *ComparisonService) resolveTwoGroup(req *TwoGroupRequest) (*twoGroupPlan, error) {
	if req.Alpha == 0 {
		req.Alpha = s.defaultAlpha
	}
	if err := validateAlpha(req.Alpha); err != nil {
		return nil, err
	}
	if err := validateKeys(req.Features, func(f comparison.Feature) core.FeatureKey { return f.Key }); err != nil {
		return nil, err
	}

	plan := &twoGroupPlan{}
	var err error
	if plan.test, err = s.registry.TwoGroupTest(req.Test, req.TestPreferences); err != nil {
		return nil, err
	}
	if req.CI != "" {
		if req.Coverage == 0 {
			req.Coverage = s.defaultCoverage
		}
		if plan.ci, err = s.registry.ConfidenceInterval(req.CI, req.CIPreferences); err != nil {
			return nil, err
		}
	}
	if req.EffectFilter != "" {
		if plan.effect, err = s.registry.EffectSizeFilter(req.EffectFilter, req.EffectPreferences); err != nil {
			return nil, err
		}
	}
	if req.Correction == "" {
		req.Correction = "none"
	}
	if plan.correction, err = s.registry.Correction(req.Correction, req.CorrectionPreferences); err != nil {
		return nil, err
	}
	return plan, nil
}

// RunTwoGroup evaluates every feature in parallel, isolates per-feature
// failures and applies the correction across the successfully tested features
func (s *ComparisonService) RunTwoGroup(ctx context.Context, req TwoGroupRequest) (*comparison.Run, error) {
	plan, err := s.resolveTwoGroup(&req)
	if err != nil {
		return nil, err
	}

	run := &comparison.Run{
		ID:             core.NewRunID(),
		Kind:           comparison.KindTwoGroup,
		TestName:       plan.test.Name(),
		CorrectionName: plan.correction.Name(),
		Alpha:          req.Alpha,
		StartedAt:      time.Now().UTC(),
	}
	if plan.ci != nil {
		run.CIName = plan.ci.Name()
		run.Coverage = req.Coverage
	}
	if plan.effect != nil {
		run.EffectName = plan.effect.Name()
		run.EffectMin = req.EffectThreshold
	}
	logger := s.logger.With("run_id", run.ID.String())
	logger.Info("two-group run started: %d features, test=%s correction=%s", len(req.Features), run.TestName, run.CorrectionName)

	run.Features = make([]comparison.FeatureResult, len(req.Features))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, feature := range req.Features {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			run.Features[i] = s.evaluateFeature(plan, feature, req)
			failed := run.Features[i].Error != ""
			s.metrics.ObserveFeature(plan.test.Name(), failed, time.Since(start))
			if failed {
				logger.Debug("feature %s failed: %s", feature.Key, run.Features[i].Error)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.ObserveRun(string(run.Kind), run.TestName, "cancelled", time.Since(run.StartedAt))
		return nil, err
	}

	if err := s.correctTwoGroup(plan.correction, run.Features, req.Alpha); err != nil {
		return nil, err
	}

	return s.complete(ctx, run, logger)
}

// evaluateFeature runs the test, CI and effect filter for one feature.
// Errors are captured on the result rather than returned.
func (s *ComparisonService) evaluateFeature(plan *twoGroupPlan, feature comparison.Feature, req TwoGroupRequest) comparison.FeatureResult {
	result := comparison.FeatureResult{Key: feature.Key, Observation: feature.Observation, PassesFilter: true}

	test, err := plan.test.HypothesisTest(feature.Observation)
	if err == nil && req.Strict && test.Note != "" {
		err = core.NewDegenerateError(test.Note)
	}
	if err != nil {
		result.Error = err.Error()
		result.PassesFilter = false
		return result
	}
	result.Test = &test

	if plan.ci != nil {
		interval, err := plan.ci.ConfidenceInterval(feature.Observation, req.Coverage)
		if err != nil {
			result.Error = err.Error()
			result.Test = nil
			result.PassesFilter = false
			return result
		}
		result.CI = &interval
	}

	if plan.effect != nil {
		effect, err := plan.effect.EffectSize(feature.Observation)
		if err == nil {
			result.PassesFilter, err = plan.effect.Passes(feature.Observation, req.EffectThreshold)
		}
		if err != nil {
			result.Error = err.Error()
			result.Test = nil
			result.CI = nil
			result.PassesFilter = false
			return result
		}
		result.Effect = &effect
	}
	return result
}

// correctTwoGroup adjusts the p-values of successfully tested features and
// writes each adjustment back to its original position
func (s *ComparisonService) correctTwoGroup(method ports.MultipleComparison, features []comparison.FeatureResult, alpha float64) error {
	var positions []int
	var pValues []float64
	for i, f := range features {
		if f.Test != nil {
			positions = append(positions, i)
			pValues = append(pValues, f.Test.PTwoSided)
		}
	}
	corrections, err := method.Correct(pValues, alpha)
	if err != nil {
		return apperrors.Wrap(err, "multiple-comparison correction failed")
	}
	for j, pos := range positions {
		c := corrections[j]
		features[pos].Correction = &c
	}
	return nil
}

// RunMultiGroup tests every feature across k groups, corrects the p-values
// and runs the post-hoc test on rejected features
func (s *ComparisonService) RunMultiGroup(ctx context.Context, req MultiGroupRequest) (*comparison.Run, error) {
	if req.Alpha == 0 {
		req.Alpha = s.defaultAlpha
	}
	if err := validateAlpha(req.Alpha); err != nil {
		return nil, err
	}
	if err := validateKeys(req.Features, func(f comparison.GroupedFeature) core.FeatureKey { return f.Key }); err != nil {
		return nil, err
	}
	test, err := s.registry.MultiGroupTest(req.Test, nil)
	if err != nil {
		return nil, err
	}
	if req.Correction == "" {
		req.Correction = "none"
	}
	correction, err := s.registry.Correction(req.Correction, nil)
	if err != nil {
		return nil, err
	}
	var postHoc ports.PostHocTest
	if req.PostHoc != "" {
		if postHoc, err = s.registry.PostHocTest(req.PostHoc, nil); err != nil {
			return nil, err
		}
	}

	run := &comparison.Run{
		ID:             core.NewRunID(),
		Kind:           comparison.KindMultiGroup,
		TestName:       test.Name(),
		CorrectionName: correction.Name(),
		Alpha:          req.Alpha,
		StartedAt:      time.Now().UTC(),
	}
	if postHoc != nil {
		run.PostHocName = postHoc.Name()
	}
	logger := s.logger.With("run_id", run.ID.String())
	logger.Info("multi-group run started: %d features, test=%s correction=%s", len(req.Features), run.TestName, run.CorrectionName)

	run.GroupFeatures = make([]comparison.GroupedFeatureResult, len(req.Features))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, feature := range req.Features {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			result := comparison.GroupedFeatureResult{Key: feature.Key}
			outcome, err := test.Test(feature.Groups)
			if err == nil && req.Strict && outcome.Note != "" {
				err = core.NewDegenerateError(outcome.Note)
			}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Test = &outcome
			}
			run.GroupFeatures[i] = result
			s.metrics.ObserveFeature(test.Name(), err != nil, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.ObserveRun(string(run.Kind), run.TestName, "cancelled", time.Since(run.StartedAt))
		return nil, err
	}

	var positions []int
	var pValues []float64
	for i, f := range run.GroupFeatures {
		if f.Test != nil {
			positions = append(positions, i)
			pValues = append(pValues, f.Test.PValue)
		}
	}
	corrections, err := correction.Correct(pValues, req.Alpha)
	if err != nil {
		return nil, apperrors.Wrap(err, "multiple-comparison correction failed")
	}
	for j, pos := range positions {
		c := corrections[j]
		run.GroupFeatures[pos].Correction = &c
	}

	if postHoc != nil {
		for i, f := range run.GroupFeatures {
			if f.Correction == nil || !f.Correction.Reject {
				continue
			}
			result, err := postHoc.PostHoc(req.Features[i].Groups, req.Alpha)
			if err != nil {
				logger.Warn("post-hoc for %s failed: %v", f.Key, err)
				continue
			}
			run.GroupFeatures[i].PostHoc = &result
		}
	}

	return s.complete(ctx, run, logger)
}

// complete stamps, records and optionally persists a finished run
func (s *ComparisonService) complete(ctx context.Context, run *comparison.Run, logger *internal.Logger) (*comparison.Run, error) {
	run.CompletedAt = time.Now().UTC()
	total, rejected, failed := run.Counts()
	s.metrics.ObserveRun(string(run.Kind), run.TestName, "ok", run.Duration())
	s.metrics.AddRejected(run.CorrectionName, rejected)
	logger.Info("run finished in %s: %d features, %d rejected, %d failed", run.Duration(), total, rejected, failed)

	if s.repository != nil {
		if err := s.repository.SaveRun(ctx, run); err != nil {
			logger.Error("failed to persist run: %v", err)
			return nil, apperrors.DatabaseError("failed to persist run", err)
		}
	}
	return run, nil
}

// GetRun loads a persisted run
func (s *ComparisonService) GetRun(ctx context.Context, id core.RunID) (*comparison.Run, error) {
	if s.repository == nil {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return s.repository.GetRun(ctx, id)
}

// ListRuns pages through persisted runs, newest first
func (s *ComparisonService) ListRuns(ctx context.Context, limit, offset int) ([]comparison.RunSummary, error) {
	if s.repository == nil {
		return []comparison.RunSummary{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repository.ListRuns(ctx, limit, offset)
}

// FeatureHistory lists persisted runs in which the feature was rejected
func (s *ComparisonService) FeatureHistory(ctx context.Context, key core.FeatureKey, limit int) ([]comparison.RunSummary, error) {
	if s.repository == nil {
		return []comparison.RunSummary{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repository.RejectedRuns(ctx, key, limit)
}

// ConfidenceInterval computes one interval, filling an omitted coverage with
// the service default
func (s *ComparisonService) ConfidenceInterval(name string, prefs stats.Preferences, obs stats.Observation, coverage float64) (stats.CIResult, error) {
	if coverage == 0 {
		coverage = s.defaultCoverage
	}
	method, err := s.registry.ConfidenceInterval(name, prefs)
	if err != nil {
		return stats.CIResult{}, err
	}
	return method.ConfidenceInterval(obs, coverage)
}

// Registry exposes the estimator registry to outer surfaces
func (s *ComparisonService) Registry() *registry.Registry {
	return s.registry
}

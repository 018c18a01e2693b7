package testkit

import (
	"context"
	"sort"
	"sync"

	"gostamp/domain/comparison"
	"gostamp/domain/core"
	"gostamp/internal/rng"
	"gostamp/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repository *InMemoryComparisonRepository
	streams    *rng.Streams
}

// NewTestKit creates a new test kit instance with an empty in-memory repository
func NewTestKit() *TestKit {
	return &TestKit{
		repository: NewInMemoryComparisonRepository(),
		streams:    rng.NewStreams(),
	}
}

// Repository returns the shared in-memory repository
func (t *TestKit) Repository() *InMemoryComparisonRepository {
	return t.repository
}

// RNGAdapter returns the deterministic RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.streams
}

// InMemoryComparisonRepository implements ComparisonRepository with in-memory storage
type InMemoryComparisonRepository struct {
	runs  map[core.RunID]*comparison.Run
	order []core.RunID
	mu    sync.RWMutex

	// SaveErr, when set, is returned by SaveRun
	SaveErr error
}

// NewInMemoryComparisonRepository creates an empty repository
func NewInMemoryComparisonRepository() *InMemoryComparisonRepository {
	return &InMemoryComparisonRepository{
		runs: make(map[core.RunID]*comparison.Run),
	}
}

// SaveRun stores a copy of the run, replacing any run with the same ID
func (r *InMemoryComparisonRepository) SaveRun(ctx context.Context, run *comparison.Run) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; !exists {
		r.order = append(r.order, run.ID)
	}
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

// GetRun returns a stored run
func (r *InMemoryComparisonRepository) GetRun(ctx context.Context, id core.RunID) (*comparison.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	stored := *run
	return &stored, nil
}

// ListRuns returns summaries newest first
func (r *InMemoryComparisonRepository) ListRuns(ctx context.Context, limit, offset int) ([]comparison.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]comparison.RunSummary, 0, len(r.order))
	for _, id := range r.order {
		summaries = append(summaries, r.runs[id].Summary())
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if offset >= len(summaries) {
		return []comparison.RunSummary{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(summaries) {
		end = len(summaries)
	}
	return summaries[offset:end], nil
}

// RejectedRuns lists runs in which the feature was rejected, newest first
func (r *InMemoryComparisonRepository) RejectedRuns(ctx context.Context, key core.FeatureKey, limit int) ([]comparison.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := []comparison.RunSummary{}
	for _, id := range r.order {
		run := r.runs[id]
		if rejectedIn(run, key) {
			summaries = append(summaries, run.Summary())
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func rejectedIn(run *comparison.Run, key core.FeatureKey) bool {
	for _, f := range run.Features {
		if f.Key == key && f.Significant() {
			return true
		}
	}
	for _, f := range run.GroupFeatures {
		if f.Key == key && f.Correction != nil && f.Correction.Reject {
			return true
		}
	}
	return false
}

// Count returns the number of stored runs
func (r *InMemoryComparisonRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

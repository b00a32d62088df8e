package testkit

import (
	"context"
	"sort"
	"sync"

	"goviper/adapters/rng"
	"goviper/domain/activity"
	"goviper/domain/core"
	"goviper/internal/errors"
	"goviper/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo *InMemoryActivityRepository // Shared repository instance
	rng  *rng.Source
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{
		repo: NewInMemoryActivityRepository(),
		rng:  rng.NewSource(),
	}
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// ActivityRepository returns the shared in-memory repository
func (t *TestKit) ActivityRepository() *InMemoryActivityRepository {
	return t.repo
}

// Dataset generates a synthetic dataset with the default configuration and
// the given seed
func (t *TestKit) Dataset(seed int64) (*Dataset, error) {
	config := DefaultGeneratorConfig()
	config.Seed = seed
	return NewGenerator(config).Generate()
}

// InMemoryActivityRepository implements ActivityRepository with in-memory storage
type InMemoryActivityRepository struct {
	runs   map[core.RunID]activity.RunSummary
	scores map[core.RunID][]activity.Score
	mu     sync.RWMutex
}

func NewInMemoryActivityRepository() *InMemoryActivityRepository {
	return &InMemoryActivityRepository{
		runs:   make(map[core.RunID]activity.RunSummary),
		scores: make(map[core.RunID][]activity.Score),
	}
}

func (s *InMemoryActivityRepository) SaveRun(ctx context.Context, run *activity.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = activity.RunSummary{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		Regulators:  len(run.Regulators()),
		Samples:     len(run.Samples()),
		Bootstrap:   run.Bootstrap != nil,
		Fingerprint: run.Fingerprint,
	}
	s.scores[run.ID] = run.Scores()
	return nil
}

func (s *InMemoryActivityRepository) GetRunScores(ctx context.Context, id core.RunID) (*activity.RunSummary, []activity.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[id]
	if !ok {
		return nil, nil, errors.NotFound("run " + id.String())
	}
	return &summary, append([]activity.Score(nil), s.scores[id]...), nil
}

func (s *InMemoryActivityRepository) ListRuns(ctx context.Context, limit int) ([]activity.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]activity.RunSummary, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ ports.ActivityRepository = (*InMemoryActivityRepository)(nil)

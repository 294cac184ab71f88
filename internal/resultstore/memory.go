package resultstore

import (
	"context"
	"sort"
	"sync"

	"eduai/internal/models"
)

// Memory keeps results in process. It backs tests and single-node demos.
type Memory struct {
	mu      sync.RWMutex
	results []models.GradingResult
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) AppendResult(ctx context.Context, res models.GradingResult) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
	return nil
}

func (m *Memory) ListByStudent(ctx context.Context, studentID string) ([]models.GradingResult, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.GradingResult, 0)
	for _, r := range m.results {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	sortByGradedAt(out)
	return out, nil
}

func (m *Memory) ListAll(ctx context.Context) ([]models.GradingResult, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.GradingResult(nil), m.results...)
	sortByGradedAt(out)
	return out, nil
}

func sortByGradedAt(rs []models.GradingResult) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].GradedAt.Before(rs[j].GradedAt) })
}

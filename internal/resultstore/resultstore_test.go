package resultstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eduai/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Name() string { return "mock" }

func (m *mockStore) AppendResult(ctx context.Context, res models.GradingResult) error {
	return m.Called(ctx, res).Error(0)
}

func (m *mockStore) ListByStudent(ctx context.Context, studentID string) ([]models.GradingResult, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).([]models.GradingResult), args.Error(1)
}

func (m *mockStore) ListAll(ctx context.Context) ([]models.GradingResult, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.GradingResult), args.Error(1)
}

func TestFanoutWritesEveryStoreDespiteFailure(t *testing.T) {
	failing := &mockStore{}
	failing.On("AppendResult", mock.Anything, mock.Anything).Return(errors.New("sheets quota"))
	mem := NewMemory()

	f := NewFanout(failing, mem)
	err := f.AppendResult(context.Background(), models.GradingResult{StudentID: "s1", Grade: "A"})
	require.ErrorContains(t, err, "mock: sheets quota")

	got, err := mem.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	failing.AssertExpectations(t)
}

func TestFanoutReadsPrimary(t *testing.T) {
	primary := &mockStore{}
	primary.On("ListByStudent", mock.Anything, "s1").Return([]models.GradingResult{{StudentID: "s1"}}, nil)
	secondary := &mockStore{}

	got, err := NewFanout(primary, secondary).ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	secondary.AssertNotCalled(t, "ListByStudent", mock.Anything, mock.Anything)
}

func TestRecordOrdersByGradedAt(t *testing.T) {
	mem := NewMemory()
	now := time.Now()
	ctx := context.Background()
	require.NoError(t, mem.AppendResult(ctx, models.GradingResult{StudentID: "s1", Grade: "B", GradedAt: now}))
	require.NoError(t, mem.AppendResult(ctx, models.GradingResult{StudentID: "s1", StudentName: "Asha", Grade: "C", GradedAt: now.Add(-time.Hour)}))
	require.NoError(t, mem.AppendResult(ctx, models.GradingResult{StudentID: "s2", Grade: "A", GradedAt: now}))

	rec, err := Record(ctx, mem, "s1")
	require.NoError(t, err)
	require.Equal(t, "Asha", rec.StudentName)
	require.Len(t, rec.Results, 2)
	require.Equal(t, "C", rec.Results[0].Grade)
}

func TestResultIDIsStableUUIDPerRun(t *testing.T) {
	sub := "590568f1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d76a9c"
	id := ResultID(sub, "6f0c1a52-8f4e-4c1b-9b8e-0d7f3f1e2a10")

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Len(t, id, 36)
	require.Equal(t, id, ResultID(sub, "6f0c1a52-8f4e-4c1b-9b8e-0d7f3f1e2a10"))
	require.NotEqual(t, id, ResultID(sub, "another-run"))
	require.NotEqual(t, id, ResultID("other-submission", "6f0c1a52-8f4e-4c1b-9b8e-0d7f3f1e2a10"))
}

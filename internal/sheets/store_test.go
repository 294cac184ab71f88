package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eduai/internal/models"
)

// fakeValues keeps worksheets as row slices and understands the A1 ranges the store uses.
type fakeValues struct {
	sheets    map[string][][]any
	addCalls  int
	titleHits int
}

func newFakeValues() *fakeValues {
	return &fakeValues{sheets: map[string][][]any{}}
}

func (f *fakeValues) SheetTitles(ctx context.Context, id string) ([]string, error) {
	f.titleHits++
	out := make([]string, 0, len(f.sheets))
	for t := range f.sheets {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeValues) AddSheet(ctx context.Context, id, title string, cols int64) error {
	f.addCalls++
	f.sheets[title] = [][]any{}
	return nil
}

func (f *fakeValues) Get(ctx context.Context, id, rng string) ([][]any, error) {
	title, _, _ := strings.Cut(rng, "!")
	rows := f.sheets[title]
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func (f *fakeValues) Append(ctx context.Context, id, rng string, rows [][]any) error {
	title, _, _ := strings.Cut(rng, "!")
	f.sheets[title] = append(f.sheets[title], rows...)
	return nil
}

func (f *fakeValues) Update(ctx context.Context, id, rng string, rows [][]any) error {
	title, a1, _ := strings.Cut(rng, "!")
	start, _, _ := strings.Cut(a1, ":")
	rowNum, err := strconv.Atoi(strings.TrimLeft(start, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	if err != nil {
		return fmt.Errorf("bad range %s", rng)
	}
	for len(f.sheets[title]) < rowNum {
		f.sheets[title] = append(f.sheets[title], []any{})
	}
	f.sheets[title][rowNum-1] = rows[0]
	return nil
}

func TestAppendResultCreatesSheetAndRoundTrips(t *testing.T) {
	api := newFakeValues()
	s := newStore(api, "sheet-1")
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	res := models.GradingResult{
		SubmissionID: "sub-1", StudentID: "s1", StudentName: "Asha", Subject: "Math",
		Grade: "B", Percentage: 84.5, Strengths: []string{"Fractions"}, GradedAt: at,
		Questions: []models.QuestionFeedback{{Number: "1", Score: "5"}},
	}
	require.NoError(t, s.AppendResult(ctx, res))
	require.NoError(t, s.AppendResult(ctx, models.GradingResult{StudentID: "s2", Grade: "A", Percentage: 95, GradedAt: at}))
	require.Equal(t, 1, api.addCalls)
	require.Equal(t, gradesHeaders, api.sheets[GradesSheet][0])

	got, err := s.ListByStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "sub-1", got[0].SubmissionID)
	require.Equal(t, 84.5, got[0].Percentage)
	require.Len(t, got[0].Questions, 1)
	require.True(t, got[0].GradedAt.Equal(at))
}

func TestListAllFallsBackToFlatColumns(t *testing.T) {
	api := newFakeValues()
	api.sheets[GradesSheet] = [][]any{
		gradesHeaders,
		{"2026-01-05 09:00:00", "s9", "Ravi", "Science", "C", "71%", "Labs; Diagrams", "Units", "", "ok", "sub-9", ""},
		{"", "", "", "", "", "", "", "", "", "", "", ""},
	}
	s := newStore(api, "sheet-1")
	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 71.0, got[0].Percentage)
	require.Equal(t, []string{"Labs", "Diagrams"}, got[0].Strengths)
}

func TestUpsertSyllabusTopicUpdatesMatchingRow(t *testing.T) {
	api := newFakeValues()
	s := newStore(api, "sheet-1")
	s.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	planned := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertSyllabusTopic(ctx, models.SyllabusTopic{Topic: "Algebra", Subject: "Math", DurationHours: 4, PlannedDate: planned, Status: models.TopicNotStarted}))
	require.NoError(t, s.UpsertSyllabusTopic(ctx, models.SyllabusTopic{Topic: "Optics", Subject: "Physics", DurationHours: 3, Status: models.TopicNotStarted}))
	require.NoError(t, s.UpsertSyllabusTopic(ctx, models.SyllabusTopic{Topic: "algebra", Subject: "Math", DurationHours: 4, Status: models.TopicCompleted}))

	topics, err := s.ListSyllabus(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	require.Equal(t, models.TopicCompleted, topics[0].Status)
	require.True(t, topics[0].PlannedDate.Equal(planned))
	require.Equal(t, 4, topics[0].DurationHours)
}

func TestSaveInsightUsesTeacherColumns(t *testing.T) {
	api := newFakeValues()
	s := newStore(api, "sheet-1")
	err := s.SaveInsight(context.Background(), models.StudentInsight{
		StudentName: "Asha", AssignmentScore: 82, Strengths: []string{"Algebra", "Graphs"},
		PredictedScore: 85, LearningStrategy: "Spaced practice", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, "")
	require.NoError(t, err)
	rows := api.sheets[TeacherSheet]
	require.Equal(t, teacherHeaders, rows[0])
	require.Equal(t, "Algebra, Graphs", rows[1][3])
	require.Len(t, rows[1], len(teacherHeaders))
}

func TestColumn(t *testing.T) {
	require.Equal(t, "A", column(1))
	require.Equal(t, "L", column(12))
	require.Equal(t, "AA", column(27))
}

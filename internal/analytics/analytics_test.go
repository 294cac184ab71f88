package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eduai/internal/models"
	"eduai/internal/providers"
)

func history(scores ...float64) models.StudentRecord {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rec := models.StudentRecord{StudentID: "s1", StudentName: "Asha"}
	for i, s := range scores {
		rec.Results = append(rec.Results, models.GradingResult{
			StudentID:  "s1",
			Subject:    []string{"Math", "Science"}[i%2],
			Percentage: s,
			Grade:      []string{"A", "B+", "C"}[i%3],
			Strengths:  []string{"Algebra"},
			Weaknesses: []string{"Units", "units"},
			Skills:     models.SkillsAnalysis{Mastered: []string{"Recall"}},
			GradedAt:   base.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	return rec
}

func TestSummarizeImprovingTrend(t *testing.T) {
	sum := Summarize(history(60, 65, 70, 75, 80))
	require.Equal(t, 5, sum.Count)
	require.Equal(t, 70.0, sum.Mean)
	require.Equal(t, 70.0, sum.Median)
	require.Equal(t, 60.0, sum.Min)
	require.Equal(t, 80.0, sum.Max)
	require.Equal(t, 5.0, sum.Slope)
	require.Equal(t, Improving, sum.Trend)
	require.Equal(t, 80.0, sum.LatestPercentage)
	require.Len(t, sum.Series, 5)
	require.Equal(t, 62.5, sum.Series[1].MovingAvg)
	require.Equal(t, 80.0, sum.Series[4].Trend)
	require.Equal(t, map[string]float64{"Math": 70, "Science": 70}, sum.SubjectAverages)
	require.Equal(t, 2, sum.GradeDistribution["A"])
	require.Equal(t, 2, sum.GradeDistribution["B"])
	require.Equal(t, []Count{{Label: "Units", Count: 10}}, sum.TopWeaknesses)
	require.Equal(t, 5, sum.Skills.Mastered[0].Count)
}

func TestSummarizeOrdersByGradedAt(t *testing.T) {
	rec := history(90, 50)
	rec.Results[0], rec.Results[1] = rec.Results[1], rec.Results[0]
	sum := Summarize(rec)
	require.Equal(t, Declining, sum.Trend)
	require.Equal(t, 50.0, sum.LatestPercentage)
}

func TestSummarizeEmptyAndSingle(t *testing.T) {
	sum := Summarize(models.StudentRecord{StudentID: "x"})
	require.Zero(t, sum.Count)
	require.Equal(t, Steady, sum.Trend)

	sum = Summarize(history(77))
	require.Equal(t, Steady, sum.Trend)
	require.Equal(t, 77.0, sum.Series[0].Trend)
	require.Zero(t, sum.StdDev)
}

func TestMovingAverage(t *testing.T) {
	require.Equal(t, []float64{10, 15, 25, 35}, MovingAverage([]float64{10, 20, 30, 40}, 2))
}

type recordingSink struct {
	saved []models.StudentInsight
	err   error
}

func (r *recordingSink) SaveInsight(ctx context.Context, in models.StudentInsight, notes string) error {
	r.saved = append(r.saved, in)
	return r.err
}

func TestInsightServiceGeneratesAndSaves(t *testing.T) {
	pm := providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "mock", Name: "mock"},
		Provider: providers.NewMockProvider(),
	})
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("sheet offline")}
	svc := NewInsightService(pm, ok, broken)

	in, err := svc.Generate(context.Background(), history(70, 80), InsightInput{SyllabusCompletion: 40})
	require.ErrorContains(t, err, "sheet offline")
	require.Equal(t, "s1", in.StudentID)
	require.Equal(t, 80.0, in.AssignmentScore)
	require.Equal(t, 78.0, in.PredictedScore)
	require.Len(t, ok.saved, 1)
}

func TestInsightServiceNeedsResults(t *testing.T) {
	svc := NewInsightService(providers.NewStaticManager())
	_, err := svc.Generate(context.Background(), models.StudentRecord{StudentID: "s1"}, InsightInput{})
	require.Error(t, err)
}

func TestParseInsightStringScore(t *testing.T) {
	in, err := ParseInsight("```json\n{\"Strengths\":[\"Graphs\"],\"Predicted_Score\":\"88%\",\"Learning_Strategy\":\"Practice\"}\n```")
	require.NoError(t, err)
	require.Equal(t, 88.0, in.PredictedScore)

	_, err = ParseInsight(`{}`)
	require.Error(t, err)
}

func TestBuildInsightPrompt(t *testing.T) {
	p := BuildInsightPrompt(Summarize(history(70, 80)), InsightInput{PYQPerformance: map[string]float64{"2024": 72}, SyllabusCompletion: 55})
	require.Contains(t, p, "- Name: Asha")
	require.Contains(t, p, "- Past Assignment Scores: [70.0, 80.0]")
	require.Contains(t, p, `{"2024":72}`)
	require.Contains(t, p, "- Syllabus Completion: 55.0%")
}

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

const insightPromptTemplate = `You are an advanced AI tutor specializing in student performance analysis.

### Student Data:
- Name: %s
- Past Assignment Scores: %s
- Strong Topics: %s
- Weak Topics: %s
- Past Year Question Performance: %s
- Syllabus Completion: %.1f%%

### Analysis Needed:
1. Strengths & Weaknesses: Identify key strong and weak areas based on assignment performance.
2. Predicted Score: Predict their next exam score based on trends.
3. Improvement Plan: Suggest 3 key actions to improve weak areas.
4. AI Insights: What learning strategies would be best for this student?
5. Motivational Message: Generate a custom motivational message for the student.

Return the insights in JSON format with the following structure exactly:
{
    "Strengths": ["Topic 1", "Topic 2"],
    "Weaknesses": ["Topic 3", "Topic 4"],
    "Predicted_Score": 85,
    "Improvement_Plan": ["Tip 1", "Tip 2", "Tip 3"],
    "Learning_Strategy": "Strategy description",
    "Motivational_Message": "Motivational message"
}`

// InsightInput carries what the teacher knows beyond the grading history.
type InsightInput struct {
	PYQPerformance     map[string]float64 `json:"pyq_performance"`
	SyllabusCompletion float64            `json:"syllabus_completion" validate:"gte=0,lte=100"`
	Notes              string             `json:"notes"`
}

// InsightSink persists generated insights; the sheets store and the Postgres repo both qualify.
type InsightSink interface {
	SaveInsight(ctx context.Context, in models.StudentInsight, notes string) error
}

type InsightService struct {
	providers *providers.Manager
	sinks     []InsightSink
	now       func() time.Time
}

func NewInsightService(pm *providers.Manager, sinks ...InsightSink) *InsightService {
	return &InsightService{providers: pm, sinks: sinks, now: time.Now}
}

// BuildInsightPrompt renders the tutor prompt from a summary and teacher input.
func BuildInsightPrompt(sum StudentSummary, in InsightInput) string {
	scores := make([]string, 0, len(sum.Series))
	for _, p := range sum.Series {
		scores = append(scores, fmt.Sprintf("%.1f", p.Score))
	}
	pyq, _ := json.Marshal(in.PYQPerformance)
	if in.PYQPerformance == nil {
		pyq = []byte("{}")
	}
	name := sum.StudentName
	if name == "" {
		name = sum.StudentID
	}
	return fmt.Sprintf(insightPromptTemplate,
		name,
		"["+strings.Join(scores, ", ")+"]",
		"["+strings.Join(labels(sum.TopStrengths), ", ")+"]",
		"["+strings.Join(labels(sum.TopWeaknesses), ", ")+"]",
		string(pyq),
		in.SyllabusCompletion,
	)
}

type rawInsight struct {
	Strengths           []string `json:"Strengths"`
	Weaknesses          []string `json:"Weaknesses"`
	PredictedScore      any      `json:"Predicted_Score"`
	ImprovementPlan     []string `json:"Improvement_Plan"`
	LearningStrategy    string   `json:"Learning_Strategy"`
	MotivationalMessage string   `json:"Motivational_Message"`
}

// ParseInsight decodes the tutor reply. Predicted_Score may be a number or a string like "82%".
func ParseInsight(raw string) (models.StudentInsight, error) {
	var r rawInsight
	if err := json.Unmarshal([]byte(util.StripCodeFence(raw)), &r); err != nil {
		return models.StudentInsight{}, fmt.Errorf("decode insight: %w", err)
	}
	out := models.StudentInsight{
		Strengths:           nonEmpty(r.Strengths),
		Weaknesses:          nonEmpty(r.Weaknesses),
		ImprovementPlan:     nonEmpty(r.ImprovementPlan),
		LearningStrategy:    strings.TrimSpace(r.LearningStrategy),
		MotivationalMessage: strings.TrimSpace(r.MotivationalMessage),
	}
	switch v := r.PredictedScore.(type) {
	case float64:
		out.PredictedScore = v
	case string:
		out.PredictedScore, _ = strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%")), 64)
	}
	if out.PredictedScore < 0 {
		out.PredictedScore = 0
	}
	if out.PredictedScore > 100 {
		out.PredictedScore = 100
	}
	if len(out.Strengths) == 0 && len(out.Weaknesses) == 0 && out.LearningStrategy == "" {
		return models.StudentInsight{}, errors.New("decode insight: reply has no analysis fields")
	}
	return out, nil
}

// Generate asks the model for an insight on rec and saves it to every sink.
// Sink failures are reported but the insight is still returned.
func (s *InsightService) Generate(ctx context.Context, rec models.StudentRecord, in InsightInput) (models.StudentInsight, error) {
	if len(rec.Results) == 0 {
		return models.StudentInsight{}, fmt.Errorf("student %s has no graded results: %w", rec.StudentID, util.ErrNotFound)
	}
	sum := Summarize(rec)
	resp, _, err := providers.Generate(ctx, s.providers, providers.GenerateRequest{
		Operation:   providers.OpStudentInsight,
		Prompt:      BuildInsightPrompt(sum, in),
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		return models.StudentInsight{}, fmt.Errorf("generate insight: %w", err)
	}
	insight, err := ParseInsight(resp.Text)
	if err != nil {
		return models.StudentInsight{}, err
	}
	insight.StudentID = rec.StudentID
	insight.StudentName = rec.StudentName
	insight.AssignmentScore = sum.LatestPercentage
	insight.CreatedAt = s.now().UTC()

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.SaveInsight(ctx, insight, in.Notes); err != nil {
			errs = append(errs, err)
		}
	}
	return insight, errors.Join(errs...)
}

func labels(cs []Count) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Label)
	}
	return out
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"eduai/internal/models"
	"eduai/internal/util"
)

type rawResult struct {
	Grade         util.LooseString `json:"grade"`
	Percentage    util.LooseString `json:"percentage"`
	Summary       util.LooseString `json:"summary"`
	OriginalNotes struct {
		TeacherComments util.LooseList `json:"teacher_comments"`
		MarginNotes     util.LooseList `json:"margin_notes"`
		Corrections     util.LooseList `json:"corrections"`
	} `json:"original_notes"`
	Questions []struct {
		Number        util.LooseString `json:"question_number"`
		Text          util.LooseString `json:"question_text"`
		StudentAnswer util.LooseString `json:"student_answer"`
		Evaluation    struct {
			Correctness util.LooseString `json:"correctness"`
			Score       util.LooseString `json:"score"`
			Explanation util.LooseString `json:"explanation"`
		} `json:"evaluation"`
		Feedback struct {
			Strengths    util.LooseList   `json:"strengths"`
			Improvements util.LooseList   `json:"improvements"`
			Solution     util.LooseString `json:"solution"`
		} `json:"feedback"`
	} `json:"questions"`
	Strengths   util.LooseList `json:"strengths"`
	Weaknesses  util.LooseList `json:"weaknesses"`
	Suggestions util.LooseList `json:"suggestions"`
	Skills      struct {
		Mastered   util.LooseList `json:"mastered"`
		Developing util.LooseList `json:"developing"`
		NeedsWork  util.LooseList `json:"needs_work"`
	} `json:"skills_analysis"`
	ImprovementPlan struct {
		TopicsToReview      util.LooseList `json:"topics_to_review"`
		RecommendedPractice util.LooseList `json:"recommended_practice"`
		Resources           util.LooseList `json:"resources"`
	} `json:"improvement_plan"`
}

var (
	gradePattern    = regexp.MustCompile(`^[A-DF][+-]?$`)
	fractionPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)\s*$`)
	numberPattern   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// maxListItems caps aggregated strengths and weaknesses.
const maxListItems = 8

// ParseResult decodes a model reply into a GradingResult. Identity fields
// (IDs, student, subject, provider, timestamps) are left for the caller.
func ParseResult(raw string) (models.GradingResult, error) {
	body := extractJSONObject(util.StripCodeFence(raw))
	if body == "" {
		return models.GradingResult{}, fmt.Errorf("%w: no JSON object in reply", util.ErrInvalidGrading)
	}
	var r rawResult
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return models.GradingResult{}, fmt.Errorf("%w: %v", util.ErrInvalidGrading, err)
	}

	pct, hasPct := ParsePercentage(string(r.Percentage))
	grade, hasGrade := NormalizeGrade(string(r.Grade))
	if !hasPct {
		// "grade": "17/20" is common when the model puts the score in the grade field.
		if p, ok := ParsePercentage(string(r.Grade)); ok && !hasGrade {
			pct, hasPct = p, true
		}
	}
	if !hasGrade && !hasPct {
		return models.GradingResult{}, fmt.Errorf("%w: neither grade nor percentage present", util.ErrInvalidGrading)
	}
	if !hasGrade {
		grade = GradeFromPercentage(pct)
	}

	out := models.GradingResult{
		Grade:      grade,
		Percentage: pct,
		Summary:    strings.TrimSpace(string(r.Summary)),
		OriginalNotes: models.OriginalNotes{
			TeacherComments: nonNil(r.OriginalNotes.TeacherComments),
			MarginNotes:     nonNil(r.OriginalNotes.MarginNotes),
			Corrections:     nonNil(r.OriginalNotes.Corrections),
		},
		Skills: models.SkillsAnalysis{
			Mastered:   nonNil(r.Skills.Mastered),
			Developing: nonNil(r.Skills.Developing),
			NeedsWork:  nonNil(r.Skills.NeedsWork),
		},
		ImprovementPlan: models.ImprovementPlan{
			TopicsToReview:      nonNil(r.ImprovementPlan.TopicsToReview),
			RecommendedPractice: nonNil(r.ImprovementPlan.RecommendedPractice),
			Resources:           nonNil(r.ImprovementPlan.Resources),
		},
		Questions: make([]models.QuestionFeedback, 0, len(r.Questions)),
	}
	for i, q := range r.Questions {
		num := strings.TrimSpace(string(q.Number))
		if num == "" {
			num = strconv.Itoa(i + 1)
		}
		out.Questions = append(out.Questions, models.QuestionFeedback{
			Number:        num,
			Text:          strings.TrimSpace(string(q.Text)),
			StudentAnswer: strings.TrimSpace(string(q.StudentAnswer)),
			Correctness:   strings.ToLower(strings.TrimSpace(string(q.Evaluation.Correctness))),
			Score:         strings.TrimSpace(string(q.Evaluation.Score)),
			Explanation:   strings.TrimSpace(string(q.Evaluation.Explanation)),
			Strengths:     nonNil(q.Feedback.Strengths),
			Improvements:  nonNil(q.Feedback.Improvements),
			Solution:      strings.TrimSpace(string(q.Feedback.Solution)),
		})
	}

	out.Strengths = []string(r.Strengths)
	if len(out.Strengths) == 0 {
		var agg []string
		agg = append(agg, out.Skills.Mastered...)
		for _, q := range out.Questions {
			agg = append(agg, q.Strengths...)
		}
		out.Strengths = agg
	}
	out.Weaknesses = []string(r.Weaknesses)
	if len(out.Weaknesses) == 0 {
		var agg []string
		agg = append(agg, out.Skills.NeedsWork...)
		for _, q := range out.Questions {
			agg = append(agg, q.Improvements...)
		}
		out.Weaknesses = agg
	}
	out.Suggestions = []string(r.Suggestions)
	if len(out.Suggestions) == 0 {
		var agg []string
		agg = append(agg, out.ImprovementPlan.RecommendedPractice...)
		for _, t := range out.ImprovementPlan.TopicsToReview {
			agg = append(agg, "Review "+t)
		}
		out.Suggestions = agg
	}
	out.Strengths = dedupe(out.Strengths, maxListItems)
	out.Weaknesses = dedupe(out.Weaknesses, maxListItems)
	out.Suggestions = dedupe(out.Suggestions, maxListItems)
	return out, nil
}

// ParsePercentage understands "85%", "85", "85.5 %", "17/20" and "17 / 20 marks".
func ParsePercentage(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := fractionPattern.FindStringSubmatch(strings.TrimSuffix(strings.ToLower(s), "marks")); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return 0, false
		}
		return ClampPercentage(num / den * 100), true
	}
	if _, isGrade := NormalizeGrade(s); isGrade {
		return 0, false
	}
	n := numberPattern.FindString(s)
	if n == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0, false
	}
	return ClampPercentage(v), true
}

// NormalizeGrade upper-cases and validates a letter grade such as "b+".
func NormalizeGrade(s string) (string, bool) {
	g := strings.ToUpper(strings.TrimSpace(s))
	g = strings.TrimPrefix(g, "GRADE ")
	if gradePattern.MatchString(g) {
		return g, true
	}
	return "", false
}

// GradeFromPercentage maps a percentage onto the A–F scale.
func GradeFromPercentage(p float64) string {
	switch {
	case p >= 90:
		return "A"
	case p >= 80:
		return "B"
	case p >= 70:
		return "C"
	case p >= 60:
		return "D"
	default:
		return "F"
	}
}

func ClampPercentage(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return math.Round(p*100) / 100
}

// extractJSONObject trims prose around the outermost {...} block.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func nonNil(l util.LooseList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

func dedupe(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Package analytics turns a student's grading history into summary statistics
// and chart-ready series.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"eduai/internal/models"
)

const (
	Improving = "improving"
	Declining = "declining"
	Steady    = "steady"

	// trendThreshold is the slope, in percentage points per assignment, that counts as movement.
	trendThreshold = 1.0
	movingWindow   = 5
	topN           = 5
)

type Point struct {
	At           time.Time `json:"at"`
	SubmissionID string    `json:"submission_id"`
	Subject      string    `json:"subject"`
	Score        float64   `json:"score"`
	Trend        float64   `json:"trend"`
	MovingAvg    float64   `json:"moving_avg"`
}

type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type SkillsMatrix struct {
	Mastered   []Count `json:"mastered"`
	Developing []Count `json:"developing"`
	NeedsWork  []Count `json:"needs_work"`
}

type StudentSummary struct {
	StudentID         string             `json:"student_id"`
	StudentName       string             `json:"student_name,omitempty"`
	Count             int                `json:"count"`
	Mean              float64            `json:"mean"`
	Median            float64            `json:"median"`
	StdDev            float64            `json:"std_dev"`
	Min               float64            `json:"min"`
	Max               float64            `json:"max"`
	LatestGrade       string             `json:"latest_grade,omitempty"`
	LatestPercentage  float64            `json:"latest_percentage"`
	Slope             float64            `json:"slope"`
	Trend             string             `json:"trend"`
	Series            []Point            `json:"series"`
	SubjectAverages   map[string]float64 `json:"subject_averages"`
	GradeDistribution map[string]int     `json:"grade_distribution"`
	Skills            SkillsMatrix       `json:"skills"`
	TopStrengths      []Count            `json:"top_strengths"`
	TopWeaknesses     []Count            `json:"top_weaknesses"`
}

// Summarize computes statistics over results, which must belong to one student.
// Results are sorted by GradedAt first.
func Summarize(rec models.StudentRecord) StudentSummary {
	results := append([]models.GradingResult(nil), rec.Results...)
	sort.SliceStable(results, func(i, j int) bool { return results[i].GradedAt.Before(results[j].GradedAt) })

	out := StudentSummary{
		StudentID:         rec.StudentID,
		StudentName:       rec.StudentName,
		Count:             len(results),
		Trend:             Steady,
		Series:            make([]Point, 0, len(results)),
		SubjectAverages:   map[string]float64{},
		GradeDistribution: map[string]int{},
	}
	if len(results) == 0 {
		return out
	}

	scores := make(stats.Float64Data, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Percentage)
	}
	out.Mean = round2(orZero(scores.Mean()))
	out.Median = round2(orZero(scores.Median()))
	out.StdDev = round2(orZero(scores.StandardDeviation()))
	out.Min = orZero(scores.Min())
	out.Max = orZero(scores.Max())
	last := results[len(results)-1]
	out.LatestGrade, out.LatestPercentage = last.Grade, last.Percentage

	trend, slope := regression(scores)
	out.Slope = round2(slope)
	switch {
	case slope >= trendThreshold:
		out.Trend = Improving
	case slope <= -trendThreshold:
		out.Trend = Declining
	}
	moving := MovingAverage(scores, movingWindow)
	for i, r := range results {
		out.Series = append(out.Series, Point{
			At:           r.GradedAt,
			SubmissionID: r.SubmissionID,
			Subject:      r.Subject,
			Score:        r.Percentage,
			Trend:        round2(trend[i]),
			MovingAvg:    round2(moving[i]),
		})
	}

	out.SubjectAverages = SubjectAverages(results)
	var strengths, weaknesses, mastered, developing, needsWork []string
	for _, r := range results {
		out.GradeDistribution[baseGrade(r.Grade)]++
		strengths = append(strengths, r.Strengths...)
		weaknesses = append(weaknesses, r.Weaknesses...)
		mastered = append(mastered, r.Skills.Mastered...)
		developing = append(developing, r.Skills.Developing...)
		needsWork = append(needsWork, r.Skills.NeedsWork...)
	}
	out.TopStrengths = topCounts(strengths, topN)
	out.TopWeaknesses = topCounts(weaknesses, topN)
	out.Skills = SkillsMatrix{
		Mastered:   topCounts(mastered, 0),
		Developing: topCounts(developing, 0),
		NeedsWork:  topCounts(needsWork, 0),
	}
	return out
}

// SubjectAverages averages percentage per subject across any set of results.
func SubjectAverages(results []models.GradingResult) map[string]float64 {
	bySubject := map[string]stats.Float64Data{}
	for _, r := range results {
		key := strings.TrimSpace(r.Subject)
		if key == "" {
			key = "Unspecified"
		}
		bySubject[key] = append(bySubject[key], r.Percentage)
	}
	out := make(map[string]float64, len(bySubject))
	for k, v := range bySubject {
		out[k] = round2(orZero(v.Mean()))
	}
	return out
}

// MovingAverage returns the trailing mean over up to window points for each index.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	out := make([]float64, len(values))
	for i := range values {
		from := i - window + 1
		if from < 0 {
			from = 0
		}
		out[i] = orZero(stats.Mean(values[from : i+1]))
	}
	return out
}

// regression fits score against assignment index and returns the fitted line and its slope.
func regression(scores []float64) ([]float64, float64) {
	fitted := make([]float64, len(scores))
	if len(scores) < 2 {
		copy(fitted, scores)
		return fitted, 0
	}
	series := make(stats.Series, len(scores))
	for i, s := range scores {
		series[i] = stats.Coordinate{X: float64(i), Y: s}
	}
	line, err := stats.LinearRegression(series)
	if err != nil || len(line) != len(scores) {
		copy(fitted, scores)
		return fitted, 0
	}
	for i, c := range line {
		fitted[i] = c.Y
	}
	slope := (line[len(line)-1].Y - line[0].Y) / (line[len(line)-1].X - line[0].X)
	if math.IsNaN(slope) {
		slope = 0
	}
	return fitted, slope
}

func topCounts(items []string, limit int) []Count {
	counts := map[string]int{}
	labels := map[string]string{}
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		key := strings.ToLower(it)
		if _, ok := labels[key]; !ok {
			labels[key] = it
		}
		counts[key]++
	}
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Label: labels[k], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func baseGrade(g string) string {
	g = strings.ToUpper(strings.TrimSpace(g))
	if g == "" {
		return "?"
	}
	return g[:1]
}

func orZero(v float64, err error) float64 {
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

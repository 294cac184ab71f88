package pyq

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
)

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"

	maxProbability = 95.0
	focusThreshold = 60.0
)

type TopicCount struct {
	Name      string  `json:"name" validate:"required"`
	Frequency float64 `json:"frequency" validate:"gte=0"`
}

// ExamTopics is the topic tally of one past paper. Year 0 means the current year.
type ExamTopics struct {
	Year   int          `json:"year"`
	Topics []TopicCount `json:"topics" validate:"dive"`
}

type TopicPrediction struct {
	Topic          string  `json:"topic"`
	Probability    float64 `json:"probability"`
	Trend          string  `json:"trend"`
	SuggestedFocus bool    `json:"suggested_focus"`
}

// PredictTopics weights each paper by 1/(currentYear-year+1) and ranks topics
// by their recency-weighted share of appearances.
func PredictTopics(history []ExamTopics, currentYear int) []TopicPrediction {
	type series struct {
		freqs   []float64
		weights []float64
		total   float64
	}
	byTopic := map[string]*series{}
	order := []string{}
	for _, exam := range history {
		year := exam.Year
		if year == 0 || year > currentYear {
			year = currentYear
		}
		w := 1 / float64(currentYear-year+1)
		for _, t := range exam.Topics {
			s, ok := byTopic[t.Name]
			if !ok {
				s = &series{}
				byTopic[t.Name] = s
				order = append(order, t.Name)
			}
			s.freqs = append(s.freqs, t.Frequency)
			s.weights = append(s.weights, w)
			s.total += t.Frequency
		}
	}

	out := make([]TopicPrediction, 0, len(order))
	for _, name := range order {
		s := byTopic[name]
		var num, den float64
		for i, f := range s.freqs {
			num += f * s.weights[i]
			den += s.weights[i]
		}
		weighted := num / den
		mean, _ := stats.Mean(s.freqs)
		prob := math.Min(maxProbability, weighted/math.Max(s.total, 1)*100)
		prob = math.Round(prob*100) / 100
		trend := TrendDecreasing
		if weighted > mean {
			trend = TrendIncreasing
		}
		out = append(out, TopicPrediction{
			Topic:          name,
			Probability:    prob,
			Trend:          trend,
			SuggestedFocus: prob > focusThreshold,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out
}

type PriorityTopic struct {
	Topic             string `json:"topic"`
	FocusTime         string `json:"focus_time"`
	PracticeQuestions int    `json:"practice_questions"`
}

type PatternStrategy struct {
	Pattern          string `json:"pattern"`
	PracticeStrategy string `json:"practice_strategy"`
}

type Guide struct {
	HighPriority     []PriorityTopic   `json:"high_priority_topics"`
	MediumPriority   []PriorityTopic   `json:"medium_priority_topics"`
	QuestionPatterns []PatternStrategy `json:"question_patterns"`
	TimeAllocation   map[string]string `json:"time_allocation"`
	DifficultyFocus  map[string]string `json:"difficulty_focus"`
}

var defaultDifficultyShare = map[string]float64{"easy": 30, "medium": 40, "hard": 30}

// PreparationGuide turns an analysis into a study plan: topics above 70% are
// high priority, (40,70] medium, the rest are left out.
func PreparationGuide(a Analysis) Guide {
	g := Guide{
		HighPriority:     []PriorityTopic{},
		MediumPriority:   []PriorityTopic{},
		QuestionPatterns: []PatternStrategy{},
		TimeAllocation:   map[string]string{"topics": "60%", "practice": "30%", "revision": "10%"},
		DifficultyFocus:  map[string]string{},
	}
	for _, t := range a.Topics {
		switch {
		case t.Prediction > 70:
			g.HighPriority = append(g.HighPriority, PriorityTopic{Topic: t.Name, FocusTime: "3-4 hours", PracticeQuestions: int(t.Prediction / 10)})
		case t.Prediction > 40:
			g.MediumPriority = append(g.MediumPriority, PriorityTopic{Topic: t.Name, FocusTime: "2-3 hours", PracticeQuestions: int(t.Prediction / 15)})
		}
	}
	for _, p := range a.Patterns {
		g.QuestionPatterns = append(g.QuestionPatterns, PatternStrategy{
			Pattern:          p.Type,
			PracticeStrategy: fmt.Sprintf("Focus on %s type questions with %s practice attempts", p.Type, p.Frequency),
		})
	}
	for _, level := range []string{"easy", "medium", "hard"} {
		share, ok := a.DifficultyDistribution[level]
		if !ok {
			share = defaultDifficultyShare[level]
		}
		g.DifficultyFocus[level] = fmt.Sprintf("Allocate %s of practice time", percent(share))
	}
	return g
}

// TimeAllocation recommends practice time per difficulty from question counts.
// Easy and hard shares are clamped to [20,40], medium to [30,50].
func TimeAllocation(counts map[string]int) map[string]string {
	total := 0
	for _, level := range []string{"easy", "medium", "hard"} {
		total += counts[level]
	}
	if total == 0 {
		return map[string]string{"easy": "30%", "medium": "40%", "hard": "30%"}
	}
	share := func(level string, lo, hi float64) string {
		v := float64(counts[level]) / float64(total) * 100
		return percent(math.Max(lo, math.Min(hi, v)))
	}
	return map[string]string{
		"easy":   share("easy", 20, 40),
		"medium": share("medium", 30, 50),
		"hard":   share("hard", 20, 40),
	}
}

func percent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "%"
}

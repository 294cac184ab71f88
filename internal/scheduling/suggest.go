package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

const (
	dateLayout   = "2006-01-02"
	planningDays = 5
)

const suggestionPrompt = `You are an AI curriculum planner helping a teacher organize their syllabus topics.

Current Syllabus Status:
- Completed Topics: %s
- In Progress: %s
- Not Started: %s

Based on this information, suggest a schedule for the next %d days of topics to cover, starting %s.
Consider:
1. Topics that are "In Progress" should be completed first
2. "Not Started" topics should be scheduled based on their planned dates
3. Topics should follow a logical sequence if possible

Return the suggestions in this exact JSON format:
{
    "%s": ["Topic 1", "Topic 2"],
    "%s": ["Topic 3"]
}

Only include dates and topics that make sense based on the current syllabus data.`

type DayPlan struct {
	Date   string   `json:"date"`
	Topics []string `json:"topics"`
}

type Suggestion struct {
	Days     []DayPlan `json:"days"`
	Fallback bool      `json:"fallback"`
	Provider string    `json:"provider,omitempty"`
}

// PendingTopics orders unfinished topics: In Progress first, then Not Started
// by planned date, undated last.
func PendingTopics(topics []models.SyllabusTopic) []models.SyllabusTopic {
	out := make([]models.SyllabusTopic, 0, len(topics))
	for _, t := range topics {
		if t.Status != models.TopicCompleted {
			out = append(out, t)
		}
	}
	rank := func(t models.SyllabusTopic) int {
		if t.Status == models.TopicInProgress {
			return 0
		}
		return 1
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if rank(a) != rank(b) {
			return rank(a) < rank(b)
		}
		if a.PlannedDate.IsZero() != b.PlannedDate.IsZero() {
			return !a.PlannedDate.IsZero()
		}
		return a.PlannedDate.Before(b.PlannedDate)
	})
	return out
}

func BuildSuggestionPrompt(topics []models.SyllabusTopic, from time.Time) string {
	byStatus := map[string][]string{}
	for _, t := range topics {
		byStatus[t.Status] = append(byStatus[t.Status], t.Topic)
	}
	list := func(status string) string {
		if len(byStatus[status]) == 0 {
			return "None"
		}
		return strings.Join(byStatus[status], ", ")
	}
	d0 := from.Format(dateLayout)
	return fmt.Sprintf(suggestionPrompt,
		list(models.TopicCompleted), list(models.TopicInProgress), list(models.TopicNotStarted),
		planningDays, d0, d0, from.AddDate(0, 0, 1).Format(dateLayout))
}

// SuggestTopics plans the next five days starting at from. When the model
// reply names no known pending topic the deterministic plan is returned.
func SuggestTopics(ctx context.Context, pm *providers.Manager, topics []models.SyllabusTopic, from time.Time) (Suggestion, error) {
	pending := PendingTopics(topics)
	if len(pending) == 0 {
		return Suggestion{Days: []DayPlan{}}, nil
	}
	resp, info, err := providers.Generate(ctx, pm, providers.GenerateRequest{
		Operation:   providers.OpTopicSuggestion,
		Prompt:      BuildSuggestionPrompt(topics, from),
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Suggestion{}, err
		}
		return Suggestion{Days: FallbackPlan(pending, from), Fallback: true}, nil
	}
	days := parseSuggestion(resp.Text, pending)
	if len(days) == 0 {
		return Suggestion{Days: FallbackPlan(pending, from), Fallback: true, Provider: info.Name}, nil
	}
	return Suggestion{Days: days, Provider: info.Name}, nil
}

// FallbackPlan assigns one pending topic per day for up to five days.
func FallbackPlan(pending []models.SyllabusTopic, from time.Time) []DayPlan {
	n := len(pending)
	if n > planningDays {
		n = planningDays
	}
	out := make([]DayPlan, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DayPlan{
			Date:   from.AddDate(0, 0, i).Format(dateLayout),
			Topics: []string{pending[i].Topic},
		})
	}
	return out
}

// parseSuggestion keeps ISO-dated entries whose topics match pending ones,
// sorted by date and capped at five days.
func parseSuggestion(raw string, pending []models.SyllabusTopic) []DayPlan {
	var m map[string]util.LooseList
	if err := json.Unmarshal([]byte(util.StripCodeFence(raw)), &m); err != nil {
		return nil
	}
	known := make(map[string]string, len(pending))
	for _, t := range pending {
		known[strings.ToLower(t.Topic)] = t.Topic
	}
	out := make([]DayPlan, 0, len(m))
	for date, items := range m {
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		day := DayPlan{Date: date}
		for _, it := range items {
			if name, ok := known[strings.ToLower(strings.TrimSpace(it))]; ok {
				day.Topics = append(day.Topics, name)
			}
		}
		if len(day.Topics) > 0 {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > planningDays {
		out = out[:planningDays]
	}
	return out
}

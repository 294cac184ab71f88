package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"eduai/internal/models"
	"eduai/internal/util"
)

// DefaultSessions is how many one-hour sessions a lesson plan is split into.
const DefaultSessions = 6

const sessionPrompt = `You are an AI teaching assistant helping schedule lessons for a teacher.

Full Topic to Schedule: %s
Subject: %s

Current Session: %d/%d
Previous Topics Covered: %s
Time Slot: %s
Duration: Exactly %d hour

Task: Break down and schedule the provided topic across %d one-hour sessions.

For this specific session #%d, provide:
1. The appropriate subtopic or section of the full topic based on a logical progression.
2. A detailed lesson plan that can be completed in EXACTLY %d hour.
3. Specific examples and practice problems appropriate for %s class.
4. Clear learning objectives and outcomes.

Return your suggestions in this exact JSON format:
{
    "topic": "Specific subtopic with clear scope",
    "subject": "%s",
    "time_slot": "%s",
    "duration_hours": %d,
    "lesson_plan": "Detailed breakdown including examples and exercises",
    "reason": "Why this subtopic was chosen and how it fits in the overall sequence",
    "section": "Subsection of the topic",
    "sequence_number": "%d"
}`

type SessionInput struct {
	Topic         string    `json:"topic"`
	Subject       string    `json:"subject"`
	DurationHours int       `json:"duration_hours"`
	Sequence      int       `json:"sequence"`
	Total         int       `json:"total"`
	Previous      []string  `json:"previous"`
	Slot          time.Time `json:"slot"`
}

func BuildSessionPrompt(in SessionInput) string {
	prev := "None"
	if len(in.Previous) > 0 {
		prev = strings.Join(in.Previous, ", ")
	}
	slot := "09:00 AM"
	if !in.Slot.IsZero() {
		slot = in.Slot.Format("03:04 PM")
	}
	hours := in.DurationHours
	if hours <= 0 {
		hours = 1
	}
	return fmt.Sprintf(sessionPrompt,
		in.Topic, in.Subject,
		in.Sequence, in.Total, prev, slot, hours,
		in.Total, in.Sequence, hours, in.Subject,
		in.Subject, slot, hours, in.Sequence)
}

type rawSession struct {
	Topic          util.LooseString `json:"topic"`
	LessonPlan     util.LooseString `json:"lesson_plan"`
	Reason         util.LooseString `json:"reason"`
	Section        util.LooseString `json:"section"`
	SequenceNumber util.LooseString `json:"sequence_number"`
}

// ParseSession decodes one session breakdown. The session title is rendered
// as "[n/N] section: subtopic" from the requested sequence.
func ParseSession(raw string, in SessionInput) (models.LessonSession, error) {
	var r rawSession
	if err := json.Unmarshal([]byte(util.StripCodeFence(raw)), &r); err != nil {
		return models.LessonSession{}, fmt.Errorf("%w: decode lesson session: %v", util.ErrInvalidInput, err)
	}
	sub := strings.TrimSpace(string(r.Topic))
	if sub == "" {
		sub = in.Topic
	}
	section := strings.TrimSpace(string(r.Section))
	title := fmt.Sprintf("[%d/%d] %s", in.Sequence, in.Total, sub)
	if section != "" {
		title = fmt.Sprintf("[%d/%d] %s: %s", in.Sequence, in.Total, section, sub)
	}
	return models.LessonSession{
		Sequence:   in.Sequence,
		Topic:      title,
		Section:    section,
		LessonPlan: strings.TrimSpace(string(r.LessonPlan)),
		Reason:     strings.TrimSpace(string(r.Reason)),
	}, nil
}

// SubtopicOf returns the part of a session title after its "[n/N] section:" prefix.
func SubtopicOf(title string) string {
	if i := strings.Index(title, "] "); i >= 0 {
		title = title[i+2:]
	}
	if i := strings.Index(title, ": "); i >= 0 {
		title = title[i+2:]
	}
	return strings.TrimSpace(title)
}

// EventDescription is the calendar description for a scheduled session.
func EventDescription(s models.LessonSession) string {
	return "Lesson Plan:\n" + s.LessonPlan + "\n\nTeaching Focus:\n" + s.Reason
}

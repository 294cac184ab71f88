// Package calendar schedules lessons in Google Calendar and finds free teaching slots.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	gcal "google.golang.org/api/calendar/v3"

	"eduai/internal/models"
)

const (
	lessonCalendarDescription = "Calendar for AI-scheduled teaching lessons"
	upcomingMaxResults        = 50
	defaultRecurrence         = "RRULE:FREQ=WEEKLY"
)

type Options struct {
	CredentialsFile    string
	CalendarID         string
	Timezone           string
	LessonCalendarName string
}

type Client struct {
	api  calendarAPI
	opts Options
	loc  *time.Location
	now  func() time.Time

	mu             sync.Mutex
	lessonCalendar string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	api, err := newGoogleCalendar(ctx, opts.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return newClient(api, opts)
}

func newClient(api calendarAPI, opts Options) (*Client, error) {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.Timezone == "" {
		opts.Timezone = "Asia/Kolkata"
	}
	if opts.LessonCalendarName == "" {
		opts.LessonCalendarName = "AI-Scheduled-Lessons"
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", opts.Timezone, err)
	}
	return &Client{api: api, opts: opts, loc: loc, now: time.Now}, nil
}

func (c *Client) Location() *time.Location { return c.loc }

// EnsureLessonCalendar finds the lesson calendar by name, creating it on first use.
func (c *Client) EnsureLessonCalendar(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lessonCalendar != "" {
		return c.lessonCalendar, nil
	}
	id, ok, err := c.api.FindCalendar(ctx, c.opts.LessonCalendarName)
	if err != nil {
		return "", err
	}
	if !ok {
		if id, err = c.api.CreateCalendar(ctx, c.opts.LessonCalendarName, c.opts.Timezone, lessonCalendarDescription); err != nil {
			return "", err
		}
	}
	c.lessonCalendar = id
	return id, nil
}

// FreeSlots returns 1-hour slots in [start, end) that are free in both the
// teacher's calendar and the lesson calendar.
func (c *Client) FreeSlots(ctx context.Context, start, end time.Time) ([]models.TimeSlot, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("free slots: end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	ids := []string{c.opts.CalendarID}
	lessonID, err := c.EnsureLessonCalendar(ctx)
	if err != nil {
		return nil, err
	}
	if lessonID != c.opts.CalendarID {
		ids = append(ids, lessonID)
	}
	busy, err := c.api.Busy(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}
	return ComputeFreeSlots(start, end, busy, time.Hour), nil
}

// CreateEvent inserts ev into the lesson calendar unless ev.CalendarID names another one.
func (c *Client) CreateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if strings.TrimSpace(ev.Topic) == "" || strings.TrimSpace(ev.Subject) == "" {
		return models.CalendarEvent{}, fmt.Errorf("create event: subject and topic are required")
	}
	if !ev.End.After(ev.Start) {
		return models.CalendarEvent{}, fmt.Errorf("create event: end must be after start")
	}
	calID := ev.CalendarID
	if calID == "" {
		id, err := c.EnsureLessonCalendar(ctx)
		if err != nil {
			return models.CalendarEvent{}, err
		}
		calID = id
	}
	created, err := c.api.InsertEvent(ctx, calID, c.toGoogle(ev))
	if err != nil {
		return models.CalendarEvent{}, err
	}
	out := fromGoogle(created, c.loc)
	out.CalendarID = calID
	out.Subject, out.Topic = ev.Subject, ev.Topic
	return out, nil
}

// UpdateEvent patches the non-zero fields of ev onto an existing event.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, ev models.CalendarEvent) (models.CalendarEvent, error) {
	calID := ev.CalendarID
	if calID == "" {
		id, err := c.EnsureLessonCalendar(ctx)
		if err != nil {
			return models.CalendarEvent{}, err
		}
		calID = id
	}
	patch := &gcal.Event{}
	if ev.Subject != "" && ev.Topic != "" {
		patch.Summary = summary(ev.Subject, ev.Topic)
	} else if ev.Summary != "" {
		patch.Summary = ev.Summary
	}
	if ev.Description != "" {
		patch.Description = ev.Description
	}
	if ev.Location != "" {
		patch.Location = ev.Location
	}
	if !ev.Start.IsZero() {
		patch.Start = c.eventTime(ev.Start)
	}
	if !ev.End.IsZero() {
		patch.End = c.eventTime(ev.End)
	}
	if ev.Recurring {
		patch.Recurrence = []string{recurrenceRule(ev.RecurrenceRule)}
	}
	updated, err := c.api.PatchEvent(ctx, calID, eventID, patch)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	out := fromGoogle(updated, c.loc)
	out.CalendarID = calID
	return out, nil
}

// UpcomingEvents lists events in the teacher's calendar for the next days.
func (c *Client) UpcomingEvents(ctx context.Context, days int) ([]models.CalendarEvent, error) {
	if days <= 0 {
		days = 7
	}
	now := c.now()
	items, err := c.api.ListEvents(ctx, c.opts.CalendarID, now, now.AddDate(0, 0, days), upcomingMaxResults)
	if err != nil {
		return nil, err
	}
	out := make([]models.CalendarEvent, 0, len(items))
	for _, it := range items {
		ev := fromGoogle(it, c.loc)
		ev.CalendarID = c.opts.CalendarID
		out = append(out, ev)
	}
	return out, nil
}

func (c *Client) toGoogle(ev models.CalendarEvent) *gcal.Event {
	g := &gcal.Event{
		Summary:     summary(ev.Subject, ev.Topic),
		Description: ev.Description,
		Location:    ev.Location,
		Start:       c.eventTime(ev.Start),
		End:         c.eventTime(ev.End),
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 30},
				{Method: "email", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if ev.AllDay {
		g.Start = &gcal.EventDateTime{Date: ev.Start.In(c.loc).Format("2006-01-02")}
		g.End = &gcal.EventDateTime{Date: ev.End.In(c.loc).Format("2006-01-02")}
	}
	if ev.Recurring {
		g.Recurrence = []string{recurrenceRule(ev.RecurrenceRule)}
	}
	return g
}

func (c *Client) eventTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{DateTime: t.In(c.loc).Format(time.RFC3339), TimeZone: c.opts.Timezone}
}

func summary(subject, topic string) string {
	return subject + ": " + topic
}

func recurrenceRule(rule string) string {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return defaultRecurrence
	}
	if !strings.HasPrefix(strings.ToUpper(rule), "RRULE:") {
		return "RRULE:" + rule
	}
	return rule
}

func fromGoogle(g *gcal.Event, loc *time.Location) models.CalendarEvent {
	ev := models.CalendarEvent{
		EventID:     g.Id,
		Summary:     g.Summary,
		Description: g.Description,
		Location:    g.Location,
		Link:        g.HtmlLink,
		Recurring:   len(g.Recurrence) > 0 || g.RecurringEventId != "",
	}
	if len(g.Recurrence) > 0 {
		ev.RecurrenceRule = g.Recurrence[0]
	}
	if subj, topic, ok := strings.Cut(g.Summary, ": "); ok {
		ev.Subject, ev.Topic = subj, topic
	}
	ev.Start, ev.AllDay = parseEventTime(g.Start, loc)
	ev.End, _ = parseEventTime(g.End, loc)
	return ev
}

func parseEventTime(t *gcal.EventDateTime, loc *time.Location) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		v, _ := time.Parse(time.RFC3339, t.DateTime)
		return v, false
	}
	if t.Date != "" {
		v, _ := time.ParseInLocation("2006-01-02", t.Date, loc)
		return v, true
	}
	return time.Time{}, false
}

package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"eduai/internal/models"
)

// calendarAPI is the part of Calendar v3 the client uses.
type calendarAPI interface {
	Busy(ctx context.Context, calendarIDs []string, start, end time.Time) ([]models.TimeSlot, error)
	FindCalendar(ctx context.Context, summary string) (string, bool, error)
	CreateCalendar(ctx context.Context, summary, timezone, description string) (string, error)
	InsertEvent(ctx context.Context, calendarID string, ev *gcal.Event) (*gcal.Event, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, ev *gcal.Event) (*gcal.Event, error)
	ListEvents(ctx context.Context, calendarID string, from, to time.Time, max int64) ([]*gcal.Event, error)
}

type googleCalendar struct {
	svc *gcal.Service
}

func newGoogleCalendar(ctx context.Context, credentialsFile string) (*googleCalendar, error) {
	opts := []option.ClientOption{option.WithScopes(gcal.CalendarScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &googleCalendar{svc: svc}, nil
}

func (g *googleCalendar) Busy(ctx context.Context, calendarIDs []string, start, end time.Time) ([]models.TimeSlot, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
	}
	for _, id := range calendarIDs {
		req.Items = append(req.Items, &gcal.FreeBusyRequestItem{Id: id})
	}
	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query freebusy: %w", err)
	}
	out := make([]models.TimeSlot, 0)
	for _, id := range calendarIDs {
		cal, ok := resp.Calendars[id]
		if !ok {
			continue
		}
		for _, p := range cal.Busy {
			s, err1 := time.Parse(time.RFC3339, p.Start)
			e, err2 := time.Parse(time.RFC3339, p.End)
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, models.TimeSlot{Start: s, End: e})
		}
	}
	return out, nil
}

func (g *googleCalendar) FindCalendar(ctx context.Context, summary string) (string, bool, error) {
	var found string
	err := g.svc.CalendarList.List().Context(ctx).Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == summary {
				found = item.Id
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("list calendars: %w", err)
	}
	return found, found != "", nil
}

func (g *googleCalendar) CreateCalendar(ctx context.Context, summary, timezone, description string) (string, error) {
	cal, err := g.svc.Calendars.Insert(&gcal.Calendar{
		Summary:     summary,
		TimeZone:    timezone,
		Description: description,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create calendar %s: %w", summary, err)
	}
	return cal.Id, nil
}

func (g *googleCalendar) InsertEvent(ctx context.Context, calendarID string, ev *gcal.Event) (*gcal.Event, error) {
	out, err := g.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return out, nil
}

func (g *googleCalendar) PatchEvent(ctx context.Context, calendarID, eventID string, ev *gcal.Event) (*gcal.Event, error) {
	out, err := g.svc.Events.Patch(calendarID, eventID, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("patch event %s: %w", eventID, err)
	}
	return out, nil
}

func (g *googleCalendar) ListEvents(ctx context.Context, calendarID string, from, to time.Time, max int64) ([]*gcal.Event, error) {
	resp, err := g.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(max).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return resp.Items, nil
}

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"eduai/internal/models"
	"eduai/internal/util"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

type eventRequest struct {
	Subject        string    `json:"subject" validate:"required,max=128"`
	Topic          string    `json:"topic" validate:"required,max=256"`
	Description    string    `json:"description" validate:"max=8000"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end" validate:"gtfield=Start"`
	AllDay         bool      `json:"all_day"`
	Recurring      bool      `json:"recurring"`
	RecurrenceRule string    `json:"recurrence_rule" validate:"max=256"`
	Location       string    `json:"location" validate:"max=256"`
}

type eventPatch struct {
	Subject     string    `json:"subject" validate:"max=128"`
	Topic       string    `json:"topic" validate:"max=256"`
	Description string    `json:"description" validate:"max=8000"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location" validate:"max=256"`
}

func (s *Server) requireCalendar(w http.ResponseWriter, r *http.Request) bool {
	if s.calendar == nil {
		s.fail(w, r, http.StatusServiceUnavailable, util.ErrNotConfigured)
		return false
	}
	return true
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	if !s.requireCalendar(w, r) {
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: days must be between 1 and 365", util.ErrInvalidInput))
			return
		}
		days = n
	}
	events, err := s.calendar.UpcomingEvents(r.Context(), days)
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireCalendar(w, r) {
		return
	}
	var req eventRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Start.IsZero() {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: start is required", util.ErrInvalidInput))
		return
	}
	ev, err := s.calendar.CreateEvent(r.Context(), models.CalendarEvent{
		Subject:        req.Subject,
		Topic:          req.Topic,
		Description:    req.Description,
		Start:          req.Start,
		End:            req.End,
		AllDay:         req.AllDay,
		Recurring:      req.Recurring,
		RecurrenceRule: req.RecurrenceRule,
		Location:       req.Location,
	})
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireCalendar(w, r) {
		return
	}
	var req eventPatch
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if !req.Start.IsZero() && !req.End.IsZero() && !req.End.After(req.Start) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: end must be after start", util.ErrInvalidInput))
		return
	}
	ev, err := s.calendar.UpdateEvent(r.Context(), chi.URLParam(r, "id"), models.CalendarEvent{
		Subject:     req.Subject,
		Topic:       req.Topic,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Location:    req.Location,
	})
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleFreeSlots(w http.ResponseWriter, r *http.Request) {
	if !s.requireCalendar(w, r) {
		return
	}
	loc := s.calendar.Location()
	start, end, err := s.window(r, loc, 7)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	slots, err := s.calendar.FreeSlots(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"start": start, "end": end, "slots": slots})
}

// window reads start/end query parameters as RFC 3339 timestamps or plain
// dates in loc. Missing values default to now and now plus defaultDays.
func (s *Server) window(r *http.Request, loc *time.Location, defaultDays int) (time.Time, time.Time, error) {
	now := s.now().In(loc)
	start, err := parseWhen(r.URL.Query().Get("start"), loc, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseWhen(r.URL.Query().Get("end"), loc, start.AddDate(0, 0, defaultDays))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end must be after start", util.ErrInvalidInput)
	}
	return start, end, nil
}

func parseWhen(v string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date or RFC 3339 time", util.ErrInvalidInput, v)
	}
	return t, nil
}

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eduai/internal/models"
	"eduai/internal/scheduling"
	"eduai/internal/util"
	"eduai/internal/workflows"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type syllabusRequest struct {
	Topic         string `json:"topic" validate:"required,max=256"`
	Subject       string `json:"subject" validate:"required,max=128"`
	DurationHours int    `json:"duration_hours" validate:"gte=0,lte=200"`
	PlannedDate   string `json:"planned_date" validate:"omitempty,datetime=2006-01-02"`
	Status        string `json:"status"`
}

type syllabusStatusRequest struct {
	Subject string `json:"subject" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

type lessonPlanRequest struct {
	Topic         string    `json:"topic" validate:"required,max=256"`
	Subject       string    `json:"subject" validate:"required,max=128"`
	DurationHours int       `json:"duration_hours" validate:"gte=0,lte=200"`
	Sessions      int       `json:"sessions" validate:"gte=0,lte=30"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

func (s *Server) location() *time.Location {
	if s.calendar != nil {
		return s.calendar.Location()
	}
	return time.UTC
}

func (s *Server) handleListSyllabus(w http.ResponseWriter, r *http.Request) {
	topics, err := s.syllabus.List(r.Context(), r.URL.Query().Get("subject"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handleAddSyllabus(w http.ResponseWriter, r *http.Request) {
	var req syllabusRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	t := models.SyllabusTopic{
		Topic:         req.Topic,
		Subject:       req.Subject,
		DurationHours: req.DurationHours,
		Status:        req.Status,
		UpdatedAt:     s.now().UTC(),
	}
	if req.PlannedDate != "" {
		d, err := time.ParseInLocation(dateLayout, req.PlannedDate, s.location())
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: planned_date must be YYYY-MM-DD", util.ErrInvalidInput))
			return
		}
		t.PlannedDate = d
	}
	saved, err := s.syllabus.Add(r.Context(), t)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleSetSyllabusStatus(w http.ResponseWriter, r *http.Request) {
	topic, err := url.PathUnescape(chi.URLParam(r, "topic"))
	if err != nil || strings.TrimSpace(topic) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: topic is required", util.ErrInvalidInput))
		return
	}
	var req syllabusStatusRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.syllabus.SetStatus(r.Context(), req.Subject, topic, req.Status); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topic": topic, "subject": req.Subject, "status": req.Status})
}

func (s *Server) handleSyllabusSuggestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject" validate:"max=128"`
	}
	if r.ContentLength > 0 {
		if err := s.decodeJSON(r, &req); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
	}
	topics, err := s.syllabus.List(r.Context(), req.Subject)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	suggestion, err := scheduling.SuggestTopics(r.Context(), s.providers, topics, s.now().In(s.location()))
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (s *Server) handleLessonPlan(w http.ResponseWriter, r *http.Request) {
	var req lessonPlanRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Start.IsZero() {
		req.Start = s.now().In(s.location())
	}
	if req.End.IsZero() {
		req.End = req.Start.AddDate(0, 0, 14)
	}
	if !req.End.After(req.Start) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: end must be after start", util.ErrInvalidInput))
		return
	}
	planID := uuid.NewString()
	run, err := s.startWorkflow(r.Context(), lessonWorkflowID(planID), workflows.LessonPlanWorkflow, workflows.LessonPlanInput{
		PlanID:          planID,
		Topic:           req.Topic,
		Subject:         req.Subject,
		DurationHours:   req.DurationHours,
		Sessions:        req.Sessions,
		Start:           req.Start,
		End:             req.End,
		LLMProviders:    s.providers.LLMCount(),
		CooldownSeconds: s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		s.failStart(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"plan_id": planID, "workflow_id": run.GetID(), "run_id": run.GetRunID()})
}

func (s *Server) handleLessonProgress(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	var progress workflows.LessonPlanProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), lessonWorkflowID(planID), "", workflows.QueryGetLessonPlanProgress)
	if err != nil {
		plan, pErr := s.lessons.Get(r.Context(), planID)
		if pErr != nil {
			s.fail(w, r, http.StatusInternalServerError, pErr)
			return
		}
		scheduled := 0
		for _, sess := range plan.Sessions {
			if sess.EventID != "" {
				scheduled++
			}
		}
		writeJSON(w, http.StatusOK, workflows.LessonPlanProgress{
			PlanID:    plan.PlanID,
			Topic:     plan.Topic,
			Subject:   plan.Subject,
			Status:    plan.Status,
			Total:     len(plan.Sessions),
			Scheduled: scheduled,
			Sessions:  plan.Sessions,
		})
		return
	}
	if err := resp.Get(&progress); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

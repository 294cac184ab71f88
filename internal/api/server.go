package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eduai/internal/analytics"
	"eduai/internal/blob"
	"eduai/internal/chat"
	"eduai/internal/config"
	"eduai/internal/metrics"
	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/pyq"
	"eduai/internal/questions"
	"eduai/internal/resultstore"
	"eduai/internal/scheduling"
	"eduai/internal/storage"
	"eduai/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

type SubmissionStore interface {
	Upsert(ctx context.Context, s models.Submission) error
	Get(ctx context.Context, submissionID string) (models.Submission, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
}

type LessonPlans interface {
	Get(ctx context.Context, planID string) (models.LessonPlan, error)
}

type QuestionBanks interface {
	Get(ctx context.Context, bankID string) (models.QuestionBank, error)
}

type ProviderUsage interface {
	UsageSince(ctx context.Context, hours int) ([]storage.ProviderUsage, error)
}

type CalendarService interface {
	Location() *time.Location
	FreeSlots(ctx context.Context, start, end time.Time) ([]models.TimeSlot, error)
	CreateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, eventID string, ev models.CalendarEvent) (models.CalendarEvent, error)
	UpcomingEvents(ctx context.Context, days int) ([]models.CalendarEvent, error)
}

// Deps wires the server. Calendar and Usage are optional and must be left nil
// rather than set to typed nil pointers.
type Deps struct {
	Submissions SubmissionStore
	Results     resultstore.Store
	Lessons     LessonPlans
	Banks       QuestionBanks
	Usage       ProviderUsage
	Blobs       blob.Store
	Calendar    CalendarService
	Syllabus    *scheduling.Syllabus
	Chat        *chat.Service
	Questions   *questions.Generator
	PYQ         *pyq.Analyzer
	Insights    *analytics.InsightService
	Providers   *providers.Manager
	Temporal    tclient.Client
	Logger      *zap.Logger
}

type Server struct {
	cfg         config.Config
	log         *zap.Logger
	submissions SubmissionStore
	results     resultstore.Store
	lessons     LessonPlans
	banks       QuestionBanks
	usage       ProviderUsage
	blobs       blob.Store
	calendar    CalendarService
	syllabus    *scheduling.Syllabus
	chat        *chat.Service
	questions   *questions.Generator
	pyq         *pyq.Analyzer
	insights    *analytics.InsightService
	providers   *providers.Manager
	temporal    tclient.Client
	validate    *requestValidator
	limiter     *ipLimiter
	now         func() time.Time
}

func NewServer(cfg config.Config, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:         cfg,
		log:         logger,
		submissions: d.Submissions,
		results:     d.Results,
		lessons:     d.Lessons,
		banks:       d.Banks,
		usage:       d.Usage,
		blobs:       d.Blobs,
		calendar:    d.Calendar,
		syllabus:    d.Syllabus,
		chat:        d.Chat,
		questions:   d.Questions,
		pyq:         d.PYQ,
		insights:    d.Insights,
		providers:   d.Providers,
		temporal:    d.Temporal,
		validate:    newRequestValidator(),
		limiter:     newIPLimiter(cfg.HTTPRatePerMinute, time.Minute),
		now:         time.Now,
	}
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/submissions/{id}", s.handleGetSubmission)
		r.Get("/submissions/{id}/progress", s.handleSubmissionProgress)
		r.Get("/batches/{id}/progress", s.handleBatchProgress)
		r.Get("/students/{id}/results", s.handleStudentResults)
		r.Get("/students/{id}/analytics", s.handleStudentAnalytics)
		r.Get("/analytics/subjects", s.handleSubjectAnalytics)
		r.Get("/providers/usage", s.handleProviderUsage)

		r.Get("/chat/contexts", s.handleChatContexts)
		r.Post("/chat/sessions", s.handleCreateChatSession)
		r.Get("/chat/sessions/{id}", s.handleChatHistory)

		r.Get("/calendar/events", s.handleUpcomingEvents)
		r.Post("/calendar/events", s.handleCreateEvent)
		r.Patch("/calendar/events/{id}", s.handleUpdateEvent)
		r.Get("/calendar/free-slots", s.handleFreeSlots)

		r.Get("/syllabus", s.handleListSyllabus)
		r.Post("/syllabus", s.handleAddSyllabus)
		r.Put("/syllabus/{topic}", s.handleSetSyllabusStatus)

		r.Get("/lessons/plan/{id}/progress", s.handleLessonProgress)

		r.Get("/questions/catalog", s.handleQuestionCatalog)
		r.Get("/questions/banks/{id}", s.handleGetBank)
		r.Get("/questions/banks/{id}/export", s.handleExportBank)

		r.Post("/pyq/predict", s.handlePredictTopics)
		r.Post("/pyq/guide", s.handlePreparationGuide)

		// Routes below call a generative model or start grading.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/submissions", s.handleUpload)
			r.Post("/submissions/batch", s.handleBatchUpload)
			r.Post("/submissions/{id}/regrade", s.handleRegrade)
			r.Post("/submissions/regrade-failed", s.handleRegradeFailed)
			r.Post("/students/{id}/insights", s.handleStudentInsights)
			r.Post("/chat/sessions/{id}/messages", s.handleChatMessage)
			r.Post("/syllabus/suggestions", s.handleSyllabusSuggestions)
			r.Post("/lessons/plan", s.handleLessonPlan)
			r.Post("/questions/banks", s.handleGenerateBank)
			r.Post("/pyq/analyze", s.handleAnalyzePYQ)
		})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// decodeJSON reads a request body into v and runs struct validation.
func (s *Server) decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return s.validate.Struct(v)
}

// fail renders err, choosing the status from well-known sentinel errors and
// falling back to status for anything else.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	var verr validationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, util.ErrInvalidInput), errors.Is(err, util.ErrNotPDF):
		status = http.StatusBadRequest
	case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, util.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeErr(w, status, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	body := map[string]any{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if len(apiErr.Fields) > 0 {
		body["fields"] = apiErr.Fields
	}
	writeJSON(w, code, map[string]any{"error": body})
}

type apiError struct {
	Code    string
	Message string
	Fields  map[string]string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "EA-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusServiceUnavailable:
		return apiError{
			Code:    "EA-API-5030",
			Message: "This feature is not configured on the server.",
		}
	case status == http.StatusBadGateway:
		return apiError{
			Code:    "EA-AI-5020",
			Message: "AI provider unavailable. Retry shortly.",
		}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "EA-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "EA-DB-5002",
				Message: "A backing service is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "EA-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "EA-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "EA-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "EA-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusRequestEntityTooLarge:
		code = "EA-API-4013"
		msg = "Uploaded file is too large."
	case status == http.StatusTooManyRequests:
		code = "EA-API-4029"
		msg = "Too many requests. Slow down and retry."
	}

	// 4xx responses carry user-safe context only.
	var verr validationError
	switch {
	case errors.As(err, &verr):
		return apiError{Code: "EA-VAL-4001", Message: "Request validation failed.", Fields: verr.fields}
	case status >= 400 && status < 500 && err != nil:
		switch {
		case errors.Is(err, util.ErrNotPDF):
			msg = "Only PDF files are accepted."
		case errors.Is(err, util.ErrSessionNotFound):
			code = "EA-CHAT-4004"
			msg = "Chat session not found or expired."
		case errors.Is(err, util.ErrInvalidInput):
			msg = strings.TrimPrefix(err.Error(), util.ErrInvalidInput.Error()+": ")
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "no files provided"):
			msg = "No PDF files were provided."
		}
	}
	return apiError{Code: code, Message: msg}
}

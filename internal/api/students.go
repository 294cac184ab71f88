package api

import (
	"net/http"
	"strconv"

	"eduai/internal/analytics"
	"eduai/internal/resultstore"
	"eduai/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleStudentResults(w http.ResponseWriter, r *http.Request) {
	rec, err := resultstore.Record(r.Context(), s.results, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStudentAnalytics(w http.ResponseWriter, r *http.Request) {
	rec, err := resultstore.Record(r.Context(), s.results, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(rec))
}

func (s *Server) handleSubjectAnalytics(w http.ResponseWriter, r *http.Request) {
	all, err := s.results.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  len(all),
		"subjects": analytics.SubjectAverages(all),
	})
}

func (s *Server) handleStudentInsights(w http.ResponseWriter, r *http.Request) {
	var in analytics.InsightInput
	if r.ContentLength > 0 {
		if err := s.decodeJSON(r, &in); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
	}
	rec, err := resultstore.Record(r.Context(), s.results, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	insight, err := s.insights.Generate(r.Context(), rec, in)
	if err != nil {
		if insight.StudentID == "" {
			s.fail(w, r, http.StatusBadGateway, err)
			return
		}
		// The insight was produced; only persisting it failed.
		s.log.Warn("save student insight", zap.String("student_id", rec.StudentID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, insight)
}

func (s *Server) handleProviderUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.fail(w, r, http.StatusServiceUnavailable, util.ErrNotConfigured)
		return
	}
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 24*90 {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		hours = n
	}
	usage, err := s.usage.UsageSince(r.Context(), hours)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	providers := make([]string, 0)
	for _, ref := range s.providers.Refs() {
		providers = append(providers, ref.Raw)
	}
	writeJSON(w, http.StatusOK, map[string]any{"hours": hours, "configured": providers, "usage": usage})
}

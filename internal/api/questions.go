package api

import (
	"fmt"
	"net/http"

	"eduai/internal/blob"
	"eduai/internal/questions"
	"eduai/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleQuestionCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types":        questions.TypeNames(),
		"difficulties": questions.DifficultyNames(),
	})
}

func (s *Server) handleGenerateBank(w http.ResponseWriter, r *http.Request) {
	var req questions.Request
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	bank, err := s.questions.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank)
}

func (s *Server) handleGetBank(w http.ResponseWriter, r *http.Request) {
	bank, err := s.banks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// handleExportBank streams the bank as CSV or JSON and keeps a copy in blob storage.
func (s *Server) handleExportBank(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: format must be csv or json", util.ErrInvalidInput))
		return
	}
	bank, err := s.banks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	if format == "csv" {
		data, err = questions.ExportCSV(bank)
		contentType = "text/csv; charset=utf-8"
	} else {
		data, err = questions.ExportJSON(bank)
		contentType = "application/json"
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if err := s.blobs.Put(r.Context(), blob.ExportKey(bank.BankID, format), data, contentType); err != nil {
		s.log.Warn("archive question bank export", zap.String("bank_id", bank.BankID), zap.Error(err))
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "questions_"+bank.BankID+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"eduai/internal/extract"
	"eduai/internal/pyq"
	"eduai/internal/util"
)

type predictRequest struct {
	CurrentYear int              `json:"current_year" validate:"omitempty,gte=1900,lte=2200"`
	History     []pyq.ExamTopics `json:"history" validate:"required,min=1,dive"`
}

// handleAnalyzePYQ accepts either a multipart upload (file, subject) or a JSON
// body with the question paper text.
func (s *Server) handleAnalyzePYQ(w http.ResponseWriter, r *http.Request) {
	var (
		subject, text string
		pdf           []byte
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if !s.parseUpload(w, r) {
			return
		}
		subject = strings.TrimSpace(r.FormValue("subject"))
		text = strings.TrimSpace(r.FormValue("text"))
		if fh, ok := firstFile(r.MultipartForm, "file"); ok {
			f, err := fh.Open()
			if err != nil {
				s.fail(w, r, http.StatusBadRequest, fmt.Errorf("open upload: %w", err))
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				s.fail(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
				return
			}
			if !extract.IsPDF(data) {
				s.fail(w, r, http.StatusBadRequest, util.ErrNotPDF)
				return
			}
			// Prefer the text layer; scanned papers go to the model as a document.
			if extracted, err := extract.Text(data); err == nil {
				text = extracted
			} else {
				pdf = data
			}
		}
	} else {
		var req struct {
			Subject string `json:"subject" validate:"required,max=128"`
			Text    string `json:"text" validate:"required"`
		}
		if err := s.decodeJSON(r, &req); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
		subject, text = req.Subject, req.Text
	}
	if subject == "" || (text == "" && len(pdf) == 0) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: subject and a question paper are required", util.ErrInvalidInput))
		return
	}

	analysis, err := s.pyq.Analyze(r.Context(), subject, text, pdf)
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": analysis,
		"guide":    pyq.PreparationGuide(analysis),
	})
}

func (s *Server) handlePredictTopics(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if req.CurrentYear == 0 {
		req.CurrentYear = s.now().Year()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current_year": req.CurrentYear,
		"predictions":  pyq.PredictTopics(req.History, req.CurrentYear),
	})
}

func (s *Server) handlePreparationGuide(w http.ResponseWriter, r *http.Request) {
	var analysis pyq.Analysis
	if err := s.decodeJSON(r, &analysis); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, pyq.PreparationGuide(analysis))
}

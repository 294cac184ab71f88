package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"eduai/internal/blob"
	"eduai/internal/extract"
	"eduai/internal/models"
	"eduai/internal/util"
	"eduai/internal/workflows"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

type uploadForm struct {
	StudentID   string `json:"student_id" validate:"required,max=128"`
	StudentName string `json:"student_name" validate:"max=256"`
	RollNumber  string `json:"roll_number" validate:"max=64"`
	Subject     string `json:"subject" validate:"required,max=128"`
}

func gradingWorkflowID(submissionID string) string { return "grade-" + submissionID }
func batchWorkflowID(batchID string) string        { return "batch-" + batchID }
func lessonWorkflowID(planID string) string        { return "lesson-" + planID }
func regradeWorkflowID(scope string) string        { return regradePrefix + scope }

// Regrade runs report under their workflow ID, so the batch progress route
// accepts it as-is.
const regradePrefix = "regrade-"

func progressWorkflowID(batchID string) string {
	if strings.HasPrefix(batchID, regradePrefix) {
		return batchID
	}
	return batchWorkflowID(batchID)
}

func (s *Server) startWorkflow(ctx context.Context, id string, workflow any, input any) (tclient.WorkflowRun, error) {
	return s.temporal.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflow, input)
}

func (s *Server) failStart(w http.ResponseWriter, r *http.Request, err error) {
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		writeErr(w, http.StatusConflict, err)
		return
	}
	s.fail(w, r, http.StatusInternalServerError, fmt.Errorf("start workflow: %w", err))
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 32
	}
	return int64(mb) << 20
}

// parseUpload bounds the request body and parses the multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, err)
			return false
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return false
	}
	return true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}
	form := uploadForm{
		StudentID:   strings.TrimSpace(r.FormValue("student_id")),
		StudentName: strings.TrimSpace(r.FormValue("student_name")),
		RollNumber:  strings.TrimSpace(r.FormValue("roll_number")),
		Subject:     strings.TrimSpace(r.FormValue("subject")),
	}
	if err := s.validate.Struct(form); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	fh, ok := firstFile(r.MultipartForm, "file")
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	sub, err := s.storeSubmission(r.Context(), form, fh)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	run, err := s.startWorkflow(r.Context(), gradingWorkflowID(sub.SubmissionID), workflows.GradeSubmissionWorkflow, workflows.GradeSubmissionInput{
		SubmissionID:    sub.SubmissionID,
		LLMProviders:    s.providers.LLMCount(),
		CooldownSeconds: s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		s.failStart(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"submission_id": sub.SubmissionID,
		"status":        sub.Status,
		"workflow_id":   run.GetID(),
		"run_id":        run.GetRunID(),
	})
}

func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	values := r.MultipartForm.Value
	type rejected struct {
		Filename string `json:"filename"`
		Reason   string `json:"reason"`
	}
	var (
		ids      []string
		rejects  []rejected
		accepted []models.Submission
	)
	for i, fh := range files {
		form := uploadForm{
			StudentID:   perFile(values["student_id"], i),
			StudentName: perFile(values["student_name"], i),
			RollNumber:  perFile(values["roll_number"], i),
			Subject:     perFile(values["subject"], i),
		}
		if err := s.validate.Struct(form); err != nil {
			rejects = append(rejects, rejected{Filename: fh.Filename, Reason: err.Error()})
			continue
		}
		sub, err := s.storeSubmission(r.Context(), form, fh)
		if errors.Is(err, util.ErrNotPDF) {
			rejects = append(rejects, rejected{Filename: fh.Filename, Reason: "not a PDF"})
			continue
		}
		if err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		ids = append(ids, sub.SubmissionID)
		accepted = append(accepted, sub)
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    map[string]any{"code": "EA-API-4001", "message": "No valid PDF submissions in batch."},
			"rejected": rejects,
		})
		return
	}

	batchID := uuid.NewString()
	run, err := s.startWorkflow(r.Context(), batchWorkflowID(batchID), workflows.BatchGradeWorkflow, workflows.BatchGradeInput{
		BatchID:               batchID,
		SubmissionIDs:         ids,
		MaxConcurrentChildren: s.cfg.BatchMaxChildren,
		LLMProviders:          s.providers.LLMCount(),
		CooldownSeconds:       s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		s.failStart(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id":    batchID,
		"submissions": accepted,
		"rejected":    rejects,
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}

// perFile returns the i-th form value when one is given per file, or the
// single shared value otherwise.
func perFile(vals []string, i int) string {
	switch {
	case len(vals) == 0:
		return ""
	case i < len(vals) && len(vals) > 1:
		return strings.TrimSpace(vals[i])
	default:
		return strings.TrimSpace(vals[0])
	}
}

// storeSubmission validates the PDF, writes it to blob storage and records a
// pending submission. The ID is derived from the bytes and the student.
func inFlight(status string) bool {
	return status == models.SubmissionExtracting || status == models.SubmissionGrading
}

func (s *Server) storeSubmission(ctx context.Context, form uploadForm, fh *multipart.FileHeader) (models.Submission, error) {
	name := filepath.Base(fh.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return models.Submission{}, util.ErrNotPDF
	}
	src, err := fh.Open()
	if err != nil {
		return models.Submission{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return models.Submission{}, fmt.Errorf("read upload: %w", err)
	}
	if !extract.IsPDF(data) {
		return models.Submission{}, util.ErrNotPDF
	}

	id := util.SubmissionID(data, form.StudentID)
	key := blob.SubmissionKey(id)
	if err := s.blobs.Put(ctx, key, data, "application/pdf"); err != nil {
		return models.Submission{}, err
	}
	// A grading run already owns this submission; leave its row alone so a
	// rejected duplicate start cannot rewind the status.
	if existing, err := s.submissions.Get(ctx, id); err == nil && inFlight(existing.Status) {
		return existing, nil
	}
	now := s.now().UTC()
	sub := models.Submission{
		SubmissionID: id,
		StudentID:    form.StudentID,
		StudentName:  form.StudentName,
		RollNumber:   form.RollNumber,
		Subject:      form.Subject,
		Filename:     name,
		BlobKey:      key,
		Status:       models.SubmissionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.submissions.Upsert(ctx, sub); err != nil {
		return models.Submission{}, err
	}
	return sub, nil
}

func firstFile(form *multipart.Form, field string) (*multipart.FileHeader, bool) {
	if fhs := form.File[field]; len(fhs) > 0 {
		return fhs[0], true
	}
	for _, v := range form.File {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	out := map[string]any{"submission": sub}
	if sub.Status == models.SubmissionGraded {
		results, err := s.results.ListByStudent(r.Context(), sub.StudentID)
		if err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		for i := len(results) - 1; i >= 0; i-- {
			if results[i].SubmissionID == sub.SubmissionID {
				out["result"] = results[i]
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmissionProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var status workflows.GradingStatus
	resp, err := s.temporal.QueryWorkflow(r.Context(), gradingWorkflowID(id), "", workflows.QueryGetGradingStatus)
	if err != nil {
		// No queryable run: fall back to the stored submission status.
		sub, sErr := s.submissions.Get(r.Context(), id)
		if sErr != nil {
			s.fail(w, r, http.StatusInternalServerError, sErr)
			return
		}
		writeJSON(w, http.StatusOK, workflows.GradingStatus{
			SubmissionID: sub.SubmissionID,
			StudentID:    sub.StudentID,
			Subject:      sub.Subject,
			CurrentStep:  sub.Status,
			Status:       sub.Status,
			FailReason:   sub.FailReason,
			Steps:        map[string]string{},
			RetryCounts:  map[string]int{},
		})
		return
	}
	if err := resp.Get(&status); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleBatchProgress(w http.ResponseWriter, r *http.Request) {
	var progress workflows.BatchProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), progressWorkflowID(chi.URLParam(r, "id")), "", workflows.QueryGetBatchProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	if err := resp.Get(&progress); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleRegrade(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	run, err := s.startWorkflow(r.Context(), gradingWorkflowID(sub.SubmissionID), workflows.GradeSubmissionWorkflow, workflows.GradeSubmissionInput{
		SubmissionID:    sub.SubmissionID,
		LLMProviders:    s.providers.LLMCount(),
		CooldownSeconds: s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		s.failStart(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"submission_id": sub.SubmissionID, "workflow_id": run.GetID(), "run_id": run.GetRunID()})
}

func (s *Server) handleRegradeFailed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id" validate:"max=128"`
	}
	if r.ContentLength > 0 {
		if err := s.decodeJSON(r, &req); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
	}
	scope := "all"
	if req.StudentID != "" {
		scope = req.StudentID
	}
	run, err := s.startWorkflow(r.Context(), regradeWorkflowID(scope), workflows.RegradeFailedWorkflow, workflows.RegradeFailedInput{
		StudentID:             req.StudentID,
		MaxConcurrentChildren: s.cfg.BatchMaxChildren,
		LLMProviders:          s.providers.LLMCount(),
		CooldownSeconds:       s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		s.failStart(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id":    regradeWorkflowID(scope),
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}

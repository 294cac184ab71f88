package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eduai/internal/blob"
	"eduai/internal/chat"
	"eduai/internal/config"
	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/pyq"
	"eduai/internal/resultstore"
	"eduai/internal/util"
	"eduai/internal/workflows"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj <<>> endobj\ntrailer <<>>\n%%EOF\n")

type fakeSubmissions struct {
	mu   sync.Mutex
	subs map[string]models.Submission
}

func newFakeSubmissions() *fakeSubmissions {
	return &fakeSubmissions{subs: map[string]models.Submission{}}
}

func (f *fakeSubmissions) Upsert(_ context.Context, s models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[s.SubmissionID] = s
	return nil
}

func (f *fakeSubmissions) Get(_ context.Context, id string) (models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return models.Submission{}, util.ErrNotFound
	}
	return s, nil
}

func (f *fakeSubmissions) ListByStudent(_ context.Context, studentID string) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Submission
	for _, s := range f.subs {
		if s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeBanks map[string]models.QuestionBank

func (f fakeBanks) Get(_ context.Context, id string) (models.QuestionBank, error) {
	b, ok := f[id]
	if !ok {
		return models.QuestionBank{}, util.ErrNotFound
	}
	return b, nil
}

type testServer struct {
	srv         *Server
	handler     http.Handler
	temporal    *mocks.Client
	submissions *fakeSubmissions
	blobs       *blob.LocalStore
}

func newTestServer(t *testing.T, ratePerMinute int) *testServer {
	t.Helper()
	tc := &mocks.Client{}
	pm := providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "mock", Name: "mock"},
		Provider: providers.NewMockProvider(),
	})
	subs := newFakeSubmissions()
	blobs := blob.NewLocalStore(t.TempDir())
	cfg := config.Config{
		TemporalTaskQueue: "eduai-test",
		MaxUploadMB:       1,
		HTTPRatePerMinute: ratePerMinute,
		BatchMaxChildren:  2,
	}
	srv := NewServer(cfg, Deps{
		Submissions: subs,
		Results:     resultstore.NewMemory(),
		Banks: fakeBanks{"bank-1": {
			BankID:     "bank-1",
			Subject:    "Physics",
			Topic:      "Optics",
			Difficulty: "Easy",
			Questions: []models.Question{
				{Question: "What is refraction?", Type: "Short Answer", Difficulty: "Easy", Marks: "2", Answer: "Bending of light"},
			},
		}},
		Blobs:     blobs,
		Chat:      chat.NewService(pm, chat.NewMemorySessions(time.Hour, 20), 5),
		PYQ:       pyq.NewAnalyzer(pm),
		Providers: pm,
		Temporal:  tc,
	})
	srv.now = func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, handler: srv.Routes(), temporal: tc, submissions: subs, blobs: blobs}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, 100)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestUploadReportsMissingFields(t *testing.T) {
	ts := newTestServer(t, 100)
	rec := ts.do(t, uploadRequest(t, map[string]string{"subject": "Physics"}, "hw.pdf", samplePDF))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	require.Equal(t, "EA-VAL-4001", body.Error.Code)
	require.Contains(t, body.Error.Fields, "student_id")
	ts.temporal.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	ts := newTestServer(t, 100)
	fields := map[string]string{"student_id": "stu-1", "subject": "Physics"}

	rec := ts.do(t, uploadRequest(t, fields, "hw.docx", samplePDF))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Only PDF files are accepted.", decodeError(t, rec).Error.Message)

	rec = ts.do(t, uploadRequest(t, fields, "hw.pdf", []byte("just some text")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, ts.submissions.subs)
}

func TestUploadStartsGradingWorkflow(t *testing.T) {
	ts := newTestServer(t, 100)
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("grade-x")
	run.On("GetRunID").Return("run-1")
	ts.temporal.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(in workflows.GradeSubmissionInput) bool {
			return in.SubmissionID != "" && in.LLMProviders == 1
		})).Return(run, nil).Once()

	rec := ts.do(t, uploadRequest(t, map[string]string{"student_id": "stu-1", "subject": "Physics"}, "hw.pdf", samplePDF))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		SubmissionID string `json:"submission_id"`
		Status       string `json:"status"`
		RunID        string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, models.SubmissionPending, body.Status)
	require.Equal(t, "run-1", body.RunID)

	sub, err := ts.submissions.Get(context.Background(), body.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, "stu-1", sub.StudentID)
	stored, err := ts.blobs.Get(context.Background(), sub.BlobKey)
	require.NoError(t, err)
	require.Equal(t, samplePDF, stored)
	ts.temporal.AssertExpectations(t)
}

func TestReuploadDuringGradingKeepsStatus(t *testing.T) {
	ts := newTestServer(t, 100)
	id := util.SubmissionID(samplePDF, "stu-1")
	require.NoError(t, ts.submissions.Upsert(context.Background(), models.Submission{
		SubmissionID: id,
		StudentID:    "stu-1",
		Subject:      "Physics",
		BlobKey:      blob.SubmissionKey(id),
		Status:       models.SubmissionGrading,
	}))
	ts.temporal.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("workflow execution already started", "", "run-0")).Once()

	rec := ts.do(t, uploadRequest(t, map[string]string{"student_id": "stu-1", "subject": "Physics"}, "hw.pdf", samplePDF))
	require.Equal(t, http.StatusConflict, rec.Code)

	sub, err := ts.submissions.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionGrading, sub.Status)
	ts.temporal.AssertExpectations(t)
}

func TestReuploadAfterFailureResetsToPending(t *testing.T) {
	ts := newTestServer(t, 100)
	id := util.SubmissionID(samplePDF, "stu-1")
	require.NoError(t, ts.submissions.Upsert(context.Background(), models.Submission{
		SubmissionID: id,
		StudentID:    "stu-1",
		Subject:      "Physics",
		Status:       models.SubmissionFailed,
		FailReason:   "no extractable text found in PDF",
	}))
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("grade-" + id)
	run.On("GetRunID").Return("run-2")
	ts.temporal.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil).Once()

	rec := ts.do(t, uploadRequest(t, map[string]string{"student_id": "stu-1", "subject": "Physics"}, "hw.pdf", samplePDF))
	require.Equal(t, http.StatusAccepted, rec.Code)

	sub, err := ts.submissions.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionPending, sub.Status)
	require.Empty(t, sub.FailReason)
}

func TestRegradeFailedProgressIsQueryable(t *testing.T) {
	ts := newTestServer(t, 100)
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("regrade-all")
	run.On("GetRunID").Return("run-9")
	ts.temporal.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(opts tclient.StartWorkflowOptions) bool {
		return opts.ID == "regrade-all"
	}), mock.Anything, mock.Anything).Return(run, nil).Once()

	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/submissions/regrade-failed", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started struct {
		BatchID string `json:"batch_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.Equal(t, "regrade-all", started.BatchID)

	val := &mocks.Value{}
	val.On("Get", mock.Anything).Return(func(v interface{}) error {
		*v.(*workflows.BatchProgress) = workflows.BatchProgress{Total: 2, Done: 1}
		return nil
	})
	ts.temporal.On("QueryWorkflow", mock.Anything, "regrade-all", "", workflows.QueryGetBatchProgress).Return(val, nil).Once()

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/batches/"+started.BatchID+"/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var progress workflows.BatchProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	require.Equal(t, 2, progress.Total)
	require.Equal(t, 1, progress.Done)
	ts.temporal.AssertExpectations(t)
}

func TestProgressFallsBackToStoredStatus(t *testing.T) {
	ts := newTestServer(t, 100)
	require.NoError(t, ts.submissions.Upsert(context.Background(), models.Submission{
		SubmissionID: "s1",
		StudentID:    "stu-1",
		Subject:      "Physics",
		Status:       models.SubmissionFailed,
		FailReason:   "grading response was not valid JSON",
	}))
	ts.temporal.On("QueryWorkflow", mock.Anything, "grade-s1", "", workflows.QueryGetGradingStatus).
		Return(nil, errors.New("workflow not found"))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions/s1/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status workflows.GradingStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, models.SubmissionFailed, status.Status)
	require.Equal(t, "grading response was not valid JSON", status.FailReason)
}

func TestProgressUnknownSubmission(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.temporal.On("QueryWorkflow", mock.Anything, "grade-missing", "", workflows.QueryGetGradingStatus).
		Return(nil, errors.New("workflow not found"))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions/missing/progress", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "EA-API-4004", decodeError(t, rec).Error.Code)
}

func TestChatSessionFlow(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/chat/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/chat/sessions/"+created.SessionID+"/messages",
		`{"question":"How do I introduce fractions?"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var reply chat.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.Equal(t, created.SessionID, reply.SessionID)
	require.NotEmpty(t, reply.Answer)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/sessions/"+created.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Turns []models.ChatTurn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Turns, 1)
	require.Equal(t, "How do I introduce fractions?", history.Turns[0].Question)
}

func TestChatUnknownSession(t *testing.T) {
	ts := newTestServer(t, 100)
	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/chat/sessions/nope/messages", `{"question":"hi"}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "EA-CHAT-4004", decodeError(t, rec).Error.Code)
}

func TestCalendarRequiresConfiguration(t *testing.T) {
	ts := newTestServer(t, 100)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/calendar/events", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "EA-API-5030", decodeError(t, rec).Error.Code)
}

func TestExportBankAsCSV(t *testing.T) {
	ts := newTestServer(t, 100)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/questions/banks/bank-1/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "questions_bank-1.csv")
	require.Contains(t, rec.Body.String(), "What is refraction?")

	archived, err := ts.blobs.Get(context.Background(), blob.ExportKey("bank-1", "csv"))
	require.NoError(t, err)
	require.Equal(t, rec.Body.Bytes(), archived)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/questions/banks/bank-1/export?format=xml", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "format must be csv or json", decodeError(t, rec).Error.Message)
}

func TestPredictTopicsDefaultsCurrentYear(t *testing.T) {
	ts := newTestServer(t, 100)
	body := `{"history":[
		{"year":2022,"topics":[{"name":"Optics","frequency":3}]},
		{"year":2023,"topics":[{"name":"Optics","frequency":2},{"name":"Waves","frequency":1}]}
	]}`
	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/pyq/predict", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		CurrentYear int                   `json:"current_year"`
		Predictions []pyq.TopicPrediction `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 2024, out.CurrentYear)
	require.Len(t, out.Predictions, 2)

	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/pyq/predict", `{"history":[]}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Error.Fields, "history")
}

func TestRateLimitedRoutesReturn429(t *testing.T) {
	ts := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		rec := ts.do(t, jsonRequest(http.MethodPost, "/api/pyq/analyze", `{`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/pyq/analyze", `{`))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, "EA-API-4029", decodeError(t, rec).Error.Code)

	// Read routes are not limited.
	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/questions/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

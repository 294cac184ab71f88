package activities

import (
	"context"
	"testing"
	"time"

	"eduai/internal/blob"
	"eduai/internal/config"
	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/resultstore"
	"eduai/internal/storage"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

type textOnlyProvider struct{}

func (textOnlyProvider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return providers.GenerateResponse{Text: "{}"}, providers.ProviderInfo{Name: "groq"}, nil
}

type fakeCalendar struct {
	slots   []models.TimeSlot
	created []models.CalendarEvent
}

func (f *fakeCalendar) Location() *time.Location { return time.UTC }

func (f *fakeCalendar) FreeSlots(ctx context.Context, start, end time.Time) ([]models.TimeSlot, error) {
	return f.slots, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	f.created = append(f.created, ev)
	ev.EventID = "evt-1"
	return ev, nil
}

type fakeAudit struct {
	records []storage.LLMCallRecord
}

func (f *fakeAudit) Insert(ctx context.Context, rec storage.LLMCallRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestActivities(t *testing.T, d Deps) (*Activities, *testsuite.TestActivityEnvironment) {
	t.Helper()
	if d.Blobs == nil {
		d.Blobs = blob.NewLocalStore(t.TempDir())
	}
	if d.Providers == nil {
		d.Providers = providers.NewStaticManager(providers.NamedLLMProvider{
			Ref:      providers.ProviderRef{Raw: "mock", Name: "mock"},
			Provider: providers.NewMockProvider(),
		})
	}
	a := New(config.Config{}, d)
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)
	return a, env
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	a, env := newTestActivities(t, Deps{})
	require.NoError(t, a.blobs.Put(context.Background(), "submissions/x.pdf", []byte("hello"), "application/pdf"))

	_, err := env.ExecuteActivity(a.ExtractTextActivity, ExtractTextInput{SubmissionID: "x", BlobKey: "submissions/x.pdf"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a PDF")
}

func TestLLMGenerateAttachesStoredPDF(t *testing.T) {
	a, env := newTestActivities(t, Deps{})
	require.NoError(t, a.blobs.Put(context.Background(), "submissions/s1.pdf", []byte("%PDF-1.4 scanned"), "application/pdf"))

	val, err := env.ExecuteActivity(a.LLMGenerateActivity, LLMGenerateInput{
		Operation:         providers.OpGrade,
		Prompt:            "grade this",
		AttachmentBlobKey: "submissions/s1.pdf",
		JSON:              true,
	})
	require.NoError(t, err)
	var out LLMGenerateOutput
	require.NoError(t, val.Get(&out))
	require.Equal(t, "mock", out.ProviderName)
	require.NotEmpty(t, out.Text)
}

func TestLLMGenerateRefusesAttachmentOnTextOnlyProvider(t *testing.T) {
	pm := providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "groq", Name: "groq"},
		Provider: textOnlyProvider{},
	})
	a, env := newTestActivities(t, Deps{Providers: pm})
	require.NoError(t, a.blobs.Put(context.Background(), "submissions/s1.pdf", []byte("%PDF-1.4"), "application/pdf"))

	_, err := env.ExecuteActivity(a.LLMGenerateActivity, LLMGenerateInput{
		Operation:         providers.OpGrade,
		Prompt:            "grade this",
		AttachmentBlobKey: "submissions/s1.pdf",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), providers.ErrAttachmentsUnsupported.Error())
}

func TestLogLLMCallNamesFailedProviderFromPosition(t *testing.T) {
	pm := providers.NewStaticManager(
		providers.NamedLLMProvider{Ref: providers.ProviderRef{Raw: "mock", Name: "mock"}, Provider: providers.NewMockProvider()},
		providers.NamedLLMProvider{Ref: providers.ProviderRef{Raw: "groq:k2", Name: "groq", KeyAlias: "k2"}, Provider: textOnlyProvider{}},
	)
	audit := &fakeAudit{}
	a, env := newTestActivities(t, Deps{Providers: pm, Audit: audit})

	_, err := env.ExecuteActivity(a.LogLLMCallActivity, LogLLMCallInput{
		Operation: providers.OpGrade, ProviderIndex: 0, RequestID: "grade-1", Status: "failed", ErrorType: "quota",
	})
	require.NoError(t, err)
	_, err = env.ExecuteActivity(a.LogLLMCallActivity, LogLLMCallInput{
		Operation: providers.OpGrade, ProviderIndex: 1, RequestID: "grade-2", Status: "failed", ErrorType: "rate",
	})
	require.NoError(t, err)
	_, err = env.ExecuteActivity(a.LogLLMCallActivity, LogLLMCallInput{
		Operation: providers.OpGrade, ProviderIndex: 1, ProviderName: "mock", Model: "mock-1", RequestID: "grade-3", Status: "ok",
	})
	require.NoError(t, err)

	require.Len(t, audit.records, 3)
	require.Equal(t, "groq", audit.records[0].ProviderName)
	require.Equal(t, "mock", audit.records[1].ProviderName)
	require.Equal(t, "mock", audit.records[2].ProviderName)
	require.NotEqual(t, audit.records[0].CallID, audit.records[1].CallID)
}

func TestSaveGradingResultAppends(t *testing.T) {
	mem := resultstore.NewMemory()
	a, env := newTestActivities(t, Deps{Results: mem})

	_, err := env.ExecuteActivity(a.SaveGradingResultActivity, SaveGradingResultInput{Result: models.GradingResult{
		ResultID: "r1", SubmissionID: "s1", StudentID: "stu", Subject: "Math", Grade: "B", Percentage: 84,
	}})
	require.NoError(t, err)

	all, err := mem.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "B", all[0].Grade)
}

func TestFindFreeSlotsKeepsSchoolHours(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{slots: []models.TimeSlot{
		{Start: day.Add(7 * time.Hour), End: day.Add(8 * time.Hour)},
		{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)},
		{Start: day.Add(16 * time.Hour), End: day.Add(17 * time.Hour)},
		{Start: day.Add(17 * time.Hour), End: day.Add(18 * time.Hour)},
	}}
	a, env := newTestActivities(t, Deps{Calendar: cal})

	val, err := env.ExecuteActivity(a.FindFreeSlotsActivity, FindFreeSlotsInput{Start: day, End: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	var out FindFreeSlotsOutput
	require.NoError(t, val.Get(&out))
	require.Len(t, out.Slots, 2)
	require.Equal(t, 10, out.Slots[0].Start.Hour())
	require.Equal(t, 16, out.Slots[1].Start.Hour())
}

func TestCalendarActivitiesRequireCalendar(t *testing.T) {
	a, env := newTestActivities(t, Deps{})
	_, err := env.ExecuteActivity(a.CreateLessonEventActivity, CreateLessonEventInput{Subject: "Math"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "calendar is not configured")
}

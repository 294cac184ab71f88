package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduai/internal/blob"
	"eduai/internal/calendar"
	"eduai/internal/config"
	"eduai/internal/extract"
	"eduai/internal/metrics"
	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/resultstore"
	"eduai/internal/storage"
	"eduai/internal/util"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Lesson sessions are only placed inside school hours.
const (
	lessonDayStartHour = 9
	lessonDayEndHour   = 17
)

type SubmissionStore interface {
	Get(ctx context.Context, submissionID string) (models.Submission, error)
	UpdateStatus(ctx context.Context, submissionID, status, failReason string) error
	ListFailed(ctx context.Context, studentID string) ([]models.Submission, error)
}

type AuditLog interface {
	Insert(ctx context.Context, rec storage.LLMCallRecord) error
}

type LessonStore interface {
	Save(ctx context.Context, p models.LessonPlan) error
}

type LessonCalendar interface {
	Location() *time.Location
	FreeSlots(ctx context.Context, start, end time.Time) ([]models.TimeSlot, error)
	CreateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
}

// Deps are the collaborators activities run against. Calendar is optional and
// must be left nil rather than set to a nil *calendar.Client.
type Deps struct {
	Submissions SubmissionStore
	Results     resultstore.Store
	Audit       AuditLog
	Lessons     LessonStore
	Blobs       blob.Store
	Calendar    LessonCalendar
	Providers   *providers.Manager
}

type Activities struct {
	cfg         config.Config
	submissions SubmissionStore
	results     resultstore.Store
	audit       AuditLog
	lessons     LessonStore
	blobs       blob.Store
	calendar    LessonCalendar
	providers   *providers.Manager
}

func New(cfg config.Config, d Deps) *Activities {
	return &Activities{
		cfg:         cfg,
		submissions: d.Submissions,
		results:     d.Results,
		audit:       d.Audit,
		lessons:     d.Lessons,
		blobs:       d.Blobs,
		calendar:    d.Calendar,
		providers:   d.Providers,
	}
}

func (a *Activities) LoadSubmissionActivity(ctx context.Context, in LoadSubmissionInput) (models.Submission, error) {
	s, err := a.submissions.Get(ctx, in.SubmissionID)
	if errors.Is(err, util.ErrNotFound) {
		return models.Submission{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("submission %s not found", in.SubmissionID), "NotFound", err)
	}
	return s, err
}

// ExtractTextActivity reads the stored PDF and returns its text layer. A PDF
// without one is reported through NoText so grading can send the document inline.
func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	data, err := a.blobs.Get(ctx, in.BlobKey)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("load submission pdf: %w", err)
	}
	pages := extract.PageCount(data)
	text, err := extract.Text(data)
	switch {
	case errors.Is(err, util.ErrNoExtractableText):
		activity.GetLogger(ctx).Info("no text layer, grading from document", "submission_id", in.SubmissionID, "pages", pages)
		return ExtractTextOutput{Pages: pages, NoText: true}, nil
	case errors.Is(err, util.ErrNotPDF):
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "NotPDF", err)
	case err != nil:
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{Text: text, Pages: pages}, nil
}

func (a *Activities) UpdateSubmissionStatusActivity(ctx context.Context, in UpdateSubmissionStatusInput) error {
	return a.submissions.UpdateStatus(ctx, in.SubmissionID, in.Status, util.Truncate(in.FailReason, 500))
}

// resolveLLMProvider maps a workflow's provider position to the configured
// provider. An explicit ref wins over the position.
func (a *Activities) resolveLLMProvider(index int, refRaw string) (providers.LLMProvider, providers.ProviderRef, error) {
	if refRaw != "" {
		idx := a.providers.FindLLMProviderIndex(refRaw)
		if idx < 0 {
			return nil, providers.ProviderRef{}, fmt.Errorf("llm provider ref not configured in worker: %s", refRaw)
		}
		index = idx
	} else {
		// The workflow counts positions in preference order, not config order.
		order := a.providers.PreferredLLMOrder()
		if index >= 0 && index < len(order) {
			index = order[index]
		}
	}
	provider, ref := a.providers.LLMProviderByIndex(index)
	return provider, ref, nil
}

func (a *Activities) LLMGenerateActivity(ctx context.Context, in LLMGenerateInput) (LLMGenerateOutput, error) {
	provider, ref, err := a.resolveLLMProvider(in.ProviderIndex, in.ProviderRef)
	if err != nil {
		return LLMGenerateOutput{}, err
	}

	req := providers.GenerateRequest{
		Operation:   in.Operation,
		System:      in.System,
		Prompt:      in.Prompt,
		Context:     in.Context,
		JSON:        in.JSON,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}
	if in.AttachmentBlobKey != "" {
		if !providers.SupportsAttachments(provider) {
			return LLMGenerateOutput{}, fmt.Errorf("llm generate via %s failed: %w", ref.Raw, providers.ErrAttachmentsUnsupported)
		}
		data, err := a.blobs.Get(ctx, in.AttachmentBlobKey)
		if err != nil {
			return LLMGenerateOutput{}, fmt.Errorf("load attachment: %w", err)
		}
		req.Attachments = []providers.Attachment{{MimeType: "application/pdf", Data: data}}
	}

	resp, info, err := provider.Generate(ctx, req)
	if err != nil {
		metrics.LLMCalls.WithLabelValues(ref.Name, in.Operation, string(providers.ClassifyError(err))).Inc()
		return LLMGenerateOutput{}, fmt.Errorf("llm generate via %s failed: %w", ref.Raw, err)
	}
	metrics.LLMCalls.WithLabelValues(ref.Name, in.Operation, "ok").Inc()
	return LLMGenerateOutput{
		Text:         resp.Text,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	if in.ProviderName == "" {
		if _, ref, err := a.resolveLLMProvider(in.ProviderIndex, in.ProviderRef); err == nil {
			in.ProviderName = ref.Name
		}
	}
	return a.audit.Insert(ctx, storage.LLMCallRecord{
		CallID:       uuid.NewString(),
		Operation:    in.Operation,
		SubmissionID: in.SubmissionID,
		Subject:      in.Subject,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		RequestID:    in.RequestID,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
	})
}

func (a *Activities) SaveGradingResultActivity(ctx context.Context, in SaveGradingResultInput) error {
	if err := a.results.AppendResult(ctx, in.Result); err != nil {
		return fmt.Errorf("save grading result %s: %w", in.Result.ResultID, err)
	}
	metrics.GradingResults.WithLabelValues(in.Result.Subject, in.Result.Grade).Inc()
	activity.GetLogger(ctx).Info("grading result saved",
		"submission_id", in.Result.SubmissionID, "grade", in.Result.Grade, "store", a.results.Name())
	return nil
}

func (a *Activities) ListFailedSubmissionsActivity(ctx context.Context, in ListFailedSubmissionsInput) (ListFailedSubmissionsOutput, error) {
	subs, err := a.submissions.ListFailed(ctx, in.StudentID)
	if err != nil {
		return ListFailedSubmissionsOutput{}, err
	}
	return ListFailedSubmissionsOutput{Submissions: subs}, nil
}

func (a *Activities) FindFreeSlotsActivity(ctx context.Context, in FindFreeSlotsInput) (FindFreeSlotsOutput, error) {
	if a.calendar == nil {
		return FindFreeSlotsOutput{}, temporal.NewNonRetryableApplicationError("calendar is not configured", "NotConfigured", util.ErrNotConfigured)
	}
	slots, err := a.calendar.FreeSlots(ctx, in.Start, in.End)
	if err != nil {
		return FindFreeSlotsOutput{}, err
	}
	return FindFreeSlotsOutput{Slots: calendar.WithinHours(slots, a.calendar.Location(), lessonDayStartHour, lessonDayEndHour)}, nil
}

func (a *Activities) CreateLessonEventActivity(ctx context.Context, in CreateLessonEventInput) (CreateLessonEventOutput, error) {
	if a.calendar == nil {
		return CreateLessonEventOutput{}, temporal.NewNonRetryableApplicationError("calendar is not configured", "NotConfigured", util.ErrNotConfigured)
	}
	ev, err := a.calendar.CreateEvent(ctx, models.CalendarEvent{
		Subject:     in.Subject,
		Topic:       in.Session.Topic,
		Description: in.Description,
		Start:       in.Session.Start,
		End:         in.Session.End,
	})
	if err != nil {
		return CreateLessonEventOutput{}, err
	}
	return CreateLessonEventOutput{EventID: ev.EventID, Link: ev.Link}, nil
}

func (a *Activities) SaveLessonPlanActivity(ctx context.Context, in SaveLessonPlanInput) error {
	return a.lessons.Save(ctx, in.Plan)
}

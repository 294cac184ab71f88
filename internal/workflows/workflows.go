package workflows

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eduai/internal/activities"
	"eduai/internal/grading"
	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/resultstore"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetGradingStatus      = "GetGradingStatus"
	QueryGetBatchProgress      = "GetBatchProgress"
	QueryGetLessonPlanProgress = "GetLessonPlanProgress"
)

const (
	failNoOCRProvider   = "no extractable text and no OCR-capable provider"
	failInvalidResponse = "grading response was not valid JSON after retry"
)

// providerState holds per-provider cooldowns for one run. Indexes are positions
// in the worker's preference order.
type providerState struct {
	disabledUntil map[int]time.Time
}

func newProviderState() providerState {
	return providerState{disabledUntil: map[int]time.Time{}}
}

func (s *providerState) available(ctx workflow.Context, idx int) bool {
	until, ok := s.disabledUntil[idx]
	return !ok || !workflow.Now(ctx).Before(until)
}

func (s *providerState) coolDown(ctx workflow.Context, idx int, d time.Duration) {
	s.disabledUntil[idx] = workflow.Now(ctx).Add(d)
}

func GradeSubmissionWorkflow(ctx workflow.Context, input GradeSubmissionInput) (string, error) {
	status := GradingStatus{
		SubmissionID: input.SubmissionID,
		CurrentStep:  "init",
		Status:       models.SubmissionPending,
		RetryCounts:  map[string]int{},
		Steps:        map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetGradingStatus, func() (GradingStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	cooldown := durationOrDefault(input.CooldownSeconds, 900)
	providerCount := defaultCount(input.LLMProviders)
	state := newProviderState()

	setStatus := func(s, reason string) {
		status.Status = s
		status.FailReason = reason
		_ = workflow.ExecuteActivity(ctx, "UpdateSubmissionStatusActivity", activities.UpdateSubmissionStatusInput{
			SubmissionID: input.SubmissionID,
			Status:       s,
			FailReason:   reason,
		}).Get(ctx, nil)
	}
	fail := func(reason string) (string, error) {
		status.Steps[status.CurrentStep] = "failed"
		setStatus(models.SubmissionFailed, reason)
		return status.Status, nil
	}

	status.CurrentStep = "load_submission"
	status.Steps[status.CurrentStep] = "processing"
	var sub models.Submission
	if err := workflow.ExecuteActivity(ctx, "LoadSubmissionActivity", activities.LoadSubmissionInput{SubmissionID: input.SubmissionID}).Get(ctx, &sub); err != nil {
		return "", err
	}
	status.StudentID = sub.StudentID
	status.Subject = sub.Subject
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_text"
	status.Steps[status.CurrentStep] = "processing"
	setStatus(models.SubmissionExtracting, "")
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{SubmissionID: sub.SubmissionID, BlobKey: sub.BlobKey}).Get(ctx, &textOut); err != nil {
		if isNonRetryable(err) {
			return fail(err.Error())
		}
		return "", err
	}
	status.InlinePDF = textOut.NoText
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "grade"
	status.Steps[status.CurrentStep] = "processing"
	setStatus(models.SubmissionGrading, "")
	var (
		result models.GradingResult
		out    activities.LLMGenerateOutput
	)
	for _, retry := range []bool{false, true} {
		req := gradingInput(grading.NewRequest(sub.Subject, textOut.Text, nil, retry), sub, textOut.NoText)
		var err error
		out, err = callLLMWithFailover(ctx, &state, providerCount, cooldown, req, status.RetryCounts)
		if err != nil {
			if textOut.NoText {
				return fail(failNoOCRProvider)
			}
			return fail("grading failed: " + err.Error())
		}
		status.Providers = append(status.Providers, out.ProviderName)
		result, err = grading.ParseResult(out.Text)
		if err == nil {
			break
		}
		status.RetryCounts["parse"]++
		if retry {
			return fail(failInvalidResponse)
		}
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "save_result"
	status.Steps[status.CurrentStep] = "processing"
	result.ResultID = resultstore.ResultID(sub.SubmissionID, workflow.GetInfo(ctx).WorkflowExecution.RunID)
	result.SubmissionID = sub.SubmissionID
	result.StudentID = sub.StudentID
	result.StudentName = sub.StudentName
	result.Subject = sub.Subject
	result.Provider = out.ProviderName
	result.Model = out.Model
	result.GradedAt = workflow.Now(ctx)
	// Appends are not idempotent across stores, so a failed save is not retried.
	saveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(saveCtx, "SaveGradingResultActivity", activities.SaveGradingResultInput{Result: result}).Get(ctx, nil); err != nil {
		return fail("save grading result: " + err.Error())
	}
	status.ResultID = result.ResultID
	status.Grade = result.Grade
	status.Percentage = result.Percentage
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "mark_graded"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "UpdateSubmissionStatusActivity", activities.UpdateSubmissionStatusInput{SubmissionID: sub.SubmissionID, Status: models.SubmissionGraded}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = models.SubmissionGraded
	return status.Status, nil
}

// gradingInput carries a grading request into the activity. Scanned documents
// travel by blob key and are attached by the activity.
func gradingInput(req providers.GenerateRequest, sub models.Submission, inline bool) activities.LLMGenerateInput {
	in := activities.LLMGenerateInput{
		Operation:    req.Operation,
		SubmissionID: sub.SubmissionID,
		Subject:      sub.Subject,
		System:       req.System,
		Prompt:       req.Prompt,
		Context:      req.Context,
		JSON:         req.JSON,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	if inline {
		in.AttachmentBlobKey = sub.BlobKey
	}
	return in
}

func BatchGradeWorkflow(ctx workflow.Context, input BatchGradeInput) (string, error) {
	progress := BatchProgress{
		BatchID:       input.BatchID,
		PerSubmission: map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetBatchProgress, func() (BatchProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}
	runGradingChildren(ctx, &progress, input.SubmissionIDs, input.MaxConcurrentChildren, input.LLMProviders, input.CooldownSeconds)
	return "completed", nil
}

// RegradeFailedWorkflow re-runs grading for every failed submission, optionally
// limited to one student.
func RegradeFailedWorkflow(ctx workflow.Context, input RegradeFailedInput) (string, error) {
	batchID := "regrade-" + workflow.GetInfo(ctx).WorkflowExecution.RunID
	progress := BatchProgress{
		BatchID:       batchID,
		PerSubmission: map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetBatchProgress, func() (BatchProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	var failed activities.ListFailedSubmissionsOutput
	if err := workflow.ExecuteActivity(ctx, "ListFailedSubmissionsActivity", activities.ListFailedSubmissionsInput{StudentID: input.StudentID}).Get(ctx, &failed); err != nil {
		return "", err
	}
	ids := make([]string, 0, len(failed.Submissions))
	for _, s := range failed.Submissions {
		ids = append(ids, s.SubmissionID)
	}
	runGradingChildren(ctx, &progress, ids, input.MaxConcurrentChildren, input.LLMProviders, input.CooldownSeconds)
	return "completed", nil
}

func runGradingChildren(ctx workflow.Context, progress *BatchProgress, ids []string, maxChildren, llmProviders, cooldownSeconds int) {
	progress.Total = len(ids)
	if maxChildren <= 0 {
		maxChildren = 3
	}
	for i := 0; i < len(ids); i += maxChildren {
		end := i + maxChildren
		if end > len(ids) {
			end = len(ids)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		for _, id := range ids[i:end] {
			progress.PerSubmission[id] = "processing"
			workflowID := "grade-" + sanitizeID(progress.BatchID) + "-" + sanitizeID(id)
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, GradeSubmissionWorkflow, GradeSubmissionInput{
				SubmissionID:    id,
				LLMProviders:    llmProviders,
				CooldownSeconds: cooldownSeconds,
			}))
			progress.ChildWorkflow[id] = workflowID
		}

		for idx, f := range futures {
			id := ids[i+idx]
			var childStatus string
			if err := f.Get(ctx, &childStatus); err != nil {
				childStatus = models.SubmissionFailed
			}
			if childStatus == models.SubmissionFailed {
				progress.Failed++
			}
			progress.Done++
			progress.PerSubmission[id] = childStatus
		}
	}
}

// failoverRounds bounds how many passes are made over the provider list.
const failoverRounds = 4

// callLLMWithFailover walks the providers in preference order. Rate-limited and
// transient failures are retried on the same provider after a short sleep;
// quota and permanent failures put the provider on cooldown. Every call is
// audited under the provider's configured name.
func callLLMWithFailover(ctx workflow.Context, state *providerState, providerCount int, cooldown time.Duration, input activities.LLMGenerateInput, retryCounts map[string]int) (activities.LLMGenerateOutput, error) {
	if retryCounts == nil {
		retryCounts = map[string]int{}
	}
	calls := 0
	audit := func(out activities.LLMGenerateOutput, status string, errType providers.ErrorType) {
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{
			Operation:     input.Operation,
			SubmissionID:  input.SubmissionID,
			Subject:       input.Subject,
			ProviderIndex: input.ProviderIndex,
			ProviderRef:   input.ProviderRef,
			ProviderName:  out.ProviderName,
			Model:         out.Model,
			RequestID:     fmt.Sprintf("%s-%d", input.Operation, calls),
			Status:        status,
			ErrorType:     string(errType),
		}).Get(ctx, nil)
	}

	var lastErr error
	for round := 0; round < failoverRounds; round++ {
		for idx := 0; idx < providerCount; idx++ {
			if !state.available(ctx, idx) {
				continue
			}
			input.ProviderIndex = idx
			for {
				calls++
				var out activities.LLMGenerateOutput
				err := workflow.ExecuteActivity(ctx, "LLMGenerateActivity", input).Get(ctx, &out)
				if err == nil {
					audit(out, "ok", "")
					return out, nil
				}
				lastErr = err
				errType := providers.ClassifyError(err)
				audit(activities.LLMGenerateOutput{}, "failed", errType)
				if errType == providers.ErrorContext {
					return activities.LLMGenerateOutput{}, err
				}
				key := fmt.Sprintf("llm-%s-%d", input.Operation, idx)
				retryCounts[key]++
				wait, disable := backoff(errType, retryCounts[key], cooldown)
				if disable > 0 {
					state.coolDown(ctx, idx, disable)
				}
				if wait == 0 {
					break
				}
				_ = workflow.Sleep(ctx, wait)
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all llm providers exhausted")
	}
	return activities.LLMGenerateOutput{}, lastErr
}

// backoff returns how long to sleep before retrying the same provider (zero
// means move on) and how long to keep the provider out of rotation.
func backoff(errType providers.ErrorType, tries int, cooldown time.Duration) (wait, disable time.Duration) {
	switch errType {
	case providers.ErrorQuota:
		return 0, cooldown
	case providers.ErrorRate:
		if tries <= 2 {
			return time.Duration(tries*2) * time.Second, 0
		}
		return 0, 2 * time.Minute
	case providers.ErrorTransient:
		if tries <= 2 {
			return time.Duration(tries) * time.Second, 0
		}
		return 0, 0
	default:
		return 0, time.Minute
	}
}

func isNonRetryable(err error) bool {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.NonRetryable()
	}
	return false
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

func durationOrDefault(seconds int, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func defaultCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

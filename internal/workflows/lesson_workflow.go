package workflows

import (
	"fmt"
	"time"

	"eduai/internal/activities"
	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/scheduling"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	LessonPlanScheduling = "scheduling"
	LessonPlanCompleted  = "completed"
	LessonPlanPartial    = "partial"
	LessonPlanFailed     = "failed"
)

// LessonPlanWorkflow splits a topic into one-hour sessions, asks the model for
// each session's breakdown and books it in the next free calendar slot.
func LessonPlanWorkflow(ctx workflow.Context, input LessonPlanInput) (string, error) {
	total := input.Sessions
	if total <= 0 {
		total = scheduling.DefaultSessions
	}
	plan := models.LessonPlan{
		PlanID:        input.PlanID,
		Topic:         input.Topic,
		Subject:       input.Subject,
		DurationHours: input.DurationHours,
		Status:        LessonPlanScheduling,
		Sessions:      []models.LessonSession{},
		CreatedAt:     workflow.Now(ctx),
	}
	progress := LessonPlanProgress{
		PlanID:  input.PlanID,
		Topic:   input.Topic,
		Subject: input.Subject,
		Total:   total,
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetLessonPlanProgress, func() (LessonPlanProgress, error) {
		p := progress
		p.Status = plan.Status
		p.Scheduled = len(plan.Sessions)
		p.Sessions = plan.Sessions
		return p, nil
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
	cooldown := durationOrDefault(input.CooldownSeconds, 900)
	providerCount := defaultCount(input.LLMProviders)
	state := newProviderState()
	retryCounts := map[string]int{}

	save := func() error {
		return workflow.ExecuteActivity(ctx, "SaveLessonPlanActivity", activities.SaveLessonPlanInput{Plan: plan}).Get(ctx, nil)
	}
	fail := func(reason string) (string, error) {
		plan.Status = LessonPlanFailed
		progress.FailReason = reason
		if err := save(); err != nil {
			return "", err
		}
		return plan.Status, nil
	}

	if err := save(); err != nil {
		return "", err
	}

	var slotsOut activities.FindFreeSlotsOutput
	if err := workflow.ExecuteActivity(ctx, "FindFreeSlotsActivity", activities.FindFreeSlotsInput{Start: input.Start, End: input.End}).Get(ctx, &slotsOut); err != nil {
		return fail("find free slots: " + err.Error())
	}
	if len(slotsOut.Slots) == 0 {
		return fail("no free slots between the requested dates")
	}

	var previous []string
	for seq := 1; seq <= total; seq++ {
		if seq > len(slotsOut.Slots) {
			plan.Status = LessonPlanPartial
			progress.FailReason = fmt.Sprintf("only %d free slots for %d sessions", len(slotsOut.Slots), total)
			break
		}
		slot := slotsOut.Slots[seq-1]
		sin := scheduling.SessionInput{
			Topic:         input.Topic,
			Subject:       input.Subject,
			DurationHours: 1,
			Sequence:      seq,
			Total:         total,
			Previous:      previous,
			Slot:          slot.Start,
		}
		out, err := callLLMWithFailover(ctx, &state, providerCount, cooldown, activities.LLMGenerateInput{
			Operation:   providers.OpLessonSession,
			Subject:     input.Subject,
			Prompt:      scheduling.BuildSessionPrompt(sin),
			JSON:        true,
			Temperature: 0.7,
			MaxTokens:   2048,
		}, retryCounts)
		var session models.LessonSession
		if err == nil {
			session, err = scheduling.ParseSession(out.Text, sin)
		}
		if err != nil {
			// Keep the booking; the teacher fills in the plan by hand.
			workflow.GetLogger(ctx).Warn("lesson session breakdown unavailable", "plan_id", input.PlanID, "sequence", seq, "error", err)
			session, _ = scheduling.ParseSession("{}", sin)
			session.Reason = fmt.Sprintf("Session %d of %d on %s", seq, total, input.Topic)
		}
		session.Start = slot.Start
		session.End = slot.Start.Add(time.Hour)

		var ev activities.CreateLessonEventOutput
		if err := workflow.ExecuteActivity(ctx, "CreateLessonEventActivity", activities.CreateLessonEventInput{
			PlanID:      input.PlanID,
			Subject:     input.Subject,
			Session:     session,
			Description: scheduling.EventDescription(session),
		}).Get(ctx, &ev); err != nil {
			if len(plan.Sessions) == 0 {
				return fail("create calendar event: " + err.Error())
			}
			plan.Status = LessonPlanPartial
			progress.FailReason = "create calendar event: " + err.Error()
			break
		}
		session.EventID = ev.EventID
		session.ScheduledAt = workflow.Now(ctx)
		plan.Sessions = append(plan.Sessions, session)
		previous = append(previous, scheduling.SubtopicOf(session.Topic))
		if err := save(); err != nil {
			return "", err
		}
	}

	if plan.Status == LessonPlanScheduling {
		plan.Status = LessonPlanCompleted
	}
	if err := save(); err != nil {
		return "", err
	}
	return plan.Status, nil
}

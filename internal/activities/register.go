package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.LoadSubmissionActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.UpdateSubmissionStatusActivity)
	w.RegisterActivity(a.LLMGenerateActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
	w.RegisterActivity(a.SaveGradingResultActivity)
	w.RegisterActivity(a.ListFailedSubmissionsActivity)
	w.RegisterActivity(a.FindFreeSlotsActivity)
	w.RegisterActivity(a.CreateLessonEventActivity)
	w.RegisterActivity(a.SaveLessonPlanActivity)
}

package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(GradeSubmissionWorkflow)
	w.RegisterWorkflow(BatchGradeWorkflow)
	w.RegisterWorkflow(RegradeFailedWorkflow)
	w.RegisterWorkflow(LessonPlanWorkflow)
}

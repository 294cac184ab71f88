package workflows

import (
	"time"

	"eduai/internal/models"
)

type GradeSubmissionInput struct {
	SubmissionID    string `json:"submission_id"`
	LLMProviders    int    `json:"llm_providers"`
	CooldownSeconds int    `json:"cooldown_seconds"`
}

type GradingStatus struct {
	SubmissionID string            `json:"submission_id"`
	StudentID    string            `json:"student_id,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	FailReason   string            `json:"fail_reason,omitempty"`
	ResultID     string            `json:"result_id,omitempty"`
	Grade        string            `json:"grade,omitempty"`
	Percentage   float64           `json:"percentage,omitempty"`
	InlinePDF    bool              `json:"inline_pdf"`
	Providers    []string          `json:"providers_used"`
	RetryCounts  map[string]int    `json:"retry_counts"`
	Steps        map[string]string `json:"steps"`
}

type BatchGradeInput struct {
	BatchID               string   `json:"batch_id"`
	SubmissionIDs         []string `json:"submission_ids"`
	MaxConcurrentChildren int      `json:"max_concurrent_children"`
	LLMProviders          int      `json:"llm_providers"`
	CooldownSeconds       int      `json:"cooldown_seconds"`
}

type RegradeFailedInput struct {
	StudentID             string `json:"student_id,omitempty"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
	LLMProviders          int    `json:"llm_providers"`
	CooldownSeconds       int    `json:"cooldown_seconds"`
}

type BatchProgress struct {
	BatchID       string            `json:"batch_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerSubmission map[string]string `json:"per_submission_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}

type LessonPlanInput struct {
	PlanID          string    `json:"plan_id"`
	Topic           string    `json:"topic"`
	Subject         string    `json:"subject"`
	DurationHours   int       `json:"duration_hours"`
	Sessions        int       `json:"sessions"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	LLMProviders    int       `json:"llm_providers"`
	CooldownSeconds int       `json:"cooldown_seconds"`
}

type LessonPlanProgress struct {
	PlanID     string                 `json:"plan_id"`
	Topic      string                 `json:"topic"`
	Subject    string                 `json:"subject"`
	Status     string                 `json:"status"`
	Total      int                    `json:"total"`
	Scheduled  int                    `json:"scheduled"`
	FailReason string                 `json:"fail_reason,omitempty"`
	Sessions   []models.LessonSession `json:"sessions"`
}

package activities

import (
	"time"

	"eduai/internal/models"
)

type LoadSubmissionInput struct {
	SubmissionID string `json:"submission_id"`
}

type ExtractTextInput struct {
	SubmissionID string `json:"submission_id"`
	BlobKey      string `json:"blob_key"`
}

type ExtractTextOutput struct {
	Text   string `json:"text"`
	Pages  int    `json:"pages"`
	NoText bool   `json:"no_text"`
}

type UpdateSubmissionStatusInput struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	FailReason   string `json:"fail_reason,omitempty"`
}

// LLMGenerateInput mirrors providers.GenerateRequest. AttachmentBlobKey names a
// stored PDF the activity attaches itself so document bytes stay out of history.
type LLMGenerateInput struct {
	Operation         string   `json:"operation"`
	SubmissionID      string   `json:"submission_id,omitempty"`
	Subject           string   `json:"subject,omitempty"`
	System            string   `json:"system,omitempty"`
	Prompt            string   `json:"prompt"`
	Context           []string `json:"context,omitempty"`
	AttachmentBlobKey string   `json:"attachment_blob_key,omitempty"`
	JSON              bool     `json:"json,omitempty"`
	Temperature       float64  `json:"temperature,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	ProviderIndex     int      `json:"provider_index"`
	ProviderRef       string   `json:"provider_ref,omitempty"`
}

type LLMGenerateOutput struct {
	Text         string `json:"text"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
}

type LogLLMCallInput struct {
	Operation    string `json:"operation"`
	SubmissionID string `json:"submission_id,omitempty"`
	Subject      string `json:"subject,omitempty"`

	// ProviderIndex and ProviderRef identify the provider the call was sent
	// to; ProviderName is only known when the provider answered.
	ProviderIndex int    `json:"provider_index"`
	ProviderRef   string `json:"provider_ref,omitempty"`
	ProviderName  string `json:"provider_name"`
	Model         string `json:"model,omitempty"`
	RequestID     string `json:"request_id"`
	Status        string `json:"status"`
	ErrorType     string `json:"error_type,omitempty"`
}

type SaveGradingResultInput struct {
	Result models.GradingResult `json:"result"`
}

type ListFailedSubmissionsInput struct {
	StudentID string `json:"student_id,omitempty"`
}

type ListFailedSubmissionsOutput struct {
	Submissions []models.Submission `json:"submissions"`
}

type FindFreeSlotsInput struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type FindFreeSlotsOutput struct {
	Slots []models.TimeSlot `json:"slots"`
}

type CreateLessonEventInput struct {
	PlanID      string               `json:"plan_id"`
	Subject     string               `json:"subject"`
	Session     models.LessonSession `json:"session"`
	Description string               `json:"description"`
}

type CreateLessonEventOutput struct {
	EventID string `json:"event_id"`
	Link    string `json:"link,omitempty"`
}

type SaveLessonPlanInput struct {
	Plan models.LessonPlan `json:"plan"`
}

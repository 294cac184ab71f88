package models

import "time"

const (
	SubmissionPending    = "pending"
	SubmissionExtracting = "extracting"
	SubmissionGrading    = "grading"
	SubmissionGraded     = "graded"
	SubmissionFailed     = "failed"
)

type Submission struct {
	SubmissionID  string    `json:"submission_id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name,omitempty"`
	RollNumber    string    `json:"roll_number,omitempty"`
	Subject       string    `json:"subject"`
	Filename      string    `json:"filename"`
	BlobKey       string    `json:"blob_key"`
	ExtractedText string    `json:"-"`
	Status        string    `json:"status"`
	FailReason    string    `json:"fail_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type OriginalNotes struct {
	TeacherComments []string `json:"teacher_comments"`
	MarginNotes     []string `json:"margin_notes"`
	Corrections     []string `json:"corrections"`
}

type QuestionFeedback struct {
	Number        string   `json:"question_number"`
	Text          string   `json:"question_text"`
	StudentAnswer string   `json:"student_answer"`
	Correctness   string   `json:"correctness"`
	Score         string   `json:"score"`
	Explanation   string   `json:"explanation"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"improvements"`
	Solution      string   `json:"solution"`
}

type SkillsAnalysis struct {
	Mastered   []string `json:"mastered"`
	Developing []string `json:"developing"`
	NeedsWork  []string `json:"needs_work"`
}

type ImprovementPlan struct {
	TopicsToReview      []string `json:"topics_to_review"`
	RecommendedPractice []string `json:"recommended_practice"`
	Resources           []string `json:"resources"`
}

// GradingResult is produced once per successful grading run and never updated.
type GradingResult struct {
	ResultID        string             `json:"result_id"`
	SubmissionID    string             `json:"submission_id"`
	StudentID       string             `json:"student_id"`
	StudentName     string             `json:"student_name,omitempty"`
	Subject         string             `json:"subject"`
	Grade           string             `json:"grade"`
	Percentage      float64            `json:"percentage"`
	Summary         string             `json:"summary"`
	OriginalNotes   OriginalNotes      `json:"original_notes"`
	Questions       []QuestionFeedback `json:"questions"`
	Strengths       []string           `json:"strengths"`
	Weaknesses      []string           `json:"weaknesses"`
	Suggestions     []string           `json:"suggestions"`
	Skills          SkillsAnalysis     `json:"skills_analysis"`
	ImprovementPlan ImprovementPlan    `json:"improvement_plan"`
	Provider        string             `json:"provider,omitempty"`
	Model           string             `json:"model,omitempty"`
	GradedAt        time.Time          `json:"graded_at"`
}

// StudentRecord groups a student's results in GradedAt order.
type StudentRecord struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name,omitempty"`
	Results     []GradingResult `json:"results"`
}

type CalendarEvent struct {
	EventID        string    `json:"event_id,omitempty"`
	CalendarID     string    `json:"calendar_id,omitempty"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	Summary        string    `json:"summary,omitempty"`
	Description    string    `json:"description,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AllDay         bool      `json:"all_day,omitempty"`
	Recurring      bool      `json:"recurring"`
	RecurrenceRule string    `json:"recurrence_rule,omitempty"`
	Location       string    `json:"location,omitempty"`
	Link           string    `json:"link,omitempty"`
}

type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ChatTurn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Context  string    `json:"context,omitempty"`
	At       time.Time `json:"at"`
}

const (
	TopicNotStarted = "Not Started"
	TopicInProgress = "In Progress"
	TopicCompleted  = "Completed"
)

type SyllabusTopic struct {
	Topic         string    `json:"topic"`
	Subject       string    `json:"subject"`
	DurationHours int       `json:"duration_hours"`
	PlannedDate   time.Time `json:"planned_date"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type LessonSession struct {
	Sequence    int       `json:"sequence"`
	Topic       string    `json:"topic"`
	Section     string    `json:"section"`
	LessonPlan  string    `json:"lesson_plan"`
	Reason      string    `json:"reason"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	EventID     string    `json:"event_id,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

type LessonPlan struct {
	PlanID        string          `json:"plan_id"`
	Topic         string          `json:"topic"`
	Subject       string          `json:"subject"`
	DurationHours int             `json:"duration_hours"`
	Status        string          `json:"status"`
	Sessions      []LessonSession `json:"sessions"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Question struct {
	Question       string   `json:"question"`
	Type           string   `json:"type"`
	Difficulty     string   `json:"difficulty"`
	ExpectedTime   string   `json:"expected_time"`
	Marks          string   `json:"marks"`
	Answer         string   `json:"answer"`
	Explanation    string   `json:"explanation"`
	CommonMistakes []string `json:"common_mistakes,omitempty"`
	MarkingScheme  []string `json:"marking_scheme,omitempty"`
	Prerequisites  []string `json:"prerequisites,omitempty"`
	VisualAids     string   `json:"visual_aids,omitempty"`
}

type QuestionBank struct {
	BankID     string     `json:"bank_id"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty"`
	Types      []string   `json:"types"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
}

type StudentInsight struct {
	StudentID           string    `json:"student_id"`
	StudentName         string    `json:"student_name"`
	AssignmentScore     float64   `json:"assignment_score"`
	Strengths           []string  `json:"strengths"`
	Weaknesses          []string  `json:"weaknesses"`
	PredictedScore      float64   `json:"predicted_score"`
	ImprovementPlan     []string  `json:"improvement_plan"`
	LearningStrategy    string    `json:"learning_strategy"`
	MotivationalMessage string    `json:"motivational_message"`
	CreatedAt           time.Time `json:"created_at"`
}

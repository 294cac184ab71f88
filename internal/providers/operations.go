package providers

// Operation names tag GenerateRequest for audit rows, metrics and the mock provider.
const (
	OpGrade           = "grade"
	OpGradeRetry      = "grade_retry"
	OpChat            = "chat"
	OpLessonSession   = "lesson_session"
	OpTopicSuggestion = "topic_suggestion"
	OpQuestions       = "generate_questions"
	OpPYQAnalysis     = "pyq_analysis"
	OpStudentInsight  = "student_insight"
)

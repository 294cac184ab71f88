package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MockProvider returns deterministic, well-formed output for every operation so
// workflows and handlers run end to end without network access.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) SupportsAttachments() bool { return true }

var sessionPattern = regexp.MustCompile(`(?i)session:?\s*#?(\d+)\s*/\s*(\d+)`)

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	var text string
	switch strings.ToLower(req.Operation) {
	case OpGrade, OpGradeRetry:
		text = mockGrade(req)
	case OpLessonSession:
		text = mockLessonSession(req.Prompt)
	case OpTopicSuggestion:
		text = `{}`
	case OpQuestions:
		text = mockQuestions()
	case OpPYQAnalysis:
		text = mockPYQAnalysis()
	case OpStudentInsight:
		text = `{"Strengths":["Consistent effort","Clear working"],"Weaknesses":["Time management"],` +
			`"Predicted_Score":78,"Improvement_Plan":["Timed practice twice a week","Review weak topics"],` +
			`"Learning_Strategy":"Short daily revision with spaced repetition.",` +
			`"Motivational_Message":"Steady progress. Keep going!"}`
	case OpChat:
		text = "How to approach this:\n\n- Start from what students already know.\n- [Tip] Check understanding with a quick exit ticket.\n\nResources:\n- Teacher handbook\n- Open courseware"
	default:
		text = "Mock response."
	}
	return GenerateResponse{Text: text}, info, nil
}

// mockGrade derives a stable percentage from the prompt and attachments.
func mockGrade(req GenerateRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Prompt))
	for _, a := range req.Attachments {
		h.Write(a.Data)
	}
	pct := 55 + int(binary.BigEndian.Uint32(h.Sum(nil)[:4])%45)
	return fmt.Sprintf(`{
  "grade": "%d/100",
  "percentage": "%d%%",
  "summary": "Deterministic mock assessment.",
  "original_notes": {"teacher_comments": [], "margin_notes": [], "corrections": []},
  "questions": [
    {
      "question_number": "1",
      "question_text": "Mock question",
      "student_answer": "Mock answer",
      "evaluation": {"correctness": "partially correct", "score": "%d/100", "explanation": "Mock explanation."},
      "feedback": {"strengths": ["Clear structure"], "improvements": ["Show intermediate steps"], "solution": "Mock solution."}
    }
  ],
  "skills_analysis": {"mastered": ["Recall"], "developing": ["Application"], "needs_work": ["Analysis"]},
  "improvement_plan": {"topics_to_review": ["Core concepts"], "recommended_practice": ["Worked examples"], "resources": ["Textbook chapter review"]}
}`, pct, pct, pct)
}

func mockLessonSession(prompt string) string {
	seq, total := 1, 6
	if m := sessionPattern.FindStringSubmatch(prompt); len(m) == 3 {
		seq, _ = strconv.Atoi(m[1])
		total, _ = strconv.Atoi(m[2])
	}
	section := "Introduction"
	switch {
	case seq == total:
		section = "Review"
	case seq > 1:
		section = "Core Concepts"
	}
	return fmt.Sprintf(`{"topic":"Part %d","subject":"","time_slot":"","duration_hours":1,`+
		`"lesson_plan":"Warm-up, guided practice, independent work.","reason":"Builds on session %d.",`+
		`"section":%q,"sequence_number":%d}`, seq, seq-1, section, seq)
}

func mockQuestions() string {
	return `[
  {"question":"Define the core concept in your own words.","type":"Short Answer","difficulty":"Medium","expected_time":"5 minutes","marks":"3","answer":"A concise definition.","explanation":"Checks recall and paraphrasing.","common_mistakes":["Copying the textbook"],"marking_scheme":["1 mark key term","2 marks explanation"],"prerequisites":["Previous chapter"],"visual_aids":""},
  {"question":"Apply the concept to a worked example.","type":"Problem Solving","difficulty":"Medium","expected_time":"10 minutes","marks":"5","answer":"Step-by-step solution.","explanation":"Checks application.","common_mistakes":["Skipping units"],"marking_scheme":["2 marks method","3 marks result"],"prerequisites":[],"visual_aids":"Diagram"},
  {"question":"Which statement is correct?","type":"MCQ","difficulty":"Medium","expected_time":"2 minutes","marks":"1","answer":"Option B","explanation":"B follows from the definition.","common_mistakes":[],"marking_scheme":["1 mark correct option"],"prerequisites":[],"visual_aids":""}
]`
}

func mockPYQAnalysis() string {
	return `{
  "patterns": [{"type":"Numerical","frequency":"4","example":"Compute the value"}],
  "topics": [{"name":"Core Concepts","frequency":"5","prediction":"80%"},{"name":"Applications","frequency":"3","prediction":"55%"}],
  "difficulty_distribution": {"easy": "30%", "medium": "45%", "hard": "25%"},
  "question_types": ["MCQ", "Short Answer", "Long Answer"],
  "recommended_focus": ["Core Concepts"]
}`
}

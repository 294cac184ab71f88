// Package grading builds grading prompts and turns model output into GradingResults.
package grading

import (
	"fmt"
	"strings"

	"eduai/internal/providers"
)

const basePrompt = `You are an expert teacher grading an assignment. Analyze this assignment comprehensively and extract ALL questions and content. Return the results in the exact JSON format specified below.

Text Formatting Requirements:
1. Extract and process ALL questions from the document
2. Do not skip any content or questions
3. Use proper line breaks to separate ideas
4. Format mathematical content properly
5. Include all teacher's notes and comments

YOU MUST FORMAT THE RESPONSE AS VALID JSON with this exact structure:
{
    "grade": "A/B/C/D/F",
    "percentage": "numeric_score%",
    "summary": "executive_summary_text",
    "original_notes": {
        "teacher_comments": ["comment1", "comment2"],
        "margin_notes": ["note1", "note2"],
        "corrections": ["correction1", "correction2"]
    },
    "questions": [
        {
            "question_number": "1",
            "question_text": "extracted_question",
            "student_answer": "extracted_answer",
            "evaluation": {
                "correctness": "correct/partial/incorrect",
                "score": "numeric_score",
                "explanation": "detailed_explanation"
            },
            "feedback": {
                "strengths": ["point1", "point2"],
                "improvements": ["point1", "point2"],
                "solution": "step_by_step_solution"
            }
        }
    ],
    "skills_analysis": {
        "mastered": ["skill1", "skill2"],
        "developing": ["skill1", "skill2"],
        "needs_work": ["skill1", "skill2"]
    },
    "improvement_plan": {
        "topics_to_review": ["topic1", "topic2"],
        "recommended_practice": ["practice1", "practice2"],
        "resources": ["resource1", "resource2"]
    }
}`

const retrySuffix = "\n\nYour previous reply was not valid JSON. Return ONLY the JSON object described above, with no prose and no code fences."

// Temperatures and output budgets per input kind; inline PDFs need more room
// because the model transcribes the document as it grades.
const (
	textTemperature = 0.1
	pdfTemperature  = 0.3
	maxOutputTokens = 8192
)

// BuildPrompt returns the grading instructions for subject, including its rubric.
func BuildPrompt(subject string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	if s := strings.TrimSpace(subject); s != "" {
		fmt.Fprintf(&sb, "\n\nThis is a %s assignment. Apply subject-specific criteria for %s.", s, s)
	}
	sb.WriteString("\n\nRubric:\n")
	for _, c := range RubricFor(subject) {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// NewRequest builds the provider request for one submission. When text is empty
// the PDF is attached inline so a document-capable model can read it directly.
func NewRequest(subject, text string, pdf []byte, retry bool) providers.GenerateRequest {
	req := providers.GenerateRequest{
		Operation:   providers.OpGrade,
		Prompt:      BuildPrompt(subject),
		JSON:        true,
		Temperature: textTemperature,
		MaxTokens:   maxOutputTokens,
	}
	if retry {
		req.Operation = providers.OpGradeRetry
		req.Prompt += retrySuffix
	}
	if strings.TrimSpace(text) != "" {
		req.Context = []string{"Student submission:\n" + text}
		return req
	}
	req.Temperature = pdfTemperature
	req.Attachments = []providers.Attachment{{MimeType: "application/pdf", Data: pdf}}
	return req
}

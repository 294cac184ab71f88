package pyq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"eduai/internal/providers"
	"eduai/internal/util"
)

const analysisPrompt = `Analyze these %s questions and identify:
1. Common patterns and structures
2. Topic distribution and frequency
3. Predicted topics for future exams
4. Difficulty levels
5. Question types (MCQ, essay, problem-solving, etc.)

Format your response as a JSON object with:
{
    "patterns": [
        {"type": "pattern type", "frequency": "occurrence count", "example": "example question"}
    ],
    "topics": [
        {"name": "topic name", "frequency": "count", "prediction": "likelihood %%"}
    ],
    "difficulty_distribution": {"easy": "%%", "medium": "%%", "hard": "%%"},
    "question_types": ["list of identified types"],
    "recommended_focus": ["prioritized topics for preparation"]
}

This is for the subject: %s. Analyze according to %s-specific criteria.`

// maxQuestionRunes bounds pasted question papers sent as text.
const maxQuestionRunes = 60000

type Pattern struct {
	Type      string `json:"type"`
	Frequency string `json:"frequency"`
	Example   string `json:"example"`
}

type TopicAnalysis struct {
	Name       string  `json:"name"`
	Frequency  string  `json:"frequency"`
	Prediction float64 `json:"prediction"`
}

type Analysis struct {
	Subject                string             `json:"subject"`
	Patterns               []Pattern          `json:"patterns"`
	Topics                 []TopicAnalysis    `json:"topics"`
	DifficultyDistribution map[string]float64 `json:"difficulty_distribution"`
	QuestionTypes          []string           `json:"question_types"`
	RecommendedFocus       []string           `json:"recommended_focus"`
	Provider               string             `json:"provider,omitempty"`
}

type Analyzer struct {
	providers *providers.Manager
}

func NewAnalyzer(pm *providers.Manager) *Analyzer {
	return &Analyzer{providers: pm}
}

// Analyze asks the model for exam patterns in a question paper given either
// as extracted text or as raw PDF bytes.
func (a *Analyzer) Analyze(ctx context.Context, subject, text string, pdf []byte) (Analysis, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Analysis{}, fmt.Errorf("%w: subject is required", util.ErrInvalidInput)
	}
	text = strings.TrimSpace(util.SanitizeText(text))
	if text == "" && len(pdf) == 0 {
		return Analysis{}, fmt.Errorf("%w: question text or pdf is required", util.ErrInvalidInput)
	}

	req := providers.GenerateRequest{
		Operation:   providers.OpPYQAnalysis,
		Prompt:      fmt.Sprintf(analysisPrompt, subject, subject, subject),
		JSON:        true,
		Temperature: 0.2,
		MaxTokens:   8192,
	}
	if text != "" {
		req.Context = []string{"Questions to analyze:\n" + util.Truncate(text, maxQuestionRunes)}
	} else {
		req.Attachments = []providers.Attachment{{MimeType: "application/pdf", Data: pdf}}
	}
	resp, info, err := providers.Generate(ctx, a.providers, req)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze pyq: %w", err)
	}
	out, err := ParseAnalysis(resp.Text)
	if err != nil {
		return Analysis{}, err
	}
	out.Subject = subject
	out.Provider = info.Name
	return out, nil
}

type rawAnalysis struct {
	Patterns []struct {
		Type      util.LooseString `json:"type"`
		Frequency util.LooseString `json:"frequency"`
		Example   util.LooseString `json:"example"`
	} `json:"patterns"`
	Topics []struct {
		Name       util.LooseString `json:"name"`
		Frequency  util.LooseString `json:"frequency"`
		Prediction util.LooseString `json:"prediction"`
	} `json:"topics"`
	DifficultyDistribution map[string]util.LooseString `json:"difficulty_distribution"`
	QuestionTypes          json.RawMessage             `json:"question_types"`
	RecommendedFocus       util.LooseList              `json:"recommended_focus"`
}

// ParseAnalysis decodes the model reply. Percentages may be numbers or
// strings such as "75%"; question_types may be a list or a name-to-share map.
func ParseAnalysis(raw string) (Analysis, error) {
	var r rawAnalysis
	if err := json.Unmarshal([]byte(util.StripCodeFence(raw)), &r); err != nil {
		return Analysis{}, fmt.Errorf("%w: decode pyq analysis: %v", util.ErrInvalidInput, err)
	}
	out := Analysis{
		DifficultyDistribution: map[string]float64{},
		RecommendedFocus:       []string(r.RecommendedFocus),
	}
	for _, p := range r.Patterns {
		out.Patterns = append(out.Patterns, Pattern{
			Type:      strings.TrimSpace(string(p.Type)),
			Frequency: strings.TrimSpace(string(p.Frequency)),
			Example:   strings.TrimSpace(string(p.Example)),
		})
	}
	for _, t := range r.Topics {
		name := strings.TrimSpace(string(t.Name))
		if name == "" {
			continue
		}
		out.Topics = append(out.Topics, TopicAnalysis{
			Name:       name,
			Frequency:  strings.TrimSpace(string(t.Frequency)),
			Prediction: parsePercent(string(t.Prediction)),
		})
	}
	for k, v := range r.DifficultyDistribution {
		out.DifficultyDistribution[strings.ToLower(strings.TrimSpace(k))] = parsePercent(string(v))
	}
	out.QuestionTypes = questionTypeNames(r.QuestionTypes)
	if len(out.Topics) == 0 && len(out.Patterns) == 0 {
		return Analysis{}, fmt.Errorf("%w: pyq analysis has no topics or patterns", util.ErrInvalidInput)
	}
	return out, nil
}

func questionTypeNames(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] != '{' {
		var list util.LooseList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return []string(list)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// parsePercent reads "75%", "75" or 75 and returns 0 for anything else.
func parsePercent(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

const (
	MinCount = 1
	MaxCount = 50
)

type Request struct {
	Subject     string   `json:"subject" validate:"required"`
	Topic       string   `json:"topic" validate:"required"`
	Difficulty  string   `json:"difficulty" validate:"required,oneof=Easy Medium Hard Mixed"`
	Count       int      `json:"count" validate:"min=1,max=50"`
	Types       []string `json:"types" validate:"required,min=1"`
	Description string   `json:"description"`
}

// BankSaver persists generated banks.
type BankSaver interface {
	Insert(ctx context.Context, b models.QuestionBank) error
}

type Generator struct {
	providers *providers.Manager
	saver     BankSaver
	now       func() time.Time
}

// NewGenerator builds a Generator. saver may be nil when banks are not persisted.
func NewGenerator(pm *providers.Manager, saver BankSaver) *Generator {
	return &Generator{providers: pm, saver: saver, now: time.Now}
}

// Validate checks req against the supported catalog.
func Validate(req Request) error {
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Topic) == "" {
		return fmt.Errorf("%w: subject and topic are required", util.ErrInvalidInput)
	}
	if _, ok := difficultyLevels[req.Difficulty]; !ok {
		return fmt.Errorf("%w: unknown difficulty %q", util.ErrInvalidInput, req.Difficulty)
	}
	if req.Count < MinCount || req.Count > MaxCount {
		return fmt.Errorf("%w: count must be between %d and %d", util.ErrInvalidInput, MinCount, MaxCount)
	}
	if len(req.Types) == 0 {
		return fmt.Errorf("%w: at least one question type is required", util.ErrInvalidInput)
	}
	for _, t := range req.Types {
		if _, ok := questionTypes[t]; !ok {
			return fmt.Errorf("%w: unknown question type %q", util.ErrInvalidInput, t)
		}
	}
	return nil
}

// BuildPrompt renders the generation instruction for count questions.
func BuildPrompt(req Request, count int) string {
	profiles := make([]typeProfile, 0, len(req.Types))
	for _, t := range req.Types {
		profiles = append(profiles, questionTypes[t])
	}
	typesJSON, _ := json.MarshalIndent(profiles, "", "  ")
	diffJSON, _ := json.MarshalIndent(difficultyLevels[req.Difficulty], "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Create %d %s difficulty %s questions about '%s'.\n\n", count, strings.ToLower(req.Difficulty), req.Subject, req.Topic)
	fmt.Fprintf(&b, "Question Types to Include (%s):\n%s\n\n", strings.Join(req.Types, ", "), typesJSON)
	fmt.Fprintf(&b, "Difficulty Level Parameters:\n%s\n\n", diffJSON)
	b.WriteString(`Additional Requirements:
1. Each question should match the specified difficulty parameters
2. Include a mix of theoretical and practical questions
3. Incorporate real-world applications where relevant
4. For mathematical/scientific topics, include step-by-step solutions
5. Add diagrams/visual descriptions where appropriate
6. Include misconception warnings in explanations
7. Provide marking scheme guidelines

`)
	fmt.Fprintf(&b, "Additional Context: %s\n\n", strings.TrimSpace(req.Description))
	b.WriteString(`Return a JSON array. Format each question as a JSON object with:
{
    "question": "detailed question text",
    "type": "question type from the specified list",
    "difficulty": "actual difficulty level",
    "expected_time": "time in minutes",
    "marks": "marks allocated",
    "answer": "complete answer",
    "explanation": "detailed explanation with steps",
    "common_mistakes": ["list of common errors to avoid"],
    "marking_scheme": ["points allocation details"],
    "prerequisites": ["concepts needed to answer"],
    "visual_aids": "description of any diagrams/visuals needed"
}`)
	return b.String()
}

// Generate asks the model for req.Count questions, topping up once when the
// first reply is short, and stores the bank when a saver is configured.
func (g *Generator) Generate(ctx context.Context, req Request) (models.QuestionBank, error) {
	if err := Validate(req); err != nil {
		return models.QuestionBank{}, err
	}
	qs, err := g.ask(ctx, req, req.Count)
	if err != nil {
		return models.QuestionBank{}, err
	}
	if len(qs) < req.Count {
		more, err := g.ask(ctx, req, req.Count-len(qs))
		if err != nil {
			return models.QuestionBank{}, fmt.Errorf("top up questions: %w", err)
		}
		qs = append(qs, more...)
	}
	if len(qs) > req.Count {
		qs = qs[:req.Count]
	}

	bank := models.QuestionBank{
		BankID:     uuid.NewString(),
		Subject:    req.Subject,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Types:      append([]string(nil), req.Types...),
		Questions:  qs,
		CreatedAt:  g.now().UTC(),
	}
	if g.saver != nil {
		if err := g.saver.Insert(ctx, bank); err != nil {
			return bank, err
		}
	}
	return bank, nil
}

func (g *Generator) ask(ctx context.Context, req Request, count int) ([]models.Question, error) {
	resp, _, err := providers.Generate(ctx, g.providers, providers.GenerateRequest{
		Operation:   providers.OpQuestions,
		Prompt:      BuildPrompt(req, count),
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   8192,
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	return ParseQuestions(resp.Text)
}

var requiredFields = []string{"question", "type", "difficulty", "expected_time", "marks", "answer", "explanation"}

type rawQuestion struct {
	Question       util.LooseString `json:"question"`
	Type           util.LooseString `json:"type"`
	Difficulty     util.LooseString `json:"difficulty"`
	ExpectedTime   util.LooseString `json:"expected_time"`
	Marks          util.LooseString `json:"marks"`
	Answer         util.LooseString `json:"answer"`
	Explanation    util.LooseString `json:"explanation"`
	CommonMistakes util.LooseList   `json:"common_mistakes"`
	MarkingScheme  util.LooseList   `json:"marking_scheme"`
	Prerequisites  util.LooseList   `json:"prerequisites"`
	VisualAids     util.LooseString `json:"visual_aids"`
}

// ParseQuestions accepts a JSON array of questions or a single question
// object, optionally fenced, and rejects items missing a required field.
func ParseQuestions(raw string) ([]models.Question, error) {
	text := strings.TrimSpace(util.StripCodeFence(raw))
	var items []json.RawMessage
	switch {
	case strings.HasPrefix(text, "["):
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("%w: decode questions: %v", util.ErrInvalidInput, err)
		}
	case strings.HasPrefix(text, "{"):
		items = []json.RawMessage{json.RawMessage(text)}
	default:
		return nil, fmt.Errorf("%w: reply is not a question list", util.ErrInvalidInput)
	}

	out := make([]models.Question, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", util.ErrInvalidInput, i+1, err)
		}
		var missing []string
		for _, f := range requiredFields {
			if _, ok := fields[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: question %d missing required fields: %s", util.ErrInvalidInput, i+1, strings.Join(missing, ", "))
		}
		var q rawQuestion
		if err := json.Unmarshal(item, &q); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", util.ErrInvalidInput, i+1, err)
		}
		out = append(out, models.Question{
			Question:       strings.TrimSpace(string(q.Question)),
			Type:           strings.TrimSpace(string(q.Type)),
			Difficulty:     strings.TrimSpace(string(q.Difficulty)),
			ExpectedTime:   strings.TrimSpace(string(q.ExpectedTime)),
			Marks:          strings.TrimSpace(string(q.Marks)),
			Answer:         strings.TrimSpace(string(q.Answer)),
			Explanation:    strings.TrimSpace(string(q.Explanation)),
			CommonMistakes: []string(q.CommonMistakes),
			MarkingScheme:  []string(q.MarkingScheme),
			Prerequisites:  []string(q.Prerequisites),
			VisualAids:     strings.TrimSpace(string(q.VisualAids)),
		})
	}
	return out, nil
}

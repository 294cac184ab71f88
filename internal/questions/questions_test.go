package questions

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

type scriptedProvider struct {
	replies []string
	prompts []string
}

func (s *scriptedProvider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	s.prompts = append(s.prompts, req.Prompt)
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return providers.GenerateResponse{Text: reply}, providers.ProviderInfo{Name: "scripted"}, nil
}

type mockSaver struct{ mock.Mock }

func (m *mockSaver) Insert(ctx context.Context, b models.QuestionBank) error {
	return m.Called(ctx, b).Error(0)
}

func managerWith(p providers.LLMProvider) *providers.Manager {
	return providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "scripted", Name: "scripted"},
		Provider: p,
	})
}

const oneQuestion = `{"question":"What is 2+2?","type":"Short Answer","difficulty":"Easy","expected_time":"1 minute","marks":1,"answer":"4","explanation":"Addition."}`

func baseRequest() Request {
	return Request{Subject: "Mathematics", Topic: "Addition", Difficulty: "Easy", Count: 3, Types: []string{TypeShortAnswer}}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(baseRequest()))

	for name, mutate := range map[string]func(*Request){
		"count zero":   func(r *Request) { r.Count = 0 },
		"count 51":     func(r *Request) { r.Count = 51 },
		"difficulty":   func(r *Request) { r.Difficulty = "Extreme" },
		"no types":     func(r *Request) { r.Types = nil },
		"unknown type": func(r *Request) { r.Types = []string{"Crossword"} },
		"no topic":     func(r *Request) { r.Topic = " " },
	} {
		t.Run(name, func(t *testing.T) {
			r := baseRequest()
			mutate(&r)
			require.ErrorIs(t, Validate(r), util.ErrInvalidInput)
		})
	}
}

func TestParseQuestionsAcceptsObjectAndFence(t *testing.T) {
	qs, err := ParseQuestions("```json\n" + oneQuestion + "\n```")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, "1", qs[0].Marks)
	require.Equal(t, "4", qs[0].Answer)
}

func TestParseQuestionsRejectsMissingFields(t *testing.T) {
	_, err := ParseQuestions(`[{"question":"q","type":"Essay"}]`)
	require.ErrorIs(t, err, util.ErrInvalidInput)
	require.Contains(t, err.Error(), "difficulty")

	_, err = ParseQuestions("not json")
	require.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestGenerateTopsUpOnceAndTrims(t *testing.T) {
	p := &scriptedProvider{replies: []string{oneQuestion, "[" + oneQuestion + "," + oneQuestion + "," + oneQuestion + "]"}}
	saver := &mockSaver{}
	saver.On("Insert", mock.Anything, mock.MatchedBy(func(b models.QuestionBank) bool {
		return len(b.Questions) == 3 && b.Subject == "Mathematics"
	})).Return(nil).Once()

	bank, err := NewGenerator(managerWith(p), saver).Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, bank.Questions, 3)
	require.NotEmpty(t, bank.BankID)
	require.Len(t, p.prompts, 2)
	require.True(t, strings.HasPrefix(p.prompts[0], "Create 3 easy difficulty Mathematics questions about 'Addition'."))
	require.True(t, strings.HasPrefix(p.prompts[1], "Create 2 easy difficulty"))
	saver.AssertExpectations(t)
}

func TestGenerateWithMockProvider(t *testing.T) {
	m := providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "mock", Name: "mock"},
		Provider: providers.NewMockProvider(),
	})
	req := baseRequest()
	req.Count = 5
	bank, err := NewGenerator(m, nil).Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, bank.Questions, 5)
}

func TestExportCSV(t *testing.T) {
	bank := models.QuestionBank{
		Subject: "Physics",
		Topic:   "Motion",
		Questions: []models.Question{{
			Question:       "Define velocity, with units",
			Type:           TypeShortAnswer,
			Difficulty:     "Easy",
			ExpectedTime:   "2 minutes",
			Marks:          "2",
			Answer:         "Rate of change of displacement",
			Explanation:    "Vector quantity",
			CommonMistakes: []string{"Confusing with speed", "Missing units"},
		}},
	}
	out, err := ExportCSV(bank)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	rows, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, csvHeaders, rows[0])
	require.Equal(t, "Physics", rows[1][0])
	require.Equal(t, "Define velocity, with units", rows[1][4])
	require.Equal(t, "Confusing with speed; Missing units", rows[1][9])
}

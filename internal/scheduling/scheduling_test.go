package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

type stubProvider struct{ reply string }

func (s stubProvider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return providers.GenerateResponse{Text: s.reply}, providers.ProviderInfo{Name: "stub"}, nil
}

func managerWith(p providers.LLMProvider, name string) *providers.Manager {
	return providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: name, Name: name},
		Provider: p,
	})
}

func day(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func sampleTopics() []models.SyllabusTopic {
	return []models.SyllabusTopic{
		{Topic: "Vectors", Status: models.TopicNotStarted, PlannedDate: day("2026-03-10")},
		{Topic: "Limits", Status: models.TopicCompleted},
		{Topic: "Matrices", Status: models.TopicNotStarted, PlannedDate: day("2026-03-05")},
		{Topic: "Probability", Status: models.TopicNotStarted},
		{Topic: "Derivatives", Status: models.TopicInProgress, PlannedDate: day("2026-03-20")},
	}
}

func TestPendingTopicsOrder(t *testing.T) {
	var names []string
	for _, p := range PendingTopics(sampleTopics()) {
		names = append(names, p.Topic)
	}
	require.Equal(t, []string{"Derivatives", "Matrices", "Vectors", "Probability"}, names)
}

func TestSuggestTopicsFallsBackOnEmptyReply(t *testing.T) {
	m := managerWith(providers.NewMockProvider(), "mock")
	s, err := SuggestTopics(context.Background(), m, sampleTopics(), day("2026-03-01"))
	require.NoError(t, err)
	require.True(t, s.Fallback)
	require.Equal(t, []DayPlan{
		{Date: "2026-03-01", Topics: []string{"Derivatives"}},
		{Date: "2026-03-02", Topics: []string{"Matrices"}},
		{Date: "2026-03-03", Topics: []string{"Vectors"}},
		{Date: "2026-03-04", Topics: []string{"Probability"}},
	}, s.Days)
}

func TestSuggestTopicsKeepsKnownTopics(t *testing.T) {
	reply := `{"2026-03-02":["matrices","Astronomy"],"2026-03-01":["Derivatives"],"soon":["Vectors"]}`
	s, err := SuggestTopics(context.Background(), managerWith(stubProvider{reply: reply}, "stub"), sampleTopics(), day("2026-03-01"))
	require.NoError(t, err)
	require.False(t, s.Fallback)
	require.Equal(t, "stub", s.Provider)
	require.Equal(t, []DayPlan{
		{Date: "2026-03-01", Topics: []string{"Derivatives"}},
		{Date: "2026-03-02", Topics: []string{"Matrices"}},
	}, s.Days)
}

func TestBuildSuggestionPrompt(t *testing.T) {
	p := BuildSuggestionPrompt(sampleTopics(), day("2026-03-01"))
	require.Contains(t, p, "- Completed Topics: Limits")
	require.Contains(t, p, "- In Progress: Derivatives")
	require.Contains(t, p, `"2026-03-02": ["Topic 3"]`)
}

func TestSessionPromptAndParse(t *testing.T) {
	in := SessionInput{
		Topic: "Quadratic Equations", Subject: "Mathematics", DurationHours: 1,
		Sequence: 2, Total: 6, Previous: []string{"Introduction"},
		Slot: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
	}
	p := BuildSessionPrompt(in)
	require.Contains(t, p, "Current Session: 2/6")
	require.Contains(t, p, "Previous Topics Covered: Introduction")
	require.Contains(t, p, "Time Slot: 02:00 PM")

	resp, _, err := providers.NewMockProvider().Generate(context.Background(), providers.GenerateRequest{
		Operation: providers.OpLessonSession, Prompt: p,
	})
	require.NoError(t, err)
	s, err := ParseSession(resp.Text, in)
	require.NoError(t, err)
	require.Equal(t, "[2/6] Core Concepts: Part 2", s.Topic)
	require.Equal(t, "Part 2", SubtopicOf(s.Topic))
	require.True(t, strings.HasPrefix(EventDescription(s), "Lesson Plan:\nWarm-up"))
	require.Contains(t, EventDescription(s), "\n\nTeaching Focus:\nBuilds on session 1.")

	_, err = ParseSession("nope", in)
	require.ErrorIs(t, err, util.ErrInvalidInput)
}

type mockSyllabusStore struct{ mock.Mock }

func (m *mockSyllabusStore) Upsert(ctx context.Context, t models.SyllabusTopic) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockSyllabusStore) UpdateStatus(ctx context.Context, subject, topic, status string) error {
	return m.Called(ctx, subject, topic, status).Error(0)
}

func (m *mockSyllabusStore) List(ctx context.Context, subject string) ([]models.SyllabusTopic, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).([]models.SyllabusTopic), args.Error(1)
}

type mockMirror struct{ mock.Mock }

func (m *mockMirror) UpsertSyllabusTopic(ctx context.Context, t models.SyllabusTopic) error {
	return m.Called(ctx, t).Error(0)
}

func TestSyllabusAddDefaultsAndMirrors(t *testing.T) {
	store := &mockSyllabusStore{}
	mirror := &mockMirror{}
	want := models.SyllabusTopic{Topic: "Optics", Subject: "Physics", DurationHours: 1, Status: models.TopicNotStarted}
	store.On("Upsert", mock.Anything, want).Return(nil).Once()
	mirror.On("UpsertSyllabusTopic", mock.Anything, want).Return(errors.New("quota")).Once()

	got, err := NewSyllabus(store, mirror).Add(context.Background(), models.SyllabusTopic{Topic: " Optics ", Subject: "Physics"})
	require.Error(t, err)
	require.Equal(t, want, got)
	store.AssertExpectations(t)
	mirror.AssertExpectations(t)

	_, err = NewSyllabus(store, nil).Add(context.Background(), models.SyllabusTopic{Topic: "x", Subject: "y", Status: "Paused"})
	require.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestSyllabusSetStatus(t *testing.T) {
	store := &mockSyllabusStore{}
	mirror := &mockMirror{}
	row := models.SyllabusTopic{Topic: "Optics", Subject: "Physics", Status: models.TopicCompleted}
	store.On("UpdateStatus", mock.Anything, "Physics", "optics", models.TopicCompleted).Return(nil).Once()
	store.On("List", mock.Anything, "Physics").Return([]models.SyllabusTopic{row}, nil).Once()
	mirror.On("UpsertSyllabusTopic", mock.Anything, row).Return(nil).Once()

	require.NoError(t, NewSyllabus(store, mirror).SetStatus(context.Background(), "Physics", "optics", models.TopicCompleted))
	store.AssertExpectations(t)
	mirror.AssertExpectations(t)

	require.ErrorIs(t, NewSyllabus(store, mirror).SetStatus(context.Background(), "Physics", "optics", "Done"), util.ErrInvalidInput)
}

package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

type recordingProvider struct {
	reqs  []providers.GenerateRequest
	reply string
}

func (r *recordingProvider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	r.reqs = append(r.reqs, req)
	return providers.GenerateResponse{Text: r.reply}, providers.ProviderInfo{Name: "recording", Model: "test"}, nil
}

func newTestService(p providers.LLMProvider, limit int) *Service {
	m := providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "recording", Name: "recording"},
		Provider: p,
	})
	return NewService(m, NewMemorySessions(time.Hour, 50), limit)
}

func TestFormatTeachingResponse(t *testing.T) {
	in := "How to plan a lesson\n\nStart with goals. [Important] keep it short.\n\n• first\n  • second\n\n\n\n[Example] fractions"
	out := FormatTeachingResponse(in)
	require.Equal(t, "### How to plan a lesson\nStart with goals. **Important:** keep it short.\n- first\n- second\n**Example:** fractions", out)
}

func TestExtractResources(t *testing.T) {
	in := "Some advice.\n\nUseful Resources:\n- Khan Academy\n• NCERT textbook\n\nClosing remarks."
	require.Equal(t, []string{"Khan Academy", "NCERT textbook"}, ExtractResources(in))
	require.Nil(t, ExtractResources("no list here"))
}

func TestBuildPromptAddsFocusArea(t *testing.T) {
	p := BuildPrompt(" How do I grade essays? ", "assessment")
	require.True(t, strings.HasPrefix(p, "As an expert teacher assistant, help with this question: How do I grade essays?"))
	require.True(t, strings.HasSuffix(p, "Focus area: Guidance on assessment methods and rubrics"))
	require.NotContains(t, BuildPrompt("q", ""), "Focus area")
}

func TestAskCreatesSessionAndKeepsHistory(t *testing.T) {
	p := &recordingProvider{reply: "Tips for feedback\n\nBe specific.\n\nResources:\n- Rubric guide"}
	svc := newTestService(p, 1)
	ctx := context.Background()

	first, err := svc.Ask(ctx, "", "How should I give feedback?", "feedback")
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	require.Equal(t, "recording", first.Provider)
	require.Equal(t, []string{"Rubric guide"}, first.Resources)
	require.True(t, strings.HasPrefix(first.Answer, "### Tips for feedback"))

	_, err = svc.Ask(ctx, first.SessionID, "And for group work?", "")
	require.NoError(t, err)
	_, err = svc.Ask(ctx, first.SessionID, "Anything else?", "")
	require.NoError(t, err)

	require.Len(t, p.reqs, 3)
	require.Empty(t, p.reqs[0].History)
	require.Len(t, p.reqs[1].History, 2)
	require.Equal(t, "How should I give feedback?", p.reqs[1].History[0].Content)
	// history limit of one turn keeps only the previous exchange
	require.Len(t, p.reqs[2].History, 2)
	require.Equal(t, "And for group work?", p.reqs[2].History[0].Content)
	require.Equal(t, providers.OpChat, p.reqs[2].Operation)
	require.InDelta(t, 0.7, p.reqs[2].Temperature, 1e-9)

	turns, err := svc.History(ctx, first.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, "feedback", turns[0].Context)
}

func TestAskValidation(t *testing.T) {
	svc := newTestService(&recordingProvider{reply: "ok"}, 5)
	ctx := context.Background()

	_, err := svc.Ask(ctx, "", "  ", "")
	require.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = svc.Ask(ctx, "", "question", "astrology")
	require.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = svc.Ask(ctx, "missing-session", "question", "")
	require.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestMemorySessionsExpireAndCap(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	m := NewMemorySessions(time.Minute, 2)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	id, err := m.Create(ctx)
	require.NoError(t, err)
	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, m.Append(ctx, id, models.ChatTurn{Question: q}))
	}
	turns, err := m.History(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "b", turns[0].Question)

	now = now.Add(2 * time.Minute)
	_, err = m.History(ctx, id, 0)
	require.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestTurnCodecRoundTrip(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	s, err := encodeTurn(models.ChatTurn{Question: "q", Answer: "a", Context: "assessment", At: at})
	require.NoError(t, err)
	turn, err := decodeTurn(s)
	require.NoError(t, err)
	require.Equal(t, "assessment", turn.Context)
	require.True(t, turn.At.Equal(at))
	_, err = decodeTurn("{")
	require.Error(t, err)
}

func TestContextsSorted(t *testing.T) {
	cs := Contexts()
	require.Len(t, cs, 6)
	require.Equal(t, "assessment", cs[0].Key)
}

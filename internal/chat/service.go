package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eduai/internal/models"
	"eduai/internal/providers"
	"eduai/internal/util"
)

type Reply struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Resources []string `json:"resources"`
	Provider  string   `json:"provider"`
}

type Service struct {
	providers    *providers.Manager
	sessions     SessionStore
	historyLimit int
	now          func() time.Time
}

func NewService(pm *providers.Manager, sessions SessionStore, historyLimit int) *Service {
	return &Service{providers: pm, sessions: sessions, historyLimit: historyLimit, now: time.Now}
}

func (s *Service) NewSession(ctx context.Context) (string, error) {
	return s.sessions.Create(ctx)
}

func (s *Service) History(ctx context.Context, sessionID string) ([]models.ChatTurn, error) {
	return s.sessions.History(ctx, sessionID, 0)
}

// BuildPrompt renders the assistant prompt, adding the focus area when contextKey is set.
func BuildPrompt(question, contextKey string) string {
	prompt := fmt.Sprintf(promptTemplate, strings.TrimSpace(question))
	if desc, ok := TeachingContexts[contextKey]; ok {
		prompt += "\n\nFocus area: " + desc
	}
	return prompt
}

// Ask answers question within sessionID, replaying up to historyLimit prior
// turns. An empty sessionID starts a new session.
func (s *Service) Ask(ctx context.Context, sessionID, question, contextKey string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, fmt.Errorf("%w: question is empty", util.ErrInvalidInput)
	}
	if contextKey != "" {
		if _, ok := TeachingContexts[contextKey]; !ok {
			return Reply{}, fmt.Errorf("%w: unknown teaching context %q", util.ErrInvalidInput, contextKey)
		}
	}

	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return Reply{}, err
		}
		sessionID = id
	}
	past, err := s.sessions.History(ctx, sessionID, s.historyLimit)
	if err != nil {
		return Reply{}, err
	}
	history := make([]providers.Message, 0, len(past)*2)
	for _, t := range past {
		history = append(history,
			providers.Message{Role: "user", Content: t.Question},
			providers.Message{Role: "assistant", Content: t.Answer},
		)
	}

	resp, info, err := providers.Generate(ctx, s.providers, providers.GenerateRequest{
		Operation:   providers.OpChat,
		Prompt:      BuildPrompt(question, contextKey),
		History:     history,
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat: %w", err)
	}

	answer := FormatTeachingResponse(resp.Text)
	turn := models.ChatTurn{Question: question, Answer: answer, Context: contextKey, At: s.now().UTC()}
	if err := s.sessions.Append(ctx, sessionID, turn); err != nil {
		return Reply{}, err
	}
	return Reply{
		SessionID: sessionID,
		Answer:    answer,
		Resources: ExtractResources(resp.Text),
		Provider:  info.Name,
	}, nil
}

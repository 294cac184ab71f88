package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"eduai/internal/models"
	"eduai/internal/util"
)

// SessionStore keeps chat turns per session. Unknown or expired sessions
// return util.ErrSessionNotFound.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Append(ctx context.Context, sessionID string, turn models.ChatTurn) error
	History(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error)
}

type memorySession struct {
	turns     []models.ChatTurn
	expiresAt time.Time
}

// MemorySessions is a process-local SessionStore with sliding expiry.
type MemorySessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxTurns int
	now      func() time.Time
	sessions map[string]*memorySession
}

func NewMemorySessions(ttl time.Duration, maxTurns int) *MemorySessions {
	return &MemorySessions{ttl: ttl, maxTurns: maxTurns, now: time.Now, sessions: map[string]*memorySession{}}
}

func (m *MemorySessions) Create(ctx context.Context) (string, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	id := uuid.NewString()
	m.sessions[id] = &memorySession{expiresAt: m.now().Add(m.ttl)}
	return id, nil
}

func (m *MemorySessions) Append(ctx context.Context, sessionID string, turn models.ChatTurn) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.getLocked(sessionID)
	if err != nil {
		return err
	}
	s.turns = append(s.turns, turn)
	if m.maxTurns > 0 && len(s.turns) > m.maxTurns {
		s.turns = append([]models.ChatTurn(nil), s.turns[len(s.turns)-m.maxTurns:]...)
	}
	s.expiresAt = m.now().Add(m.ttl)
	return nil
}

func (m *MemorySessions) History(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.getLocked(sessionID)
	if err != nil {
		return nil, err
	}
	turns := s.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]models.ChatTurn{}, turns...), nil
}

func (m *MemorySessions) getLocked(id string) (*memorySession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	if m.ttl > 0 && m.now().After(s.expiresAt) {
		delete(m.sessions, id)
		return nil, util.ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessions) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, s := range m.sessions {
		if now.After(s.expiresAt) {
			delete(m.sessions, id)
		}
	}
}

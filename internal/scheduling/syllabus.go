package scheduling

import (
	"context"
	"fmt"
	"strings"

	"eduai/internal/models"
	"eduai/internal/util"
)

type SyllabusStore interface {
	Upsert(ctx context.Context, t models.SyllabusTopic) error
	UpdateStatus(ctx context.Context, subject, topic, status string) error
	List(ctx context.Context, subject string) ([]models.SyllabusTopic, error)
}

// SyllabusMirror receives every change so the Syllabus worksheet stays in step.
type SyllabusMirror interface {
	UpsertSyllabusTopic(ctx context.Context, t models.SyllabusTopic) error
}

type Syllabus struct {
	store  SyllabusStore
	mirror SyllabusMirror
}

// NewSyllabus builds the syllabus service. mirror may be nil.
func NewSyllabus(store SyllabusStore, mirror SyllabusMirror) *Syllabus {
	return &Syllabus{store: store, mirror: mirror}
}

func ValidStatus(s string) bool {
	switch s {
	case models.TopicNotStarted, models.TopicInProgress, models.TopicCompleted:
		return true
	}
	return false
}

func (s *Syllabus) List(ctx context.Context, subject string) ([]models.SyllabusTopic, error) {
	return s.store.List(ctx, subject)
}

// Add stores a topic, defaulting its status to Not Started.
func (s *Syllabus) Add(ctx context.Context, t models.SyllabusTopic) (models.SyllabusTopic, error) {
	t.Topic = strings.TrimSpace(t.Topic)
	t.Subject = strings.TrimSpace(t.Subject)
	if t.Topic == "" || t.Subject == "" {
		return models.SyllabusTopic{}, fmt.Errorf("%w: topic and subject are required", util.ErrInvalidInput)
	}
	if t.Status == "" {
		t.Status = models.TopicNotStarted
	}
	if !ValidStatus(t.Status) {
		return models.SyllabusTopic{}, fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, t.Status)
	}
	if t.DurationHours <= 0 {
		t.DurationHours = 1
	}
	if err := s.store.Upsert(ctx, t); err != nil {
		return models.SyllabusTopic{}, err
	}
	return t, s.mirrorTopic(ctx, t)
}

// SetStatus changes a topic's status and mirrors the stored row.
func (s *Syllabus) SetStatus(ctx context.Context, subject, topic, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, status)
	}
	if err := s.store.UpdateStatus(ctx, subject, topic, status); err != nil {
		return err
	}
	if s.mirror == nil {
		return nil
	}
	topics, err := s.store.List(ctx, subject)
	if err != nil {
		return err
	}
	for _, t := range topics {
		if strings.EqualFold(t.Topic, topic) {
			return s.mirrorTopic(ctx, t)
		}
	}
	return nil
}

func (s *Syllabus) mirrorTopic(ctx context.Context, t models.SyllabusTopic) error {
	if s.mirror == nil {
		return nil
	}
	if err := s.mirror.UpsertSyllabusTopic(ctx, t); err != nil {
		return fmt.Errorf("mirror syllabus topic %s: %w", t.Topic, err)
	}
	return nil
}

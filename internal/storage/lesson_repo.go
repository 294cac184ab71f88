package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"eduai/internal/models"
	"eduai/internal/util"
)

type LessonRepo struct {
	db *DB
}

func NewLessonRepo(db *DB) *LessonRepo {
	return &LessonRepo{db: db}
}

// Save writes the plan and its sessions so far; it is called after each scheduled session.
func (r *LessonRepo) Save(ctx context.Context, p models.LessonPlan) error {
	sessions, err := json.Marshal(p.Sessions)
	if err != nil {
		return fmt.Errorf("encode lesson sessions: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO lesson_plans (plan_id, subject, topic, duration_hours, status, sessions)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (plan_id)
DO UPDATE SET status = EXCLUDED.status, sessions = EXCLUDED.sessions, updated_at = NOW()`,
		p.PlanID, p.Subject, p.Topic, p.DurationHours, p.Status, sessions)
	if err != nil {
		return fmt.Errorf("save lesson plan: %w", err)
	}
	return nil
}

func (r *LessonRepo) Get(ctx context.Context, planID string) (models.LessonPlan, error) {
	var p models.LessonPlan
	var sessions []byte
	err := r.db.Pool.QueryRow(ctx, `
SELECT plan_id::text, subject, topic, duration_hours, status, sessions, created_at
FROM lesson_plans WHERE plan_id=$1`, planID).
		Scan(&p.PlanID, &p.Subject, &p.Topic, &p.DurationHours, &p.Status, &sessions, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LessonPlan{}, fmt.Errorf("lesson plan %s: %w", planID, util.ErrNotFound)
	}
	if err != nil {
		return models.LessonPlan{}, fmt.Errorf("get lesson plan: %w", err)
	}
	if err := json.Unmarshal(sessions, &p.Sessions); err != nil {
		return models.LessonPlan{}, fmt.Errorf("decode lesson sessions: %w", err)
	}
	return p, nil
}

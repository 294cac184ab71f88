package storage

import (
	"context"
	"fmt"
	"time"

	"eduai/internal/models"
	"eduai/internal/util"
)

type SyllabusRepo struct {
	db *DB
}

func NewSyllabusRepo(db *DB) *SyllabusRepo {
	return &SyllabusRepo{db: db}
}

func (r *SyllabusRepo) Upsert(ctx context.Context, t models.SyllabusTopic) error {
	var planned *time.Time
	if !t.PlannedDate.IsZero() {
		planned = &t.PlannedDate
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO syllabus_topics (subject, topic, duration_hours, planned_date, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (subject, topic)
DO UPDATE SET
  duration_hours = EXCLUDED.duration_hours,
  planned_date = COALESCE(EXCLUDED.planned_date, syllabus_topics.planned_date),
  status = EXCLUDED.status,
  updated_at = NOW()`,
		t.Subject, t.Topic, t.DurationHours, planned, t.Status)
	if err != nil {
		return fmt.Errorf("upsert syllabus topic: %w", err)
	}
	return nil
}

func (r *SyllabusRepo) UpdateStatus(ctx context.Context, subject, topic, status string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE syllabus_topics SET status=$3, updated_at=NOW()
WHERE lower(subject)=lower($1) AND lower(topic)=lower($2)`, subject, topic, status)
	if err != nil {
		return fmt.Errorf("update syllabus status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("syllabus topic %s/%s: %w", subject, topic, util.ErrNotFound)
	}
	return nil
}

// List returns topics for subject, or every topic when subject is empty.
func (r *SyllabusRepo) List(ctx context.Context, subject string) ([]models.SyllabusTopic, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT subject, topic, duration_hours, planned_date, status, updated_at
FROM syllabus_topics
WHERE $1 = '' OR lower(subject) = lower($1)
ORDER BY planned_date NULLS LAST, topic`, subject)
	if err != nil {
		return nil, fmt.Errorf("list syllabus: %w", err)
	}
	defer rows.Close()
	out := make([]models.SyllabusTopic, 0)
	for rows.Next() {
		var t models.SyllabusTopic
		var planned *time.Time
		if err := rows.Scan(&t.Subject, &t.Topic, &t.DurationHours, &planned, &t.Status, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan syllabus topic: %w", err)
		}
		if planned != nil {
			t.PlannedDate = *planned
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

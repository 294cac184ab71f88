package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"eduai/internal/models"
)

type InsightRepo struct {
	db *DB
}

func NewInsightRepo(db *DB) *InsightRepo {
	return &InsightRepo{db: db}
}

func (r *InsightRepo) SaveInsight(ctx context.Context, in models.StudentInsight, notes string) error {
	detail, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode insight: %w", err)
	}
	if _, err := r.db.Pool.Exec(ctx, `INSERT INTO student_insights (student_id, detail, notes, created_at) VALUES ($1, $2, NULLIF($3,''), $4)`,
		in.StudentID, detail, notes, in.CreatedAt); err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

func (r *InsightRepo) ListByStudent(ctx context.Context, studentID string) ([]models.StudentInsight, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT detail FROM student_insights WHERE student_id=$1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()
	out := make([]models.StudentInsight, 0)
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		var in models.StudentInsight
		if err := json.Unmarshal(detail, &in); err != nil {
			return nil, fmt.Errorf("decode insight: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"eduai/internal/models"
	"eduai/internal/util"
)

// ResultRepo is the Postgres result store. Rows are only ever inserted.
type ResultRepo struct {
	q querier
}

func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{q: db.Pool}
}

func (r *ResultRepo) Name() string { return "postgres" }

// AppendResult inserts one result row. An empty ResultID gets a server-side uuid.
func (r *ResultRepo) AppendResult(ctx context.Context, res models.GradingResult) error {
	if res.ResultID != "" {
		if _, err := uuid.Parse(res.ResultID); err != nil {
			return fmt.Errorf("result id %q is not a uuid: %w", res.ResultID, util.ErrInvalidInput)
		}
	}
	detail, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode grading result: %w", err)
	}
	_, err = r.q.Exec(ctx, `
INSERT INTO grading_results (result_id, submission_id, student_id, student_name, subject, grade, percentage, provider, model, detail, graded_at)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, $3, NULLIF($4,''), $5, $6, $7, NULLIF($8,''), NULLIF($9,''), $10, $11)`,
		res.ResultID, res.SubmissionID, res.StudentID, res.StudentName, res.Subject, res.Grade, res.Percentage,
		res.Provider, res.Model, detail, res.GradedAt)
	if err != nil {
		return fmt.Errorf("insert grading result: %w", err)
	}
	return nil
}

func (r *ResultRepo) ListByStudent(ctx context.Context, studentID string) ([]models.GradingResult, error) {
	return r.list(ctx, `SELECT detail FROM grading_results WHERE student_id=$1 ORDER BY graded_at ASC`, studentID)
}

func (r *ResultRepo) ListAll(ctx context.Context) ([]models.GradingResult, error) {
	return r.list(ctx, `SELECT detail FROM grading_results ORDER BY graded_at ASC`)
}

// LatestForSubmission returns the newest result for a submission.
func (r *ResultRepo) LatestForSubmission(ctx context.Context, submissionID string) (models.GradingResult, error) {
	var detail []byte
	err := r.q.QueryRow(ctx, `
SELECT detail FROM grading_results WHERE submission_id=$1 ORDER BY graded_at DESC LIMIT 1`, submissionID).Scan(&detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GradingResult{}, fmt.Errorf("result for submission %s: %w", submissionID, util.ErrNotFound)
	}
	if err != nil {
		return models.GradingResult{}, fmt.Errorf("get grading result: %w", err)
	}
	var res models.GradingResult
	if err := json.Unmarshal(detail, &res); err != nil {
		return models.GradingResult{}, fmt.Errorf("decode grading result: %w", err)
	}
	return res, nil
}

func (r *ResultRepo) list(ctx context.Context, query string, args ...any) ([]models.GradingResult, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grading results: %w", err)
	}
	defer rows.Close()
	out := make([]models.GradingResult, 0)
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("scan grading result: %w", err)
		}
		var res models.GradingResult
		if err := json.Unmarshal(detail, &res); err != nil {
			return nil, fmt.Errorf("decode grading result: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grading results: %w", err)
	}
	return out, nil
}

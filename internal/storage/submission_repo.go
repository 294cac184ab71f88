package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"eduai/internal/models"
	"eduai/internal/util"
)

type SubmissionRepo struct {
	q querier
}

func NewSubmissionRepo(db *DB) *SubmissionRepo {
	return &SubmissionRepo{q: db.Pool}
}

const submissionColumns = `submission_id, student_id, COALESCE(student_name,''), COALESCE(roll_number,''), subject,
       filename, blob_key, status, COALESCE(fail_reason,''), created_at, updated_at`

func scanSubmission(row pgx.Row) (models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.SubmissionID, &s.StudentID, &s.StudentName, &s.RollNumber, &s.Subject,
		&s.Filename, &s.BlobKey, &s.Status, &s.FailReason, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Upsert records an upload. Re-uploading the same PDF for the same student resets
// the row to pending so it is graded again, unless a grading run is still
// extracting or grading it.
func (r *SubmissionRepo) Upsert(ctx context.Context, s models.Submission) error {
	_, err := r.q.Exec(ctx, `
INSERT INTO submissions (submission_id, student_id, student_name, roll_number, subject, filename, blob_key, status, fail_reason)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8, NULLIF($9,''))
ON CONFLICT (submission_id)
DO UPDATE SET
  student_name = COALESCE(EXCLUDED.student_name, submissions.student_name),
  roll_number = COALESCE(EXCLUDED.roll_number, submissions.roll_number),
  subject = EXCLUDED.subject,
  filename = EXCLUDED.filename,
  blob_key = EXCLUDED.blob_key,
  status = CASE WHEN submissions.status IN ('extracting','grading') THEN submissions.status ELSE EXCLUDED.status END,
  fail_reason = CASE WHEN submissions.status IN ('extracting','grading') THEN submissions.fail_reason ELSE EXCLUDED.fail_reason END,
  updated_at = NOW()`,
		s.SubmissionID, s.StudentID, s.StudentName, s.RollNumber, s.Subject, s.Filename, s.BlobKey, s.Status, s.FailReason,
	)
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepo) UpdateStatus(ctx context.Context, submissionID, status, failReason string) error {
	tag, err := r.q.Exec(ctx, `UPDATE submissions SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE submission_id=$1`,
		submissionID, status, failReason)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update submission status %s: %w", submissionID, util.ErrNotFound)
	}
	return nil
}

func (r *SubmissionRepo) Get(ctx context.Context, submissionID string) (models.Submission, error) {
	s, err := scanSubmission(r.q.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE submission_id=$1`, submissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Submission{}, fmt.Errorf("get submission %s: %w", submissionID, util.ErrNotFound)
	}
	if err != nil {
		return models.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return s, nil
}

func (r *SubmissionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	return r.list(ctx, "list student submissions",
		`SELECT `+submissionColumns+` FROM submissions WHERE student_id=$1 ORDER BY created_at DESC`, studentID)
}

// ListFailed returns failed submissions, optionally restricted to one student.
func (r *SubmissionRepo) ListFailed(ctx context.Context, studentID string) ([]models.Submission, error) {
	return r.list(ctx, "list failed submissions",
		`SELECT `+submissionColumns+` FROM submissions
WHERE status='failed' AND ($1 = '' OR student_id = $1)
ORDER BY updated_at DESC`, studentID)
}

func (r *SubmissionRepo) list(ctx context.Context, op, query string, args ...any) ([]models.Submission, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	out := make([]models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

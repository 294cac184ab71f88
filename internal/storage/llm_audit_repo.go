package storage

import (
	"context"
	"fmt"
)

// LLMCallRecord is one provider attempt, successful or not.
type LLMCallRecord struct {
	CallID       string
	Operation    string
	SubmissionID string
	Subject      string
	ProviderName string
	Model        string
	RequestID    string
	Status       string
	ErrorType    string
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, submission_id, subject, provider_name, model, request_id, status, error_type)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8, NULLIF($9,''))`,
		rec.CallID, rec.Operation, rec.SubmissionID, rec.Subject, rec.ProviderName, rec.Model, rec.RequestID, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// ProviderUsage counts calls per provider and status since the given number of hours.
type ProviderUsage struct {
	ProviderName string `json:"provider"`
	Status       string `json:"status"`
	Calls        int64  `json:"calls"`
}

func (r *LLMAuditRepo) UsageSince(ctx context.Context, hours int) ([]ProviderUsage, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT provider_name, status, COUNT(*)
FROM llm_calls
WHERE created_at >= NOW() - make_interval(hours => $1)
GROUP BY provider_name, status
ORDER BY provider_name, status`, hours)
	if err != nil {
		return nil, fmt.Errorf("query llm usage: %w", err)
	}
	defer rows.Close()
	out := make([]ProviderUsage, 0)
	for rows.Next() {
		var u ProviderUsage
		if err := rows.Scan(&u.ProviderName, &u.Status, &u.Calls); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

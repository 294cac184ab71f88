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

type QuestionRepo struct {
	db *DB
}

func NewQuestionRepo(db *DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

func (r *QuestionRepo) Insert(ctx context.Context, b models.QuestionBank) error {
	qs, err := json.Marshal(b.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO question_banks (bank_id, subject, topic, difficulty, types, questions, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.BankID, b.Subject, b.Topic, b.Difficulty, b.Types, qs, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question bank: %w", err)
	}
	return nil
}

func (r *QuestionRepo) Get(ctx context.Context, bankID string) (models.QuestionBank, error) {
	var b models.QuestionBank
	var qs []byte
	err := r.db.Pool.QueryRow(ctx, `
SELECT bank_id::text, subject, topic, difficulty, types, questions, created_at
FROM question_banks WHERE bank_id=$1`, bankID).
		Scan(&b.BankID, &b.Subject, &b.Topic, &b.Difficulty, &b.Types, &qs, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.QuestionBank{}, fmt.Errorf("question bank %s: %w", bankID, util.ErrNotFound)
	}
	if err != nil {
		return models.QuestionBank{}, fmt.Errorf("get question bank: %w", err)
	}
	if err := json.Unmarshal(qs, &b.Questions); err != nil {
		return models.QuestionBank{}, fmt.Errorf("decode questions: %w", err)
	}
	return b, nil
}

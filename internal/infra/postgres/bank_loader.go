package postgres

import (
	"context"
	"errors"
	"fmt"

	"cbt-exam-runner/internal/domain"
	"cbt-exam-runner/internal/questionbank"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE subject_id=$1`, subjectID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBankNotFound, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	return questionbank.Decode(raw)
}

// StoreQuestions upserts a subject's bank in canonical form.
func (l *BankLoader) StoreQuestions(ctx context.Context, subjectID string, questions []domain.Question) error {
	data, err := questionbank.Encode(questions)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_banks (subject_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (subject_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		subjectID, string(data))
	if err != nil {
		return fmt.Errorf("store bank: %w", err)
	}
	return nil
}

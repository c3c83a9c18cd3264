package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz/internal/domain"
)

// Bank serves question batches from a local Postgres question bank,
// mirroring the upstream wire record shape. Deployments seed the bank from
// the public API (see the seed command) to stay clear of its rate limit.
type Bank struct {
	pool     *pgxpool.Pool
	category int
}

func NewBank(pool *pgxpool.Pool, category int) *Bank {
	return &Bank{pool: pool, category: category}
}

// Fetch samples amount random questions from the bank, optionally filtered
// by category.
func (b *Bank) Fetch(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	query := `SELECT question, correct_answer, incorrect_answers FROM questions`
	args := []interface{}{}
	if b.category > 0 {
		query += ` WHERE category=$1`
		args = append(args, b.category)
	}
	query += fmt.Sprintf(` ORDER BY random() LIMIT %d`, amount)

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query bank: %v", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var records []domain.RawQuestion
	for rows.Next() {
		var rec domain.RawQuestion
		var incorrect []byte
		if err := rows.Scan(&rec.Question, &rec.CorrectAnswer, &incorrect); err != nil {
			return nil, fmt.Errorf("%w: scan bank row: %v", domain.ErrSourceUnavailable, err)
		}
		if err := json.Unmarshal(incorrect, &rec.IncorrectAnswers); err != nil {
			return nil, fmt.Errorf("%w: decode incorrect_answers: %v", domain.ErrSourceUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read bank rows: %v", domain.ErrSourceUnavailable, err)
	}
	return records, nil
}

// Insert stores one record in the bank; used by the seed command.
func (b *Bank) Insert(ctx context.Context, category int, rec domain.RawQuestion) error {
	incorrect, err := json.Marshal(rec.IncorrectAnswers)
	if err != nil {
		return fmt.Errorf("encode incorrect_answers: %w", err)
	}
	_, err = b.pool.Exec(ctx,
		`INSERT INTO questions (category, question, correct_answer, incorrect_answers) VALUES ($1, $2, $3, $4)`,
		category, rec.Question, rec.CorrectAnswer, incorrect)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

package source

import (
	"context"

	"trivia-quiz/internal/domain"
)

// Static serves a fixed batch from memory (tests and demo mode). Fetch
// returns at most the requested amount, in declaration order.
type Static struct {
	records []domain.RawQuestion
}

func NewStatic(records []domain.RawQuestion) *Static {
	return &Static{records: records}
}

func (s *Static) Fetch(_ context.Context, amount int) ([]domain.RawQuestion, error) {
	if amount <= 0 || amount > len(s.records) {
		amount = len(s.records)
	}
	out := make([]domain.RawQuestion, amount)
	copy(out, s.records[:amount])
	return out, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"party-trivia-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DefaultBatchSize is the fixed number of questions per game.
const DefaultBatchSize = 10

// QuestionSource serves random question batches from Postgres. Options are
// shuffled and trimmed here so the public view never betrays which column a
// string came from, and the correct answer stays server-side until a reveal.
type QuestionSource struct {
	pool      *pgxpool.Pool
	batchSize int
}

func NewQuestionSource(pool *pgxpool.Pool, batchSize int) *QuestionSource {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &QuestionSource{pool: pool, batchSize: batchSize}
}

func (s *QuestionSource) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt, correct_text, alt_1, alt_2, category FROM questions ORDER BY random() LIMIT $1`,
		s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	var batch []domain.Question
	for rows.Next() {
		var id, prompt, correct, alt1, alt2, category string
		if err := rows.Scan(&id, &prompt, &correct, &alt1, &alt2, &category); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		options := make([]string, 0, 3)
		for _, opt := range []string{correct, alt1, alt2} {
			if trimmed := strings.TrimSpace(opt); trimmed != "" {
				options = append(options, trimmed)
			}
		}
		rand.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})

		batch = append(batch, domain.Question{
			ID:       id,
			Prompt:   prompt,
			Options:  options,
			Category: category,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	return batch, nil
}

func (s *QuestionSource) Reveal(ctx context.Context, questionID string) (domain.RevealedAnswer, error) {
	var correct, explanation, sourceURL string
	err := s.pool.QueryRow(ctx,
		`SELECT correct_text, explanation, COALESCE(source_url, '') FROM questions WHERE id=$1`,
		questionID).Scan(&correct, &explanation, &sourceURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RevealedAnswer{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.RevealedAnswer{}, fmt.Errorf("reveal answer: %w", err)
	}
	return domain.RevealedAnswer{
		CorrectText: strings.TrimSpace(correct),
		Explanation: explanation,
		SourceURL:   sourceURL,
	}, nil
}

package memory

import (
	"context"

	"party-trivia-service/internal/domain"
)

// StaticQuestionSource serves a fixed batch of questions and their answers
// from memory, useful for tests and demo runs without a database.
type StaticQuestionSource struct {
	questions []domain.Question
	answers   map[string]domain.RevealedAnswer
}

func NewStaticQuestionSource(questions []domain.Question, answers map[string]domain.RevealedAnswer) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions, answers: answers}
}

func (s *StaticQuestionSource) FetchQuestions(_ context.Context) ([]domain.Question, error) {
	batch := make([]domain.Question, len(s.questions))
	for i, q := range s.questions {
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		q.Options = options
		batch[i] = q
	}
	return batch, nil
}

func (s *StaticQuestionSource) Reveal(_ context.Context, questionID string) (domain.RevealedAnswer, error) {
	if answer, ok := s.answers[questionID]; ok {
		return answer, nil
	}
	return domain.RevealedAnswer{}, domain.ErrQuestionNotFound
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizbot/internal/logger"
	"quizbot/internal/storage"

	"go.uber.org/zap"
)

// QuestionService drives the question lifecycle: OPEN while the deadline has
// not passed, CLOSED once it has (or an operator forces it), SETTLED after
// the correct option is announced.
type QuestionService struct {
	store *storage.Store
	log   *logger.Logger
}

// NewQuestionService creates a question lifecycle service.
func NewQuestionService(store *storage.Store, log *logger.Logger) *QuestionService {
	return &QuestionService{store: store, log: log}
}

// Open creates a new OPEN question.
func (s *QuestionService) Open(ctx context.Context, text, optionA, optionB string, deadline time.Time) (*storage.Question, error) {
	if text == "" || optionA == "" || optionB == "" {
		return nil, fmt.Errorf("question text and both options are required: %w", ErrInvalidInput)
	}
	if deadline.IsZero() {
		return nil, fmt.Errorf("deadline is required: %w", ErrInvalidInput)
	}

	var question *storage.Question
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		var err error
		question, err = tx.CreateQuestion(ctx, text, optionA, optionB, deadline)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(0, "question_opened",
		zap.Int64("question_id", question.ID),
		zap.Time("deadline", question.Deadline))
	return question, nil
}

// CloseIfExpired transitions an OPEN question to CLOSED once its deadline has
// passed. It is idempotent: an already-closed question, an unexpired
// deadline, or a lost race all report closed=false without error.
func (s *QuestionService) CloseIfExpired(ctx context.Context, questionID int64, now time.Time) (bool, error) {
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return false, err
	}
	if question.Status != storage.QuestionStatusOpen || now.Before(question.Deadline) {
		return false, nil
	}

	err = s.store.InTx(ctx, func(tx *storage.Tx) error {
		return tx.SetQuestionStatus(ctx, questionID, storage.QuestionStatusOpen, storage.QuestionStatusClosed, "")
	})
	if errors.Is(err, storage.ErrStaleStatus) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info(0, "question_closed", zap.Int64("question_id", questionID), zap.String("cause", "deadline"))
	return true, nil
}

// ForceClose transitions an OPEN question to CLOSED regardless of its
// deadline, for operator correction. Closing a question that is no longer
// OPEN fails with ErrQuestionClosed.
func (s *QuestionService) ForceClose(ctx context.Context, questionID int64) error {
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		return tx.SetQuestionStatus(ctx, questionID, storage.QuestionStatusOpen, storage.QuestionStatusClosed, "")
	})
	if errors.Is(err, storage.ErrStaleStatus) {
		return fmt.Errorf("question %d: %w", questionID, ErrQuestionClosed)
	}
	if err != nil {
		return err
	}
	s.log.Info(0, "question_closed", zap.Int64("question_id", questionID), zap.String("cause", "forced"))
	return nil
}

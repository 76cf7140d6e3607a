package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizbot/internal/logger"
	"quizbot/internal/metrics"
	"quizbot/internal/storage"
	"quizbot/internal/wallet"

	"go.uber.org/zap"
)

// BettingService validates and records stakes against open questions.
type BettingService struct {
	store  *storage.Store
	wallet *wallet.Service
	log    *logger.Logger
}

// NewBettingService creates a betting service.
func NewBettingService(store *storage.Store, w *wallet.Service, log *logger.Logger) *BettingService {
	return &BettingService{store: store, wallet: w, log: log}
}

// PlaceBet debits the stake and records a PENDING participant in one unit of
// work. The question's status and deadline are re-checked inside that unit of
// work, because time advances and a concurrent close may commit between the
// first validation and ours. On any failure no funds move and no participant
// row exists.
//
// A user may place any number of bets on the same question; each call appends
// a new participant row.
func (s *BettingService) PlaceBet(ctx context.Context, userID, questionID int64, option storage.Option, stake int64, now time.Time) (*storage.Participant, error) {
	if option != storage.OptionA && option != storage.OptionB {
		metrics.BetsRejected.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("option %q: %w", option, ErrInvalidOption)
	}
	if stake <= 0 {
		metrics.BetsRejected.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("stake %d: %w", stake, ErrInvalidStake)
	}

	var participant *storage.Participant
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		question, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if question.Status != storage.QuestionStatusOpen || !now.Before(question.Deadline) {
			return fmt.Errorf("question %d: %w", questionID, ErrQuestionClosed)
		}

		description := fmt.Sprintf("Stake on question #%d, option %s", questionID, option)
		if _, err := s.wallet.DebitTx(ctx, tx, userID, stake, description); err != nil {
			return err
		}

		participant, err = tx.CreateParticipant(ctx, userID, questionID, option, stake)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrQuestionClosed):
			metrics.BetsRejected.WithLabelValues("closed").Inc()
		case errors.Is(err, storage.ErrInsufficientFunds):
			metrics.BetsRejected.WithLabelValues("insufficient_funds").Inc()
		}
		return nil, err
	}

	metrics.BetsPlaced.Inc()
	s.log.Info(userID, "bet_placed",
		zap.Int64("question_id", questionID),
		zap.String("option", string(option)),
		zap.Int64("stake", stake),
		zap.Int64("participant_id", participant.ID))
	return participant, nil
}
